package metrics

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TransactionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "loyalty_transactions_total",
		Help: "Completed transactions by payment method and discount branch",
	}, []string{"payment_method", "discount"})

	TransactionFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "loyalty_transaction_failures_total",
		Help: "Failed transactions by the stage they failed in",
	}, []string{"stage"})

	RewardsGranted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "loyalty_rewards_granted_total",
		Help: "Coupons minted by source",
	}, []string{"source"})

	BundleEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "loyalty_bundle_events_total",
		Help: "Bundle consistency transitions",
	}, []string{"event"})

	CouponsExpired = promauto.NewCounter(prometheus.CounterOpts{
		Name: "loyalty_coupons_expired_total",
		Help: "Coupons moved to EXPIRED by redemption attempts or the sweep",
	})

	WalletTopUps = promauto.NewCounter(prometheus.CounterOpts{
		Name: "loyalty_wallet_topups_total",
		Help: "Wallet top-ups",
	})
)

func RecordTransaction(paymentMethod, discount string) {
	TransactionsTotal.WithLabelValues(normalizeLabel(paymentMethod), normalizeLabel(discount)).Inc()
}

func RecordFailure(stage string) {
	TransactionFailures.WithLabelValues(normalizeLabel(stage)).Inc()
}

func RecordRewards(source string, count int) {
	if count <= 0 {
		return
	}
	RewardsGranted.WithLabelValues(normalizeLabel(source)).Add(float64(count))
}

func RecordBundleEvent(event string) {
	BundleEvents.WithLabelValues(normalizeLabel(event)).Inc()
}

func RecordExpired(count int64) {
	if count <= 0 {
		return
	}
	CouponsExpired.Add(float64(count))
}

func RecordTopUp() {
	WalletTopUps.Inc()
}

func normalizeLabel(v string) string {
	label := strings.ToLower(strings.TrimSpace(v))
	if label == "" {
		return "unknown"
	}
	return label
}
