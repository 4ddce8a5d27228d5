package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordTransaction_NormalizesLabels(t *testing.T) {
	before := testutil.ToFloat64(TransactionsTotal.WithLabelValues("cash", "coupon"))

	RecordTransaction(" CASH ", "coupon")

	assert.Equal(t, before+1, testutil.ToFloat64(TransactionsTotal.WithLabelValues("cash", "coupon")))
}

func TestRecordRewards_IgnoresNonPositiveCounts(t *testing.T) {
	before := testutil.ToFloat64(RewardsGranted.WithLabelValues("auto_reward"))

	RecordRewards("AUTO_REWARD", 0)
	RecordRewards("AUTO_REWARD", -2)
	RecordRewards("AUTO_REWARD", 3)

	assert.Equal(t, before+3, testutil.ToFloat64(RewardsGranted.WithLabelValues("auto_reward")))
}

func TestRecordExpired(t *testing.T) {
	before := testutil.ToFloat64(CouponsExpired)

	RecordExpired(0)
	RecordExpired(4)

	assert.Equal(t, before+4, testutil.ToFloat64(CouponsExpired))
}

func TestNormalizeLabel_Empty(t *testing.T) {
	assert.Equal(t, "unknown", normalizeLabel("  "))
}
