package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/fairyhunter13/loyalty-pos/internal/metrics"
	"github.com/fairyhunter13/loyalty-pos/internal/model"
	"github.com/fairyhunter13/loyalty-pos/pkg/database"
)

const (
	bundleEventBonusReduced  = "bonus_reduced"
	bundleEventBonusConsumed = "bonus_consumed"
	bundleEventPartsCascaded = "parts_cascaded"
	bundleEventBonusMissing  = "bonus_missing"
)

// BundleProtocol keeps a bundle's bonus coupon consistent with its parts.
// The bonus value always equals what is left of it after the redeemed parts are
// subtracted, and it is zeroed and used once the last part goes.
type BundleProtocol struct {
	coupons CouponRepository
	now     func() time.Time
}

// NewBundleProtocol creates a new BundleProtocol.
func NewBundleProtocol(coupons CouponRepository) *BundleProtocol {
	return &BundleProtocol{coupons: coupons, now: time.Now}
}

// Settle applies the bundle rules after used has been marked USED in tx.
// The caller must hold the bundle advisory lock (database.BundleLockKey) in tx.
func (b *BundleProtocol) Settle(ctx context.Context, tx database.TxQuerier, used *model.CustomerCoupon) error {
	if used == nil || used.BundleID == nil {
		return nil
	}

	switch used.Source {
	case model.SourcePaidPackage:
		return b.settlePart(ctx, tx, used)
	case model.SourceBundleBonus:
		return b.settleBonus(ctx, tx, used)
	}
	return nil
}

func (b *BundleProtocol) settlePart(ctx context.Context, tx database.TxQuerier, used *model.CustomerCoupon) error {
	rows, err := b.coupons.ListBundleForUpdate(ctx, tx, *used.BundleID)
	if err != nil {
		return fmt.Errorf("list bundle %s: %w", used.BundleID, err)
	}

	var bonus *model.CustomerCoupon
	remaining := 0
	for i := range rows {
		c := &rows[i]
		switch {
		case c.Source == model.SourceBundleBonus:
			bonus = c
		case c.Source == model.SourcePaidPackage && c.Status == model.CouponActive && c.ID != used.ID:
			remaining++
		}
	}

	if bonus == nil {
		metrics.RecordBundleEvent(bundleEventBonusMissing)
		log.Warn().
			Str("bundle_id", used.BundleID.String()).
			Str("coupon_id", used.ID.String()).
			Msg("bundle has no bonus coupon")
		return nil
	}
	if bonus.Status != model.CouponActive {
		return nil
	}

	now := b.now().UTC()

	if remaining == 0 {
		stamps := map[string]any{
			"consumed_with_last_part":    true,
			"final_value_at_consumption": 0,
			"consumed_at":                now.Format(time.RFC3339),
			"trigger_coupon_id":          used.ID.String(),
		}
		if err := b.coupons.ConsumeBonus(ctx, tx, bonus.ID, now, stamps); err != nil {
			return fmt.Errorf("consume bonus %s: %w", bonus.ID, err)
		}
		metrics.RecordBundleEvent(bundleEventBonusConsumed)
		log.Info().
			Str("bundle_id", used.BundleID.String()).
			Str("bonus_id", bonus.ID.String()).
			Msg("last bundle part used, bonus consumed")
		return nil
	}

	usedValue := used.Value()
	if !usedValue.IsPositive() {
		return nil
	}

	current := bonus.Value()
	next := current.Sub(usedValue)
	if next.IsNegative() {
		next = decimal.Zero
	}

	stamps := map[string]any{
		"last_reduced_by":   usedValue,
		"last_reduction_at": now.Format(time.RFC3339),
	}
	if err := b.coupons.ReduceBonus(ctx, tx, bonus.ID, next, stamps); err != nil {
		return fmt.Errorf("reduce bonus %s: %w", bonus.ID, err)
	}
	metrics.RecordBundleEvent(bundleEventBonusReduced)
	log.Info().
		Str("bundle_id", used.BundleID.String()).
		Str("from", current.String()).
		Str("to", next.String()).
		Int("remaining_parts", remaining).
		Msg("bundle bonus reduced")
	return nil
}

func (b *BundleProtocol) settleBonus(ctx context.Context, tx database.TxQuerier, used *model.CustomerCoupon) error {
	if used.SourceTransactionID == nil {
		return nil
	}

	rows, err := b.coupons.ListBySourceTransactionForUpdate(ctx, tx, used.CustomerID, *used.SourceTransactionID)
	if err != nil {
		return fmt.Errorf("list coupons of transaction %s: %w", used.SourceTransactionID, err)
	}

	var ids []uuid.UUID
	for _, c := range rows {
		if c.Source == model.SourcePaidPackage && c.Status == model.CouponActive {
			ids = append(ids, c.ID)
		}
	}
	if len(ids) == 0 {
		return nil
	}

	now := b.now().UTC()
	stamps := map[string]any{
		"consumed_with_bonus": true,
		"consumed_at":         now.Format(time.RFC3339),
	}
	n, err := b.coupons.ConsumeCoupons(ctx, tx, ids, now, stamps)
	if err != nil {
		return fmt.Errorf("consume bundle parts: %w", err)
	}
	metrics.RecordBundleEvent(bundleEventPartsCascaded)
	log.Info().
		Str("bundle_id", used.BundleID.String()).
		Int64("parts", n).
		Msg("bonus used, remaining parts consumed")
	return nil
}
