package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/fairyhunter13/loyalty-pos/internal/metrics"
	"github.com/fairyhunter13/loyalty-pos/internal/model"
	"github.com/fairyhunter13/loyalty-pos/pkg/database"
)

const (
	RewardTypeBundle = "BUNDLE"

	partCodePrefix  = "PKG-"
	bonusCodePrefix = "BNS-"
	codeLength      = 8
)

// priceTolerance is how close a paid amount must be to a package price to count as buying it.
var priceTolerance = decimal.NewFromFloat(0.01)

// RewardEngine mints coupons for a completed transaction.
type RewardEngine struct {
	campaigns    CampaignRepository
	coupons      CouponRepository
	progress     ProgressRepository
	transactions TransactionRepository
	now          func() time.Time
}

// NewRewardEngine creates a new RewardEngine.
func NewRewardEngine(campaigns CampaignRepository, coupons CouponRepository, progress ProgressRepository, transactions TransactionRepository) *RewardEngine {
	return &RewardEngine{
		campaigns:    campaigns,
		coupons:      coupons,
		progress:     progress,
		transactions: transactions,
		now:          time.Now,
	}
}

// CheckOwnership fails with ErrAlreadyOwned when the customer still holds an
// ACTIVE coupon of campaignID. The ownership advisory lock taken here is held
// until tx ends, so two concurrent purchases of one bundle serialize.
func (e *RewardEngine) CheckOwnership(ctx context.Context, tx database.TxQuerier, customerID, campaignID uuid.UUID) error {
	if err := database.LockKey(ctx, tx, database.OwnershipLockKey(customerID.String(), campaignID.String())); err != nil {
		return err
	}

	owned, err := e.coupons.HasActiveForCampaign(ctx, tx, customerID, campaignID)
	if err != nil {
		return fmt.Errorf("check ownership: %w", err)
	}
	if owned {
		return ErrAlreadyOwned
	}
	return nil
}

// PurchaseBundle mints the split coupons and the bonus coupon of a bundle
// campaign and records the bundle on txn's metadata.
func (e *RewardEngine) PurchaseBundle(ctx context.Context, tx database.TxQuerier, campaign *model.Campaign, txn *model.Transaction) (model.Reward, error) {
	ladder := ResolveSplitLadder(campaign)
	now := e.now().UTC()
	expiresAt := expiryAfter(now, campaign.ValidityDays)
	bundleID := uuid.New()
	parts := len(ladder.Splits)

	total := campaign.RewardConfig.Value
	if !total.IsPositive() {
		total = defaultBundleTotal
	}
	original := decimal.NewNullDecimal(total)

	coupons := make([]model.CustomerCoupon, 0, parts+1)
	for i, v := range ladder.Splits {
		part := i + 1
		coupons = append(coupons, e.bundleCoupon(txn, campaign, bundleID, partCodePrefix, model.SourcePaidPackage, v, expiresAt, now, &part, parts, original, ladder.Label))
	}
	coupons = append(coupons, e.bundleCoupon(txn, campaign, bundleID, bonusCodePrefix, model.SourceBundleBonus, ladder.Bonus, expiresAt, now, nil, parts, original, ladder.Label))

	if err := e.coupons.InsertBatch(ctx, tx, coupons); err != nil {
		return model.Reward{}, fmt.Errorf("mint bundle coupons: %w", err)
	}

	txn.Metadata.CampaignName = campaign.Name
	txn.Metadata.CouponCount = parts + 1
	txn.Metadata.BundleInfo = bundleInfo(ladder)
	if err := e.transactions.UpdateMetadata(ctx, tx, txn.ID, txn.Metadata); err != nil {
		return model.Reward{}, fmt.Errorf("record bundle on transaction: %w", err)
	}

	metrics.RecordRewards(string(model.SourcePaidPackage), parts)
	metrics.RecordRewards(string(model.SourceBundleBonus), 1)
	log.Info().
		Str("bundle_id", bundleID.String()).
		Str("campaign_id", campaign.ID.String()).
		Str("label", ladder.Label).
		Int("parts", parts).
		Msg("bundle purchased")

	return model.Reward{
		Name:  fmt.Sprintf("%s (%d coupons + bonus %s%%)", campaign.Name, parts, ladder.Bonus.String()),
		Type:  RewardTypeBundle,
		Parts: append(append([]decimal.Decimal{}, ladder.Splits...), ladder.Bonus),
	}, nil
}

func (e *RewardEngine) bundleCoupon(txn *model.Transaction, campaign *model.Campaign, bundleID uuid.UUID, prefix string, source model.CouponSource, value decimal.Decimal, expiresAt *time.Time, now time.Time, part *int, totalParts int, original decimal.NullDecimal, label string) model.CustomerCoupon {
	txnID := txn.ID
	bid := bundleID
	tp := totalParts
	return model.CustomerCoupon{
		ID:                  uuid.New(),
		CustomerID:          txn.CustomerID,
		CampaignID:          campaign.ID,
		Code:                prefix + newCouponCode(),
		Status:              model.CouponActive,
		ExpiresAt:           expiresAt,
		Source:              source,
		SourceTransactionID: &txnID,
		BundleID:            &bid,
		Part:                part,
		TotalParts:          &tp,
		DiscountValue:       decimal.NewNullDecimal(value),
		OriginalTotal:       original,
		BundleLabel:         label,
		Metadata:            map[string]any{},
		CreatedAt:           now,
	}
}

// GrantAutoSpend mints one AUTO_REWARD coupon for every active auto-spend
// campaign whose minimum spend the charged amount reaches.
func (e *RewardEngine) GrantAutoSpend(ctx context.Context, tx database.TxQuerier, customerID, txnID uuid.UUID, final decimal.Decimal) ([]model.Reward, error) {
	campaigns, err := e.campaigns.ListActiveByType(ctx, tx, model.CampaignAutoSpend)
	if err != nil {
		return nil, fmt.Errorf("list auto-spend campaigns: %w", err)
	}

	now := e.now().UTC()
	var coupons []model.CustomerCoupon
	var rewards []model.Reward
	for i := range campaigns {
		c := &campaigns[i]
		if final.LessThan(c.TriggerCondition.MinSpend) {
			continue
		}
		coupons = append(coupons, simpleCoupon(customerID, txnID, c.ID, model.SourceAutoReward, expiryAfter(now, c.RewardConfig.ValidityDays), now))
		rewards = append(rewards, model.Reward{Name: c.Name, Type: rewardType(c)})
	}
	if len(coupons) == 0 {
		return nil, nil
	}

	if err := e.coupons.InsertBatch(ctx, tx, coupons); err != nil {
		return nil, fmt.Errorf("mint auto-spend coupons: %w", err)
	}
	metrics.RecordRewards(string(model.SourceAutoReward), len(coupons))
	return rewards, nil
}

// AdvanceStampCards handles every active bundle campaign for a plain purchase:
// a paid package whose price matches the charged amount grants its fallback
// coupons, any other bundle campaign advances the customer's stamp card.
func (e *RewardEngine) AdvanceStampCards(ctx context.Context, tx database.TxQuerier, customerID, txnID uuid.UUID, final decimal.Decimal) ([]model.Reward, error) {
	campaigns, err := e.campaigns.ListActiveByType(ctx, tx, model.CampaignBundle)
	if err != nil {
		return nil, fmt.Errorf("list bundle campaigns: %w", err)
	}

	now := e.now().UTC()
	var rewards []model.Reward
	for i := range campaigns {
		c := &campaigns[i]

		if c.IsPaidPackage() {
			if final.Sub(c.Price).Abs().GreaterThanOrEqual(priceTolerance) {
				continue
			}
			n := c.CouponsPerPurchase()
			coupons := make([]model.CustomerCoupon, 0, n)
			for j := 0; j < n; j++ {
				cp := simpleCoupon(customerID, txnID, c.ID, model.SourcePaidPackageFallback, expiryAfter(now, c.ValidityDays), now)
				cp.Code = partCodePrefix + cp.Code
				coupons = append(coupons, cp)
			}
			if err := e.coupons.InsertBatch(ctx, tx, coupons); err != nil {
				return nil, fmt.Errorf("mint package coupons for campaign %s: %w", c.ID, err)
			}
			metrics.RecordRewards(string(model.SourcePaidPackageFallback), n)
			rewards = append(rewards, model.Reward{Name: "Package Purchased: " + c.Name, Type: RewardTypeBundle})
			continue
		}

		target := c.TargetCount()
		count, err := e.progress.Increment(ctx, tx, customerID, c.ID, target)
		if err != nil {
			return nil, fmt.Errorf("advance stamp card for campaign %s: %w", c.ID, err)
		}
		if count < target {
			continue
		}

		cp := simpleCoupon(customerID, txnID, c.ID, model.SourceBundleReward, expiryAfter(now, c.RewardConfig.ValidityDays), now)
		if err := e.coupons.InsertBatch(ctx, tx, []model.CustomerCoupon{cp}); err != nil {
			return nil, fmt.Errorf("mint stamp card reward for campaign %s: %w", c.ID, err)
		}
		if err := e.progress.Reset(ctx, tx, customerID, c.ID); err != nil {
			return nil, fmt.Errorf("reset stamp card for campaign %s: %w", c.ID, err)
		}
		metrics.RecordRewards(string(model.SourceBundleReward), 1)
		rewards = append(rewards, model.Reward{Name: c.Name + " (Completed!)", Type: rewardType(c)})
	}
	return rewards, nil
}

func simpleCoupon(customerID, txnID, campaignID uuid.UUID, source model.CouponSource, expiresAt *time.Time, now time.Time) model.CustomerCoupon {
	id := txnID
	return model.CustomerCoupon{
		ID:                  uuid.New(),
		CustomerID:          customerID,
		CampaignID:          campaignID,
		Code:                newCouponCode(),
		Status:              model.CouponActive,
		ExpiresAt:           expiresAt,
		Source:              source,
		SourceTransactionID: &id,
		Metadata:            map[string]any{},
		CreatedAt:           now,
	}
}

// expiryAfter returns now plus days, or nil (never expires) when days is not positive.
func expiryAfter(now time.Time, days int) *time.Time {
	if days <= 0 {
		return nil
	}
	t := now.AddDate(0, 0, days)
	return &t
}

func newCouponCode() string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return strings.ToUpper(raw[:codeLength])
}

func rewardType(c *model.Campaign) string {
	if c.RewardConfig.Type == "" {
		return string(model.AdjustmentPercentage)
	}
	return string(c.RewardConfig.Type)
}

func bundleInfo(l SplitLadder) string {
	parts := make([]string, 0, len(l.Splits))
	for _, s := range l.Splits {
		parts = append(parts, s.String()+"%")
	}
	return fmt.Sprintf("%s: %s + %s%% bonus", l.Label, strings.Join(parts, " + "), l.Bonus.String())
}
