package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CouponStatus is the redemption state of a customer coupon.
type CouponStatus string

const (
	CouponActive  CouponStatus = "ACTIVE"
	CouponUsed    CouponStatus = "USED"
	CouponExpired CouponStatus = "EXPIRED"
)

// CouponSource records which engine path minted a coupon.
type CouponSource string

const (
	SourcePaidPackage         CouponSource = "PAID_PACKAGE"
	SourceBundleBonus         CouponSource = "BUNDLE_BONUS"
	SourcePaidPackageFallback CouponSource = "PAID_PACKAGE_FALLBACK"
	SourceAutoReward          CouponSource = "AUTO_REWARD"
	SourceBundleReward        CouponSource = "BUNDLE_REWARD"
)

// CustomerCoupon is a redeemable reward owned by one customer.
// Bundle siblings are linked by BundleID and SourceTransactionID; Metadata only
// carries audit stamps written by the bundle protocol.
type CustomerCoupon struct {
	ID                  uuid.UUID           `json:"id"`
	CustomerID          uuid.UUID           `json:"customer_id"`
	CampaignID          uuid.UUID           `json:"campaign_id"`
	Code                string              `json:"code"`
	Status              CouponStatus        `json:"status"`
	ExpiresAt           *time.Time          `json:"expires_at"`
	UsedAt              *time.Time          `json:"used_at"`
	Source              CouponSource        `json:"source"`
	SourceTransactionID *uuid.UUID          `json:"transaction_id"`
	BundleID            *uuid.UUID          `json:"bundle_id"`
	Part                *int                `json:"part"`
	TotalParts          *int                `json:"total_parts"`
	DiscountValue       decimal.NullDecimal `json:"discount_value"`
	OriginalTotal       decimal.NullDecimal `json:"original_total"`
	BundleLabel         string              `json:"bundle_type,omitempty"`
	Metadata            map[string]any      `json:"metadata"`
	CreatedAt           time.Time           `json:"created_at"`

	// Campaign is populated by lookups that join the owning campaign.
	Campaign *Campaign `json:"campaign,omitempty"`
}

// IsExpired reports whether the coupon's expiry lies before now.
func (c CustomerCoupon) IsExpired(now time.Time) bool {
	return c.ExpiresAt != nil && c.ExpiresAt.Before(now)
}

// Value returns the coupon's individual discount value, or zero when unset.
func (c CustomerCoupon) Value() decimal.Decimal {
	if c.DiscountValue.Valid {
		return c.DiscountValue.Decimal
	}
	return decimal.Zero
}

// CampaignProgress is a customer's stamp-card counter for one campaign.
type CampaignProgress struct {
	ID           uuid.UUID `json:"id"`
	CustomerID   uuid.UUID `json:"customer_id"`
	CampaignID   uuid.UUID `json:"campaign_id"`
	CurrentCount int       `json:"current_count"`
	TargetCount  int       `json:"target_count"`
	UpdatedAt    time.Time `json:"updated_at"`
}
