package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CampaignType is the rule family of a campaign.
type CampaignType string

const (
	CampaignAutoSpend CampaignType = "AUTO_SPEND"
	CampaignBundle    CampaignType = "BUNDLE"
	CampaignManual    CampaignType = "MANUAL"
)

// CustomerTypeAll makes a campaign visible to every customer type.
const CustomerTypeAll = "ALL"

const (
	defaultTargetCount = 5
	defaultUsageLimit  = 1
)

// TriggerCondition decides when a campaign fires.
type TriggerCondition struct {
	MinSpend    decimal.Decimal `json:"min_spend"`
	TargetCount int             `json:"target_count"`
}

// RewardConfig describes the coupon a campaign grants.
type RewardConfig struct {
	Type         AdjustmentKind    `json:"type" validate:"omitempty,oneof=PERCENTAGE FIXED"`
	Value        decimal.Decimal   `json:"value"`
	ValidityDays int               `json:"validity_days" validate:"gte=0"`
	Splits       []decimal.Decimal `json:"splits,omitempty"`
}

// Adjustment returns the nominal reward as an Adjustment, using value in place of the configured one.
func (r RewardConfig) Adjustment(value decimal.Decimal) Adjustment {
	if r.Type == AdjustmentFixed {
		return Fixed(value)
	}
	return Percentage(value)
}

// Campaign is a promotional rule definition.
type Campaign struct {
	ID               uuid.UUID        `json:"id"`
	Name             string           `json:"name"`
	NameEN           string           `json:"name_en"`
	Description      string           `json:"description"`
	Type             CampaignType     `json:"type"`
	IsActive         bool             `json:"is_active"`
	DeletedAt        *time.Time       `json:"deleted_at"`
	TriggerCondition TriggerCondition `json:"trigger_condition"`
	RewardConfig     RewardConfig     `json:"reward_config"`
	BundleType       string           `json:"bundle_type"`
	Price            decimal.Decimal  `json:"price"`
	CustomerType     string           `json:"customer_type"`
	UsageLimit       int              `json:"usage_limit"`
	ValidityDays     int              `json:"validity_days"`
	CreatedAt        time.Time        `json:"created_at"`
}

// IsPaidPackage reports whether the bundle is sold for a price rather than earned with stamps.
func (c *Campaign) IsPaidPackage() bool {
	return c.Price.IsPositive()
}

// TargetCount returns the stamp-card target, defaulting to 5.
func (c *Campaign) TargetCount() int {
	if c.TriggerCondition.TargetCount > 0 {
		return c.TriggerCondition.TargetCount
	}
	return defaultTargetCount
}

// CouponsPerPurchase returns how many fallback coupons one package purchase grants.
func (c *Campaign) CouponsPerPurchase() int {
	if c.UsageLimit > 0 {
		return c.UsageLimit
	}
	return defaultUsageLimit
}

// CampaignRequest is the DTO for creating or replacing a campaign.
type CampaignRequest struct {
	Name             string           `json:"name" validate:"required,notblank,max=255"`
	NameEN           string           `json:"name_en" validate:"max=255"`
	Description      string           `json:"description"`
	Type             CampaignType     `json:"type" validate:"required,oneof=AUTO_SPEND BUNDLE MANUAL"`
	IsActive         *bool            `json:"is_active"`
	TriggerCondition TriggerCondition `json:"trigger_condition"`
	RewardConfig     RewardConfig     `json:"reward_config"`
	BundleType       string           `json:"bundle_type" validate:"max=64"`
	Price            decimal.Decimal  `json:"price"`
	CustomerType     string           `json:"customer_type" validate:"max=32"`
	UsageLimit       int              `json:"usage_limit" validate:"gte=0"`
	ValidityDays     int              `json:"validity_days" validate:"gte=0"`
}
