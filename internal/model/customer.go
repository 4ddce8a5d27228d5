package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	CustomerTypeFamily = "family"
	CustomerTypeSingle = "single"
)

// Customer is the loyalty account behind an NFC card.
type Customer struct {
	ID              uuid.UUID           `json:"id"`
	FullName        string              `json:"full_name"`
	Type            string              `json:"type"`
	DiscountPercent decimal.NullDecimal `json:"discount_percent"`
	Balance         decimal.Decimal     `json:"balance"`
	CreatedAt       time.Time           `json:"created_at"`
}

// ScanResult is what a terminal shows after reading a customer's card.
type ScanResult struct {
	Customer           *Customer        `json:"customer"`
	ActiveQuotas       []CustomerCoupon `json:"activeQuotas"`
	AvailableCampaigns []Campaign       `json:"availableCampaigns"`
}
