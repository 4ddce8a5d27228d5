package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	DiscountTypePercentage  = "percentage"
	DiscountTypeFixedAmount = "fixed_amount"
)

// Discount is an instant discount defined by an admin and picked at the terminal.
type Discount struct {
	ID        uuid.UUID       `json:"id"`
	Name      string          `json:"name"`
	Type      string          `json:"type"`
	Value     decimal.Decimal `json:"value"`
	CreatedAt time.Time       `json:"-"`
}

// Adjustment returns the discount as an Adjustment.
func (d *Discount) Adjustment() Adjustment {
	return AdjustmentFromDiscountType(d.Type, d.Value)
}
