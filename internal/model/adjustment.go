package model

import "github.com/shopspring/decimal"

// AdjustmentKind tags how an Adjustment value is applied to an amount.
type AdjustmentKind string

const (
	AdjustmentPercentage AdjustmentKind = "PERCENTAGE"
	AdjustmentFixed      AdjustmentKind = "FIXED"
)

var hundred = decimal.NewFromInt(100)

// Adjustment is a discount of one kind: a percentage of the amount or a fixed amount off.
type Adjustment struct {
	Kind  AdjustmentKind
	Value decimal.Decimal
}

// Percentage returns a percentage adjustment.
func Percentage(v decimal.Decimal) Adjustment {
	return Adjustment{Kind: AdjustmentPercentage, Value: v}
}

// Fixed returns a fixed-amount adjustment.
func Fixed(v decimal.Decimal) Adjustment {
	return Adjustment{Kind: AdjustmentFixed, Value: v}
}

// Apply returns amount reduced by the adjustment, never below zero.
// Non-positive values leave the amount unchanged.
func (a Adjustment) Apply(amount decimal.Decimal) decimal.Decimal {
	if !a.Value.IsPositive() {
		return amount
	}

	var out decimal.Decimal
	switch a.Kind {
	case AdjustmentPercentage:
		out = amount.Sub(amount.Mul(a.Value).Div(hundred))
	default:
		out = amount.Sub(a.Value)
	}
	if out.IsNegative() {
		return decimal.Zero
	}
	return out
}

// AdjustmentFromDiscountType maps the lowercase instant/manual discount type
// ("percentage" or "fixed_amount") onto an Adjustment.
func AdjustmentFromDiscountType(discountType string, v decimal.Decimal) Adjustment {
	if discountType == DiscountTypePercentage {
		return Percentage(v)
	}
	return Fixed(v)
}
