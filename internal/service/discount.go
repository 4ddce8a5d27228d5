package service

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/fairyhunter13/loyalty-pos/internal/model"
)

// DiscountBranch names the resolver branch that produced a Resolution.
type DiscountBranch string

const (
	BranchNone       DiscountBranch = "none"
	BranchInstant    DiscountBranch = "instant"
	BranchCoupon     DiscountBranch = "coupon"
	BranchManual     DiscountBranch = "manual"
	BranchMembership DiscountBranch = "membership"
)

var (
	familyMemberPercent = decimal.NewFromInt(25)
	memberPercent       = decimal.NewFromInt(12)
)

// DiscountSource is what the terminal picked: an instant discount, a coupon, or neither.
// Coupon.Campaign must be populated when Coupon is set.
type DiscountSource struct {
	Instant *model.Discount
	Coupon  *model.CustomerCoupon
}

// ManualDiscount is a discount typed in by staff at the point of sale.
type ManualDiscount struct {
	Type  string
	Value decimal.Decimal
}

// DiscountInput carries every record the resolver reads.
type DiscountInput struct {
	Base       decimal.Decimal
	CustomerID uuid.UUID
	Source     DiscountSource
	Manual     ManualDiscount
	Customer   *model.Customer
	Now        time.Time
}

// Resolution is the charged amount and the label shown on the receipt.
type Resolution struct {
	Final  decimal.Decimal
	Label  *string
	Branch DiscountBranch
}

// ValidateCoupon checks that coupon can be redeemed by customerID at now.
func ValidateCoupon(coupon *model.CustomerCoupon, customerID uuid.UUID, now time.Time) error {
	if coupon == nil || coupon.CustomerID != customerID || coupon.Status != model.CouponActive {
		return ErrInvalidCoupon
	}
	if coupon.IsExpired(now) {
		return fmt.Errorf("%w: expired at %s", ErrCouponExpired, coupon.ExpiresAt.UTC().Format(time.RFC3339))
	}
	return nil
}

// ResolveDiscount computes the charged amount. Exactly one branch applies, in order:
// instant discount, coupon, manual discount, membership discount.
// The result is rounded to cents and never negative or above the base amount.
func ResolveDiscount(in DiscountInput) (Resolution, error) {
	if in.Base.IsNegative() {
		return Resolution{}, fmt.Errorf("%w: amount must not be negative", ErrInvalidRequest)
	}
	base := in.Base.Round(2)

	switch {
	case in.Source.Instant != nil:
		d := in.Source.Instant
		return resolved(d.Adjustment().Apply(base), d.Name, BranchInstant), nil

	case in.Source.Coupon != nil:
		return resolveCoupon(base, in)

	case in.Manual.Value.IsPositive():
		adj := model.AdjustmentFromDiscountType(in.Manual.Type, in.Manual.Value)
		return resolved(adj.Apply(base), "Manual discount ("+formatAdjustment(adj)+")", BranchManual), nil
	}

	if in.Customer != nil {
		pct := membershipPercent(in.Customer)
		if pct.IsPositive() {
			label := fmt.Sprintf("Membership discount %s (%s%%)", membershipLabel(in.Customer.Type), pct.String())
			return resolved(model.Percentage(pct).Apply(base), label, BranchMembership), nil
		}
	}

	return Resolution{Final: base, Branch: BranchNone}, nil
}

func resolveCoupon(base decimal.Decimal, in DiscountInput) (Resolution, error) {
	coupon := in.Source.Coupon
	if err := ValidateCoupon(coupon, in.CustomerID, in.Now); err != nil {
		return Resolution{}, err
	}
	if coupon.Campaign == nil {
		return Resolution{}, fmt.Errorf("%w: coupon %s has no campaign", ErrInvalidCoupon, coupon.ID)
	}

	reward := coupon.Campaign.RewardConfig
	label := "Coupon: " + coupon.Campaign.Name

	// split-bundle parts carry their own value, always labelled as a percentage
	if coupon.DiscountValue.Valid {
		v := coupon.DiscountValue.Decimal
		label += " (" + v.String() + "%)"
		return resolved(reward.Adjustment(v).Apply(base), label, BranchCoupon), nil
	}

	return resolved(reward.Adjustment(reward.Value).Apply(base), label, BranchCoupon), nil
}

func resolved(final decimal.Decimal, label string, branch DiscountBranch) Resolution {
	return Resolution{Final: final.Round(2), Label: &label, Branch: branch}
}

func membershipPercent(c *model.Customer) decimal.Decimal {
	if c.DiscountPercent.Valid {
		return c.DiscountPercent.Decimal
	}
	if c.Type == model.CustomerTypeFamily {
		return familyMemberPercent
	}
	return memberPercent
}

func membershipLabel(customerType string) string {
	if customerType == model.CustomerTypeFamily {
		return "family"
	}
	return "individual"
}

func formatAdjustment(a model.Adjustment) string {
	if a.Kind == model.AdjustmentPercentage {
		return a.Value.String() + "%"
	}
	return a.Value.StringFixed(2)
}
