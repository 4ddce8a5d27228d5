package service

import "errors"

// Kind groups sentinel errors by how callers should react to them.
type Kind int

const (
	// KindUnknown covers store and collaborator failures.
	KindUnknown Kind = iota
	KindValidation
	KindAuthorization
	KindBusinessRule
	KindNotFound
)

var (
	// ErrInvalidRequest is returned when request data is invalid or incomplete
	ErrInvalidRequest = errors.New("invalid request")

	// ErrMissingCustomerID is returned when the customer id is empty or a placeholder
	ErrMissingCustomerID = errors.New("customer id is required for this operation")

	// ErrUnauthorized is returned when no session is attached to the request
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden is returned when the session role may not perform the operation
	ErrForbidden = errors.New("forbidden")

	// ErrInvalidCoupon is returned when a coupon is missing, foreign or no longer active
	ErrInvalidCoupon = errors.New("coupon invalid, expired or not found")

	// ErrCouponExpired is returned when a coupon is redeemed after its expiry
	ErrCouponExpired = errors.New("this coupon has expired")

	// ErrAlreadyOwned is returned when a customer buys a bundle they still hold active coupons for
	ErrAlreadyOwned = errors.New("customer already owns this package and it is still active")

	// ErrInsufficientBalance is returned when the wallet cannot cover the charged amount
	ErrInsufficientBalance = errors.New("insufficient wallet balance")

	// ErrCustomerNotFound is returned when the customer cannot be found
	ErrCustomerNotFound = errors.New("customer not found")

	// ErrDiscountNotFound is returned when an instant discount cannot be found
	ErrDiscountNotFound = errors.New("discount not found")

	// ErrCampaignNotFound is returned when a campaign cannot be found
	ErrCampaignNotFound = errors.New("campaign not found")
)

var kinds = []struct {
	err  error
	kind Kind
}{
	{ErrInvalidRequest, KindValidation},
	{ErrMissingCustomerID, KindValidation},
	{ErrUnauthorized, KindAuthorization},
	{ErrForbidden, KindAuthorization},
	{ErrInvalidCoupon, KindBusinessRule},
	{ErrCouponExpired, KindBusinessRule},
	{ErrAlreadyOwned, KindBusinessRule},
	{ErrInsufficientBalance, KindBusinessRule},
	{ErrDiscountNotFound, KindBusinessRule},
	{ErrCustomerNotFound, KindNotFound},
	{ErrCampaignNotFound, KindNotFound},
}

// KindOf classifies err. Anything not wrapping a known sentinel is KindUnknown.
func KindOf(err error) Kind {
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return KindUnknown
}
