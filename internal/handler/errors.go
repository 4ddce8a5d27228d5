package handler

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/fairyhunter13/loyalty-pos/internal/service"
)

const (
	CodeMissingCustomerID   = "MISSING_CUSTOMER_ID"
	CodeInvalidRequest      = "INVALID_REQUEST"
	CodeInvalidCoupon       = "INVALID_COUPON"
	CodeCouponExpired       = "COUPON_EXPIRED"
	CodeAlreadyOwned        = "ALREADY_OWNED"
	CodeInsufficientBalance = "INSUFFICIENT_BALANCE"
	CodeDiscountNotFound    = "DISCOUNT_NOT_FOUND"
	CodeUnauthorized        = "UNAUTHORIZED"
	CodeForbidden           = "FORBIDDEN"
	CodeCustomerNotFound    = "CUSTOMER_NOT_FOUND"
	CodeCampaignNotFound    = "CAMPAIGN_NOT_FOUND"
	CodeInternal            = "INTERNAL_ERROR"
)

// errorStatuses maps service sentinels to HTTP status and machine code.
var errorStatuses = []struct {
	err    error
	status int
	code   string
}{
	{service.ErrMissingCustomerID, fiber.StatusBadRequest, CodeMissingCustomerID},
	{service.ErrInvalidRequest, fiber.StatusBadRequest, CodeInvalidRequest},
	{service.ErrInvalidCoupon, fiber.StatusBadRequest, CodeInvalidCoupon},
	{service.ErrCouponExpired, fiber.StatusBadRequest, CodeCouponExpired},
	{service.ErrAlreadyOwned, fiber.StatusBadRequest, CodeAlreadyOwned},
	{service.ErrInsufficientBalance, fiber.StatusBadRequest, CodeInsufficientBalance},
	{service.ErrDiscountNotFound, fiber.StatusBadRequest, CodeDiscountNotFound},
	{service.ErrUnauthorized, fiber.StatusUnauthorized, CodeUnauthorized},
	{service.ErrForbidden, fiber.StatusForbidden, CodeForbidden},
	{service.ErrCustomerNotFound, fiber.StatusNotFound, CodeCustomerNotFound},
	{service.ErrCampaignNotFound, fiber.StatusNotFound, CodeCampaignNotFound},
}

// writeError answers with {"error","code"}. Unknown errors become a generic 500
// and are logged with the request id.
func writeError(c *fiber.Ctx, err error, op string) error {
	for _, e := range errorStatuses {
		if errors.Is(err, e.err) {
			return c.Status(e.status).JSON(fiber.Map{"error": err.Error(), "code": e.code})
		}
	}

	log.Error().
		Err(err).
		Str("op", op).
		Str("request_id", c.GetRespHeader(fiber.HeaderXRequestID)).
		Msg("request failed")
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error": "internal server error",
		"code":  CodeInternal,
	})
}

func badRequest(c *fiber.Ctx, code, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": message, "code": code})
}

// validationCode picks the machine code for a failed struct validation.
func validationCode(err error) string {
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		for _, fe := range ve {
			if fe.Field() == "CustomerID" {
				return CodeMissingCustomerID
			}
		}
	}
	return CodeInvalidRequest
}

// formatValidationError converts validator errors to client-facing messages.
func formatValidationError(err error) string {
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		for _, fe := range ve {
			field := fe.Field()
			tag := fe.Tag()

			switch field {
			case "CustomerID":
				if tag == "max" {
					return "invalid request: customer_id exceeds maximum length of 64"
				}
				return service.ErrMissingCustomerID.Error()
			case "Amount":
				return "invalid request: amount is required"
			case "CouponID":
				if tag == "excluded_with" {
					return "invalid request: discount_id and coupon_id cannot be combined"
				}
				return "invalid request: coupon_id must be a uuid"
			case "DiscountID", "CampaignID":
				return "invalid request: " + jsonName(field) + " must be a uuid"
			case "Name":
				if tag == "max" {
					return "invalid request: name exceeds maximum length of 255"
				}
				return "invalid request: name is required"
			case "Type":
				if strings.HasSuffix(fe.Namespace(), "RewardConfig.Type") {
					return "invalid request: reward_config.type must be one of PERCENTAGE, FIXED"
				}
				return "invalid request: type must be one of AUTO_SPEND, BUNDLE, MANUAL"
			default:
				if tag == "required" {
					return "invalid request: " + jsonName(field) + " is required"
				}
				if tag == "oneof" {
					return "invalid request: " + jsonName(field) + " must be one of " + fe.Param()
				}
				return "invalid request: " + jsonName(field) + " is invalid"
			}
		}
	}
	return "invalid request"
}

var jsonNames = map[string]string{
	"DiscountID":         "discount_id",
	"CampaignID":         "campaign_id",
	"CardID":             "card_id",
	"ManualDiscountType": "manual_discount_type",
	"PaymentMethod":      "payment_method",
	"NameEN":             "name_en",
	"BundleType":         "bundle_type",
	"CustomerType":       "customer_type",
	"UsageLimit":         "usage_limit",
	"ValidityDays":       "validity_days",
}

func jsonName(field string) string {
	if name, ok := jsonNames[field]; ok {
		return name
	}
	return field
}
