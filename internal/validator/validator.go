package validator

import (
	"strings"

	"github.com/go-playground/validator/v10"
)

// placeholderIDs are values terminals send when no customer was scanned.
var placeholderIDs = map[string]struct{}{
	"undefined": {},
	"null":      {},
	"nil":       {},
}

// New creates a new validator instance with custom validations registered.
// This ensures consistent validation across the application and tests.
func New() *validator.Validate {
	v := validator.New()

	// "notblank" rejects whitespace-only strings
	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		str, ok := fl.Field().Interface().(string)
		if !ok {
			return true
		}
		return strings.TrimSpace(str) != ""
	})

	// "notplaceholder" rejects stringified empty values such as "undefined" or "null"
	_ = v.RegisterValidation("notplaceholder", func(fl validator.FieldLevel) bool {
		str, ok := fl.Field().Interface().(string)
		if !ok {
			return true
		}
		return !IsPlaceholder(str)
	})

	return v
}

// IsPlaceholder reports whether s is empty or a stringified empty value.
func IsPlaceholder(s string) bool {
	trimmed := strings.ToLower(strings.TrimSpace(s))
	if trimmed == "" {
		return true
	}
	_, ok := placeholderIDs[trimmed]
	return ok
}
