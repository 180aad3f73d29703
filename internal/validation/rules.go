// Package validation provides custom validation rules for the application.
package validation

import (
	"strings"

	"github.com/google/uuid"
	validation "github.com/jellydator/validation"
	"github.com/shopspring/decimal"

	apperrors "github.com/allisson/food-ordering-saga/internal/errors"
)

// WrapValidationError wraps validation errors as domain ErrInvalidInput
func WrapValidationError(err error) error {
	if err == nil {
		return nil
	}
	return apperrors.Wrap(apperrors.ErrInvalidInput, err.Error())
}

// NotBlank validates that a string is not empty after trimming whitespace
var NotBlank = validation.NewStringRuleWithError(
	func(s string) bool {
		return strings.TrimSpace(s) != ""
	},
	validation.NewError("validation_not_blank", "cannot be blank"),
)

// DecimalString validates that a string parses as an exact decimal number.
// Monetary values travel as fixed-point strings; float inputs are rejected
// at the boundary instead of being silently rounded.
var DecimalString = validation.NewStringRuleWithError(
	func(s string) bool {
		_, err := decimal.NewFromString(strings.TrimSpace(s))
		return err == nil
	},
	validation.NewError("validation_decimal", "must be a valid decimal number"),
)

// PositiveDecimalString validates that a string parses as a decimal greater than zero
var PositiveDecimalString = validation.NewStringRuleWithError(
	func(s string) bool {
		d, err := decimal.NewFromString(strings.TrimSpace(s))
		return err == nil && d.IsPositive()
	},
	validation.NewError("validation_positive_decimal", "must be a decimal number greater than zero"),
)

// UUIDString validates that a string is a well-formed UUID
var UUIDString = validation.NewStringRuleWithError(
	func(s string) bool {
		_, err := uuid.Parse(strings.TrimSpace(s))
		return err == nil
	},
	validation.NewError("validation_uuid", "must be a valid UUID"),
)
