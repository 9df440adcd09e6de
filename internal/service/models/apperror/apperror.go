package apperror

import (
	"errors"
	"fmt"
)

// Code identifies a class of domain failure. Codes are stable and safe to
// match on at the use-case boundary.
type Code string

const (
	CodeValidation        Code = "validation"
	CodeInvalidTransition Code = "invalid_transition"
	CodeCurrencyMismatch  Code = "currency_mismatch"
	CodeDivideByZero      Code = "divide_by_zero"
	CodeNotFound          Code = "not_found"
	CodeConflict          Code = "conflict"
	CodeCouponInvalid     Code = "coupon_invalid"
	CodeUsageLimitReached Code = "coupon_usage_limit_reached"
	CodeUserLimitReached  Code = "coupon_user_limit_reached"
)

// Error is a domain error carrying a stable code and the offending field.
type Error struct {
	Code    Code
	Field   string
	Message string
}

func (e *Error) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}

	return fmt.Sprintf("%s: %s: %s", e.Code, e.Field, e.Message)
}

// Is makes errors with the same code match via errors.Is.
func (e *Error) Is(target error) bool {
	var other *Error
	if !errors.As(target, &other) {
		return false
	}

	return e.Code == other.Code
}

// New creates a domain error.
func New(code Code, field, message string) *Error {
	return &Error{Code: code, Field: field, Message: message}
}

// Validation creates a validation error for a field.
func Validation(field, message string) *Error {
	return New(CodeValidation, field, message)
}

// InvalidTransition creates an invalid state transition error.
func InvalidTransition(field, message string) *Error {
	return New(CodeInvalidTransition, field, message)
}

// NotFound creates a not-found error for a referenced entity.
func NotFound(entity, message string) *Error {
	return New(CodeNotFound, entity, message)
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code Code) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}

	return e.Code == code
}

// ErrConflict is returned when a concurrent modification is detected at save
// time. The caller must re-fetch the aggregate and retry the whole use case.
var ErrConflict = New(CodeConflict, "version", "aggregate was modified concurrently")
