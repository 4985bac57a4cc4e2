package apperr

import (
	"errors"
	"fmt"
)

// Error kinds. Services return errors wrapping one of these sentinels;
// the API layer maps them to HTTP statuses with errors.Is.
var (
	ErrValidation        = errors.New("validation failed")
	ErrNotFound          = errors.New("not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrUnauthorized      = errors.New("unauthorized")
)

type kindError struct {
	kind error
	msg  string
}

func (e *kindError) Error() string { return e.msg }

func (e *kindError) Unwrap() error { return e.kind }

// Validationf returns a validation error with a caller-facing message.
func Validationf(format string, args ...interface{}) error {
	return &kindError{kind: ErrValidation, msg: fmt.Sprintf(format, args...)}
}

// NotFoundf returns a not-found error for an unresolvable product or order.
func NotFoundf(format string, args ...interface{}) error {
	return &kindError{kind: ErrNotFound, msg: fmt.Sprintf(format, args...)}
}

// InsufficientStockf returns a failed-reservation error naming the product.
func InsufficientStockf(format string, args ...interface{}) error {
	return &kindError{kind: ErrInsufficientStock, msg: fmt.Sprintf(format, args...)}
}

// InvalidTransitionf returns an illegal status change error.
func InvalidTransitionf(format string, args ...interface{}) error {
	return &kindError{kind: ErrInvalidTransition, msg: fmt.Sprintf(format, args...)}
}

// Unauthorizedf returns an ownership or credential mismatch error.
func Unauthorizedf(format string, args ...interface{}) error {
	return &kindError{kind: ErrUnauthorized, msg: fmt.Sprintf(format, args...)}
}
