package shared

import (
	"errors"
	"fmt"
)

// Domain error taxonomy. Orchestrators wrap these with context before
// re-raising so callers see the offending product or document.
var (
	// ErrNotFound indicates a referenced record is missing.
	ErrNotFound = errors.New("not found")
	// ErrValidation indicates malformed or missing input.
	ErrValidation = errors.New("validation failed")
	// ErrStatusConflict indicates an operation against the wrong lifecycle state.
	ErrStatusConflict = errors.New("status conflict")
	// ErrInsufficientStock indicates a decrease exceeding available quantity.
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrPaymentExceedsTotal indicates a non-cash overpayment.
	ErrPaymentExceedsTotal = errors.New("payment exceeds total")
	// ErrDuplicateEntry indicates a duplicate document number or source link.
	ErrDuplicateEntry = errors.New("duplicate entry")
	// ErrNoItems indicates a terminal event attempted with zero line items.
	ErrNoItems = errors.New("no line items")
)

// Validationf wraps ErrValidation with a formatted message.
func Validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// NotFoundf wraps ErrNotFound with a formatted message.
func NotFoundf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}

// StatusConflictf wraps ErrStatusConflict with a formatted message.
func StatusConflictf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrStatusConflict, fmt.Sprintf(format, args...))
}
