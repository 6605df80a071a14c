package shared

import (
	"fmt"
	"time"
)

// ValidationError is returned by value validators. It is meant to be shown to
// the person filling in a form, not logged as a system fault.
type ValidationError struct {
	Field   string
	Message string
	Value   any
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// NewValidationError creates a validation error for a single field
func NewValidationError(field, message string, value any) *ValidationError {
	return &ValidationError{Field: field, Message: message, Value: value}
}

// civilDay is the calendar day t falls on in its own location, so values
// from different zones can be compared as dates. DATE columns come back at
// UTC midnight and must not move to the day before.
func civilDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ValidateNotFuture fails if d falls on a calendar day strictly after today.
// Each value is read as a date in its own location.
func ValidateNotFuture(d, today time.Time) error {
	if civilDay(d).After(civilDay(today)) {
		return NewValidationError("", "Date cannot be in the future.", d)
	}
	return nil
}

// ValidatePositiveDuration fails unless d is greater than zero.
func ValidatePositiveDuration(d time.Duration) error {
	if d <= 0 {
		return NewValidationError("", "Duration must be greater than zero.", d)
	}
	return nil
}

// ValidateDepositDate fails if a deposit is recorded before the sale it belongs to.
func ValidateDepositDate(saleDate time.Time, depositDate *time.Time) error {
	if depositDate == nil {
		return nil
	}
	if civilDay(*depositDate).Before(civilDay(saleDate)) {
		return NewValidationError("deposit_date", "Deposit date cannot be earlier than sale date.", *depositDate)
	}
	return nil
}
