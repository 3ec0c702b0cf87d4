package core

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound reports a missing plan, monthly budget, category or investment.
	ErrNotFound = errors.New("not found")
	// ErrItemNotFound reports a missing ledger entry inside an existing monthly budget.
	ErrItemNotFound = errors.New("item not found")
	// ErrConflict is returned when a save is based on a stale version of the record.
	ErrConflict = errors.New("version conflict")
	// ErrAlreadyExists is returned by stores when a unique key is already taken.
	ErrAlreadyExists = errors.New("already exists")
	// ErrValidation matches every *ValidationError via errors.Is.
	ErrValidation = errors.New("validation failed")

	ErrInvalidAmount = errors.New("invalid amount")
	ErrInvalidDate   = errors.New("invalid date")
	ErrInvalidMonth  = errors.New("invalid month")
	ErrInvalidYear   = errors.New("invalid year")
)

// ValidationError names the offending field of a write request.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}
