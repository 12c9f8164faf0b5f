package domain

import (
	"errors"
	"strings"
)

var (
	// ErrValidation is matched by every ValidationErrors value.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound is returned when an ID does not resolve.
	ErrNotFound = errors.New("not found")
	// ErrNoPending is returned when a pending-batch action needs a staged batch.
	ErrNoPending = errors.New("no pending transactions")
)

// FieldError is a single failed field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationErrors lists every failed field of one value.
type ValidationErrors []FieldError

func (v ValidationErrors) Error() string {
	parts := make([]string, 0, len(v))
	for _, fe := range v {
		parts = append(parts, fe.Field+": "+fe.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Is makes errors.Is(err, ErrValidation) hold.
func (v ValidationErrors) Is(target error) bool {
	return target == ErrValidation
}

// Fields returns the failed fields, or nil when err is not a validation error.
func Fields(err error) []FieldError {
	var ve ValidationErrors
	if errors.As(err, &ve) {
		return ve
	}
	return nil
}
