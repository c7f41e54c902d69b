package model

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a mutation or lookup targets an id that
	// does not exist for the current user.
	ErrNotFound = errors.New("not found")

	// ErrAuthRequired is returned when the gateway is used without a user session.
	ErrAuthRequired = errors.New("authentication required")

	// ErrUpstream marks failures of a remote collaborator (network, 5xx).
	ErrUpstream = errors.New("upstream unavailable")

	// ErrPartialAggregation is returned when one of the joined relations
	// could not be loaded; the whole batch is discarded.
	ErrPartialAggregation = errors.New("partial aggregation failure")
)

// ValidationError reports input that was rejected before reaching the gateway.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// IsValidationError reports whether err (or any error in its chain) is a
// ValidationError.
func IsValidationError(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}
