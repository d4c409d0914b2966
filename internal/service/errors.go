package service

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a report or its photo does not exist.
	ErrNotFound = errors.New("not found")
	// ErrPairNotFound is returned when no pending pair has the given id.
	ErrPairNotFound = errors.New("pair not found")
	// ErrAssessmentDisabled is returned by AssessReport when no analyzer is
	// configured.
	ErrAssessmentDisabled = errors.New("photo assessment is disabled")
)

// ValidationError reports a rejected submission field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func invalid(field, msg string) error {
	return &ValidationError{Field: field, Message: msg}
}
