package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownJobType is returned when a job's type is not one of the known kinds
	ErrUnknownJobType = errors.New("unknown job type")

	// ErrInvalidPayload is returned when job data is malformed or missing required fields
	ErrInvalidPayload = errors.New("invalid job payload")
)

// PayloadError names the field that failed validation
type PayloadError struct {
	Kind  JobKind
	Field string
}

func (e *PayloadError) Error() string {
	return fmt.Sprintf("%s: %s is required", e.Kind, e.Field)
}

func (e *PayloadError) Unwrap() error {
	return ErrInvalidPayload
}

func missing(kind JobKind, field string) error {
	return &PayloadError{Kind: kind, Field: field}
}
