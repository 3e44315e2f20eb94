package domain

import (
	"context"
	"errors"
	"fmt"
)

// ---------------------------------------------------------------------------
// Error taxonomy
// ---------------------------------------------------------------------------

// ErrNotFound is returned by storage lookups that match nothing.
var ErrNotFound = errors.New("not found")

// ConfigError marks a missing or invalid required setting. Fatal at startup:
// the process refuses to run in a degraded state.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Reason)
}

// NewConfigError builds a ConfigError for the given field.
func NewConfigError(field, reason string) error {
	return &ConfigError{Field: field, Reason: reason}
}

// GenerationError wraps a response-generator failure. The plan that caused
// it ends with zero segments and is never partially delivered.
type GenerationError struct {
	Cause error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generation failed: %v", e.Cause)
}

func (e *GenerationError) Unwrap() error { return e.Cause }

// IsCancellation reports whether err is expected cancellation control flow
// rather than a real failure. Cancellation must never be logged as an error.
func IsCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
