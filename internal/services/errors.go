package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Failure classes. Callers wrap concrete errors with one of these so the
// scheduler and the CLI can decide what to report and what to retry.
var (
	ErrExternalTool  = errors.New("external tool error")
	ErrValidation    = errors.New("validation error")
	ErrConfiguration = errors.New("configuration error")
	ErrNotFound      = errors.New("not found")
	ErrTransient     = errors.New("transient failure")
)

// Wrap tags err with class and prefixes it with "component: operation: message".
// Empty parts are skipped; a nil class means ErrTransient.
func Wrap(class error, component, operation, message string, err error) error {
	if class == nil {
		class = ErrTransient
	}
	var where []string
	for _, part := range []string{component, operation, message} {
		if part = strings.TrimSpace(part); part != "" {
			where = append(where, part)
		}
	}
	detail := "service failure"
	if len(where) > 0 {
		detail = strings.Join(where, ": ")
	}
	if err == nil {
		return fmt.Errorf("%w: %s", class, detail)
	}
	return fmt.Errorf("%w: %s: %w", class, detail, err)
}

// Retryable reports whether a failed action is worth proposing again on the
// next scan. Validation, configuration and lookup failures repeat until the
// user changes something.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return true
	}
	for _, permanent := range []error{ErrValidation, ErrConfiguration, ErrNotFound} {
		if errors.Is(err, permanent) {
			return false
		}
	}
	return true
}
