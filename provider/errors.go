// Package provider defines the error taxonomy and call metadata shared by the
// text-generation and speech adapter layers. The orchestrators decide fallback
// eligibility from these types, so adapters must not wrap them beyond %w.
package provider

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// Common configuration errors.
var (
	// ErrNoProvider is returned when no provider has a usable credential.
	ErrNoProvider = errors.New("no provider configured")

	// ErrMissingCredential is returned when an adapter is constructed without an API key.
	ErrMissingCredential = errors.New("missing API credential")
)

// ValidationError reports malformed input rejected before any network call.
type ValidationError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Field != "" {
		return "validation failed: " + e.Field + ": " + e.Message
	}
	return "validation failed: " + e.Message
}

// NewValidationError creates a ValidationError for the given field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// UpstreamError reports a non-success response from a provider API.
type UpstreamError struct {
	// Provider is the adapter that returned the error.
	Provider string

	// Status is the HTTP status code of the response.
	Status int

	// Code is the provider-specific error code, if any.
	Code string

	// Message is the provider's error message.
	Message string
}

// Error implements the error interface.
func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s error (HTTP %d): %s", e.Provider, e.Status, e.Message)
}

// NetworkError reports a transport-level failure, including timeouts.
type NetworkError struct {
	// Provider is the adapter whose call failed.
	Provider string

	// Op describes the operation that failed (e.g. "synthesize", "generate").
	Op string

	// Timeout is true when the failure was a deadline or timeout.
	Timeout bool

	// Err is the underlying transport error.
	Err error
}

// Error implements the error interface.
func (e *NetworkError) Error() string {
	if e.Timeout {
		return e.Provider + ": " + e.Op + " timed out: " + e.Err.Error()
	}
	return e.Provider + ": " + e.Op + " failed: " + e.Err.Error()
}

// Unwrap returns the underlying error.
func (e *NetworkError) Unwrap() error {
	return e.Err
}

// WrapTransport converts a transport-level failure from net/http into a
// NetworkError, classifying context deadlines and net.Error timeouts.
func WrapTransport(providerName, op string, err error) *NetworkError {
	timeout := errors.Is(err, context.DeadlineExceeded)
	var netErr net.Error
	if !timeout && errors.As(err, &netErr) {
		timeout = netErr.Timeout()
	}
	return &NetworkError{Provider: providerName, Op: op, Timeout: timeout, Err: err}
}

// FallbackEligible reports whether a primary-call failure should trigger the
// fallback adapter. Only upstream and transport failures qualify; validation
// and configuration errors would fail identically on any provider.
func FallbackEligible(err error) bool {
	var upstream *UpstreamError
	if errors.As(err, &upstream) {
		return true
	}
	var network *NetworkError
	return errors.As(err, &network)
}
