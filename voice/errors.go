package voice

import (
	"errors"

	"github.com/helioscale/voicekit/provider"
)

// VoiceError codes. A UI switches on these, never on error strings.
const (
	// CodeConfiguration means no usable provider or credential.
	CodeConfiguration = "configuration"

	// CodeValidation means the request was rejected before any network call.
	CodeValidation = "validation"

	// CodeUpstream means a provider returned a non-success response.
	CodeUpstream = "upstream"

	// CodeNetwork means a transport failure or timeout.
	CodeNetwork = "network"

	// CodeSynthesisFailed is the catch-all for synthesis failures.
	CodeSynthesisFailed = "synthesis_failed"

	// CodeTranscriptionFailed is the catch-all for transcription failures.
	CodeTranscriptionFailed = "transcription_failed"

	// CodeGenerationFailed is the catch-all for text-generation failures.
	CodeGenerationFailed = "generation_failed"
)

// VoiceError is the single error shape leaving the client. Fallback tells
// the caller whether a degraded local path (pre-recorded announcement,
// text-only reply) makes sense: it is set for provider-side trouble and
// clear for errors the caller must fix.
type VoiceError struct {
	// Code is one of the Code constants.
	Code string `json:"code"`

	// Message is a human-readable description.
	Message string `json:"message"`

	// Details carries structured context (provider, status, field).
	Details map[string]any `json:"details,omitempty"`

	// Fallback hints that a local degraded path is appropriate.
	Fallback bool `json:"fallback"`

	err error
}

// Error implements the error interface.
func (e *VoiceError) Error() string {
	return e.Code + ": " + e.Message
}

// Unwrap returns the underlying error for errors.Is/As chains.
func (e *VoiceError) Unwrap() error {
	return e.err
}

// wrapError converts any error from the lower layers into a VoiceError,
// classifying by the shared taxonomy. defaultCode is used when the error is
// none of the taxonomy types.
func wrapError(err error, defaultCode string) *VoiceError {
	var voiceErr *VoiceError
	if errors.As(err, &voiceErr) {
		return voiceErr
	}

	var validation *provider.ValidationError
	if errors.As(err, &validation) {
		details := map[string]any{}
		if validation.Field != "" {
			details["field"] = validation.Field
		}
		return &VoiceError{
			Code:    CodeValidation,
			Message: validation.Error(),
			Details: details,
			err:     err,
		}
	}

	var upstream *provider.UpstreamError
	if errors.As(err, &upstream) {
		details := map[string]any{
			"provider": upstream.Provider,
			"status":   upstream.Status,
		}
		if upstream.Code != "" {
			details["provider_code"] = upstream.Code
		}
		return &VoiceError{
			Code:     CodeUpstream,
			Message:  upstream.Error(),
			Details:  details,
			Fallback: true,
			err:      err,
		}
	}

	var network *provider.NetworkError
	if errors.As(err, &network) {
		return &VoiceError{
			Code:    CodeNetwork,
			Message: network.Error(),
			Details: map[string]any{
				"provider": network.Provider,
				"op":       network.Op,
				"timeout":  network.Timeout,
			},
			Fallback: true,
			err:      err,
		}
	}

	if errors.Is(err, provider.ErrNoProvider) || errors.Is(err, provider.ErrMissingCredential) {
		return &VoiceError{
			Code:    CodeConfiguration,
			Message: err.Error(),
			err:     err,
		}
	}

	return &VoiceError{
		Code:    defaultCode,
		Message: err.Error(),
		err:     err,
	}
}

// validationError builds a VoiceError for input rejected by the client itself.
func validationError(field, message string) *VoiceError {
	return &VoiceError{
		Code:    CodeValidation,
		Message: message,
		Details: map[string]any{"field": field},
	}
}
