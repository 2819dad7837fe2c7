package speech

import "errors"

// Common speech errors.
var (
	// ErrEmptyText is returned when attempting to synthesize empty text.
	ErrEmptyText = errors.New("text cannot be empty")

	// ErrEmptyAudio is returned when attempting to transcribe empty audio.
	ErrEmptyAudio = errors.New("audio cannot be empty")

	// ErrInvalidVoice is returned when the requested voice is not available.
	ErrInvalidVoice = errors.New("invalid or unsupported voice")
)
