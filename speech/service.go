// Package speech implements the speech capability: text-to-speech synthesis
// (buffered and streamed), speech-to-text transcription, voice cloning and
// voice listing, behind a provider-agnostic Service interface.
//
// All synthesized audio leaves this package in one wire format — raw
// headerless PCM, 16-bit signed little-endian, mono — so downstream consumers
// never branch on provider identity.
package speech

import (
	"context"
	"io"
	"time"
)

// Wire format constants.
const (
	// DefaultSampleRate is the output sample rate in Hz unless a request
	// overrides it.
	DefaultSampleRate = 22050

	// BitDepth is the bits per sample of the wire format.
	BitDepth = 16

	// Channels is the channel count of the wire format.
	Channels = 1

	// MIMEType is the content type of the wire format.
	MIMEType = "audio/pcm"

	// MinCloneSampleDuration is the shortest audio sample accepted for
	// voice cloning.
	MinCloneSampleDuration = 5 * time.Second
)

// Service is the contract every speech adapter satisfies. Each concrete
// adapter encapsulates one vendor's request/response shape.
type Service interface {
	// Name returns the provider identifier (for logging and metrics).
	Name() string

	// Model returns the synthesis model identifier this adapter targets.
	Model() string

	// Synthesize converts text to audio, returning a reader over the PCM
	// stream. The caller is responsible for closing the reader.
	Synthesize(ctx context.Context, text string, config SynthesisConfig) (io.ReadCloser, error)

	// SynthesizeStream converts text to audio with streaming output.
	// The returned channel receives chunks as they are generated and is
	// closed when synthesis completes or fails; a mid-stream failure is
	// delivered as a chunk with Error set.
	SynthesizeStream(ctx context.Context, text string, config SynthesisConfig) (<-chan AudioChunk, error)

	// Transcribe converts audio to text with confidence and word timings.
	Transcribe(ctx context.Context, audio []byte, config TranscriptionConfig) (*Transcription, error)

	// CloneVoice creates a new voice from an audio sample. Samples shorter
	// than MinCloneSampleDuration are rejected before any network call.
	CloneVoice(ctx context.Context, name string, sample []byte, description string) (*ClonedVoice, error)

	// Voices returns the available voices, optionally filtered by language.
	Voices(ctx context.Context, language string) ([]Voice, error)

	// Probe checks reachability with a minimal request.
	Probe(ctx context.Context) error
}

// SynthesisConfig configures text-to-speech synthesis.
type SynthesisConfig struct {
	// VoiceID selects the voice; empty uses the adapter's default.
	VoiceID string

	// Emotion is a validated emotion tag coloring the delivery.
	// Callers resolve and validate it; adapters map it to vendor knobs.
	Emotion string

	// Language is an ISO language code (default "en").
	Language string

	// Speed is the speech rate multiplier (default 1.0).
	Speed float64

	// SampleRate overrides the output sample rate in Hz.
	SampleRate int
}

// rate returns the effective output sample rate.
func (c SynthesisConfig) rate() int {
	if c.SampleRate > 0 {
		return c.SampleRate
	}
	return DefaultSampleRate
}

// TranscriptionConfig configures speech-to-text transcription.
type TranscriptionConfig struct {
	// Language is a hint for the transcription language. Optional.
	Language string

	// Punctuate requests punctuation in the transcript. Optional.
	Punctuate bool

	// SampleRate is the input sample rate in Hz; defaults to the wire rate.
	SampleRate int
}

// AudioChunk represents a chunk of synthesized audio data.
type AudioChunk struct {
	// Data is the raw audio bytes.
	Data []byte

	// Index is the chunk sequence number (0-indexed).
	Index int

	// Final indicates this is the last chunk.
	Final bool

	// Error is set if an error occurred during synthesis.
	Error error
}

// Transcription is the structured result of a speech-to-text call.
type Transcription struct {
	// Text is the transcript.
	Text string `json:"text"`

	// Confidence is the overall confidence in [0.0, 1.0].
	Confidence float64 `json:"confidence"`

	// Words carries optional word-level timing, in utterance order.
	Words []Word `json:"words,omitempty"`
}

// Word is one word of a transcript with timing.
type Word struct {
	Word       string  `json:"word"`
	Start      float64 `json:"start"`
	End        float64 `json:"end"`
	Confidence float64 `json:"confidence"`
}

// Voice describes a voice available from a provider.
type Voice struct {
	// ID is the provider-specific voice identifier.
	ID string `json:"id"`

	// Name is a human-readable voice name.
	Name string `json:"name"`

	// Language is the primary language code.
	Language string `json:"language"`

	// Description provides additional voice characteristics.
	Description string `json:"description,omitempty"`

	// IsCloned marks custom cloned voices.
	IsCloned bool `json:"is_cloned,omitempty"`
}

// ClonedVoice is the result of a voice-cloning call.
type ClonedVoice struct {
	VoiceID   string    `json:"voice_id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}
