package speech

import (
	"bytes"
	"context"
	"io"
	"sync/atomic"
	"time"
)

// MockService is a configurable in-memory Service for tests and offline
// development. It records how many calls it has served.
type MockService struct {
	// NameValue and ModelValue are returned by Name and Model.
	NameValue  string
	ModelValue string

	// Audio is the PCM payload returned by Synthesize and, split into
	// ChunkSize pieces, by SynthesizeStream.
	Audio []byte

	// ChunkSize controls streaming chunk granularity. Zero streams the
	// whole payload as a single chunk.
	ChunkSize int

	// Transcript is returned by Transcribe when Err is nil.
	Transcript *Transcription

	// VoiceList is returned by Voices when Err is nil.
	VoiceList []Voice

	// Err, when set, is returned by every operation.
	Err error

	// StreamErr, when set, is delivered as a mid-stream error chunk after
	// the audio chunks instead of a final chunk.
	StreamErr error

	calls atomic.Int64
}

// Name returns the mock's identifier.
func (m *MockService) Name() string {
	if m.NameValue == "" {
		return "mock"
	}
	return m.NameValue
}

// Model returns the mock's model identifier.
func (m *MockService) Model() string {
	if m.ModelValue == "" {
		return "mock-model"
	}
	return m.ModelValue
}

// Synthesize returns a reader over the configured audio, or the
// configured error.
func (m *MockService) Synthesize(_ context.Context, _ string, _ SynthesisConfig) (io.ReadCloser, error) {
	m.calls.Add(1)
	if m.Err != nil {
		return nil, m.Err
	}
	return io.NopCloser(bytes.NewReader(m.Audio)), nil
}

// SynthesizeStream streams the configured audio in ChunkSize pieces.
func (m *MockService) SynthesizeStream(_ context.Context, _ string, _ SynthesisConfig) (<-chan AudioChunk, error) {
	m.calls.Add(1)
	if m.Err != nil {
		return nil, m.Err
	}

	size := m.ChunkSize
	if size <= 0 {
		size = len(m.Audio)
	}

	chunks := make(chan AudioChunk, streamChannelBuffer)
	go func() {
		defer close(chunks)
		index := 0
		for offset := 0; offset < len(m.Audio); offset += size {
			end := offset + size
			if end > len(m.Audio) {
				end = len(m.Audio)
			}
			chunks <- AudioChunk{Data: m.Audio[offset:end], Index: index}
			index++
		}
		if m.StreamErr != nil {
			chunks <- AudioChunk{Index: index, Error: m.StreamErr}
			return
		}
		chunks <- AudioChunk{Index: index, Final: true}
	}()
	return chunks, nil
}

// Transcribe returns the configured transcript or error.
func (m *MockService) Transcribe(_ context.Context, _ []byte, _ TranscriptionConfig) (*Transcription, error) {
	m.calls.Add(1)
	if m.Err != nil {
		return nil, m.Err
	}
	if m.Transcript != nil {
		return m.Transcript, nil
	}
	return &Transcription{Text: "mock transcript", Confidence: 1.0}, nil
}

// CloneVoice returns a synthetic cloned voice or the configured error.
func (m *MockService) CloneVoice(_ context.Context, name string, _ []byte, _ string) (*ClonedVoice, error) {
	m.calls.Add(1)
	if m.Err != nil {
		return nil, m.Err
	}
	return &ClonedVoice{VoiceID: "mock-" + name, Name: name, CreatedAt: time.Now()}, nil
}

// Voices returns the configured voice list or error.
func (m *MockService) Voices(_ context.Context, _ string) ([]Voice, error) {
	m.calls.Add(1)
	if m.Err != nil {
		return nil, m.Err
	}
	return m.VoiceList, nil
}

// Probe returns the configured error.
func (m *MockService) Probe(_ context.Context) error {
	m.calls.Add(1)
	return m.Err
}

// Calls returns the number of operations served.
func (m *MockService) Calls() int64 {
	return m.calls.Load()
}
