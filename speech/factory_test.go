package speech

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helioscale/voicekit/config"
	"github.com/helioscale/voicekit/provider"
)

func TestNewFactory_NoCredential(t *testing.T) {
	_, err := NewFactory(config.Config{})
	require.ErrorIs(t, err, provider.ErrNoProvider)
}

func TestNewFactory_ElevenLabsPrimary(t *testing.T) {
	factory, err := NewFactory(config.Config{ElevenLabsKey: "k"})
	require.NoError(t, err)

	status := factory.Status()
	assert.True(t, status.Configured)
	assert.Equal(t, "elevenlabs", status.Provider)
	assert.Empty(t, status.Fallback)
}

func TestNewFactory_OpenAIFallback(t *testing.T) {
	factory, err := NewFactory(config.Config{ElevenLabsKey: "k", OpenAIKey: "o"})
	require.NoError(t, err)

	status := factory.Status()
	assert.Equal(t, "elevenlabs", status.Provider)
	assert.Equal(t, "openai", status.Fallback)
}

func TestSynthesize_PrimarySucceeds(t *testing.T) {
	audio := bytes.Repeat([]byte{0x01, 0x02}, 4410)
	primary := &MockService{NameValue: "elevenlabs", Audio: audio}
	fallback := &MockService{NameValue: "backup"}
	factory := NewFactoryWithServices(primary, fallback)

	result, err := factory.Synthesize(context.Background(), "hello", SynthesisConfig{})
	require.NoError(t, err)

	assert.Equal(t, audio, result.Audio)
	assert.Equal(t, DefaultSampleRate, result.SampleRate)
	assert.EqualValues(t, 200, result.DurationMs, "8820 bytes of mono s16le at 22050 Hz is 200ms")
	assert.Equal(t, "elevenlabs", result.Provider)
	assert.False(t, result.UsedFallback)
	assert.EqualValues(t, 0, fallback.Calls(), "fallback must not be called when primary succeeds")
}

func TestSynthesize_FallbackOnUpstreamError(t *testing.T) {
	primary := &MockService{
		NameValue: "elevenlabs",
		Err:       &provider.UpstreamError{Provider: "elevenlabs", Status: 500, Message: "overloaded"},
	}
	fallback := &MockService{NameValue: "backup", Audio: []byte{0x0a, 0x0b}}
	factory := NewFactoryWithServices(primary, fallback)

	result, err := factory.Synthesize(context.Background(), "hello", SynthesisConfig{})
	require.NoError(t, err)

	assert.Equal(t, []byte{0x0a, 0x0b}, result.Audio)
	assert.Equal(t, "backup", result.Provider)
	assert.True(t, result.UsedFallback)
	assert.EqualValues(t, 1, primary.Calls())
	assert.EqualValues(t, 1, fallback.Calls())
}

func TestSynthesize_FallbackFailurePropagates(t *testing.T) {
	fallbackErr := &provider.UpstreamError{Provider: "backup", Status: 503, Message: "down"}
	primary := &MockService{
		NameValue: "elevenlabs",
		Err:       &provider.NetworkError{Provider: "elevenlabs", Op: "synthesize", Err: errors.New("refused")},
	}
	fallback := &MockService{NameValue: "backup", Err: fallbackErr}
	factory := NewFactoryWithServices(primary, fallback)

	_, err := factory.Synthesize(context.Background(), "hello", SynthesisConfig{})

	var upstream *provider.UpstreamError
	require.ErrorAs(t, err, &upstream)
	assert.Equal(t, "backup", upstream.Provider, "fallback error must propagate unmodified")
	assert.EqualValues(t, 1, fallback.Calls(), "no double fallback")
}

func TestSynthesize_ValidationErrorNotEligible(t *testing.T) {
	primary := &MockService{NameValue: "elevenlabs", Err: ErrEmptyText}
	fallback := &MockService{NameValue: "backup"}
	factory := NewFactoryWithServices(primary, fallback)

	_, err := factory.Synthesize(context.Background(), "", SynthesisConfig{})

	require.ErrorIs(t, err, ErrEmptyText)
	assert.EqualValues(t, 0, fallback.Calls(), "validation failures must not trigger fallback")
}

func TestSynthesizeStream_FallbackOnStartFailure(t *testing.T) {
	primary := &MockService{
		NameValue: "elevenlabs",
		Err:       &provider.UpstreamError{Provider: "elevenlabs", Status: 502, Message: "bad gateway"},
	}
	fallback := &MockService{NameValue: "backup", Audio: []byte{1, 2, 3, 4}, ChunkSize: 2}
	factory := NewFactoryWithServices(primary, fallback)

	chunks, metrics, err := factory.SynthesizeStream(context.Background(), "hello", SynthesisConfig{})
	require.NoError(t, err)
	require.NotNil(t, metrics)

	assert.Equal(t, "backup", metrics.Provider)
	assert.True(t, metrics.UsedFallback)

	audio, err := Collect(chunks)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3, 4}, audio)
}

func TestSynthesizeStream_NoRetryAfterStart(t *testing.T) {
	streamErr := &provider.UpstreamError{Provider: "elevenlabs", Status: 500, Message: "mid-stream"}
	primary := &MockService{NameValue: "elevenlabs", Audio: []byte{1, 2}, StreamErr: streamErr}
	fallback := &MockService{NameValue: "backup", Audio: []byte{9, 9}}
	factory := NewFactoryWithServices(primary, fallback)

	chunks, _, err := factory.SynthesizeStream(context.Background(), "hello", SynthesisConfig{})
	require.NoError(t, err)

	partial, err := Collect(chunks)
	require.ErrorIs(t, err, error(streamErr))
	assert.Equal(t, []byte{1, 2}, partial, "bytes yielded before the failure are kept")
	assert.EqualValues(t, 0, fallback.Calls(), "a started stream is never retried")
}

func TestTranscribe_Fallback(t *testing.T) {
	primary := &MockService{
		NameValue: "elevenlabs",
		Err:       &provider.NetworkError{Provider: "elevenlabs", Op: "transcribe", Timeout: true, Err: errors.New("timeout")},
	}
	fallback := &MockService{
		NameValue:  "backup",
		Transcript: &Transcription{Text: "rescued", Confidence: 0.9},
	}
	factory := NewFactoryWithServices(primary, fallback)

	result, err := factory.Transcribe(context.Background(), []byte{1, 2}, TranscriptionConfig{})
	require.NoError(t, err)

	assert.Equal(t, "rescued", result.Text)
	assert.Equal(t, "backup", result.Provider)
	assert.True(t, result.UsedFallback)
}

func TestCloneVoice_NeverFallsBack(t *testing.T) {
	primaryErr := &provider.UpstreamError{Provider: "elevenlabs", Status: 500, Message: "overloaded"}
	primary := &MockService{NameValue: "elevenlabs", Err: primaryErr}
	fallback := &MockService{NameValue: "backup"}
	factory := NewFactoryWithServices(primary, fallback)

	_, err := factory.CloneVoice(context.Background(), "agent", make([]byte, 300000), "")

	require.ErrorIs(t, err, error(primaryErr))
	assert.EqualValues(t, 0, fallback.Calls(), "cloning must not duplicate the side effect elsewhere")
}
