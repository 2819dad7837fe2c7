package speech

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/helioscale/voicekit/config"
	"github.com/helioscale/voicekit/logger"
	"github.com/helioscale/voicekit/metrics/prometheus"
	"github.com/helioscale/voicekit/provider"
)

// SynthesisResult carries buffered audio plus metadata about the serving
// adapter. Produced once per request and not mutated after creation.
type SynthesisResult struct {
	// Audio is raw PCM in the wire format.
	Audio []byte

	// SampleRate is the audio sample rate in Hz.
	SampleRate int

	// DurationMs is the playing time of Audio.
	DurationMs int64

	provider.Metrics
}

// TranscriptionResult carries a transcription plus serving metadata.
type TranscriptionResult struct {
	*Transcription
	provider.Metrics
}

// Factory owns the primary/fallback choice for the speech capability.
// Only one vendor is configured today, but the policy stays symmetric with
// the text-generation factory so a second vendor slots in without touching
// call-handling code.
type Factory struct {
	primary  Service
	fallback Service
}

// NewFactory selects speech adapters from the configuration snapshot.
// ElevenLabs is primary; OpenAI, when its credential is present, takes the
// fallback slot. No speech credential at all is a construction error.
func NewFactory(cfg config.Config) (*Factory, error) {
	if cfg.ElevenLabsKey == "" {
		return nil, fmt.Errorf("speech: %w", provider.ErrNoProvider)
	}

	var opts []ElevenLabsOption
	if cfg.BaseURL != "" {
		opts = append(opts, WithElevenLabsBaseURL(cfg.BaseURL+"/elevenlabs"))
	}
	primary, err := NewElevenLabs(cfg.ElevenLabsKey, opts...)
	if err != nil {
		return nil, err
	}

	var fallback Service
	if cfg.OpenAIKey != "" {
		var oaOpts []OpenAISpeechOption
		if cfg.BaseURL != "" {
			oaOpts = append(oaOpts, WithOpenAIBaseURL(cfg.BaseURL+"/openai"))
		}
		fallback, err = NewOpenAISpeech(cfg.OpenAIKey, oaOpts...)
		if err != nil {
			return nil, err
		}
	}
	return NewFactoryWithServices(primary, fallback), nil
}

// NewFactoryWithServices builds a factory over explicit adapters.
// fallback may be nil.
func NewFactoryWithServices(primary, fallback Service) *Factory {
	return &Factory{primary: primary, fallback: fallback}
}

// SynthesizeStream opens a chunk stream from the primary adapter, retrying
// once against the fallback when the primary fails to start the stream with a
// fallback-eligible error. A failure after the stream has started is not
// retried; duplicating already-yielded audio would be worse than reporting an
// incomplete result.
func (f *Factory) SynthesizeStream(
	ctx context.Context, text string, cfg SynthesisConfig,
) (<-chan AudioChunk, *provider.Metrics, error) {
	start := time.Now()
	chunks, err := f.primary.SynthesizeStream(ctx, text, cfg)
	if err == nil {
		return chunks, f.metricsFor(f.primary, start, false), nil
	}
	prometheus.RecordProviderRequest(f.primary.Name(), "synthesize_stream", time.Since(start), err)

	if f.fallback == nil || !provider.FallbackEligible(err) {
		return nil, nil, err
	}

	logger.Fallback("speech", f.primary.Name(), f.fallback.Name(), err)
	prometheus.RecordFallback("speech")

	start = time.Now()
	chunks, err = f.fallback.SynthesizeStream(ctx, text, cfg)
	if err != nil {
		prometheus.RecordProviderRequest(f.fallback.Name(), "synthesize_stream", time.Since(start), err)
		return nil, nil, err
	}
	return chunks, f.metricsFor(f.fallback, start, true), nil
}

// Synthesize produces a buffered result by fully draining the serving
// adapter's reader. Latency covers the serving call including the drain.
func (f *Factory) Synthesize(
	ctx context.Context, text string, cfg SynthesisConfig,
) (*SynthesisResult, error) {
	audio, served, err := f.synthesizeFrom(ctx, f.primary, text, cfg)
	usedFallback := false

	if err != nil && f.fallback != nil && provider.FallbackEligible(err) {
		logger.Fallback("speech", f.primary.Name(), f.fallback.Name(), err)
		prometheus.RecordFallback("speech")
		audio, served, err = f.synthesizeFrom(ctx, f.fallback, text, cfg)
		usedFallback = true
	}
	if err != nil {
		return nil, err
	}

	rate := cfg.rate()
	return &SynthesisResult{
		Audio:      audio,
		SampleRate: rate,
		DurationMs: PCMDuration(audio, rate, Channels, BitDepth).Milliseconds(),
		Metrics: provider.Metrics{
			Provider:     served.service.Name(),
			Model:        served.service.Model(),
			LatencyMs:    served.latency.Milliseconds(),
			UsedFallback: usedFallback,
		},
	}, nil
}

// servedCall pairs the serving adapter with its measured latency.
type servedCall struct {
	service Service
	latency time.Duration
}

func (f *Factory) synthesizeFrom(
	ctx context.Context, svc Service, text string, cfg SynthesisConfig,
) ([]byte, servedCall, error) {
	start := time.Now()
	body, err := svc.Synthesize(ctx, text, cfg)
	if err != nil {
		elapsed := time.Since(start)
		prometheus.RecordProviderRequest(svc.Name(), "synthesize", elapsed, err)
		logger.ProviderError(svc.Name(), "synthesize", err)
		return nil, servedCall{}, err
	}

	audio, err := io.ReadAll(body)
	closeErr := body.Close()
	elapsed := time.Since(start)
	if err == nil {
		err = closeErr
	}
	prometheus.RecordProviderRequest(svc.Name(), "synthesize", elapsed, err)
	if err != nil {
		return nil, servedCall{}, provider.WrapTransport(svc.Name(), "synthesize", err)
	}

	logger.ProviderResponse(svc.Name(), "synthesize", elapsed.Milliseconds(), "bytes", len(audio))
	return audio, servedCall{service: svc, latency: elapsed}, nil
}

// Transcribe converts audio to text via the primary adapter, with the same
// single-retry fallback policy as synthesis.
func (f *Factory) Transcribe(
	ctx context.Context, audio []byte, cfg TranscriptionConfig,
) (*TranscriptionResult, error) {
	result, err := f.transcribeFrom(ctx, f.primary, audio, cfg, false)
	if err == nil {
		return result, nil
	}
	if f.fallback == nil || !provider.FallbackEligible(err) {
		return nil, err
	}

	logger.Fallback("speech", f.primary.Name(), f.fallback.Name(), err)
	prometheus.RecordFallback("speech")
	return f.transcribeFrom(ctx, f.fallback, audio, cfg, true)
}

func (f *Factory) transcribeFrom(
	ctx context.Context, svc Service, audio []byte, cfg TranscriptionConfig, usedFallback bool,
) (*TranscriptionResult, error) {
	start := time.Now()
	transcription, err := svc.Transcribe(ctx, audio, cfg)
	elapsed := time.Since(start)

	prometheus.RecordProviderRequest(svc.Name(), "transcribe", elapsed, err)
	if err != nil {
		logger.ProviderError(svc.Name(), "transcribe", err)
		return nil, err
	}

	logger.ProviderResponse(svc.Name(), "transcribe", elapsed.Milliseconds())
	return &TranscriptionResult{
		Transcription: transcription,
		Metrics: provider.Metrics{
			Provider:     svc.Name(),
			Model:        svc.Model(),
			LatencyMs:    elapsed.Milliseconds(),
			UsedFallback: usedFallback,
		},
	}, nil
}

// CloneVoice creates a custom voice on the primary adapter. Cloning is not
// subject to fallback: a voice created on one vendor does not exist on the
// other, so retrying elsewhere would duplicate the side effect.
func (f *Factory) CloneVoice(
	ctx context.Context, name string, sample []byte, description string,
) (*ClonedVoice, error) {
	start := time.Now()
	cloned, err := f.primary.CloneVoice(ctx, name, sample, description)
	prometheus.RecordProviderRequest(f.primary.Name(), "clone_voice", time.Since(start), err)
	return cloned, err
}

// Voices lists available voices from the primary adapter.
func (f *Factory) Voices(ctx context.Context, language string) ([]Voice, error) {
	start := time.Now()
	voices, err := f.primary.Voices(ctx, language)
	prometheus.RecordProviderRequest(f.primary.Name(), "voices", time.Since(start), err)
	return voices, err
}

// Probe checks the primary adapter's reachability.
func (f *Factory) Probe(ctx context.Context) error {
	return f.primary.Probe(ctx)
}

// PrimaryName returns the primary adapter's identifier.
func (f *Factory) PrimaryName() string {
	return f.primary.Name()
}

// Status reports the configured adapters for operational dashboards.
func (f *Factory) Status() provider.Status {
	s := provider.Status{
		Configured: true,
		Provider:   f.primary.Name(),
		Model:      f.primary.Model(),
	}
	if f.fallback != nil {
		s.Fallback = f.fallback.Name()
	}
	return s
}

func (f *Factory) metricsFor(svc Service, start time.Time, usedFallback bool) *provider.Metrics {
	return &provider.Metrics{
		Provider:     svc.Name(),
		Model:        svc.Model(),
		LatencyMs:    time.Since(start).Milliseconds(),
		UsedFallback: usedFallback,
	}
}
