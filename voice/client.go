// Package voice is the unified client façade over the voice core: emotion
// resolution, text generation, speech synthesis and transcription, voice
// management, and health. It is the only package product code talks to;
// every error leaving it is a *VoiceError.
package voice

import (
	"context"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/helioscale/voicekit/config"
	"github.com/helioscale/voicekit/emotion"
	"github.com/helioscale/voicekit/health"
	"github.com/helioscale/voicekit/llm"
	"github.com/helioscale/voicekit/logger"
	"github.com/helioscale/voicekit/provider"
	"github.com/helioscale/voicekit/speech"
	"github.com/helioscale/voicekit/telemetry"
	"github.com/helioscale/voicekit/voicestore"
)

// Client is the unified voice client. Construct it once with New and share
// it; all methods are safe for concurrent use.
type Client struct {
	cfg      config.Config
	speech   *speech.Factory
	text     *llm.Factory
	resolver *emotion.Resolver
	store    voicestore.Store
	monitor  *health.Monitor
	tracer   trace.Tracer
}

// Option configures a Client.
type Option func(*Client)

// WithSpeechFactory injects a speech factory, bypassing construction from
// configuration.
func WithSpeechFactory(f *speech.Factory) Option {
	return func(c *Client) {
		c.speech = f
	}
}

// WithTextFactory injects a text-generation factory.
func WithTextFactory(f *llm.Factory) Option {
	return func(c *Client) {
		c.text = f
	}
}

// WithStore injects a voice catalog store.
func WithStore(s voicestore.Store) Option {
	return func(c *Client) {
		c.store = s
	}
}

// WithResolver injects an emotion resolver.
func WithResolver(r *emotion.Resolver) Option {
	return func(c *Client) {
		c.resolver = r
	}
}

// WithTracerProvider sets the TracerProvider for client spans. The global
// provider is used otherwise.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *Client) {
		c.tracer = telemetry.Tracer(tp)
	}
}

// New builds a client from a configuration snapshot. Speech is mandatory;
// text generation is attached only when a text credential is present.
func New(cfg config.Config, opts ...Option) (*Client, error) {
	c := &Client{cfg: cfg}
	for _, opt := range opts {
		opt(c)
	}

	if c.speech == nil {
		factory, err := speech.NewFactory(cfg)
		if err != nil {
			return nil, wrapError(err, CodeConfiguration)
		}
		c.speech = factory
	}

	if c.text == nil && cfg.HasTextProvider() {
		factory, err := llm.NewFactory(cfg)
		if err != nil {
			return nil, wrapError(err, CodeConfiguration)
		}
		c.text = factory
	}

	if c.resolver == nil {
		presets := emotion.Presets(nil)
		if cfg.PresetsFile != "" {
			loaded, err := emotion.LoadPresetsFile(cfg.PresetsFile)
			if err != nil {
				return nil, wrapError(err, CodeConfiguration)
			}
			presets = loaded
		}
		c.resolver = emotion.NewResolver(presets)
	}

	if c.store == nil {
		if cfg.RedisAddr != "" {
			c.store = voicestore.NewRedisStore(
				redis.NewClient(&redis.Options{Addr: cfg.RedisAddr}),
			)
		} else {
			c.store = voicestore.NewMemoryStore()
		}
	}

	if c.tracer == nil {
		c.tracer = telemetry.Tracer(nil)
	}

	c.monitor = health.NewMonitor()
	c.monitor.Register("tts", c.speech.PrimaryName(), c.speech)
	c.monitor.Register("stt", c.speech.PrimaryName(), c.speech)
	if c.text != nil {
		c.monitor.Register("text-generation", c.text.Status().Provider, c.text)
	} else {
		c.monitor.Register("text-generation", "", nil)
	}

	return c, nil
}

// SynthesizeRequest describes one synthesis call. Emotion resolution order:
// a valid Emotion override wins, then the AgentType/Scenario preset, then
// keyword detection over Text, then neutral.
type SynthesizeRequest struct {
	// Text is the utterance to synthesize. Required.
	Text string

	// Emotion is an optional explicit emotion tag.
	Emotion string

	// AgentType and Scenario select a preset emotion.
	AgentType string
	Scenario  string

	// VoiceID overrides the configured default voice.
	VoiceID string

	// Language is an ISO language code.
	Language string

	// Speed is the speech rate multiplier.
	Speed float64

	// SampleRate overrides the configured output sample rate.
	SampleRate int
}

// Metadata describes how a response was produced. It travels alongside the
// audio, never inside it.
type Metadata struct {
	// RequestID uniquely identifies this call for log correlation.
	RequestID string `json:"request_id"`

	// Emotion is the resolved emotion tag used for delivery.
	Emotion string `json:"emotion"`

	// VoiceID is the voice that spoke.
	VoiceID string `json:"voice_id"`

	// Provider and Model identify the serving adapter.
	Provider string `json:"provider"`
	Model    string `json:"model"`

	// LatencyMs is the serving call latency.
	LatencyMs int64 `json:"latency_ms"`

	// SampleRate is the audio sample rate in Hz.
	SampleRate int `json:"sample_rate"`

	// UsedFallback is true when the fallback adapter served the call.
	UsedFallback bool `json:"used_fallback"`
}

// SynthesisResponse is a fully buffered synthesis result.
type SynthesisResponse struct {
	// Audio is raw PCM s16le mono.
	Audio []byte `json:"-"`

	// MIMEType is the content type of Audio.
	MIMEType string `json:"mime_type"`

	// DurationMs is the playing time of Audio.
	DurationMs int64 `json:"duration_ms"`

	Metadata Metadata `json:"metadata"`
}

// Synthesize converts text to buffered speech audio.
func (c *Client) Synthesize(ctx context.Context, req SynthesizeRequest) (*SynthesisResponse, error) {
	if req.Text == "" {
		return nil, validationError("text", "text cannot be empty")
	}

	requestID := uuid.NewString()
	resolved := c.resolveEmotion(req)

	ctx, span := c.tracer.Start(ctx, "voice.synthesize", trace.WithAttributes(
		attribute.String("voice.request_id", requestID),
		attribute.String("voice.emotion", resolved),
	))
	defer span.End()

	cfg := c.synthesisConfig(req, resolved)

	result, err := c.speech.Synthesize(ctx, req.Text, cfg)
	if err != nil {
		span.RecordError(err)
		return nil, wrapError(err, CodeSynthesisFailed)
	}

	logger.Info("synthesis complete",
		"request_id", requestID,
		"provider", result.Provider,
		"emotion", resolved,
		"bytes", len(result.Audio),
		"latency_ms", result.LatencyMs,
	)

	return &SynthesisResponse{
		Audio:      result.Audio,
		MIMEType:   speech.MIMEType,
		DurationMs: result.DurationMs,
		Metadata:   c.metadataFor(requestID, resolved, cfg, result.Metrics),
	}, nil
}

// SynthesizeStream converts text to speech with pull-based streamed
// delivery. Chunks arrive on the returned channel as the provider generates
// them; the channel closes after the final chunk or an error chunk. The
// metadata describes the adapter the stream was opened against.
func (c *Client) SynthesizeStream(
	ctx context.Context, req SynthesizeRequest,
) (<-chan speech.AudioChunk, *Metadata, error) {
	if req.Text == "" {
		return nil, nil, validationError("text", "text cannot be empty")
	}

	requestID := uuid.NewString()
	resolved := c.resolveEmotion(req)

	ctx, span := c.tracer.Start(ctx, "voice.synthesize_stream", trace.WithAttributes(
		attribute.String("voice.request_id", requestID),
		attribute.String("voice.emotion", resolved),
	))
	defer span.End()

	cfg := c.synthesisConfig(req, resolved)

	chunks, metrics, err := c.speech.SynthesizeStream(ctx, req.Text, cfg)
	if err != nil {
		return nil, nil, wrapError(err, CodeSynthesisFailed)
	}

	metadata := c.metadataFor(requestID, resolved, cfg, *metrics)
	return chunks, &metadata, nil
}

// TranscriptionResponse is the result of a transcription call.
type TranscriptionResponse struct {
	// Text is the transcript.
	Text string `json:"text"`

	// Confidence is the overall confidence in [0.0, 1.0].
	Confidence float64 `json:"confidence"`

	// Words carries word-level timing when the provider reports it.
	Words []speech.Word `json:"words,omitempty"`

	Metadata Metadata `json:"metadata"`
}

// Transcribe converts raw PCM audio to text.
func (c *Client) Transcribe(
	ctx context.Context, audio []byte, cfg speech.TranscriptionConfig,
) (*TranscriptionResponse, error) {
	if len(audio) == 0 {
		return nil, validationError("audio", "audio cannot be empty")
	}

	requestID := uuid.NewString()

	ctx, span := c.tracer.Start(ctx, "voice.transcribe", trace.WithAttributes(
		attribute.String("voice.request_id", requestID),
	))
	defer span.End()

	result, err := c.speech.Transcribe(ctx, audio, cfg)
	if err != nil {
		span.RecordError(err)
		return nil, wrapError(err, CodeTranscriptionFailed)
	}

	return &TranscriptionResponse{
		Text:       result.Text,
		Confidence: result.Confidence,
		Words:      result.Words,
		Metadata: Metadata{
			RequestID:    requestID,
			Provider:     result.Provider,
			Model:        result.Model,
			LatencyMs:    result.LatencyMs,
			UsedFallback: result.UsedFallback,
		},
	}, nil
}

// Generate produces reply text from the configured text-generation provider.
func (c *Client) Generate(ctx context.Context, prompt, systemPrompt string) (string, *Metadata, error) {
	if c.text == nil {
		return "", nil, &VoiceError{
			Code:    CodeConfiguration,
			Message: "no text-generation provider configured",
		}
	}
	if prompt == "" {
		return "", nil, validationError("prompt", "prompt cannot be empty")
	}

	requestID := uuid.NewString()

	ctx, span := c.tracer.Start(ctx, "voice.generate", trace.WithAttributes(
		attribute.String("voice.request_id", requestID),
	))
	defer span.End()

	result, err := c.text.GenerateWithMetrics(ctx, prompt, systemPrompt)
	if err != nil {
		span.RecordError(err)
		return "", nil, wrapError(err, CodeGenerationFailed)
	}

	return result.Content, &Metadata{
		RequestID:    requestID,
		Provider:     result.Provider,
		Model:        result.Model,
		LatencyMs:    result.LatencyMs,
		UsedFallback: result.UsedFallback,
	}, nil
}

// Respond generates reply text for a prompt and speaks it in one call. The
// reply's emotion comes from the request's override or preset when present,
// otherwise from keyword detection over the generated reply itself.
func (c *Client) Respond(
	ctx context.Context, prompt, systemPrompt string, req SynthesizeRequest,
) (*SynthesisResponse, string, error) {
	reply, _, err := c.Generate(ctx, prompt, systemPrompt)
	if err != nil {
		return nil, "", err
	}

	req.Text = reply
	response, err := c.Synthesize(ctx, req)
	if err != nil {
		return nil, reply, err
	}
	return response, reply, nil
}

// CloneVoice creates a custom voice from a PCM sample, records it in the
// voice store, and invalidates the provider's cached catalog.
func (c *Client) CloneVoice(
	ctx context.Context, name string, sample []byte, description string,
) (*speech.ClonedVoice, error) {
	ctx, span := c.tracer.Start(ctx, "voice.clone_voice")
	defer span.End()

	cloned, err := c.speech.CloneVoice(ctx, name, sample, description)
	if err != nil {
		span.RecordError(err)
		return nil, wrapError(err, CodeSynthesisFailed)
	}

	providerName := c.speech.PrimaryName()
	if err := c.store.RecordClone(ctx, providerName, *cloned); err != nil {
		logger.Warn("failed to record cloned voice", "voice_id", cloned.VoiceID, "error", err)
	}
	if err := c.store.Invalidate(ctx, providerName); err != nil {
		logger.Warn("failed to invalidate voice catalog", "provider", providerName, "error", err)
	}

	return cloned, nil
}

// Voices lists available voices, serving from the catalog cache when fresh.
func (c *Client) Voices(ctx context.Context, language string) ([]speech.Voice, error) {
	providerName := c.speech.PrimaryName()

	cached, err := c.store.GetCatalog(ctx, providerName, language)
	if err == nil {
		return cached, nil
	}

	voices, err := c.speech.Voices(ctx, language)
	if err != nil {
		return nil, wrapError(err, CodeUpstream)
	}

	if err := c.store.PutCatalog(ctx, providerName, language, voices); err != nil {
		logger.Warn("failed to cache voice catalog", "provider", providerName, "error", err)
	}
	return voices, nil
}

// HealthCheck probes every configured provider. It always returns a report;
// provider failures show up as unhealthy components, never as errors.
func (c *Client) HealthCheck(ctx context.Context) health.Report {
	return c.monitor.Check(ctx)
}

// Status reports the configured providers without any network calls.
func (c *Client) Status() map[string]provider.Status {
	status := map[string]provider.Status{
		"speech": c.speech.Status(),
	}
	if c.text != nil {
		status["text-generation"] = c.text.Status()
	} else {
		status["text-generation"] = provider.Status{}
	}
	return status
}

// Close releases provider resources.
func (c *Client) Close() error {
	if c.text != nil {
		return c.text.Close()
	}
	return nil
}

// resolveEmotion runs the four-step resolution for a synthesis request.
func (c *Client) resolveEmotion(req SynthesizeRequest) string {
	return c.resolver.Resolve(emotion.Request{
		Override:  req.Emotion,
		AgentType: req.AgentType,
		Scenario:  req.Scenario,
		FreeText:  req.Text,
	})
}

// synthesisConfig builds the adapter config with client defaults applied.
func (c *Client) synthesisConfig(req SynthesizeRequest, resolved string) speech.SynthesisConfig {
	voiceID := req.VoiceID
	if voiceID == "" {
		voiceID = c.cfg.DefaultVoiceID
	}
	sampleRate := req.SampleRate
	if sampleRate == 0 {
		sampleRate = c.cfg.SampleRate
	}
	if sampleRate == 0 {
		sampleRate = speech.DefaultSampleRate
	}
	return speech.SynthesisConfig{
		VoiceID:    voiceID,
		Emotion:    resolved,
		Language:   req.Language,
		Speed:      req.Speed,
		SampleRate: sampleRate,
	}
}

// metadataFor assembles response metadata from serving metrics.
func (c *Client) metadataFor(
	requestID, resolved string, cfg speech.SynthesisConfig, metrics provider.Metrics,
) Metadata {
	return Metadata{
		RequestID:    requestID,
		Emotion:      resolved,
		VoiceID:      cfg.VoiceID,
		Provider:     metrics.Provider,
		Model:        metrics.Model,
		LatencyMs:    metrics.LatencyMs,
		SampleRate:   cfg.SampleRate,
		UsedFallback: metrics.UsedFallback,
	}
}

// RequestTimeout returns a context bounded by the configured per-request
// timeout. Callers that already carry a deadline keep the earlier one.
func (c *Client) RequestTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	timeout := c.cfg.RequestTimeout
	if timeout <= 0 {
		timeout = config.DefaultRequestTimeout
	}
	return context.WithTimeout(ctx, timeout)
}
