// Package config loads the process-wide configuration snapshot for the voice
// core. Presence or absence of each provider's credential decides the active
// provider set; the snapshot is taken once and never re-read, so changing the
// environment requires constructing a new snapshot and new factories.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/helioscale/voicekit/credentials"
)

// Environment variable names recognized by FromEnv.
const (
	EnvBaseURL        = "VOICE_BASE_URL"
	EnvDefaultVoiceID = "VOICE_DEFAULT_VOICE_ID"
	EnvSampleRate     = "VOICE_SAMPLE_RATE"
	EnvPresetsFile    = "VOICE_PRESETS_FILE"
	EnvRequestTimeout = "VOICE_REQUEST_TIMEOUT"
	EnvRedisAddr      = "REDIS_ADDR"
)

const (
	// DefaultSampleRate is the wire sample rate in Hz.
	DefaultSampleRate = 22050

	// DefaultRequestTimeout bounds each upstream call.
	DefaultRequestTimeout = 30 * time.Second

	// defaultVoiceID is the stock ElevenLabs voice used when callers omit one.
	defaultVoiceID = "21m00Tcm4TlvDq8ikWAM"
)

// Config is an immutable snapshot of environment-driven configuration.
type Config struct {
	// AnthropicKey, OpenAIKey and ElevenLabsKey hold resolved API keys;
	// empty means the provider is not configured.
	AnthropicKey  string
	OpenAIKey     string
	ElevenLabsKey string

	// BaseURL overrides the network location of every provider endpoint,
	// typically pointing at an authenticating proxy. Empty means direct.
	BaseURL string

	// DefaultVoiceID is used when a synthesis request omits a voice.
	DefaultVoiceID string

	// SampleRate is the output sample rate in Hz for synthesized audio.
	SampleRate int

	// PresetsFile optionally overrides the embedded emotion preset table.
	PresetsFile string

	// RequestTimeout bounds each upstream HTTP call.
	RequestTimeout time.Duration

	// RedisAddr enables the Redis-backed voice catalog cache when set.
	RedisAddr string
}

// FromEnv builds a configuration snapshot from the process environment.
func FromEnv() Config {
	cfg := Config{
		AnthropicKey:   resolveKey("anthropic"),
		OpenAIKey:      resolveKey("openai"),
		ElevenLabsKey:  resolveKey("elevenlabs"),
		BaseURL:        strings.TrimRight(strings.TrimSpace(os.Getenv(EnvBaseURL)), "/"),
		DefaultVoiceID: strings.TrimSpace(os.Getenv(EnvDefaultVoiceID)),
		SampleRate:     DefaultSampleRate,
		PresetsFile:    strings.TrimSpace(os.Getenv(EnvPresetsFile)),
		RequestTimeout: DefaultRequestTimeout,
		RedisAddr:      strings.TrimSpace(os.Getenv(EnvRedisAddr)),
	}

	if cfg.DefaultVoiceID == "" {
		cfg.DefaultVoiceID = defaultVoiceID
	}

	if raw := strings.TrimSpace(os.Getenv(EnvSampleRate)); raw != "" {
		if rate, err := strconv.Atoi(raw); err == nil && rate > 0 {
			cfg.SampleRate = rate
		}
	}

	if raw := strings.TrimSpace(os.Getenv(EnvRequestTimeout)); raw != "" {
		if d, err := time.ParseDuration(raw); err == nil && d > 0 {
			cfg.RequestTimeout = d
		}
	}

	return cfg
}

// HasTextProvider reports whether any text-generation credential is present.
func (c Config) HasTextProvider() bool {
	return c.AnthropicKey != "" || c.OpenAIKey != ""
}

// HasSpeechProvider reports whether any speech credential is present.
func (c Config) HasSpeechProvider() bool {
	return c.ElevenLabsKey != ""
}

func resolveKey(providerName string) string {
	cred, err := credentials.Resolve(credentials.ResolverConfig{Provider: providerName})
	if err != nil {
		return ""
	}
	apiKey, ok := cred.(*credentials.APIKeyCredential)
	if !ok {
		return ""
	}
	return apiKey.APIKey()
}
