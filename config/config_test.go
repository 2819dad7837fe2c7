package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func clearProviderEnv(t *testing.T) {
	t.Helper()
	for _, envVar := range []string{
		"ANTHROPIC_API_KEY", "CLAUDE_API_KEY",
		"OPENAI_API_KEY", "OPENAI_TOKEN",
		"ELEVENLABS_API_KEY", "XI_API_KEY",
		EnvBaseURL, EnvDefaultVoiceID, EnvSampleRate, EnvRequestTimeout, EnvRedisAddr,
	} {
		t.Setenv(envVar, "")
	}
}

func TestFromEnv_Defaults(t *testing.T) {
	clearProviderEnv(t)

	cfg := FromEnv()

	assert.Equal(t, DefaultSampleRate, cfg.SampleRate)
	assert.Equal(t, DefaultRequestTimeout, cfg.RequestTimeout)
	assert.Equal(t, defaultVoiceID, cfg.DefaultVoiceID)
	assert.False(t, cfg.HasTextProvider())
	assert.False(t, cfg.HasSpeechProvider())
}

func TestFromEnv_ProviderPresence(t *testing.T) {
	clearProviderEnv(t)
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant-test")
	t.Setenv("ELEVENLABS_API_KEY", "sk_test")

	cfg := FromEnv()

	assert.True(t, cfg.HasTextProvider())
	assert.True(t, cfg.HasSpeechProvider())
	assert.Equal(t, "sk-ant-test", cfg.AnthropicKey)
	assert.Empty(t, cfg.OpenAIKey)
}

func TestFromEnv_SecondaryEnvChain(t *testing.T) {
	clearProviderEnv(t)
	t.Setenv("CLAUDE_API_KEY", "sk-ant-alt")
	t.Setenv("XI_API_KEY", "sk-el-alt")

	cfg := FromEnv()

	assert.Equal(t, "sk-ant-alt", cfg.AnthropicKey)
	assert.Equal(t, "sk-el-alt", cfg.ElevenLabsKey)
}

func TestFromEnv_Overrides(t *testing.T) {
	clearProviderEnv(t)
	t.Setenv(EnvBaseURL, "https://voice.internal/api/")
	t.Setenv(EnvDefaultVoiceID, "custom-voice")
	t.Setenv(EnvSampleRate, "44100")
	t.Setenv(EnvRequestTimeout, "10s")

	cfg := FromEnv()

	assert.Equal(t, "https://voice.internal/api", cfg.BaseURL)
	assert.Equal(t, "custom-voice", cfg.DefaultVoiceID)
	assert.Equal(t, 44100, cfg.SampleRate)
	assert.Equal(t, 10*time.Second, cfg.RequestTimeout)
}

func TestFromEnv_BadOverridesIgnored(t *testing.T) {
	clearProviderEnv(t)
	t.Setenv(EnvSampleRate, "not-a-number")
	t.Setenv(EnvRequestTimeout, "-5s")

	cfg := FromEnv()

	assert.Equal(t, DefaultSampleRate, cfg.SampleRate)
	assert.Equal(t, DefaultRequestTimeout, cfg.RequestTimeout)
}
