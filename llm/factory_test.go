package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helioscale/voicekit/config"
	"github.com/helioscale/voicekit/provider"
)

func TestNewFactory_Selection(t *testing.T) {
	tests := []struct {
		name         string
		cfg          config.Config
		wantErr      bool
		wantPrimary  string
		wantFallback string
	}{
		{
			name:         "anthropic primary with openai fallback",
			cfg:          config.Config{AnthropicKey: "a", OpenAIKey: "b"},
			wantPrimary:  "anthropic",
			wantFallback: "openai",
		},
		{
			name:        "anthropic only",
			cfg:         config.Config{AnthropicKey: "a"},
			wantPrimary: "anthropic",
		},
		{
			name:        "openai only",
			cfg:         config.Config{OpenAIKey: "b"},
			wantPrimary: "openai",
		},
		{
			name:    "no credentials",
			cfg:     config.Config{},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			factory, err := NewFactory(tt.cfg)
			if tt.wantErr {
				require.ErrorIs(t, err, provider.ErrNoProvider)
				return
			}
			require.NoError(t, err)

			status := factory.Status()
			assert.True(t, status.Configured)
			assert.Equal(t, tt.wantPrimary, status.Provider)
			assert.Equal(t, tt.wantFallback, status.Fallback)
		})
	}
}

func TestGenerateWithMetrics_PrimarySucceeds(t *testing.T) {
	primary := &MockProvider{IDValue: "anthropic", Response: "hello"}
	fallback := &MockProvider{IDValue: "openai", Response: "unused"}
	factory := NewFactoryWithProviders(primary, fallback)

	result, err := factory.GenerateWithMetrics(context.Background(), "hi", "")
	require.NoError(t, err)

	assert.Equal(t, "hello", result.Content)
	assert.Equal(t, "anthropic", result.Provider)
	assert.False(t, result.UsedFallback)
	assert.EqualValues(t, 1, primary.Calls())
	assert.EqualValues(t, 0, fallback.Calls(), "fallback must not be called when primary succeeds")
}

func TestGenerateWithMetrics_FallbackOnUpstreamError(t *testing.T) {
	primary := &MockProvider{
		IDValue: "anthropic",
		Err:     &provider.UpstreamError{Provider: "anthropic", Status: 500, Message: "overloaded"},
	}
	fallback := &MockProvider{IDValue: "openai", ModelValue: "gpt-4o-mini", Response: "rescued"}
	factory := NewFactoryWithProviders(primary, fallback)

	result, err := factory.GenerateWithMetrics(context.Background(), "hi", "sys")
	require.NoError(t, err)

	assert.Equal(t, "rescued", result.Content)
	assert.Equal(t, "openai", result.Provider)
	assert.Equal(t, "gpt-4o-mini", result.Model)
	assert.True(t, result.UsedFallback)
	assert.EqualValues(t, 1, primary.Calls())
	assert.EqualValues(t, 1, fallback.Calls())
}

func TestGenerateWithMetrics_FallbackFailurePropagates(t *testing.T) {
	primaryErr := &provider.NetworkError{Provider: "anthropic", Op: "generate", Err: errors.New("refused")}
	fallbackErr := &provider.UpstreamError{Provider: "openai", Status: 503, Message: "down"}
	primary := &MockProvider{IDValue: "anthropic", Err: primaryErr}
	fallback := &MockProvider{IDValue: "openai", Err: fallbackErr}
	factory := NewFactoryWithProviders(primary, fallback)

	_, err := factory.GenerateWithMetrics(context.Background(), "hi", "")

	var upstream *provider.UpstreamError
	require.ErrorAs(t, err, &upstream)
	assert.Equal(t, "openai", upstream.Provider, "fallback error must propagate unmodified")
	assert.EqualValues(t, 1, primary.Calls())
	assert.EqualValues(t, 1, fallback.Calls(), "no double fallback")
}

func TestGenerateWithMetrics_NoFallbackConfigured(t *testing.T) {
	primaryErr := &provider.UpstreamError{Provider: "anthropic", Status: 500, Message: "overloaded"}
	primary := &MockProvider{IDValue: "anthropic", Err: primaryErr}
	factory := NewFactoryWithProviders(primary, nil)

	_, err := factory.GenerateWithMetrics(context.Background(), "hi", "")

	require.ErrorIs(t, err, error(primaryErr))
	assert.EqualValues(t, 1, primary.Calls(), "exactly one call when no fallback exists")
}

func TestGenerateWithMetrics_ValidationErrorNotEligible(t *testing.T) {
	primary := &MockProvider{
		IDValue: "anthropic",
		Err:     provider.NewValidationError("prompt", "cannot be empty"),
	}
	fallback := &MockProvider{IDValue: "openai", Response: "unused"}
	factory := NewFactoryWithProviders(primary, fallback)

	_, err := factory.GenerateWithMetrics(context.Background(), "", "")

	var validation *provider.ValidationError
	require.ErrorAs(t, err, &validation)
	assert.EqualValues(t, 0, fallback.Calls(), "validation failures must not trigger fallback")
}
