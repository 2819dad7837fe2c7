package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/helioscale/voicekit/config"
	"github.com/helioscale/voicekit/logger"
	"github.com/helioscale/voicekit/metrics/prometheus"
	"github.com/helioscale/voicekit/provider"
)

// Result carries generated text plus metadata about the serving adapter.
type Result struct {
	Content string
	provider.Metrics
}

// Factory owns the primary/fallback choice for the text-generation
// capability. The choice is made once at construction and never mutated, so a
// Factory is safe for concurrent use without locking.
type Factory struct {
	primary  Provider
	fallback Provider
}

// NewFactory selects providers from the configuration snapshot: Anthropic is
// primary when its credential is present, otherwise OpenAI. When both are
// present the other becomes the fallback. Neither credential is a
// construction error.
func NewFactory(cfg config.Config) (*Factory, error) {
	var anthropicP, openaiP Provider

	if cfg.AnthropicKey != "" {
		var opts []AnthropicOption
		if cfg.BaseURL != "" {
			opts = append(opts, WithAnthropicBaseURL(cfg.BaseURL+"/anthropic"))
		}
		p, err := NewAnthropic(cfg.AnthropicKey, opts...)
		if err != nil {
			return nil, err
		}
		anthropicP = p
	}

	if cfg.OpenAIKey != "" {
		var opts []OpenAIOption
		if cfg.BaseURL != "" {
			opts = append(opts, WithOpenAIBaseURL(cfg.BaseURL+"/openai"))
		}
		p, err := NewOpenAI(cfg.OpenAIKey, opts...)
		if err != nil {
			return nil, err
		}
		openaiP = p
	}

	switch {
	case anthropicP != nil && openaiP != nil:
		return NewFactoryWithProviders(anthropicP, openaiP), nil
	case anthropicP != nil:
		return NewFactoryWithProviders(anthropicP, nil), nil
	case openaiP != nil:
		return NewFactoryWithProviders(openaiP, nil), nil
	default:
		return nil, fmt.Errorf("text generation: %w", provider.ErrNoProvider)
	}
}

// NewFactoryWithProviders builds a factory over explicit adapters.
// fallback may be nil.
func NewFactoryWithProviders(primary, fallback Provider) *Factory {
	return &Factory{primary: primary, fallback: fallback}
}

// GenerateWithMetrics calls the primary adapter and, when the primary fails
// with a fallback-eligible error and a fallback is configured, retries once
// against the fallback. A fallback failure propagates unmodified; there is no
// second fallback and no retry loop. Latency covers only the serving call.
func (f *Factory) GenerateWithMetrics(ctx context.Context, prompt, systemPrompt string) (Result, error) {
	result, primaryErr := f.generateFrom(ctx, f.primary, prompt, systemPrompt, false)
	if primaryErr == nil {
		return result, nil
	}

	if f.fallback == nil || !provider.FallbackEligible(primaryErr) {
		return Result{}, primaryErr
	}

	logger.Fallback("text-generation", f.primary.ID(), f.fallback.ID(), primaryErr)
	prometheus.RecordFallback("text-generation")

	return f.generateFrom(ctx, f.fallback, prompt, systemPrompt, true)
}

func (f *Factory) generateFrom(
	ctx context.Context, p Provider, prompt, systemPrompt string, usedFallback bool,
) (Result, error) {
	start := time.Now()
	content, err := p.Generate(ctx, prompt, systemPrompt)
	elapsed := time.Since(start)

	prometheus.RecordProviderRequest(p.ID(), "generate", elapsed, err)
	if err != nil {
		logger.ProviderError(p.ID(), "generate", err)
		return Result{}, err
	}

	logger.ProviderResponse(p.ID(), "generate", elapsed.Milliseconds())
	return Result{
		Content: content,
		Metrics: provider.Metrics{
			Provider:     p.ID(),
			Model:        p.Model(),
			LatencyMs:    elapsed.Milliseconds(),
			UsedFallback: usedFallback,
		},
	}, nil
}

// Probe checks the primary adapter's reachability.
func (f *Factory) Probe(ctx context.Context) error {
	return f.primary.Probe(ctx)
}

// Status reports the configured providers for operational dashboards.
func (f *Factory) Status() provider.Status {
	s := provider.Status{
		Configured: true,
		Provider:   f.primary.ID(),
		Model:      f.primary.Model(),
	}
	if f.fallback != nil {
		s.Fallback = f.fallback.ID()
	}
	return s
}

// Close closes both adapters.
func (f *Factory) Close() error {
	if err := f.primary.Close(); err != nil {
		return err
	}
	if f.fallback != nil {
		return f.fallback.Close()
	}
	return nil
}
