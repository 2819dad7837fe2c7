package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/helioscale/voicekit/credentials"
	"github.com/helioscale/voicekit/logger"
	"github.com/helioscale/voicekit/provider"
	"github.com/helioscale/voicekit/telemetry"
)

const (
	anthropicBaseURL      = "https://api.anthropic.com/v1"
	anthropicMessagesPath = "/messages"

	anthropicVersionKey   = "Anthropic-Version"
	anthropicVersionValue = "2023-06-01"

	// AnthropicModelDefault is the model used unless overridden.
	AnthropicModelDefault = "claude-sonnet-4-20250514"

	defaultAnthropicTimeout = 60 * time.Second
	anthropicMaxTokens      = 1024
)

// AnthropicProvider implements text generation using Anthropic's messages API.
type AnthropicProvider struct {
	cred    credentials.Credential
	baseURL string
	client  *http.Client
	model   string
	limiter *rate.Limiter
}

// AnthropicOption configures the Anthropic provider.
type AnthropicOption func(*AnthropicProvider)

// WithAnthropicBaseURL sets a custom base URL (for testing or proxies).
func WithAnthropicBaseURL(url string) AnthropicOption {
	return func(p *AnthropicProvider) {
		p.baseURL = url
	}
}

// WithAnthropicClient sets a custom HTTP client.
func WithAnthropicClient(client *http.Client) AnthropicOption {
	return func(p *AnthropicProvider) {
		p.client = client
	}
}

// WithAnthropicModel sets the model identifier.
func WithAnthropicModel(model string) AnthropicOption {
	return func(p *AnthropicProvider) {
		p.model = model
	}
}

// WithAnthropicLimiter rate-limits outbound requests.
func WithAnthropicLimiter(limiter *rate.Limiter) AnthropicOption {
	return func(p *AnthropicProvider) {
		p.limiter = limiter
	}
}

// NewAnthropic creates an Anthropic text-generation provider.
// Construction fails fast when the API key is absent; adapters are never
// silently degraded.
func NewAnthropic(apiKey string, opts ...AnthropicOption) (*AnthropicProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("anthropic: %w", provider.ErrMissingCredential)
	}
	p := &AnthropicProvider{
		cred:    credentials.ForProvider("anthropic", apiKey),
		baseURL: anthropicBaseURL,
		client:  telemetry.InstrumentHTTPClient(&http.Client{Timeout: defaultAnthropicTimeout}),
		model:   AnthropicModelDefault,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// ID returns the provider identifier.
func (p *AnthropicProvider) ID() string {
	return "anthropic"
}

// Model returns the configured model identifier.
func (p *AnthropicProvider) Model() string {
	return p.model
}

// anthropicRequest is the request body for the messages API.
type anthropicRequest struct {
	Model     string             `json:"model"`
	MaxTokens int                `json:"max_tokens"`
	System    string             `json:"system,omitempty"`
	Messages  []anthropicMessage `json:"messages"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Generate produces text for prompt using the messages API.
func (p *AnthropicProvider) Generate(ctx context.Context, prompt, systemPrompt string) (string, error) {
	if prompt == "" {
		return "", provider.NewValidationError("prompt", "cannot be empty")
	}

	reqBody := anthropicRequest{
		Model:     p.model,
		MaxTokens: anthropicMaxTokens,
		System:    systemPrompt,
		Messages: []anthropicMessage{
			{Role: "user", Content: prompt},
		},
	}

	respBody, err := p.post(ctx, "generate", anthropicMessagesPath, reqBody)
	if err != nil {
		return "", err
	}

	var parsed anthropicResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("anthropic: failed to parse response: %w", err)
	}

	var text string
	for _, block := range parsed.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}
	return text, nil
}

// Probe performs a minimal generation to verify reachability.
func (p *AnthropicProvider) Probe(ctx context.Context) error {
	_, err := p.Generate(ctx, "ping", "")
	return err
}

// Close releases idle connections.
func (p *AnthropicProvider) Close() error {
	p.client.CloseIdleConnections()
	return nil
}

func (p *AnthropicProvider) post(ctx context.Context, op, path string, body any) ([]byte, error) {
	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			return nil, provider.WrapTransport(p.ID(), op, err)
		}
	}

	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("anthropic: failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(
		ctx, http.MethodPost, p.baseURL+path, bytes.NewReader(bodyBytes),
	)
	if err != nil {
		return nil, fmt.Errorf("anthropic: failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(anthropicVersionKey, anthropicVersionValue)
	if err := p.cred.Apply(ctx, req); err != nil {
		return nil, fmt.Errorf("anthropic: failed to apply credential: %w", err)
	}
	telemetry.InjectTraceHeaders(ctx, req.Header)

	logger.ProviderCall(p.ID(), op, "model", p.model)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, provider.WrapTransport(p.ID(), op, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, provider.WrapTransport(p.ID(), op, err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, p.upstreamError(resp.StatusCode, respBody)
	}
	return respBody, nil
}

func (p *AnthropicProvider) upstreamError(status int, body []byte) error {
	var parsed anthropicResponse
	message := string(body)
	code := ""
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Error != nil {
		message = parsed.Error.Message
		code = parsed.Error.Type
	}
	return &provider.UpstreamError{
		Provider: p.ID(),
		Status:   status,
		Code:     code,
		Message:  message,
	}
}
