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
	openAIBaseURL         = "https://api.openai.com/v1"
	openAICompletionsPath = "/chat/completions"

	// OpenAIModelDefault is the model used unless overridden.
	OpenAIModelDefault = "gpt-4o-mini"

	defaultOpenAITimeout = 60 * time.Second
	openAIMaxTokens      = 1024
)

// OpenAIProvider implements text generation using OpenAI's chat completions API.
type OpenAIProvider struct {
	cred    credentials.Credential
	baseURL string
	client  *http.Client
	model   string
	limiter *rate.Limiter
}

// OpenAIOption configures the OpenAI provider.
type OpenAIOption func(*OpenAIProvider)

// WithOpenAIBaseURL sets a custom base URL (for testing or proxies).
func WithOpenAIBaseURL(url string) OpenAIOption {
	return func(p *OpenAIProvider) {
		p.baseURL = url
	}
}

// WithOpenAIClient sets a custom HTTP client.
func WithOpenAIClient(client *http.Client) OpenAIOption {
	return func(p *OpenAIProvider) {
		p.client = client
	}
}

// WithOpenAIModel sets the model identifier.
func WithOpenAIModel(model string) OpenAIOption {
	return func(p *OpenAIProvider) {
		p.model = model
	}
}

// WithOpenAILimiter rate-limits outbound requests.
func WithOpenAILimiter(limiter *rate.Limiter) OpenAIOption {
	return func(p *OpenAIProvider) {
		p.limiter = limiter
	}
}

// NewOpenAI creates an OpenAI text-generation provider.
func NewOpenAI(apiKey string, opts ...OpenAIOption) (*OpenAIProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai: %w", provider.ErrMissingCredential)
	}
	p := &OpenAIProvider{
		cred:    credentials.ForProvider("openai", apiKey),
		baseURL: openAIBaseURL,
		client:  telemetry.InstrumentHTTPClient(&http.Client{Timeout: defaultOpenAITimeout}),
		model:   OpenAIModelDefault,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// ID returns the provider identifier.
func (p *OpenAIProvider) ID() string {
	return "openai"
}

// Model returns the configured model identifier.
func (p *OpenAIProvider) Model() string {
	return p.model
}

type openAIRequest struct {
	Model     string          `json:"model"`
	Messages  []openAIMessage `json:"messages"`
	MaxTokens int             `json:"max_tokens,omitempty"`
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Type    string `json:"type"`
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Generate produces text for prompt using the chat completions API.
func (p *OpenAIProvider) Generate(ctx context.Context, prompt, systemPrompt string) (string, error) {
	if prompt == "" {
		return "", provider.NewValidationError("prompt", "cannot be empty")
	}

	messages := make([]openAIMessage, 0, 2)
	if systemPrompt != "" {
		messages = append(messages, openAIMessage{Role: "system", Content: systemPrompt})
	}
	messages = append(messages, openAIMessage{Role: "user", Content: prompt})

	reqBody := openAIRequest{
		Model:     p.model,
		Messages:  messages,
		MaxTokens: openAIMaxTokens,
	}

	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			return "", provider.WrapTransport(p.ID(), "generate", err)
		}
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("openai: failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(
		ctx, http.MethodPost, p.baseURL+openAICompletionsPath, bytes.NewReader(bodyBytes),
	)
	if err != nil {
		return "", fmt.Errorf("openai: failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if err := p.cred.Apply(ctx, req); err != nil {
		return "", fmt.Errorf("openai: failed to apply credential: %w", err)
	}
	telemetry.InjectTraceHeaders(ctx, req.Header)

	logger.ProviderCall(p.ID(), "generate", "model", p.model)

	resp, err := p.client.Do(req)
	if err != nil {
		return "", provider.WrapTransport(p.ID(), "generate", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", provider.WrapTransport(p.ID(), "generate", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", p.upstreamError(resp.StatusCode, respBody)
	}

	var parsed openAIResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("openai: failed to parse response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", &provider.UpstreamError{
			Provider: p.ID(),
			Status:   resp.StatusCode,
			Message:  "response contained no choices",
		}
	}
	return parsed.Choices[0].Message.Content, nil
}

// Probe performs a minimal generation to verify reachability.
func (p *OpenAIProvider) Probe(ctx context.Context) error {
	_, err := p.Generate(ctx, "ping", "")
	return err
}

// Close releases idle connections.
func (p *OpenAIProvider) Close() error {
	p.client.CloseIdleConnections()
	return nil
}

func (p *OpenAIProvider) upstreamError(status int, body []byte) error {
	var parsed openAIResponse
	message := string(body)
	code := ""
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Error != nil {
		message = parsed.Error.Message
		code = parsed.Error.Code
	}
	return &provider.UpstreamError{
		Provider: p.ID(),
		Status:   status,
		Code:     code,
		Message:  message,
	}
}
