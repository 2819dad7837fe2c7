package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/helioscale/voicekit/credentials"
	"github.com/helioscale/voicekit/logger"
	"github.com/helioscale/voicekit/provider"
	"github.com/helioscale/voicekit/telemetry"
)

const (
	openAIBaseURL            = "https://api.openai.com/v1"
	openAISpeechEndpoint     = "/audio/speech"
	openAITranscribeEndpoint = "/audio/transcriptions"

	// OpenAIModelTTS is the steerable OpenAI synthesis model. It honors a
	// tone instruction, which is how emotion tags reach this vendor.
	OpenAIModelTTS = "gpt-4o-mini-tts"
	// OpenAIModelWhisper is the OpenAI transcription model.
	OpenAIModelWhisper = "whisper-1"

	defaultOpenAISpeechTimeout = 60 * time.Second

	// openAIDefaultVoice is used when a request names no voice or names a
	// voice the vendor does not have.
	openAIDefaultVoice = "alloy"

	// openAIPCMSampleRate is the fixed output rate of OpenAI's pcm format.
	// Requests for other rates still come back at this rate.
	openAIPCMSampleRate = 24000
)

// openAIVoices is the vendor's built-in voice catalog. OpenAI has no listing
// endpoint, so Voices serves this static set.
var openAIVoices = []Voice{
	{ID: "alloy", Name: "Alloy", Language: "en", Description: "balanced, versatile"},
	{ID: "echo", Name: "Echo", Language: "en", Description: "clear male"},
	{ID: "fable", Name: "Fable", Language: "en", Description: "expressive, British accent"},
	{ID: "onyx", Name: "Onyx", Language: "en", Description: "deep, authoritative"},
	{ID: "nova", Name: "Nova", Language: "en", Description: "warm, friendly"},
	{ID: "shimmer", Name: "Shimmer", Language: "en", Description: "soft, calm"},
}

// OpenAIService implements the speech Service using OpenAI's audio APIs:
// synthesis via the speech endpoint, transcription via Whisper. OpenAI has no
// streaming synthesis transport, so SynthesizeStream pumps the buffered
// response; it also cannot clone voices. It exists as the fallback slot
// behind ElevenLabs.
type OpenAIService struct {
	cred    credentials.Credential
	baseURL string
	client  *http.Client
	model   string
	limiter *rate.Limiter
}

// OpenAISpeechOption configures the OpenAI speech service.
type OpenAISpeechOption func(*OpenAIService)

// WithOpenAIBaseURL sets a custom base URL.
func WithOpenAIBaseURL(url string) OpenAISpeechOption {
	return func(s *OpenAIService) {
		s.baseURL = url
	}
}

// WithOpenAIClient sets a custom HTTP client.
func WithOpenAIClient(client *http.Client) OpenAISpeechOption {
	return func(s *OpenAIService) {
		s.client = client
	}
}

// WithOpenAIModel sets the synthesis model.
func WithOpenAIModel(model string) OpenAISpeechOption {
	return func(s *OpenAIService) {
		s.model = model
	}
}

// WithOpenAILimiter rate-limits outbound requests.
func WithOpenAILimiter(limiter *rate.Limiter) OpenAISpeechOption {
	return func(s *OpenAIService) {
		s.limiter = limiter
	}
}

// NewOpenAISpeech creates an OpenAI speech service.
// Construction fails fast when the API key is absent.
func NewOpenAISpeech(apiKey string, opts ...OpenAISpeechOption) (*OpenAIService, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai speech: %w", provider.ErrMissingCredential)
	}
	s := &OpenAIService{
		cred:    credentials.ForProvider("openai", apiKey),
		baseURL: openAIBaseURL,
		client:  telemetry.InstrumentHTTPClient(&http.Client{Timeout: defaultOpenAISpeechTimeout}),
		model:   OpenAIModelTTS,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Name returns the provider identifier.
func (s *OpenAIService) Name() string {
	return "openai"
}

// Model returns the configured synthesis model.
func (s *OpenAIService) Model() string {
	return s.model
}

// openAISpeechRequest is the request body for the speech endpoint.
type openAISpeechRequest struct {
	Model          string  `json:"model"`
	Input          string  `json:"input"`
	Voice          string  `json:"voice"`
	ResponseFormat string  `json:"response_format,omitempty"`
	Speed          float64 `json:"speed,omitempty"`
	Instructions   string  `json:"instructions,omitempty"`
}

// instructionFor renders an emotion tag as a tone instruction for the
// steerable synthesis model. OpenAI has no per-emotion voice knobs.
func instructionFor(emotion string) string {
	if emotion == "" || emotion == "neutral" {
		return ""
	}
	return "Speak in a " + emotion + " tone."
}

// voiceFor maps a requested voice onto the vendor catalog. Voice IDs from
// other vendors fall back to the default voice rather than failing the call.
func voiceFor(requested string) string {
	for _, v := range openAIVoices {
		if v.ID == requested {
			return requested
		}
	}
	return openAIDefaultVoice
}

// Synthesize converts text to audio using the speech endpoint. The response
// streams raw s16le PCM at openAIPCMSampleRate regardless of the requested
// rate.
//
//nolint:gocritic // hugeParam: SynthesisConfig passed by value to satisfy Service interface
func (s *OpenAIService) Synthesize(
	ctx context.Context, text string, config SynthesisConfig,
) (io.ReadCloser, error) {
	if text == "" {
		return nil, ErrEmptyText
	}

	reqBody := openAISpeechRequest{
		Model:          s.model,
		Input:          text,
		Voice:          voiceFor(config.VoiceID),
		ResponseFormat: "pcm",
		Instructions:   instructionFor(config.Emotion),
	}
	if config.Speed > 0 && config.Speed != 1.0 {
		reqBody.Speed = config.Speed
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(
		ctx, http.MethodPost, s.baseURL+openAISpeechEndpoint, bytes.NewReader(bodyBytes),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.do(ctx, "synthesize", req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, s.handleError(resp)
	}

	return resp.Body, nil
}

// SynthesizeStream synthesizes the full utterance and pumps the response
// body as chunks. OpenAI exposes no streaming synthesis transport.
//
//nolint:gocritic // hugeParam: SynthesisConfig passed by value to satisfy Service interface
func (s *OpenAIService) SynthesizeStream(
	ctx context.Context, text string, config SynthesisConfig,
) (<-chan AudioChunk, error) {
	body, err := s.Synthesize(ctx, text, config)
	if err != nil {
		return nil, err
	}
	return pumpReader(ctx, s.Name(), body), nil
}

// openAITranscription is the verbose_json response of the Whisper endpoint.
type openAITranscription struct {
	Text  string `json:"text"`
	Words []struct {
		Word  string  `json:"word"`
		Start float64 `json:"start"`
		End   float64 `json:"end"`
	} `json:"words"`
}

// Transcribe converts audio to text using the Whisper endpoint. The PCM
// payload is wrapped as WAV for the file upload. Whisper reports no
// confidence, so Confidence is zero.
//
//nolint:gocritic // hugeParam: TranscriptionConfig passed by value to satisfy Service interface
func (s *OpenAIService) Transcribe(
	ctx context.Context, audio []byte, config TranscriptionConfig,
) (*Transcription, error) {
	if len(audio) == 0 {
		return nil, ErrEmptyAudio
	}

	sampleRate := config.SampleRate
	if sampleRate == 0 {
		sampleRate = DefaultSampleRate
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("file", "audio.wav")
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(WrapPCMAsWAV(audio, sampleRate, Channels, BitDepth)); err != nil {
		return nil, fmt.Errorf("failed to write audio data: %w", err)
	}
	if err := writer.WriteField("model", OpenAIModelWhisper); err != nil {
		return nil, fmt.Errorf("failed to write model field: %w", err)
	}
	if err := writer.WriteField("response_format", "verbose_json"); err != nil {
		return nil, fmt.Errorf("failed to write format field: %w", err)
	}
	if err := writer.WriteField("timestamp_granularities[]", "word"); err != nil {
		return nil, fmt.Errorf("failed to write granularity field: %w", err)
	}
	if config.Language != "" {
		if err := writer.WriteField("language", config.Language); err != nil {
			return nil, fmt.Errorf("failed to write language field: %w", err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(
		ctx, http.MethodPost, s.baseURL+openAITranscribeEndpoint, &buf,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := s.do(ctx, "transcribe", req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, s.handleError(resp)
	}

	var parsed openAITranscription
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to parse transcription: %w", err)
	}

	result := &Transcription{Text: parsed.Text}
	for _, w := range parsed.Words {
		result.Words = append(result.Words, Word{Word: w.Word, Start: w.Start, End: w.End})
	}
	return result, nil
}

// CloneVoice is not available on this vendor.
func (s *OpenAIService) CloneVoice(
	_ context.Context, _ string, _ []byte, _ string,
) (*ClonedVoice, error) {
	return nil, fmt.Errorf("openai: voice cloning: %w", errors.ErrUnsupported)
}

// Voices returns the vendor's built-in catalog, filtered by language when
// one is given.
func (s *OpenAIService) Voices(_ context.Context, language string) ([]Voice, error) {
	voices := make([]Voice, 0, len(openAIVoices))
	for _, v := range openAIVoices {
		if language != "" && v.Language != language {
			continue
		}
		voices = append(voices, v)
	}
	return voices, nil
}

// Probe checks reachability by looking up the synthesis model.
func (s *OpenAIService) Probe(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/models/"+s.model, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := s.do(ctx, "probe", req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return s.handleError(resp)
	}
	return nil
}

// do applies rate limiting and runs the request, converting transport
// failures into the shared taxonomy.
func (s *OpenAIService) do(ctx context.Context, op string, req *http.Request) (*http.Response, error) {
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, provider.WrapTransport(s.Name(), op, err)
		}
	}
	if err := s.cred.Apply(ctx, req); err != nil {
		return nil, fmt.Errorf("failed to apply credential: %w", err)
	}
	telemetry.InjectTraceHeaders(ctx, req.Header)

	logger.ProviderCall(s.Name(), op)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, provider.WrapTransport(s.Name(), op, err)
	}
	return resp, nil
}

// openAISpeechErrorResponse represents an error response from OpenAI.
type openAISpeechErrorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error"`
}

// handleError converts a non-success response into an UpstreamError.
func (s *OpenAIService) handleError(resp *http.Response) error {
	upstream := &provider.UpstreamError{
		Provider: s.Name(),
		Status:   resp.StatusCode,
		Message:  "unknown error",
	}

	var errResp openAISpeechErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&errResp); err == nil && errResp.Error.Message != "" {
		upstream.Code = errResp.Error.Code
		upstream.Message = errResp.Error.Message
	}
	return upstream
}
