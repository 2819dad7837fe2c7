package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/helioscale/voicekit/credentials"
	"github.com/helioscale/voicekit/logger"
	"github.com/helioscale/voicekit/provider"
	"github.com/helioscale/voicekit/telemetry"
)

const (
	elevenLabsBaseURL = "https://api.elevenlabs.io/v1"
	elevenLabsWSURL   = "wss://api.elevenlabs.io/v1"

	// ElevenLabsModelMultilingual is the multilingual v2 synthesis model.
	ElevenLabsModelMultilingual = "eleven_multilingual_v2"
	// ElevenLabsModelTurbo is the fast turbo v2.5 synthesis model.
	ElevenLabsModelTurbo = "eleven_turbo_v2_5"
	// ElevenLabsModelScribe is the speech-to-text model.
	ElevenLabsModelScribe = "scribe_v1"

	defaultElevenLabsTimeout = 60 * time.Second

	// elevenLabsDefaultVoice is the default voice ID (Rachel).
	elevenLabsDefaultVoice = "21m00Tcm4TlvDq8ikWAM"

	// Default voice settings.
	elevenLabsDefaultStability       = 0.5
	elevenLabsDefaultSimilarityBoost = 0.75
)

// ElevenLabsService implements the speech Service using ElevenLabs' API.
// ElevenLabs covers all four speech operations: synthesis, transcription,
// voice cloning, and voice listing.
type ElevenLabsService struct {
	cred    *credentials.APIKeyCredential
	baseURL string
	wsURL   string
	client  *http.Client
	model   string
	limiter *rate.Limiter
}

// ElevenLabsOption configures the ElevenLabs speech service.
type ElevenLabsOption func(*ElevenLabsService)

// WithElevenLabsBaseURL sets a custom base URL.
func WithElevenLabsBaseURL(url string) ElevenLabsOption {
	return func(s *ElevenLabsService) {
		s.baseURL = url
	}
}

// WithElevenLabsWSURL sets a custom WebSocket URL.
func WithElevenLabsWSURL(url string) ElevenLabsOption {
	return func(s *ElevenLabsService) {
		s.wsURL = url
	}
}

// WithElevenLabsClient sets a custom HTTP client.
func WithElevenLabsClient(client *http.Client) ElevenLabsOption {
	return func(s *ElevenLabsService) {
		s.client = client
	}
}

// WithElevenLabsModel sets the synthesis model.
func WithElevenLabsModel(model string) ElevenLabsOption {
	return func(s *ElevenLabsService) {
		s.model = model
	}
}

// WithElevenLabsLimiter rate-limits outbound requests.
func WithElevenLabsLimiter(limiter *rate.Limiter) ElevenLabsOption {
	return func(s *ElevenLabsService) {
		s.limiter = limiter
	}
}

// NewElevenLabs creates an ElevenLabs speech service.
// Construction fails fast when the API key is absent.
func NewElevenLabs(apiKey string, opts ...ElevenLabsOption) (*ElevenLabsService, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("elevenlabs: %w", provider.ErrMissingCredential)
	}
	s := &ElevenLabsService{
		cred:    credentials.ForProvider("elevenlabs", apiKey),
		baseURL: elevenLabsBaseURL,
		wsURL:   elevenLabsWSURL,
		client:  telemetry.InstrumentHTTPClient(&http.Client{Timeout: defaultElevenLabsTimeout}),
		model:   ElevenLabsModelMultilingual,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Name returns the provider identifier.
func (s *ElevenLabsService) Name() string {
	return "elevenlabs"
}

// Model returns the configured synthesis model.
func (s *ElevenLabsService) Model() string {
	return s.model
}

// elevenLabsRequest is the request body for the text-to-speech endpoint.
type elevenLabsRequest struct {
	Text          string                   `json:"text"`
	ModelID       string                   `json:"model_id,omitempty"`
	LanguageCode  string                   `json:"language_code,omitempty"`
	VoiceSettings *elevenLabsVoiceSettings `json:"voice_settings,omitempty"`
}

// elevenLabsVoiceSettings configures voice parameters.
type elevenLabsVoiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
	Style           float64 `json:"style,omitempty"`
	Speed           float64 `json:"speed,omitempty"`
}

// settingsFor maps a validated emotion tag onto ElevenLabs voice knobs.
// The tag never travels over the wire as-is; only these knobs do.
func settingsFor(config SynthesisConfig) *elevenLabsVoiceSettings {
	settings := &elevenLabsVoiceSettings{
		Stability:       elevenLabsDefaultStability,
		SimilarityBoost: elevenLabsDefaultSimilarityBoost,
	}
	if config.Speed > 0 && config.Speed != 1.0 {
		settings.Speed = config.Speed
	}

	switch config.Emotion {
	case "excited", "enthusiastic", "energetic", "joyful", "amazed", "surprised":
		settings.Stability = 0.3
		settings.Style = 0.8
	case "happy", "cheerful", "playful", "optimistic", "welcoming", "friendly", "warm":
		settings.Stability = 0.4
		settings.Style = 0.6
	case "confident", "assertive", "persuasive", "determined", "proud":
		settings.Stability = 0.55
		settings.Style = 0.5
	case "calm", "relaxed", "soothing", "reassuring", "patient", "thoughtful":
		settings.Stability = 0.8
		settings.Style = 0.15
	case "apologetic", "regretful", "empathetic", "sympathetic", "compassionate",
		"sad", "disappointed", "concerned":
		settings.Stability = 0.7
		settings.Style = 0.3
	case "urgent", "stern", "serious", "frustrated", "annoyed":
		settings.Stability = 0.45
		settings.Style = 0.55
	}
	return settings
}

// outputFormat returns the ElevenLabs output format string for the wire
// format at the requested sample rate.
func outputFormat(sampleRate int) string {
	switch sampleRate {
	case 16000, 22050, 24000, 44100:
		return "pcm_" + strconv.Itoa(sampleRate)
	default:
		return "pcm_" + strconv.Itoa(DefaultSampleRate)
	}
}

// Synthesize converts text to audio using the text-to-speech endpoint.
// The response body streams raw PCM in the wire format.
//
//nolint:gocritic // hugeParam: SynthesisConfig passed by value to satisfy Service interface
func (s *ElevenLabsService) Synthesize(
	ctx context.Context, text string, config SynthesisConfig,
) (io.ReadCloser, error) {
	if text == "" {
		return nil, ErrEmptyText
	}

	voice := config.VoiceID
	if voice == "" {
		voice = elevenLabsDefaultVoice
	}

	reqBody := elevenLabsRequest{
		Text:          text,
		ModelID:       s.model,
		LanguageCode:  config.Language,
		VoiceSettings: settingsFor(config),
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/text-to-speech/%s?output_format=%s",
		s.baseURL, voice, outputFormat(config.rate()))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", MIMEType)

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

// elevenLabsTranscription is the response of the speech-to-text endpoint.
type elevenLabsTranscription struct {
	Text                string  `json:"text"`
	LanguageCode        string  `json:"language_code"`
	LanguageProbability float64 `json:"language_probability"`
	Words               []struct {
		Text    string  `json:"text"`
		Start   float64 `json:"start"`
		End     float64 `json:"end"`
		Type    string  `json:"type"`
		Logprob float64 `json:"logprob"`
	} `json:"words"`
}

// Transcribe converts audio to text using the speech-to-text endpoint.
// The audio payload is raw PCM in the wire format; it is wrapped as WAV for
// the file upload.
//
//nolint:gocritic // hugeParam: TranscriptionConfig passed by value to satisfy Service interface
func (s *ElevenLabsService) Transcribe(
	ctx context.Context, audio []byte, config TranscriptionConfig,
) (*Transcription, error) {
	if len(audio) == 0 {
		return nil, ErrEmptyAudio
	}

	sampleRate := config.SampleRate
	if sampleRate == 0 {
		sampleRate = DefaultSampleRate
	}
	wavData := WrapPCMAsWAV(audio, sampleRate, Channels, BitDepth)

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("file", "audio.wav")
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(wavData); err != nil {
		return nil, fmt.Errorf("failed to write audio data: %w", err)
	}
	if err := writer.WriteField("model_id", ElevenLabsModelScribe); err != nil {
		return nil, fmt.Errorf("failed to write model field: %w", err)
	}
	if config.Language != "" {
		if err := writer.WriteField("language_code", config.Language); err != nil {
			return nil, fmt.Errorf("failed to write language field: %w", err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(
		ctx, http.MethodPost, s.baseURL+"/speech-to-text", &buf,
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

	var parsed elevenLabsTranscription
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to parse transcription: %w", err)
	}

	result := &Transcription{
		Text:       parsed.Text,
		Confidence: parsed.LanguageProbability,
	}
	for _, w := range parsed.Words {
		if w.Type != "word" {
			continue
		}
		result.Words = append(result.Words, Word{
			Word:       w.Text,
			Start:      w.Start,
			End:        w.End,
			Confidence: parsed.LanguageProbability,
		})
	}
	return result, nil
}

// elevenLabsCloneResponse is the response of the voice-add endpoint.
type elevenLabsCloneResponse struct {
	VoiceID string `json:"voice_id"`
}

// CloneVoice creates a custom voice from a PCM sample via the voices/add
// endpoint. Samples shorter than MinCloneSampleDuration are rejected locally.
func (s *ElevenLabsService) CloneVoice(
	ctx context.Context, name string, sample []byte, description string,
) (*ClonedVoice, error) {
	if name == "" {
		return nil, provider.NewValidationError("name", "cannot be empty")
	}
	duration := PCMDuration(sample, DefaultSampleRate, Channels, BitDepth)
	if duration < MinCloneSampleDuration {
		return nil, provider.NewValidationError("sample",
			fmt.Sprintf("audio sample is %.1fs, need at least %.0fs",
				duration.Seconds(), MinCloneSampleDuration.Seconds()))
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	if err := writer.WriteField("name", name); err != nil {
		return nil, fmt.Errorf("failed to write name field: %w", err)
	}
	if description != "" {
		if err := writer.WriteField("description", description); err != nil {
			return nil, fmt.Errorf("failed to write description field: %w", err)
		}
	}
	part, err := writer.CreateFormFile("files", "sample.wav")
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(WrapPCMAsWAV(sample, DefaultSampleRate, Channels, BitDepth)); err != nil {
		return nil, fmt.Errorf("failed to write sample data: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(
		ctx, http.MethodPost, s.baseURL+"/voices/add", &buf,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := s.do(ctx, "clone_voice", req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, s.handleError(resp)
	}

	var parsed elevenLabsCloneResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to parse clone response: %w", err)
	}

	logger.Info("voice cloned", "provider", s.Name(), "voice_id", parsed.VoiceID, "name", name)
	return &ClonedVoice{
		VoiceID:   parsed.VoiceID,
		Name:      name,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// elevenLabsVoicesResponse is the response of the voices endpoint.
type elevenLabsVoicesResponse struct {
	Voices []struct {
		VoiceID  string            `json:"voice_id"`
		Name     string            `json:"name"`
		Category string            `json:"category"`
		Labels   map[string]string `json:"labels"`
	} `json:"voices"`
}

// Voices lists available voices, filtered by language when one is given.
func (s *ElevenLabsService) Voices(ctx context.Context, language string) ([]Voice, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/voices", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := s.do(ctx, "voices", req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, s.handleError(resp)
	}

	var parsed elevenLabsVoicesResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to parse voices response: %w", err)
	}

	voices := make([]Voice, 0, len(parsed.Voices))
	for _, v := range parsed.Voices {
		voice := Voice{
			ID:          v.VoiceID,
			Name:        v.Name,
			Language:    v.Labels["language"],
			Description: v.Labels["description"],
			IsCloned:    v.Category == "cloned",
		}
		if language != "" && voice.Language != "" && voice.Language != language {
			continue
		}
		voices = append(voices, voice)
	}
	return voices, nil
}

// Probe checks reachability by listing voices.
func (s *ElevenLabsService) Probe(ctx context.Context) error {
	_, err := s.Voices(ctx, "")
	return err
}

// do applies rate limiting and runs the request, converting transport
// failures into the shared taxonomy.
func (s *ElevenLabsService) do(ctx context.Context, op string, req *http.Request) (*http.Response, error) {
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

// elevenLabsErrorResponse represents an error response from ElevenLabs.
type elevenLabsErrorResponse struct {
	Detail struct {
		Status  string `json:"status"`
		Message string `json:"message"`
	} `json:"detail"`
}

// handleError converts a non-success response into an UpstreamError.
func (s *ElevenLabsService) handleError(resp *http.Response) error {
	upstream := &provider.UpstreamError{
		Provider: s.Name(),
		Status:   resp.StatusCode,
		Message:  "unknown error",
	}

	var errResp elevenLabsErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&errResp); err == nil && errResp.Detail.Message != "" {
		upstream.Code = errResp.Detail.Status
		upstream.Message = errResp.Detail.Message
	}
	return upstream
}
