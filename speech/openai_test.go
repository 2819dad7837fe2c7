package speech

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/helioscale/voicekit/provider"
)

func TestNewOpenAISpeech_MissingKey(t *testing.T) {
	_, err := NewOpenAISpeech("")
	if !errors.Is(err, provider.ErrMissingCredential) {
		t.Errorf("NewOpenAISpeech(\"\") error = %v, want ErrMissingCredential", err)
	}
}

func TestOpenAISpeech_Synthesize(t *testing.T) {
	var captured openAISpeechRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != openAISpeechEndpoint {
			t.Errorf("Path = %v, want %v", r.URL.Path, openAISpeechEndpoint)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer test-key" {
			t.Errorf("Authorization = %v, want Bearer test-key", auth)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Fatalf("Failed to decode request: %v", err)
		}
		w.Write([]byte("pcm bytes"))
	}))
	defer server.Close()

	service, _ := NewOpenAISpeech("test-key", WithOpenAIBaseURL(server.URL))

	reader, err := service.Synthesize(context.Background(), "Hello", SynthesisConfig{
		Emotion: "apologetic",
	})
	if err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}
	defer reader.Close()

	data, _ := io.ReadAll(reader)
	if string(data) != "pcm bytes" {
		t.Errorf("data = %v, want pcm bytes", string(data))
	}

	if captured.ResponseFormat != "pcm" {
		t.Errorf("ResponseFormat = %v, want pcm", captured.ResponseFormat)
	}
	if captured.Voice != openAIDefaultVoice {
		t.Errorf("Voice = %v, want %v", captured.Voice, openAIDefaultVoice)
	}
	if captured.Instructions != "Speak in a apologetic tone." {
		t.Errorf("Instructions = %v, want apologetic tone instruction", captured.Instructions)
	}
}

func TestOpenAISpeech_Synthesize_NeutralHasNoInstruction(t *testing.T) {
	if got := instructionFor("neutral"); got != "" {
		t.Errorf("instructionFor(neutral) = %q, want empty", got)
	}
	if got := instructionFor(""); got != "" {
		t.Errorf("instructionFor(\"\") = %q, want empty", got)
	}
}

func TestOpenAISpeech_Synthesize_ForeignVoiceFallsBack(t *testing.T) {
	// An ElevenLabs voice ID is meaningless on this vendor.
	if got := voiceFor("21m00Tcm4TlvDq8ikWAM"); got != openAIDefaultVoice {
		t.Errorf("voiceFor(foreign) = %v, want %v", got, openAIDefaultVoice)
	}
	if got := voiceFor("nova"); got != "nova" {
		t.Errorf("voiceFor(nova) = %v, want nova", got)
	}
}

func TestOpenAISpeech_SynthesizeStream_PumpsBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte{1, 2, 3, 4})
	}))
	defer server.Close()

	service, _ := NewOpenAISpeech("test-key", WithOpenAIBaseURL(server.URL))

	chunks, err := service.SynthesizeStream(context.Background(), "Hello", SynthesisConfig{})
	if err != nil {
		t.Fatalf("SynthesizeStream() error = %v", err)
	}

	audio, err := Collect(chunks)
	if err != nil {
		t.Fatalf("Collect() error = %v", err)
	}
	if len(audio) != 4 {
		t.Errorf("len(audio) = %d, want 4", len(audio))
	}
}

func TestOpenAISpeech_Transcribe(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != openAITranscribeEndpoint {
			t.Errorf("Path = %v, want %v", r.URL.Path, openAITranscribeEndpoint)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("ParseMultipartForm() error = %v", err)
		}
		if model := r.FormValue("model"); model != OpenAIModelWhisper {
			t.Errorf("model = %v, want %v", model, OpenAIModelWhisper)
		}
		if format := r.FormValue("response_format"); format != "verbose_json" {
			t.Errorf("response_format = %v, want verbose_json", format)
		}

		json.NewEncoder(w).Encode(map[string]any{
			"text": "good morning",
			"words": []map[string]any{
				{"word": "good", "start": 0.0, "end": 0.3},
				{"word": "morning", "start": 0.3, "end": 0.8},
			},
		})
	}))
	defer server.Close()

	service, _ := NewOpenAISpeech("test-key", WithOpenAIBaseURL(server.URL))

	result, err := service.Transcribe(context.Background(), []byte{0, 1}, TranscriptionConfig{})
	if err != nil {
		t.Fatalf("Transcribe() error = %v", err)
	}

	if result.Text != "good morning" {
		t.Errorf("Text = %v, want good morning", result.Text)
	}
	if len(result.Words) != 2 {
		t.Errorf("len(Words) = %d, want 2", len(result.Words))
	}
}

func TestOpenAISpeech_CloneVoice_Unsupported(t *testing.T) {
	service, _ := NewOpenAISpeech("test-key")
	_, err := service.CloneVoice(context.Background(), "x", make([]byte, 300000), "")
	if !errors.Is(err, errors.ErrUnsupported) {
		t.Errorf("CloneVoice() error = %v, want ErrUnsupported", err)
	}
}

func TestOpenAISpeech_Voices_StaticCatalog(t *testing.T) {
	service, _ := NewOpenAISpeech("test-key")
	voices, err := service.Voices(context.Background(), "en")
	if err != nil {
		t.Fatalf("Voices() error = %v", err)
	}
	if len(voices) != len(openAIVoices) {
		t.Errorf("len(voices) = %d, want %d", len(voices), len(openAIVoices))
	}
}

func TestOpenAISpeech_Synthesize_UpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]string{
				"message": "Rate limit exceeded",
				"type":    "requests",
				"code":    "rate_limit_exceeded",
			},
		})
	}))
	defer server.Close()

	service, _ := NewOpenAISpeech("test-key", WithOpenAIBaseURL(server.URL))

	_, err := service.Synthesize(context.Background(), "Hello", SynthesisConfig{})

	var upstream *provider.UpstreamError
	if !errors.As(err, &upstream) {
		t.Fatalf("Synthesize() error = %T, want *provider.UpstreamError", err)
	}
	if upstream.Status != http.StatusTooManyRequests {
		t.Errorf("Status = %v, want 429", upstream.Status)
	}
	if upstream.Code != "rate_limit_exceeded" {
		t.Errorf("Code = %v, want rate_limit_exceeded", upstream.Code)
	}
}
