// WebSocket streaming synthesis for ElevenLabs. The stream-input endpoint
// returns base64 audio chunks as they are generated, giving much lower
// first-byte latency than the REST endpoint.
package speech

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/helioscale/voicekit/metrics/prometheus"
	"github.com/helioscale/voicekit/provider"
	"github.com/helioscale/voicekit/telemetry"
)

// elevenLabsWSMessage is an outbound message on the stream-input socket.
type elevenLabsWSMessage struct {
	Text                 string                   `json:"text"`
	VoiceSettings        *elevenLabsVoiceSettings `json:"voice_settings,omitempty"`
	TryTriggerGeneration bool                     `json:"try_trigger_generation,omitempty"`
}

// elevenLabsWSResponse is an inbound message on the stream-input socket.
type elevenLabsWSResponse struct {
	Audio   string `json:"audio"` // Base64-encoded audio
	IsFinal bool   `json:"isFinal"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}

// SynthesizeStream converts text to audio with streaming output over a
// WebSocket. The returned channel is closed when synthesis completes or
// fails; the connection is closed on every exit path, including consumer
// abandonment via ctx.
//
//nolint:gocritic // hugeParam: SynthesisConfig passed by value to satisfy Service interface
func (s *ElevenLabsService) SynthesizeStream(
	ctx context.Context, text string, config SynthesisConfig,
) (<-chan AudioChunk, error) {
	if text == "" {
		return nil, ErrEmptyText
	}

	voice := config.VoiceID
	if voice == "" {
		voice = elevenLabsDefaultVoice
	}

	wsURL := fmt.Sprintf("%s/text-to-speech/%s/stream-input?model_id=%s&output_format=%s",
		s.wsURL, voice, s.model, outputFormat(config.rate()))

	header := http.Header{}
	header.Set("xi-api-key", s.cred.APIKey())
	telemetry.InjectTraceHeaders(ctx, header)

	dialer := websocket.DefaultDialer
	conn, resp, err := dialer.DialContext(ctx, wsURL, header)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return nil, provider.WrapTransport(s.Name(), "synthesize_stream", err)
	}

	// Opening message carries the voice settings, then the text, then an
	// empty message to signal end of input.
	messages := []elevenLabsWSMessage{
		{Text: " ", VoiceSettings: settingsFor(config)},
		{Text: text, TryTriggerGeneration: true},
		{Text: ""},
	}
	for _, msg := range messages {
		if err := conn.WriteJSON(msg); err != nil {
			_ = conn.Close()
			return nil, provider.WrapTransport(s.Name(), "synthesize_stream", err)
		}
	}

	chunks := make(chan AudioChunk, streamChannelBuffer)
	go s.readStreamResponses(ctx, conn, chunks)
	return chunks, nil
}

// readStreamResponses reads audio chunks from the WebSocket connection.
// Every send races ctx so an abandoned consumer with a full channel buffer
// cannot wedge the goroutine and leak the connection.
func (s *ElevenLabsService) readStreamResponses(
	ctx context.Context, conn *websocket.Conn, chunks chan<- AudioChunk,
) {
	defer close(chunks)
	defer conn.Close()

	index := 0
	for {
		if ctx.Err() != nil {
			s.sendChunk(ctx, chunks, AudioChunk{Index: index, Error: ctx.Err()})
			return
		}

		var resp elevenLabsWSResponse
		if err := conn.ReadJSON(&resp); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				s.sendChunk(ctx, chunks, AudioChunk{Index: index, Error: provider.WrapTransport(s.Name(), "synthesize_stream", err)})
			}
			return
		}

		if resp.Error != "" {
			s.sendChunk(ctx, chunks, AudioChunk{Index: index, Error: &provider.UpstreamError{
				Provider: s.Name(),
				Code:     resp.Error,
				Message:  resp.Message,
			}})
			return
		}

		if resp.Audio != "" {
			data, err := base64.StdEncoding.DecodeString(resp.Audio)
			if err != nil {
				s.sendChunk(ctx, chunks, AudioChunk{Index: index, Error: err})
				return
			}
			prometheus.RecordStreamChunk(s.Name(), len(data))

			select {
			case chunks <- AudioChunk{Data: data, Index: index, Final: resp.IsFinal}:
				index++
			case <-ctx.Done():
				return
			}
		}

		if resp.IsFinal {
			return
		}
	}
}

// sendChunk delivers a chunk unless the consumer has gone away.
func (s *ElevenLabsService) sendChunk(ctx context.Context, chunks chan<- AudioChunk, chunk AudioChunk) {
	select {
	case chunks <- chunk:
	case <-ctx.Done():
	}
}
