package prometheus

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExporter_ServesRecordedMetrics(t *testing.T) {
	RecordProviderRequest("elevenlabs", "synthesize", 120*time.Millisecond, nil)
	RecordProviderRequest("anthropic", "generate", 80*time.Millisecond, errors.New("boom"))
	RecordFallback("text-generation")
	RecordStreamChunk("elevenlabs", 4096)
	RecordHealthStatus("tts", true)
	RecordHealthStatus("stt", false)

	exporter := NewExporter(":0")
	server := httptest.NewServer(exporter.Handler())
	defer server.Close()

	resp, err := http.Get(server.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	text := string(body)

	assert.Contains(t, text, `voicekit_provider_requests_total{operation="synthesize",provider="elevenlabs",status="success"}`)
	assert.Contains(t, text, `voicekit_provider_requests_total{operation="generate",provider="anthropic",status="error"}`)
	assert.Contains(t, text, `voicekit_fallbacks_total{capability="text-generation"}`)
	assert.Contains(t, text, `voicekit_stream_chunks_total{provider="elevenlabs"}`)
	assert.Contains(t, text, `voicekit_health_check_status{service="tts"} 1`)
	assert.Contains(t, text, `voicekit_health_check_status{service="stt"} 0`)
}

func TestExporter_StartAndShutdown(t *testing.T) {
	exporter := NewExporter("127.0.0.1:0")

	errCh := make(chan error, 1)
	go func() {
		errCh <- exporter.Start()
	}()

	// Shutdown should unblock Start with ErrServerClosed.
	time.Sleep(50 * time.Millisecond)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, exporter.Shutdown(ctx))

	select {
	case err := <-errCh:
		if err != nil && !strings.Contains(err.Error(), "Server closed") {
			t.Fatalf("Start() returned unexpected error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Start() did not return after Shutdown")
	}
}
