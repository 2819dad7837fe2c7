package speech

import (
	"bytes"
	"context"
	"errors"
	"io"

	"github.com/helioscale/voicekit/metrics/prometheus"
)

const (
	// streamChannelBuffer is the buffer size for streaming audio chunks.
	streamChannelBuffer = 64

	// streamReadSize is the read size per chunk when pumping an HTTP body.
	streamReadSize = 4096
)

// pumpReader turns an io.ReadCloser into a chunk channel. The reader is
// closed on every exit path: normal end-of-stream, read error, and consumer
// abandonment via ctx. Chunks already yielded before a mid-stream error stay
// valid; the error chunk marks the result as incomplete, not invalid.
func pumpReader(ctx context.Context, providerName string, body io.ReadCloser) <-chan AudioChunk {
	chunks := make(chan AudioChunk, streamChannelBuffer)

	go func() {
		defer close(chunks)
		defer body.Close()

		index := 0
		buf := make([]byte, streamReadSize)
		for {
			n, err := body.Read(buf)
			if n > 0 {
				data := make([]byte, n)
				copy(data, buf[:n])
				prometheus.RecordStreamChunk(providerName, n)

				select {
				case chunks <- AudioChunk{Data: data, Index: index}:
					index++
				case <-ctx.Done():
					return
				}
			}
			if err != nil {
				if errors.Is(err, io.EOF) {
					select {
					case chunks <- AudioChunk{Index: index, Final: true}:
					case <-ctx.Done():
					}
					return
				}
				select {
				case chunks <- AudioChunk{Index: index, Error: err}:
				case <-ctx.Done():
				}
				return
			}
		}
	}()

	return chunks
}

// Collect drains a chunk channel into one buffer. It returns the audio
// received so far plus the stream error, if any; partial audio is returned
// alongside the error so callers can decide what to do with it.
func Collect(chunks <-chan AudioChunk) ([]byte, error) {
	var buf bytes.Buffer
	for chunk := range chunks {
		if chunk.Error != nil {
			return buf.Bytes(), chunk.Error
		}
		buf.Write(chunk.Data)
	}
	return buf.Bytes(), nil
}
