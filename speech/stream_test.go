package speech

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync/atomic"
	"testing"
)

// trackingReadCloser counts Close calls on a wrapped reader.
type trackingReadCloser struct {
	io.Reader
	closes atomic.Int32
}

func (t *trackingReadCloser) Close() error {
	t.closes.Add(1)
	return nil
}

// errAfterReader yields data once, then fails.
type errAfterReader struct {
	data []byte
	read bool
	err  error
}

func (r *errAfterReader) Read(p []byte) (int, error) {
	if !r.read {
		r.read = true
		return copy(p, r.data), nil
	}
	return 0, r.err
}

func TestPumpReader_ChunksAndSingleClose(t *testing.T) {
	payload := bytes.Repeat([]byte{0xab}, 3*streamReadSize)
	body := &trackingReadCloser{Reader: bytes.NewReader(payload)}

	chunks := pumpReader(context.Background(), "test", body)

	var received [][]byte
	var finals int
	for chunk := range chunks {
		if chunk.Error != nil {
			t.Fatalf("unexpected stream error: %v", chunk.Error)
		}
		if chunk.Final {
			finals++
			continue
		}
		if chunk.Index != len(received) {
			t.Errorf("chunk index = %d, want %d", chunk.Index, len(received))
		}
		received = append(received, chunk.Data)
	}

	if len(received) != 3 {
		t.Errorf("received %d data chunks, want 3", len(received))
	}
	if finals != 1 {
		t.Errorf("received %d final chunks, want exactly 1", finals)
	}
	var total int
	for _, data := range received {
		total += len(data)
	}
	if total != len(payload) {
		t.Errorf("received %d bytes, want %d", total, len(payload))
	}
	if got := body.closes.Load(); got != 1 {
		t.Errorf("body closed %d times, want exactly 1", got)
	}
}

func TestPumpReader_MidStreamError(t *testing.T) {
	readErr := errors.New("connection reset")
	body := &trackingReadCloser{Reader: &errAfterReader{data: []byte{1, 2, 3}, err: readErr}}

	chunks := pumpReader(context.Background(), "test", body)

	var sawData, sawError bool
	for chunk := range chunks {
		switch {
		case chunk.Error != nil:
			sawError = true
			if !errors.Is(chunk.Error, readErr) {
				t.Errorf("error chunk carries %v, want %v", chunk.Error, readErr)
			}
		case chunk.Final:
			t.Error("stream must not report Final after an error")
		default:
			sawData = true
		}
	}

	if !sawData {
		t.Error("expected the pre-error data chunk to be delivered")
	}
	if !sawError {
		t.Error("expected an error chunk")
	}
	if got := body.closes.Load(); got != 1 {
		t.Errorf("body closed %d times, want exactly 1", got)
	}
}

func TestCollect(t *testing.T) {
	chunks := make(chan AudioChunk, 4)
	chunks <- AudioChunk{Data: []byte{1, 2}, Index: 0}
	chunks <- AudioChunk{Data: []byte{3}, Index: 1}
	chunks <- AudioChunk{Index: 2, Final: true}
	close(chunks)

	audio, err := Collect(chunks)
	if err != nil {
		t.Fatalf("Collect() error = %v", err)
	}
	if !bytes.Equal(audio, []byte{1, 2, 3}) {
		t.Errorf("Collect() = %v, want [1 2 3]", audio)
	}
}

func TestCollect_PartialOnError(t *testing.T) {
	streamErr := errors.New("boom")
	chunks := make(chan AudioChunk, 4)
	chunks <- AudioChunk{Data: []byte{1, 2}, Index: 0}
	chunks <- AudioChunk{Index: 1, Error: streamErr}
	close(chunks)

	audio, err := Collect(chunks)
	if !errors.Is(err, streamErr) {
		t.Fatalf("Collect() error = %v, want %v", err, streamErr)
	}
	if !bytes.Equal(audio, []byte{1, 2}) {
		t.Errorf("Collect() partial = %v, want [1 2]", audio)
	}
}
