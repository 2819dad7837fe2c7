package llm

import (
	"context"
	"sync/atomic"
)

// MockProvider is a configurable in-memory Provider for tests and offline
// development. It records how many calls it has served.
type MockProvider struct {
	// IDValue and ModelValue are returned by ID and Model.
	IDValue    string
	ModelValue string

	// Response is returned by Generate when Err is nil.
	Response string

	// Err, when set, is returned by Generate and Probe.
	Err error

	calls atomic.Int64
}

// ID returns the mock's identifier.
func (m *MockProvider) ID() string {
	if m.IDValue == "" {
		return "mock"
	}
	return m.IDValue
}

// Model returns the mock's model identifier.
func (m *MockProvider) Model() string {
	if m.ModelValue == "" {
		return "mock-model"
	}
	return m.ModelValue
}

// Generate returns the configured response or error.
func (m *MockProvider) Generate(_ context.Context, _, _ string) (string, error) {
	m.calls.Add(1)
	if m.Err != nil {
		return "", m.Err
	}
	return m.Response, nil
}

// Probe returns the configured error.
func (m *MockProvider) Probe(_ context.Context) error {
	m.calls.Add(1)
	return m.Err
}

// Close is a no-op.
func (m *MockProvider) Close() error {
	return nil
}

// Calls returns the number of Generate and Probe invocations observed.
func (m *MockProvider) Calls() int64 {
	return m.calls.Load()
}
