package health

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubProber struct {
	err   error
	delay time.Duration
}

func (s *stubProber) Probe(ctx context.Context) error {
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return s.err
}

func TestCheck_AllHealthy(t *testing.T) {
	monitor := NewMonitor()
	monitor.Register("speech", "elevenlabs", &stubProber{})
	monitor.Register("text-generation", "anthropic", &stubProber{})

	report := monitor.Check(context.Background())

	assert.True(t, report.Healthy)
	require.Len(t, report.Components, 2)
	assert.Equal(t, StatusHealthy, report.Components["speech"].Status)
	assert.Equal(t, "elevenlabs", report.Components["speech"].Provider)
	assert.Equal(t, StatusHealthy, report.Components["text-generation"].Status)
	assert.False(t, report.CheckedAt.IsZero())
}

func TestCheck_FailuresNeverEscape(t *testing.T) {
	monitor := NewMonitor()
	monitor.Register("speech", "elevenlabs", &stubProber{err: errors.New("connection refused")})
	monitor.Register("text-generation", "anthropic", &stubProber{err: errors.New("401 unauthorized")})

	// Check has no error return at all; every failure lands in the report.
	report := monitor.Check(context.Background())

	assert.False(t, report.Healthy)
	assert.Equal(t, StatusUnhealthy, report.Components["speech"].Status)
	assert.Contains(t, report.Components["speech"].Error, "connection refused")
	assert.Equal(t, StatusUnhealthy, report.Components["text-generation"].Status)
}

func TestCheck_PartialFailure(t *testing.T) {
	monitor := NewMonitor()
	monitor.Register("speech", "elevenlabs", &stubProber{})
	monitor.Register("text-generation", "anthropic", &stubProber{err: errors.New("down")})

	report := monitor.Check(context.Background())

	assert.False(t, report.Healthy, "one unhealthy component fails the aggregate")
	assert.Equal(t, StatusHealthy, report.Components["speech"].Status)
	assert.Equal(t, StatusUnhealthy, report.Components["text-generation"].Status)
}

func TestCheck_NotConfigured(t *testing.T) {
	monitor := NewMonitor()
	monitor.Register("speech", "elevenlabs", &stubProber{})
	monitor.Register("text-generation", "", nil)

	report := monitor.Check(context.Background())

	assert.True(t, report.Healthy, "a missing provider is not a failure")
	assert.Equal(t, StatusNotConfigured, report.Components["text-generation"].Status)
}

func TestCheck_SlowProbeTimesOut(t *testing.T) {
	monitor := NewMonitor()
	monitor.Register("speech", "elevenlabs", &stubProber{delay: 10 * time.Second})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	report := monitor.Check(ctx)

	assert.Less(t, time.Since(start), 2*time.Second, "a stalled probe must not block the report")
	assert.Equal(t, StatusUnhealthy, report.Components["speech"].Status)
}

func TestCheck_Empty(t *testing.T) {
	report := NewMonitor().Check(context.Background())
	assert.True(t, report.Healthy)
	assert.Empty(t, report.Components)
}
