// Package health probes configured providers and reports component status.
// A health check is diagnostic output, not a request path: Check always
// returns a report, and a provider failure shows up as an unhealthy
// component, never as an error.
package health

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/helioscale/voicekit/logger"
	"github.com/helioscale/voicekit/metrics/prometheus"
)

// Status is the health state of one component.
type Status string

const (
	// StatusHealthy means the component's probe succeeded.
	StatusHealthy Status = "healthy"

	// StatusUnhealthy means the component's probe failed.
	StatusUnhealthy Status = "unhealthy"

	// StatusNotConfigured means the component has no provider behind it.
	StatusNotConfigured Status = "not_configured"
)

// probeTimeout bounds each individual probe so one slow provider cannot
// stall the whole report.
const probeTimeout = 5 * time.Second

// Prober is anything that can answer a reachability probe. Both capability
// factories satisfy it.
type Prober interface {
	Probe(ctx context.Context) error
}

// Component is the probe result for one named component.
type Component struct {
	// Status is the component's health state.
	Status Status `json:"status"`

	// Provider identifies the provider behind the component, when known.
	Provider string `json:"provider,omitempty"`

	// LatencyMs is the probe round-trip time. Zero when not configured.
	LatencyMs int64 `json:"latency_ms,omitempty"`

	// Error carries the probe failure message for unhealthy components.
	Error string `json:"error,omitempty"`
}

// Report is a point-in-time snapshot of every registered component.
type Report struct {
	// Healthy is true when every configured component is healthy.
	Healthy bool `json:"healthy"`

	// Components maps component name to probe result.
	Components map[string]Component `json:"components"`

	// CheckedAt is when the probes ran.
	CheckedAt time.Time `json:"checked_at"`
}

// target is one registered probe.
type target struct {
	name     string
	provider string
	prober   Prober
}

// Monitor runs reachability probes against registered components.
type Monitor struct {
	targets []target
}

// NewMonitor creates an empty monitor. Components are attached with
// Register; a component registered with a nil prober reports
// StatusNotConfigured.
func NewMonitor() *Monitor {
	return &Monitor{}
}

// Register attaches a named component. providerName is informational and
// may be empty.
func (m *Monitor) Register(name, providerName string, p Prober) {
	m.targets = append(m.targets, target{name: name, provider: providerName, prober: p})
}

// Check probes every registered component concurrently and always returns a
// complete report. Probe failures are folded into the report, not returned.
func (m *Monitor) Check(ctx context.Context) Report {
	report := Report{
		Healthy:    true,
		Components: make(map[string]Component, len(m.targets)),
		CheckedAt:  time.Now().UTC(),
	}

	var mu sync.Mutex
	g, ctx := errgroup.WithContext(ctx)

	for _, tgt := range m.targets {
		g.Go(func() error {
			component := m.probe(ctx, tgt)

			mu.Lock()
			report.Components[tgt.name] = component
			if component.Status == StatusUnhealthy {
				report.Healthy = false
			}
			mu.Unlock()
			return nil
		})
	}

	// Probes never return errors, so Wait only synchronizes.
	_ = g.Wait()
	return report
}

func (m *Monitor) probe(ctx context.Context, tgt target) Component {
	if tgt.prober == nil {
		prometheus.RecordHealthStatus(tgt.name, false)
		return Component{Status: StatusNotConfigured, Provider: tgt.provider}
	}

	probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	start := time.Now()
	err := tgt.prober.Probe(probeCtx)
	latency := time.Since(start).Milliseconds()

	if err != nil {
		logger.Warn("health probe failed", "component", tgt.name, "error", err)
		prometheus.RecordHealthStatus(tgt.name, false)
		return Component{
			Status:    StatusUnhealthy,
			Provider:  tgt.provider,
			LatencyMs: latency,
			Error:     err.Error(),
		}
	}

	prometheus.RecordHealthStatus(tgt.name, true)
	return Component{
		Status:    StatusHealthy,
		Provider:  tgt.provider,
		LatencyMs: latency,
	}
}
