package provider

// Metrics records which adapter served a request and how long the serving
// attempt took. When a fallback serves the request, LatencyMs covers only the
// fallback call, never the failed primary attempt.
type Metrics struct {
	// Provider is the name of the adapter that ultimately served the request.
	Provider string `json:"provider"`

	// Model is the model identifier the serving adapter targeted.
	Model string `json:"model"`

	// LatencyMs is the serving call duration in milliseconds.
	LatencyMs int64 `json:"latency_ms"`

	// UsedFallback is true when the fallback adapter served the request.
	UsedFallback bool `json:"used_fallback,omitempty"`
}

// Status describes a configured capability for operational dashboards.
type Status struct {
	// Configured is true when a primary adapter exists.
	Configured bool `json:"configured"`

	// Provider is the primary adapter name.
	Provider string `json:"provider,omitempty"`

	// Model is the primary adapter's model identifier.
	Model string `json:"model,omitempty"`

	// Fallback is the fallback adapter name, empty when none is configured.
	Fallback string `json:"fallback,omitempty"`
}
