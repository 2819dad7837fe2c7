package emotion

import "github.com/helioscale/voicekit/logger"

// Resolver picks the effective emotion tag for an utterance from an immutable
// preset table.
type Resolver struct {
	presets Presets
}

// NewResolver creates a resolver over the given preset table.
// A nil table uses the embedded defaults.
func NewResolver(presets Presets) *Resolver {
	if presets == nil {
		presets = DefaultPresets()
	}
	return &Resolver{presets: presets}
}

// Request carries the inputs considered during resolution. All fields are
// optional; a zero Request resolves to Neutral.
type Request struct {
	// Override is an explicit caller-chosen tag. It wins when valid.
	Override string

	// AgentType and Scenario select a contextual preset.
	AgentType string
	Scenario  string

	// FreeText enables keyword-based detection when no preset applies.
	FreeText string
}

// Resolve applies the resolution order, first match wins:
// a valid override, then the preset table when both agent type and scenario
// are given, then free-text keyword detection, then Neutral. The returned tag
// is always a vocabulary member.
func (r *Resolver) Resolve(req Request) string {
	if req.Override != "" {
		if IsValid(req.Override) {
			return req.Override
		}
		logger.Warn("ignoring invalid emotion override", "tag", req.Override)
	}

	if req.AgentType != "" && req.Scenario != "" {
		return Validate(r.presets.Lookup(req.AgentType, req.Scenario))
	}

	if req.FreeText != "" {
		return DetectFromText(req.FreeText)
	}

	return Neutral
}

// Presets exposes the resolver's table for status reporting.
func (r *Resolver) Presets() Presets {
	return r.presets
}
