package emotion

import (
	_ "embed"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultAgentType is the preset table consulted when a request names an
// unknown agent type.
const DefaultAgentType = "general"

// defaultScenario is the mandatory per-agent fallback scenario key.
const defaultScenario = "default"

//go:embed presets.yaml
var embeddedPresets []byte

// Presets maps agent type to scenario to emotion tag. The table is built once
// at startup and never mutated afterwards.
type Presets map[string]map[string]string

// LoadPresets parses a preset table from r and validates it: every tag must
// be a vocabulary member, every agent type must carry a "default" scenario,
// and the designated default agent type must be present.
func LoadPresets(r io.Reader) (Presets, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read presets: %w", err)
	}

	var table Presets
	if err := yaml.Unmarshal(data, &table); err != nil {
		return nil, fmt.Errorf("failed to parse presets: %w", err)
	}

	if err := table.validate(); err != nil {
		return nil, err
	}
	return table, nil
}

// LoadPresetsFile loads a preset table from a file path.
func LoadPresetsFile(path string) (Presets, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open presets file: %w", err)
	}
	defer f.Close()
	return LoadPresets(f)
}

// DefaultPresets returns the preset table embedded in the binary.
// The embedded table is validated by tests, so a parse failure here is a
// build defect and panics rather than returning an error.
func DefaultPresets() Presets {
	var table Presets
	if err := yaml.Unmarshal(embeddedPresets, &table); err != nil {
		panic("embedded emotion presets are malformed: " + err.Error())
	}
	if err := table.validate(); err != nil {
		panic("embedded emotion presets are invalid: " + err.Error())
	}
	return table
}

func (p Presets) validate() error {
	if len(p) == 0 {
		return fmt.Errorf("preset table is empty")
	}
	if _, ok := p[DefaultAgentType]; !ok {
		return fmt.Errorf("preset table is missing the %q agent type", DefaultAgentType)
	}
	for agentType, scenarios := range p {
		if _, ok := scenarios[defaultScenario]; !ok {
			return fmt.Errorf("agent type %q has no default scenario", agentType)
		}
		for scenario, tag := range scenarios {
			if !IsValid(tag) {
				return fmt.Errorf("agent type %q scenario %q names unknown tag %q",
					agentType, scenario, tag)
			}
		}
	}
	return nil
}

// Lookup returns the tag for (agentType, scenario), walking the fallback
// chain: exact scenario, then the agent type's default, then the default
// agent type's table when agentType itself is unknown.
func (p Presets) Lookup(agentType, scenario string) string {
	scenarios, ok := p[agentType]
	if !ok {
		scenarios = p[DefaultAgentType]
	}
	if tag, ok := scenarios[scenario]; ok {
		return tag
	}
	return scenarios[defaultScenario]
}
