package config

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// ParseSweepYAML parses a Sweep from YAML bytes on top of the built-in
// defaults and validates it. Lists given in the document replace the defaults.
func ParseSweepYAML(data []byte) (*Sweep, error) {
	sweep := Default()
	if err := yaml.Unmarshal(data, sweep); err != nil {
		return nil, fmt.Errorf("failed to parse sweep yaml: %w", err)
	}

	if err := validateSweep(sweep); err != nil {
		return nil, fmt.Errorf("invalid sweep: %w", err)
	}

	return sweep, nil
}

// ParseSweepYAMLString parses a Sweep from a YAML string and validates it.
func ParseSweepYAMLString(yamlText string) (*Sweep, error) {
	return ParseSweepYAML([]byte(yamlText))
}

// MarshalSweepYAML renders a sweep back to YAML, e.g. for `psweep init`.
func MarshalSweepYAML(sweep *Sweep) ([]byte, error) {
	out, err := yaml.Marshal(sweep)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal sweep yaml: %w", err)
	}
	return out, nil
}
