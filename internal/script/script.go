// Package script loads and replays YAML event scripts against a coordinator
// with a simulated clock. Scripts double as executable regression cases for
// bridge echo and arbitration scenarios.
package script

import (
	"fmt"
	"os"
	"sort"
	"time"

	"gopkg.in/yaml.v3"
)

// Step is one scripted event. At is the offset from script start. Payload
// carries the kind-specific fields using the wire names. Expect, when set,
// asserts the active key after the step ("none" for idle).
type Step struct {
	At      string         `yaml:"at"`
	Kind    string         `yaml:"kind"`
	Key     string         `yaml:"key"`
	Package string         `yaml:"package,omitempty"`
	Payload map[string]any `yaml:"payload,omitempty"`
	Expect  string         `yaml:"expect,omitempty"`

	offset time.Duration
}

// Offset returns the parsed step offset.
func (s *Step) Offset() time.Duration {
	return s.offset
}

// Script is a named sequence of steps.
type Script struct {
	Name  string `yaml:"name"`
	Steps []Step `yaml:"steps"`
}

// Load reads and validates a script file.
func Load(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read script: %w", err)
	}
	return Parse(data)
}

// Parse validates script YAML.
func Parse(data []byte) (*Script, error) {
	var sc Script
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("failed to parse script: %w", err)
	}
	if len(sc.Steps) == 0 {
		return nil, fmt.Errorf("script has no steps")
	}

	for i := range sc.Steps {
		st := &sc.Steps[i]
		if st.Kind == "" {
			return nil, fmt.Errorf("step %d: missing kind", i+1)
		}
		if st.At == "" {
			st.offset = 0
			continue
		}
		d, err := time.ParseDuration(st.At)
		if err != nil {
			return nil, fmt.Errorf("step %d: invalid offset %q: %w", i+1, st.At, err)
		}
		if d < 0 {
			return nil, fmt.Errorf("step %d: offset must not be negative", i+1)
		}
		st.offset = d
	}

	// Steps replay in time order regardless of file order
	sort.SliceStable(sc.Steps, func(a, b int) bool {
		return sc.Steps[a].offset < sc.Steps[b].offset
	})

	return &sc, nil
}
