// Package sequence holds declarative lists of timed gamepad steps and the
// executor that plays them through a controller drive.
package sequence

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/AbyssalKaz/Console101Farm/internal/controller"
)

// stepRegistry maps YAML action names to constructors of their step kind.
// Names are matched lowercase.
var stepRegistry = map[string]func() Step{
	"button":          func() Step { return &Button{} },
	"wait":            func() Step { return &Wait{} },
	"stick_forward":   func() Step { return &StickPulse{Direction: "forward"} },
	"stick_back":      func() Step { return &StickPulse{Direction: "back"} },
	"stick_left":      func() Step { return &StickPulse{Direction: "left"} },
	"stick_right":     func() Step { return &StickPulse{Direction: "right"} },
	"stick_hold":      func() Step { return &StickHold{} },
	"stick_release":   func() Step { return &StickRelease{} },
	"trigger_hold":    func() Step { return &TriggerHold{} },
	"trigger_release": func() Step { return &TriggerRelease{} },
}

// Actions returns the registered action names, sorted
func Actions() []string {
	names := make([]string, 0, len(stepRegistry))
	for name := range stepRegistry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Sequence is an ordered list of steps
type Sequence struct {
	Name  string
	Steps []Step
}

// New creates a sequence from steps
func New(name string, steps ...Step) *Sequence {
	return &Sequence{Name: name, Steps: steps}
}

// Len returns the number of steps
func (s *Sequence) Len() int {
	return len(s.Steps)
}

// Validate checks every step
func (s *Sequence) Validate() error {
	for i, step := range s.Steps {
		if err := step.Validate(); err != nil {
			return fmt.Errorf("step %d (%s): %w", i+1, step.Action(), err)
		}
	}
	return nil
}

// Warnings lists steps that load but do nothing when run
func (s *Sequence) Warnings() []string {
	var warnings []string
	for i, step := range s.Steps {
		if b, ok := step.(*Button); ok && !b.Known() {
			warnings = append(warnings, fmt.Sprintf("step %d: unknown button '%s' will be skipped (available buttons: %v)",
				i+1, b.Value, controller.ButtonNames()))
		}
	}
	return warnings
}

// UnmarshalYAML picks the concrete step kind from each entry's 'action' field.
// Unknown actions and invalid fields fail here rather than at execution time.
func (s *Sequence) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var raw map[string]interface{}
	if err := unmarshal(&raw); err != nil {
		return err
	}

	if name, ok := raw["name"].(string); ok {
		s.Name = name
	}

	stepsRaw, ok := raw["steps"]
	if !ok || stepsRaw == nil {
		s.Steps = nil
		return nil
	}

	stepsSlice, ok := stepsRaw.([]interface{})
	if !ok {
		return fmt.Errorf("'steps' field must be a list")
	}

	s.Steps = make([]Step, len(stepsSlice))
	for i, entry := range stepsSlice {
		step, err := unmarshalStep(entry)
		if err != nil {
			return fmt.Errorf("step %d: %w", i+1, err)
		}
		s.Steps[i] = step
	}
	return nil
}

func unmarshalStep(entry interface{}) (Step, error) {
	rawStep, ok := entry.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("must be a map/object")
	}

	action, ok := rawStep["action"].(string)
	if !ok || action == "" {
		return nil, fmt.Errorf("missing or invalid 'action' field")
	}

	newStep, found := stepRegistry[strings.ToLower(strings.TrimSpace(action))]
	if !found {
		return nil, fmt.Errorf("unknown action '%s' (available actions: %v)", action, Actions())
	}
	step := newStep()

	stepBytes, err := yaml.Marshal(rawStep)
	if err != nil {
		return nil, fmt.Errorf("(%s) error marshaling raw step: %w", action, err)
	}
	if err := yaml.Unmarshal(stepBytes, step); err != nil {
		return nil, fmt.Errorf("(%s) error unmarshaling into %T: %w", action, step, err)
	}

	if err := step.Validate(); err != nil {
		return nil, fmt.Errorf("(%s) %w", action, err)
	}
	return step, nil
}

type sequenceFile struct {
	Name  string                   `yaml:"name,omitempty"`
	Steps []map[string]interface{} `yaml:"steps"`
}

// MarshalYAML writes each step as a flat map with its action name
func (s Sequence) MarshalYAML() (interface{}, error) {
	out := sequenceFile{Name: s.Name, Steps: make([]map[string]interface{}, 0, len(s.Steps))}
	for i, step := range s.Steps {
		data, err := yaml.Marshal(step)
		if err != nil {
			return nil, fmt.Errorf("step %d (%s): %w", i+1, step.Action(), err)
		}
		fields := map[string]interface{}{}
		if err := yaml.Unmarshal(data, &fields); err != nil {
			return nil, fmt.Errorf("step %d (%s): %w", i+1, step.Action(), err)
		}
		if fields == nil {
			fields = map[string]interface{}{}
		}
		fields["action"] = step.Action()
		out.Steps = append(out.Steps, fields)
	}
	return out, nil
}

// LoadFromFile reads and validates a sequence file
func LoadFromFile(path string) (*Sequence, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read sequence file %s: %w", path, err)
	}

	var seq Sequence
	if err := yaml.Unmarshal(data, &seq); err != nil {
		return nil, fmt.Errorf("failed to parse sequence file %s: %w", path, err)
	}
	return &seq, nil
}

// Save writes the sequence as YAML, creating parent directories
func (s *Sequence) Save(path string) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to marshal sequence: %w", err)
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write sequence file: %w", err)
	}
	return nil
}

// LoadOrCreate loads path, or writes fallback there when the file does not exist.
// created reports whether the fallback was written.
func LoadOrCreate(path string, fallback *Sequence) (seq *Sequence, created bool, err error) {
	if _, statErr := os.Stat(path); errors.Is(statErr, os.ErrNotExist) {
		if err := fallback.Save(path); err != nil {
			return nil, false, err
		}
		return fallback, true, nil
	}

	seq, err = LoadFromFile(path)
	if err != nil {
		return nil, false, err
	}
	return seq, false, nil
}
