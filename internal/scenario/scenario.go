// Encounter scripts shaping hostile pressure over a simulation run
package scenario

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Encounter defines a scripted encounter with ordered phases.
type Encounter struct {
	Name        string  `yaml:"name,omitempty"`
	Description string  `yaml:"description,omitempty"`
	Phases      []Phase `yaml:"phases"`
}

// Phase describes one stage of hostile pressure and the triggers that move
// the encounter onward.
type Phase struct {
	Name        string    `yaml:"name"`
	Description string    `yaml:"description,omitempty"`
	CastRate    float64   `yaml:"cast_rate"` // multiplier on the base cast rate
	Triggers    []Trigger `yaml:"triggers,omitempty"`
}

// Trigger advances the encounter to another phase when an event threshold is
// reached.
type Trigger struct {
	Event string `yaml:"event"` // "time_elapsed" (seconds) or "casts_interrupted"
	Value int    `yaml:"value"`
	Next  string `yaml:"next"`
}

// Event is a runtime occurrence that may advance the encounter.
type Event struct {
	Type  string
	Value int
}

// Load reads a YAML encounter definition from disk.
func Load(path string) (*Encounter, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read encounter: %w", err)
	}
	var e Encounter
	if err := yaml.Unmarshal(b, &e); err != nil {
		return nil, fmt.Errorf("parse encounter: %w", err)
	}
	return &e, nil
}

// Lookup returns the phase with the given name.
func (e *Encounter) Lookup(name string) (Phase, bool) {
	for _, p := range e.Phases {
		if p.Name == name {
			return p, true
		}
	}
	return Phase{}, false
}

// NextPhase returns the name of the next phase given the current phase and
// event. If no trigger matches, ok is false.
func (e *Encounter) NextPhase(current string, ev Event) (next string, ok bool) {
	for _, p := range e.Phases {
		if p.Name != current {
			continue
		}
		for _, tr := range p.Triggers {
			if tr.Event == ev.Type && ev.Value >= tr.Value {
				return tr.Next, true
			}
		}
	}
	return "", false
}
