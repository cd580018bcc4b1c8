package scenario

import (
	"os"
	"testing"
)

func TestBuiltIn_Arcs(t *testing.T) {
	arcs := BuiltIn()
	for _, name := range []string{"skirmish", "onslaught"} {
		enc, ok := arcs[name]
		if !ok {
			t.Fatalf("missing built-in encounter %q", name)
		}
		if len(enc.Phases) == 0 {
			t.Fatalf("encounter %q has no phases", name)
		}
		for _, p := range enc.Phases {
			if p.CastRate <= 0 {
				t.Errorf("%s phase %q has cast rate %v", name, p.Name, p.CastRate)
			}
			for _, tr := range p.Triggers {
				if _, ok := enc.Lookup(tr.Next); !ok {
					t.Errorf("%s phase %q trigger points at unknown phase %q", name, p.Name, tr.Next)
				}
			}
		}
	}
}

func TestNextPhase(t *testing.T) {
	enc := BuiltIn()["skirmish"]

	if next, ok := enc.NextPhase("probe", Event{Type: "time_elapsed", Value: 60}); !ok || next != "push" {
		t.Fatalf("NextPhase(probe, 60s) = %q, %v", next, ok)
	}
	if _, ok := enc.NextPhase("probe", Event{Type: "time_elapsed", Value: 59}); ok {
		t.Fatalf("threshold not reached, should not advance")
	}
	if _, ok := enc.NextPhase("probe", Event{Type: "casts_interrupted", Value: 100}); ok {
		t.Fatalf("wrong event type should not advance")
	}
	if next, ok := enc.NextPhase("push", Event{Type: "casts_interrupted", Value: 25}); !ok || next != "retreat" {
		t.Fatalf("NextPhase(push, 25 interrupted) = %q, %v", next, ok)
	}
	if _, ok := enc.NextPhase("retreat", Event{Type: "time_elapsed", Value: 1000}); ok {
		t.Fatalf("terminal phase should not advance")
	}
	if _, ok := enc.NextPhase("nope", Event{Type: "time_elapsed", Value: 1000}); ok {
		t.Fatalf("unknown phase should not advance")
	}
}

func TestLoad_EncounterFile(t *testing.T) {
	tmpFile := "test-encounter.yaml"
	defer os.Remove(tmpFile)
	yaml := `
name: Drill
phases:
  - name: warmup
    cast_rate: 0.5
    triggers:
      - event: time_elapsed
        value: 10
        next: main
  - name: main
    cast_rate: 2
`
	if err := os.WriteFile(tmpFile, []byte(yaml), 0644); err != nil {
		t.Fatalf("failed to write temp file: %v", err)
	}

	enc, err := Load(tmpFile)
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}
	if enc.Name != "Drill" || len(enc.Phases) != 2 {
		t.Fatalf("unexpected encounter: %+v", enc)
	}
	if next, ok := enc.NextPhase("warmup", Event{Type: "time_elapsed", Value: 10}); !ok || next != "main" {
		t.Fatalf("NextPhase(warmup) = %q, %v", next, ok)
	}

	if _, err := Load("does-not-exist.yaml"); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
