package sim

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"botops-coord/internal/config"
	"botops-coord/internal/events"
	"botops-coord/internal/logging"
)

// MockWriter collects event rows for validation.
type MockWriter struct {
	Casts      []events.CastRow
	Directives []events.DirectiveRow
	Fallbacks  []events.FallbackRow
	Passes     []events.PassRow
}

func (w *MockWriter) WriteCast(row events.CastRow) error {
	w.Casts = append(w.Casts, row)
	return nil
}

func (w *MockWriter) WriteDirective(row events.DirectiveRow) error {
	w.Directives = append(w.Directives, row)
	return nil
}

func (w *MockWriter) WriteFallback(row events.FallbackRow) error {
	w.Fallbacks = append(w.Fallbacks, row)
	return nil
}

func (w *MockWriter) WritePass(row events.PassRow) error {
	w.Passes = append(w.Passes, row)
	return nil
}

func testConfig() *config.SimulationConfig {
	return &config.SimulationConfig{
		// A tiny arena with long-range abilities keeps every bot in range, so
		// tick outcomes are deterministic despite random placement.
		Arena: config.Arena{Name: "test", WidthM: 1, HeightM: 1},
		Squads: []config.Squad{
			{
				Name: "vanguard",
				Bots: 2,
				Loadout: config.Loadout{
					Primary: config.Ability{ID: "shockpulse", Class: "interrupt", RangeM: 100, CooldownMs: 12000},
					Backups: []config.Ability{
						{ID: "concussive-bolt", Class: "stun", RangeM: 100, CooldownMs: 18000},
					},
				},
			},
		},
		Hostiles: config.Hostiles{
			Casters:           2,
			CastIntervalMs:    4000,
			CastDurationMinMs: 2000,
			CastDurationMaxMs: 4000,
		},
		Coordination: config.Coordination{
			RotationWindowMs:     10000,
			InterruptSuccessRate: 1,
		},
	}
}

func TestSimulator_TickCoordinatesCasts(t *testing.T) {
	writer := &MockWriter{}
	s, err := NewSimulator("arena-test", testConfig(), writer, time.Second, logging.New("error"))
	if err != nil {
		t.Fatalf("NewSimulator failed: %v", err)
	}

	ctx := context.Background()
	s.tick(ctx)

	if len(writer.Casts) != 2 {
		t.Fatalf("expected 2 cast rows on first tick, got %d", len(writer.Casts))
	}
	for _, row := range writer.Casts {
		if row.Arena != "arena-test" || row.Team != "vanguard" || row.ActionID == "" {
			t.Errorf("cast row has missing fields: %+v", row)
		}
	}
	if len(writer.Directives) != 2 {
		t.Fatalf("expected 2 directive rows, got %d", len(writer.Directives))
	}
	if len(writer.Passes) != 1 {
		t.Fatalf("expected 1 pass row per squad, got %d", len(writer.Passes))
	}
	pass := writer.Passes[0]
	if pass.Directives != 2 || pass.Unmitigated != 0 {
		t.Errorf("unexpected pass summary: %+v", pass)
	}
	if pass.ActionsDetected != 2 {
		t.Errorf("cumulative detected = %d, want 2", pass.ActionsDetected)
	}

	// Zero directive latency: both interrupts fire within the same tick.
	if s.interrupted != 2 {
		t.Fatalf("interrupted = %d, want 2", s.interrupted)
	}
	if got := len(s.hostiles.Active()); got != 0 {
		t.Fatalf("active casts after interrupts = %d", got)
	}
}

func TestSimulator_DirectiveLatencyDefersExecution(t *testing.T) {
	cfg := testConfig()
	cfg.Coordination.DirectiveLatencyMs = 60000
	writer := &MockWriter{}
	s, err := NewSimulator("arena-test", cfg, writer, time.Second, logging.New("error"))
	if err != nil {
		t.Fatalf("NewSimulator failed: %v", err)
	}

	s.tick(context.Background())

	if len(writer.Directives) != 2 {
		t.Fatalf("expected 2 directives, got %d", len(writer.Directives))
	}
	if s.interrupted != 0 {
		t.Fatalf("directives executed before their latency elapsed")
	}
	if got := len(s.pending); got != 2 {
		t.Fatalf("pending directives = %d, want 2", got)
	}
}

func TestSimulator_Health(t *testing.T) {
	writer := &MockWriter{}
	s, err := NewSimulator("arena-test", testConfig(), writer, time.Second, logging.New("error"))
	if err != nil {
		t.Fatalf("NewSimulator failed: %v", err)
	}

	health := s.Health()
	if len(health) != 1 {
		t.Fatalf("expected 1 squad, got %d", len(health))
	}
	if health[0].Name != "vanguard" || health[0].Total != 2 || health[0].Alive != 2 {
		t.Errorf("unexpected health: %+v", health[0])
	}

	agents := s.Agents()
	if len(agents) != 2 {
		t.Fatalf("expected 2 agents, got %d", len(agents))
	}
	for _, a := range agents {
		if !a.Alive || !a.Available {
			t.Errorf("fresh agent should be alive and available: %+v", a)
		}
	}
}

func TestSimulator_ToggleChaos(t *testing.T) {
	writer := &MockWriter{}
	s, err := NewSimulator("arena-test", testConfig(), writer, time.Second, logging.New("error"))
	if err != nil {
		t.Fatalf("NewSimulator failed: %v", err)
	}
	if s.Chaos() {
		t.Fatalf("chaos should start disabled")
	}
	if !s.ToggleChaos() || !s.Chaos() {
		t.Fatalf("toggle should enable chaos")
	}
	if s.ToggleChaos() {
		t.Fatalf("second toggle should disable chaos")
	}
}

func TestSimulator_UnknownEncounter(t *testing.T) {
	cfg := testConfig()
	cfg.Encounter = "does-not-exist"
	if _, err := NewSimulator("arena-test", cfg, &MockWriter{}, time.Second, logging.New("error")); err == nil {
		t.Fatalf("expected error for unknown encounter")
	}
}

func TestSimulator_EncounterFromFile(t *testing.T) {
	doc := `name: custom-drill
phases:
  - name: warmup
    cast_rate: 2
    triggers:
      - event: time_elapsed
        value: 30
        next: main
  - name: main
    cast_rate: 6
`
	path := filepath.Join(t.TempDir(), "drill.yaml")
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("write encounter file: %v", err)
	}

	cfg := testConfig()
	cfg.Encounter = path
	s, err := NewSimulator("arena-test", cfg, &MockWriter{}, time.Second, logging.New("error"))
	if err != nil {
		t.Fatalf("NewSimulator failed: %v", err)
	}
	if s.Phase() != "warmup" {
		t.Fatalf("initial phase = %q, want warmup", s.Phase())
	}
}

func TestSimulator_ChaosDownAndRevive(t *testing.T) {
	cfg := testConfig()
	cfg.Squads[0].Bots = 1
	cfg.ChaosRate = 1
	s, err := NewSimulator("arena-test", cfg, &MockWriter{}, time.Second, logging.New("error"))
	if err != nil {
		t.Fatalf("NewSimulator failed: %v", err)
	}
	log := logging.New("error")

	s.injectChaos(log)
	agents := s.Agents()
	if len(agents) != 1 {
		t.Fatalf("expected 1 agent, got %d", len(agents))
	}
	if agents[0].Alive || agents[0].Available {
		t.Fatalf("chaos should take the only bot out of play: %+v", agents[0])
	}

	s.injectChaos(log)
	agents = s.Agents()
	if !agents[0].Alive || !agents[0].Available {
		t.Fatalf("second chaos pass should revive the bot: %+v", agents[0])
	}
}

func TestSimulator_EncounterPhase(t *testing.T) {
	cfg := testConfig()
	cfg.Encounter = "skirmish"
	s, err := NewSimulator("arena-test", cfg, &MockWriter{}, time.Second, logging.New("error"))
	if err != nil {
		t.Fatalf("NewSimulator failed: %v", err)
	}
	if s.Phase() != "probe" {
		t.Fatalf("initial phase = %q, want probe", s.Phase())
	}

	// Force the time trigger and verify the phase advances on the next tick.
	s.phaseStarted = time.Now().Add(-2 * time.Minute)
	s.tick(context.Background())
	if s.Phase() != "push" {
		t.Fatalf("phase after elapsed trigger = %q, want push", s.Phase())
	}
}
