package hostile

import (
	"testing"
	"time"

	"botops-coord/internal/coord"
)

func testTargets() []Target {
	return []Target{
		{ID: "bot-1", Team: "vanguard", Pos: coord.Position{X: 10, Y: 10}},
		{ID: "bot-2", Team: "vanguard", Pos: coord.Position{X: 20, Y: 20}},
	}
}

func TestEngine_StepStartsCasts(t *testing.T) {
	e := NewEngine(Config{Casters: 3, Interval: 2 * time.Second}, 42)
	now := time.Now()

	started, completed := e.Step(now, testTargets())
	if len(started) != 3 {
		t.Fatalf("expected all idle casters to start, got %d", len(started))
	}
	if len(completed) != 0 {
		t.Fatalf("nothing should complete on the first step, got %d", len(completed))
	}
	for _, c := range started {
		if c.Team != "vanguard" {
			t.Errorf("cast %s targets team %q", c.ID, c.Team)
		}
		if !c.Deadline.After(c.Started) {
			t.Errorf("cast %s has no execution window", c.ID)
		}
		if c.Duration() < 1500*time.Millisecond {
			t.Errorf("cast %s duration %v below minimum", c.ID, c.Duration())
		}
	}
	if got := len(e.Active()); got != 3 {
		t.Fatalf("active casts = %d, want 3", got)
	}

	// A busy caster does not start a second cast.
	started, _ = e.Step(now.Add(100*time.Millisecond), testTargets())
	if len(started) != 0 {
		t.Fatalf("busy casters started %d new casts", len(started))
	}
}

func TestEngine_StepCompletesExpiredCasts(t *testing.T) {
	e := NewEngine(Config{Casters: 2}, 7)
	now := time.Now()

	started, _ := e.Step(now, testTargets())
	if len(started) != 2 {
		t.Fatalf("expected 2 casts, got %d", len(started))
	}

	// Step past every deadline: both casts complete un-disrupted.
	later := now.Add(10 * time.Second)
	_, completed := e.Step(later, testTargets())
	if len(completed) != 2 {
		t.Fatalf("expected 2 completed casts, got %d", len(completed))
	}
	if got := len(e.Active()); got != 0 {
		t.Fatalf("active casts after completion = %d", got)
	}
}

func TestEngine_Interrupt(t *testing.T) {
	e := NewEngine(Config{Casters: 1}, 1)
	now := time.Now()

	started, _ := e.Step(now, testTargets())
	if len(started) != 1 {
		t.Fatalf("expected 1 cast, got %d", len(started))
	}
	id := started[0].ID

	if !e.Interrupt(id) {
		t.Fatalf("Interrupt should succeed for an active cast")
	}
	if e.Interrupt(id) {
		t.Fatalf("second Interrupt should report inactive")
	}
	if _, ok := e.Get(id); ok {
		t.Fatalf("interrupted cast should not be retrievable")
	}

	// The disrupted caster goes idle and never reports a completion.
	_, completed := e.Step(now.Add(10*time.Second), testTargets())
	if len(completed) != 0 {
		t.Fatalf("interrupted cast must not complete, got %d", len(completed))
	}
}

func TestEngine_NoTargetsNoCasts(t *testing.T) {
	e := NewEngine(Config{Casters: 2}, 3)
	started, _ := e.Step(time.Now(), nil)
	if len(started) != 0 {
		t.Fatalf("casts started without targets: %d", len(started))
	}
}

func TestEngine_Deterministic(t *testing.T) {
	now := time.Now()
	a := NewEngine(Config{Casters: 3}, 99)
	b := NewEngine(Config{Casters: 3}, 99)

	sa, _ := a.Step(now, testTargets())
	sb, _ := b.Step(now, testTargets())
	if len(sa) != len(sb) {
		t.Fatalf("same seed produced different cast counts: %d vs %d", len(sa), len(sb))
	}
	for i := range sa {
		if sa[i].Target != sb[i].Target || sa[i].Priority != sb[i].Priority || sa[i].Deadline.Sub(sa[i].Started) != sb[i].Deadline.Sub(sb[i].Started) {
			t.Fatalf("same seed diverged at cast %d: %+v vs %+v", i, sa[i], sb[i])
		}
	}
}

func TestEngine_SetRateShortensIdle(t *testing.T) {
	e := NewEngine(Config{Casters: 1, Interval: 4 * time.Second}, 5)
	now := time.Now()

	started, _ := e.Step(now, testTargets())
	if len(started) != 1 {
		t.Fatalf("expected 1 cast, got %d", len(started))
	}
	e.Interrupt(started[0].ID)

	// At a high rate the idle window after disruption shrinks well below the
	// configured interval.
	e.SetRate(100)
	e.Step(now.Add(time.Millisecond), testTargets()) // caster notices disruption, schedules next cast
	started, _ = e.Step(now.Add(200*time.Millisecond), testTargets())
	if len(started) != 1 {
		t.Fatalf("expected accelerated re-cast, got %d", len(started))
	}
}

func TestEngine_PriorityWeights(t *testing.T) {
	// All weight on critical: every cast is critical.
	e := NewEngine(Config{Casters: 5, CriticalWeight: 1, HighWeight: 0, NormalWeight: 0}, 11)
	started, _ := e.Step(time.Now(), testTargets())
	if len(started) != 5 {
		t.Fatalf("expected 5 casts, got %d", len(started))
	}
	for _, c := range started {
		if c.Priority != coord.PriorityCritical {
			t.Fatalf("cast %s priority = %v, want critical", c.ID, c.Priority)
		}
	}
}
