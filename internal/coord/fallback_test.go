package coord

import (
	"testing"
	"time"
)

func registerWith(t *testing.T, r *Registry, id, team string, pos Position, abilities ...Ability) {
	t.Helper()
	cap := Capability{AgentID: id, Team: team, Primary: abilities[0]}
	if len(abilities) > 1 {
		cap.Backups = abilities[1:]
	}
	if err := r.Register(cap, pos); err != nil {
		t.Fatalf("register %s: %v", id, err)
	}
}

func fallbackAction() TrackedAction {
	return TrackedAction{
		ID:       "cast-1",
		Team:     "blue",
		Target:   "victim",
		Origin:   Position{X: 0, Y: 0},
		Deadline: time.Now().Add(3 * time.Second),
	}
}

func TestFallback_StunFirst(t *testing.T) {
	e := NewFallbackEngine()
	r := NewRegistry()
	now := time.Now()
	registerWith(t, r, "stunner", "blue", Position{X: 5},
		Ability{ID: "bolt", Class: ClassStun, Range: 20})
	registerWith(t, r, "silencer", "blue", Position{X: 5},
		Ability{ID: "hush", Class: ClassSilence, Range: 20})

	d, ok := e.Choose(fallbackAction(), r, map[string]bool{}, now)
	if !ok {
		t.Fatalf("expected a fallback decision")
	}
	if d.Method != FallbackStun || d.AgentID != "stunner" || d.AbilityID != "bolt" {
		t.Fatalf("expected stun by stunner, got %+v", d)
	}
}

func TestFallback_SilenceWhenNoStun(t *testing.T) {
	e := NewFallbackEngine()
	r := NewRegistry()
	now := time.Now()
	registerWith(t, r, "silencer", "blue", Position{X: 5},
		Ability{ID: "hush", Class: ClassSilence, Range: 20})

	d, ok := e.Choose(fallbackAction(), r, map[string]bool{}, now)
	if !ok || d.Method != FallbackSilence {
		t.Fatalf("expected silence, got %+v ok=%v", d, ok)
	}
}

func TestFallback_StunOutOfRangeSkipped(t *testing.T) {
	e := NewFallbackEngine()
	r := NewRegistry()
	now := time.Now()
	registerWith(t, r, "stunner", "blue", Position{X: 100},
		Ability{ID: "bolt", Class: ClassStun, Range: 20})
	registerWith(t, r, "silencer", "blue", Position{X: 5},
		Ability{ID: "hush", Class: ClassSilence, Range: 20})

	d, ok := e.Choose(fallbackAction(), r, map[string]bool{}, now)
	if !ok || d.Method != FallbackSilence {
		t.Fatalf("out-of-range stun should be skipped, got %+v ok=%v", d, ok)
	}
}

func TestFallback_SightBreakNeedsLiveTarget(t *testing.T) {
	e := NewFallbackEngine()
	r := NewRegistry()
	now := time.Now()
	// Blocker has no ready class abilities: everything on cooldown.
	registerWith(t, r, "blocker", "blue", Position{X: 3},
		Ability{ID: "bolt", Class: ClassStun, Range: 20})
	r.AbilityUsed("blocker", "bolt", time.Minute, now)

	// Target not registered: no sight line to break, no other method applies.
	if _, ok := e.Choose(fallbackAction(), r, map[string]bool{}, now); ok {
		t.Fatalf("no method should apply without a registered target")
	}

	// With the target registered, the nearest free teammate body-blocks.
	registerWith(t, r, "victim", "blue", Position{X: 10},
		Ability{ID: "shot", Class: ClassInterrupt, Range: 30})
	r.AbilityUsed("victim", "shot", time.Minute, now)

	d, ok := e.Choose(fallbackAction(), r, map[string]bool{}, now)
	if !ok || d.Method != FallbackSightBreak || d.AgentID != "blocker" {
		t.Fatalf("expected sight_break by blocker, got %+v ok=%v", d, ok)
	}
	if d.AbilityID != "" {
		t.Fatalf("movement-only method should have no ability id, got %q", d.AbilityID)
	}
}

func TestFallback_RangeBreakDirectsTarget(t *testing.T) {
	e := NewFallbackEngine()
	r := NewRegistry()
	now := time.Now()
	// Target registered on another squad: sight_break finds no free blue
	// teammate, range_break directs the target itself to move.
	registerWith(t, r, "victim", "green", Position{X: 10},
		Ability{ID: "shot", Class: ClassInterrupt, Range: 30})

	d, ok := e.Choose(fallbackAction(), r, map[string]bool{}, now)
	if !ok || d.Method != FallbackRangeBreak || d.AgentID != "victim" {
		t.Fatalf("expected range_break directing the target, got %+v ok=%v", d, ok)
	}
}

func TestFallback_MitigateAnchorsOnTarget(t *testing.T) {
	e := NewFallbackEngine()
	r := NewRegistry()
	now := time.Now()
	// Mitigator reaches the target's position but not the performer's origin;
	// target unregistered so sight/range breaks cannot apply.
	a := fallbackAction()
	a.Target = ""
	a.Origin = Position{X: 100}
	registerWith(t, r, "guardian", "blue", Position{X: 95},
		Ability{ID: "aegis", Class: ClassMitigation, Range: 10})

	d, ok := e.Choose(a, r, map[string]bool{}, now)
	if !ok || d.Method != FallbackMitigate || d.AgentID != "guardian" {
		t.Fatalf("expected mitigate, got %+v ok=%v", d, ok)
	}
}

func TestFallback_KnockbackLast(t *testing.T) {
	e := NewFallbackEngine()
	r := NewRegistry()
	now := time.Now()
	a := fallbackAction()
	a.Target = ""
	registerWith(t, r, "pusher", "blue", Position{X: 5},
		Ability{ID: "gale", Class: ClassKnockback, Range: 15})

	d, ok := e.Choose(a, r, map[string]bool{}, now)
	if !ok || d.Method != FallbackKnockback || d.AbilityID != "gale" {
		t.Fatalf("expected knockback, got %+v ok=%v", d, ok)
	}
}

func TestFallback_ClaimedAgentsSkipped(t *testing.T) {
	e := NewFallbackEngine()
	r := NewRegistry()
	now := time.Now()
	registerWith(t, r, "stunner", "blue", Position{X: 5},
		Ability{ID: "bolt", Class: ClassStun, Range: 20})

	a := fallbackAction()
	a.Target = ""
	if _, ok := e.Choose(a, r, map[string]bool{"stunner": true}, now); ok {
		t.Fatalf("claimed agent must not be chosen")
	}
}

func TestFallback_NearestOfClassWins(t *testing.T) {
	e := NewFallbackEngine()
	r := NewRegistry()
	now := time.Now()
	registerWith(t, r, "far-stunner", "blue", Position{X: 15},
		Ability{ID: "bolt-a", Class: ClassStun, Range: 20})
	registerWith(t, r, "near-stunner", "blue", Position{X: 5},
		Ability{ID: "bolt-b", Class: ClassStun, Range: 20})

	d, ok := e.Choose(fallbackAction(), r, map[string]bool{}, now)
	if !ok || d.AgentID != "near-stunner" {
		t.Fatalf("nearest agent of class should win, got %+v", d)
	}
}
