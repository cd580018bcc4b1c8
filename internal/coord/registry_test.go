package coord

import (
	"errors"
	"testing"
	"time"
)

func testCapability(agentID, team string) Capability {
	return Capability{
		AgentID: agentID,
		Team:    team,
		Primary: Ability{ID: "shockpulse", Class: ClassInterrupt, Range: 30, Cooldown: 12 * time.Second},
		Backups: []Ability{
			{ID: "concussive-bolt", Class: ClassStun, Range: 20, Cooldown: 18 * time.Second},
		},
	}
}

func TestRegistry_RegisterDuplicate(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(testCapability("bot-1", "blue"), Position{}); err != nil {
		t.Fatalf("first register failed: %v", err)
	}
	err := r.Register(testCapability("bot-1", "blue"), Position{})
	if !errors.Is(err, ErrAlreadyRegistered) {
		t.Fatalf("expected ErrAlreadyRegistered, got %v", err)
	}
}

func TestRegistry_ReadyPrefersPrimary(t *testing.T) {
	r := NewRegistry()
	now := time.Now()
	if err := r.Register(testCapability("bot-1", "blue"), Position{}); err != nil {
		t.Fatalf("register failed: %v", err)
	}
	st := r.agents["bot-1"]

	ab, backup, ok := st.ready(now)
	if !ok || backup || ab.ID != "shockpulse" {
		t.Fatalf("expected primary ready, got ability=%q backup=%v ok=%v", ab.ID, backup, ok)
	}

	r.AbilityUsed("bot-1", "shockpulse", 12*time.Second, now)
	ab, backup, ok = st.ready(now)
	if !ok || !backup || ab.ID != "concussive-bolt" {
		t.Fatalf("expected backup after primary on cooldown, got ability=%q backup=%v ok=%v", ab.ID, backup, ok)
	}

	r.AbilityUsed("bot-1", "concussive-bolt", 18*time.Second, now)
	if _, _, ok = st.ready(now); ok {
		t.Fatalf("expected no ability ready with everything on cooldown")
	}
	if r.IsAvailable("bot-1", now) {
		t.Fatalf("agent should not be available with all abilities on cooldown")
	}

	// Cooldowns expire.
	later := now.Add(13 * time.Second)
	ab, backup, ok = st.ready(later)
	if !ok || backup || ab.ID != "shockpulse" {
		t.Fatalf("expected primary ready again after cooldown, got ability=%q backup=%v ok=%v", ab.ID, backup, ok)
	}
}

func TestRegistry_UpdateCooldown(t *testing.T) {
	r := NewRegistry()
	now := time.Now()
	if err := r.Register(testCapability("bot-1", "blue"), Position{}); err != nil {
		t.Fatalf("register failed: %v", err)
	}
	r.UpdateCooldown("bot-1", 5*time.Second, now)

	st := r.agents["bot-1"]
	if ab, _, ok := st.ready(now); !ok || ab.ID != "concussive-bolt" {
		t.Fatalf("expected backup while primary cooldown reported, got %q ok=%v", ab.ID, ok)
	}
	if ab, _, ok := st.ready(now.Add(6 * time.Second)); !ok || ab.ID != "shockpulse" {
		t.Fatalf("expected primary after reported cooldown elapsed, got %q ok=%v", ab.ID, ok)
	}
}

func TestRegistry_SetAliveAndAvailability(t *testing.T) {
	r := NewRegistry()
	now := time.Now()
	if err := r.Register(testCapability("bot-1", "blue"), Position{}); err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if !r.IsAvailable("bot-1", now) {
		t.Fatalf("freshly registered agent should be available")
	}
	r.SetAlive("bot-1", false)
	if r.IsAvailable("bot-1", now) {
		t.Fatalf("dead agent should not be available")
	}
	r.SetAlive("bot-1", true)
	if !r.IsAvailable("bot-1", now) {
		t.Fatalf("revived agent should be available")
	}
	if r.IsAvailable("ghost", now) {
		t.Fatalf("unknown agent should not be available")
	}
}

func TestRegistry_TeamAgents(t *testing.T) {
	r := NewRegistry()
	for _, id := range []string{"b1", "b2"} {
		if err := r.Register(testCapability(id, "blue"), Position{}); err != nil {
			t.Fatalf("register %s: %v", id, err)
		}
	}
	if err := r.Register(testCapability("r1", "red"), Position{}); err != nil {
		t.Fatalf("register r1: %v", err)
	}
	blue := r.TeamAgents("blue")
	if len(blue) != 2 {
		t.Fatalf("expected 2 blue agents, got %d", len(blue))
	}
	r.Deregister("b1")
	if len(r.TeamAgents("blue")) != 1 {
		t.Fatalf("expected b1 deregistered")
	}
}

func TestRegistry_ReadyOfClass(t *testing.T) {
	r := NewRegistry()
	now := time.Now()
	if err := r.Register(testCapability("bot-1", "blue"), Position{}); err != nil {
		t.Fatalf("register failed: %v", err)
	}
	st := r.agents["bot-1"]

	if ab, ok := st.readyOfClass(ClassStun, now); !ok || ab.ID != "concussive-bolt" {
		t.Fatalf("expected stun backup found, got %q ok=%v", ab.ID, ok)
	}
	if _, ok := st.readyOfClass(ClassSilence, now); ok {
		t.Fatalf("no silence ability should be found")
	}
	r.AbilityUsed("bot-1", "concussive-bolt", 18*time.Second, now)
	if _, ok := st.readyOfClass(ClassStun, now); ok {
		t.Fatalf("stun on cooldown should not be found")
	}
}
