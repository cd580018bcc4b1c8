package coord

import (
	"fmt"
	"time"
)

// FallbackMethod is one alternate response tried when no disruption
// capability is available for an action.
type FallbackMethod int

const (
	FallbackStun FallbackMethod = iota
	FallbackSilence
	FallbackSightBreak
	FallbackRangeBreak
	FallbackMitigate
	FallbackKnockback
)

var fallbackNames = map[FallbackMethod]string{
	FallbackStun:       "stun",
	FallbackSilence:    "silence",
	FallbackSightBreak: "sight_break",
	FallbackRangeBreak: "range_break",
	FallbackMitigate:   "mitigate",
	FallbackKnockback:  "knockback",
}

func (m FallbackMethod) String() string {
	if n, ok := fallbackNames[m]; ok {
		return n
	}
	return fmt.Sprintf("fallback(%d)", int(m))
}

// FallbackDecision names the method and agent chosen for an unplannable
// action. AbilityID is empty for movement-only methods.
type FallbackDecision struct {
	ActionID  string
	Method    FallbackMethod
	AgentID   string
	AbilityID string
}

// FallbackEngine tries a fixed, ordered list of alternate response methods
// and picks the first applicable one. Methods are strictly first-match-wins;
// they are never combined.
type FallbackEngine struct {
	order []FallbackMethod
}

// NewFallbackEngine returns an engine with the standard method order: hard
// stun, silence, sight break, range break, mitigation, knockback.
func NewFallbackEngine() *FallbackEngine {
	return &FallbackEngine{order: []FallbackMethod{
		FallbackStun,
		FallbackSilence,
		FallbackSightBreak,
		FallbackRangeBreak,
		FallbackMitigate,
		FallbackKnockback,
	}}
}

// Choose evaluates each method's applicability predicate in order against the
// team's unclaimed agents. A false ok is the expected no-mitigation outcome,
// not an error.
func (e *FallbackEngine) Choose(action TrackedAction, reg *Registry, claimed map[string]bool, now time.Time) (FallbackDecision, bool) {
	for _, m := range e.order {
		if d, ok := e.try(m, action, reg, claimed, now); ok {
			return d, true
		}
	}
	return FallbackDecision{}, false
}

func (e *FallbackEngine) try(m FallbackMethod, action TrackedAction, reg *Registry, claimed map[string]bool, now time.Time) (FallbackDecision, bool) {
	switch m {
	case FallbackStun:
		return e.byClass(m, ClassStun, action, reg, claimed, now)
	case FallbackSilence:
		return e.byClass(m, ClassSilence, action, reg, claimed, now)
	case FallbackKnockback:
		return e.byClass(m, ClassKnockback, action, reg, claimed, now)
	case FallbackMitigate:
		return e.mitigate(action, reg, claimed, now)
	case FallbackSightBreak:
		// Body-blocking needs a sight line to break: the target must still
		// be a live registered agent. Any free teammate can block; pick the
		// closest to the performer.
		if tgt, ok := reg.agents[action.Target]; ok && tgt.alive {
			if id, ok := nearestFree(action.Origin, action.Team, reg, claimed); ok {
				return FallbackDecision{ActionID: action.ID, Method: m, AgentID: id}, true
			}
		}
	case FallbackRangeBreak:
		// Only applicable when the action's target is one of ours and can
		// be directed to move out of the performer's reach.
		if st, ok := reg.agents[action.Target]; ok && st.alive && !claimed[action.Target] {
			return FallbackDecision{ActionID: action.ID, Method: m, AgentID: action.Target}, true
		}
	}
	return FallbackDecision{}, false
}

// byClass finds the nearest unclaimed agent holding a ready ability of the
// class whose range reaches the performer.
func (e *FallbackEngine) byClass(m FallbackMethod, class AbilityClass, action TrackedAction, reg *Registry, claimed map[string]bool, now time.Time) (FallbackDecision, bool) {
	bestID, bestAbility, bestDist := "", Ability{}, 0.0
	for id, st := range reg.agents {
		if st.cap.Team != action.Team || !st.alive || claimed[id] {
			continue
		}
		ab, ok := st.readyOfClass(class, now)
		if !ok {
			continue
		}
		dist := st.pos.DistanceTo(action.Origin)
		if dist > ab.Range {
			continue
		}
		if bestID == "" || dist < bestDist || (dist == bestDist && id < bestID) {
			bestID, bestAbility, bestDist = id, ab, dist
		}
	}
	if bestID == "" {
		return FallbackDecision{}, false
	}
	return FallbackDecision{ActionID: action.ID, Method: m, AgentID: bestID, AbilityID: bestAbility.ID}, true
}

// mitigate looks for a ready mitigation ability that reaches the action's
// target (or the performer when the target is not one of our agents).
func (e *FallbackEngine) mitigate(action TrackedAction, reg *Registry, claimed map[string]bool, now time.Time) (FallbackDecision, bool) {
	anchor := action.Origin
	if st, ok := reg.agents[action.Target]; ok {
		anchor = st.pos
	}
	probe := action
	probe.Origin = anchor
	return e.byClass(FallbackMitigate, ClassMitigation, probe, reg, claimed, now)
}

func nearestFree(origin Position, team string, reg *Registry, claimed map[string]bool) (string, bool) {
	bestID, bestDist := "", 0.0
	for id, st := range reg.agents {
		if st.cap.Team != team || !st.alive || claimed[id] {
			continue
		}
		dist := st.pos.DistanceTo(origin)
		if bestID == "" || dist < bestDist || (dist == bestDist && id < bestID) {
			bestID, bestDist = id, dist
		}
	}
	return bestID, bestID != ""
}
