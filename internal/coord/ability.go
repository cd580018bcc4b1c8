// Capability model for disruption-capable agents
package coord

import (
	"fmt"
	"math"
	"time"
)

// Position is a planar arena coordinate in meters.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// DistanceTo returns the Euclidean distance to another position.
func (p Position) DistanceTo(o Position) float64 {
	return math.Hypot(o.X-p.X, o.Y-p.Y)
}

// AbilityClass is the closed set of response classes an ability can belong to.
// The class is resolved once at registration and drives both planning and
// fallback applicability.
type AbilityClass int

const (
	ClassInterrupt AbilityClass = iota
	ClassStun
	ClassSilence
	ClassKnockback
	ClassMitigation
)

var abilityClassNames = map[AbilityClass]string{
	ClassInterrupt:  "interrupt",
	ClassStun:       "stun",
	ClassSilence:    "silence",
	ClassKnockback:  "knockback",
	ClassMitigation: "mitigation",
}

func (c AbilityClass) String() string {
	if n, ok := abilityClassNames[c]; ok {
		return n
	}
	return fmt.Sprintf("class(%d)", int(c))
}

// ParseAbilityClass maps a config string to an AbilityClass.
func ParseAbilityClass(s string) (AbilityClass, error) {
	for c, n := range abilityClassNames {
		if n == s {
			return c, nil
		}
	}
	return 0, fmt.Errorf("unknown ability class %q", s)
}

// Ability describes one usable ability: identity, class, reach and cooldown.
type Ability struct {
	ID       string
	Class    AbilityClass
	Range    float64
	Cooldown time.Duration
}

// Capability is the registered loadout of one agent: its primary disruption
// ability plus ordered backups tried when the primary is on cooldown.
type Capability struct {
	AgentID string
	Team    string
	Primary Ability
	Backups []Ability
}

// Priority is the tier of a tracked hostile action.
type Priority int

const (
	PriorityNormal Priority = iota
	PriorityHigh
	PriorityCritical
)

func (p Priority) String() string {
	switch p {
	case PriorityCritical:
		return "critical"
	case PriorityHigh:
		return "high"
	default:
		return "normal"
	}
}

// ParsePriority maps a config string to a Priority. Unknown strings map to
// PriorityNormal with an error.
func ParsePriority(s string) (Priority, error) {
	switch s {
	case "critical":
		return PriorityCritical, nil
	case "high":
		return PriorityHigh, nil
	case "normal", "":
		return PriorityNormal, nil
	}
	return PriorityNormal, fmt.Errorf("unknown priority %q", s)
}
