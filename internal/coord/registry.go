package coord

import (
	"errors"
	"fmt"
	"time"
)

// ErrAlreadyRegistered is returned when an agent id is registered twice
// without an intervening deregistration.
var ErrAlreadyRegistered = errors.New("agent already registered")

type agentState struct {
	cap     Capability
	pos     Position
	alive   bool
	readyAt map[string]time.Time // ability id -> earliest next use
}

// Registry tracks per-agent disruption capability, cooldown state and
// position. It is a plain data store; synchronization is owned by the
// Coordinator, which guards every mutation behind its lock.
type Registry struct {
	agents map[string]*agentState
}

func NewRegistry() *Registry {
	return &Registry{agents: make(map[string]*agentState)}
}

// Register adds an agent with its capability and starting position.
func (r *Registry) Register(cap Capability, pos Position) error {
	if _, ok := r.agents[cap.AgentID]; ok {
		return fmt.Errorf("register %s: %w", cap.AgentID, ErrAlreadyRegistered)
	}
	r.agents[cap.AgentID] = &agentState{
		cap:     cap,
		pos:     pos,
		alive:   true,
		readyAt: make(map[string]time.Time),
	}
	return nil
}

// Deregister removes an agent. Unknown ids are a no-op.
func (r *Registry) Deregister(agentID string) {
	delete(r.agents, agentID)
}

// Move updates an agent's position. Unknown ids are a no-op.
func (r *Registry) Move(agentID string, pos Position) {
	if st, ok := r.agents[agentID]; ok {
		st.pos = pos
	}
}

// SetAlive flips an agent's alive flag without dropping its registration.
func (r *Registry) SetAlive(agentID string, alive bool) {
	if st, ok := r.agents[agentID]; ok {
		st.alive = alive
	}
}

// UpdateCooldown sets the remaining cooldown of an agent's primary ability.
func (r *Registry) UpdateCooldown(agentID string, remaining time.Duration, now time.Time) {
	st, ok := r.agents[agentID]
	if !ok {
		return
	}
	st.readyAt[st.cap.Primary.ID] = now.Add(remaining)
}

// AbilityUsed starts the cooldown of one ability, whether or not the use was
// coordinator-directed.
func (r *Registry) AbilityUsed(agentID, abilityID string, cooldown time.Duration, now time.Time) {
	st, ok := r.agents[agentID]
	if !ok {
		return
	}
	st.readyAt[abilityID] = now.Add(cooldown)
}

// IsAvailable reports whether an agent is alive and has at least one ability
// off cooldown.
func (r *Registry) IsAvailable(agentID string, now time.Time) bool {
	st, ok := r.agents[agentID]
	if !ok || !st.alive {
		return false
	}
	_, _, ok = st.ready(now)
	return ok
}

// Get returns a copy of the agent's capability.
func (r *Registry) Get(agentID string) (Capability, bool) {
	st, ok := r.agents[agentID]
	if !ok {
		return Capability{}, false
	}
	return st.cap, true
}

// PositionOf returns the agent's last known position.
func (r *Registry) PositionOf(agentID string) (Position, bool) {
	st, ok := r.agents[agentID]
	if !ok {
		return Position{}, false
	}
	return st.pos, true
}

// TeamAgents returns ids of all registered agents on a team.
func (r *Registry) TeamAgents(team string) []string {
	var ids []string
	for id, st := range r.agents {
		if st.cap.Team == team {
			ids = append(ids, id)
		}
	}
	return ids
}

// ready returns the preferred usable ability: the primary if off cooldown,
// otherwise the first ready backup. The bool pair is (isBackup, usable).
func (st *agentState) ready(now time.Time) (Ability, bool, bool) {
	if !st.readyAt[st.cap.Primary.ID].After(now) {
		return st.cap.Primary, false, true
	}
	for _, b := range st.cap.Backups {
		if !st.readyAt[b.ID].After(now) {
			return b, true, true
		}
	}
	return Ability{}, false, false
}

// readyOfClass returns a usable ability of the given class, if any.
func (st *agentState) readyOfClass(class AbilityClass, now time.Time) (Ability, bool) {
	if st.cap.Primary.Class == class && !st.readyAt[st.cap.Primary.ID].After(now) {
		return st.cap.Primary, true
	}
	for _, b := range st.cap.Backups {
		if b.Class == class && !st.readyAt[b.ID].After(now) {
			return b, true
		}
	}
	return Ability{}, false
}
