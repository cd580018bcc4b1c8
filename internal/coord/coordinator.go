// Coordination facade for disruption planning across bot teams
package coord

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// State is the facade lifecycle state.
type State int32

const (
	StateUninitialized State = iota
	StateReady
	StateShuttingDown
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateReady:
		return "ready"
	case StateShuttingDown:
		return "shutting_down"
	case StateStopped:
		return "stopped"
	default:
		return "uninitialized"
	}
}

var (
	// ErrNotInitialized is returned by any operation invoked outside Ready.
	ErrNotInitialized = errors.New("coordinator not initialized")
	// ErrStopped is returned when Initialize is called after Shutdown; a
	// stopped coordinator is terminal and a fresh instance must be built.
	ErrStopped = errors.New("coordinator stopped")
)

// Directive instructs one agent to disrupt one tracked action. The core never
// executes abilities itself; directives go to the owning agent's decision
// loop through a DirectiveSink.
type Directive struct {
	AgentID         string    `json:"agent_id"`
	AbilityID       string    `json:"ability_id"`
	ActionID        string    `json:"action_id"`
	Priority        Priority  `json:"-"`
	Deadline        time.Time `json:"deadline"`
	PendingMovement bool      `json:"pending_movement"`
}

// MovementTier orders movement requests against routine navigation.
type MovementTier int

const (
	MoveRoutine MovementTier = iota
	MoveUrgent
)

// MovementRequest asks the external movement collaborator to reposition an
// agent. Disruption approaches always use MoveUrgent.
type MovementRequest struct {
	AgentID     string       `json:"agent_id"`
	Destination Position     `json:"destination"`
	Tier        MovementTier `json:"tier"`
}

// DirectiveSink receives directives chosen by a planning pass. Delivery
// happens after the pass releases the coordination lock, so passes running
// from multiple goroutines may call a sink concurrently; implementations
// must be safe for concurrent use.
type DirectiveSink interface {
	DeliverDirective(Directive) error
}

// MovementSink receives repositioning requests for out-of-range assignments.
// Like DirectiveSink, implementations must be safe for concurrent use.
type MovementSink interface {
	RequestMovement(MovementRequest) error
}

// Assignment binds one tracked action to one agent's capability. At most one
// live assignment may reference a given agent.
type Assignment struct {
	ID              string    `json:"id"`
	AgentID         string    `json:"agent_id"`
	ActionID        string    `json:"action_id"`
	AbilityID       string    `json:"ability_id"`
	AbilityRange    float64   `json:"ability_range"`
	Priority        Priority  `json:"priority"`
	Deadline        time.Time `json:"deadline"`
	PendingMovement bool      `json:"pending_movement"`
}

// Config tunes a Coordinator. Zero values fall back to defaults.
type Config struct {
	RotationWindow time.Duration // recency window for rotation deprioritization
	HistorySize    int           // rotation history entries kept per team
	Weights        Weights       // planner scoring weights
	DrainTimeout   time.Duration // bounded wait for in-flight work on Shutdown
	Logger         *slog.Logger
	Clock          func() time.Time // test hook; defaults to time.Now
}

// Coordinator is the single coordination authority for a process. It is
// constructed explicitly and passed to callers; there is no package-level
// instance. All mutating operations serialize behind one lock and the
// critical section never calls out to a collaborator: directives, movement
// requests and fallback outcomes are collected under the lock and delivered
// after it is released.
type Coordinator struct {
	mu    sync.RWMutex
	state atomic.Int32

	registry *Registry
	tracker  *Tracker
	ledger   *Ledger
	planner  *Planner
	fallback *FallbackEngine
	metrics  Metrics

	// live assignments keyed by agent id; the single-assignment invariant
	// is enforced here
	assignments map[string]*Assignment

	directives DirectiveSink
	movements  MovementSink

	cfg Config
	log *slog.Logger
	now func() time.Time
}

// New builds an uninitialized Coordinator. Either sink may be nil, in which
// case the corresponding outputs are only reported in pass results.
func New(cfg Config, directives DirectiveSink, movements MovementSink) *Coordinator {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if cfg.RotationWindow <= 0 {
		cfg.RotationWindow = 10 * time.Second
	}
	if cfg.DrainTimeout <= 0 {
		cfg.DrainTimeout = time.Second
	}
	return &Coordinator{
		directives: directives,
		movements:  movements,
		cfg:        cfg,
		log:        cfg.Logger,
		now:        cfg.Clock,
	}
}

// State returns the current lifecycle state without blocking.
func (c *Coordinator) State() State {
	return State(c.state.Load())
}

// Initialize transitions Uninitialized to Ready. Calling it again while Ready
// is a no-op success.
func (c *Coordinator) Initialize() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch c.State() {
	case StateReady:
		return nil
	case StateShuttingDown, StateStopped:
		return ErrStopped
	}
	c.registry = NewRegistry()
	c.tracker = NewTracker()
	c.ledger = NewLedger(c.cfg.RotationWindow, c.cfg.HistorySize)
	c.planner = NewPlanner(c.cfg.Weights)
	c.fallback = NewFallbackEngine()
	c.assignments = make(map[string]*Assignment)
	c.metrics.Reset()
	c.state.Store(int32(StateReady))
	c.log.Info("coordinator ready", "rotation_window", c.cfg.RotationWindow)
	return nil
}

// Shutdown drains in-flight work with a bounded wait, then transitions to
// Stopped. It is safe to call more than once.
func (c *Coordinator) Shutdown(ctx context.Context) error {
	switch c.State() {
	case StateStopped:
		return nil
	case StateUninitialized:
		return ErrNotInitialized
	}
	c.state.Store(int32(StateShuttingDown))

	deadline := time.Now().Add(c.cfg.DrainTimeout)
	for !c.mu.TryLock() {
		if ctx.Err() != nil || time.Now().After(deadline) {
			// Best effort: new work is already rejected, mark stopped.
			c.state.Store(int32(StateStopped))
			c.log.Warn("shutdown drain timed out")
			return nil
		}
		time.Sleep(time.Millisecond)
	}
	defer c.mu.Unlock()
	c.assignments = make(map[string]*Assignment)
	c.state.Store(int32(StateStopped))
	c.log.Info("coordinator stopped")
	return nil
}

func (c *Coordinator) requireReady() error {
	if c.State() != StateReady {
		return ErrNotInitialized
	}
	return nil
}

// Metrics returns a snapshot of the coordination counters. Never blocks.
func (c *Coordinator) Metrics() MetricsSnapshot {
	return c.metrics.Snapshot()
}

// ResetMetrics zeroes the counters. Administrative use only.
func (c *Coordinator) ResetMetrics() {
	c.metrics.Reset()
}

// AgentJoined registers an agent's capability and adds it to its team's
// rotation. A second registration for a live agent id fails with
// ErrAlreadyRegistered.
func (c *Coordinator) AgentJoined(cap Capability, pos Position) error {
	if err := c.requireReady(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.registry.Register(cap, pos); err != nil {
		return err
	}
	c.ledger.Add(cap.Team, cap.AgentID)
	return nil
}

// AgentLeft deregisters an agent, drops it from rotation and invalidates any
// live assignment it holds. Idempotent.
func (c *Coordinator) AgentLeft(agentID string) error {
	if err := c.requireReady(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if cap, ok := c.registry.Get(agentID); ok {
		c.ledger.Remove(cap.Team, agentID)
	}
	c.registry.Deregister(agentID)
	delete(c.assignments, agentID)
	return nil
}

// SetAgentAlive flips an agent's alive flag without touching its
// registration: a downed agent keeps its capability and rotation slot but is
// skipped by planning and fallback until revived. Downing an agent
// invalidates its live assignment. Unknown agent IDs are ignored.
func (c *Coordinator) SetAgentAlive(agentID string, alive bool) error {
	if err := c.requireReady(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.registry.SetAlive(agentID, alive)
	if !alive {
		delete(c.assignments, agentID)
	}
	return nil
}

// AgentMoved updates an agent's position.
func (c *Coordinator) AgentMoved(agentID string, pos Position) error {
	if err := c.requireReady(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.registry.Move(agentID, pos)
	return nil
}

// AbilityUsed starts the ability's cooldown. If the use executes the agent's
// live assignment, that assignment is retired.
func (c *Coordinator) AbilityUsed(agentID, abilityID string, cooldown time.Duration) error {
	if err := c.requireReady(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	c.registry.AbilityUsed(agentID, abilityID, cooldown, now)
	if asg, ok := c.assignments[agentID]; ok && asg.AbilityID == abilityID {
		delete(c.assignments, agentID)
	}
	return nil
}

// UpdateCooldown sets the remaining cooldown on an agent's primary ability.
func (c *Coordinator) UpdateCooldown(agentID string, remaining time.Duration) error {
	if err := c.requireReady(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.registry.UpdateCooldown(agentID, remaining, c.now())
	return nil
}

// ActionStarted records a hostile action reported by the detection observer.
func (c *Coordinator) ActionStarted(actionID, performerID, team, targetID string, origin Position, duration time.Duration, prio Priority) error {
	if err := c.requireReady(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	c.tracker.Start(TrackedAction{
		ID:        actionID,
		Performer: performerID,
		Team:      team,
		Target:    targetID,
		Priority:  prio,
		Origin:    origin,
		StartedAt: now,
		Deadline:  now.Add(duration),
	})
	c.metrics.actionsDetected.Add(1)
	return nil
}

// ActionEnded removes a tracked action (completed, disrupted or cancelled)
// and invalidates any assignment referencing it so the agent is eligible
// again on the next pass.
func (c *Coordinator) ActionEnded(actionID, reason string) error {
	if err := c.requireReady(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.tracker.End(actionID) {
		return nil
	}
	for agentID, asg := range c.assignments {
		if asg.ActionID == actionID {
			delete(c.assignments, agentID)
		}
	}
	c.log.Debug("action ended", "action_id", actionID, "reason", reason)
	return nil
}

// IsAvailable reports whether an agent is currently a viable disruption
// candidate.
func (c *Coordinator) IsAvailable(agentID string) bool {
	if c.State() != StateReady {
		return false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.registry.IsAvailable(agentID, c.now())
}

// GetCapability returns a copy of an agent's registered capability.
func (c *Coordinator) GetCapability(agentID string) (Capability, bool) {
	if c.State() != StateReady {
		return Capability{}, false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.registry.Get(agentID)
}

// Assignments returns a snapshot of all live assignments.
func (c *Coordinator) Assignments() []Assignment {
	if c.State() != StateReady {
		return nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Assignment, 0, len(c.assignments))
	for _, asg := range c.assignments {
		out = append(out, *asg)
	}
	return out
}

// ActiveActions returns the current planning snapshot for a team.
func (c *Coordinator) ActiveActions(team string) []TrackedAction {
	if c.State() != StateReady {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tracker.Active(team, c.now())
}

// RotationOrder returns a copy of a team's rotation order.
func (c *Coordinator) RotationOrder(team string) []string {
	if c.State() != StateReady {
		return nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ledger.Order(team)
}
