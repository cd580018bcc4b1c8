// Group coordination pass: plan, resolve contention, emit directives
package coord

import (
	"time"

	"github.com/google/uuid"
)

// PassResult is everything one planning pass decided for a team. Directives
// and movement requests are also delivered to the configured sinks after the
// pass releases the coordination lock.
type PassResult struct {
	Team        string
	Directives  []Directive
	Movements   []MovementRequest
	Fallbacks   []FallbackDecision
	Unmitigated []string // action ids left without any response
	Duration    time.Duration
}

type proposal struct {
	action    TrackedAction
	primary   Candidate
	secondary *Candidate
	ok        bool
}

// RunPass executes one planning pass for a team: stale-assignment cleanup,
// pending-movement re-validation, per-action planning, cross-action conflict
// resolution and fallback. The pass holds the coordination lock for its whole
// computation and delivers to sinks only after releasing it.
func (c *Coordinator) RunPass(team string) (PassResult, error) {
	if err := c.requireReady(); err != nil {
		return PassResult{}, err
	}
	c.mu.Lock()
	wall := time.Now()
	res := c.planTeamLocked(team, c.now())
	res.Duration = time.Since(wall)
	c.mu.Unlock()

	c.deliver(&res)
	return res, nil
}

func (c *Coordinator) planTeamLocked(team string, now time.Time) PassResult {
	res := PassResult{Team: team}
	c.invalidateStaleLocked(now)
	c.revalidatePendingLocked(&res, team, now)

	actions := c.tracker.Active(team, now)

	// Actions already covered by a live assignment (including pending
	// movements) are not re-planned.
	covered := make(map[string]bool, len(c.assignments))
	for _, asg := range c.assignments {
		covered[asg.ActionID] = true
	}

	// Phase 1: plan every action independently against the same snapshot.
	props := make([]proposal, 0, len(actions))
	for _, a := range actions {
		if covered[a.ID] {
			continue
		}
		c.metrics.assignmentAttempts.Add(1)
		primary, secondary, ok := c.planner.Plan(a, c.candidatesLocked(a, now))
		props = append(props, proposal{action: a, primary: primary, secondary: secondary, ok: ok})
	}

	// Phase 2: resolve agent contention in snapshot order. The snapshot is
	// already (priority desc, deadline asc), so the first action to claim an
	// agent is the one entitled to keep it; a loser retries its retained
	// secondary and falls back after that.
	claimed := make(map[string]bool)
	for _, pr := range props {
		switch {
		case !pr.ok:
			c.fallbackLocked(&res, pr.action, claimed, now)
		case !claimed[pr.primary.AgentID]:
			c.commitLocked(&res, pr.action, pr.primary, claimed, now)
		case pr.secondary != nil && !claimed[pr.secondary.AgentID]:
			c.commitLocked(&res, pr.action, *pr.secondary, claimed, now)
		default:
			c.fallbackLocked(&res, pr.action, claimed, now)
		}
	}
	return res
}

// candidatesLocked builds the scored candidate set for one action: alive
// teammates with a ready ability and no live assignment. Scratch state is
// newly allocated per call; nothing is shared between planning calls.
func (c *Coordinator) candidatesLocked(action TrackedAction, now time.Time) []Candidate {
	var cands []Candidate
	for id, st := range c.registry.agents {
		if st.cap.Team != action.Team || !st.alive {
			continue
		}
		if _, live := c.assignments[id]; live {
			continue
		}
		ability, backup, ok := st.ready(now)
		if !ok {
			continue
		}
		dist := st.pos.DistanceTo(action.Origin)
		cands = append(cands, Candidate{
			AgentID:  id,
			Ability:  ability,
			Backup:   backup,
			Distance: dist,
			InRange:  dist <= ability.Range,
			Rank:     c.ledger.Rank(action.Team, id, now),
		})
	}
	return cands
}

func (c *Coordinator) commitLocked(res *PassResult, action TrackedAction, cand Candidate, claimed map[string]bool, now time.Time) {
	if prev, ok := c.assignments[cand.AgentID]; ok {
		// Upstream race: the candidate filter excluded assigned agents, so a
		// live assignment here means state changed underneath us. Repair by
		// discarding the older assignment rather than violating the
		// one-assignment invariant.
		c.log.Warn("discarding conflicting assignment",
			"agent_id", cand.AgentID, "action_id", prev.ActionID)
		delete(c.assignments, cand.AgentID)
	}

	asg := &Assignment{
		ID:              uuid.NewString(),
		AgentID:         cand.AgentID,
		ActionID:        action.ID,
		AbilityID:       cand.Ability.ID,
		AbilityRange:    cand.Ability.Range,
		Priority:        action.Priority,
		Deadline:        action.Deadline,
		PendingMovement: !cand.InRange,
	}
	c.assignments[cand.AgentID] = asg
	claimed[cand.AgentID] = true
	c.ledger.MarkAssigned(action.Team, cand.AgentID, now)
	c.metrics.assignmentSuccesses.Add(1)

	if cand.InRange {
		res.Directives = append(res.Directives, Directive{
			AgentID:   cand.AgentID,
			AbilityID: cand.Ability.ID,
			ActionID:  action.ID,
			Priority:  action.Priority,
			Deadline:  action.Deadline,
		})
		return
	}

	// Out of range: request an urgent approach and keep the assignment
	// pending until a later pass re-validates range.
	c.metrics.movementRequired.Add(1)
	pos, _ := c.registry.PositionOf(cand.AgentID)
	res.Movements = append(res.Movements, MovementRequest{
		AgentID:     cand.AgentID,
		Destination: approachPoint(pos, action.Origin, cand.Ability.Range),
		Tier:        MoveUrgent,
	})
}

func (c *Coordinator) fallbackLocked(res *PassResult, action TrackedAction, claimed map[string]bool, now time.Time) {
	busy := make(map[string]bool, len(claimed)+len(c.assignments))
	for id := range claimed {
		busy[id] = true
	}
	for id := range c.assignments {
		busy[id] = true
	}
	decision, ok := c.fallback.Choose(action, c.registry, busy, now)
	if !ok {
		c.metrics.unmitigated.Add(1)
		res.Unmitigated = append(res.Unmitigated, action.ID)
		c.log.Debug("action unmitigated", "action_id", action.ID, "priority", action.Priority.String())
		return
	}
	claimed[decision.AgentID] = true
	c.metrics.fallbacksUsed.Add(1)
	res.Fallbacks = append(res.Fallbacks, decision)
	c.log.Debug("fallback selected",
		"action_id", action.ID, "method", decision.Method.String(), "agent_id", decision.AgentID)
}

// invalidateStaleLocked drops assignments whose action is gone or whose
// deadline has passed. A pending-movement assignment that expires counts as a
// miss.
func (c *Coordinator) invalidateStaleLocked(now time.Time) {
	for agentID, asg := range c.assignments {
		if c.tracker.Contains(asg.ActionID) && asg.Deadline.After(now) {
			continue
		}
		if asg.PendingMovement && !asg.Deadline.After(now) {
			c.metrics.unmitigated.Add(1)
		}
		delete(c.assignments, agentID)
	}
}

// revalidatePendingLocked promotes pending-movement assignments whose agent
// has come into range, emitting the deferred directive.
func (c *Coordinator) revalidatePendingLocked(res *PassResult, team string, now time.Time) {
	for agentID, asg := range c.assignments {
		if !asg.PendingMovement {
			continue
		}
		action, ok := c.tracker.Get(asg.ActionID)
		if !ok || action.Team != team {
			continue
		}
		pos, ok := c.registry.PositionOf(agentID)
		if !ok || pos.DistanceTo(action.Origin) > asg.AbilityRange {
			continue
		}
		asg.PendingMovement = false
		res.Directives = append(res.Directives, Directive{
			AgentID:   agentID,
			AbilityID: asg.AbilityID,
			ActionID:  asg.ActionID,
			Priority:  asg.Priority,
			Deadline:  asg.Deadline,
		})
	}
}

// deliver pushes pass outputs to the sinks. Runs without the lock; a sink
// failure degrades only the affected assignment.
func (c *Coordinator) deliver(res *PassResult) {
	if c.directives != nil {
		for _, d := range res.Directives {
			if err := c.directives.DeliverDirective(d); err != nil {
				c.log.Warn("directive delivery failed", "agent_id", d.AgentID, "err", err)
				c.dropAssignment(d.AgentID)
			}
		}
	}
	if c.movements != nil {
		for _, m := range res.Movements {
			if err := c.movements.RequestMovement(m); err != nil {
				c.log.Warn("movement request failed", "agent_id", m.AgentID, "err", err)
				c.dropAssignment(m.AgentID)
			}
		}
	}
}

func (c *Coordinator) dropAssignment(agentID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.assignments, agentID)
	c.metrics.unmitigated.Add(1)
}

// approachPoint returns the point on the segment from agent to target at
// which the target is just inside the given range. The small margin guards
// against re-validation flapping at the exact boundary.
func approachPoint(from, target Position, rng float64) Position {
	dist := from.DistanceTo(target)
	if dist <= rng || dist == 0 {
		return from
	}
	standoff := rng * 0.9
	t := (dist - standoff) / dist
	return Position{
		X: from.X + (target.X-from.X)*t,
		Y: from.Y + (target.Y-from.Y)*t,
	}
}
