package sim

import (
	"context"
	"log/slog"
	"time"

	"botops-coord/internal/coord"
	"botops-coord/internal/events"
	"botops-coord/internal/hostile"
	"botops-coord/internal/logging"
	"botops-coord/internal/scenario"
)

const (
	botSpeedPerTick = 6.0 // meters a bot covers per tick when repositioning
	arriveEpsilon   = 1.0
)

// Run starts the simulation loop and stops when the context is done.
func (s *Simulator) Run(ctx context.Context) {
	log := logging.FromContext(ctx)
	log.Info("starting simulator", "arena", s.arenaID, "tick_interval", s.tickInterval)
	ticker := time.NewTicker(s.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.tick(ctx)
		case <-ctx.Done():
			log.Info("stopping simulator")
			if err := s.coordinator.Shutdown(context.Background()); err != nil {
				log.Error("coordinator shutdown failed", "err", err)
			}
			return
		}
	}
}

// tick advances the world one step: encounter phase, chaos, movement, hostile
// casts, one planning pass per squad, then directive execution.
func (s *Simulator) tick(ctx context.Context) {
	log := logging.FromContext(ctx)
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()

	s.advanceEncounter(now, log)
	if s.chaosMode {
		s.injectChaos(log)
	}
	s.moveBots(log)

	var targets []hostile.Target
	for _, sq := range s.squads {
		for _, b := range sq.Bots {
			if b.Alive {
				targets = append(targets, hostile.Target{ID: b.ID, Team: b.Squad, Pos: b.Pos})
			}
		}
	}

	started, completed := s.hostiles.Step(now, targets)
	var castRows []events.CastRow
	for _, c := range started {
		if err := s.coordinator.ActionStarted(c.ID, c.Caster, c.Team, c.Target, c.Origin, c.Duration(), c.Priority); err != nil {
			log.Error("action start rejected", "action_id", c.ID, "err", err)
			continue
		}
		castRows = append(castRows, events.CastRow{
			Arena:      s.arenaID,
			ActionID:   c.ID,
			Performer:  c.Caster,
			Team:       c.Team,
			Target:     c.Target,
			Priority:   c.Priority.String(),
			DurationMs: c.Duration().Milliseconds(),
			Timestamp:  now,
		})
	}
	for _, c := range completed {
		if err := s.coordinator.ActionEnded(c.ID, "completed"); err != nil {
			log.Error("action end rejected", "action_id", c.ID, "err", err)
		}
	}

	for _, sq := range s.squads {
		res, err := s.coordinator.RunPass(sq.Name)
		if err != nil {
			log.Error("planning pass failed", "squad", sq.Name, "err", err)
			continue
		}
		s.collectPass(sq.Name, res, now, log)
	}

	s.executeDue(now, log)
	s.writeCasts(castRows, log)
}

// collectPass drains the sink queues filled by one pass, schedules directive
// execution, applies movement requests and writes the event rows.
func (s *Simulator) collectPass(team string, res coord.PassResult, now time.Time, log *slog.Logger) {
	latency := time.Duration(s.cfg.Coordination.DirectiveLatencyMs) * time.Millisecond

	for _, d := range s.directives.items {
		s.pending = append(s.pending, pendingDirective{
			directive: d,
			team:      team,
			executeAt: now.Add(latency),
		})
		if err := s.writer.WriteDirective(events.DirectiveRow{
			Arena:     s.arenaID,
			Team:      team,
			AgentID:   d.AgentID,
			AbilityID: d.AbilityID,
			ActionID:  d.ActionID,
			Pending:   d.PendingMovement,
			Timestamp: now,
		}); err != nil {
			log.Error("directive write failed", "agent_id", d.AgentID, "err", err)
		}
	}
	s.directives.items = nil

	for _, m := range s.movements.items {
		if bot, ok := s.botIndex[m.AgentID]; ok && bot.Alive {
			dest := m.Destination
			bot.moveTarget = &dest
		}
	}
	s.movements.items = nil

	for _, f := range res.Fallbacks {
		s.applyFallback(f, now, latency)
		if err := s.writer.WriteFallback(events.FallbackRow{
			Arena:     s.arenaID,
			Team:      team,
			ActionID:  f.ActionID,
			Method:    f.Method.String(),
			AgentID:   f.AgentID,
			AbilityID: f.AbilityID,
			Timestamp: now,
		}); err != nil {
			log.Error("fallback write failed", "action_id", f.ActionID, "err", err)
		}
	}
	for _, id := range res.Unmitigated {
		if err := s.writer.WriteFallback(events.FallbackRow{
			Arena:     s.arenaID,
			Team:      team,
			ActionID:  id,
			Method:    "none",
			Timestamp: now,
		}); err != nil {
			log.Error("miss write failed", "action_id", id, "err", err)
		}
	}

	snap := s.coordinator.Metrics()
	if err := s.writer.WritePass(events.PassRow{
		Arena:               s.arenaID,
		Team:                team,
		Actions:             len(res.Directives) + len(res.Fallbacks) + len(res.Unmitigated),
		Directives:          len(res.Directives),
		Fallbacks:           len(res.Fallbacks),
		Unmitigated:         len(res.Unmitigated),
		PassMicros:          res.Duration.Microseconds(),
		ActionsDetected:     snap.ActionsDetected,
		AssignmentAttempts:  snap.AssignmentAttempts,
		AssignmentSuccesses: snap.AssignmentSuccesses,
		FallbacksUsed:       snap.FallbacksUsed,
		MovementRequired:    snap.MovementRequired,
		UnmitigatedTotal:    snap.Unmitigated,
		Timestamp:           now,
	}); err != nil {
		log.Error("pass write failed", "squad", team, "err", err)
	}
}

// applyFallback turns a fallback decision into simulated behavior: ability
// methods execute like directives, movement methods reposition the agent.
func (s *Simulator) applyFallback(f coord.FallbackDecision, now time.Time, latency time.Duration) {
	bot, ok := s.botIndex[f.AgentID]
	if !ok || !bot.Alive {
		return
	}
	if f.AbilityID != "" {
		s.pending = append(s.pending, pendingDirective{
			directive: coord.Directive{
				AgentID:   f.AgentID,
				AbilityID: f.AbilityID,
				ActionID:  f.ActionID,
			},
			executeAt: now.Add(latency),
		})
		return
	}
	cast, ok := s.hostiles.Get(f.ActionID)
	if !ok {
		return
	}
	var dest coord.Position
	switch f.Method {
	case coord.FallbackSightBreak:
		// Body-block: stand halfway between the caster and its target.
		dest = coord.Position{
			X: (bot.Pos.X + cast.Origin.X) / 2,
			Y: (bot.Pos.Y + cast.Origin.Y) / 2,
		}
	case coord.FallbackRangeBreak:
		// The targeted bot runs directly away from the caster.
		dx, dy := bot.Pos.X-cast.Origin.X, bot.Pos.Y-cast.Origin.Y
		dest = coord.Position{X: bot.Pos.X + dx, Y: bot.Pos.Y + dy}
	default:
		return
	}
	bot.moveTarget = &dest
}

// executeDue fires directives whose latency elapsed. Interrupting the cast
// rolls against the configured success rate; the ability goes on cooldown
// either way.
func (s *Simulator) executeDue(now time.Time, log *slog.Logger) {
	rate := s.cfg.Coordination.InterruptSuccessRate
	if rate <= 0 {
		rate = 1
	}
	remaining := s.pending[:0]
	for _, p := range s.pending {
		if p.executeAt.After(now) {
			remaining = append(remaining, p)
			continue
		}
		bot, ok := s.botIndex[p.directive.AgentID]
		if !ok || !bot.Alive {
			continue
		}
		if _, active := s.hostiles.Get(p.directive.ActionID); !active {
			continue // cast already over; coordinator prunes the assignment
		}
		if err := s.coordinator.AbilityUsed(p.directive.AgentID, p.directive.AbilityID, s.cooldowns[p.directive.AbilityID]); err != nil {
			log.Error("ability use rejected", "agent_id", p.directive.AgentID, "err", err)
			continue
		}
		if s.rng.Float64() <= rate && s.hostiles.Interrupt(p.directive.ActionID) {
			s.interrupted++
			if err := s.coordinator.ActionEnded(p.directive.ActionID, "interrupted"); err != nil {
				log.Error("action end rejected", "action_id", p.directive.ActionID, "err", err)
			}
		}
	}
	s.pending = remaining
}

// moveBots steps repositioning bots toward their targets and reports the new
// positions to the coordinator.
func (s *Simulator) moveBots(log *slog.Logger) {
	for _, sq := range s.squads {
		for _, b := range sq.Bots {
			if b.moveTarget == nil || !b.Alive {
				continue
			}
			dist := b.Pos.DistanceTo(*b.moveTarget)
			if dist <= arriveEpsilon {
				b.moveTarget = nil
				continue
			}
			step := botSpeedPerTick
			if step > dist {
				step = dist
			}
			b.Pos.X += (b.moveTarget.X - b.Pos.X) / dist * step
			b.Pos.Y += (b.moveTarget.Y - b.Pos.Y) / dist * step
			if err := s.coordinator.AgentMoved(b.ID, b.Pos); err != nil {
				log.Error("move update rejected", "agent_id", b.ID, "err", err)
			}
		}
	}
}

// injectChaos randomly downs, despawns or revives bots so degraded-agent
// paths stay exercised. A despawned bot leaves the registry entirely; a
// downed one keeps its slot but is skipped by planning until revived.
func (s *Simulator) injectChaos(log *slog.Logger) {
	rate := s.cfg.ChaosRate
	if rate <= 0 {
		rate = 0.05
	}
	if s.rng.Float64() >= rate {
		return
	}
	sq := s.squads[s.rng.Intn(len(s.squads))]
	if len(sq.Bots) == 0 {
		return
	}
	bot := sq.Bots[s.rng.Intn(len(sq.Bots))]
	if bot.Alive {
		bot.Alive = false
		bot.moveTarget = nil
		if s.rng.Float64() < 0.5 {
			bot.despawned = true
			if err := s.coordinator.AgentLeft(bot.ID); err != nil {
				log.Error("deregistration failed", "agent_id", bot.ID, "err", err)
			}
			return
		}
		if err := s.coordinator.SetAgentAlive(bot.ID, false); err != nil {
			log.Error("down update failed", "agent_id", bot.ID, "err", err)
		}
		return
	}
	if bot.despawned {
		cap, err := s.loadout(bot.ID, s.squadCfg[bot.Squad])
		if err != nil {
			log.Error("revive loadout failed", "agent_id", bot.ID, "err", err)
			return
		}
		if err := s.coordinator.AgentJoined(cap, bot.Pos); err != nil {
			log.Error("revive registration failed", "agent_id", bot.ID, "err", err)
			return
		}
		bot.despawned = false
		bot.Alive = true
		return
	}
	if err := s.coordinator.SetAgentAlive(bot.ID, true); err != nil {
		log.Error("revive update failed", "agent_id", bot.ID, "err", err)
		return
	}
	bot.Alive = true
}

// advanceEncounter applies the encounter script's triggers.
func (s *Simulator) advanceEncounter(now time.Time, log *slog.Logger) {
	if s.encounter == nil || s.phase == "" {
		return
	}
	elapsed := int(now.Sub(s.phaseStarted).Seconds())
	next, ok := s.encounter.NextPhase(s.phase, scenario.Event{Type: "time_elapsed", Value: elapsed})
	if !ok {
		next, ok = s.encounter.NextPhase(s.phase, scenario.Event{Type: "casts_interrupted", Value: s.interrupted})
	}
	if !ok {
		return
	}
	phase, found := s.encounter.Lookup(next)
	if !found {
		log.Warn("encounter trigger names unknown phase", "phase", next)
		return
	}
	s.phase = next
	s.phaseStarted = now
	s.hostiles.SetRate(phase.CastRate)
	log.Info("encounter phase change", "phase", next, "cast_rate", phase.CastRate)
}

func (s *Simulator) writeCasts(rows []events.CastRow, log *slog.Logger) {
	if len(rows) == 0 {
		return
	}
	if bw, ok := s.writer.(batchCastWriter); ok {
		if err := bw.WriteCasts(rows); err != nil {
			log.Error("cast batch write failed", "err", err)
		}
		return
	}
	for _, r := range rows {
		if err := s.writer.WriteCast(r); err != nil {
			log.Error("cast write failed", "action_id", r.ActionID, "err", err)
		}
	}
}
