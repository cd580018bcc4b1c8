// Simulator orchestrating bot squads, hostile casts and coordination passes
package sim

import (
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"botops-coord/internal/config"
	"botops-coord/internal/coord"
	"botops-coord/internal/events"
	"botops-coord/internal/hostile"
	"botops-coord/internal/scenario"
)

// CastWriter receives detected hostile casts.
type CastWriter interface {
	WriteCast(events.CastRow) error
}

// DirectiveWriter receives issued disruption directives.
type DirectiveWriter interface {
	WriteDirective(events.DirectiveRow) error
}

// FallbackWriter receives fallback selections and unmitigated misses.
type FallbackWriter interface {
	WriteFallback(events.FallbackRow) error
}

// PassWriter receives per-pass summaries.
type PassWriter interface {
	WritePass(events.PassRow) error
}

// EventWriter is the full sink for coordination events.
type EventWriter interface {
	CastWriter
	DirectiveWriter
	FallbackWriter
	PassWriter
}

// Optional: cast writers may support batch mode.
type batchCastWriter interface {
	WriteCasts([]events.CastRow) error
}

// Bot holds runtime state for one simulated agent.
type Bot struct {
	ID         string
	Squad      string
	Pos        coord.Position
	Alive      bool
	despawned  bool
	moveTarget *coord.Position
}

// Squad holds runtime bots for one team.
type Squad struct {
	Name string
	Bots []*Bot
}

// directiveQueue collects directives a pass delivers through the sink.
type directiveQueue struct{ items []coord.Directive }

func (q *directiveQueue) DeliverDirective(d coord.Directive) error {
	q.items = append(q.items, d)
	return nil
}

// movementQueue collects movement requests a pass delivers through the sink.
type movementQueue struct{ items []coord.MovementRequest }

func (q *movementQueue) RequestMovement(m coord.MovementRequest) error {
	q.items = append(q.items, m)
	return nil
}

type pendingDirective struct {
	directive coord.Directive
	team      string
	executeAt time.Time
}

// Simulator owns the coordinator, the hostile engine and the bot squads, and
// advances them together on a fixed tick.
type Simulator struct {
	arenaID      string
	cfg          *config.SimulationConfig
	coordinator  *coord.Coordinator
	hostiles     *hostile.Engine
	squads       []*Squad
	squadCfg     map[string]config.Squad
	botIndex     map[string]*Bot
	cooldowns    map[string]time.Duration // ability id -> cooldown
	writer       EventWriter
	directives   *directiveQueue
	movements    *movementQueue
	pending      []pendingDirective
	encounter    *scenario.Encounter
	phase        string
	phaseStarted time.Time
	interrupted  int
	tickInterval time.Duration
	chaosMode    bool
	rng          *rand.Rand
	now          func() time.Time
	mu           sync.Mutex
}

// NewSimulator builds squads and hostiles from config and brings the
// coordinator to Ready.
func NewSimulator(arenaID string, cfg *config.SimulationConfig, writer EventWriter, tickInterval time.Duration, logger *slog.Logger) (*Simulator, error) {
	s := &Simulator{
		arenaID:      arenaID,
		cfg:          cfg,
		writer:       writer,
		directives:   &directiveQueue{},
		movements:    &movementQueue{},
		squadCfg:     make(map[string]config.Squad),
		botIndex:     make(map[string]*Bot),
		phaseStarted: time.Now(),
		cooldowns:    make(map[string]time.Duration),
		tickInterval: tickInterval,
		rng:          rand.New(rand.NewSource(time.Now().UnixNano())),
		now:          time.Now,
	}

	s.coordinator = coord.New(coord.Config{
		RotationWindow: cfg.Coordination.RotationWindow(),
		HistorySize:    cfg.Coordination.HistorySize,
		Weights: coord.Weights{
			Rotation: cfg.Coordination.Weights.Rotation,
			Distance: cfg.Coordination.Weights.Distance,
			Backup:   cfg.Coordination.Weights.Backup,
		},
		DrainTimeout: cfg.Coordination.DrainTimeout(),
		Logger:       logger,
	}, s.directives, s.movements)
	if err := s.coordinator.Initialize(); err != nil {
		return nil, err
	}

	for _, sq := range cfg.Squads {
		s.squadCfg[sq.Name] = sq
		squad := &Squad{Name: sq.Name}
		for i := 0; i < sq.Bots; i++ {
			bot := &Bot{
				ID:    fmt.Sprintf("%s-%d-%s", sq.Name, i, uuid.NewString()[:8]),
				Squad: sq.Name,
				Pos: coord.Position{
					X: s.rng.Float64() * cfg.Arena.WidthM,
					Y: s.rng.Float64() * cfg.Arena.HeightM,
				},
				Alive: true,
			}
			cap, err := s.loadout(bot.ID, sq)
			if err != nil {
				return nil, err
			}
			if err := s.coordinator.AgentJoined(cap, bot.Pos); err != nil {
				return nil, err
			}
			squad.Bots = append(squad.Bots, bot)
			s.botIndex[bot.ID] = bot
		}
		s.squads = append(s.squads, squad)
	}

	s.hostiles = hostile.NewEngine(hostile.Config{
		Casters:     cfg.Hostiles.Casters,
		Interval:    time.Duration(cfg.Hostiles.CastIntervalMs) * time.Millisecond,
		MinDuration: time.Duration(cfg.Hostiles.CastDurationMinMs) * time.Millisecond,
		MaxDuration: time.Duration(cfg.Hostiles.CastDurationMaxMs) * time.Millisecond,
		CriticalWeight: cfg.Hostiles.CriticalWeight,
		HighWeight:     cfg.Hostiles.HighWeight,
		NormalWeight:   cfg.Hostiles.NormalWeight,
		ArenaWidth:     cfg.Arena.WidthM,
		ArenaHeight:    cfg.Arena.HeightM,
	}, time.Now().UnixNano())

	if cfg.Encounter != "" {
		// Names that are not built in are treated as paths to encounter files.
		enc, ok := scenario.BuiltIn()[cfg.Encounter]
		if !ok {
			loaded, err := scenario.Load(cfg.Encounter)
			if err != nil {
				return nil, fmt.Errorf("encounter %q: %w", cfg.Encounter, err)
			}
			enc = *loaded
		}
		s.encounter = &enc
		if len(enc.Phases) > 0 {
			s.phase = enc.Phases[0].Name
			s.hostiles.SetRate(enc.Phases[0].CastRate)
		}
	}
	return s, nil
}

// loadout resolves one squad's configured abilities into a capability.
func (s *Simulator) loadout(botID string, sq config.Squad) (coord.Capability, error) {
	primary, err := s.ability(sq.Loadout.Primary)
	if err != nil {
		return coord.Capability{}, fmt.Errorf("squad %s: %w", sq.Name, err)
	}
	var backups []coord.Ability
	for _, b := range sq.Loadout.Backups {
		ab, err := s.ability(b)
		if err != nil {
			return coord.Capability{}, fmt.Errorf("squad %s: %w", sq.Name, err)
		}
		backups = append(backups, ab)
	}
	return coord.Capability{
		AgentID: botID,
		Team:    sq.Name,
		Primary: primary,
		Backups: backups,
	}, nil
}

func (s *Simulator) ability(a config.Ability) (coord.Ability, error) {
	class, err := coord.ParseAbilityClass(a.Class)
	if err != nil {
		return coord.Ability{}, err
	}
	cd := time.Duration(a.CooldownMs) * time.Millisecond
	s.cooldowns[a.ID] = cd
	return coord.Ability{ID: a.ID, Class: class, Range: a.RangeM, Cooldown: cd}, nil
}

// Coordinator exposes the facade for the admin server.
func (s *Simulator) Coordinator() *coord.Coordinator {
	return s.coordinator
}

// ToggleChaos flips chaos mode on or off and returns the new state.
func (s *Simulator) ToggleChaos() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chaosMode = !s.chaosMode
	return s.chaosMode
}

// Chaos returns whether chaos mode is active.
func (s *Simulator) Chaos() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.chaosMode
}

// GetConfig returns the simulation configuration.
func (s *Simulator) GetConfig() *config.SimulationConfig {
	return s.cfg
}

// SquadHealth summarizes one squad's state.
type SquadHealth struct {
	Name     string `json:"name"`
	Total    int    `json:"total"`
	Alive    int    `json:"alive"`
	Assigned int    `json:"assigned"`
}

// Health returns aggregated squad state.
func (s *Simulator) Health() []SquadHealth {
	s.mu.Lock()
	defer s.mu.Unlock()
	assigned := make(map[string]bool)
	for _, a := range s.coordinator.Assignments() {
		assigned[a.AgentID] = true
	}
	var out []SquadHealth
	for _, sq := range s.squads {
		h := SquadHealth{Name: sq.Name, Total: len(sq.Bots)}
		for _, b := range sq.Bots {
			if b.Alive {
				h.Alive++
			}
			if assigned[b.ID] {
				h.Assigned++
			}
		}
		out = append(out, h)
	}
	return out
}

// AgentStatus is one bot's externally visible state.
type AgentStatus struct {
	ID        string         `json:"id"`
	Squad     string         `json:"squad"`
	Pos       coord.Position `json:"pos"`
	Alive     bool           `json:"alive"`
	Available bool           `json:"available"`
}

// Agents returns a snapshot of all bots.
func (s *Simulator) Agents() []AgentStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []AgentStatus
	for _, sq := range s.squads {
		for _, b := range sq.Bots {
			out = append(out, AgentStatus{
				ID:        b.ID,
				Squad:     b.Squad,
				Pos:       b.Pos,
				Alive:     b.Alive,
				Available: s.coordinator.IsAvailable(b.ID),
			})
		}
	}
	return out
}

// ActiveCasts returns a snapshot of in-progress hostile casts.
func (s *Simulator) ActiveCasts() []hostile.Cast {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hostiles.Active()
}

// Phase returns the current encounter phase name, if an encounter script is
// loaded.
func (s *Simulator) Phase() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}
