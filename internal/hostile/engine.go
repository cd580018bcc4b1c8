// Hostile cast generator driving the coordination harness
package hostile

import (
	"math/rand"
	"time"

	"github.com/google/uuid"

	"botops-coord/internal/coord"
)

// Cast is one time-boxed hostile action performed by a caster against a bot.
type Cast struct {
	ID       string
	Caster   string
	Team     string // team under attack
	Target   string
	Priority coord.Priority
	Origin   coord.Position
	Started  time.Time
	Deadline time.Time
}

// Duration returns the cast's total execution window.
func (c Cast) Duration() time.Duration {
	return c.Deadline.Sub(c.Started)
}

// Target identifies a bot a caster can aim at.
type Target struct {
	ID   string
	Team string
	Pos  coord.Position
}

// Caster is one hostile entity; it wanders the arena and periodically starts
// a cast.
type Caster struct {
	ID         string
	Pos        coord.Position
	CastID     string // active cast, empty when idle
	nextCastAt time.Time
}

// Config tunes cast generation.
type Config struct {
	Casters     int
	Interval    time.Duration // mean idle time between casts per caster
	MinDuration time.Duration
	MaxDuration time.Duration
	// Relative weights for generated priorities.
	CriticalWeight int
	HighWeight     int
	NormalWeight   int
	ArenaWidth     float64
	ArenaHeight    float64
}

// Engine maintains the hostile casters and their in-progress casts.
type Engine struct {
	cfg     Config
	casters []*Caster
	active  map[string]*Cast
	rng     *rand.Rand
	rate    float64 // cast-rate multiplier, adjusted by encounter phases
}

// NewEngine creates an engine with casters scattered over the arena. A fixed
// seed gives reproducible encounters.
func NewEngine(cfg Config, seed int64) *Engine {
	if cfg.Casters <= 0 {
		cfg.Casters = 3
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 4 * time.Second
	}
	if cfg.MinDuration <= 0 {
		cfg.MinDuration = 1500 * time.Millisecond
	}
	if cfg.MaxDuration < cfg.MinDuration {
		cfg.MaxDuration = cfg.MinDuration + 2*time.Second
	}
	if cfg.CriticalWeight+cfg.HighWeight+cfg.NormalWeight <= 0 {
		cfg.CriticalWeight, cfg.HighWeight, cfg.NormalWeight = 1, 2, 4
	}
	if cfg.ArenaWidth <= 0 {
		cfg.ArenaWidth = 200
	}
	if cfg.ArenaHeight <= 0 {
		cfg.ArenaHeight = 200
	}
	e := &Engine{
		cfg:    cfg,
		active: make(map[string]*Cast),
		rng:    rand.New(rand.NewSource(seed)),
		rate:   1,
	}
	for i := 0; i < cfg.Casters; i++ {
		e.casters = append(e.casters, &Caster{
			ID: "caster-" + uuid.NewString()[:8],
			Pos: coord.Position{
				X: e.rng.Float64() * cfg.ArenaWidth,
				Y: e.rng.Float64() * cfg.ArenaHeight,
			},
		})
	}
	return e
}

// SetRate sets the cast-rate multiplier; higher values shorten caster idle
// time between casts.
func (e *Engine) SetRate(mult float64) {
	if mult > 0 {
		e.rate = mult
	}
}

// Step advances all casters: wander, finish casts whose window elapsed, and
// start new casts against the given targets. It returns casts started and
// casts that completed un-disrupted this step.
func (e *Engine) Step(now time.Time, targets []Target) (started, completed []Cast) {
	for _, c := range e.casters {
		e.wander(c)

		if c.CastID != "" {
			cast, ok := e.active[c.CastID]
			if !ok {
				c.CastID = "" // disrupted between steps
				c.nextCastAt = now.Add(e.idle())
				continue
			}
			if !cast.Deadline.After(now) {
				completed = append(completed, *cast)
				delete(e.active, c.CastID)
				c.CastID = ""
				c.nextCastAt = now.Add(e.idle())
			}
			continue
		}

		if len(targets) == 0 || now.Before(c.nextCastAt) {
			continue
		}
		tgt := targets[e.rng.Intn(len(targets))]
		dur := e.cfg.MinDuration + time.Duration(e.rng.Int63n(int64(e.cfg.MaxDuration-e.cfg.MinDuration)+1))
		cast := &Cast{
			ID:       uuid.NewString(),
			Caster:   c.ID,
			Team:     tgt.Team,
			Target:   tgt.ID,
			Priority: e.rollPriority(),
			Origin:   c.Pos,
			Started:  now,
			Deadline: now.Add(dur),
		}
		e.active[cast.ID] = cast
		c.CastID = cast.ID
		started = append(started, *cast)
	}
	return started, completed
}

// Interrupt cancels an in-progress cast. It reports whether the cast was
// still active.
func (e *Engine) Interrupt(castID string) bool {
	if _, ok := e.active[castID]; !ok {
		return false
	}
	delete(e.active, castID)
	return true
}

// Get returns a snapshot of one in-progress cast.
func (e *Engine) Get(castID string) (Cast, bool) {
	c, ok := e.active[castID]
	if !ok {
		return Cast{}, false
	}
	return *c, true
}

// Active returns a snapshot of in-progress casts.
func (e *Engine) Active() []Cast {
	out := make([]Cast, 0, len(e.active))
	for _, c := range e.active {
		out = append(out, *c)
	}
	return out
}

// Casters returns a snapshot of caster positions.
func (e *Engine) Casters() []Caster {
	out := make([]Caster, 0, len(e.casters))
	for _, c := range e.casters {
		out = append(out, *c)
	}
	return out
}

func (e *Engine) wander(c *Caster) {
	c.Pos.X += e.rng.Float64()*4 - 2
	c.Pos.Y += e.rng.Float64()*4 - 2
	c.Pos.X = clamp(c.Pos.X, 0, e.cfg.ArenaWidth)
	c.Pos.Y = clamp(c.Pos.Y, 0, e.cfg.ArenaHeight)
}

func (e *Engine) idle() time.Duration {
	base := float64(e.cfg.Interval) / e.rate
	jitter := 0.5 + e.rng.Float64() // 0.5x..1.5x
	return time.Duration(base * jitter)
}

func (e *Engine) rollPriority() coord.Priority {
	total := e.cfg.CriticalWeight + e.cfg.HighWeight + e.cfg.NormalWeight
	roll := e.rng.Intn(total)
	switch {
	case roll < e.cfg.CriticalWeight:
		return coord.PriorityCritical
	case roll < e.cfg.CriticalWeight+e.cfg.HighWeight:
		return coord.PriorityHigh
	default:
		return coord.PriorityNormal
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
