package coord

// Candidate is one agent considered for an assignment, with the scoring
// inputs resolved at snapshot time. Candidates are built fresh per planning
// call; no scoring state survives across calls.
type Candidate struct {
	AgentID  string
	Ability  Ability
	Backup   bool
	Distance float64
	InRange  bool
	Rank     int
}

// Weights tunes candidate scoring. Rotation rank dominates so fairness wins
// over marginal distance differences; the backup penalty keeps primary-ability
// agents preferred when otherwise tied.
type Weights struct {
	Rotation float64
	Distance float64
	Backup   float64
}

// DefaultWeights returns the scoring weights used when config leaves them
// unset.
func DefaultWeights() Weights {
	return Weights{Rotation: 1000, Distance: 1, Backup: 500}
}

// Planner ranks candidates for a single tracked action.
type Planner struct {
	weights Weights
}

func NewPlanner(w Weights) *Planner {
	if w.Rotation == 0 && w.Distance == 0 && w.Backup == 0 {
		w = DefaultWeights()
	}
	return &Planner{weights: w}
}

func (p *Planner) score(c Candidate) float64 {
	s := float64(c.Rank)*p.weights.Rotation + c.Distance*p.weights.Distance
	if c.Backup {
		s += p.weights.Backup
	}
	return s
}

// Plan selects the best candidate for an action, plus a retained secondary
// used for cross-action conflict resolution. In-range candidates always beat
// out-of-range ones; an out-of-range selection means the assignment needs
// movement before it can execute. ok is false when no candidate is usable at
// all, in which case the caller falls back.
func (p *Planner) Plan(action TrackedAction, cands []Candidate) (primary Candidate, secondary *Candidate, ok bool) {
	if len(cands) == 0 {
		return Candidate{}, nil, false
	}
	best, second := -1, -1
	for i := range cands {
		if best == -1 || p.less(cands[i], cands[best]) {
			second = best
			best = i
			continue
		}
		if second == -1 || p.less(cands[i], cands[second]) {
			second = i
		}
	}
	primary = cands[best]
	if second >= 0 {
		c := cands[second]
		secondary = &c
	}
	return primary, secondary, true
}

// less orders candidates: in-range first, then ascending score, then id for
// determinism.
func (p *Planner) less(a, b Candidate) bool {
	if a.InRange != b.InRange {
		return a.InRange
	}
	sa, sb := p.score(a), p.score(b)
	if sa != sb {
		return sa < sb
	}
	return a.AgentID < b.AgentID
}
