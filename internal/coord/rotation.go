package coord

import "time"

const defaultHistorySize = 8

type historyEntry struct {
	agentID string
	at      time.Time
}

type teamRotation struct {
	order   []string
	history []historyEntry
}

// Ledger keeps the per-team rotation order plus a short assignment history so
// planning is biased away from agents who disrupted recently. Entries rotate,
// they are never lost while the agent stays registered.
type Ledger struct {
	teams       map[string]*teamRotation
	window      time.Duration
	historySize int
}

// NewLedger creates a ledger with the given recency window. Agents appearing
// in a team's history within the window rank behind the rest of the rotation.
func NewLedger(window time.Duration, historySize int) *Ledger {
	if historySize <= 0 {
		historySize = defaultHistorySize
	}
	return &Ledger{
		teams:       make(map[string]*teamRotation),
		window:      window,
		historySize: historySize,
	}
}

func (l *Ledger) team(team string) *teamRotation {
	tr, ok := l.teams[team]
	if !ok {
		tr = &teamRotation{}
		l.teams[team] = tr
	}
	return tr
}

// Add appends an agent to the back of a team's rotation. Duplicates are
// ignored, keeping the order a total order over distinct ids.
func (l *Ledger) Add(team, agentID string) {
	tr := l.team(team)
	for _, id := range tr.order {
		if id == agentID {
			return
		}
	}
	tr.order = append(tr.order, agentID)
}

// Remove drops an agent from a team's rotation and history.
func (l *Ledger) Remove(team, agentID string) {
	tr, ok := l.teams[team]
	if !ok {
		return
	}
	order := tr.order[:0]
	for _, id := range tr.order {
		if id != agentID {
			order = append(order, id)
		}
	}
	tr.order = order
	hist := tr.history[:0]
	for _, h := range tr.history {
		if h.agentID != agentID {
			hist = append(hist, h)
		}
	}
	tr.history = hist
}

// Rank returns the assignment priority of an agent within its team: its index
// in the rotation order, pushed past the end of the rotation when the agent
// disrupted within the recency window. Lower ranks are preferred. Unknown
// agents rank last.
func (l *Ledger) Rank(team, agentID string, now time.Time) int {
	tr, ok := l.teams[team]
	if !ok {
		return 0
	}
	rank := len(tr.order)
	for i, id := range tr.order {
		if id == agentID {
			rank = i
			break
		}
	}
	for _, h := range tr.history {
		if h.agentID == agentID && now.Sub(h.at) <= l.window {
			rank += len(tr.order)
			break
		}
	}
	return rank
}

// MarkAssigned rotates an agent to the back of the order and records the
// assignment in the team history.
func (l *Ledger) MarkAssigned(team, agentID string, now time.Time) {
	tr := l.team(team)
	order := tr.order[:0]
	found := false
	for _, id := range tr.order {
		if id == agentID {
			found = true
			continue
		}
		order = append(order, id)
	}
	tr.order = order
	if found {
		tr.order = append(tr.order, agentID)
	}
	tr.history = append(tr.history, historyEntry{agentID: agentID, at: now})
	if len(tr.history) > l.historySize {
		tr.history = tr.history[len(tr.history)-l.historySize:]
	}
}

// Order returns a copy of a team's rotation order.
func (l *Ledger) Order(team string) []string {
	tr, ok := l.teams[team]
	if !ok {
		return nil
	}
	out := make([]string, len(tr.order))
	copy(out, tr.order)
	return out
}
