package coord

import (
	"sort"
	"time"
)

// TrackedAction is one in-progress hostile action: a time-boxed cast that
// deals damage or crowd-control unless disrupted before its deadline.
type TrackedAction struct {
	ID        string
	Performer string
	Team      string // team under attack, i.e. the planning scope
	Target    string
	Priority  Priority
	Origin    Position // performer position, used for range checks
	StartedAt time.Time
	Deadline  time.Time
}

// Remaining returns the time left until the action completes.
func (a TrackedAction) Remaining(now time.Time) time.Duration {
	return a.Deadline.Sub(now)
}

// Tracker records currently in-progress hostile actions. Like the Registry it
// is unsynchronized by itself; the Coordinator serializes access.
type Tracker struct {
	actions map[string]*TrackedAction
}

func NewTracker() *Tracker {
	return &Tracker{actions: make(map[string]*TrackedAction)}
}

// Start records a new in-progress action. Restarting a known id replaces the
// previous record.
func (t *Tracker) Start(a TrackedAction) {
	cp := a
	t.actions[a.ID] = &cp
}

// End removes an action (completed, disrupted or cancelled). It reports
// whether the action was being tracked.
func (t *Tracker) End(actionID string) bool {
	if _, ok := t.actions[actionID]; !ok {
		return false
	}
	delete(t.actions, actionID)
	return true
}

// Get returns a copy of one tracked action.
func (t *Tracker) Get(actionID string) (TrackedAction, bool) {
	a, ok := t.actions[actionID]
	if !ok {
		return TrackedAction{}, false
	}
	return *a, true
}

// Contains reports whether an action id is still tracked.
func (t *Tracker) Contains(actionID string) bool {
	_, ok := t.actions[actionID]
	return ok
}

// Len returns the number of tracked actions.
func (t *Tracker) Len() int {
	return len(t.actions)
}

// Active prunes expired actions and returns a snapshot of the remainder for
// one team, sorted by (priority desc, remaining asc). The highest tier is
// planned first; within a tier the action closest to completion has the least
// slack and wins the tie.
func (t *Tracker) Active(team string, now time.Time) []TrackedAction {
	var out []TrackedAction
	for id, a := range t.actions {
		if !a.Deadline.After(now) {
			delete(t.actions, id)
			continue
		}
		if a.Team != team {
			continue
		}
		out = append(out, *a)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority > out[j].Priority
		}
		if !out[i].Deadline.Equal(out[j].Deadline) {
			return out[i].Deadline.Before(out[j].Deadline)
		}
		return out[i].ID < out[j].ID
	})
	return out
}
