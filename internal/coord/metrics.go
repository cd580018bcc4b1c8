package coord

import "sync/atomic"

// Metrics holds the process-wide coordination counters. All fields are
// lock-free atomics so readers never contend with planning passes.
type Metrics struct {
	actionsDetected     atomic.Int64
	assignmentAttempts  atomic.Int64
	assignmentSuccesses atomic.Int64
	fallbacksUsed       atomic.Int64
	movementRequired    atomic.Int64
	unmitigated         atomic.Int64
}

// MetricsSnapshot is a point-in-time copy of the counters.
type MetricsSnapshot struct {
	ActionsDetected     int64 `json:"actions_detected"`
	AssignmentAttempts  int64 `json:"assignment_attempts"`
	AssignmentSuccesses int64 `json:"assignment_successes"`
	FallbacksUsed       int64 `json:"fallbacks_used"`
	MovementRequired    int64 `json:"movement_required"`
	Unmitigated         int64 `json:"unmitigated"`
}

// Snapshot reads all counters without synchronization.
func (m *Metrics) Snapshot() MetricsSnapshot {
	return MetricsSnapshot{
		ActionsDetected:     m.actionsDetected.Load(),
		AssignmentAttempts:  m.assignmentAttempts.Load(),
		AssignmentSuccesses: m.assignmentSuccesses.Load(),
		FallbacksUsed:       m.fallbacksUsed.Load(),
		MovementRequired:    m.movementRequired.Load(),
		Unmitigated:         m.unmitigated.Load(),
	}
}

// Reset zeroes all counters. Only the explicit administrative call and
// Initialize use this.
func (m *Metrics) Reset() {
	m.actionsDetected.Store(0)
	m.assignmentAttempts.Store(0)
	m.assignmentSuccesses.Store(0)
	m.fallbacksUsed.Store(0)
	m.movementRequired.Store(0)
	m.unmitigated.Store(0)
}
