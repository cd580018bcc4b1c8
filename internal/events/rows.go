// Event row types emitted by the coordination harness
package events

import (
	"os"
	"time"
)

// CastRow records one detected hostile cast.
type CastRow struct {
	Arena      string    `json:"arena"` // TAG
	ActionID   string    `json:"action_id"`
	Performer  string    `json:"performer"`
	Team       string    `json:"team"` // TAG
	Target     string    `json:"target"`
	Priority   string    `json:"priority"`
	DurationMs int64     `json:"duration_ms"`
	Timestamp  time.Time `json:"ts"` // TIME INDEX
}

// DirectiveRow records one disruption directive handed to an agent.
type DirectiveRow struct {
	Arena     string    `json:"arena"` // TAG
	Team      string    `json:"team"`  // TAG
	AgentID   string    `json:"agent_id"`
	AbilityID string    `json:"ability_id"`
	ActionID  string    `json:"action_id"`
	Pending   bool      `json:"pending"` // waiting on movement
	Timestamp time.Time `json:"ts"`      // TIME INDEX
}

// FallbackRow records a fallback method selection, or an unmitigated miss
// when Method is empty.
type FallbackRow struct {
	Arena     string    `json:"arena"` // TAG
	Team      string    `json:"team"`  // TAG
	ActionID  string    `json:"action_id"`
	Method    string    `json:"method"`
	AgentID   string    `json:"agent_id"`
	AbilityID string    `json:"ability_id"`
	Timestamp time.Time `json:"ts"` // TIME INDEX
}

// PassRow summarizes one planning pass together with the coordinator's
// cumulative counters at that moment.
type PassRow struct {
	Arena               string    `json:"arena"` // TAG
	Team                string    `json:"team"`  // TAG
	Actions             int       `json:"actions"`
	Directives          int       `json:"directives"`
	Fallbacks           int       `json:"fallbacks"`
	Unmitigated         int       `json:"unmitigated"`
	PassMicros          int64     `json:"pass_us"`
	ActionsDetected     int64     `json:"actions_detected"`
	AssignmentAttempts  int64     `json:"assignment_attempts"`
	AssignmentSuccesses int64     `json:"assignment_successes"`
	FallbacksUsed       int64     `json:"fallbacks_used"`
	MovementRequired    int64     `json:"movement_required"`
	UnmitigatedTotal    int64     `json:"unmitigated_total"`
	Timestamp           time.Time `json:"ts"` // TIME INDEX
}

// CastTableName is the GreptimeDB table casts are written to. Overridable via
// the CAST_TABLE environment variable.
var CastTableName = func() string {
	if env := os.Getenv("CAST_TABLE"); env != "" {
		return env
	}
	return "hostile_casts"
}()

func (CastRow) TableName() string { return CastTableName }
