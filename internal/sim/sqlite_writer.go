package sim

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"botops-coord/internal/events"
)

const historySchema = `
CREATE TABLE IF NOT EXISTS casts (
	action_id TEXT NOT NULL,
	arena TEXT NOT NULL,
	team TEXT NOT NULL,
	performer TEXT NOT NULL,
	target TEXT NOT NULL,
	priority TEXT NOT NULL,
	duration_ms INTEGER NOT NULL,
	ts INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_casts_ts ON casts(ts);

CREATE TABLE IF NOT EXISTS directives (
	arena TEXT NOT NULL,
	team TEXT NOT NULL,
	agent_id TEXT NOT NULL,
	ability_id TEXT NOT NULL,
	action_id TEXT NOT NULL,
	pending INTEGER NOT NULL,
	ts INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_directives_ts ON directives(ts);

CREATE TABLE IF NOT EXISTS fallbacks (
	arena TEXT NOT NULL,
	team TEXT NOT NULL,
	action_id TEXT NOT NULL,
	method TEXT NOT NULL,
	agent_id TEXT NOT NULL,
	ability_id TEXT NOT NULL,
	ts INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS passes (
	arena TEXT NOT NULL,
	team TEXT NOT NULL,
	actions INTEGER NOT NULL,
	directives INTEGER NOT NULL,
	fallbacks INTEGER NOT NULL,
	unmitigated INTEGER NOT NULL,
	pass_us INTEGER NOT NULL,
	actions_detected INTEGER NOT NULL,
	assignment_attempts INTEGER NOT NULL,
	assignment_successes INTEGER NOT NULL,
	fallbacks_used INTEGER NOT NULL,
	movement_required INTEGER NOT NULL,
	unmitigated_total INTEGER NOT NULL,
	ts INTEGER NOT NULL
);
`

// HistoryWriter persists events to a local SQLite database so past runs can
// be queried or replayed.
type HistoryWriter struct {
	db *sql.DB
}

// NewHistoryWriter opens (or creates) the SQLite database at dbPath.
func NewHistoryWriter(dbPath string) (*HistoryWriter, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, stmt := range pragmas {
		if _, err := db.Exec(stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("set sqlite pragma %q: %w", stmt, err)
		}
	}
	if _, err := db.Exec(historySchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate history schema: %w", err)
	}
	return &HistoryWriter{db: db}, nil
}

// Close closes the underlying database.
func (w *HistoryWriter) Close() error {
	return w.db.Close()
}

// WriteCast records a cast row.
func (w *HistoryWriter) WriteCast(row events.CastRow) error {
	_, err := w.db.Exec(
		`INSERT INTO casts(action_id, arena, team, performer, target, priority, duration_ms, ts)
		 VALUES(?, ?, ?, ?, ?, ?, ?, ?)`,
		row.ActionID, row.Arena, row.Team, row.Performer, row.Target, row.Priority,
		row.DurationMs, row.Timestamp.UnixMicro(),
	)
	if err != nil {
		return fmt.Errorf("insert cast: %w", err)
	}
	return nil
}

// WriteCasts records cast rows in a single transaction.
func (w *HistoryWriter) WriteCasts(rows []events.CastRow) error {
	if len(rows) == 0 {
		return nil
	}
	tx, err := w.db.Begin()
	if err != nil {
		return fmt.Errorf("begin cast batch: %w", err)
	}
	for _, row := range rows {
		if _, err := tx.Exec(
			`INSERT INTO casts(action_id, arena, team, performer, target, priority, duration_ms, ts)
			 VALUES(?, ?, ?, ?, ?, ?, ?, ?)`,
			row.ActionID, row.Arena, row.Team, row.Performer, row.Target, row.Priority,
			row.DurationMs, row.Timestamp.UnixMicro(),
		); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert cast: %w", err)
		}
	}
	return tx.Commit()
}

// WriteDirective records a directive row.
func (w *HistoryWriter) WriteDirective(row events.DirectiveRow) error {
	pending := 0
	if row.Pending {
		pending = 1
	}
	_, err := w.db.Exec(
		`INSERT INTO directives(arena, team, agent_id, ability_id, action_id, pending, ts)
		 VALUES(?, ?, ?, ?, ?, ?, ?)`,
		row.Arena, row.Team, row.AgentID, row.AbilityID, row.ActionID, pending,
		row.Timestamp.UnixMicro(),
	)
	if err != nil {
		return fmt.Errorf("insert directive: %w", err)
	}
	return nil
}

// WriteFallback records a fallback row.
func (w *HistoryWriter) WriteFallback(row events.FallbackRow) error {
	_, err := w.db.Exec(
		`INSERT INTO fallbacks(arena, team, action_id, method, agent_id, ability_id, ts)
		 VALUES(?, ?, ?, ?, ?, ?, ?)`,
		row.Arena, row.Team, row.ActionID, row.Method, row.AgentID, row.AbilityID,
		row.Timestamp.UnixMicro(),
	)
	if err != nil {
		return fmt.Errorf("insert fallback: %w", err)
	}
	return nil
}

// WritePass records a pass summary row.
func (w *HistoryWriter) WritePass(row events.PassRow) error {
	_, err := w.db.Exec(
		`INSERT INTO passes(arena, team, actions, directives, fallbacks, unmitigated, pass_us,
			actions_detected, assignment_attempts, assignment_successes, fallbacks_used,
			movement_required, unmitigated_total, ts)
		 VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		row.Arena, row.Team, row.Actions, row.Directives, row.Fallbacks, row.Unmitigated,
		row.PassMicros, row.ActionsDetected, row.AssignmentAttempts, row.AssignmentSuccesses,
		row.FallbacksUsed, row.MovementRequired, row.UnmitigatedTotal, row.Timestamp.UnixMicro(),
	)
	if err != nil {
		return fmt.Errorf("insert pass: %w", err)
	}
	return nil
}

// CastsSince returns cast rows recorded at or after the given time, oldest
// first. Used by the replay command to play back history from the database.
func (w *HistoryWriter) CastsSince(ctx context.Context, since time.Time) ([]events.CastRow, error) {
	rows, err := w.db.QueryContext(ctx,
		`SELECT action_id, arena, team, performer, target, priority, duration_ms, ts
		 FROM casts WHERE ts >= ? ORDER BY ts ASC`,
		since.UnixMicro(),
	)
	if err != nil {
		return nil, fmt.Errorf("query casts: %w", err)
	}
	defer rows.Close()

	var out []events.CastRow
	for rows.Next() {
		var r events.CastRow
		var ts int64
		if err := rows.Scan(&r.ActionID, &r.Arena, &r.Team, &r.Performer, &r.Target,
			&r.Priority, &r.DurationMs, &ts); err != nil {
			return nil, fmt.Errorf("scan cast: %w", err)
		}
		r.Timestamp = time.UnixMicro(ts).UTC()
		out = append(out, r)
	}
	return out, rows.Err()
}
