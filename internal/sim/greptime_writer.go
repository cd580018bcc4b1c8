package sim

import (
	"context"
	"log/slog"

	greptime "github.com/GreptimeTeam/greptimedb-ingester-go"
	ingesterContext "github.com/GreptimeTeam/greptimedb-ingester-go/context"
	"github.com/GreptimeTeam/greptimedb-ingester-go/table"
	"github.com/GreptimeTeam/greptimedb-ingester-go/table/types"

	"botops-coord/internal/events"
)

// GreptimeWriter writes coordination events to GreptimeDB via the ingester
// client.
type GreptimeWriter struct {
	client    greptime.Client
	db        string
	castTable string
	dirTable  string
	fbTable   string
	passTable string
	log       *slog.Logger
}

// NewGreptimeWriter creates a GreptimeDB writer and auto-creates the tables
// if needed. Empty table names fall back to defaults.
func NewGreptimeWriter(endpoint, database, castTable, dirTable, fbTable, passTable string, log *slog.Logger) (*GreptimeWriter, error) {
	if castTable == "" {
		castTable = events.CastTableName
	}
	if dirTable == "" {
		dirTable = "disruption_directives"
	}
	if fbTable == "" {
		fbTable = "disruption_fallbacks"
	}
	if passTable == "" {
		passTable = "coordination_passes"
	}
	if log == nil {
		log = slog.Default()
	}

	ctx := ingesterContext.NewContext(context.Background())
	client, err := greptime.NewClient(ctx, &greptime.Config{Endpoint: endpoint})
	if err != nil {
		return nil, err
	}

	w := &GreptimeWriter{
		client:    client,
		db:        database,
		castTable: castTable,
		dirTable:  dirTable,
		fbTable:   fbTable,
		passTable: passTable,
		log:       log,
	}
	for _, ddl := range w.schemas() {
		if _, err := client.SQL(ctx, ddl); err != nil {
			return nil, err
		}
	}
	return w, nil
}

func (w *GreptimeWriter) schemas() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS ` + w.castTable + ` (
  arena STRING TAG,
  team STRING TAG,
  action_id STRING,
  performer STRING,
  target STRING,
  priority STRING,
  duration_ms BIGINT,
  ts TIMESTAMP TIME INDEX
) WITH (ttl='30d')`,
		`CREATE TABLE IF NOT EXISTS ` + w.dirTable + ` (
  arena STRING TAG,
  team STRING TAG,
  agent_id STRING,
  ability_id STRING,
  action_id STRING,
  pending BOOLEAN,
  ts TIMESTAMP TIME INDEX
) WITH (ttl='30d')`,
		`CREATE TABLE IF NOT EXISTS ` + w.fbTable + ` (
  arena STRING TAG,
  team STRING TAG,
  action_id STRING,
  method STRING,
  agent_id STRING,
  ability_id STRING,
  ts TIMESTAMP TIME INDEX
) WITH (ttl='30d')`,
		`CREATE TABLE IF NOT EXISTS ` + w.passTable + ` (
  arena STRING TAG,
  team STRING TAG,
  actions BIGINT,
  directives BIGINT,
  fallbacks BIGINT,
  unmitigated BIGINT,
  pass_us BIGINT,
  actions_detected BIGINT,
  assignment_attempts BIGINT,
  assignment_successes BIGINT,
  fallbacks_used BIGINT,
  movement_required BIGINT,
  unmitigated_total BIGINT,
  ts TIMESTAMP TIME INDEX
) WITH (ttl='30d')`,
	}
}

func (w *GreptimeWriter) submit(tbl *table.Table) error {
	ctx := ingesterContext.NewContext(context.Background())
	if err := w.client.Write(ctx, w.db, []*table.Table{tbl}); err != nil {
		w.log.Error("greptime write failed", "err", err)
		return err
	}
	return nil
}

// WriteCast inserts a single cast row.
func (w *GreptimeWriter) WriteCast(row events.CastRow) error {
	return w.WriteCasts([]events.CastRow{row})
}

// WriteCasts inserts multiple cast rows.
func (w *GreptimeWriter) WriteCasts(rows []events.CastRow) error {
	if len(rows) == 0 {
		return nil
	}
	tbl := table.New(w.castTable)
	tbl.AddTagColumn("arena", types.StringType, 0)
	tbl.AddTagColumn("team", types.StringType, 0)
	tbl.AddFieldColumn("action_id", types.StringType)
	tbl.AddFieldColumn("performer", types.StringType)
	tbl.AddFieldColumn("target", types.StringType)
	tbl.AddFieldColumn("priority", types.StringType)
	tbl.AddFieldColumn("duration_ms", types.Int64Type)
	tbl.SetTimeIndex("ts", types.TimestampType)
	for _, r := range rows {
		tbl.AppendTagValue("arena", r.Arena)
		tbl.AppendTagValue("team", r.Team)
		tbl.AppendFieldValue("action_id", r.ActionID)
		tbl.AppendFieldValue("performer", r.Performer)
		tbl.AppendFieldValue("target", r.Target)
		tbl.AppendFieldValue("priority", r.Priority)
		tbl.AppendFieldValue("duration_ms", r.DurationMs)
		tbl.AppendTimeIndex(r.Timestamp)
	}
	return w.submit(tbl)
}

// WriteDirective inserts a directive row.
func (w *GreptimeWriter) WriteDirective(row events.DirectiveRow) error {
	tbl := table.New(w.dirTable)
	tbl.AddTagColumn("arena", types.StringType, 0)
	tbl.AddTagColumn("team", types.StringType, 0)
	tbl.AddFieldColumn("agent_id", types.StringType)
	tbl.AddFieldColumn("ability_id", types.StringType)
	tbl.AddFieldColumn("action_id", types.StringType)
	tbl.AddFieldColumn("pending", types.BooleanType)
	tbl.SetTimeIndex("ts", types.TimestampType)
	tbl.AppendTagValue("arena", row.Arena)
	tbl.AppendTagValue("team", row.Team)
	tbl.AppendFieldValue("agent_id", row.AgentID)
	tbl.AppendFieldValue("ability_id", row.AbilityID)
	tbl.AppendFieldValue("action_id", row.ActionID)
	tbl.AppendFieldValue("pending", row.Pending)
	tbl.AppendTimeIndex(row.Timestamp)
	return w.submit(tbl)
}

// WriteFallback inserts a fallback row.
func (w *GreptimeWriter) WriteFallback(row events.FallbackRow) error {
	tbl := table.New(w.fbTable)
	tbl.AddTagColumn("arena", types.StringType, 0)
	tbl.AddTagColumn("team", types.StringType, 0)
	tbl.AddFieldColumn("action_id", types.StringType)
	tbl.AddFieldColumn("method", types.StringType)
	tbl.AddFieldColumn("agent_id", types.StringType)
	tbl.AddFieldColumn("ability_id", types.StringType)
	tbl.SetTimeIndex("ts", types.TimestampType)
	tbl.AppendTagValue("arena", row.Arena)
	tbl.AppendTagValue("team", row.Team)
	tbl.AppendFieldValue("action_id", row.ActionID)
	tbl.AppendFieldValue("method", row.Method)
	tbl.AppendFieldValue("agent_id", row.AgentID)
	tbl.AppendFieldValue("ability_id", row.AbilityID)
	tbl.AppendTimeIndex(row.Timestamp)
	return w.submit(tbl)
}

// WritePass inserts a pass summary row.
func (w *GreptimeWriter) WritePass(row events.PassRow) error {
	tbl := table.New(w.passTable)
	tbl.AddTagColumn("arena", types.StringType, 0)
	tbl.AddTagColumn("team", types.StringType, 0)
	tbl.AddFieldColumn("actions", types.Int64Type)
	tbl.AddFieldColumn("directives", types.Int64Type)
	tbl.AddFieldColumn("fallbacks", types.Int64Type)
	tbl.AddFieldColumn("unmitigated", types.Int64Type)
	tbl.AddFieldColumn("pass_us", types.Int64Type)
	tbl.AddFieldColumn("actions_detected", types.Int64Type)
	tbl.AddFieldColumn("assignment_attempts", types.Int64Type)
	tbl.AddFieldColumn("assignment_successes", types.Int64Type)
	tbl.AddFieldColumn("fallbacks_used", types.Int64Type)
	tbl.AddFieldColumn("movement_required", types.Int64Type)
	tbl.AddFieldColumn("unmitigated_total", types.Int64Type)
	tbl.SetTimeIndex("ts", types.TimestampType)
	tbl.AppendTagValue("arena", row.Arena)
	tbl.AppendTagValue("team", row.Team)
	tbl.AppendFieldValue("actions", int64(row.Actions))
	tbl.AppendFieldValue("directives", int64(row.Directives))
	tbl.AppendFieldValue("fallbacks", int64(row.Fallbacks))
	tbl.AppendFieldValue("unmitigated", int64(row.Unmitigated))
	tbl.AppendFieldValue("pass_us", row.PassMicros)
	tbl.AppendFieldValue("actions_detected", row.ActionsDetected)
	tbl.AppendFieldValue("assignment_attempts", row.AssignmentAttempts)
	tbl.AppendFieldValue("assignment_successes", row.AssignmentSuccesses)
	tbl.AppendFieldValue("fallbacks_used", row.FallbacksUsed)
	tbl.AppendFieldValue("movement_required", row.MovementRequired)
	tbl.AppendFieldValue("unmitigated_total", row.UnmitigatedTotal)
	tbl.AppendTimeIndex(row.Timestamp)
	return w.submit(tbl)
}
