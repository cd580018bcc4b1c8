// ColorStdoutWriter prints human-friendly, colorized events to STDOUT.
package sim

import (
	"fmt"
	"io"
	"os"
	"sync"
	"text/tabwriter"
	"time"

	"botops-coord/internal/config"
	"botops-coord/internal/events"
)

const (
	colorReset   = "\x1b[0m"
	colorRed     = "\x1b[31m"
	colorGreen   = "\x1b[32m"
	colorYellow  = "\x1b[33m"
	colorBlue    = "\x1b[34m"
	colorMagenta = "\x1b[35m"
	colorCyan    = "\x1b[36m"
	colorGray    = "\x1b[90m"
)

var squadPalette = []string{colorGreen, colorBlue, colorMagenta, colorCyan, colorYellow}

// ColorStdoutWriter prints event rows using ANSI colors.
type ColorStdoutWriter struct {
	cfg         *config.SimulationConfig
	out         io.Writer
	once        sync.Once
	squadColors map[string]string
	colorIdx    int
}

// NewColorStdoutWriter creates a ColorStdoutWriter writing to os.Stdout.
func NewColorStdoutWriter(cfg *config.SimulationConfig) *ColorStdoutWriter {
	return &ColorStdoutWriter{
		cfg:         cfg,
		out:         os.Stdout,
		squadColors: make(map[string]string),
	}
}

func (w *ColorStdoutWriter) getSquadColor(name string) string {
	if c, ok := w.squadColors[name]; ok {
		return c
	}
	c := squadPalette[w.colorIdx%len(squadPalette)]
	w.squadColors[name] = c
	w.colorIdx++
	return c
}

func (w *ColorStdoutWriter) printOverview() {
	if w.cfg == nil {
		return
	}

	fmt.Fprintln(w.out, "Coordination Configuration:")
	tw := tabwriter.NewWriter(w.out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Arena:\t%.0fx%.0f\n", w.cfg.Arena.WidthM, w.cfg.Arena.HeightM)
	fmt.Fprintf(tw, "Hostile Casters:\t%d\n", w.cfg.Hostiles.Casters)
	fmt.Fprintf(tw, "Rotation Window (ms):\t%d\n", w.cfg.Coordination.RotationWindowMs)
	fmt.Fprintf(tw, "Encounter:\t%s\n", w.cfg.Encounter)
	tw.Flush()

	fmt.Fprintln(w.out, "\nSquads:")
	tw = tabwriter.NewWriter(w.out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Name\tBots\tPrimary\tBackups\n")
	for _, s := range w.cfg.Squads {
		col := w.getSquadColor(s.Name)
		fmt.Fprintf(tw, "%s%s%s\t%d\t%s\t%d\n", col, s.Name, colorReset, s.Bots, s.Loadout.Primary.ID, len(s.Loadout.Backups))
	}
	tw.Flush()
	fmt.Fprintln(w.out)
}

// WriteCast outputs a single cast row in colorized format.
func (w *ColorStdoutWriter) WriteCast(row events.CastRow) error {
	w.once.Do(w.printOverview)
	prioColor := colorGreen
	switch row.Priority {
	case "critical":
		prioColor = colorRed
	case "high":
		prioColor = colorYellow
	}
	fmt.Fprintf(w.out, "%s[%s]%s %sCAST%s action=%s performer=%s target=%s %sprio=%s%s dur=%dms\n",
		colorGray, row.Timestamp.Format(time.RFC3339), colorReset,
		colorRed, colorReset, row.ActionID, row.Performer, row.Target,
		prioColor, row.Priority, colorReset, row.DurationMs)
	return nil
}

// WriteCasts outputs multiple cast rows.
func (w *ColorStdoutWriter) WriteCasts(rows []events.CastRow) error {
	for _, r := range rows {
		_ = w.WriteCast(r)
	}
	return nil
}

// WriteDirective prints an issued disruption directive.
func (w *ColorStdoutWriter) WriteDirective(row events.DirectiveRow) error {
	w.once.Do(w.printOverview)
	sColor := w.getSquadColor(row.Team)
	fmt.Fprintf(w.out, "%s[%s]%s %sDIRECTIVE%s %ssquad=%s%s agent=%s ability=%s action=%s",
		colorGray, row.Timestamp.Format(time.RFC3339), colorReset,
		colorGreen, colorReset, sColor, row.Team, colorReset,
		row.AgentID, row.AbilityID, row.ActionID)
	if row.Pending {
		fmt.Fprintf(w.out, " %spending%s", colorMagenta, colorReset)
	}
	fmt.Fprintln(w.out)
	return nil
}

// WriteFallback prints a fallback selection or an unmitigated miss.
func (w *ColorStdoutWriter) WriteFallback(row events.FallbackRow) error {
	w.once.Do(w.printOverview)
	if row.Method == "none" {
		fmt.Fprintf(w.out, "%s[%s]%s %sUNMITIGATED%s squad=%s action=%s\n",
			colorGray, row.Timestamp.Format(time.RFC3339), colorReset,
			colorRed, colorReset, row.Team, row.ActionID)
		return nil
	}
	fmt.Fprintf(w.out, "%s[%s]%s %sFALLBACK%s squad=%s action=%s method=%s agent=%s ability=%s\n",
		colorGray, row.Timestamp.Format(time.RFC3339), colorReset,
		colorYellow, colorReset, row.Team, row.ActionID, row.Method,
		row.AgentID, row.AbilityID)
	return nil
}

// WritePass prints a pass summary row.
func (w *ColorStdoutWriter) WritePass(row events.PassRow) error {
	w.once.Do(w.printOverview)
	fmt.Fprintf(w.out, "%s[%s]%s %sPASS%s squad=%s actions=%d directives=%d fallbacks=%d unmitigated=%d took=%dus\n",
		colorGray, row.Timestamp.Format(time.RFC3339), colorReset,
		colorBlue, colorReset, row.Team, row.Actions, row.Directives,
		row.Fallbacks, row.Unmitigated, row.PassMicros)
	return nil
}

func colorWhite() string { return "\x1b[37m" }
