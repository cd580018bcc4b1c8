// Writer implementation printing coordination events to STDOUT
package sim

import (
	"encoding/json"
	"fmt"

	"botops-coord/internal/events"
)

// StdoutWriter prints event rows to STDOUT as JSON lines.
type StdoutWriter struct{}

func (w *StdoutWriter) print(v any) error {
	data, _ := json.Marshal(v)
	fmt.Println(string(data))
	return nil
}

// WriteCast outputs a single cast row.
func (w *StdoutWriter) WriteCast(row events.CastRow) error {
	return w.print(row)
}

// WriteCasts outputs multiple cast rows.
func (w *StdoutWriter) WriteCasts(rows []events.CastRow) error {
	for _, r := range rows {
		_ = w.print(r)
	}
	return nil
}

// WriteDirective outputs a directive row.
func (w *StdoutWriter) WriteDirective(row events.DirectiveRow) error {
	return w.print(row)
}

// WriteFallback outputs a fallback row.
func (w *StdoutWriter) WriteFallback(row events.FallbackRow) error {
	return w.print(row)
}

// WritePass outputs a pass summary row.
func (w *StdoutWriter) WritePass(row events.PassRow) error {
	return w.print(row)
}
