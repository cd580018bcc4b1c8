package sim

import "botops-coord/internal/events"

// MultiWriter fans event rows out to multiple writers.
type MultiWriter struct {
	writers []EventWriter
}

// NewMultiWriter creates a new MultiWriter.
func NewMultiWriter(ws ...EventWriter) *MultiWriter {
	return &MultiWriter{writers: ws}
}

// WriteCast sends a cast row to all writers.
func (mw *MultiWriter) WriteCast(row events.CastRow) error {
	for _, w := range mw.writers {
		if err := w.WriteCast(row); err != nil {
			return err
		}
	}
	return nil
}

// WriteCasts sends multiple cast rows to all writers, using batch mode when
// supported.
func (mw *MultiWriter) WriteCasts(rows []events.CastRow) error {
	for _, w := range mw.writers {
		if bw, ok := w.(batchCastWriter); ok {
			if err := bw.WriteCasts(rows); err != nil {
				return err
			}
			continue
		}
		for _, r := range rows {
			if err := w.WriteCast(r); err != nil {
				return err
			}
		}
	}
	return nil
}

// WriteDirective sends a directive row to all writers.
func (mw *MultiWriter) WriteDirective(row events.DirectiveRow) error {
	for _, w := range mw.writers {
		if err := w.WriteDirective(row); err != nil {
			return err
		}
	}
	return nil
}

// WriteFallback sends a fallback row to all writers.
func (mw *MultiWriter) WriteFallback(row events.FallbackRow) error {
	for _, w := range mw.writers {
		if err := w.WriteFallback(row); err != nil {
			return err
		}
	}
	return nil
}

// WritePass sends a pass summary row to all writers.
func (mw *MultiWriter) WritePass(row events.PassRow) error {
	for _, w := range mw.writers {
		if err := w.WritePass(row); err != nil {
			return err
		}
	}
	return nil
}
