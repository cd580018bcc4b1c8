package sim

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"

	"botops-coord/internal/events"
)

// ArchiveWriter appends all event rows to hourly-rotated, zstd-compressed
// JSONL files for long-term retention.
type ArchiveWriter struct {
	baseDir string
	prefix  string

	mu      sync.Mutex
	curHour string
	f       *os.File
	enc     *zstd.Encoder
	w       *bufio.Writer
}

// NewArchiveWriter creates an ArchiveWriter rooted at baseDir. Files are
// created lazily on first write.
func NewArchiveWriter(baseDir, prefix string) *ArchiveWriter {
	return &ArchiveWriter{baseDir: baseDir, prefix: prefix}
}

// Close flushes and closes the current archive segment.
func (a *ArchiveWriter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.closeLocked()
}

type archiveRecord struct {
	Kind string `json:"kind"`
	Row  any    `json:"row"`
}

func (a *ArchiveWriter) write(kind string, row any) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	hour := time.Now().UTC().Format("2006-01-02-15")
	if hour != a.curHour {
		if err := a.rotateLocked(hour); err != nil {
			return err
		}
	}
	b, err := json.Marshal(archiveRecord{Kind: kind, Row: row})
	if err != nil {
		return err
	}
	if _, err := a.w.Write(b); err != nil {
		return err
	}
	if err := a.w.WriteByte('\n'); err != nil {
		return err
	}
	return a.w.Flush()
}

func (a *ArchiveWriter) rotateLocked(hour string) error {
	if err := a.closeLocked(); err != nil {
		return err
	}
	path := a.pathForHour(hour)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return err
	}
	a.f = f
	a.enc = enc
	a.w = bufio.NewWriter(enc)
	a.curHour = hour
	return nil
}

func (a *ArchiveWriter) closeLocked() error {
	if a.f == nil {
		return nil
	}
	var first error
	if err := a.w.Flush(); err != nil {
		first = err
	}
	if err := a.enc.Close(); err != nil && first == nil {
		first = err
	}
	if err := a.f.Close(); err != nil && first == nil {
		first = err
	}
	a.f, a.enc, a.w, a.curHour = nil, nil, nil, ""
	return first
}

func (a *ArchiveWriter) pathForHour(hour string) string {
	return filepath.Join(a.baseDir, fmt.Sprintf("%s-%s.jsonl.zst", a.prefix, hour))
}

// WriteCast archives a cast row.
func (a *ArchiveWriter) WriteCast(row events.CastRow) error {
	return a.write("cast", row)
}

// WriteDirective archives a directive row.
func (a *ArchiveWriter) WriteDirective(row events.DirectiveRow) error {
	return a.write("directive", row)
}

// WriteFallback archives a fallback row.
func (a *ArchiveWriter) WriteFallback(row events.FallbackRow) error {
	return a.write("fallback", row)
}

// WritePass archives a pass summary row.
func (a *ArchiveWriter) WritePass(row events.PassRow) error {
	return a.write("pass", row)
}
