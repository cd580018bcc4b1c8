package sim

import (
	"encoding/json"
	"os"

	"botops-coord/internal/events"
)

// FileWriter writes event rows to JSONL files, one file per row kind. Any
// path except the cast log may be empty to skip that log.
type FileWriter struct {
	castFile *os.File
	dirFile  *os.File
	fbFile   *os.File
	passFile *os.File
	castEnc  *json.Encoder
	dirEnc   *json.Encoder
	fbEnc    *json.Encoder
	passEnc  *json.Encoder
}

// NewFileWriter creates a FileWriter rooted at castPath.
func NewFileWriter(castPath, directivePath, fallbackPath, passPath string) (*FileWriter, error) {
	cf, err := os.Create(castPath)
	if err != nil {
		return nil, err
	}
	fw := &FileWriter{castFile: cf, castEnc: json.NewEncoder(cf)}
	open := func(path string) (*os.File, *json.Encoder, error) {
		if path == "" {
			return nil, nil, nil
		}
		f, err := os.Create(path)
		if err != nil {
			return nil, nil, err
		}
		return f, json.NewEncoder(f), nil
	}
	if fw.dirFile, fw.dirEnc, err = open(directivePath); err != nil {
		fw.Close()
		return nil, err
	}
	if fw.fbFile, fw.fbEnc, err = open(fallbackPath); err != nil {
		fw.Close()
		return nil, err
	}
	if fw.passFile, fw.passEnc, err = open(passPath); err != nil {
		fw.Close()
		return nil, err
	}
	return fw, nil
}

// Close closes all underlying files.
func (f *FileWriter) Close() error {
	var first error
	for _, file := range []*os.File{f.castFile, f.dirFile, f.fbFile, f.passFile} {
		if file == nil {
			continue
		}
		if err := file.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// WriteCast logs a single cast row.
func (f *FileWriter) WriteCast(row events.CastRow) error {
	return f.castEnc.Encode(row)
}

// WriteCasts logs multiple cast rows.
func (f *FileWriter) WriteCasts(rows []events.CastRow) error {
	for _, r := range rows {
		if err := f.WriteCast(r); err != nil {
			return err
		}
	}
	return nil
}

// WriteDirective logs a directive row, if enabled.
func (f *FileWriter) WriteDirective(row events.DirectiveRow) error {
	if f.dirEnc == nil {
		return nil
	}
	return f.dirEnc.Encode(row)
}

// WriteFallback logs a fallback row, if enabled.
func (f *FileWriter) WriteFallback(row events.FallbackRow) error {
	if f.fbEnc == nil {
		return nil
	}
	return f.fbEnc.Encode(row)
}

// WritePass logs a pass summary row, if enabled.
func (f *FileWriter) WritePass(row events.PassRow) error {
	if f.passEnc == nil {
		return nil
	}
	return f.passEnc.Encode(row)
}
