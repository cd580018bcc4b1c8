package main

import (
	"os"

	"golang.org/x/term"

	"botops-coord/internal/config"
	"botops-coord/internal/sim"
)

// writerOptions collects the sink-related flags and environment.
type writerOptions struct {
	printOnly  bool
	tui        bool
	logFile    string
	archiveDir string
	dbPath     string
}

// newWriters assembles the event writer chain from flags and env vars. The
// returned cleanup closes any file or database resources.
func newWriters(cfg *config.SimulationConfig, opts writerOptions) (sim.EventWriter, func(), error) {
	base, baseCleanup, err := baseWriter(cfg, opts)
	if err != nil {
		return nil, nil, err
	}

	writers := []sim.EventWriter{base}
	cleanups := []func(){baseCleanup}
	cleanup := func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}

	if opts.logFile != "" {
		fw, err := sim.NewFileWriter(opts.logFile,
			opts.logFile+".directives", opts.logFile+".fallbacks", opts.logFile+".passes")
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		writers = append(writers, fw)
		cleanups = append(cleanups, func() { _ = fw.Close() })
	}

	if opts.archiveDir != "" {
		aw := sim.NewArchiveWriter(opts.archiveDir, "events")
		writers = append(writers, aw)
		cleanups = append(cleanups, func() { _ = aw.Close() })
	}

	if opts.dbPath != "" {
		hw, err := sim.NewHistoryWriter(opts.dbPath)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		writers = append(writers, hw)
		cleanups = append(cleanups, func() { _ = hw.Close() })
	}

	if len(writers) == 1 {
		return base, cleanup, nil
	}
	return sim.NewMultiWriter(writers...), cleanup, nil
}

// baseWriter picks the primary sink: TUI, GreptimeDB, or stdout.
func baseWriter(cfg *config.SimulationConfig, opts writerOptions) (sim.EventWriter, func(), error) {
	noop := func() {}
	if opts.tui && term.IsTerminal(int(os.Stdout.Fd())) {
		tw := sim.NewTUIWriter(cfg)
		return tw, func() { _ = tw.Close() }, nil
	}
	if opts.printOnly || os.Getenv("GREPTIMEDB_ENDPOINT") == "" {
		if term.IsTerminal(int(os.Stdout.Fd())) {
			return sim.NewColorStdoutWriter(cfg), noop, nil
		}
		return &sim.StdoutWriter{}, noop, nil
	}
	endpoint := os.Getenv("GREPTIMEDB_ENDPOINT")
	w, err := sim.NewGreptimeWriter(endpoint, "public",
		os.Getenv("CAST_TABLE"), os.Getenv("DIRECTIVE_TABLE"),
		os.Getenv("FALLBACK_TABLE"), os.Getenv("PASS_TABLE"), nil)
	if err != nil {
		return nil, nil, err
	}
	return w, noop, nil
}

// newCastWriter creates a cast-only writer for replay output.
func newCastWriter(cfg *config.SimulationConfig, printOnly bool) (sim.CastWriter, func(), error) {
	w, cleanup, err := baseWriter(cfg, writerOptions{printOnly: printOnly})
	return w, cleanup, err
}
