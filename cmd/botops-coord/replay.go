package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"botops-coord/internal/sim"
)

var (
	replayInput     string
	replayDBPath    string
	replaySince     time.Duration
	replaySpeed     float64
	replayPrintOnly bool
)

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Replay a recorded cast log",
	Long:  "replay feeds cast rows from a JSONL log or SQLite history database back into GreptimeDB or STDOUT.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if replayInput == "" && replayDBPath == "" {
			return fmt.Errorf("either --input or --db is required")
		}
		writer, cleanup, err := newCastWriter(nil, replayPrintOnly)
		if err != nil {
			return err
		}
		defer cleanup()

		if replayDBPath != "" {
			hw, err := sim.NewHistoryWriter(replayDBPath)
			if err != nil {
				return err
			}
			defer hw.Close()
			since := time.Time{}
			if replaySince > 0 {
				since = time.Now().Add(-replaySince)
			}
			rows, err := hw.CastsSince(context.Background(), since)
			if err != nil {
				return err
			}
			return sim.ReplayRows(rows, writer, replaySpeed)
		}
		return sim.ReplayLogFile(replayInput, writer, replaySpeed)
	},
}

func init() {
	replayCmd.Flags().StringVar(&replayInput, "input", "", "Path to cast log file (JSONL)")
	replayCmd.Flags().StringVar(&replayDBPath, "db", "", "Path to SQLite history database")
	replayCmd.Flags().DurationVar(&replaySince, "since", 0, "Replay only casts newer than this age (with --db)")
	replayCmd.Flags().Float64Var(&replaySpeed, "speed", 1.0, "Playback speed multiplier")
	replayCmd.Flags().BoolVar(&replayPrintOnly, "print-only", false, "Print casts to STDOUT instead of writing to DB")
}
