package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"botops-coord/internal/admin"
	"botops-coord/internal/config"
	"botops-coord/internal/logging"
	"botops-coord/internal/sim"
)

var (
	simPrintOnly  bool
	simTUI        bool
	simConfigPath string
	simSchemaPath string
	simTick       time.Duration
	simLogFile    string
	simArchiveDir string
	simDBPath     string
	simAdminAddr  string
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run the real-time disruption coordinator",
	Long:  "simulate runs squads of bot agents against simulated hostile casters, coordinating disruption directives in real time.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(simConfigPath, simSchemaPath)
		if err != nil {
			return err
		}

		logger := logging.New(cfg.LogLevel)

		writer, cleanup, err := newWriters(cfg, writerOptions{
			printOnly:  simPrintOnly,
			tui:        simTUI,
			logFile:    simLogFile,
			archiveDir: simArchiveDir,
			dbPath:     simDBPath,
		})
		if err != nil {
			return err
		}
		defer cleanup()

		hub := admin.NewHub(logger)
		full := sim.NewMultiWriter(writer, hub)

		arenaID := os.Getenv("ARENA_ID")
		if arenaID == "" {
			arenaID = "arena-01"
		}

		tickInterval := simTick
		if envTick := os.Getenv("TICK_INTERVAL"); envTick != "" {
			d, err := time.ParseDuration(envTick)
			if err != nil {
				return err
			}
			tickInterval = d
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		simulator, err := sim.NewSimulator(arenaID, cfg, full, tickInterval, logger)
		if err != nil {
			return err
		}

		srv := admin.NewServer(simulator, hub, logger)
		go func() {
			if err := srv.Start(simAdminAddr); err != nil && err != http.ErrServerClosed {
				logger.Error("admin server failed", "err", err)
			}
		}()
		if tw, ok := writer.(*sim.TUIWriter); ok {
			tw.SetAdminStatus(true)
		}

		go simulator.Run(ctx)

		sigs := make(chan os.Signal, 1)
		signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
		<-sigs

		cancel()
		logger.Info("coordination stopped")
		return nil
	},
}

func init() {
	simulateCmd.Flags().BoolVar(&simPrintOnly, "print-only", false, "Print events to STDOUT instead of writing to DB")
	simulateCmd.Flags().BoolVar(&simTUI, "tui", false, "Render a live terminal dashboard")
	simulateCmd.Flags().StringVar(&simConfigPath, "config", "config/simulation.yaml", "Path to simulation configuration YAML")
	simulateCmd.Flags().StringVar(&simSchemaPath, "schema", "schemas/simulation.cue", "Path to CUE schema file")
	simulateCmd.Flags().DurationVar(&simTick, "tick", 250*time.Millisecond, "Coordination tick interval (e.g. 100ms, 1s)")
	simulateCmd.Flags().StringVar(&simLogFile, "log-file", "", "Path to export event logs (JSONL)")
	simulateCmd.Flags().StringVar(&simArchiveDir, "archive-dir", "", "Directory for compressed hourly event archives")
	simulateCmd.Flags().StringVar(&simDBPath, "db", "", "Path to SQLite history database")
	simulateCmd.Flags().StringVar(&simAdminAddr, "admin-addr", ":8080", "Admin API listen address")
}
