package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"sort"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"nocturne-labs/doorman/pkg/cli"
	"nocturne-labs/doorman/pkg/client"
	"nocturne-labs/doorman/pkg/config"
	"nocturne-labs/doorman/pkg/driver"
	"nocturne-labs/doorman/pkg/game"
	"nocturne-labs/doorman/pkg/game/policy"
	"nocturne-labs/doorman/pkg/history"
	"nocturne-labs/doorman/pkg/history/recorder"
	"nocturne-labs/doorman/pkg/history/retention"
	"nocturne-labs/doorman/pkg/history/storage"
	"nocturne-labs/doorman/pkg/runs"
	"nocturne-labs/doorman/pkg/telemetry/logging"
	"nocturne-labs/doorman/pkg/telemetry/metrics"
)

var runFlags struct {
	scenario int
	playerID string
	baseURL  string
	logLevel string
	format   string
	dryRun   bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Play one game against the challenge server",
	Long: `Play one game against the challenge server.

The driver starts a new game for the chosen scenario, decides every arrival
until the venue fills or the rejection budget runs out, and prints the
outcome. The player ID is read from the PLAYER_ID environment variable, a
.env file, or the config.

Examples:
  # Play the configured default scenario
  doorman run

  # Play scenario 2 with a custom config
  doorman run --scenario 2 --config /etc/doorman/doorman.yaml

  # Print the outcome as JSON
  doorman run --scenario 1 --format json

  # Validate config without contacting the server
  doorman run --dry-run`,
	RunE: runGame,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().IntVarP(&runFlags.scenario, "scenario", "s", 0, "scenario number to play (overrides config)")
	runCmd.Flags().StringVar(&runFlags.playerID, "player-id", "", "player ID (overrides PLAYER_ID and config)")
	runCmd.Flags().StringVar(&runFlags.baseURL, "url", "", "override challenge server base URL")
	runCmd.Flags().StringVar(&runFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	runCmd.Flags().StringVarP(&runFlags.format, "format", "f", "text", "output format (text, json)")
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "validate config without contacting the server")
}

func runGame(cmd *cobra.Command, args []string) error {
	// Load configuration
	if err := config.LoadDotEnv(); err != nil {
		return cli.NewConfigError("", fmt.Sprintf("failed to load .env: %v", err))
	}
	if err := config.Initialize(cfgFile); err != nil {
		return cli.NewConfigError("", fmt.Sprintf("failed to load config: %v", err))
	}
	cfg := config.GetConfig()

	// Apply flag overrides
	if runFlags.scenario > 0 {
		cfg.Game.Scenario = runFlags.scenario
	}
	if runFlags.playerID != "" {
		cfg.Server.PlayerID = runFlags.playerID
	}
	if runFlags.baseURL != "" {
		cfg.Server.BaseURL = runFlags.baseURL
	}
	if runFlags.logLevel != "" {
		cfg.Telemetry.Logging.Level = runFlags.logLevel
	}
	if verbose {
		cfg.Telemetry.Logging.Level = "debug"
	}

	format, err := cli.ParseFormat(runFlags.format)
	if err != nil {
		return cli.NewCommandError("run", err)
	}
	if format == cli.FormatCSV {
		return cli.NewCommandError("run", errors.New("csv output is not supported for run (use text or json)"))
	}

	logger, err := setupLogging(&cfg.Telemetry.Logging)
	if err != nil {
		return cli.NewCommandError("run", err)
	}

	if cfg.Server.PlayerID == "" {
		return cli.NewConfigError("server.player_id", "player ID required (set PLAYER_ID in .env or server.player_id in the config)")
	}

	if runFlags.dryRun {
		fmt.Println("✓ Configuration valid")
		return nil
	}

	// JSON mode keeps stdout machine-readable: the result and nothing else.
	banner := io.Discard
	if format == cli.FormatText {
		banner = os.Stdout
	}
	printRunBanner(banner, cfg)

	// Prometheus metrics endpoint (if enabled)
	var collector *metrics.Collector
	if cfg.Telemetry.Metrics.Enabled {
		collector = metrics.NewCollector(&cfg.Telemetry.Metrics, prometheus.NewRegistry())

		mux := http.NewServeMux()
		mux.Handle(cfg.Telemetry.Metrics.Path, collector.Handler())
		metricsSrv := &http.Server{
			Addr:    cfg.Telemetry.Metrics.ListenAddress,
			Handler: mux,
		}
		go func() {
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Warn("Metrics server exited", "error", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = metricsSrv.Shutdown(shutdownCtx)
		}()

		fmt.Fprintf(banner, "✓ Metrics on http://%s%s\n", cfg.Telemetry.Metrics.ListenAddress, cfg.Telemetry.Metrics.Path)
	}

	// Decision history recording (if enabled)
	var rec *recorder.Recorder
	if cfg.History.Backend != "none" {
		slog.Info("Initializing history recording", "backend", cfg.History.Backend)

		var historyStorage history.Storage
		switch cfg.History.Backend {
		case "sqlite":
			sqliteConfig := storage.DefaultSQLiteConfig()
			sqliteConfig.Path = cfg.History.SQLite.Path
			historyStorage, err = storage.NewSQLiteStorage(sqliteConfig)
			if err != nil {
				return cli.NewCommandError("run", fmt.Errorf("failed to open history database: %w", err))
			}
		case "memory":
			historyStorage = storage.NewMemoryStorage()
		default:
			return cli.NewConfigError("history.backend", fmt.Sprintf("unsupported history backend: %s", cfg.History.Backend))
		}
		defer historyStorage.Close()

		recorderConfig := recorder.DefaultConfig()
		recorderConfig.AsyncBuffer = cfg.History.BufferSize
		rec = recorder.NewRecorder(historyStorage, recorderConfig)
		defer rec.Close()

		// Retention pruning only makes sense on a persistent backend.
		if cfg.History.Retention.Enabled && cfg.History.Backend == "sqlite" {
			retentionConfig := retention.DefaultConfig()
			retentionConfig.RetentionDays = cfg.History.Retention.Days
			retentionConfig.PruneSchedule = cfg.History.Retention.Schedule
			pruner := retention.NewPruner(historyStorage, retentionConfig)
			if err := pruner.Start(context.Background()); err != nil {
				slog.Warn("Failed to start retention scheduler", "error", err)
			} else {
				defer pruner.Stop()
				if next := pruner.NextPruning(); next != nil {
					slog.Debug("Retention scheduler started", "next_pruning", next)
				}
			}
		}

		fmt.Fprintln(banner, "✓ History store initialized")
	}

	// Persistent run results (if enabled)
	var runStore *runs.Store
	if cfg.Runs.Enabled {
		runStore, err = runs.NewStore(cfg.Runs.Path)
		if err != nil {
			return cli.NewCommandError("run", fmt.Errorf("failed to open run store: %w", err))
		}
		defer runStore.Close()

		fmt.Fprintln(banner, "✓ Run store initialized")
	}

	tuning, err := loadTuning(&cfg.Game)
	if err != nil {
		return cli.NewConfigError("game.tuning_file", err.Error())
	}

	api := client.New(&cfg.Server, collector, logger)

	var progress *cli.GameProgress
	if format == cli.FormatText {
		progress = cli.NewGameProgress(os.Stdout, driver.DefaultCapacity, driver.DefaultBudget)
	}

	dcfg := driver.Config{
		API:              api,
		Tuning:           tuning,
		TuningFile:       cfg.Game.TuningFile,
		WatchTuning:      cfg.Game.WatchTuning,
		ProgressInterval: cfg.Game.ProgressInterval,
		Runs:             runStore,
		Metrics:          collector,
		Logger:           logger,
	}
	if rec != nil {
		dcfg.Recorder = rec
	}
	if progress != nil {
		dcfg.OnProgress = progress.Update
	}

	d, err := driver.New(dcfg)
	if err != nil {
		return cli.NewCommandError("run", err)
	}

	ctx := cli.SetupSignalHandler()

	fmt.Fprintf(banner, "\nPlaying scenario %d...\n", cfg.Game.Scenario)
	result, err := d.Run(ctx, cfg.Game.Scenario)
	if progress != nil {
		progress.Finish()
	}
	if err != nil {
		return cli.NewCommandError("run", err)
	}

	// A failed game is a reported outcome, not a command error.
	if format == cli.FormatJSON {
		return cli.NewFormatter(format).FormatTo(os.Stdout, result)
	}
	writeResultText(os.Stdout, result)
	return nil
}

func setupLogging(cfg *config.LoggingConfig) (*slog.Logger, error) {
	logger, err := logging.New(logging.Config{
		Level:             cfg.Level,
		Format:            cfg.Format,
		AddSource:         cfg.AddSource,
		RedactCredentials: cfg.RedactCredentials,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to configure logging: %w", err)
	}
	logger.Setup()
	return logger.Slog(), nil
}

func loadTuning(cfg *config.GameConfig) (policy.Tuning, error) {
	if cfg.TuningFile == "" {
		return policy.DefaultTuning(), nil
	}
	tuning, err := policy.LoadTuning(cfg.TuningFile)
	if err != nil {
		return policy.Tuning{}, fmt.Errorf("failed to load tuning: %v", err)
	}
	return tuning, nil
}

func printRunBanner(w io.Writer, cfg *config.Config) {
	fmt.Fprintf(w, "Doorman v%s\n", Version)
	fmt.Fprintf(w, "Loading configuration from: %s\n", cfgFile)
	fmt.Fprintln(w, "✓ Configuration loaded")
	fmt.Fprintf(w, "✓ Server %s (player %s)\n", cfg.Server.BaseURL, logging.RedactPlayerID(cfg.Server.PlayerID))
}

func writeResultText(w io.Writer, result *driver.Result) {
	fmt.Fprintln(w)
	if result.Completed() {
		fmt.Fprintf(w, "✓ Game %s completed\n", result.GameID)
	} else {
		fmt.Fprintf(w, "✗ Game %s failed", result.GameID)
		if result.Reason != "" {
			fmt.Fprintf(w, ": %s", result.Reason)
		}
		fmt.Fprintln(w)
	}
	fmt.Fprintf(w, "  Scenario:   %d\n", result.Scenario)
	fmt.Fprintf(w, "  Admitted:   %d\n", result.Admitted)
	fmt.Fprintf(w, "  Rejected:   %d\n", result.Rejected)
	fmt.Fprintf(w, "  Decisions:  %d (%d forced)\n", result.Decisions, result.Forced)
	fmt.Fprintf(w, "  Duration:   %s\n", result.Duration.Round(time.Millisecond))
	if result.Degraded {
		fmt.Fprintln(w, "  Note:       played with fallback attribute model")
	}
	if len(result.Satisfied) > 0 {
		fmt.Fprintln(w, "  Constraints:")
		for _, attr := range sortedAttributes(result) {
			mark := "✓"
			if !result.Satisfied[attr] {
				mark = "✗"
			}
			fmt.Fprintf(w, "    %s %s\n", mark, attr)
		}
	}
}

func sortedAttributes(result *driver.Result) []game.AttributeID {
	attrs := make([]game.AttributeID, 0, len(result.Satisfied))
	for attr := range result.Satisfied {
		attrs = append(attrs, attr)
	}
	sort.Slice(attrs, func(i, j int) bool { return attrs[i] < attrs[j] })
	return attrs
}
