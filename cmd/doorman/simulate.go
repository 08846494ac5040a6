package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"nocturne-labs/doorman/pkg/cli"
	"nocturne-labs/doorman/pkg/client"
	"nocturne-labs/doorman/pkg/config"
	"nocturne-labs/doorman/pkg/driver"
	"nocturne-labs/doorman/pkg/simulator"
)

var simulateFlags struct {
	scenario     int
	scenarioFile string
	games        int
	seed         int64
	format       string
}

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Play games against a local simulated venue",
	Long: `Play games against a local simulated venue.

The simulator serves the same wire protocol as the challenge server but
samples arrivals locally, so batches of games run in seconds. Use it to
evaluate tuning changes before spending real rejection budget.

Simulated games never touch the history or run stores.

Examples:
  # One game of builtin scenario 1
  doorman simulate --scenario 1

  # Twenty games with a fixed seed, summarized as JSON
  doorman simulate --scenario 2 --games 20 --seed 42 --format json

  # A custom scenario definition
  doorman simulate --scenario-file ./scenarios/rare-vips.yaml --games 5`,
	RunE: runSimulate,
}

func init() {
	rootCmd.AddCommand(simulateCmd)

	simulateCmd.Flags().IntVarP(&simulateFlags.scenario, "scenario", "s", 0, "builtin scenario number to play (overrides config)")
	simulateCmd.Flags().StringVar(&simulateFlags.scenarioFile, "scenario-file", "", "YAML scenario definition to play instead of a builtin")
	simulateCmd.Flags().IntVarP(&simulateFlags.games, "games", "n", 1, "number of games to play")
	simulateCmd.Flags().Int64Var(&simulateFlags.seed, "seed", 0, "arrival stream seed (0 takes the config's, then the clock)")
	simulateCmd.Flags().StringVarP(&simulateFlags.format, "format", "f", "text", "output format (text, json)")
}

func runSimulate(cmd *cobra.Command, args []string) error {
	if err := config.Initialize(cfgFile); err != nil {
		return cli.NewConfigError("", fmt.Sprintf("failed to load config: %v", err))
	}
	cfg := config.GetConfig()

	if verbose {
		cfg.Telemetry.Logging.Level = "debug"
	}

	format, err := cli.ParseFormat(simulateFlags.format)
	if err != nil {
		return cli.NewCommandError("simulate", err)
	}
	if format == cli.FormatCSV {
		return cli.NewCommandError("simulate", errors.New("csv output is not supported for simulate (use text or json)"))
	}

	logger, err := setupLogging(&cfg.Telemetry.Logging)
	if err != nil {
		return cli.NewCommandError("simulate", err)
	}

	if simulateFlags.games < 1 {
		return cli.NewCommandError("simulate", fmt.Errorf("games must be >= 1, got %d", simulateFlags.games))
	}

	scenario, err := resolveScenario(cfg)
	if err != nil {
		return cli.NewCommandError("simulate", err)
	}

	seed := simulateFlags.seed
	if seed == 0 {
		seed = cfg.Simulator.Seed
	}

	srv := simulator.NewServer(simulator.ServerConfig{
		Scenarios: []simulator.Scenario{scenario},
		Seed:      seed,
		Logger:    logger,
	})
	srv.Start()
	defer srv.Close()

	// The simulator accepts any player ID, so an ad-hoc one keeps the
	// real credential out of local experiments.
	serverCfg := cfg.Server
	serverCfg.BaseURL = srv.URL()
	if serverCfg.PlayerID == "" {
		serverCfg.PlayerID = uuid.New().String()
	}

	tuning, err := loadTuning(&cfg.Game)
	if err != nil {
		return cli.NewConfigError("game.tuning_file", err.Error())
	}

	api := client.New(&serverCfg, nil, logger)

	d, err := driver.New(driver.Config{
		API:              api,
		Capacity:         scenario.Capacity,
		Budget:           scenario.Budget,
		Tuning:           tuning,
		TuningFile:       cfg.Game.TuningFile,
		WatchTuning:      cfg.Game.WatchTuning,
		ProgressInterval: -1,
		Logger:           logger,
	})
	if err != nil {
		return cli.NewCommandError("simulate", err)
	}

	ctx := cli.SetupSignalHandler()

	// JSON mode keeps stdout machine-readable: the summary and nothing else.
	var progress cli.ProgressReporter
	if format == cli.FormatText {
		fmt.Printf("Simulating scenario %d (%s): %d game(s), capacity %d, budget %d\n",
			scenario.ID, scenario.Name, simulateFlags.games, scenario.Capacity, scenario.Budget)
		progress = cli.NewProgressReporter(os.Stdout)
		progress.Start(int64(simulateFlags.games))
	}

	results := make([]*driver.Result, 0, simulateFlags.games)
	for i := 0; i < simulateFlags.games; i++ {
		result, err := d.Run(ctx, scenario.ID)
		if err != nil {
			if progress != nil {
				progress.Error(err)
			}
			return cli.NewCommandError("simulate", fmt.Errorf("game %d: %w", i+1, err))
		}
		results = append(results, result)
		if progress != nil {
			progress.Update(int64(i + 1))
		}
	}
	if progress != nil {
		progress.Finish()
	}

	summary := summarize(results)
	if format == cli.FormatJSON {
		return cli.NewFormatter(format).FormatTo(os.Stdout, summary)
	}
	writeSummaryText(os.Stdout, summary)
	return nil
}

// resolveScenario picks the scenario to play. A scenario file is taken
// verbatim; builtins accept the config's sizing overrides so local
// iteration can run on a smaller venue.
func resolveScenario(cfg *config.Config) (simulator.Scenario, error) {
	if simulateFlags.scenarioFile != "" {
		return simulator.LoadScenario(simulateFlags.scenarioFile)
	}

	id := cfg.Game.Scenario
	if simulateFlags.scenario > 0 {
		id = simulateFlags.scenario
	}
	scenario, err := simulator.BuiltinScenario(id)
	if err != nil {
		return simulator.Scenario{}, err
	}

	if cfg.Simulator.Capacity > 0 {
		scenario.Capacity = cfg.Simulator.Capacity
	}
	if cfg.Simulator.Budget > 0 {
		scenario.Budget = cfg.Simulator.Budget
	}
	if err := scenario.Validate(); err != nil {
		return simulator.Scenario{}, fmt.Errorf("scenario %d unplayable with simulator sizing overrides: %w", scenario.ID, err)
	}
	return scenario, nil
}

// simulationSummary aggregates a batch of simulated games. Rejection
// statistics cover completed games only; a failed game's rejection
// count says nothing about tuning quality.
type simulationSummary struct {
	Scenario      int              `json:"scenario"`
	Games         int              `json:"games"`
	Completed     int              `json:"completed"`
	Failed        int              `json:"failed"`
	BestRejected  int              `json:"best_rejected"`
	AvgRejected   float64          `json:"avg_rejected"`
	WorstRejected int              `json:"worst_rejected"`
	AvgForced     float64          `json:"avg_forced"`
	AvgDuration   time.Duration    `json:"avg_duration"`
	Results       []*driver.Result `json:"results"`
}

func summarize(results []*driver.Result) *simulationSummary {
	summary := &simulationSummary{
		Games:   len(results),
		Results: results,
	}
	if len(results) == 0 {
		return summary
	}
	summary.Scenario = results[0].Scenario

	var rejectedSum, forcedSum int
	var durationSum time.Duration
	for _, r := range results {
		forcedSum += r.Forced
		durationSum += r.Duration
		if !r.Completed() {
			summary.Failed++
			continue
		}
		if summary.Completed == 0 || r.Rejected < summary.BestRejected {
			summary.BestRejected = r.Rejected
		}
		if r.Rejected > summary.WorstRejected {
			summary.WorstRejected = r.Rejected
		}
		summary.Completed++
		rejectedSum += r.Rejected
	}
	if summary.Completed > 0 {
		summary.AvgRejected = float64(rejectedSum) / float64(summary.Completed)
	}
	summary.AvgForced = float64(forcedSum) / float64(len(results))
	summary.AvgDuration = durationSum / time.Duration(len(results))
	return summary
}

func writeSummaryText(w io.Writer, summary *simulationSummary) {
	fmt.Fprintf(w, "\nSimulated %d game(s) of scenario %d\n", summary.Games, summary.Scenario)
	fmt.Fprintf(w, "  Completed:  %d/%d\n", summary.Completed, summary.Games)
	if summary.Completed > 0 {
		fmt.Fprintf(w, "  Rejections: best %d, avg %.1f, worst %d\n",
			summary.BestRejected, summary.AvgRejected, summary.WorstRejected)
	} else {
		fmt.Fprintln(w, "  Rejections: no completed games")
	}
	fmt.Fprintf(w, "  Forced:     avg %.1f per game\n", summary.AvgForced)
	fmt.Fprintf(w, "  Duration:   avg %s\n", summary.AvgDuration.Round(time.Millisecond))

	if summary.Failed > 0 {
		fmt.Fprintln(w, "  Failures:")
		for _, r := range summary.Results {
			if r.Completed() {
				continue
			}
			reason := r.Reason
			if reason == "" {
				reason = string(r.Status)
			}
			fmt.Fprintf(w, "    ✗ %s: %s\n", r.GameID, reason)
		}
	}
}
