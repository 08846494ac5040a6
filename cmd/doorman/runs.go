package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"nocturne-labs/doorman/pkg/cli"
	"nocturne-labs/doorman/pkg/config"
	"nocturne-labs/doorman/pkg/runs"
)

var runsFlags struct {
	limit    int
	scenario int
	format   string
}

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect archived game results",
	Long: `Inspect archived game results.

Finished games are archived to the run store when runs.enabled is set.
This command lists past games and looks up the best completed run per
scenario.

Subcommands:
  list  - List recent runs
  best  - Show the best completed run for a scenario

Examples:
  # Last ten runs
  doorman runs list --limit 10

  # Fewest rejections for scenario 2
  doorman runs best --scenario 2`,
}

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent runs",
	Long: `List recent runs, newest first.

Examples:
  # Last twenty runs
  doorman runs list

  # Recent runs as CSV
  doorman runs list --format csv > runs.csv`,
	RunE: listRuns,
}

var runsBestCmd = &cobra.Command{
	Use:   "best",
	Short: "Show the best completed run for a scenario",
	Long: `Show the completed run with the fewest rejections for a scenario.

Examples:
  # Best result for scenario 1
  doorman runs best --scenario 1

  # As JSON for scripting
  doorman runs best --scenario 1 --format json`,
	RunE: bestRun,
}

func init() {
	rootCmd.AddCommand(runsCmd)
	runsCmd.AddCommand(runsListCmd, runsBestCmd)

	runsListCmd.Flags().IntVar(&runsFlags.limit, "limit", 20, "max runs to list")
	runsListCmd.Flags().StringVarP(&runsFlags.format, "format", "f", "text", "output format (text, json, csv)")

	runsBestCmd.Flags().IntVarP(&runsFlags.scenario, "scenario", "s", 0, "scenario number")
	runsBestCmd.Flags().StringVarP(&runsFlags.format, "format", "f", "text", "output format (text, json)")
}

func listRuns(cmd *cobra.Command, args []string) error {
	if err := config.Initialize(cfgFile); err != nil {
		return cli.NewConfigError("", fmt.Sprintf("failed to load config: %v", err))
	}
	cfg := config.GetConfig()

	format, err := cli.ParseFormat(runsFlags.format)
	if err != nil {
		return cli.NewCommandError("runs", err)
	}

	store, err := runs.NewStore(cfg.Runs.Path)
	if err != nil {
		return cli.NewCommandError("runs", fmt.Errorf("failed to open run store: %w", err))
	}
	defer store.Close()

	items, err := store.List(context.Background(), runsFlags.limit)
	if err != nil {
		return cli.NewCommandError("runs", err)
	}

	switch format {
	case cli.FormatJSON:
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(map[string]interface{}{
			"total_runs": len(items),
			"runs":       items,
		})
	case cli.FormatCSV:
		formatter := &cli.CSVFormatter{Headers: runRowHeaders()}
		return formatter.FormatTo(os.Stdout, runRows(items))
	default:
		writeRunsText(os.Stdout, items)
		return nil
	}
}

func bestRun(cmd *cobra.Command, args []string) error {
	if err := config.Initialize(cfgFile); err != nil {
		return cli.NewConfigError("", fmt.Sprintf("failed to load config: %v", err))
	}
	cfg := config.GetConfig()

	if runsFlags.scenario <= 0 {
		return cli.NewCommandError("runs", fmt.Errorf("scenario required (--scenario)"))
	}
	format, err := cli.ParseFormat(runsFlags.format)
	if err != nil {
		return cli.NewCommandError("runs", err)
	}

	store, err := runs.NewStore(cfg.Runs.Path)
	if err != nil {
		return cli.NewCommandError("runs", fmt.Errorf("failed to open run store: %w", err))
	}
	defer store.Close()

	best, err := store.Best(context.Background(), runsFlags.scenario)
	if err != nil {
		return cli.NewCommandError("runs", err)
	}
	if best == nil {
		fmt.Printf("No completed runs for scenario %d.\n", runsFlags.scenario)
		return nil
	}

	if format == cli.FormatJSON {
		return cli.NewFormatter(format).FormatTo(os.Stdout, best)
	}

	fmt.Printf("Best run for scenario %d:\n", runsFlags.scenario)
	fmt.Printf("  Game:      %s\n", best.GameID)
	fmt.Printf("  Admitted:  %d\n", best.Admitted)
	fmt.Printf("  Rejected:  %d\n", best.Rejected)
	fmt.Printf("  Duration:  %s\n", best.Duration.Round(time.Millisecond))
	fmt.Printf("  Finished:  %s\n", best.FinishedAt.Format(time.RFC3339))
	return nil
}

func writeRunsText(w io.Writer, items []*runs.Run) {
	if len(items) == 0 {
		fmt.Fprintln(w, "No runs recorded.")
		return
	}
	fmt.Fprintf(w, "%-36s  %-8s  %-9s  %8s  %8s  %10s  %s\n",
		"GAME", "SCENARIO", "STATUS", "ADMITTED", "REJECTED", "DURATION", "FINISHED")
	for _, r := range items {
		fmt.Fprintf(w, "%-36s  %-8d  %-9s  %8d  %8d  %10s  %s\n",
			r.GameID, r.Scenario, r.Status, r.Admitted, r.Rejected,
			r.Duration.Round(time.Second), r.FinishedAt.Format(time.RFC3339))
	}
}

func runRowHeaders() []string {
	return []string{"game_id", "scenario", "status", "admitted", "rejected", "duration", "finished_at"}
}

func runRows(items []*runs.Run) [][]string {
	rows := make([][]string, 0, len(items))
	for _, r := range items {
		rows = append(rows, []string{
			r.GameID,
			strconv.Itoa(r.Scenario),
			string(r.Status),
			strconv.Itoa(r.Admitted),
			strconv.Itoa(r.Rejected),
			r.Duration.Round(time.Millisecond).String(),
			r.FinishedAt.Format(time.RFC3339),
		})
	}
	return rows
}
