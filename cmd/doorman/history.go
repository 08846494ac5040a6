package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"nocturne-labs/doorman/pkg/cli"
	"nocturne-labs/doorman/pkg/config"
	"nocturne-labs/doorman/pkg/game"
	"nocturne-labs/doorman/pkg/history"
	"nocturne-labs/doorman/pkg/history/export"
	"nocturne-labs/doorman/pkg/history/storage"
)

// historyFilter is the record query surface shared by list and export.
// Each subcommand binds its own copy because their flag defaults differ.
type historyFilter struct {
	game       string
	scenario   int
	outcome    string
	forcedOnly bool
	timeRange  string
	limit      int
	offset     int
	order      string
}

var (
	historyListFilter   historyFilter
	historyListFormat   string
	historyExportFilter historyFilter
	historyExportFormat string
	historyExportOutput string
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect recorded admission decisions",
	Long: `Inspect recorded admission decisions.

Every decision a game makes can be recorded to the history store. This
command queries and exports those records for analyzing why a game
accepted or rejected whom it did.

Subcommands:
  list    - List recorded decisions with filters
  export  - Export recorded decisions as CSV or JSON

Examples:
  # Last hundred decisions of a game
  doorman history list --game 3f2a...

  # Every forced rejection across all games
  doorman history list --forced-only --outcome rejected

  # Full game as CSV for a spreadsheet
  doorman history export --game 3f2a... --output decisions.csv`,
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded decisions",
	Long: `List recorded decisions with filters.

Time Range Format:
  RFC3339 interval format: "start/end"
  Example: "2026-08-21T00:00:00Z/2026-08-22T00:00:00Z"

Examples:
  # Decisions of one game, oldest first
  doorman history list --game 3f2a... --order asc

  # Accepted arrivals only
  doorman history list --outcome accepted --limit 50

  # A time window as JSON
  doorman history list --time-range "2026-08-21T00:00:00Z/2026-08-22T00:00:00Z" --format json`,
	RunE: listHistory,
}

var historyExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export recorded decisions",
	Long: `Export recorded decisions as CSV or JSON.

Exports stream from the store, so full games export in constant memory.

Examples:
  # One game as CSV
  doorman history export --game 3f2a... --output decisions.csv

  # Forced decisions across all games as JSON
  doorman history export --forced-only --format json --output forced.json`,
	RunE: exportHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.AddCommand(historyListCmd, historyExportCmd)

	// Flags for list command
	historyListCmd.Flags().StringVar(&historyListFilter.game, "game", "", "filter by game ID")
	historyListCmd.Flags().IntVar(&historyListFilter.scenario, "scenario", 0, "filter by scenario number")
	historyListCmd.Flags().StringVar(&historyListFilter.outcome, "outcome", "", "filter by outcome (accepted, rejected)")
	historyListCmd.Flags().BoolVar(&historyListFilter.forcedOnly, "forced-only", false, "only decisions that bypassed scoring")
	historyListCmd.Flags().StringVar(&historyListFilter.timeRange, "time-range", "", "time range (RFC3339 interval: start/end)")
	historyListCmd.Flags().IntVar(&historyListFilter.limit, "limit", 100, "max results")
	historyListCmd.Flags().IntVar(&historyListFilter.offset, "offset", 0, "pagination offset")
	historyListCmd.Flags().StringVar(&historyListFilter.order, "order", "desc", "sort order by decision time (asc, desc)")
	historyListCmd.Flags().StringVarP(&historyListFormat, "format", "f", "text", "output format (text, json, csv)")

	// Flags for export command
	historyExportCmd.Flags().StringVar(&historyExportFilter.game, "game", "", "filter by game ID")
	historyExportCmd.Flags().IntVar(&historyExportFilter.scenario, "scenario", 0, "filter by scenario number")
	historyExportCmd.Flags().StringVar(&historyExportFilter.outcome, "outcome", "", "filter by outcome (accepted, rejected)")
	historyExportCmd.Flags().BoolVar(&historyExportFilter.forcedOnly, "forced-only", false, "only decisions that bypassed scoring")
	historyExportCmd.Flags().StringVar(&historyExportFilter.timeRange, "time-range", "", "time range (RFC3339 interval: start/end)")
	historyExportCmd.Flags().IntVar(&historyExportFilter.limit, "limit", 0, "max records (0 = all)")
	historyExportCmd.Flags().IntVar(&historyExportFilter.offset, "offset", 0, "pagination offset")
	historyExportCmd.Flags().StringVar(&historyExportFilter.order, "order", "asc", "sort order by decision time (asc, desc)")
	historyExportCmd.Flags().StringVarP(&historyExportFormat, "format", "f", "csv", "export format (csv, json)")
	historyExportCmd.Flags().StringVarP(&historyExportOutput, "output", "o", "", "output file (default: stdout)")
}

func listHistory(cmd *cobra.Command, args []string) error {
	if err := config.Initialize(cfgFile); err != nil {
		return cli.NewConfigError("", fmt.Sprintf("failed to load config: %v", err))
	}
	cfg := config.GetConfig()

	format, err := cli.ParseFormat(historyListFormat)
	if err != nil {
		return cli.NewCommandError("history", err)
	}

	store, err := openHistoryStorage(cfg)
	if err != nil {
		return cli.NewCommandError("history", err)
	}
	defer store.Close()

	query, err := buildHistoryQuery(&historyListFilter)
	if err != nil {
		return cli.NewCommandError("history", err)
	}

	ctx := context.Background()
	records, err := store.Query(ctx, query)
	if err != nil {
		return cli.NewCommandError("history", fmt.Errorf("query failed: %w", err))
	}

	switch format {
	case cli.FormatJSON:
		return writeHistoryJSON(os.Stdout, records)
	case cli.FormatCSV:
		return export.NewCSVExporter(true).Export(ctx, records, os.Stdout)
	default:
		writeHistoryText(os.Stdout, records)
		return nil
	}
}

func exportHistory(cmd *cobra.Command, args []string) error {
	if err := config.Initialize(cfgFile); err != nil {
		return cli.NewConfigError("", fmt.Sprintf("failed to load config: %v", err))
	}
	cfg := config.GetConfig()

	var exporter streamExporter
	switch historyExportFormat {
	case "csv":
		exporter = export.NewCSVExporter(true)
	case "json":
		exporter = export.NewJSONExporter(true)
	default:
		return cli.NewCommandError("history", fmt.Errorf("unsupported export format %q (supported: csv, json)", historyExportFormat))
	}

	store, err := openHistoryStorage(cfg)
	if err != nil {
		return cli.NewCommandError("history", err)
	}
	defer store.Close()

	query, err := buildHistoryQuery(&historyExportFilter)
	if err != nil {
		return cli.NewCommandError("history", err)
	}

	output := os.Stdout
	if historyExportOutput != "" {
		f, err := os.Create(historyExportOutput)
		if err != nil {
			return cli.NewCommandError("history", fmt.Errorf("failed to create output file: %w", err))
		}
		defer f.Close()
		output = f
	}

	ctx := context.Background()
	recordsCh, errCh, err := store.QueryStream(ctx, query)
	if err != nil {
		return cli.NewCommandError("history", fmt.Errorf("query failed: %w", err))
	}
	if err := exporter.ExportStream(ctx, recordsCh, output); err != nil {
		return cli.NewCommandError("history", fmt.Errorf("export failed: %w", err))
	}
	if err := <-errCh; err != nil {
		return cli.NewCommandError("history", fmt.Errorf("query failed: %w", err))
	}

	if historyExportOutput != "" {
		fmt.Printf("✓ Exported to %s\n", historyExportOutput)
	}
	return nil
}

// streamExporter is the streaming side of the export package's exporters.
type streamExporter interface {
	ExportStream(ctx context.Context, records <-chan *history.Record, w io.Writer) error
}

// openHistoryStorage opens the configured history backend for querying.
// Only sqlite persists across processes, so it is the only backend this
// command can read.
func openHistoryStorage(cfg *config.Config) (history.Storage, error) {
	switch cfg.History.Backend {
	case "sqlite":
		sqliteConfig := storage.DefaultSQLiteConfig()
		sqliteConfig.Path = cfg.History.SQLite.Path
		return storage.NewSQLiteStorage(sqliteConfig)
	case "memory", "none":
		return nil, fmt.Errorf("history backend %q is not queryable from the command line (set history.backend to sqlite)", cfg.History.Backend)
	default:
		return nil, fmt.Errorf("unsupported history backend: %s", cfg.History.Backend)
	}
}

func buildHistoryQuery(f *historyFilter) (*history.Query, error) {
	query := &history.Query{
		GameID:   f.game,
		Scenario: f.scenario,
		Limit:    f.limit,
		Offset:   f.offset,
		SortBy:   "decided_at",
	}

	switch f.outcome {
	case "":
	case "accepted":
		accepted := true
		query.Accepted = &accepted
	case "rejected":
		accepted := false
		query.Accepted = &accepted
	default:
		return nil, fmt.Errorf("invalid outcome %q (supported: accepted, rejected)", f.outcome)
	}

	if f.forcedOnly {
		forced := true
		query.Forced = &forced
	}

	switch f.order {
	case "", "asc", "desc":
		query.SortOrder = f.order
	default:
		return nil, fmt.Errorf("invalid order %q (supported: asc, desc)", f.order)
	}

	if f.timeRange != "" {
		start, end, err := parseTimeRange(f.timeRange)
		if err != nil {
			return nil, err
		}
		query.StartTime = start
		query.EndTime = end
	}

	return query, nil
}

// parseTimeRange parses an RFC3339 interval of the form "start/end".
func parseTimeRange(s string) (*time.Time, *time.Time, error) {
	parts := strings.Split(s, "/")
	if len(parts) != 2 {
		return nil, nil, fmt.Errorf("invalid time range format (expected: start/end)")
	}
	start, err := time.Parse(time.RFC3339, parts[0])
	if err != nil {
		return nil, nil, fmt.Errorf("invalid start time: %w", err)
	}
	end, err := time.Parse(time.RFC3339, parts[1])
	if err != nil {
		return nil, nil, fmt.Errorf("invalid end time: %w", err)
	}
	if end.Before(start) {
		return nil, nil, fmt.Errorf("time range end precedes start")
	}
	return &start, &end, nil
}

func writeHistoryText(w io.Writer, records []*history.Record) {
	fmt.Fprintf(w, "Total records: %d\n", len(records))
	if len(records) == 0 {
		fmt.Fprintln(w, "No records found.")
		return
	}
	fmt.Fprintln(w)

	for i, record := range records {
		verdict := "✓ accept"
		if !record.Accepted {
			verdict = "✗ reject"
		}
		mode := ""
		if record.Forced {
			mode = " (forced)"
		}
		fmt.Fprintf(w, "%s  #%-6d %s%s  score %.3f  bar %.3f  [%s]  admitted %d  rejected %d\n",
			record.DecidedAt.Format(time.RFC3339), record.PersonIndex, verdict, mode,
			record.Score, record.Threshold, joinAttributes(record.Attributes),
			record.Admitted, record.Rejected)

		// Show limited output for large result sets
		if i >= 9 && len(records) > 10 {
			fmt.Fprintln(w)
			fmt.Fprintf(w, "... and %d more records\n", len(records)-10)
			fmt.Fprintln(w, "Use --limit and --offset for pagination.")
			break
		}
	}
}

func writeHistoryJSON(w io.Writer, records []*history.Record) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")

	result := map[string]interface{}{
		"total_records": len(records),
		"records":       records,
	}
	return encoder.Encode(result)
}

func joinAttributes(attrs map[game.AttributeID]bool) string {
	names := make([]string, 0, len(attrs))
	for attr, has := range attrs {
		if has {
			names = append(names, string(attr))
		}
	}
	if len(names) == 0 {
		return "-"
	}
	sort.Strings(names)
	return strings.Join(names, " ")
}
