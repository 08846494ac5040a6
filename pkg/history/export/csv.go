package export

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"nocturne-labs/doorman/pkg/history"
)

// CSVExporter exports decision records to CSV format.
type CSVExporter struct {
	// IncludeHeader includes a header row with column names.
	IncludeHeader bool
}

// NewCSVExporter creates a new CSV exporter.
func NewCSVExporter(includeHeader bool) *CSVExporter {
	return &CSVExporter{
		IncludeHeader: includeHeader,
	}
}

// Export writes decision records to the provided writer in CSV format.
// The attribute map is flattened to a JSON string column.
func (e *CSVExporter) Export(ctx context.Context, records []*history.Record, w io.Writer) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	if e.IncludeHeader {
		if err := writer.Write(headerRow()); err != nil {
			return history.NewExportError("csv", len(records), err)
		}
	}

	for _, record := range records {
		if err := writer.Write(recordToRow(record)); err != nil {
			return history.NewExportError("csv", len(records), err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return history.NewExportError("csv", len(records), err)
	}

	return nil
}

// ExportStream exports decision records from a channel to CSV format.
// This is memory-efficient for large result sets as it streams records
// one at a time instead of loading all records in memory.
//
// The CSV writer flushes periodically to provide progress feedback
// for long-running exports.
func (e *CSVExporter) ExportStream(ctx context.Context, recordsCh <-chan *history.Record, w io.Writer) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	if e.IncludeHeader {
		if err := writer.Write(headerRow()); err != nil {
			return history.NewExportError("csv", 0, err)
		}
	}

	recordCount := 0
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case record, ok := <-recordsCh:
			if !ok {
				// Channel closed - flush and return
				writer.Flush()
				if err := writer.Error(); err != nil {
					return history.NewExportError("csv", recordCount, err)
				}
				return nil
			}

			if err := writer.Write(recordToRow(record)); err != nil {
				return history.NewExportError("csv", recordCount, err)
			}

			recordCount++

			// Flush every 100 records so long exports show progress
			if recordCount%100 == 0 {
				writer.Flush()
				if err := writer.Error(); err != nil {
					return history.NewExportError("csv", recordCount, err)
				}
			}
		}
	}
}

// headerRow returns the CSV header row.
func headerRow() []string {
	return []string{
		"id", "game_id",
		"scenario", "person_index",
		"attributes",
		"accepted", "forced", "score", "threshold", "weights",
		"admitted", "rejected",
		"decided_at", "recorded_at",
	}
}

// recordToRow converts a decision record to a CSV row.
func recordToRow(record *history.Record) []string {
	// Decisions land milliseconds apart, so timestamps keep full precision.
	formatTime := func(t time.Time) string {
		if t.IsZero() {
			return ""
		}
		return t.Format(time.RFC3339Nano)
	}

	attributes, _ := json.Marshal(record.Attributes)

	var weights string
	if len(record.Weights) > 0 {
		raw, _ := json.Marshal(record.Weights)
		weights = string(raw)
	}

	return []string{
		record.ID,
		record.GameID,
		fmt.Sprintf("%d", record.Scenario),
		fmt.Sprintf("%d", record.PersonIndex),
		string(attributes),
		fmt.Sprintf("%t", record.Accepted),
		fmt.Sprintf("%t", record.Forced),
		fmt.Sprintf("%.6f", record.Score),
		fmt.Sprintf("%.6f", record.Threshold),
		weights,
		fmt.Sprintf("%d", record.Admitted),
		fmt.Sprintf("%d", record.Rejected),
		formatTime(record.DecidedAt),
		formatTime(record.RecordedAt),
	}
}
