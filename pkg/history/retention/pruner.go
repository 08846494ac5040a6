package retention

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"nocturne-labs/doorman/pkg/history"
	"nocturne-labs/doorman/pkg/history/export"
	"nocturne-labs/doorman/pkg/history/query"
)

// Config contains configuration for the retention pruner.
type Config struct {
	// RetentionDays is the number of days to retain decision records.
	// 0 means keep records forever (no age-based pruning).
	RetentionDays int

	// PruneSchedule is a cron expression for scheduling pruning.
	// Example: "0 3 * * *" (daily at 3 AM)
	PruneSchedule string

	// ArchiveBeforeDelete enables archiving records before deletion.
	ArchiveBeforeDelete bool

	// ArchivePath is the directory to store archived records.
	ArchivePath string

	// MaxRecords is the maximum number of records to keep.
	// 0 means unlimited.
	MaxRecords int64
}

// DefaultConfig returns the default retention configuration.
func DefaultConfig() *Config {
	return &Config{
		RetentionDays:       90,
		PruneSchedule:       "0 3 * * *",
		ArchiveBeforeDelete: false,
		ArchivePath:         "data/archives/",
		MaxRecords:          0,
	}
}

// Pruner enforces retention policies on decision records.
type Pruner struct {
	storage   history.Storage
	config    *Config
	logger    *slog.Logger
	scheduler *Scheduler
}

// NewPruner creates a new retention pruner.
func NewPruner(storage history.Storage, config *Config) *Pruner {
	if config == nil {
		config = DefaultConfig()
	}

	pruner := &Pruner{
		storage: storage,
		config:  config,
		logger:  slog.Default().With("component", "history.retention"),
	}

	pruner.scheduler = NewScheduler(pruner)

	return pruner
}

// Prune deletes decision records older than the retention period
// or exceeding the max record count.
//
// Pruning happens in two phases:
//  1. Age-based: delete records older than retention_days
//  2. Count-based: if total records > max_records, delete oldest
//
// Both can run together. Returns the total number of records deleted.
func (p *Pruner) Prune(ctx context.Context) (int64, error) {
	var totalDeleted int64

	// Phase 1: prune by retention period
	if p.config.RetentionDays > 0 {
		deleted, err := p.pruneByAge(ctx)
		if err != nil {
			return totalDeleted, fmt.Errorf("prune by age failed: %w", err)
		}
		totalDeleted += deleted
		p.logger.Info("pruned records by age",
			"deleted_count", deleted,
			"retention_days", p.config.RetentionDays,
		)
	}

	// Phase 2: prune by max record count
	if p.config.MaxRecords > 0 {
		deleted, err := p.pruneByCount(ctx)
		if err != nil {
			return totalDeleted, fmt.Errorf("prune by count failed: %w", err)
		}
		totalDeleted += deleted
		p.logger.Info("pruned records by count",
			"deleted_count", deleted,
			"max_records", p.config.MaxRecords,
		)
	}

	if totalDeleted == 0 {
		p.logger.Debug("no records pruned",
			"retention_days", p.config.RetentionDays,
			"max_records", p.config.MaxRecords,
		)
	} else {
		p.logger.Info("history pruning completed",
			"total_deleted", totalDeleted,
			"retention_days", p.config.RetentionDays,
			"max_records", p.config.MaxRecords,
		)
	}

	return totalDeleted, nil
}

// pruneByAge deletes records older than the retention period.
func (p *Pruner) pruneByAge(ctx context.Context) (int64, error) {
	cutoff := time.Now().AddDate(0, 0, -p.config.RetentionDays)

	p.logger.Debug("pruning by age",
		"cutoff_time", cutoff,
		"retention_days", p.config.RetentionDays,
	)

	q := &history.Query{
		EndTime: &cutoff,
	}

	if p.config.ArchiveBeforeDelete {
		if err := p.archive(ctx, q, "age"); err != nil {
			return 0, history.NewRetentionError(p.config.RetentionDays, err)
		}
	}

	deleted, err := p.storage.Delete(ctx, q)
	if err != nil {
		return 0, history.NewRetentionError(p.config.RetentionDays, err)
	}

	return deleted, nil
}

// pruneByCount deletes the oldest records if the total count exceeds
// max_records. The cutoff is the decision time of the record at the excess
// boundary; records sharing that timestamp are pruned together.
func (p *Pruner) pruneByCount(ctx context.Context) (int64, error) {
	count, err := p.storage.Count(ctx, &history.Query{})
	if err != nil {
		return 0, fmt.Errorf("failed to count records: %w", err)
	}

	if count <= p.config.MaxRecords {
		p.logger.Debug("record count within limit",
			"current", count,
			"max", p.config.MaxRecords,
		)
		return 0, nil
	}

	toDelete := count - p.config.MaxRecords

	p.logger.Info("record count exceeds limit, pruning oldest",
		"current_count", count,
		"max_records", p.config.MaxRecords,
		"to_delete", toDelete,
	)

	// Fetch only the record at the excess boundary instead of scanning
	// the whole table.
	boundary, err := p.storage.Query(ctx, &history.Query{
		SortBy:    "decided_at",
		SortOrder: "asc",
		Limit:     1,
		Offset:    int(toDelete) - 1,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to query boundary record: %w", err)
	}
	if len(boundary) == 0 {
		p.logger.Debug("no boundary record found, count changed under us")
		return 0, nil
	}

	cutoff := boundary[0].DecidedAt

	p.logger.Debug("calculated cutoff time for count-based pruning",
		"cutoff_time", cutoff,
		"records_to_delete", toDelete,
	)

	q := &history.Query{
		EndTime: &cutoff,
	}

	if p.config.ArchiveBeforeDelete {
		if err := p.archive(ctx, q, "count"); err != nil {
			return 0, fmt.Errorf("archive failed: %w", err)
		}
	}

	deleted, err := p.storage.Delete(ctx, q)
	if err != nil {
		return 0, fmt.Errorf("delete failed: %w", err)
	}

	return deleted, nil
}

// archive streams the records matched by q into a timestamped JSON file
// before they are deleted. A single archive run is capped at the maximum
// query limit; anything beyond the cap is deleted unarchived with a warning.
func (p *Pruner) archive(ctx context.Context, q *history.Query, label string) error {
	count, err := p.storage.Count(ctx, q)
	if err != nil {
		return fmt.Errorf("failed to count records for archiving: %w", err)
	}
	if count == 0 {
		p.logger.Debug("no records to archive")
		return nil
	}
	if count > query.MaxLimit {
		p.logger.Warn("archive capped at maximum query limit",
			"matching_records", count,
			"archive_cap", query.MaxLimit,
		)
	}

	aq := *q
	aq.SortBy = "decided_at"
	aq.SortOrder = "asc"
	aq.Limit = query.MaxLimit

	recordsCh, errCh, err := p.storage.QueryStream(ctx, &aq)
	if err != nil {
		return fmt.Errorf("failed to stream records for archiving: %w", err)
	}

	if err := os.MkdirAll(p.config.ArchivePath, 0755); err != nil {
		return fmt.Errorf("failed to create archive directory: %w", err)
	}

	archiveFile := filepath.Join(p.config.ArchivePath,
		fmt.Sprintf("history-%s-%s.json", label, time.Now().Format("2006-01-02-150405")))
	f, err := os.Create(archiveFile)
	if err != nil {
		return fmt.Errorf("failed to create archive file: %w", err)
	}
	defer f.Close()

	exporter := export.NewJSONExporter(true)
	if err := exporter.ExportStream(ctx, recordsCh, f); err != nil {
		return fmt.Errorf("failed to export records to archive: %w", err)
	}
	if err := <-errCh; err != nil {
		return fmt.Errorf("record stream failed during archiving: %w", err)
	}

	p.logger.Info("history archived",
		"archive_file", archiveFile,
		"record_count", count,
	)

	return nil
}

// Start starts the automatic pruning scheduler.
// Call this when starting the application.
func (p *Pruner) Start(ctx context.Context) error {
	return p.scheduler.Start(ctx)
}

// Stop stops the automatic pruning scheduler.
// Call this during graceful shutdown.
func (p *Pruner) Stop() {
	p.scheduler.Stop()
}

// NextPruning returns the time of the next scheduled pruning.
func (p *Pruner) NextPruning() *time.Time {
	return p.scheduler.NextRun()
}
