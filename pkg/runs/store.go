package runs

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	_ "modernc.org/sqlite" // SQLite driver

	"nocturne-labs/doorman/pkg/game"
)

// Store persists run summaries in SQLite. The store uses a write-ahead
// log with periodic checkpointing and a single-writer connection pool,
// which is all a one-process archive needs.
type Store struct {
	db                 *sql.DB
	dbPath             string
	checkpointInterval time.Duration
	done               chan struct{}
	mu                 sync.RWMutex
	closeOnce          sync.Once

	saveStmt *sql.Stmt
	getStmt  *sql.Stmt
	listStmt *sql.Stmt
	bestStmt *sql.Stmt
}

// StoreConfig configures the run store.
type StoreConfig struct {
	// DBPath is the path to the SQLite database file.
	DBPath string

	// CheckpointInterval is how often to checkpoint the WAL.
	// Default: 5 minutes
	CheckpointInterval time.Duration

	// BusyTimeout is how long to wait for locks before failing.
	// Default: 5 seconds
	BusyTimeout time.Duration
}

// NewStore creates a run store with default settings.
func NewStore(dbPath string) (*Store, error) {
	return NewStoreWithConfig(StoreConfig{
		DBPath:             dbPath,
		CheckpointInterval: 5 * time.Minute,
		BusyTimeout:        5 * time.Second,
	})
}

// NewStoreWithConfig creates a run store with custom configuration.
func NewStoreWithConfig(cfg StoreConfig) (*Store, error) {
	if cfg.DBPath == "" {
		return nil, fmt.Errorf("db path cannot be empty")
	}
	if cfg.CheckpointInterval == 0 {
		cfg.CheckpointInterval = 5 * time.Minute
	}
	if cfg.BusyTimeout == 0 {
		cfg.BusyTimeout = 5 * time.Second
	}

	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=%d&_synchronous=NORMAL",
		cfg.DBPath, int(cfg.BusyTimeout.Milliseconds()))

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports a single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	store := &Store{
		db:                 db,
		dbPath:             cfg.DBPath,
		checkpointInterval: cfg.CheckpointInterval,
		done:               make(chan struct{}),
	}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	if err := store.prepareStatements(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to prepare statements: %w", err)
	}

	go store.checkpointLoop()

	return store, nil
}

// initSchema creates the database schema if it doesn't exist.
func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		game_id TEXT NOT NULL,
		scenario INTEGER NOT NULL,
		status TEXT NOT NULL,
		admitted INTEGER NOT NULL,
		rejected INTEGER NOT NULL,
		satisfied TEXT,
		degraded BOOLEAN NOT NULL,
		duration_ms INTEGER NOT NULL,
		started_at INTEGER NOT NULL,
		finished_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_runs_scenario ON runs(scenario);
	CREATE INDEX IF NOT EXISTS idx_runs_finished_at ON runs(finished_at);
	CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
	`

	_, err := s.db.Exec(schema)
	return err
}

// prepareStatements prepares SQL statements for reuse.
func (s *Store) prepareStatements() error {
	var err error

	s.saveStmt, err = s.db.Prepare(`
		INSERT INTO runs (id, game_id, scenario, status, admitted, rejected, satisfied, degraded, duration_ms, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			status = excluded.status,
			admitted = excluded.admitted,
			rejected = excluded.rejected,
			satisfied = excluded.satisfied,
			degraded = excluded.degraded,
			duration_ms = excluded.duration_ms,
			finished_at = excluded.finished_at
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare save statement: %w", err)
	}

	s.getStmt, err = s.db.Prepare(`
		SELECT id, game_id, scenario, status, admitted, rejected, satisfied, degraded, duration_ms, started_at, finished_at
		FROM runs
		WHERE id = ?
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare get statement: %w", err)
	}

	s.listStmt, err = s.db.Prepare(`
		SELECT id, game_id, scenario, status, admitted, rejected, satisfied, degraded, duration_ms, started_at, finished_at
		FROM runs
		ORDER BY finished_at DESC
		LIMIT ?
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare list statement: %w", err)
	}

	s.bestStmt, err = s.db.Prepare(`
		SELECT id, game_id, scenario, status, admitted, rejected, satisfied, degraded, duration_ms, started_at, finished_at
		FROM runs
		WHERE scenario = ? AND status = ?
		ORDER BY rejected ASC, finished_at ASC
		LIMIT 1
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare best statement: %w", err)
	}

	return nil
}

// Save persists a run summary. An empty ID is assigned, and zero
// timestamps default to now.
func (s *Store) Save(ctx context.Context, run *Run) error {
	if run == nil {
		return fmt.Errorf("run cannot be nil")
	}
	if run.GameID == "" {
		return fmt.Errorf("game id cannot be empty")
	}
	if run.ID == "" {
		run.ID = uuid.New().String()
	}

	var satisfiedJSON []byte
	var err error
	if run.Satisfied != nil {
		satisfiedJSON, err = json.Marshal(run.Satisfied)
		if err != nil {
			return fmt.Errorf("failed to marshal satisfaction map: %w", err)
		}
	}

	now := time.Now()
	if run.StartedAt.IsZero() {
		run.StartedAt = now
	}
	if run.FinishedAt.IsZero() {
		run.FinishedAt = now
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err = s.saveStmt.ExecContext(ctx,
		run.ID,
		run.GameID,
		run.Scenario,
		string(run.Status),
		run.Admitted,
		run.Rejected,
		string(satisfiedJSON),
		run.Degraded,
		run.Duration.Milliseconds(),
		run.StartedAt.Unix(),
		run.FinishedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}

	return nil
}

// Get retrieves a run by ID. Returns nil without error when the run
// does not exist.
func (s *Store) Get(ctx context.Context, runID string) (*Run, error) {
	if runID == "" {
		return nil, fmt.Errorf("run id cannot be empty")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	run, err := scanRun(s.getStmt.QueryRowContext(ctx, runID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load run: %w", err)
	}

	return run, nil
}

// List returns the most recently finished runs, newest first. A limit
// of zero or less defaults to 20.
func (s *Store) List(ctx context.Context, limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = 20
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.listStmt.QueryContext(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	return collectRuns(rows)
}

// Best returns the completed run with the fewest rejections for a
// scenario, or nil when no run has completed it yet. Ties go to the
// earlier finish.
func (s *Store) Best(ctx context.Context, scenario int) (*Run, error) {
	if scenario <= 0 {
		return nil, fmt.Errorf("scenario must be > 0, got %d", scenario)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	run, err := scanRun(s.bestStmt.QueryRowContext(ctx, scenario, string(game.StatusCompleted)))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load best run: %w", err)
	}

	return run, nil
}

// Close releases any resources held by the store.
// Close is idempotent and safe to call multiple times.
func (s *Store) Close() error {
	var closeErr error

	s.closeOnce.Do(func() {
		close(s.done)

		if s.saveStmt != nil {
			s.saveStmt.Close()
		}
		if s.getStmt != nil {
			s.getStmt.Close()
		}
		if s.listStmt != nil {
			s.listStmt.Close()
		}
		if s.bestStmt != nil {
			s.bestStmt.Close()
		}

		if s.db != nil {
			// Run final checkpoint
			_, _ = s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
			closeErr = s.db.Close()
		}
	})

	return closeErr
}

// checkpointLoop runs periodic WAL checkpoints.
func (s *Store) checkpointLoop() {
	ticker := time.NewTicker(s.checkpointInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			_, _ = s.db.Exec("PRAGMA wal_checkpoint(PASSIVE)")
		case <-s.done:
			return
		}
	}
}

// rowScanner covers both sql.Row and sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanRun reads one run row.
func scanRun(row rowScanner) (*Run, error) {
	var (
		run           Run
		status        string
		satisfiedJSON string
		durationMs    int64
		startedAt     int64
		finishedAt    int64
	)

	err := row.Scan(
		&run.ID,
		&run.GameID,
		&run.Scenario,
		&status,
		&run.Admitted,
		&run.Rejected,
		&satisfiedJSON,
		&run.Degraded,
		&durationMs,
		&startedAt,
		&finishedAt,
	)
	if err != nil {
		return nil, err
	}

	parsed, err := game.ParseStatus(status)
	if err != nil {
		return nil, fmt.Errorf("failed to parse run status: %w", err)
	}
	run.Status = parsed

	if satisfiedJSON != "" {
		run.Satisfied = make(map[game.AttributeID]bool)
		if err := json.Unmarshal([]byte(satisfiedJSON), &run.Satisfied); err != nil {
			return nil, fmt.Errorf("failed to unmarshal satisfaction map: %w", err)
		}
	}

	run.Duration = time.Duration(durationMs) * time.Millisecond
	run.StartedAt = time.Unix(startedAt, 0)
	run.FinishedAt = time.Unix(finishedAt, 0)

	return &run, nil
}

// collectRuns reads all rows from a list query.
func collectRuns(rows *sql.Rows) ([]*Run, error) {
	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return runs, nil
}
