package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"nocturne-labs/doorman/pkg/history"
	"nocturne-labs/doorman/pkg/history/query"
)

// SQLiteConfig contains configuration for the SQLite storage backend.
type SQLiteConfig struct {
	// Path is the database file path.
	Path string

	// MaxOpenConns is the maximum number of open connections to the database.
	// Default: 10
	MaxOpenConns int

	// MaxIdleConns is the maximum number of idle connections.
	// Default: 5
	MaxIdleConns int

	// WALMode enables Write-Ahead Logging mode for better concurrency.
	// Default: true
	WALMode bool

	// BusyTimeout is the duration to wait when the database is locked.
	// Default: 5 seconds
	BusyTimeout time.Duration
}

// DefaultSQLiteConfig returns the default SQLite configuration.
func DefaultSQLiteConfig() *SQLiteConfig {
	return &SQLiteConfig{
		Path:         "data/history.db",
		MaxOpenConns: 10,
		MaxIdleConns: 5,
		WALMode:      true,
		BusyTimeout:  5 * time.Second,
	}
}

// SQLiteStorage implements the Storage interface using SQLite.
type SQLiteStorage struct {
	db     *sql.DB
	config *SQLiteConfig
	logger *slog.Logger
}

// NewSQLiteStorage creates a new SQLite storage backend.
// It initializes the database schema and enables WAL mode if configured.
func NewSQLiteStorage(config *SQLiteConfig) (*SQLiteStorage, error) {
	if config == nil {
		config = DefaultSQLiteConfig()
	}

	logger := slog.Default().With("component", "history.storage.sqlite")

	db, err := sql.Open("sqlite3", config.Path)
	if err != nil {
		return nil, history.NewStorageError("sqlite", "open", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(config.MaxOpenConns)
	db.SetMaxIdleConns(config.MaxIdleConns)

	s := &SQLiteStorage{
		db:     db,
		config: config,
		logger: logger,
	}

	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("SQLite storage initialized",
		"path", config.Path,
		"wal_mode", config.WALMode,
		"max_open_conns", config.MaxOpenConns,
	)

	return s, nil
}

// initialize sets up the database schema and enables WAL mode.
func (s *SQLiteStorage) initialize() error {
	if s.config.WALMode {
		_, err := s.db.Exec("PRAGMA journal_mode=WAL;")
		if err != nil {
			return history.NewStorageError("sqlite", "enable_wal", err)
		}
		s.logger.Debug("WAL mode enabled")
	}

	busyTimeoutMs := s.config.BusyTimeout.Milliseconds()
	_, err := s.db.Exec(fmt.Sprintf("PRAGMA busy_timeout=%d;", busyTimeoutMs))
	if err != nil {
		return history.NewStorageError("sqlite", "set_busy_timeout", err)
	}

	_, err = s.db.Exec(Schema)
	if err != nil {
		return history.NewStorageError("sqlite", "create_schema", err)
	}
	s.logger.Debug("database schema created")

	_, err = s.db.Exec(InsertSchemaVersion, SchemaVersion)
	if err != nil {
		return history.NewStorageError("sqlite", "insert_schema_version", err)
	}

	var version int
	err = s.db.QueryRow(GetSchemaVersion).Scan(&version)
	if err != nil && err != sql.ErrNoRows {
		return history.NewStorageError("sqlite", "get_schema_version", err)
	}

	if version != SchemaVersion {
		return history.NewStorageError("sqlite", "schema_version_mismatch",
			fmt.Errorf("expected schema version %d, got %d", SchemaVersion, version))
	}

	s.logger.Debug("schema version verified", "version", version)

	return nil
}

// Store persists a decision record to the database.
func (s *SQLiteStorage) Store(ctx context.Context, record *history.Record) error {
	attributes, err := json.Marshal(record.Attributes)
	if err != nil {
		return history.NewStorageError("sqlite", "store", err)
	}

	var weights string
	if len(record.Weights) > 0 {
		raw, err := json.Marshal(record.Weights)
		if err != nil {
			return history.NewStorageError("sqlite", "store", err)
		}
		weights = string(raw)
	}

	insert := `
		INSERT INTO decisions (
			id, game_id,
			scenario, person_index,
			attributes,
			accepted, forced, score, threshold, weights,
			admitted, rejected,
			decided_at, recorded_at
		) VALUES (
			?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?
		)
	`

	_, err = s.db.ExecContext(ctx, insert,
		record.ID, record.GameID,
		record.Scenario, record.PersonIndex,
		string(attributes),
		record.Accepted, record.Forced, record.Score, record.Threshold, weights,
		record.Admitted, record.Rejected,
		record.DecidedAt, record.RecordedAt,
	)

	if err != nil {
		return history.NewStorageError("sqlite", "store", err)
	}

	return nil
}

// Query retrieves decision records matching the query filters.
func (s *SQLiteStorage) Query(ctx context.Context, q *history.Query) ([]*history.Record, error) {
	if err := query.Validate(q); err != nil {
		return nil, err
	}

	sqlQuery, args := s.buildSelectQuery(q)

	rows, err := s.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, history.NewStorageError("sqlite", "query", err)
	}
	defer rows.Close()

	records := []*history.Record{}
	for rows.Next() {
		record, err := s.scanRow(rows)
		if err != nil {
			return nil, history.NewStorageError("sqlite", "scan", err)
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, history.NewStorageError("sqlite", "query", err)
	}

	return records, nil
}

// QueryStream returns a channel of decision records for memory-efficient streaming.
// Use this for large result sets to avoid loading everything in memory.
// The channels will be closed when the query completes or errors.
func (s *SQLiteStorage) QueryStream(ctx context.Context, q *history.Query) (<-chan *history.Record, <-chan error, error) {
	if err := query.Validate(q); err != nil {
		return nil, nil, err
	}

	recordsCh := make(chan *history.Record, 100)
	errCh := make(chan error, 1)

	sqlQuery, args := s.buildSelectQuery(q)

	go func() {
		defer close(recordsCh)
		defer close(errCh)

		rows, err := s.db.QueryContext(ctx, sqlQuery, args...)
		if err != nil {
			errCh <- history.NewStorageError("sqlite", "query_stream", err)
			return
		}
		defer rows.Close()

		for rows.Next() {
			select {
			case <-ctx.Done():
				errCh <- ctx.Err()
				return
			default:
			}

			record, err := s.scanRow(rows)
			if err != nil {
				errCh <- history.NewStorageError("sqlite", "scan", err)
				return
			}

			select {
			case <-ctx.Done():
				errCh <- ctx.Err()
				return
			case recordsCh <- record:
			}
		}

		if err := rows.Err(); err != nil {
			errCh <- history.NewStorageError("sqlite", "query_stream", err)
		}
	}()

	return recordsCh, errCh, nil
}

// Count returns the number of decision records matching the query filters.
func (s *SQLiteStorage) Count(ctx context.Context, q *history.Query) (int64, error) {
	if err := query.Validate(q); err != nil {
		return 0, err
	}

	whereClause, args := s.buildWhereClause(q)

	sqlQuery := "SELECT COUNT(*) FROM decisions"
	if whereClause != "" {
		sqlQuery += " WHERE " + whereClause
	}

	var count int64
	err := s.db.QueryRowContext(ctx, sqlQuery, args...).Scan(&count)
	if err != nil {
		return 0, history.NewStorageError("sqlite", "count", err)
	}

	return count, nil
}

// Delete removes decision records matching the query filters.
// Returns the number of records deleted.
func (s *SQLiteStorage) Delete(ctx context.Context, q *history.Query) (int64, error) {
	if err := query.Validate(q); err != nil {
		return 0, err
	}

	whereClause, args := s.buildWhereClause(q)

	sqlQuery := "DELETE FROM decisions"
	if whereClause != "" {
		sqlQuery += " WHERE " + whereClause
	}

	result, err := s.db.ExecContext(ctx, sqlQuery, args...)
	if err != nil {
		return 0, history.NewStorageError("sqlite", "delete", err)
	}

	count, err := result.RowsAffected()
	if err != nil {
		return 0, history.NewStorageError("sqlite", "delete", err)
	}

	return count, nil
}

// Close releases resources held by the storage backend.
func (s *SQLiteStorage) Close() error {
	if err := s.db.Close(); err != nil {
		return history.NewStorageError("sqlite", "close", err)
	}

	s.logger.Info("SQLite storage closed")
	return nil
}

// buildSelectQuery builds the full SELECT statement for a validated query.
// The sort field has passed the query whitelist, so interpolating it is safe.
func (s *SQLiteStorage) buildSelectQuery(q *history.Query) (string, []interface{}) {
	whereClause, args := s.buildWhereClause(q)

	sqlQuery := "SELECT * FROM decisions"
	if whereClause != "" {
		sqlQuery += " WHERE " + whereClause
	}

	sortBy := "decided_at"
	sortOrder := "DESC"
	if q.SortBy != "" {
		sortBy = q.SortBy
	}
	if q.SortOrder != "" {
		sortOrder = strings.ToUpper(q.SortOrder)
	}
	sqlQuery += fmt.Sprintf(" ORDER BY %s %s", sortBy, sortOrder)

	limit := query.DefaultLimit
	if q.Limit > 0 {
		limit = q.Limit
	}
	sqlQuery += fmt.Sprintf(" LIMIT %d", limit)

	if q.Offset > 0 {
		sqlQuery += fmt.Sprintf(" OFFSET %d", q.Offset)
	}

	return sqlQuery, args
}

// buildWhereClause builds a SQL WHERE clause from query filters.
// Returns the WHERE clause (without "WHERE" keyword) and the query arguments.
func (s *SQLiteStorage) buildWhereClause(q *history.Query) (string, []interface{}) {
	var conditions []string
	var args []interface{}

	// Game filters
	if q.GameID != "" {
		conditions = append(conditions, "game_id = ?")
		args = append(args, q.GameID)
	}
	if q.Scenario != 0 {
		conditions = append(conditions, "scenario = ?")
		args = append(args, q.Scenario)
	}

	// Decision filters
	if q.Accepted != nil {
		conditions = append(conditions, "accepted = ?")
		args = append(args, *q.Accepted)
	}
	if q.Forced != nil {
		conditions = append(conditions, "forced = ?")
		args = append(args, *q.Forced)
	}

	// Time range filter
	if q.StartTime != nil {
		conditions = append(conditions, "decided_at >= ?")
		args = append(args, *q.StartTime)
	}
	if q.EndTime != nil {
		conditions = append(conditions, "decided_at <= ?")
		args = append(args, *q.EndTime)
	}

	// Score thresholds
	if q.MinScore != nil {
		conditions = append(conditions, "score >= ?")
		args = append(args, *q.MinScore)
	}
	if q.MaxScore != nil {
		conditions = append(conditions, "score <= ?")
		args = append(args, *q.MaxScore)
	}

	return strings.Join(conditions, " AND "), args
}

// scanRow scans a database row into a decision record.
func (s *SQLiteStorage) scanRow(row *sql.Rows) (*history.Record, error) {
	var record history.Record
	var attributes string
	var weights string

	err := row.Scan(
		&record.ID, &record.GameID,
		&record.Scenario, &record.PersonIndex,
		&attributes,
		&record.Accepted, &record.Forced, &record.Score, &record.Threshold, &weights,
		&record.Admitted, &record.Rejected,
		&record.DecidedAt, &record.RecordedAt,
	)
	if err != nil {
		return nil, err
	}

	if attributes != "" {
		if err := json.Unmarshal([]byte(attributes), &record.Attributes); err != nil {
			return nil, fmt.Errorf("unmarshal attributes for record %s: %w", record.ID, err)
		}
	}

	if weights != "" {
		if err := json.Unmarshal([]byte(weights), &record.Weights); err != nil {
			return nil, fmt.Errorf("unmarshal weights for record %s: %w", record.ID, err)
		}
	}

	return &record, nil
}
