package history

import (
	"context"
	"io"
	"time"

	"nocturne-labs/doorman/pkg/game"
)

// Record captures a single admission decision as an immutable history entry.
// It holds the arrival's attributes, the decision and the policy state that
// produced it, and the venue occupancy after the decision was applied.
type Record struct {
	// Identity
	ID     string `json:"id"`      // UUID v4
	GameID string `json:"game_id"` // Game the decision belongs to

	// Game context
	Scenario    int `json:"scenario"`     // Scenario number
	PersonIndex int `json:"person_index"` // Arrival order, starting at 0

	// Arrival
	Attributes map[game.AttributeID]bool `json:"attributes"` // Attribute flags for the person

	// Decision
	Accepted  bool    `json:"accepted"`  // Admitted or turned away
	Forced    bool    `json:"forced"`    // Decision bypassed scoring
	Score     float64 `json:"score"`     // Weighted attribute score (0 when forced)
	Threshold float64 `json:"threshold"` // Admission bar at decision time

	// Weights holds the constraint weights behind the score, so a record
	// explains its own verdict offline.
	Weights map[game.AttributeID]float64 `json:"weights,omitempty"`

	// Occupancy after the decision was applied
	Admitted int `json:"admitted"` // People admitted so far
	Rejected int `json:"rejected"` // People rejected so far

	// Timestamps
	DecidedAt  time.Time `json:"decided_at"`  // When the policy decided
	RecordedAt time.Time `json:"recorded_at"` // When the record was written
}

// Query defines filter parameters for querying decision records.
type Query struct {
	// Filters
	GameID   string `json:"game_id,omitempty"`  // Filter by game
	Scenario int    `json:"scenario,omitempty"` // Filter by scenario (0 = any)
	Accepted *bool  `json:"accepted,omitempty"` // Filter by decision outcome
	Forced   *bool  `json:"forced,omitempty"`   // Filter by forced decisions

	// Time range (against decided_at)
	StartTime *time.Time `json:"start_time,omitempty"` // Inclusive start time
	EndTime   *time.Time `json:"end_time,omitempty"`   // Inclusive end time

	// Score thresholds
	MinScore *float64 `json:"min_score,omitempty"` // Minimum score
	MaxScore *float64 `json:"max_score,omitempty"` // Maximum score

	// Pagination
	Limit  int `json:"limit,omitempty"`  // Max records to return
	Offset int `json:"offset,omitempty"` // Skip N records

	// Sorting
	SortBy    string `json:"sort_by,omitempty"`    // "decided_at", "person_index", "score"
	SortOrder string `json:"sort_order,omitempty"` // "asc", "desc"
}

// Storage defines the interface for decision history backends.
// Implementations must be thread-safe and support concurrent access.
type Storage interface {
	// Store persists a decision record.
	// Returns an error if the record cannot be written.
	Store(ctx context.Context, record *Record) error

	// Query retrieves decision records matching the query filters.
	// Returns an empty slice if no records match.
	Query(ctx context.Context, query *Query) ([]*Record, error)

	// QueryStream returns a channel of decision records for memory-efficient streaming.
	// Use this for large result sets to avoid loading everything in memory.
	//
	// Returns:
	//   - recordsCh: Channel of decision records (buffered)
	//   - errCh: Channel for errors (buffered, max 1 error)
	//   - error: Immediate error (e.g., invalid query)
	//
	// The channels will be closed when the query completes or errors.
	// Callers should read from both channels until they are closed.
	QueryStream(ctx context.Context, query *Query) (<-chan *Record, <-chan error, error)

	// Count returns the number of decision records matching the query filters.
	Count(ctx context.Context, query *Query) (int64, error)

	// Delete removes decision records matching the query filters.
	// Returns the number of records deleted.
	// Used for retention policy enforcement.
	Delete(ctx context.Context, query *Query) (int64, error)

	// Close releases any resources held by the storage backend.
	Close() error
}

// Exporter defines the interface for exporting decision records to various formats.
type Exporter interface {
	// Export writes decision records to the provided writer in the exporter's format.
	// Returns an error if the export fails.
	Export(ctx context.Context, records []*Record, w io.Writer) error
}
