package query

import (
	"fmt"

	"nocturne-labs/doorman/pkg/history"
)

const (
	// DefaultLimit is the default number of records to return if not specified.
	DefaultLimit = 100

	// MaxLimit is the maximum number of records that can be returned in a single query.
	MaxLimit = 10000
)

// ValidSortFields contains the fields that can be used for sorting. Storage
// backends interpolate the sort field into SQL, so anything outside this set
// must be rejected before the query executes.
var ValidSortFields = map[string]bool{
	"decided_at":   true,
	"recorded_at":  true,
	"person_index": true,
	"score":        true,
}

// ValidSortOrders contains the valid sort orders.
var ValidSortOrders = map[string]bool{
	"asc":  true,
	"desc": true,
}

// Validate validates a query and returns an error if any parameters are invalid.
func Validate(q *history.Query) error {
	// Validate limit
	if q.Limit < 0 {
		return history.NewQueryError(q, fmt.Errorf("limit must be >= 0, got %d", q.Limit))
	}
	if q.Limit > MaxLimit {
		return history.NewQueryError(q, fmt.Errorf("limit must be <= %d, got %d", MaxLimit, q.Limit))
	}

	// Validate offset
	if q.Offset < 0 {
		return history.NewQueryError(q, fmt.Errorf("offset must be >= 0, got %d", q.Offset))
	}

	// Validate scenario
	if q.Scenario < 0 {
		return history.NewQueryError(q, fmt.Errorf("scenario must be >= 0, got %d", q.Scenario))
	}

	// Validate sort field
	if q.SortBy != "" && !ValidSortFields[q.SortBy] {
		return history.NewQueryError(q, fmt.Errorf("invalid sort field: %s", q.SortBy))
	}

	// Validate sort order
	if q.SortOrder != "" && !ValidSortOrders[q.SortOrder] {
		return history.NewQueryError(q, fmt.Errorf("invalid sort order: %s (must be 'asc' or 'desc')", q.SortOrder))
	}

	// Validate time range
	if q.StartTime != nil && q.EndTime != nil {
		if q.StartTime.After(*q.EndTime) {
			return history.NewQueryError(q, fmt.Errorf("start_time must be before end_time"))
		}
	}

	// Validate score thresholds
	if q.MinScore != nil && q.MaxScore != nil {
		if *q.MinScore > *q.MaxScore {
			return history.NewQueryError(q, fmt.Errorf("min_score must be <= max_score"))
		}
	}

	return nil
}
