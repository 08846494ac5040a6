package storage

import (
	"context"
	"sort"
	"sync"

	"nocturne-labs/doorman/pkg/game"
	"nocturne-labs/doorman/pkg/history"
	"nocturne-labs/doorman/pkg/history/query"
)

// DefaultMaxRecords bounds the in-memory store. Once the cap is reached
// the oldest records are evicted first.
const DefaultMaxRecords = 100000

// MemoryStorage implements the Storage interface using an in-memory map,
// bounded at DefaultMaxRecords. Records do not survive process exit; use
// it for tests and for runs where history only needs to live as long as
// the game.
type MemoryStorage struct {
	records map[string]*history.Record
	// order holds record IDs oldest first. Delete leaves stale entries
	// behind; eviction skips them.
	order []string
	max   int
	mu    sync.RWMutex
}

// NewMemoryStorage creates a new in-memory storage backend.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		records: make(map[string]*history.Record),
		max:     DefaultMaxRecords,
	}
}

// Store persists a decision record to memory. Storing past the cap
// evicts the oldest records.
func (s *MemoryStorage) Store(ctx context.Context, record *history.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.records[record.ID]; !exists {
		s.order = append(s.order, record.ID)
	}
	s.records[record.ID] = cloneRecord(record)

	for len(s.records) > s.max && len(s.order) > 0 {
		delete(s.records, s.order[0])
		s.order = s.order[1:]
	}

	return nil
}

// Query retrieves decision records matching the query filters,
// sorted and paginated the same way the SQLite backend sorts them.
func (s *MemoryStorage) Query(ctx context.Context, q *history.Query) ([]*history.Record, error) {
	if err := query.Validate(q); err != nil {
		return nil, err
	}

	results := s.collect(q)

	// Apply pagination
	start := q.Offset
	if start > len(results) {
		return []*history.Record{}, nil
	}

	limit := q.Limit
	if limit <= 0 {
		limit = query.DefaultLimit
	}
	end := start + limit
	if end > len(results) {
		end = len(results)
	}

	return results[start:end], nil
}

// QueryStream returns a channel of decision records for memory-efficient streaming.
// The channels will be closed when the query completes or errors.
func (s *MemoryStorage) QueryStream(ctx context.Context, q *history.Query) (<-chan *history.Record, <-chan error, error) {
	if err := query.Validate(q); err != nil {
		return nil, nil, err
	}

	recordsCh := make(chan *history.Record, 100)
	errCh := make(chan error, 1)

	go func() {
		defer close(recordsCh)
		defer close(errCh)

		matched := s.collect(q)

		start := q.Offset
		if start > len(matched) {
			return
		}

		limit := q.Limit
		if limit <= 0 {
			limit = query.DefaultLimit
		}
		end := start + limit
		if end > len(matched) {
			end = len(matched)
		}

		for _, record := range matched[start:end] {
			select {
			case <-ctx.Done():
				errCh <- ctx.Err()
				return
			case recordsCh <- record:
			}
		}
	}()

	return recordsCh, errCh, nil
}

// Count returns the number of decision records matching the query filters.
func (s *MemoryStorage) Count(ctx context.Context, q *history.Query) (int64, error) {
	if err := query.Validate(q); err != nil {
		return 0, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int64
	for _, record := range s.records {
		if matchesQuery(record, q) {
			count++
		}
	}

	return count, nil
}

// Delete removes decision records matching the query filters.
// Returns the number of records deleted.
func (s *MemoryStorage) Delete(ctx context.Context, q *history.Query) (int64, error) {
	if err := query.Validate(q); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var deleted int64
	for id, record := range s.records {
		if matchesQuery(record, q) {
			delete(s.records, id)
			deleted++
		}
	}

	return deleted, nil
}

// Close releases resources held by the storage backend.
func (s *MemoryStorage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = make(map[string]*history.Record)
	s.order = nil
	return nil
}

// collect returns copies of all matching records in query sort order.
func (s *MemoryStorage) collect(q *history.Query) []*history.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var results []*history.Record
	for _, record := range s.records {
		if matchesQuery(record, q) {
			results = append(results, cloneRecord(record))
		}
	}

	sortRecords(results, q.SortBy, q.SortOrder)

	return results
}

// matchesQuery checks if a record matches the query filters.
func matchesQuery(record *history.Record, q *history.Query) bool {
	// Game filters
	if q.GameID != "" && record.GameID != q.GameID {
		return false
	}
	if q.Scenario != 0 && record.Scenario != q.Scenario {
		return false
	}

	// Decision filters
	if q.Accepted != nil && record.Accepted != *q.Accepted {
		return false
	}
	if q.Forced != nil && record.Forced != *q.Forced {
		return false
	}

	// Time range filter
	if q.StartTime != nil && record.DecidedAt.Before(*q.StartTime) {
		return false
	}
	if q.EndTime != nil && record.DecidedAt.After(*q.EndTime) {
		return false
	}

	// Score thresholds
	if q.MinScore != nil && record.Score < *q.MinScore {
		return false
	}
	if q.MaxScore != nil && record.Score > *q.MaxScore {
		return false
	}

	return true
}

// sortRecords sorts records by the validated sort field.
// An empty sortBy falls back to decided_at descending, matching SQLite.
func sortRecords(records []*history.Record, sortBy, sortOrder string) {
	if sortBy == "" {
		sortBy = "decided_at"
	}

	less := func(i, j int) bool {
		switch sortBy {
		case "recorded_at":
			return records[i].RecordedAt.Before(records[j].RecordedAt)
		case "person_index":
			return records[i].PersonIndex < records[j].PersonIndex
		case "score":
			return records[i].Score < records[j].Score
		default:
			return records[i].DecidedAt.Before(records[j].DecidedAt)
		}
	}

	if sortOrder == "asc" {
		sort.SliceStable(records, less)
	} else {
		sort.SliceStable(records, func(i, j int) bool { return less(j, i) })
	}
}

// cloneRecord deep-copies a record so callers never share its maps.
func cloneRecord(record *history.Record) *history.Record {
	recordCopy := *record
	if record.Attributes != nil {
		recordCopy.Attributes = make(map[game.AttributeID]bool, len(record.Attributes))
		for id, has := range record.Attributes {
			recordCopy.Attributes[id] = has
		}
	}
	if record.Weights != nil {
		recordCopy.Weights = make(map[game.AttributeID]float64, len(record.Weights))
		for id, w := range record.Weights {
			recordCopy.Weights[id] = w
		}
	}
	return &recordCopy
}

// Clear removes all records from storage (for testing).
func (s *MemoryStorage) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = make(map[string]*history.Record)
	s.order = nil
}

// GetByID retrieves a single decision record by ID (for testing).
func (s *MemoryStorage) GetByID(id string) *history.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.records[id]
	if !ok {
		return nil
	}

	return cloneRecord(record)
}

// Size returns the number of records in storage (for testing).
func (s *MemoryStorage) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.records)
}
