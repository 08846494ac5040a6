package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"nocturne-labs/doorman/pkg/game"
	"nocturne-labs/doorman/pkg/history"
)

// createTempDB creates a temporary SQLite database for testing.
func createTempDB(t *testing.T) (*SQLiteStorage, string) {
	t.Helper()

	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	config := &SQLiteConfig{
		Path:         dbPath,
		MaxOpenConns: 5,
		MaxIdleConns: 2,
		WALMode:      true,
		BusyTimeout:  5 * time.Second,
	}

	store, err := NewSQLiteStorage(config)
	if err != nil {
		t.Fatalf("Failed to create SQLite storage: %v", err)
	}

	return store, dbPath
}

// TestSQLiteStorage_Initialize tests database initialization.
func TestSQLiteStorage_Initialize(t *testing.T) {
	store, dbPath := createTempDB(t)
	defer store.Close()

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("Database file was not created")
	}
}

// TestSQLiteStorage_StoreAndQuery tests a full record round trip.
func TestSQLiteStorage_StoreAndQuery(t *testing.T) {
	store, _ := createTempDB(t)
	defer store.Close()

	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)

	record := &history.Record{
		ID:          "rec-1",
		GameID:      "game-1",
		Scenario:    2,
		PersonIndex: 41,
		Attributes: map[game.AttributeID]bool{
			"techno_lover": true,
			"creative":     false,
		},
		Accepted:  true,
		Forced:    false,
		Score:     1.75,
		Threshold: 0.8,
		Weights: map[game.AttributeID]float64{
			"techno_lover": 2.0,
			"creative":     1.1,
		},
		Admitted:   30,
		Rejected:   12,
		DecidedAt:  now,
		RecordedAt: now,
	}

	if err := store.Store(ctx, record); err != nil {
		t.Fatalf("Store() failed: %v", err)
	}

	results, err := store.Query(ctx, &history.Query{})
	if err != nil {
		t.Fatalf("Query() failed: %v", err)
	}

	if len(results) != 1 {
		t.Fatalf("Expected 1 record, got %d", len(results))
	}

	r := results[0]
	if r.ID != "rec-1" {
		t.Errorf("Expected ID 'rec-1', got '%s'", r.ID)
	}
	if r.GameID != "game-1" {
		t.Errorf("Expected game 'game-1', got '%s'", r.GameID)
	}
	if r.Scenario != 2 || r.PersonIndex != 41 {
		t.Errorf("Game context mangled: scenario=%d person_index=%d", r.Scenario, r.PersonIndex)
	}
	if !r.Attributes["techno_lover"] || r.Attributes["creative"] {
		t.Errorf("Attributes mangled: %v", r.Attributes)
	}
	if !r.Accepted || r.Forced {
		t.Errorf("Decision flags mangled: accepted=%t forced=%t", r.Accepted, r.Forced)
	}
	if r.Score != 1.75 || r.Threshold != 0.8 {
		t.Errorf("Policy state mangled: score=%f threshold=%f", r.Score, r.Threshold)
	}
	if r.Weights["techno_lover"] != 2.0 || r.Weights["creative"] != 1.1 {
		t.Errorf("Weight snapshot mangled: %v", r.Weights)
	}
	if r.Admitted != 30 || r.Rejected != 12 {
		t.Errorf("Occupancy mangled: admitted=%d rejected=%d", r.Admitted, r.Rejected)
	}
	if !r.DecidedAt.Equal(now) {
		t.Errorf("Expected decided_at %v, got %v", now, r.DecidedAt)
	}
}

// TestSQLiteStorage_QueryFilters tests WHERE clause construction.
func TestSQLiteStorage_QueryFilters(t *testing.T) {
	store, _ := createTempDB(t)
	defer store.Close()

	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)

	store.Store(ctx, newTestRecord("rec-1", "game-1", 0, true, now))
	store.Store(ctx, newTestRecord("rec-2", "game-1", 1, false, now))
	store.Store(ctx, newTestRecord("rec-3", "game-2", 0, true, now))

	results, err := store.Query(ctx, &history.Query{GameID: "game-1"})
	if err != nil {
		t.Fatalf("Query() failed: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("Expected 2 records for game-1, got %d", len(results))
	}

	accepted := true
	results, err = store.Query(ctx, &history.Query{GameID: "game-1", Accepted: &accepted})
	if err != nil {
		t.Fatalf("Query() failed: %v", err)
	}
	if len(results) != 1 || results[0].ID != "rec-1" {
		t.Fatalf("Expected only the accepted game-1 record, got %d records", len(results))
	}

	minScore := 0.5
	results, err = store.Query(ctx, &history.Query{MinScore: &minScore})
	if err != nil {
		t.Fatalf("Query() failed: %v", err)
	}
	if len(results) != 1 || results[0].ID != "rec-2" {
		t.Fatalf("Expected only the score-1 record, got %d records", len(results))
	}
}

// TestSQLiteStorage_SortAndPaginate tests ORDER BY and LIMIT/OFFSET handling.
func TestSQLiteStorage_SortAndPaginate(t *testing.T) {
	store, _ := createTempDB(t)
	defer store.Close()

	ctx := context.Background()
	base := time.Now().UTC().Truncate(time.Millisecond)

	for i := 0; i < 10; i++ {
		id := string(rune('a' + i))
		store.Store(ctx, newTestRecord(id, "game-1", i, true, base.Add(time.Duration(i)*time.Second)))
	}

	results, err := store.Query(ctx, &history.Query{
		SortBy:    "person_index",
		SortOrder: "asc",
		Limit:     4,
		Offset:    3,
	})
	if err != nil {
		t.Fatalf("Query() failed: %v", err)
	}

	if len(results) != 4 {
		t.Fatalf("Expected 4 records, got %d", len(results))
	}
	for i, r := range results {
		if r.PersonIndex != i+3 {
			t.Errorf("Position %d: expected person index %d, got %d", i, i+3, r.PersonIndex)
		}
	}

	// Default sort is decided_at descending.
	results, err = store.Query(ctx, &history.Query{Limit: 1})
	if err != nil {
		t.Fatalf("Query() failed: %v", err)
	}
	if results[0].PersonIndex != 9 {
		t.Errorf("Expected newest record first, got person index %d", results[0].PersonIndex)
	}
}

// TestSQLiteStorage_InvalidSortRejected verifies the sort whitelist guards
// the interpolated ORDER BY clause.
func TestSQLiteStorage_InvalidSortRejected(t *testing.T) {
	store, _ := createTempDB(t)
	defer store.Close()

	ctx := context.Background()

	_, err := store.Query(ctx, &history.Query{SortBy: "id; DROP TABLE decisions"})
	if err == nil {
		t.Fatal("Expected invalid sort field to be rejected")
	}
	if _, ok := err.(*history.QueryError); !ok {
		t.Errorf("Expected *history.QueryError, got %T", err)
	}

	// The table must still exist afterwards.
	if _, err := store.Count(ctx, &history.Query{}); err != nil {
		t.Fatalf("Count() after rejected query failed: %v", err)
	}
}

// TestSQLiteStorage_Count tests counting matching records.
func TestSQLiteStorage_Count(t *testing.T) {
	store, _ := createTempDB(t)
	defer store.Close()

	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)

	store.Store(ctx, newTestRecord("rec-1", "game-1", 0, true, now))
	store.Store(ctx, newTestRecord("rec-2", "game-1", 1, false, now))
	store.Store(ctx, newTestRecord("rec-3", "game-2", 2, true, now))

	count, err := store.Count(ctx, &history.Query{GameID: "game-1"})
	if err != nil {
		t.Fatalf("Count() failed: %v", err)
	}
	if count != 2 {
		t.Errorf("Expected count 2, got %d", count)
	}

	count, err = store.Count(ctx, &history.Query{})
	if err != nil {
		t.Fatalf("Count() failed: %v", err)
	}
	if count != 3 {
		t.Errorf("Expected count 3, got %d", count)
	}
}

// TestSQLiteStorage_Delete tests deletion by time cutoff.
func TestSQLiteStorage_Delete(t *testing.T) {
	store, _ := createTempDB(t)
	defer store.Close()

	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)

	store.Store(ctx, newTestRecord("old-1", "game-1", 0, true, now.Add(-72*time.Hour)))
	store.Store(ctx, newTestRecord("old-2", "game-1", 1, true, now.Add(-48*time.Hour)))
	store.Store(ctx, newTestRecord("new", "game-1", 2, true, now))

	cutoff := now.Add(-24 * time.Hour)
	deleted, err := store.Delete(ctx, &history.Query{EndTime: &cutoff})
	if err != nil {
		t.Fatalf("Delete() failed: %v", err)
	}
	if deleted != 2 {
		t.Fatalf("Expected 2 records deleted, got %d", deleted)
	}

	count, err := store.Count(ctx, &history.Query{})
	if err != nil {
		t.Fatalf("Count() failed: %v", err)
	}
	if count != 1 {
		t.Errorf("Expected 1 record remaining, got %d", count)
	}
}

// TestSQLiteStorage_QueryStream tests streaming query results.
func TestSQLiteStorage_QueryStream(t *testing.T) {
	store, _ := createTempDB(t)
	defer store.Close()

	ctx := context.Background()
	base := time.Now().UTC().Truncate(time.Millisecond)

	for i := 0; i < 20; i++ {
		id := string(rune('a' + i))
		store.Store(ctx, newTestRecord(id, "game-1", i, true, base.Add(time.Duration(i)*time.Second)))
	}

	recordsCh, errCh, err := store.QueryStream(ctx, &history.Query{
		SortBy:    "person_index",
		SortOrder: "asc",
		Limit:     20,
	})
	if err != nil {
		t.Fatalf("QueryStream() failed: %v", err)
	}

	count := 0
	for record := range recordsCh {
		if record.PersonIndex != count {
			t.Errorf("Position %d: expected person index %d, got %d", count, count, record.PersonIndex)
		}
		count++
	}
	if err := <-errCh; err != nil {
		t.Fatalf("Stream error: %v", err)
	}

	if count != 20 {
		t.Errorf("Expected 20 streamed records, got %d", count)
	}
}

// TestSQLiteStorage_Reopen verifies the schema survives a close/reopen cycle.
func TestSQLiteStorage_Reopen(t *testing.T) {
	store, dbPath := createTempDB(t)

	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)
	store.Store(ctx, newTestRecord("rec-1", "game-1", 0, true, now))

	if err := store.Close(); err != nil {
		t.Fatalf("Close() failed: %v", err)
	}

	reopened, err := NewSQLiteStorage(&SQLiteConfig{
		Path:         dbPath,
		MaxOpenConns: 5,
		MaxIdleConns: 2,
		WALMode:      true,
		BusyTimeout:  5 * time.Second,
	})
	if err != nil {
		t.Fatalf("Reopening storage failed: %v", err)
	}
	defer reopened.Close()

	count, err := reopened.Count(ctx, &history.Query{})
	if err != nil {
		t.Fatalf("Count() failed: %v", err)
	}
	if count != 1 {
		t.Errorf("Expected 1 record after reopen, got %d", count)
	}
}

// TestSQLiteStorage_DefaultConfig verifies nil config falls back to defaults.
func TestSQLiteStorage_DefaultConfig(t *testing.T) {
	config := DefaultSQLiteConfig()

	if config.Path == "" {
		t.Error("Default path is empty")
	}
	if config.MaxOpenConns != 10 {
		t.Errorf("Expected 10 max open conns, got %d", config.MaxOpenConns)
	}
	if config.MaxIdleConns != 5 {
		t.Errorf("Expected 5 max idle conns, got %d", config.MaxIdleConns)
	}
	if !config.WALMode {
		t.Error("Expected WAL mode enabled by default")
	}
	if config.BusyTimeout != 5*time.Second {
		t.Errorf("Expected 5s busy timeout, got %v", config.BusyTimeout)
	}
}
