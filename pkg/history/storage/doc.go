// Package storage provides storage backends for decision history records.
//
// # Storage Backends
//
// The storage package provides two implementations of the history.Storage
// interface:
//
//   - SQLite: Embedded database for durable single-node history
//   - Memory: In-memory storage for tests and short-lived runs
//
// # SQLite Backend
//
// The SQLite backend provides durable storage with:
//
//   - WAL mode for concurrent reads/writes
//   - Indexes on frequently queried fields
//   - Connection pooling for concurrent access
//   - Busy timeout for handling locks
//
// # Basic Usage
//
//	store, err := storage.NewSQLiteStorage(&storage.SQLiteConfig{
//	    Path:         "data/history.db",
//	    MaxOpenConns: 10,
//	    MaxIdleConns: 5,
//	    WALMode:      true,
//	    BusyTimeout:  5 * time.Second,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer store.Close()
//
//	// Store a decision record
//	if err := store.Store(ctx, record); err != nil {
//	    log.Fatal(err)
//	}
//
//	// Query decision records
//	q := &history.Query{
//	    GameID: gameID,
//	    SortBy: "person_index",
//	    Limit:  100,
//	}
//	records, err := store.Query(ctx, q)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// # Query Validation
//
// Both backends validate queries through the query package before executing
// them. Sort fields outside the whitelist are rejected, which is what keeps
// the interpolated ORDER BY clause safe in the SQLite backend.
//
// # Thread Safety
//
// All storage backends are thread-safe and support concurrent access:
//
//   - Store() can be called concurrently from multiple goroutines
//   - Query() can be called concurrently with Store()
//   - WAL mode enables concurrent readers and writers
//
// # Schema Migration
//
// The SQLite storage automatically initializes the database schema on first
// use. Schema version is tracked in the schema_version table for future
// migrations.
package storage
