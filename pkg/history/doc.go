// Package history provides durable recording and querying of admission
// decisions. Every accept/reject verdict is captured as an immutable record
// so completed games can be replayed, compared, and analyzed offline.
//
// # Architecture
//
// The history system consists of three layers:
//
//  1. Decision Recorder - Creates decision records from policy verdicts
//  2. Storage Backend - Persists decision records (SQLite, memory)
//  3. Query Layer - Retrieves, filters, and exports decision records
//
// # Decision Records
//
// Each record captures:
//   - Game context (game ID, scenario, arrival index)
//   - The arrival's attribute flags
//   - The verdict (accepted/rejected, forced or scored)
//   - Policy state at decision time (score, admission threshold, weight snapshot)
//   - Venue occupancy after the decision (admitted, rejected counts)
//   - Timestamps (decided, recorded)
//
// # Recording Flow
//
// Decisions are recorded asynchronously so storage writes never delay the
// next arrival:
//
//	Arrival → Policy Decision
//	     ↓
//	Decision Recorder (async)
//	     ↓
//	Build Decision Record
//	     ↓
//	Storage Backend (SQLite)
//	     ↓
//	Write to Database (WAL mode)
//
// # Basic Usage
//
//	// Initialize storage backend
//	store, err := storage.NewSQLiteStorage(&storage.SQLiteConfig{
//	    Path:    "data/history.db",
//	    WALMode: true,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer store.Close()
//
//	// Create decision recorder
//	rec := recorder.NewRecorder(store, &recorder.Config{
//	    Enabled:     true,
//	    AsyncBuffer: 1000,
//	})
//	defer rec.Close()
//
//	// Record a decision (async, non-blocking)
//	rec.RecordDecision(ctx, gameID, scenario, person, decision, admitted, rejected)
//
// # Querying History
//
//	// Build query
//	accepted := true
//	q := &history.Query{
//	    GameID:   gameID,
//	    Accepted: &accepted,
//	    Limit:    100,
//	    SortBy:   "person_index",
//	}
//
//	// Execute query
//	records, err := store.Query(ctx, q)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Export to JSON
//	exporter := export.NewJSONExporter(true) // pretty-print
//	exporter.Export(ctx, records, os.Stdout)
//
// # Retention Policies
//
// History can be automatically pruned based on age and record count:
//
//	pruner := retention.NewPruner(store, &retention.Config{
//	    RetentionDays: 90,
//	    PruneSchedule: "0 3 * * *", // Daily at 3 AM
//	})
//
//	pruner.Start(ctx)
//	defer pruner.Stop()
//
// # Thread Safety
//
// All history types are safe for concurrent use:
//   - Recorder: Thread-safe async channel
//   - Storage: Thread-safe with connection pooling
//   - Query: Stateless, can be executed concurrently
//
// # Storage Backends
//
// The history system supports multiple storage backends via the Storage
// interface:
//   - SQLite: Single-node, embedded database
//   - Memory: In-process storage for tests and short-lived runs
//
// Custom storage backends can be implemented by satisfying the Storage interface.
package history
