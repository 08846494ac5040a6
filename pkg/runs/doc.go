// Package runs archives finished game outcomes.
//
// # Overview
//
// Where the history package records every individual admission decision,
// runs keeps one row per finished game: the terminal status, final
// occupancy, rejections spent, per-constraint satisfaction, and timing.
// The archive is what "how did my last ten games go" and "what is my
// best score on scenario 2" questions are answered from.
//
// Storage is a single SQLite file with WAL journaling. Runs are written
// once at game end and never mutated, so a single-writer pool is enough.
//
// # Usage
//
//	store, err := runs.NewStore("data/runs.db")
//	if err != nil {
//	    return err
//	}
//	defer store.Close()
//
//	err = store.Save(ctx, &runs.Run{
//	    GameID:   state.GameID,
//	    Scenario: state.Scenario,
//	    Status:   state.Status,
//	    Admitted: state.Admitted,
//	    Rejected: state.Rejected,
//	})
//
//	// Fewest rejections among completed runs
//	best, err := store.Best(ctx, 2)
//
// # Thread Safety
//
// The store is safe for concurrent use. Locking is handled internally.
package runs
