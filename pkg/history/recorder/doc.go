// Package recorder provides asynchronous recording of admission decisions.
//
// # Async Recording
//
// The recorder decouples decision making from storage writes. Each verdict
// is turned into a history.Record and pushed onto a buffered channel; a
// background worker drains the channel and writes to storage. The game loop
// never waits on the database.
//
// If the channel stays full for longer than the write timeout, the record is
// dropped and a RecorderError is returned. Decisions are already committed to
// the game server at that point, so dropping the local copy loses analytics,
// not game state.
//
// # Basic Usage
//
//	rec := recorder.NewRecorder(store, &recorder.Config{
//	    Enabled:     true,
//	    AsyncBuffer: 1000,
//	})
//	defer rec.Close()
//
//	// After each verdict
//	rec.RecordDecision(ctx, gameID, scenario, person, decision, admitted, rejected)
//
// # Shutdown
//
// Close drains all buffered records before returning, so records enqueued
// before Close are durably written.
package recorder
