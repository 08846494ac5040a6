// Package driver plays admission games end to end against a game
// server.
//
// # Overview
//
// A Driver owns the request loop: it starts a game, builds a policy
// from the constraints and attribute statistics the server announced,
// then alternates between asking the policy for a verdict and pushing
// that verdict back over the API until the server reports a terminal
// status. Along the way it reconciles its local counts against the
// server's authoritative ones, records every decision to the history
// backend, publishes metrics, and archives the finished game's
// summary.
//
// The driver is deliberately thin. Decision logic lives in
// pkg/game/policy; wire concerns live in pkg/client. Anything that
// implements GameAPI can stand in for the real server, which is how
// the in-process simulator and the tests plug in.
//
// # Usage
//
//	d, err := driver.New(driver.Config{
//		API:      apiClient,
//		Recorder: recorder,
//		Runs:     store,
//		Logger:   logger,
//	})
//	if err != nil {
//		return err
//	}
//	result, err := d.Run(ctx, scenario)
//	if err != nil {
//		return err
//	}
//	fmt.Printf("%s: admitted %d, rejected %d\n", result.Status, result.Admitted, result.Rejected)
//
// # Thread Safety
//
// A Driver holds no per-game state, so concurrent Run calls with
// distinct games are safe. The history recorder and run store it is
// configured with must themselves be safe for concurrent use.
package driver
