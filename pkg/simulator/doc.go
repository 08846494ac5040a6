// Package simulator provides a local game server for offline play.
//
// # Overview
//
// The simulator replaces the remote game API with an in-process server
// speaking the same wire protocol, so the full client, policy, and
// driver stack can be exercised without a network or a player account.
// Three pieces:
//
//   - Scenario: a game definition (capacity, budget, constraints,
//     attribute statistics). Three builtin scenarios of increasing
//     difficulty; custom ones load from YAML.
//   - Arrivals: a seeded stream of synthetic persons drawn from the
//     scenario's statistics, deterministic per seed.
//   - Server: /new-game and /decide-and-next with authoritative
//     counts and terminal statuses.
//
// # Usage
//
//	srv := simulator.NewServer(simulator.ServerConfig{Seed: 42})
//	baseURL := srv.Start()
//	defer srv.Close()
//
//	// Point the real client at the simulator
//	cfg.Server.BaseURL = baseURL
//
// Deterministic seeds make simulated games replayable: the same seed
// and decisions produce the same arrivals and the same outcome.
package simulator
