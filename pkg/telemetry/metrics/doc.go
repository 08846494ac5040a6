// Package metrics provides Prometheus metrics collection for Doorman.
//
// # Overview
//
// The metrics package implements Prometheus metrics for monitoring
// admission decisions, game outcomes, constraint progress, and API
// client behavior. Collection is cheap enough to run on every decision.
//
// # Metrics Categories
//
//   - Decision Metrics: Decision counts, scores, thresholds, and constraint state
//   - Game Metrics: Game outcomes, durations, and per-game rejection counts
//   - Client Metrics: API request counts, latencies, and retries
//
// # Usage
//
//	// Create collector
//	collector := metrics.NewCollector(cfg, nil)
//
//	// Record a decision
//	collector.RecordDecision(1, true, false, 0.35, 0.10)
//
//	// Record constraint progress after each decision
//	collector.RecordConstraint(1, "young", 124, 0.21)
//	collector.UpdateOccupancy(1, 376, 14310)
//
//	// Record a finished game
//	collector.RecordGame(1, "completed", 41*time.Minute, 1000, 4811)
//
// # Prometheus Endpoint
//
// All metrics are exposed in standard Prometheus format via Handler:
//
//	# HELP doorman_game_decisions_total Total number of admission decisions
//	# TYPE doorman_game_decisions_total counter
//	doorman_game_decisions_total{forced="false",outcome="accept",scenario="1"} 1000
//
// # Cardinality Management
//
// Attribute labels come from the server and are treated as unbounded.
// The collector caps unique label combinations and aggregates the
// overflow into "other".
package metrics
