// Package constraints tracks admission progress against the per-attribute
// minimum-count constraints: remaining deficits, remaining capacity, the
// rejection budget, and feasibility.
//
// The Tracker is the authoritative local bookkeeping for one game.
// RecordDecision is its only mutator; everything else is derived. After every
// round trip the driver reconciles the Tracker against the server's
// authoritative counts, and any divergence is a protocol violation that
// aborts the game.
//
// # Slack
//
// Slack is remaining capacity minus the sum of remaining deficits, with
// deficits counted as if constrained attributes never co-occurred. Once slack
// reaches zero every remaining slot must go to someone who reduces a deficit:
// IsForced reports that regime, and the decision policy then admits exactly
// the people carrying a deficient attribute.
//
// A Tracker is not safe for concurrent use; each game owns one and decisions
// within a game are strictly sequential.
package constraints
