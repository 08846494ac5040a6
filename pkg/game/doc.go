// Package game defines the core domain types for the admission game: people
// with binary attributes, per-attribute minimum-count constraints, the
// published attribute statistics, and the per-game state shared by the
// tracker, policy, driver, and history packages.
//
// # The Game
//
// People arrive one at a time, each tagged with a fixed set of binary
// attributes. The doorman must accept or reject each person immediately and
// irrevocably, with no lookahead. The venue has capacity N; a set of
// constraints requires minimum counts of admitted people carrying given
// attributes; the game is lost once R rejections have been spent. The server
// publishes each attribute's marginal relative frequency and the pairwise
// correlations between attributes, but never the full joint distribution.
//
// # Lifecycle
//
// A game's state is created once from the server's constraints and statistics
// payload, mutated exactly once per decision, and discarded when the game
// reaches a terminal status:
//
//	init → running → completed (admitted = N)
//	               → failed    (rejected = R)
//
// Both terminal statuses are final. Any decision requested after a terminal
// status is a protocol violation.
//
// # Invariants
//
//   - admitted ≤ capacity and rejected ≤ budget at all times
//   - deficit(k) = max(0, minCount(k) − admittedWith(k)) is never negative
//   - decisions are causal: the decision for person i depends only on person
//     i's attributes and the state as of person i−1
//
// Types in this package are passive data. The authoritative bookkeeping lives
// in the constraints package; the decision rule lives in the policy package.
package game
