// Package policy implements the online admission decision rule: for each
// arriving person, an immediate, irrevocable accept or reject that never
// knowingly makes constraint satisfaction impossible and minimizes expected
// total rejections over the remaining horizon.
//
// # Algorithm
//
// The rule is an adaptive dual-threshold (shadow price) control, analogous to
// online linear programming:
//
//   - Every constraint k carries an adaptive weight λ_k ≥ 0, starting at 0.
//   - Before each decision the pace ratio ρ_k = deficit_k / remainingCapacity
//     is compared with the attribute's marginal frequency p_k. A constraint
//     behind pace (ρ_k > p_k) has its weight raised multiplicatively,
//     λ_k ← λ_k·(1+η) + η; a satisfied constraint decays toward 0 so a met
//     requirement stops attracting capacity.
//   - A person scores Σ λ_k over the constrained attributes they carry and is
//     admitted when the score reaches the running threshold θ. Ties admit:
//     an unnecessary rejection is never free.
//   - θ adapts to the rejection budget: it rises while some constraint is
//     behind pace and the realized rejection rate still fits the remaining
//     budget, and falls as soon as rejections outrun what the remaining
//     budget affords, reaching 0 (admit everyone) as the budget empties.
//
// Two overrides run before the scored rule, in order:
//
//  1. Zero slack: once remaining capacity no longer exceeds the sum of
//     remaining deficits, a person is admitted iff they reduce a deficit and
//     rejected otherwise, unconditionally. No feasible solution is missed
//     once slack hits zero.
//  2. All satisfied: with every deficit at 0, everyone is admitted until
//     capacity is reached.
//
// # Lifecycle
//
//	init → running → completed (admitted = capacity)
//	               → failed    (rejected = budget)
//
// Initialize builds the attribute model and tracker from the server's
// payload. A malformed correlation payload degrades to the frequency-only
// independence model rather than aborting. Decide is called once per person,
// strictly in arrival order; Finalize records the server's terminal status.
// Any Decide after a terminal status is a game.ProtocolError.
//
// The decision rule is fully deterministic: identical inputs produce
// identical decisions. Each game owns its Policy; nothing is shared between
// games, and a Policy is not safe for concurrent use.
//
// All step sizes are configuration (Tuning), not constants, and can be hot
// reloaded for subsequent games through TuningWatcher.
package policy
