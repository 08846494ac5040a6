// Package model reconstructs a usable joint-probability estimate of the
// arrival population from the marginal frequencies and pairwise correlations
// the server publishes. The server never supplies the full joint
// distribution, so the model extends the pairwise information to a full joint
// through a latent Gaussian copula.
//
// # Construction
//
// Each binary attribute k is modeled as the indicator of a standard normal
// latent variable exceeding the threshold z_k = Φ⁻¹(1−p_k), which reproduces
// the marginal frequency p_k exactly. Each pairwise correlation ρ of the
// binary variables is converted to a correlation r of the underlying normals
// by solving the tetrachoric relationship
//
//	P(A=1, B=1) = ρ·sqrt(p_a(1−p_a)·p_b(1−p_b)) + p_a·p_b
//	            = p_a + p_b − 1 + Φ₂(z_a, z_b; r)
//
// for r by bisection on the bivariate normal CDF Φ₂.
//
// # Feasibility
//
// The published correlations may be jointly infeasible: the implied latent
// correlation matrix can fail to be positive semi-definite. The model then
// projects it to the nearest valid correlation matrix by eigenvalue clipping
// and records that a degraded approximation is in effect via Degraded().
// Construction never fails for this reason.
//
// Construction does fail, with game.ModelInfeasibleError, when the payload
// itself is malformed (missing or out-of-range entries). Callers fall back to
// NewIndependent, a frequency-only model under the independence assumption,
// so the game can still be played.
//
// # Queries
//
// Marginal and PairJoint are exact under the (projected) copula. Joint
// answers small conjunctions: exactly for one or two attributes, by a
// fixed-seed latent Monte Carlo beyond that. These queries serve diagnostics
// and tests; the decision hot path needs only Marginal.
//
// Sample draws one synthetic person from the latent Gaussian and is what the
// simulator uses to generate arrivals. Sampling is deterministic for a given
// *rand.Rand.
package model
