package model

import (
	"math"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/mat"

	"nocturne-labs/doorman/pkg/game"
)

const (
	// jointSampleCount is the Monte Carlo sample size for Joint queries
	// over more than two attributes.
	jointSampleCount = 20000

	// jointSampleSeed fixes the Monte Carlo stream so Joint is
	// deterministic across calls and runs.
	jointSampleSeed = 1
)

// Model answers probability queries about future arrivals. It is built once
// per game from the server's statistics payload and is immutable afterwards,
// so it is safe for concurrent readers.
type Model struct {
	ids    []game.AttributeID
	index  map[game.AttributeID]int
	freq   []float64
	thresh []float64

	// latent is the projected latent correlation matrix; nil for the
	// independence fallback.
	latent *mat.SymDense

	// lower is the Cholesky factor of latent, kept as plain rows for
	// cheap sampling.
	lower [][]float64

	independent bool
	degraded    bool
	minEigen    float64
}

// New builds a correlated attribute model from the published statistics.
// It returns game.ModelInfeasibleError when the payload is malformed or the
// latent matrix cannot be factorized even after projection; callers then fall
// back to NewIndependent so the game can continue.
func New(stats game.AttributeStatistics) (*Model, error) {
	if err := stats.Validate(); err != nil {
		return nil, game.NewModelInfeasibleError("invalid statistics payload", err)
	}

	ids := stats.Attributes()
	m := &Model{
		ids:    ids,
		index:  make(map[game.AttributeID]int, len(ids)),
		freq:   make([]float64, len(ids)),
		thresh: make([]float64, len(ids)),
	}
	for i, id := range ids {
		m.index[id] = i
		p, _ := stats.Frequency(id)
		m.freq[i] = p
		m.thresh[i] = phiInv(1 - p)
	}

	n := len(ids)
	latent := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		latent.SetSym(i, i, 1)
		for j := i + 1; j < n; j++ {
			rho := stats.Correlation(ids[i], ids[j])
			r := latentCorrelation(m.freq[i], m.freq[j], m.thresh[i], m.thresh[j], rho)
			latent.SetSym(i, j, r)
		}
	}

	projected, minEig, changed := nearestCorrelation(latent)
	m.latent = projected
	m.minEigen = minEig
	m.degraded = changed

	lower, err := choleskyLower(projected)
	if err != nil {
		return nil, game.NewModelInfeasibleError("latent correlation matrix cannot be factorized", err)
	}
	m.lower = lower

	return m, nil
}

// NewIndependent builds the frequency-only fallback model that treats all
// attributes as independent. It never fails; out-of-range frequencies are
// clamped.
func NewIndependent(freqs map[game.AttributeID]float64) *Model {
	ids := make([]game.AttributeID, 0, len(freqs))
	for id := range freqs {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	m := &Model{
		ids:         ids,
		index:       make(map[game.AttributeID]int, len(ids)),
		freq:        make([]float64, len(ids)),
		thresh:      make([]float64, len(ids)),
		independent: true,
	}
	for i, id := range ids {
		p := freqs[id]
		if p < 0 {
			p = 0
		}
		if p > 1 {
			p = 1
		}
		m.index[id] = i
		m.freq[i] = p
		m.thresh[i] = phiInv(1 - p)
	}
	return m
}

// Attributes returns the modeled attribute IDs in sorted order.
func (m *Model) Attributes() []game.AttributeID {
	out := make([]game.AttributeID, len(m.ids))
	copy(out, m.ids)
	return out
}

// Independent reports whether this is the frequency-only fallback model.
func (m *Model) Independent() bool {
	return m.independent
}

// Degraded reports whether the published correlations were jointly
// infeasible and the latent matrix had to be projected. Queries then reflect
// the nearest valid approximation, not the published numbers.
func (m *Model) Degraded() bool {
	return m.degraded
}

// MinEigenvalue returns the smallest eigenvalue of the latent matrix before
// projection. Negative values quantify how far the published correlations
// were from feasible.
func (m *Model) MinEigenvalue() float64 {
	return m.minEigen
}

// Marginal returns the marginal probability of the attribute, 0 for an
// unknown attribute.
func (m *Model) Marginal(id game.AttributeID) float64 {
	i, ok := m.index[id]
	if !ok {
		return 0
	}
	return m.freq[i]
}

// PairJoint returns the estimated probability that both attributes are true
// for a random future arrival.
func (m *Model) PairJoint(a, b game.AttributeID) float64 {
	i, okA := m.index[a]
	j, okB := m.index[b]
	if !okA || !okB {
		return 0
	}
	if i == j {
		return m.freq[i]
	}

	pa, pb := m.freq[i], m.freq[j]
	if m.independent {
		return pa * pb
	}

	p := pa + pb - 1 + phi2(m.thresh[i], m.thresh[j], m.latent.At(i, j))
	lo, hi := frechetBounds(pa, pb)
	return math.Max(lo, math.Min(hi, p))
}

// Joint returns the estimated probability that a random future arrival
// matches every attribute value in the assignment. One- and two-attribute
// assignments are answered exactly; larger conjunctions use a fixed-seed
// latent Monte Carlo. Unknown attributes yield 0. Intended for diagnostics
// and tests, not the decision hot path.
func (m *Model) Joint(assignment map[game.AttributeID]bool) float64 {
	if len(assignment) == 0 {
		return 1
	}

	ids := make([]game.AttributeID, 0, len(assignment))
	for id := range assignment {
		if _, ok := m.index[id]; !ok {
			return 0
		}
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	switch len(ids) {
	case 1:
		p := m.Marginal(ids[0])
		if assignment[ids[0]] {
			return p
		}
		return 1 - p

	case 2:
		pa := m.Marginal(ids[0])
		pb := m.Marginal(ids[1])
		both := m.PairJoint(ids[0], ids[1])
		switch {
		case assignment[ids[0]] && assignment[ids[1]]:
			return both
		case assignment[ids[0]]:
			return math.Max(0, pa-both)
		case assignment[ids[1]]:
			return math.Max(0, pb-both)
		default:
			return math.Max(0, 1-pa-pb+both)
		}
	}

	if m.independent {
		p := 1.0
		for _, id := range ids {
			if assignment[id] {
				p *= m.Marginal(id)
			} else {
				p *= 1 - m.Marginal(id)
			}
		}
		return p
	}

	rng := rand.New(rand.NewSource(jointSampleSeed))
	matches := 0
	for s := 0; s < jointSampleCount; s++ {
		draw := m.Sample(rng)
		ok := true
		for _, id := range ids {
			if draw[id] != assignment[id] {
				ok = false
				break
			}
		}
		if ok {
			matches++
		}
	}
	return float64(matches) / jointSampleCount
}

// Helpfulness scores how much a candidate's attributes help the given
// still-deficient constraints: the sum, over deficient attributes the
// candidate carries, of the inverse marginal frequency, so scarce attributes
// weigh more. Diagnostics only; the decision policy maintains its own
// adaptive weights.
func (m *Model) Helpfulness(attrs map[game.AttributeID]bool, deficient []game.AttributeID) float64 {
	const minFreq = 1e-9
	score := 0.0
	for _, id := range deficient {
		if !attrs[id] {
			continue
		}
		i, ok := m.index[id]
		if !ok {
			continue
		}
		score += 1 / math.Max(m.freq[i], minFreq)
	}
	return score
}

// Sample draws one synthetic person's attributes. Correlated models draw a
// latent Gaussian vector through the Cholesky factor; the fallback draws each
// attribute independently. Deterministic for a given rng.
func (m *Model) Sample(rng *rand.Rand) map[game.AttributeID]bool {
	out := make(map[game.AttributeID]bool, len(m.ids))

	if m.independent {
		for i, id := range m.ids {
			out[id] = rng.Float64() < m.freq[i]
		}
		return out
	}

	u := make([]float64, len(m.ids))
	for i := range u {
		u[i] = rng.NormFloat64()
	}
	for i, id := range m.ids {
		z := 0.0
		for j := range m.lower[i] {
			z += m.lower[i][j] * u[j]
		}
		out[id] = z > m.thresh[i]
	}
	return out
}
