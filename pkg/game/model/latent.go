package model

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

const (
	// psdTol is the eigenvalue tolerance below which the latent matrix is
	// considered indefinite and gets projected.
	psdTol = 1e-8

	// eigenFloor replaces clipped eigenvalues during projection.
	eigenFloor = 1e-6

	// bisectIters bounds the tetrachoric bisection. 64 halvings of [-1, 1]
	// exceed float64 resolution.
	bisectIters = 64
)

// frechetBounds returns the achievable range for P(A=1, B=1) given the two
// marginals.
func frechetBounds(pa, pb float64) (lo, hi float64) {
	return math.Max(0, pa+pb-1), math.Min(pa, pb)
}

// latentCorrelation solves the tetrachoric relationship for the latent
// normal correlation r that reproduces the published binary correlation rho
// between attributes with marginals pa, pb and thresholds za, zb. The target
// joint probability is clamped to its Fréchet bounds first, so mildly
// inconsistent inputs still yield a usable r.
func latentCorrelation(pa, pb, za, zb, rho float64) float64 {
	// A constant attribute carries no correlation information.
	if pa <= 0 || pa >= 1 || pb <= 0 || pb >= 1 {
		return 0
	}

	target := rho*math.Sqrt(pa*(1-pa)*pb*(1-pb)) + pa*pb
	lo, hi := frechetBounds(pa, pb)
	if target < lo {
		target = lo
	}
	if target > hi {
		target = hi
	}

	// P(A=1, B=1) under the latent model, monotone nondecreasing in r.
	p11 := func(r float64) float64 {
		return pa + pb - 1 + phi2(za, zb, r)
	}

	if p11(-1) >= target {
		return -1
	}
	if p11(1) <= target {
		return 1
	}

	rLo, rHi := -1.0, 1.0
	for i := 0; i < bisectIters; i++ {
		mid := (rLo + rHi) / 2
		if p11(mid) < target {
			rLo = mid
		} else {
			rHi = mid
		}
	}
	return (rLo + rHi) / 2
}

// nearestCorrelation projects an indefinite correlation matrix to the
// nearest valid one by eigenvalue clipping: negative eigenvalues are raised
// to a small floor and the result is rescaled back to unit diagonal. It
// returns the (possibly unchanged) matrix, the smallest eigenvalue observed
// before clipping, and whether a projection was applied.
func nearestCorrelation(sym *mat.SymDense) (*mat.SymDense, float64, bool) {
	n := sym.SymmetricDim()

	var eig mat.EigenSym
	if !eig.Factorize(sym, true) {
		// Factorization of a real symmetric matrix does not fail in
		// practice; keep the input rather than guess.
		return sym, 0, false
	}

	vals := eig.Values(nil)
	minEig := vals[0]
	for _, v := range vals {
		if v < minEig {
			minEig = v
		}
	}
	if minEig >= -psdTol {
		return sym, minEig, false
	}

	for i, v := range vals {
		if v < eigenFloor {
			vals[i] = eigenFloor
		}
	}

	var vecs mat.Dense
	eig.VectorsTo(&vecs)

	var vd, a mat.Dense
	vd.Mul(&vecs, mat.NewDiagDense(n, vals))
	a.Mul(&vd, vecs.T())

	out := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		out.SetSym(i, i, 1)
		for j := i + 1; j < n; j++ {
			v := a.At(i, j) / math.Sqrt(a.At(i, i)*a.At(j, j))
			if v > 1 {
				v = 1
			}
			if v < -1 {
				v = -1
			}
			out.SetSym(i, j, v)
		}
	}
	return out, minEig, true
}

// choleskyLower factorizes the latent correlation matrix and returns its
// lower-triangular factor as plain rows for cheap sampling. A borderline
// matrix is blended toward the identity in escalating steps until it
// factorizes.
func choleskyLower(sym *mat.SymDense) ([][]float64, error) {
	n := sym.SymmetricDim()

	attempt := mat.NewSymDense(n, nil)
	attempt.CopySym(sym)

	jitter := 0.0
	for try := 0; try < 7; try++ {
		var chol mat.Cholesky
		if chol.Factorize(attempt) {
			var tri mat.TriDense
			chol.LTo(&tri)

			lower := make([][]float64, n)
			for i := range lower {
				lower[i] = make([]float64, i+1)
				for j := 0; j <= i; j++ {
					lower[i][j] = tri.At(i, j)
				}
			}
			return lower, nil
		}

		if jitter == 0 {
			jitter = 1e-8
		} else {
			jitter *= 100
		}
		for i := 0; i < n; i++ {
			attempt.SetSym(i, i, 1)
			for j := i + 1; j < n; j++ {
				attempt.SetSym(i, j, sym.At(i, j)*(1-jitter))
			}
		}
	}
	return nil, fmt.Errorf("cholesky factorization failed after jitter escalation")
}
