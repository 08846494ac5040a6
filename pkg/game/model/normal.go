package model

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

var unitNormal = distuv.Normal{Mu: 0, Sigma: 1}

// phi is the standard normal CDF Φ.
func phi(x float64) float64 {
	return unitNormal.CDF(x)
}

// phiInv is the standard normal quantile Φ⁻¹, extended to the closed
// interval: 0 maps to −Inf and 1 to +Inf.
func phiInv(p float64) float64 {
	switch {
	case p <= 0:
		return math.Inf(-1)
	case p >= 1:
		return math.Inf(1)
	default:
		return unitNormal.Quantile(p)
	}
}

// phi2Panels is the Simpson panel count for the bivariate CDF integral.
// Must be even.
const phi2Panels = 64

// phi2 is the bivariate standard normal CDF Φ₂(h, k; ρ) = P(X ≤ h, Y ≤ k)
// for correlated standard normals. It integrates Sheppard's identity
//
//	Φ₂(h, k; ρ) = Φ(h)·Φ(k) + (1/2π) ∫₀^{asin ρ} exp(−(h²+k²−2hk·sinθ)/(2cos²θ)) dθ
//
// with Simpson's rule. The sin substitution removes the singularity of the
// textbook integrand at |ρ| → 1, so the full range [−1, 1] is safe.
func phi2(h, k, rho float64) float64 {
	switch {
	case math.IsInf(h, -1) || math.IsInf(k, -1):
		return 0
	case math.IsInf(h, 1):
		return phi(k)
	case math.IsInf(k, 1):
		return phi(h)
	case rho >= 1:
		return phi(math.Min(h, k))
	case rho <= -1:
		return math.Max(0, phi(h)+phi(k)-1)
	case rho == 0:
		return phi(h) * phi(k)
	}

	upper := math.Asin(rho)
	step := upper / phi2Panels

	f := func(theta float64) float64 {
		c := math.Cos(theta)
		return math.Exp(-(h*h + k*k - 2*h*k*math.Sin(theta)) / (2 * c * c))
	}

	sum := f(0) + f(upper)
	for i := 1; i < phi2Panels; i++ {
		theta := float64(i) * step
		if i%2 == 1 {
			sum += 4 * f(theta)
		} else {
			sum += 2 * f(theta)
		}
	}

	integral := sum * step / 3
	p := phi(h)*phi(k) + integral/(2*math.Pi)

	// Guard against quadrature drift at the boundaries.
	return math.Max(0, math.Min(1, p))
}
