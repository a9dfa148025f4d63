package rating

import "math"

var invSqrt2Pi = 1 / math.Sqrt(2*math.Pi)

// tailCutoff is where pdf and cdf leave the normal float range.
const tailCutoff = 1e-300

// pdf is the standard normal density.
func pdf(x float64) float64 {
	return invSqrt2Pi * math.Exp(-x*x/2)
}

// cdf is the standard normal distribution function.
func cdf(x float64) float64 {
	return 0.5 * math.Erfc(-x/math.Sqrt2)
}

// vWin is the additive correction for a win without draws: pdf(t)/cdf(t).
// Far in the lower tail both terms underflow and v tends to -t.
func vWin(t float64) float64 {
	denom := cdf(t)
	if denom < tailCutoff {
		return -t
	}
	return pdf(t) / denom
}

// wWin is the multiplicative variance correction for a win without draws.
func wWin(t float64) float64 {
	v := vWin(t)
	return v * (v + t)
}
