// Package rating implements the two-player Bayesian skill update used by the ladder.
//
// Everything here is pure: no storage, no clocks, no logging. Identical
// inputs always produce identical outputs, which is what lets the ledger
// rebuild every belief from the match record at any time.
package rating

import "math"

// Model constants.
const (
	// InitialMu is the prior mean skill of a new player.
	InitialMu = 25.0
	// InitialSigma is the prior standard deviation of a new player.
	InitialSigma = InitialMu / 3
	// Beta is the performance variance scale: the skill gap that gives ~76% win odds.
	Beta = InitialMu / 6
	// Tau is the per-match dynamics term added to every variance before an update.
	Tau = InitialMu / 300
	// ConservativeK is the number of standard deviations subtracted for ranking.
	ConservativeK = 3.0

	// minVariance keeps sigma strictly positive after repeated updates.
	minVariance = 1e-6
)

// Belief is a Gaussian estimate of a player's latent skill.
type Belief struct {
	Mu    float64 `json:"mu"`
	Sigma float64 `json:"sigma"`
}

// DefaultBelief returns the prior every player starts from.
func DefaultBelief() Belief {
	return Belief{Mu: InitialMu, Sigma: InitialSigma}
}

// Conservative returns mu - 3*sigma, the ladder ordering key.
func (b Belief) Conservative() float64 {
	return b.Mu - ConservativeK*b.Sigma
}

// Variance returns sigma squared.
func (b Belief) Variance() float64 {
	return b.Sigma * b.Sigma
}

// Valid reports whether the belief is finite with a positive sigma.
func (b Belief) Valid() bool {
	return !math.IsNaN(b.Mu) && !math.IsInf(b.Mu, 0) &&
		!math.IsNaN(b.Sigma) && !math.IsInf(b.Sigma, 0) && b.Sigma > 0
}
