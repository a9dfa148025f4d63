package rating

import "math"

// Update applies one result where winner defeated loser and returns the
// posterior beliefs in the same order. Draws are not modelled.
func Update(winner, loser Belief) (Belief, Belief) {
	varW := winner.Variance() + Tau*Tau
	varL := loser.Variance() + Tau*Tau

	c2 := 2*Beta*Beta + varW + varL
	c := math.Sqrt(c2)
	t := (winner.Mu - loser.Mu) / c

	v := vWin(t)
	w := wWin(t)

	newW := Belief{
		Mu:    winner.Mu + varW/c*v,
		Sigma: math.Sqrt(shrink(varW, c2, w)),
	}
	newL := Belief{
		Mu:    loser.Mu - varL/c*v,
		Sigma: math.Sqrt(shrink(varL, c2, w)),
	}
	return newW, newL
}

func shrink(variance, c2, w float64) float64 {
	return math.Max(variance*(1-variance/c2*w), minVariance)
}
