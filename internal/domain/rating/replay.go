package rating

// Outcome is one decided match in replay order.
type Outcome struct {
	Winner int64
	Loser  int64
}

// Step records the beliefs both participants held immediately before an outcome was applied.
type Step struct {
	WinnerBefore Belief
	LoserBefore  Belief
}

// ReplayResult is the state produced by applying outcomes in order.
type ReplayResult struct {
	// Beliefs maps every seeded or participating player to its final belief.
	Beliefs map[int64]Belief
	// Steps is parallel to the outcomes passed to Replay.
	Steps []Step
}

// Replay starts every player in seed (and any unseen participant) at prior
// and applies the outcomes strictly in the given order. Order matters:
// Update does not commute, so callers must pass the canonical match order.
func Replay(prior Belief, seed []int64, outcomes []Outcome) ReplayResult {
	beliefs := make(map[int64]Belief, len(seed))
	for _, id := range seed {
		beliefs[id] = prior
	}
	get := func(id int64) Belief {
		if b, ok := beliefs[id]; ok {
			return b
		}
		beliefs[id] = prior
		return prior
	}

	steps := make([]Step, len(outcomes))
	for i, o := range outcomes {
		w, l := get(o.Winner), get(o.Loser)
		steps[i] = Step{WinnerBefore: w, LoserBefore: l}
		beliefs[o.Winner], beliefs[o.Loser] = Update(w, l)
	}
	return ReplayResult{Beliefs: beliefs, Steps: steps}
}
