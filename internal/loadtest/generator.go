package loadtest

import (
	"fmt"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
)

// plannedMatch is one submission. Player indexes refer to the registered
// players slice.
type plannedMatch struct {
	Key    string
	P1, P2 int
	Score1 int
	Score2 int
	Retry  bool
}

// playerNames returns n distinct names.
func playerNames(faker *gofakeit.Faker, n int) []string {
	seen := make(map[string]bool, n)
	names := make([]string, 0, n)
	for len(names) < n {
		name := faker.FirstName() + " " + faker.LastName()
		if seen[name] {
			name = fmt.Sprintf("%s %d", name, len(names))
		}
		seen[name] = true
		names = append(names, name)
	}
	return names
}

// planMatches creates n decided matches between distinct players.
func planMatches(faker *gofakeit.Faker, players, n int, retryRatio float64) []plannedMatch {
	out := make([]plannedMatch, n)
	for i := range out {
		a := faker.IntN(players)
		b := faker.IntN(players - 1)
		if b >= a {
			b++
		}
		win := gamePoint + faker.IntN(maxOvertime)
		lose := faker.IntN(win - 1)
		s1, s2 := win, lose
		if faker.Bool() {
			s1, s2 = lose, win
		}
		out[i] = plannedMatch{
			Key:    uuid.NewString(),
			P1:     a,
			P2:     b,
			Score1: s1,
			Score2: s2,
			Retry:  faker.Float64() < retryRatio,
		}
	}
	return out
}
