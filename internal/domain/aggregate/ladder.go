// Package aggregate derives read-only views from ledger state.
//
// Functions here take plain slices of domain records and never touch
// storage, so they can run over a consistent snapshot loaded by the caller.
package aggregate

import (
	"sort"

	"github.com/okian/rally/internal/domain/model"
	"github.com/okian/rally/internal/domain/rating"
	"github.com/okian/rally/internal/domain/types"
)

// SortPlayers orders players by conservative skill descending, then id ascending.
func SortPlayers(players []model.Player) {
	sort.Slice(players, func(i, j int) bool {
		ci, cj := players[i].Conservative(), players[j].Conservative()
		if ci != cj {
			return ci > cj
		}
		return players[i].ID < players[j].ID
	})
}

// Ladder ranks players. deltas may be nil; when set, matching players get a Delta.
func Ladder(players []model.Player, deltas map[int64]float64) []types.LadderEntry {
	sorted := make([]model.Player, len(players))
	copy(sorted, players)
	SortPlayers(sorted)

	out := make([]types.LadderEntry, len(sorted))
	for i, p := range sorted {
		out[i] = types.LadderEntry{
			Rank:         i + 1,
			PlayerID:     p.ID,
			Name:         p.Name,
			Mu:           p.Mu,
			Sigma:        p.Sigma,
			Conservative: p.Conservative(),
		}
		if d, ok := deltas[p.ID]; ok {
			out[i].Delta = &d
		}
	}
	return out
}

// LastMatchDeltas returns current mu minus the pre-match snapshot for the
// participants of latest, which must be the last match in replay order.
func LastMatchDeltas(latest model.Match, snapshots []model.Snapshot, players []model.Player) map[int64]float64 {
	current := make(map[int64]float64, 2)
	for _, p := range players {
		if latest.Involves(p.ID) {
			current[p.ID] = p.Mu
		}
	}
	out := make(map[int64]float64, 2)
	for _, s := range snapshots {
		if s.MatchID != latest.ID {
			continue
		}
		if mu, ok := current[s.PlayerID]; ok {
			out[s.PlayerID] = mu - s.Mu
		}
	}
	return out
}

// SeasonLadder replays only the given season's matches from the prior and
// ranks the players who took part. matches must already be filtered to the
// season and sorted in replay order.
func SeasonLadder(players []model.Player, matches []model.Match) []types.LadderEntry {
	outcomes := make([]rating.Outcome, len(matches))
	for i, m := range matches {
		outcomes[i] = m.Outcome()
	}
	res := rating.Replay(rating.DefaultBelief(), nil, outcomes)

	var seasonal []model.Player
	for _, p := range players {
		b, ok := res.Beliefs[p.ID]
		if !ok {
			continue
		}
		seasonal = append(seasonal, model.Player{ID: p.ID, Name: p.Name, Mu: b.Mu, Sigma: b.Sigma})
	}
	return Ladder(seasonal, nil)
}

// HeadToHead reports mu (the canonical aggregate, zero value if the pair
// never met) in the order p1, p2.
func HeadToHead(p1, p2 model.Player, mu model.Matchup) types.HeadToHead {
	h := types.HeadToHead{
		Player1ID:   p1.ID,
		Player1Name: p1.Name,
		Player2ID:   p2.ID,
		Player2Name: p2.Name,
		Matches:     mu.MatchesPlayed,
	}
	if p1.ID == mu.PlayerA {
		h.Player1Wins, h.Player2Wins = mu.WinsA, mu.WinsB
	} else {
		h.Player1Wins, h.Player2Wins = mu.WinsB, mu.WinsA
	}
	return h
}
