package aggregate

import (
	"sort"
	"time"

	"github.com/okian/rally/internal/domain/model"
	"github.com/okian/rally/internal/domain/types"
)

// SnapshotLookup returns the belief a player held before a match.
type SnapshotLookup func(playerID, matchID int64) (model.Snapshot, bool)

// WeekBounds returns the Sunday-to-Saturday week containing t, in t's location.
func WeekBounds(t time.Time) (time.Time, time.Time) {
	y, mo, d := t.Date()
	day := time.Date(y, mo, d, 0, 0, 0, 0, t.Location())
	start := day.AddDate(0, 0, -int(day.Weekday()))
	end := start.AddDate(0, 0, 7).Add(-time.Nanosecond)
	return start, end
}

// InWindow keeps matches with start <= played_at <= end.
func InWindow(matches []model.Match, start, end time.Time) []model.Match {
	var out []model.Match
	for _, m := range matches {
		if !m.PlayedAt.Before(start) && !m.PlayedAt.After(end) {
			out = append(out, m)
		}
	}
	return out
}

// WeeklySummary highlights the window [start, end]. window holds the matches
// inside it; players supplies names and current beliefs. A player's net
// change is current mu minus the snapshot before their first match in the
// window.
func WeeklySummary(start, end time.Time, window []model.Match, players []model.Player, snapshot SnapshotLookup) (types.WeeklySummary, error) {
	sum := types.WeeklySummary{Start: start, End: end, Matches: len(window)}
	if len(window) == 0 {
		return sum, nil
	}

	ordered := make([]model.Match, len(window))
	copy(ordered, window)
	SortMatches(ordered)

	byID := make(map[int64]model.Player, len(players))
	for _, p := range players {
		byID[p.ID] = p
	}

	type record struct {
		firstMatch int64
		wins       int
		played     int
	}
	records := make(map[int64]*record)
	var order []int64
	type pairTally struct {
		key     [2]int64
		matches int
		wins    map[int64]int
		first   int
	}
	pairs := make(map[[2]int64]*pairTally)

	for i, m := range ordered {
		for _, id := range []int64{m.Player1ID, m.Player2ID} {
			r, ok := records[id]
			if !ok {
				r = &record{firstMatch: m.ID}
				records[id] = r
				order = append(order, id)
			}
			r.played++
			if m.WinnerID() == id {
				r.wins++
			}
		}
		a, b := model.CanonicalPair(m.Player1ID, m.Player2ID)
		key := [2]int64{a, b}
		pt, ok := pairs[key]
		if !ok {
			pt = &pairTally{key: key, wins: map[int64]int{}, first: i}
			pairs[key] = pt
		}
		pt.matches++
		pt.wins[m.WinnerID()]++
	}
	sum.Players = len(order)

	deltas := make([]types.PlayerDelta, 0, len(order))
	rates := make([]types.PlayerRate, 0, len(order))
	for _, id := range order {
		r := records[id]
		p := byID[id]
		snap, ok := snapshot(id, r.firstMatch)
		if !ok {
			return types.WeeklySummary{}, missingSnapshot(id, r.firstMatch)
		}
		deltas = append(deltas, types.PlayerDelta{
			PlayerID: id,
			Name:     p.Name,
			StartMu:  snap.Mu,
			EndMu:    p.Mu,
			Change:   p.Mu - snap.Mu,
		})
		rates = append(rates, types.PlayerRate{
			PlayerID: id,
			Name:     p.Name,
			Wins:     r.wins,
			Played:   r.played,
			WinPct:   winPct(r.wins, r.played),
		})
	}

	sort.Slice(deltas, func(i, j int) bool {
		if deltas[i].Change != deltas[j].Change {
			return deltas[i].Change > deltas[j].Change
		}
		return deltas[i].PlayerID < deltas[j].PlayerID
	})
	climber, faller := deltas[0], deltas[len(deltas)-1]
	sum.BiggestClimber, sum.BiggestFaller = &climber, &faller

	byRate := func(best bool) *types.PlayerRate {
		sorted := make([]types.PlayerRate, len(rates))
		copy(sorted, rates)
		sort.Slice(sorted, func(i, j int) bool {
			a, b := sorted[i], sorted[j]
			if a.WinPct != b.WinPct {
				if best {
					return a.WinPct > b.WinPct
				}
				return a.WinPct < b.WinPct
			}
			if a.Played != b.Played {
				return a.Played > b.Played
			}
			return a.PlayerID < b.PlayerID
		})
		return &sorted[0]
	}
	sum.BestWinRate, sum.WorstWinRate = byRate(true), byRate(false)

	var top *pairTally
	for _, pt := range pairs {
		if top == nil || pt.matches > top.matches || (pt.matches == top.matches && pt.first < top.first) {
			top = pt
		}
	}
	a, b := top.key[0], top.key[1]
	sum.TopPairing = &types.HeadToHead{
		Player1ID:   a,
		Player1Name: byID[a].Name,
		Player2ID:   b,
		Player2Name: byID[b].Name,
		Matches:     top.matches,
		Player1Wins: top.wins[a],
		Player2Wins: top.wins[b],
	}
	return sum, nil
}
