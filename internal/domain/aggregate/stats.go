package aggregate

import (
	"fmt"
	"sort"
	"strings"

	"github.com/okian/rally/internal/domain/model"
	"github.com/okian/rally/internal/domain/types"
)

const (
	formLength   = 5
	tiedNamesMax = 3
)

// WinLossTable tallies every player. matches may be in any order.
func WinLossTable(players []model.Player, matches []model.Match) []types.WinLossEntry {
	type tally struct{ played, wins int }
	counts := make(map[int64]*tally, len(players))
	for _, p := range players {
		counts[p.ID] = &tally{}
	}
	for _, m := range matches {
		for _, id := range []int64{m.Player1ID, m.Player2ID} {
			if t, ok := counts[id]; ok {
				t.played++
				if m.WinnerID() == id {
					t.wins++
				}
			}
		}
	}

	out := make([]types.WinLossEntry, 0, len(players))
	for _, p := range players {
		t := counts[p.ID]
		out = append(out, types.WinLossEntry{
			PlayerID: p.ID,
			Name:     p.Name,
			Played:   t.played,
			Wins:     t.wins,
			Losses:   t.played - t.wins,
			WinPct:   winPct(t.wins, t.played),
			Form:     FormString(RecentResults(p.ID, matches, formLength)),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		switch {
		case a.WinPct != b.WinPct:
			return a.WinPct > b.WinPct
		case a.Wins != b.Wins:
			return a.Wins > b.Wins
		case a.Played != b.Played:
			return a.Played > b.Played
		default:
			return a.PlayerID < b.PlayerID
		}
	})
	return out
}

type opponent struct {
	id      int64
	name    string
	matches int
	wins    int
}

func (o opponent) rate() float64 {
	if o.matches == 0 {
		return 0
	}
	return float64(o.wins) / float64(o.matches)
}

// PlayerStats builds the profile of p. matches are p's matches, snapshots
// are p's snapshots, names resolves opponent ids.
func PlayerStats(p model.Player, matches []model.Match, snapshots []model.Snapshot, names map[int64]string) types.PlayerStats {
	st := types.PlayerStats{
		PlayerID:     p.ID,
		Name:         p.Name,
		Mu:           p.Mu,
		Sigma:        p.Sigma,
		Conservative: p.Conservative(),
		PeakMu:       p.Mu,
		Form:         FormString(RecentResults(p.ID, matches, formLength)),
	}

	for i, s := range snapshots {
		if i == 0 || s.Mu > st.PeakMu {
			st.PeakMu = s.Mu
		}
	}

	byOpp := make(map[int64]*opponent)
	for _, m := range matches {
		if !m.Involves(p.ID) {
			continue
		}
		st.Played++
		won := m.WinnerID() == p.ID
		if won {
			st.Wins++
		}
		oid := m.Opponent(p.ID)
		o, ok := byOpp[oid]
		if !ok {
			o = &opponent{id: oid, name: names[oid]}
			byOpp[oid] = o
		}
		o.matches++
		if won {
			o.wins++
		}
	}
	st.Losses = st.Played - st.Wins
	st.WinPct = winPct(st.Wins, st.Played)

	opps := make([]opponent, 0, len(byOpp))
	for _, o := range byOpp {
		opps = append(opps, *o)
	}
	st.Victim = pickOpponent(opps, true)
	st.Nemesis = pickOpponent(opps, false)
	return st
}

// pickOpponent returns the opponent p fares best against (victim) or worst
// against (nemesis). Ties on both win rate and match count are merged into
// one "Tied between" label.
func pickOpponent(opps []opponent, victim bool) *types.OpponentSummary {
	if len(opps) == 0 {
		return nil
	}
	sorted := make([]opponent, len(opps))
	copy(sorted, opps)
	sort.Slice(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if ra, rb := a.rate(), b.rate(); ra != rb {
			if victim {
				return ra > rb
			}
			return ra < rb
		}
		if a.matches != b.matches {
			return a.matches > b.matches
		}
		if a.name != b.name {
			return a.name < b.name
		}
		return a.id < b.id
	})

	top := sorted[0]
	var tied []opponent
	for _, o := range sorted {
		if o.rate() == top.rate() && o.matches == top.matches {
			tied = append(tied, o)
		}
	}

	sum := &types.OpponentSummary{
		Label:   top.name,
		WinRate: top.rate(),
		Matches: top.matches,
	}
	for _, o := range tied {
		sum.OpponentIDs = append(sum.OpponentIDs, o.id)
	}
	if len(tied) > 1 {
		sum.Tied = true
		sum.Label = tiedLabel(tied)
	}
	return sum
}

func tiedLabel(tied []opponent) string {
	n := len(tied)
	if n > tiedNamesMax {
		n = tiedNamesMax
	}
	names := make([]string, n)
	for i := range names {
		names[i] = tied[i].name
	}
	label := "Tied between " + strings.Join(names, ", ")
	if extra := len(tied) - tiedNamesMax; extra > 0 {
		label += fmt.Sprintf(" (+%d more)", extra)
	}
	return label
}

func winPct(wins, played int) float64 {
	if played == 0 {
		return 0
	}
	return float64(wins) / float64(played) * 100
}
