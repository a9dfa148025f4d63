package aggregate

import (
	"sort"

	"github.com/okian/rally/internal/domain/model"
	"github.com/okian/rally/internal/domain/prediction"
	"github.com/okian/rally/internal/domain/rating"
	"github.com/okian/rally/internal/domain/types"
)

// SortMatches orders matches in replay order.
func SortMatches(matches []model.Match) {
	sort.Slice(matches, func(i, j int) bool { return matches[i].Before(matches[j]) })
}

// newestFirst returns a reverse replay-order copy.
func newestFirst(matches []model.Match) []model.Match {
	out := make([]model.Match, len(matches))
	copy(out, matches)
	sort.Slice(out, func(i, j int) bool { return out[j].Before(out[i]) })
	return out
}

// RecentResults lists up to n results for id, newest first; true is a win.
func RecentResults(id int64, matches []model.Match, n int) []bool {
	var out []bool
	for _, m := range newestFirst(matches) {
		if len(out) == n {
			break
		}
		if m.Involves(id) {
			out = append(out, m.WinnerID() == id)
		}
	}
	return out
}

// FormString renders results as "W"/"L".
func FormString(results []bool) []string {
	out := make([]string, len(results))
	for i, won := range results {
		if won {
			out[i] = "W"
		} else {
			out[i] = "L"
		}
	}
	return out
}

// MatchHistory lists matches newest first. With perspective != 0 each entry
// carries that player's result.
func MatchHistory(matches []model.Match, names map[int64]string, perspective int64) []types.HistoryEntry {
	ordered := newestFirst(matches)
	out := make([]types.HistoryEntry, 0, len(ordered))
	for _, m := range ordered {
		e := types.HistoryEntry{
			MatchID:     m.ID,
			PlayedAt:    m.PlayedAt,
			Season:      m.Season,
			Player1ID:   m.Player1ID,
			Player1Name: names[m.Player1ID],
			Player2ID:   m.Player2ID,
			Player2Name: names[m.Player2ID],
			Score1:      m.Score1,
			Score2:      m.Score2,
			WinnerID:    m.WinnerID(),
		}
		if perspective != 0 && m.Involves(perspective) {
			e.Result = "L"
			if m.WinnerID() == perspective {
				e.Result = "W"
			}
		}
		out = append(out, e)
	}
	return out
}

// RatingHistory returns the player's belief after each of their matches.
// snapshots are the player's own, keyed by match id. Point 0 is the belief
// before the first match; point k is read from the snapshot of match k+1,
// or from the current belief after the last match.
func RatingHistory(p model.Player, matches []model.Match, snapshots map[int64]model.Snapshot) ([]types.RatingPoint, error) {
	ordered := make([]model.Match, 0, len(matches))
	for _, m := range matches {
		if m.Involves(p.ID) {
			ordered = append(ordered, m)
		}
	}
	SortMatches(ordered)

	if len(ordered) == 0 {
		return []types.RatingPoint{{Seq: 0, Mu: p.Mu, Sigma: p.Sigma}}, nil
	}

	beliefBefore := func(matchID int64) (rating.Belief, error) {
		s, ok := snapshots[matchID]
		if !ok {
			return rating.Belief{}, missingSnapshot(p.ID, matchID)
		}
		return s.Belief(), nil
	}

	first, err := beliefBefore(ordered[0].ID)
	if err != nil {
		return nil, err
	}
	out := make([]types.RatingPoint, 0, len(ordered)+1)
	out = append(out, types.RatingPoint{Seq: 0, Mu: first.Mu, Sigma: first.Sigma})

	for k, m := range ordered {
		after := p.Belief()
		if k+1 < len(ordered) {
			if after, err = beliefBefore(ordered[k+1].ID); err != nil {
				return nil, err
			}
		}
		playedAt := m.PlayedAt
		out = append(out, types.RatingPoint{
			Seq:      k + 1,
			MatchID:  m.ID,
			PlayedAt: &playedAt,
			Mu:       after.Mu,
			Sigma:    after.Sigma,
		})
	}
	return out, nil
}

// PredictionHistory collects what the historical estimate needs. matchesA
// and matchesB are every match involving a and b respectively.
func PredictionHistory(a, b int64, matchesA, matchesB []model.Match) prediction.History {
	h := prediction.History{
		A: formOf(a, matchesA),
		B: formOf(b, matchesB),
	}
	for _, m := range matchesA {
		if m.Involves(b) && m.Involves(a) {
			h.HeadToHeadPlayed++
			if m.WinnerID() == a {
				h.HeadToHeadWinsA++
			}
		}
	}
	return h
}

func formOf(id int64, matches []model.Match) prediction.Form {
	f := prediction.Form{Recent: RecentResults(id, matches, prediction.FormWindow)}
	for _, m := range matches {
		if !m.Involves(id) {
			continue
		}
		f.Played++
		if m.WinnerID() == id {
			f.Wins++
		}
	}
	return f
}
