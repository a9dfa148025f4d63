// Package model defines the ledger's persistent domain records.
package model

import (
	"math"
	"time"

	"github.com/okian/rally/internal/domain/rating"
)

// Match times are stored as Unix nanoseconds, which bounds the instants a
// match may carry.
var (
	EarliestPlayedAt = time.Unix(0, math.MinInt64).UTC()
	LatestPlayedAt   = time.Unix(0, math.MaxInt64).UTC()
)

// ValidPlayedAt reports whether t survives storage unchanged.
func ValidPlayedAt(t time.Time) bool {
	return !t.Before(EarliestPlayedAt) && !t.After(LatestPlayedAt)
}

// Player is a registered competitor and its current skill belief.
type Player struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Mu        float64   `json:"mu"`
	Sigma     float64   `json:"sigma"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Belief returns the player's current skill belief.
func (p Player) Belief() rating.Belief {
	return rating.Belief{Mu: p.Mu, Sigma: p.Sigma}
}

// Conservative returns mu - 3*sigma.
func (p Player) Conservative() float64 {
	return p.Belief().Conservative()
}

// Match is one decided game. Score1 never equals Score2.
type Match struct {
	ID        int64     `json:"id"`
	Player1ID int64     `json:"player1_id"`
	Player2ID int64     `json:"player2_id"`
	Score1    int       `json:"score1"`
	Score2    int       `json:"score2"`
	PlayedAt  time.Time `json:"played_at"`
	Season    int       `json:"season"`
}

// WinnerID returns the id of the player with the higher score.
func (m Match) WinnerID() int64 {
	if m.Score1 > m.Score2 {
		return m.Player1ID
	}
	return m.Player2ID
}

// LoserID returns the id of the player with the lower score.
func (m Match) LoserID() int64 {
	if m.Score1 > m.Score2 {
		return m.Player2ID
	}
	return m.Player1ID
}

// Involves reports whether id played in m.
func (m Match) Involves(id int64) bool {
	return m.Player1ID == id || m.Player2ID == id
}

// Opponent returns the other participant from id's point of view.
func (m Match) Opponent(id int64) int64 {
	if m.Player1ID == id {
		return m.Player2ID
	}
	return m.Player1ID
}

// Before reports whether m sorts before o in canonical replay order:
// played_at ascending, then id ascending.
func (m Match) Before(o Match) bool {
	if !m.PlayedAt.Equal(o.PlayedAt) {
		return m.PlayedAt.Before(o.PlayedAt)
	}
	return m.ID < o.ID
}

// Outcome converts the match for replay.
func (m Match) Outcome() rating.Outcome {
	return rating.Outcome{Winner: m.WinnerID(), Loser: m.LoserID()}
}

// Snapshot is a player's belief immediately before a match was applied.
type Snapshot struct {
	PlayerID int64   `json:"player_id"`
	MatchID  int64   `json:"match_id"`
	Mu       float64 `json:"mu"`
	Sigma    float64 `json:"sigma"`
}

// Belief returns the snapshotted belief.
func (s Snapshot) Belief() rating.Belief {
	return rating.Belief{Mu: s.Mu, Sigma: s.Sigma}
}

// Matchup aggregates results for an unordered pair stored as A < B.
type Matchup struct {
	PlayerA       int64 `json:"player_a"`
	PlayerB       int64 `json:"player_b"`
	MatchesPlayed int   `json:"matches_played"`
	WinsA         int   `json:"wins_a"`
	WinsB         int   `json:"wins_b"`
}

// CanonicalPair orders two ids so the smaller comes first.
func CanonicalPair(x, y int64) (int64, int64) {
	if x < y {
		return x, y
	}
	return y, x
}

// Apply adds (delta = +1) or removes (delta = -1) one result won by winner.
func (m *Matchup) Apply(winner int64, delta int) {
	m.MatchesPlayed += delta
	if winner == m.PlayerA {
		m.WinsA += delta
	} else {
		m.WinsB += delta
	}
}

// Consistent reports whether the counters are non-negative and add up.
func (m Matchup) Consistent() bool {
	return m.PlayerA < m.PlayerB && m.WinsA >= 0 && m.WinsB >= 0 && m.WinsA+m.WinsB == m.MatchesPlayed
}

// Tally rebuilds the canonical aggregates from a match set.
func Tally(matches []Match) map[[2]int64]Matchup {
	out := make(map[[2]int64]Matchup)
	for _, m := range matches {
		a, b := CanonicalPair(m.Player1ID, m.Player2ID)
		key := [2]int64{a, b}
		mu, ok := out[key]
		if !ok {
			mu = Matchup{PlayerA: a, PlayerB: b}
		}
		mu.Apply(m.WinnerID(), 1)
		out[key] = mu
	}
	return out
}
