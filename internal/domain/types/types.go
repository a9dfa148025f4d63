// Package types contains the read shapes returned by queries and the HTTP API.
package types

import (
	"time"

	"github.com/okian/rally/internal/domain/prediction"
)

// LadderEntry is one row of a ladder ordered by conservative skill.
type LadderEntry struct {
	Rank         int     `json:"rank"`
	PlayerID     int64   `json:"player_id"`
	Name         string  `json:"name"`
	Mu           float64 `json:"mu"`
	Sigma        float64 `json:"sigma"`
	Conservative float64 `json:"conservative"`
	// Delta is the mu change from the most recent match, set only for its two players.
	Delta *float64 `json:"delta,omitempty"`
}

// HeadToHead reports a pairing in the caller's order.
type HeadToHead struct {
	Player1ID   int64  `json:"player1_id"`
	Player1Name string `json:"player1_name"`
	Player2ID   int64  `json:"player2_id"`
	Player2Name string `json:"player2_name"`
	Matches     int    `json:"matches"`
	Player1Wins int    `json:"player1_wins"`
	Player2Wins int    `json:"player2_wins"`
}

// WinLossEntry is one row of the win/loss table.
type WinLossEntry struct {
	PlayerID int64    `json:"player_id"`
	Name     string   `json:"name"`
	Played   int      `json:"played"`
	Wins     int      `json:"wins"`
	Losses   int      `json:"losses"`
	WinPct   float64  `json:"win_pct"`
	Form     []string `json:"form"`
}

// OpponentSummary names a nemesis or victim. Label is either the opponent's
// name or a "Tied between ..." list.
type OpponentSummary struct {
	Label       string  `json:"label"`
	OpponentIDs []int64 `json:"opponent_ids"`
	WinRate     float64 `json:"win_rate"`
	Matches     int     `json:"matches"`
	Tied        bool    `json:"tied"`
}

// PlayerStats is the profile view of a player.
type PlayerStats struct {
	PlayerID     int64            `json:"player_id"`
	Name         string           `json:"name"`
	Mu           float64          `json:"mu"`
	Sigma        float64          `json:"sigma"`
	Conservative float64          `json:"conservative"`
	PeakMu       float64          `json:"peak_mu"`
	Played       int              `json:"played"`
	Wins         int              `json:"wins"`
	Losses       int              `json:"losses"`
	WinPct       float64          `json:"win_pct"`
	Form         []string         `json:"form"`
	Nemesis      *OpponentSummary `json:"nemesis,omitempty"`
	Victim       *OpponentSummary `json:"victim,omitempty"`
}

// HistoryEntry is one match as listed in a history.
type HistoryEntry struct {
	MatchID     int64     `json:"match_id"`
	PlayedAt    time.Time `json:"played_at"`
	Season      int       `json:"season"`
	Player1ID   int64     `json:"player1_id"`
	Player1Name string    `json:"player1_name"`
	Player2ID   int64     `json:"player2_id"`
	Player2Name string    `json:"player2_name"`
	Score1      int       `json:"score1"`
	Score2      int       `json:"score2"`
	WinnerID    int64     `json:"winner_id"`
	// Result is "W" or "L" when the history is for a single player.
	Result string `json:"result,omitempty"`
}

// RatingPoint is a player's belief after their Seq-th match; Seq 0 is the prior.
type RatingPoint struct {
	Seq      int        `json:"match_seq"`
	MatchID  int64      `json:"match_id,omitempty"`
	PlayedAt *time.Time `json:"played_at,omitempty"`
	Mu       float64    `json:"mu"`
	Sigma    float64    `json:"sigma"`
}

// PlayerDelta is a player's net mu movement over a window.
type PlayerDelta struct {
	PlayerID int64   `json:"player_id"`
	Name     string  `json:"name"`
	StartMu  float64 `json:"start_mu"`
	EndMu    float64 `json:"end_mu"`
	Change   float64 `json:"change"`
}

// PlayerRate is a player's record within a window.
type PlayerRate struct {
	PlayerID int64   `json:"player_id"`
	Name     string  `json:"name"`
	Wins     int     `json:"wins"`
	Played   int     `json:"played"`
	WinPct   float64 `json:"win_pct"`
}

// WeeklySummary highlights a time window.
type WeeklySummary struct {
	Start          time.Time    `json:"start"`
	End            time.Time    `json:"end"`
	Matches        int          `json:"matches"`
	Players        int          `json:"players"`
	BiggestClimber *PlayerDelta `json:"biggest_climber,omitempty"`
	BiggestFaller  *PlayerDelta `json:"biggest_faller,omitempty"`
	BestWinRate    *PlayerRate  `json:"best_win_rate,omitempty"`
	WorstWinRate   *PlayerRate  `json:"worst_win_rate,omitempty"`
	TopPairing     *HeadToHead  `json:"top_pairing,omitempty"`
}

// Seasons lists the active season and every season seen in the ledger.
type Seasons struct {
	Current   int   `json:"current"`
	Available []int `json:"available"`
}

// PlayerRef identifies a player in a response.
type PlayerRef struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// MatchPrediction is the predicted chance that Player1 beats Player2.
type MatchPrediction struct {
	Player1 PlayerRef `json:"player1"`
	Player2 PlayerRef `json:"player2"`
	prediction.Prediction
}
