package api

import (
	"errors"
	"time"

	"github.com/okian/rally/internal/domain/ledger"
	"github.com/okian/rally/internal/domain/model"
)

// recordRequest mirrors the OpenAPI schema for POST /matches.
type recordRequest struct {
	Player1ID int64  `json:"player1_id"`
	Player2ID int64  `json:"player2_id"`
	Score1    *int   `json:"score1"`
	Score2    *int   `json:"score2"`
	PlayedAt  string `json:"played_at,omitempty"`

	playedAt *time.Time
}

func (e *recordRequest) validate() error {
	switch {
	case e.Player1ID < 1:
		return errors.New("missing player1_id")
	case e.Player2ID < 1:
		return errors.New("missing player2_id")
	case e.Score1 == nil:
		return errors.New("missing score1")
	case e.Score2 == nil:
		return errors.New("missing score2")
	}
	if e.PlayedAt != "" {
		t, err := time.Parse(time.RFC3339, e.PlayedAt)
		if err != nil {
			return errors.New("invalid played_at; must be RFC3339")
		}
		if !model.ValidPlayedAt(t) {
			return errors.New("played_at out of range")
		}
		t = t.UTC()
		e.playedAt = &t
	}
	return nil
}

func (e *recordRequest) toLedger() ledger.RecordRequest {
	return ledger.RecordRequest{
		Player1ID: e.Player1ID,
		Player2ID: e.Player2ID,
		Score1:    *e.Score1,
		Score2:    *e.Score2,
		PlayedAt:  e.playedAt,
	}
}
