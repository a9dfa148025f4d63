// Package ledger owns every mutation of ladder state.
//
// Each operation runs in one store transaction and leaves players,
// matches, snapshots and matchups satisfying the replay invariant
// described in replay.go. Callers must serialize writes; the ledger
// does not lock.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/okian/rally/internal/adapters/repository"
	"github.com/okian/rally/internal/domain/model"
	"github.com/okian/rally/internal/domain/rating"
	"github.com/okian/rally/pkg/logger"
	"github.com/okian/rally/pkg/metrics"
)

// SettingCurrentSeason is the settings key holding the active season.
const SettingCurrentSeason = "current_season"

const maxNameLength = 64

// Ledger applies mutations to a Store.
type Ledger struct {
	store         repository.Store
	now           func() time.Time
	log           logger.Logger
	prior         rating.Belief
	defaultSeason int
}

// RecordRequest describes a match to append.
type RecordRequest struct {
	Player1ID int64 `json:"player1_id"`
	Player2ID int64 `json:"player2_id"`
	Score1    int   `json:"score1"`
	Score2    int   `json:"score2"`
	// PlayedAt defaults to the ledger clock. A time before the latest
	// recorded match reorders history and triggers a full replay.
	PlayedAt *time.Time `json:"played_at,omitempty"`
}

// New creates a Ledger over store.
func New(store repository.Store, opts ...Option) *Ledger {
	l := &Ledger{
		store:         store,
		now:           time.Now,
		log:           logger.Nop(),
		prior:         rating.DefaultBelief(),
		defaultSeason: 1,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// RegisterPlayer adds a player at the default prior.
func (l *Ledger) RegisterPlayer(ctx context.Context, name string) (model.Player, error) {
	const op = "RegisterPlayer"
	name = strings.TrimSpace(name)
	switch {
	case name == "":
		return model.Player{}, l.fail(ctx, op, validation(op, "name must not be empty"))
	case len([]rune(name)) > maxNameLength:
		return model.Player{}, l.fail(ctx, op, validation(op, fmt.Sprintf("name longer than %d characters", maxNameLength)))
	}

	var p model.Player
	err := l.store.Update(ctx, func(tx repository.Tx) error {
		var err error
		p, err = tx.InsertPlayer(ctx, model.Player{
			Name:      name,
			Mu:        l.prior.Mu,
			Sigma:     l.prior.Sigma,
			UpdatedAt: l.now(),
		})
		if errors.Is(err, repository.ErrDuplicate) {
			return &Error{Op: op, Kind: ErrValidation, Reason: fmt.Sprintf("player %q already exists", name), Err: err}
		}
		if err != nil {
			return err
		}
		return l.refreshGauges(ctx, tx)
	})
	if err != nil {
		return model.Player{}, l.fail(ctx, op, err)
	}

	metrics.RecordPlayerRegistered()
	l.log.Info(ctx, "player registered", logger.Int64("player_id", p.ID), logger.String("name", p.Name))
	return p, nil
}

// RemovePlayer deletes a player together with every match they played,
// then replays the remaining history.
func (l *Ledger) RemovePlayer(ctx context.Context, id int64) error {
	const op = "RemovePlayer"
	err := l.store.Update(ctx, func(tx repository.Tx) error {
		if _, err := tx.Player(ctx, id); err != nil {
			return lookupErr(op, err)
		}
		if err := tx.DeletePlayer(ctx, id); err != nil {
			return err
		}
		if err := l.replay(ctx, tx, op, "remove_player"); err != nil {
			return err
		}
		return l.refreshGauges(ctx, tx)
	})
	if err != nil {
		return l.fail(ctx, op, err)
	}

	metrics.RecordPlayerRemoved()
	l.log.Info(ctx, "player removed", logger.Int64("player_id", id))
	return nil
}

// RecordMatch appends a match, updates both beliefs and the matchup, and
// stores the pre-match snapshots.
func (l *Ledger) RecordMatch(ctx context.Context, req RecordRequest) (model.Match, error) {
	const op = "RecordMatch"
	switch {
	case req.Player1ID == req.Player2ID:
		return model.Match{}, l.fail(ctx, op, validation(op, "a player cannot play themselves"))
	case req.Score1 == req.Score2:
		return model.Match{}, l.fail(ctx, op, validation(op, "draws are not allowed"))
	case req.Score1 < 0 || req.Score2 < 0:
		return model.Match{}, l.fail(ctx, op, validation(op, "scores must not be negative"))
	case req.PlayedAt != nil && !model.ValidPlayedAt(*req.PlayedAt):
		return model.Match{}, l.fail(ctx, op, validation(op, fmt.Sprintf("played_at must lie between %s and %s",
			model.EarliestPlayedAt.Format(time.RFC3339), model.LatestPlayedAt.Format(time.RFC3339))))
	}

	var saved model.Match
	backdated := false
	err := l.store.Update(ctx, func(tx repository.Tx) error {
		p1, err := tx.Player(ctx, req.Player1ID)
		if err != nil {
			return lookupErr(op, err)
		}
		p2, err := tx.Player(ctx, req.Player2ID)
		if err != nil {
			return lookupErr(op, err)
		}
		season, err := currentSeason(ctx, tx, l.defaultSeason)
		if err != nil {
			return err
		}

		playedAt := l.now()
		if req.PlayedAt != nil {
			playedAt = *req.PlayedAt
		}
		latest, err := tx.LatestMatch(ctx)
		switch {
		case err == nil:
			backdated = playedAt.Before(latest.PlayedAt)
		case !errors.Is(err, repository.ErrNotFound):
			return err
		}

		saved, err = tx.InsertMatch(ctx, model.Match{
			Player1ID: p1.ID,
			Player2ID: p2.ID,
			Score1:    req.Score1,
			Score2:    req.Score2,
			PlayedAt:  playedAt,
			Season:    season,
		})
		if err != nil {
			return err
		}
		if err := adjustMatchup(ctx, tx, op, saved, 1); err != nil {
			return err
		}

		if backdated {
			if err := l.replay(ctx, tx, op, "backdated_match"); err != nil {
				return err
			}
			return l.refreshGauges(ctx, tx)
		}

		winner, loser := p1, p2
		if saved.WinnerID() == p2.ID {
			winner, loser = p2, p1
		}
		for _, p := range []model.Player{winner, loser} {
			if err := tx.PutSnapshot(ctx, model.Snapshot{PlayerID: p.ID, MatchID: saved.ID, Mu: p.Mu, Sigma: p.Sigma}); err != nil {
				return err
			}
		}
		wb, lb := rating.Update(winner.Belief(), loser.Belief())
		now := l.now()
		winner.Mu, winner.Sigma, winner.UpdatedAt = wb.Mu, wb.Sigma, now
		loser.Mu, loser.Sigma, loser.UpdatedAt = lb.Mu, lb.Sigma, now
		if err := tx.UpdatePlayer(ctx, winner); err != nil {
			return err
		}
		if err := tx.UpdatePlayer(ctx, loser); err != nil {
			return err
		}
		return l.refreshGauges(ctx, tx)
	})
	if err != nil {
		return model.Match{}, l.fail(ctx, op, err)
	}

	metrics.RecordMatchRecorded()
	l.log.Info(ctx, "match recorded",
		logger.Int64("match_id", saved.ID),
		logger.Int64("winner_id", saved.WinnerID()),
		logger.Int64("loser_id", saved.LoserID()),
		logger.Int("season", saved.Season),
		logger.Bool("backdated", backdated))
	return saved, nil
}

// DeleteMatch removes a match and replays the remaining history.
func (l *Ledger) DeleteMatch(ctx context.Context, id int64) error {
	const op = "DeleteMatch"
	err := l.store.Update(ctx, func(tx repository.Tx) error {
		m, err := tx.Match(ctx, id)
		if err != nil {
			return lookupErr(op, err)
		}
		if err := adjustMatchup(ctx, tx, op, m, -1); err != nil {
			return err
		}
		if err := tx.DeleteMatch(ctx, id); err != nil {
			return err
		}
		if err := l.replay(ctx, tx, op, "delete_match"); err != nil {
			return err
		}
		return l.refreshGauges(ctx, tx)
	})
	if err != nil {
		return l.fail(ctx, op, err)
	}

	metrics.RecordMatchDeleted()
	l.log.Info(ctx, "match deleted", logger.Int64("match_id", id))
	return nil
}

// ClearAll removes players, matches, snapshots and matchups. Settings,
// including the current season, are kept.
func (l *Ledger) ClearAll(ctx context.Context) error {
	const op = "ClearAll"
	err := l.store.Update(ctx, func(tx repository.Tx) error {
		if err := tx.Clear(ctx); err != nil {
			return err
		}
		return l.refreshGauges(ctx, tx)
	})
	if err != nil {
		return l.fail(ctx, op, err)
	}
	l.log.Warn(ctx, "all ladder data cleared")
	return nil
}

// Recompute rebuilds every matchup from the match set and replays all
// ratings. It repairs a store whose aggregates drifted.
func (l *Ledger) Recompute(ctx context.Context) error {
	const op = "Recompute"
	err := l.store.Update(ctx, func(tx repository.Tx) error {
		matches, err := tx.Matches(ctx)
		if err != nil {
			return err
		}
		if err := tx.ClearMatchups(ctx); err != nil {
			return err
		}
		for _, mu := range model.Tally(matches) {
			if err := tx.PutMatchup(ctx, mu); err != nil {
				return err
			}
		}
		return l.replay(ctx, tx, op, "recompute")
	})
	if err != nil {
		return l.fail(ctx, op, err)
	}
	l.log.Info(ctx, "ledger recomputed")
	return nil
}

// Verify checks the replay invariant over a read snapshot.
func (l *Ledger) Verify(ctx context.Context) error {
	return l.store.View(ctx, func(r repository.Reader) error {
		return Verify(ctx, r, l.prior)
	})
}

// CurrentSeason returns the season new matches are tagged with.
func (l *Ledger) CurrentSeason(ctx context.Context) (int, error) {
	var season int
	err := l.store.View(ctx, func(r repository.Reader) error {
		var err error
		season, err = currentSeason(ctx, r, l.defaultSeason)
		return err
	})
	return season, err
}

// SetCurrentSeason changes the season for matches recorded from now on.
func (l *Ledger) SetCurrentSeason(ctx context.Context, season int) error {
	const op = "SetCurrentSeason"
	if season < 1 {
		return l.fail(ctx, op, validation(op, "season must be at least 1"))
	}
	err := l.store.Update(ctx, func(tx repository.Tx) error {
		return tx.PutSetting(ctx, SettingCurrentSeason, strconv.Itoa(season))
	})
	if err != nil {
		return l.fail(ctx, op, err)
	}
	metrics.UpdateCurrentSeason(season)
	l.log.Info(ctx, "current season changed", logger.Int("season", season))
	return nil
}

func currentSeason(ctx context.Context, r repository.Reader, fallback int) (int, error) {
	v, err := r.Setting(ctx, SettingCurrentSeason)
	if errors.Is(err, repository.ErrNotFound) {
		return fallback, nil
	}
	if err != nil {
		return 0, err
	}
	season, err := strconv.Atoi(v)
	if err != nil || season < 1 {
		return 0, inconsistent("CurrentSeason", fmt.Sprintf("stored season %q is invalid", v))
	}
	return season, nil
}

// adjustMatchup adds (delta 1) or removes (delta -1) m from its pair's
// aggregate, deleting the row when it reaches zero matches.
func adjustMatchup(ctx context.Context, tx repository.Tx, op string, m model.Match, delta int) error {
	mu, err := tx.Matchup(ctx, m.Player1ID, m.Player2ID)
	switch {
	case errors.Is(err, repository.ErrNotFound) && delta > 0:
		a, b := model.CanonicalPair(m.Player1ID, m.Player2ID)
		mu = model.Matchup{PlayerA: a, PlayerB: b}
	case errors.Is(err, repository.ErrNotFound):
		return inconsistent(op, fmt.Sprintf("no matchup for match %d", m.ID))
	case err != nil:
		return err
	}

	mu.Apply(m.WinnerID(), delta)
	if !mu.Consistent() {
		return inconsistent(op, fmt.Sprintf("matchup %d-%d went negative", mu.PlayerA, mu.PlayerB))
	}
	if mu.MatchesPlayed == 0 {
		return tx.DeleteMatchup(ctx, mu.PlayerA, mu.PlayerB)
	}
	return tx.PutMatchup(ctx, mu)
}

func (l *Ledger) refreshGauges(ctx context.Context, r repository.Reader) error {
	players, err := r.CountPlayers(ctx)
	if err != nil {
		return err
	}
	matches, err := r.CountMatches(ctx)
	if err != nil {
		return err
	}
	metrics.UpdatePlayersTotal(players)
	metrics.UpdateMatchesTotal(matches)
	return nil
}

func lookupErr(op string, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return notFound(op, "", err)
	}
	return err
}

// fail records a rejected operation and returns err with op context.
func (l *Ledger) fail(ctx context.Context, op string, err error) error {
	var le *Error
	if !errors.As(err, &le) {
		err = fmt.Errorf("%s: %w", op, err)
	}
	kind := kindLabel(err)
	metrics.RecordLedgerError(op, kind)
	if kind == "consistency" {
		metrics.RecordConsistencyError()
	}
	if kind == "validation" || kind == "not_found" {
		l.log.Debug(ctx, "ledger operation rejected", logger.String("op", op), logger.Error(err))
	} else {
		l.log.Error(ctx, "ledger operation failed", logger.String("op", op), logger.Error(err))
	}
	return err
}
