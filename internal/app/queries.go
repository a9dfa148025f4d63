package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/okian/rally/internal/adapters/repository"
	"github.com/okian/rally/internal/domain/aggregate"
	"github.com/okian/rally/internal/domain/ledger"
	"github.com/okian/rally/internal/domain/model"
	"github.com/okian/rally/internal/domain/prediction"
	"github.com/okian/rally/internal/domain/types"
	"github.com/okian/rally/pkg/metrics"
)

func invalid(op, reason string) error {
	return &ledger.Error{Op: op, Kind: ledger.ErrValidation, Reason: reason}
}

func lookup(op string, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return &ledger.Error{Op: op, Kind: ledger.ErrNotFound, Err: err}
	}
	return err
}

func names(players []model.Player) map[int64]string {
	out := make(map[int64]string, len(players))
	for _, p := range players {
		out[p.ID] = p.Name
	}
	return out
}

// Player returns one player.
func (s *Service) Player(ctx context.Context, id int64) (model.Player, error) {
	var p model.Player
	err := s.store.View(ctx, func(r repository.Reader) error {
		var err error
		p, err = r.Player(ctx, id)
		return lookup("Player", err)
	})
	return p, err
}

// Players returns every player ordered by id.
func (s *Service) Players(ctx context.Context) ([]model.Player, error) {
	var out []model.Player
	err := s.store.View(ctx, func(r repository.Reader) error {
		var err error
		out, err = r.Players(ctx)
		return err
	})
	if out == nil {
		out = []model.Player{}
	}
	return out, err
}

// Ladder ranks every player by conservative skill and marks the mu change
// of the two players in the most recent match.
func (s *Service) Ladder(ctx context.Context) ([]types.LadderEntry, error) {
	var out []types.LadderEntry
	err := s.store.View(ctx, func(r repository.Reader) error {
		players, err := r.Players(ctx)
		if err != nil {
			return err
		}
		var deltas map[int64]float64
		latest, err := r.LatestMatch(ctx)
		switch {
		case err == nil:
			snaps, err := r.SnapshotsForMatch(ctx, latest.ID)
			if err != nil {
				return err
			}
			deltas = aggregate.LastMatchDeltas(latest, snaps, players)
		case !errors.Is(err, repository.ErrNotFound):
			return err
		}
		out = aggregate.Ladder(players, deltas)
		return nil
	})
	return out, err
}

// HeadToHead reports the record between two players in the given order.
func (s *Service) HeadToHead(ctx context.Context, id1, id2 int64) (types.HeadToHead, error) {
	const op = "HeadToHead"
	if id1 == id2 {
		return types.HeadToHead{}, invalid(op, "players must differ")
	}
	var out types.HeadToHead
	err := s.store.View(ctx, func(r repository.Reader) error {
		p1, err := r.Player(ctx, id1)
		if err != nil {
			return lookup(op, err)
		}
		p2, err := r.Player(ctx, id2)
		if err != nil {
			return lookup(op, err)
		}
		mu, err := r.Matchup(ctx, id1, id2)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return err
		}
		out = aggregate.HeadToHead(p1, p2, mu)
		return nil
	})
	return out, err
}

// WinLossTable tallies every player.
func (s *Service) WinLossTable(ctx context.Context) ([]types.WinLossEntry, error) {
	var out []types.WinLossEntry
	err := s.store.View(ctx, func(r repository.Reader) error {
		players, err := r.Players(ctx)
		if err != nil {
			return err
		}
		matches, err := r.Matches(ctx)
		if err != nil {
			return err
		}
		out = aggregate.WinLossTable(players, matches)
		return nil
	})
	return out, err
}

// PlayerStats builds one player's profile.
func (s *Service) PlayerStats(ctx context.Context, id int64) (types.PlayerStats, error) {
	const op = "PlayerStats"
	var out types.PlayerStats
	err := s.store.View(ctx, func(r repository.Reader) error {
		p, err := r.Player(ctx, id)
		if err != nil {
			return lookup(op, err)
		}
		players, err := r.Players(ctx)
		if err != nil {
			return err
		}
		matches, err := r.MatchesFor(ctx, id)
		if err != nil {
			return err
		}
		snaps, err := r.SnapshotsFor(ctx, id)
		if err != nil {
			return err
		}
		out = aggregate.PlayerStats(p, matches, snaps, names(players))
		return nil
	})
	return out, err
}

// MatchHistory lists matches newest first. playerID 0 means every match;
// otherwise only that player's matches, with their result.
func (s *Service) MatchHistory(ctx context.Context, playerID int64) ([]types.HistoryEntry, error) {
	const op = "MatchHistory"
	var out []types.HistoryEntry
	err := s.store.View(ctx, func(r repository.Reader) error {
		players, err := r.Players(ctx)
		if err != nil {
			return err
		}
		var matches []model.Match
		if playerID == 0 {
			matches, err = r.Matches(ctx)
		} else {
			if _, err := r.Player(ctx, playerID); err != nil {
				return lookup(op, err)
			}
			matches, err = r.MatchesFor(ctx, playerID)
		}
		if err != nil {
			return err
		}
		out = aggregate.MatchHistory(matches, names(players), playerID)
		return nil
	})
	return out, err
}

// RecentMatches returns the newest matches. limit <= 0 uses the default;
// larger values are capped.
func (s *Service) RecentMatches(ctx context.Context, limit int) ([]types.HistoryEntry, error) {
	switch {
	case limit <= 0:
		limit = s.defaultHistoryLimit
	case limit > s.maxHistoryLimit:
		limit = s.maxHistoryLimit
	}
	var out []types.HistoryEntry
	err := s.store.View(ctx, func(r repository.Reader) error {
		players, err := r.Players(ctx)
		if err != nil {
			return err
		}
		matches, err := r.RecentMatches(ctx, limit)
		if err != nil {
			return err
		}
		out = aggregate.MatchHistory(matches, names(players), 0)
		return nil
	})
	return out, err
}

// RatingHistory returns the player's belief after each of their matches.
func (s *Service) RatingHistory(ctx context.Context, id int64) ([]types.RatingPoint, error) {
	const op = "RatingHistory"
	var out []types.RatingPoint
	err := s.store.View(ctx, func(r repository.Reader) error {
		p, err := r.Player(ctx, id)
		if err != nil {
			return lookup(op, err)
		}
		matches, err := r.MatchesFor(ctx, id)
		if err != nil {
			return err
		}
		snaps, err := r.SnapshotsFor(ctx, id)
		if err != nil {
			return err
		}
		byMatch := make(map[int64]model.Snapshot, len(snaps))
		for _, sn := range snaps {
			byMatch[sn.MatchID] = sn
		}
		out, err = aggregate.RatingHistory(p, matches, byMatch)
		if errors.Is(err, aggregate.ErrMissingSnapshot) {
			return &ledger.Error{Op: op, Kind: ledger.ErrConsistency, Err: err}
		}
		return err
	})
	return out, err
}

// Predict estimates the probability that id1 beats id2.
func (s *Service) Predict(ctx context.Context, id1, id2 int64) (types.MatchPrediction, error) {
	const op = "Predict"
	if id1 == id2 {
		return types.MatchPrediction{}, invalid(op, "cannot predict a player against themselves")
	}
	var out types.MatchPrediction
	err := s.store.View(ctx, func(r repository.Reader) error {
		a, err := r.Player(ctx, id1)
		if err != nil {
			return lookup(op, err)
		}
		b, err := r.Player(ctx, id2)
		if err != nil {
			return lookup(op, err)
		}
		ma, err := r.MatchesFor(ctx, id1)
		if err != nil {
			return err
		}
		mb, err := r.MatchesFor(ctx, id2)
		if err != nil {
			return err
		}
		h := aggregate.PredictionHistory(id1, id2, ma, mb)
		out = types.MatchPrediction{
			Player1:    types.PlayerRef{ID: a.ID, Name: a.Name},
			Player2:    types.PlayerRef{ID: b.ID, Name: b.Name},
			Prediction: prediction.Predict(a.Belief(), b.Belief(), h),
		}
		return nil
	})
	if err == nil {
		metrics.RecordPrediction()
	}
	return out, err
}

// WeeklySummary highlights [start, end]. Zero times select the current
// Sunday-to-Saturday week.
func (s *Service) WeeklySummary(ctx context.Context, start, end time.Time) (types.WeeklySummary, error) {
	const op = "WeeklySummary"
	if start.IsZero() || end.IsZero() {
		ws, we := aggregate.WeekBounds(s.now())
		if start.IsZero() {
			start = ws
		}
		if end.IsZero() {
			end = we
		}
	}
	if end.Before(start) {
		return types.WeeklySummary{}, invalid(op, "end is before start")
	}

	var out types.WeeklySummary
	err := s.store.View(ctx, func(r repository.Reader) error {
		window, err := r.MatchesBetween(ctx, start, end)
		if err != nil {
			return err
		}
		players, err := r.Players(ctx)
		if err != nil {
			return err
		}
		var lookupErr error
		snapshot := func(playerID, matchID int64) (model.Snapshot, bool) {
			sn, err := r.Snapshot(ctx, playerID, matchID)
			if err != nil {
				if !errors.Is(err, repository.ErrNotFound) {
					lookupErr = err
				}
				return model.Snapshot{}, false
			}
			return sn, true
		}
		out, err = aggregate.WeeklySummary(start, end, window, players, snapshot)
		if lookupErr != nil {
			return lookupErr
		}
		if errors.Is(err, aggregate.ErrMissingSnapshot) {
			return &ledger.Error{Op: op, Kind: ledger.ErrConsistency, Err: err}
		}
		return err
	})
	return out, err
}

// SeasonLadder replays one season's matches from the prior.
func (s *Service) SeasonLadder(ctx context.Context, season int) ([]types.LadderEntry, error) {
	if season < 1 {
		return nil, invalid("SeasonLadder", "season must be at least 1")
	}
	var out []types.LadderEntry
	err := s.store.View(ctx, func(r repository.Reader) error {
		players, err := r.Players(ctx)
		if err != nil {
			return err
		}
		matches, err := r.MatchesInSeason(ctx, season)
		if err != nil {
			return err
		}
		out = aggregate.SeasonLadder(players, matches)
		return nil
	})
	return out, err
}

// Seasons lists seasons with matches plus the current one.
func (s *Service) Seasons(ctx context.Context) (types.Seasons, error) {
	current, err := s.ledger.CurrentSeason(ctx)
	if err != nil {
		return types.Seasons{}, err
	}
	var stored []int
	err = s.store.View(ctx, func(r repository.Reader) error {
		var err error
		stored, err = r.Seasons(ctx)
		return err
	})
	if err != nil {
		return types.Seasons{}, fmt.Errorf("seasons: %w", err)
	}

	seen := map[int]bool{current: true}
	available := []int{current}
	for _, n := range stored {
		if !seen[n] {
			seen[n] = true
			available = append(available, n)
		}
	}
	sort.Ints(available)
	return types.Seasons{Current: current, Available: available}, nil
}
