package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/rally/internal/adapters/repository"
	"github.com/okian/rally/internal/domain/model"
	"github.com/okian/rally/internal/domain/rating"
	"github.com/okian/rally/pkg/logger"
	"github.com/okian/rally/pkg/metrics"
)

// Replay invariant. After every committed mutation:
//
//   - each player's belief equals rating.Replay from the prior over every
//     match in (played_at, id) order;
//   - each snapshot holds the pre-match belief that same replay produced;
//   - each matchup equals the tally of the match set.
//
// replay restores the first two from the match set and checks the third.
// A failed check aborts the enclosing transaction.
func (l *Ledger) replay(ctx context.Context, tx repository.Tx, op, trigger string) error {
	start := time.Now()

	players, err := tx.Players(ctx)
	if err != nil {
		return fmt.Errorf("%s: load players: %w", op, err)
	}
	matches, err := tx.Matches(ctx)
	if err != nil {
		return fmt.Errorf("%s: load matches: %w", op, err)
	}

	res := replayMatches(l.prior, players, matches)

	for i, m := range matches {
		step := res.Steps[i]
		for _, s := range []model.Snapshot{
			{PlayerID: m.WinnerID(), MatchID: m.ID, Mu: step.WinnerBefore.Mu, Sigma: step.WinnerBefore.Sigma},
			{PlayerID: m.LoserID(), MatchID: m.ID, Mu: step.LoserBefore.Mu, Sigma: step.LoserBefore.Sigma},
		} {
			if err := tx.PutSnapshot(ctx, s); err != nil {
				return fmt.Errorf("%s: %w", op, err)
			}
		}
	}

	now := l.now()
	for _, p := range players {
		b := res.Beliefs[p.ID]
		if p.Mu == b.Mu && p.Sigma == b.Sigma {
			continue
		}
		p.Mu, p.Sigma, p.UpdatedAt = b.Mu, b.Sigma, now
		if err := tx.UpdatePlayer(ctx, p); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
	}

	if err := checkMatchups(ctx, tx, op, matches); err != nil {
		return err
	}

	elapsed := time.Since(start)
	metrics.RecordReplay(trigger, float64(elapsed.Microseconds())/1000, len(matches))
	l.log.Debug(ctx, "ledger replayed",
		logger.String("trigger", trigger),
		logger.Int("matches", len(matches)),
		logger.Int("players", len(players)),
		logger.Duration("elapsed", elapsed))
	return nil
}

func replayMatches(prior rating.Belief, players []model.Player, matches []model.Match) rating.ReplayResult {
	seed := make([]int64, len(players))
	for i, p := range players {
		seed[i] = p.ID
	}
	outcomes := make([]rating.Outcome, len(matches))
	for i, m := range matches {
		outcomes[i] = m.Outcome()
	}
	return rating.Replay(prior, seed, outcomes)
}

// checkMatchups compares stored aggregates with a recount of matches.
func checkMatchups(ctx context.Context, r repository.Reader, op string, matches []model.Match) error {
	want := model.Tally(matches)
	have, err := r.Matchups(ctx)
	if err != nil {
		return fmt.Errorf("%s: load matchups: %w", op, err)
	}
	if len(have) != len(want) {
		return inconsistent(op, fmt.Sprintf("%d matchups stored, %d expected", len(have), len(want)))
	}
	for _, h := range have {
		w, ok := want[[2]int64{h.PlayerA, h.PlayerB}]
		if !ok || !h.Consistent() || h != w {
			return inconsistent(op, fmt.Sprintf("matchup %d-%d is %d/%d/%d, recount is %d/%d/%d",
				h.PlayerA, h.PlayerB, h.MatchesPlayed, h.WinsA, h.WinsB, w.MatchesPlayed, w.WinsA, w.WinsB))
		}
	}
	return nil
}

// Verify checks the full replay invariant against r without writing.
func Verify(ctx context.Context, r repository.Reader, prior rating.Belief) error {
	const op = "Verify"
	players, err := r.Players(ctx)
	if err != nil {
		return err
	}
	matches, err := r.Matches(ctx)
	if err != nil {
		return err
	}
	res := replayMatches(prior, players, matches)

	for _, p := range players {
		if b := res.Beliefs[p.ID]; p.Mu != b.Mu || p.Sigma != b.Sigma {
			return inconsistent(op, fmt.Sprintf("player %d belief (%v, %v), replay gives (%v, %v)", p.ID, p.Mu, p.Sigma, b.Mu, b.Sigma))
		}
	}
	for i, m := range matches {
		step := res.Steps[i]
		for id, want := range map[int64]rating.Belief{m.WinnerID(): step.WinnerBefore, m.LoserID(): step.LoserBefore} {
			s, err := r.Snapshot(ctx, id, m.ID)
			if err != nil {
				return inconsistent(op, fmt.Sprintf("snapshot %d@%d: %v", id, m.ID, err))
			}
			if s.Belief() != want {
				return inconsistent(op, fmt.Sprintf("snapshot %d@%d differs from replay", id, m.ID))
			}
		}
	}
	return checkMatchups(ctx, r, op, matches)
}
