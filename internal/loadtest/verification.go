package loadtest

import (
	"context"
	"errors"
	"fmt"

	"github.com/okian/rally/internal/domain/model"
	"github.com/okian/rally/internal/domain/types"
)

// ErrMismatch reports standings that disagree with what was submitted.
var ErrMismatch = errors.New("standings mismatch")

// verify checks the ladder order and that the win/loss table accounts for
// every recorded match. It returns the ladder size.
func (r *runner) verify(ctx context.Context, players []model.Player, recorded int) (int, error) {
	var ladder []types.LadderEntry
	if err := r.client.getJSON(ctx, "/ladder", &ladder); err != nil {
		return 0, err
	}
	if err := checkLadder(ladder, len(players)); err != nil {
		return len(ladder), err
	}

	var table []types.WinLossEntry
	if err := r.client.getJSON(ctx, "/wlt", &table); err != nil {
		return len(ladder), err
	}
	return len(ladder), checkTotals(table, recorded)
}

func checkLadder(ladder []types.LadderEntry, players int) error {
	if len(ladder) < players {
		return fmt.Errorf("%w: ladder has %d players, registered %d", ErrMismatch, len(ladder), players)
	}
	for i, e := range ladder {
		if e.Rank != i+1 {
			return fmt.Errorf("%w: entry %d has rank %d", ErrMismatch, i, e.Rank)
		}
		if i > 0 && e.Conservative > ladder[i-1].Conservative {
			return fmt.Errorf("%w: %s ranked below a lower skill", ErrMismatch, e.Name)
		}
	}
	return nil
}

// checkTotals expects one win and one loss per recorded match. Players
// present before the run add their own history, so totals must be at least
// the recorded count.
func checkTotals(table []types.WinLossEntry, recorded int) error {
	var wins, losses, played int
	for _, e := range table {
		wins += e.Wins
		losses += e.Losses
		played += e.Played
	}
	switch {
	case wins != losses:
		return fmt.Errorf("%w: %d wins against %d losses", ErrMismatch, wins, losses)
	case played != wins+losses:
		return fmt.Errorf("%w: %d played, %d decided", ErrMismatch, played, wins+losses)
	case wins < recorded:
		return fmt.Errorf("%w: %d wins for %d recorded matches", ErrMismatch, wins, recorded)
	}
	return nil
}
