package loadtest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/rally/internal/domain/model"
	"github.com/okian/rally/pkg/logger"
)

var errExhausted = errors.New("rate limited on every attempt")

type outcome int

const (
	outcomeRecorded outcome = iota
	outcomeReplayed
	outcomeFailed
)

type counters struct {
	recorded, replays, limited, failed atomic.Int64
}

// registerPlayers creates one player per name, sequentially.
func (r *runner) registerPlayers(ctx context.Context, names []string) ([]model.Player, error) {
	players := make([]model.Player, 0, len(names))
	for _, name := range names {
		resp, err := r.send(ctx, http.MethodPost, "/players", map[string]string{"name": name}, nil)
		if err != nil {
			return nil, fmt.Errorf("register %q: %w", name, err)
		}
		if resp.Status != http.StatusCreated {
			return nil, fmt.Errorf("register %q: status %d: %s", name, resp.Status, resp.Body)
		}
		var p model.Player
		if err := json.Unmarshal(resp.Body, &p); err != nil {
			return nil, fmt.Errorf("register %q: %w", name, err)
		}
		players = append(players, p)
	}
	return players, nil
}

// submitMatches posts plans from cfg.Workers goroutines.
func (r *runner) submitMatches(ctx context.Context, players []model.Player, plans []plannedMatch) {
	var (
		wg       sync.WaitGroup
		progress atomic.Int64
	)
	ch := make(chan plannedMatch, r.cfg.Workers*WorkerMultiplier)

	for i := 0; i < r.cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for pm := range ch {
				r.submitOne(ctx, players, pm)
				if n := progress.Add(1); r.cfg.Verbose && n%100 == 0 {
					r.log.Debug(ctx, "progress", logger.Int64("submitted", n), logger.Int("planned", len(plans)))
				}
			}
		}()
	}

	go func() {
		defer close(ch)
		for _, pm := range plans {
			select {
			case <-ctx.Done():
				return
			case ch <- pm:
			}
		}
	}()
	wg.Wait()
}

func (r *runner) submitOne(ctx context.Context, players []model.Player, pm plannedMatch) {
	body := map[string]any{
		"player1_id": players[pm.P1].ID,
		"player2_id": players[pm.P2].ID,
		"score1":     pm.Score1,
		"score2":     pm.Score2,
	}
	headers := map[string]string{headerIdempotencyKey: pm.Key}

	first := r.record(ctx, body, headers)
	if first != outcomeRecorded || !pm.Retry {
		return
	}
	if again := r.record(ctx, body, headers); again != outcomeReplayed {
		r.log.Warn(ctx, "retry was not answered as a replay", logger.String("key", pm.Key))
		r.counts.failed.Add(1)
	}
}

func (r *runner) record(ctx context.Context, body any, headers map[string]string) outcome {
	resp, err := r.send(ctx, http.MethodPost, "/matches", body, headers)
	if err != nil {
		r.log.Warn(ctx, "submit failed", logger.Error(err))
		r.counts.failed.Add(1)
		return outcomeFailed
	}
	switch {
	case resp.Status == http.StatusCreated:
		r.counts.recorded.Add(1)
		return outcomeRecorded
	case resp.Status == http.StatusOK && resp.Header.Get(headerReplayed) == "true":
		r.counts.replays.Add(1)
		return outcomeReplayed
	default:
		r.log.Warn(ctx, "submit rejected", logger.Int("status", resp.Status), logger.String("body", string(resp.Body)))
		r.counts.failed.Add(1)
		return outcomeFailed
	}
}

// send retries 429 answers with linear backoff.
func (r *runner) send(ctx context.Context, method, path string, body any, headers map[string]string) (*response, error) {
	for attempt := 1; attempt <= r.cfg.MaxAttempts; attempt++ {
		resp, err := r.client.do(ctx, method, path, body, headers)
		if err != nil {
			return nil, err
		}
		if resp.Status != http.StatusTooManyRequests {
			return resp, nil
		}
		r.counts.limited.Add(1)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Duration(attempt) * r.cfg.Backoff):
		}
	}
	return nil, fmt.Errorf("%s %s: %w", method, path, errExhausted)
}
