package loadtest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/okian/rally/pkg/logger"
)

// ErrConfig reports an unusable Config.
var ErrConfig = errors.New("invalid load test config")

type runner struct {
	cfg    Config
	client *client
	log    logger.Logger
	counts counters
}

// Run registers players, submits matches concurrently and verifies the
// standings the service reports afterwards.
func Run(ctx context.Context, cfg Config, log logger.Logger) (Stats, error) {
	switch {
	case cfg.Players < 2:
		return Stats{}, fmt.Errorf("%w: need at least 2 players", ErrConfig)
	case cfg.Matches < 0, cfg.Workers < 1, cfg.MaxAttempts < 1:
		return Stats{}, fmt.Errorf("%w: matches, workers and attempts must be positive", ErrConfig)
	}
	if log == nil {
		log = logger.Nop()
	}
	r := &runner{cfg: cfg, client: newClient(cfg.BaseURL, cfg.Timeout), log: log.Named("loadtest")}
	stats := Stats{StartTime: time.Now(), MatchesPlanned: cfg.Matches}

	r.log.Info(ctx, "starting load test",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("players", cfg.Players),
		logger.Int("matches", cfg.Matches),
		logger.Int("workers", cfg.Workers))

	if err := r.checkHealth(ctx); err != nil {
		return stats, fmt.Errorf("service health check failed: %w", err)
	}

	faker := gofakeit.New(uint64(cfg.Seed)) //nolint:gosec // seed is configuration
	players, err := r.registerPlayers(ctx, playerNames(faker, cfg.Players))
	if err != nil {
		return stats, fmt.Errorf("player registration failed: %w", err)
	}
	stats.PlayersRegistered = len(players)

	r.submitMatches(ctx, players, planMatches(faker, len(players), cfg.Matches, cfg.RetryRatio))

	stats.MatchesRecorded = int(r.counts.recorded.Load())
	stats.Replays = int(r.counts.replays.Load())
	stats.RateLimited = int(r.counts.limited.Load())
	stats.Failed = int(r.counts.failed.Load())
	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)

	entries, err := r.verify(ctx, players, stats.MatchesRecorded)
	stats.LadderEntries = entries
	if err != nil {
		return stats, fmt.Errorf("result verification failed: %w", err)
	}

	r.log.Info(ctx, "load test completed",
		logger.Int("recorded", stats.MatchesRecorded),
		logger.Int("replays", stats.Replays),
		logger.Int("rateLimited", stats.RateLimited),
		logger.Int("failed", stats.Failed),
		logger.Duration("duration", stats.Duration),
		logger.Float64("matchesPerSecond", stats.MatchesPerSecond()))
	return stats, nil
}

func (r *runner) checkHealth(ctx context.Context) error {
	var h struct {
		Status string `json:"status"`
	}
	if err := r.client.getJSON(ctx, "/healthz", &h); err != nil {
		return err
	}
	if h.Status != "ok" {
		return fmt.Errorf("status %q", h.Status)
	}
	return nil
}
