// Package service composes the store, the ledger and the single writer
// into the operations the HTTP API and the CLI call.
package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/okian/rally/internal/adapters/mq/queue"
	"github.com/okian/rally/internal/adapters/mq/worker"
	"github.com/okian/rally/internal/adapters/repository"
	"github.com/okian/rally/internal/domain/dedupe"
	"github.com/okian/rally/internal/domain/ledger"
	"github.com/okian/rally/internal/domain/model"
	"github.com/okian/rally/pkg/logger"
	"github.com/okian/rally/pkg/metrics"
)

// Service implements the API dependencies for the ladder.
type Service struct {
	mu sync.RWMutex

	// Core components
	store   repository.Store
	ledger  *ledger.Ledger
	queue   *queue.InMemoryQueue
	writer  *worker.Writer
	deduper dedupe.Deduper[model.Match]

	// Configuration
	queueSize           int
	dedupeSize          int
	defaultHistoryLimit int
	maxHistoryLimit     int
	defaultSeason       int
	now                 func() time.Time

	// State
	started bool
	cancel  context.CancelFunc

	logger logger.Logger
}

// New constructs a Service over store. The caller keeps ownership of store.
func New(store repository.Store, opts ...Option) *Service {
	s := &Service{
		store:               store,
		queueSize:           256,
		dedupeSize:          10_000,
		defaultHistoryLimit: 10,
		maxHistoryLimit:     100,
		defaultSeason:       1,
		now:                 time.Now,
		logger:              logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.defaultHistoryLimit > s.maxHistoryLimit {
		s.defaultHistoryLimit = s.maxHistoryLimit
	}

	s.ledger = ledger.New(store,
		ledger.WithClock(s.now),
		ledger.WithLogger(s.logger.Named("ledger")),
		ledger.WithDefaultSeason(s.defaultSeason),
	)
	s.deduper = dedupe.NewInMemoryDeduper[model.Match](dedupe.WithMaxSize(s.dedupeSize))
	return s
}

// Start launches the writer goroutine.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	s.logger.Info(ctx, "starting ladder service...")

	if err := s.store.Ping(ctx); err != nil {
		return fmt.Errorf("store unavailable: %w", err)
	}

	s.queue = queue.NewInMemoryQueue(queue.WithCapacity(s.queueSize))
	s.writer = worker.NewWriter(s.queue, worker.WithLogger(s.logger))

	// The writer outlives the start request.
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel
	go s.writer.Run(runCtx)

	if season, err := s.ledger.CurrentSeason(ctx); err == nil {
		metrics.UpdateCurrentSeason(season)
	}
	s.refreshGauges(ctx)

	s.started = true
	s.logger.Info(ctx, "ladder service started",
		logger.Int("queueSize", s.queueSize),
		logger.Int("dedupeSize", s.dedupeSize))
	return nil
}

// Stop drains pending writes and stops the writer.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}
	s.logger.Info(ctx, "stopping ladder service...")

	err := s.writer.Shutdown(ctx)
	s.cancel()
	s.started = false

	s.logger.Info(ctx, "ladder service stopped")
	return err
}

func (s *Service) writerOrErr() (*worker.Writer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil, ErrNotStarted
	}
	return s.writer, nil
}

// write runs fn on the writer goroutine.
func write[T any](ctx context.Context, s *Service, name string, fn func(ctx context.Context) (T, error)) (T, error) {
	w, err := s.writerOrErr()
	if err != nil {
		var zero T
		return zero, err
	}
	return worker.Do(ctx, w, name, fn)
}

func writeErr(ctx context.Context, s *Service, name string, fn func(ctx context.Context) error) error {
	_, err := write(ctx, s, name, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// RegisterPlayer adds a player at the default prior.
func (s *Service) RegisterPlayer(ctx context.Context, name string) (model.Player, error) {
	return write(ctx, s, "register_player", func(ctx context.Context) (model.Player, error) {
		return s.ledger.RegisterPlayer(ctx, name)
	})
}

// RemovePlayer deletes a player and every match they played.
func (s *Service) RemovePlayer(ctx context.Context, id int64) error {
	return writeErr(ctx, s, "remove_player", func(ctx context.Context) error {
		return s.ledger.RemovePlayer(ctx, id)
	})
}

// RecordMatch appends a match. With a non-empty idempotencyKey a retried
// request returns the original match and replayed is true.
func (s *Service) RecordMatch(ctx context.Context, req ledger.RecordRequest, idempotencyKey string) (m model.Match, replayed bool, err error) {
	if idempotencyKey == "" {
		m, err = s.recordMatch(ctx, req)
		return m, false, err
	}

	prev, state, err := s.deduper.Begin(ctx, idempotencyKey, fingerprint(req))
	if err != nil {
		return model.Match{}, false, err
	}
	if state == dedupe.StateDone {
		metrics.RecordIdempotentReplay()
		s.logger.Debug(ctx, "idempotent replay", logger.String("key", idempotencyKey), logger.Int64("match_id", prev.ID))
		return prev, true, nil
	}

	// Once accepted, a keyed write runs to completion even if the caller
	// goes away, so the key always ends up holding the committed match.
	m, err = s.recordMatch(context.WithoutCancel(ctx), req)
	if err != nil {
		s.deduper.Abort(ctx, idempotencyKey)
		return model.Match{}, false, err
	}
	s.deduper.Complete(ctx, idempotencyKey, m)
	return m, false, nil
}

func (s *Service) recordMatch(ctx context.Context, req ledger.RecordRequest) (model.Match, error) {
	return write(ctx, s, "record_match", func(ctx context.Context) (model.Match, error) {
		return s.ledger.RecordMatch(ctx, req)
	})
}

func fingerprint(req ledger.RecordRequest) string {
	at := ""
	if req.PlayedAt != nil {
		at = req.PlayedAt.UTC().Format(time.RFC3339Nano)
	}
	return fmt.Sprintf("%d|%d|%d|%d|%s", req.Player1ID, req.Player2ID, req.Score1, req.Score2, at)
}

// DeleteMatch removes a match and replays history.
func (s *Service) DeleteMatch(ctx context.Context, id int64) error {
	return writeErr(ctx, s, "delete_match", func(ctx context.Context) error {
		return s.ledger.DeleteMatch(ctx, id)
	})
}

// ClearAll wipes ladder data but keeps settings.
func (s *Service) ClearAll(ctx context.Context) error {
	return writeErr(ctx, s, "clear_all", func(ctx context.Context) error {
		return s.ledger.ClearAll(ctx)
	})
}

// Recompute rebuilds aggregates and replays all ratings.
func (s *Service) Recompute(ctx context.Context) error {
	return writeErr(ctx, s, "recompute", func(ctx context.Context) error {
		return s.ledger.Recompute(ctx)
	})
}

// SetCurrentSeason changes the season for new matches.
func (s *Service) SetCurrentSeason(ctx context.Context, season int) error {
	return writeErr(ctx, s, "set_season", func(ctx context.Context) error {
		return s.ledger.SetCurrentSeason(ctx, season)
	})
}

// CurrentSeason returns the active season.
func (s *Service) CurrentSeason(ctx context.Context) (int, error) {
	return s.ledger.CurrentSeason(ctx)
}

// Verify checks the replay invariant.
func (s *Service) Verify(ctx context.Context) error {
	return s.ledger.Verify(ctx)
}

// Ping checks the store.
func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats(ctx context.Context) map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":        s.started,
		"queueCapacity":  s.queueSize,
		"dedupeCapacity": s.dedupeSize,
		"dedupeSize":     s.deduper.Size(),
	}
	if s.started {
		stats["queueLength"] = s.queue.Len(ctx)
	}

	players, matches, err := s.counts(ctx)
	if err != nil {
		stats["storeError"] = err.Error()
		return stats
	}
	stats["players"] = players
	stats["matches"] = matches
	if season, err := s.ledger.CurrentSeason(ctx); err == nil {
		stats["currentSeason"] = season
	}
	return stats
}

func (s *Service) counts(ctx context.Context) (players, matches int, err error) {
	err = s.store.View(ctx, func(r repository.Reader) error {
		if players, err = r.CountPlayers(ctx); err != nil {
			return err
		}
		matches, err = r.CountMatches(ctx)
		return err
	})
	return players, matches, err
}

func (s *Service) refreshGauges(ctx context.Context) {
	players, matches, err := s.counts(ctx)
	if err != nil {
		s.logger.Warn(ctx, "could not read store counts", logger.Error(err))
		return
	}
	metrics.UpdatePlayersTotal(players)
	metrics.UpdateMatchesTotal(matches)
}
