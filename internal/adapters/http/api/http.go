// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/okian/rally/internal/domain/ledger"
	"github.com/okian/rally/internal/domain/model"
	"github.com/okian/rally/internal/domain/types"
	"github.com/okian/rally/pkg/logger"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to the service implementation.
type Dependencies interface {
	PlayerDependencies
	MatchDependencies
	LadderDependencies
	SeasonDependencies
	AdminDependencies
	Pinger
	StatsProvider
}

// PlayerDependencies covers player registration and per-player reads.
type PlayerDependencies interface {
	RegisterPlayer(ctx context.Context, name string) (model.Player, error)
	RemovePlayer(ctx context.Context, id int64) error
	Player(ctx context.Context, id int64) (model.Player, error)
	PlayerStats(ctx context.Context, id int64) (types.PlayerStats, error)
	MatchHistory(ctx context.Context, playerID int64) ([]types.HistoryEntry, error)
	RatingHistory(ctx context.Context, id int64) ([]types.RatingPoint, error)
}

// MatchDependencies covers the match ledger.
type MatchDependencies interface {
	RecentMatches(ctx context.Context, limit int) ([]types.HistoryEntry, error)
	RecordMatch(ctx context.Context, req ledger.RecordRequest, idempotencyKey string) (model.Match, bool, error)
	DeleteMatch(ctx context.Context, id int64) error
}

// LadderDependencies covers the ranking and comparison reads.
type LadderDependencies interface {
	Ladder(ctx context.Context) ([]types.LadderEntry, error)
	WinLossTable(ctx context.Context) ([]types.WinLossEntry, error)
	HeadToHead(ctx context.Context, id1, id2 int64) (types.HeadToHead, error)
	Predict(ctx context.Context, id1, id2 int64) (types.MatchPrediction, error)
	WeeklySummary(ctx context.Context, start, end time.Time) (types.WeeklySummary, error)
}

// SeasonDependencies covers season tags.
type SeasonDependencies interface {
	Seasons(ctx context.Context) (types.Seasons, error)
	SetCurrentSeason(ctx context.Context, season int) error
	SeasonLadder(ctx context.Context, season int) ([]types.LadderEntry, error)
}

// AdminDependencies covers destructive maintenance.
type AdminDependencies interface {
	Recompute(ctx context.Context) error
	ClearAll(ctx context.Context) error
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler  *HealthHandler
	statsHandler   *StatsHandler
	playersHandler *PlayersHandler
	matchesHandler *MatchesHandler
	ladderHandler  *LadderHandler
	seasonsHandler *SeasonsHandler
	adminHandler   *AdminHandler
	limiter        *RateLimiter
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, opts ...Option) *Server {
	o := options{rps: 5, burst: 10, logger: logger.Nop()}
	for _, opt := range opts {
		opt(&o)
	}
	r := responder{log: o.logger}
	return &Server{
		healthHandler:  NewHealthHandler(deps),
		statsHandler:   NewStatsHandler(deps),
		playersHandler: &PlayersHandler{responder: r, deps: deps},
		matchesHandler: &MatchesHandler{responder: r, deps: deps},
		ladderHandler:  &LadderHandler{responder: r, deps: deps},
		seasonsHandler: &SeasonsHandler{responder: r, deps: deps},
		adminHandler:   &AdminHandler{responder: r, deps: deps},
		limiter:        NewRateLimiter(o.rps, o.burst),
	}
}

// Router returns a chi router with the common middleware stack and every
// API route registered.
func (s *Server) Router(ctx context.Context) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RealIP, RequestID, middleware.Recoverer, Metrics)
	s.Register(ctx, r)
	return r
}

// Register attaches all HTTP routes to r. Mutating routes are rate limited
// per client.
func (s *Server) Register(_ context.Context, r chi.Router) {
	r.Get("/healthz", s.healthHandler.HandleHealth)
	r.Handle("/metrics", s.healthHandler.MetricsHandler())
	r.Get("/stats", s.statsHandler.HandleStats)

	r.Get("/ladder", s.ladderHandler.HandleLadder)
	r.Get("/ladder/export.xlsx", s.ladderHandler.HandleExport)
	r.Get("/h2h", s.ladderHandler.HandleHeadToHead)
	r.Get("/wlt", s.ladderHandler.HandleWinLoss)
	r.Get("/predict", s.ladderHandler.HandlePredict)
	r.Get("/weekly", s.ladderHandler.HandleWeekly)

	r.Get("/players/{id}/stats", s.playersHandler.HandleStats)
	r.Get("/players/{id}/matches", s.playersHandler.HandleMatches)
	r.Get("/players/{id}/rating-history", s.playersHandler.HandleRatingHistory)
	r.Get("/players/{id}/rating-chart.png", s.playersHandler.HandleRatingChart)
	r.Get("/matches", s.matchesHandler.HandleRecent)
	r.Get("/seasons", s.seasonsHandler.HandleList)
	r.Get("/seasons/{season}/ladder", s.seasonsHandler.HandleLadder)

	r.Group(func(r chi.Router) {
		r.Use(s.limiter.Middleware)
		r.Post("/players", s.playersHandler.HandleRegister)
		r.Delete("/players/{id}", s.playersHandler.HandleRemove)
		r.Post("/matches", s.matchesHandler.HandleRecord)
		r.Delete("/matches/{id}", s.matchesHandler.HandleDelete)
		r.Put("/seasons/current", s.seasonsHandler.HandleSetCurrent)
		r.Post("/admin/recompute", s.adminHandler.HandleRecompute)
		r.Delete("/admin/data", s.adminHandler.HandleClear)
	})
}

type errorResponse struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	status, code := classify(err)
	msg := http.StatusText(status)
	if err != nil && status < statusInternalError {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg, RequestID: w.Header().Get(HeaderRequestID)})
}

// responder logs server-side failures before answering.
type responder struct {
	log logger.Logger
}

func (rs responder) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	err = Wrap(op, err)
	if status, _ := classify(err); status >= statusInternalError {
		rs.log.Error(r.Context(), "request failed",
			logger.String("op", op),
			logger.String("request_id", RequestIDFrom(r.Context())),
			logger.Error(err))
	}
	writeError(w, err)
}

// pathID parses a positive integer URL parameter.
func pathID(r *http.Request, name string) (int64, error) {
	return parseID(chi.URLParam(r, name), name)
}

func queryID(r *http.Request, name string) (int64, error) {
	return parseID(r.URL.Query().Get(name), name)
}

func parseID(raw, name string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 1 {
		return 0, WrapKind("api.parse_id", ErrBadRequest, errors.New(name+" must be a positive integer"))
	}
	return id, nil
}
