package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

// SeasonsHandler serves /seasons routes.
type SeasonsHandler struct {
	responder
	deps SeasonDependencies
}

// HandleList handles GET /seasons.
func (h *SeasonsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	seasons, err := h.deps.Seasons(r.Context())
	if err != nil {
		h.fail(w, r, "api.seasons", err)
		return
	}
	writeJSON(w, http.StatusOK, seasons)
}

type seasonRequest struct {
	Season int `json:"season"`
}

// HandleSetCurrent handles PUT /seasons/current.
func (h *SeasonsHandler) HandleSetCurrent(w http.ResponseWriter, r *http.Request) {
	const op = "api.set_season"
	var req seasonRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := h.deps.SetCurrentSeason(r.Context(), req.Season); err != nil {
		h.fail(w, r, op, err)
		return
	}
	seasons, err := h.deps.Seasons(r.Context())
	if err != nil {
		h.fail(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, seasons)
}

// HandleLadder handles GET /seasons/{season}/ladder.
func (h *SeasonsHandler) HandleLadder(w http.ResponseWriter, r *http.Request) {
	const op = "api.season_ladder"
	n, err := strconv.Atoi(chi.URLParam(r, "season"))
	if err != nil {
		writeError(w, WrapKind(op, ErrBadRequest, err))
		return
	}
	entries, err := h.deps.SeasonLadder(r.Context(), n)
	if err != nil {
		h.fail(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}
