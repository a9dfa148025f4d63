package api

import (
	"encoding/json"
	"net/http"

	"github.com/okian/rally/internal/adapters/export"
)

// PlayersHandler serves /players routes.
type PlayersHandler struct {
	responder
	deps PlayerDependencies
}

type registerRequest struct {
	Name string `json:"name"`
}

// HandleRegister handles POST /players.
func (h *PlayersHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	const op = "api.register_player"
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, WrapKind(op, ErrBadRequest, err))
		return
	}
	p, err := h.deps.RegisterPlayer(r.Context(), req.Name)
	if err != nil {
		h.fail(w, r, op, err)
		return
	}
	w.Header().Set("Location", "/players/"+formatID(p.ID)+"/stats")
	writeJSON(w, http.StatusCreated, p)
}

// HandleRemove handles DELETE /players/{id}.
func (h *PlayersHandler) HandleRemove(w http.ResponseWriter, r *http.Request) {
	const op = "api.remove_player"
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.deps.RemovePlayer(r.Context(), id); err != nil {
		h.fail(w, r, op, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleStats handles GET /players/{id}/stats.
func (h *PlayersHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	const op = "api.player_stats"
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	st, err := h.deps.PlayerStats(r.Context(), id)
	if err != nil {
		h.fail(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// HandleMatches handles GET /players/{id}/matches.
func (h *PlayersHandler) HandleMatches(w http.ResponseWriter, r *http.Request) {
	const op = "api.player_matches"
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	history, err := h.deps.MatchHistory(r.Context(), id)
	if err != nil {
		h.fail(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, history)
}

// HandleRatingHistory handles GET /players/{id}/rating-history.
func (h *PlayersHandler) HandleRatingHistory(w http.ResponseWriter, r *http.Request) {
	const op = "api.rating_history"
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	points, err := h.deps.RatingHistory(r.Context(), id)
	if err != nil {
		h.fail(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, points)
}

// HandleRatingChart handles GET /players/{id}/rating-chart.png.
func (h *PlayersHandler) HandleRatingChart(w http.ResponseWriter, r *http.Request) {
	const op = "api.rating_chart"
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	p, err := h.deps.Player(r.Context(), id)
	if err != nil {
		h.fail(w, r, op, err)
		return
	}
	points, err := h.deps.RatingHistory(r.Context(), id)
	if err != nil {
		h.fail(w, r, op, err)
		return
	}
	png, err := export.RatingChart(p.Name, points)
	if err != nil {
		h.fail(w, r, op, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}
