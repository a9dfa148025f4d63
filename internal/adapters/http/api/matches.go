package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/okian/rally/internal/domain/model"
)

// Idempotency headers for POST /matches.
const (
	HeaderIdempotencyKey = "Idempotency-Key"
	HeaderReplayed       = "Idempotent-Replayed"
)

// MatchesHandler serves /matches routes.
type MatchesHandler struct {
	responder
	deps MatchDependencies
}

// HandleRecent handles GET /matches?limit=N. A missing limit uses the
// service default.
func (h *MatchesHandler) HandleRecent(w http.ResponseWriter, r *http.Request) {
	const op = "api.recent_matches"
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, NewKind(op, ErrBadRequest))
			return
		}
		limit = n
	}
	history, err := h.deps.RecentMatches(r.Context(), limit)
	if err != nil {
		h.fail(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, history)
}

type recordResponse struct {
	Match    model.Match `json:"match"`
	Replayed bool        `json:"replayed"`
}

// HandleRecord handles POST /matches. A repeated Idempotency-Key with the
// same body answers with the original match.
func (h *MatchesHandler) HandleRecord(w http.ResponseWriter, r *http.Request) {
	const op = "api.record_match"
	var req recordRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, WrapKind(op, ErrBadRequest, err))
		return
	}

	key := strings.TrimSpace(r.Header.Get(HeaderIdempotencyKey))
	m, replayed, err := h.deps.RecordMatch(r.Context(), req.toLedger(), key)
	if err != nil {
		h.fail(w, r, op, err)
		return
	}
	status := http.StatusCreated
	if replayed {
		w.Header().Set(HeaderReplayed, "true")
		status = http.StatusOK
	}
	w.Header().Set("Location", "/matches/"+formatID(m.ID))
	writeJSON(w, status, recordResponse{Match: m, Replayed: replayed})
}

// HandleDelete handles DELETE /matches/{id}.
func (h *MatchesHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	const op = "api.delete_match"
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.deps.DeleteMatch(r.Context(), id); err != nil {
		h.fail(w, r, op, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func formatID(id int64) string { return strconv.FormatInt(id, 10) }
