package api

import (
	"net/http"
	"time"

	"github.com/okian/rally/internal/adapters/export"
)

// LadderHandler serves the ranking and comparison routes.
type LadderHandler struct {
	responder
	deps LadderDependencies
}

// HandleLadder handles GET /ladder.
func (h *LadderHandler) HandleLadder(w http.ResponseWriter, r *http.Request) {
	entries, err := h.deps.Ladder(r.Context())
	if err != nil {
		h.fail(w, r, "api.ladder", err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// HandleExport handles GET /ladder/export.xlsx.
func (h *LadderHandler) HandleExport(w http.ResponseWriter, r *http.Request) {
	const op = "api.export_ladder"
	entries, err := h.deps.Ladder(r.Context())
	if err != nil {
		h.fail(w, r, op, err)
		return
	}
	table, err := h.deps.WinLossTable(r.Context())
	if err != nil {
		h.fail(w, r, op, err)
		return
	}
	book, err := export.LadderWorkbook(entries, table)
	if err != nil {
		h.fail(w, r, op, err)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="ladder.xlsx"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(book)
}

// HandleWinLoss handles GET /wlt.
func (h *LadderHandler) HandleWinLoss(w http.ResponseWriter, r *http.Request) {
	table, err := h.deps.WinLossTable(r.Context())
	if err != nil {
		h.fail(w, r, "api.win_loss", err)
		return
	}
	writeJSON(w, http.StatusOK, table)
}

// HandleHeadToHead handles GET /h2h?player1=&player2=.
func (h *LadderHandler) HandleHeadToHead(w http.ResponseWriter, r *http.Request) {
	const op = "api.head_to_head"
	id1, id2, err := pairFromQuery(r)
	if err != nil {
		writeError(w, err)
		return
	}
	res, err := h.deps.HeadToHead(r.Context(), id1, id2)
	if err != nil {
		h.fail(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// HandlePredict handles GET /predict?player1=&player2=.
func (h *LadderHandler) HandlePredict(w http.ResponseWriter, r *http.Request) {
	const op = "api.predict"
	id1, id2, err := pairFromQuery(r)
	if err != nil {
		writeError(w, err)
		return
	}
	res, err := h.deps.Predict(r.Context(), id1, id2)
	if err != nil {
		h.fail(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// HandleWeekly handles GET /weekly?start=&end=. Both bounds are RFC3339 and
// optional; a missing bound falls back to the current week.
func (h *LadderHandler) HandleWeekly(w http.ResponseWriter, r *http.Request) {
	const op = "api.weekly"
	start, err := timeFromQuery(r, "start")
	if err != nil {
		writeError(w, WrapKind(op, ErrBadRequest, err))
		return
	}
	end, err := timeFromQuery(r, "end")
	if err != nil {
		writeError(w, WrapKind(op, ErrBadRequest, err))
		return
	}
	sum, err := h.deps.WeeklySummary(r.Context(), start, end)
	if err != nil {
		h.fail(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

func pairFromQuery(r *http.Request) (int64, int64, error) {
	id1, err := queryID(r, "player1")
	if err != nil {
		return 0, 0, err
	}
	id2, err := queryID(r, "player2")
	if err != nil {
		return 0, 0, err
	}
	return id1, id2, nil
}

func timeFromQuery(r *http.Request, name string) (time.Time, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339, raw)
}
