package api

import "net/http"

// confirmToken must be passed as ?confirm= to wipe the ledger.
const confirmToken = "DELETE"

// AdminHandler serves maintenance routes.
type AdminHandler struct {
	responder
	deps AdminDependencies
}

// HandleRecompute handles POST /admin/recompute.
func (h *AdminHandler) HandleRecompute(w http.ResponseWriter, r *http.Request) {
	if err := h.deps.Recompute(r.Context()); err != nil {
		h.fail(w, r, "api.recompute", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "recomputed"})
}

// HandleClear handles DELETE /admin/data?confirm=DELETE.
func (h *AdminHandler) HandleClear(w http.ResponseWriter, r *http.Request) {
	const op = "api.clear_all"
	if r.URL.Query().Get("confirm") != confirmToken {
		writeError(w, NewKind(op, ErrConfirm))
		return
	}
	if err := h.deps.ClearAll(r.Context()); err != nil {
		h.fail(w, r, op, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
