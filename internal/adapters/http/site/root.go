// Package site serves the HTML landing page with the current ladder.
package site

import (
	"bytes"
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/okian/rally/internal/domain/types"
)

// ErrRender is returned when the page template fails.
var ErrRender = errors.New("site render failed")

// LadderSource supplies the ranking shown on the page.
type LadderSource interface {
	Ladder(ctx context.Context) ([]types.LadderEntry, error)
}

// Register attaches the landing page at / to r.
func Register(_ context.Context, r chi.Router, src LadderSource) {
	if r == nil {
		panic("router is nil")
	}
	r.Get("/", NewRootHandler(src).HandleRoot)
}

// RootHandler handles root path requests.
type RootHandler struct {
	src LadderSource
}

// NewRootHandler creates a new root handler.
func NewRootHandler(src LadderSource) *RootHandler {
	return &RootHandler{src: src}
}

// HandleRoot handles GET / and renders the ladder as a table.
func (h *RootHandler) HandleRoot(w http.ResponseWriter, r *http.Request) {
	entries, err := h.src.Ladder(r.Context())
	if err != nil {
		http.Error(w, "ladder unavailable", http.StatusServiceUnavailable)
		return
	}
	var buf bytes.Buffer
	if err := indexTemplate.Execute(&buf, page{Entries: rows(entries)}); err != nil {
		http.Error(w, ErrRender.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}

type page struct {
	Entries []row
}

type row struct {
	types.LadderEntry
	Moved bool
	Up    bool
	Delta float64
}

func rows(entries []types.LadderEntry) []row {
	out := make([]row, len(entries))
	for i, e := range entries {
		out[i] = row{LadderEntry: e}
		if e.Delta != nil {
			out[i].Moved = true
			out[i].Delta = *e.Delta
			out[i].Up = *e.Delta >= 0
		}
	}
	return out
}
