package handlers

import (
	"net/http"

	"github.com/matasmazeikaa/copyviral-sub002/internal/httpkit"
	"github.com/matasmazeikaa/copyviral-sub002/internal/pkg/errors"
)

// Cleanup handles POST /internal/cleanup: sweep stuck render jobs past
// the timeout. Authentication happens in the route's bearer-secret
// middleware. Safe to call repeatedly; a sweep right after another finds
// nothing left to fail.
func (h *Handler) Cleanup(w http.ResponseWriter, r *http.Request) {
	n, err := h.reaper.Sweep(r.Context())
	if err != nil {
		h.writeError(w, r, errors.Wrap(err, "cleanup.sweep", "reaper sweep failed"))
		return
	}

	httpkit.WriteJSON(w, http.StatusOK, map[string]any{
		"cleaned": n,
	})
}
