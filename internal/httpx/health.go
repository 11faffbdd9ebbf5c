package httpx

import (
	"log/slog"
	"net/http"
)

type statusView struct {
	Status string `json:"status"`
}

// handleHealth reports liveness. It never touches the registry.
func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, statusView{Status: "ok"})
}

// handleReady reports whether the registry answers. Without a probe the
// service is always ready.
func (h *Handler) handleReady(w http.ResponseWriter, r *http.Request) {
	if h.Readiness != nil {
		if err := h.Readiness(r.Context()); err != nil {
			cid, _ := GetCorrelationID(r.Context())
			slog.Warn("readiness probe failed", "domain", "http", "cid", cid, "error", err)
			h.writeError(r.Context(), w, http.StatusServiceUnavailable, "not ready")
			return
		}
	}
	writeJSON(w, http.StatusOK, statusView{Status: "ready"})
}
