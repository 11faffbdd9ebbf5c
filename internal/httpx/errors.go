package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/haukened/upid"
	"github.com/haukened/upid/internal/app"
)

// writeError writes a JSON error body with given status code.
func (h *Handler) writeError(ctx context.Context, w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, struct {
		Error string `json:"error"`
	}{Error: msg})
	if cid, ok := GetCorrelationID(ctx); ok {
		slog.Debug("wrote error response", "domain", "http", "cid", cid, "status", code, "msg", msg)
	}
}

// mapServiceError maps codec and service errors to HTTP responses.
func (h *Handler) mapServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	cid, _ := GetCorrelationID(ctx)
	switch {
	case errors.Is(err, upid.ErrLength):
		slog.Info("service error", "domain", "http", "cid", cid, "code", "invalid_length")
		h.writeError(ctx, w, http.StatusBadRequest, "invalid length")
	case errors.Is(err, upid.ErrAlphabet):
		slog.Info("service error", "domain", "http", "cid", cid, "code", "invalid_character")
		h.writeError(ctx, w, http.StatusBadRequest, "invalid character")
	case errors.Is(err, upid.ErrOverflow):
		slog.Info("service error", "domain", "http", "cid", cid, "code", "overflow")
		h.writeError(ctx, w, http.StatusBadRequest, "invalid value")
	case errors.Is(err, upid.ErrTimestamp):
		slog.Warn("service error", "domain", "http", "cid", cid, "code", "timestamp_range")
		h.writeError(ctx, w, http.StatusBadRequest, "timestamp out of range")
	case errors.Is(err, app.ErrPrefixNotAllowed):
		slog.Warn("service error", "domain", "http", "cid", cid, "code", "prefix_not_allowed")
		h.writeError(ctx, w, http.StatusForbidden, "prefix not allowed")
	case errors.Is(err, app.ErrNotFound):
		slog.Info("service error", "domain", "http", "cid", cid, "code", "not_found")
		h.writeError(ctx, w, http.StatusNotFound, "not found")
	default:
		slog.Error("unhandled service error", "domain", "http", "cid", cid, "code", "unhandled", "error", err)
		h.writeError(ctx, w, http.StatusInternalServerError, "internal")
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
