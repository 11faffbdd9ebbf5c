package httpx

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/haukened/upid"
	"github.com/haukened/upid/internal/app"
)

type issueRequest struct {
	Prefix string `json:"prefix"`
}

// upidView is the JSON representation of an identifier.
type upidView struct {
	ID           string     `json:"id"`
	Prefix       string     `json:"prefix"`
	Version      string     `json:"version"`
	Milliseconds int64      `json:"milliseconds"`
	Time         time.Time  `json:"time"`
	UUID         string     `json:"uuid"`
	Registered   bool       `json:"registered"`
	IssuedAt     *time.Time `json:"issued_at,omitempty"`
}

type listView struct {
	Prefix string     `json:"prefix"`
	Count  int        `json:"count"`
	UPIDs  []upidView `json:"upids"`
}

func viewOf(d app.Details) upidView {
	v := upidView{
		ID:           d.ID.String(),
		Prefix:       d.Prefix,
		Version:      d.Version,
		Milliseconds: d.Milliseconds,
		Time:         d.Time,
		UUID:         d.UUID.String(),
		Registered:   d.Registered,
	}
	if d.Registered {
		at := d.IssuedAt
		v.IssuedAt = &at
	}
	return v
}

func recordView(rec app.Record) upidView {
	d := app.Describe(rec.ID)
	d.Registered = true
	d.IssuedAt = rec.IssuedAt
	return viewOf(d)
}

// handleIssue handles POST /api/upid.
func (h *Handler) handleIssue(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	maxBody := h.MaxBody
	if maxBody <= 0 {
		maxBody = DefaultMaxBody
	}
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody))
	dec.DisallowUnknownFields()
	var req issueRequest
	if err := dec.Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.writeError(ctx, w, http.StatusRequestEntityTooLarge, "body too large")
			return
		}
		h.writeError(ctx, w, http.StatusBadRequest, "invalid json")
		return
	}
	rec, err := h.Service.Issue(ctx, req.Prefix)
	if err != nil {
		h.mapServiceError(ctx, w, err)
		return
	}
	cid, _ := GetCorrelationID(ctx)
	slog.Info("issued", "domain", "http", "cid", cid, "prefix", rec.ID.Prefix())
	w.Header().Set("Location", "/api/upid/"+rec.ID.String())
	writeJSON(w, http.StatusCreated, recordView(rec))
}

// handleInspect handles GET /api/upid/{id}; id may be a UPID or a UUID.
func (h *Handler) handleInspect(w http.ResponseWriter, r *http.Request) {
	d, err := h.Service.Inspect(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.mapServiceError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, viewOf(d))
}

// handleList handles GET /api/upid?prefix=&limit=.
func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()
	prefix := strings.TrimSpace(q.Get("prefix"))
	if prefix == "" {
		h.writeError(ctx, w, http.StatusBadRequest, "prefix required")
		return
	}
	limit := 0
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			h.writeError(ctx, w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}
	recs, err := h.Service.List(ctx, prefix, limit)
	if err != nil {
		h.mapServiceError(ctx, w, err)
		return
	}
	out := listView{
		Prefix: upid.NormalizePrefix(prefix),
		Count:  len(recs),
		UPIDs:  make([]upidView, 0, len(recs)),
	}
	for _, rec := range recs {
		out.UPIDs = append(out.UPIDs, recordView(rec))
	}
	writeJSON(w, http.StatusOK, out)
}
