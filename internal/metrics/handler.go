package metrics

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"
)

// SnapshotProvider abstracts Manager for testing.
type SnapshotProvider interface {
	Snapshot(ctx context.Context) (map[string]int64, map[string]Summary, error)
}

// Handler returns an http.HandlerFunc that writes a JSON metrics snapshot.
// If token is non-empty, requests must include Authorization: Bearer <token>.
func Handler(provider SnapshotProvider, token string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if token != "" {
			got, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
		}
		counters, summaries, err := provider.Snapshot(r.Context())
		if err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(struct {
			Counters  map[string]int64   `json:"counters"`
			Summaries map[string]Summary `json:"summaries"`
		}{counters, summaries})
	}
}
