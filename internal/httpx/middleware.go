package httpx

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

type correlationIDCtxKey struct{}

var cidKey = correlationIDCtxKey{}

// CorrelationIDHeader is the HTTP header used for inbound/outbound correlation IDs.
const CorrelationIDHeader = "X-Correlation-ID"

// CorrelationIDMiddleware injects a per-request correlation ID into the request
// context and response headers. An incoming X-Correlation-ID is reused;
// otherwise a new UUID v4 is generated. Downstream handlers retrieve the value
// via GetCorrelationID.
func CorrelationIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cid := r.Header.Get(CorrelationIDHeader)
		if cid == "" {
			cid = uuid.New().String()
		}
		ctx := context.WithValue(r.Context(), cidKey, cid)
		w.Header().Set(CorrelationIDHeader, cid)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetCorrelationID extracts the correlation ID from the context. The second
// boolean return reports whether a value was present.
func GetCorrelationID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(cidKey).(string)
	return id, ok
}

// secureHeaders adds security and cache control headers. Every response is
// JSON or plain text, so nothing may be framed or cached.
func secureHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("Referrer-Policy", "no-referrer")
		w.Header().Set("Cache-Control", "no-store")
		w.Header().Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		next.ServeHTTP(w, r)
	})
}
