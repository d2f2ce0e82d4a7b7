package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
)

// requestIDHeader carries the request id between the gateway and its
// clients, in both directions.
const requestIDHeader = "X-Request-ID"

// RequestIDContextKey keys the request id in a request context.
type RequestIDContextKey struct{}

// RequestIDGeneration ensures every request carries an id: the client's
// header value when present, a fresh UUID otherwise. The id is stored in
// the request context for downstream middlewares and handlers.
func RequestIDGeneration(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			if ctxID, ok := r.Context().Value(RequestIDContextKey{}).(string); ok && ctxID != "" {
				id = ctxID
			} else {
				id = uuid.NewString()
			}
		}

		ctx := context.WithValue(r.Context(), RequestIDContextKey{}, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequestIDPropagation reflects the request id outward: as a response
// header for client correlation and as an attribute on the request log
// line. The header is set before the handler runs so it survives panic
// recovery.
func RequestIDPropagation(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id, ok := r.Context().Value(RequestIDContextKey{}).(string); ok && id != "" {
			w.Header().Set(requestIDHeader, id)
			SetLogAttrs(r.Context(), slog.String("request_id", id))
		}

		next.ServeHTTP(w, r)
	})
}
