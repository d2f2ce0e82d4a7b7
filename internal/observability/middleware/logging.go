package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/httplog/v3"
)

// Logging emits one structured log line per request: method, path, status,
// duration. Health probe endpoints are skipped to keep the log readable
// under frequent polling.
//
// Bodies and non-trivial headers are never logged; completion requests
// carry conversation content.
func Logging(logger *slog.Logger) func(http.Handler) http.Handler {
	return httplog.RequestLogger(logger, &httplog.Options{
		Schema: httplog.SchemaECS.Concise(true),

		Skip: func(req *http.Request, _ int) bool {
			return req.URL.Path == "/livez" || req.URL.Path == "/readyz"
		},

		LogRequestHeaders:  []string{"Content-Type", "Origin"},
		LogResponseHeaders: []string{},
		LogRequestBody:     nil,
		LogResponseBody:    nil,

		// Panics are recovered by a dedicated middleware; httplog still
		// logs them.
		RecoverPanics: false,
	})
}

// SetLogAttrs attaches attributes to the current request's log line.
func SetLogAttrs(ctx context.Context, attrs ...slog.Attr) {
	httplog.SetAttrs(ctx, attrs...)
}
