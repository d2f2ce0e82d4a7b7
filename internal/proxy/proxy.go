package proxy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"glm-relay/internal/observability/middleware"
)

// Proxy is the OpenAI-compatible HTTP surface of the gateway. The outbound
// upstream call is not made here; it stays behind the UpstreamCaller the
// completions handler was built with.
type Proxy struct {
	handler http.Handler
	server  *http.Server
}

// New assembles the route table and middleware chain around the given
// completions handler.
func New(completions http.Handler, readiness ReadinessChecker, maxBodyBytes int64) (*Proxy, error) {
	if completions == nil {
		return nil, fmt.Errorf("completions handler cannot be nil")
	}

	mux := http.NewServeMux()
	mux.Handle("POST /v1/chat/completions", completions)
	mux.Handle("GET /v1/models", modelsHandler())
	mux.Handle("GET /livez", livenessHandler())
	mux.Handle("GET /readyz", readinessHandler(readiness))

	handler := applyMiddlewares(mux,
		middleware.RequestIDGeneration,
		middleware.TraceContextExtraction,
		middleware.Logging(slog.Default()),
		middleware.RequestIDPropagation,
		Recovery,
		RequestSizeLimit(maxBodyBytes),
	)

	return &Proxy{handler: handler}, nil
}

// Start begins serving on addr. It returns a channel carrying at most one
// runtime error; a clean shutdown produces none.
func (p *Proxy) Start(ctx context.Context, addr string) (<-chan error, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", addr, err)
	}

	p.server = &http.Server{
		Handler:           p.handler,
		ReadHeaderTimeout: 10 * time.Second,
		// No WriteTimeout: SSE responses stay open for the lifetime of the
		// upstream stream.
	}

	errCh := make(chan error, 1)
	go func() {
		defer close(errCh)
		if err := p.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	slog.InfoContext(ctx, "proxy listening", "addr", listener.Addr().String())
	return errCh, nil
}

// Shutdown gracefully stops the server, waiting for in-flight requests up
// to the context deadline.
func (p *Proxy) Shutdown(ctx context.Context) error {
	if p.server == nil {
		return nil
	}
	return p.server.Shutdown(ctx)
}
