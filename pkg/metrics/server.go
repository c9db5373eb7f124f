package metrics

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server exposes GetRegistry() over HTTP at /metrics. Start blocks until
// Stop is called or the listener errors, the same Start(ctx)/Stop(ctx)/Port()
// shape dittofs uses for its auxiliary HTTP servers (API, metrics).
type Server struct {
	port   int
	server *http.Server
}

// NewServer builds a metrics Server bound to port. Call InitRegistry before
// NewServer so /metrics serves real collectors rather than an empty set.
func NewServer(port int) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(GetRegistry(), promhttp.HandlerOpts{}))
	return &Server{
		port:   port,
		server: &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux},
	}
}

// Port returns the TCP port the server listens on.
func (s *Server) Port() int { return s.port }

// Start runs the HTTP server until ctx is cancelled or it errors.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() { errCh <- s.server.ListenAndServe() }()

	select {
	case <-ctx.Done():
		return s.Stop(context.Background())
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}

// Stop gracefully shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
