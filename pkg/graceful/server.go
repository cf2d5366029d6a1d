// Package graceful runs an HTTP server until its context ends and then
// drains in-flight requests.
package graceful

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"
)

const defaultDrainTimeout = 10 * time.Second

type Server struct {
	srv     *http.Server
	log     *slog.Logger
	timeout time.Duration
}

// NewServer wraps srv. drainTimeout bounds Shutdown once the context ends.
func NewServer(log *slog.Logger, srv *http.Server, drainTimeout time.Duration) *Server {
	if log == nil {
		log = slog.Default()
	}
	if drainTimeout <= 0 {
		drainTimeout = defaultDrainTimeout
	}
	return &Server{srv: srv, log: log, timeout: drainTimeout}
}

func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.srv.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve blocks until ctx ends and the server drained, or until serving
// fails.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	drained := make(chan error, 1)
	stop := context.AfterFunc(ctx, func() {
		s.log.Info("draining http server", slog.Duration("timeout", s.timeout))
		sctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()
		drained <- s.srv.Shutdown(sctx)
	})

	s.log.Info("http server listening", slog.String("addr", ln.Addr().String()))
	err := s.srv.Serve(ln)
	if !errors.Is(err, http.ErrServerClosed) {
		stop()
		return err
	}
	if stop() {
		// Closed by someone else before ctx ended.
		return nil
	}
	if err := <-drained; err != nil {
		return fmt.Errorf("drain http server: %w", err)
	}
	return nil
}
