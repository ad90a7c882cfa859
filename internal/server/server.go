// Package server exposes the HTTP interface: GET /one and GET /two render
// the rows read from the first and second datasource, /healthz pings both
// pools and /metrics serves Prometheus metrics.
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/koustreak/multidatasource/internal/logger"
)

// Config configures the HTTP listener.
type Config struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

const defaultShutdownTimeout = 15 * time.Second

// Server runs an http.Server until its context is cancelled.
type Server struct {
	srv             *http.Server
	shutdownTimeout time.Duration
	log             *logger.Logger
}

// New wraps h in an http.Server configured from cfg.
func New(cfg Config, h http.Handler, log *logger.Logger) *Server {
	if log == nil {
		log = logger.Nop()
	}
	shutdown := cfg.ShutdownTimeout
	if shutdown <= 0 {
		shutdown = defaultShutdownTimeout
	}

	return &Server{
		srv: &http.Server{
			Addr:              cfg.Addr,
			Handler:           h,
			ReadTimeout:       cfg.ReadTimeout,
			ReadHeaderTimeout: cfg.ReadTimeout,
			WriteTimeout:      cfg.WriteTimeout,
		},
		shutdownTimeout: shutdown,
		log:             log,
	}
}

// Run listens on the configured address and serves until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is done, then drains in-flight
// requests for up to the shutdown timeout.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.With().Str("addr", ln.Addr().String()).Logger().Info("http server listening")
		errCh <- s.srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.log.Info("shutting down http server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()

	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
