// Package server wires the HTTP surface of the dashboard: route handlers,
// middleware, and the server lifecycle.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"igreposter/pkg/config"
	"igreposter/pkg/logger"
)

// Server owns the HTTP listener.
type Server struct {
	httpServer *http.Server
	cfg        config.ServerConfig
	logger     logger.Logger
}

// New creates a server around an assembled handler set.
func New(cfg config.ServerConfig, handler *Handler, log logger.Logger) *Server {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Server{
		httpServer: &http.Server{
			Addr:    cfg.ListenAddr,
			Handler: NewRouter(handler, log, cfg.RequestsPerMinute),
		},
		cfg:    cfg,
		logger: log,
	}
}

// Run serves until ctx is canceled, then drains connections within the
// configured shutdown timeout.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.InfoWithFields("http server listening", map[string]interface{}{
			"addr": s.cfg.ListenAddr,
		})
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("shutting down http server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}
	return <-errCh
}
