package ruts

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
)

// Server runs a dispatcher on a web server adapter.
type Server struct {
	adapter    WebServerInterface
	dispatcher *RequestDispatcher
	config     WebConfig
	logger     zerolog.Logger
}

// NewServer mounts the dispatcher, the access log and the metrics endpoint on adapter.
func NewServer(adapter WebServerInterface, dispatcher *RequestDispatcher, config WebConfig, logger zerolog.Logger) *Server {
	adapter.Use(AccessLog(logger))
	dispatcher.MountMetrics(adapter, config.MetricsPath)
	dispatcher.Mount(adapter)
	if config.Development {
		for _, route := range dispatcher.Routes() {
			logger.Debug().
				Str("method", route.HTTPMethod).
				Str("path", route.Path).
				Str("execute", route.Execute).
				Msg("Route")
		}
	}
	return &Server{adapter: adapter, dispatcher: dispatcher, config: config, logger: logger}
}

// Adapter returns the underlying web server adapter.
func (s *Server) Adapter() WebServerInterface {
	return s.adapter
}

// Start starts listening; it blocks until the server stops.
func (s *Server) Start() error {
	addr := s.config.Addr()
	s.logger.Info().Str("addr", addr).Str("adapter", s.adapter.Name()).Msg("Starting server")
	if err := s.adapter.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop shuts the server down within the configured timeout.
func (s *Server) Stop(ctx context.Context) error {
	timeout := s.config.ShutdownTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	s.logger.Info().Msg("Shutting down server...")
	if err := s.adapter.Stop(ctx); err != nil {
		return err
	}
	s.logger.Info().Msg("Server shutdown complete")
	return nil
}

// Run starts the server and blocks until SIGINT or SIGTERM.
func (s *Server) Run() error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-errCh:
		return err
	case <-quit:
	}
	return s.Stop(context.Background())
}
