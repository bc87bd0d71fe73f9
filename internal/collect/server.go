package collect

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"
)

// Server serves the collector's REST API.
type Server struct {
	handler    http.Handler
	port       int
	logger     *slog.Logger
	httpServer *http.Server
}

// NewServer creates a collector server for the registry.
func NewServer(reg *Registry, port int, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}
	router, err := NewRouter(reg, logger)
	if err != nil {
		return nil, err
	}
	return &Server{
		handler: router,
		port:    port,
		logger:  logger,
	}, nil
}

// Handler returns the collector's HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start binds the port and serves until ctx is cancelled. It returns once
// the listener is ready.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", s.port))
	if err != nil {
		return fmt.Errorf("failed to bind to port %d: %w", s.port, err)
	}

	s.httpServer = &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := s.httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.logger.Error("collector server error", "error", err)
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("collector server shutdown error", "error", err)
		}
	}()

	s.logger.Info("collector listening", "port", s.port)
	return nil
}
