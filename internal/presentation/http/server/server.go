// Package server owns the process's single HTTP listener.
package server

import (
	"context"
	"errors"
	"net"
	"net/http"

	"github.com/AtRiskMedia/pulsetrack-go/internal/application/container"
	"github.com/AtRiskMedia/pulsetrack-go/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/pulsetrack-go/internal/presentation/http/routes"
	"github.com/AtRiskMedia/pulsetrack-go/pkg/config"
)

// Server binds the collection and dashboard routes to one listener whose
// lifecycle is driven by startup.
type Server struct {
	inner  *http.Server
	logger *logging.ChanneledLogger
}

// New builds the route table for the container and wires the listener with
// the configured timeouts, so a stalled client cannot pin a connection open.
func New(port string, c *container.Container) *Server {
	return &Server{
		inner: &http.Server{
			Addr:         net.JoinHostPort("", port),
			Handler:      routes.SetupRoutes(c),
			ReadTimeout:  config.ServerReadTimeout,
			WriteTimeout: config.ServerWriteTimeout,
			IdleTimeout:  config.ServerIdleTimeout,
		},
		logger: c.Logger,
	}
}

// Addr returns the address the listener binds to.
func (s *Server) Addr() string { return s.inner.Addr }

// Start serves requests until Stop is called or the listener fails. A clean
// shutdown is not an error.
func (s *Server) Start() error {
	s.logger.System().Info("HTTP server listening", "address", s.inner.Addr)
	if err := s.inner.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop drains in-flight requests and closes the listener, bounded by ctx.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Shutdown().Info("Draining HTTP connections")
	return s.inner.Shutdown(ctx)
}
