package listener

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robbyt/go-supervisor/runnables/httpserver"
	"github.com/robbyt/go-supervisor/supervisor"
)

// Interface guards
var (
	_ supervisor.Runnable  = (*IngressServer)(nil)
	_ supervisor.Stateable = (*IngressServer)(nil)
)

// TimeoutOptions carries the HTTP server timeout knobs.
type TimeoutOptions struct {
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	DrainTimeout time.Duration
}

// IngressServer wraps the go-supervisor httpserver.Runner serving a
// listener's ingress routes. It runs as its own Runnable next to the
// listener under the same supervisor.
type IngressServer struct {
	id      string
	address string
	server  *httpserver.Runner

	logger *slog.Logger
	routes []httpserver.Route
	mutex  sync.Mutex
}

// NewIngressServer creates the ingress HTTP server for the given routes.
func NewIngressServer(
	id, address string,
	routes []httpserver.Route,
	timeouts TimeoutOptions,
	logger *slog.Logger,
) (*IngressServer, error) {
	if logger == nil {
		logger = slog.Default().WithGroup("listener.IngressServer").With("id", id)
	}
	s := &IngressServer{
		id:      id,
		address: address,
		routes:  routes,
		logger:  logger,
	}

	configCallback := func() (*httpserver.Config, error) {
		s.mutex.Lock()
		address := s.address
		routes := make([]httpserver.Route, len(s.routes))
		copy(routes, s.routes)
		s.mutex.Unlock()

		options := []httpserver.ConfigOption{}
		if timeouts.ReadTimeout > 0 {
			options = append(options, httpserver.WithReadTimeout(timeouts.ReadTimeout))
		}
		if timeouts.WriteTimeout > 0 {
			options = append(options, httpserver.WithWriteTimeout(timeouts.WriteTimeout))
		}
		if timeouts.IdleTimeout > 0 {
			options = append(options, httpserver.WithIdleTimeout(timeouts.IdleTimeout))
		}
		if timeouts.DrainTimeout > 0 {
			options = append(options, httpserver.WithDrainTimeout(timeouts.DrainTimeout))
		}
		return httpserver.NewConfig(address, routes, options...)
	}

	runner, err := httpserver.NewRunner(httpserver.WithConfigCallback(configCallback))
	if err != nil {
		return nil, fmt.Errorf("create ingress runner: %w", err)
	}
	s.server = runner
	return s, nil
}

// String returns a unique identifier for this server.
func (s *IngressServer) String() string {
	return fmt.Sprintf("IngressServer[%s]", s.id)
}

// Run starts the HTTP server and blocks until shutdown.
func (s *IngressServer) Run(ctx context.Context) error {
	s.logger.Info("Starting ingress server", "address", s.address, "routes", len(s.routes))
	return s.server.Run(ctx)
}

// Stop shuts the HTTP server down.
func (s *IngressServer) Stop() {
	s.logger.Info("Stopping ingress server", "address", s.address)
	s.server.Stop()
}

// GetState returns the underlying server state.
func (s *IngressServer) GetState() string {
	return s.server.GetState()
}

// IsReady reports whether the server is accepting requests.
func (s *IngressServer) IsReady() bool {
	return s.server.IsReady()
}

// GetStateChan returns a channel emitting server state changes.
func (s *IngressServer) GetStateChan(ctx context.Context) <-chan string {
	return s.server.GetStateChan(ctx)
}
