package observability

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/tphakala/birdnet-census/internal/logger"
	metricspkg "github.com/tphakala/birdnet-census/internal/observability/metrics"
)

// Endpoint serves the Prometheus /metrics endpoint while a command runs.
type Endpoint struct {
	server        *http.Server
	listenAddress string
	metrics       *Metrics

	mu       sync.Mutex
	listener net.Listener
}

// NewEndpoint creates an endpoint for the given listen address.
func NewEndpoint(listenAddress string, metrics *Metrics) *Endpoint {
	return &Endpoint{
		listenAddress: listenAddress,
		metrics:       metrics,
	}
}

// Start binds the listen address and serves until ctx is cancelled, then
// shuts the server down gracefully. The returned channel is closed once the
// server has stopped.
func (e *Endpoint) Start(ctx context.Context) (<-chan struct{}, error) {
	mux := http.NewServeMux()
	e.metrics.RegisterHandlers(mux)

	ln, err := net.Listen("tcp", e.listenAddress)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	e.listener = ln
	e.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	e.mu.Unlock()

	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Go(func() {
		getLogger().Info("Metrics endpoint starting", logger.String("address", ln.Addr().String()))
		if err := e.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			getLogger().Error("Metrics HTTP server error", logger.Error(err))
		}
	})

	go func() {
		defer close(done)
		<-ctx.Done()
		e.shutdown()
		wg.Wait()
	}()

	return done, nil
}

// Addr returns the bound address, useful when listening on port 0.
func (e *Endpoint) Addr() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.listener == nil {
		return e.listenAddress
	}
	return e.listener.Addr().String()
}

// shutdown stops the server within metricspkg.ShutdownTimeout.
func (e *Endpoint) shutdown() {
	getLogger().Info("Stopping metrics server")
	ctx, cancel := context.WithTimeout(context.Background(), metricspkg.ShutdownTimeout)
	defer cancel()
	if err := e.server.Shutdown(ctx); err != nil {
		getLogger().Error("Metrics server shutdown error", logger.Error(err))
	}
}

// GetMetrics returns the Metrics instance associated with this Endpoint.
func (e *Endpoint) GetMetrics() *Metrics {
	return e.metrics
}
