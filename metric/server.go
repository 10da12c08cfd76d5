package metric

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server exposes the metrics registry over HTTP for scraping.
type Server struct {
	httpServer *http.Server
	registry   *prometheus.Registry
}

// NewServer builds a metrics endpoint on the given port. A zero port
// disables serving; Start becomes a no-op.
func NewServer(port int, metrics *Metrics) (*Server, error) {
	registry := prometheus.NewRegistry()
	if err := metrics.Register(registry); err != nil {
		return nil, fmt.Errorf("metric: register collectors: %w", err)
	}

	s := &Server{registry: registry}
	if port > 0 {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
		s.httpServer = &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
	}
	return s, nil
}

// Start serves until Shutdown. Returns http.ErrServerClosed on clean stop.
func (s *Server) Start() error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.ListenAndServe()
}

// Shutdown stops the endpoint gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}
