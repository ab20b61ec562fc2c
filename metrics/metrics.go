// Package metrics exposes Prometheus-format metrics for the subnet
// services over a dedicated listener.
package metrics

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/VictoriaMetrics/metrics"
)

var (
	// SimulateRequests counts challenge requests accepted by a miner.
	SimulateRequests = metrics.NewCounter("automata_miner_simulate_requests_total")

	// SimulateErrors counts challenge requests that failed or were refused.
	SimulateErrors = metrics.NewCounter("automata_miner_simulate_errors_total")

	// RoundsCompleted counts validation rounds a validator finished.
	RoundsCompleted = metrics.NewCounter("automata_validator_rounds_completed_total")

	// WeightSubmissions counts weight submissions accepted by the registry.
	WeightSubmissions = metrics.NewCounter("automata_registry_weight_submissions_total")
)

// MetricsServer serves the metrics endpoint.
type MetricsServer struct {
	srv *http.Server
}

// New creates a metrics server for the given listen address. An empty
// address disables the server.
func New(name, addr string) (*MetricsServer, error) {
	if name == "" {
		return nil, fmt.Errorf("metrics namespace cannot be empty")
	}
	if addr == "" {
		return &MetricsServer{}, nil
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/metrics", func(w http.ResponseWriter, r *http.Request) {
		metrics.WritePrometheus(w, true)
	})

	return &MetricsServer{
		srv: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 5 * time.Second,
		},
	}, nil
}

// ListenAndServe starts serving metrics.
func (s *MetricsServer) ListenAndServe() error {
	if s.srv == nil {
		return nil
	}
	return s.srv.ListenAndServe()
}

// Shutdown gracefully stops the metrics server.
func (s *MetricsServer) Shutdown(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}
