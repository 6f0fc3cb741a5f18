// Package adminserver implements the bridge's operational HTTP surface:
// liveness/readiness probes, Prometheus scraping, and a JSON debug
// snapshot of tracked endpoints. Grounded on the teacher's
// internal/cloudhub/server/http.Server (net/http.Server + handler
// registration, start/shutdown over a context), generalized to route
// through github.com/gorilla/mux instead of the bare ServeMux since
// this module has no controller-runtime-style readiness wiring to lean
// on and gorilla/mux is already part of the module's dependency stack.
package adminserver

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/peeredge-io/shadowbridge/internal/endpoint"
	"github.com/peeredge-io/shadowbridge/pkg/log"
	"github.com/peeredge-io/shadowbridge/pkg/options"
)

// ReadinessCheck reports whether the bridge is ready to serve traffic
// (e.g. the default MQTT session is connected).
type ReadinessCheck func() error

// Server is the admin/health HTTP server.
type Server struct {
	server  *http.Server
	options *options.HttpOptions
}

// NewServer builds a Server exposing /healthz, /readyz, /metrics, and
// /debug/endpoints against opts.Addr.
func NewServer(opts *options.HttpOptions, registry *endpoint.Registry, ready ReadinessCheck) *Server {
	r := mux.NewRouter()

	r.HandleFunc("/healthz", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}).Methods(http.MethodGet)

	r.HandleFunc("/readyz", func(w http.ResponseWriter, req *http.Request) {
		if ready != nil {
			if err := ready(); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte(err.Error()))
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}).Methods(http.MethodGet)

	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	r.HandleFunc("/debug/endpoints", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(registry.Snapshot()); err != nil {
			log.Warn(err, "failed to encode endpoint snapshot")
		}
	}).Methods(http.MethodGet)

	return &Server{
		server: &http.Server{
			Addr:    opts.Addr,
			Handler: r,
		},
		options: opts,
	}
}

// Start runs the HTTP server until ctx is cancelled, then shuts it down
// gracefully with a 5s timeout.
func (s *Server) Start(ctx context.Context) error {
	log.Info("starting admin server", "addr", s.server.Addr)

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.server.Shutdown(shutdownCtx)
	}
}
