// Package ops serves the health and metrics endpoints.
package ops

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

// HealthFunc reports component health; the map is rendered as JSON.
type HealthFunc func() map[string]string

// Server is the operational HTTP endpoint: /health and /metrics.
type Server struct {
	srv    *http.Server
	health HealthFunc
}

func NewServer(addr string, registry *prometheus.Registry, health HealthFunc) *Server {
	s := &Server{health: health}

	r := mux.NewRouter()
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)

	s.srv = &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	return s
}

// Start serves in the background until Shutdown.
func (s *Server) Start() {
	go func() {
		log.Info().Str("addr", s.srv.Addr).Msg("Ops server listening")
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("Ops server failed")
		}
	}()
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	status := map[string]string{"status": "ok"}
	if s.health != nil {
		status = s.health()
	}

	code := http.StatusOK
	for _, v := range status {
		if v != "ok" {
			code = http.StatusServiceUnavailable
			break
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(status)
}
