// Package rest exposes the resolution pipeline over HTTP.
package rest

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Server is the REST API server.
type Server struct {
	server  *http.Server
	handler *Handler
	log     *zap.Logger
}

// NewServer wires routes and middleware. registry may be nil to skip
// the /metrics endpoint.
func NewServer(port string, handler *Handler, registry *prometheus.Registry, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	log := logger.Named("rest")

	router := mux.NewRouter()

	router.Use(RecoveryMiddleware(log))
	router.Use(LoggingMiddleware(log))
	router.Use(CORSMiddleware)

	router.HandleFunc("/health", handler.HealthCheck).Methods("GET")

	if registry != nil {
		router.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{})).Methods("GET")
	}

	api := router.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/resolve", handler.Resolve).Methods("GET")

	api.HandleFunc("/stats", handler.ResolverStats).Methods("GET")
	api.HandleFunc("/cache/stats", handler.CacheStats).Methods("GET")
	api.HandleFunc("/cache/cleanup", handler.CacheCleanup).Methods("POST")

	api.HandleFunc("/fallback/stats", handler.FallbackStats).Methods("GET")
	api.HandleFunc("/fallback/export", handler.FallbackExport).Methods("GET")
	api.HandleFunc("/fallback/entries", handler.FallbackUpsert).Methods("POST")
	api.HandleFunc("/fallback/entries/{title}", handler.FallbackRemove).Methods("DELETE")

	return &Server{
		handler: handler,
		log:     log,
		server: &http.Server{
			Addr:    fmt.Sprintf(":%s", port),
			Handler: router,
		},
	}
}

// Start starts the server.
func (s *Server) Start() error {
	s.log.Info("rest server listening", zap.String("addr", s.server.Addr))
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
