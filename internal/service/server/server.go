package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/phygtl/ar-asset-cache/internal/metrics"
	"github.com/phygtl/ar-asset-cache/internal/port"
	"github.com/phygtl/ar-asset-cache/internal/service/placement"
)

// Config contains HTTP server configuration
type Config struct {
	BindAddr     string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// DefaultConfig returns default server configuration
func DefaultConfig() *Config {
	return &Config{
		BindAddr:     "0.0.0.0:8080",
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 15 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}
}

// CacheProbe answers offline cache lookups
type CacheProbe interface {
	IsCached(identifier string) (bool, string)
}

// Server represents the HTTP API server
type Server struct {
	config       *Config
	store        port.Store
	logger       *zap.Logger
	server       *http.Server
	apiHandler   *APIHandler
	debugHandler *DebugHandler
}

// New creates a new HTTP server
func New(
	cfg *Config,
	store port.Store,
	placements *placement.Manager,
	cache CacheProbe,
	fs port.CacheFileSystem,
	latency *metrics.LatencyTracker,
	logger *zap.Logger,
) *Server {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	s := &Server{
		config: cfg,
		store:  store,
		logger: logger,
	}

	s.apiHandler = NewAPIHandler(placements, cache, logger)
	s.debugHandler = NewDebugHandler(store, fs, latency, logger)

	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("/health", s.handleHealth)

	// Placement catalog
	mux.HandleFunc("GET /api/placeables", s.apiHandler.HandleList)
	mux.HandleFunc("POST /api/placeables/{name}/download", s.apiHandler.HandleDownload)
	mux.HandleFunc("POST /api/placeables/{name}/select", s.apiHandler.HandleSelect)
	mux.HandleFunc("GET /api/cache", s.apiHandler.HandleCacheLookup)

	// Debug endpoints
	mux.HandleFunc("/debug/stats", s.debugHandler.HandleStats)
	mux.HandleFunc("/debug/events", s.debugHandler.HandleEvents)

	s.server = &http.Server{
		Addr:         cfg.BindAddr,
		Handler:      LoggingMiddleware(logger)(mux),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return s
}

// Handler returns the root handler, including middleware
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", zap.String("addr", s.server.Addr))
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("stopping HTTP server")
	return s.server.Shutdown(ctx)
}

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if err := s.store.Ping(); err != nil {
		s.logger.Error("health check failed", zap.Error(err))
		http.Error(w, "Database connection failed", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"healthy","time":"` + time.Now().Format(time.RFC3339) + `"}`))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
