package api

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/Maksikos-ctrl/SystemMonitor/internal/errors"
	"github.com/Maksikos-ctrl/SystemMonitor/internal/history"
	"github.com/Maksikos-ctrl/SystemMonitor/internal/logger"
	"github.com/Maksikos-ctrl/SystemMonitor/internal/store"
)

const (
	// Version is reported by the health endpoint.
	Version = "1.0.0"

	readHeaderTimeout = 5 * time.Second
	writeTimeout      = 15 * time.Second
	shutdownTimeout   = 5 * time.Second
	requestTimeout    = 10 * time.Second
)

// Server exposes the current metrics and the persisted history over HTTP.
// The store is its source for live data; the repository may be nil when
// persistence is disabled, in which case the history endpoints report the
// feature as unavailable.
type Server struct {
	store      *store.Store
	repository history.Repository
	logger     logger.Logger
	httpServer *http.Server
}

type Config struct {
	Host string
	Port int
}

func NewServer(cfg Config, st *store.Store, repo history.Repository, log logger.Logger) *Server {
	s := &Server{
		store:      st,
		repository: repo,
		logger:     log,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/metrics", s.handleMetrics)
	mux.HandleFunc("/api/processes", s.handleProcesses)
	mux.HandleFunc("/api/gpu", s.handleGPU)
	mux.HandleFunc("/api/health", s.handleHealth)
	mux.HandleFunc("/api/history", s.handleHistory)
	mux.HandleFunc("/api/stats", s.handleStats)

	s.httpServer = &http.Server{
		Addr:              net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Handler:           withCORS(withLogging(log, mux)),
		ReadHeaderTimeout: readHeaderTimeout,
		WriteTimeout:      writeTimeout,
	}

	return s
}

// Start blocks serving requests until the listener fails or Shutdown is
// called. http.ErrServerClosed is swallowed as a normal shutdown.
func (s *Server) Start() error {
	errFactory := errors.New()

	s.logger.Info().
		Str("addr", s.httpServer.Addr).
		Msg("HTTP API listening")

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return errFactory.Wrap(errors.ErrInitFailed, err)
	}

	return nil
}

// Shutdown drains in-flight requests within a bounded grace period.
func (s *Server) Shutdown(ctx context.Context) error {
	errFactory := errors.New()

	ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return errFactory.Wrap(errors.ErrShutdownFailed, err)
	}

	s.logger.Info().Msg("HTTP API stopped")

	return nil
}

func withLogging(log logger.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Dur("elapsed", time.Since(start)).
			Msg("Request handled")
	})
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code errors.ErrorCode, msg string) {
	writeJSON(w, status, map[string]string{
		"error": msg,
		"code":  string(code),
	})
}

func requireGet(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, errors.ErrInvalidArgument, "method not allowed")
		return false
	}
	return true
}
