// Package health содержит health check сервер.
package health

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

const checkTimeout = 3 * time.Second

// Server представляет health check сервер
type Server struct {
	server *http.Server
	store  DocumentReader
	// archive необязателен: без DB_DSN архив не подключается
	archive Pinger
	// scheduler необязателен
	scheduler StatusReporter
	logger    *zap.Logger
	now       func() time.Time
}

type response struct {
	Status    string                 `json:"status"`
	Timestamp string                 `json:"timestamp"`
	Checks    map[string]string      `json:"checks,omitempty"`
	Scheduler map[string]interface{} `json:"scheduler,omitempty"`
}

// NewServer создает новый health check сервер
func NewServer(port string, store DocumentReader, archive Pinger, scheduler StatusReporter, logger *zap.Logger) *Server {
	mux := http.NewServeMux()

	healthServer := &Server{
		server: &http.Server{
			Addr:              ":" + port,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
		store:     store,
		archive:   archive,
		scheduler: scheduler,
		logger:    logger,
		now:       time.Now,
	}

	mux.HandleFunc("/health", healthServer.healthHandler)
	mux.HandleFunc("/ready", healthServer.readyHandler)
	mux.HandleFunc("/live", healthServer.liveHandler)

	return healthServer
}

// Start запускает health check сервер
func (s *Server) Start() error {
	s.logger.Info("Starting health check server", zap.String("addr", s.server.Addr))
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to serve health checks: %w", err)
	}
	return nil
}

// Stop останавливает health check сервер
func (s *Server) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	s.logger.Info("Stopping health check server")
	return s.server.Shutdown(ctx)
}

// healthHandler обрабатывает запросы /health
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	checks, healthy := s.runChecks(r.Context())
	status, code := "healthy", http.StatusOK
	if !healthy {
		status, code = "unhealthy", http.StatusServiceUnavailable
	}
	body := response{Status: status, Checks: checks}
	if s.scheduler != nil {
		body.Scheduler = s.scheduler.GetStatus()
	}
	s.write(w, code, body)
}

// readyHandler обрабатывает запросы /ready
func (s *Server) readyHandler(w http.ResponseWriter, r *http.Request) {
	status, code := "ready", http.StatusOK
	if err := s.checkStore(); err != nil {
		s.logger.Error("Readiness check failed", zap.Error(err))
		status, code = "not ready", http.StatusServiceUnavailable
	}
	s.write(w, code, response{Status: status})
}

// liveHandler обрабатывает запросы /live
func (s *Server) liveHandler(w http.ResponseWriter, _ *http.Request) {
	s.write(w, http.StatusOK, response{Status: "alive"})
}

// runChecks проверяет все компоненты; архив проверяется только если подключен
func (s *Server) runChecks(ctx context.Context) (map[string]string, bool) {
	checks := map[string]string{"store": "ok"}
	healthy := true

	if err := s.checkStore(); err != nil {
		s.logger.Error("Health check failed", zap.String("check", "store"), zap.Error(err))
		checks["store"] = err.Error()
		healthy = false
	}

	if s.archive != nil {
		checks["archive"] = "ok"
		if err := s.checkArchive(ctx); err != nil {
			s.logger.Error("Health check failed", zap.String("check", "archive"), zap.Error(err))
			checks["archive"] = err.Error()
			healthy = false
		}
	}
	return checks, healthy
}

// checkStore проверяет, что файл данных читается
func (s *Server) checkStore() error {
	if s.store == nil {
		return fmt.Errorf("store is not initialized")
	}
	if _, err := s.store.Load(); err != nil {
		return fmt.Errorf("failed to read config document: %w", err)
	}
	return nil
}

// checkArchive проверяет подключение к базе архива
func (s *Server) checkArchive(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()
	if err := s.archive.Ping(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	return nil
}

func (s *Server) write(w http.ResponseWriter, code int, body response) {
	body.Timestamp = s.now().Format(time.RFC3339)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Debug("Failed to write health response", zap.Error(err))
	}
}
