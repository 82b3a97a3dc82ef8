package worker

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"
)

// HealthServer serves the worker's operational endpoints:
//   - /metrics: Prometheus metrics
//   - /health: Liveness probe (always 200 OK)
//   - /health/ready: Readiness probe (200 once the scheduler is running, 503 before)
//
// The server supports graceful shutdown via context cancellation.
type HealthServer struct {
	addr           string
	logger         *slog.Logger
	metricsHandler http.Handler
	isReady        atomic.Bool
	server         *http.Server
}

type healthResponse struct {
	Status string `json:"status"`
}

// NewHealthServer creates the operational endpoint server. It is not started
// until Start is called, and reports not-ready until SetReady(true).
func NewHealthServer(addr string, metricsHandler http.Handler, logger *slog.Logger) *HealthServer {
	return &HealthServer{
		addr:           addr,
		logger:         logger,
		metricsHandler: metricsHandler,
	}
}

// Start runs the HTTP server until the context is cancelled or the listener
// fails. On cancellation it shuts down gracefully with a 5-second timeout and
// returns http.ErrServerClosed.
func (h *HealthServer) Start(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", h.metricsHandler)
	mux.HandleFunc("/health", h.handleLiveness)
	mux.HandleFunc("/health/ready", h.handleReadiness)

	h.server = &http.Server{
		Addr:         h.addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		h.logger.Info("health server starting", slog.String("addr", h.addr))
		if err := h.server.ListenAndServe(); err != nil {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		h.logger.Info("health server shutting down")
		if err := h.server.Shutdown(shutdownCtx); err != nil {
			h.logger.Error("health server shutdown failed", slog.Any("error", err))
			return err
		}
		return http.ErrServerClosed

	case err := <-errChan:
		if err != http.ErrServerClosed {
			h.logger.Error("health server failed", slog.Any("error", err))
		}
		return err
	}
}

// SetReady flips the readiness state reported by /health/ready.
func (h *HealthServer) SetReady(ready bool) {
	h.isReady.Store(ready)
	h.logger.Info("health server readiness changed", slog.Bool("ready", ready))
}

func (h *HealthServer) handleLiveness(w http.ResponseWriter, r *http.Request) {
	writeHealth(w, http.StatusOK, "ok")
}

func (h *HealthServer) handleReadiness(w http.ResponseWriter, r *http.Request) {
	if h.isReady.Load() {
		writeHealth(w, http.StatusOK, "ok")
		return
	}
	writeHealth(w, http.StatusServiceUnavailable, "not ready")
}

func writeHealth(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(healthResponse{Status: msg})
}
