package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/andysheldon-creator/OpenClaw-Optimised-sub003/internal/ctxkeys"
)

// readyCheckTimeout bounds the database probe behind /readyz.
const readyCheckTimeout = 5 * time.Second

// Pinger reports whether the backing database answers.
type Pinger interface {
	Ping(ctx context.Context) error
}

// StatsFunc produces the payload served by /stats.
type StatsFunc func(ctx context.Context) (any, error)

// VersionInfo is served by /version.
type VersionInfo struct {
	Version   string `json:"version"`
	BuildTime string `json:"build_time"`
	GitCommit string `json:"git_commit"`
}

// HealthStatus is the response body of the health endpoints.
type HealthStatus struct {
	Status    string                 `json:"status"` // "healthy", "unhealthy"
	Timestamp time.Time              `json:"timestamp"`
	Checks    map[string]CheckResult `json:"checks,omitempty"`
}

// CheckResult reports one readiness check.
type CheckResult struct {
	Status  string `json:"status"` // "pass", "fail"
	Message string `json:"message,omitempty"`
	Latency string `json:"latency,omitempty"`
}

// NewHandler assembles the diagnostics mux:
//
//	GET /healthz  liveness, 200 while the process runs
//	GET /readyz   readiness, 503 until the database answers
//	GET /stats    store statistics and known entities
//	GET /version  build metadata
//	GET /metrics  Prometheus exposition
//
// Every request gets a request id, echoed in X-Request-ID and attached
// to the context for downstream logging.
func NewHandler(db Pinger, stats StatsFunc, version VersionInfo, logger *zap.Logger) http.Handler {
	h := &handler{db: db, stats: stats, version: version, logger: logger}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", h.handleHealthz)
	mux.HandleFunc("GET /readyz", h.handleReadyz)
	mux.HandleFunc("GET /stats", h.handleStats)
	mux.HandleFunc("GET /version", h.handleVersion)
	mux.Handle("GET /metrics", promhttp.Handler())

	return h.requestLog(mux)
}

type handler struct {
	db      Pinger
	stats   StatsFunc
	version VersionInfo
	logger  *zap.Logger
}

// handleHealthz is the liveness probe; it only confirms the process is
// serving.
func (h *handler) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthStatus{
		Status:    "healthy",
		Timestamp: time.Now(),
	})
}

// handleReadyz is the readiness probe; it pings the database and fails
// closed when the store cannot answer.
func (h *handler) handleReadyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyCheckTimeout)
	defer cancel()

	status := HealthStatus{
		Status:    "healthy",
		Timestamp: time.Now(),
		Checks:    make(map[string]CheckResult),
	}

	start := time.Now()
	err := h.db.Ping(ctx)
	latency := time.Since(start)

	result := CheckResult{Status: "pass", Latency: latency.String()}
	if err != nil {
		result.Status = "fail"
		result.Message = err.Error()
		status.Status = "unhealthy"
		h.logger.Warn("readiness check failed",
			zap.String("check", "database"),
			zap.Error(err),
			zap.Duration("latency", latency),
		)
	}
	status.Checks["database"] = result

	if status.Status != "healthy" {
		writeJSON(w, http.StatusServiceUnavailable, status)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (h *handler) handleStats(w http.ResponseWriter, r *http.Request) {
	payload, err := h.stats(r.Context())
	if err != nil {
		h.logger.Error("stats endpoint failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, payload)
}

func (h *handler) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.version)
}

// requestLog assigns each request an id and logs it on completion.
func (h *handler) requestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := uuid.NewString()
		ctx := ctxkeys.WithRequestID(r.Context(), requestID)
		w.Header().Set("X-Request-ID", requestID)

		sw := &statusWriter{ResponseWriter: w}
		start := time.Now()
		next.ServeHTTP(sw, r.WithContext(ctx))

		h.logger.Debug("request served",
			zap.String("request_id", requestID),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", sw.status()),
			zap.Duration("elapsed", time.Since(start)),
		)
	})
}

// statusWriter captures the response status for the request log.
type statusWriter struct {
	http.ResponseWriter
	statusCode int
	written    bool
}

func (w *statusWriter) WriteHeader(code int) {
	if !w.written {
		w.statusCode = code
		w.written = true
		w.ResponseWriter.WriteHeader(code)
	}
}

func (w *statusWriter) Write(b []byte) (int, error) {
	if !w.written {
		w.WriteHeader(http.StatusOK)
	}
	return w.ResponseWriter.Write(b)
}

func (w *statusWriter) status() int {
	if !w.written {
		return http.StatusOK
	}
	return w.statusCode
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
