package http

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/axondapurkita/order-notify/internal/adapters/primary/websocket"
)

// HealthChecker defines the interface for health check dependencies
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// HealthCheckFunc adapts a plain function to HealthChecker
type HealthCheckFunc func(ctx context.Context) error

func (f HealthCheckFunc) Ping(ctx context.Context) error {
	return f(ctx)
}

// DispatcherStatus is the view of the hub the health endpoints need
type DispatcherStatus interface {
	Running() bool
	Stats() websocket.Stats
}

// HealthHandler handles health check requests
type HealthHandler struct {
	db         HealthChecker
	dispatcher DispatcherStatus
	optional   map[string]HealthChecker
	startTime  time.Time
	version    string
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(db HealthChecker, dispatcher DispatcherStatus, version string) *HealthHandler {
	return &HealthHandler{
		db:         db,
		dispatcher: dispatcher,
		optional:   make(map[string]HealthChecker),
		startTime:  time.Now(),
		version:    version,
	}
}

// WithCheck adds a dependency whose failure degrades but does not fail readiness
func (h *HealthHandler) WithCheck(name string, checker HealthChecker) *HealthHandler {
	h.optional[name] = checker
	return h
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status     string           `json:"status"`
	Timestamp  string           `json:"timestamp"`
	Version    string           `json:"version,omitempty"`
	Uptime     string           `json:"uptime,omitempty"`
	Checks     map[string]Check `json:"checks,omitempty"`
	Dispatcher *websocket.Stats `json:"dispatcher,omitempty"`
}

// Check represents an individual health check result
type Check struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Latency string `json:"latency,omitempty"`
}

// HandleLiveness handles liveness probe requests (is the service running?)
func (h *HealthHandler) HandleLiveness(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// HandleReadiness handles readiness probe requests. The service is ready when
// the database answers and the dispatcher accepts events.
func (h *HealthHandler) HandleReadiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	checks := map[string]Check{
		"database":   h.check(ctx, h.db),
		"dispatcher": h.checkDispatcher(),
	}

	status := "healthy"
	for _, c := range checks {
		if c.Status != "healthy" {
			status = "unhealthy"
		}
	}

	code := http.StatusOK
	if status != "healthy" {
		code = http.StatusServiceUnavailable
	}
	WriteJSON(w, code, HealthResponse{
		Status:    status,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   h.version,
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
		Checks:    checks,
	})
}

// HandleHealth handles detailed health check requests (for monitoring/debugging)
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	checks := map[string]Check{
		"database":   h.check(ctx, h.db),
		"dispatcher": h.checkDispatcher(),
	}
	for name, checker := range h.optional {
		checks[name] = h.check(ctx, checker)
	}

	status := "healthy"
	for _, c := range checks {
		if c.Status != "healthy" {
			status = "degraded"
		}
	}

	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	response := struct {
		HealthResponse
		Memory struct {
			Alloc uint64 `json:"alloc_bytes"`
			Sys   uint64 `json:"sys_bytes"`
			NumGC uint32 `json:"num_gc"`
		} `json:"memory"`
		Goroutines int `json:"goroutines"`
	}{
		HealthResponse: HealthResponse{
			Status:    status,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Version:   h.version,
			Uptime:    time.Since(h.startTime).Round(time.Second).String(),
			Checks:    checks,
		},
		Goroutines: runtime.NumGoroutine(),
	}
	if h.dispatcher != nil {
		stats := h.dispatcher.Stats()
		response.Dispatcher = &stats
	}
	response.Memory.Alloc = memStats.Alloc
	response.Memory.Sys = memStats.Sys
	response.Memory.NumGC = memStats.NumGC

	code := http.StatusOK
	if status != "healthy" {
		code = http.StatusServiceUnavailable
	}
	WriteJSON(w, code, response)
}

func (h *HealthHandler) check(ctx context.Context, checker HealthChecker) Check {
	if checker == nil {
		return Check{Status: "unhealthy", Message: "not configured"}
	}

	start := time.Now()
	err := checker.Ping(ctx)
	latency := time.Since(start)

	if err != nil {
		return Check{
			Status:  "unhealthy",
			Message: err.Error(),
			Latency: latency.String(),
		}
	}
	return Check{Status: "healthy", Latency: latency.String()}
}

func (h *HealthHandler) checkDispatcher() Check {
	if h.dispatcher == nil || !h.dispatcher.Running() {
		return Check{Status: "unhealthy", Message: "dispatcher stopped"}
	}
	return Check{Status: "healthy"}
}

// RegisterRoutes registers health check routes
func (h *HealthHandler) RegisterRoutes(r chi.Router) {
	r.Get("/health", h.HandleHealth)
	r.Get("/health/live", h.HandleLiveness)
	r.Get("/health/ready", h.HandleReadiness)
}
