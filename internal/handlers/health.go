package handlers

import (
	"net/http"
	"runtime"
	"time"

	"image-proxy/internal/startup"
)

const (
	statusHealthy  = "healthy"
	statusDegraded = "degraded"
)

// HealthResponse contains the health check response
type HealthResponse struct {
	Status  string `json:"status"`
	Ready   bool   `json:"ready"`
	Version string `json:"version"`
	Uptime  string `json:"uptime"`
	Engine  string `json:"engine"`

	// Memory pressure
	MemoryUsage  float64 `json:"memoryUsage"`
	MemoryBytes  int64   `json:"memoryBytes,omitempty"`
	MemoryLimit  int64   `json:"memoryLimit,omitempty"`
	MemoryPaused bool    `json:"memoryPaused"`

	// System info
	GoVersion    string `json:"goVersion"`
	NumCPU       int    `json:"numCpu"`
	NumGoroutine int    `json:"numGoroutine"`
}

// HealthCheck returns the health status of the service. A paused memory
// monitor degrades the status but the endpoint still answers 200, since
// the proxy keeps serving through the bypass path.
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	current, limit, usage := h.monitor.GetStats()
	paused := h.monitor.IsPaused()

	response := HealthResponse{
		Status:       statusHealthy,
		Ready:        !paused,
		Version:      startup.Version,
		Uptime:       h.uptime().String(),
		Engine:       h.engineName(),
		MemoryUsage:  usage,
		MemoryBytes:  current,
		MemoryLimit:  limit,
		MemoryPaused: paused,
		GoVersion:    runtime.Version(),
		NumCPU:       runtime.NumCPU(),
		NumGoroutine: runtime.NumGoroutine(),
	}
	if paused {
		response.Status = statusDegraded
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)

	if r.Method != http.MethodHead {
		writeJSON(w, response)
	}
}

// LivenessCheck is a simple liveness probe (always returns 200 if server is running)
func (h *Handlers) LivenessCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	// For HEAD requests, only send headers (no body)
	if r.Method != http.MethodHead {
		writeJSON(w, map[string]string{
			"status": "alive",
		})
	}
}

// ReadinessCheck returns 503 while the memory monitor has paused transcoding
func (h *Handlers) ReadinessCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	status := "ready"
	if h.monitor.IsPaused() {
		status = "memory_pressure"
		w.WriteHeader(http.StatusServiceUnavailable)
	} else {
		w.WriteHeader(http.StatusOK)
	}

	if r.Method != http.MethodHead {
		writeJSONStatus(w, status)
	}
}

func (h *Handlers) uptime() time.Duration {
	if h.startTime.IsZero() {
		return 0
	}
	return time.Since(h.startTime).Round(time.Second)
}

func (h *Handlers) engineName() string {
	if h.pipeline == nil {
		return ""
	}
	return h.pipeline.EngineName()
}
