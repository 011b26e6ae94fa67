package handlers

import (
	"net/http"
	"runtime"

	"lookout-gallery/internal/startup"
)

// HealthResponse contains the health check response.
type HealthResponse struct {
	Status        string `json:"status"`
	Version       string `json:"version"`
	HostConnected bool   `json:"hostConnected"`

	QueuePending  int `json:"queuePending"`
	QueueInFlight int `json:"queueInFlight"`
	LiveHandles   int `json:"liveHandles"`

	GoVersion    string `json:"goVersion"`
	NumGoroutine int    `json:"numGoroutine"`
}

// HealthCheck returns the health status of the service.
func (h *Handlers) HealthCheck(w http.ResponseWriter, _ *http.Request) {
	pending, inFlight, _ := h.sched.Snapshot()

	response := HealthResponse{
		Version:       startup.Version,
		HostConnected: h.host.Connected(),
		QueuePending:  pending,
		QueueInFlight: inFlight,
		LiveHandles:   h.blobs.Live(),
		GoVersion:     runtime.Version(),
		NumGoroutine:  runtime.NumGoroutine(),
	}

	if response.HostConnected {
		response.Status = "healthy"
	} else {
		response.Status = "degraded"
	}

	writeJSON(w, response)
}

// LivenessCheck always succeeds while the process is running.
func (h *Handlers) LivenessCheck(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// ReadinessCheck succeeds once the host connection is up.
func (h *Handlers) ReadinessCheck(w http.ResponseWriter, _ *http.Request) {
	if h.host.Connected() {
		w.WriteHeader(http.StatusOK)
		return
	}
	w.WriteHeader(http.StatusServiceUnavailable)
}
