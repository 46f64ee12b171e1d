package api

import (
	"encoding/json"
	"net/http"
)

// HealthResponse represents the health check response
type HealthResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// HandleHealth handles GET requests to the liveness probe endpoint
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	response := HealthResponse{
		Status:  "healthy",
		Message: "go-odm is running",
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(response)
}

// ReadyResponse represents the readiness probe response
type ReadyResponse struct {
	Ready  bool   `json:"ready"`
	Status string `json:"status"`
}

// HandleReady handles GET requests to the readiness probe endpoint. It
// reports 503 until every registered model has synced its indexes and run
// its migrations, so a load balancer never routes to a half-initialized
// process.
func (h *Handler) HandleReady(w http.ResponseWriter, r *http.Request) {
	ready := h.registry.Ready()
	response := ReadyResponse{Ready: ready, Status: "ready"}

	w.Header().Set("Content-Type", "application/json")
	if !ready {
		response.Status = "initializing"
		w.WriteHeader(http.StatusServiceUnavailable)
	} else {
		w.WriteHeader(http.StatusOK)
	}
	json.NewEncoder(w).Encode(response)
}
