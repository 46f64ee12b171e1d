package api

import (
	"github.com/gorilla/mux"
)

// RegisterRoutes registers all API routes with the given router
func (h *Handler) RegisterRoutes(router *mux.Router) {
	// Probes
	router.HandleFunc("/healthz", h.HandleHealth).Methods("GET")
	router.HandleFunc("/readyz", h.HandleReady).Methods("GET")

	// Model boot status
	router.HandleFunc("/models", h.HandleListModels).Methods("GET")
	router.HandleFunc("/models/{coll}", h.HandleGetModel).Methods("GET")

	// Index operations
	router.HandleFunc("/models/{coll}/indexes", h.HandleGetIndexes).Methods("GET")
	router.HandleFunc("/models/{coll}/sync", h.HandleSync).Methods("POST")
}
