// Package api exposes the admin surface over HTTP: health and readiness
// probes, model boot status, live index state, and on-demand index resync.
package api

import (
	"github.com/rs/zerolog"

	"github.com/adfharrison1/go-odm/pkg/odm"
)

// Handler provides HTTP handlers for the admin API
type Handler struct {
	registry *odm.Registry
	log      zerolog.Logger
}

// NewHandler creates a new API handler with dependency injection
func NewHandler(registry *odm.Registry, log zerolog.Logger) *Handler {
	return &Handler{
		registry: registry,
		log:      log,
	}
}
