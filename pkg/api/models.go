package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/adfharrison1/go-odm/pkg/domain"
	"github.com/adfharrison1/go-odm/pkg/odm"
)

// IndexKeyResponse is one key of an index in a JSON response
type IndexKeyResponse struct {
	Field string `json:"field"`
	Type  string `json:"type"`
}

// IndexResponse represents one live index in a JSON response
type IndexResponse struct {
	Name               string             `json:"name"`
	Keys               []IndexKeyResponse `json:"keys"`
	Unique             bool               `json:"unique,omitempty"`
	Sparse             bool               `json:"sparse,omitempty"`
	ExpireAfterSeconds *int32             `json:"expire_after_seconds,omitempty"`
	Weights            map[string]int32   `json:"weights,omitempty"`
}

func indexResponse(idx domain.ExistingIndex) IndexResponse {
	keys := make([]IndexKeyResponse, 0, len(idx.Keys))
	for _, key := range idx.Keys {
		keys = append(keys, IndexKeyResponse{Field: key.Field, Type: string(key.Type)})
	}
	return IndexResponse{
		Name:               idx.Name,
		Keys:               keys,
		Unique:             idx.Options.Unique,
		Sparse:             idx.Options.Sparse,
		ExpireAfterSeconds: idx.Options.ExpireAfterSeconds,
		Weights:            idx.Options.Weights,
	}
}

// HandleListModels handles GET requests for all model boot statuses
func (h *Handler) HandleListModels(w http.ResponseWriter, r *http.Request) {
	statuses := h.registry.Statuses()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(statuses)
}

// HandleGetModel handles GET requests for one model's boot status
func (h *Handler) HandleGetModel(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	collName := vars["coll"]

	status, ok := h.registry.Status(collName)
	if !ok {
		h.writeError(w, http.StatusNotFound, "no registered model for collection "+collName)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(status)
}

// HandleGetIndexes handles GET requests for the live index state of a
// model's collection
func (h *Handler) HandleGetIndexes(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	collName := vars["coll"]

	coll, ok := h.registry.Collection(collName)
	if !ok {
		h.writeError(w, http.StatusNotFound, "no registered model for collection "+collName)
		return
	}

	existing, err := coll.ListIndexes(r.Context())
	if err != nil {
		h.log.Error().Err(err).Str("collection", collName).Msg("failed to list indexes")
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	indexes := make([]IndexResponse, 0, len(existing))
	for _, idx := range existing {
		indexes = append(indexes, indexResponse(idx))
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(indexes)
}

// HandleSync handles POST requests to re-run index reconciliation for one
// model. A sync pass that fails part way leaves earlier progress in place;
// calling this again resumes with the remainder.
func (h *Handler) HandleSync(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	collName := vars["coll"]

	report, err := h.registry.Resync(r.Context(), collName)
	if err != nil {
		h.log.Error().Err(err).Str("collection", collName).Msg("index resync failed")
		if errors.Is(err, odm.ErrModelNotFound) {
			h.writeError(w, http.StatusNotFound, err.Error())
			return
		}
		if report == nil {
			h.writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		// Partial progress: report what happened alongside the error.
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusConflict)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"error":  err.Error(),
			"report": report,
		})
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(report)
}
