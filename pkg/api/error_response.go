package api

import (
	"encoding/json"
	"net/http"
)

// ErrorResponse is the JSON body every failed admin request carries.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// writeError logs the failure and writes the standard JSON error body.
func (h *Handler) writeError(w http.ResponseWriter, statusCode int, message string) {
	h.log.Debug().Int("status", statusCode).Str("message", message).Msg("request failed")

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
		Code:    statusCode,
	})
}
