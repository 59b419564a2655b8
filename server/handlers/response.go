// Package handlers implements the HTTP handlers for the gatherd API.
package handlers

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"
)

// MessageResponse is the uniform JSON error/status body
type MessageResponse struct {
	Message string `json:"message"`
}

// SendMessage writes a JSON {message} body with the given status code
func SendMessage(w http.ResponseWriter, logger *zap.Logger, statusCode int, message string) {
	SendJSON(w, logger, statusCode, MessageResponse{Message: message})
}

// SendJSON writes data as a JSON response with the given status code
func SendJSON(w http.ResponseWriter, logger *zap.Logger, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("Failed to encode response", zap.Error(err))
	}
}

// decodeJSON decodes the request body into dst
func decodeJSON(r *http.Request, dst interface{}) error {
	return json.NewDecoder(r.Body).Decode(dst)
}
