package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"learnloop/internal/apperrors"
)

// respondJSON writes a JSON response body with the given status
func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			log.Printf("Failed to encode response: %v", err)
		}
	}
}

// respondError maps the error taxonomy onto HTTP statuses and logs the
// underlying cause.
func respondError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	message := "Internal server error"

	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		status = http.StatusNotFound
		message = "Not found"
	case errors.Is(err, apperrors.ErrConflict):
		status = http.StatusConflict
		message = "Conflict"
	case errors.Is(err, apperrors.ErrValidation):
		status = http.StatusBadRequest
		message = "Invalid request"
	case errors.Is(err, apperrors.ErrUpstreamUnavailable):
		status = http.StatusBadGateway
		message = "Upstream service unavailable, please retry"
	}

	if status == http.StatusInternalServerError {
		log.Printf("Internal error: %v", err)
	} else {
		log.Printf("Request failed (%d): %v", status, err)
	}

	respondJSON(w, status, map[string]string{"error": message})
}
