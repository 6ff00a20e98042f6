package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"learnloop/internal/apperrors"
	"learnloop/internal/service"
)

// RecallHandler handles the recall session HTTP surface
type RecallHandler struct {
	recalls *service.RecallService
}

// NewRecallHandler creates a new recall handler
func NewRecallHandler(recalls *service.RecallService) *RecallHandler {
	return &RecallHandler{recalls: recalls}
}

// Check reports whether a recall session is worth starting
// GET /api/recall/check
func (h *RecallHandler) Check(w http.ResponseWriter, r *http.Request) {
	ownerID := OwnerFromContext(r.Context())

	result, err := h.recalls.Check(ownerID)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// Start begins a new recall session over the owner's due items. An empty due
// pool is a 200 with no session, not an error.
// POST /api/recall/start
func (h *RecallHandler) Start(w http.ResponseWriter, r *http.Request) {
	ownerID := OwnerFromContext(r.Context())

	var body struct {
		Level string `json:"level"`
	}
	if r.Body != nil {
		// Level is optional; an empty body is fine.
		_ = json.NewDecoder(r.Body).Decode(&body)
	}

	result, err := h.recalls.Start(r.Context(), ownerID, body.Level)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// Submit grades the learner's answers for a session
// POST /api/recall/{token}/submit
func (h *RecallHandler) Submit(w http.ResponseWriter, r *http.Request) {
	ownerID := OwnerFromContext(r.Context())
	token := r.PathValue("token")

	var body struct {
		Answers []string `json:"answers"`
		Level   string   `json:"level"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondError(w, fmt.Errorf("malformed body: %w", apperrors.ErrValidation))
		return
	}

	result, err := h.recalls.Submit(r.Context(), ownerID, token, body.Answers, body.Level)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}
