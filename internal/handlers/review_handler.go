package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"

	"learnloop/internal/apperrors"
	"learnloop/internal/models"
	"learnloop/internal/service"
)

// ReviewHandler handles the direct review-item HTTP surface
type ReviewHandler struct {
	reviews  *service.ReviewService
	validate *validator.Validate
}

// NewReviewHandler creates a new review handler
func NewReviewHandler(reviews *service.ReviewService) *ReviewHandler {
	return &ReviewHandler{
		reviews:  reviews,
		validate: validator.New(),
	}
}

// ListDue returns the owner's due items for a deck
// GET /api/items/{deck}/due
func (h *ReviewHandler) ListDue(w http.ResponseWriter, r *http.Request) {
	ownerID := OwnerFromContext(r.Context())
	deck := models.Deck(r.PathValue("deck"))

	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}

	items, err := h.reviews.ListDue(ownerID, deck, limit)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"deck":      deck,
		"due_count": len(items),
		"items":     items,
	})
}

// AddItem creates a new review item in a deck
// POST /api/items/{deck}
func (h *ReviewHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	ownerID := OwnerFromContext(r.Context())
	deck := models.Deck(r.PathValue("deck"))

	var input service.AddItemInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		respondError(w, fmt.Errorf("malformed body: %w", apperrors.ErrValidation))
		return
	}
	if err := h.validate.Struct(input); err != nil {
		respondError(w, fmt.Errorf("%v: %w", err, apperrors.ErrValidation))
		return
	}

	item, err := h.reviews.AddItem(ownerID, deck, input)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, item)
}

// ImportPoints bulk-inserts auto-extracted learning points
// POST /api/items/import
func (h *ReviewHandler) ImportPoints(w http.ResponseWriter, r *http.Request) {
	ownerID := OwnerFromContext(r.Context())

	var body struct {
		Points []service.ExtractedPoint `json:"points"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondError(w, fmt.Errorf("malformed body: %w", apperrors.ErrValidation))
		return
	}

	items, err := h.reviews.ImportExtractedPoints(ownerID, body.Points)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"points_inserted": len(items),
		"items":           items,
	})
}

// SubmitReview applies one self-graded quality rating to an item
// POST /api/items/{deck}/{id}/review
func (h *ReviewHandler) SubmitReview(w http.ResponseWriter, r *http.Request) {
	ownerID := OwnerFromContext(r.Context())

	itemID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		respondError(w, fmt.Errorf("invalid item id: %w", apperrors.ErrValidation))
		return
	}

	var body struct {
		Quality int `json:"quality"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondError(w, fmt.Errorf("malformed body: %w", apperrors.ErrValidation))
		return
	}

	item, err := h.reviews.SubmitReview(ownerID, itemID, body.Quality)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, item)
}

// Stats summarises the owner's items in a deck
// GET /api/items/{deck}/stats
func (h *ReviewHandler) Stats(w http.ResponseWriter, r *http.Request) {
	ownerID := OwnerFromContext(r.Context())
	deck := models.Deck(r.PathValue("deck"))

	stats, err := h.reviews.Stats(ownerID, deck)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, stats)
}
