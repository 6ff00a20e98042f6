package service

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"learnloop/internal/apperrors"
	"learnloop/internal/clock"
	"learnloop/internal/models"
	"learnloop/internal/srs"
)

// ReviewService handles the direct flashcard flows: adding items, listing due
// items and submitting a graded review for a single item outside of a recall
// session.
type ReviewService struct {
	items ItemStore
	clock clock.Clock
}

// NewReviewService creates a new review service
func NewReviewService(items ItemStore, clk clock.Clock) *ReviewService {
	return &ReviewService{items: items, clock: clk}
}

// AddItemInput is the learner-supplied content for a new review item.
type AddItemInput struct {
	Prompt           string `json:"prompt" validate:"required,max=512"`
	Answer           string `json:"answer" validate:"max=2000"`
	Explanation      string `json:"explanation" validate:"max=2000"`
	Example          string `json:"example" validate:"max=2000"`
	ImportanceWeight int    `json:"importance_weight" validate:"gte=0,lte=5"`
}

// ExtractedPoint is one auto-extracted learning point from completed lesson
// material.
type ExtractedPoint struct {
	Content          string `json:"content"`
	Explanation      string `json:"explanation"`
	Example          string `json:"example"`
	ImportanceWeight int    `json:"importance_weight"`
}

// AddItem creates a new review item that is due immediately
func (s *ReviewService) AddItem(ownerID int64, deck models.Deck, input AddItemInput) (*models.ReviewItem, error) {
	if !deck.Valid() {
		return nil, fmt.Errorf("unknown deck %q: %w", deck, apperrors.ErrValidation)
	}
	if strings.TrimSpace(input.Prompt) == "" {
		return nil, fmt.Errorf("prompt is required: %w", apperrors.ErrValidation)
	}

	weight := input.ImportanceWeight
	if weight == 0 {
		weight = 3
	}

	item := &models.ReviewItem{
		OwnerID:          ownerID,
		Deck:             deck,
		Prompt:           strings.TrimSpace(input.Prompt),
		Answer:           input.Answer,
		Explanation:      input.Explanation,
		Example:          input.Example,
		ImportanceWeight: weight,
		EaseFactor:       models.InitialEaseFactor,
		NextReviewAt:     s.clock.Now(),
	}

	if err := s.items.Create(item); err != nil {
		return nil, err
	}
	return item, nil
}

// ImportExtractedPoints bulk-inserts learning points extracted from a
// completed lesson. Their first review is scheduled for the next day.
func (s *ReviewService) ImportExtractedPoints(ownerID int64, points []ExtractedPoint) ([]models.ReviewItem, error) {
	items := make([]models.ReviewItem, 0, len(points))
	for _, p := range points {
		if strings.TrimSpace(p.Content) == "" {
			continue
		}
		items = append(items, models.ReviewItem{
			Prompt:           strings.TrimSpace(p.Content),
			Explanation:      p.Explanation,
			Example:          p.Example,
			ImportanceWeight: p.ImportanceWeight,
		})
	}

	tomorrow := s.clock.Now().AddDate(0, 0, 1)
	return s.items.BulkCreate(ownerID, models.DeckLearningPoint, items, tomorrow)
}

// ListDue returns the owner's due items for a deck, weakest first
func (s *ReviewService) ListDue(ownerID int64, deck models.Deck, limit int) ([]models.ReviewItem, error) {
	if !deck.Valid() {
		return nil, fmt.Errorf("unknown deck %q: %w", deck, apperrors.ErrValidation)
	}
	if limit <= 0 {
		limit = 20
	}
	return s.items.SelectDue(ownerID, deck, s.clock.Now(), limit)
}

// SubmitReview applies one self-graded quality rating (0-5, clamped) to an
// item, bypassing session orchestration. Returns the item with its updated
// schedule state.
func (s *ReviewService) SubmitReview(ownerID, itemID int64, quality int) (*models.ReviewItem, error) {
	if err := applySchedule(s.items, ownerID, itemID, quality, nil, s.clock.Now()); err != nil {
		return nil, err
	}
	return s.items.GetByID(ownerID, itemID)
}

// Stats summarises the owner's items in a deck
func (s *ReviewService) Stats(ownerID int64, deck models.Deck) (*models.ItemStats, error) {
	if !deck.Valid() {
		return nil, fmt.Errorf("unknown deck %q: %w", deck, apperrors.ErrValidation)
	}
	return s.items.Stats(ownerID, deck, s.clock.Now())
}

// applySchedule runs one atomic read-modify-write of an item's schedule
// state. On a version conflict (a concurrent review won the race) it re-reads
// and retries once; the scheduler is a pure function of current state, so the
// retry is safe.
func applySchedule(items ItemStore, ownerID, itemID int64, quality int, score *float64, now time.Time) error {
	for attempt := 0; attempt < 2; attempt++ {
		item, err := items.GetByID(ownerID, itemID)
		if err != nil {
			return err
		}

		state := srs.State{
			EaseFactor:   item.EaseFactor,
			IntervalDays: item.IntervalDays,
			Repetitions:  item.Repetitions,
		}
		result := srs.Update(state, quality, now)

		err = items.UpdateSchedule(ownerID, itemID, item.Version, result, score)
		if err == nil {
			return nil
		}
		if !errors.Is(err, apperrors.ErrConflict) {
			return err
		}
	}
	return fmt.Errorf("item %d kept changing concurrently: %w", itemID, apperrors.ErrConflict)
}
