package service

import (
	"time"

	"learnloop/internal/models"
	"learnloop/internal/srs"
)

// ItemStore is the persistence contract for review items. Implemented by
// repository.ItemRepository; tests substitute fakes.
type ItemStore interface {
	Create(item *models.ReviewItem) error
	BulkCreate(ownerID int64, deck models.Deck, items []models.ReviewItem, nextReview time.Time) ([]models.ReviewItem, error)
	GetByID(ownerID, itemID int64) (*models.ReviewItem, error)
	SelectDue(ownerID int64, deck models.Deck, now time.Time, limit int) ([]models.ReviewItem, error)
	CountDue(ownerID int64, deck models.Deck, now time.Time) (int, error)
	UpdateSchedule(ownerID, itemID, version int64, result srs.Result, score *float64) error
	Stats(ownerID int64, deck models.Deck, now time.Time) (*models.ItemStats, error)
}

// SessionStore is the persistence contract for recall sessions.
type SessionStore interface {
	Create(ownerID int64, token string, questions []models.Question, now time.Time) (*models.RecallSession, error)
	GetByToken(ownerID int64, token string) (*models.RecallSession, error)
	Complete(ownerID int64, token string, answers []string, scores []models.ItemScore, overall float64, weakAreas []string, encouragement string, completedAt time.Time) error
}
