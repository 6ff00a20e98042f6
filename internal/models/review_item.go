package models

import "time"

// Deck identifies which item pool a review item belongs to. All pools share
// the same scheduling engine.
type Deck string

const (
	DeckVocabulary    Deck = "vocabulary"
	DeckConcept       Deck = "concept"
	DeckLearningPoint Deck = "learning_point"
)

// Valid reports whether d is a known deck.
func (d Deck) Valid() bool {
	switch d {
	case DeckVocabulary, DeckConcept, DeckLearningPoint:
		return true
	}
	return false
}

// InitialEaseFactor is the scheduling ease assigned to newly created items.
const InitialEaseFactor = 2.5

// ReviewItem is one flashcard-like unit of knowledge together with its
// spaced-repetition schedule state. The content fields are opaque to the
// scheduler.
type ReviewItem struct {
	ID      int64 `json:"id"`
	OwnerID int64 `json:"owner_id"`
	Deck    Deck  `json:"deck"`

	Prompt           string `json:"prompt"`
	Answer           string `json:"answer,omitempty"`
	Explanation      string `json:"explanation,omitempty"`
	Example          string `json:"example,omitempty"`
	ImportanceWeight int    `json:"importance_weight"`

	EaseFactor   float64   `json:"ease_factor"`
	IntervalDays int       `json:"interval_days"`
	Repetitions  int       `json:"repetitions"`
	NextReviewAt time.Time `json:"next_review_at"`
	ReviewCount  int       `json:"review_count"`
	LastScore    *float64  `json:"last_score"`

	// Version increments on every schedule update and backs the
	// compare-and-swap guard against concurrent submissions.
	Version   int64     `json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

// ItemStats summarises one owner's items in a deck.
type ItemStats struct {
	Total        int `json:"total"`
	DueNow       int `json:"due_now"`
	Mastered     int `json:"mastered"`
	Learning     int `json:"learning"`
	New          int `json:"new"`
	TotalReviews int `json:"total_reviews"`
}
