package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"learnloop/internal/ai"
	"learnloop/internal/apperrors"
	"learnloop/internal/models"
	"learnloop/internal/srs"
)

// fakeItemStore is an in-memory ItemStore for service tests.
type fakeItemStore struct {
	items  map[int64]*models.ReviewItem
	nextID int64

	// failUpdates makes the next n UpdateSchedule calls return a version
	// conflict, to exercise the retry path.
	failUpdates int
	updateOrder []int64
}

func newFakeItemStore() *fakeItemStore {
	return &fakeItemStore{items: map[int64]*models.ReviewItem{}, nextID: 1}
}

func (f *fakeItemStore) Create(item *models.ReviewItem) error {
	for _, existing := range f.items {
		if existing.OwnerID == item.OwnerID && existing.Deck == item.Deck && existing.Prompt == item.Prompt {
			return fmt.Errorf("duplicate: %w", apperrors.ErrConflict)
		}
	}
	item.ID = f.nextID
	f.nextID++
	copied := *item
	f.items[item.ID] = &copied
	return nil
}

func (f *fakeItemStore) BulkCreate(ownerID int64, deck models.Deck, items []models.ReviewItem, nextReview time.Time) ([]models.ReviewItem, error) {
	inserted := []models.ReviewItem{}
	for _, item := range items {
		item.OwnerID = ownerID
		item.Deck = deck
		item.EaseFactor = models.InitialEaseFactor
		item.NextReviewAt = nextReview
		if err := f.Create(&item); err != nil {
			if errors.Is(err, apperrors.ErrConflict) {
				continue
			}
			return inserted, err
		}
		inserted = append(inserted, item)
	}
	return inserted, nil
}

func (f *fakeItemStore) GetByID(ownerID, itemID int64) (*models.ReviewItem, error) {
	item, ok := f.items[itemID]
	if !ok || item.OwnerID != ownerID {
		return nil, fmt.Errorf("item %d: %w", itemID, apperrors.ErrNotFound)
	}
	copied := *item
	return &copied, nil
}

func (f *fakeItemStore) due(ownerID int64, deck models.Deck, now time.Time) []*models.ReviewItem {
	var out []*models.ReviewItem
	for _, item := range f.items {
		if item.OwnerID != ownerID {
			continue
		}
		if deck != "" && item.Deck != deck {
			continue
		}
		qualifies := !item.NextReviewAt.After(now) ||
			(item.LastScore != nil && *item.LastScore < 70) ||
			item.ReviewCount == 0
		if qualifies {
			out = append(out, item)
		}
	}
	// Map iteration order is random; sort by ID first so ties resolve the
	// same way every run, then stable-sort into the selection order.
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	sort.SliceStable(out, func(i, j int) bool {
		si, sj := -1.0, -1.0
		if out[i].LastScore != nil {
			si = *out[i].LastScore
		}
		if out[j].LastScore != nil {
			sj = *out[j].LastScore
		}
		if si != sj {
			return si < sj
		}
		return out[i].NextReviewAt.Before(out[j].NextReviewAt)
	})
	return out
}

func (f *fakeItemStore) SelectDue(ownerID int64, deck models.Deck, now time.Time, limit int) ([]models.ReviewItem, error) {
	due := f.due(ownerID, deck, now)
	if len(due) > limit {
		due = due[:limit]
	}
	out := []models.ReviewItem{}
	for _, item := range due {
		out = append(out, *item)
	}
	return out, nil
}

func (f *fakeItemStore) CountDue(ownerID int64, deck models.Deck, now time.Time) (int, error) {
	return len(f.due(ownerID, deck, now)), nil
}

func (f *fakeItemStore) UpdateSchedule(ownerID, itemID, version int64, result srs.Result, score *float64) error {
	if f.failUpdates > 0 {
		f.failUpdates--
		return fmt.Errorf("simulated race: %w", apperrors.ErrConflict)
	}

	item, ok := f.items[itemID]
	if !ok || item.OwnerID != ownerID {
		return fmt.Errorf("item %d: %w", itemID, apperrors.ErrNotFound)
	}
	if item.Version != version {
		return fmt.Errorf("version mismatch: %w", apperrors.ErrConflict)
	}

	item.EaseFactor = result.EaseFactor
	item.IntervalDays = result.IntervalDays
	item.Repetitions = result.Repetitions
	item.NextReviewAt = result.NextReview
	item.ReviewCount++
	item.Version++
	if score != nil {
		s := *score
		item.LastScore = &s
	}
	f.updateOrder = append(f.updateOrder, itemID)
	return nil
}

func (f *fakeItemStore) Stats(ownerID int64, deck models.Deck, now time.Time) (*models.ItemStats, error) {
	stats := &models.ItemStats{}
	for _, item := range f.items {
		if item.OwnerID != ownerID || item.Deck != deck {
			continue
		}
		stats.Total++
		stats.TotalReviews += item.ReviewCount
		switch {
		case item.Repetitions >= 5:
			stats.Mastered++
		case item.Repetitions > 0:
			stats.Learning++
		}
	}
	stats.DueNow = len(f.due(ownerID, deck, now))
	stats.New = stats.Total - stats.Mastered - stats.Learning
	return stats, nil
}

// fakeSessionStore is an in-memory SessionStore.
type fakeSessionStore struct {
	sessions map[string]*models.RecallSession
	nextID   int64
}

func newFakeSessionStore() *fakeSessionStore {
	return &fakeSessionStore{sessions: map[string]*models.RecallSession{}, nextID: 1}
}

func (f *fakeSessionStore) Create(ownerID int64, token string, questions []models.Question, now time.Time) (*models.RecallSession, error) {
	session := &models.RecallSession{
		ID:        f.nextID,
		Token:     token,
		OwnerID:   ownerID,
		Status:    models.SessionInProgress,
		Questions: questions,
		CreatedAt: now,
	}
	f.nextID++
	f.sessions[token] = session
	copied := *session
	return &copied, nil
}

func (f *fakeSessionStore) GetByToken(ownerID int64, token string) (*models.RecallSession, error) {
	session, ok := f.sessions[token]
	if !ok || session.OwnerID != ownerID {
		return nil, fmt.Errorf("session %s: %w", token, apperrors.ErrNotFound)
	}
	copied := *session
	return &copied, nil
}

func (f *fakeSessionStore) Complete(ownerID int64, token string, answers []string, scores []models.ItemScore, overall float64, weakAreas []string, encouragement string, completedAt time.Time) error {
	session, ok := f.sessions[token]
	if !ok || session.OwnerID != ownerID {
		return fmt.Errorf("session %s: %w", token, apperrors.ErrNotFound)
	}
	if session.Status != models.SessionInProgress {
		return fmt.Errorf("session %s already completed: %w", token, apperrors.ErrConflict)
	}
	session.Status = models.SessionCompleted
	session.Answers = answers
	session.PerItemScores = scores
	session.OverallScore = &overall
	session.WeakAreas = weakAreas
	session.Encouragement = encouragement
	session.CompletedAt = &completedAt
	return nil
}

// fakeGenerator returns one question per item, or a canned error.
type fakeGenerator struct {
	err   error
	calls int
}

func (f *fakeGenerator) GenerateQuestions(_ context.Context, items []models.ReviewItem, _ string) (*ai.GenerationResult, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	result := &ai.GenerationResult{Encouragement: "Let's warm up!"}
	for _, item := range items {
		result.Questions = append(result.Questions, models.Question{
			ItemID:        item.ID,
			Text:          "What is " + item.Prompt + "?",
			Type:          "open",
			CorrectAnswer: item.Answer,
		})
	}
	return result, nil
}

// fakeGrader returns a fixed score per item, or a canned error.
type fakeGrader struct {
	err    error
	scores map[int64]float64
	calls  int
}

func (f *fakeGrader) GradeAnswers(_ context.Context, questions []models.Question, _ []string, _ string) (*ai.GradingResult, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	result := &ai.GradingResult{WeakAreas: []string{"fractions"}, Encouragement: "Nice work"}
	total := 0.0
	for _, q := range questions {
		score, ok := f.scores[q.ItemID]
		if !ok {
			score = 80
		}
		total += score
		result.PerItem = append(result.PerItem, models.ItemScore{ItemID: q.ItemID, Score: score})
	}
	if len(questions) > 0 {
		result.OverallScore = total / float64(len(questions))
	}
	return result, nil
}
