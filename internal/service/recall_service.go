package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"

	"github.com/google/uuid"

	"learnloop/internal/ai"
	"learnloop/internal/apperrors"
	"learnloop/internal/clock"
	"learnloop/internal/models"
	"learnloop/internal/srs"
)

// Message returned when a session start finds nothing to review. Not an
// error: an empty due pool is a normal state.
const noDueMessage = "All caught up! Nothing needs reviewing right now."

// RecallService orchestrates the recall session lifecycle: checking for due
// items, starting a session with generated questions, and submitting answers
// for grading and schedule fan-out.
type RecallService struct {
	items     ItemStore
	sessions  SessionStore
	generator ai.QuestionGenerator
	grader    ai.AnswerGrader
	fallback  ai.AnswerGrader // nil when fallback grading is disabled
	clock     clock.Clock

	// How many due candidates are pulled from the store, and how many of
	// those make it into one session.
	selectionWindow int
	batchSize       int
}

// RecallOption configures a RecallService.
type RecallOption func(*RecallService)

// WithFallbackGrader enables rule-based grading when the AI grader fails.
func WithFallbackGrader(g ai.AnswerGrader) RecallOption {
	return func(s *RecallService) { s.fallback = g }
}

// WithBatchSizes overrides the due-selection window and session batch size.
func WithBatchSizes(window, batch int) RecallOption {
	return func(s *RecallService) {
		if window > 0 {
			s.selectionWindow = window
		}
		if batch > 0 {
			s.batchSize = batch
		}
	}
}

// NewRecallService creates a new recall service
func NewRecallService(items ItemStore, sessions SessionStore, generator ai.QuestionGenerator, grader ai.AnswerGrader, clk clock.Clock, opts ...RecallOption) *RecallService {
	s := &RecallService{
		items:           items,
		sessions:        sessions,
		generator:       generator,
		grader:          grader,
		clock:           clk,
		selectionWindow: 10,
		batchSize:       5,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CheckResult reports whether a recall session is worth starting.
type CheckResult struct {
	HasPendingRecall     bool `json:"has_pending_recall"`
	ItemCount            int  `json:"item_count"`
	EstimatedTimeMinutes int  `json:"estimated_time_minutes"`
}

// Check reports due-item count and a rough session duration estimate without
// side effects.
func (s *RecallService) Check(ownerID int64) (*CheckResult, error) {
	count, err := s.items.CountDue(ownerID, "", s.clock.Now())
	if err != nil {
		return nil, err
	}
	if count > s.selectionWindow {
		count = s.selectionWindow
	}

	estimated := int(math.Round(float64(count) * 0.5))
	if estimated < 1 {
		estimated = 1
	}

	return &CheckResult{
		HasPendingRecall:     count > 0,
		ItemCount:            count,
		EstimatedTimeMinutes: estimated,
	}, nil
}

// StartResult is the outcome of starting a session. Session is nil when
// nothing was due; that is a soft success, not an error.
type StartResult struct {
	Session       *models.RecallSession `json:"session"`
	Questions     []models.Question     `json:"questions"`
	Encouragement string                `json:"encouragement"`
}

// Start selects due items, asks the generator for questions over them and
// persists a new in-progress session. A generator failure aborts cleanly with
// nothing persisted.
func (s *RecallService) Start(ctx context.Context, ownerID int64, level string) (*StartResult, error) {
	now := s.clock.Now()

	due, err := s.items.SelectDue(ownerID, "", now, s.selectionWindow)
	if err != nil {
		return nil, err
	}
	if len(due) == 0 {
		return &StartResult{Questions: []models.Question{}, Encouragement: noDueMessage}, nil
	}

	if len(due) > s.batchSize {
		due = due[:s.batchSize]
	}

	generated, err := s.generator.GenerateQuestions(ctx, due, level)
	if err != nil {
		return nil, fmt.Errorf("%w: question generator: %v", apperrors.ErrUpstreamUnavailable, err)
	}

	// Keep only questions that reference the selected items, in the order
	// the items were selected.
	questions := alignQuestions(due, generated.Questions)
	if len(questions) == 0 {
		return nil, fmt.Errorf("%w: generator produced no usable questions", apperrors.ErrUpstreamUnavailable)
	}

	session, err := s.sessions.Create(ownerID, uuid.New().String(), questions, now)
	if err != nil {
		return nil, err
	}

	return &StartResult{
		Session:       session,
		Questions:     questions,
		Encouragement: generated.Encouragement,
	}, nil
}

// SubmitResult is the grading outcome of a completed session.
type SubmitResult struct {
	OverallScore  float64            `json:"overall_score"`
	PerItemScores []models.ItemScore `json:"per_item_scores"`
	WeakAreas     []string           `json:"weak_areas"`
	Encouragement string             `json:"encouragement"`
}

// Submit grades the learner's answers, completes the session exactly once and
// fans the per-item scores out into schedule updates, in session order. If
// grading fails the session stays in progress so the caller can retry with
// the same answers.
func (s *RecallService) Submit(ctx context.Context, ownerID int64, token string, answers []string, level string) (*SubmitResult, error) {
	session, err := s.sessions.GetByToken(ownerID, token)
	if err != nil {
		return nil, err
	}
	if session.Completed() {
		return nil, fmt.Errorf("session %s already completed: %w", token, apperrors.ErrConflict)
	}

	graded, err := s.grader.GradeAnswers(ctx, session.Questions, answers, level)
	if err != nil {
		if s.fallback == nil {
			return nil, fmt.Errorf("%w: answer grader: %v", apperrors.ErrUpstreamUnavailable, err)
		}
		log.Printf("Answer grader unavailable, falling back to rule-based grading: %v", err)
		graded, err = s.fallback.GradeAnswers(ctx, session.Questions, answers, level)
		if err != nil {
			return nil, fmt.Errorf("%w: fallback grader: %v", apperrors.ErrUpstreamUnavailable, err)
		}
	}

	now := s.clock.Now()
	err = s.sessions.Complete(ownerID, token, answers, graded.PerItem,
		graded.OverallScore, graded.WeakAreas, graded.Encouragement, now)
	if err != nil {
		return nil, err
	}

	// Fan out schedule updates in the order items appear in the session.
	// Each update is an atomic compare-and-swap; a failure on one item is
	// logged and skipped, it does not abort the rest.
	scoreByItem := make(map[int64]float64, len(graded.PerItem))
	for _, sc := range graded.PerItem {
		scoreByItem[sc.ItemID] = sc.Score
	}

	for _, q := range session.Questions {
		score, ok := scoreByItem[q.ItemID]
		if !ok {
			continue
		}

		quality := srs.QualityFromScore(score)
		if err := applySchedule(s.items, ownerID, q.ItemID, quality, &score, now); err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				log.Printf("Session %s references missing item %d, skipping", token, q.ItemID)
				continue
			}
			log.Printf("Failed to update schedule for item %d in session %s: %v", q.ItemID, token, err)
		}
	}

	return &SubmitResult{
		OverallScore:  graded.OverallScore,
		PerItemScores: graded.PerItem,
		WeakAreas:     graded.WeakAreas,
		Encouragement: graded.Encouragement,
	}, nil
}

// alignQuestions orders generated questions by the selected items and drops
// any question referencing an item that was not selected.
func alignQuestions(items []models.ReviewItem, questions []models.Question) []models.Question {
	byItem := make(map[int64]models.Question, len(questions))
	for _, q := range questions {
		if _, dup := byItem[q.ItemID]; !dup {
			byItem[q.ItemID] = q
		}
	}

	aligned := make([]models.Question, 0, len(items))
	for _, item := range items {
		if q, ok := byItem[item.ID]; ok {
			aligned = append(aligned, q)
		}
	}
	return aligned
}
