package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"learnloop/internal/ai"
	"learnloop/internal/apperrors"
	"learnloop/internal/clock"
	"learnloop/internal/models"
)

var fixedNow = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

func newTestRecallService(items *fakeItemStore, sessions *fakeSessionStore, gen *fakeGenerator, grader *fakeGrader, opts ...RecallOption) *RecallService {
	return NewRecallService(items, sessions, gen, grader, clock.Fixed{T: fixedNow}, opts...)
}

func seedItem(t *testing.T, store *fakeItemStore, ownerID int64, prompt string, mutate func(*models.ReviewItem)) int64 {
	t.Helper()
	item := &models.ReviewItem{
		OwnerID:      ownerID,
		Deck:         models.DeckLearningPoint,
		Prompt:       prompt,
		Answer:       "answer to " + prompt,
		EaseFactor:   models.InitialEaseFactor,
		NextReviewAt: fixedNow.Add(-time.Hour),
	}
	if err := store.Create(item); err != nil {
		t.Fatalf("seed item: %v", err)
	}
	if mutate != nil {
		mutate(store.items[item.ID])
	}
	return item.ID
}

func TestCheck(t *testing.T) {
	items := newFakeItemStore()
	svc := newTestRecallService(items, newFakeSessionStore(), &fakeGenerator{}, &fakeGrader{})

	// Nothing due yet.
	result, err := svc.Check(1)
	if err != nil {
		t.Fatalf("Check() error: %v", err)
	}
	if result.HasPendingRecall {
		t.Error("expected no pending recall with empty store")
	}
	if result.EstimatedTimeMinutes != 1 {
		t.Errorf("estimated minutes = %d, want floor of 1", result.EstimatedTimeMinutes)
	}

	for i := 0; i < 4; i++ {
		seedItem(t, items, 1, "point "+string(rune('a'+i)), nil)
	}

	result, err = svc.Check(1)
	if err != nil {
		t.Fatalf("Check() error: %v", err)
	}
	if !result.HasPendingRecall || result.ItemCount != 4 {
		t.Errorf("Check() = %+v, want 4 pending items", result)
	}
	if result.EstimatedTimeMinutes != 2 {
		t.Errorf("estimated minutes = %d, want 2", result.EstimatedTimeMinutes)
	}
}

func TestStartWithNoDueItems(t *testing.T) {
	sessions := newFakeSessionStore()
	svc := newTestRecallService(newFakeItemStore(), sessions, &fakeGenerator{}, &fakeGrader{})

	result, err := svc.Start(context.Background(), 1, "beginner")
	if err != nil {
		t.Fatalf("Start() with empty pool should be a soft success, got error: %v", err)
	}
	if result.Session != nil {
		t.Error("expected nil session when nothing is due")
	}
	if len(result.Questions) != 0 {
		t.Errorf("expected no questions, got %d", len(result.Questions))
	}
	if result.Encouragement == "" {
		t.Error("expected an encouragement message on the empty result")
	}
	if len(sessions.sessions) != 0 {
		t.Error("no session should be persisted when nothing is due")
	}
}

func TestStartLimitsBatchSize(t *testing.T) {
	items := newFakeItemStore()
	for i := 0; i < 8; i++ {
		seedItem(t, items, 1, "point "+string(rune('a'+i)), nil)
	}

	sessions := newFakeSessionStore()
	svc := newTestRecallService(items, sessions, &fakeGenerator{}, &fakeGrader{})

	result, err := svc.Start(context.Background(), 1, "beginner")
	if err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	if result.Session == nil {
		t.Fatal("expected a persisted session")
	}
	if len(result.Questions) != 5 {
		t.Errorf("got %d questions, want batch size 5", len(result.Questions))
	}
	if result.Session.Status != models.SessionInProgress {
		t.Errorf("session status = %s, want %s", result.Session.Status, models.SessionInProgress)
	}
}

func TestStartPrioritizesWeakestItems(t *testing.T) {
	items := newFakeItemStore()
	strong := seedItem(t, items, 1, "strong point", func(i *models.ReviewItem) {
		score := 65.0
		i.LastScore = &score
		i.ReviewCount = 3
	})
	weak := seedItem(t, items, 1, "weak point", func(i *models.ReviewItem) {
		score := 20.0
		i.LastScore = &score
		i.ReviewCount = 3
	})
	never := seedItem(t, items, 1, "never seen", nil)

	svc := newTestRecallService(items, newFakeSessionStore(), &fakeGenerator{}, &fakeGrader{})
	result, err := svc.Start(context.Background(), 1, "beginner")
	if err != nil {
		t.Fatalf("Start() error: %v", err)
	}

	want := []int64{never, weak, strong}
	if len(result.Questions) != len(want) {
		t.Fatalf("got %d questions, want %d", len(result.Questions), len(want))
	}
	for i, q := range result.Questions {
		if q.ItemID != want[i] {
			t.Errorf("question %d references item %d, want %d", i, q.ItemID, want[i])
		}
	}
}

func TestStartGeneratorFailure(t *testing.T) {
	items := newFakeItemStore()
	seedItem(t, items, 1, "a point", nil)

	sessions := newFakeSessionStore()
	gen := &fakeGenerator{err: errors.New("model timeout")}
	svc := newTestRecallService(items, sessions, gen, &fakeGrader{})

	_, err := svc.Start(context.Background(), 1, "beginner")
	if !errors.Is(err, apperrors.ErrUpstreamUnavailable) {
		t.Fatalf("Start() error = %v, want ErrUpstreamUnavailable", err)
	}
	if len(sessions.sessions) != 0 {
		t.Error("no session may be persisted when the generator fails")
	}
}

func TestSubmitUpdatesSchedulesInSessionOrder(t *testing.T) {
	items := newFakeItemStore()
	// Distinct next-review times pin the selection order so the expected
	// session order is deterministic.
	first := seedItem(t, items, 1, "first", func(item *models.ReviewItem) {
		item.NextReviewAt = fixedNow.Add(-2 * time.Hour)
	})
	second := seedItem(t, items, 1, "second", func(item *models.ReviewItem) {
		item.NextReviewAt = fixedNow.Add(-time.Hour)
	})

	sessions := newFakeSessionStore()
	grader := &fakeGrader{scores: map[int64]float64{first: 90, second: 40}}
	svc := newTestRecallService(items, sessions, &fakeGenerator{}, grader)

	start, err := svc.Start(context.Background(), 1, "beginner")
	if err != nil {
		t.Fatalf("Start() error: %v", err)
	}

	result, err := svc.Submit(context.Background(), 1, start.Session.Token, []string{"x", "y"}, "beginner")
	if err != nil {
		t.Fatalf("Submit() error: %v", err)
	}
	if result.OverallScore != 65 {
		t.Errorf("overall score = %v, want 65", result.OverallScore)
	}

	// Fan-out in session order.
	if len(items.updateOrder) != 2 || items.updateOrder[0] != first || items.updateOrder[1] != second {
		t.Errorf("update order = %v, want [%d %d]", items.updateOrder, first, second)
	}

	// Score 90 is quality 5: a pass from a fresh item.
	passed := items.items[first]
	if passed.Repetitions != 1 || passed.IntervalDays != 1 {
		t.Errorf("passed item state = reps %d interval %d, want 1/1", passed.Repetitions, passed.IntervalDays)
	}
	if passed.LastScore == nil || *passed.LastScore != 90 {
		t.Errorf("passed item last score = %v, want 90", passed.LastScore)
	}

	// Score 40 is quality 1: a fail.
	failed := items.items[second]
	if failed.Repetitions != 0 || failed.IntervalDays != 1 {
		t.Errorf("failed item state = reps %d interval %d, want 0/1", failed.Repetitions, failed.IntervalDays)
	}
	if failed.ReviewCount != 1 {
		t.Errorf("failed item review count = %d, want 1", failed.ReviewCount)
	}

	session := sessions.sessions[start.Session.Token]
	if session.Status != models.SessionCompleted {
		t.Errorf("session status = %s, want completed", session.Status)
	}
	if session.CompletedAt == nil {
		t.Error("completed session missing completed_at")
	}
}

func TestSubmitTwiceReturnsConflict(t *testing.T) {
	items := newFakeItemStore()
	seedItem(t, items, 1, "a point", nil)

	svc := newTestRecallService(items, newFakeSessionStore(), &fakeGenerator{}, &fakeGrader{})
	start, err := svc.Start(context.Background(), 1, "beginner")
	if err != nil {
		t.Fatalf("Start() error: %v", err)
	}

	if _, err := svc.Submit(context.Background(), 1, start.Session.Token, []string{"x"}, ""); err != nil {
		t.Fatalf("first Submit() error: %v", err)
	}

	_, err = svc.Submit(context.Background(), 1, start.Session.Token, []string{"x"}, "")
	if !errors.Is(err, apperrors.ErrConflict) {
		t.Fatalf("second Submit() error = %v, want ErrConflict", err)
	}
}

func TestSubmitUnknownSession(t *testing.T) {
	svc := newTestRecallService(newFakeItemStore(), newFakeSessionStore(), &fakeGenerator{}, &fakeGrader{})

	_, err := svc.Submit(context.Background(), 1, "no-such-token", nil, "")
	if !errors.Is(err, apperrors.ErrNotFound) {
		t.Fatalf("Submit() error = %v, want ErrNotFound", err)
	}
}

func TestSubmitGraderFailureKeepsSessionInProgress(t *testing.T) {
	items := newFakeItemStore()
	itemID := seedItem(t, items, 1, "a point", nil)

	sessions := newFakeSessionStore()
	grader := &fakeGrader{err: errors.New("model unavailable")}
	svc := newTestRecallService(items, sessions, &fakeGenerator{}, grader)

	start, err := svc.Start(context.Background(), 1, "beginner")
	if err != nil {
		t.Fatalf("Start() error: %v", err)
	}

	_, err = svc.Submit(context.Background(), 1, start.Session.Token, []string{"x"}, "")
	if !errors.Is(err, apperrors.ErrUpstreamUnavailable) {
		t.Fatalf("Submit() error = %v, want ErrUpstreamUnavailable", err)
	}

	session := sessions.sessions[start.Session.Token]
	if session.Status != models.SessionInProgress {
		t.Errorf("session status = %s, want still in_progress", session.Status)
	}
	if session.OverallScore != nil {
		t.Error("no partial overall score may be recorded on grader failure")
	}
	if items.items[itemID].ReviewCount != 0 {
		t.Error("no schedule update may be applied on grader failure")
	}

	// The caller can retry the identical submission once the grader is back.
	grader.err = nil
	if _, err := svc.Submit(context.Background(), 1, start.Session.Token, []string{"x"}, ""); err != nil {
		t.Fatalf("retry Submit() error: %v", err)
	}
	if sessions.sessions[start.Session.Token].Status != models.SessionCompleted {
		t.Error("retried submission should complete the session")
	}
}

func TestSubmitFallbackGrading(t *testing.T) {
	items := newFakeItemStore()
	itemID := seedItem(t, items, 1, "capital of France", func(i *models.ReviewItem) {
		i.Answer = "Paris"
	})

	sessions := newFakeSessionStore()
	grader := &fakeGrader{err: errors.New("model unavailable")}
	svc := newTestRecallService(items, sessions, &fakeGenerator{}, grader,
		WithFallbackGrader(ai.RuleGrader{}))

	start, err := svc.Start(context.Background(), 1, "beginner")
	if err != nil {
		t.Fatalf("Start() error: %v", err)
	}

	result, err := svc.Submit(context.Background(), 1, start.Session.Token, []string{"paris"}, "")
	if err != nil {
		t.Fatalf("Submit() with fallback error: %v", err)
	}
	if result.OverallScore != 100 {
		t.Errorf("fallback overall score = %v, want 100 for exact match", result.OverallScore)
	}
	if items.items[itemID].Repetitions != 1 {
		t.Error("fallback grading should still drive schedule updates")
	}
}

func TestSubmitRetriesConcurrentItemUpdate(t *testing.T) {
	items := newFakeItemStore()
	itemID := seedItem(t, items, 1, "a point", nil)
	items.failUpdates = 1

	svc := newTestRecallService(items, newFakeSessionStore(), &fakeGenerator{}, &fakeGrader{})
	start, err := svc.Start(context.Background(), 1, "beginner")
	if err != nil {
		t.Fatalf("Start() error: %v", err)
	}

	if _, err := svc.Submit(context.Background(), 1, start.Session.Token, []string{"x"}, ""); err != nil {
		t.Fatalf("Submit() error: %v", err)
	}
	if items.items[itemID].ReviewCount != 1 {
		t.Error("schedule update should succeed after one retry")
	}
}
