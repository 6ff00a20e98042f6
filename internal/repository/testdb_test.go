package repository

import (
	"path/filepath"
	"testing"
	"time"

	"learnloop/internal/database"
	"learnloop/internal/models"
)

var repoTestNow = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

// setupTestDB opens a throwaway SQLite database with migrations applied.
func setupTestDB(t *testing.T) *database.DB {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	dbPath := filepath.Join(t.TempDir(), "repo_test.db")
	db, err := database.Initialize(dbPath)
	if err != nil {
		t.Fatalf("Failed to initialize database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.RunMigrations("../../migrations"); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	return db
}

func newItem(ownerID int64, deck models.Deck, prompt string, nextReview time.Time) *models.ReviewItem {
	return &models.ReviewItem{
		OwnerID:      ownerID,
		Deck:         deck,
		Prompt:       prompt,
		Answer:       "answer",
		EaseFactor:   models.InitialEaseFactor,
		NextReviewAt: nextReview,
	}
}
