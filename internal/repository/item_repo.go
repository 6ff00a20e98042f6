package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"learnloop/internal/apperrors"
	"learnloop/internal/database"
	"learnloop/internal/models"
	"learnloop/internal/srs"
)

// ItemRepository owns persisted review items
type ItemRepository struct {
	db *database.DB
}

// NewItemRepository creates a new item repository
func NewItemRepository(db *database.DB) *ItemRepository {
	return &ItemRepository{db: db}
}

const itemColumns = `id, owner_id, deck, prompt, answer, explanation, example,
	       importance_weight, ease_factor, interval_days, repetitions,
	       next_review_at, review_count, last_score, version, created_at`

// Create inserts a new review item. Returns apperrors.ErrConflict when the
// owner already has an item with the same prompt in the same deck.
func (r *ItemRepository) Create(item *models.ReviewItem) error {
	return createOn(r.db, item)
}

func createOn(db database.DBTX, item *models.ReviewItem) error {
	var existing int64
	err := db.QueryRow(
		"SELECT id FROM review_items WHERE owner_id = ? AND deck = ? AND prompt = ?",
		item.OwnerID, item.Deck, item.Prompt,
	).Scan(&existing)
	if err == nil {
		return fmt.Errorf("item %q already exists in deck %s: %w", item.Prompt, item.Deck, apperrors.ErrConflict)
	}
	if err != sql.ErrNoRows {
		return err
	}

	query := `
		INSERT INTO review_items
		(owner_id, deck, prompt, answer, explanation, example, importance_weight,
		 ease_factor, interval_days, repetitions, next_review_at, review_count, last_score, version)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0, NULL, 0)
	`

	id, err := db.ExecReturningID(query,
		item.OwnerID, item.Deck, item.Prompt, item.Answer, item.Explanation,
		item.Example, item.ImportanceWeight, item.EaseFactor, item.IntervalDays,
		item.Repetitions, item.NextReviewAt,
	)
	if err != nil {
		return err
	}

	item.ID = id
	return nil
}

// BulkCreate inserts a batch of auto-extracted items with a shared first
// review time, all within one transaction. Duplicates within the owner's deck
// are skipped rather than failing the whole batch. Returns the inserted items.
func (r *ItemRepository) BulkCreate(ownerID int64, deck models.Deck, items []models.ReviewItem, nextReview time.Time) ([]models.ReviewItem, error) {
	tx, err := r.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	inserted := make([]models.ReviewItem, 0, len(items))
	for _, item := range items {
		item.OwnerID = ownerID
		item.Deck = deck
		item.EaseFactor = models.InitialEaseFactor
		item.IntervalDays = 0
		item.Repetitions = 0
		item.NextReviewAt = nextReview
		if item.ImportanceWeight == 0 {
			item.ImportanceWeight = 3
		}

		if err := createOn(tx, &item); err != nil {
			if errors.Is(err, apperrors.ErrConflict) {
				continue
			}
			return nil, err
		}
		inserted = append(inserted, item)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit bulk insert: %w", err)
	}
	return inserted, nil
}

// GetByID retrieves one of the owner's review items
func (r *ItemRepository) GetByID(ownerID, itemID int64) (*models.ReviewItem, error) {
	query := "SELECT " + itemColumns + " FROM review_items WHERE id = ? AND owner_id = ?"

	item, err := scanItem(r.db.QueryRow(query, itemID, ownerID))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("item %d: %w", itemID, apperrors.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return item, nil
}

// SelectDue returns up to limit items needing review, weakest and never-seen
// material first. An item qualifies if its next review time has passed, its
// last score was below 70, or it has never been reviewed. Items without a
// score sort before any scored item. An empty deck matches all decks.
func (r *ItemRepository) SelectDue(ownerID int64, deck models.Deck, now time.Time, limit int) ([]models.ReviewItem, error) {
	query := "SELECT " + itemColumns + ` FROM review_items
		WHERE owner_id = ?
		  AND (next_review_at <= ? OR last_score < 70 OR review_count = 0)`
	args := []interface{}{ownerID, now}

	if deck != "" {
		query += " AND deck = ?"
		args = append(args, deck)
	}

	query += `
		ORDER BY COALESCE(last_score, -1) ASC, next_review_at ASC
		LIMIT ?`
	args = append(args, limit)

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []models.ReviewItem{}
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *item)
	}

	return items, rows.Err()
}

// CountDue returns how many of the owner's items currently qualify for review
func (r *ItemRepository) CountDue(ownerID int64, deck models.Deck, now time.Time) (int, error) {
	query := `
		SELECT COUNT(*) FROM review_items
		WHERE owner_id = ?
		  AND (next_review_at <= ? OR last_score < 70 OR review_count = 0)`
	args := []interface{}{ownerID, now}

	if deck != "" {
		query += " AND deck = ?"
		args = append(args, deck)
	}

	var count int
	err := r.db.QueryRow(query, args...).Scan(&count)
	return count, err
}

// UpdateSchedule applies one graded review to an item's schedule state as a
// single compare-and-swap against the version read earlier. A nil score keeps
// the item's previous last_score (direct quality reviews carry no 0-100
// score). Returns apperrors.ErrConflict when a concurrent update won the race;
// the caller should re-read and retry.
func (r *ItemRepository) UpdateSchedule(ownerID, itemID, version int64, result srs.Result, score *float64) error {
	query := `
		UPDATE review_items
		SET ease_factor = ?,
		    interval_days = ?,
		    repetitions = ?,
		    next_review_at = ?,
		    last_score = COALESCE(?, last_score),
		    review_count = review_count + 1,
		    version = version + 1
		WHERE id = ? AND owner_id = ? AND version = ?
	`

	res, err := r.db.Exec(query,
		result.EaseFactor, result.IntervalDays, result.Repetitions,
		result.NextReview, score, itemID, ownerID, version,
	)
	if err != nil {
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("item %d changed concurrently: %w", itemID, apperrors.ErrConflict)
	}
	return nil
}

// Stats summarises the owner's items in a deck
func (r *ItemRepository) Stats(ownerID int64, deck models.Deck, now time.Time) (*models.ItemStats, error) {
	stats := &models.ItemStats{}

	err := r.db.QueryRow(`
		SELECT COUNT(*),
		       COALESCE(SUM(CASE WHEN next_review_at <= ? OR last_score < 70 OR review_count = 0 THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(CASE WHEN repetitions >= 5 THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(CASE WHEN repetitions > 0 AND repetitions < 5 THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(review_count), 0)
		FROM review_items
		WHERE owner_id = ? AND deck = ?`,
		now, ownerID, deck,
	).Scan(&stats.Total, &stats.DueNow, &stats.Mastered, &stats.Learning, &stats.TotalReviews)
	if err != nil {
		return nil, err
	}

	stats.New = stats.Total - stats.Mastered - stats.Learning
	return stats, nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanItem(row rowScanner) (*models.ReviewItem, error) {
	item := &models.ReviewItem{}
	var lastScore sql.NullFloat64

	err := row.Scan(
		&item.ID,
		&item.OwnerID,
		&item.Deck,
		&item.Prompt,
		&item.Answer,
		&item.Explanation,
		&item.Example,
		&item.ImportanceWeight,
		&item.EaseFactor,
		&item.IntervalDays,
		&item.Repetitions,
		&item.NextReviewAt,
		&item.ReviewCount,
		&lastScore,
		&item.Version,
		&item.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if lastScore.Valid {
		item.LastScore = &lastScore.Float64
	}
	return item, nil
}
