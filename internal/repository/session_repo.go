package repository

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"learnloop/internal/apperrors"
	"learnloop/internal/database"
	"learnloop/internal/models"
)

// SessionRepository handles recall session database operations. Question,
// answer and score collections are stored as JSON columns.
type SessionRepository struct {
	db database.DBTX
}

// NewSessionRepository creates a new session repository
func NewSessionRepository(db database.DBTX) *SessionRepository {
	return &SessionRepository{db: db}
}

// Create persists a new in-progress session with its generated questions
func (r *SessionRepository) Create(ownerID int64, token string, questions []models.Question, now time.Time) (*models.RecallSession, error) {
	questionsJSON, err := json.Marshal(questions)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize questions: %w", err)
	}

	query := `
		INSERT INTO recall_sessions (token, owner_id, status, questions, created_at)
		VALUES (?, ?, ?, ?, ?)
	`

	id, err := r.db.ExecReturningID(query, token, ownerID, models.SessionInProgress, string(questionsJSON), now)
	if err != nil {
		return nil, err
	}

	return &models.RecallSession{
		ID:        id,
		Token:     token,
		OwnerID:   ownerID,
		Status:    models.SessionInProgress,
		Questions: questions,
		CreatedAt: now,
	}, nil
}

// GetByToken retrieves one of the owner's sessions
func (r *SessionRepository) GetByToken(ownerID int64, token string) (*models.RecallSession, error) {
	query := `
		SELECT id, token, owner_id, status, questions, answers, per_item_scores,
		       overall_score, weak_areas, encouragement, created_at, completed_at
		FROM recall_sessions
		WHERE token = ? AND owner_id = ?
	`

	session := &models.RecallSession{}
	var questionsJSON string
	var answersJSON, scoresJSON, weakAreasJSON sql.NullString
	var overallScore sql.NullFloat64
	var completedAt sql.NullTime

	err := r.db.QueryRow(query, token, ownerID).Scan(
		&session.ID,
		&session.Token,
		&session.OwnerID,
		&session.Status,
		&questionsJSON,
		&answersJSON,
		&scoresJSON,
		&overallScore,
		&weakAreasJSON,
		&session.Encouragement,
		&session.CreatedAt,
		&completedAt,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("session %s: %w", token, apperrors.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(questionsJSON), &session.Questions); err != nil {
		return nil, fmt.Errorf("failed to parse session questions: %w", err)
	}
	if answersJSON.Valid && answersJSON.String != "" {
		if err := json.Unmarshal([]byte(answersJSON.String), &session.Answers); err != nil {
			return nil, fmt.Errorf("failed to parse session answers: %w", err)
		}
	}
	if scoresJSON.Valid && scoresJSON.String != "" {
		if err := json.Unmarshal([]byte(scoresJSON.String), &session.PerItemScores); err != nil {
			return nil, fmt.Errorf("failed to parse session scores: %w", err)
		}
	}
	if weakAreasJSON.Valid && weakAreasJSON.String != "" {
		if err := json.Unmarshal([]byte(weakAreasJSON.String), &session.WeakAreas); err != nil {
			return nil, fmt.Errorf("failed to parse weak areas: %w", err)
		}
	}
	if overallScore.Valid {
		session.OverallScore = &overallScore.Float64
	}
	if completedAt.Valid {
		session.CompletedAt = &completedAt.Time
	}

	return session, nil
}

// Complete records the grading result and transitions the session to
// completed. The update is guarded on status so a session completes exactly
// once; a second attempt returns apperrors.ErrConflict.
func (r *SessionRepository) Complete(ownerID int64, token string, answers []string, scores []models.ItemScore, overall float64, weakAreas []string, encouragement string, completedAt time.Time) error {
	answersJSON, err := json.Marshal(answers)
	if err != nil {
		return fmt.Errorf("failed to serialize answers: %w", err)
	}
	scoresJSON, err := json.Marshal(scores)
	if err != nil {
		return fmt.Errorf("failed to serialize scores: %w", err)
	}
	weakAreasJSON, err := json.Marshal(weakAreas)
	if err != nil {
		return fmt.Errorf("failed to serialize weak areas: %w", err)
	}

	query := `
		UPDATE recall_sessions
		SET answers = ?, per_item_scores = ?, overall_score = ?,
		    weak_areas = ?, encouragement = ?, status = ?, completed_at = ?
		WHERE token = ? AND owner_id = ? AND status = ?
	`

	res, err := r.db.Exec(query,
		string(answersJSON), string(scoresJSON), overall,
		string(weakAreasJSON), encouragement, models.SessionCompleted, completedAt,
		token, ownerID, models.SessionInProgress,
	)
	if err != nil {
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("session %s already completed: %w", token, apperrors.ErrConflict)
	}
	return nil
}
