package models

import "time"

// Session status values. There is no persisted "none" state; the absence of an
// active session is represented by not having a row.
const (
	SessionInProgress = "in_progress"
	SessionCompleted  = "completed"
)

// Question is one generated recall question tied to a review item.
type Question struct {
	ItemID        int64  `json:"item_id"`
	Text          string `json:"question_text"`
	Type          string `json:"question_type"`
	CorrectAnswer string `json:"correct_answer"`
}

// ItemScore is the grader's 0-100 score for a single item in a session.
type ItemScore struct {
	ItemID int64   `json:"item_id"`
	Score  float64 `json:"score"`
}

// RecallSession is one bounded review encounter: a batch of due items
// presented, answered and graded as a unit.
type RecallSession struct {
	ID      int64  `json:"id"`
	Token   string `json:"token"`
	OwnerID int64  `json:"owner_id"`
	Status  string `json:"status"`

	Questions     []Question  `json:"questions"`
	Answers       []string    `json:"answers,omitempty"`
	PerItemScores []ItemScore `json:"per_item_scores,omitempty"`
	OverallScore  *float64    `json:"overall_score"`
	WeakAreas     []string    `json:"weak_areas,omitempty"`
	Encouragement string      `json:"encouragement,omitempty"`

	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at"`
}

// Completed reports whether the session has already been graded.
func (s *RecallSession) Completed() bool {
	return s.Status == SessionCompleted
}
