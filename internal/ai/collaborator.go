package ai

import (
	"context"

	"learnloop/internal/models"
)

// GenerationResult is the question generator's output for one session.
type GenerationResult struct {
	Questions     []models.Question
	Encouragement string
}

// GradingResult is the answer grader's output for one submitted session.
type GradingResult struct {
	OverallScore  float64
	PerItem       []models.ItemScore
	WeakAreas     []string
	Encouragement string
}

// QuestionGenerator produces one recall question per due item.
type QuestionGenerator interface {
	GenerateQuestions(ctx context.Context, items []models.ReviewItem, level string) (*GenerationResult, error)
}

// AnswerGrader scores the learner's answers against the generated questions.
type AnswerGrader interface {
	GradeAnswers(ctx context.Context, questions []models.Question, answers []string, level string) (*GradingResult, error)
}
