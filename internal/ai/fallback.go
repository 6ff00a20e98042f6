package ai

import (
	"context"
	"math"
	"strings"

	"learnloop/internal/models"
)

// RuleGrader is a deterministic fallback grader used when the AI collaborator
// is unavailable. It does plain string comparison against the stored correct
// answer, so a session can still be graded rather than left hanging on an
// upstream outage.
type RuleGrader struct{}

// GradeAnswers scores each answer 100 for a normalized exact match, 60 when
// one contains the other, and 0 otherwise. Overall score is the mean.
func (RuleGrader) GradeAnswers(_ context.Context, questions []models.Question, answers []string, _ string) (*GradingResult, error) {
	result := &GradingResult{
		Encouragement: "Graded automatically, keep going!",
	}

	weak := map[string]bool{}
	total := 0.0
	for i, q := range questions {
		answer := ""
		if i < len(answers) {
			answer = answers[i]
		}

		score := matchScore(answer, q.CorrectAnswer)
		total += score
		result.PerItem = append(result.PerItem, models.ItemScore{ItemID: q.ItemID, Score: score})

		if score < 70 && q.Type != "" && !weak[q.Type] {
			weak[q.Type] = true
			result.WeakAreas = append(result.WeakAreas, q.Type)
		}
	}

	if len(questions) > 0 {
		result.OverallScore = math.Round(total / float64(len(questions)))
	}
	return result, nil
}

func matchScore(answer, correct string) float64 {
	a := strings.ToLower(strings.TrimSpace(answer))
	c := strings.ToLower(strings.TrimSpace(correct))

	switch {
	case a == "" || c == "":
		return 0
	case a == c:
		return 100
	case strings.Contains(a, c) || strings.Contains(c, a):
		return 60
	default:
		return 0
	}
}
