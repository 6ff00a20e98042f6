package srs

// QualityFromScore buckets an open-ended 0-100 grading score into the 0-5
// quality signal the scheduler expects. The score is clamped into [0, 100]
// first so an out-of-range grader response cannot escape the buckets.
func QualityFromScore(score float64) int {
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}

	switch {
	case score < 30:
		return 0
	case score < 50:
		return 1
	case score < 60:
		return 2
	case score < 70:
		return 3
	case score < 85:
		return 4
	default:
		return 5
	}
}
