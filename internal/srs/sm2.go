package srs

import (
	"math"
	"time"
)

// Quality is the 0-5 discretized grading signal driving the scheduler.
// Anything below PassThreshold is a fail.
const (
	MinQuality    = 0
	MaxQuality    = 5
	PassThreshold = 3
)

// MinEaseFactor is the floor the ease factor can never drop below.
const MinEaseFactor = 1.3

// State is the schedule state of one review item.
type State struct {
	EaseFactor   float64
	IntervalDays int
	Repetitions  int
}

// Result is the updated schedule state plus the derived next review time.
type Result struct {
	State
	NextReview time.Time
}

// Update applies the SM-2 algorithm to a schedule state. Pure: no I/O, no
// wall clock. Out-of-range quality is clamped rather than rejected.
//
// A pass (quality >= 3) grows the interval (1, 6, then interval*ease), bumps
// the repetition count and adjusts the ease factor. A fail resets repetitions
// and interval but leaves the ease factor alone.
func Update(s State, quality int, now time.Time) Result {
	quality = clampQuality(quality)

	next := s
	if quality >= PassThreshold {
		switch s.Repetitions {
		case 0:
			next.IntervalDays = 1
		case 1:
			next.IntervalDays = 6
		default:
			next.IntervalDays = int(math.Round(float64(s.IntervalDays) * s.EaseFactor))
		}

		next.Repetitions = s.Repetitions + 1

		q := float64(quality)
		ease := s.EaseFactor + (0.1 - (5-q)*(0.08+(5-q)*0.02))
		if ease < MinEaseFactor {
			ease = MinEaseFactor
		}
		// Two decimal places, matching what we persist.
		next.EaseFactor = math.Round(ease*100) / 100
	} else {
		next.Repetitions = 0
		next.IntervalDays = 1
	}

	return Result{
		State:      next,
		NextReview: now.AddDate(0, 0, next.IntervalDays),
	}
}

func clampQuality(q int) int {
	if q < MinQuality {
		return MinQuality
	}
	if q > MaxQuality {
		return MaxQuality
	}
	return q
}
