package session

import (
	"math"

	"github.com/flightprep/lms/internal/apperr"
	"github.com/flightprep/lms/internal/model"
)

// DefaultPassThreshold is the pass percentage applied when an exam does not
// carry its own threshold.
const DefaultPassThreshold = 75

// Score computes the percentage score for a set of answers against the
// question set's correct answers. An absent answer counts as incorrect.
// An empty question set is rejected rather than dividing by zero.
func Score(answers map[string]string, questions []model.Question) (int, error) {
	if len(questions) == 0 {
		return 0, apperr.Validation("exam has no questions")
	}
	correct := 0
	for _, q := range questions {
		if answers[q.ID] == q.CorrectAnswer {
			correct++
		}
	}
	return int(math.Round(100 * float64(correct) / float64(len(questions)))), nil
}

// Passed applies a pass threshold to a score. The threshold is the exam's
// own field, kept out of Score so it can vary per exam.
func Passed(score, threshold int) bool {
	return score >= threshold
}
