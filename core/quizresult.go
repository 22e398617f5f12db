package core

import (
	"math"

	"github.com/go-playground/validator/v10"
)

// QuizResult is the transient quiz outcome submitted to the completion
// pipeline. It is shared by the coordinator, notification derivation and
// consultation assignment; persisted records keep their own snapshots of it.
type QuizResult struct {
	QuizID       string  `json:"quiz_id" validate:"required"`
	Title        string  `json:"title" validate:"required"`
	Subject      string  `json:"subject" validate:"required"`
	Score        float64 `json:"score" validate:"min=0"`
	TotalMarks   float64 `json:"total_marks" validate:"required,gt=0"`
	PassingMarks float64 `json:"passing_marks" validate:"omitempty,gt=0"`
}

func (r *QuizResult) Percentage() float64 {
	if r.TotalMarks == 0 {
		return 0
	}
	return r.Score / r.TotalMarks * 100
}

// EffectivePassingMarks returns PassingMarks, defaulting to 60% of the total
// (rounded up) when the quiz did not specify one.
func (r *QuizResult) EffectivePassingMarks() float64 {
	if r.PassingMarks > 0 {
		return r.PassingMarks
	}
	return math.Ceil(0.6 * r.TotalMarks)
}

func (r *QuizResult) Validate(validate *validator.Validate) error {
	r.QuizID = CleanString(r.QuizID)
	r.Title = CleanString(r.Title)
	r.Subject = CleanString(r.Subject)
	return validate.Struct(r)
}
