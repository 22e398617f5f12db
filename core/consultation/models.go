package consultation

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/Sadman-Shakib-Aungon/quizzyverse/core"
)

// Statuses
const (
	StatusRequested  = "requested"
	StatusScheduled  = "scheduled"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
	StatusCancelled  = "cancelled"
	StatusNoShow     = "no_show"
)

// Consultation types
const (
	TypeAcademicSupport      = "academic_support"
	TypeStudyStrategy        = "study_strategy"
	TypeExamPreparation      = "exam_preparation"
	TypeSubjectClarification = "subject_clarification"
	TypeMotivation           = "motivation"
)

// Priorities
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
	PriorityUrgent = "urgent"
)

// Meeting platforms
const (
	PlatformZoom       = "zoom"
	PlatformGoogleMeet = "google_meet"
	PlatformTeams      = "teams"
	PlatformInPerson   = "in_person"
	PlatformPhone      = "phone"
)

const DefaultDuration = 30 * time.Minute

var (
	AllStatuses = []string{StatusRequested, StatusScheduled, StatusInProgress, StatusCompleted, StatusCancelled, StatusNoShow}
	AllTypes    = []string{TypeAcademicSupport, TypeStudyStrategy, TypeExamPreparation, TypeSubjectClarification, TypeMotivation}
)

type (
	// TriggerQuiz snapshots the quiz result that led to this consultation.
	TriggerQuiz struct {
		QuizID     string  `json:"quiz_id"`
		Title      string  `json:"title"`
		Subject    string  `json:"subject"`
		Score      float64 `json:"score"`
		TotalMarks float64 `json:"total_marks"`
		Percentage float64 `json:"percentage"`
	}

	Meeting struct {
		Platform  string `json:"platform,omitempty" validate:"omitempty,oneof=zoom google_meet teams in_person phone"`
		Link      string `json:"link,omitempty"`
		MeetingID string `json:"meeting_id,omitempty"`
		Location  string `json:"location,omitempty"`
		Phone     string `json:"phone,omitempty"`
	}

	Feedback struct {
		StudentRating     int    `json:"student_rating,omitempty"`
		StudentComment    string `json:"student_comment,omitempty"`
		ConsultantRating  int    `json:"consultant_rating,omitempty"`
		ConsultantComment string `json:"consultant_comment,omitempty"`
	}

	Consultation struct {
		ID                    string        `json:"id"`
		StudentID             string        `json:"student_id"`
		ConsultantID          string        `json:"consultant_id"`
		TriggerQuiz           TriggerQuiz   `json:"trigger_quiz"`
		Type                  string        `json:"type"`
		Priority              string        `json:"priority"`
		Status                string        `json:"status"`
		ScheduledAt           time.Time     `json:"scheduled_at,omitempty"`
		Duration              time.Duration `json:"duration"`
		Meeting               Meeting       `json:"meeting"`
		StudentNotes          string        `json:"student_notes,omitempty"`
		ConsultantNotes       string        `json:"consultant_notes,omitempty"`
		Feedback              Feedback      `json:"feedback"`
		AutomaticallyAssigned bool          `json:"automatically_assigned"`
		AssignmentReason      string        `json:"assignment_reason,omitempty"`
		IsActive              *bool         `json:"is_active"`
		CreatedAt             time.Time     `json:"created_at"` // UTC
		UpdatedAt             time.Time     `json:"updated_at"` // UTC
	}
)

func (c *Consultation) SetActive(active bool) {
	c.IsActive = &active
}

// CanBeScheduled reports whether a new scheduling operation is permitted.
// Only requested and cancelled consultations may be (re)scheduled.
func (c *Consultation) CanBeScheduled() bool {
	return c.Status == StatusRequested || c.Status == StatusCancelled
}

// ClassifyPriority maps a quiz percentage to the consultation priority/type
// bands. The caller has already established the score is below threshold.
func ClassifyPriority(pct float64) (priority, typ string) {
	switch {
	case pct < 40:
		return PriorityUrgent, TypeExamPreparation
	case pct < 50:
		return PriorityHigh, TypeStudyStrategy
	}
	return PriorityMedium, TypeAcademicSupport
}

func knownStatus(status string) bool {
	for _, s := range AllStatuses {
		if s == status {
			return true
		}
	}
	return false
}

// NewConsultation is the manual-assignment input.
type NewConsultation struct {
	StudentID    string          `json:"student_id" validate:"required"`
	ConsultantID string          `json:"consultant_id" validate:"required"`
	Quiz         core.QuizResult `json:"quiz_result" validate:"required"`
	Type         string          `json:"type" validate:"required,oneof=academic_support study_strategy exam_preparation subject_clarification motivation"`
	StudentNotes string          `json:"student_notes"`
}

func (nc *NewConsultation) Validate(validate *validator.Validate) error {
	nc.StudentID = core.CleanString(nc.StudentID)
	nc.ConsultantID = core.CleanString(nc.ConsultantID)
	nc.Type = core.CleanString(nc.Type, true /* lower */)
	nc.StudentNotes = core.CleanString(nc.StudentNotes)
	if err := nc.Quiz.Validate(validate); err != nil {
		return err
	}
	return validate.Struct(nc)
}

// ScheduleRequest sets the meeting details on a schedulable consultation.
type ScheduleRequest struct {
	ScheduledAt time.Time     `json:"scheduled_at" validate:"required"`
	Duration    time.Duration `json:"duration"`
	Meeting     Meeting       `json:"meeting"`
}

func (sr *ScheduleRequest) Validate(validate *validator.Validate) error {
	if sr.Duration == 0 {
		sr.Duration = DefaultDuration
	}
	return validate.Struct(sr)
}
