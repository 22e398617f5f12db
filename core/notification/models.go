package notification

import (
	"time"
)

// Notification types
const (
	TypeLowScore            = "low_score"
	TypeFailingGrade        = "failing_grade"
	TypeImprovementNeeded   = "improvement_needed"
	TypeCriticalPerformance = "critical_performance"
)

// Severities
const (
	SeverityLow      = "low"
	SeverityMedium   = "medium"
	SeverityHigh     = "high"
	SeverityCritical = "critical"
)

// Priorities
const (
	PriorityLow    = "low"
	PriorityNormal = "normal"
	PriorityHigh   = "high"
	PriorityUrgent = "urgent"
)

// Email delivery statuses
const (
	EmailPending = "pending"
	EmailSent    = "sent"
	EmailFailed  = "failed"
	EmailBounced = "bounced"
)

type (
	// QuizSnapshot freezes the quiz details at notification time; later quiz
	// edits must not rewrite history.
	QuizSnapshot struct {
		QuizID       string  `json:"quiz_id"`
		Title        string  `json:"title"`
		Subject      string  `json:"subject"`
		TotalMarks   float64 `json:"total_marks"`
		PassingMarks float64 `json:"passing_marks"`
	}

	Score struct {
		Obtained   float64 `json:"obtained"`
		Percentage float64 `json:"percentage"`
		Grade      string  `json:"grade"`
	}

	Message struct {
		Subject         string   `json:"subject"`
		Body            string   `json:"body"`
		Recommendations []string `json:"recommendations"`
	}

	EmailDetails struct {
		Status        string    `json:"status"`
		SentAt        time.Time `json:"sent_at,omitempty"`
		EmailID       string    `json:"email_id,omitempty"`
		FailureReason string    `json:"failure_reason,omitempty"`
		RetryCount    int       `json:"retry_count"`
		MaxRetries    int       `json:"max_retries"`
	}

	ParentResponse struct {
		Acknowledged     bool      `json:"acknowledged"`
		AcknowledgedAt   time.Time `json:"acknowledged_at,omitempty"`
		Response         string    `json:"response,omitempty"`
		RequestMeeting   bool      `json:"request_meeting"`
		MeetingScheduled bool      `json:"meeting_scheduled"`
	}

	ParentNotification struct {
		ID                  string         `json:"id"`
		StudentID           string         `json:"student_id"`
		ParentID            string         `json:"parent_id"`
		Quiz                QuizSnapshot   `json:"quiz"`
		Score               Score          `json:"score"`
		Type                string         `json:"type"`
		Severity            string         `json:"severity"`
		Priority            string         `json:"priority"`
		Message             Message        `json:"message"`
		Email               EmailDetails   `json:"email_details"`
		Response            ParentResponse `json:"parent_response"`
		RelatedConsultation string         `json:"related_consultation,omitempty"`
		IsActive            *bool          `json:"is_active"`
		CreatedAt           time.Time      `json:"created_at"` // UTC
		UpdatedAt           time.Time      `json:"updated_at"` // UTC
	}
)

func (n *ParentNotification) SetActive(active bool) {
	n.IsActive = &active
}

// Classify maps a quiz percentage to a notification band. Bands are evaluated
// top-down; ok is false for percentages at or above 60 (no notification).
func Classify(pct float64) (typ, severity, grade string, ok bool) {
	switch {
	case pct < 40:
		return TypeCriticalPerformance, SeverityCritical, "F", true
	case pct < 50:
		return TypeFailingGrade, SeverityHigh, "D", true
	case pct < 60:
		return TypeLowScore, SeverityMedium, "C-", true
	}
	return "", "", "", false
}

// priorityFor maps a severity to the notification priority.
func priorityFor(severity string) string {
	switch severity {
	case SeverityCritical:
		return PriorityUrgent
	case SeverityHigh:
		return PriorityHigh
	default:
		return PriorityNormal
	}
}

// recommendations is the fixed guidance shipped with every alert.
var recommendations = []string{
	"Schedule regular study time and review sessions at home",
	"Review the quiz material together with your child",
	"Consider the suggested consultation session with a subject specialist",
	"Encourage your child and track their progress on upcoming quizzes",
}
