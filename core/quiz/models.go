package quiz

import (
	"github.com/Sadman-Shakib-Aungon/quizzyverse/core"
	"github.com/Sadman-Shakib-Aungon/quizzyverse/core/consultation"
	"github.com/Sadman-Shakib-Aungon/quizzyverse/core/notification"
	"github.com/Sadman-Shakib-Aungon/quizzyverse/core/user"
)

type (
	// Completion is one (student, result) pair submitted for processing.
	Completion struct {
		StudentID string          `json:"student_id" validate:"required"`
		Result    core.QuizResult `json:"quiz_result"`
	}

	// ProcessResult is the merged outcome of the two post-threshold branches.
	// Branch errors are downgraded into Errors; partial success is a normal,
	// reportable outcome.
	ProcessResult struct {
		StudentID           string                           `json:"student_id"`
		QuizID              string                           `json:"quiz_id"`
		Percentage          float64                          `json:"percentage"`
		LowScore            bool                             `json:"low_score"`
		Notification        *notification.ParentNotification `json:"notification,omitempty"`
		NotificationCreated bool                             `json:"notification_created"`
		EmailSent           bool                             `json:"email_sent"`
		Consultation        *consultation.Consultation       `json:"consultation,omitempty"`
		ConsultationCreated bool                             `json:"consultation_created"`
		Errors              []string                         `json:"errors,omitempty"`
	}

	BatchItemResult struct {
		StudentID string         `json:"student_id"`
		QuizID    string         `json:"quiz_id"`
		Success   bool           `json:"success"`
		Error     string         `json:"error,omitempty"`
		Result    *ProcessResult `json:"result,omitempty"`
	}

	// SubjectSummary aggregates a student's activity history per subject.
	SubjectSummary struct {
		Subject   string  `json:"subject"`
		Quizzes   int     `json:"quizzes"`
		Average   float64 `json:"average_score"`
		LowScores int     `json:"low_scores"`
	}

	PerformanceSummary struct {
		StudentID     string                            `json:"student_id"`
		Name          string                            `json:"name"`
		Email         string                            `json:"email"`
		ClassCode     string                            `json:"class_code,omitempty"`
		WeakAreas     []string                          `json:"weak_areas,omitempty"`
		TotalQuizzes  int                               `json:"total_quizzes"`
		AverageScore  float64                           `json:"average_score"`
		LowScoreCount int                               `json:"low_score_count"`
		RecentQuizzes []user.ActivityEntry              `json:"recent_quizzes"`
		Notifications []notification.ParentNotification `json:"recent_notifications"`
		Consultations []consultation.Consultation       `json:"recent_consultations"`
		Subjects      []SubjectSummary                  `json:"subjects"`
	}

	SystemStatistics struct {
		ActiveStudents    int                `json:"active_students"`
		ActiveConsultants int                `json:"active_consultants"`
		Notifications     notification.Stats `json:"notifications"`
		Consultations     consultation.Stats `json:"consultations"`
	}
)
