package quiz

import (
	"context"
	"fmt"
	"sort"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/Sadman-Shakib-Aungon/quizzyverse/core"
	"github.com/Sadman-Shakib-Aungon/quizzyverse/core/consultation"
	"github.com/Sadman-Shakib-Aungon/quizzyverse/core/notification"
	"github.com/Sadman-Shakib-Aungon/quizzyverse/core/user"
)

const (
	recentQuizzes = 10
	recentRecords = 5
)

type (
	// Service coordinates the quiz-completion pipeline: activity recording,
	// threshold check, parent notification and consultation assignment.
	Service interface {
		ProcessCompletion(ctx context.Context, studentID string, res core.QuizResult) (*ProcessResult, error)
		BatchProcess(ctx context.Context, completions []Completion) []BatchItemResult
		StudentPerformanceSummary(ctx context.Context, studentID string) (*PerformanceSummary, error)
		Statistics(ctx context.Context) (*SystemStatistics, error)
	}

	service struct {
		usrSvc    user.Service
		notifSvc  notification.Service
		consulSvc consultation.Service
		validate  *validator.Validate
		logger    core.Logger
		conf      *core.Config
	}
)

var _ Service = (*service)(nil) // interface compliance check

func NewService(
	usrSvc user.Service,
	notifSvc notification.Service,
	consulSvc consultation.Service,
	validate *validator.Validate,
	logger core.Logger,
	conf *core.Config,
) Service {
	return &service{
		usrSvc:    usrSvc,
		notifSvc:  notifSvc,
		consulSvc: consulSvc,
		validate:  validate,
		logger:    logger,
		conf:      conf,
	}
}

// ProcessCompletion runs the completion pipeline for one quiz result.
// The activity entry is recorded for every valid completion, passing scores
// included, before the threshold check. Below threshold, the notification and
// consultation branches run independently: either branch failing is recorded
// in the result without aborting the sibling or the call.
func (svc *service) ProcessCompletion(ctx context.Context, studentID string, res core.QuizResult) (*ProcessResult, error) {
	if err := res.Validate(svc.validate); err != nil {
		return nil, err
	}

	student, err := svc.usrSvc.GetByID(ctx, studentID)
	if err != nil {
		return nil, err
	}
	if !student.IsStudent() {
		return nil, user.ErrNotFound
	}

	student, err = svc.usrSvc.RecordActivity(ctx, student, user.ActivityEntry{
		QuizID:  res.QuizID,
		Score:   res.Score,
		Subject: res.Subject,
	})
	if err != nil {
		return nil, errors.Wrap(err, "recording activity")
	}

	pct := res.Percentage()
	result := &ProcessResult{
		StudentID:  student.ID,
		QuizID:     res.QuizID,
		Percentage: pct,
	}
	if pct >= svc.conf.Quiz.LowScoreThreshold {
		return result, nil
	}
	result.LowScore = true

	// Branch A: parent notification + best-effort email
	if n, nErr := svc.notifSvc.CreateFromResult(ctx, student.ID, res); nErr != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("notification: %v", nErr))
		svc.logger.Warn(fmt.Sprintf("notification branch failed for student %s: %v", student.ID, nErr), nErr)
	} else if n != nil {
		result.Notification = n
		result.NotificationCreated = true
		if dErr := svc.notifSvc.DispatchEmail(ctx, n); dErr != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("notification email: %v", dErr))
		}
		result.EmailSent = n.Email.Status == notification.EmailSent
	}

	// Branch B: consultation auto-assignment + weak-area tracking
	if c, cErr := svc.consulSvc.AutoAssign(ctx, student.ID, res); cErr != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("consultation: %v", cErr))
		svc.logger.Warn(fmt.Sprintf("consultation branch failed for student %s: %v", student.ID, cErr), cErr)
	} else {
		result.Consultation = c
		result.ConsultationCreated = true
		if _, wErr := svc.usrSvc.AddWeakArea(ctx, student, res.Subject); wErr != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("weak areas: %v", wErr))
		}
	}

	return result, nil
}

// BatchProcess runs ProcessCompletion for each item sequentially; one item's
// failure never aborts the batch.
func (svc *service) BatchProcess(ctx context.Context, completions []Completion) []BatchItemResult {
	results := make([]BatchItemResult, 0, len(completions))
	for _, item := range completions {
		res := BatchItemResult{
			StudentID: item.StudentID,
			QuizID:    item.Result.QuizID,
		}
		if pr, err := svc.ProcessCompletion(ctx, item.StudentID, item.Result); err != nil {
			res.Error = err.Error()
		} else {
			res.Success = true
			res.Result = pr
		}
		results = append(results, res)
	}
	return results
}

func (svc *service) StudentPerformanceSummary(ctx context.Context, studentID string) (*PerformanceSummary, error) {
	student, err := svc.usrSvc.GetByID(ctx, studentID)
	if err != nil {
		return nil, err
	}
	if !student.IsStudent() {
		return nil, user.ErrNotFound
	}

	recent := recentActivity(student.ActivityHistory, recentQuizzes)
	summary := &PerformanceSummary{
		StudentID:     student.ID,
		Name:          student.Name,
		Email:         student.Email,
		RecentQuizzes: recent,
		TotalQuizzes:  len(recent),
	}
	if len(recent) > 0 {
		var sum float64
		for _, entry := range recent {
			sum += entry.Score
		}
		summary.AverageScore = sum / float64(len(recent))
	}
	if student.Student != nil {
		summary.ClassCode = student.Student.ClassCode
		summary.WeakAreas = student.Student.WeakAreas
	}

	notifs, _, err := svc.notifSvc.QueryByStudent(ctx, student.ID, recentRecords, 0)
	if err != nil {
		return nil, errors.Wrap(err, "querying notifications")
	}
	summary.Notifications = notifs
	summary.LowScoreCount = len(notifs)

	consuls, _, err := svc.consulSvc.QueryByStudent(ctx, student.ID, "", recentRecords, 0)
	if err != nil {
		return nil, errors.Wrap(err, "querying consultations")
	}
	summary.Consultations = consuls

	summary.Subjects = subjectSummaries(recent, notifs)
	return summary, nil
}

func (svc *service) Statistics(ctx context.Context) (*SystemStatistics, error) {
	active := true
	students, err := svc.usrSvc.Query(ctx, &user.QueryFilter{Role: user.RoleStudent, IsActive: &active}, nil)
	if err != nil {
		return nil, errors.Wrap(err, "querying students")
	}
	consultants, err := svc.usrSvc.Query(ctx, &user.QueryFilter{Role: user.RoleConsultant, IsActive: &active}, nil)
	if err != nil {
		return nil, errors.Wrap(err, "querying consultants")
	}

	notifStats, err := svc.notifSvc.Statistics(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "querying notification stats")
	}
	consulStats, err := svc.consulSvc.Statistics(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "querying consultation stats")
	}

	return &SystemStatistics{
		ActiveStudents:    len(students),
		ActiveConsultants: len(consultants),
		Notifications:     notifStats,
		Consultations:     consulStats,
	}, nil
}

// recentActivity returns the n most recent entries, newest first.
func recentActivity(history []user.ActivityEntry, n int) []user.ActivityEntry {
	entries := make([]user.ActivityEntry, len(history))
	copy(entries, history)
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].TakenAt.After(entries[j].TakenAt) })
	if len(entries) > n {
		entries = entries[:n]
	}
	return entries
}

// subjectSummaries aggregates the recent quiz entries per subject; low-score
// counts come from the recent notifications, matching what the parent was
// actually alerted about.
func subjectSummaries(recent []user.ActivityEntry, notifs []notification.ParentNotification) []SubjectSummary {
	type agg struct {
		count int
		sum   float64
	}
	bySubject := make(map[string]*agg)
	order := make([]string, 0)
	for _, entry := range recent {
		a, ok := bySubject[entry.Subject]
		if !ok {
			a = &agg{}
			bySubject[entry.Subject] = a
			order = append(order, entry.Subject)
		}
		a.count++
		a.sum += entry.Score
	}

	lowBySubject := make(map[string]int, len(notifs))
	for _, n := range notifs {
		lowBySubject[n.Quiz.Subject]++
	}

	summaries := make([]SubjectSummary, 0, len(order))
	for _, subject := range order {
		a := bySubject[subject]
		summaries = append(summaries, SubjectSummary{
			Subject:   subject,
			Quizzes:   a.count,
			Average:   a.sum / float64(a.count),
			LowScores: lowBySubject[subject],
		})
	}
	return summaries
}
