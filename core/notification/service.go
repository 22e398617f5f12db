package notification

import (
	"context"
	"fmt"
	"math"
	"net/mail"
	"time"

	"github.com/pkg/errors"

	"github.com/Sadman-Shakib-Aungon/quizzyverse/core"
	"github.com/Sadman-Shakib-Aungon/quizzyverse/core/user"
)

var (
	// errors
	ErrNotFound         = errors.New("notification not found")
	ErrParentNotFound   = errors.New("no registered parent found for this student")
	ErrDuplicate        = errors.New("a notification for this student and quiz already exists")
	ErrRetriesExhausted = errors.New("maximum email retries reached")
)

type (
	Repository interface {
		// CreateNotification persists n. The storage layer enforces a unique
		// (student_id, quiz_id) index and maps violations to ErrDuplicate.
		CreateNotification(ctx context.Context, n ParentNotification, exec ...core.DBExecutor) (ParentNotification, error)
		NotificationExists(ctx context.Context, studentID, quizID string, exec ...core.DBExecutor) (bool, error)
		GetNotificationByID(ctx context.Context, id string, exec ...core.DBExecutor) (ParentNotification, error)
		UpdateNotification(ctx context.Context, n ParentNotification, exec ...core.DBExecutor) (ParentNotification, error)
		// QueryNotificationsByParent returns a page of the parent's active
		// notifications, most recent first, plus the unpaginated total.
		QueryNotificationsByParent(ctx context.Context, parentID string, acknowledged *bool, limit, offset int, exec ...core.DBExecutor) ([]ParentNotification, int, error)
		QueryNotificationsByStudent(ctx context.Context, studentID string, limit, offset int, exec ...core.DBExecutor) ([]ParentNotification, int, error)
		NotificationStats(ctx context.Context, exec ...core.DBExecutor) (Stats, error)
	}

	Stats struct {
		Total         int            `json:"total"`
		ByEmailStatus map[string]int `json:"by_email_status"`
		Acknowledged  int            `json:"acknowledged"`
	}

	Service interface {
		CreateFromResult(ctx context.Context, studentID string, res core.QuizResult) (*ParentNotification, error)
		DispatchEmail(ctx context.Context, n *ParentNotification) error
		RetryEmail(ctx context.Context, id string) (*ParentNotification, error)
		Acknowledge(ctx context.Context, id, parentID, response string, requestMeeting bool) (*ParentNotification, error)
		GetByID(ctx context.Context, id string) (ParentNotification, error)
		QueryByParent(ctx context.Context, parentID string, acknowledged *bool, limit, offset int) ([]ParentNotification, int, error)
		QueryByStudent(ctx context.Context, studentID string, limit, offset int) ([]ParentNotification, int, error)
		Statistics(ctx context.Context) (Stats, error)
	}

	service struct {
		repo    Repository
		usrSvc  user.Service
		mailSvc core.EmailService
		conf    *core.Config
		logger  core.Logger
	}
)

var _ Service = (*service)(nil) // interface compliance check

func NewService(repo Repository, usrSvc user.Service, mailSvc core.EmailService, logger core.Logger, conf *core.Config) Service {
	return &service{
		repo:    repo,
		usrSvc:  usrSvc,
		mailSvc: mailSvc,
		conf:    conf,
		logger:  logger,
	}
}

// CreateFromResult derives a ParentNotification from a low quiz score.
// Scores at or above 60% return (nil, nil): nothing to notify.
func (svc *service) CreateFromResult(ctx context.Context, studentID string, res core.QuizResult) (*ParentNotification, error) {
	student, err := svc.usrSvc.GetByID(ctx, studentID)
	if err != nil {
		return nil, err
	}
	if student.Student == nil || student.Student.ParentEmail == "" {
		return nil, ErrParentNotFound
	}
	parent, err := svc.usrSvc.GetByEmail(ctx, student.Student.ParentEmail)
	if err != nil {
		if errors.Cause(err) == user.ErrNotFound {
			return nil, ErrParentNotFound
		}
		return nil, errors.Wrap(err, "finding parent by email")
	}

	pct := res.Percentage()
	typ, severity, grade, ok := Classify(pct)
	if !ok {
		return nil, nil
	}

	// friendly pre-check; the unique (student, quiz) index is the actual guarantee
	if exists, err := svc.repo.NotificationExists(ctx, studentID, res.QuizID); err != nil {
		return nil, errors.Wrap(err, "checking for existing notification")
	} else if exists {
		return nil, ErrDuplicate
	}

	now := time.Now().UTC()
	n := ParentNotification{
		StudentID: student.ID,
		ParentID:  parent.ID,
		Quiz: QuizSnapshot{
			QuizID:       res.QuizID,
			Title:        res.Title,
			Subject:      res.Subject,
			TotalMarks:   res.TotalMarks,
			PassingMarks: res.EffectivePassingMarks(),
		},
		Score: Score{
			Obtained:   res.Score,
			Percentage: math.Round(pct*100) / 100,
			Grade:      grade,
		},
		Type:     typ,
		Severity: severity,
		Priority: priorityFor(severity),
		Message: Message{
			Subject: fmt.Sprintf("Quiz Performance Alert: %s scored %.1f%% in %s", student.Name, pct, res.Subject),
			Body: fmt.Sprintf(
				"Dear %s,\n\nYour child %s scored %.1f out of %.1f (%.1f%%) in the %q quiz on %s. "+
					"This falls below the expected performance level and we recommend taking action.\n",
				parent.Name, student.Name, res.Score, res.TotalMarks, pct, res.Title, res.Subject),
			Recommendations: recommendations,
		},
		Email: EmailDetails{
			Status:     EmailPending,
			MaxRetries: svc.conf.Quiz.MaxEmailRetries,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	n.SetActive(true)

	n, err = svc.repo.CreateNotification(ctx, n)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

// DispatchEmail attempts the parent alert email and records the outcome on the
// notification. A delivery failure is recorded, not returned: the returned
// error only covers persistence problems.
func (svc *service) DispatchEmail(ctx context.Context, n *ParentNotification) error {
	parent, err := svc.usrSvc.GetByID(ctx, n.ParentID)
	if err != nil {
		return errors.Wrap(err, "finding parent")
	}

	msg := &core.EmailMessage{
		To:           []mail.Address{{Name: parent.Name, Address: parent.Email}},
		Subject:      n.Message.Subject,
		BodyStr:      n.Message.Body,
		TemplateName: "parent-alert",
		TemplateData: n,
	}

	emailID, sendErr := svc.mailSvc.SendMessage(msg)
	now := time.Now().UTC()
	if sendErr != nil {
		n.Email.Status = EmailFailed
		n.Email.FailureReason = sendErr.Error()
		svc.logger.Warn(fmt.Sprintf("parent alert email failed: %v", sendErr), sendErr)
	} else {
		n.Email.Status = EmailSent
		n.Email.EmailID = emailID
		n.Email.SentAt = now
		n.Email.FailureReason = ""
	}
	n.UpdatedAt = now

	updated, err := svc.repo.UpdateNotification(ctx, *n)
	if err != nil {
		return errors.Wrap(err, "recording email outcome")
	}
	*n = updated
	return nil
}

// RetryEmail re-dispatches a failed alert. Once RetryCount reaches MaxRetries
// further calls are rejected without incrementing the counter.
func (svc *service) RetryEmail(ctx context.Context, id string) (*ParentNotification, error) {
	n, err := svc.repo.GetNotificationByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if n.Email.RetryCount >= n.Email.MaxRetries {
		return nil, ErrRetriesExhausted
	}
	n.Email.RetryCount++
	if err = svc.DispatchEmail(ctx, &n); err != nil {
		return nil, err
	}
	return &n, nil
}

func (svc *service) Acknowledge(ctx context.Context, id, parentID, response string, requestMeeting bool) (*ParentNotification, error) {
	n, err := svc.repo.GetNotificationByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if n.ParentID != parentID {
		return nil, ErrNotFound
	}

	n.Response.Acknowledged = true
	n.Response.AcknowledgedAt = time.Now().UTC()
	n.Response.Response = core.CleanString(response)
	n.Response.RequestMeeting = requestMeeting
	n.UpdatedAt = n.Response.AcknowledgedAt

	n, err = svc.repo.UpdateNotification(ctx, n)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

func (svc *service) GetByID(ctx context.Context, id string) (ParentNotification, error) {
	return svc.repo.GetNotificationByID(ctx, id)
}

func (svc *service) QueryByParent(ctx context.Context, parentID string, acknowledged *bool, limit, offset int) ([]ParentNotification, int, error) {
	return svc.repo.QueryNotificationsByParent(ctx, parentID, acknowledged, limit, offset)
}

func (svc *service) QueryByStudent(ctx context.Context, studentID string, limit, offset int) ([]ParentNotification, int, error) {
	return svc.repo.QueryNotificationsByStudent(ctx, studentID, limit, offset)
}

func (svc *service) Statistics(ctx context.Context) (Stats, error) {
	return svc.repo.NotificationStats(ctx)
}
