package consultation

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/Sadman-Shakib-Aungon/quizzyverse/core"
	"github.com/Sadman-Shakib-Aungon/quizzyverse/core/user"
)

var (
	// errors
	ErrNotFound               = errors.New("consultation not found")
	ErrNoConsultantAvailable  = errors.New("no consultant available for this subject")
	ErrNotSchedulable         = errors.New("consultation cannot be scheduled in its current status")
	ErrUnknownStatus          = errors.New("unknown consultation status")
	ErrNotConsultant          = errors.New("user is not an active consultant")
	ErrFeedbackNotParticipant = errors.New("only the student or consultant may leave feedback")
)

type (
	Repository interface {
		CreateConsultation(ctx context.Context, c Consultation, exec ...core.DBExecutor) (Consultation, error)
		GetConsultationByID(ctx context.Context, id string, exec ...core.DBExecutor) (Consultation, error)
		UpdateConsultation(ctx context.Context, c Consultation, exec ...core.DBExecutor) (Consultation, error)
		// QueryConsultationsByStudent returns a page of the student's active
		// consultations, most recent first, plus the unpaginated total.
		QueryConsultationsByStudent(ctx context.Context, studentID, status string, limit, offset int, exec ...core.DBExecutor) ([]Consultation, int, error)
		QueryConsultationsByConsultant(ctx context.Context, consultantID, status string, limit, offset int, exec ...core.DBExecutor) ([]Consultation, int, error)
		// QueryRatedByConsultant returns all consultations for the consultant
		// carrying a student rating.
		QueryRatedByConsultant(ctx context.Context, consultantID string, exec ...core.DBExecutor) ([]Consultation, error)
		ConsultationStats(ctx context.Context, exec ...core.DBExecutor) (Stats, error)
	}

	Stats struct {
		Total     int            `json:"total"`
		ByStatus  map[string]int `json:"by_status"`
		BySubject map[string]int `json:"by_subject"`
	}

	Service interface {
		AutoAssign(ctx context.Context, studentID string, res core.QuizResult) (*Consultation, error)
		Create(ctx context.Context, nc NewConsultation) (*Consultation, error)
		Schedule(ctx context.Context, id string, req ScheduleRequest) (*Consultation, error)
		UpdateStatus(ctx context.Context, id, status, consultantNotes string) (*Consultation, error)
		AddFeedback(ctx context.Context, id, byUserID string, rating int, comment string) (*Consultation, error)
		AvailableConsultants(ctx context.Context, subject string) ([]user.User, error)
		GetByID(ctx context.Context, id string) (Consultation, error)
		QueryByStudent(ctx context.Context, studentID, status string, limit, offset int) ([]Consultation, int, error)
		QueryByConsultant(ctx context.Context, consultantID, status string, limit, offset int) ([]Consultation, int, error)
		Statistics(ctx context.Context) (Stats, error)
	}

	service struct {
		repo   Repository
		usrSvc user.Service
		logger core.Logger
	}
)

var _ Service = (*service)(nil) // interface compliance check

func NewService(repo Repository, usrSvc user.Service, logger core.Logger) Service {
	return &service{
		repo:   repo,
		usrSvc: usrSvc,
		logger: logger,
	}
}

// AutoAssign picks the best available consultant for the quiz subject and
// creates a requested consultation. Candidates are ranked by rating, ties
// broken by the lightest current load; the first candidate wins. No record is
// created when no consultant covers the subject.
func (svc *service) AutoAssign(ctx context.Context, studentID string, res core.QuizResult) (*Consultation, error) {
	student, err := svc.usrSvc.GetByID(ctx, studentID)
	if err != nil {
		return nil, err
	}

	candidates, err := svc.usrSvc.ConsultantsBySubject(ctx, res.Subject)
	if err != nil {
		return nil, errors.Wrap(err, "querying consultants")
	}
	if len(candidates) == 0 {
		return nil, ErrNoConsultantAvailable
	}
	consultant := candidates[0]

	pct := res.Percentage()
	priority, typ := ClassifyPriority(pct)

	c := svc.build(student.ID, consultant.ID, res, typ, priority)
	c.AutomaticallyAssigned = true
	c.AssignmentReason = fmt.Sprintf("Automatically assigned after scoring %.1f%% in %s quiz %q", pct, res.Subject, res.Title)

	c, err = svc.repo.CreateConsultation(ctx, c)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// Create is the manual-assignment entry point: the caller names the consultant.
func (svc *service) Create(ctx context.Context, nc NewConsultation) (*Consultation, error) {
	student, err := svc.usrSvc.GetByID(ctx, nc.StudentID)
	if err != nil {
		return nil, err
	}
	consultant, err := svc.usrSvc.GetByID(ctx, nc.ConsultantID)
	if err != nil {
		if errors.Cause(err) == user.ErrNotFound {
			return nil, core.NewValidationError(ErrNotConsultant, core.FieldError{Field: "consultant_id", Error: ErrNotConsultant.Error()})
		}
		return nil, err
	}
	if !consultant.IsConsultant() || !consultant.Active() {
		return nil, core.NewValidationError(ErrNotConsultant, core.FieldError{Field: "consultant_id", Error: ErrNotConsultant.Error()})
	}

	priority, _ := ClassifyPriority(nc.Quiz.Percentage())

	c := svc.build(student.ID, consultant.ID, nc.Quiz, nc.Type, priority)
	c.StudentNotes = nc.StudentNotes

	c, err = svc.repo.CreateConsultation(ctx, c)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (svc *service) build(studentID, consultantID string, res core.QuizResult, typ, priority string) Consultation {
	now := time.Now().UTC()
	c := Consultation{
		StudentID:    studentID,
		ConsultantID: consultantID,
		TriggerQuiz: TriggerQuiz{
			QuizID:     res.QuizID,
			Title:      res.Title,
			Subject:    res.Subject,
			Score:      res.Score,
			TotalMarks: res.TotalMarks,
			Percentage: res.Percentage(),
		},
		Type:      typ,
		Priority:  priority,
		Status:    StatusRequested,
		Duration:  DefaultDuration,
		CreatedAt: now,
		UpdatedAt: now,
	}
	c.SetActive(true)
	return c
}

func (svc *service) Schedule(ctx context.Context, id string, req ScheduleRequest) (*Consultation, error) {
	c, err := svc.repo.GetConsultationByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !c.CanBeScheduled() {
		return nil, ErrNotSchedulable
	}

	c.Status = StatusScheduled
	c.ScheduledAt = req.ScheduledAt.UTC()
	c.Duration = req.Duration
	c.Meeting = req.Meeting
	c.UpdatedAt = time.Now().UTC()

	c, err = svc.repo.UpdateConsultation(ctx, c)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// UpdateStatus moves the consultation to status. Completing a consultation
// additionally increments the consultant's total-consultation counter; no
// other transition has a cross-entity side effect, and no transition order is
// enforced beyond the status being a known one.
func (svc *service) UpdateStatus(ctx context.Context, id, status, consultantNotes string) (*Consultation, error) {
	status = core.CleanString(status, true /* lower */)
	if !knownStatus(status) {
		return nil, core.NewValidationError(ErrUnknownStatus, core.FieldError{Field: "status", Error: ErrUnknownStatus.Error()})
	}

	c, err := svc.repo.GetConsultationByID(ctx, id)
	if err != nil {
		return nil, err
	}

	completing := status == StatusCompleted && c.Status != StatusCompleted
	c.Status = status
	if notes := core.CleanString(consultantNotes); notes != "" {
		c.ConsultantNotes = notes
	}
	c.UpdatedAt = time.Now().UTC()

	c, err = svc.repo.UpdateConsultation(ctx, c)
	if err != nil {
		return nil, err
	}

	if completing {
		if err = svc.incrementConsultantTotal(ctx, c.ConsultantID); err != nil {
			return nil, errors.Wrap(err, "incrementing consultant total")
		}
	}
	return &c, nil
}

func (svc *service) incrementConsultantTotal(ctx context.Context, consultantID string) error {
	consultant, err := svc.usrSvc.GetByID(ctx, consultantID)
	if err != nil {
		return err
	}
	if consultant.Consultant == nil {
		consultant.Consultant = &user.ConsultantInfo{}
	}
	consultant.Consultant.TotalConsultations++
	_, err = svc.usrSvc.Update(ctx, consultant.ID, user.UpdateUser{
		Name:       consultant.Name,
		Email:      consultant.Email,
		Consultant: consultant.Consultant,
	})
	return err
}

// AddFeedback records a rating and comment from either participant. A student
// rating recomputes the consultant's average rating over all rated sessions.
func (svc *service) AddFeedback(ctx context.Context, id, byUserID string, rating int, comment string) (*Consultation, error) {
	if rating < 1 || rating > 5 {
		return nil, core.NewValidationError(nil, core.FieldError{Field: "rating", Error: "rating must be between 1 and 5"})
	}

	c, err := svc.repo.GetConsultationByID(ctx, id)
	if err != nil {
		return nil, err
	}

	comment = core.CleanString(comment)
	switch byUserID {
	case c.StudentID:
		c.Feedback.StudentRating = rating
		c.Feedback.StudentComment = comment
	case c.ConsultantID:
		c.Feedback.ConsultantRating = rating
		c.Feedback.ConsultantComment = comment
	default:
		return nil, ErrFeedbackNotParticipant
	}
	c.UpdatedAt = time.Now().UTC()

	c, err = svc.repo.UpdateConsultation(ctx, c)
	if err != nil {
		return nil, err
	}

	if byUserID == c.StudentID {
		if err = svc.recomputeConsultantRating(ctx, c.ConsultantID); err != nil {
			return nil, errors.Wrap(err, "recomputing consultant rating")
		}
	}
	return &c, nil
}

func (svc *service) recomputeConsultantRating(ctx context.Context, consultantID string) error {
	rated, err := svc.repo.QueryRatedByConsultant(ctx, consultantID)
	if err != nil {
		return err
	}
	if len(rated) == 0 {
		return nil
	}
	var sum int
	for _, c := range rated {
		sum += c.Feedback.StudentRating
	}
	avg := float64(sum) / float64(len(rated))

	consultant, err := svc.usrSvc.GetByID(ctx, consultantID)
	if err != nil {
		return err
	}
	if consultant.Consultant == nil {
		consultant.Consultant = &user.ConsultantInfo{}
	}
	consultant.Consultant.Rating = avg
	_, err = svc.usrSvc.Update(ctx, consultant.ID, user.UpdateUser{
		Name:       consultant.Name,
		Email:      consultant.Email,
		Consultant: consultant.Consultant,
	})
	return err
}

func (svc *service) AvailableConsultants(ctx context.Context, subject string) ([]user.User, error) {
	return svc.usrSvc.ConsultantsBySubject(ctx, subject)
}

func (svc *service) GetByID(ctx context.Context, id string) (Consultation, error) {
	return svc.repo.GetConsultationByID(ctx, id)
}

func (svc *service) QueryByStudent(ctx context.Context, studentID, status string, limit, offset int) ([]Consultation, int, error) {
	return svc.repo.QueryConsultationsByStudent(ctx, studentID, status, limit, offset)
}

func (svc *service) QueryByConsultant(ctx context.Context, consultantID, status string, limit, offset int) ([]Consultation, int, error) {
	return svc.repo.QueryConsultationsByConsultant(ctx, consultantID, status, limit, offset)
}

func (svc *service) Statistics(ctx context.Context) (Stats, error) {
	return svc.repo.ConsultationStats(ctx)
}
