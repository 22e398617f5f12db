package user

import (
	"context"
	"net/mail"
	"time"

	"github.com/pkg/errors"

	"github.com/Sadman-Shakib-Aungon/quizzyverse/core"
)

var (
	// errors
	ErrNotFound    = errors.New("user not found")
	ErrEmailExists = errors.New("a user with this email already exists")
)

type (
	Repository interface {
		CheckEmailUniqueness(ctx context.Context, email string, excludedUsers []User, exec ...core.DBExecutor) error
		CreateUser(ctx context.Context, usr User, exec ...core.DBExecutor) (User, error)
		GetUser(ctx context.Context, filter GetFilter, exec ...core.DBExecutor) (User, error)
		// QueryUsers applies AND operation on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on one of User.Name or User.Email.
		QueryUsers(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]User, error)
		// QueryConsultantsBySubject returns active consultants covering subject,
		// ordered by rating (best first) then total consultations (least loaded first).
		QueryConsultantsBySubject(ctx context.Context, subject string, exec ...core.DBExecutor) ([]User, error)
		UpdateUser(ctx context.Context, usr User, exec ...core.DBExecutor) (User, error)
		UpdateOrCreateUser(ctx context.Context, usr User, exec ...core.DBExecutor) (User, error)
	}

	Service interface {
		CheckUniqueness(ctx context.Context, email string, exclUsers ...User) error
		Register(ctx context.Context, nu NewUser) (User, error)
		GetByID(ctx context.Context, id string) (User, error)
		GetByEmail(ctx context.Context, email string) (User, error)
		Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]User, error)
		Update(ctx context.Context, id string, uu UpdateUser) (User, error)
		UpdatePreferences(ctx context.Context, id string, prefs map[string]interface{}) (User, error)
		ChangePassword(ctx context.Context, id string, cp ChangePassword) error
		SetLastLogin(ctx context.Context, usr User) (User, error)
		RecordActivity(ctx context.Context, usr User, entry ActivityEntry) (User, error)
		AddWeakArea(ctx context.Context, usr User, subject string) (User, error)
		ConsultantsBySubject(ctx context.Context, subject string) ([]User, error)
	}

	service struct {
		repo    Repository
		mailSvc core.EmailService
		conf    *core.Config
	}
)

var _ Service = (*service)(nil) // interface compliance check

func NewService(repo Repository, mailSvc core.EmailService, conf *core.Config) Service {
	return &service{
		repo:    repo,
		mailSvc: mailSvc,
		conf:    conf,
	}
}

func (svc *service) CheckUniqueness(ctx context.Context, email string, exclUsers ...User) error {
	if err := svc.repo.CheckEmailUniqueness(ctx, email, exclUsers); err != nil {
		if err == ErrEmailExists {
			return core.NewValidationError(err, core.FieldError{Field: "email", Error: err.Error()})
		}
		return err
	}
	return nil
}

func (svc *service) Register(ctx context.Context, nu NewUser) (User, error) {
	now := time.Now().UTC()
	usr := User{
		Name:        nu.Name,
		Email:       nu.Email,
		Role:        nu.Role,
		Preferences: make(map[string]interface{}),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	usr.SetActive(true)

	switch nu.Role {
	case RoleStudent:
		usr.Student = nu.Student
		if usr.Student == nil {
			usr.Student = &StudentInfo{}
		}
	case RoleParent:
		usr.Parent = nu.Parent
		if usr.Parent == nil {
			usr.Parent = &ParentInfo{}
		}
	case RoleConsultant:
		usr.Consultant = nu.Consultant
		if usr.Consultant == nil {
			usr.Consultant = &ConsultantInfo{}
		}
	}

	if err := usr.SetPassword(nu.Password); err != nil {
		return User{}, errors.Wrap(err, "setting password")
	}

	usr, err := svc.repo.CreateUser(ctx, usr)
	if err != nil {
		return User{}, err
	}
	svc.sendWelcomeEmail(usr)
	return usr, nil
}

func (svc *service) sendWelcomeEmail(usr User) {
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: usr.Name, Address: usr.Email}},
		Subject:      "Welcome to " + svc.conf.AppName,
		TemplateName: "welcome",
		TemplateData: struct{ User User }{usr},
	})
}

func (svc *service) GetByID(ctx context.Context, id string) (User, error) {
	return svc.repo.GetUser(ctx, GetFilter{ID: id})
}

func (svc *service) GetByEmail(ctx context.Context, email string) (User, error) {
	return svc.repo.GetUser(ctx, GetFilter{Email: core.CleanString(email, true /* lower */)})
}

func (svc *service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]User, error) {
	return svc.repo.QueryUsers(ctx, filter, ordering)
}

func (svc *service) Update(ctx context.Context, id string, uu UpdateUser) (User, error) {
	usr, err := svc.repo.GetUser(ctx, GetFilter{ID: id})
	if err != nil {
		return User{}, err
	}

	usr.Name = uu.Name
	usr.Email = uu.Email
	if uu.IsActive != nil {
		usr.IsActive = uu.IsActive
	}
	if uu.Student != nil && usr.IsStudent() {
		usr.Student = uu.Student
	}
	if uu.Parent != nil && usr.IsParent() {
		usr.Parent = uu.Parent
	}
	if uu.Consultant != nil && usr.IsConsultant() {
		usr.Consultant = uu.Consultant
	}
	usr.UpdatedAt = time.Now().UTC()

	return svc.repo.UpdateUser(ctx, usr)
}

func (svc *service) UpdatePreferences(ctx context.Context, id string, prefs map[string]interface{}) (User, error) {
	usr, err := svc.repo.GetUser(ctx, GetFilter{ID: id})
	if err != nil {
		return User{}, err
	}
	if usr.Preferences == nil {
		usr.Preferences = make(map[string]interface{}, len(prefs))
	}
	for k, v := range prefs {
		usr.Preferences[k] = v
	}
	usr.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateUser(ctx, usr)
}

func (svc *service) ChangePassword(ctx context.Context, id string, cp ChangePassword) error {
	usr, err := svc.repo.GetUser(ctx, GetFilter{ID: id})
	if err != nil {
		return err
	}
	if err = usr.CheckPassword(cp.OldPassword); err != nil {
		return core.NewValidationError(nil, core.FieldError{Field: "old_password", Error: "wrong password"})
	}
	if err = usr.SetPassword(cp.Password); err != nil {
		return errors.Wrap(err, "setting password")
	}
	usr.UpdatedAt = time.Now().UTC()
	_, err = svc.repo.UpdateUser(ctx, usr)
	return err
}

func (svc *service) SetLastLogin(ctx context.Context, usr User) (User, error) {
	usr.LastLogin = time.Now().UTC()
	return svc.repo.UpdateUser(ctx, usr)
}

// RecordActivity appends entry to the student's activity history and persists it.
// The history is append-only; it is recorded for every completed quiz regardless of score.
func (svc *service) RecordActivity(ctx context.Context, usr User, entry ActivityEntry) (User, error) {
	if entry.TakenAt.IsZero() {
		entry.TakenAt = time.Now().UTC()
	}
	usr.ActivityHistory = append(usr.ActivityHistory, entry)
	usr.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateUser(ctx, usr)
}

func (svc *service) AddWeakArea(ctx context.Context, usr User, subject string) (User, error) {
	if usr.Student == nil || usr.HasWeakArea(subject) {
		return usr, nil
	}
	usr.Student.WeakAreas = append(usr.Student.WeakAreas, subject)
	usr.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateUser(ctx, usr)
}

func (svc *service) ConsultantsBySubject(ctx context.Context, subject string) ([]User, error) {
	return svc.repo.QueryConsultantsBySubject(ctx, core.CleanString(subject))
}
