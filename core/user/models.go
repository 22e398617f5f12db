package user

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/Sadman-Shakib-Aungon/quizzyverse/core"
)

// Roles
const (
	RoleStudent    = "student"
	RoleTeacher    = "teacher"
	RoleAdmin      = "admin"
	RoleParent     = "parent"
	RoleConsultant = "consultant"
)

var (
	AllRoles = []string{RoleStudent, RoleTeacher, RoleAdmin, RoleParent, RoleConsultant}

	Roles = []Role{
		{Name: "Student", Value: RoleStudent},
		{Name: "Teacher", Value: RoleTeacher},
		{Name: "Admin", Value: RoleAdmin},
		{Name: "Parent", Value: RoleParent},
		{Name: "Consultant", Value: RoleConsultant},
	}
)

type Role struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type (
	// StudentInfo is only populated on users holding the student role.
	StudentInfo struct {
		ClassCode   string   `json:"class_code"`
		Grade       string   `json:"grade"`
		ParentEmail string   `json:"parent_email"`
		Subjects    []string `json:"subjects"`
		WeakAreas   []string `json:"weak_areas"`
	}

	ParentInfo struct {
		Children []string `json:"children"` // student user IDs
	}

	ConsultantInfo struct {
		Subjects           []string `json:"subjects"`
		Qualifications     []string `json:"qualifications"`
		Rating             float64  `json:"rating"`
		TotalConsultations int      `json:"total_consultations"`
	}

	// ActivityEntry is an append-only record of a quiz taken by a student.
	ActivityEntry struct {
		QuizID  string    `json:"quiz_id"`
		Score   float64   `json:"score"`
		Subject string    `json:"subject"`
		TakenAt time.Time `json:"taken_at"` // UTC
	}
)

type User struct {
	ID              string                 `json:"id"`
	Name            string                 `json:"name"`
	Email           string                 `json:"email"`
	Role            string                 `json:"role"`
	IsActive        *bool                  `json:"is_active"`
	PasswordHash    []byte                 `json:"-"`
	Student         *StudentInfo           `json:"student_info,omitempty"`
	Parent          *ParentInfo            `json:"parent_info,omitempty"`
	Consultant      *ConsultantInfo        `json:"consultant_info,omitempty"`
	ActivityHistory []ActivityEntry        `json:"activity_history,omitempty"`
	Preferences     map[string]interface{} `json:"preferences,omitempty"`
	CreatedAt       time.Time              `json:"created_at"` // UTC
	UpdatedAt       time.Time              `json:"updated_at"` // UTC
	LastLogin       time.Time              `json:"last_login"` // UTC
}

func (u *User) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

func (u *User) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(pwd))
}

func (u *User) SetActive(active bool) {
	u.IsActive = &active
}

func (u *User) Active() bool {
	return u.IsActive == nil || *u.IsActive
}

func (u *User) IsStudent() bool    { return u.Role == RoleStudent }
func (u *User) IsTeacher() bool    { return u.Role == RoleTeacher }
func (u *User) IsAdmin() bool      { return u.Role == RoleAdmin }
func (u *User) IsParent() bool     { return u.Role == RoleParent }
func (u *User) IsConsultant() bool { return u.Role == RoleConsultant }

// HasWeakArea reports whether subject is already recorded in the student's weak areas.
func (u *User) HasWeakArea(subject string) bool {
	if u.Student == nil {
		return false
	}
	for _, area := range u.Student.WeakAreas {
		if area == subject {
			return true
		}
	}
	return false
}

// NewUser contains information needed to create a new User.
type NewUser struct {
	Name            string          `json:"name" validate:"required"`
	Email           string          `json:"email" validate:"required,email"`
	Password        string          `json:"password" validate:"required"`
	PasswordConfirm string          `json:"password_confirm" validate:"required,eqfield=Password"`
	Role            string          `json:"role" validate:"required,knownrole"`
	Student         *StudentInfo    `json:"student_info,omitempty"`
	Parent          *ParentInfo     `json:"parent_info,omitempty"`
	Consultant      *ConsultantInfo `json:"consultant_info,omitempty"`
}

func (nu *NewUser) Validate(ctx context.Context, validate *validator.Validate, svc Service) error {
	nu.Name = core.CleanString(nu.Name)
	nu.Email = core.CleanString(nu.Email, true /* lower */)
	if nu.Student != nil {
		nu.Student.ParentEmail = core.CleanString(nu.Student.ParentEmail, true /* lower */)
	}

	if err := validate.Struct(nu); err != nil {
		return err
	}
	return svc.CheckUniqueness(ctx, nu.Email)
}

// UpdateUser defines what information may be provided to modify an existing User.
type UpdateUser struct {
	Name       string          `json:"name"`
	Email      string          `json:"email" validate:"omitempty,email"`
	IsActive   *bool           `json:"is_active"`
	Student    *StudentInfo    `json:"student_info,omitempty"`
	Parent     *ParentInfo     `json:"parent_info,omitempty"`
	Consultant *ConsultantInfo `json:"consultant_info,omitempty"`
}

func (uu *UpdateUser) Validate(ctx context.Context, origUsr User, validate *validator.Validate, svc Service) error {
	name := core.CleanString(uu.Name)
	if name != "" {
		uu.Name = name
	} else {
		uu.Name = origUsr.Name
	}

	email := core.CleanString(uu.Email, true /* lower */)
	if email != "" {
		uu.Email = email
	} else {
		uu.Email = origUsr.Email
	}

	if err := validate.Struct(uu); err != nil {
		return err
	}
	return svc.CheckUniqueness(ctx, uu.Email, origUsr)
}

type ChangePassword struct {
	OldPassword     string `json:"old_password" validate:"required"`
	Password        string `json:"password" validate:"required"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
}

func (cp ChangePassword) Validate(validate *validator.Validate) error {
	return validate.Struct(cp)
}

// GetFilter selects a single User; exactly one field should be set.
type GetFilter struct {
	ID    string
	Email string
}

type QueryFilter struct {
	Search      string    `query:"search"`
	Role        string    `query:"role"`
	IsActive    *bool     `query:"is_active"`
	CreatedFrom time.Time `query:"created_from"`
	CreatedTo   time.Time `query:"created_to"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Search == "" && qf.Role == "" && qf.IsActive == nil && qf.CreatedFrom.IsZero() && qf.CreatedTo.IsZero()
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.Role = core.CleanString(qf.Role, true /* lower */)
}
