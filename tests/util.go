package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/Sadman-Shakib-Aungon/quizzyverse/core"
	"github.com/Sadman-Shakib-Aungon/quizzyverse/core/user"
)

// NewTestConfig returns the config used across tests: test mode, default
// thresholds, a throwaway secret.
func NewTestConfig() *core.Config {
	return &core.Config{
		Debug:     true,
		TestMode:  true,
		Env:       "TEST",
		AppName:   "QuizzyVerse",
		SecretKey: []byte("test-secret"),
		Server: core.ServerConfig{
			JWTExpirationDelta:        10 * time.Minute,
			JWTRefreshExpirationDelta: 4 * time.Hour,
		},
		Quiz: core.QuizConfig{
			LowScoreThreshold: 60,
			MaxEmailRetries:   3,
		},
	}
}

// NewValidators returns a validator with all custom tags and translations registered.
func NewValidators(t *testing.T) (*validator.Validate, ut.Translator) {
	t.Helper()
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, ok := uni.GetTranslator("en")
	if !ok {
		t.Fatal("NewValidators() failed: en translator not found")
	}
	validate := validator.New()
	core.InitValidators(validate, translator)
	user.RegisterValidators(validate, translator)
	return validate, translator
}

func createUser(t *testing.T, repo user.Repository, usr user.User) user.User {
	t.Helper()
	tstamp := time.Now().UTC()
	usr.CreatedAt = tstamp
	usr.UpdatedAt = tstamp
	usr.SetActive(true)
	if err := usr.SetPassword("Sup3rS3cret!"); err != nil {
		t.Fatalf("createUser() failed: %v", err)
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("createUser() failed: %v", err)
	}
	return usr
}

func CreateStudent(t *testing.T, repo user.Repository, name, email, parentEmail string, subjects ...string) user.User {
	return createUser(t, repo, user.User{
		Name:  name,
		Email: email,
		Role:  user.RoleStudent,
		Student: &user.StudentInfo{
			ClassCode:   "CLS-10A",
			Grade:       "10",
			ParentEmail: parentEmail,
			Subjects:    subjects,
		},
	})
}

func CreateParent(t *testing.T, repo user.Repository, name, email string, children ...string) user.User {
	return createUser(t, repo, user.User{
		Name:   name,
		Email:  email,
		Role:   user.RoleParent,
		Parent: &user.ParentInfo{Children: children},
	})
}

func CreateConsultant(t *testing.T, repo user.Repository, name, email string, rating float64, total int, subjects ...string) user.User {
	return createUser(t, repo, user.User{
		Name:  name,
		Email: email,
		Role:  user.RoleConsultant,
		Consultant: &user.ConsultantInfo{
			Subjects:           subjects,
			Rating:             rating,
			TotalConsultations: total,
		},
	})
}

func CreateTeacher(t *testing.T, repo user.Repository, name, email string) user.User {
	return createUser(t, repo, user.User{Name: name, Email: email, Role: user.RoleTeacher})
}

func CreateAdmin(t *testing.T, repo user.Repository, name, email string) user.User {
	return createUser(t, repo, user.User{Name: name, Email: email, Role: user.RoleAdmin})
}
