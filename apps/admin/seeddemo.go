package main

import (
	"context"
	"time"

	"github.com/Sadman-Shakib-Aungon/quizzyverse/core/user"
)

const demoPassword = "quizzy-demo-2024"

// seedDemo loads a linked student/parent/consultant fixture set for local
// demos and manual testing. Running it twice updates the same users.
func (cli *commandLine) seedDemo() error {
	ctx := context.Background()
	now := time.Now().UTC()

	newDemoUser := func(name, email, role string) user.User {
		usr := user.User{
			Name:      name,
			Email:     email,
			Role:      role,
			CreatedAt: now,
			UpdatedAt: now,
		}
		usr.SetActive(true)
		return usr
	}

	consultant := newDemoUser("Demo Consultant", "consultant@demo.quizzyverse.local", user.RoleConsultant)
	consultant.Consultant = &user.ConsultantInfo{
		Subjects:       []string{"Mathematics", "Physics", "Chemistry"},
		Qualifications: []string{"MSc Mathematics", "Certified Tutor"},
		Rating:         4.5,
	}
	if err := cli.seedUser(ctx, &consultant); err != nil {
		return err
	}

	parent := newDemoUser("Demo Parent", "parent@demo.quizzyverse.local", user.RoleParent)
	parent.Parent = &user.ParentInfo{}
	if err := cli.seedUser(ctx, &parent); err != nil {
		return err
	}

	student := newDemoUser("Demo Student", "student@demo.quizzyverse.local", user.RoleStudent)
	student.Student = &user.StudentInfo{
		ClassCode:   "CLS-10A",
		Grade:       "10",
		ParentEmail: parent.Email,
		Subjects:    []string{"Mathematics", "Physics", "English"},
	}
	if err := cli.seedUser(ctx, &student); err != nil {
		return err
	}

	// link the parent to their child
	parent.Parent.Children = []string{student.ID}
	if err := cli.seedUser(ctx, &parent); err != nil {
		return err
	}

	teacher := newDemoUser("Demo Teacher", "teacher@demo.quizzyverse.local", user.RoleTeacher)
	if err := cli.seedUser(ctx, &teacher); err != nil {
		return err
	}

	logger.Println("demo fixtures loaded; all accounts use the same demo password")
	return nil
}

func (cli *commandLine) seedUser(ctx context.Context, usr *user.User) error {
	if existing, err := cli.usrRepo.GetUser(ctx, user.GetFilter{Email: usr.Email}); err == nil {
		usr.ID = existing.ID
		usr.CreatedAt = existing.CreatedAt
	} else if err != user.ErrNotFound {
		return err
	}
	if err := usr.SetPassword(demoPassword); err != nil {
		return err
	}
	saved, err := cli.usrRepo.UpdateOrCreateUser(ctx, *usr)
	if err != nil {
		return err
	}
	*usr = saved
	return nil
}
