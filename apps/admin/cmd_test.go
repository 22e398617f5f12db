package main

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"testing"

	"github.com/Sadman-Shakib-Aungon/quizzyverse/core/user"
	dummydb "github.com/Sadman-Shakib-Aungon/quizzyverse/storage/database/dummy"
	testutil "github.com/Sadman-Shakib-Aungon/quizzyverse/tests"
)

var usrRepo user.Repository

func setup(t *testing.T) *commandLine {
	t.Helper()
	db, err := dummydb.Open()
	if err != nil {
		t.Fatalf("setup() failed: %v", err)
	}
	usrRepo = dummydb.NewUserRepository(db)

	return &commandLine{
		conf:    testutil.NewTestConfig(),
		usrRepo: usrRepo,
	}
}

type cliTest struct {
	name       string
	args       []string // without program name
	pwd        string
	wantErr    error
	wantErrStr string
}

func Test_commandLine_migrate(t *testing.T) {
	cli := setup(t)

	migrateRunFunc = func(db *sql.DB, command string, args ...string) error {
		switch command {
		case "up", "up-by-one", "down", "fix", "redo", "reset", "status", "version": // pass
		case "up-to", "down-to":
			if len(args) == 0 {
				return fmt.Errorf("%s requires a VERSION argument", command)
			}
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		return nil
	}

	tests := []cliTest{
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to requires a VERSION argument"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "down", args: []string{"migrate", "down"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "up-to", args: []string{"migrate", "up-to", "2"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			if err := cli.run(args); err != nil {
				if tt.wantErr != nil {
					if err != tt.wantErr {
						t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
					}
				} else if tt.wantErrStr != "" {
					if err.Error() != tt.wantErrStr {
						t.Errorf("cli.run() error.Error() = %s, wantErrStr %s", err.Error(), tt.wantErrStr)
					}
				} else {
					t.Errorf("cli.run() unexpected error = %v", err)
				}
			}
		})
	}
}

func Test_commandLine_addUser(t *testing.T) {
	cli := setup(t)

	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "no args", args: []string{"adduser"}, wantErr: errHelp},
		{name: "name but no email", args: []string{"adduser", "-name", "Tess"}, wantErr: errHelp},
		{name: "empty password", args: []string{"adduser", "-name", "Tess Teacher", "-email", "tess@test.test"}, wantErr: errHelp},
		{name: "new teacher", args: []string{"adduser", "-name", "Tess Teacher", "-email", "tess@test.test"}, pwd: "S3cret-stuff!"},
		{name: "promote to admin", args: []string{"adduser", "-name", "Tess Teacher", "-email", "tess@test.test", "-admin"}, pwd: "S3cret-stuff!"},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		readPasswordFunc = func(fd int) ([]byte, error) {
			return []byte(tt.pwd), nil
		}

		t.Run(tt.name, func(t *testing.T) {
			if err := cli.run(args); err != tt.wantErr {
				t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}

	usr, err := usrRepo.GetUser(context.Background(), user.GetFilter{Email: "tess@test.test"})
	if err != nil {
		t.Fatalf("GetUser() failed: %v", err)
	}
	if usr.Role != user.RoleAdmin {
		t.Errorf("Role = %q, want admin after -admin rerun", usr.Role)
	}
	if err = usr.CheckPassword("S3cret-stuff!"); err != nil {
		t.Error("password not set")
	}
}

func Test_commandLine_resetPassword(t *testing.T) {
	cli := setup(t)

	usr := testutil.CreateTeacher(t, usrRepo, "Tess Teacher", "tess@test.test")

	tests := []cliTest{
		{name: "no email", args: []string{"resetpassword"}, wantErr: errHelp},
		{name: "empty password", args: []string{"resetpassword", "-email", usr.Email}, wantErr: errHelp},
		{name: "user not found", args: []string{"resetpassword", "-email", "ghost@test.test"}, pwd: "lol", wantErr: user.ErrNotFound},
		{name: "reset", args: []string{"resetpassword", "-email", usr.Email}, pwd: "new-S3cret!"},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		readPasswordFunc = func(fd int) ([]byte, error) {
			return []byte(tt.pwd), nil
		}

		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(args)
			if err == nil {
				refreshed, err := usrRepo.GetUser(context.Background(), user.GetFilter{ID: usr.ID})
				if err != nil {
					t.Fatalf("GetUser() failed: %v", err)
				}
				if bytes.Equal(refreshed.PasswordHash, usr.PasswordHash) {
					t.Error("failed to update new password")
				}
			} else if err != tt.wantErr {
				t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func Test_commandLine_seedDemo(t *testing.T) {
	cli := setup(t)

	if err := cli.run([]string{"admin", "seeddemo"}); err != nil {
		t.Fatalf("cli.run() error = %v", err)
	}

	parent, err := usrRepo.GetUser(context.Background(), user.GetFilter{Email: "parent@demo.quizzyverse.local"})
	if err != nil {
		t.Fatalf("demo parent not created: %v", err)
	}
	student, err := usrRepo.GetUser(context.Background(), user.GetFilter{Email: "student@demo.quizzyverse.local"})
	if err != nil {
		t.Fatalf("demo student not created: %v", err)
	}
	if len(parent.Parent.Children) != 1 || parent.Parent.Children[0] != student.ID {
		t.Errorf("demo parent not linked to student: %v", parent.Parent.Children)
	}

	// seeding twice must not duplicate accounts
	if err = cli.run([]string{"admin", "seeddemo"}); err != nil {
		t.Fatalf("cli.run() error = %v", err)
	}
	users, err := usrRepo.QueryUsers(context.Background(), &user.QueryFilter{}, nil)
	if err != nil {
		t.Fatalf("QueryUsers() failed: %v", err)
	}
	if len(users) != 4 {
		t.Errorf("got %d users after double seed, want 4", len(users))
	}
}
