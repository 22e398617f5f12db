package tests

import (
	"context"
	"net/http"
	"testing"

	. "github.com/Sadman-Shakib-Aungon/quizzyverse/apps/api/echo"
	"github.com/Sadman-Shakib-Aungon/quizzyverse/core/user"
	testutil "github.com/Sadman-Shakib-Aungon/quizzyverse/tests"
)

func TestUserApi_login(t *testing.T) {
	e := setup(t)

	student := testutil.CreateStudent(t, e.usrRepo, "Sam Student", "sam@test.test", "", "Mathematics")

	inactive := testutil.CreateTeacher(t, e.usrRepo, "Ina Active", "ina@test.test")
	inactive.SetActive(false)
	if _, err := e.usrRepo.UpdateUser(context.Background(), inactive); err != nil {
		t.Fatalf("deactivating user failed: %v", err)
	}

	tests := []httpTest{
		{
			name:     "wrong password",
			body:     marshalObj(t, LoginRequest{Email: student.Email, Password: "nope"}),
			wantCode: http.StatusBadRequest,
			wantData: marshalObj(t, httpErr{Error: "authentication failed"}),
		},
		{
			name:     "unknown email",
			body:     marshalObj(t, LoginRequest{Email: "ghost@test.test", Password: testUserPassword}),
			wantCode: http.StatusBadRequest,
			wantData: marshalObj(t, httpErr{Error: "authentication failed"}),
		},
		{
			name:     "deactivated account",
			body:     marshalObj(t, LoginRequest{Email: inactive.Email, Password: testUserPassword}),
			wantCode: http.StatusForbidden,
			wantData: marshalObj(t, httpErr{Error: "account deactivated"}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(http.MethodPost, "/v1/users/login", tt.body)
			e.server.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	t.Run("valid credentials", func(t *testing.T) {
		body := marshalObj(t, LoginRequest{Email: student.Email, Password: testUserPassword})
		req, rec := newRequest(http.MethodPost, "/v1/users/login", body)
		e.server.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v, want 200; body %s", rec.Code, rec.Body.String())
		}
		var resp LoginResponse
		decodeBody(t, rec, &resp)
		if resp.Token == "" {
			t.Error("empty token returned")
		}
	})
}

func TestUserApi_profile(t *testing.T) {
	e := setup(t)
	student := testutil.CreateStudent(t, e.usrRepo, "Sam Student", "sam@test.test", "", "Mathematics")

	t.Run("no token", func(t *testing.T) {
		req, rec := newRequest(http.MethodGet, "/v1/users/profile")
		e.server.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusUnauthorized,
			wantData: marshalObj(t, errMissingToken),
		}, rec)
	})

	t.Run("own profile", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/users/profile", e.getToken(t, student))
		e.server.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusOK,
			wantData: marshalObj(t, student),
		}, rec)
	})
}

// TestUserApi_tokenRefresh walks a token through the full round trip: sign it,
// have the jwt middleware accept it, resolve the context claims and mint a
// replacement that protected routes accept in turn.
func TestUserApi_tokenRefresh(t *testing.T) {
	e := setup(t)
	student := testutil.CreateStudent(t, e.usrRepo, "Sam Student", "sam@test.test", "", "Mathematics")

	t.Run("no token", func(t *testing.T) {
		req, rec := newRequest(http.MethodPost, "/v1/users/token-refresh")
		e.server.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusUnauthorized,
			wantData: marshalObj(t, errMissingToken),
		}, rec)
	})

	req, rec := newAuthRequest(http.MethodPost, "/v1/users/token-refresh", e.getToken(t, student))
	e.server.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %v, want 200; body %s", rec.Code, rec.Body.String())
	}
	var resp LoginResponse
	decodeBody(t, rec, &resp)
	if resp.Token == "" {
		t.Fatal("no refreshed token returned")
	}

	t.Run("refreshed token is accepted", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/users/profile", resp.Token)
		e.server.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusOK,
			wantData: marshalObj(t, student),
		}, rec)
	})
}

func TestUserApi_query(t *testing.T) {
	e := setup(t)
	student := testutil.CreateStudent(t, e.usrRepo, "Sam Student", "sam@test.test", "", "Mathematics")
	admin := testutil.CreateAdmin(t, e.usrRepo, "Ada Admin", "ada@test.test")

	tests := []httpTest{
		{
			name:     "anonymous is rejected",
			wantCode: http.StatusUnauthorized,
			wantData: marshalObj(t, errMissingToken),
		},
		{
			name:     "non-admin is rejected",
			token:    e.getToken(t, student),
			wantCode: http.StatusForbidden,
			wantData: marshalObj(t, errForbidden),
		},
		{
			name:     "admin lists users",
			token:    e.getToken(t, admin),
			wantCode: http.StatusOK,
			wantData: marshalObj(t, []user.User{admin, student}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodGet, "/v1/users", tt.token)
			e.server.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func TestUserApi_changePassword(t *testing.T) {
	e := setup(t)
	student := testutil.CreateStudent(t, e.usrRepo, "Sam Student", "sam@test.test", "", "Mathematics")
	token := e.getToken(t, student)

	body := marshalObj(t, user.ChangePassword{
		OldPassword:     testUserPassword,
		Password:        "N3w-Sup3rS3cret!",
		PasswordConfirm: "N3w-Sup3rS3cret!",
	})
	req, rec := newAuthRequest(http.MethodPut, "/v1/users/change-password", token, body)
	e.server.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{
		wantCode: http.StatusOK,
		wantData: marshalObj(t, SuccessResponse{Success: "Password has been changed."}),
	}, rec)

	got, err := e.usrRepo.GetUser(context.Background(), user.GetFilter{ID: student.ID})
	if err != nil {
		t.Fatalf("GetUser() failed: %v", err)
	}
	if err = got.CheckPassword("N3w-Sup3rS3cret!"); err != nil {
		t.Error("new password not set")
	}
}
