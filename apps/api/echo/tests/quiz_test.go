package tests

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	. "github.com/Sadman-Shakib-Aungon/quizzyverse/apps/api/echo"
	"github.com/Sadman-Shakib-Aungon/quizzyverse/core/quiz"
	testutil "github.com/Sadman-Shakib-Aungon/quizzyverse/tests"
)

func TestQuizApi_complete(t *testing.T) {
	e := setup(t)

	parent := testutil.CreateParent(t, e.usrRepo, "Pat Parent", "pat@test.test")
	student := testutil.CreateStudent(t, e.usrRepo, "Sam Student", "sam@test.test", parent.Email, "Mathematics")
	teacher := testutil.CreateTeacher(t, e.usrRepo, "Tess Teacher", "tess@test.test")
	testutil.CreateConsultant(t, e.usrRepo, "Cleo Consultant", "cleo@test.test", 4.5, 2, "Mathematics")

	body := marshalObj(t, CompletionRequest{StudentID: student.ID, Result: lowScoreResult("quiz-1")})

	t.Run("student role is rejected", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/quiz/complete", e.getToken(t, student), body)
		e.server.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusForbidden, wantData: marshalObj(t, errForbidden)}, rec)
	})

	t.Run("teacher submits completion", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/quiz/complete", e.getToken(t, teacher), body)
		e.server.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v, want 200; body %s", rec.Code, rec.Body.String())
		}
		var pr quiz.ProcessResult
		decodeBody(t, rec, &pr)
		if !pr.LowScore || !pr.NotificationCreated || !pr.ConsultationCreated {
			t.Errorf("unexpected result: %+v", pr)
		}
		if len(pr.Errors) > 0 {
			t.Errorf("branch errors: %v", pr.Errors)
		}
	})
}

func TestQuizApi_batchComplete(t *testing.T) {
	e := setup(t)

	student := testutil.CreateStudent(t, e.usrRepo, "Sam Student", "sam@test.test", "", "Mathematics")
	teacher := testutil.CreateTeacher(t, e.usrRepo, "Tess Teacher", "tess@test.test")

	res := lowScoreResult("quiz-1")
	res.Score = 18
	body := marshalObj(t, BatchCompletionRequest{Completions: []quiz.Completion{
		{StudentID: student.ID, Result: res},
		{StudentID: "no-such-student", Result: lowScoreResult("quiz-2")},
	}})

	req, rec := newAuthRequest(http.MethodPost, "/v1/quiz/batch-complete", e.getToken(t, teacher), body)
	e.server.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %v, want 200; body %s", rec.Code, rec.Body.String())
	}

	var results []quiz.BatchItemResult
	decodeBody(t, rec, &results)
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	if !results[0].Success {
		t.Errorf("first item should succeed: %+v", results[0])
	}
	if results[1].Success {
		t.Errorf("second item should fail: %+v", results[1])
	}
}

func TestQuizApi_performance(t *testing.T) {
	e := setup(t)

	parent := testutil.CreateParent(t, e.usrRepo, "Pat Parent", "pat@test.test")
	student := testutil.CreateStudent(t, e.usrRepo, "Sam Student", "sam@test.test", parent.Email, "Mathematics")
	otherStudent := testutil.CreateStudent(t, e.usrRepo, "Nat Nosy", "nat@test.test", "", "Physics")
	teacher := testutil.CreateTeacher(t, e.usrRepo, "Tess Teacher", "tess@test.test")

	// link the child to the parent portal account
	parent.Parent.Children = []string{student.ID}
	var err error
	if parent, err = e.usrRepo.UpdateUser(context.Background(), parent); err != nil {
		t.Fatalf("linking parent failed: %v", err)
	}

	path := fmt.Sprintf("/v1/quiz/performance/%s", student.ID)
	tests := []httpTest{
		{name: "teacher", token: e.getToken(t, teacher), wantCode: http.StatusOK},
		{name: "the student themselves", token: e.getToken(t, student), wantCode: http.StatusOK},
		{name: "their parent", token: e.getToken(t, parent), wantCode: http.StatusOK},
		{
			name:     "another student",
			token:    e.getToken(t, otherStudent),
			wantCode: http.StatusForbidden,
			wantData: marshalObj(t, errForbidden),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodGet, path, tt.token)
			e.server.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func TestQuizApi_statistics(t *testing.T) {
	e := setup(t)

	teacher := testutil.CreateTeacher(t, e.usrRepo, "Tess Teacher", "tess@test.test")
	admin := testutil.CreateAdmin(t, e.usrRepo, "Ada Admin", "ada@test.test")

	t.Run("non-admin is rejected", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/quiz/statistics", e.getToken(t, teacher))
		e.server.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusForbidden, wantData: marshalObj(t, errForbidden)}, rec)
	})

	t.Run("admin reads statistics", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/quiz/statistics", e.getToken(t, admin))
		e.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v, want 200; body %s", rec.Code, rec.Body.String())
		}
		var stats quiz.SystemStatistics
		decodeBody(t, rec, &stats)
		if stats.ActiveStudents != 0 {
			t.Errorf("ActiveStudents = %d, want 0", stats.ActiveStudents)
		}
	})
}
