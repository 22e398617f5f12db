package tests

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	. "github.com/Sadman-Shakib-Aungon/quizzyverse/apps/api/echo"
	"github.com/Sadman-Shakib-Aungon/quizzyverse/core"
	"github.com/Sadman-Shakib-Aungon/quizzyverse/core/notification"
	testutil "github.com/Sadman-Shakib-Aungon/quizzyverse/tests"
)

func lowScoreResult(quizID string) core.QuizResult {
	return core.QuizResult{
		QuizID:     quizID,
		Title:      "Algebra Basics",
		Subject:    "Mathematics",
		Score:      9,
		TotalMarks: 20,
	}
}

func TestNotificationApi_create(t *testing.T) {
	e := setup(t)

	parent := testutil.CreateParent(t, e.usrRepo, "Pat Parent", "pat@test.test")
	student := testutil.CreateStudent(t, e.usrRepo, "Sam Student", "sam@test.test", parent.Email, "Mathematics")
	teacher := testutil.CreateTeacher(t, e.usrRepo, "Tess Teacher", "tess@test.test")
	teacherToken := e.getToken(t, teacher)

	t.Run("student role is rejected", func(t *testing.T) {
		body := marshalObj(t, CreateNotificationRequest{StudentID: student.ID, Result: lowScoreResult("quiz-1")})
		req, rec := newAuthRequest(http.MethodPost, "/v1/notifications", e.getToken(t, student), body)
		e.server.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusForbidden, wantData: marshalObj(t, errForbidden)}, rec)
	})

	t.Run("low score creates notification", func(t *testing.T) {
		body := marshalObj(t, CreateNotificationRequest{StudentID: student.ID, Result: lowScoreResult("quiz-1")})
		req, rec := newAuthRequest(http.MethodPost, "/v1/notifications", teacherToken, body)
		e.server.ServeHTTP(rec, req)

		if rec.Code != http.StatusCreated {
			t.Fatalf("code = %v, want 201; body %s", rec.Code, rec.Body.String())
		}
		var n notification.ParentNotification
		decodeBody(t, rec, &n)
		if n.ParentID != parent.ID {
			t.Errorf("ParentID = %q, want %q", n.ParentID, parent.ID)
		}
		if n.Email.Status != notification.EmailSent {
			t.Errorf("Email.Status = %q, want sent", n.Email.Status)
		}
	})

	t.Run("duplicate quiz is rejected", func(t *testing.T) {
		body := marshalObj(t, CreateNotificationRequest{StudentID: student.ID, Result: lowScoreResult("quiz-1")})
		req, rec := newAuthRequest(http.MethodPost, "/v1/notifications", teacherToken, body)
		e.server.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusConflict,
			wantData: marshalObj(t, httpErr{Error: notification.ErrDuplicate.Error()}),
		}, rec)
	})

	t.Run("passing score creates nothing", func(t *testing.T) {
		res := lowScoreResult("quiz-2")
		res.Score = 18
		body := marshalObj(t, CreateNotificationRequest{StudentID: student.ID, Result: res})
		req, rec := newAuthRequest(http.MethodPost, "/v1/notifications", teacherToken, body)
		e.server.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusOK,
			wantData: []byte(`{"created": false}`),
		}, rec)
	})
}

func TestNotificationApi_acknowledge(t *testing.T) {
	e := setup(t)

	parent := testutil.CreateParent(t, e.usrRepo, "Pat Parent", "pat@test.test")
	student := testutil.CreateStudent(t, e.usrRepo, "Sam Student", "sam@test.test", parent.Email, "Mathematics")
	otherParent := testutil.CreateParent(t, e.usrRepo, "Olly Other", "olly@test.test")

	n, err := e.notifSvc.CreateFromResult(context.Background(), student.ID, lowScoreResult("quiz-1"))
	if err != nil {
		t.Fatalf("CreateFromResult() failed: %v", err)
	}

	path := fmt.Sprintf("/v1/notifications/%s/acknowledge", n.ID)
	body := marshalObj(t, AcknowledgeRequest{Response: "We will talk to Sam tonight.", RequestMeeting: true})

	t.Run("another parent cannot acknowledge", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, path, e.getToken(t, otherParent), body)
		e.server.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusNotFound,
			wantData: marshalObj(t, httpErr{Error: notification.ErrNotFound.Error()}),
		}, rec)
	})

	t.Run("owning parent acknowledges", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, path, e.getToken(t, parent), body)
		e.server.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v, want 200; body %s", rec.Code, rec.Body.String())
		}
		var got notification.ParentNotification
		decodeBody(t, rec, &got)
		if !got.Response.Acknowledged {
			t.Error("Acknowledged not set")
		}
		if !got.Response.RequestMeeting {
			t.Error("RequestMeeting not set")
		}
	})
}

func TestNotificationApi_queryByParent(t *testing.T) {
	e := setup(t)

	parent := testutil.CreateParent(t, e.usrRepo, "Pat Parent", "pat@test.test")
	student := testutil.CreateStudent(t, e.usrRepo, "Sam Student", "sam@test.test", parent.Email, "Mathematics")

	for i := 0; i < 3; i++ {
		if _, err := e.notifSvc.CreateFromResult(context.Background(), student.ID, lowScoreResult(fmt.Sprintf("quiz-%d", i))); err != nil {
			t.Fatalf("CreateFromResult() failed: %v", err)
		}
	}

	token := e.getToken(t, parent)

	req, rec := newAuthRequest(http.MethodGet, "/v1/notifications/parent?limit=2", token)
	e.server.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %v, want 200; body %s", rec.Code, rec.Body.String())
	}
	var page struct {
		Count   int                               `json:"count"`
		Results []notification.ParentNotification `json:"results"`
	}
	decodeBody(t, rec, &page)
	if page.Count != 3 {
		t.Errorf("count = %d, want 3", page.Count)
	}
	if len(page.Results) != 2 {
		t.Errorf("results len = %d, want 2 (limit)", len(page.Results))
	}

	t.Run("acknowledged filter", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/notifications/parent?acknowledged=true", token)
		e.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v, want 200; body %s", rec.Code, rec.Body.String())
		}
		decodeBody(t, rec, &page)
		if page.Count != 0 {
			t.Errorf("count = %d, want 0 acknowledged", page.Count)
		}
	})
}
