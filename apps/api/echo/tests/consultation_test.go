package tests

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	. "github.com/Sadman-Shakib-Aungon/quizzyverse/apps/api/echo"
	"github.com/Sadman-Shakib-Aungon/quizzyverse/core/consultation"
	"github.com/Sadman-Shakib-Aungon/quizzyverse/core/user"
	testutil "github.com/Sadman-Shakib-Aungon/quizzyverse/tests"
)

func seedConsultation(t *testing.T, e *env) (user.User, user.User, consultation.Consultation) {
	t.Helper()
	student := testutil.CreateStudent(t, e.usrRepo, "Sam Student", "sam@test.test", "", "Mathematics")
	consultant := testutil.CreateConsultant(t, e.usrRepo, "Cleo Consultant", "cleo@test.test", 4.5, 2, "Mathematics")

	c, err := e.consulSvc.AutoAssign(context.Background(), student.ID, lowScoreResult("quiz-1"))
	if err != nil {
		t.Fatalf("AutoAssign() failed: %v", err)
	}
	return student, consultant, *c
}

func TestConsultationApi_retrieve(t *testing.T) {
	e := setup(t)
	student, consultant, c := seedConsultation(t, e)
	outsider := testutil.CreateStudent(t, e.usrRepo, "Nat Nosy", "nat@test.test", "", "Physics")

	path := fmt.Sprintf("/v1/consultations/%s", c.ID)
	tests := []httpTest{
		{name: "student participant", token: e.getToken(t, student), wantCode: http.StatusOK},
		{name: "consultant participant", token: e.getToken(t, consultant), wantCode: http.StatusOK},
		{
			name:     "outsider sees nothing",
			token:    e.getToken(t, outsider),
			wantCode: http.StatusNotFound,
			wantData: marshalObj(t, errNotFound),
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

func TestConsultationApi_schedule(t *testing.T) {
	e := setup(t)
	student, _, c := seedConsultation(t, e)
	token := e.getToken(t, student)

	path := fmt.Sprintf("/v1/consultations/%s/schedule", c.ID)
	body := marshalObj(t, consultation.ScheduleRequest{
		ScheduledAt: time.Now().Add(48 * time.Hour),
		Meeting:     consultation.Meeting{Platform: consultation.PlatformGoogleMeet, Link: "https://meet.example/abc"},
	})

	req, rec := newAuthRequest(http.MethodPut, path, token, body)
	e.server.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %v, want 200; body %s", rec.Code, rec.Body.String())
	}
	var got consultation.Consultation
	decodeBody(t, rec, &got)
	if got.Status != consultation.StatusScheduled {
		t.Errorf("Status = %q, want scheduled", got.Status)
	}
	if got.Duration != consultation.DefaultDuration {
		t.Errorf("Duration = %v, want default", got.Duration)
	}

	t.Run("rescheduling is rejected", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPut, path, token, body)
		e.server.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusBadRequest,
			wantData: marshalObj(t, httpErr{Error: consultation.ErrNotSchedulable.Error()}),
		}, rec)
	})
}

func TestConsultationApi_updateStatus(t *testing.T) {
	e := setup(t)
	student, consultant, c := seedConsultation(t, e)

	path := fmt.Sprintf("/v1/consultations/%s/status", c.ID)
	body := marshalObj(t, StatusUpdateRequest{Status: consultation.StatusCompleted, ConsultantNotes: "good session"})

	t.Run("student role is rejected", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPut, path, e.getToken(t, student), body)
		e.server.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusForbidden, wantData: marshalObj(t, errForbidden)}, rec)
	})

	t.Run("consultant completes", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPut, path, e.getToken(t, consultant), body)
		e.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v, want 200; body %s", rec.Code, rec.Body.String())
		}
		var got consultation.Consultation
		decodeBody(t, rec, &got)
		if got.Status != consultation.StatusCompleted {
			t.Errorf("Status = %q, want completed", got.Status)
		}
		if got.ConsultantNotes != "good session" {
			t.Errorf("ConsultantNotes = %q", got.ConsultantNotes)
		}
	})
}

func TestConsultationApi_feedback(t *testing.T) {
	e := setup(t)
	student, _, c := seedConsultation(t, e)

	path := fmt.Sprintf("/v1/consultations/%s/feedback", c.ID)
	body := marshalObj(t, FeedbackRequest{Rating: 5, Comment: "very helpful"})

	req, rec := newAuthRequest(http.MethodPost, path, e.getToken(t, student), body)
	e.server.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %v, want 200; body %s", rec.Code, rec.Body.String())
	}
	var got consultation.Consultation
	decodeBody(t, rec, &got)
	if got.Feedback.StudentRating != 5 {
		t.Errorf("StudentRating = %d, want 5", got.Feedback.StudentRating)
	}
}

func TestConsultationApi_availableConsultants(t *testing.T) {
	e := setup(t)
	testutil.CreateConsultant(t, e.usrRepo, "Cleo Consultant", "cleo@test.test", 4.5, 2, "Mathematics")
	testutil.CreateConsultant(t, e.usrRepo, "Phil Physics", "phil@test.test", 4.0, 1, "Physics")
	student := testutil.CreateStudent(t, e.usrRepo, "Sam Student", "sam@test.test", "", "Mathematics")

	req, rec := newAuthRequest(http.MethodGet, "/v1/consultations/consultants/Mathematics", e.getToken(t, student))
	e.server.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %v, want 200; body %s", rec.Code, rec.Body.String())
	}
	var consultants []user.User
	decodeBody(t, rec, &consultants)
	if len(consultants) != 1 || consultants[0].Email != "cleo@test.test" {
		t.Errorf("consultants = %v, want only Cleo", consultants)
	}
}
