package consultation_test

import (
	"context"
	"log"
	"os"
	"testing"
	"time"

	"github.com/Sadman-Shakib-Aungon/quizzyverse/core"
	"github.com/Sadman-Shakib-Aungon/quizzyverse/core/consultation"
	"github.com/Sadman-Shakib-Aungon/quizzyverse/core/user"
	emailsvc "github.com/Sadman-Shakib-Aungon/quizzyverse/services/email"
	logsvc "github.com/Sadman-Shakib-Aungon/quizzyverse/services/logger"
	dummydb "github.com/Sadman-Shakib-Aungon/quizzyverse/storage/database/dummy"
	testutil "github.com/Sadman-Shakib-Aungon/quizzyverse/tests"
)

func setup(t *testing.T) (consultation.Service, user.Service, user.Repository) {
	t.Helper()
	db, err := dummydb.Open()
	if err != nil {
		t.Fatalf("setup() failed: %v", err)
	}
	conf := testutil.NewTestConfig()
	logger := logsvc.NewStdLogger(log.New(os.Stdout, "TEST : ", log.LstdFlags))
	mailSvc := emailsvc.NewConsoleServiceMock(conf)

	usrRepo := dummydb.NewUserRepository(db)
	usrSvc := user.NewService(usrRepo, mailSvc, conf)
	svc := consultation.NewService(dummydb.NewConsultationRepository(db), usrSvc, logger)
	return svc, usrSvc, usrRepo
}

func TestClassifyPriority(t *testing.T) {
	tests := []struct {
		name         string
		pct          float64
		wantPriority string
		wantType     string
	}{
		{name: "urgent", pct: 30, wantPriority: consultation.PriorityUrgent, wantType: consultation.TypeExamPreparation},
		{name: "high", pct: 45, wantPriority: consultation.PriorityHigh, wantType: consultation.TypeStudyStrategy},
		{name: "medium", pct: 55, wantPriority: consultation.PriorityMedium, wantType: consultation.TypeAcademicSupport},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			priority, typ := consultation.ClassifyPriority(tt.pct)
			if priority != tt.wantPriority || typ != tt.wantType {
				t.Errorf("ClassifyPriority(%v) = (%q, %q), want (%q, %q)",
					tt.pct, priority, typ, tt.wantPriority, tt.wantType)
			}
		})
	}
}

func TestService_AutoAssign(t *testing.T) {
	svc, _, usrRepo := setup(t)
	ctx := context.Background()

	student := testutil.CreateStudent(t, usrRepo, "Sam Student", "sam@test.test", "", "Mathematics")
	// same rating; the least loaded consultant must win
	testutil.CreateConsultant(t, usrRepo, "Busy Consultant", "busy@test.test", 4.8, 42, "Mathematics")
	best := testutil.CreateConsultant(t, usrRepo, "Best Consultant", "best@test.test", 4.8, 3, "Mathematics")
	testutil.CreateConsultant(t, usrRepo, "Lower Rated", "lower@test.test", 3.9, 0, "Mathematics")

	res := core.QuizResult{QuizID: "quiz-1", Title: "Algebra Basics", Subject: "Mathematics", Score: 7, TotalMarks: 20}

	c, err := svc.AutoAssign(ctx, student.ID, res)
	if err != nil {
		t.Fatalf("AutoAssign() error = %v", err)
	}
	if c.ConsultantID != best.ID {
		t.Errorf("ConsultantID = %q, want %q (best rated, least loaded)", c.ConsultantID, best.ID)
	}
	if c.Status != consultation.StatusRequested {
		t.Errorf("Status = %q, want requested", c.Status)
	}
	if c.Priority != consultation.PriorityUrgent || c.Type != consultation.TypeExamPreparation {
		t.Errorf("classification = (%q, %q), want (urgent, exam_preparation)", c.Priority, c.Type)
	}
	if !c.AutomaticallyAssigned {
		t.Error("AutomaticallyAssigned not set")
	}
	want := `Automatically assigned after scoring 35.0% in Mathematics quiz "Algebra Basics"`
	if c.AssignmentReason != want {
		t.Errorf("AssignmentReason = %q, want %q", c.AssignmentReason, want)
	}

	t.Run("no consultant for subject", func(t *testing.T) {
		res := res
		res.Subject = "History"
		if _, err := svc.AutoAssign(ctx, student.ID, res); err != consultation.ErrNoConsultantAvailable {
			t.Errorf("AutoAssign() error = %v, want %v", err, consultation.ErrNoConsultantAvailable)
		}
	})
}

func TestService_Schedule(t *testing.T) {
	svc, _, usrRepo := setup(t)
	ctx := context.Background()

	student := testutil.CreateStudent(t, usrRepo, "Sam Student", "sam@test.test", "", "Physics")
	testutil.CreateConsultant(t, usrRepo, "Cleo Consultant", "cleo@test.test", 4.2, 1, "Physics")

	c, err := svc.AutoAssign(ctx, student.ID, core.QuizResult{
		QuizID: "quiz-2", Title: "Motion", Subject: "Physics", Score: 8, TotalMarks: 20,
	})
	if err != nil {
		t.Fatalf("AutoAssign() failed: %v", err)
	}

	req := consultation.ScheduleRequest{
		ScheduledAt: time.Now().Add(48 * time.Hour),
		Duration:    45 * time.Minute,
		Meeting:     consultation.Meeting{Platform: consultation.PlatformZoom, Link: "https://zoom.example/j/123"},
	}
	c, err = svc.Schedule(ctx, c.ID, req)
	if err != nil {
		t.Fatalf("Schedule() error = %v", err)
	}
	if c.Status != consultation.StatusScheduled {
		t.Errorf("Status = %q, want scheduled", c.Status)
	}
	if c.Duration != 45*time.Minute {
		t.Errorf("Duration = %v, want 45m", c.Duration)
	}
	if c.Meeting.Platform != consultation.PlatformZoom {
		t.Errorf("Meeting.Platform = %q, want zoom", c.Meeting.Platform)
	}

	// scheduled consultations may not be scheduled again
	if _, err = svc.Schedule(ctx, c.ID, req); err != consultation.ErrNotSchedulable {
		t.Errorf("Schedule() error = %v, want %v", err, consultation.ErrNotSchedulable)
	}

	// cancelling reopens scheduling
	c, err = svc.UpdateStatus(ctx, c.ID, consultation.StatusCancelled, "")
	if err != nil {
		t.Fatalf("UpdateStatus() error = %v", err)
	}
	if !c.CanBeScheduled() {
		t.Error("cancelled consultation should be schedulable again")
	}
}

func TestService_UpdateStatus_completionIncrementsTotal(t *testing.T) {
	svc, usrSvc, usrRepo := setup(t)
	ctx := context.Background()

	student := testutil.CreateStudent(t, usrRepo, "Sam Student", "sam@test.test", "", "Chemistry")
	consultant := testutil.CreateConsultant(t, usrRepo, "Cleo Consultant", "cleo@test.test", 4.2, 7, "Chemistry")

	c, err := svc.AutoAssign(ctx, student.ID, core.QuizResult{
		QuizID: "quiz-3", Title: "Bonding", Subject: "Chemistry", Score: 9, TotalMarks: 20,
	})
	if err != nil {
		t.Fatalf("AutoAssign() failed: %v", err)
	}

	if _, err = svc.UpdateStatus(ctx, c.ID, "definitely-not-a-status", ""); err == nil {
		t.Error("UpdateStatus() with unknown status should fail")
	}

	if _, err = svc.UpdateStatus(ctx, c.ID, consultation.StatusCompleted, "went well"); err != nil {
		t.Fatalf("UpdateStatus() error = %v", err)
	}
	got, err := usrSvc.GetByID(ctx, consultant.ID)
	if err != nil {
		t.Fatalf("GetByID() failed: %v", err)
	}
	if got.Consultant.TotalConsultations != 8 {
		t.Errorf("TotalConsultations = %d, want 8", got.Consultant.TotalConsultations)
	}

	// completing an already completed consultation must not double count
	if _, err = svc.UpdateStatus(ctx, c.ID, consultation.StatusCompleted, ""); err != nil {
		t.Fatalf("UpdateStatus() error = %v", err)
	}
	got, _ = usrSvc.GetByID(ctx, consultant.ID)
	if got.Consultant.TotalConsultations != 8 {
		t.Errorf("TotalConsultations after repeat completion = %d, want 8", got.Consultant.TotalConsultations)
	}
}

func TestService_AddFeedback(t *testing.T) {
	svc, usrSvc, usrRepo := setup(t)
	ctx := context.Background()

	student := testutil.CreateStudent(t, usrRepo, "Sam Student", "sam@test.test", "", "Biology")
	other := testutil.CreateStudent(t, usrRepo, "Nat Nosy", "nat@test.test", "", "Biology")
	consultant := testutil.CreateConsultant(t, usrRepo, "Cleo Consultant", "cleo@test.test", 0, 0, "Biology")

	newConsultation := func(t *testing.T, quizID string) consultation.Consultation {
		c, err := svc.AutoAssign(ctx, student.ID, core.QuizResult{
			QuizID: quizID, Title: "Cells", Subject: "Biology", Score: 10, TotalMarks: 20,
		})
		if err != nil {
			t.Fatalf("AutoAssign() failed: %v", err)
		}
		return *c
	}
	c1 := newConsultation(t, "quiz-4")
	c2 := newConsultation(t, "quiz-5")

	if _, err := svc.AddFeedback(ctx, c1.ID, student.ID, 9, "great"); err == nil {
		t.Error("AddFeedback() with out-of-range rating should fail")
	}
	if _, err := svc.AddFeedback(ctx, c1.ID, other.ID, 4, "not mine"); err != consultation.ErrFeedbackNotParticipant {
		t.Errorf("AddFeedback() error = %v, want %v", err, consultation.ErrFeedbackNotParticipant)
	}

	if _, err := svc.AddFeedback(ctx, c1.ID, student.ID, 5, "very helpful"); err != nil {
		t.Fatalf("AddFeedback() error = %v", err)
	}
	if _, err := svc.AddFeedback(ctx, c2.ID, student.ID, 4, "helpful"); err != nil {
		t.Fatalf("AddFeedback() error = %v", err)
	}

	got, err := usrSvc.GetByID(ctx, consultant.ID)
	if err != nil {
		t.Fatalf("GetByID() failed: %v", err)
	}
	if got.Consultant.Rating != 4.5 {
		t.Errorf("Rating = %v, want 4.5", got.Consultant.Rating)
	}

	// consultant-side feedback leaves the rating untouched
	if _, err = svc.AddFeedback(ctx, c1.ID, consultant.ID, 3, "attentive student"); err != nil {
		t.Fatalf("AddFeedback() error = %v", err)
	}
	got, _ = usrSvc.GetByID(ctx, consultant.ID)
	if got.Consultant.Rating != 4.5 {
		t.Errorf("Rating after consultant feedback = %v, want 4.5", got.Consultant.Rating)
	}
}
