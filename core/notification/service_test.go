package notification_test

import (
	"context"
	"log"
	"os"
	"testing"

	"github.com/Sadman-Shakib-Aungon/quizzyverse/core"
	"github.com/Sadman-Shakib-Aungon/quizzyverse/core/notification"
	"github.com/Sadman-Shakib-Aungon/quizzyverse/core/user"
	emailsvc "github.com/Sadman-Shakib-Aungon/quizzyverse/services/email"
	logsvc "github.com/Sadman-Shakib-Aungon/quizzyverse/services/logger"
	dummydb "github.com/Sadman-Shakib-Aungon/quizzyverse/storage/database/dummy"
	testutil "github.com/Sadman-Shakib-Aungon/quizzyverse/tests"
)

func setup(t *testing.T) (notification.Service, user.Repository, *core.Config) {
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
	svc := notification.NewService(dummydb.NewNotificationRepository(db), usrSvc, mailSvc, logger, conf)
	return svc, usrRepo, conf
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name         string
		pct          float64
		wantType     string
		wantSeverity string
		wantGrade    string
		wantOK       bool
	}{
		{name: "critical", pct: 25, wantType: notification.TypeCriticalPerformance, wantSeverity: notification.SeverityCritical, wantGrade: "F", wantOK: true},
		{name: "just below 40", pct: 39.9, wantType: notification.TypeCriticalPerformance, wantSeverity: notification.SeverityCritical, wantGrade: "F", wantOK: true},
		{name: "failing", pct: 40, wantType: notification.TypeFailingGrade, wantSeverity: notification.SeverityHigh, wantGrade: "D", wantOK: true},
		{name: "low score", pct: 50, wantType: notification.TypeLowScore, wantSeverity: notification.SeverityMedium, wantGrade: "C-", wantOK: true},
		{name: "just below 60", pct: 59.9, wantType: notification.TypeLowScore, wantSeverity: notification.SeverityMedium, wantGrade: "C-", wantOK: true},
		{name: "at threshold", pct: 60, wantOK: false},
		{name: "passing", pct: 85, wantOK: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			typ, severity, grade, ok := notification.Classify(tt.pct)
			if ok != tt.wantOK {
				t.Fatalf("Classify(%v) ok = %v, want %v", tt.pct, ok, tt.wantOK)
			}
			if typ != tt.wantType || severity != tt.wantSeverity || grade != tt.wantGrade {
				t.Errorf("Classify(%v) = (%q, %q, %q), want (%q, %q, %q)",
					tt.pct, typ, severity, grade, tt.wantType, tt.wantSeverity, tt.wantGrade)
			}
		})
	}
}

func TestService_CreateFromResult(t *testing.T) {
	svc, usrRepo, _ := setup(t)
	ctx := context.Background()

	parent := testutil.CreateParent(t, usrRepo, "Pat Parent", "pat@test.test")
	student := testutil.CreateStudent(t, usrRepo, "Sam Student", "sam@test.test", parent.Email, "Mathematics")
	orphan := testutil.CreateStudent(t, usrRepo, "Olly Orphan", "olly@test.test", "", "Mathematics")

	res := core.QuizResult{QuizID: "quiz-1", Title: "Algebra Basics", Subject: "Mathematics", Score: 9, TotalMarks: 20}

	t.Run("passing score creates nothing", func(t *testing.T) {
		n, err := svc.CreateFromResult(ctx, student.ID, core.QuizResult{
			QuizID: "quiz-pass", Title: "Geometry", Subject: "Mathematics", Score: 18, TotalMarks: 20,
		})
		if err != nil {
			t.Fatalf("CreateFromResult() error = %v", err)
		}
		if n != nil {
			t.Errorf("CreateFromResult() = %+v, want nil", n)
		}
	})

	t.Run("missing parent email", func(t *testing.T) {
		if _, err := svc.CreateFromResult(ctx, orphan.ID, res); err != notification.ErrParentNotFound {
			t.Errorf("CreateFromResult() error = %v, want %v", err, notification.ErrParentNotFound)
		}
	})

	t.Run("low score creates notification", func(t *testing.T) {
		n, err := svc.CreateFromResult(ctx, student.ID, res)
		if err != nil {
			t.Fatalf("CreateFromResult() error = %v", err)
		}
		if n.ParentID != parent.ID {
			t.Errorf("ParentID = %q, want %q", n.ParentID, parent.ID)
		}
		if n.Type != notification.TypeFailingGrade || n.Severity != notification.SeverityHigh {
			t.Errorf("classification = (%q, %q), want (failing_grade, high)", n.Type, n.Severity)
		}
		if n.Score.Grade != "D" {
			t.Errorf("Grade = %q, want D", n.Score.Grade)
		}
		if n.Email.Status != notification.EmailPending {
			t.Errorf("Email.Status = %q, want pending", n.Email.Status)
		}
		if n.Email.MaxRetries != 3 {
			t.Errorf("Email.MaxRetries = %d, want 3", n.Email.MaxRetries)
		}
		if len(n.Message.Recommendations) != 4 {
			t.Errorf("len(Recommendations) = %d, want 4", len(n.Message.Recommendations))
		}
	})

	t.Run("duplicate student and quiz", func(t *testing.T) {
		if _, err := svc.CreateFromResult(ctx, student.ID, res); err != notification.ErrDuplicate {
			t.Errorf("CreateFromResult() error = %v, want %v", err, notification.ErrDuplicate)
		}
	})
}

func TestService_DispatchAndRetryEmail(t *testing.T) {
	svc, usrRepo, _ := setup(t)
	ctx := context.Background()

	parent := testutil.CreateParent(t, usrRepo, "Pat Parent", "pat@test.test")
	student := testutil.CreateStudent(t, usrRepo, "Sam Student", "sam@test.test", parent.Email, "Physics")

	n, err := svc.CreateFromResult(ctx, student.ID, core.QuizResult{
		QuizID: "quiz-2", Title: "Motion", Subject: "Physics", Score: 5, TotalMarks: 20,
	})
	if err != nil {
		t.Fatalf("CreateFromResult() failed: %v", err)
	}

	if err = svc.DispatchEmail(ctx, n); err != nil {
		t.Fatalf("DispatchEmail() error = %v", err)
	}
	if n.Email.Status != notification.EmailSent {
		t.Fatalf("Email.Status = %q, want sent", n.Email.Status)
	}
	if n.Email.EmailID == "" {
		t.Error("Email.EmailID not recorded")
	}
	if n.Email.SentAt.IsZero() {
		t.Error("Email.SentAt not recorded")
	}

	// use up all allowed retries
	for i := 0; i < n.Email.MaxRetries; i++ {
		if n, err = svc.RetryEmail(ctx, n.ID); err != nil {
			t.Fatalf("RetryEmail() #%d error = %v", i+1, err)
		}
	}
	if n.Email.RetryCount != n.Email.MaxRetries {
		t.Fatalf("RetryCount = %d, want %d", n.Email.RetryCount, n.Email.MaxRetries)
	}

	if _, err = svc.RetryEmail(ctx, n.ID); err != notification.ErrRetriesExhausted {
		t.Errorf("RetryEmail() error = %v, want %v", err, notification.ErrRetriesExhausted)
	}
	// rejected retry must not move the counter
	got, err := svc.GetByID(ctx, n.ID)
	if err != nil {
		t.Fatalf("GetByID() failed: %v", err)
	}
	if got.Email.RetryCount != n.Email.MaxRetries {
		t.Errorf("RetryCount after rejection = %d, want %d", got.Email.RetryCount, n.Email.MaxRetries)
	}
}

func TestService_Acknowledge(t *testing.T) {
	svc, usrRepo, _ := setup(t)
	ctx := context.Background()

	parent := testutil.CreateParent(t, usrRepo, "Pat Parent", "pat@test.test")
	other := testutil.CreateParent(t, usrRepo, "Olga Other", "olga@test.test")
	student := testutil.CreateStudent(t, usrRepo, "Sam Student", "sam@test.test", parent.Email, "English")

	n, err := svc.CreateFromResult(ctx, student.ID, core.QuizResult{
		QuizID: "quiz-3", Title: "Grammar", Subject: "English", Score: 11, TotalMarks: 20,
	})
	if err != nil {
		t.Fatalf("CreateFromResult() failed: %v", err)
	}

	if _, err = svc.Acknowledge(ctx, n.ID, other.ID, "noted", false); err != notification.ErrNotFound {
		t.Errorf("Acknowledge() by wrong parent error = %v, want %v", err, notification.ErrNotFound)
	}

	acked, err := svc.Acknowledge(ctx, n.ID, parent.ID, "will talk to Sam", true)
	if err != nil {
		t.Fatalf("Acknowledge() error = %v", err)
	}
	if !acked.Response.Acknowledged || acked.Response.AcknowledgedAt.IsZero() {
		t.Error("acknowledgement not recorded")
	}
	if !acked.Response.RequestMeeting {
		t.Error("RequestMeeting not recorded")
	}
	if acked.Response.Response != "will talk to Sam" {
		t.Errorf("Response = %q", acked.Response.Response)
	}
}
