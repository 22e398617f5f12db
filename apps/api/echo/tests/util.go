package tests

import (
	"bytes"
	"encoding/json"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"

	. "github.com/Sadman-Shakib-Aungon/quizzyverse/apps/api/echo"
	"github.com/Sadman-Shakib-Aungon/quizzyverse/core"
	"github.com/Sadman-Shakib-Aungon/quizzyverse/core/consultation"
	"github.com/Sadman-Shakib-Aungon/quizzyverse/core/notification"
	"github.com/Sadman-Shakib-Aungon/quizzyverse/core/quiz"
	"github.com/Sadman-Shakib-Aungon/quizzyverse/core/user"
	emailsvc "github.com/Sadman-Shakib-Aungon/quizzyverse/services/email"
	logsvc "github.com/Sadman-Shakib-Aungon/quizzyverse/services/logger"
	dummydb "github.com/Sadman-Shakib-Aungon/quizzyverse/storage/database/dummy"
	testutil "github.com/Sadman-Shakib-Aungon/quizzyverse/tests"
)

const testUserPassword = "Sup3rS3cret!"

var (
	errMissingToken = httpErr{Error: "missing or malformed jwt"}
	errForbidden    = httpErr{Error: "permission denied"}
	errNotFound     = httpErr{Error: "not found"}
)

type env struct {
	server    Server
	conf      *core.Config
	usrRepo   user.Repository
	usrSvc    user.Service
	notifSvc  notification.Service
	consulSvc consultation.Service
}

func setup(t *testing.T) *env {
	t.Helper()
	db, err := dummydb.Open()
	if err != nil {
		t.Fatalf("setup() failed: %v", err)
	}
	conf := testutil.NewTestConfig()
	logger := logsvc.NewStdLogger(log.New(os.Stdout, "TEST : ", log.LstdFlags))
	mailSvc := emailsvc.NewConsoleServiceMock(conf)
	validate, translator := testutil.NewValidators(t)

	usrRepo := dummydb.NewUserRepository(db)
	usrSvc := user.NewService(usrRepo, mailSvc, conf)
	notifSvc := notification.NewService(dummydb.NewNotificationRepository(db), usrSvc, mailSvc, logger, conf)
	consulSvc := consultation.NewService(dummydb.NewConsultationRepository(db), usrSvc, logger)
	quizSvc := quiz.NewService(usrSvc, notifSvc, consulSvc, validate, logger, conf)

	server := NewServer(ServerDeps{
		Conf:           conf,
		Logger:         logger,
		DisableReqLogs: true,
		UserSvc:        usrSvc,
		QuizSvc:        quizSvc,
		NotifSvc:       notifSvc,
		ConsulSvc:      consulSvc,
		Validate:       validate,
		Translator:     translator,
	})
	return &env{
		server:    server,
		conf:      conf,
		usrRepo:   usrRepo,
		usrSvc:    usrSvc,
		notifSvc:  notifSvc,
		consulSvc: consulSvc,
	}
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

func (e *env) getToken(t *testing.T, usr user.User) string {
	t.Helper()
	claims := GetUserClaims(e.conf, usr)
	token, err := GenerateToken(e.conf, claims)
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	return token
}

func marshalObj(t *testing.T, obj interface{}) []byte {
	t.Helper()
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marshalObj() failed: %v", err)
	}
	return data
}

func jsonBytesEqual(t *testing.T, b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	if reflect.DeepEqual(j1, j2) {
		return true, nil
	}
	if j1 == nil || j2 == nil {
		return false, nil
	}
	return assert.ElementsMatch(t, j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	t.Helper()
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(t, rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), dst); err != nil {
		t.Fatalf("decodeBody() failed: %v; body %s", err, rec.Body.String())
	}
}
