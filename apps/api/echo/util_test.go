package echoapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shankerdev/campus/apps/container"
	"github.com/shankerdev/campus/core"
	"github.com/shankerdev/campus/core/account"
	emailsvc "github.com/shankerdev/campus/services/email"
	metricsvc "github.com/shankerdev/campus/services/metrics"
	inmemdb "github.com/shankerdev/campus/storage/database/inmem"
	"github.com/shankerdev/campus/testutil"
)

var (
	ctxBg           = context.Background()
	errMissingToken = httpErr{Error: "missing or malformed jwt"}
)

const testPassword = "Str0ng!Passw0rd"

type testApp struct {
	Server
	conf    *core.Config
	repos   container.Repositories
	svcs    *container.Services
	auth    *authenticator
	metrics *metricsvc.Prometheus

	// failFor makes emails to these lowercase addresses fail
	failFor map[string]bool
}

type appOption func(deps *ServerDeps)

func withLimiter(l Limiter) appOption {
	return func(deps *ServerDeps) { deps.Limiter = l }
}

// setup wires a server over the in-memory database and the recording mail service.
func setup(t *testing.T, opts ...appOption) *testApp {
	t.Helper()
	conf := core.NewTestConfig()

	validate, translator, err := container.NewValidator(conf)
	require.NoError(t, err)
	require.NoError(t, container.ParseEmailTemplates(conf))

	emailsvc.ClearSentMessages()
	repos := container.InmemRepositories(inmemdb.Open())
	metrics := metricsvc.NewPrometheus()
	mailSvc := emailsvc.NewConsoleServiceMock(conf)
	mailSvc.FailFor = make(map[string]bool)
	svcs := container.NewServices(repos, mailSvc, metrics, validate, conf)

	deps := ServerDeps{
		Conf:           conf,
		Logger:         testutil.Logger{T: t},
		Metrics:        metrics,
		Validate:       validate,
		Translator:     translator,
		DisableReqLogs: true,

		AccountSvc:      svcs.Account,
		ProfileSvc:      svcs.Profile,
		CourseSvc:       svcs.Course,
		NotificationSvc: svcs.Notification,
		AttendanceSvc:   svcs.Attendance,
		CourseworkSvc:   svcs.Coursework,
		FeeSvc:          svcs.Fee,
		CalendarSvc:     svcs.Calendar,
	}
	for _, opt := range opts {
		opt(&deps)
	}
	srv := NewServer(deps)

	return &testApp{
		Server:  srv,
		conf:    conf,
		repos:   repos,
		svcs:    svcs,
		auth:    srv.(*server).auth,
		metrics: metrics,
		failFor: mailSvc.FailFor,
	}
}

func (app *testApp) createAccount(t *testing.T, name, email string, role account.Role, approved ...bool) account.Account {
	t.Helper()
	isApproved := true
	if len(approved) > 0 {
		isApproved = approved[0]
	}
	acc := testutil.CreateAccount(t, app.repos.Accounts, name, email, "", role, isApproved, testPassword)
	if role == account.RoleStudent {
		_, err := app.repos.Profiles.GetOrCreateProfile(ctxBg, acc.ID)
		require.NoError(t, err)
	}
	return acc
}

func (app *testApp) token(t *testing.T, acc account.Account) string {
	t.Helper()
	token, err := app.auth.GenerateToken(acc)
	if err != nil {
		t.Fatalf("token() failed: %v", err)
	}
	return token
}

// do sends a JSON request and returns the recorder.
func (app *testApp) do(method, path, token string, body ...[]byte) *httptest.ResponseRecorder {
	req, rec := newAuthRequest(method, path, token, body...)
	app.ServeHTTP(rec, req)
	return rec
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

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj() failed: %v", err)
	}
	return data
}

func marchallList(t *testing.T, objs ...interface{}) []byte {
	if objs == nil {
		objs = []interface{}{}
	}
	data, err := json.Marshal(objs)
	if err != nil {
		t.Fatalf("marchallList() failed: %v", err)
	}
	return data
}

func unmarshal(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("unmarshal() failed: %v; body %s", err, rec.Body.String())
	}
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
	if _, ok := j1.([]interface{}); !ok {
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

func runHTTPTests(t *testing.T, app *testApp, tests []httpTest) {
	t.Helper()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			method := tt.method
			if method == "" {
				method = http.MethodGet
			}
			rec := app.do(method, tt.path, tt.token, tt.body)
			checkCodeAndData(t, tt, rec)
		})
	}
}
