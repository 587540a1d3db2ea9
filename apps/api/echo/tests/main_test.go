package tests

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"reflect"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"

	echoapi "github.com/trezcool/classroom/apps/api/echo"
	"github.com/trezcool/classroom/core"
	"github.com/trezcool/classroom/core/course"
	"github.com/trezcool/classroom/core/notification"
	"github.com/trezcool/classroom/core/user"
	"github.com/trezcool/classroom/services/email"
	"github.com/trezcool/classroom/storage/cache"
	"github.com/trezcool/classroom/storage/database/inmem"
	"github.com/trezcool/classroom/tests"
)

var errMissingToken = httpErr{Error: "missing or malformed jwt"}

func TestMain(m *testing.M) {
	core.ParseEmailTemplates(testutil.NopLogger{}, true /* strict */)
	user.LoadCommonPasswords(testutil.NopLogger{})
	os.Exit(m.Run())
}

type testEnv struct {
	conf    *core.Config
	db      *inmemdb.DB
	usrRepo user.Repository
	crsRepo course.Repository
	invRepo course.InviteRepository
	ntfRepo notification.Repository
	cache   *cache.Memory
	mailSvc *emailsvc.ConsoleServiceMock
	app     *echoapi.Server
}

// setup builds a server over an empty in-memory database.
// wrap may replace repositories before the services are built.
func setup(t *testing.T, wrap ...func(env *testEnv)) *testEnv {
	t.Helper()

	conf := testutil.NewConfig()
	logger := testutil.NopLogger{}
	db := inmemdb.Open()
	crsRepo := inmemdb.NewCourseRepository(db)

	env := &testEnv{
		conf:    conf,
		db:      db,
		usrRepo: inmemdb.NewUserRepository(db),
		crsRepo: crsRepo,
		invRepo: crsRepo,
		ntfRepo: inmemdb.NewNotificationRepository(db),
		cache:   cache.NewMemory(nil),
		mailSvc: emailsvc.NewConsoleServiceMock(conf, logger),
	}
	for _, w := range wrap {
		w(env)
	}

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	course.InitValidators(validate, translator)

	usrSvc := user.NewService(env.usrRepo)
	env.app = echoapi.NewServer(echoapi.ServerDeps{
		Conf:            conf,
		Logger:          logger,
		Cache:           env.cache,
		UserSvc:         usrSvc,
		CourseSvc:       course.NewService(db, env.crsRepo, env.invRepo, usrSvc, env.cache, env.mailSvc, logger),
		NotificationSvc: notification.NewService(env.ntfRepo, usrSvc),
		Validate:        validate,
		Translator:      translator,
	})
	t.Cleanup(func() { _ = env.app.Shutdown(context.Background()) })
	return env
}

func (env *testEnv) createUser(t *testing.T, firstName, lastName, email string, role user.Role) user.User {
	return testutil.CreateUser(t, env.usrRepo, firstName, lastName, email, "", role, true)
}

func (env *testEnv) getToken(t *testing.T, usr user.User) string {
	token, err := echoapi.GenerateToken(env.conf, echoapi.GetUserClaims(env.conf, usr))
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	return token
}

func (env *testEnv) serve(method, path, token string, data ...[]byte) *httptest.ResponseRecorder {
	req, rec := newAuthRequest(method, path, token, data...)
	env.app.ServeHTTP(rec, req)
	return rec
}

// freezeClock pins core.NowFunc and returns a function moving it forward.
func freezeClock(t *testing.T) func(d time.Duration) {
	orig := core.NowFunc
	now := time.Now().UTC()
	core.NowFunc = func() time.Time { return now }
	t.Cleanup(func() { core.NowFunc = orig })
	return func(d time.Duration) { now = now.Add(d) }
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

func unmarchall(t *testing.T, rec *httptest.ResponseRecorder, dest interface{}) {
	if err := json.Unmarshal(rec.Body.Bytes(), dest); err != nil {
		t.Fatalf("unmarchall() failed: %v; body %s", err, rec.Body.String())
	}
}

func jsonBytesEqual(b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	return reflect.DeepEqual(j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	t.Helper()
	assert.Equal(t, tt.wantCode, rec.Code, "code; body %s", rec.Body.String())
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}

func runHTTPTests(t *testing.T, env *testEnv, tests []httpTest) {
	t.Helper()
	for _, tt := range tests {
		if tt.method == "" {
			tt.method = http.MethodGet
		}
		if tt.wantCode == 0 {
			tt.wantCode = http.StatusOK
		}

		t.Run(tt.name, func(t *testing.T) {
			rec := env.serve(tt.method, tt.path, tt.token, tt.body)
			checkCodeAndData(t, tt, rec)
		})
	}
}
