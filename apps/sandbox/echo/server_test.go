package echoapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/courseapp/courseapp/core"
	"github.com/courseapp/courseapp/core/exambank"
	"github.com/courseapp/courseapp/core/user"
	"github.com/courseapp/courseapp/storage/database/inmem"
	"github.com/courseapp/courseapp/tests"
)

const pwd = "Str0ng!pass"

type fixture struct {
	srv     Server
	conf    *core.Config
	learner user.User
	admin   user.User
}

func testConfig() *core.Config {
	conf := &core.Config{AppName: "CourseApp", Env: "TEST", TestMode: true}
	conf.Server.SecretKey = "test-secret"
	conf.Server.JWTExpirationDelta = time.Hour
	conf.Sandbox.SubmitGrace = 30 * time.Second
	return conf
}

func setup(t *testing.T, conf *core.Config) fixture {
	db := inmemdb.Open()
	usrRepo := inmemdb.NewUserRepository(db)
	examRepo := inmemdb.NewExamRepository(db)

	f := fixture{
		conf:    conf,
		learner: testutil.CreateUser(t, usrRepo, "u1", "Ada", "ada@test.cd", pwd, user.RoleLearner),
		admin:   testutil.CreateUser(t, usrRepo, "u2", "Root", "root@test.cd", pwd, user.RoleAdmin),
	}
	now := time.Now()
	testutil.CreateTest(t, examRepo, testutil.SampleTest("t1", true, now))
	testutil.CreateTest(t, examRepo, testutil.SampleTest("draft", false, now.Add(time.Second)))

	f.srv = NewServer(Options{
		Conf:           conf,
		DisableReqLogs: true,
		UserSvc:        user.NewService(usrRepo),
		ExamSvc:        exambank.NewService(examRepo, core.NopLogger{}, conf),
	})
	return f
}

func (f fixture) token(t *testing.T, usr user.User) string {
	token, err := GenerateToken(f.conf, usr)
	require.NoError(t, err)
	return token
}

// call sends a JSON request and decodes the JSON answer.
func (f fixture) call(t *testing.T, method, path, token string, body interface{}) (int, map[string]interface{}) {
	t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		require.NoError(t, json.NewEncoder(&buf).Encode(b))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.srv.ServeHTTP(rec, req)

	var data map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &data), rec.Body.String())
	return rec.Code, data
}

func TestServer_login(t *testing.T) {
	f := setup(t, testConfig())

	tests := []struct {
		name     string
		path     string
		body     interface{}
		wantCode int
		wantMsg  string
		wantFld  string
	}{
		{name: "learner", path: "/api/user/login", body: echoMap("email", " ADA@test.cd", "password", pwd), wantCode: http.StatusOK},
		{name: "admin", path: "/api/admin/login", body: echoMap("email", "root@test.cd", "password", pwd), wantCode: http.StatusOK},
		{
			name: "wrong password", path: "/api/user/login", body: echoMap("email", "ada@test.cd", "password", "nope"),
			wantCode: http.StatusUnauthorized, wantMsg: "invalid credentials",
		},
		{
			name: "wrong role", path: "/api/admin/login", body: echoMap("email", "ada@test.cd", "password", pwd),
			wantCode: http.StatusUnauthorized, wantMsg: "invalid credentials",
		},
		{
			name: "unknown email", path: "/api/user/login", body: echoMap("email", "bob@test.cd", "password", pwd),
			wantCode: http.StatusUnauthorized, wantMsg: "invalid credentials",
		},
		{name: "missing email", path: "/api/user/login", body: echoMap("password", pwd), wantCode: http.StatusBadRequest, wantFld: "email"},
		{name: "malformed body", path: "/api/user/login", body: "{", wantCode: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, data := f.call(t, http.MethodPost, tt.path, "", tt.body)
			assert.Equal(t, tt.wantCode, code)
			assert.Equal(t, tt.wantCode == http.StatusOK, data["success"])
			if tt.wantCode == http.StatusOK {
				assert.NotEmpty(t, data["token"])
				return
			}
			if tt.wantMsg != "" {
				assert.Equal(t, tt.wantMsg, data["message"])
			}
			if tt.wantFld != "" {
				require.IsType(t, map[string]interface{}{}, data["errors"])
				assert.Contains(t, data["errors"], tt.wantFld)
			}
		})
	}
}

func TestServer_authRequired(t *testing.T) {
	f := setup(t, testConfig())
	learner := f.token(t, f.learner)

	other := testConfig()
	other.Server.SecretKey = "another-secret"
	forged, err := GenerateToken(other, f.admin)
	require.NoError(t, err)

	tests := []struct {
		name     string
		method   string
		path     string
		token    string
		wantCode int
		wantMsg  string
	}{
		{name: "no token", method: http.MethodGet, path: "/api/user/givetests", wantCode: http.StatusUnauthorized, wantMsg: "missing or malformed jwt"},
		{name: "bad signature", method: http.MethodGet, path: "/api/user/givetests", token: forged, wantCode: http.StatusUnauthorized},
		{name: "admin route", method: http.MethodGet, path: "/api/admin/alltests", token: learner, wantCode: http.StatusForbidden, wantMsg: "permission denied"},
		{name: "admin delete", method: http.MethodDelete, path: "/api/admin/tests/t1", token: learner, wantCode: http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, data := f.call(t, tt.method, tt.path, tt.token, nil)
			assert.Equal(t, tt.wantCode, code)
			assert.Equal(t, false, data["success"])
			if tt.wantMsg != "" {
				assert.Equal(t, tt.wantMsg, data["message"])
			}
		})
	}
}

func TestServer_attemptFlow(t *testing.T) {
	f := setup(t, testConfig())
	token := f.token(t, f.learner)

	code, data := f.call(t, http.MethodGet, "/api/user/givetests", token, nil)
	require.Equal(t, http.StatusOK, code)
	tests := data["tests"].([]interface{})
	require.Len(t, tests, 1)
	listed := tests[0].(map[string]interface{})
	assert.Equal(t, "t1", listed["_id"])
	assert.EqualValues(t, 6, listed["totalMarks"])
	for _, q := range listed["questions"].([]interface{}) {
		assert.NotContains(t, q, "correctIndex")
	}

	code, data = f.call(t, http.MethodPost, "/api/user/draft/start", token, nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "test not found", data["message"])

	code, data = f.call(t, http.MethodPost, "/api/user/t1/start", token, nil)
	require.Equal(t, http.StatusCreated, code)
	attemptID, _ := data["attemptId"].(string)
	require.NotEmpty(t, attemptID)
	expiresAt, err := time.Parse(time.RFC3339Nano, data["expiresAt"].(string))
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Minute), expiresAt, 5*time.Second)

	sub := echoMap("attemptId", attemptID, "answers", []exambankAnswer{{0, 1}, {2, 0}, {0, 1}})
	code, data = f.call(t, http.MethodPost, "/api/user/t1/submit", token, sub)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, attemptID, data["attemptId"])
	assert.EqualValues(t, 1, data["score"])
	assert.EqualValues(t, 6, data["maxScore"])
	assert.Equal(t, exambank.StatusCompleted, data["status"])

	code, data = f.call(t, http.MethodPost, "/api/user/t1/submit", token, sub)
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "attempt already submitted", data["message"])

	code, data = f.call(t, http.MethodGet, "/api/user/attempt/"+attemptID, token, nil)
	require.Equal(t, http.StatusOK, code)
	attempt := data["attempt"].(map[string]interface{})
	assert.Equal(t, attemptID, attempt["_id"])
	assert.EqualValues(t, 1, attempt["score"])
	assert.Equal(t, "t1", attempt["test"].(map[string]interface{})["_id"])

	code, data = f.call(t, http.MethodGet, "/api/user/result/"+attemptID, token, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "t1", data["attemptData"].(map[string]interface{})["test"])

	// attempts are private
	code, _ = f.call(t, http.MethodGet, "/api/user/attempt/"+attemptID, f.token(t, f.admin), nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestServer_submitValidation(t *testing.T) {
	f := setup(t, testConfig())
	token := f.token(t, f.learner)

	code, data := f.call(t, http.MethodPost, "/api/user/t1/submit", token, echoMap("answers", []exambankAnswer{}))
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, data["errors"], "attemptId")

	code, _ = f.call(t, http.MethodPost, "/api/user/t1/submit", token, echoMap("attemptId", "nope"))
	assert.Equal(t, http.StatusNotFound, code)
}

func TestServer_legacyResultRoute(t *testing.T) {
	conf := testConfig()
	conf.Sandbox.LegacyResultRoute = true
	f := setup(t, conf)
	token := f.token(t, f.learner)

	_, data := f.call(t, http.MethodPost, "/api/user/t1/start", token, nil)
	attemptID := data["attemptId"].(string)

	code, _ := f.call(t, http.MethodGet, "/api/user/attempt/"+attemptID, token, nil)
	assert.Equal(t, http.StatusNotFound, code)
	code, data = f.call(t, http.MethodGet, "/api/user/result/"+attemptID, token, nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, exambank.StatusInProgress, data["attemptData"].(map[string]interface{})["status"])
}

func TestServer_manageTests(t *testing.T) {
	f := setup(t, testConfig())
	token := f.token(t, f.admin)

	question := func(correct int) echoMapT {
		return echoMap("text", "2 + 2", "options", []string{"3", "4"}, "correctIndex", correct, "marks", 2)
	}

	code, data := f.call(t, http.MethodPost, "/api/admin/managetests", token,
		echoMap("title", "Sums", "durationMinutes", 5, "questions", []echoMapT{question(2)}))
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, echoMapT{"questions[0].correctIndex": "correctIndex must point at one of the options"}, echoMapT(data["errors"].(map[string]interface{})))

	code, data = f.call(t, http.MethodPost, "/api/admin/managetests", token,
		echoMap("title", "Sums", "durationMinutes", 5, "questions", []echoMapT{question(1)}))
	require.Equal(t, http.StatusCreated, code)
	created := data["test"].(map[string]interface{})
	id := created["_id"].(string)
	assert.Equal(t, "u2", created["createdBy"])
	assert.Equal(t, true, created["published"])

	code, data = f.call(t, http.MethodGet, "/api/admin/alltests", token, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, data["tests"], 3)

	code, data = f.call(t, http.MethodPut, "/api/admin/tests/"+id, token,
		echoMap("title", "Sums II", "durationMinutes", 10, "published", false, "questions", []echoMapT{question(0)}))
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Sums II", data["test"].(map[string]interface{})["title"])
	assert.Equal(t, false, data["test"].(map[string]interface{})["published"])

	code, _ = f.call(t, http.MethodDelete, "/api/admin/tests/"+id, token, nil)
	assert.Equal(t, http.StatusOK, code)
	code, data = f.call(t, http.MethodDelete, "/api/admin/tests/"+id, token, nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "test not found", data["message"])
}

type (
	echoMapT       = map[string]interface{}
	exambankAnswer struct {
		QuestionIndex int `json:"questionIndex"`
		SelectedIndex int `json:"selectedIndex"`
	}
)

// echoMap builds a JSON object from key, value pairs.
func echoMap(kv ...interface{}) echoMapT {
	m := make(echoMapT, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		m[kv[i].(string)] = kv[i+1]
	}
	return m
}
