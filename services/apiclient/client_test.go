package apiclient

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/courseapp/courseapp/core"
	"github.com/courseapp/courseapp/core/exam"
)

type recorded struct {
	method string
	path   string
	auth   string
	body   string
}

// newTestServer answers every request with the canned reply for its path.
func newTestServer(t *testing.T, replies map[string]reply) (*httptest.Server, func() []recorded) {
	var mu sync.Mutex
	var reqs []recorded
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		reqs = append(reqs, recorded{method: r.Method, path: r.URL.Path, auth: r.Header.Get("Authorization"), body: string(body)})
		mu.Unlock()

		rep, ok := replies[r.Method+" "+r.URL.Path]
		if !ok {
			rep = reply{status: http.StatusNotFound, body: `{"success":false,"message":"route not found"}`}
		}
		if rep.status == 0 {
			rep.status = http.StatusOK
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(rep.status)
		_, _ = io.WriteString(w, rep.body)
	}))
	t.Cleanup(srv.Close)
	return srv, func() []recorded {
		mu.Lock()
		defer mu.Unlock()
		return append([]recorded(nil), reqs...)
	}
}

type reply struct {
	status int
	body   string
}

func newClient(srv *httptest.Server, token string) *Client {
	return New(Options{
		BaseURL:     srv.URL + "/",
		Credentials: exam.NewCredentialsMock(token),
	})
}

const testJSON = `{"_id":"T1","title":"Algebra","durationMinutes":1,"totalMarks":2,
	"questions":[{"questionIndex":0,"text":"1+1","options":["1","2"],"marks":2}]}`

func TestClient_statusMapping(t *testing.T) {
	tests := []struct {
		name   string
		reply  reply
		check  func(error) bool
		errMsg string
	}{
		{name: "unauthorized", reply: reply{status: 401, body: `{"success":false,"message":"jwt expired"}`}, check: core.IsAuth, errMsg: "jwt expired"},
		{name: "not found", reply: reply{status: 404, body: `{"success":false,"message":"test not found"}`}, check: core.IsNotFound, errMsg: "test not found"},
		{name: "bad request", reply: reply{status: 400, body: `{"success":false,"message":"test is not published"}`}, check: core.IsValidation, errMsg: "test is not published"},
		{name: "conflict", reply: reply{status: 409, body: `{"success":false}`}, check: core.IsValidation, errMsg: "conflict"},
		{name: "server error", reply: reply{status: 502, body: `<html>bad gateway</html>`}, check: core.IsNetwork},
		{name: "too many requests", reply: reply{status: 429}, check: core.IsNetwork},
		{name: "success false", reply: reply{body: `{"success":false,"message":"Could not load tests"}`}, check: core.IsValidation, errMsg: "Could not load tests"},
		{name: "not json", reply: reply{body: `hello`}, check: core.IsValidation},
		{name: "invalid test", reply: reply{body: `{"success":true,"tests":[{"title":"no id"}]}`}, check: core.IsValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := newTestServer(t, map[string]reply{"GET /api/user/givetests": tt.reply})

			_, err := newClient(srv, "tok").ListTests(context.Background())
			require.Error(t, err)
			assert.True(t, tt.check(err), "unexpected error kind: %v", err)
			if tt.errMsg != "" {
				assert.Contains(t, err.Error(), tt.errMsg)
			}
		})
	}
}

func TestClient_transportFailure(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	srv.Close()

	_, err := newClient(srv, "").ListTests(context.Background())
	require.Error(t, err)
	assert.True(t, core.IsNetwork(err))
}

func TestClient_ListTests(t *testing.T) {
	srv, reqs := newTestServer(t, map[string]reply{
		"GET /api/user/givetests": {body: `{"success":true,"tests":[` + testJSON + `]}`},
	})

	tests, err := newClient(srv, "learner-token").ListTests(context.Background())
	require.NoError(t, err)
	require.Len(t, tests, 1)
	assert.Equal(t, "T1", tests[0].ID)
	assert.Equal(t, time.Minute, tests[0].Duration())
	assert.Equal(t, []string{"1", "2"}, tests[0].Questions[0].Options)

	got := reqs()
	require.Len(t, got, 1)
	assert.Equal(t, "Bearer learner-token", got[0].auth)
}

func TestClient_ListTests_noTests(t *testing.T) {
	srv, reqs := newTestServer(t, map[string]reply{
		"GET /api/user/givetests": {body: `{"success":true}`},
	})

	tests, err := newClient(srv, "").ListTests(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, tests)
	assert.Empty(t, tests)
	assert.Empty(t, reqs()[0].auth)
}

func TestClient_StartAttempt(t *testing.T) {
	expires := time.Date(2026, time.March, 2, 10, 30, 0, 0, time.UTC)
	tests := []struct {
		name      string
		expiresAt string
		want      time.Time
	}{
		{name: "rfc3339", expiresAt: `"2026-03-02T10:30:00.000Z"`, want: expires},
		{name: "millis", expiresAt: "1772447400000", want: expires},
		{name: "null", expiresAt: "null"},
		{name: "empty", expiresAt: `""`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := newTestServer(t, map[string]reply{
				"POST /api/user/T1/start": {body: `{"success":true,"attemptId":"A1","test":` + testJSON + `,"expiresAt":` + tt.expiresAt + `}`},
			})

			started, err := newClient(srv, "tok").StartAttempt(context.Background(), " T1 ")
			require.NoError(t, err)
			assert.Equal(t, "A1", started.AttemptID)
			assert.Equal(t, "Algebra", started.Test.Title)
			assert.True(t, tt.want.Equal(started.ExpiresAt), "got %v", started.ExpiresAt)
		})
	}
}

func TestClient_StartAttempt_malformed(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "no attempt id", body: `{"success":true,"test":` + testJSON + `}`},
		{name: "bad expiry", body: `{"success":true,"attemptId":"A1","test":` + testJSON + `,"expiresAt":"tomorrow"}`},
		{name: "no test", body: `{"success":true,"attemptId":"A1"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := newTestServer(t, map[string]reply{"POST /api/user/T1/start": {body: tt.body}})

			_, err := newClient(srv, "tok").StartAttempt(context.Background(), "T1")
			require.Error(t, err)
			assert.True(t, core.IsValidation(err), "unexpected error kind: %v", err)
		})
	}
}

func TestClient_invalidID(t *testing.T) {
	c := New(Options{BaseURL: "http://localhost:1"})
	for _, id := range []string{"", "  ", "a/b", "x?y"} {
		_, err := c.StartAttempt(context.Background(), id)
		assert.True(t, core.IsValidation(err), "id %q", id)

		_, err = c.FetchResult(context.Background(), id)
		assert.True(t, core.IsValidation(err), "id %q", id)
	}
}

func TestClient_SubmitAttempt(t *testing.T) {
	srv, reqs := newTestServer(t, map[string]reply{
		"POST /api/user/T1/submit": {body: `{"success":true,"attemptId":"A1"}`},
	})

	id, err := newClient(srv, "tok").SubmitAttempt(context.Background(), "T1", exam.Submission{AttemptID: "A1"})
	require.NoError(t, err)
	assert.Equal(t, "A1", id)
	assert.JSONEq(t, `{"attemptId":"A1","answers":[]}`, reqs()[0].body)
}

func TestClient_FetchResult(t *testing.T) {
	tests := []struct {
		name      string
		replies   map[string]reply
		wantPaths []string
		want      exam.AttemptResult
		check     func(error) bool
	}{
		{
			name: "attempt key",
			replies: map[string]reply{
				"GET /api/user/attempt/A1": {body: `{"success":true,"attempt":{"_id":"A1","score":2,"maxScore":2,"status":"completed","test":` + testJSON + `}}`},
			},
			wantPaths: []string{"/api/user/attempt/A1"},
			want:      exam.AttemptResult{AttemptID: "A1", Score: 2, MaxScore: 2, Status: "completed"},
		},
		{
			name: "attemptData key with test id only",
			replies: map[string]reply{
				"GET /api/user/attempt/A1": {body: `{"success":true,"attemptData":{"score":1,"status":"expired","test":"T1"}}`},
			},
			wantPaths: []string{"/api/user/attempt/A1"},
			want:      exam.AttemptResult{AttemptID: "A1", Score: 1, Status: "expired", Test: exam.Test{ID: "T1"}},
		},
		{
			name: "falls back on 404",
			replies: map[string]reply{
				"GET /api/user/result/A1": {body: `{"success":true,"_id":"A1","score":0,"maxScore":3,"status":"completed"}`},
			},
			wantPaths: []string{"/api/user/attempt/A1", "/api/user/result/A1"},
			want:      exam.AttemptResult{AttemptID: "A1", MaxScore: 3, Status: "completed"},
		},
		{
			name: "falls back on 500",
			replies: map[string]reply{
				"GET /api/user/attempt/A1": {status: 500, body: `{"success":false}`},
				"GET /api/user/result/A1":  {body: `{"success":true,"attempt":{"attemptId":"A1","score":1}}`},
			},
			wantPaths: []string{"/api/user/attempt/A1", "/api/user/result/A1"},
			want:      exam.AttemptResult{AttemptID: "A1", Score: 1},
		},
		{
			name: "no fallback on 401",
			replies: map[string]reply{
				"GET /api/user/attempt/A1": {status: 401, body: `{"success":false,"message":"unauthorized"}`},
			},
			wantPaths: []string{"/api/user/attempt/A1"},
			check:     core.IsAuth,
		},
		{
			name:      "both missing",
			wantPaths: []string{"/api/user/attempt/A1", "/api/user/result/A1"},
			check:     core.IsNotFound,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, reqs := newTestServer(t, tt.replies)

			res, err := newClient(srv, "tok").FetchResult(context.Background(), "A1")
			var paths []string
			for _, r := range reqs() {
				paths = append(paths, r.path)
			}
			assert.Equal(t, tt.wantPaths, paths)

			if tt.check != nil {
				require.Error(t, err)
				assert.True(t, tt.check(err), "unexpected error kind: %v", err)
				return
			}
			require.NoError(t, err)
			if tt.want.Test.ID == "" && res.Test.ID != "" {
				assert.Equal(t, "Algebra", res.Test.Title)
				res.Test = exam.Test{}
			}
			assert.Equal(t, tt.want, res)
		})
	}
}

func TestClient_Login(t *testing.T) {
	srv, reqs := newTestServer(t, map[string]reply{
		"POST /api/user/login":  {body: `{"success":true,"token":"learner-jwt"}`},
		"POST /api/admin/login": {status: 401, body: `{"success":false,"message":"invalid credentials"}`},
	})
	c := New(Options{BaseURL: srv.URL})

	token, err := c.Login(context.Background(), " Ada@Example.com ", "s3cret", false)
	require.NoError(t, err)
	assert.Equal(t, "learner-jwt", token)

	var body loginRequest
	require.NoError(t, json.Unmarshal([]byte(reqs()[0].body), &body))
	assert.Equal(t, loginRequest{Email: "ada@example.com", Password: "s3cret"}, body)

	_, err = c.Login(context.Background(), "ada@example.com", "nope", true)
	require.Error(t, err)
	assert.True(t, core.IsValidation(err))
	assert.False(t, core.IsAuth(err))
}
