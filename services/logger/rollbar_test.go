package logsvc

import (
	"bytes"
	"log"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/courseapp/courseapp/core"
	"github.com/courseapp/courseapp/core/user"
)

func Test_format(t *testing.T) {
	usr := user.User{ID: "u1", Name: "Ada", Email: "ada@test.cd"}
	tests := []struct {
		name string
		args []interface{}
		want string
	}{
		{name: "message only", want: "INFO started"},
		{
			name: "sorted fields",
			args: []interface{}{map[string]interface{}{"test_id": "T1", "attempt_id": "A1"}},
			want: "INFO started attempt_id=A1 test_id=T1",
		},
		{
			name: "error and user",
			args: []interface{}{errors.New("boom"), usr},
			want: `INFO started err="boom" user=u1`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, rest := split(tt.args)
			assert.Equal(t, tt.want, format("INFO", "started", u, rest))
		})
	}
}

func Test_split_firstUserWins(t *testing.T) {
	u, rest := split([]interface{}{user.User{ID: "u1"}, 42, user.User{ID: "u2"}})
	if assert.NotNil(t, u) {
		assert.Equal(t, "u1", u.ID)
	}
	assert.Equal(t, []interface{}{42}, rest)
}

func TestRollbarLogger_debugLevel(t *testing.T) {
	conf := &core.Config{Env: "TEST", TestMode: true}
	var buf bytes.Buffer
	logger := NewRollbarLogger(log.New(&buf, "", 0), conf)

	logger.Debug("hidden")
	logger.Warn("shown", map[string]interface{}{"k": 1})
	assert.Equal(t, "WARNING shown k=1\n", buf.String())

	conf.Debug = true
	buf.Reset()
	NewRollbarLogger(log.New(&buf, "", 0), conf).Debug("visible")
	assert.Equal(t, "DEBUG visible\n", buf.String())
}
