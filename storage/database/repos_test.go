package database_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/courseapp/courseapp/core/exam"
	"github.com/courseapp/courseapp/core/exambank"
	"github.com/courseapp/courseapp/core/user"
	"github.com/courseapp/courseapp/storage/database/inmem"
	"github.com/courseapp/courseapp/storage/database/sqlx"
	"github.com/courseapp/courseapp/tests"
)

type repos struct {
	usr  user.Repository
	exam exambank.Repository
}

// each backend runs the same contract
func backends(t *testing.T) map[string]func(t *testing.T) repos {
	return map[string]func(t *testing.T) repos{
		"inmem": func(t *testing.T) repos {
			db := inmemdb.Open()
			return repos{usr: inmemdb.NewUserRepository(db), exam: inmemdb.NewExamRepository(db)}
		},
		"postgres": func(t *testing.T) repos {
			db := testutil.PrepareDB(t)
			return repos{usr: sqlxrepos.NewUserRepository(db), exam: sqlxrepos.NewExamRepository(db)}
		},
	}
}

var created = time.Date(2026, time.February, 1, 8, 0, 0, 0, time.UTC)

func TestUserRepository(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			r := open(t)
			usr := testutil.CreateUser(t, r.usr, "u1", "Ada", "ada@test.cd", "Str0ng!pass", user.RoleLearner, created)

			_, err := r.usr.CreateUser(user.User{ID: "u2", Name: "Other", Email: "ada@test.cd", Role: user.RoleLearner, PasswordHash: []byte("x"), CreatedAt: created})
			assert.Equal(t, user.ErrEmailExists, err)

			got, err := r.usr.GetUserByEmail("ada@test.cd")
			require.NoError(t, err)
			assert.Equal(t, usr.ID, got.ID)
			assert.NoError(t, got.CheckPassword("Str0ng!pass"))

			_, err = r.usr.GetUserByID("nope")
			assert.Equal(t, user.ErrNotFound, err)

			login := created.Add(time.Hour)
			require.NoError(t, r.usr.SetLastLogin(usr.ID, login))
			got, err = r.usr.GetUserByID(usr.ID)
			require.NoError(t, err)
			require.NotNil(t, got.LastLogin)
			assert.True(t, login.Equal(*got.LastLogin))
			assert.Equal(t, user.ErrNotFound, r.usr.SetLastLogin("nope", login))

			require.NoError(t, got.SetPassword("An0ther!pass"))
			require.NoError(t, r.usr.SetPasswordHash(usr.ID, got.PasswordHash))
			got, err = r.usr.GetUserByID(usr.ID)
			require.NoError(t, err)
			assert.NoError(t, got.CheckPassword("An0ther!pass"))
			assert.Error(t, got.CheckPassword("Str0ng!pass"))
			assert.Equal(t, user.ErrNotFound, r.usr.SetPasswordHash("nope", got.PasswordHash))

			all, err := r.usr.QueryAllUsers()
			require.NoError(t, err)
			assert.Len(t, all, 1)
		})
	}
}

func TestExamRepository_tests(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			r := open(t)
			older := testutil.CreateTest(t, r.exam, testutil.SampleTest("t1", true, created))
			testutil.CreateTest(t, r.exam, testutil.SampleTest("t2", false, created.Add(time.Minute)))
			testutil.CreateTest(t, r.exam, testutil.SampleTest("t3", true, created.Add(2*time.Minute)))

			got, err := r.exam.GetTestByID("t1")
			require.NoError(t, err)
			assert.Equal(t, older.Questions, got.Questions)
			assert.Equal(t, 6, got.TotalMarks())

			all, err := r.exam.QueryTests(false)
			require.NoError(t, err)
			assert.Equal(t, []string{"t3", "t2", "t1"}, ids(all))

			pub, err := r.exam.QueryTests(true)
			require.NoError(t, err)
			assert.Equal(t, []string{"t3", "t1"}, ids(pub))

			got.Title = "Renamed"
			got.Questions = got.Questions[:1]
			_, err = r.exam.UpdateTest(got)
			require.NoError(t, err)
			got, err = r.exam.GetTestByID("t1")
			require.NoError(t, err)
			assert.Equal(t, "Renamed", got.Title)
			assert.Len(t, got.Questions, 1)

			_, err = r.exam.UpdateTest(exambank.Test{ID: "nope"})
			assert.Equal(t, exambank.ErrTestNotFound, err)

			require.NoError(t, r.exam.DeleteTest("t1"))
			assert.Equal(t, exambank.ErrTestNotFound, r.exam.DeleteTest("t1"))
			_, err = r.exam.GetTestByID("t1")
			assert.Equal(t, exambank.ErrTestNotFound, err)
		})
	}
}

func TestExamRepository_attempts(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			r := open(t)
			usr := testutil.CreateUser(t, r.usr, "u1", "Ada", "ada@test.cd", "Str0ng!pass", user.RoleLearner)
			test := testutil.CreateTest(t, r.exam, testutil.SampleTest("t1", true, created))

			a := exambank.Attempt{
				ID:        "a1",
				TestID:    test.ID,
				UserID:    usr.ID,
				StartedAt: created,
				ExpiresAt: created.Add(time.Minute),
				Answers:   make([]exam.Answer, 0),
				MaxScore:  test.TotalMarks(),
				Status:    exambank.StatusInProgress,
			}
			_, err := r.exam.CreateAttempt(a)
			require.NoError(t, err)

			got, err := r.exam.GetAttemptByID("a1")
			require.NoError(t, err)
			assert.False(t, got.IsClosed())
			assert.Empty(t, got.Answers)
			assert.True(t, a.ExpiresAt.Equal(got.ExpiresAt))

			submitted := created.Add(30 * time.Second)
			got.SubmittedAt = &submitted
			got.Answers = []exam.Answer{{QuestionIndex: 0, SelectedIndex: 1}}
			got.Score = 1
			got.Status = exambank.StatusCompleted
			_, err = r.exam.CloseAttempt(got)
			require.NoError(t, err)

			_, err = r.exam.CloseAttempt(got)
			assert.Equal(t, exambank.ErrAttemptClosed, err)
			_, err = r.exam.CloseAttempt(exambank.Attempt{ID: "nope"})
			assert.Equal(t, exambank.ErrAttemptNotFound, err)

			got, err = r.exam.GetAttemptByID("a1")
			require.NoError(t, err)
			assert.True(t, got.IsClosed())
			assert.Equal(t, []exam.Answer{{QuestionIndex: 0, SelectedIndex: 1}}, got.Answers)
			assert.Equal(t, exambank.StatusCompleted, got.Status)
		})
	}
}

func ids(tests []exambank.Test) []string {
	out := make([]string, 0, len(tests))
	for _, t := range tests {
		out = append(out, t.ID)
	}
	return out
}
