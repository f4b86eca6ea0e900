package testutil

import (
	"os"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/courseapp/courseapp/core"
	"github.com/courseapp/courseapp/core/exambank"
	"github.com/courseapp/courseapp/core/user"
	"github.com/courseapp/courseapp/storage/database"
)

// PrepareDB opens the Postgres database named by COURSEAPP_DATABASE_URL and migrates it.
// The test is skipped when the variable is not set.
func PrepareDB(t *testing.T) *sqlx.DB {
	t.Helper()
	url := os.Getenv("COURSEAPP_DATABASE_URL")
	if url == "" {
		t.Skip("COURSEAPP_DATABASE_URL not set")
	}
	conf := new(core.Config)
	conf.Database.URL = url

	db, err := database.Open(conf)
	if err != nil {
		t.Fatalf("database.Open() failed: %v", err)
	}
	if err = database.Migrate(db.DB, "up"); err != nil {
		t.Fatalf("database.Migrate() failed: %v", err)
	}
	t.Cleanup(func() {
		_, _ = db.Exec(`TRUNCATE attempts, tests, users`)
		_ = db.Close()
	})
	return db
}

func CreateUser(t *testing.T, repo user.Repository, id, name, email, pwd, role string, createdAt ...time.Time) user.User {
	t.Helper()
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		ID:        id,
		Name:      name,
		Email:     email,
		Role:      role,
		CreatedAt: tstamp,
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("createUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(usr)
	if err != nil {
		t.Fatalf("createUser() failed: %v", err)
	}
	return usr
}

// SampleTest returns a three question test worth 1 + 2 + 3 marks. Correct options: 1, 0, 1.
func SampleTest(id string, published bool, createdAt time.Time) exambank.Test {
	return exambank.Test{
		ID:              id,
		Title:           "Arithmetic " + id,
		Subject:         "Maths",
		DurationMinutes: 1,
		Published:       published,
		CreatedAt:       createdAt.UTC(),
		UpdatedAt:       createdAt.UTC(),
		Questions: []exambank.Question{
			{Index: 0, Text: "1 + 1 = ?", Options: []string{"1", "2", "3"}, CorrectIndex: 1, Marks: 1},
			{Index: 1, Text: "2 x 2 = ?", Options: []string{"4", "8"}, CorrectIndex: 0, Marks: 2},
			{Index: 2, Text: "3 - 1 = ?", Options: []string{"1", "2"}, CorrectIndex: 1, Marks: 3},
		},
	}
}

func CreateTest(t *testing.T, repo exambank.Repository, test exambank.Test) exambank.Test {
	t.Helper()
	test, err := repo.CreateTest(test)
	if err != nil {
		t.Fatalf("createTest() failed: %v", err)
	}
	return test
}
