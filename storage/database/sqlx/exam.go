package sqlxrepos

import (
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/courseapp/courseapp/core/exam"
	"github.com/courseapp/courseapp/core/exambank"
)

type (
	examRepository struct {
		db *sqlx.DB
	}

	// jsonColumn stores any value in a JSONB column.
	jsonColumn struct {
		v interface{}
	}

	testRow struct {
		ID              string     `db:"id"`
		Title           string     `db:"title"`
		Subject         string     `db:"subject"`
		Description     string     `db:"description"`
		DurationMinutes int        `db:"duration_minutes"`
		Questions       jsonColumn `db:"questions"`
		Published       bool       `db:"published"`
		CreatedBy       string     `db:"created_by"`
		CreatedAt       time.Time  `db:"created_at"`
		UpdatedAt       time.Time  `db:"updated_at"`
	}

	attemptRow struct {
		ID          string     `db:"id"`
		TestID      string     `db:"test_id"`
		UserID      string     `db:"user_id"`
		StartedAt   time.Time  `db:"started_at"`
		ExpiresAt   time.Time  `db:"expires_at"`
		SubmittedAt *time.Time `db:"submitted_at"`
		Answers     jsonColumn `db:"answers"`
		Score       int        `db:"score"`
		MaxScore    int        `db:"max_score"`
		Status      string     `db:"status"`
	}
)

func (jc jsonColumn) Value() (driver.Value, error) {
	return json.Marshal(jc.v)
}

func (jc *jsonColumn) Scan(src interface{}) error {
	var data []byte
	switch v := src.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	case nil:
		return nil
	default:
		return errors.Errorf("jsonColumn: unsupported type %T", src)
	}
	return json.Unmarshal(data, jc.v)
}

func newTestRow(t exambank.Test) testRow {
	return testRow{
		ID:              t.ID,
		Title:           t.Title,
		Subject:         t.Subject,
		Description:     t.Description,
		DurationMinutes: t.DurationMinutes,
		Questions:       jsonColumn{v: t.Questions},
		Published:       t.Published,
		CreatedBy:       t.CreatedBy,
		CreatedAt:       t.CreatedAt,
		UpdatedAt:       t.UpdatedAt,
	}
}

func emptyTestRow() testRow {
	return testRow{Questions: jsonColumn{v: new([]exambank.Question)}}
}

func (row testRow) test() exambank.Test {
	t := exambank.Test{
		ID:              row.ID,
		Title:           row.Title,
		Subject:         row.Subject,
		Description:     row.Description,
		DurationMinutes: row.DurationMinutes,
		Published:       row.Published,
		CreatedBy:       row.CreatedBy,
		CreatedAt:       row.CreatedAt.UTC(),
		UpdatedAt:       row.UpdatedAt.UTC(),
	}
	if qs, ok := row.Questions.v.(*[]exambank.Question); ok && *qs != nil {
		t.Questions = *qs
	}
	return t
}

func newAttemptRow(a exambank.Attempt) attemptRow {
	answers := a.Answers
	if answers == nil {
		answers = make([]exam.Answer, 0)
	}
	return attemptRow{
		ID:          a.ID,
		TestID:      a.TestID,
		UserID:      a.UserID,
		StartedAt:   a.StartedAt,
		ExpiresAt:   a.ExpiresAt,
		SubmittedAt: a.SubmittedAt,
		Answers:     jsonColumn{v: answers},
		Score:       a.Score,
		MaxScore:    a.MaxScore,
		Status:      a.Status,
	}
}

func (row attemptRow) attempt() exambank.Attempt {
	a := exambank.Attempt{
		ID:          row.ID,
		TestID:      row.TestID,
		UserID:      row.UserID,
		StartedAt:   row.StartedAt.UTC(),
		ExpiresAt:   row.ExpiresAt.UTC(),
		SubmittedAt: row.SubmittedAt,
		Answers:     make([]exam.Answer, 0),
		Score:       row.Score,
		MaxScore:    row.MaxScore,
		Status:      row.Status,
	}
	if ans, ok := row.Answers.v.(*[]exam.Answer); ok && *ans != nil {
		a.Answers = *ans
	}
	return a
}

func NewExamRepository(db *sqlx.DB) exambank.Repository {
	return &examRepository{db: db}
}

func (repo *examRepository) CreateTest(t exambank.Test) (exambank.Test, error) {
	_, err := repo.db.NamedExec(`
		INSERT INTO tests (id, title, subject, description, duration_minutes, questions, published, created_by, created_at, updated_at)
		VALUES (:id, :title, :subject, :description, :duration_minutes, :questions, :published, :created_by, :created_at, :updated_at)`,
		newTestRow(t),
	)
	if err != nil {
		return exambank.Test{}, errors.Wrap(err, "inserting test")
	}
	return t, nil
}

func (repo *examRepository) UpdateTest(t exambank.Test) (exambank.Test, error) {
	res, err := repo.db.NamedExec(`
		UPDATE tests SET title = :title, subject = :subject, description = :description,
			duration_minutes = :duration_minutes, questions = :questions, published = :published,
			updated_at = :updated_at
		WHERE id = :id`,
		newTestRow(t),
	)
	if err != nil {
		return exambank.Test{}, errors.Wrap(err, "updating test")
	}
	if err = expectOne(res, exambank.ErrTestNotFound); err != nil {
		return exambank.Test{}, err
	}
	return t, nil
}

func (repo *examRepository) DeleteTest(id string) error {
	res, err := repo.db.Exec(`DELETE FROM tests WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "deleting test")
	}
	return expectOne(res, exambank.ErrTestNotFound)
}

func (repo *examRepository) GetTestByID(id string) (exambank.Test, error) {
	row := emptyTestRow()
	if err := repo.db.Get(&row, `SELECT * FROM tests WHERE id = $1`, id); err != nil {
		if err == sql.ErrNoRows {
			return exambank.Test{}, exambank.ErrTestNotFound
		}
		return exambank.Test{}, errors.Wrap(err, "selecting test")
	}
	return row.test(), nil
}

func (repo *examRepository) QueryTests(publishedOnly bool) ([]exambank.Test, error) {
	query := `SELECT * FROM tests ORDER BY created_at DESC, id`
	if publishedOnly {
		query = `SELECT * FROM tests WHERE published ORDER BY created_at DESC, id`
	}
	rows, err := repo.db.Queryx(query)
	if err != nil {
		return nil, errors.Wrap(err, "selecting tests")
	}
	defer rows.Close()

	tests := make([]exambank.Test, 0)
	for rows.Next() {
		row := emptyTestRow()
		if err = rows.StructScan(&row); err != nil {
			return nil, errors.Wrap(err, "scanning test")
		}
		tests = append(tests, row.test())
	}
	return tests, errors.Wrap(rows.Err(), "iterating tests")
}

func (repo *examRepository) CreateAttempt(a exambank.Attempt) (exambank.Attempt, error) {
	_, err := repo.db.NamedExec(`
		INSERT INTO attempts (id, test_id, user_id, started_at, expires_at, submitted_at, answers, score, max_score, status)
		VALUES (:id, :test_id, :user_id, :started_at, :expires_at, :submitted_at, :answers, :score, :max_score, :status)`,
		newAttemptRow(a),
	)
	if err != nil {
		return exambank.Attempt{}, errors.Wrap(err, "inserting attempt")
	}
	return a, nil
}

func (repo *examRepository) GetAttemptByID(id string) (exambank.Attempt, error) {
	row := attemptRow{Answers: jsonColumn{v: new([]exam.Answer)}}
	if err := repo.db.Get(&row, `SELECT * FROM attempts WHERE id = $1`, id); err != nil {
		if err == sql.ErrNoRows {
			return exambank.Attempt{}, exambank.ErrAttemptNotFound
		}
		return exambank.Attempt{}, errors.Wrap(err, "selecting attempt")
	}
	return row.attempt(), nil
}

// CloseAttempt only updates an attempt that was not submitted yet, so two concurrent
// submits cannot both succeed.
func (repo *examRepository) CloseAttempt(a exambank.Attempt) (exambank.Attempt, error) {
	res, err := repo.db.NamedExec(`
		UPDATE attempts SET submitted_at = :submitted_at, answers = :answers, score = :score,
			max_score = :max_score, status = :status
		WHERE id = :id AND submitted_at IS NULL`,
		newAttemptRow(a),
	)
	if err != nil {
		return exambank.Attempt{}, errors.Wrap(err, "closing attempt")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return exambank.Attempt{}, errors.Wrap(err, "reading rows affected")
	}
	if n == 0 {
		if _, gErr := repo.GetAttemptByID(a.ID); gErr != nil {
			return exambank.Attempt{}, gErr
		}
		return exambank.Attempt{}, exambank.ErrAttemptClosed
	}
	return a, nil
}
