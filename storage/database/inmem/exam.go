package inmemdb

import (
	"sort"

	"github.com/courseapp/courseapp/core/exam"
	"github.com/courseapp/courseapp/core/exambank"
)

type examRepository struct {
	tests    *testTable
	attempts *attemptTable
}

func NewExamRepository(db *DB) exambank.Repository {
	return &examRepository{tests: db.test, attempts: db.attempt}
}

// copies keep callers from mutating the stored slices

func copyTest(t exambank.Test) exambank.Test {
	qs := make([]exambank.Question, len(t.Questions))
	for i, q := range t.Questions {
		q.Options = append([]string(nil), q.Options...)
		qs[i] = q
	}
	t.Questions = qs
	return t
}

func copyAttempt(a exambank.Attempt) exambank.Attempt {
	a.Answers = append(make([]exam.Answer, 0, len(a.Answers)), a.Answers...)
	if a.SubmittedAt != nil {
		at := *a.SubmittedAt
		a.SubmittedAt = &at
	}
	return a
}

func (repo *examRepository) CreateTest(t exambank.Test) (exambank.Test, error) {
	repo.tests.mutex.Lock()
	defer repo.tests.mutex.Unlock()

	stored := copyTest(t)
	repo.tests.table[t.ID] = &stored
	return copyTest(stored), nil
}

func (repo *examRepository) UpdateTest(t exambank.Test) (exambank.Test, error) {
	repo.tests.mutex.Lock()
	defer repo.tests.mutex.Unlock()

	if _, ok := repo.tests.table[t.ID]; !ok {
		return exambank.Test{}, exambank.ErrTestNotFound
	}
	stored := copyTest(t)
	repo.tests.table[t.ID] = &stored
	return copyTest(stored), nil
}

func (repo *examRepository) DeleteTest(id string) error {
	repo.tests.mutex.Lock()
	defer repo.tests.mutex.Unlock()

	if _, ok := repo.tests.table[id]; !ok {
		return exambank.ErrTestNotFound
	}
	delete(repo.tests.table, id)
	return nil
}

func (repo *examRepository) GetTestByID(id string) (exambank.Test, error) {
	repo.tests.mutex.RLock()
	defer repo.tests.mutex.RUnlock()

	if t, ok := repo.tests.table[id]; ok {
		return copyTest(*t), nil
	}
	return exambank.Test{}, exambank.ErrTestNotFound
}

func (repo *examRepository) QueryTests(publishedOnly bool) ([]exambank.Test, error) {
	repo.tests.mutex.RLock()
	defer repo.tests.mutex.RUnlock()

	tests := make([]exambank.Test, 0, len(repo.tests.table))
	for _, t := range repo.tests.table {
		if publishedOnly && !t.Published {
			continue
		}
		tests = append(tests, copyTest(*t))
	}
	sort.Slice(tests, func(i, j int) bool {
		if tests[i].CreatedAt.Equal(tests[j].CreatedAt) {
			return tests[i].ID < tests[j].ID
		}
		return tests[i].CreatedAt.After(tests[j].CreatedAt)
	})
	return tests, nil
}

func (repo *examRepository) CreateAttempt(a exambank.Attempt) (exambank.Attempt, error) {
	repo.attempts.mutex.Lock()
	defer repo.attempts.mutex.Unlock()

	stored := copyAttempt(a)
	repo.attempts.table[a.ID] = &stored
	return copyAttempt(stored), nil
}

func (repo *examRepository) GetAttemptByID(id string) (exambank.Attempt, error) {
	repo.attempts.mutex.RLock()
	defer repo.attempts.mutex.RUnlock()

	if a, ok := repo.attempts.table[id]; ok {
		return copyAttempt(*a), nil
	}
	return exambank.Attempt{}, exambank.ErrAttemptNotFound
}

func (repo *examRepository) CloseAttempt(a exambank.Attempt) (exambank.Attempt, error) {
	repo.attempts.mutex.Lock()
	defer repo.attempts.mutex.Unlock()

	orig, ok := repo.attempts.table[a.ID]
	if !ok {
		return exambank.Attempt{}, exambank.ErrAttemptNotFound
	}
	if orig.IsClosed() {
		return exambank.Attempt{}, exambank.ErrAttemptClosed
	}
	stored := copyAttempt(a)
	repo.attempts.table[a.ID] = &stored
	return copyAttempt(stored), nil
}
