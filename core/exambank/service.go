package exambank

import (
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/courseapp/courseapp/core"
	"github.com/courseapp/courseapp/core/exam"
	"github.com/courseapp/courseapp/core/user"
)

var (
	NowFunc = time.Now // mockable

	// errors
	ErrTestNotFound    = core.NewNotFoundError("test not found")
	ErrAttemptNotFound = core.NewNotFoundError("attempt not found")
	ErrAttemptClosed   = errors.New("attempt already submitted")
)

type (
	Repository interface {
		CreateTest(t Test) (Test, error)
		UpdateTest(t Test) (Test, error)
		DeleteTest(id string) error
		GetTestByID(id string) (Test, error)
		// QueryTests returns the tests newest first.
		QueryTests(publishedOnly bool) ([]Test, error)

		CreateAttempt(a Attempt) (Attempt, error)
		GetAttemptByID(id string) (Attempt, error)
		// CloseAttempt stores a graded attempt once; it fails with ErrAttemptClosed
		// when the attempt was already submitted.
		CloseAttempt(a Attempt) (Attempt, error)
	}

	Service struct {
		repo   Repository
		logger core.Logger
		grace  time.Duration
	}
)

func NewService(repo Repository, logger core.Logger, conf *core.Config) *Service {
	return &Service{
		repo:   repo,
		logger: logger,
		grace:  conf.Sandbox.SubmitGrace,
	}
}

// Admin

// CreateTest stores a validated NewTest.
func (svc *Service) CreateTest(nt NewTest, by user.User) (Test, error) {
	now := NowFunc().UTC()
	t := Test{
		ID:              uuid.New().String(),
		Title:           nt.Title,
		Subject:         nt.Subject,
		Description:     nt.Description,
		DurationMinutes: nt.DurationMinutes,
		Questions:       nt.questions(),
		Published:       nt.published(),
		CreatedBy:       by.ID,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	t, err := svc.repo.CreateTest(t)
	if err != nil {
		return Test{}, errors.Wrap(err, "creating test")
	}
	svc.logger.Info("test created", map[string]interface{}{"test_id": t.ID, "questions": len(t.Questions)}, by)
	return t, nil
}

// UpdateTest replaces the content of a test. Attempts already started keep their expiry.
func (svc *Service) UpdateTest(id string, nt NewTest) (Test, error) {
	t, err := svc.repo.GetTestByID(id)
	if err != nil {
		return Test{}, err
	}
	t.Title = nt.Title
	t.Subject = nt.Subject
	t.Description = nt.Description
	t.DurationMinutes = nt.DurationMinutes
	t.Questions = nt.questions()
	t.Published = nt.published()
	t.UpdatedAt = NowFunc().UTC()
	return svc.repo.UpdateTest(t)
}

func (svc *Service) DeleteTest(id string) error {
	return svc.repo.DeleteTest(id)
}

func (svc *Service) AllTests() ([]Test, error) {
	return svc.repo.QueryTests(false)
}

// Learner

// PublishedTests lists the tests a learner may take, without their answers.
func (svc *Service) PublishedTests() ([]exam.Test, error) {
	tests, err := svc.repo.QueryTests(true)
	if err != nil {
		return nil, errors.Wrap(err, "querying tests")
	}
	pub := make([]exam.Test, 0, len(tests))
	for _, t := range tests {
		pub = append(pub, t.Public())
	}
	return pub, nil
}

// StartAttempt opens an attempt of a published test for userID. It expires after the test duration.
func (svc *Service) StartAttempt(userID, testID string) (Attempt, Test, error) {
	t, err := svc.getPublished(testID)
	if err != nil {
		return Attempt{}, Test{}, err
	}
	now := NowFunc().UTC()
	a := Attempt{
		ID:        uuid.New().String(),
		TestID:    t.ID,
		UserID:    userID,
		StartedAt: now,
		ExpiresAt: now.Add(time.Duration(t.DurationMinutes) * time.Minute),
		Answers:   make([]exam.Answer, 0),
		MaxScore:  t.TotalMarks(),
		Status:    StatusInProgress,
	}
	a, err = svc.repo.CreateAttempt(a)
	if err != nil {
		return Attempt{}, Test{}, errors.Wrap(err, "creating attempt")
	}
	return a, t, nil
}

// SubmitAttempt grades and closes an attempt. An attempt is submitted once; a late one is
// graded all the same but marked expired.
func (svc *Service) SubmitAttempt(userID, testID, attemptID string, answers []exam.Answer) (Attempt, error) {
	a, err := svc.repo.GetAttemptByID(attemptID)
	if err != nil {
		return Attempt{}, err
	}
	if a.UserID != userID || a.TestID != testID {
		return Attempt{}, ErrAttemptNotFound
	}
	if a.IsClosed() {
		return Attempt{}, ErrAttemptClosed
	}
	t, err := svc.repo.GetTestByID(testID)
	if err != nil {
		return Attempt{}, err
	}

	now := NowFunc().UTC()
	a.SubmittedAt = &now
	a.Answers = dedupe(answers)
	a.Score = Grade(t, a.Answers)
	a.MaxScore = t.TotalMarks()
	a.Status = StatusCompleted
	if now.After(a.ExpiresAt.Add(svc.grace)) {
		a.Status = StatusExpired
		svc.logger.Warn("late submission", map[string]interface{}{
			"attempt_id": a.ID,
			"late_by":    now.Sub(a.ExpiresAt).String(),
		})
	}
	return svc.repo.CloseAttempt(a)
}

// GetAttempt returns an attempt of userID along with its test.
func (svc *Service) GetAttempt(userID, attemptID string) (Attempt, Test, error) {
	a, err := svc.repo.GetAttemptByID(attemptID)
	if err != nil {
		return Attempt{}, Test{}, err
	}
	if a.UserID != userID {
		return Attempt{}, Test{}, ErrAttemptNotFound
	}
	t, err := svc.repo.GetTestByID(a.TestID)
	if err != nil && errors.Cause(err) != ErrTestNotFound {
		return Attempt{}, Test{}, err
	}
	// the test may have been deleted since; the attempt stays readable
	return a, t, nil
}

func (svc *Service) getPublished(id string) (Test, error) {
	t, err := svc.repo.GetTestByID(id)
	if err != nil {
		return Test{}, err
	}
	if !t.Published {
		return Test{}, ErrTestNotFound
	}
	return t, nil
}

// Grade sums the marks of the correctly answered questions. Unknown questions are ignored.
func Grade(t Test, answers []exam.Answer) int {
	var score int
	for _, ans := range answers {
		for _, q := range t.Questions {
			if q.Index == ans.QuestionIndex {
				if q.CorrectIndex == ans.SelectedIndex {
					score += q.Marks
				}
				break
			}
		}
	}
	return score
}

// dedupe keeps the last answer given to each question, in first-answered order.
func dedupe(answers []exam.Answer) []exam.Answer {
	out := make([]exam.Answer, 0, len(answers))
	pos := make(map[int]int, len(answers))
	for _, ans := range answers {
		if i, ok := pos[ans.QuestionIndex]; ok {
			out[i] = ans
			continue
		}
		pos[ans.QuestionIndex] = len(out)
		out = append(out, ans)
	}
	return out
}
