package exam

import (
	"context"
	"time"
)

// Result statuses
const (
	StatusCompleted = "completed"
	StatusExpired   = "expired"
)

type (
	// Question as seen by a learner. The correct option never leaves the server during an attempt.
	Question struct {
		Index   int      `json:"questionIndex" validate:"min=0"`
		Text    string   `json:"text"`
		Options []string `json:"options" validate:"min=1"`
		Marks   int      `json:"marks" validate:"min=0"`
	}

	Test struct {
		ID              string     `json:"_id" validate:"required"`
		Title           string     `json:"title"`
		Subject         string     `json:"subject"`
		Description     string     `json:"description"`
		DurationMinutes int        `json:"durationMinutes" validate:"min=0"`
		Questions       []Question `json:"questions" validate:"dive"`
		TotalMarks      int        `json:"totalMarks"`
	}

	Answer struct {
		QuestionIndex int `json:"questionIndex"`
		SelectedIndex int `json:"selectedIndex"`
	}

	// Submission is the payload of a submit call.
	Submission struct {
		AttemptID string   `json:"attemptId"`
		Answers   []Answer `json:"answers"`
	}

	// StartedAttempt is what the backend returns when an attempt starts.
	// ExpiresAt is zero when the backend did not send one.
	StartedAttempt struct {
		AttemptID string
		Test      Test
		ExpiresAt time.Time
	}

	AttemptResult struct {
		AttemptID string `json:"_id"`
		Score     int    `json:"score"`
		MaxScore  int    `json:"maxScore"`
		Status    string `json:"status"`
		Test      Test   `json:"test"`
	}

	// Client is the network collaborator of the Controller.
	// Implementations map failures onto core.AuthError, core.NetworkError,
	// core.ValidationError and core.NotFoundError.
	Client interface {
		ListTests(ctx context.Context) ([]Test, error)
		StartAttempt(ctx context.Context, testID string) (StartedAttempt, error)
		// SubmitAttempt returns the attempt id echoed by the backend (may be empty).
		SubmitAttempt(ctx context.Context, testID string, sub Submission) (string, error)
		// FetchResult tolerates both the attempt and the result endpoint names.
		FetchResult(ctx context.Context, attemptID string) (AttemptResult, error)
	}
)

func (t Test) Duration() time.Duration {
	return time.Duration(t.DurationMinutes) * time.Minute
}

// Question returns the question with the given index.
func (t Test) Question(index int) (Question, bool) {
	for _, q := range t.Questions {
		if q.Index == index {
			return q, true
		}
	}
	return Question{}, false
}

// MaxScoreOrTotal is the max score to display; older backends only send test.totalMarks.
func (r AttemptResult) MaxScoreOrTotal() int {
	if r.MaxScore > 0 {
		return r.MaxScore
	}
	return r.Test.TotalMarks
}
