package exambank

import (
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/courseapp/courseapp/core"
	"github.com/courseapp/courseapp/core/exam"
)

// Attempt statuses
const (
	StatusInProgress = "in_progress"
	StatusCompleted  = exam.StatusCompleted
	StatusExpired    = exam.StatusExpired
)

type (
	// Question is the admin view of a question: it carries the correct option.
	Question struct {
		Index        int      `json:"questionIndex"`
		Text         string   `json:"text"`
		Options      []string `json:"options"`
		CorrectIndex int      `json:"correctIndex"`
		Marks        int      `json:"marks"`
	}

	Test struct {
		ID              string     `json:"_id" db:"id"`
		Title           string     `json:"title" db:"title"`
		Subject         string     `json:"subject" db:"subject"`
		Description     string     `json:"description" db:"description"`
		DurationMinutes int        `json:"durationMinutes" db:"duration_minutes"`
		Questions       []Question `json:"questions" db:"-"`
		Published       bool       `json:"published" db:"published"`
		CreatedBy       string     `json:"createdBy" db:"created_by"`
		CreatedAt       time.Time  `json:"createdAt" db:"created_at"`
		UpdatedAt       time.Time  `json:"updatedAt" db:"updated_at"`
	}

	Attempt struct {
		ID          string        `json:"_id" db:"id"`
		TestID      string        `json:"testId" db:"test_id"`
		UserID      string        `json:"userId" db:"user_id"`
		StartedAt   time.Time     `json:"startedAt" db:"started_at"`
		ExpiresAt   time.Time     `json:"expiresAt" db:"expires_at"`
		SubmittedAt *time.Time    `json:"submittedAt,omitempty" db:"submitted_at"`
		Answers     []exam.Answer `json:"answers" db:"-"`
		Score       int           `json:"score" db:"score"`
		MaxScore    int           `json:"maxScore" db:"max_score"`
		Status      string        `json:"status" db:"status"`
	}
)

func (t Test) TotalMarks() int {
	var total int
	for _, q := range t.Questions {
		total += q.Marks
	}
	return total
}

// Public strips the correct options: this is what a learner may see.
func (t Test) Public() exam.Test {
	qs := make([]exam.Question, 0, len(t.Questions))
	for _, q := range t.Questions {
		qs = append(qs, exam.Question{
			Index:   q.Index,
			Text:    q.Text,
			Options: append([]string(nil), q.Options...),
			Marks:   q.Marks,
		})
	}
	return exam.Test{
		ID:              t.ID,
		Title:           t.Title,
		Subject:         t.Subject,
		Description:     t.Description,
		DurationMinutes: t.DurationMinutes,
		Questions:       qs,
		TotalMarks:      t.TotalMarks(),
	}
}

func (a Attempt) IsClosed() bool {
	return a.SubmittedAt != nil
}

type (
	// NewTest is the body of the create and update routes.
	NewTest struct {
		Title           string        `json:"title" validate:"notblank"`
		Subject         string        `json:"subject"`
		Description     string        `json:"description"`
		DurationMinutes int           `json:"durationMinutes" validate:"min=1"`
		Questions       []NewQuestion `json:"questions" validate:"min=1,dive"`
		Published       *bool         `json:"published"` // defaults to true
	}

	NewQuestion struct {
		Text         string   `json:"text" validate:"notblank"`
		Options      []string `json:"options" validate:"min=2,dive,notblank"`
		CorrectIndex int      `json:"correctIndex" validate:"min=0"`
		Marks        int      `json:"marks" validate:"min=0"`
	}
)

func (nt *NewTest) Validate(validate *validator.Validate, translator ut.Translator) error {
	nt.Title = core.CleanString(nt.Title)
	nt.Subject = core.CleanString(nt.Subject)
	nt.Description = core.CleanString(nt.Description)
	for i := range nt.Questions {
		q := &nt.Questions[i]
		q.Text = core.CleanString(q.Text)
		for j := range q.Options {
			q.Options[j] = core.CleanString(q.Options[j])
		}
	}
	return core.ValidateStruct(validate, translator, nt)
}

// questions numbers the questions in order.
func (nt NewTest) questions() []Question {
	qs := make([]Question, 0, len(nt.Questions))
	for i, nq := range nt.Questions {
		qs = append(qs, Question{
			Index:        i,
			Text:         nq.Text,
			Options:      nq.Options,
			CorrectIndex: nq.CorrectIndex,
			Marks:        nq.Marks,
		})
	}
	return qs
}

func (nt NewTest) published() bool {
	return nt.Published == nil || *nt.Published
}

// SubmitRequest is the body of the submit route.
type SubmitRequest struct {
	AttemptID string        `json:"attemptId" validate:"required"`
	Answers   []exam.Answer `json:"answers"`
}

func (sr *SubmitRequest) Validate(validate *validator.Validate, translator ut.Translator) error {
	sr.AttemptID = core.CleanString(sr.AttemptID)
	return core.ValidateStruct(validate, translator, sr)
}
