package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/pkg/errors"

	"github.com/courseapp/courseapp/core"
	"github.com/courseapp/courseapp/core/exam"
)

type (
	listResponse struct {
		Tests []exam.Test `json:"tests" validate:"dive"`
	}

	startResponse struct {
		AttemptID string    `json:"attemptId" validate:"required"`
		Test      exam.Test `json:"test"`
		ExpiresAt timestamp `json:"expiresAt"`
	}

	submitResponse struct {
		AttemptID string `json:"attemptId"`
	}

	// resultResponse accepts the payload under "attempt", "attemptData" or at the root.
	resultResponse struct {
		Attempt     *wireResult `json:"attempt"`
		AttemptData *wireResult `json:"attemptData"`
		wireResult
	}

	wireResult struct {
		ID        string          `json:"_id"`
		AttemptID string          `json:"attemptId"`
		Score     int             `json:"score"`
		MaxScore  int             `json:"maxScore"`
		Status    string          `json:"status"`
		Test      json.RawMessage `json:"test"`
	}
)

// ListTests returns the published tests.
func (c *Client) ListTests(ctx context.Context) ([]exam.Test, error) {
	var resp listResponse
	if err := c.do(ctx, http.MethodGet, "/api/user/givetests", nil, &resp); err != nil {
		return nil, err
	}
	if resp.Tests == nil {
		resp.Tests = make([]exam.Test, 0)
	}
	return resp.Tests, nil
}

func (c *Client) StartAttempt(ctx context.Context, testID string) (exam.StartedAttempt, error) {
	id, err := pathID(testID)
	if err != nil {
		return exam.StartedAttempt{}, err
	}
	var resp startResponse
	if err = c.do(ctx, http.MethodPost, "/api/user/"+id+"/start", nil, &resp); err != nil {
		return exam.StartedAttempt{}, err
	}
	return exam.StartedAttempt{
		AttemptID: resp.AttemptID,
		Test:      resp.Test,
		ExpiresAt: resp.ExpiresAt.Time,
	}, nil
}

// SubmitAttempt posts the answers and returns the attempt id echoed by the backend.
func (c *Client) SubmitAttempt(ctx context.Context, testID string, sub exam.Submission) (string, error) {
	id, err := pathID(testID)
	if err != nil {
		return "", err
	}
	if sub.Answers == nil {
		sub.Answers = make([]exam.Answer, 0)
	}
	var resp submitResponse
	if err = c.do(ctx, http.MethodPost, "/api/user/"+id+"/submit", sub, &resp); err != nil {
		return "", err
	}
	return resp.AttemptID, nil
}

// FetchResult reads the graded attempt from /api/user/attempt/:id and falls back to the
// older /api/user/result/:id when the first one is missing or unreachable.
// A rejected credential is never retried.
func (c *Client) FetchResult(ctx context.Context, attemptID string) (exam.AttemptResult, error) {
	id, err := pathID(attemptID)
	if err != nil {
		return exam.AttemptResult{}, err
	}

	var resp resultResponse
	err = c.do(ctx, http.MethodGet, "/api/user/attempt/"+id, nil, &resp)
	if err != nil && (core.IsNotFound(err) || core.IsNetwork(err)) {
		c.logger.Debug("attempt endpoint failed, trying the result endpoint", map[string]interface{}{"attempt_id": id}, err)
		resp = resultResponse{}
		err = c.do(ctx, http.MethodGet, "/api/user/result/"+id, nil, &resp)
	}
	if err != nil {
		return exam.AttemptResult{}, err
	}

	wr := resp.wireResult
	switch {
	case resp.Attempt != nil:
		wr = *resp.Attempt
	case resp.AttemptData != nil:
		wr = *resp.AttemptData
	}
	res, err := wr.result()
	if err != nil {
		return exam.AttemptResult{}, core.NewValidationError(errors.Wrap(err, "decoding attempt result"))
	}
	if res.AttemptID == "" {
		res.AttemptID = id
	}
	return res, nil
}

func (wr wireResult) result() (exam.AttemptResult, error) {
	res := exam.AttemptResult{
		AttemptID: wr.ID,
		Score:     wr.Score,
		MaxScore:  wr.MaxScore,
		Status:    wr.Status,
	}
	if res.AttemptID == "" {
		res.AttemptID = wr.AttemptID
	}

	// "test" is either the embedded test or just its id
	raw := bytes.TrimSpace(wr.Test)
	switch {
	case len(raw) == 0 || bytes.Equal(raw, []byte("null")):
	case raw[0] == '"':
		if err := json.Unmarshal(raw, &res.Test.ID); err != nil {
			return exam.AttemptResult{}, err
		}
	default:
		if err := json.Unmarshal(raw, &res.Test); err != nil {
			return exam.AttemptResult{}, err
		}
	}
	return res, nil
}

// timestamp decodes an RFC 3339 string or a number of milliseconds since the epoch.
// null and "" leave it zero.
type timestamp struct {
	time.Time
}

func (ts *timestamp) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if s == "" {
			return nil
		}
		t, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return errors.Wrap(err, "parsing timestamp")
		}
		ts.Time = t
		return nil
	}
	ms, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return errors.Wrap(err, "parsing timestamp")
	}
	ts.Time = time.Unix(0, int64(ms*float64(time.Millisecond))).UTC()
	return nil
}
