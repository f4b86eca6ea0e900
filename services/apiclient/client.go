package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/courseapp/courseapp/core"
	"github.com/courseapp/courseapp/core/exam"
)

const maxBodySize = 4 << 20

var errMalformed = errors.New("malformed response")

type (
	Options struct {
		BaseURL     string
		Timeout     time.Duration
		Credentials core.Credentials // optional: requests go out without a bearer when nil
		Logger      core.Logger
		HTTPClient  *http.Client // overrides Timeout when set
	}

	// Client talks to the courseapp REST backend. It implements exam.Client.
	Client struct {
		baseURL    string
		http       *http.Client
		creds      core.Credentials
		logger     core.Logger
		validate   *validator.Validate
		translator ut.Translator
	}

	// envelope is common to every response of the backend.
	envelope struct {
		Success *bool  `json:"success"`
		Message string `json:"message"`
	}
)

var _ exam.Client = (*Client)(nil)

func New(opts Options) *Client {
	hc := opts.HTTPClient
	if hc == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 15 * time.Second
		}
		hc = &http.Client{Timeout: timeout}
	}
	validate, translator := core.NewValidator()
	c := &Client{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		http:       hc,
		creds:      opts.Credentials,
		logger:     opts.Logger,
		validate:   validate,
		translator: translator,
	}
	if c.logger == nil {
		c.logger = core.NopLogger{}
	}
	return c
}

// do sends one request and decodes the JSON body into out (if not nil).
// Failures are mapped onto the core error kinds.
func (c *Client) do(ctx context.Context, method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return errors.Wrap(err, "encoding request")
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return errors.Wrap(err, "building request")
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.creds != nil {
		token, err := c.creds.Token()
		if err != nil {
			return errors.Wrap(err, "reading credentials")
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return core.NewNetworkError(errors.Wrapf(err, "%s %s", method, path))
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return core.NewNetworkError(errors.Wrapf(err, "%s %s: reading body", method, path))
	}
	c.logger.Debug("api call", map[string]interface{}{
		"method":   method,
		"path":     path,
		"status":   resp.StatusCode,
		"duration": time.Since(start).String(),
	})

	var env envelope
	jsonErr := json.Unmarshal(data, &env)
	if err = statusError(resp.StatusCode, env.Message); err != nil {
		return errors.Wrapf(err, "%s %s", method, path)
	}
	if len(bytes.TrimSpace(data)) == 0 && out == nil {
		return nil
	}
	if jsonErr != nil {
		return core.NewValidationError(errors.Wrapf(errMalformed, "%s %s", method, path))
	}
	if env.Success != nil && !*env.Success {
		msg := env.Message
		if msg == "" {
			msg = "request failed"
		}
		return core.NewValidationError(errors.New(msg))
	}
	if out == nil {
		return nil
	}
	if err = json.Unmarshal(data, out); err != nil {
		return core.NewValidationError(errors.Wrapf(errMalformed, "%s %s: %v", method, path, err))
	}
	if err = core.ValidateStruct(c.validate, c.translator, out); err != nil {
		c.logger.Warn("response rejected", map[string]interface{}{"method": method, "path": path}, err)
		return errors.Wrapf(err, "%s %s: %v", method, path, errMalformed)
	}
	return nil
}

// statusError maps a non-2xx status onto the core error kinds.
func statusError(status int, msg string) error {
	if status >= 200 && status < 300 {
		return nil
	}
	if msg == "" {
		msg = strings.ToLower(http.StatusText(status))
	}
	switch {
	case status == http.StatusUnauthorized:
		return core.NewAuthError(msg)
	case status == http.StatusNotFound:
		return core.NewNotFoundError(msg)
	case status == http.StatusTooManyRequests, status >= 500:
		return core.NewNetworkError(errors.Errorf("%d %s", status, msg))
	case status >= 400:
		return core.NewValidationError(errors.New(msg))
	default:
		return core.NewNetworkError(errors.Errorf("unexpected status %d", status))
	}
}

func pathID(id string) (string, error) {
	id, err := core.PathID(id)
	if err != nil {
		return "", core.NewValidationError(err)
	}
	return id, nil
}
