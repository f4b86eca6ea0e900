package exam

import (
	"context"
	"sync"
	"time"

	"github.com/courseapp/courseapp/core"
)

// ClientMock is an in-memory Client. Set the exported fields before use.
type ClientMock struct {
	mu sync.Mutex

	Tests    []Test
	ListErr  error
	Started  StartedAttempt
	StartErr error

	SubmitErr error
	SubmitID  string
	// SubmitGate, when set, blocks SubmitAttempt until it is closed.
	SubmitGate chan struct{}

	Result    AttemptResult
	ResultErr error

	submissions []Submission
	calls       map[string]int
}

var _ Client = (*ClientMock)(nil)

func NewClientMock() *ClientMock {
	return &ClientMock{calls: make(map[string]int)}
}

func (cm *ClientMock) call(name string) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.calls[name]++
}

// Calls returns how many times the named method ran.
func (cm *ClientMock) Calls(name string) int {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	return cm.calls[name]
}

func (cm *ClientMock) Submissions() []Submission {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	return append([]Submission(nil), cm.submissions...)
}

func (cm *ClientMock) Set(fn func(cm *ClientMock)) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	fn(cm)
}

func (cm *ClientMock) ListTests(context.Context) ([]Test, error) {
	cm.call("ListTests")
	cm.mu.Lock()
	defer cm.mu.Unlock()
	return cm.Tests, cm.ListErr
}

func (cm *ClientMock) StartAttempt(_ context.Context, testID string) (StartedAttempt, error) {
	cm.call("StartAttempt")
	cm.mu.Lock()
	defer cm.mu.Unlock()
	return cm.Started, cm.StartErr
}

func (cm *ClientMock) SubmitAttempt(_ context.Context, _ string, sub Submission) (string, error) {
	cm.call("SubmitAttempt")
	cm.mu.Lock()
	cm.submissions = append(cm.submissions, sub)
	gate := cm.SubmitGate
	cm.mu.Unlock()
	if gate != nil {
		<-gate
	}

	cm.mu.Lock()
	defer cm.mu.Unlock()
	return cm.SubmitID, cm.SubmitErr
}

func (cm *ClientMock) FetchResult(_ context.Context, attemptID string) (AttemptResult, error) {
	cm.call("FetchResult")
	cm.mu.Lock()
	defer cm.mu.Unlock()
	res := cm.Result
	if res.AttemptID == "" {
		res.AttemptID = attemptID
	}
	return res, cm.ResultErr
}

// ClockMock is a manual clock. Advance moves it and fires due tickers.
type ClockMock struct {
	mu      sync.Mutex
	now     time.Time
	tickers []*tickerMock
}

var _ core.Clock = (*ClockMock)(nil)

func NewClockMock(now time.Time) *ClockMock {
	return &ClockMock{now: now}
}

func (cm *ClockMock) Now() time.Time {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	return cm.now
}

func (cm *ClockMock) NewTicker(d time.Duration) core.Ticker {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	t := &tickerMock{
		clock: cm,
		c:     make(chan time.Time, 1),
		d:     d,
		next:  cm.now.Add(d),
	}
	cm.tickers = append(cm.tickers, t)
	return t
}

// Advance moves the clock by d. Like time.Ticker, a ticker holds at most one pending tick.
func (cm *ClockMock) Advance(d time.Duration) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.now = cm.now.Add(d)
	for _, t := range cm.tickers {
		if t.stopped || cm.now.Before(t.next) {
			continue
		}
		select {
		case t.c <- cm.now:
		default:
		}
		t.next = cm.now.Add(t.d)
	}
}

// ActiveTickers counts the tickers that were not stopped.
func (cm *ClockMock) ActiveTickers() int {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	var n int
	for _, t := range cm.tickers {
		if !t.stopped {
			n++
		}
	}
	return n
}

type tickerMock struct {
	clock   *ClockMock
	c       chan time.Time
	d       time.Duration
	next    time.Time
	stopped bool
}

func (t *tickerMock) C() <-chan time.Time {
	return t.c
}

func (t *tickerMock) Stop() {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	t.stopped = true
}

// CredentialsMock counts invalidations.
type CredentialsMock struct {
	mu          sync.Mutex
	token       string
	invalidated int
}

var _ core.Credentials = (*CredentialsMock)(nil)

func NewCredentialsMock(token string) *CredentialsMock {
	return &CredentialsMock{token: token}
}

func (cm *CredentialsMock) Token() (string, error) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	return cm.token, nil
}

func (cm *CredentialsMock) Invalidate() error {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.token = ""
	cm.invalidated++
	return nil
}

func (cm *CredentialsMock) Invalidated() int {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	return cm.invalidated
}
