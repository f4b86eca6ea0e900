package exam

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/courseapp/courseapp/core"
)

type State int

const (
	StateLoading State = iota
	StateList
	StateAttempt
	StateResult
	StateError
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateList:
		return "list"
	case StateAttempt:
		return "attempt"
	case StateResult:
		return "result"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

const defaultTickInterval = 500 * time.Millisecond

var (
	ErrNoActiveAttempt  = errors.New("no active attempt")
	ErrAttemptActive    = errors.New("an attempt is in progress")
	ErrSubmitting       = errors.New("attempt is being submitted")
	ErrUnknownQuestion  = errors.New("unknown question")
	ErrOptionOutOfRange = errors.New("option out of range")

	errMissingExpiry = errors.New("the server did not send an expiry for this attempt")
	errNoDuration    = errors.New("the test has no duration")
)

type (
	Options struct {
		Client Client
		Clock  core.Clock  // defaults to core.SystemClock()
		Logger core.Logger // defaults to a no-op logger
		// Session is invalidated when the backend answers 401.
		Session core.Credentials

		TickInterval time.Duration
		StrictExpiry bool
		// DeepLinkTestID makes Init start this test instead of listing.
		DeepLinkTestID string

		// OnChange receives a snapshot after every transition and every tick.
		// It runs on the caller's or the ticker's goroutine and must not call back into the Controller.
		OnChange func(View)
		// OnSessionInvalid runs after the credential was invalidated (e.g. to send the user to login).
		OnSessionInvalid func()
	}

	// View is a read-only snapshot of the Controller, for rendering.
	View struct {
		State State
		Tests []Test

		Test            Test
		AttemptID       string
		ExpiresAt       time.Time
		ExpiryEstimated bool
		Remaining       time.Duration
		Clock           string // MM:SS
		PercentLeft     int
		Answers         []Answer
		Submitting      bool

		Result  *AttemptResult
		Message string
	}

	// Controller drives list -> start -> attempt -> submit -> result for one test at a time.
	Controller struct {
		client           Client
		clock            core.Clock
		logger           core.Logger
		session          core.Credentials
		tickInterval     time.Duration
		strictExpiry     bool
		deepLinkTestID   string
		onChange         func(View)
		onSessionInvalid func()

		ctx    context.Context // for timer driven submits
		cancel context.CancelFunc

		mu      sync.Mutex
		state   State
		tests   []Test
		current *attempt
		result  *AttemptResult
		message string
		retry   func(context.Context)
	}

	attempt struct {
		id        string
		test      Test
		countdown Countdown
		estimated bool
		answers   *AnswerSheet
		submit    latch
		inFlight  bool // submit or result fetch running; guarded by Controller.mu

		stopOnce sync.Once
		stop     chan struct{}
		done     chan struct{}
	}
)

func NewController(opts Options) *Controller {
	ctl := &Controller{
		client:           opts.Client,
		clock:            opts.Clock,
		logger:           opts.Logger,
		session:          opts.Session,
		tickInterval:     opts.TickInterval,
		strictExpiry:     opts.StrictExpiry,
		deepLinkTestID:   core.CleanString(opts.DeepLinkTestID),
		onChange:         opts.OnChange,
		onSessionInvalid: opts.OnSessionInvalid,
		state:            StateLoading,
	}
	if ctl.clock == nil {
		ctl.clock = core.SystemClock()
	}
	if ctl.logger == nil {
		ctl.logger = core.NopLogger{}
	}
	if ctl.tickInterval <= 0 {
		ctl.tickInterval = defaultTickInterval
	}
	ctl.ctx, ctl.cancel = context.WithCancel(context.Background())
	return ctl
}

// Init starts the deep-linked test, or lists the published tests.
func (ctl *Controller) Init(ctx context.Context) {
	if ctl.deepLinkTestID != "" {
		_ = ctl.StartAttempt(ctx, ctl.deepLinkTestID)
		return
	}
	_ = ctl.ListTests(ctx)
}

// ListTests fetches the published tests. It refuses to run while an attempt is on screen.
func (ctl *Controller) ListTests(ctx context.Context) error {
	ctl.mu.Lock()
	if ctl.state == StateAttempt {
		ctl.mu.Unlock()
		return ErrAttemptActive
	}
	if ctl.current != nil && ctl.current.inFlight {
		ctl.mu.Unlock()
		return ErrSubmitting
	}
	stale := ctl.detachLocked()
	ctl.state = StateLoading
	ctl.result = nil
	ctl.message = ""
	ctl.mu.Unlock()
	stale.halt()
	ctl.notify()

	tests, err := ctl.client.ListTests(ctx)
	if err != nil {
		ctl.fail(errors.Wrap(err, "listing tests"), "Failed to load tests. Try again later.", func(ctx context.Context) {
			_ = ctl.ListTests(ctx)
		})
		return nil
	}
	if tests == nil {
		tests = make([]Test, 0)
	}

	ctl.mu.Lock()
	ctl.tests = tests
	ctl.state = StateList
	ctl.mu.Unlock()
	ctl.notify()
	return nil
}

// StartAttempt starts an attempt of testID. A running countdown is cancelled first.
// It only returns an error when the current attempt is being submitted; backend failures end in StateError.
func (ctl *Controller) StartAttempt(ctx context.Context, testID string) error {
	ctl.mu.Lock()
	if ctl.current != nil && ctl.current.inFlight {
		ctl.mu.Unlock()
		return ErrSubmitting
	}
	prev := ctl.detachLocked()
	ctl.state = StateLoading
	ctl.result = nil
	ctl.message = ""
	ctl.mu.Unlock()
	ctl.stopAndWait(prev)
	ctl.notify()

	retry := func(ctx context.Context) { _ = ctl.StartAttempt(ctx, testID) }

	started, err := ctl.client.StartAttempt(ctx, testID)
	if err != nil {
		ctl.fail(errors.Wrap(err, "starting attempt"), "Failed to start attempt", retry)
		return nil
	}

	now := ctl.clock.Now()
	expiresAt := started.ExpiresAt
	var estimated bool
	if expiresAt.IsZero() {
		switch {
		case ctl.strictExpiry:
			ctl.fail(core.NewValidationError(errMissingExpiry), "", retry)
			return nil
		case started.Test.Duration() <= 0:
			ctl.fail(core.NewValidationError(errNoDuration), "", retry)
			return nil
		}
		expiresAt = now.Add(started.Test.Duration())
		estimated = true
		ctl.logger.Warn("backend did not send expiresAt; countdown estimated from the test duration", map[string]interface{}{
			"attempt_id": started.AttemptID,
			"test_id":    started.Test.ID,
		})
	}

	a := &attempt{
		id:        started.AttemptID,
		test:      started.Test,
		countdown: NewCountdown(expiresAt, started.Test.Duration(), now),
		estimated: estimated,
		answers:   NewAnswerSheet(),
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
	// the ticker exists before StartAttempt returns, so no tick can be missed
	ticker := ctl.clock.NewTicker(ctl.tickInterval)

	ctl.mu.Lock()
	raced := ctl.detachLocked() // a concurrent StartAttempt finished first
	ctl.current = a
	ctl.state = StateAttempt
	ctl.mu.Unlock()
	ctl.stopAndWait(raced)

	go ctl.tick(a, ticker)

	ctl.logger.Info("attempt started", map[string]interface{}{
		"attempt_id": a.id,
		"test_id":    a.test.ID,
		"expires_at": expiresAt,
	})
	ctl.notify()
	return nil
}

// SelectOption records the chosen option for a question. Selecting the same option twice is a no-op.
func (ctl *Controller) SelectOption(questionIndex, optionIndex int) error {
	ctl.mu.Lock()
	a := ctl.current
	if a == nil || ctl.state != StateAttempt {
		ctl.mu.Unlock()
		return ErrNoActiveAttempt
	}
	if a.submit.Taken() {
		ctl.mu.Unlock()
		return ErrSubmitting
	}
	q, ok := a.test.Question(questionIndex)
	if !ok {
		ctl.mu.Unlock()
		return ErrUnknownQuestion
	}
	if optionIndex < 0 || optionIndex >= len(q.Options) {
		ctl.mu.Unlock()
		return ErrOptionOutOfRange
	}
	changed := a.answers.Select(questionIndex, optionIndex)
	ctl.mu.Unlock()

	if changed {
		ctl.notify()
	}
	return nil
}

// SubmitAttempt submits the current answers. It reports false when there was nothing to submit
// or when another trigger (the countdown or a previous call) already took the submit.
func (ctl *Controller) SubmitAttempt(ctx context.Context) bool {
	ctl.mu.Lock()
	a := ctl.current
	ctl.mu.Unlock()
	if a == nil {
		return false
	}
	return ctl.submit(ctx, a)
}

func (ctl *Controller) submit(ctx context.Context, a *attempt) bool {
	ctl.mu.Lock()
	if ctl.current != a || ctl.state != StateAttempt || !a.submit.Acquire() {
		ctl.mu.Unlock()
		return false
	}
	a.inFlight = true // until the result is in
	sub := Submission{AttemptID: a.id, Answers: a.answers.Answers()}
	ctl.message = ""
	ctl.mu.Unlock()
	ctl.notify()

	resultID, err := ctl.client.SubmitAttempt(ctx, a.test.ID, sub)
	if err != nil {
		err = errors.Wrap(err, "submitting attempt")
		if !core.IsValidation(err) {
			ctl.mu.Lock()
			a.inFlight = false
			ctl.mu.Unlock()

			switch {
			case core.IsAuth(err), core.IsNotFound(err):
				ctl.mu.Lock()
				if ctl.current == a {
					ctl.detachLocked()
				}
				ctl.mu.Unlock()
				a.halt()
				ctl.fail(err, "", func(ctx context.Context) { _ = ctl.ListTests(ctx) })
			default:
				ctl.logger.Warn("submit failed", err)
				ctl.mu.Lock()
				if ctl.current == a {
					a.submit.Release()
					ctl.message = "Submit error. Try again."
				}
				ctl.mu.Unlock()
				ctl.notify()
			}
			return true
		}
		// the attempt may already be closed and graded server-side
		ctl.logger.Warn("submit rejected, fetching the result anyway", err)
	}

	if resultID == "" {
		resultID = a.id
	}
	a.halt()
	ctl.logger.Info("attempt submitted", map[string]interface{}{
		"attempt_id": a.id,
		"answers":    len(sub.Answers),
	})

	ctl.mu.Lock()
	if ctl.current != a {
		ctl.mu.Unlock()
		return true
	}
	ctl.state = StateLoading
	ctl.mu.Unlock()
	ctl.notify()

	ctl.fetchResult(ctx, resultID, a)
	return true
}

// FetchResult retrieves a graded attempt. It refuses to run while an attempt is on screen.
func (ctl *Controller) FetchResult(ctx context.Context, attemptID string) error {
	ctl.mu.Lock()
	a := ctl.current
	if ctl.state == StateAttempt {
		ctl.mu.Unlock()
		return ErrAttemptActive
	}
	if a != nil && a.inFlight {
		ctl.mu.Unlock()
		return ErrSubmitting
	}
	ctl.state = StateLoading
	ctl.message = ""
	ctl.mu.Unlock()
	ctl.notify()

	ctl.fetchResult(ctx, attemptID, a)
	return nil
}

// fetchResult stores the result of attemptID and discards a, the attempt it belongs to (if any).
// A result for an attempt that is no longer current is dropped.
func (ctl *Controller) fetchResult(ctx context.Context, attemptID string, a *attempt) {
	res, err := ctl.client.FetchResult(ctx, attemptID)

	ctl.mu.Lock()
	if ctl.current != a {
		ctl.mu.Unlock()
		ctl.logger.Debug("dropping result of a detached attempt", map[string]interface{}{"attempt_id": attemptID})
		return
	}
	if a != nil {
		a.inFlight = false
	}
	if err != nil {
		ctl.mu.Unlock()
		ctl.fail(errors.Wrap(err, "fetching result"), "Failed to retrieve result", func(ctx context.Context) {
			_ = ctl.FetchResult(ctx, attemptID)
		})
		return
	}
	ctl.detachLocked()
	if a != nil && res.Test.Title == "" {
		res.Test = a.test
	}
	ctl.result = &res
	ctl.state = StateResult
	ctl.message = ""
	ctl.retry = nil
	ctl.mu.Unlock()
	a.halt()
	ctl.notify()
}

// Exit abandons the attempt on screen and goes back to the list.
// When Exit returns the countdown is gone: no tick of that attempt can run afterwards.
func (ctl *Controller) Exit() error {
	ctl.mu.Lock()
	a := ctl.current
	if a == nil || ctl.state != StateAttempt {
		ctl.mu.Unlock()
		return ErrNoActiveAttempt
	}
	if a.inFlight {
		ctl.mu.Unlock()
		return ErrSubmitting
	}
	ctl.detachLocked()
	ctl.state = StateList
	ctl.message = ""
	ctl.mu.Unlock()

	ctl.stopAndWait(a)
	ctl.logger.Info("attempt abandoned", map[string]interface{}{"attempt_id": a.id})
	ctl.notify()
	return nil
}

// Retry runs the recovery action of the current error.
func (ctl *Controller) Retry(ctx context.Context) {
	ctl.mu.Lock()
	if ctl.state != StateError {
		ctl.mu.Unlock()
		return
	}
	retry := ctl.retry
	ctl.retry = nil
	ctl.mu.Unlock()

	if retry == nil {
		_ = ctl.ListTests(ctx)
		return
	}
	retry(ctx)
}

// BackToList leaves a result (or an error) and lists the tests again.
func (ctl *Controller) BackToList(ctx context.Context) error {
	return ctl.ListTests(ctx)
}

// Close stops the countdown and cancels timer driven requests.
func (ctl *Controller) Close() {
	ctl.cancel()
	ctl.mu.Lock()
	a := ctl.detachLocked()
	ctl.mu.Unlock()
	ctl.stopAndWait(a)
}

func (ctl *Controller) View() View {
	ctl.mu.Lock()
	defer ctl.mu.Unlock()
	return ctl.viewLocked()
}

func (ctl *Controller) viewLocked() View {
	v := View{
		State:   ctl.state,
		Tests:   append([]Test(nil), ctl.tests...),
		Message: ctl.message,
	}
	if ctl.result != nil {
		res := *ctl.result
		v.Result = &res
	}
	if a := ctl.current; a != nil {
		now := ctl.clock.Now()
		v.Test = a.test
		v.AttemptID = a.id
		v.ExpiresAt = a.countdown.ExpiresAt
		v.ExpiryEstimated = a.estimated
		v.Remaining = a.countdown.Remaining(now)
		v.Clock = a.countdown.Clock(now)
		v.PercentLeft = a.countdown.PercentLeft(now)
		v.Answers = a.answers.Answers()
		v.Submitting = a.submit.Taken()
	}
	return v
}

// tick recomputes the time left from the absolute expiry on every tick.
// An expired attempt is submitted; a submit that failed and released the latch
// is tried again on the next tick.
func (ctl *Controller) tick(a *attempt, ticker core.Ticker) {
	defer close(a.done)
	defer ticker.Stop()

	for {
		select {
		case <-a.stop:
			return
		case <-ticker.C():
			if !a.countdown.Expired(ctl.clock.Now()) {
				if ctl.isCurrent(a) {
					ctl.notify()
				}
				continue
			}
			ctl.logger.Info("attempt expired", map[string]interface{}{"attempt_id": a.id})
			ctl.submit(ctl.ctx, a)
			if a.submit.Taken() || !ctl.isCurrent(a) {
				return
			}
		}
	}
}

// fail moves to StateError, or drops the session on an auth error.
func (ctl *Controller) fail(err error, msg string, retry func(context.Context)) {
	if core.IsAuth(err) {
		ctl.sessionInvalid(err)
		return
	}
	switch {
	case core.IsNotFound(err):
		msg = errors.Cause(err).Error()
		retry = func(ctx context.Context) { _ = ctl.ListTests(ctx) }
	case core.IsValidation(err), msg == "":
		msg = errors.Cause(err).Error()
	}
	ctl.logger.Warn(msg, err)

	ctl.mu.Lock()
	ctl.state = StateError
	ctl.message = msg
	ctl.retry = retry
	ctl.mu.Unlock()
	ctl.notify()
}

func (ctl *Controller) sessionInvalid(err error) {
	ctl.logger.Warn("session rejected by the backend", err)

	ctl.mu.Lock()
	a := ctl.detachLocked()
	ctl.state = StateLoading
	ctl.tests = nil
	ctl.result = nil
	ctl.message = ""
	ctl.retry = nil
	ctl.mu.Unlock()
	// may run on the ticker goroutine: never wait for it here
	a.halt()

	if ctl.session != nil {
		if iErr := ctl.session.Invalidate(); iErr != nil {
			ctl.logger.Error("invalidating credentials", iErr)
		}
	}
	if ctl.onSessionInvalid != nil {
		ctl.onSessionInvalid()
	}
	ctl.notify()
}

func (ctl *Controller) isCurrent(a *attempt) bool {
	ctl.mu.Lock()
	defer ctl.mu.Unlock()
	return ctl.current == a
}

// detachLocked forgets the current attempt and returns it. ctl.mu must be held.
func (ctl *Controller) detachLocked() *attempt {
	a := ctl.current
	ctl.current = nil
	return a
}

// stopAndWait must not run on the ticker goroutine of a.
func (ctl *Controller) stopAndWait(a *attempt) {
	if a == nil {
		return
	}
	a.halt()
	<-a.done
}

func (ctl *Controller) notify() {
	if ctl.onChange == nil {
		return
	}
	ctl.onChange(ctl.View())
}

func (a *attempt) halt() {
	if a == nil {
		return
	}
	a.stopOnce.Do(func() { close(a.stop) })
}
