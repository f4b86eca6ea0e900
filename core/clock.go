package core

import "time"

type (
	// Clock is the time source of anything that counts down.
	Clock interface {
		Now() time.Time
		NewTicker(d time.Duration) Ticker
	}

	Ticker interface {
		C() <-chan time.Time
		Stop()
	}
)

// SystemClock returns the wall clock.
func SystemClock() Clock {
	return systemClock{}
}

type systemClock struct{}

func (systemClock) Now() time.Time {
	return time.Now()
}

func (systemClock) NewTicker(d time.Duration) Ticker {
	return &systemTicker{t: time.NewTicker(d)}
}

type systemTicker struct {
	t *time.Ticker
}

func (st *systemTicker) C() <-chan time.Time {
	return st.t.C
}

func (st *systemTicker) Stop() {
	st.t.Stop()
}
