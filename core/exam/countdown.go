package exam

import (
	"fmt"
	"math"
	"time"
)

// Countdown derives the time left from an absolute expiry. It keeps no running total:
// every reading is expiresAt - now, so slow or missed ticks cannot make it drift.
type Countdown struct {
	ExpiresAt time.Time
	Span      time.Duration // full length of the attempt, for PercentLeft
}

func NewCountdown(expiresAt time.Time, duration time.Duration, now time.Time) Countdown {
	span := duration
	if span <= 0 {
		span = expiresAt.Sub(now)
	}
	return Countdown{ExpiresAt: expiresAt, Span: span}
}

func (cd Countdown) Remaining(now time.Time) time.Duration {
	if left := cd.ExpiresAt.Sub(now); left > 0 {
		return left
	}
	return 0
}

func (cd Countdown) Expired(now time.Time) bool {
	return !now.Before(cd.ExpiresAt)
}

// PercentLeft is in [0, 100].
func (cd Countdown) PercentLeft(now time.Time) int {
	if cd.Span <= 0 {
		return 0
	}
	pct := int(math.Round(float64(cd.Remaining(now)) / float64(cd.Span) * 100))
	if pct > 100 {
		return 100
	}
	return pct
}

// Clock formats the time left as MM:SS, rounding to the nearest second.
func (cd Countdown) Clock(now time.Time) string {
	secs := int(math.Round(cd.Remaining(now).Seconds()))
	return fmt.Sprintf("%02d:%02d", secs/60, secs%60)
}
