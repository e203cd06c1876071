package watcher

import "time"

// Throttle enforces a minimum interval between command invocations.
// It is not safe for concurrent use; the dispatcher lock guards it.
type Throttle struct {
	interval time.Duration
	last     time.Time
}

func NewThrottle(interval time.Duration) *Throttle {
	if interval <= 0 {
		interval = ThrottleInterval
	}
	return &Throttle{interval: interval}
}

// Allow reports whether at least one interval has passed since the last
// recorded invocation. The first call is always allowed.
func (t *Throttle) Allow(now time.Time) bool {
	return t.last.IsZero() || now.Sub(t.last) >= t.interval
}

// Record marks now as the time of the latest invocation.
func (t *Throttle) Record(now time.Time) {
	t.last = now
}
