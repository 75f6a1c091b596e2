package outbox

import "time"

const (
	DefaultBackoffBase = 10 * time.Second
	DefaultBackoffCap  = 10 * time.Minute
)

// BackoffPolicy computes the delay before a failed item becomes claimable
// again: the base delay doubles per attempt up to the cap.
type BackoffPolicy struct {
	Base time.Duration
	Cap  time.Duration
}

func NewBackoffPolicy(base, cap time.Duration) BackoffPolicy {
	if base <= 0 {
		base = DefaultBackoffBase
	}
	if cap <= 0 {
		cap = DefaultBackoffCap
	}
	if cap < base {
		cap = base
	}
	return BackoffPolicy{Base: base, Cap: cap}
}

// Delay returns the wait after the retryCount-th failure (1-based).
func (p BackoffPolicy) Delay(retryCount int) time.Duration {
	if retryCount <= 1 {
		return p.Base
	}
	delay := p.Base
	for i := 1; i < retryCount; i++ {
		delay *= 2
		if delay >= p.Cap || delay <= 0 {
			return p.Cap
		}
	}
	return delay
}

// NextRetryAt schedules the next attempt relative to now.
func (p BackoffPolicy) NextRetryAt(now time.Time, retryCount int) time.Time {
	return now.Add(p.Delay(retryCount))
}
