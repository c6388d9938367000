package domain

import "time"

// MaxBackoffMultiplier caps how far repeated violations may extend a lockout,
// expressed as a multiple of the base window.
const MaxBackoffMultiplier = 5

// RateLimitEntry is the per-key counter state held by a RateLimitStore.
// ResetTime is always the instant at which Count resets to zero; once Blocked is
// set, ResetTime has been extended beyond the nominal window end.
type RateLimitEntry struct {
	Key       string
	Count     int
	ResetTime time.Time
	Blocked   bool
}

// Expired reports whether the entry's window has already ended.
func (e RateLimitEntry) Expired(now time.Time) bool {
	return !e.ResetTime.After(now)
}

// RateLimitDecision is the outcome of a single check-and-increment.
type RateLimitDecision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetTime  time.Time
	RetryAfter time.Duration
}

// RetryAfterSeconds rounds the retry delay up to whole seconds for the
// Retry-After header.
func (d RateLimitDecision) RetryAfterSeconds() int {
	if d.RetryAfter <= 0 {
		return 0
	}
	secs := int((d.RetryAfter + time.Second - 1) / time.Second)
	if secs < 1 {
		secs = 1
	}
	return secs
}

// BackoffWindow computes the extended lockout for a violator: the base window
// multiplied by the number of requests past the limit, capped at
// MaxBackoffMultiplier.
func BackoffWindow(window time.Duration, count, limit int) time.Duration {
	over := count - limit
	if over < 1 {
		over = 1
	}
	if over > MaxBackoffMultiplier {
		over = MaxBackoffMultiplier
	}
	return window * time.Duration(over)
}
