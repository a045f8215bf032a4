package cache

import (
	"fmt"
	"time"
)

// TTLPolicy describes how long an entry lives.
//
// Sliding extends the entry on every hit. Absolute caps the lifetime from the
// moment the entry is written, regardless of activity. When both are set the
// entry expires at whichever comes first. A zero policy never expires.
type TTLPolicy struct {
	Sliding  time.Duration
	Absolute time.Duration
}

// SlidingTTL returns a policy that only slides.
func SlidingTTL(d time.Duration) TTLPolicy { return TTLPolicy{Sliding: d} }

// AbsoluteTTL returns a policy with a fixed lifetime.
func AbsoluteTTL(d time.Duration) TTLPolicy { return TTLPolicy{Absolute: d} }

// IsZero reports whether the policy never expires.
func (p TTLPolicy) IsZero() bool {
	return p.Sliding <= 0 && p.Absolute <= 0
}

// Validate rejects negative durations.
func (p TTLPolicy) Validate() error {
	if p.Sliding < 0 {
		return fmt.Errorf("cache: sliding ttl must be non-negative, got %s", p.Sliding)
	}
	if p.Absolute < 0 {
		return fmt.Errorf("cache: absolute ttl must be non-negative, got %s", p.Absolute)
	}
	return nil
}

// Initial returns the time to live of a freshly written entry, or zero when the
// entry should not expire.
func (p TTLPolicy) Initial() time.Duration {
	switch {
	case p.Sliding > 0 && p.Absolute > 0:
		return min(p.Sliding, p.Absolute)
	case p.Sliding > 0:
		return p.Sliding
	case p.Absolute > 0:
		return p.Absolute
	default:
		return 0
	}
}

// Deadline returns the absolute expiry for an entry written at now, or the zero
// time when the policy has no absolute component.
func (p TTLPolicy) Deadline(now time.Time) time.Time {
	if p.Absolute <= 0 {
		return time.Time{}
	}
	return now.Add(p.Absolute)
}

// Slide computes the remaining lifetime of an entry that was just read at now.
// deadline is the absolute expiry recorded at write time (zero for none).
// ok is false when the deadline has already passed and the entry must be
// treated as expired.
func Slide(now time.Time, sliding time.Duration, deadline time.Time) (ttl time.Duration, ok bool) {
	if !deadline.IsZero() {
		remaining := deadline.Sub(now)
		if remaining <= 0 {
			return 0, false
		}
		if sliding <= 0 || remaining < sliding {
			return remaining, true
		}
	}
	return sliding, true
}
