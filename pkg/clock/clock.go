// Package clock provides a tamper-proof, strictly non-decreasing time source for the engine. Every expiration
// decision (job TTLs, lock timeouts, eviction ticks) is made against a Clock instead of time.Now() directly, so
// that a wall-clock step (NTP correction, a VM migration, a user resetting the system clock) can never make an
// already-expired entry look fresh again, or vice versa.
package clock

import (
	"sync"
	"time"
)

// Time is an opaque monotonic timestamp. Two Times are only meaningfully comparable if they came from the same
// Clock. Time is comparable (==) and ordered via Before/After/Compare.
type Time struct {
	nanos int64 // Nanoseconds since the owning Clock was constructed.
}

// Add returns t advanced by d, saturating instead of overflowing.
func (t Time) Add(d time.Duration) Time {
	sum := t.nanos + int64(d)
	if d > 0 && sum < t.nanos { // Overflow.
		return Time{nanos: int64(^uint64(0) >> 1)}
	}
	if d < 0 && sum > t.nanos { // Underflow.
		return Time{nanos: -int64(^uint64(0)>>1) - 1}
	}
	return Time{nanos: sum}
}

// Sub returns the duration between t and u (t - u).
func (t Time) Sub(u Time) time.Duration {
	return time.Duration(t.nanos - u.nanos)
}

// Before reports whether t is strictly before u.
func (t Time) Before(u Time) bool { return t.nanos < u.nanos }

// After reports whether t is strictly after u.
func (t Time) After(u Time) bool { return t.nanos > u.nanos }

// Equal reports whether t and u are the same instant.
func (t Time) Equal(u Time) bool { return t.nanos == u.nanos }

// Compare returns -1, 0, or 1 if t is before, equal to, or after u, matching the cmp.Ordered convention used by
// the ordered-index structures built on top of expiration timestamps.
func (t Time) Compare(u Time) int {
	switch {
	case t.nanos < u.nanos:
		return -1
	case t.nanos > u.nanos:
		return 1
	default:
		return 0
	}
}

// Clock is a monotonic clock. The zero value is not usable; construct one with New. A Clock is safe for concurrent
// use.
type Clock struct {
	mu    sync.Mutex
	epoch time.Time // Reading taken when the Clock was constructed; Now measures elapsed time from it.
	last  int64     // Last nanosecond value handed out, to guarantee strictly increasing samples.
}

// New constructs a Clock anchored to the current wall-clock time.
func New() *Clock {
	return &Clock{epoch: time.Now()}
}

// Now returns a Time that is strictly greater than every Time previously returned by this Clock, even on systems
// where the underlying timer has coarse resolution: if two consecutive reads would otherwise tie, Now synthesizes
// the next nanosecond instead of returning a duplicate.
func (c *Clock) Now() Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	elapsed := time.Since(c.epoch).Nanoseconds()
	if elapsed <= c.last {
		elapsed = c.last + 1
	}
	c.last = elapsed
	return Time{nanos: elapsed}
}

// ToWallClock converts a Time previously produced by this Clock into a UTC wall-clock estimate, computed as
// wall_now + (t - monotonic_now()) using freshly sampled wall and monotonic readings. Resampling "now" on every
// call (rather than projecting from the fixed construction epoch) means a wall-clock adjustment that happens after
// t was recorded is reflected in the result, instead of baking in whatever offset happened to hold at Clock
// construction.
func (c *Clock) ToWallClock(t Time) time.Time {
	wallNow := time.Now().UTC()
	monoNow := c.Now()
	return wallNow.Add(t.Sub(monoNow))
}

// Zero reports whether t is the zero Time. Entities use *Time (nil) to represent "no expiration", but commands that
// receive a Time by value rather than pointer use Zero to recognize an explicitly-unset deadline.
func (t Time) Zero() bool {
	return t.nanos == 0
}
