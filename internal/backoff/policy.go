// Package backoff provides transient-error retry with exponential backoff
// and full jitter.
package backoff

import (
	"math"
	"math/rand"
	"time"
)

// Policy defines the exponential backoff schedule. Attempt i (0-indexed)
// waits U(0, min(Base * 2^i, Cap)) before the retry.
type Policy struct {
	// Base is the initial backoff delay.
	Base time.Duration
	// Cap is the maximum backoff delay.
	Cap time.Duration
	// MaxRetries is the number of retries after the first attempt,
	// so at most MaxRetries+1 attempts are made.
	MaxRetries int
}

// DefaultPolicy returns the standard schedule: base 1s, cap 30s, 3 retries.
func DefaultPolicy() Policy {
	return Policy{
		Base:       time.Second,
		Cap:        30 * time.Second,
		MaxRetries: 3,
	}
}

// Delay computes the full-jitter backoff for a given attempt number using
// the provided random value in [0, 1).
func (p Policy) Delay(attempt int, randomValue float64) time.Duration {
	exp := math.Max(float64(attempt), 0)
	ceiling := math.Min(float64(p.Cap), float64(p.Base)*math.Pow(2, exp))
	return time.Duration(randomValue * ceiling)
}

// delay draws the jitter from the shared source.
func (p Policy) delay(attempt int) time.Duration {
	return p.Delay(attempt, rand.Float64()) // #nosec G404 -- jitter does not require cryptographic randomness
}
