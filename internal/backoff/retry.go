package backoff

import (
	"context"
	"errors"
	"net"
	"time"
)

// transienter is satisfied by errors that classify themselves, such as the
// adapter layer's ProviderError.
type transienter interface {
	Transient() bool
}

// DefaultIsTransient reports whether err looks like a transient condition:
// a self-classifying error, a timeout, or a network connectivity failure.
func DefaultIsTransient(err error) bool {
	if err == nil {
		return false
	}
	var t transienter
	if errors.As(err, &t) {
		return t.Transient()
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

// Options configures a Retry call. Zero values fall back to DefaultPolicy
// and DefaultIsTransient.
type Options struct {
	Policy      Policy
	IsTransient func(error) bool
	// ErrorType names a transient error for diagnostics. Defaults to the
	// static string "error".
	ErrorType func(error) string
}

// Result carries the outcome of a successful Retry call.
type Result[T any] struct {
	// Value is the successful result value.
	Value T
	// Retries is the number of retries that were needed (0 when the first
	// attempt succeeded).
	Retries int
	// ErrorTypes names the transient errors encountered before success,
	// in order.
	ErrorTypes []string
}

// Retry executes fn with exponential backoff and full jitter on transient
// errors. Non-transient errors propagate immediately; the last error is
// returned when retries are exhausted. Context cancellation interrupts the
// backoff sleep.
func Retry[T any](ctx context.Context, opts Options, fn func(ctx context.Context) (T, error)) (Result[T], error) {
	var result Result[T]

	policy := opts.Policy
	if policy.Base == 0 && policy.Cap == 0 && policy.MaxRetries == 0 {
		policy = DefaultPolicy()
	}
	isTransient := opts.IsTransient
	if isTransient == nil {
		isTransient = DefaultIsTransient
	}
	errorType := opts.ErrorType
	if errorType == nil {
		errorType = func(error) string { return "error" }
	}

	var lastErr error
	for attempt := 0; attempt <= policy.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		value, err := fn(ctx)
		if err == nil {
			result.Value = value
			return result, nil
		}
		lastErr = err

		if !isTransient(err) || attempt == policy.MaxRetries {
			return result, lastErr
		}

		result.Retries++
		result.ErrorTypes = append(result.ErrorTypes, errorType(err))

		select {
		case <-ctx.Done():
			return result, ctx.Err()
		case <-time.After(policy.delay(attempt)):
		}
	}

	return result, lastErr
}
