package adapters

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
)

// FailReason categorizes why a provider request failed. It drives the
// transient/permanent split the retry wrapper relies on.
type FailReason string

const (
	// ReasonRateLimit indicates rate limiting (HTTP 429).
	ReasonRateLimit FailReason = "rate_limit"

	// ReasonTimeout indicates a request timeout.
	ReasonTimeout FailReason = "timeout"

	// ReasonConnection indicates a network connectivity failure.
	ReasonConnection FailReason = "connection"

	// ReasonServerError indicates server-side issues (HTTP 5xx).
	ReasonServerError FailReason = "server_error"

	// ReasonInvalidRequest indicates client-side issues (HTTP 400).
	ReasonInvalidRequest FailReason = "invalid_request"

	// ReasonAuth indicates authentication failure (HTTP 401, 403).
	ReasonAuth FailReason = "auth"

	// ReasonUnknown indicates an unclassified error.
	ReasonUnknown FailReason = "unknown"
)

// transientStatuses are the HTTP status codes retried by the backoff wrapper.
var transientStatuses = map[int]bool{429: true, 500: true, 502: true, 503: true}

// IsTransient reports whether the reason suggests a retry may succeed.
func (r FailReason) IsTransient() bool {
	switch r {
	case ReasonRateLimit, ReasonTimeout, ReasonConnection, ReasonServerError:
		return true
	default:
		return false
	}
}

// ProviderError is a structured error from an LLM provider. It captures the
// context needed for retry classification and debugging.
type ProviderError struct {
	Reason    FailReason
	Provider  string
	Model     string
	Status    int
	Code      string
	Message   string
	RequestID string
	Cause     error
}

// Error implements the error interface.
func (e *ProviderError) Error() string {
	parts := []string{fmt.Sprintf("[%s]", e.Reason)}
	if e.Provider != "" {
		parts = append(parts, e.Provider)
	}
	if e.Model != "" {
		parts = append(parts, "model="+e.Model)
	}
	if e.Status != 0 {
		parts = append(parts, fmt.Sprintf("status=%d", e.Status))
	}
	if e.Code != "" {
		parts = append(parts, "code="+e.Code)
	}
	if e.Message != "" {
		parts = append(parts, e.Message)
	} else if e.Cause != nil {
		parts = append(parts, e.Cause.Error())
	}
	return strings.Join(parts, " ")
}

// Unwrap exposes the underlying cause for errors.Is / errors.As.
func (e *ProviderError) Unwrap() error { return e.Cause }

// Transient reports whether this error should be retried. A server error
// that carries an HTTP status is transient only for the statuses in
// transientStatuses (500, 502, 503); other 5xx statuses are permanent.
func (e *ProviderError) Transient() bool {
	if e.Reason == ReasonServerError && e.Status != 0 {
		return transientStatuses[e.Status]
	}
	return e.Reason.IsTransient()
}

// WithStatus sets the HTTP status and derives the reason from it when the
// reason is still unknown.
func (e *ProviderError) WithStatus(status int) *ProviderError {
	e.Status = status
	if e.Reason == ReasonUnknown || e.Reason == "" {
		e.Reason = reasonForStatus(status)
	}
	return e
}

func reasonForStatus(status int) FailReason {
	switch {
	case status == 429:
		return ReasonRateLimit
	case status >= 500:
		return ReasonServerError
	case status == 401 || status == 403:
		return ReasonAuth
	case status == 400:
		return ReasonInvalidRequest
	default:
		return ReasonUnknown
	}
}

// NewProviderError wraps err with provider context, classifying timeouts and
// connection failures from the error chain.
func NewProviderError(provider, model string, err error) *ProviderError {
	reason := ReasonUnknown
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		reason = ReasonTimeout
	case isNetError(err):
		reason = ReasonConnection
	}
	return &ProviderError{
		Reason:   reason,
		Provider: provider,
		Model:    model,
		Cause:    err,
	}
}

func isNetError(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var opErr *net.OpError
	return errors.As(err, &opErr)
}

// IsTransientError reports whether err is a transient condition worth
// retrying: a classified transient ProviderError, a timeout, a connection
// error, or an error carrying a transient HTTP status.
func IsTransientError(err error) bool {
	if err == nil {
		return false
	}
	var pe *ProviderError
	if errors.As(err, &pe) {
		if pe.Transient() {
			return true
		}
		return transientStatuses[pe.Status]
	}
	if errors.Is(err, context.DeadlineExceeded) || isNetError(err) {
		return true
	}
	msg := err.Error()
	for _, marker := range []string{"429", "500", "502", "503", "rate_limit", "too many requests", "timeout", "connection reset", "connection refused"} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

// ErrorTypeName returns a short classification name for a transient error,
// recorded on the trial result for diagnostics.
func ErrorTypeName(err error) string {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return string(pe.Reason)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return string(ReasonTimeout)
	}
	if isNetError(err) {
		return string(ReasonConnection)
	}
	return "error"
}
