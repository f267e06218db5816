package adapters

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestFailReasonIsTransient(t *testing.T) {
	transient := []FailReason{ReasonRateLimit, ReasonTimeout, ReasonConnection, ReasonServerError}
	for _, r := range transient {
		if !r.IsTransient() {
			t.Errorf("%s.IsTransient() = false, want true", r)
		}
	}
	permanent := []FailReason{ReasonAuth, ReasonInvalidRequest, ReasonUnknown}
	for _, r := range permanent {
		if r.IsTransient() {
			t.Errorf("%s.IsTransient() = true, want false", r)
		}
	}
}

func TestReasonForStatus(t *testing.T) {
	tests := []struct {
		status int
		want   FailReason
	}{
		{429, ReasonRateLimit},
		{500, ReasonServerError},
		{502, ReasonServerError},
		{503, ReasonServerError},
		{401, ReasonAuth},
		{403, ReasonAuth},
		{400, ReasonInvalidRequest},
		{418, ReasonUnknown},
	}
	for _, tt := range tests {
		pe := (&ProviderError{Reason: ReasonUnknown}).WithStatus(tt.status)
		if pe.Reason != tt.want {
			t.Errorf("WithStatus(%d) reason = %s, want %s", tt.status, pe.Reason, tt.want)
		}
	}
}

func TestIsTransientError_StatusSet(t *testing.T) {
	// The transient status set is exactly {429, 500, 502, 503}.
	for _, status := range []int{429, 500, 502, 503} {
		pe := &ProviderError{Provider: "openai", Status: status, Reason: reasonForStatus(status)}
		if !IsTransientError(pe) {
			t.Errorf("status %d not transient", status)
		}
	}
	for _, status := range []int{400, 401, 403, 404} {
		pe := &ProviderError{Provider: "openai", Status: status, Reason: reasonForStatus(status)}
		if IsTransientError(pe) {
			t.Errorf("status %d transient, want permanent", status)
		}
	}
}

func TestIsTransientError_WrappedProviderError(t *testing.T) {
	pe := &ProviderError{Reason: ReasonRateLimit, Provider: "anthropic"}
	wrapped := fmt.Errorf("trial 3: %w", pe)
	if !IsTransientError(wrapped) {
		t.Error("wrapped transient ProviderError not detected")
	}
}

func TestIsTransientError_Timeout(t *testing.T) {
	if !IsTransientError(context.DeadlineExceeded) {
		t.Error("deadline exceeded not transient")
	}
	if IsTransientError(errors.New("invalid api key")) {
		t.Error("plain permanent error classified transient")
	}
	if IsTransientError(nil) {
		t.Error("nil error classified transient")
	}
}

func TestProviderErrorMessage(t *testing.T) {
	pe := &ProviderError{
		Reason:   ReasonRateLimit,
		Provider: "openai",
		Model:    "gpt-4o",
		Status:   429,
		Code:     "rate_limit_exceeded",
		Message:  "slow down",
	}
	got := pe.Error()
	for _, part := range []string{"[rate_limit]", "openai", "model=gpt-4o", "status=429", "slow down"} {
		if !strings.Contains(got, part) {
			t.Errorf("Error() = %q missing %q", got, part)
		}
	}
}

func TestErrorTypeName(t *testing.T) {
	if got := ErrorTypeName(&ProviderError{Reason: ReasonRateLimit}); got != "rate_limit" {
		t.Errorf("ErrorTypeName(rate limit) = %q", got)
	}
	if got := ErrorTypeName(context.DeadlineExceeded); got != "timeout" {
		t.Errorf("ErrorTypeName(deadline) = %q", got)
	}
	if got := ErrorTypeName(errors.New("x")); got != "error" {
		t.Errorf("ErrorTypeName(plain) = %q", got)
	}
}

func TestNewProviderError_ClassifiesTimeout(t *testing.T) {
	pe := NewProviderError("openai", "gpt-4o", context.DeadlineExceeded)
	if pe.Reason != ReasonTimeout {
		t.Errorf("reason = %s, want timeout", pe.Reason)
	}
	if !errors.Is(pe, context.DeadlineExceeded) {
		t.Error("cause not unwrappable")
	}
}
