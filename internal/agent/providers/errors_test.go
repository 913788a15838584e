package providers

import (
	"errors"
	"strings"
	"testing"
)

func TestClassifyError_MapsCommonPatterns(t *testing.T) {
	tests := []struct {
		msg  string
		want FailoverReason
	}{
		{"context deadline exceeded", FailoverTimeout},
		{"rate limit exceeded", FailoverRateLimit},
		{"401 unauthorized", FailoverAuth},
		{"insufficient quota", FailoverBilling},
		{"blocked by safety settings", FailoverContentFilter},
		{"model not found", FailoverModelUnavailable},
		{"502 bad gateway, internal server error", FailoverServerError},
		{"something unexpected happened", FailoverUnknown},
	}
	for _, tt := range tests {
		if got := ClassifyError(errors.New(tt.msg)); got != tt.want {
			t.Errorf("ClassifyError(%q) = %v, want %v", tt.msg, got, tt.want)
		}
	}
}

func TestClassifyError_NilReturnsUnknown(t *testing.T) {
	if got := ClassifyError(nil); got != FailoverUnknown {
		t.Errorf("ClassifyError(nil) = %v, want %v", got, FailoverUnknown)
	}
}

func TestFailoverReason_IsRetryable(t *testing.T) {
	retryable := []FailoverReason{FailoverRateLimit, FailoverTimeout, FailoverServerError}
	for _, r := range retryable {
		if !r.IsRetryable() {
			t.Errorf("%v should be retryable", r)
		}
	}
	notRetryable := []FailoverReason{FailoverBilling, FailoverAuth, FailoverUnknown}
	for _, r := range notRetryable {
		if r.IsRetryable() {
			t.Errorf("%v should not be retryable", r)
		}
	}
}

func TestProviderError_ErrorStringIncludesReasonProviderAndModel(t *testing.T) {
	err := NewProviderError("anthropic", "claude-sonnet", errors.New("rate limit exceeded"))
	msg := err.Error()
	if err.Reason != FailoverRateLimit {
		t.Errorf("Reason = %v, want %v", err.Reason, FailoverRateLimit)
	}
	for _, want := range []string{"anthropic", "model=claude-sonnet", "rate limit exceeded"} {
		if !strings.Contains(msg, want) {
			t.Errorf("Error() = %q, want it to contain %q", msg, want)
		}
	}
}

func TestProviderError_UnwrapReturnsCause(t *testing.T) {
	cause := errors.New("underlying failure")
	err := NewProviderError("openai", "gpt-4o", cause)
	if errors.Unwrap(err) != cause {
		t.Error("expected Unwrap to return the original cause")
	}
}

func TestIsRetryable_UsesProviderErrorReasonWhenAvailable(t *testing.T) {
	err := NewProviderError("openai", "gpt-4o", errors.New("unauthorized"))
	if IsRetryable(err) {
		t.Error("expected an auth ProviderError to not be retryable")
	}
	if !IsRetryable(errors.New("rate limit exceeded")) {
		t.Error("expected a raw rate-limit error to be retryable")
	}
}
