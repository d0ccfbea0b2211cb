package providers

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// FailureReason classifies an external API error. The classes mirror what
// the service can act on: transient failures are retried, everything else
// surfaces to the caller unchanged.
type FailureReason string

const (
	ReasonRateLimited  FailureReason = "rate_limited"
	ReasonUnauthorized FailureReason = "unauthorized"
	ReasonBilling      FailureReason = "billing"
	ReasonNotFound     FailureReason = "not_found"
	ReasonTransient    FailureReason = "transient_network"
	ReasonMalformed    FailureReason = "malformed_response"
	ReasonUnknown      FailureReason = "unknown"
)

// ProviderError is a classified external-API failure.
type ProviderError struct {
	Reason  FailureReason
	Wrapped error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider error (%s): %v", e.Reason, e.Wrapped)
}

func (e *ProviderError) Unwrap() error {
	return e.Wrapped
}

// IsRetriable reports whether the failure class is worth retrying with
// backoff. Authorization, billing, not-found and malformed-request failures
// never are.
func (e *ProviderError) IsRetriable() bool {
	switch e.Reason {
	case ReasonTransient, ReasonRateLimited:
		return true
	default:
		return false
	}
}

var statusCodeRe = regexp.MustCompile(`(?:status(?:ProviderError| code)?[:=\s]+|HTTP )(\d{3})`)

// ClassifyError maps a raw error from an LLM or GitHub call to a
// ProviderError. Returns nil for nil errors and for context.Canceled
// (a user abort is not a provider failure).
func ClassifyError(err error) *ProviderError {
	if err == nil || errors.Is(err, context.Canceled) {
		return nil
	}

	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return &ProviderError{Reason: ReasonTransient, Wrapped: err}
	}

	msg := strings.ToLower(err.Error())

	if m := statusCodeRe.FindStringSubmatch(err.Error()); m != nil {
		return &ProviderError{Reason: reasonForStatus(m[1]), Wrapped: err}
	}

	switch {
	case containsAny(msg,
		"rate limit", "rate_limit", "too many requests", "quota exceeded",
		"exceeded your current quota", "resource_exhausted", "resource has been exhausted",
		"usage limit"):
		return &ProviderError{Reason: ReasonRateLimited, Wrapped: err}
	case containsAny(msg, "overloaded", "service unavailable", "bad gateway",
		"connection reset", "connection refused", "timeout", "timed out",
		"temporarily unavailable", "eof"):
		return &ProviderError{Reason: ReasonTransient, Wrapped: err}
	case containsAny(msg, "unauthorized", "invalid api key", "invalid x-api-key",
		"authentication", "permission denied", "forbidden", "invalid token"):
		return &ProviderError{Reason: ReasonUnauthorized, Wrapped: err}
	case containsAny(msg, "billing", "payment required", "insufficient credit",
		"insufficient balance", "plan limit"):
		return &ProviderError{Reason: ReasonBilling, Wrapped: err}
	case containsAny(msg, "not found", "no such", "unknown model", "model_not_found"):
		return &ProviderError{Reason: ReasonNotFound, Wrapped: err}
	case containsAny(msg, "malformed", "invalid json", "unexpected end of json",
		"failed to parse", "invalid request", "no choices"):
		return &ProviderError{Reason: ReasonMalformed, Wrapped: err}
	}

	return &ProviderError{Reason: ReasonUnknown, Wrapped: err}
}

func reasonForStatus(code string) FailureReason {
	switch code {
	case "401", "403":
		return ReasonUnauthorized
	case "402":
		return ReasonBilling
	case "404":
		return ReasonNotFound
	case "408", "429":
		if code == "429" {
			return ReasonRateLimited
		}
		return ReasonTransient
	case "400", "422":
		return ReasonMalformed
	default:
		if strings.HasPrefix(code, "5") {
			return ReasonTransient
		}
		return ReasonUnknown
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
