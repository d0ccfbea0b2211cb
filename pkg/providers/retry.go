package providers

import (
	"context"
	"time"

	"github.com/dataeval/dingomark/pkg/logger"
)

// RetryPolicy bounds how external calls are retried. Only classified
// transient failures are retried; authorization and validation failures
// surface immediately.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, BaseDelay: 500 * time.Millisecond}
}

// Retry runs fn up to MaxAttempts times with exponential backoff between
// attempts. It stops early on success, on a non-retriable failure, or when
// ctx is done.
func Retry(ctx context.Context, policy RetryPolicy, component string, fn func() error) error {
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}

	var lastErr error
	delay := policy.BaseDelay

	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}

		classified := ClassifyError(lastErr)
		if classified == nil {
			// Caller cancellation; do not mask it with a retry.
			return lastErr
		}
		if !classified.IsRetriable() || attempt == policy.MaxAttempts {
			return classified
		}

		logger.WarnCF(component, "transient failure, retrying",
			map[string]any{
				"attempt": attempt,
				"max":     policy.MaxAttempts,
				"delay":   delay.String(),
				"reason":  string(classified.Reason),
				"error":   lastErr.Error(),
			})

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}

	return lastErr
}
