package crew

import (
	"fmt"
	"time"
)

// ValidationError marks a request that failed validation before any task
// was created or any external call made. Never retried.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// TimeoutError reports an invocation that exceeded its time bound.
type TimeoutError struct {
	Op    string
	Limit time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s timed out after %s", e.Op, e.Limit)
}

// MissingParameterError names a template placeholder no parameter covered.
type MissingParameterError struct {
	Key string
}

func (e *MissingParameterError) Error() string {
	return fmt.Sprintf("missing template parameter %q", e.Key)
}
