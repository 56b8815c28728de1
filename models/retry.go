package models

import (
	"context"
	"errors"
	"time"
)

// RetryPolicy governs retries for outbound HTTP calls. The delay grows
// linearly with the attempt number. It is meant for idempotent requests
// (persona fetches); chat turns are never retried automatically.
type RetryPolicy struct {
	MaxAttempts    int
	BaseDelay      time.Duration
	RetryPredicate func(error) bool
}

// DefaultRetryPolicy retries transient failures up to 3 times. ChatErrors
// that are not retryable (validation, not-found) fail immediately.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		BaseDelay:   time.Second,
		RetryPredicate: func(err error) bool {
			var ce *ChatError
			if errors.As(err, &ce) {
				return ce.Retryable() || ce.Code == CodeStreamTransport
			}
			return true
		},
	}
}

// Do runs op until it succeeds, the predicate rejects the error, or the
// attempts are exhausted. The last error is returned.
func (p RetryPolicy) Do(ctx context.Context, op func() error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if p.RetryPredicate != nil && !p.RetryPredicate(lastErr) {
			return lastErr
		}
		if attempt == attempts {
			break
		}

		select {
		case <-time.After(p.BaseDelay * time.Duration(attempt)):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return lastErr
}
