package monitoring

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// transientError marks a webhook failure worth retrying.
type transientError struct {
	err error
}

func (e *transientError) Error() string { return e.err.Error() }
func (e *transientError) Unwrap() error { return e.err }

func isTransient(err error) bool {
	var te *transientError
	return errors.As(err, &te)
}

// retryableStatus reports whether a webhook response status is worth another attempt.
func retryableStatus(code int) bool {
	switch code {
	case http.StatusTooManyRequests, http.StatusBadGateway,
		http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return code >= 500 && code != http.StatusNotImplemented
}

// retryPolicy retries transient failures with doubling backoff.
type retryPolicy struct {
	attempts   int
	backoff    time.Duration
	maxBackoff time.Duration
}

var defaultRetryPolicy = retryPolicy{
	attempts:   3,
	backoff:    500 * time.Millisecond,
	maxBackoff: 5 * time.Second,
}

func (p retryPolicy) do(ctx context.Context, fn func(context.Context) error) error {
	attempts := max(p.attempts, 1)
	wait := p.backoff

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = fn(ctx); err == nil || !isTransient(err) {
			return err
		}
		if attempt == attempts {
			break
		}

		zap.L().Debug("monitoring: retrying webhook",
			zap.Int("attempt", attempt),
			zap.Duration("backoff", wait),
			zap.Error(err),
		)

		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
		wait = min(wait*2, p.maxBackoff)
	}
	return err
}
