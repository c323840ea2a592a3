package common

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Veraticus/purse/internal/service"
)

// ErrMaxRetries indicates that every delivery attempt failed.
var ErrMaxRetries = errors.New("max retries exceeded")

// PublishRetry is the backoff used for event delivery. A ledger mutation has
// already committed when its event is sent, so the budget stays short.
var PublishRetry = service.RetryOptions{
	MaxAttempts:  3,
	InitialDelay: 200 * time.Millisecond,
	MaxDelay:     2 * time.Second,
	Multiplier:   2,
}

// RetryableError marks whether a failure is worth another attempt.
type RetryableError struct {
	Err       error
	Retryable bool
}

func (e *RetryableError) Error() string {
	return e.Err.Error()
}

func (e *RetryableError) Unwrap() error {
	return e.Err
}

// WithRetry runs operation until it succeeds, returns a non-retryable error,
// runs out of attempts or ctx ends. Zero fields in opts fall back to PublishRetry.
func WithRetry(ctx context.Context, operation func() error, opts service.RetryOptions) error {
	opts = withRetryDefaults(opts)
	delay := opts.InitialDelay

	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("retry aborted before attempt %d: %w", attempt, err)
		}

		err := operation()
		if err == nil {
			return nil
		}
		if permanent(err) {
			return err
		}
		if attempt >= opts.MaxAttempts {
			return fmt.Errorf("%w after %d attempts: %w", ErrMaxRetries, attempt, err)
		}

		LogWarn("Delivery failed, backing off", Fields{
			"attempt":      attempt,
			"max_attempts": opts.MaxAttempts,
			"delay":        delay,
			"error":        err,
		})

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("retry aborted after attempt %d: %w", attempt, ctx.Err())
		case <-timer.C:
		}
		delay = nextDelay(delay, opts)
	}
}

func withRetryDefaults(opts service.RetryOptions) service.RetryOptions {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = PublishRetry.MaxAttempts
	}
	if opts.InitialDelay <= 0 {
		opts.InitialDelay = PublishRetry.InitialDelay
	}
	if opts.MaxDelay <= 0 {
		opts.MaxDelay = PublishRetry.MaxDelay
	}
	if opts.Multiplier < 1 {
		opts.Multiplier = PublishRetry.Multiplier
	}
	return opts
}

func nextDelay(delay time.Duration, opts service.RetryOptions) time.Duration {
	next := time.Duration(float64(delay) * opts.Multiplier)
	return min(next, opts.MaxDelay)
}

func permanent(err error) bool {
	var retryableErr *RetryableError
	return errors.As(err, &retryableErr) && !retryableErr.Retryable
}
