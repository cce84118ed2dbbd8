package retry

import (
	"context"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const (
	DefaultMaxAttempts = 3
	DefaultBaseDelay   = time.Second
	DefaultTimeout     = 30 * time.Second
)

// Retrier reruns transient failures with exponential backoff and a bounded
// per-attempt deadline. One instance replaces the ad hoc retry loops that
// would otherwise grow around every storage and network call site.
type Retrier struct {
	maxAttempts int
	baseDelay   time.Duration
	timeout     time.Duration
	logger      *slog.Logger
}

// New builds a Retrier; non-positive arguments fall back to defaults.
func New(maxAttempts int, baseDelay, timeout time.Duration, logger *slog.Logger) Retrier {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	if baseDelay <= 0 {
		baseDelay = DefaultBaseDelay
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return Retrier{
		maxAttempts: maxAttempts,
		baseDelay:   baseDelay,
		timeout:     timeout,
		logger:      logger,
	}
}

// Do runs fn under a per-attempt timeout, retrying while retryable(err)
// holds, doubling the delay between attempts. A nil retryable treats every
// failure as transient. The last observed error is returned once attempts
// are exhausted.
func (r Retrier) Do(ctx context.Context, name string, retryable func(error) bool, fn func(ctx context.Context) error) error {
	attempt := 0
	op := func() error {
		attempt++
		attemptCtx, cancel := context.WithTimeout(ctx, r.timeout)
		defer cancel()

		err := fn(attemptCtx)
		if err == nil {
			return nil
		}
		if retryable != nil && !retryable(err) {
			return backoff.Permanent(err)
		}
		if r.logger != nil && attempt < r.maxAttempts {
			r.logger.Warn("transient failure, retrying", "op", name, "attempt", attempt, "error", err)
		}
		return err
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = r.baseDelay
	policy.Multiplier = 2
	policy.RandomizationFactor = 0
	policy.MaxElapsedTime = 0

	return backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(policy, uint64(r.maxAttempts-1)), ctx))
}
