package client

import (
	"context"
	"time"

	"github.com/mcpwire/mcpwire/logx"
)

// RetryPredicate decides whether a failed attempt should be retried.
type RetryPredicate func(error) bool

// DefaultRetryPredicate retries everything except explicit cancellations,
// authentication/authorization failures, and circuit-open rejections (the
// breaker manages its own recovery timing).
//
// Note that JSON-RPC internal errors remain retryable under this predicate
// even though the underlying tool call may not be idempotent; callers
// invoking tools with side effects should supply their own predicate or
// disable retry per call.
func DefaultRetryPredicate(err error) bool {
	if err == nil {
		return false
	}
	if IsCancellation(err) {
		return false
	}
	if IsAuthError(err) {
		return false
	}
	if IsCircuitOpen(err) {
		return false
	}
	return true
}

// RetryConfig configures a RetryEngine.
type RetryConfig struct {
	// Backoff supplies attempt count and inter-attempt delays.
	// Defaults to NewExponentialBackoff(500ms, 3s, 3).
	Backoff BackoffStrategy

	// AttemptTimeout bounds each individual attempt, independent of the
	// caller's overall context deadline. Zero means no per-attempt bound.
	AttemptTimeout time.Duration

	// Predicate gates retryability. Defaults to DefaultRetryPredicate.
	Predicate RetryPredicate
}

// RetryEngine runs operations with backoff between attempts.
type RetryEngine struct {
	backoff        BackoffStrategy
	attemptTimeout time.Duration
	predicate      RetryPredicate
	logger         logx.Logger
}

// NewRetryEngine creates a RetryEngine, filling unset config fields with
// defaults.
func NewRetryEngine(cfg RetryConfig, logger logx.Logger) *RetryEngine {
	if cfg.Backoff == nil {
		cfg.Backoff = NewExponentialBackoff(500*time.Millisecond, 3*time.Second, 3)
	}
	if cfg.Predicate == nil {
		cfg.Predicate = DefaultRetryPredicate
	}
	if logger == nil {
		logger = logx.NewNopLogger()
	}
	return &RetryEngine{
		backoff:        cfg.Backoff,
		attemptTimeout: cfg.AttemptTimeout,
		predicate:      cfg.Predicate,
		logger:         logger,
	}
}

// Do runs op up to MaxAttempts times. Between attempts it sleeps per the
// backoff strategy; cancelling ctx aborts both the running attempt (through
// the derived attempt context) and any pending sleep without leaking the
// sleep timer. A failure on the final attempt is returned as-is, regardless
// of the predicate.
func (e *RetryEngine) Do(ctx context.Context, op func(ctx context.Context) error) error {
	maxAttempts := e.backoff.MaxAttempts()
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = e.runAttempt(ctx, op)
		if lastErr == nil {
			return nil
		}
		if attempt == maxAttempts {
			break
		}
		if !e.predicate(lastErr) {
			e.logger.Debug("error not retryable, giving up after attempt %d: %v", attempt, lastErr)
			return lastErr
		}

		delay := e.backoff.NextDelay(attempt)
		e.logger.Debug("attempt %d/%d failed, retrying in %v: %v", attempt, maxAttempts, delay, lastErr)
		if err := sleepContext(ctx, delay); err != nil {
			return err
		}
	}
	return lastErr
}

func (e *RetryEngine) runAttempt(ctx context.Context, op func(ctx context.Context) error) error {
	if e.attemptTimeout <= 0 {
		return op(ctx)
	}
	attemptCtx, cancel := context.WithTimeout(ctx, e.attemptTimeout)
	defer cancel()
	return op(attemptCtx)
}

// sleepContext sleeps for d or until ctx is done, whichever comes first. The
// timer is always stopped before returning.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
