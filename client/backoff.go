package client

import (
	"math"
	"math/rand"
	"sync"
	"time"
)

// BackoffStrategy computes the delay before a given retry attempt.
type BackoffStrategy interface {
	// NextDelay returns the delay to sleep before attempt n (1-based, where
	// attempt 1 is the first retry after the initial failure).
	NextDelay(attempt int) time.Duration
	// MaxAttempts returns the total number of attempts allowed, including
	// the first.
	MaxAttempts() int
}

// ExponentialBackoff implements BackoffStrategy with exponentially growing
// delays. The delay for attempt n is
//
//	min(initialDelay * factor^(n-1), maxDelay)
//
// jittered by +/-(delay * jitter) and clamped to be non-negative.
type ExponentialBackoff struct {
	initialDelay time.Duration
	maxDelay     time.Duration
	factor       float64
	jitter       float64
	maxAttempts  int

	mu           sync.Mutex
	randomSource *rand.Rand
}

// NewExponentialBackoff creates an exponential backoff strategy with factor
// 2.0 and no jitter.
func NewExponentialBackoff(initialDelay, maxDelay time.Duration, maxAttempts int) *ExponentialBackoff {
	return &ExponentialBackoff{
		initialDelay: initialDelay,
		maxDelay:     maxDelay,
		factor:       2.0,
		maxAttempts:  maxAttempts,
		randomSource: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// WithFactor sets the exponential factor (default 2.0).
func (b *ExponentialBackoff) WithFactor(factor float64) *ExponentialBackoff {
	b.factor = factor
	return b
}

// WithJitter sets the jitter factor (0 disables jitter; 0.1 means +/-10%).
func (b *ExponentialBackoff) WithJitter(jitter float64) *ExponentialBackoff {
	b.jitter = jitter
	return b
}

// NextDelay implements BackoffStrategy.
func (b *ExponentialBackoff) NextDelay(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}

	delay := float64(b.initialDelay) * math.Pow(b.factor, float64(attempt-1))
	if delay > float64(b.maxDelay) {
		delay = float64(b.maxDelay)
	}

	if b.jitter > 0 {
		jitterRange := delay * b.jitter
		b.mu.Lock()
		delay += (b.randomSource.Float64()*2 - 1) * jitterRange
		b.mu.Unlock()
	}

	if delay < 0 {
		delay = 0
	}
	return time.Duration(delay)
}

// MaxAttempts implements BackoffStrategy.
func (b *ExponentialBackoff) MaxAttempts() int { return b.maxAttempts }

// ConstantBackoff implements BackoffStrategy with a fixed delay.
type ConstantBackoff struct {
	delay       time.Duration
	maxAttempts int
}

// NewConstantBackoff creates a constant backoff strategy.
func NewConstantBackoff(delay time.Duration, maxAttempts int) *ConstantBackoff {
	return &ConstantBackoff{delay: delay, maxAttempts: maxAttempts}
}

// NextDelay implements BackoffStrategy.
func (b *ConstantBackoff) NextDelay(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}
	return b.delay
}

// MaxAttempts implements BackoffStrategy.
func (b *ConstantBackoff) MaxAttempts() int { return b.maxAttempts }

// NoBackoff implements BackoffStrategy with no delay between attempts.
type NoBackoff struct {
	maxAttempts int
}

// NewNoBackoff creates a strategy that retries immediately.
func NewNoBackoff(maxAttempts int) *NoBackoff {
	return &NoBackoff{maxAttempts: maxAttempts}
}

// NextDelay implements BackoffStrategy.
func (b *NoBackoff) NextDelay(int) time.Duration { return 0 }

// MaxAttempts implements BackoffStrategy.
func (b *NoBackoff) MaxAttempts() int { return b.maxAttempts }
