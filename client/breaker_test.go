package client

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBreaker(cfg CircuitBreakerConfig) (*CircuitBreaker, *time.Time) {
	b := NewCircuitBreaker(cfg, nil)
	current := time.Now()
	b.now = func() time.Time { return current }
	return b, &current
}

func failOp(ctx context.Context) error { return errors.New("boom") }
func okOp(ctx context.Context) error   { return nil }

func TestBreakerOpensAfterFailureThreshold(t *testing.T) {
	b, _ := newTestBreaker(CircuitBreakerConfig{FailureThreshold: 3})

	for i := 0; i < 3; i++ {
		assert.Error(t, b.Execute(context.Background(), failOp))
	}
	assert.Equal(t, CircuitOpen, b.State())
}

func TestBreakerRejectsWhileOpenWithoutInvoking(t *testing.T) {
	b, _ := newTestBreaker(CircuitBreakerConfig{FailureThreshold: 1, ResetTimeout: time.Minute})
	require.Error(t, b.Execute(context.Background(), failOp))
	require.Equal(t, CircuitOpen, b.State())

	invoked := false
	err := b.Execute(context.Background(), func(ctx context.Context) error {
		invoked = true
		return nil
	})

	assert.False(t, invoked)
	var openErr *CircuitOpenError
	require.ErrorAs(t, err, &openErr)
	assert.False(t, openErr.ResetAt.IsZero())
	assert.True(t, IsCircuitOpen(err))
}

func TestBreakerHalfOpensAfterResetTimeout(t *testing.T) {
	b, now := newTestBreaker(CircuitBreakerConfig{FailureThreshold: 1, ResetTimeout: 30 * time.Second})
	require.Error(t, b.Execute(context.Background(), failOp))
	require.Equal(t, CircuitOpen, b.State())

	*now = now.Add(30 * time.Second)
	assert.Equal(t, CircuitHalfOpen, b.State())
}

func TestBreakerHalfOpenAdmitsSingleTrial(t *testing.T) {
	b, now := newTestBreaker(CircuitBreakerConfig{FailureThreshold: 1, ResetTimeout: time.Second})
	require.Error(t, b.Execute(context.Background(), failOp))

	*now = now.Add(2 * time.Second)

	var ran atomic.Int32
	started := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- b.Execute(context.Background(), func(ctx context.Context) error {
			ran.Add(1)
			close(started)
			<-release
			return nil
		})
	}()
	<-started

	// While the trial is in flight every other caller is rejected.
	for i := 0; i < 3; i++ {
		err := b.Execute(context.Background(), func(ctx context.Context) error {
			ran.Add(1)
			return nil
		})
		assert.True(t, IsCircuitOpen(err))
	}

	close(release)
	require.NoError(t, <-done)
	assert.Equal(t, int32(1), ran.Load())
	assert.Equal(t, CircuitClosed, b.State())
}

func TestBreakerClosesOnHalfOpenSuccess(t *testing.T) {
	b, now := newTestBreaker(CircuitBreakerConfig{FailureThreshold: 1, ResetTimeout: time.Second})
	require.Error(t, b.Execute(context.Background(), failOp))

	*now = now.Add(2 * time.Second)
	require.NoError(t, b.Execute(context.Background(), okOp))
	assert.Equal(t, CircuitClosed, b.State())
}

func TestBreakerReopensOnHalfOpenFailure(t *testing.T) {
	b, now := newTestBreaker(CircuitBreakerConfig{FailureThreshold: 1, ResetTimeout: time.Second})
	require.Error(t, b.Execute(context.Background(), failOp))

	*now = now.Add(2 * time.Second)
	require.Equal(t, CircuitHalfOpen, b.State())
	require.Error(t, b.Execute(context.Background(), failOp))
	assert.Equal(t, CircuitOpen, b.State())

	// The reset timer restarted at the half-open failure.
	*now = now.Add(500 * time.Millisecond)
	assert.Equal(t, CircuitOpen, b.State())
	*now = now.Add(600 * time.Millisecond)
	assert.Equal(t, CircuitHalfOpen, b.State())
}

func TestBreakerSuccessThreshold(t *testing.T) {
	b, now := newTestBreaker(CircuitBreakerConfig{
		FailureThreshold: 1,
		SuccessThreshold: 2,
		ResetTimeout:     time.Second,
	})
	require.Error(t, b.Execute(context.Background(), failOp))

	*now = now.Add(2 * time.Second)
	require.NoError(t, b.Execute(context.Background(), okOp))
	assert.Equal(t, CircuitHalfOpen, b.State())
	require.NoError(t, b.Execute(context.Background(), okOp))
	assert.Equal(t, CircuitClosed, b.State())
}

func TestBreakerSuccessResetsFailureCount(t *testing.T) {
	b, _ := newTestBreaker(CircuitBreakerConfig{FailureThreshold: 3})

	require.Error(t, b.Execute(context.Background(), failOp))
	require.Error(t, b.Execute(context.Background(), failOp))
	require.NoError(t, b.Execute(context.Background(), okOp))

	failures, _ := b.Counters()
	assert.Equal(t, 0, failures)
	assert.Equal(t, CircuitClosed, b.State())
}

func TestBreakerStateChangeCallback(t *testing.T) {
	var transitions []string
	b, now := newTestBreaker(CircuitBreakerConfig{
		FailureThreshold: 1,
		ResetTimeout:     time.Second,
		OnStateChange: func(from, to CircuitState) {
			transitions = append(transitions, from.String()+"->"+to.String())
		},
	})

	require.Error(t, b.Execute(context.Background(), failOp))
	*now = now.Add(2 * time.Second)
	require.NoError(t, b.Execute(context.Background(), okOp))

	assert.Equal(t, []string{"closed->open", "open->half-open", "half-open->closed"}, transitions)
}

func TestBreakerOperationTimeout(t *testing.T) {
	b, _ := newTestBreaker(CircuitBreakerConfig{OperationTimeout: 10 * time.Millisecond})

	err := b.Execute(context.Background(), func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestBreakerResetAndForceOpen(t *testing.T) {
	b, _ := newTestBreaker(CircuitBreakerConfig{})

	b.ForceOpen()
	assert.Equal(t, CircuitOpen, b.State())

	b.Reset()
	assert.Equal(t, CircuitClosed, b.State())
	failures, successes := b.Counters()
	assert.Zero(t, failures)
	assert.Zero(t, successes)
}
