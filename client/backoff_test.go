package client

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestExponentialBackoffGrowth(t *testing.T) {
	b := NewExponentialBackoff(100*time.Millisecond, 10*time.Second, 5)

	assert.Equal(t, 100*time.Millisecond, b.NextDelay(1))
	assert.Equal(t, 200*time.Millisecond, b.NextDelay(2))
	assert.Equal(t, 400*time.Millisecond, b.NextDelay(3))
	assert.Equal(t, 800*time.Millisecond, b.NextDelay(4))
}

func TestExponentialBackoffCapsAtMaxDelay(t *testing.T) {
	b := NewExponentialBackoff(1*time.Second, 3*time.Second, 10)

	assert.Equal(t, 3*time.Second, b.NextDelay(5))
	assert.Equal(t, 3*time.Second, b.NextDelay(20))
}

func TestExponentialBackoffJitterStaysInRange(t *testing.T) {
	b := NewExponentialBackoff(1*time.Second, 10*time.Second, 5).WithJitter(0.2)

	// +/-20% around the 1s base.
	for i := 0; i < 100; i++ {
		d := b.NextDelay(1)
		assert.GreaterOrEqual(t, d, 800*time.Millisecond)
		assert.LessOrEqual(t, d, 1200*time.Millisecond)
	}
}

func TestExponentialBackoffJitterUsesFullRange(t *testing.T) {
	b := NewExponentialBackoff(1*time.Second, 10*time.Second, 5).WithJitter(0.2)

	// Over many samples the deviation should exceed half the jitter range in
	// both directions.
	var sawHigh, sawLow bool
	for i := 0; i < 1000; i++ {
		d := b.NextDelay(1)
		if d > 1100*time.Millisecond {
			sawHigh = true
		}
		if d < 900*time.Millisecond {
			sawLow = true
		}
	}
	assert.True(t, sawHigh, "no sample above +10%")
	assert.True(t, sawLow, "no sample below -10%")
}

func TestExponentialBackoffCustomFactor(t *testing.T) {
	b := NewExponentialBackoff(100*time.Millisecond, time.Minute, 5).WithFactor(3.0)

	assert.Equal(t, 100*time.Millisecond, b.NextDelay(1))
	assert.Equal(t, 300*time.Millisecond, b.NextDelay(2))
	assert.Equal(t, 900*time.Millisecond, b.NextDelay(3))
}

func TestExponentialBackoffNonPositiveAttempt(t *testing.T) {
	b := NewExponentialBackoff(time.Second, time.Minute, 3)

	assert.Equal(t, time.Duration(0), b.NextDelay(0))
	assert.Equal(t, time.Duration(0), b.NextDelay(-1))
}

func TestConstantBackoff(t *testing.T) {
	b := NewConstantBackoff(250*time.Millisecond, 4)

	assert.Equal(t, 250*time.Millisecond, b.NextDelay(1))
	assert.Equal(t, 250*time.Millisecond, b.NextDelay(7))
	assert.Equal(t, 4, b.MaxAttempts())
}

func TestNoBackoff(t *testing.T) {
	b := NewNoBackoff(2)

	assert.Equal(t, time.Duration(0), b.NextDelay(1))
	assert.Equal(t, 2, b.MaxAttempts())
}
