package client

import (
	"context"
	"sync"
	"time"

	"github.com/mcpwire/mcpwire/logx"
)

// CircuitState is the current state of a CircuitBreaker.
type CircuitState int

const (
	// CircuitClosed admits all operations.
	CircuitClosed CircuitState = iota
	// CircuitOpen rejects all operations until the reset timeout elapses.
	CircuitOpen
	// CircuitHalfOpen admits a single trial operation at a time.
	CircuitHalfOpen
)

// String returns the state name.
func (s CircuitState) String() string {
	switch s {
	case CircuitClosed:
		return "closed"
	case CircuitOpen:
		return "open"
	case CircuitHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// CircuitTransition is the payload of a circuit state-change event.
type CircuitTransition struct {
	From CircuitState
	To   CircuitState
}

// CircuitBreakerConfig configures a CircuitBreaker.
type CircuitBreakerConfig struct {
	// FailureThreshold is the number of consecutive failures that opens the
	// circuit. Defaults to 5.
	FailureThreshold int

	// SuccessThreshold is the number of consecutive half-open successes that
	// closes the circuit. Defaults to 1.
	SuccessThreshold int

	// ResetTimeout is how long the circuit stays open before admitting a
	// trial call. Defaults to 30s.
	ResetTimeout time.Duration

	// OperationTimeout bounds every operation executed through the breaker.
	// Zero means no bound.
	OperationTimeout time.Duration

	// OnStateChange, if set, is invoked after every state transition.
	OnStateChange func(from, to CircuitState)
}

// CircuitBreaker is a three-state failure-isolation gate guarding an async
// operation. The open-to-half-open transition is taken lazily by the first
// call arriving at or after the reset time, so no timer can leak.
type CircuitBreaker struct {
	mu sync.Mutex

	state                CircuitState
	consecutiveFailures  int
	consecutiveSuccesses int
	halfOpenInFlight     int
	lastStateChange      time.Time
	openedAt             time.Time

	failureThreshold int
	successThreshold int
	resetTimeout     time.Duration
	opTimeout        time.Duration
	onStateChange    func(from, to CircuitState)

	logger logx.Logger
	now    func() time.Time // stubbed in tests
}

// NewCircuitBreaker creates a closed CircuitBreaker, filling unset config
// fields with defaults.
func NewCircuitBreaker(cfg CircuitBreakerConfig, logger logx.Logger) *CircuitBreaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.SuccessThreshold <= 0 {
		cfg.SuccessThreshold = 1
	}
	if cfg.ResetTimeout <= 0 {
		cfg.ResetTimeout = 30 * time.Second
	}
	if logger == nil {
		logger = logx.NewNopLogger()
	}
	return &CircuitBreaker{
		state:            CircuitClosed,
		failureThreshold: cfg.FailureThreshold,
		successThreshold: cfg.SuccessThreshold,
		resetTimeout:     cfg.ResetTimeout,
		opTimeout:        cfg.OperationTimeout,
		onStateChange:    cfg.OnStateChange,
		logger:           logger,
		now:              time.Now,
		lastStateChange:  time.Now(),
	}
}

// State returns the current state, applying the lazy open-to-half-open
// transition if the reset time has elapsed.
func (b *CircuitBreaker) State() CircuitState {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.maybeHalfOpenLocked()
	return b.state
}

// Counters returns the consecutive failure and success counts.
func (b *CircuitBreaker) Counters() (failures, successes int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.consecutiveFailures, b.consecutiveSuccesses
}

// Execute runs op through the breaker. While open it returns a
// *CircuitOpenError carrying the computed reset time without invoking op.
// Half-open admits exactly one trial call; concurrent callers are rejected
// until the trial settles.
func (b *CircuitBreaker) Execute(ctx context.Context, op func(ctx context.Context) error) error {
	trial, err := b.beforeCall()
	if err != nil {
		return err
	}

	if b.opTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.opTimeout)
		defer cancel()
	}

	err = op(ctx)
	b.afterCall(err, trial)
	return err
}

// Reset manually closes the circuit and clears all counters.
func (b *CircuitBreaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.transitionLocked(CircuitClosed)
	b.consecutiveFailures = 0
	b.consecutiveSuccesses = 0
}

// ForceOpen manually opens the circuit. The reset timer starts now.
func (b *CircuitBreaker) ForceOpen() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.openedAt = b.now()
	b.transitionLocked(CircuitOpen)
}

func (b *CircuitBreaker) beforeCall() (trial bool, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.maybeHalfOpenLocked()
	switch b.state {
	case CircuitOpen:
		return false, &CircuitOpenError{ResetAt: b.openedAt.Add(b.resetTimeout)}
	case CircuitHalfOpen:
		if b.halfOpenInFlight > 0 {
			return false, &CircuitOpenError{ResetAt: b.openedAt.Add(b.resetTimeout)}
		}
		b.halfOpenInFlight++
		return true, nil
	}
	return false, nil
}

func (b *CircuitBreaker) afterCall(err error, trial bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if trial && b.halfOpenInFlight > 0 {
		b.halfOpenInFlight--
	}

	if err != nil {
		b.consecutiveSuccesses = 0
		b.consecutiveFailures++
		switch b.state {
		case CircuitHalfOpen:
			// Any half-open failure reopens immediately and restarts the
			// reset timer.
			b.openedAt = b.now()
			b.transitionLocked(CircuitOpen)
		case CircuitClosed:
			if b.consecutiveFailures >= b.failureThreshold {
				b.openedAt = b.now()
				b.transitionLocked(CircuitOpen)
			}
		}
		return
	}

	b.consecutiveFailures = 0
	b.consecutiveSuccesses++
	if b.state == CircuitHalfOpen && b.consecutiveSuccesses >= b.successThreshold {
		b.transitionLocked(CircuitClosed)
		b.consecutiveSuccesses = 0
	}
}

// maybeHalfOpenLocked applies the open-to-half-open transition once the reset
// time has elapsed. Callers must hold b.mu.
func (b *CircuitBreaker) maybeHalfOpenLocked() {
	if b.state == CircuitOpen && !b.now().Before(b.openedAt.Add(b.resetTimeout)) {
		b.transitionLocked(CircuitHalfOpen)
		b.consecutiveSuccesses = 0
		b.halfOpenInFlight = 0
	}
}

func (b *CircuitBreaker) transitionLocked(to CircuitState) {
	if b.state == to {
		return
	}
	from := b.state
	b.state = to
	b.lastStateChange = b.now()
	b.logger.Info("circuit breaker %s -> %s", from, to)
	if b.onStateChange != nil {
		b.onStateChange(from, to)
	}
}
