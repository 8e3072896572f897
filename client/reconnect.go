package client

import (
	"context"
	"sync"
	"time"

	"github.com/mcpwire/mcpwire/logx"
)

// ReconnectConfig configures a ReconnectingTransport.
type ReconnectConfig struct {
	// Retry governs (re)connect attempts. Zero-value fields get the
	// RetryEngine defaults.
	Retry RetryConfig

	// Breaker guards connect attempts so a hard-down server is not hammered.
	Breaker CircuitBreakerConfig

	// HealthCheckInterval is the period of the connectivity probe.
	// Defaults to 15s.
	HealthCheckInterval time.Duration

	// AutoReconnect controls whether a failed health check triggers a
	// reconnect. Defaults to true; set DisableAutoReconnect to turn it off.
	DisableAutoReconnect bool
}

// ReconnectingTransport wraps a single transport with retrying, circuit
// breaking, and a periodic health check that reconnects automatically when
// the underlying channel drops.
type ReconnectingTransport struct {
	factory TransportFactoryFunc
	retry   *RetryEngine
	breaker *CircuitBreaker
	emitter *EventEmitter
	logger  logx.Logger

	healthInterval time.Duration
	autoReconnect  bool

	mu        sync.Mutex
	transport Transport
	handler   ReceiveHandler
	connected bool
	closed    bool

	stopHealth chan struct{}
	healthDone chan struct{}
}

// NewReconnectingTransport creates the wrapper. The factory is invoked for
// the initial connect and for every reconnect, so transports that cannot be
// reused after Close (spawned processes, consumed streams) get a fresh
// instance each time.
func NewReconnectingTransport(cfg ReconnectConfig, factory TransportFactoryFunc, emitter *EventEmitter, logger logx.Logger) *ReconnectingTransport {
	if logger == nil {
		logger = logx.NewNopLogger()
	}
	if emitter == nil {
		emitter = NewEventEmitter(logger)
	}
	interval := cfg.HealthCheckInterval
	if interval <= 0 {
		interval = 15 * time.Second
	}
	return &ReconnectingTransport{
		factory:        factory,
		retry:          NewRetryEngine(cfg.Retry, logger),
		breaker:        NewCircuitBreaker(cfg.Breaker, logger),
		emitter:        emitter,
		logger:         logger,
		healthInterval: interval,
		autoReconnect:  !cfg.DisableAutoReconnect,
	}
}

// SetReceiveHandler implements Transport. The handler survives reconnects:
// it is re-registered on every fresh underlying transport.
func (r *ReconnectingTransport) SetReceiveHandler(handler ReceiveHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handler = handler
	if r.transport != nil {
		r.transport.SetReceiveHandler(handler)
	}
}

// Connect implements Transport. The connect attempt runs through the retry
// engine and circuit breaker.
func (r *ReconnectingTransport) Connect(ctx context.Context) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return ErrClientClosed
	}
	if r.connected {
		r.mu.Unlock()
		return ErrAlreadyConnected
	}
	r.mu.Unlock()

	if err := r.establish(ctx); err != nil {
		return err
	}

	r.mu.Lock()
	r.stopHealth = make(chan struct{})
	r.healthDone = make(chan struct{})
	stop, done := r.stopHealth, r.healthDone
	r.mu.Unlock()

	go r.healthLoop(stop, done)
	return nil
}

// establish dials a fresh underlying transport through retry + breaker.
func (r *ReconnectingTransport) establish(ctx context.Context) error {
	return r.retry.Do(ctx, func(ctx context.Context) error {
		return r.breaker.Execute(ctx, func(ctx context.Context) error {
			transport, err := r.factory()
			if err != nil {
				return err
			}

			r.mu.Lock()
			handler := r.handler
			r.mu.Unlock()
			if handler != nil {
				transport.SetReceiveHandler(handler)
			}

			if err := transport.Connect(ctx); err != nil {
				_ = transport.Close()
				return err
			}

			r.mu.Lock()
			r.transport = transport
			r.connected = true
			r.mu.Unlock()
			return nil
		})
	})
}

// Close implements Transport. Idempotent; stops the health check.
func (r *ReconnectingTransport) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	r.connected = false
	transport := r.transport
	stop, done := r.stopHealth, r.healthDone
	r.mu.Unlock()

	if stop != nil {
		close(stop)
		<-done
	}
	if transport != nil {
		return transport.Close()
	}
	return nil
}

// IsConnected implements Transport.
func (r *ReconnectingTransport) IsConnected() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.connected && r.transport != nil && r.transport.IsConnected()
}

// Send implements Transport.
func (r *ReconnectingTransport) Send(ctx context.Context, message []byte) error {
	r.mu.Lock()
	transport := r.transport
	connected := r.connected
	r.mu.Unlock()

	if !connected || transport == nil {
		return ErrNotConnected
	}
	return transport.Send(ctx, message)
}

func (r *ReconnectingTransport) healthLoop(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(r.healthInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if r.checkHealth() {
				continue
			}
			if !r.autoReconnect {
				r.logger.Warn("transport unhealthy and auto-reconnect disabled")
				continue
			}
			r.reconnect(stop)
		}
	}
}

func (r *ReconnectingTransport) checkHealth() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.transport != nil && r.transport.IsConnected()
}

func (r *ReconnectingTransport) reconnect(stop <-chan struct{}) {
	r.mu.Lock()
	old := r.transport
	r.transport = nil
	r.connected = false
	r.mu.Unlock()

	if old != nil {
		_ = old.Close()
	}

	r.emitter.Emit(Event{Type: EventReconnecting})
	r.logger.Info("transport unhealthy, reconnecting")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-stop:
			cancel()
		case <-ctx.Done():
		}
	}()

	if err := r.establish(ctx); err != nil {
		r.logger.Error("reconnect failed: %v", err)
		r.emitter.Emit(Event{Type: EventError, Err: err})
		return
	}
	r.emitter.Emit(Event{Type: EventReconnected})
}

var _ Transport = (*ReconnectingTransport)(nil)
