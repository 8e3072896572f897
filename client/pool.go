package client

import (
	"context"
	"sync"
	"time"

	"github.com/mcpwire/mcpwire/logx"
)

// TransportFactoryFunc creates a fresh, unconnected transport for the pool.
type TransportFactoryFunc func() (Transport, error)

// PoolConfig configures a TransportPool.
type PoolConfig struct {
	// MinConnections is the floor the health sweep replenishes down to.
	// Defaults to 0.
	MinConnections int

	// MaxConnections is the hard cap on pooled transports. Defaults to 5.
	MaxConnections int

	// AcquireTimeout bounds how long Acquire waits for a free entry once the
	// pool is at capacity. Defaults to 30s.
	AcquireTimeout time.Duration

	// IdleTimeout is how long an unused entry may sit idle before the sweep
	// removes it (never going below MinConnections). Defaults to 5m.
	IdleTimeout time.Duration

	// HealthCheckInterval is the sweep period. Defaults to 30s.
	HealthCheckInterval time.Duration

	// UnhealthyThreshold is the number of consecutive failed health checks
	// after which an entry is removed. Defaults to 2.
	UnhealthyThreshold int

	// ConnectTimeout bounds the connect of a newly created entry.
	// Defaults to 10s.
	ConnectTimeout time.Duration
}

func (c *PoolConfig) applyDefaults() {
	if c.MaxConnections <= 0 {
		c.MaxConnections = 5
	}
	if c.MinConnections < 0 {
		c.MinConnections = 0
	}
	if c.MinConnections > c.MaxConnections {
		c.MinConnections = c.MaxConnections
	}
	if c.AcquireTimeout <= 0 {
		c.AcquireTimeout = 30 * time.Second
	}
	if c.IdleTimeout <= 0 {
		c.IdleTimeout = 5 * time.Minute
	}
	if c.HealthCheckInterval <= 0 {
		c.HealthCheckInterval = 30 * time.Second
	}
	if c.UnhealthyThreshold <= 0 {
		c.UnhealthyThreshold = 2
	}
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = 10 * time.Second
	}
}

// PoolEntry is one pooled transport. Entries are owned exclusively by the
// pool; callers hold one between Acquire and Release.
type PoolEntry struct {
	transport  Transport
	inUse      bool
	lastUsedAt time.Time
	unhealthy  int
}

// Transport returns the entry's transport.
func (e *PoolEntry) Transport() Transport { return e.transport }

type poolWaiter struct {
	ch        chan *PoolEntry
	abandoned bool
}

// TransportPool maintains a bounded set of connected transports with
// acquire/release semantics and a FIFO wait queue.
type TransportPool struct {
	config  PoolConfig
	factory TransportFactoryFunc
	logger  logx.Logger

	mu       sync.Mutex
	entries  []*PoolEntry
	waiters  []*poolWaiter
	creating int
	closed   bool

	sweepStop chan struct{}
	sweepDone chan struct{}
}

// NewTransportPool creates a pool and starts its health-check sweep. Entries
// are created lazily; the first sweep replenishes up to MinConnections.
func NewTransportPool(cfg PoolConfig, factory TransportFactoryFunc, logger logx.Logger) *TransportPool {
	cfg.applyDefaults()
	if logger == nil {
		logger = logx.NewNopLogger()
	}
	p := &TransportPool{
		config:    cfg,
		factory:   factory,
		logger:    logger,
		sweepStop: make(chan struct{}),
		sweepDone: make(chan struct{}),
	}
	go p.sweepLoop()
	return p
}

// Acquire returns a healthy pooled transport, creating one if the pool is
// under MaxConnections, otherwise waiting (FIFO) for a release until the
// acquire timeout or ctx cancellation.
func (p *TransportPool) Acquire(ctx context.Context) (*PoolEntry, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, ErrPoolClosed
	}

	// Prefer an idle healthy entry.
	for _, entry := range p.entries {
		if !entry.inUse && entry.transport.IsConnected() {
			entry.inUse = true
			entry.lastUsedAt = time.Now()
			p.mu.Unlock()
			return entry, nil
		}
	}

	// Under the cap: create a new entry. The slot is reserved before
	// dropping the lock so concurrent acquirers cannot overshoot the max.
	if len(p.entries)+p.creating < p.config.MaxConnections {
		p.creating++
		p.mu.Unlock()

		entry, err := p.createEntry(ctx)

		p.mu.Lock()
		p.creating--
		if err != nil {
			p.mu.Unlock()
			return nil, err
		}
		if p.closed {
			p.mu.Unlock()
			_ = entry.transport.Close()
			return nil, ErrPoolClosed
		}
		entry.inUse = true
		entry.lastUsedAt = time.Now()
		p.entries = append(p.entries, entry)
		p.mu.Unlock()
		return entry, nil
	}

	// At capacity: queue up.
	waiter := &poolWaiter{ch: make(chan *PoolEntry, 1)}
	p.waiters = append(p.waiters, waiter)
	p.mu.Unlock()

	timer := time.NewTimer(p.config.AcquireTimeout)
	defer timer.Stop()

	select {
	case entry, ok := <-waiter.ch:
		if !ok {
			return nil, ErrPoolClosed
		}
		return entry, nil
	case <-ctx.Done():
		p.abandonWaiter(waiter)
		return nil, ctx.Err()
	case <-timer.C:
		p.abandonWaiter(waiter)
		return nil, ErrAcquireTimeout
	}
}

// abandonWaiter removes a timed-out or cancelled waiter. If an entry was
// handed over concurrently, it is returned to the pool.
func (p *TransportPool) abandonWaiter(waiter *poolWaiter) {
	p.mu.Lock()
	for i, w := range p.waiters {
		if w == waiter {
			p.waiters = append(p.waiters[:i], p.waiters[i+1:]...)
			p.mu.Unlock()
			return
		}
	}
	waiter.abandoned = true
	p.mu.Unlock()

	select {
	case entry, ok := <-waiter.ch:
		if ok {
			p.Release(entry)
		}
	default:
	}
}

// Release returns an entry to the pool. If anyone is waiting, the entry is
// handed directly to the longest-waiting acquirer.
func (p *TransportPool) Release(entry *PoolEntry) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		_ = entry.transport.Close()
		return
	}

	entry.lastUsedAt = time.Now()

	for len(p.waiters) > 0 {
		waiter := p.waiters[0]
		p.waiters = p.waiters[1:]
		if waiter.abandoned {
			continue
		}
		// Entry stays in-use across the handoff.
		waiter.ch <- entry
		p.mu.Unlock()
		return
	}

	entry.inUse = false
	p.mu.Unlock()
}

// Size returns the number of pooled entries.
func (p *TransportPool) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.entries)
}

// Close rejects all waiters, closes every entry, and makes the pool
// permanently unusable.
func (p *TransportPool) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	waiters := p.waiters
	p.waiters = nil
	entries := p.entries
	p.entries = nil
	p.mu.Unlock()

	close(p.sweepStop)
	<-p.sweepDone

	for _, waiter := range waiters {
		close(waiter.ch)
	}
	for _, entry := range entries {
		if err := entry.transport.Close(); err != nil {
			p.logger.Warn("failed to close pooled transport: %v", err)
		}
	}
	return nil
}

func (p *TransportPool) createEntry(ctx context.Context) (*PoolEntry, error) {
	transport, err := p.factory()
	if err != nil {
		return nil, err
	}
	connectCtx, cancel := context.WithTimeout(ctx, p.config.ConnectTimeout)
	defer cancel()
	if err := transport.Connect(connectCtx); err != nil {
		_ = transport.Close()
		return nil, err
	}
	return &PoolEntry{transport: transport, lastUsedAt: time.Now()}, nil
}

func (p *TransportPool) sweepLoop() {
	defer close(p.sweepDone)
	ticker := time.NewTicker(p.config.HealthCheckInterval)
	defer ticker.Stop()
	for {
		select {
		case <-p.sweepStop:
			return
		case <-ticker.C:
			p.sweep()
		}
	}
}

// sweep removes idle-beyond-threshold and repeatedly-unhealthy entries, then
// replenishes the pool back up to MinConnections.
func (p *TransportPool) sweep() {
	now := time.Now()
	var toClose []*PoolEntry

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	kept := p.entries[:0]
	for _, entry := range p.entries {
		if entry.inUse {
			kept = append(kept, entry)
			continue
		}
		if !entry.transport.IsConnected() {
			entry.unhealthy++
		} else {
			entry.unhealthy = 0
		}
		idleTooLong := now.Sub(entry.lastUsedAt) > p.config.IdleTimeout &&
			len(kept)+1 > p.config.MinConnections
		if entry.unhealthy >= p.config.UnhealthyThreshold || idleTooLong {
			toClose = append(toClose, entry)
			continue
		}
		kept = append(kept, entry)
	}
	p.entries = kept
	deficit := p.config.MinConnections - len(p.entries) - p.creating
	if deficit > 0 {
		p.creating += deficit
	}
	p.mu.Unlock()

	for _, entry := range toClose {
		p.logger.Debug("removing pooled transport (unhealthy=%d)", entry.unhealthy)
		_ = entry.transport.Close()
	}

	for i := 0; i < deficit; i++ {
		entry, err := p.createEntry(context.Background())
		p.mu.Lock()
		p.creating--
		if err != nil {
			p.mu.Unlock()
			p.logger.Warn("failed to replenish pool: %v", err)
			continue
		}
		if p.closed {
			p.mu.Unlock()
			_ = entry.transport.Close()
			return
		}
		p.entries = append(p.entries, entry)
		p.mu.Unlock()
	}
}
