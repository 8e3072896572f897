package client

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mcpwire/mcpwire/logx"
)

// Session is one managed client connection with usage tracking.
type Session struct {
	id        string
	client    *Client
	createdAt time.Time

	mu         sync.Mutex
	lastUsedAt time.Time
}

// ID returns the session's identifier.
func (s *Session) ID() string { return s.id }

// Client returns the session's client.
func (s *Session) Client() *Client { return s.client }

// CreatedAt returns when the session was created.
func (s *Session) CreatedAt() time.Time { return s.createdAt }

// LastUsedAt returns the last access time.
func (s *Session) LastUsedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastUsedAt
}

// Touch bumps the session's last-used time.
func (s *Session) Touch() {
	s.mu.Lock()
	s.lastUsedAt = time.Now()
	s.mu.Unlock()
}

// SessionManagerConfig configures a SessionManager.
type SessionManagerConfig struct {
	// MaxSessions caps concurrent sessions. Defaults to 100.
	MaxSessions int

	// IdleTimeout is how long an unused session survives before the sweep
	// destroys it. Defaults to 30m.
	IdleTimeout time.Duration

	// SweepInterval is the period of the cleanup sweep. Defaults to 1m.
	SweepInterval time.Duration

	// DisableEviction makes CreateSession fail with ErrSessionCapacity when
	// full instead of evicting the least recently used session.
	DisableEviction bool
}

func (c *SessionManagerConfig) applyDefaults() {
	if c.MaxSessions <= 0 {
		c.MaxSessions = 100
	}
	if c.IdleTimeout <= 0 {
		c.IdleTimeout = 30 * time.Minute
	}
	if c.SweepInterval <= 0 {
		c.SweepInterval = time.Minute
	}
}

// ClientFactory builds the client for a new session. The manager connects it.
type ClientFactory func(sessionID string) (*Client, error)

// SessionManager tracks a bounded set of sessions. At capacity it first
// purges idle-expired sessions, then evicts the least recently used one; a
// background sweep destroys idle and dead sessions.
type SessionManager struct {
	config  SessionManagerConfig
	factory ClientFactory
	logger  logx.Logger
	emitter *EventEmitter

	mu       sync.Mutex
	sessions map[string]*Session
	creating int // slots reserved by in-flight CreateSession calls
	closed   bool

	sweepStop chan struct{}
	sweepDone chan struct{}
}

// NewSessionManager creates a manager and starts its cleanup sweep.
func NewSessionManager(cfg SessionManagerConfig, factory ClientFactory, logger logx.Logger) *SessionManager {
	cfg.applyDefaults()
	if logger == nil {
		logger = logx.NewNopLogger()
	}
	m := &SessionManager{
		config:    cfg,
		factory:   factory,
		logger:    logger,
		emitter:   NewEventEmitter(logger),
		sessions:  make(map[string]*Session),
		sweepStop: make(chan struct{}),
		sweepDone: make(chan struct{}),
	}
	go m.sweepLoop()
	return m
}

// Events returns the manager's event emitter.
func (m *SessionManager) Events() *EventEmitter { return m.emitter }

// CreateSession builds and connects a new session. When the manager is full
// it reclaims capacity from idle-expired sessions first, then by evicting
// the least recently used session unless eviction is disabled.
func (m *SessionManager) CreateSession(ctx context.Context) (*Session, error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, ErrManagerClosed
	}

	// Slots reserved by concurrent creations count against the cap, so the
	// manager never exceeds MaxSessions even while factories are in flight.
	var evicted *Session
	if len(m.sessions)+m.creating >= m.config.MaxSessions {
		m.purgeExpiredLocked(time.Now())
	}
	if len(m.sessions)+m.creating >= m.config.MaxSessions {
		if m.config.DisableEviction {
			m.mu.Unlock()
			return nil, ErrSessionCapacity
		}
		evicted = m.popLRULocked()
		if evicted == nil {
			// Every slot is held by an in-flight creation.
			m.mu.Unlock()
			return nil, ErrSessionCapacity
		}
	}
	m.creating++
	m.mu.Unlock()

	if evicted != nil {
		m.destroySession(evicted, EventSessionEvicted)
	}

	id := uuid.NewString()
	client, err := m.factory(id)
	if err != nil {
		m.unreserve()
		return nil, err
	}
	if err := client.Connect(ctx); err != nil {
		_ = client.Close()
		m.unreserve()
		return nil, err
	}

	now := time.Now()
	session := &Session{id: id, client: client, createdAt: now, lastUsedAt: now}

	m.mu.Lock()
	m.creating--
	if m.closed {
		m.mu.Unlock()
		_ = client.Close()
		return nil, ErrManagerClosed
	}
	m.sessions[id] = session
	m.mu.Unlock()

	m.logger.Debug("session %s created", id)
	m.emitter.Emit(Event{Type: EventSessionCreated, Data: id})
	return session, nil
}

// GetSession looks a session up by id, bumping its last-used time.
func (m *SessionManager) GetSession(id string) (*Session, error) {
	m.mu.Lock()
	session, ok := m.sessions[id]
	m.mu.Unlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	session.Touch()
	return session, nil
}

// DestroySession disconnects and removes a session.
func (m *SessionManager) DestroySession(id string) error {
	m.mu.Lock()
	session, ok := m.sessions[id]
	if ok {
		delete(m.sessions, id)
	}
	m.mu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}
	m.destroySession(session, EventSessionDestroyed)
	return nil
}

// Count returns the number of live sessions.
func (m *SessionManager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Shutdown destroys every session concurrently, swallowing per-session
// disconnect errors, and makes the manager permanently unusable.
func (m *SessionManager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	sessions := make([]*Session, 0, len(m.sessions))
	for _, session := range m.sessions {
		sessions = append(sessions, session)
	}
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	close(m.sweepStop)
	<-m.sweepDone

	done := make(chan struct{})
	var wg sync.WaitGroup
	for _, session := range sessions {
		wg.Add(1)
		go func(session *Session) {
			defer wg.Done()
			m.destroySession(session, EventSessionDestroyed)
		}(session)
	}
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *SessionManager) unreserve() {
	m.mu.Lock()
	m.creating--
	m.mu.Unlock()
}

func (m *SessionManager) destroySession(session *Session, event EventType) {
	if err := session.client.Close(); err != nil {
		m.logger.Warn("session %s close failed: %v", session.id, err)
	}
	m.logger.Debug("session %s destroyed", session.id)
	m.emitter.Emit(Event{Type: event, Data: session.id})
}

// purgeExpiredLocked removes idle-expired sessions from the map and destroys
// them in the background. Caller holds m.mu.
func (m *SessionManager) purgeExpiredLocked(now time.Time) {
	for id, session := range m.sessions {
		if now.Sub(session.LastUsedAt()) > m.config.IdleTimeout {
			delete(m.sessions, id)
			go m.destroySession(session, EventSessionEvicted)
		}
	}
}

// popLRULocked removes and returns the least recently used session.
// Caller holds m.mu.
func (m *SessionManager) popLRULocked() *Session {
	var lru *Session
	for _, session := range m.sessions {
		if lru == nil || session.LastUsedAt().Before(lru.LastUsedAt()) {
			lru = session
		}
	}
	if lru != nil {
		delete(m.sessions, lru.id)
	}
	return lru
}

func (m *SessionManager) sweepLoop() {
	defer close(m.sweepDone)
	ticker := time.NewTicker(m.config.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-m.sweepStop:
			return
		case <-ticker.C:
			m.sweep()
		}
	}
}

// sweep destroys idle-expired sessions and sessions whose client has died.
func (m *SessionManager) sweep() {
	now := time.Now()
	var doomed []*Session

	m.mu.Lock()
	for id, session := range m.sessions {
		state := session.client.State()
		dead := state == StateDisconnected || state == StateError || state == StateClosed
		if dead || now.Sub(session.LastUsedAt()) > m.config.IdleTimeout {
			delete(m.sessions, id)
			doomed = append(doomed, session)
		}
	}
	m.mu.Unlock()

	for _, session := range doomed {
		m.destroySession(session, EventSessionEvicted)
	}
}
