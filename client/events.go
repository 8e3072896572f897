package client

import (
	"sync"

	"github.com/mcpwire/mcpwire/logx"
)

// EventType identifies a lifecycle event published on the EventEmitter.
type EventType string

const (
	EventConnected    EventType = "connected"
	EventDisconnected EventType = "disconnected"
	EventError        EventType = "error"
	EventReconnecting EventType = "reconnecting"
	EventReconnected  EventType = "reconnected"

	EventToolsListChanged     EventType = "tools_list_changed"
	EventResourcesListChanged EventType = "resources_list_changed"
	EventPromptsListChanged   EventType = "prompts_list_changed"
	EventResourceUpdated      EventType = "resource_updated"

	EventToolCallStarted   EventType = "tool_call_started"
	EventToolCallSucceeded EventType = "tool_call_succeeded"
	EventToolCallFailed    EventType = "tool_call_failed"

	EventCircuitStateChanged EventType = "circuit_state_changed"

	EventSessionCreated   EventType = "session_created"
	EventSessionDestroyed EventType = "session_destroyed"
	EventSessionEvicted   EventType = "session_evicted"
)

// Event is a single published event. Data is event-specific and may be nil.
type Event struct {
	Type EventType
	Data interface{}
	Err  error
}

// EventHandler consumes events. Handlers run on the emitting goroutine and
// should return quickly.
type EventHandler func(Event)

// EventEmitter is a typed publish/subscribe bus. Each dispatch is isolated:
// a panicking listener cannot prevent the remaining listeners from running.
type EventEmitter struct {
	mu       sync.RWMutex
	nextID   int
	handlers map[EventType]map[int]EventHandler
	logger   logx.Logger
}

// NewEventEmitter creates an empty emitter. A nil logger defaults to the
// no-op logger.
func NewEventEmitter(logger logx.Logger) *EventEmitter {
	if logger == nil {
		logger = logx.NewNopLogger()
	}
	return &EventEmitter{
		handlers: make(map[EventType]map[int]EventHandler),
		logger:   logger,
	}
}

// On registers a handler for the given event type and returns a function
// that removes exactly that registration.
func (e *EventEmitter) On(eventType EventType, handler EventHandler) (unsubscribe func()) {
	e.mu.Lock()
	defer e.mu.Unlock()

	id := e.nextID
	e.nextID++
	if e.handlers[eventType] == nil {
		e.handlers[eventType] = make(map[int]EventHandler)
	}
	e.handlers[eventType][id] = handler

	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		delete(e.handlers[eventType], id)
	}
}

// Once registers a handler that fires at most once.
func (e *EventEmitter) Once(eventType EventType, handler EventHandler) (unsubscribe func()) {
	var once sync.Once
	var remove func()
	remove = e.On(eventType, func(ev Event) {
		once.Do(func() {
			remove()
			handler(ev)
		})
	})
	return remove
}

// Emit publishes an event to every registered handler for its type.
func (e *EventEmitter) Emit(event Event) {
	e.mu.RLock()
	registered := e.handlers[event.Type]
	handlers := make([]EventHandler, 0, len(registered))
	for _, h := range registered {
		handlers = append(handlers, h)
	}
	e.mu.RUnlock()

	for _, handler := range handlers {
		e.dispatch(handler, event)
	}
}

func (e *EventEmitter) dispatch(handler EventHandler, event Event) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("event handler for %s panicked: %v", event.Type, r)
		}
	}()
	handler(event)
}

// ListenerCount returns the number of handlers registered for an event type.
func (e *EventEmitter) ListenerCount(eventType EventType) int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.handlers[eventType])
}

// RemoveAll drops every registered handler.
func (e *EventEmitter) RemoveAll() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.handlers = make(map[EventType]map[int]EventHandler)
}
