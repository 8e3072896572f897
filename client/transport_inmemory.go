package client

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/mcpwire/mcpwire/protocol"
)

// InMemoryTransport is a scriptable Transport for tests and embedding. Sent
// requests are answered by registered handlers; unanswered messages are
// recorded so a test can deliver responses manually and out of order.
type InMemoryTransport struct {
	mu        sync.Mutex
	connected bool
	handler   ReceiveHandler

	requestHandlers map[string]InMemoryRequestHandler
	sent            []json.RawMessage
	connectErr      error
	sendErr         error
}

// InMemoryRequestHandler produces the response for one scripted method. A nil
// return suppresses the automatic response.
type InMemoryRequestHandler func(id interface{}, params json.RawMessage) *protocol.JSONRPCResponse

// NewInMemoryTransport creates an empty in-memory transport.
func NewInMemoryTransport() *InMemoryTransport {
	return &InMemoryTransport{
		requestHandlers: make(map[string]InMemoryRequestHandler),
	}
}

// Handle registers the response handler for a method.
func (t *InMemoryTransport) Handle(method string, handler InMemoryRequestHandler) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.requestHandlers[method] = handler
}

// HandleInitialize scripts a standard successful handshake.
func (t *InMemoryTransport) HandleInitialize(info protocol.Implementation, caps protocol.ServerCapabilities) {
	t.Handle(protocol.MethodInitialize, func(id interface{}, _ json.RawMessage) *protocol.JSONRPCResponse {
		result, _ := json.Marshal(protocol.InitializeResult{
			ProtocolVersion: protocol.LatestProtocolVersion,
			Capabilities:    caps,
			ServerInfo:      info,
		})
		return &protocol.JSONRPCResponse{JSONRPC: protocol.JSONRPCVersion, ID: id, Result: result}
	})
}

// FailConnect makes the next Connect return err.
func (t *InMemoryTransport) FailConnect(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.connectErr = err
}

// FailSend makes every subsequent Send return err until cleared with nil.
func (t *InMemoryTransport) FailSend(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sendErr = err
}

// Sent returns a copy of every message sent so far.
func (t *InMemoryTransport) Sent() []json.RawMessage {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]json.RawMessage, len(t.sent))
	copy(out, t.sent)
	return out
}

// SentMethods returns the method names of all sent requests/notifications,
// in send order.
func (t *InMemoryTransport) SentMethods() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	var methods []string
	for _, raw := range t.sent {
		var probe struct {
			Method string `json:"method"`
		}
		if err := json.Unmarshal(raw, &probe); err == nil && probe.Method != "" {
			methods = append(methods, probe.Method)
		}
	}
	return methods
}

// Deliver injects a raw inbound message, as if the server had pushed it.
func (t *InMemoryTransport) Deliver(message []byte) {
	t.mu.Lock()
	handler := t.handler
	t.mu.Unlock()
	if handler != nil {
		handler(message)
	}
}

// DeliverNotification injects a server notification.
func (t *InMemoryTransport) DeliverNotification(method string, params interface{}) {
	raw, _ := json.Marshal(protocol.NewNotification(method, params))
	t.Deliver(raw)
}

// DeliverResponse injects a response for the given request id.
func (t *InMemoryTransport) DeliverResponse(resp *protocol.JSONRPCResponse) {
	raw, _ := json.Marshal(resp)
	t.Deliver(raw)
}

// Connect implements Transport.
func (t *InMemoryTransport) Connect(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.connectErr != nil {
		err := t.connectErr
		return err
	}
	t.connected = true
	return nil
}

// Close implements Transport.
func (t *InMemoryTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.connected = false
	return nil
}

// IsConnected implements Transport.
func (t *InMemoryTransport) IsConnected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.connected
}

// SetReceiveHandler implements Transport.
func (t *InMemoryTransport) SetReceiveHandler(handler ReceiveHandler) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.handler = handler
}

// Send implements Transport. Requests matching a scripted handler are
// answered synchronously on the caller's goroutine.
func (t *InMemoryTransport) Send(ctx context.Context, message []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	t.mu.Lock()
	if !t.connected {
		t.mu.Unlock()
		return ErrNotConnected
	}
	if t.sendErr != nil {
		err := t.sendErr
		t.mu.Unlock()
		return err
	}
	t.sent = append(t.sent, append(json.RawMessage{}, message...))
	receive := t.handler
	t.mu.Unlock()

	parsed, err := protocol.ParseMessage(message)
	if err != nil || parsed.Type != protocol.MessageRequest {
		return nil
	}

	t.mu.Lock()
	scripted := t.requestHandlers[parsed.Method]
	t.mu.Unlock()
	if scripted == nil || receive == nil {
		return nil
	}
	if resp := scripted(parsed.ID, parsed.Params); resp != nil {
		raw, _ := json.Marshal(resp)
		receive(raw)
	}
	return nil
}

var _ Transport = (*InMemoryTransport)(nil)
