package client

import (
	"context"
	"net"
	"net/http"
	"sync"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"

	"github.com/mcpwire/mcpwire/logx"
)

// webSocketTransport carries JSON-RPC messages over a WebSocket connection,
// one message per text frame.
type webSocketTransport struct {
	config WebSocketConfig
	auth   AuthProvider
	logger logx.Logger

	mu        sync.Mutex
	conn      net.Conn
	connected bool
	handler   ReceiveHandler
	done      chan struct{}
}

func newWebSocketTransport(cfg WebSocketConfig, auth AuthProvider, logger logx.Logger) *webSocketTransport {
	return &webSocketTransport{config: cfg, auth: auth, logger: logger}
}

// SetReceiveHandler implements Transport.
func (t *webSocketTransport) SetReceiveHandler(handler ReceiveHandler) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.handler = handler
}

// Connect implements Transport.
func (t *webSocketTransport) Connect(ctx context.Context) error {
	t.mu.Lock()
	if t.connected {
		t.mu.Unlock()
		return NewConnectionError(t.config.URL, "already connected", ErrAlreadyConnected)
	}
	t.mu.Unlock()

	dialer := ws.Dialer{}
	if len(t.config.Headers) > 0 || t.auth != nil {
		header := http.Header{}
		for k, v := range t.config.Headers {
			header.Set(k, v)
		}
		if t.auth != nil {
			for k, v := range t.auth.AuthHeaders() {
				header.Set(k, v)
			}
		}
		dialer.Header = ws.HandshakeHeaderHTTP(header)
	}

	conn, _, _, err := dialer.Dial(ctx, t.config.URL)
	if err != nil {
		return NewConnectionError(t.config.URL, "websocket dial failed", err)
	}

	t.mu.Lock()
	t.conn = conn
	t.connected = true
	t.done = make(chan struct{})
	done := t.done
	t.mu.Unlock()

	go t.readLoop(conn, done)
	t.logger.Debug("websocket transport connected to %s", t.config.URL)
	return nil
}

// Close implements Transport. Idempotent.
func (t *webSocketTransport) Close() error {
	t.mu.Lock()
	if !t.connected {
		t.mu.Unlock()
		return nil
	}
	t.connected = false
	conn := t.conn
	done := t.done
	t.mu.Unlock()

	close(done)
	err := conn.Close()
	t.logger.Debug("websocket transport closed (%s)", t.config.URL)
	return err
}

// IsConnected implements Transport.
func (t *webSocketTransport) IsConnected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.connected
}

// Send implements Transport.
func (t *webSocketTransport) Send(ctx context.Context, message []byte) error {
	t.mu.Lock()
	connected := t.connected
	conn := t.conn
	t.mu.Unlock()

	if !connected {
		return ErrNotConnected
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetWriteDeadline(deadline)
	}
	if err := wsutil.WriteClientText(conn, message); err != nil {
		return NewConnectionError(t.config.URL, "websocket write failed", err)
	}
	return nil
}

func (t *webSocketTransport) readLoop(conn net.Conn, done <-chan struct{}) {
	for {
		data, err := wsutil.ReadServerText(conn)
		if err != nil {
			select {
			case <-done:
				// Closed locally, the read error is expected.
			default:
				t.logger.Error("websocket read failed: %v", err)
				_ = t.Close()
			}
			return
		}
		t.mu.Lock()
		handler := t.handler
		t.mu.Unlock()
		if handler != nil {
			handler(data)
		}
	}
}

var _ Transport = (*webSocketTransport)(nil)
