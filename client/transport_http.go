package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"sync"

	"github.com/tmaxmax/go-sse"

	"github.com/mcpwire/mcpwire/logx"
)

// sessionIDHeader scopes streamable-HTTP exchanges to one server session.
const sessionIDHeader = "Mcp-Session-Id"

// streamableHTTPTransport carries JSON-RPC over plain HTTP POST requests.
// Each outbound message is POSTed to the configured URL; the response body
// holds either a single JSON message or an SSE stream of messages, both of
// which are fed to the receive handler. The server assigns a session id on
// the first exchange via the Mcp-Session-Id header, echoed on every
// subsequent request.
type streamableHTTPTransport struct {
	config     StreamableHTTPConfig
	auth       AuthProvider
	logger     logx.Logger
	httpClient *http.Client

	mu        sync.Mutex
	connected bool
	sessionID string
	handler   ReceiveHandler
}

func newStreamableHTTPTransport(cfg StreamableHTTPConfig, auth AuthProvider, logger logx.Logger) *streamableHTTPTransport {
	return &streamableHTTPTransport{
		config:     cfg,
		auth:       auth,
		logger:     logger,
		httpClient: &http.Client{},
	}
}

// SetReceiveHandler implements Transport.
func (t *streamableHTTPTransport) SetReceiveHandler(handler ReceiveHandler) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.handler = handler
}

// Connect implements Transport. The transport is connectionless, so this only
// marks the transport usable; the session id is established lazily by the
// first exchange.
func (t *streamableHTTPTransport) Connect(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.connected {
		return NewConnectionError(t.config.URL, "already connected", ErrAlreadyConnected)
	}
	t.connected = true
	t.logger.Debug("streamable http transport ready for %s", t.config.URL)
	return nil
}

// Close implements Transport. Idempotent.
func (t *streamableHTTPTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.connected = false
	t.sessionID = ""
	return nil
}

// IsConnected implements Transport.
func (t *streamableHTTPTransport) IsConnected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.connected
}

// Send implements Transport. The POST response body is decoded according to
// its content type and fed back through the receive handler.
func (t *streamableHTTPTransport) Send(ctx context.Context, message []byte) error {
	t.mu.Lock()
	connected := t.connected
	sessionID := t.sessionID
	t.mu.Unlock()

	if !connected {
		return ErrNotConnected
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.config.URL, bytes.NewReader(message))
	if err != nil {
		return NewConnectionError(t.config.URL, "failed to create request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json, text/event-stream")
	if sessionID != "" {
		req.Header.Set(sessionIDHeader, sessionID)
	}
	for k, v := range t.config.Headers {
		req.Header.Set(k, v)
	}
	if t.auth != nil {
		for k, v := range t.auth.AuthHeaders() {
			req.Header.Set(k, v)
		}
	}

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return NewConnectionError(t.config.URL, "request failed", err)
	}

	if sid := resp.Header.Get(sessionIDHeader); sid != "" {
		t.mu.Lock()
		t.sessionID = sid
		t.mu.Unlock()
	}

	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		resp.Body.Close()
		return fmt.Errorf("server rejected request with status %d: %w", resp.StatusCode, ErrAuthFailure)
	case http.StatusAccepted, http.StatusNoContent:
		// Notification accepted, nothing to read back.
		resp.Body.Close()
		return nil
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		return NewConnectionError(t.config.URL,
			fmt.Sprintf("unexpected status code %d", resp.StatusCode), nil)
	}

	contentType, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	switch contentType {
	case "text/event-stream":
		// Responses streamed as SSE may interleave notifications with the
		// final response; consume in the background so Send stays prompt.
		go t.consumeStream(resp.Body)
		return nil
	default:
		defer resp.Body.Close()
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return NewConnectionError(t.config.URL, "failed to read response body", err)
		}
		if len(bytes.TrimSpace(body)) == 0 {
			return nil
		}
		t.deliver(body)
		return nil
	}
}

func (t *streamableHTTPTransport) consumeStream(body io.ReadCloser) {
	defer body.Close()
	for ev, err := range sse.Read(body, nil) {
		if err != nil {
			t.logger.Debug("response stream ended: %v", err)
			return
		}
		if ev.Type == "" || ev.Type == "message" {
			t.deliver([]byte(ev.Data))
		}
	}
}

func (t *streamableHTTPTransport) deliver(message []byte) {
	t.mu.Lock()
	handler := t.handler
	t.mu.Unlock()
	if handler != nil {
		handler(message)
	}
}

var _ Transport = (*streamableHTTPTransport)(nil)
