package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/tmaxmax/go-sse"

	"github.com/mcpwire/mcpwire/logx"
)

// sseTransport carries JSON-RPC over an HTTP SSE event stream for inbound
// messages and HTTP POST for outbound ones. The server announces the POST
// endpoint in the first "endpoint" event on the stream.
type sseTransport struct {
	config     SSEConfig
	auth       AuthProvider
	logger     logx.Logger
	httpClient *http.Client

	mu         sync.Mutex
	connected  bool
	messageURL string
	handler    ReceiveHandler
	cancel     context.CancelFunc
	done       chan struct{}
}

func newSSETransport(cfg SSEConfig, auth AuthProvider, logger logx.Logger) *sseTransport {
	return &sseTransport{
		config:     cfg,
		auth:       auth,
		logger:     logger,
		httpClient: &http.Client{},
	}
}

// SetReceiveHandler implements Transport.
func (t *sseTransport) SetReceiveHandler(handler ReceiveHandler) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.handler = handler
}

// Connect implements Transport. It opens the event stream and blocks until
// the server announces the message endpoint (or ctx is cancelled), then keeps
// reading events in the background.
func (t *sseTransport) Connect(ctx context.Context) error {
	t.mu.Lock()
	if t.connected {
		t.mu.Unlock()
		return NewConnectionError(t.config.URL, "already connected", ErrAlreadyConnected)
	}
	t.mu.Unlock()

	streamCtx, cancel := context.WithCancel(context.Background())

	req, err := http.NewRequestWithContext(streamCtx, http.MethodGet, t.config.URL, nil)
	if err != nil {
		cancel()
		return NewConnectionError(t.config.URL, "failed to create stream request", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	t.applyHeaders(req)

	resp, err := t.httpClient.Do(req)
	if err != nil {
		cancel()
		return NewConnectionError(t.config.URL, "failed to open event stream", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		cancel()
		return NewConnectionError(t.config.URL,
			fmt.Sprintf("unexpected status code %d opening event stream", resp.StatusCode), nil)
	}

	ready := make(chan error, 1)
	done := make(chan struct{})
	go t.readStream(resp, ready, done)

	select {
	case err, ok := <-ready:
		if ok && err != nil {
			cancel()
			return NewConnectionError(t.config.URL, "event stream setup failed", err)
		}
	case <-ctx.Done():
		cancel()
		return ctx.Err()
	}

	t.mu.Lock()
	t.connected = true
	t.cancel = cancel
	t.done = done
	t.mu.Unlock()

	t.logger.Debug("sse transport connected to %s", t.config.URL)
	return nil
}

// readStream consumes the event stream. The first "endpoint" event resolves
// the POST-back URL and signals readiness by closing ready; subsequent
// "message" events are handed to the receive handler.
func (t *sseTransport) readStream(resp *http.Response, ready chan<- error, done chan struct{}) {
	defer resp.Body.Close()
	defer close(done)

	endpointSeen := false
	for ev, err := range sse.Read(resp.Body, nil) {
		if err != nil {
			if !errors.Is(err, context.Canceled) {
				t.logger.Error("sse read failed: %v", err)
			}
			if !endpointSeen {
				ready <- err
			}
			return
		}

		switch ev.Type {
		case "endpoint":
			u, err := url.Parse(ev.Data)
			if err != nil || u.String() == "" {
				if !endpointSeen {
					ready <- fmt.Errorf("malformed endpoint event %q", ev.Data)
				}
				return
			}
			resolved := u.String()
			if !u.IsAbs() {
				base, baseErr := url.Parse(t.config.URL)
				if baseErr == nil {
					resolved = base.ResolveReference(u).String()
				}
			}
			t.mu.Lock()
			t.messageURL = resolved
			t.mu.Unlock()
			if !endpointSeen {
				endpointSeen = true
				close(ready)
			}
		case "message":
			t.mu.Lock()
			handler := t.handler
			t.mu.Unlock()
			if handler != nil {
				handler([]byte(ev.Data))
			}
		default:
			t.logger.Debug("ignoring sse event type %q", ev.Type)
		}
	}
}

// Close implements Transport. It cancels the stream request, which terminates
// the read loop. Close is idempotent.
func (t *sseTransport) Close() error {
	t.mu.Lock()
	if !t.connected {
		t.mu.Unlock()
		return nil
	}
	t.connected = false
	cancel := t.cancel
	done := t.done
	t.mu.Unlock()

	cancel()
	if done != nil {
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.logger.Warn("timed out waiting for sse read loop to stop")
		}
	}
	t.logger.Debug("sse transport closed (%s)", t.config.URL)
	return nil
}

// IsConnected implements Transport.
func (t *sseTransport) IsConnected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.connected
}

// Send implements Transport. Messages are POSTed to the endpoint announced on
// the stream.
func (t *sseTransport) Send(ctx context.Context, message []byte) error {
	t.mu.Lock()
	connected := t.connected
	messageURL := t.messageURL
	t.mu.Unlock()

	if !connected {
		return ErrNotConnected
	}
	if messageURL == "" {
		return NewConnectionError(t.config.URL, "no message endpoint announced", nil)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, messageURL, bytes.NewReader(message))
	if err != nil {
		return NewConnectionError(t.config.URL, "failed to create message request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	t.applyHeaders(req)

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return NewConnectionError(t.config.URL, "failed to post message", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return fmt.Errorf("server rejected message with status %d: %w", resp.StatusCode, ErrAuthFailure)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return NewConnectionError(t.config.URL,
			fmt.Sprintf("unexpected status code %d posting message", resp.StatusCode), nil)
	}
	return nil
}

func (t *sseTransport) applyHeaders(req *http.Request) {
	for k, v := range t.config.Headers {
		req.Header.Set(k, v)
	}
	if t.auth != nil {
		for k, v := range t.auth.AuthHeaders() {
			req.Header.Set(k, v)
		}
	}
}

var _ Transport = (*sseTransport)(nil)
