package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mcpwire/mcpwire/logx"
	"github.com/mcpwire/mcpwire/protocol"
)

// ConnectionState is the lifecycle state of a Client. Transitions are
// serialized; there is never a concurrent transition.
type ConnectionState int

const (
	StateDisconnected ConnectionState = iota
	StateConnecting
	StateReady
	StateError
	StateClosed
)

// String returns the state name.
func (s ConnectionState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateReady:
		return "ready"
	case StateError:
		return "error"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// pendingResult is what a waiter receives for an outstanding request:
// either the matched response or a forced rejection.
type pendingResult struct {
	msg *protocol.ParsedMessage
	err error
}

// pendingRequest tracks one in-flight request. It is destroyed exactly once:
// by the matching response, by timeout, or by forced rejection on close.
type pendingRequest struct {
	method string
	ch     chan pendingResult
}

// NotificationHandler consumes a server notification's raw params.
type NotificationHandler func(params json.RawMessage)

// Client is a single MCP server connection: a connection state machine plus
// request/notification dispatch and the tool/resource/prompt operations.
type Client struct {
	clientInfo      protocol.Implementation
	capabilities    protocol.ClientCapabilities
	protocolVersion string

	transport    Transport
	endpointName string
	release      func() // returns a pool-provided transport instead of closing it

	requestTimeout time.Duration
	connectTimeout time.Duration

	auth          AuthProvider
	retryConfig   RetryConfig
	retry         *RetryEngine
	retryEnabled  bool
	breakerConfig *CircuitBreakerConfig
	breaker       *CircuitBreaker

	emitter *EventEmitter
	logger  logx.Logger

	stateMu sync.Mutex
	state   ConnectionState

	serverInfo        protocol.Implementation
	serverCaps        protocol.ServerCapabilities
	negotiatedVersion string

	nextID    atomic.Int64
	pendingMu sync.Mutex
	pending   map[string]*pendingRequest

	notifyMu       sync.Mutex
	notifyNextID   int
	notifyHandlers map[string]map[int]NotificationHandler

	cacheMu         sync.Mutex
	toolsCache      []protocol.Tool
	toolsCached     bool
	resourcesCache  []protocol.Resource
	resourcesCached bool
	promptsCache    []protocol.Prompt
	promptsCached   bool
}

// NewClient creates a Client over the given transport. The client owns the
// transport and closes it on Disconnect unless WithTransportRelease is set.
func NewClient(transport Transport, options ...Option) *Client {
	c := &Client{
		clientInfo:      protocol.Implementation{Name: "mcpwire", Version: Version},
		protocolVersion: protocol.LatestProtocolVersion,
		transport:       transport,
		requestTimeout:  30 * time.Second,
		connectTimeout:  30 * time.Second,
		retryEnabled:    true,
		logger:          logx.NewNopLogger(),
		state:           StateDisconnected,
		pending:         make(map[string]*pendingRequest),
		notifyHandlers:  make(map[string]map[int]NotificationHandler),
	}
	for _, option := range options {
		option(c)
	}
	if c.emitter == nil {
		c.emitter = NewEventEmitter(c.logger)
	}
	c.retry = NewRetryEngine(c.retryConfig, c.logger)
	if c.breakerConfig != nil {
		cfg := *c.breakerConfig
		hook := cfg.OnStateChange
		cfg.OnStateChange = func(from, to CircuitState) {
			c.emitter.Emit(Event{Type: EventCircuitStateChanged, Data: CircuitTransition{From: from, To: to}})
			if hook != nil {
				hook(from, to)
			}
		}
		c.breaker = NewCircuitBreaker(cfg, c.logger)
	}
	return c
}

// NewClientFromConfig constructs the transport described by cfg and wraps it
// in a Client.
func NewClientFromConfig(cfg TransportConfig, options ...Option) (*Client, error) {
	probe := NewClient(nil, options...)
	transport, err := NewTransport(cfg, TransportFactoryOptions{Logger: probe.logger, Auth: probe.auth})
	if err != nil {
		return nil, err
	}
	probe.transport = transport
	probe.endpointName = cfg.Endpoint()
	return probe, nil
}

// State returns the current connection state.
func (c *Client) State() ConnectionState {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	return c.state
}

// IsConnected reports whether the client completed its handshake and is
// ready for requests.
func (c *Client) IsConnected() bool { return c.State() == StateReady }

// ServerInfo returns the server implementation info captured during the
// handshake.
func (c *Client) ServerInfo() protocol.Implementation {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	return c.serverInfo
}

// ServerCapabilities returns the capabilities advertised by the server.
func (c *Client) ServerCapabilities() protocol.ServerCapabilities {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	return c.serverCaps
}

// NegotiatedVersion returns the protocol version agreed during the handshake.
func (c *Client) NegotiatedVersion() string {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	return c.negotiatedVersion
}

// Events returns the client's event emitter.
func (c *Client) Events() *EventEmitter { return c.emitter }

// OnNotification registers a handler for a server notification method and
// returns a function removing exactly that registration.
func (c *Client) OnNotification(method string, handler NotificationHandler) (unsubscribe func()) {
	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()

	id := c.notifyNextID
	c.notifyNextID++
	if c.notifyHandlers[method] == nil {
		c.notifyHandlers[method] = make(map[int]NotificationHandler)
	}
	c.notifyHandlers[method][id] = handler

	return func() {
		c.notifyMu.Lock()
		defer c.notifyMu.Unlock()
		delete(c.notifyHandlers[method], id)
	}
}

// Connect establishes the transport and performs the protocol handshake
// (initialize request followed by the initialized notification). Only one
// connect may be in flight: a concurrent call fails fast instead of queuing.
// Cancelling ctx aborts the handshake and leaves the client in the error
// state, never stuck in connecting.
func (c *Client) Connect(ctx context.Context) error {
	c.stateMu.Lock()
	switch c.state {
	case StateConnecting:
		c.stateMu.Unlock()
		return ErrAlreadyConnecting
	case StateReady:
		c.stateMu.Unlock()
		return ErrAlreadyConnected
	case StateClosed:
		c.stateMu.Unlock()
		return ErrClientClosed
	}
	c.state = StateConnecting
	c.stateMu.Unlock()

	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.connectTimeout)
		defer cancel()
	}

	c.transport.SetReceiveHandler(c.handleInbound)

	if err := c.transport.Connect(ctx); err != nil {
		c.failConnect()
		return NewConnectionError(c.endpoint(), "transport connect failed", err)
	}

	result, err := c.handshake(ctx)
	if err != nil {
		// Release every partially-acquired resource before surfacing the
		// error: no leak on failed connect.
		c.releaseTransport()
		c.failConnect()
		return err
	}

	c.stateMu.Lock()
	c.serverInfo = result.ServerInfo
	c.serverCaps = result.Capabilities
	c.negotiatedVersion = result.ProtocolVersion
	c.state = StateReady
	c.stateMu.Unlock()

	c.logger.Info("connected to %s (%s, protocol %s)",
		result.ServerInfo.Name, c.endpoint(), result.ProtocolVersion)
	c.emitter.Emit(Event{Type: EventConnected, Data: result.ServerInfo})
	return nil
}

func (c *Client) failConnect() {
	c.stateMu.Lock()
	c.state = StateError
	c.stateMu.Unlock()
	c.rejectAllPending(fmt.Errorf("connect failed: %w", ErrCancelled))
}

func (c *Client) handshake(ctx context.Context) (*protocol.InitializeResult, error) {
	params := protocol.InitializeParams{
		ProtocolVersion: c.protocolVersion,
		Capabilities:    c.capabilities,
		ClientInfo:      c.clientInfo,
	}
	msg, err := c.roundTrip(ctx, protocol.MethodInitialize, params, c.requestTimeout)
	if err != nil {
		return nil, NewConnectionError(c.endpoint(), "initialize failed", err)
	}
	if msg.Error != nil {
		return nil, NewConnectionError(c.endpoint(),
			fmt.Sprintf("server rejected initialize: %s", msg.Error.Message),
			protocol.NewMCPError(msg.Error.Code, msg.Error.Message, msg.Error.Data))
	}

	var result protocol.InitializeResult
	if err := protocol.UnmarshalResult(msg.Result, &result); err != nil {
		return nil, NewConnectionError(c.endpoint(), "malformed initialize result", err)
	}

	supported := false
	for _, v := range protocol.SupportedVersions {
		if v == result.ProtocolVersion {
			supported = true
			break
		}
	}
	if !supported {
		return nil, &ProtocolVersionMismatchError{
			ClientError:    ClientError{Message: "protocol version mismatch", Code: protocol.CodeProtocolVersionMismatch},
			ClientVersions: protocol.SupportedVersions,
			ServerVersion:  result.ProtocolVersion,
		}
	}

	if err := c.sendNotification(ctx, protocol.MethodNotificationInitialized, nil); err != nil {
		return nil, NewConnectionError(c.endpoint(), "failed to send initialized notification", err)
	}
	return &result, nil
}

// Disconnect performs a graceful shutdown: it best-effort notifies the
// server (swallowing any failure), rejects all in-flight requests with a
// cancellation error, and releases the transport. It is idempotent.
func (c *Client) Disconnect(ctx context.Context) error {
	c.stateMu.Lock()
	if c.state == StateDisconnected || c.state == StateClosed {
		c.stateMu.Unlock()
		return nil
	}
	wasReady := c.state == StateReady
	c.state = StateDisconnected
	c.stateMu.Unlock()

	if wasReady {
		if err := c.sendNotification(ctx, protocol.MethodShutdown, nil); err != nil {
			c.logger.Debug("shutdown notification failed: %v", err)
		}
	}

	c.rejectAllPending(fmt.Errorf("connection closing: %w", ErrCancelled))
	c.releaseTransport()
	c.invalidateCaches()

	c.logger.Info("disconnected from %s", c.endpoint())
	c.emitter.Emit(Event{Type: EventDisconnected})
	return nil
}

// Close disconnects and marks the client permanently unusable.
func (c *Client) Close() error {
	err := c.Disconnect(context.Background())
	c.stateMu.Lock()
	c.state = StateClosed
	c.stateMu.Unlock()
	return err
}

func (c *Client) releaseTransport() {
	if c.release != nil {
		c.release()
		return
	}
	if err := c.transport.Close(); err != nil {
		c.logger.Warn("transport close failed: %v", err)
	}
}

func (c *Client) endpoint() string {
	if c.endpointName != "" {
		return c.endpointName
	}
	return "server"
}

// --- inbound dispatch ---

// handleInbound classifies one raw inbound message and routes it. Responses
// resolve their pending request by id; notifications fan out in arrival
// order; server-to-client requests get a minimal reply.
func (c *Client) handleInbound(raw []byte) {
	msg, err := protocol.ParseMessage(raw)
	if err != nil {
		c.logger.Warn("dropping malformed inbound message: %v", err)
		return
	}

	switch msg.Type {
	case protocol.MessageResponse:
		c.resolvePending(msg)
	case protocol.MessageNotification:
		c.dispatchNotification(msg)
	case protocol.MessageRequest:
		c.answerServerRequest(msg)
	}
}

func (c *Client) resolvePending(msg *protocol.ParsedMessage) {
	key := protocol.IDKey(msg.ID)
	c.pendingMu.Lock()
	pending, ok := c.pending[key]
	if ok {
		delete(c.pending, key)
	}
	c.pendingMu.Unlock()

	if !ok {
		// Late response after timeout or cancellation; the entry is gone so
		// it cannot be double-resolved.
		c.logger.Debug("response for unknown request id %v", msg.ID)
		return
	}
	pending.ch <- pendingResult{msg: msg}
}

func (c *Client) dispatchNotification(msg *protocol.ParsedMessage) {
	switch msg.Method {
	case protocol.MethodNotifyToolsListChanged:
		c.cacheMu.Lock()
		c.toolsCached = false
		c.cacheMu.Unlock()
		c.emitter.Emit(Event{Type: EventToolsListChanged})
	case protocol.MethodNotifyResourcesListChanged:
		c.cacheMu.Lock()
		c.resourcesCached = false
		c.cacheMu.Unlock()
		c.emitter.Emit(Event{Type: EventResourcesListChanged})
	case protocol.MethodNotifyPromptsListChanged:
		c.cacheMu.Lock()
		c.promptsCached = false
		c.cacheMu.Unlock()
		c.emitter.Emit(Event{Type: EventPromptsListChanged})
	case protocol.MethodNotifyResourceUpdated:
		c.emitter.Emit(Event{Type: EventResourceUpdated, Data: msg.Params})
	}

	c.notifyMu.Lock()
	handlers := make([]NotificationHandler, 0, len(c.notifyHandlers[msg.Method]))
	for _, handler := range c.notifyHandlers[msg.Method] {
		handlers = append(handlers, handler)
	}
	c.notifyMu.Unlock()
	for _, handler := range handlers {
		handler(msg.Params)
	}
}

// answerServerRequest replies to server-to-client requests. Only ping is
// supported; everything else gets a method-not-found error.
func (c *Client) answerServerRequest(msg *protocol.ParsedMessage) {
	var resp *protocol.JSONRPCResponse
	if msg.Method == protocol.MethodPing {
		resp = &protocol.JSONRPCResponse{
			JSONRPC: protocol.JSONRPCVersion,
			ID:      msg.ID,
			Result:  json.RawMessage(`{}`),
		}
	} else {
		resp = protocol.NewErrorResponse(msg.ID, protocol.CodeMethodNotFound,
			fmt.Sprintf("method not found: %s", msg.Method), nil)
	}
	raw, err := json.Marshal(resp)
	if err != nil {
		return
	}
	if err := c.transport.Send(context.Background(), raw); err != nil {
		c.logger.Debug("failed to answer server request %s: %v", msg.Method, err)
	}
}

func (c *Client) rejectAllPending(cause error) {
	c.pendingMu.Lock()
	pending := c.pending
	c.pending = make(map[string]*pendingRequest)
	c.pendingMu.Unlock()

	for _, p := range pending {
		p.ch <- pendingResult{err: cause}
	}
}

// --- request plumbing ---

// roundTrip issues one request and waits for its response, the timeout, or
// ctx cancellation. The pending entry is always removed before returning, so
// a late response can never double-resolve.
func (c *Client) roundTrip(ctx context.Context, method string, params interface{}, timeout time.Duration) (*protocol.ParsedMessage, error) {
	id := c.nextID.Add(1)
	key := protocol.IDKey(id)
	pending := &pendingRequest{method: method, ch: make(chan pendingResult, 1)}

	c.pendingMu.Lock()
	c.pending[key] = pending
	c.pendingMu.Unlock()

	raw, err := json.Marshal(protocol.NewRequest(id, method, params))
	if err != nil {
		c.removePending(key)
		return nil, fmt.Errorf("failed to marshal %s request: %w", method, err)
	}
	if err := c.transport.Send(ctx, raw); err != nil {
		c.removePending(key)
		return nil, fmt.Errorf("failed to send %s request: %w", method, err)
	}

	if timeout <= 0 {
		timeout = c.requestTimeout
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case result := <-pending.ch:
		if result.err != nil {
			return nil, result.err
		}
		return result.msg, nil
	case <-ctx.Done():
		c.removePending(key)
		return nil, fmt.Errorf("%s: %w", method, ErrCancelled)
	case <-timer.C:
		c.removePending(key)
		return nil, NewTimeoutError(method, timeout, nil)
	}
}

func (c *Client) removePending(key string) {
	c.pendingMu.Lock()
	delete(c.pending, key)
	c.pendingMu.Unlock()
}

func (c *Client) sendNotification(ctx context.Context, method string, params interface{}) error {
	raw, err := json.Marshal(protocol.NewNotification(method, params))
	if err != nil {
		return fmt.Errorf("failed to marshal %s notification: %w", method, err)
	}
	return c.transport.Send(ctx, raw)
}

func (c *Client) requireReady() error {
	switch c.State() {
	case StateReady:
		return nil
	case StateConnecting:
		return ErrNotInitialized
	case StateClosed:
		return ErrClientClosed
	default:
		return ErrNotConnected
	}
}

// SendRequest issues a raw JSON-RPC request and returns the parsed response.
// Most callers want the typed operations instead.
func (c *Client) SendRequest(ctx context.Context, method string, params interface{}) (*protocol.ParsedMessage, error) {
	if err := c.requireReady(); err != nil {
		return nil, err
	}
	return c.roundTrip(ctx, method, params, c.requestTimeout)
}

// SendNotification sends a raw JSON-RPC notification.
func (c *Client) SendNotification(ctx context.Context, method string, params interface{}) error {
	if err := c.requireReady(); err != nil {
		return err
	}
	return c.sendNotification(ctx, method, params)
}

// Ping checks server liveness.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.requireReady(); err != nil {
		return err
	}
	msg, err := c.roundTrip(ctx, protocol.MethodPing, nil, c.requestTimeout)
	if err != nil {
		return err
	}
	if msg.Error != nil {
		return protocol.NewMCPError(msg.Error.Code, msg.Error.Message, msg.Error.Data)
	}
	return nil
}

// --- list operations (cached) ---

// ListOption customizes a list operation.
type ListOption func(*listOptions)

type listOptions struct {
	force bool
}

// WithForceRefresh bypasses the cached result and refetches from the server.
func WithForceRefresh() ListOption {
	return func(o *listOptions) { o.force = true }
}

// ListTools returns the server's tools. Results are cached until the server
// pushes a tools list_changed notification or the caller forces a refresh.
func (c *Client) ListTools(ctx context.Context, opts ...ListOption) ([]protocol.Tool, error) {
	if err := c.requireReady(); err != nil {
		return nil, err
	}
	if c.ServerCapabilities().Tools == nil {
		return nil, NewUnsupportedCapabilityError("tools")
	}
	var options listOptions
	for _, opt := range opts {
		opt(&options)
	}

	c.cacheMu.Lock()
	if c.toolsCached && !options.force {
		cached := append([]protocol.Tool(nil), c.toolsCache...)
		c.cacheMu.Unlock()
		return cached, nil
	}
	c.cacheMu.Unlock()

	var result protocol.ListToolsResult
	if err := c.listCall(ctx, protocol.MethodListTools, &result); err != nil {
		return nil, err
	}

	c.cacheMu.Lock()
	c.toolsCache = result.Tools
	c.toolsCached = true
	c.cacheMu.Unlock()
	return result.Tools, nil
}

// ListResources returns the server's resources, cached like ListTools.
func (c *Client) ListResources(ctx context.Context, opts ...ListOption) ([]protocol.Resource, error) {
	if err := c.requireReady(); err != nil {
		return nil, err
	}
	if c.ServerCapabilities().Resources == nil {
		return nil, NewUnsupportedCapabilityError("resources")
	}
	var options listOptions
	for _, opt := range opts {
		opt(&options)
	}

	c.cacheMu.Lock()
	if c.resourcesCached && !options.force {
		cached := append([]protocol.Resource(nil), c.resourcesCache...)
		c.cacheMu.Unlock()
		return cached, nil
	}
	c.cacheMu.Unlock()

	var result protocol.ListResourcesResult
	if err := c.listCall(ctx, protocol.MethodListResources, &result); err != nil {
		return nil, err
	}

	c.cacheMu.Lock()
	c.resourcesCache = result.Resources
	c.resourcesCached = true
	c.cacheMu.Unlock()
	return result.Resources, nil
}

// ListPrompts returns the server's prompts, cached like ListTools.
func (c *Client) ListPrompts(ctx context.Context, opts ...ListOption) ([]protocol.Prompt, error) {
	if err := c.requireReady(); err != nil {
		return nil, err
	}
	if c.ServerCapabilities().Prompts == nil {
		return nil, NewUnsupportedCapabilityError("prompts")
	}
	var options listOptions
	for _, opt := range opts {
		opt(&options)
	}

	c.cacheMu.Lock()
	if c.promptsCached && !options.force {
		cached := append([]protocol.Prompt(nil), c.promptsCache...)
		c.cacheMu.Unlock()
		return cached, nil
	}
	c.cacheMu.Unlock()

	var result protocol.ListPromptsResult
	if err := c.listCall(ctx, protocol.MethodListPrompts, &result); err != nil {
		return nil, err
	}

	c.cacheMu.Lock()
	c.promptsCache = result.Prompts
	c.promptsCached = true
	c.cacheMu.Unlock()
	return result.Prompts, nil
}

func (c *Client) listCall(ctx context.Context, method string, target interface{}) error {
	op := func(ctx context.Context) error {
		msg, err := c.roundTrip(ctx, method, nil, c.requestTimeout)
		if err != nil {
			return err
		}
		if msg.Error != nil {
			return protocol.NewMCPError(msg.Error.Code, msg.Error.Message, msg.Error.Data)
		}
		return protocol.UnmarshalResult(msg.Result, target)
	}
	return c.execute(ctx, op, c.retryEnabled)
}

func (c *Client) invalidateCaches() {
	c.cacheMu.Lock()
	c.toolsCached = false
	c.resourcesCached = false
	c.promptsCached = false
	c.cacheMu.Unlock()
}

// execute runs op through the retry engine (when enabled), wrapping each
// attempt in the circuit breaker when one is configured.
func (c *Client) execute(ctx context.Context, op func(ctx context.Context) error, retryEnabled bool) error {
	attempt := op
	if c.breaker != nil {
		attempt = func(ctx context.Context) error {
			return c.breaker.Execute(ctx, op)
		}
	}
	if !retryEnabled {
		return attempt(ctx)
	}
	return c.retry.Do(ctx, attempt)
}

// --- tool calls ---

// CallOption customizes one tool call.
type CallOption func(*callOptions)

type callOptions struct {
	timeout      time.Duration
	retryEnabled *bool
}

// WithCallTimeout overrides the request timeout for this call.
func WithCallTimeout(d time.Duration) CallOption {
	return func(o *callOptions) { o.timeout = d }
}

// WithCallRetry enables or disables retry for this call, overriding the
// client default. Disable it for tools with non-idempotent side effects.
func WithCallRetry(enabled bool) CallOption {
	return func(o *callOptions) { o.retryEnabled = &enabled }
}

// CallTool invokes a tool by name. On timeout the returned error is a
// *ToolTimeoutError carrying the tool name and configured duration; JSON-RPC
// error responses are mapped onto the tool error taxonomy.
func (c *Client) CallTool(ctx context.Context, name string, args map[string]interface{}, opts ...CallOption) (*protocol.CallToolResult, error) {
	if err := c.requireReady(); err != nil {
		return nil, err
	}

	options := callOptions{timeout: c.requestTimeout}
	for _, opt := range opts {
		opt(&options)
	}
	retryEnabled := c.retryEnabled
	if options.retryEnabled != nil {
		retryEnabled = *options.retryEnabled
	}

	c.emitter.Emit(Event{Type: EventToolCallStarted, Data: name})

	var result protocol.CallToolResult
	op := func(ctx context.Context) error {
		msg, err := c.roundTrip(ctx, protocol.MethodCallTool,
			protocol.CallToolParams{Name: name, Arguments: args}, options.timeout)
		if err != nil {
			var timeoutErr *TimeoutError
			if errors.As(err, &timeoutErr) {
				return NewToolTimeoutError(name, options.timeout)
			}
			return err
		}
		if msg.Error != nil {
			return toolErrorFromPayload(name, msg.Error)
		}
		return protocol.UnmarshalResult(msg.Result, &result)
	}

	if err := c.execute(ctx, op, retryEnabled); err != nil {
		c.emitter.Emit(Event{Type: EventToolCallFailed, Data: name, Err: err})
		return nil, err
	}
	c.emitter.Emit(Event{Type: EventToolCallSucceeded, Data: name})
	return &result, nil
}

// ReadResource reads a resource by URI.
func (c *Client) ReadResource(ctx context.Context, uri string) ([]protocol.ResourceContents, error) {
	if err := c.requireReady(); err != nil {
		return nil, err
	}
	if c.ServerCapabilities().Resources == nil {
		return nil, NewUnsupportedCapabilityError("resources")
	}

	var result protocol.ReadResourceResult
	op := func(ctx context.Context) error {
		msg, err := c.roundTrip(ctx, protocol.MethodReadResource,
			protocol.ReadResourceParams{URI: uri}, c.requestTimeout)
		if err != nil {
			return err
		}
		if msg.Error != nil {
			return resourceErrorFromPayload(uri, msg.Error)
		}
		return protocol.UnmarshalResult(msg.Result, &result)
	}
	if err := c.execute(ctx, op, c.retryEnabled); err != nil {
		return nil, err
	}
	return result.Contents, nil
}

// GetPrompt expands a prompt by name.
func (c *Client) GetPrompt(ctx context.Context, name string, args map[string]string) (*protocol.GetPromptResult, error) {
	if err := c.requireReady(); err != nil {
		return nil, err
	}
	if c.ServerCapabilities().Prompts == nil {
		return nil, NewUnsupportedCapabilityError("prompts")
	}

	var result protocol.GetPromptResult
	op := func(ctx context.Context) error {
		msg, err := c.roundTrip(ctx, protocol.MethodGetPrompt,
			protocol.GetPromptParams{Name: name, Arguments: args}, c.requestTimeout)
		if err != nil {
			return err
		}
		if msg.Error != nil {
			return protocol.NewMCPError(msg.Error.Code, msg.Error.Message, msg.Error.Data)
		}
		return protocol.UnmarshalResult(msg.Result, &result)
	}
	if err := c.execute(ctx, op, c.retryEnabled); err != nil {
		return nil, err
	}
	return &result, nil
}
