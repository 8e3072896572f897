// Package client implements the MCP client: connection lifecycle, request
// dispatch, retries, circuit breaking, transport pooling, and session
// management.
package client

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mcpwire/mcpwire/protocol"
)

// Sentinel errors usable with errors.Is().
var (
	ErrNotConnected      = errors.New("client is not connected")
	ErrAlreadyConnected  = errors.New("client is already connected")
	ErrAlreadyConnecting = errors.New("a connect is already in flight")
	ErrClientClosed      = errors.New("client is closed")
	ErrCancelled         = errors.New("operation was cancelled")
	ErrNotInitialized    = errors.New("server handshake has not completed")
	ErrAuthFailure       = errors.New("authentication failed")
	ErrTransportFailure  = errors.New("transport failure")
	ErrInvalidResponse   = errors.New("invalid response from server")
	ErrPoolClosed        = errors.New("transport pool is closed")
	ErrAcquireTimeout    = errors.New("timed out waiting for a pooled transport")
	ErrSessionNotFound   = errors.New("session not found")
	ErrSessionCapacity   = errors.New("session capacity reached")
	ErrManagerClosed     = errors.New("session manager is shut down")
)

// ClientError is the base type for the typed errors below.
type ClientError struct {
	Message string
	Code    protocol.ErrorCode
	Cause   error
}

// Error implements the error interface.
func (e *ClientError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s (code=%d): %v", e.Message, e.Code, e.Cause)
	}
	return fmt.Sprintf("%s (code=%d)", e.Message, e.Code)
}

// Unwrap returns the underlying cause.
func (e *ClientError) Unwrap() error { return e.Cause }

// ConnectionError indicates a transport-level connection failure.
type ConnectionError struct {
	ClientError
	Endpoint string
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connection error (%s): %s", e.Endpoint, e.ClientError.Error())
}

// NewConnectionError creates a ConnectionError.
func NewConnectionError(endpoint, message string, cause error) error {
	return &ConnectionError{
		ClientError: ClientError{Message: message, Code: protocol.CodeConnectionClosed, Cause: cause},
		Endpoint:    endpoint,
	}
}

// ConnectionClosedError indicates the transport closed unexpectedly while
// requests were outstanding.
type ConnectionClosedError struct {
	ClientError
}

// NewConnectionClosedError creates a ConnectionClosedError.
func NewConnectionClosedError(message string, cause error) error {
	return &ConnectionClosedError{
		ClientError: ClientError{Message: message, Code: protocol.CodeConnectionClosed, Cause: cause},
	}
}

// TimeoutError indicates an operation exceeded its deadline. It carries the
// operation name and the configured duration.
type TimeoutError struct {
	ClientError
	Operation string
	Timeout   time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("timeout after %v during %s", e.Timeout, e.Operation)
}

// NewTimeoutError creates a TimeoutError.
func NewTimeoutError(operation string, timeout time.Duration, cause error) error {
	return &TimeoutError{
		ClientError: ClientError{
			Message: fmt.Sprintf("operation timed out after %v", timeout),
			Cause:   cause,
		},
		Operation: operation,
		Timeout:   timeout,
	}
}

// ToolError is the base for tool-call failures; it carries the tool name.
type ToolError struct {
	ClientError
	Tool string
}

func (e *ToolError) Error() string {
	return fmt.Sprintf("tool %q: %s", e.Tool, e.ClientError.Error())
}

// ToolNotFoundError indicates the server does not expose the named tool.
type ToolNotFoundError struct{ ToolError }

// ToolExecutionError indicates the tool ran but failed.
type ToolExecutionError struct{ ToolError }

// ToolInvalidParamsError indicates the arguments were rejected by the server.
type ToolInvalidParamsError struct{ ToolError }

// ToolTimeoutError indicates a tool call exceeded its deadline. It carries
// both the tool name and the configured duration.
type ToolTimeoutError struct {
	ToolError
	Timeout time.Duration
}

func (e *ToolTimeoutError) Error() string {
	return fmt.Sprintf("tool %q timed out after %v", e.Tool, e.Timeout)
}

// NewToolTimeoutError creates a ToolTimeoutError.
func NewToolTimeoutError(tool string, timeout time.Duration) error {
	return &ToolTimeoutError{
		ToolError: ToolError{
			ClientError: ClientError{
				Message: fmt.Sprintf("tool call timed out after %v", timeout),
				Code:    protocol.CodeToolTimeout,
			},
			Tool: tool,
		},
		Timeout: timeout,
	}
}

// ResourceNotFoundError indicates the server does not expose the named
// resource.
type ResourceNotFoundError struct {
	ClientError
	URI string
}

func (e *ResourceNotFoundError) Error() string {
	return fmt.Sprintf("resource %q: %s", e.URI, e.ClientError.Error())
}

// ResourceAccessDeniedError indicates the server refused access to a resource.
type ResourceAccessDeniedError struct {
	ClientError
	URI string
}

func (e *ResourceAccessDeniedError) Error() string {
	return fmt.Sprintf("resource %q access denied: %s", e.URI, e.ClientError.Error())
}

func (e *ResourceAccessDeniedError) Is(target error) bool { return target == ErrAuthFailure }

// ProtocolVersionMismatchError indicates client and server could not agree on
// a protocol version.
type ProtocolVersionMismatchError struct {
	ClientError
	ClientVersions []string
	ServerVersion  string
}

func (e *ProtocolVersionMismatchError) Error() string {
	return fmt.Sprintf("protocol version mismatch: server offered %q, client supports %v",
		e.ServerVersion, e.ClientVersions)
}

// UnsupportedCapabilityError indicates an operation requires a capability the
// server did not advertise.
type UnsupportedCapabilityError struct {
	ClientError
	Capability string
}

func (e *UnsupportedCapabilityError) Error() string {
	return fmt.Sprintf("server does not support capability %q", e.Capability)
}

// NewUnsupportedCapabilityError creates an UnsupportedCapabilityError.
func NewUnsupportedCapabilityError(capability string) error {
	return &UnsupportedCapabilityError{
		ClientError: ClientError{
			Message: "unsupported capability",
			Code:    protocol.CodeUnsupportedCapability,
		},
		Capability: capability,
	}
}

// CircuitOpenError is returned when the circuit breaker rejects an operation
// without attempting it. ResetAt is when the breaker will next admit a call.
type CircuitOpenError struct {
	ResetAt time.Time
}

func (e *CircuitOpenError) Error() string {
	return fmt.Sprintf("circuit breaker is open, next attempt allowed at %s",
		e.ResetAt.Format(time.RFC3339))
}

// ConfigError indicates a malformed transport or client configuration.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid config: %s: %s", e.Field, e.Reason)
}

// toolErrorFromPayload maps a JSON-RPC error payload onto the typed error
// taxonomy for a tool call.
func toolErrorFromPayload(tool string, payload *protocol.ErrorPayload) error {
	base := ClientError{Message: payload.Message, Code: payload.Code}
	switch payload.Code {
	case protocol.CodeToolNotFound, protocol.CodeMethodNotFound:
		return &ToolNotFoundError{ToolError{ClientError: base, Tool: tool}}
	case protocol.CodeInvalidParams, protocol.CodeToolInvalidParams:
		return &ToolInvalidParamsError{ToolError{ClientError: base, Tool: tool}}
	default:
		return &ToolExecutionError{ToolError{ClientError: base, Tool: tool}}
	}
}

// resourceErrorFromPayload maps a JSON-RPC error payload onto the typed error
// taxonomy for a resource read.
func resourceErrorFromPayload(uri string, payload *protocol.ErrorPayload) error {
	base := ClientError{Message: payload.Message, Code: payload.Code}
	switch payload.Code {
	case protocol.CodeResourceNotFound:
		return &ResourceNotFoundError{ClientError: base, URI: uri}
	case protocol.CodeResourceAccessDenied, protocol.CodeUnauthorized, protocol.CodeForbidden:
		return &ResourceAccessDeniedError{ClientError: base, URI: uri}
	default:
		return &protocol.MCPError{ErrorPayload: *payload}
	}
}

// IsTimeoutError checks whether err is any timeout from the taxonomy.
func IsTimeoutError(err error) bool {
	var t *TimeoutError
	var tt *ToolTimeoutError
	return errors.As(err, &t) || errors.As(err, &tt)
}

// IsConnectionError checks whether err is a connection-level failure.
func IsConnectionError(err error) bool {
	var c *ConnectionError
	var cc *ConnectionClosedError
	return errors.As(err, &c) || errors.As(err, &cc) ||
		errors.Is(err, ErrNotConnected) || errors.Is(err, ErrTransportFailure)
}

// IsCancellation checks whether err represents an explicit cancellation.
func IsCancellation(err error) bool {
	return errors.Is(err, ErrCancelled) || errors.Is(err, context.Canceled)
}

// IsAuthError checks whether err is authentication or authorization flavored.
func IsAuthError(err error) bool {
	if errors.Is(err, ErrAuthFailure) {
		return true
	}
	var mcpErr *protocol.MCPError
	if errors.As(err, &mcpErr) {
		return mcpErr.Code == protocol.CodeUnauthorized || mcpErr.Code == protocol.CodeForbidden
	}
	var denied *ResourceAccessDeniedError
	return errors.As(err, &denied)
}

// IsCircuitOpen checks whether err came from an open circuit breaker.
func IsCircuitOpen(err error) bool {
	var open *CircuitOpenError
	return errors.As(err, &open)
}
