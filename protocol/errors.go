package protocol

import "fmt"

// ErrorCode is a JSON-RPC error code.
type ErrorCode int

// Standard JSON-RPC 2.0 error codes.
const (
	CodeParseError     ErrorCode = -32700
	CodeInvalidRequest ErrorCode = -32600
	CodeMethodNotFound ErrorCode = -32601
	CodeInvalidParams  ErrorCode = -32602
	CodeInternalError  ErrorCode = -32603
)

// Application-reserved server-error band (-32099..-32000) for MCP-specific
// connection, tool, resource, and protocol errors.
const (
	CodeConnectionClosed        ErrorCode = -32000
	CodeToolNotFound            ErrorCode = -32001
	CodeToolExecution           ErrorCode = -32002
	CodeToolTimeout             ErrorCode = -32003
	CodeToolInvalidParams       ErrorCode = -32004
	CodeResourceNotFound        ErrorCode = -32005
	CodeResourceAccessDenied    ErrorCode = -32006
	CodeProtocolVersionMismatch ErrorCode = -32007
	CodeUnsupportedCapability   ErrorCode = -32008
	CodeUnauthorized            ErrorCode = -32009
	CodeForbidden               ErrorCode = -32010
	CodeServerNotInitialized    ErrorCode = -32011
	CodeRequestCancelled        ErrorCode = -32012
)

// IsServerErrorCode reports whether code falls in the application-reserved
// server-error band.
func IsServerErrorCode(code ErrorCode) bool {
	return code >= -32099 && code <= -32000
}

// MCPError wraps ErrorPayload to implement the error interface. It is the
// typed form of an error delivered in a JSON-RPC error response.
type MCPError struct {
	ErrorPayload
}

// Error implements the error interface.
func (e *MCPError) Error() string {
	return fmt.Sprintf("mcp error: code=%d message=%s", e.Code, e.Message)
}

// NewMCPError creates an MCPError from its parts.
func NewMCPError(code ErrorCode, message string, data interface{}) *MCPError {
	return &MCPError{ErrorPayload: ErrorPayload{Code: code, Message: message, Data: data}}
}

// NewMethodNotFoundError creates an MCPError for an unknown method.
func NewMethodNotFoundError(method string) *MCPError {
	return NewMCPError(CodeMethodNotFound, fmt.Sprintf("method not found: %s", method), nil)
}
