package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// MessageType classifies an inbound JSON-RPC payload.
type MessageType int

const (
	// MessageRequest is a server-to-client request (carries both an ID and a method).
	MessageRequest MessageType = iota
	// MessageResponse is a reply to an earlier client request (carries an ID
	// and either a result or an error).
	MessageResponse
	// MessageNotification is a fire-and-forget message (method, no ID).
	MessageNotification
)

// String returns the classification name.
func (t MessageType) String() string {
	switch t {
	case MessageRequest:
		return "request"
	case MessageResponse:
		return "response"
	case MessageNotification:
		return "notification"
	default:
		return "unknown"
	}
}

// ParsedMessage is the result of classifying inbound bytes at the transport
// boundary. Business logic only ever sees this tagged form, never the raw
// shape of the JSON object.
type ParsedMessage struct {
	Type   MessageType
	ID     interface{}     // nil for notifications; string or float64 otherwise
	Method string          // set for requests and notifications
	Params json.RawMessage // set for requests and notifications
	Result json.RawMessage // set for success responses
	Error  *ErrorPayload   // set for error responses
}

// messageProbe captures the discriminating fields of a JSON-RPC object
// without committing to any one message shape.
type messageProbe struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
	Result  json.RawMessage `json:"result"`
	Error   *ErrorPayload   `json:"error"`
}

func rawPresent(raw json.RawMessage) bool {
	return len(raw) > 0 && !bytes.Equal(raw, []byte("null"))
}

// ParseMessage decodes a single JSON-RPC message and classifies it as a
// request, response, or notification.
//
// Classification rules:
//   - method present, ID present  -> request
//   - method present, ID absent   -> notification
//   - result or error present     -> response (a null ID is permitted for
//     errors raised before the server could parse the request ID)
//
// Anything else is a protocol violation and returns an error.
func ParseMessage(data []byte) (*ParsedMessage, error) {
	var probe messageProbe
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("malformed JSON-RPC message: %w", err)
	}
	if probe.JSONRPC != JSONRPCVersion {
		return nil, fmt.Errorf("unsupported jsonrpc version %q", probe.JSONRPC)
	}

	hasID := rawPresent(probe.ID)
	var id interface{}
	if hasID {
		if err := json.Unmarshal(probe.ID, &id); err != nil {
			return nil, fmt.Errorf("malformed message id: %w", err)
		}
		switch id.(type) {
		case string, float64:
		default:
			return nil, fmt.Errorf("message id must be a string or number, got %T", id)
		}
	}

	switch {
	case probe.Method != "" && hasID:
		return &ParsedMessage{
			Type:   MessageRequest,
			ID:     id,
			Method: probe.Method,
			Params: probe.Params,
		}, nil
	case probe.Method != "":
		return &ParsedMessage{
			Type:   MessageNotification,
			Method: probe.Method,
			Params: probe.Params,
		}, nil
	// A "result" key whose value is null is still a success response; only
	// key absence (nil RawMessage) falls through.
	case len(probe.Result) > 0 && probe.Error == nil:
		if !hasID {
			return nil, fmt.Errorf("success response without an id")
		}
		return &ParsedMessage{
			Type:   MessageResponse,
			ID:     id,
			Result: probe.Result,
		}, nil
	case probe.Error != nil:
		return &ParsedMessage{
			Type:  MessageResponse,
			ID:    id,
			Error: probe.Error,
		}, nil
	default:
		return nil, fmt.Errorf("message is neither request, response, nor notification")
	}
}
