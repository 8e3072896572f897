package protocol

import (
	"encoding/json"
	"fmt"
)

// Implementation describes the name and version of an MCP implementation
// (client or server).
type Implementation struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// ListChangedCapability marks a capability whose item list can change at
// runtime, signalled through a list_changed notification.
type ListChangedCapability struct {
	ListChanged bool `json:"listChanged,omitempty"`
}

// ResourcesCapability describes the server's resource support.
type ResourcesCapability struct {
	Subscribe   bool `json:"subscribe,omitempty"`
	ListChanged bool `json:"listChanged,omitempty"`
}

// ClientCapabilities describes features the client supports.
type ClientCapabilities struct {
	Experimental map[string]interface{} `json:"experimental,omitempty"`
	Roots        *ListChangedCapability `json:"roots,omitempty"`
	Sampling     map[string]interface{} `json:"sampling,omitempty"`
}

// ServerCapabilities describes features the server supports.
type ServerCapabilities struct {
	Experimental map[string]interface{} `json:"experimental,omitempty"`
	Logging      *struct{}              `json:"logging,omitempty"`
	Prompts      *ListChangedCapability `json:"prompts,omitempty"`
	Resources    *ResourcesCapability   `json:"resources,omitempty"`
	Tools        *ListChangedCapability `json:"tools,omitempty"`
	Completions  *struct{}              `json:"completions,omitempty"`
}

// InitializeParams defines the parameters for the 'initialize' request.
type InitializeParams struct {
	ProtocolVersion string             `json:"protocolVersion"`
	Capabilities    ClientCapabilities `json:"capabilities"`
	ClientInfo      Implementation     `json:"clientInfo"`
}

// InitializeResult defines the result payload for a successful 'initialize'
// response.
type InitializeResult struct {
	ProtocolVersion string             `json:"protocolVersion"`
	Capabilities    ServerCapabilities `json:"capabilities"`
	ServerInfo      Implementation     `json:"serverInfo"`
	Instructions    string             `json:"instructions,omitempty"`
}

// ProgressParams is the payload of a notifications/progress notification.
type ProgressParams struct {
	ProgressToken interface{} `json:"progressToken"`
	Progress      float64     `json:"progress"`
	Total         float64     `json:"total,omitempty"`
	Message       string      `json:"message,omitempty"`
}

// CancelledParams is the payload of a notifications/cancelled notification.
type CancelledParams struct {
	RequestID interface{} `json:"requestId"`
	Reason    string      `json:"reason,omitempty"`
}

// LogMessageParams is the payload of a notifications/message notification.
type LogMessageParams struct {
	Level  string      `json:"level"`
	Logger string      `json:"logger,omitempty"`
	Data   interface{} `json:"data,omitempty"`
}

// --- Content ---

// Content is one part of a tool result or prompt message.
type Content interface {
	ContentType() string
}

// ContentAnnotations carries optional metadata for content parts.
type ContentAnnotations struct {
	Audience []string `json:"audience,omitempty"`
	Priority *float64 `json:"priority,omitempty"`
}

// TextContent represents textual content.
type TextContent struct {
	Type        string              `json:"type"` // always "text"
	Text        string              `json:"text"`
	Annotations *ContentAnnotations `json:"annotations,omitempty"`
}

func (c TextContent) ContentType() string { return "text" }

// NewTextContent creates a TextContent part.
func NewTextContent(text string) TextContent {
	return TextContent{Type: "text", Text: text}
}

// ImageContent represents base64-encoded image content.
type ImageContent struct {
	Type        string              `json:"type"` // always "image"
	Data        string              `json:"data"`
	MimeType    string              `json:"mimeType"`
	Annotations *ContentAnnotations `json:"annotations,omitempty"`
}

func (c ImageContent) ContentType() string { return "image" }

// AudioContent represents base64-encoded audio content.
type AudioContent struct {
	Type        string              `json:"type"` // always "audio"
	Data        string              `json:"data"`
	MimeType    string              `json:"mimeType"`
	Annotations *ContentAnnotations `json:"annotations,omitempty"`
}

func (c AudioContent) ContentType() string { return "audio" }

// EmbeddedResource represents resource contents embedded in a result.
type EmbeddedResource struct {
	Type        string              `json:"type"` // always "resource"
	Resource    ResourceContents    `json:"resource"`
	Annotations *ContentAnnotations `json:"annotations,omitempty"`
}

func (c EmbeddedResource) ContentType() string { return "resource" }

// DecodeContent decodes a list of raw content parts into their typed forms.
func DecodeContent(raw []json.RawMessage) ([]Content, error) {
	parts := make([]Content, 0, len(raw))
	for _, item := range raw {
		var head struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(item, &head); err != nil {
			return nil, fmt.Errorf("malformed content part: %w", err)
		}
		switch head.Type {
		case "text":
			var c TextContent
			if err := json.Unmarshal(item, &c); err != nil {
				return nil, err
			}
			parts = append(parts, c)
		case "image":
			var c ImageContent
			if err := json.Unmarshal(item, &c); err != nil {
				return nil, err
			}
			parts = append(parts, c)
		case "audio":
			var c AudioContent
			if err := json.Unmarshal(item, &c); err != nil {
				return nil, err
			}
			parts = append(parts, c)
		case "resource":
			var c EmbeddedResource
			if err := json.Unmarshal(item, &c); err != nil {
				return nil, err
			}
			parts = append(parts, c)
		default:
			return nil, fmt.Errorf("unknown content type %q", head.Type)
		}
	}
	return parts, nil
}
