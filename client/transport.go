package client

import (
	"context"
	"fmt"
	"net/url"

	"github.com/mitchellh/mapstructure"

	"github.com/mcpwire/mcpwire/logx"
)

// ReceiveHandler consumes raw inbound messages from a transport. The bytes
// are a single JSON-RPC message; classification happens in the client.
type ReceiveHandler func(message []byte)

// Transport is the channel carrying JSON-RPC bytes between client and
// server. Implementations deliver inbound messages through the registered
// ReceiveHandler.
type Transport interface {
	// Connect establishes the channel. It respects ctx for cancellation.
	Connect(ctx context.Context) error

	// Close tears the channel down and releases all resources. It is
	// idempotent.
	Close() error

	// IsConnected reports whether the channel is usable.
	IsConnected() bool

	// Send transmits one JSON-RPC message.
	Send(ctx context.Context, message []byte) error

	// SetReceiveHandler registers the sink for inbound messages. It must be
	// called before Connect.
	SetReceiveHandler(handler ReceiveHandler)
}

// TransportKind discriminates the transport config union.
type TransportKind string

const (
	TransportStdio          TransportKind = "stdio"
	TransportSSE            TransportKind = "sse"
	TransportStreamableHTTP TransportKind = "http"
	TransportWebSocket      TransportKind = "websocket"
)

// TransportConfig is the discriminated union describing how to reach a
// server. Exactly one of the variant fields must be set.
type TransportConfig struct {
	Kind TransportKind `json:"kind" mapstructure:"kind"`

	Stdio     *StdioConfig          `json:"stdio,omitempty" mapstructure:"stdio"`
	SSE       *SSEConfig            `json:"sse,omitempty" mapstructure:"sse"`
	HTTP      *StreamableHTTPConfig `json:"http,omitempty" mapstructure:"http"`
	WebSocket *WebSocketConfig      `json:"websocket,omitempty" mapstructure:"websocket"`
}

// StdioConfig describes a spawned-process transport.
type StdioConfig struct {
	Command string            `json:"command" mapstructure:"command"`
	Args    []string          `json:"args,omitempty" mapstructure:"args"`
	Env     map[string]string `json:"env,omitempty" mapstructure:"env"`
	Dir     string            `json:"dir,omitempty" mapstructure:"dir"`
}

// SSEConfig describes an SSE transport.
type SSEConfig struct {
	URL     string            `json:"url" mapstructure:"url"`
	Headers map[string]string `json:"headers,omitempty" mapstructure:"headers"`
}

// StreamableHTTPConfig describes a streamable-HTTP transport.
type StreamableHTTPConfig struct {
	URL     string            `json:"url" mapstructure:"url"`
	Headers map[string]string `json:"headers,omitempty" mapstructure:"headers"`
}

// WebSocketConfig describes a WebSocket transport.
type WebSocketConfig struct {
	URL     string            `json:"url" mapstructure:"url"`
	Headers map[string]string `json:"headers,omitempty" mapstructure:"headers"`
}

// Endpoint returns a human-readable identifier for the configured server,
// used in error messages and logs.
func (c *TransportConfig) Endpoint() string {
	switch c.Kind {
	case TransportStdio:
		if c.Stdio != nil {
			return "stdio:" + c.Stdio.Command
		}
	case TransportSSE:
		if c.SSE != nil {
			return c.SSE.URL
		}
	case TransportStreamableHTTP:
		if c.HTTP != nil {
			return c.HTTP.URL
		}
	case TransportWebSocket:
		if c.WebSocket != nil {
			return c.WebSocket.URL
		}
	}
	return string(c.Kind)
}

// Validate checks that the config names a known transport kind and carries
// the required, well-formed fields for it.
func (c *TransportConfig) Validate() error {
	switch c.Kind {
	case TransportStdio:
		if c.Stdio == nil {
			return &ConfigError{Field: "stdio", Reason: "missing stdio settings"}
		}
		if c.Stdio.Command == "" {
			return &ConfigError{Field: "stdio.command", Reason: "command must not be empty"}
		}
		return nil
	case TransportSSE:
		if c.SSE == nil {
			return &ConfigError{Field: "sse", Reason: "missing sse settings"}
		}
		return validateHTTPURL("sse.url", c.SSE.URL)
	case TransportStreamableHTTP:
		if c.HTTP == nil {
			return &ConfigError{Field: "http", Reason: "missing http settings"}
		}
		return validateHTTPURL("http.url", c.HTTP.URL)
	case TransportWebSocket:
		if c.WebSocket == nil {
			return &ConfigError{Field: "websocket", Reason: "missing websocket settings"}
		}
		return validateURL("websocket.url", c.WebSocket.URL, "ws", "wss")
	case "":
		return &ConfigError{Field: "kind", Reason: "transport kind is required"}
	default:
		return &ConfigError{Field: "kind", Reason: fmt.Sprintf("unknown transport kind %q", c.Kind)}
	}
}

func validateHTTPURL(field, raw string) error {
	return validateURL(field, raw, "http", "https")
}

func validateURL(field, raw string, schemes ...string) error {
	if raw == "" {
		return &ConfigError{Field: field, Reason: "url must not be empty"}
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return &ConfigError{Field: field, Reason: fmt.Sprintf("malformed url: %v", err)}
	}
	if parsed.Host == "" {
		return &ConfigError{Field: field, Reason: "url has no host"}
	}
	for _, scheme := range schemes {
		if parsed.Scheme == scheme {
			return nil
		}
	}
	return &ConfigError{
		Field:  field,
		Reason: fmt.Sprintf("scheme %q not allowed, want one of %v", parsed.Scheme, schemes),
	}
}

// TransportFactoryOptions carries cross-cutting dependencies handed to every
// constructed transport.
type TransportFactoryOptions struct {
	Logger logx.Logger
	Auth   AuthProvider
}

// NewTransport validates cfg and constructs the matching concrete transport.
func NewTransport(cfg TransportConfig, opts TransportFactoryOptions) (Transport, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = logx.NewNopLogger()
	}

	switch cfg.Kind {
	case TransportStdio:
		return newStdioTransport(*cfg.Stdio, logger), nil
	case TransportSSE:
		return newSSETransport(*cfg.SSE, opts.Auth, logger), nil
	case TransportStreamableHTTP:
		return newStreamableHTTPTransport(*cfg.HTTP, opts.Auth, logger), nil
	case TransportWebSocket:
		return newWebSocketTransport(*cfg.WebSocket, opts.Auth, logger), nil
	default:
		// Validate rejects unknown kinds first.
		return nil, &ConfigError{Field: "kind", Reason: "unknown transport kind"}
	}
}

// TransportConfigFromMap decodes a loosely-typed settings map (typically from
// a config file's properties section) into a TransportConfig and validates it.
func TransportConfigFromMap(settings map[string]interface{}) (TransportConfig, error) {
	var cfg TransportConfig
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &cfg,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return cfg, fmt.Errorf("failed to build config decoder: %w", err)
	}
	if err := decoder.Decode(settings); err != nil {
		return cfg, &ConfigError{Field: "transport", Reason: err.Error()}
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}
