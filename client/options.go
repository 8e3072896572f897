package client

import (
	"time"

	"github.com/mcpwire/mcpwire/logx"
	"github.com/mcpwire/mcpwire/protocol"
)

// Version is the library version reported in the handshake clientInfo.
const Version = "1.0.0"

// Option configures a Client at construction time.
type Option func(*Client)

// WithLogger sets the client's logger. The default discards everything.
func WithLogger(logger logx.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithRequestTimeout sets the default per-request timeout. Defaults to 30s.
func WithRequestTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.requestTimeout = d
		}
	}
}

// WithConnectTimeout bounds Connect when the caller's context carries no
// deadline. Defaults to 30s.
func WithConnectTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.connectTimeout = d
		}
	}
}

// WithRetryConfig replaces the default retry behavior for outbound calls.
func WithRetryConfig(cfg RetryConfig) Option {
	return func(c *Client) { c.retryConfig = cfg }
}

// WithRetryPredicate overrides only the retryability predicate, keeping the
// backoff defaults. Useful for callers whose tools are not idempotent.
func WithRetryPredicate(predicate RetryPredicate) Option {
	return func(c *Client) { c.retryConfig.Predicate = predicate }
}

// WithRetryDisabled turns off retry for all calls. Individual tool calls can
// re-enable it with WithCallRetry.
func WithRetryDisabled() Option {
	return func(c *Client) { c.retryEnabled = false }
}

// WithCircuitBreaker wraps every outbound call attempt in a circuit breaker.
// State transitions are published on the client's emitter.
func WithCircuitBreaker(cfg CircuitBreakerConfig) Option {
	return func(c *Client) { c.breakerConfig = &cfg }
}

// WithEmitter supplies a shared event emitter, letting several clients fan
// into one subscriber set.
func WithEmitter(emitter *EventEmitter) Option {
	return func(c *Client) {
		if emitter != nil {
			c.emitter = emitter
		}
	}
}

// WithClientInfo sets the implementation info sent during the handshake.
func WithClientInfo(name, version string) Option {
	return func(c *Client) {
		c.clientInfo = protocol.Implementation{Name: name, Version: version}
	}
}

// WithCapabilities sets the capabilities advertised during the handshake.
func WithCapabilities(caps protocol.ClientCapabilities) Option {
	return func(c *Client) { c.capabilities = caps }
}

// WithProtocolVersion sets the protocol version requested during the
// handshake. Defaults to the latest supported version.
func WithProtocolVersion(version string) Option {
	return func(c *Client) {
		if version != "" {
			c.protocolVersion = version
		}
	}
}

// WithTransport replaces the client's transport. Mostly useful with
// NewClientFromConfig-built clients in tests.
func WithTransport(transport Transport) Option {
	return func(c *Client) {
		if transport != nil {
			c.transport = transport
		}
	}
}

// WithAuth supplies the auth provider handed to config-built transports.
func WithAuth(auth AuthProvider) Option {
	return func(c *Client) { c.auth = auth }
}

// WithTransportRelease marks the transport as borrowed (typically from a
// TransportPool): Disconnect invokes release instead of closing it.
func WithTransportRelease(release func()) Option {
	return func(c *Client) { c.release = release }
}
