package client

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// ConfigProcessor can modify or extend a McpConfig after loading.
type ConfigProcessor func(*McpConfig) error

// McpConfig is the top-level configuration structure.
type McpConfig struct {
	McpServers map[string]ServerConfig `json:"mcpServers" yaml:"mcpServers"`
}

// ServerConfig describes how to reach one server. A server is addressed
// either by a command to spawn or by a URL.
type ServerConfig struct {
	Command string            `json:"command,omitempty" yaml:"command,omitempty"`
	Args    []string          `json:"args,omitempty" yaml:"args,omitempty"`
	Env     map[string]string `json:"env,omitempty" yaml:"env,omitempty"`
	URL     string            `json:"url,omitempty" yaml:"url,omitempty"`

	Name        string `json:"name,omitempty" yaml:"name,omitempty"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`

	// Transport selects the kind explicitly: "stdio", "sse", "http",
	// "websocket". Empty means infer from the URL scheme or command.
	Transport string `json:"transport,omitempty" yaml:"transport,omitempty"`

	Headers map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`

	// Properties carries transport-specific extras; it is decoded on top of
	// the inferred transport config.
	Properties map[string]interface{} `json:"properties,omitempty" yaml:"properties,omitempty"`
}

// LoadFromFile loads configuration from a file, selecting the codec by
// extension (.yaml/.yml for YAML, anything else JSON).
func LoadFromFile(path string, processor ConfigProcessor) (*McpConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return LoadFromYAML(data, processor)
	default:
		return LoadFromJSON(data, processor)
	}
}

// LoadFromJSON parses configuration from JSON data.
func LoadFromJSON(data []byte, processor ConfigProcessor) (*McpConfig, error) {
	var config McpConfig
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return finishLoad(&config, processor)
}

// LoadFromYAML parses configuration from YAML data.
func LoadFromYAML(data []byte, processor ConfigProcessor) (*McpConfig, error) {
	var config McpConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return finishLoad(&config, processor)
}

func finishLoad(config *McpConfig, processor ConfigProcessor) (*McpConfig, error) {
	if processor != nil {
		if err := processor(config); err != nil {
			return nil, fmt.Errorf("error in config processor: %w", err)
		}
	}
	return config, nil
}

// GetServer retrieves a server configuration by name.
func (c *McpConfig) GetServer(name string) (ServerConfig, error) {
	server, exists := c.McpServers[name]
	if !exists {
		return ServerConfig{}, fmt.Errorf("server %q not found in configuration", name)
	}
	return server, nil
}

// AddServer adds a server to the configuration.
func (c *McpConfig) AddServer(name string, server ServerConfig) {
	if c.McpServers == nil {
		c.McpServers = make(map[string]ServerConfig)
	}
	c.McpServers[name] = server
}

// RemoveServer removes a server from the configuration.
func (c *McpConfig) RemoveServer(name string) bool {
	if _, exists := c.McpServers[name]; !exists {
		return false
	}
	delete(c.McpServers, name)
	return true
}

// TransportConfig resolves the server entry into a validated transport
// config. The kind comes from the Transport field when set, otherwise from
// the URL scheme, otherwise from the presence of a command.
func (s ServerConfig) TransportConfig() (TransportConfig, error) {
	kind, err := s.resolveKind()
	if err != nil {
		return TransportConfig{}, err
	}

	var cfg TransportConfig
	switch kind {
	case TransportStdio:
		cfg = TransportConfig{
			Kind:  TransportStdio,
			Stdio: &StdioConfig{Command: s.Command, Args: s.Args, Env: s.Env},
		}
	case TransportSSE:
		cfg = TransportConfig{
			Kind: TransportSSE,
			SSE:  &SSEConfig{URL: s.URL, Headers: s.Headers},
		}
	case TransportStreamableHTTP:
		cfg = TransportConfig{
			Kind: TransportStreamableHTTP,
			HTTP: &StreamableHTTPConfig{URL: s.URL, Headers: s.Headers},
		}
	case TransportWebSocket:
		cfg = TransportConfig{
			Kind:      TransportWebSocket,
			WebSocket: &WebSocketConfig{URL: s.URL, Headers: s.Headers},
		}
	}

	if len(s.Properties) > 0 {
		var target interface{}
		switch kind {
		case TransportStdio:
			target = cfg.Stdio
		case TransportSSE:
			target = cfg.SSE
		case TransportStreamableHTTP:
			target = cfg.HTTP
		case TransportWebSocket:
			target = cfg.WebSocket
		}
		if err := decodeProperties(s.Properties, target); err != nil {
			return TransportConfig{}, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return TransportConfig{}, err
	}
	return cfg, nil
}

// decodeProperties overlays a loosely-typed properties map onto the active
// transport section. Unset keys leave existing values alone.
func decodeProperties(properties map[string]interface{}, target interface{}) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           target,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return fmt.Errorf("failed to build properties decoder: %w", err)
	}
	if err := decoder.Decode(properties); err != nil {
		return &ConfigError{Field: "properties", Reason: err.Error()}
	}
	return nil
}

func (s ServerConfig) resolveKind() (TransportKind, error) {
	switch strings.ToLower(s.Transport) {
	case "stdio":
		return TransportStdio, nil
	case "sse":
		return TransportSSE, nil
	case "http", "streamable-http":
		return TransportStreamableHTTP, nil
	case "websocket", "ws":
		return TransportWebSocket, nil
	case "":
		// Infer below.
	default:
		return "", &ConfigError{Field: "transport", Reason: fmt.Sprintf("unknown transport type %q", s.Transport)}
	}

	if s.URL != "" {
		switch {
		case strings.HasPrefix(s.URL, "ws://"), strings.HasPrefix(s.URL, "wss://"):
			return TransportWebSocket, nil
		case strings.HasPrefix(s.URL, "http://"), strings.HasPrefix(s.URL, "https://"):
			return TransportSSE, nil
		default:
			return "", &ConfigError{Field: "url", Reason: fmt.Sprintf("cannot infer transport from url %q", s.URL)}
		}
	}
	if s.Command != "" {
		return TransportStdio, nil
	}
	return "", &ConfigError{Field: "transport", Reason: "must specify either url or command"}
}

// NewClientFromServer builds a client from a single server entry.
func NewClientFromServer(server ServerConfig, options ...Option) (*Client, error) {
	cfg, err := server.TransportConfig()
	if err != nil {
		return nil, err
	}
	if server.Name != "" {
		options = append([]Option{WithClientInfo(server.Name, Version)}, options...)
	}
	return NewClientFromConfig(cfg, options...)
}

// NewClientFromConfigFile builds a client for a named server from a config
// file.
func NewClientFromConfigFile(path, serverName string, options ...Option) (*Client, error) {
	config, err := LoadFromFile(path, nil)
	if err != nil {
		return nil, err
	}
	server, err := config.GetServer(serverName)
	if err != nil {
		return nil, err
	}
	return NewClientFromServer(server, options...)
}
