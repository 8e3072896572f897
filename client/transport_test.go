package client

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcpwire/mcpwire/protocol"
)

func TestTransportConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     TransportConfig
		wantErr bool
	}{
		{
			name: "valid stdio",
			cfg:  TransportConfig{Kind: TransportStdio, Stdio: &StdioConfig{Command: "mcp-server"}},
		},
		{
			name:    "stdio missing command",
			cfg:     TransportConfig{Kind: TransportStdio, Stdio: &StdioConfig{}},
			wantErr: true,
		},
		{
			name:    "stdio missing settings",
			cfg:     TransportConfig{Kind: TransportStdio},
			wantErr: true,
		},
		{
			name: "valid sse",
			cfg:  TransportConfig{Kind: TransportSSE, SSE: &SSEConfig{URL: "https://example.com/sse"}},
		},
		{
			name:    "sse bad scheme",
			cfg:     TransportConfig{Kind: TransportSSE, SSE: &SSEConfig{URL: "ftp://example.com"}},
			wantErr: true,
		},
		{
			name:    "sse empty url",
			cfg:     TransportConfig{Kind: TransportSSE, SSE: &SSEConfig{}},
			wantErr: true,
		},
		{
			name: "valid http",
			cfg:  TransportConfig{Kind: TransportStreamableHTTP, HTTP: &StreamableHTTPConfig{URL: "http://localhost:8080/mcp"}},
		},
		{
			name: "valid websocket",
			cfg:  TransportConfig{Kind: TransportWebSocket, WebSocket: &WebSocketConfig{URL: "wss://example.com/ws"}},
		},
		{
			name:    "websocket http scheme",
			cfg:     TransportConfig{Kind: TransportWebSocket, WebSocket: &WebSocketConfig{URL: "https://example.com"}},
			wantErr: true,
		},
		{
			name:    "missing kind",
			cfg:     TransportConfig{},
			wantErr: true,
		},
		{
			name:    "unknown kind",
			cfg:     TransportConfig{Kind: "carrier-pigeon"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				var cfgErr *ConfigError
				assert.ErrorAs(t, err, &cfgErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNewTransportRejectsInvalidConfig(t *testing.T) {
	_, err := NewTransport(TransportConfig{Kind: TransportStdio}, TransportFactoryOptions{})
	var cfgErr *ConfigError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestNewTransportBuildsEachKind(t *testing.T) {
	cfgs := []TransportConfig{
		{Kind: TransportStdio, Stdio: &StdioConfig{Command: "mcp-server"}},
		{Kind: TransportSSE, SSE: &SSEConfig{URL: "https://example.com/sse"}},
		{Kind: TransportStreamableHTTP, HTTP: &StreamableHTTPConfig{URL: "https://example.com/mcp"}},
		{Kind: TransportWebSocket, WebSocket: &WebSocketConfig{URL: "wss://example.com/ws"}},
	}
	for _, cfg := range cfgs {
		transport, err := NewTransport(cfg, TransportFactoryOptions{})
		require.NoError(t, err, "kind %s", cfg.Kind)
		require.NotNil(t, transport)
		assert.False(t, transport.IsConnected())
	}
}

func TestTransportConfigFromMap(t *testing.T) {
	cfg, err := TransportConfigFromMap(map[string]interface{}{
		"kind": "stdio",
		"stdio": map[string]interface{}{
			"command": "mcp-server",
			"args":    []interface{}{"--verbose"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, TransportStdio, cfg.Kind)
	require.NotNil(t, cfg.Stdio)
	assert.Equal(t, "mcp-server", cfg.Stdio.Command)
	assert.Equal(t, []string{"--verbose"}, cfg.Stdio.Args)
}

func TestTransportConfigFromMapInvalid(t *testing.T) {
	_, err := TransportConfigFromMap(map[string]interface{}{"kind": "sse"})
	var cfgErr *ConfigError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestTransportEndpoint(t *testing.T) {
	cfg := TransportConfig{Kind: TransportStdio, Stdio: &StdioConfig{Command: "srv"}}
	assert.Equal(t, "stdio:srv", cfg.Endpoint())

	cfg = TransportConfig{Kind: TransportSSE, SSE: &SSEConfig{URL: "https://x/sse"}}
	assert.Equal(t, "https://x/sse", cfg.Endpoint())
}

func TestInMemoryTransportScriptedResponse(t *testing.T) {
	transport := NewInMemoryTransport()
	transport.Handle("echo", func(id interface{}, params json.RawMessage) *protocol.JSONRPCResponse {
		return &protocol.JSONRPCResponse{
			JSONRPC: protocol.JSONRPCVersion,
			ID:      id,
			Result:  json.RawMessage(`{"ok":true}`),
		}
	})

	var received [][]byte
	transport.SetReceiveHandler(func(message []byte) {
		received = append(received, message)
	})
	require.NoError(t, transport.Connect(context.Background()))

	raw, err := json.Marshal(protocol.NewRequest(1, "echo", nil))
	require.NoError(t, err)
	require.NoError(t, transport.Send(context.Background(), raw))

	require.Len(t, received, 1)
	parsed, err := protocol.ParseMessage(received[0])
	require.NoError(t, err)
	assert.Equal(t, protocol.MessageResponse, parsed.Type)
	assert.Equal(t, []string{"echo"}, transport.SentMethods())
}

func TestInMemoryTransportSendRequiresConnect(t *testing.T) {
	transport := NewInMemoryTransport()
	err := transport.Send(context.Background(), []byte(`{}`))
	assert.ErrorIs(t, err, ErrNotConnected)
}
