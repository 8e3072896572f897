package client

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcpwire/mcpwire/protocol"
)

func batchHandler(t *testing.T, transport *InMemoryTransport, fail map[string]bool) *[]string {
	t.Helper()
	var mu sync.Mutex
	var seen []string
	transport.Handle(protocol.MethodCallTool, func(id interface{}, params json.RawMessage) *protocol.JSONRPCResponse {
		var p protocol.CallToolParams
		require.NoError(t, json.Unmarshal(params, &p))
		mu.Lock()
		seen = append(seen, p.Name)
		mu.Unlock()
		if fail[p.Name] {
			return protocol.NewErrorResponse(id, protocol.CodeToolExecution, "failed", nil)
		}
		raw, _ := json.Marshal(map[string]interface{}{"content": []interface{}{}})
		return &protocol.JSONRPCResponse{JSONRPC: protocol.JSONRPCVersion, ID: id, Result: raw}
	})
	return &seen
}

func TestBatchPreservesInputOrder(t *testing.T) {
	c, transport := connectTestClient(t, WithRetryDisabled())
	batchHandler(t, transport, nil)

	calls := []ToolCall{{Name: "a"}, {Name: "b"}, {Name: "c"}, {Name: "d"}, {Name: "e"}}
	outcomes, err := c.CallToolsBatch(context.Background(), calls, BatchOptions{Concurrency: 2})
	require.NoError(t, err)
	require.Len(t, outcomes, 5)
	for i, call := range calls {
		assert.Equal(t, call.Name, outcomes[i].Name)
		assert.NoError(t, outcomes[i].Err)
		assert.NotNil(t, outcomes[i].Result)
	}
}

func TestBatchRecordsPerCallFailures(t *testing.T) {
	c, transport := connectTestClient(t, WithRetryDisabled())
	batchHandler(t, transport, map[string]bool{"bad": true})

	outcomes, err := c.CallToolsBatch(context.Background(),
		[]ToolCall{{Name: "ok"}, {Name: "bad"}, {Name: "ok2"}},
		BatchOptions{Concurrency: 3})
	require.NoError(t, err)
	require.Len(t, outcomes, 3)
	assert.NoError(t, outcomes[0].Err)
	assert.Error(t, outcomes[1].Err)
	assert.NoError(t, outcomes[2].Err)
}

func TestBatchStopOnErrorHaltsAfterGroup(t *testing.T) {
	c, transport := connectTestClient(t, WithRetryDisabled())
	seen := batchHandler(t, transport, map[string]bool{"bad": true})

	calls := []ToolCall{{Name: "bad"}, {Name: "g1"}, {Name: "g2"}, {Name: "g3"}}
	outcomes, err := c.CallToolsBatch(context.Background(), calls,
		BatchOptions{Concurrency: 2, StopOnError: true})
	require.NoError(t, err)

	// First group (bad, g1) ran; the rest never started.
	assert.Len(t, outcomes, 2)
	assert.Len(t, *seen, 2)
}

func TestBatchEmptyInput(t *testing.T) {
	c, _ := connectTestClient(t)
	outcomes, err := c.CallToolsBatch(context.Background(), nil, BatchOptions{})
	require.NoError(t, err)
	assert.Empty(t, outcomes)
}

func TestBatchRequiresReady(t *testing.T) {
	c, _ := newTestClient(t)
	_, err := c.CallToolsBatch(context.Background(), []ToolCall{{Name: "x"}}, BatchOptions{})
	assert.ErrorIs(t, err, ErrNotConnected)
}
