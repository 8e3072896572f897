package client

import (
	"context"
	"sync"

	"github.com/mcpwire/mcpwire/protocol"
)

// ToolCall names one tool invocation within a batch.
type ToolCall struct {
	Name      string
	Arguments map[string]interface{}
}

// ToolCallOutcome is the per-call result of a batch. Exactly one of Result
// and Err is set.
type ToolCallOutcome struct {
	Name   string
	Result *protocol.CallToolResult
	Err    error
}

// BatchOptions configures CallToolsBatch.
type BatchOptions struct {
	// Concurrency is the size of each concurrent group. Defaults to 5.
	Concurrency int

	// StopOnError aborts the batch after the first group containing a
	// failure. Calls already in flight within that group still complete.
	StopOnError bool
}

// CallToolsBatch invokes the given tools in fixed-size concurrent groups,
// preserving input order in the returned outcomes. Per-call failures are
// recorded, not returned; the error return is reserved for a readiness
// failure or context cancellation between groups.
func (c *Client) CallToolsBatch(ctx context.Context, calls []ToolCall, opts BatchOptions) ([]ToolCallOutcome, error) {
	if err := c.requireReady(); err != nil {
		return nil, err
	}
	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = 5
	}

	outcomes := make([]ToolCallOutcome, 0, len(calls))
	for start := 0; start < len(calls); start += concurrency {
		if err := ctx.Err(); err != nil {
			return outcomes, err
		}

		end := start + concurrency
		if end > len(calls) {
			end = len(calls)
		}
		group := calls[start:end]
		results := make([]ToolCallOutcome, len(group))

		var wg sync.WaitGroup
		for i, call := range group {
			wg.Add(1)
			go func(i int, call ToolCall) {
				defer wg.Done()
				result, err := c.CallTool(ctx, call.Name, call.Arguments)
				results[i] = ToolCallOutcome{Name: call.Name, Result: result, Err: err}
			}(i, call)
		}
		wg.Wait()

		outcomes = append(outcomes, results...)

		if opts.StopOnError {
			for _, outcome := range results {
				if outcome.Err != nil {
					return outcomes, nil
				}
			}
		}
	}
	return outcomes, nil
}
