package mcp

import (
	"context"
)

// MCPCaller is the part of an MCP client session used for paid tool calls.
// params carries "name", "arguments" and, on paid retries, "_meta".
// A payment-required answer may come back as an error result or as a
// JSON-RPC error with code 402 whose data is the envelope.
type MCPCaller interface {
	CallTool(ctx context.Context, params map[string]interface{}) (MCPToolResult, error)
	ListTools(ctx context.Context) (interface{}, error)
	Close(ctx context.Context) error
}
