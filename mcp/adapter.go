package mcp

import (
	"context"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

// sdkAdapter adapts a connected session of the official Go MCP SDK to MCPCaller
type sdkAdapter struct {
	session *mcpsdk.ClientSession
}

// NewMCPClientAdapter creates an MCPCaller from a connected SDK session.
//
// Example:
//
//	mcpClient := mcpsdk.NewClient(&mcpsdk.Implementation{
//	    Name: "my-agent", Version: "1.0.0",
//	}, nil)
//	session, err := mcpClient.Connect(ctx, transport, nil)
//	if err != nil { ... }
//
//	x402Mcp := mcp.NewX402MCPClient(mcp.NewMCPClientAdapter(session), paymentClient, mcp.Options{})
func NewMCPClientAdapter(session *mcpsdk.ClientSession) MCPCaller {
	return &sdkAdapter{session: session}
}

func (a *sdkAdapter) Close(ctx context.Context) error {
	return a.session.Close()
}

func (a *sdkAdapter) CallTool(ctx context.Context, params map[string]interface{}) (MCPToolResult, error) {
	name, _ := params["name"].(string)
	args, _ := params["arguments"].(map[string]interface{})
	meta, _ := params["_meta"].(map[string]interface{})

	callParams := &mcpsdk.CallToolParams{
		Name:      name,
		Arguments: args,
	}
	if meta != nil {
		callParams.Meta = mcpsdk.Meta(meta)
	}

	result, err := a.session.CallTool(ctx, callParams)
	if err != nil {
		return MCPToolResult{}, err
	}

	content := make([]MCPContentItem, 0, len(result.Content))
	for _, item := range result.Content {
		if textContent, ok := item.(*mcpsdk.TextContent); ok {
			content = append(content, MCPContentItem{
				Type: "text",
				Text: textContent.Text,
			})
		}
	}

	mcpResult := MCPToolResult{
		Content: content,
		IsError: result.IsError,
	}

	// Payment-required results travel in structuredContent
	if result.StructuredContent != nil {
		if structuredMap, ok := result.StructuredContent.(map[string]interface{}); ok {
			mcpResult.StructuredContent = structuredMap
		}
	}

	if result.Meta != nil {
		metaMap := result.Meta.GetMeta()
		if len(metaMap) > 0 {
			mcpResult.Meta = make(map[string]interface{}, len(metaMap))
			for k, v := range metaMap {
				mcpResult.Meta[k] = v
			}
		}
	}

	return mcpResult, nil
}

func (a *sdkAdapter) ListTools(ctx context.Context) (interface{}, error) {
	return a.session.ListTools(ctx, nil)
}
