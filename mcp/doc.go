// Package mcp pays for MCP (Model Context Protocol) tool calls with x402.
//
// A paid tool answers an unpaid call with an error result whose structuredContent
// (or first text content) is a PaymentRequired envelope. The client selects and signs
// a payment for "mcp://tool/<name>" and repeats the call once with the payload in
// _meta["x402/payment"]. The settlement comes back in _meta["x402/payment-response"].
//
// # Client Usage
//
//	import (
//	    "github.com/bankofai/x402/go/mcp"
//	    "github.com/bankofai/x402/go/mechanisms/tron"
//	    mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
//	)
//
//	mcpClient := mcpsdk.NewClient(&mcpsdk.Implementation{Name: "my-agent", Version: "1.0.0"}, nil)
//	session, _ := mcpClient.Connect(ctx, transport, nil)
//
//	paymentClient := tron.NewClient(tron.ClientConfig{Signer: signer})
//	x402Mcp := mcp.NewX402MCPClient(mcp.NewMCPClientAdapter(session), paymentClient, mcp.Options{})
//
//	result, err := x402Mcp.CallTool(ctx, "get_weather", map[string]interface{}{"city": "NYC"})
//
// AutoPayment defaults to true. With AutoPayment off, every payment must be approved
// by Options.OnPaymentRequested; otherwise CallTool returns a PaymentRequiredError.
package mcp
