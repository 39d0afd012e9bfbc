package mcp

import (
	"context"
	"fmt"
	"log/slog"

	x402 "github.com/bankofai/x402/go"
)

// X402MCPClient wraps an MCP session with x402 payment handling
type X402MCPClient struct {
	caller               MCPCaller
	paymentClient        *x402.X402Client
	options              Options
	paymentRequiredHooks []PaymentRequiredHook
	beforePaymentHooks   []BeforePaymentHook
	afterPaymentHooks    []AfterPaymentHook
	logger               *slog.Logger
}

// NewX402MCPClient creates a new X402MCPClient instance
func NewX402MCPClient(caller MCPCaller, paymentClient *x402.X402Client, options Options) *X402MCPClient {
	logger := options.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &X402MCPClient{
		caller:        caller,
		paymentClient: paymentClient,
		options:       options,
		logger:        logger,
	}
}

// NewX402MCPClientFromConfig creates an x402-aware MCP client from scheme registrations
func NewX402MCPClientFromConfig(caller MCPCaller, schemes []SchemeRegistration, options Options) *X402MCPClient {
	paymentClient := x402.Newx402Client(x402.WithLogger(options.Logger))
	for _, reg := range schemes {
		if reg.Client != nil {
			paymentClient.Register(reg.Network, reg.Client)
		}
	}
	return NewX402MCPClient(caller, paymentClient, options)
}

// Caller returns the underlying MCP session
func (c *X402MCPClient) Caller() MCPCaller {
	return c.caller
}

// PaymentClient returns the underlying x402 payment client
func (c *X402MCPClient) PaymentClient() *x402.X402Client {
	return c.paymentClient
}

// OnPaymentRequired registers a hook for payment required events.
// A hook may abort or supply its own payment.
func (c *X402MCPClient) OnPaymentRequired(hook PaymentRequiredHook) *X402MCPClient {
	c.paymentRequiredHooks = append(c.paymentRequiredHooks, hook)
	return c
}

// OnBeforePayment registers a hook before payment creation
func (c *X402MCPClient) OnBeforePayment(hook BeforePaymentHook) *X402MCPClient {
	c.beforePaymentHooks = append(c.beforePaymentHooks, hook)
	return c
}

// OnAfterPayment registers a hook after the paid call
func (c *X402MCPClient) OnAfterPayment(hook AfterPaymentHook) *X402MCPClient {
	c.afterPaymentHooks = append(c.afterPaymentHooks, hook)
	return c
}

func (c *X402MCPClient) autoPayment() bool {
	if c.options.AutoPayment == nil {
		return true
	}
	return *c.options.AutoPayment
}

// CallTool calls a tool, paying once when it answers with a payment-required result
// or a JSON-RPC error with code 402
func (c *X402MCPClient) CallTool(ctx context.Context, name string, args map[string]interface{}) (*MCPToolCallResult, error) {
	result, err := c.caller.CallTool(ctx, map[string]interface{}{
		"name":      name,
		"arguments": args,
	})

	var paymentRequired *x402.PaymentRequired
	if err != nil {
		paymentRequired = paymentRequiredFromCallError(err)
		if paymentRequired == nil {
			return nil, fmt.Errorf("failed to call tool: %w", err)
		}
		c.logger.Debug("tool call answered with a 402 error", "tool", name)
	} else {
		paymentRequired, err = ExtractPaymentRequiredFromResult(result)
		if err != nil {
			return nil, fmt.Errorf("failed to extract payment required: %w", err)
		}
		if paymentRequired == nil {
			return buildToolCallResult(result, false), nil
		}
	}

	prCtx := PaymentRequiredContext{
		ToolName:        name,
		Arguments:       args,
		PaymentRequired: *paymentRequired,
	}

	for _, hook := range c.paymentRequiredHooks {
		hookResult, err := hook(prCtx)
		if err != nil {
			return nil, fmt.Errorf("payment required hook error: %w", err)
		}
		if hookResult == nil {
			continue
		}
		if hookResult.Abort {
			return nil, CreatePaymentRequiredError("Payment aborted by hook", paymentRequired)
		}
		if hookResult.Payment != nil {
			return c.CallToolWithPayment(ctx, name, args, *hookResult.Payment)
		}
	}

	if c.options.OnPaymentRequested != nil {
		approved, err := c.options.OnPaymentRequested(prCtx)
		if err != nil {
			return nil, fmt.Errorf("payment request hook error: %w", err)
		}
		if !approved {
			return nil, CreatePaymentRequiredError("Payment request denied", paymentRequired)
		}
	} else if !c.autoPayment() {
		return nil, CreatePaymentRequiredError("Payment required", paymentRequired)
	}

	for _, hook := range c.beforePaymentHooks {
		if err := hook(prCtx); err != nil {
			return nil, fmt.Errorf("before payment hook error: %w", err)
		}
	}

	payload, err := c.paymentClient.SelectAndPay(ctx, *paymentRequired, CreateToolResourceUrl(name, ""))
	if err != nil {
		return nil, fmt.Errorf("failed to create payment: %w", err)
	}

	c.logger.Debug("retrying tool call with payment",
		"tool", name, "scheme", payload.Accepted.Scheme, "network", payload.Accepted.Network)
	return c.CallToolWithPayment(ctx, name, args, payload)
}

// CallToolWithPayment calls a tool with an explicit payment payload
func (c *X402MCPClient) CallToolWithPayment(ctx context.Context, name string, args map[string]interface{}, payload x402.PaymentPayload) (*MCPToolCallResult, error) {
	callParams := AttachPaymentToMeta(map[string]interface{}{
		"name":      name,
		"arguments": args,
	}, payload)

	result, err := c.caller.CallTool(ctx, callParams)
	if err != nil {
		return nil, fmt.Errorf("failed to call tool with payment: %w", err)
	}

	settleResponse, err := ExtractPaymentResponseFromMeta(result)
	if err != nil {
		c.logger.Warn("ignoring undecodable payment response", "tool", name, "error", err)
		settleResponse = nil
	}

	afterContext := AfterPaymentContext{
		ToolName:       name,
		PaymentPayload: payload,
		Result:         result,
		SettleResponse: settleResponse,
	}
	for _, hook := range c.afterPaymentHooks {
		if err := hook(afterContext); err != nil {
			c.logger.Warn("after payment hook returned error", "tool", name, "error", err)
		}
	}

	return &MCPToolCallResult{
		Content:         result.Content,
		IsError:         result.IsError,
		PaymentResponse: settleResponse,
		PaymentMade:     true,
	}, nil
}

// GetToolPaymentRequirements calls a tool without payment to discover its payment requirements
// WARNING: This actually calls the tool, so it may have side effects
func (c *X402MCPClient) GetToolPaymentRequirements(ctx context.Context, name string, args map[string]interface{}) (*x402.PaymentRequired, error) {
	result, err := c.caller.CallTool(ctx, map[string]interface{}{
		"name":      name,
		"arguments": args,
	})
	if err != nil {
		if pr := paymentRequiredFromCallError(err); pr != nil {
			return pr, nil
		}
		return nil, fmt.Errorf("failed to call tool: %w", err)
	}

	return ExtractPaymentRequiredFromResult(result)
}

// ListTools lists available tools from the server
func (c *X402MCPClient) ListTools(ctx context.Context) (interface{}, error) {
	return c.caller.ListTools(ctx)
}

// Close closes the MCP session
func (c *X402MCPClient) Close(ctx context.Context) error {
	return c.caller.Close(ctx)
}

func buildToolCallResult(result MCPToolResult, paymentMade bool) *MCPToolCallResult {
	settleResponse, _ := ExtractPaymentResponseFromMeta(result)
	return &MCPToolCallResult{
		Content:         result.Content,
		IsError:         result.IsError,
		PaymentResponse: settleResponse,
		PaymentMade:     paymentMade || settleResponse != nil,
	}
}
