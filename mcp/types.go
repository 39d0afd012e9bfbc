package mcp

import (
	"log/slog"

	x402 "github.com/bankofai/x402/go"
)

// Protocol constants for MCP x402 payment integration.
const (
	// MCP_PAYMENT_REQUIRED_CODE is the JSON-RPC error code for payment required (x402)
	MCP_PAYMENT_REQUIRED_CODE = 402

	// MCP_PAYMENT_META_KEY is the MCP _meta key for payment payload (client → server)
	MCP_PAYMENT_META_KEY = "x402/payment"

	// MCP_PAYMENT_RESPONSE_META_KEY is the MCP _meta key for payment response (server → client)
	MCP_PAYMENT_RESPONSE_META_KEY = "x402/payment-response"
)

// PaymentRequiredContext is provided to onPaymentRequired hooks
type PaymentRequiredContext struct {
	ToolName        string
	Arguments       map[string]interface{}
	PaymentRequired x402.PaymentRequired
}

// PaymentRequiredHookResult is returned from payment required hooks
type PaymentRequiredHookResult struct {
	Payment *x402.PaymentPayload
	Abort   bool
}

// PaymentRequiredHook is called when a tool answers with a payment-required result
type PaymentRequiredHook func(context PaymentRequiredContext) (*PaymentRequiredHookResult, error)

// BeforePaymentHook is called before payment is created
type BeforePaymentHook func(context PaymentRequiredContext) error

// AfterPaymentHook is called after the paid call returned
type AfterPaymentHook func(context AfterPaymentContext) error

// AfterPaymentContext is provided to after payment hooks
type AfterPaymentContext struct {
	ToolName       string
	PaymentPayload x402.PaymentPayload
	Result         MCPToolResult
	SettleResponse *x402.SettleResponse
}

// Options configures X402MCPClient behavior
type Options struct {
	// AutoPayment pays without asking. When nil, defaults to true.
	// With AutoPayment off, OnPaymentRequested must approve every payment.
	AutoPayment *bool

	// OnPaymentRequested is called before creating a payment, allowing the caller
	// to approve or deny. Return (true, nil) to approve, (false, nil) to deny.
	OnPaymentRequested func(context PaymentRequiredContext) (bool, error)

	Logger *slog.Logger
}

// BoolPtr returns a pointer to the given bool value.
//
// Example:
//
//	options := mcp.Options{AutoPayment: mcp.BoolPtr(false)}
func BoolPtr(b bool) *bool {
	return &b
}

// MCPToolResult represents an MCP tool call result
type MCPToolResult struct {
	Content           []MCPContentItem
	IsError           bool
	Meta              map[string]interface{}
	StructuredContent map[string]interface{}
}

// MCPContentItem represents an MCP content item
type MCPContentItem struct {
	Type string
	Text string
}

// MCPToolCallResult represents the result of a tool call with payment metadata
type MCPToolCallResult struct {
	Content         []MCPContentItem
	IsError         bool
	PaymentResponse *x402.SettleResponse
	PaymentMade     bool
}

// PaymentRequiredError is returned when a tool requires a payment the client did not make
type PaymentRequiredError struct {
	Code            int
	Message         string
	PaymentRequired *x402.PaymentRequired
}

func (e *PaymentRequiredError) Error() string {
	return e.Message
}

// SchemeRegistration represents a payment scheme registration
type SchemeRegistration struct {
	Network x402.Network
	Client  x402.SchemeNetworkClient
}
