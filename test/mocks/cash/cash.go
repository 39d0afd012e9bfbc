// Package cash is a chain-free payment mechanism for tests.
// A "signature" is the payer's name prefixed with "~".
package cash

import (
	"context"
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	x402 "github.com/bankofai/x402/go"
)

// Scheme and network of the cash mechanism
const (
	Scheme                = "cash"
	Network  x402.Network = "x402:cash"
)

// ============================================================================
// Cash Scheme Network Client
// ============================================================================

// SchemeNetworkClient implements the client side of the cash payment scheme
type SchemeNetworkClient struct {
	payer string
	calls atomic.Int64
}

// NewSchemeNetworkClient creates a new cash scheme client
func NewSchemeNetworkClient(payer string) *SchemeNetworkClient {
	return &SchemeNetworkClient{
		payer: payer,
	}
}

// Scheme returns the payment scheme identifier
func (c *SchemeNetworkClient) Scheme() string {
	return Scheme
}

// Calls returns how many payloads were created
func (c *SchemeNetworkClient) Calls() int {
	return int(c.calls.Load())
}

// CreatePaymentPayload creates a payment payload for the cash scheme
func (c *SchemeNetworkClient) CreatePaymentPayload(ctx context.Context, requirements x402.PaymentRequirements, extensions map[string]interface{}) (x402.PartialPaymentPayload, error) {
	c.calls.Add(1)
	validUntil := time.Now().Add(time.Duration(requirements.MaxTimeoutSeconds) * time.Second).Unix()

	return x402.PartialPaymentPayload{
		X402Version: x402.ProtocolVersion,
		Payload: map[string]interface{}{
			"signature":  fmt.Sprintf("~%s", c.payer),
			"validUntil": strconv.FormatInt(validUntil, 10),
			"name":       c.payer,
		},
	}, nil
}

// ============================================================================
// Offline settlement for test servers
// ============================================================================

// Settle checks a cash payload and returns the settlement a facilitator would report
func Settle(payload x402.PaymentPayload) x402.SettleResponse {
	requirements := payload.Accepted
	failed := func(reason string) x402.SettleResponse {
		return x402.SettleResponse{Success: false, ErrorReason: reason, Network: requirements.Network}
	}

	signature, ok := payload.Payload["signature"].(string)
	if !ok {
		return failed("missing_signature")
	}
	name, ok := payload.Payload["name"].(string)
	if !ok {
		return failed("missing_name")
	}
	if signature != fmt.Sprintf("~%s", name) {
		return failed("invalid_signature")
	}

	validUntilStr, _ := payload.Payload["validUntil"].(string)
	validUntil, err := strconv.ParseInt(validUntilStr, 10, 64)
	if err != nil {
		return failed("invalid_validUntil")
	}
	if validUntil < time.Now().Unix() {
		return failed("expired_signature")
	}

	return x402.SettleResponse{
		Success:     true,
		Transaction: fmt.Sprintf("%s transferred %s %s to %s", name, requirements.Amount, requirements.Asset, requirements.PayTo),
		Network:     requirements.Network,
		Payer:       name,
	}
}

// ============================================================================
// Helper Functions
// ============================================================================

// BuildPaymentRequirements creates a payment requirements object for the cash scheme
func BuildPaymentRequirements(payTo string, asset string, amount string) x402.PaymentRequirements {
	return x402.PaymentRequirements{
		Scheme:            Scheme,
		Network:           Network,
		Asset:             asset,
		Amount:            amount,
		PayTo:             payTo,
		MaxTimeoutSeconds: 1000,
	}
}

// BuildPaymentRequired wraps requirements into a version 2 envelope
func BuildPaymentRequired(url string, accepts ...x402.PaymentRequirements) x402.PaymentRequired {
	return x402.PaymentRequired{
		X402Version: x402.ProtocolVersion,
		Error:       "payment required",
		Resource:    &x402.ResourceInfo{URL: url, Description: "cash-paid resource", MimeType: "application/json"},
		Accepts:     accepts,
	}
}
