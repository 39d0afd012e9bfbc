package paymentidentifier

import (
	"context"

	x402 "github.com/bankofai/x402/go"
)

// ClientExtension attaches a fresh payment id to every payload sent to a server
// that declared payment-identifier
type ClientExtension struct {
	prefix   string
	generate func(prefix string) string
}

// Option configures a ClientExtension
type Option func(*ClientExtension)

// WithPrefix sets the id prefix (default "pay_")
func WithPrefix(prefix string) Option {
	return func(e *ClientExtension) {
		e.prefix = prefix
	}
}

// WithIDGenerator replaces the UUID-based generator
func WithIDGenerator(generate func(prefix string) string) Option {
	return func(e *ClientExtension) {
		if generate != nil {
			e.generate = generate
		}
	}
}

// NewClientExtension creates the extension
//
// Example:
//
//	client := x402.Newx402Client(x402.WithExtension(paymentidentifier.NewClientExtension()))
func NewClientExtension(opts ...Option) *ClientExtension {
	e := &ClientExtension{generate: GeneratePaymentID}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Key implements x402.ClientExtension
func (e *ClientExtension) Key() string {
	return PAYMENT_IDENTIFIER
}

// EnrichPaymentPayload implements x402.ClientExtension.
// The required flag of the declaration is echoed back; a malformed declaration counts as optional.
func (e *ClientExtension) EnrichPaymentPayload(ctx context.Context, payload x402.PaymentPayload, declaration interface{}) (x402.PaymentPayload, error) {
	extensions, err := AppendPaymentIdentifierToExtensions(payload.Extensions, e.generate(e.prefix))
	if err != nil {
		return payload, err
	}
	payload.Extensions = extensions
	return payload, nil
}

var _ x402.ClientExtension = (*ClientExtension)(nil)
