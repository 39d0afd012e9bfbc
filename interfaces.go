package x402

import (
	"context"
	"math/big"
)

// SchemeNetworkClient is implemented by client-side payment mechanisms.
// A mechanism builds and signs the scheme-specific part of a payment payload;
// the X402Client wraps it with the accepted requirements, resource and extensions.
type SchemeNetworkClient interface {
	// Scheme returns the scheme identifier (e.g. "exact", "native_exact")
	Scheme() string

	// CreatePaymentPayload signs a payment for the selected requirements.
	// extensions are the ones declared by the server in the 402 envelope.
	CreatePaymentPayload(ctx context.Context, requirements PaymentRequirements, extensions map[string]interface{}) (PartialPaymentPayload, error)
}

// PaymentPolicy filters and/or reorders the offers of a 402 envelope before
// a mechanism is selected. Policies may query chain state.
type PaymentPolicy interface {
	Apply(ctx context.Context, requirements []PaymentRequirements) ([]PaymentRequirements, error)
}

// PaymentPolicyFunc adapts a function to the PaymentPolicy interface
type PaymentPolicyFunc func(ctx context.Context, requirements []PaymentRequirements) ([]PaymentRequirements, error)

// Apply calls f
func (f PaymentPolicyFunc) Apply(ctx context.Context, requirements []PaymentRequirements) ([]PaymentRequirements, error) {
	return f(ctx, requirements)
}

// BalanceChecker is the part of a signer used by balance-aware policies
type BalanceChecker interface {
	CheckBalance(ctx context.Context, asset string, network Network) (*big.Int, error)
}

// ClientExtension enriches outgoing payment payloads for a protocol extension.
// Enrich is only called when the server declared the extension key.
type ClientExtension interface {
	Key() string
	EnrichPaymentPayload(ctx context.Context, payload PaymentPayload, declaration interface{}) (PaymentPayload, error)
}
