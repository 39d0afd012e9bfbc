package evm

import (
	"log/slog"

	x402 "github.com/bankofai/x402/go"
)

// NetworkPattern is the wildcard covering every EVM chain
const NetworkPattern x402.Network = "eip155:*"

// ClientConfig holds configuration for creating an EVM x402 client
type ClientConfig struct {
	// The signer used for creating payment payloads
	Signer ClientSigner
	// Policies to apply to the client (optional)
	Policies []x402.PaymentPolicy
	// Network and token registries (optional, defaults to DefaultNetworks/DefaultTokens)
	Networks *NetworkRegistry
	Tokens   *TokenRegistry
	// AllowanceMode for the "exact" scheme (optional, defaults to AllowanceAuto)
	AllowanceMode AllowanceMode
	// Extra mechanism options, applied after the fields above
	Options []Option
	Logger  *slog.Logger
}

// NewClient creates an x402Client configured for EVM payments.
//
// Registers for eip155:*:
//   - "exact" with ExactPermitClient
//   - "native_exact" with NativeExactClient
//
// Example:
//
//	client := evm.NewClient(evm.ClientConfig{
//	    Signer:   mySigner,
//	    Networks: evm.DefaultNetworks().Register("eip155:8453", evm.NetworkConfig{...}),
//	})
func NewClient(config ClientConfig) *x402.X402Client {
	opts := []x402.ClientOption{}
	for _, policy := range config.Policies {
		opts = append(opts, x402.WithPolicy(policy))
	}
	if config.Logger != nil {
		opts = append(opts, x402.WithLogger(config.Logger))
	}

	client := x402.Newx402Client(opts...)
	RegisterClient(client, NetworkPattern, config.Signer, config.mechanismOptions()...)
	return client
}

// RegisterClient registers both EVM schemes for pattern on an existing client
func RegisterClient(client *x402.X402Client, pattern x402.Network, signer ClientSigner, opts ...Option) *x402.X402Client {
	return client.
		Register(pattern, NewExactPermitClient(signer, opts...)).
		Register(pattern, NewNativeExactClient(signer, opts...))
}

func (c ClientConfig) mechanismOptions() []Option {
	opts := []Option{WithNetworks(c.Networks), WithTokens(c.Tokens), WithLogger(c.Logger)}
	if c.AllowanceMode != "" {
		opts = append(opts, WithAllowanceMode(c.AllowanceMode))
	}
	return append(opts, c.Options...)
}
