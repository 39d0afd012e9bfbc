// Package tron provides TRON support for the x402 payment client.
//
// TRON hashes EIP-712 typed data exactly like EVM chains, so the evm mechanisms are
// reused with base58check address conversion and TRON network and token tables.
package tron

import (
	"log/slog"

	x402 "github.com/bankofai/x402/go"
	"github.com/bankofai/x402/go/mechanisms/evm"
)

// ClientConfig holds configuration for creating a TRON x402 client
type ClientConfig struct {
	Signer   evm.ClientSigner
	Policies []x402.PaymentPolicy
	// Optional, default to DefaultNetworks/DefaultTokens
	Networks      *evm.NetworkRegistry
	Tokens        *evm.TokenRegistry
	AllowanceMode evm.AllowanceMode
	Logger        *slog.Logger
}

// NewClient creates an x402Client registering "exact" and "native_exact" for tron:*
func NewClient(config ClientConfig) *x402.X402Client {
	opts := []x402.ClientOption{}
	for _, policy := range config.Policies {
		opts = append(opts, x402.WithPolicy(policy))
	}
	if config.Logger != nil {
		opts = append(opts, x402.WithLogger(config.Logger))
	}

	client := x402.Newx402Client(opts...)
	return RegisterClient(client, config.Signer, config.mechanismOptions()...)
}

// RegisterClient registers both TRON schemes on an existing client.
// opts are applied after the TRON defaults.
func RegisterClient(client *x402.X402Client, signer evm.ClientSigner, opts ...evm.Option) *x402.X402Client {
	return evm.RegisterClient(client, NetworkPattern, signer, MechanismOptions(opts...)...)
}

// MechanismOptions returns the evm options that retarget a mechanism to TRON
func MechanismOptions(extra ...evm.Option) []evm.Option {
	opts := []evm.Option{
		evm.WithAddressConverter(AddressConverter{}),
		evm.WithNetworks(DefaultNetworks()),
		evm.WithTokens(DefaultTokens()),
	}
	return append(opts, extra...)
}

func (c ClientConfig) mechanismOptions() []evm.Option {
	opts := []evm.Option{evm.WithNetworks(c.Networks), evm.WithTokens(c.Tokens), evm.WithLogger(c.Logger)}
	if c.AllowanceMode != "" {
		opts = append(opts, evm.WithAllowanceMode(c.AllowanceMode))
	}
	return opts
}
