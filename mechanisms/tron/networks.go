package tron

import (
	"math/big"

	x402 "github.com/bankofai/x402/go"
	"github.com/bankofai/x402/go/mechanisms/evm"
)

// TRON networks (CAIP-2)
const (
	Mainnet x402.Network = "tron:728126428"
	Shasta  x402.Network = "tron:2494104990"
	Nile    x402.Network = "tron:3448148188"

	MainnetAlias x402.Network = "tron:mainnet"
	ShastaAlias  x402.Network = "tron:shasta"
	NileAlias    x402.Network = "tron:nile"
)

// NetworkPattern is the wildcard covering every TRON network
const NetworkPattern x402.Network = "tron:*"

// NilePaymentPermit is the PaymentPermit deployment on nile
const NilePaymentPermit = "TCR6EaRtLRYjWPr7YWHqt4uL81rfevtE8p"

var (
	chainIDMainnet = big.NewInt(728126428)
	chainIDShasta  = big.NewInt(2494104990)
	chainIDNile    = big.NewInt(3448148188)
)

// DefaultNetworks returns the TRON networks, keyed by chain id and by name alias.
// Only nile has a known PaymentPermit deployment.
func DefaultNetworks() *evm.NetworkRegistry {
	mainnet := evm.NetworkConfig{ChainID: chainIDMainnet}
	shasta := evm.NetworkConfig{ChainID: chainIDShasta}
	nile := evm.NetworkConfig{ChainID: chainIDNile, PaymentPermit: NilePaymentPermit}

	return evm.NewNetworkRegistry().
		Register(Mainnet, mainnet).
		Register(MainnetAlias, mainnet).
		Register(Shasta, shasta).
		Register(ShastaAlias, shasta).
		Register(Nile, nile).
		Register(NileAlias, nile)
}

// DefaultTokens returns USDT on mainnet, shasta and nile
func DefaultTokens() *evm.TokenRegistry {
	usdt := func(address string) evm.TokenInfo {
		return evm.TokenInfo{
			Address:  address,
			Symbol:   "USDT",
			Decimals: 6,
			Name:     "Tether USD",
			Version:  "1",
		}
	}

	registry := evm.NewTokenRegistry()
	for _, network := range []x402.Network{Mainnet, MainnetAlias} {
		registry.Register(network, usdt("TR7NHqjeKQxGTCi8q8ZY4pL8otSzgjLj6t"))
	}
	for _, network := range []x402.Network{Shasta, ShastaAlias} {
		registry.Register(network, usdt("TG3XXyExBkPp9nzdajDZsozEu4BkaSJozs"))
	}
	for _, network := range []x402.Network{Nile, NileAlias} {
		registry.Register(network, usdt("TXYZopYRdj2D9XRtbG411XZZ3kM5VkAeBf"))
	}
	return registry
}
