package evm

import (
	"fmt"
	"math/big"
	"strings"
	"sync"

	x402 "github.com/bankofai/x402/go"
)

// NetworkConfig is the per-network data needed to build typed data
type NetworkConfig struct {
	ChainID *big.Int
	// PaymentPermit is the PaymentPermit contract (the allowance spender) in native format
	PaymentPermit string
}

// NetworkRegistry maps network ids to chain configuration.
// Entries are added explicitly with Register.
type NetworkRegistry struct {
	mu       sync.RWMutex
	networks map[x402.Network]NetworkConfig
}

// NewNetworkRegistry creates an empty registry
func NewNetworkRegistry() *NetworkRegistry {
	return &NetworkRegistry{networks: make(map[x402.Network]NetworkConfig)}
}

// DefaultNetworks returns a registry with the well-known EVM networks.
// No PaymentPermit deployment is assumed; register one before using the "exact" scheme.
func DefaultNetworks() *NetworkRegistry {
	return NewNetworkRegistry().
		Register("eip155:1", NetworkConfig{ChainID: big.NewInt(1)}).
		Register("eip155:8453", NetworkConfig{ChainID: big.NewInt(8453)}).
		Register("eip155:84532", NetworkConfig{ChainID: big.NewInt(84532)}).
		Register("eip155:56", NetworkConfig{ChainID: big.NewInt(56)}).
		Register("eip155:97", NetworkConfig{ChainID: big.NewInt(97)})
}

// Register adds or replaces a network entry
func (r *NetworkRegistry) Register(network x402.Network, config NetworkConfig) *NetworkRegistry {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.networks[network] = config
	return r
}

// Lookup returns the entry registered for network
func (r *NetworkRegistry) Lookup(network x402.Network) (NetworkConfig, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	config, ok := r.networks[network]
	return config, ok
}

// ChainID resolves the chain id of a network.
// Registered entries win; otherwise a decimal CAIP-2 reference is used as-is.
func (r *NetworkRegistry) ChainID(network x402.Network) (*big.Int, error) {
	if config, ok := r.Lookup(network); ok && config.ChainID != nil {
		return new(big.Int).Set(config.ChainID), nil
	}

	_, reference, err := network.Parse()
	if err != nil {
		return nil, x402.WrapPaymentError(x402.ErrCodeUnsupportedNetwork, string(network), err)
	}
	chainID, ok := new(big.Int).SetString(reference, 10)
	if !ok || chainID.Sign() <= 0 {
		return nil, x402.NewPaymentError(x402.ErrCodeUnsupportedNetwork,
			fmt.Sprintf("unknown chain id for network %s", network), nil)
	}
	return chainID, nil
}

// PaymentPermitAddress returns the PaymentPermit contract of a network
func (r *NetworkRegistry) PaymentPermitAddress(network x402.Network) (string, error) {
	config, ok := r.Lookup(network)
	if !ok || config.PaymentPermit == "" {
		return "", x402.NewPaymentError(x402.ErrCodeUnsupportedNetwork,
			fmt.Sprintf("no PaymentPermit contract configured for network %s", network), nil)
	}
	return config.PaymentPermit, nil
}

// TokenInfo describes a payment token
type TokenInfo struct {
	Address  string
	Symbol   string
	Decimals int
	// Name and Version form the token's EIP-712 domain
	Name    string
	Version string
}

// TokenRegistry maps (network, token address) to token metadata
type TokenRegistry struct {
	mu     sync.RWMutex
	tokens map[x402.Network]map[string]TokenInfo
}

// NewTokenRegistry creates an empty registry
func NewTokenRegistry() *TokenRegistry {
	return &TokenRegistry{tokens: make(map[x402.Network]map[string]TokenInfo)}
}

// DefaultTokens returns a registry with USDC on Base and Base Sepolia
func DefaultTokens() *TokenRegistry {
	return NewTokenRegistry().
		Register("eip155:8453", TokenInfo{
			Address:  "0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913",
			Symbol:   "USDC",
			Decimals: 6,
			Name:     "USD Coin",
			Version:  "2",
		}).
		Register("eip155:84532", TokenInfo{
			Address:  "0x036CbD53842c5426634e7929541eC2318f3dCF7e",
			Symbol:   "USDC",
			Decimals: 6,
			Name:     "USDC",
			Version:  "2",
		})
}

// Register adds or replaces a token entry
func (r *TokenRegistry) Register(network x402.Network, token TokenInfo) *TokenRegistry {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.tokens[network] == nil {
		r.tokens[network] = make(map[string]TokenInfo)
	}
	r.tokens[network][tokenKey(token.Address)] = token
	return r
}

// Lookup returns the token registered at address on network
func (r *TokenRegistry) Lookup(network x402.Network, address string) (TokenInfo, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	token, ok := r.tokens[network][tokenKey(address)]
	return token, ok
}

// tokenKey folds hex addresses; base58 addresses are case-sensitive and kept as-is
func tokenKey(address string) string {
	if strings.HasPrefix(address, "0x") || strings.HasPrefix(address, "0X") {
		return strings.ToLower(address)
	}
	return address
}
