package evm

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	x402 "github.com/bankofai/x402/go"
)

// AllowanceMode controls how a signer reacts to an insufficient token allowance
type AllowanceMode string

const (
	// AllowanceAuto submits a max approval and waits for its receipt
	AllowanceAuto AllowanceMode = "auto"
	// AllowanceInteractive fails with ErrInsufficientAllowance instead of transacting
	AllowanceInteractive AllowanceMode = "interactive"
	// AllowanceSkip performs no check at all
	AllowanceSkip AllowanceMode = "skip"
)

// ClientSigner is the wallet capability consumed by the payment mechanisms.
// Software keys, hardware wallets and remote signers implement it independently.
type ClientSigner interface {
	// Address returns the signer address in the chain's native format.
	// It must not change during the signer's lifetime.
	Address() string

	// SignMessage signs raw bytes
	SignMessage(ctx context.Context, message []byte) ([]byte, error)

	// SignTypedData signs EIP-712 typed data
	SignTypedData(
		ctx context.Context,
		domain TypedDataDomain,
		types map[string][]TypedDataField,
		primaryType string,
		message map[string]interface{},
	) ([]byte, error)

	// CheckBalance returns the token balance of the signer. Query failures are returned, never coerced to zero.
	CheckBalance(ctx context.Context, asset string, network x402.Network) (*big.Int, error)

	// CheckAllowance returns the allowance the signer granted spender on asset.
	// spender is in the chain's native address format.
	CheckAllowance(ctx context.Context, asset, spender string, network x402.Network) (*big.Int, error)

	// EnsureAllowance makes sure spender may pull at least amount, according to mode.
	// The mechanism passes the PaymentPermit contract named in the signed permit.
	EnsureAllowance(ctx context.Context, asset, spender string, amount *big.Int, network x402.Network, mode AllowanceMode) error
}

// TypedDataDomain represents the EIP-712 domain.
// Empty fields are left out of the domain type, so a domain without Version
// hashes as EIP712Domain(string name,uint256 chainId,address verifyingContract).
type TypedDataDomain struct {
	Name              string   `json:"name,omitempty"`
	Version           string   `json:"version,omitempty"`
	ChainID           *big.Int `json:"chainId,omitempty"`
	VerifyingContract string   `json:"verifyingContract,omitempty"`
}

// TypedDataField represents a field in EIP-712 typed data
type TypedDataField struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// TransactionReceipt is the part of a receipt signers report back
type TransactionReceipt struct {
	Status      uint64 `json:"status"`
	BlockNumber uint64 `json:"blockNumber"`
	TxHash      string `json:"transactionHash"`
}

// AddressConverter translates native addresses into the 0x-hex form used by EIP-712
type AddressConverter interface {
	// ToHex returns the 20-byte address as 0x-prefixed hex
	ToHex(address string) (string, error)
	// ZeroAddress returns the zero address in native format
	ZeroAddress() string
}

// EvmAddressConverter handles plain 0x-hex addresses
type EvmAddressConverter struct{}

// ToHex validates and checksums an EVM address
func (EvmAddressConverter) ToHex(address string) (string, error) {
	if !common.IsHexAddress(address) {
		return "", fmt.Errorf("invalid EVM address: %q", address)
	}
	return common.HexToAddress(address).Hex(), nil
}

// ZeroAddress returns the EVM zero address
func (EvmAddressConverter) ZeroAddress() string {
	return ZeroAddress
}
