package evm

import (
	"math/big"
	"time"
)

const (
	// Scheme identifiers
	SchemeExact       = "exact"
	SchemeNativeExact = "native_exact"

	// PaymentPermit EIP-712 domain name and primary type
	PaymentPermitDomainName  = "PaymentPermit"
	PaymentPermitPrimaryType = "PaymentPermitDetails"

	// EIP-3009 primary type
	TransferWithAuthorizationPrimaryType = "TransferWithAuthorization"

	// ZeroAddress is the EVM zero address
	ZeroAddress = "0x0000000000000000000000000000000000000000"

	// Transaction status
	TxStatusSuccess = 1
	TxStatusFailed  = 0

	// DefaultValidityPeriod is the transfer authorization window length
	DefaultValidityPeriod = time.Hour

	// ValidAfterSkew back-dates validAfter; tokens require block.timestamp > validAfter
	ValidAfterSkew = 30 * time.Second

	// DefaultTokenVersion is used when neither requirements nor registry name a version
	DefaultTokenVersion = "1"
)

var (
	// MaxApproval is the allowance granted by automatic approvals (2^160 - 1)
	MaxApproval = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 160), big.NewInt(1))

	// PaymentPermitTypes are the EIP-712 types checked by the PaymentPermit contract
	PaymentPermitTypes = map[string][]TypedDataField{
		"PermitMeta": {
			{Name: "kind", Type: "uint8"},
			{Name: "paymentId", Type: "bytes16"},
			{Name: "nonce", Type: "uint256"},
			{Name: "validAfter", Type: "uint256"},
			{Name: "validBefore", Type: "uint256"},
		},
		"Payment": {
			{Name: "payToken", Type: "address"},
			{Name: "payAmount", Type: "uint256"},
			{Name: "payTo", Type: "address"},
		},
		"Fee": {
			{Name: "feeTo", Type: "address"},
			{Name: "feeAmount", Type: "uint256"},
		},
		"PaymentPermitDetails": {
			{Name: "meta", Type: "PermitMeta"},
			{Name: "buyer", Type: "address"},
			{Name: "caller", Type: "address"},
			{Name: "payment", Type: "Payment"},
			{Name: "fee", Type: "Fee"},
		},
	}

	// TransferWithAuthorizationTypes are the EIP-3009 types
	TransferWithAuthorizationTypes = map[string][]TypedDataField{
		"TransferWithAuthorization": {
			{Name: "from", Type: "address"},
			{Name: "to", Type: "address"},
			{Name: "value", Type: "uint256"},
			{Name: "validAfter", Type: "uint256"},
			{Name: "validBefore", Type: "uint256"},
			{Name: "nonce", Type: "bytes32"},
		},
	}

	// ERC20ABI covers the calls signers make against payment tokens
	ERC20ABI = []byte(`[
		{
			"inputs": [{"name": "account", "type": "address"}],
			"name": "balanceOf",
			"outputs": [{"name": "", "type": "uint256"}],
			"stateMutability": "view",
			"type": "function"
		},
		{
			"inputs": [
				{"name": "owner", "type": "address"},
				{"name": "spender", "type": "address"}
			],
			"name": "allowance",
			"outputs": [{"name": "", "type": "uint256"}],
			"stateMutability": "view",
			"type": "function"
		},
		{
			"inputs": [
				{"name": "spender", "type": "address"},
				{"name": "amount", "type": "uint256"}
			],
			"name": "approve",
			"outputs": [{"name": "", "type": "bool"}],
			"stateMutability": "nonpayable",
			"type": "function"
		}
	]`)
)
