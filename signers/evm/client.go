package evm

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	x402 "github.com/bankofai/x402/go"
	x402evm "github.com/bankofai/x402/go/mechanisms/evm"
)

// ClientSigner implements x402evm.ClientSigner using an ECDSA private key.
// Signing is local; balance, allowance and approval go through a per-network ChainBackend.
type ClientSigner struct {
	privateKey *ecdsa.PrivateKey
	address    common.Address
	opts       *options

	mu       sync.Mutex
	backends map[x402.Network]ChainBackend
}

// NewClientSignerFromPrivateKey creates a client signer from a hex-encoded private key.
//
// Args:
//
//	privateKeyHex: Hex-encoded private key (with or without "0x" prefix)
//
// Example:
//
//	signer, err := evm.NewClientSignerFromPrivateKey(os.Getenv("EVM_PRIVATE_KEY"),
//	    evm.WithRPC("eip155:8453", "https://mainnet.base.org"))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	client := x402evm.NewClient(x402evm.ClientConfig{Signer: signer})
func NewClientSignerFromPrivateKey(privateKeyHex string, opts ...Option) (*ClientSigner, error) {
	privateKey, err := crypto.HexToECDSA(strings.TrimPrefix(privateKeyHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}
	return NewClientSigner(privateKey, opts...), nil
}

// NewClientSigner creates a client signer from a parsed key
func NewClientSigner(privateKey *ecdsa.PrivateKey, opts ...Option) *ClientSigner {
	return &ClientSigner{
		privateKey: privateKey,
		address:    crypto.PubkeyToAddress(privateKey.PublicKey),
		opts:       newOptions(opts),
		backends:   make(map[x402.Network]ChainBackend),
	}
}

// Address returns the checksummed Ethereum address of the signer.
func (s *ClientSigner) Address() string {
	return s.address.Hex()
}

// SignMessage signs message as an EIP-191 personal message
func (s *ClientSigner) SignMessage(ctx context.Context, message []byte) ([]byte, error) {
	signature, err := crypto.Sign(accounts.TextHash(message), s.privateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to sign: %w", err)
	}
	signature[64] += 27
	return signature, nil
}

// SignTypedData signs EIP-712 typed data.
//
// Returns the 65-byte signature (r, s, v) with v in {27, 28}.
func (s *ClientSigner) SignTypedData(
	ctx context.Context,
	domain x402evm.TypedDataDomain,
	types map[string][]x402evm.TypedDataField,
	primaryType string,
	message map[string]interface{},
) ([]byte, error) {
	digest, err := x402evm.HashTypedData(domain, types, primaryType, message)
	if err != nil {
		return nil, err
	}

	signature, err := crypto.Sign(digest, s.privateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to sign: %w", err)
	}

	// Adjust v value for Ethereum (recovery ID 0/1 → 27/28)
	signature[64] += 27

	return signature, nil
}

// CheckBalance returns the ERC-20 balance of the signer
func (s *ClientSigner) CheckBalance(ctx context.Context, asset string, network x402.Network) (*big.Int, error) {
	backend, err := s.backend(ctx, network)
	if err != nil {
		return nil, err
	}
	return readUint256(ctx, backend, common.HexToAddress(asset), "balanceOf", s.address)
}

// CheckAllowance returns the allowance the signer granted spender on asset
func (s *ClientSigner) CheckAllowance(ctx context.Context, asset, spender string, network x402.Network) (*big.Int, error) {
	spenderAddr, err := parseSpender(spender)
	if err != nil {
		return nil, err
	}
	backend, err := s.backend(ctx, network)
	if err != nil {
		return nil, err
	}
	return readUint256(ctx, backend, common.HexToAddress(asset), "allowance", s.address, spenderAddr)
}

// EnsureAllowance makes sure spender may pull amount.
//
//   - AllowanceSkip: no check
//   - AllowanceInteractive: ErrInsufficientAllowance when short
//   - AllowanceAuto: approve MaxApproval and wait for a successful receipt
func (s *ClientSigner) EnsureAllowance(ctx context.Context, asset, spender string, amount *big.Int, network x402.Network, mode x402evm.AllowanceMode) error {
	if mode == x402evm.AllowanceSkip {
		return nil
	}

	current, err := s.CheckAllowance(ctx, asset, spender, network)
	if err != nil {
		return err
	}
	if current.Cmp(amount) >= 0 {
		return nil
	}

	short := x402.ErrInsufficientAllowance.
		WithDetails("current", current.String()).
		WithDetails("required", amount.String())
	if mode == x402evm.AllowanceInteractive {
		return short
	}

	s.opts.logger.Info("insufficient allowance, submitting approval",
		"asset", asset, "spender", spender, "network", network, "current", current.String(), "required", amount.String())

	receipt, err := s.approve(ctx, asset, common.HexToAddress(spender), network)
	if err != nil {
		return x402.WrapPaymentError(x402.ErrCodeInsufficientAllowance, "approval failed", err)
	}
	if receipt.Status != x402evm.TxStatusSuccess {
		return short.WithDetails("transaction", receipt.TxHash)
	}

	s.opts.logger.Info("approval confirmed", "transaction", receipt.TxHash, "block", receipt.BlockNumber)
	return nil
}

func parseSpender(spender string) (common.Address, error) {
	if !common.IsHexAddress(spender) {
		return common.Address{}, fmt.Errorf("invalid spender address %q", spender)
	}
	return common.HexToAddress(spender), nil
}

// backend returns the chain backend of a network, dialing it on first use
func (s *ClientSigner) backend(ctx context.Context, network x402.Network) (ChainBackend, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if backend, ok := s.backends[network]; ok {
		return backend, nil
	}

	for _, endpoint := range s.opts.endpoints {
		if !network.Match(endpoint.pattern) {
			continue
		}
		backend := endpoint.backend
		if backend == nil {
			dialed, err := s.opts.dial(ctx, endpoint.url)
			if err != nil {
				return nil, fmt.Errorf("failed to dial %s: %w", network, err)
			}
			backend = dialed
		}
		s.backends[network] = backend
		return backend, nil
	}
	return nil, fmt.Errorf("no RPC configured for network %s", network)
}

func (s *ClientSigner) waitForReceipt(ctx context.Context, backend ChainBackend, hash common.Hash) (*x402evm.TransactionReceipt, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opts.receiptTimeout)
	defer cancel()

	ticker := time.NewTicker(s.opts.pollInterval)
	defer ticker.Stop()

	for {
		receipt, err := backend.TransactionReceipt(ctx, hash)
		if err == nil && receipt != nil {
			var block uint64
			if receipt.BlockNumber != nil {
				block = receipt.BlockNumber.Uint64()
			}
			return &x402evm.TransactionReceipt{
				Status:      receipt.Status,
				BlockNumber: block,
				TxHash:      receipt.TxHash.Hex(),
			}, nil
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("transaction %s not mined: %w", hash.Hex(), ctx.Err())
		case <-ticker.C:
		}
	}
}
