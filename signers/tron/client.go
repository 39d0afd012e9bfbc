package tron

import (
	"context"
	"crypto/ecdsa"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	x402 "github.com/bankofai/x402/go"
	x402evm "github.com/bankofai/x402/go/mechanisms/evm"
	"github.com/bankofai/x402/go/mechanisms/tron"
)

// approvalFeeLimit caps the energy cost of an approval, in sun
const approvalFeeLimit = 100_000_000

var erc20ABI = mustParseABI(x402evm.ERC20ABI)

func mustParseABI(data []byte) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(string(data)))
	if err != nil {
		panic(fmt.Sprintf("invalid TRC-20 ABI: %v", err))
	}
	return parsed
}

// ClientSigner implements x402evm.ClientSigner for TRON with a local secp256k1 key.
// Typed data is signed exactly as on EVM; chain access uses the full-node HTTP API.
type ClientSigner struct {
	privateKey *ecdsa.PrivateKey
	account    common.Address
	address    string
	opts       *options

	mu    sync.Mutex
	nodes map[x402.Network]*FullNode
}

// NewClientSignerFromPrivateKey creates a TRON signer from a hex-encoded private key
//
// Example:
//
//	signer, err := tron.NewClientSignerFromPrivateKey(os.Getenv("TRON_PRIVATE_KEY"),
//	    tron.WithAPIKey(os.Getenv("TRONGRID_API_KEY")))
func NewClientSignerFromPrivateKey(privateKeyHex string, opts ...Option) (*ClientSigner, error) {
	privateKey, err := crypto.HexToECDSA(strings.TrimPrefix(privateKeyHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}
	account := crypto.PubkeyToAddress(privateKey.PublicKey)
	return &ClientSigner{
		privateKey: privateKey,
		account:    account,
		address:    tron.EncodeAddress(account),
		opts:       newOptions(opts),
		nodes:      make(map[x402.Network]*FullNode),
	}, nil
}

// Address returns the base58check TRON address
func (s *ClientSigner) Address() string {
	return s.address
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

// SignTypedData signs EIP-712 typed data; the message must carry 0x-hex addresses
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
	signature[64] += 27
	return signature, nil
}

// CheckBalance returns the TRC-20 balance of the signer
func (s *ClientSigner) CheckBalance(ctx context.Context, asset string, network x402.Network) (*big.Int, error) {
	return s.readUint256(ctx, network, asset, "balanceOf", s.account)
}

// CheckAllowance returns the allowance the signer granted spender on asset
func (s *ClientSigner) CheckAllowance(ctx context.Context, asset, spender string, network x402.Network) (*big.Int, error) {
	spenderAddr, err := tron.ParseAddress(spender)
	if err != nil {
		return nil, fmt.Errorf("invalid spender address %q: %w", spender, err)
	}
	return s.readUint256(ctx, network, asset, "allowance", s.account, spenderAddr)
}

// EnsureAllowance makes sure spender may pull amount, according to mode
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

	info, err := s.approve(ctx, asset, spender, network)
	if err != nil {
		return x402.WrapPaymentError(x402.ErrCodeInsufficientAllowance, "approval failed", err)
	}
	if !info.Succeeded() {
		return short.WithDetails("transaction", info.ID).WithDetails("receipt", info.Receipt.Result)
	}

	s.opts.logger.Info("approval confirmed", "transaction", info.ID, "block", info.BlockNumber)
	return nil
}

func (s *ClientSigner) approve(ctx context.Context, asset, spender string, network x402.Network) (*TransactionInfo, error) {
	spenderAddr, err := tron.ParseAddress(spender)
	if err != nil {
		return nil, err
	}
	node, err := s.node(network)
	if err != nil {
		return nil, err
	}

	parameter, err := packArgs("approve", spenderAddr, x402evm.MaxApproval)
	if err != nil {
		return nil, err
	}
	tx, err := node.TriggerSmartContract(ctx, ContractCall{
		OwnerAddress:     s.address,
		ContractAddress:  asset,
		FunctionSelector: erc20ABI.Methods["approve"].Sig,
		Parameter:        parameter,
		FeeLimit:         approvalFeeLimit,
		Visible:          true,
	})
	if err != nil {
		return nil, err
	}

	if err := s.signTransaction(tx); err != nil {
		return nil, err
	}
	if err := node.BroadcastTransaction(ctx, tx); err != nil {
		return nil, err
	}

	s.opts.logger.Debug("approval broadcast", "transaction", tx.TxID, "network", network)
	return s.waitForInfo(ctx, node, tx.TxID)
}

// signTransaction signs the transaction id, which is sha256(raw_data)
func (s *ClientSigner) signTransaction(tx *Transaction) error {
	txID, err := hex.DecodeString(tx.TxID)
	if err != nil || len(txID) != 32 {
		return fmt.Errorf("invalid transaction id %q", tx.TxID)
	}
	if tx.RawDataHex != "" {
		raw, err := hex.DecodeString(tx.RawDataHex)
		if err != nil {
			return fmt.Errorf("invalid raw_data_hex: %w", err)
		}
		if sum := sha256.Sum256(raw); !strings.EqualFold(hex.EncodeToString(sum[:]), tx.TxID) {
			return fmt.Errorf("transaction id does not match raw data")
		}
	}

	signature, err := crypto.Sign(txID, s.privateKey)
	if err != nil {
		return fmt.Errorf("failed to sign transaction: %w", err)
	}
	tx.Signature = append(tx.Signature, hex.EncodeToString(signature))
	return nil
}

func (s *ClientSigner) waitForInfo(ctx context.Context, node *FullNode, txID string) (*TransactionInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opts.receiptTimeout)
	defer cancel()

	ticker := time.NewTicker(s.opts.pollInterval)
	defer ticker.Stop()

	for {
		info, err := node.GetTransactionInfoByID(ctx, txID)
		if err == nil && info != nil {
			return info, nil
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("transaction %s not confirmed: %w", txID, ctx.Err())
		case <-ticker.C:
		}
	}
}

func (s *ClientSigner) readUint256(ctx context.Context, network x402.Network, asset, method string, args ...interface{}) (*big.Int, error) {
	node, err := s.node(network)
	if err != nil {
		return nil, err
	}
	parameter, err := packArgs(method, args...)
	if err != nil {
		return nil, err
	}

	result, err := node.TriggerConstantContract(ctx, ContractCall{
		OwnerAddress:     s.address,
		ContractAddress:  asset,
		FunctionSelector: erc20ABI.Methods[method].Sig,
		Parameter:        parameter,
		Visible:          true,
	})
	if err != nil {
		return nil, err
	}

	outputs, err := erc20ABI.Unpack(method, result)
	if err != nil {
		return nil, fmt.Errorf("failed to unpack %s: %w", method, err)
	}
	value, ok := outputs[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unexpected %s result type: %T", method, outputs[0])
	}
	return value, nil
}

func (s *ClientSigner) node(network x402.Network) (*FullNode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if node, ok := s.nodes[network]; ok {
		return node, nil
	}
	for _, endpoint := range s.opts.endpoints {
		if network.Match(endpoint.pattern) {
			node := NewFullNode(endpoint.url, s.opts.apiKey, s.opts.httpClient)
			s.nodes[network] = node
			return node, nil
		}
	}
	return nil, fmt.Errorf("no full node configured for network %s", network)
}

// packArgs ABI-encodes arguments without the method selector
func packArgs(method string, args ...interface{}) (string, error) {
	packed, err := erc20ABI.Methods[method].Inputs.Pack(args...)
	if err != nil {
		return "", fmt.Errorf("failed to pack %s: %w", method, err)
	}
	return hex.EncodeToString(packed), nil
}
