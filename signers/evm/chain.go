package evm

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	x402 "github.com/bankofai/x402/go"
	x402evm "github.com/bankofai/x402/go/mechanisms/evm"
)

// ChainBackend is the part of *ethclient.Client used by the signer
type ChainBackend interface {
	CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	EstimateGas(ctx context.Context, call ethereum.CallMsg) (uint64, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasTipCap(ctx context.Context) (*big.Int, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
}

var erc20ABI = mustParseABI(x402evm.ERC20ABI)

func mustParseABI(data []byte) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(string(data)))
	if err != nil {
		panic(fmt.Sprintf("invalid ERC-20 ABI: %v", err))
	}
	return parsed
}

func readUint256(ctx context.Context, backend ChainBackend, token common.Address, method string, args ...interface{}) (*big.Int, error) {
	data, err := erc20ABI.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to pack %s: %w", method, err)
	}

	result, err := backend.CallContract(ctx, ethereum.CallMsg{To: &token, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("%s call failed: %w", method, err)
	}

	outputs, err := erc20ABI.Unpack(method, result)
	if err != nil {
		return nil, fmt.Errorf("failed to unpack %s: %w", method, err)
	}
	if len(outputs) != 1 {
		return nil, fmt.Errorf("unexpected %s result", method)
	}
	value, ok := outputs[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unexpected %s result type: %T", method, outputs[0])
	}
	return value, nil
}

// approve sends approve(spender, MaxApproval) as an EIP-1559 transaction and waits for it
func (s *ClientSigner) approve(ctx context.Context, asset string, spender common.Address, network x402.Network) (*x402evm.TransactionReceipt, error) {
	backend, err := s.backend(ctx, network)
	if err != nil {
		return nil, err
	}
	chainID, err := s.opts.networks.ChainID(network)
	if err != nil {
		return nil, err
	}

	calldata, err := erc20ABI.Pack("approve", spender, x402evm.MaxApproval)
	if err != nil {
		return nil, fmt.Errorf("failed to encode approve calldata: %w", err)
	}
	token := common.HexToAddress(asset)

	nonce, err := backend.PendingNonceAt(ctx, s.address)
	if err != nil {
		return nil, fmt.Errorf("failed to get nonce: %w", err)
	}
	gasTipCap, err := backend.SuggestGasTipCap(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get gas tip cap: %w", err)
	}
	head, err := backend.HeaderByNumber(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get latest header: %w", err)
	}
	gasFeeCap := new(big.Int).Set(gasTipCap)
	if head.BaseFee != nil {
		gasFeeCap.Add(gasFeeCap, new(big.Int).Mul(head.BaseFee, big.NewInt(2)))
	}

	gas, err := backend.EstimateGas(ctx, ethereum.CallMsg{From: s.address, To: &token, Data: calldata})
	if err != nil {
		return nil, fmt.Errorf("failed to estimate gas: %w", err)
	}

	tx := types.NewTx(&types.DynamicFeeTx{
		ChainID:   chainID,
		Nonce:     nonce,
		GasTipCap: gasTipCap,
		GasFeeCap: gasFeeCap,
		Gas:       gas,
		To:        &token,
		Value:     big.NewInt(0),
		Data:      calldata,
	})

	signedTx, err := types.SignTx(tx, types.LatestSignerForChainID(chainID), s.privateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to sign approve transaction: %w", err)
	}
	if err := backend.SendTransaction(ctx, signedTx); err != nil {
		return nil, fmt.Errorf("failed to send approve transaction: %w", err)
	}

	s.opts.logger.Debug("approval submitted", "transaction", signedTx.Hash().Hex(), "network", network)
	return s.waitForReceipt(ctx, backend, signedTx.Hash())
}
