package evm

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	x402 "github.com/bankofai/x402/go"
	x402evm "github.com/bankofai/x402/go/mechanisms/evm"
	x402types "github.com/bankofai/x402/go/types"
)

const (
	testKey     = "0x4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"
	testAddress = "0x2c7536E3605D9C16a7a3D7b1898e529396a65c23"
	testPermit  = "0x1111111111111111111111111111111111111111"
	testToken   = "0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913"
)

type mockBackend struct {
	mu            sync.Mutex
	balance       *big.Int
	allowance     *big.Int
	callErr       error
	receiptStatus uint64
	sent          []*types.Transaction
}

func (m *mockBackend) CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.callErr != nil {
		return nil, m.callErr
	}
	method, err := erc20ABI.MethodById(call.Data[:4])
	if err != nil {
		return nil, err
	}
	switch method.Name {
	case "balanceOf":
		return method.Outputs.Pack(m.balance)
	case "allowance":
		return method.Outputs.Pack(m.allowance)
	}
	return nil, errors.New("unexpected call")
}

func (m *mockBackend) EstimateGas(ctx context.Context, call ethereum.CallMsg) (uint64, error) {
	return 60000, nil
}

func (m *mockBackend) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	return 3, nil
}

func (m *mockBackend) SuggestGasTipCap(ctx context.Context) (*big.Int, error) {
	return big.NewInt(1_000_000_000), nil
}

func (m *mockBackend) HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error) {
	return &types.Header{Number: big.NewInt(9), BaseFee: big.NewInt(100)}, nil
}

func (m *mockBackend) SendTransaction(ctx context.Context, tx *types.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.sent = append(m.sent, tx)
	if m.receiptStatus == types.ReceiptStatusSuccessful {
		m.allowance = new(big.Int).Set(x402evm.MaxApproval)
	}
	return nil
}

func (m *mockBackend) TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, tx := range m.sent {
		if tx.Hash() == txHash {
			return &types.Receipt{Status: m.receiptStatus, TxHash: txHash, BlockNumber: big.NewInt(10)}, nil
		}
	}
	return nil, ethereum.NotFound
}

func newTestSigner(t *testing.T, backend ChainBackend) *ClientSigner {
	t.Helper()
	networks := x402evm.DefaultNetworks().Register("eip155:8453", x402evm.NetworkConfig{
		ChainID: big.NewInt(8453),
	})
	signer, err := NewClientSignerFromPrivateKey(testKey,
		WithNetworks(networks),
		WithBackend("eip155:*", backend),
		WithReceiptPolling(time.Second, time.Millisecond),
	)
	require.NoError(t, err)
	return signer
}

func TestNewClientSignerFromPrivateKey(t *testing.T) {
	signer, err := NewClientSignerFromPrivateKey(testKey)
	require.NoError(t, err)
	assert.Equal(t, testAddress, signer.Address())

	withoutPrefix, err := NewClientSignerFromPrivateKey(testKey[2:])
	require.NoError(t, err)
	assert.Equal(t, testAddress, withoutPrefix.Address())

	_, err = NewClientSignerFromPrivateKey("0xnot-a-key")
	assert.Error(t, err)
}

func TestSignTypedDataRecoversToSigner(t *testing.T) {
	signer := newTestSigner(t, &mockBackend{})

	domain := x402evm.TypedDataDomain{Name: "USD Coin", Version: "2", ChainID: big.NewInt(8453), VerifyingContract: testToken}
	message := map[string]interface{}{
		"from":        signer.Address(),
		"to":          testPermit,
		"value":       big.NewInt(1000),
		"validAfter":  big.NewInt(0),
		"validBefore": big.NewInt(1900000000),
		"nonce":       make([]byte, 32),
	}

	sig, err := signer.SignTypedData(context.Background(), domain, x402evm.TransferWithAuthorizationTypes, x402evm.TransferWithAuthorizationPrimaryType, message)
	require.NoError(t, err)
	require.Len(t, sig, 65)
	assert.Contains(t, []byte{27, 28}, sig[64])

	recovered, err := x402evm.RecoverTypedDataSigner(domain, x402evm.TransferWithAuthorizationTypes, x402evm.TransferWithAuthorizationPrimaryType, message, sig)
	require.NoError(t, err)
	assert.Equal(t, testAddress, recovered)
}

func TestSignMessageIsPersonalSign(t *testing.T) {
	signer := newTestSigner(t, &mockBackend{})

	sig, err := signer.SignMessage(context.Background(), []byte("hello"))
	require.NoError(t, err)
	sig[64] -= 27

	pub, err := crypto.SigToPub(accounts.TextHash([]byte("hello")), sig)
	require.NoError(t, err)
	assert.Equal(t, testAddress, crypto.PubkeyToAddress(*pub).Hex())
}

func TestCheckBalance(t *testing.T) {
	backend := &mockBackend{balance: big.NewInt(123456)}
	signer := newTestSigner(t, backend)

	balance, err := signer.CheckBalance(context.Background(), testToken, "eip155:8453")
	require.NoError(t, err)
	assert.Equal(t, "123456", balance.String())
}

func TestCheckBalanceReturnsQueryFailure(t *testing.T) {
	backend := &mockBackend{callErr: errors.New("rpc down")}
	signer := newTestSigner(t, backend)

	balance, err := signer.CheckBalance(context.Background(), testToken, "eip155:8453")
	assert.Error(t, err)
	assert.Nil(t, balance)
}

func TestCheckBalanceWithoutRPC(t *testing.T) {
	signer, err := NewClientSignerFromPrivateKey(testKey)
	require.NoError(t, err)

	_, err = signer.CheckBalance(context.Background(), testToken, "eip155:8453")
	assert.ErrorContains(t, err, "no RPC configured")
}

func TestEnsureAllowanceModes(t *testing.T) {
	ctx := context.Background()
	amount := big.NewInt(1000)

	t.Run("skip never queries", func(t *testing.T) {
		backend := &mockBackend{callErr: errors.New("must not be called")}
		signer := newTestSigner(t, backend)
		assert.NoError(t, signer.EnsureAllowance(ctx, testToken, testPermit, amount, "eip155:8453", x402evm.AllowanceSkip))
	})

	t.Run("sufficient allowance sends nothing", func(t *testing.T) {
		backend := &mockBackend{allowance: big.NewInt(1000)}
		signer := newTestSigner(t, backend)
		require.NoError(t, signer.EnsureAllowance(ctx, testToken, testPermit, amount, "eip155:8453", x402evm.AllowanceAuto))
		assert.Empty(t, backend.sent)
	})

	t.Run("interactive fails when short", func(t *testing.T) {
		backend := &mockBackend{allowance: big.NewInt(999)}
		signer := newTestSigner(t, backend)
		err := signer.EnsureAllowance(ctx, testToken, testPermit, amount, "eip155:8453", x402evm.AllowanceInteractive)
		assert.ErrorIs(t, err, x402.ErrInsufficientAllowance)
		assert.Empty(t, backend.sent)
	})

	t.Run("auto approves max and waits", func(t *testing.T) {
		backend := &mockBackend{allowance: big.NewInt(0), receiptStatus: types.ReceiptStatusSuccessful}
		signer := newTestSigner(t, backend)
		require.NoError(t, signer.EnsureAllowance(ctx, testToken, testPermit, amount, "eip155:8453", x402evm.AllowanceAuto))
		require.Len(t, backend.sent, 1)

		tx := backend.sent[0]
		assert.Equal(t, uint8(types.DynamicFeeTxType), tx.Type())
		assert.Equal(t, int64(8453), tx.ChainId().Int64())
		assert.Equal(t, uint64(3), tx.Nonce())
		assert.Equal(t, common.HexToAddress(testToken), *tx.To())

		sender, err := types.Sender(types.LatestSignerForChainID(big.NewInt(8453)), tx)
		require.NoError(t, err)
		assert.Equal(t, testAddress, sender.Hex())

		method, err := erc20ABI.MethodById(tx.Data()[:4])
		require.NoError(t, err)
		assert.Equal(t, "approve", method.Name)
		args, err := method.Inputs.Unpack(tx.Data()[4:])
		require.NoError(t, err)
		assert.Equal(t, common.HexToAddress(testPermit), args[0])
		assert.Equal(t, 0, x402evm.MaxApproval.Cmp(args[1].(*big.Int)))
	})

	t.Run("auto reports reverted approval", func(t *testing.T) {
		backend := &mockBackend{allowance: big.NewInt(0), receiptStatus: types.ReceiptStatusFailed}
		signer := newTestSigner(t, backend)
		err := signer.EnsureAllowance(ctx, testToken, testPermit, amount, "eip155:8453", x402evm.AllowanceAuto)
		assert.ErrorIs(t, err, x402.ErrInsufficientAllowance)
		assert.Len(t, backend.sent, 1)
	})

	t.Run("invalid spender", func(t *testing.T) {
		backend := &mockBackend{allowance: big.NewInt(0)}
		signer := newTestSigner(t, backend)
		err := signer.EnsureAllowance(ctx, testToken, "TNuoKL1ni8aoshfFL1ASca1Gou9RXwAzfn", amount, "eip155:8453", x402evm.AllowanceAuto)
		assert.ErrorContains(t, err, "invalid spender address")
		assert.Empty(t, backend.sent)
	})
}

func TestCheckAllowanceQueriesSpender(t *testing.T) {
	backend := &mockBackend{allowance: big.NewInt(77)}
	signer := newTestSigner(t, backend)

	allowance, err := signer.CheckAllowance(context.Background(), testToken, testPermit, "eip155:8453")
	require.NoError(t, err)
	assert.Equal(t, "77", allowance.String())

	// The spender is whatever the caller names, with no registry lookup
	other := "0x2222222222222222222222222222222222222222"
	backend.allowance = big.NewInt(0)
	backend.receiptStatus = types.ReceiptStatusSuccessful
	require.NoError(t, signer.EnsureAllowance(context.Background(), testToken, other, big.NewInt(1), "eip155:8453", x402evm.AllowanceAuto))
	require.Len(t, backend.sent, 1)

	args, err := erc20ABI.Methods["approve"].Inputs.Unpack(backend.sent[0].Data()[4:])
	require.NoError(t, err)
	assert.Equal(t, common.HexToAddress(other), args[0])
}

func TestPermitPaymentApprovesMechanismContract(t *testing.T) {
	backend := &mockBackend{allowance: big.NewInt(0), receiptStatus: types.ReceiptStatusSuccessful}
	signer := newTestSigner(t, backend)

	// Only the mechanism knows the PaymentPermit deployment
	mechanism := x402evm.NewExactPermitClient(signer, x402evm.WithNetworks(
		x402evm.DefaultNetworks().Register("eip155:8453", x402evm.NetworkConfig{
			ChainID:       big.NewInt(8453),
			PaymentPermit: testPermit,
		})))

	requirements := x402.PaymentRequirements{
		Scheme:  x402evm.SchemeExact,
		Network: "eip155:8453",
		Asset:   testToken,
		PayTo:   "0xabcdefabcdefabcdefabcdefabcdefabcdefabcd",
		Amount:  "1000",
	}
	extensions := map[string]interface{}{
		x402types.PaymentPermitContextKey: map[string]interface{}{
			"meta": map[string]interface{}{
				"kind":        x402types.KindPaymentOnly,
				"paymentId":   "0x0102030405060708090a0b0c0d0e0f10",
				"nonce":       "1",
				"validAfter":  0,
				"validBefore": 1900000000,
			},
		},
	}

	_, err := mechanism.CreatePaymentPayload(context.Background(), requirements, extensions)
	require.NoError(t, err)
	require.Len(t, backend.sent, 1)

	args, err := erc20ABI.Methods["approve"].Inputs.Unpack(backend.sent[0].Data()[4:])
	require.NoError(t, err)
	assert.Equal(t, common.HexToAddress(testPermit), args[0])
}

func TestBackendResolutionIsCached(t *testing.T) {
	dials := 0
	backend := &mockBackend{balance: big.NewInt(1)}
	signer, err := NewClientSignerFromPrivateKey(testKey, WithRPC("eip155:*", "http://localhost:8545"))
	require.NoError(t, err)
	signer.opts.dial = func(ctx context.Context, url string) (ChainBackend, error) {
		dials++
		assert.Equal(t, "http://localhost:8545", url)
		return backend, nil
	}

	for i := 0; i < 3; i++ {
		_, err := signer.CheckBalance(context.Background(), testToken, "eip155:8453")
		require.NoError(t, err)
	}
	assert.Equal(t, 1, dials)
}
