package evm

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common/hexutil"

	x402 "github.com/bankofai/x402/go"
	"github.com/bankofai/x402/go/types"
)

// ExactPermitClient implements the "exact" scheme: a PaymentPermit signed against
// server-assigned metadata, pulled on-chain by the PaymentPermit contract.
type ExactPermitClient struct {
	signer ClientSigner
	opts   *options
}

// NewExactPermitClient creates a new ExactPermitClient
func NewExactPermitClient(signer ClientSigner, opts ...Option) *ExactPermitClient {
	return &ExactPermitClient{
		signer: signer,
		opts:   newOptions(opts),
	}
}

// Scheme returns the scheme identifier
func (c *ExactPermitClient) Scheme() string {
	return SchemeExact
}

// CreatePaymentPayload builds and signs a PaymentPermit.
// The allowance for amount + fee is ensured before anything is signed.
func (c *ExactPermitClient) CreatePaymentPayload(
	ctx context.Context,
	requirements x402.PaymentRequirements,
	extensions map[string]interface{},
) (x402.PartialPaymentPayload, error) {
	permitCtx, err := types.ParsePaymentPermitContext(extensions)
	if err != nil {
		return x402.PartialPaymentPayload{}, x402.WrapPaymentError(x402.ErrCodePermitContextMissing, "invalid payment permit context", err)
	}
	if permitCtx == nil || permitCtx.Meta == nil {
		return x402.PartialPaymentPayload{}, x402.ErrPermitContextMissing
	}

	permit, err := c.buildPermit(requirements, permitCtx)
	if err != nil {
		return x402.PartialPaymentPayload{}, err
	}

	chainID, err := c.opts.networks.ChainID(requirements.Network)
	if err != nil {
		return x402.PartialPaymentPayload{}, err
	}
	permitContract, err := c.opts.networks.PaymentPermitAddress(requirements.Network)
	if err != nil {
		return x402.PartialPaymentPayload{}, err
	}
	verifyingContract, err := c.opts.converter.ToHex(permitContract)
	if err != nil {
		return x402.PartialPaymentPayload{}, fmt.Errorf("invalid PaymentPermit address: %w", err)
	}

	message, err := PermitMessage(permit, c.opts.converter)
	if err != nil {
		return x402.PartialPaymentPayload{}, err
	}

	// Both amounts were validated by buildPermit.
	payAmount, _ := x402.ParseAmount(permit.Payment.PayAmount)
	feeAmount, _ := x402.ParseAmount(permit.Fee.FeeAmount)
	total := new(big.Int).Add(payAmount, feeAmount)

	// The spender approved is the contract the permit is signed for.
	if err := c.signer.EnsureAllowance(ctx, requirements.Asset, permitContract, total, requirements.Network, c.opts.allowanceMode); err != nil {
		return x402.PartialPaymentPayload{}, fmt.Errorf("failed to ensure allowance: %w", err)
	}

	domain := TypedDataDomain{
		Name:              PaymentPermitDomainName,
		ChainID:           chainID,
		VerifyingContract: verifyingContract,
	}
	signature, err := c.signer.SignTypedData(ctx, domain, PaymentPermitTypes, PaymentPermitPrimaryType, message)
	if err != nil {
		return x402.PartialPaymentPayload{}, fmt.Errorf("failed to sign payment permit: %w", err)
	}

	payload, err := types.ToMap(types.PermitPayload{
		Signature:     hexutil.Encode(signature),
		PaymentPermit: permit,
	})
	if err != nil {
		return x402.PartialPaymentPayload{}, err
	}

	c.opts.logger.Debug("signed payment permit",
		"network", requirements.Network, "paymentId", permit.Meta.PaymentID, "total", total.String())

	return x402.PartialPaymentPayload{
		X402Version: x402.ProtocolVersion,
		Payload:     payload,
	}, nil
}

func (c *ExactPermitClient) buildPermit(requirements x402.PaymentRequirements, permitCtx *types.PaymentPermitContext) (types.PaymentPermit, error) {
	if _, err := x402.ParseAmount(requirements.Amount); err != nil {
		return types.PaymentPermit{}, err
	}

	zero := c.opts.converter.ZeroAddress()
	feeTo, feeAmount := zero, "0"

	fee, err := requirements.Fee()
	if err != nil {
		return types.PaymentPermit{}, err
	}
	if fee != nil {
		if fee.FeeTo != "" {
			feeTo = fee.FeeTo
		}
		if fee.FeeAmount != "" {
			feeAmount = fee.FeeAmount
		}
	}
	if _, err := x402.ParseAmount(feeAmount); err != nil {
		return types.PaymentPermit{}, fmt.Errorf("invalid fee amount: %w", err)
	}

	caller := permitCtx.Caller
	if caller == "" {
		caller = zero
	}

	return types.PaymentPermit{
		Meta:   *permitCtx.Meta,
		Buyer:  c.signer.Address(),
		Caller: caller,
		Payment: types.Payment{
			PayToken:  requirements.Asset,
			PayAmount: requirements.Amount,
			PayTo:     requirements.PayTo,
		},
		Fee: types.Fee{
			FeeTo:     feeTo,
			FeeAmount: feeAmount,
		},
	}, nil
}

// PermitMessage converts a permit into the EIP-712 message for PaymentPermitDetails.
// Numeric fields are widened to big.Int and addresses converted to 0x-hex.
func PermitMessage(permit types.PaymentPermit, conv AddressConverter) (map[string]interface{}, error) {
	kind, err := types.KindCode(permit.Meta.Kind)
	if err != nil {
		return nil, err
	}
	paymentID, err := DecodeFixedBytes(permit.Meta.PaymentID, 16)
	if err != nil {
		return nil, fmt.Errorf("invalid paymentId: %w", err)
	}
	nonce, err := ParseUint256(permit.Meta.Nonce)
	if err != nil {
		return nil, fmt.Errorf("invalid permit nonce: %w", err)
	}
	payAmount, err := x402.ParseAmount(permit.Payment.PayAmount)
	if err != nil {
		return nil, err
	}
	feeAmount, err := x402.ParseAmount(permit.Fee.FeeAmount)
	if err != nil {
		return nil, err
	}

	addresses := map[string]string{
		"buyer":    permit.Buyer,
		"caller":   permit.Caller,
		"payToken": permit.Payment.PayToken,
		"payTo":    permit.Payment.PayTo,
		"feeTo":    permit.Fee.FeeTo,
	}
	hex := make(map[string]string, len(addresses))
	for field, address := range addresses {
		converted, err := conv.ToHex(address)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", field, err)
		}
		hex[field] = converted
	}

	return map[string]interface{}{
		"meta": map[string]interface{}{
			"kind":        new(big.Int).SetUint64(uint64(kind)),
			"paymentId":   paymentID,
			"nonce":       nonce,
			"validAfter":  big.NewInt(permit.Meta.ValidAfter),
			"validBefore": big.NewInt(permit.Meta.ValidBefore),
		},
		"buyer":  hex["buyer"],
		"caller": hex["caller"],
		"payment": map[string]interface{}{
			"payToken":  hex["payToken"],
			"payAmount": payAmount,
			"payTo":     hex["payTo"],
		},
		"fee": map[string]interface{}{
			"feeTo":     hex["feeTo"],
			"feeAmount": feeAmount,
		},
	}, nil
}
