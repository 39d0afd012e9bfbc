package evm

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common/hexutil"

	x402 "github.com/bankofai/x402/go"
	"github.com/bankofai/x402/go/types"
)

// NativeExactClient implements the "native_exact" scheme: a self-issued
// EIP-3009 TransferWithAuthorization with a client-chosen nonce and window.
type NativeExactClient struct {
	signer ClientSigner
	opts   *options
}

// NewNativeExactClient creates a new NativeExactClient
func NewNativeExactClient(signer ClientSigner, opts ...Option) *NativeExactClient {
	return &NativeExactClient{
		signer: signer,
		opts:   newOptions(opts),
	}
}

// Scheme returns the scheme identifier
func (c *NativeExactClient) Scheme() string {
	return SchemeNativeExact
}

// CreatePaymentPayload signs a transfer authorization for the requirements.
// No allowance is involved: the token pushes the transfer itself.
func (c *NativeExactClient) CreatePaymentPayload(
	ctx context.Context,
	requirements x402.PaymentRequirements,
	extensions map[string]interface{},
) (x402.PartialPaymentPayload, error) {
	value, err := x402.ParseAmount(requirements.Amount)
	if err != nil {
		return x402.PartialPaymentPayload{}, err
	}

	chainID, err := c.opts.networks.ChainID(requirements.Network)
	if err != nil {
		return x402.PartialPaymentPayload{}, err
	}

	tokenName, tokenVersion, err := c.tokenDomain(requirements)
	if err != nil {
		return x402.PartialPaymentPayload{}, err
	}

	nonce, err := CreateNonce(c.opts.nonceSource)
	if err != nil {
		return x402.PartialPaymentPayload{}, err
	}
	validAfter, validBefore := CreateValidityWindow(c.opts.now(), c.opts.validity)

	authorization := types.TransferAuthorization{
		From:        c.signer.Address(),
		To:          requirements.PayTo,
		Value:       value.String(),
		ValidAfter:  validAfter.String(),
		ValidBefore: validBefore.String(),
		Nonce:       hexutil.Encode(nonce[:]),
	}

	conv := c.opts.converter
	from, err := conv.ToHex(authorization.From)
	if err != nil {
		return x402.PartialPaymentPayload{}, fmt.Errorf("invalid payer address: %w", err)
	}
	to, err := conv.ToHex(authorization.To)
	if err != nil {
		return x402.PartialPaymentPayload{}, fmt.Errorf("invalid payTo address: %w", err)
	}
	token, err := conv.ToHex(requirements.Asset)
	if err != nil {
		return x402.PartialPaymentPayload{}, fmt.Errorf("invalid asset address: %w", err)
	}

	domain := TypedDataDomain{
		Name:              tokenName,
		Version:           tokenVersion,
		ChainID:           chainID,
		VerifyingContract: token,
	}
	message := map[string]interface{}{
		"from":        from,
		"to":          to,
		"value":       value,
		"validAfter":  validAfter,
		"validBefore": validBefore,
		"nonce":       nonce[:],
	}

	signature, err := c.signer.SignTypedData(ctx, domain, TransferWithAuthorizationTypes, TransferWithAuthorizationPrimaryType, message)
	if err != nil {
		return x402.PartialPaymentPayload{}, fmt.Errorf("failed to sign authorization: %w", err)
	}

	payload, err := types.ToMap(types.TransferAuthorizationPayload{
		Signature:     hexutil.Encode(signature),
		Authorization: authorization,
	})
	if err != nil {
		return x402.PartialPaymentPayload{}, err
	}

	c.opts.logger.Debug("signed transfer authorization",
		"network", requirements.Network, "validBefore", authorization.ValidBefore)

	return x402.PartialPaymentPayload{
		X402Version: x402.ProtocolVersion,
		Payload:     payload,
	}, nil
}

// tokenDomain resolves the token's EIP-712 name and version.
// requirements.extra wins over the token registry.
func (c *NativeExactClient) tokenDomain(requirements x402.PaymentRequirements) (string, string, error) {
	name := requirements.ExtraString("name")
	version := requirements.ExtraString("version")

	if name == "" || version == "" {
		if token, ok := c.opts.tokens.Lookup(requirements.Network, requirements.Asset); ok {
			if name == "" {
				name = token.Name
			}
			if version == "" {
				version = token.Version
			}
		}
	}

	if name == "" {
		return "", "", fmt.Errorf("unknown EIP-712 name for token %s on %s", requirements.Asset, requirements.Network)
	}
	if version == "" {
		version = DefaultTokenVersion
	}
	return name, version, nil
}
