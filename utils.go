package x402

import (
	"fmt"
	"math/big"
)

// ValidatePaymentPayload performs basic validation on a payment payload
func ValidatePaymentPayload(p PaymentPayload) error {
	if p.X402Version != ProtocolVersion {
		return fmt.Errorf("unsupported x402 version: %d", p.X402Version)
	}
	if p.Accepted.Scheme == "" {
		return fmt.Errorf("payment scheme is required")
	}
	if p.Accepted.Network == "" {
		return fmt.Errorf("payment network is required")
	}
	if p.Payload == nil {
		return fmt.Errorf("payment payload is required")
	}
	return nil
}

// ValidatePaymentRequirements performs basic validation on payment requirements
func ValidatePaymentRequirements(r PaymentRequirements) error {
	if r.Scheme == "" {
		return fmt.Errorf("payment scheme is required")
	}
	if r.Network == "" {
		return fmt.Errorf("payment network is required")
	}
	if r.Asset == "" {
		return fmt.Errorf("payment asset is required")
	}
	if _, err := ParseAmount(r.Amount); err != nil {
		return err
	}
	if r.PayTo == "" {
		return fmt.Errorf("payment recipient is required")
	}
	return nil
}

// ParseAmount parses a non-negative decimal integer amount without loss of precision
func ParseAmount(amount string) (*big.Int, error) {
	if amount == "" {
		return nil, fmt.Errorf("payment amount is required")
	}
	value, ok := new(big.Int).SetString(amount, 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount: %q", amount)
	}
	if value.Sign() < 0 {
		return nil, fmt.Errorf("negative amount: %q", amount)
	}
	return value, nil
}

// RequiredTotal returns amount + fee.feeAmount for the requirements.
// A missing fee counts as zero.
func RequiredTotal(r PaymentRequirements) (*big.Int, error) {
	total, err := ParseAmount(r.Amount)
	if err != nil {
		return nil, err
	}

	fee, err := r.Fee()
	if err != nil {
		return nil, err
	}
	if fee != nil && fee.FeeAmount != "" {
		feeAmount, err := ParseAmount(fee.FeeAmount)
		if err != nil {
			return nil, fmt.Errorf("invalid fee amount: %w", err)
		}
		total.Add(total, feeAmount)
	}
	return total, nil
}

// findMechanism returns the earliest registered mechanism for the scheme on the network
func findMechanism(entries []schemeEntry, scheme string, network Network) SchemeNetworkClient {
	for _, entry := range entries {
		if network.Match(entry.pattern) && entry.client.Scheme() == scheme {
			return entry.client
		}
	}
	return nil
}

// resolveResource binds the request URL into the envelope's resource description
func resolveResource(declared *ResourceInfo, url string) *ResourceInfo {
	if url == "" {
		return declared
	}
	resource := &ResourceInfo{URL: url}
	if declared != nil {
		resource.Description = declared.Description
		resource.MimeType = declared.MimeType
	}
	return resource
}

func copyExtensions(extensions map[string]interface{}) map[string]interface{} {
	if extensions == nil {
		return map[string]interface{}{}
	}
	out := make(map[string]interface{}, len(extensions))
	for k, v := range extensions {
		out[k] = v
	}
	return out
}
