package http

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	x402 "github.com/bankofai/x402/go"
)

// Server-side header codecs used by the test paywall

func decodePaymentSignatureHeader(header string) (x402.PaymentPayload, error) {
	data, err := base64.StdEncoding.DecodeString(header)
	if err != nil {
		return x402.PaymentPayload{}, fmt.Errorf("invalid base64 encoding: %w", err)
	}

	var payload x402.PaymentPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return x402.PaymentPayload{}, fmt.Errorf("invalid payment payload JSON: %w", err)
	}
	return payload, nil
}

func encodePaymentRequiredHeader(required x402.PaymentRequired) (string, error) {
	data, err := json.Marshal(required)
	if err != nil {
		return "", fmt.Errorf("failed to marshal payment required: %w", err)
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

func encodePaymentResponseHeader(response x402.SettleResponse) (string, error) {
	data, err := json.Marshal(response)
	if err != nil {
		return "", fmt.Errorf("failed to marshal settle response: %w", err)
	}
	return base64.StdEncoding.EncodeToString(data), nil
}
