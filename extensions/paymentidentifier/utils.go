package paymentidentifier

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	x402 "github.com/bankofai/x402/go"
)

// GeneratePaymentID generates a unique payment identifier with the given prefix.
// If prefix is empty, "pay_" is used as the default prefix.
//
// The generated ID format is: prefix + UUID v4 without hyphens (32 hex chars)
// Example: "pay_7d5d747be160e280504c099d984bcfe0"
func GeneratePaymentID(prefix string) string {
	if prefix == "" {
		prefix = "pay_"
	}
	return prefix + strings.ReplaceAll(uuid.New().String(), "-", "")
}

// IsValidPaymentID validates that a payment ID meets the format requirements.
//
// Validation rules:
//   - Length must be between 16 and 128 characters (inclusive)
//   - Must contain only alphanumeric characters, hyphens, and underscores
func IsValidPaymentID(id string) bool {
	if len(id) < PAYMENT_ID_MIN_LENGTH || len(id) > PAYMENT_ID_MAX_LENGTH {
		return false
	}
	return PAYMENT_ID_PATTERN.MatchString(id)
}

// parseExtension decodes an extension value of any shape (typed or JSON-decoded map)
func parseExtension(extension interface{}) (*PaymentIdentifierExtension, bool) {
	if extension == nil {
		return nil, false
	}
	if typed, ok := extension.(PaymentIdentifierExtension); ok {
		return &typed, true
	}

	data, err := json.Marshal(extension)
	if err != nil {
		return nil, false
	}
	var raw struct {
		Info *struct {
			Required *bool  `json:"required"`
			ID       string `json:"id"`
		} `json:"info"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, false
	}
	if raw.Info == nil || raw.Info.Required == nil {
		return nil, false
	}
	return &PaymentIdentifierExtension{
		Info: PaymentIdentifierInfo{Required: *raw.Info.Required, ID: raw.Info.ID},
	}, true
}

// IsPaymentIdentifierExtension checks if an object has the payment-identifier
// structure (an info object with a required boolean). The id format is not checked.
func IsPaymentIdentifierExtension(extension interface{}) bool {
	_, ok := parseExtension(extension)
	return ok
}

// IsPaymentIdentifierRequired checks if the server requires a payment identifier
// based on the extension info.
//
// Args:
//   - extension: The payment-identifier extension from PaymentRequired or PaymentPayload
//
// Returns:
//   - True if the server requires a payment identifier
func IsPaymentIdentifierRequired(extension interface{}) bool {
	ext, ok := parseExtension(extension)
	return ok && ext.Info.Required
}

// AppendPaymentIdentifierToExtensions returns a copy of extensions with the
// payment-identifier entry set to {info: {required, id}}. The required flag of an
// existing declaration is preserved. The input map is not modified.
//
// Args:
//   - extensions: The extensions declared by the server (may be nil)
//   - id: The payment id; "" generates one with the default prefix
//
// Returns:
//   - The new extensions map
//   - Error if id does not satisfy IsValidPaymentID
func AppendPaymentIdentifierToExtensions(extensions map[string]interface{}, id string) (map[string]interface{}, error) {
	if id == "" {
		id = GeneratePaymentID("")
	}
	if !IsValidPaymentID(id) {
		return nil, fmt.Errorf("invalid payment id %q", id)
	}

	out := make(map[string]interface{}, len(extensions)+1)
	for k, v := range extensions {
		out[k] = v
	}

	out[PAYMENT_IDENTIFIER] = PaymentIdentifierExtension{
		Info: PaymentIdentifierInfo{
			Required: IsPaymentIdentifierRequired(extensions[PAYMENT_IDENTIFIER]),
			ID:       id,
		},
	}
	return out, nil
}

// ExtractPaymentIdentifier returns the payment id carried by a payload, or "" when absent
func ExtractPaymentIdentifier(payload x402.PaymentPayload) string {
	ext, ok := parseExtension(payload.Extensions[PAYMENT_IDENTIFIER])
	if !ok {
		return ""
	}
	return ext.Info.ID
}
