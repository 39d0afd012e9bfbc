package x402

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ProtocolVersion is the x402 wire version spoken by this client
const ProtocolVersion = 2

// Network represents a blockchain network identifier in CAIP-2 format
// Format: namespace:reference (e.g., "eip155:8453" for Base, "tron:3448148188" for Nile)
type Network string

// Parse splits the network into namespace and reference components
func (n Network) Parse() (namespace, reference string, err error) {
	parts := strings.Split(string(n), ":")
	if len(parts) != 2 || parts[0] == "" {
		return "", "", fmt.Errorf("invalid network format: %s", n)
	}
	return parts[0], parts[1], nil
}

// Match reports whether this network is selected by pattern.
// A pattern is an exact network, "*" (any network) or a "<namespace>:*" prefix wildcard:
// "tron:*" matches "tron:3448148188" and "tron:" but not "tronx:1".
func (n Network) Match(pattern Network) bool {
	if n == pattern || pattern == "*" {
		return true
	}

	patternStr := string(pattern)
	if strings.HasSuffix(patternStr, ":*") {
		prefix := strings.TrimSuffix(patternStr, "*")
		return strings.HasPrefix(string(n), prefix)
	}

	return false
}

// PaymentRequirements defines one payment offer made by a resource server
type PaymentRequirements struct {
	Scheme            string                 `json:"scheme"`
	Network           Network                `json:"network"`
	Asset             string                 `json:"asset"`
	Amount            string                 `json:"amount"`
	PayTo             string                 `json:"payTo"`
	MaxTimeoutSeconds int                    `json:"maxTimeoutSeconds,omitempty"`
	Extra             map[string]interface{} `json:"extra,omitempty"`
}

// FeeInfo is the optional facilitator fee carried in requirements.extra.fee
type FeeInfo struct {
	FacilitatorID string `json:"facilitatorId,omitempty"`
	FeeTo         string `json:"feeTo"`
	FeeAmount     string `json:"feeAmount"`
}

// Fee returns the fee sub-record of the requirements, or nil when none was offered
func (r PaymentRequirements) Fee() (*FeeInfo, error) {
	raw, ok := r.Extra["fee"]
	if !ok || raw == nil {
		return nil, nil
	}

	data, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid fee: %w", err)
	}

	var fee FeeInfo
	if err := json.Unmarshal(data, &fee); err != nil {
		return nil, fmt.Errorf("invalid fee: %w", err)
	}
	return &fee, nil
}

// ExtraString returns a string field from requirements.extra, or "" when absent
func (r PaymentRequirements) ExtraString(key string) string {
	if r.Extra == nil {
		return ""
	}
	s, _ := r.Extra[key].(string)
	return s
}

// PartialPaymentPayload contains the minimal payment data from mechanism clients
// This is what SchemeNetworkClient.CreatePaymentPayload returns
type PartialPaymentPayload struct {
	X402Version int                    `json:"x402Version"`
	Payload     map[string]interface{} `json:"payload"`
}

// PaymentPayload contains the signed payment authorization sent back to the server
type PaymentPayload struct {
	X402Version int                    `json:"x402Version"`
	Resource    *ResourceInfo          `json:"resource,omitempty"`
	Accepted    PaymentRequirements    `json:"accepted"`
	Payload     map[string]interface{} `json:"payload"`
	Extensions  map[string]interface{} `json:"extensions,omitempty"`
}

// ResourceInfo describes the resource being accessed
type ResourceInfo struct {
	URL         string `json:"url"`
	Description string `json:"description,omitempty"`
	MimeType    string `json:"mimeType,omitempty"`
}

// PaymentRequired is the envelope carried by a 402 response
type PaymentRequired struct {
	X402Version int                    `json:"x402Version"`
	Error       string                 `json:"error,omitempty"`
	Resource    *ResourceInfo          `json:"resource,omitempty"`
	Accepts     []PaymentRequirements  `json:"accepts"`
	Extensions  map[string]interface{} `json:"extensions,omitempty"`
}

// SettleResponse is the settlement receipt returned with the paid response
type SettleResponse struct {
	Success     bool    `json:"success"`
	ErrorReason string  `json:"errorReason,omitempty"`
	Payer       string  `json:"payer,omitempty"`
	Transaction string  `json:"transaction"`
	Network     Network `json:"network"`
}
