package types

import (
	"encoding/json"
	"fmt"
)

// PaymentPermitContextKey is the envelope extension carrying the server-assigned permit metadata
const PaymentPermitContextKey = "paymentPermitContext"

// Permit kinds
const (
	KindPaymentOnly        = "PAYMENT_ONLY"
	KindPaymentAndDelivery = "PAYMENT_AND_DELIVERY"
)

// kindCodes is the uint8 encoding expected by the PaymentPermit verifier
var kindCodes = map[string]uint8{
	KindPaymentOnly:        0,
	KindPaymentAndDelivery: 1,
}

// KindCode returns the on-chain encoding of a permit kind
func KindCode(kind string) (uint8, error) {
	code, ok := kindCodes[kind]
	if !ok {
		return 0, fmt.Errorf("unknown permit kind: %q", kind)
	}
	return code, nil
}

// PermitMeta is the server-assigned part of a permit. It is forwarded verbatim.
type PermitMeta struct {
	Kind        string `json:"kind"`
	PaymentID   string `json:"paymentId"`
	Nonce       string `json:"nonce"`
	ValidAfter  int64  `json:"validAfter"`
	ValidBefore int64  `json:"validBefore"`
}

// PaymentPermitContext is the value of extensions["paymentPermitContext"]
type PaymentPermitContext struct {
	Meta   *PermitMeta `json:"meta"`
	Caller string      `json:"caller,omitempty"`
}

// Payment is the payment leg of a permit
type Payment struct {
	PayToken  string `json:"payToken"`
	PayAmount string `json:"payAmount"`
	PayTo     string `json:"payTo"`
}

// Fee is the facilitator fee leg of a permit
type Fee struct {
	FeeTo     string `json:"feeTo"`
	FeeAmount string `json:"feeAmount"`
}

// PaymentPermit is the custodial-spend authorization signed for the "exact" scheme
type PaymentPermit struct {
	Meta    PermitMeta `json:"meta"`
	Buyer   string     `json:"buyer"`
	Caller  string     `json:"caller"`
	Payment Payment    `json:"payment"`
	Fee     Fee        `json:"fee"`
}

// PermitPayload is the scheme payload of the "exact" scheme
type PermitPayload struct {
	Signature     string        `json:"signature"`
	PaymentPermit PaymentPermit `json:"paymentPermit"`
}

// ParsePaymentPermitContext extracts the permit context from envelope extensions.
// It returns nil, nil when the extension is absent.
func ParsePaymentPermitContext(extensions map[string]interface{}) (*PaymentPermitContext, error) {
	raw, ok := extensions[PaymentPermitContextKey]
	if !ok || raw == nil {
		return nil, nil
	}

	var ctx PaymentPermitContext
	if err := decodeInto(raw, &ctx); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", PaymentPermitContextKey, err)
	}
	return &ctx, nil
}

// ToMap converts a scheme payload into the generic map carried by PaymentPayload
func ToMap(v interface{}) (map[string]interface{}, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out map[string]interface{}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// FromMap decodes a generic payload map into a typed scheme payload
func FromMap(data map[string]interface{}, v interface{}) error {
	return decodeInto(data, v)
}

func decodeInto(raw interface{}, v interface{}) error {
	data, err := json.Marshal(raw)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}
