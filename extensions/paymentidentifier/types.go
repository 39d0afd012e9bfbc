// Package paymentidentifier implements the client side of the payment-identifier extension.
// A server that declares the extension receives a unique id with every payment, so it can
// recognise retries of the same purchase.
package paymentidentifier

import "regexp"

// PAYMENT_IDENTIFIER is the extension key in PaymentRequired and PaymentPayload extensions
const PAYMENT_IDENTIFIER = "payment-identifier"

// Payment id format constraints
const (
	PAYMENT_ID_MIN_LENGTH = 16
	PAYMENT_ID_MAX_LENGTH = 128
)

// PAYMENT_ID_PATTERN restricts ids to alphanumerics, hyphens and underscores
var PAYMENT_ID_PATTERN = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// PaymentIdentifierInfo is the info object of the extension.
// Servers send {required}; clients answer with {required, id}.
type PaymentIdentifierInfo struct {
	Required bool   `json:"required"`
	ID       string `json:"id,omitempty"`
}

// PaymentIdentifierExtension is the full extension value
type PaymentIdentifierExtension struct {
	Info PaymentIdentifierInfo `json:"info"`
}
