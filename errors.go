package x402

import "fmt"

// PaymentError represents a payment-specific error
type PaymentError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
	Err     error                  `json:"-"`
}

func (e *PaymentError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *PaymentError) Unwrap() error {
	return e.Err
}

// Is matches any PaymentError carrying the same code, so
// errors.Is(err, ErrNoAcceptablePayment) works for every instance.
func (e *PaymentError) Is(target error) bool {
	t, ok := target.(*PaymentError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// WithDetails returns a copy of the error with an added detail entry
func (e *PaymentError) WithDetails(key string, value interface{}) *PaymentError {
	details := make(map[string]interface{}, len(e.Details)+1)
	for k, v := range e.Details {
		details[k] = v
	}
	details[key] = value
	return &PaymentError{Code: e.Code, Message: e.Message, Details: details, Err: e.Err}
}

// Error codes
const (
	ErrCodeMalformedPaymentRequired = "malformed_payment_required"
	ErrCodeNoAcceptablePayment      = "no_acceptable_payment"
	ErrCodeUnsupportedNetwork       = "unsupported_network"
	ErrCodeUnsupportedScheme        = "unsupported_scheme"
	ErrCodePermitContextMissing     = "permit_context_missing"
	ErrCodeInsufficientAllowance    = "insufficient_allowance"
	ErrCodePaymentAborted           = "payment_aborted"
	ErrCodeInvalidPayment           = "invalid_payment"
)

// Sentinel errors for use with errors.Is
var (
	ErrMalformedPaymentRequired = &PaymentError{Code: ErrCodeMalformedPaymentRequired, Message: "malformed payment required envelope"}
	ErrNoAcceptablePayment      = &PaymentError{Code: ErrCodeNoAcceptablePayment, Message: "no acceptable payment option"}
	ErrUnsupportedNetwork       = &PaymentError{Code: ErrCodeUnsupportedNetwork, Message: "no mechanism registered for network"}
	ErrUnsupportedScheme        = &PaymentError{Code: ErrCodeUnsupportedScheme, Message: "no mechanism registered for scheme"}
	ErrPermitContextMissing     = &PaymentError{Code: ErrCodePermitContextMissing, Message: "paymentPermitContext is required"}
	ErrInsufficientAllowance    = &PaymentError{Code: ErrCodeInsufficientAllowance, Message: "insufficient allowance"}
	ErrPaymentAborted           = &PaymentError{Code: ErrCodePaymentAborted, Message: "payment creation aborted"}
	ErrInvalidPayment           = &PaymentError{Code: ErrCodeInvalidPayment, Message: "invalid payment"}
)

// NewPaymentError creates a new payment error
func NewPaymentError(code, message string, details map[string]interface{}) *PaymentError {
	return &PaymentError{
		Code:    code,
		Message: message,
		Details: details,
	}
}

// WrapPaymentError creates a payment error around a cause
func WrapPaymentError(code, message string, err error) *PaymentError {
	return &PaymentError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}
