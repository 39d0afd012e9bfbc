package x402

import (
	"context"
	"time"
)

// ============================================================================
// Client Hook Context Types
// ============================================================================

// PaymentCreationContext contains information passed to payment creation hooks
type PaymentCreationContext struct {
	Ctx          context.Context
	Requirements PaymentRequirements
	Resource     *ResourceInfo
	// Extensions is the extension map that will be attached to the payload.
	// Hooks may add entries to it.
	Extensions map[string]interface{}
	Timestamp  time.Time
}

// PaymentCreationResultContext contains the created payload and context
type PaymentCreationResultContext struct {
	PaymentCreationContext
	Payload  PaymentPayload
	Duration time.Duration
}

// PaymentCreationFailureContext contains the failure and context
type PaymentCreationFailureContext struct {
	PaymentCreationContext
	Error    error
	Duration time.Duration
}

// ============================================================================
// Client Hook Result Types
// ============================================================================

// BeforePaymentCreationHookResult represents the result of a before hook
// If Abort is true, payment creation stops with ErrPaymentAborted and the given Reason
type BeforePaymentCreationHookResult struct {
	Abort  bool
	Reason string
}

// PaymentCreationFailureHookResult represents the result of a failure hook
// If Recovered is true, Payload is returned instead of the error
type PaymentCreationFailureHookResult struct {
	Recovered bool
	Payload   PaymentPayload
}

// ============================================================================
// Client Hook Function Types
// ============================================================================

// BeforePaymentCreationHook is called after selection and before signing
type BeforePaymentCreationHook func(PaymentCreationContext) (*BeforePaymentCreationHookResult, error)

// AfterPaymentCreationHook is called after a payload was created.
// Errors are logged and do not affect the payment.
type AfterPaymentCreationHook func(PaymentCreationResultContext) error

// OnPaymentCreationFailureHook is called when payload creation fails
type OnPaymentCreationFailureHook func(PaymentCreationFailureContext) (*PaymentCreationFailureHookResult, error)

// ============================================================================
// Client Hook Registration
// ============================================================================

// WithBeforePaymentCreationHook registers a before hook at creation time
func WithBeforePaymentCreationHook(hook BeforePaymentCreationHook) ClientOption {
	return func(c *X402Client) {
		c.beforeHooks = append(c.beforeHooks, hook)
	}
}

// WithAfterPaymentCreationHook registers an after hook at creation time
func WithAfterPaymentCreationHook(hook AfterPaymentCreationHook) ClientOption {
	return func(c *X402Client) {
		c.afterHooks = append(c.afterHooks, hook)
	}
}

// WithOnPaymentCreationFailureHook registers a failure hook at creation time
func WithOnPaymentCreationFailureHook(hook OnPaymentCreationFailureHook) ClientOption {
	return func(c *X402Client) {
		c.failureHooks = append(c.failureHooks, hook)
	}
}

// OnBeforePaymentCreation registers a hook executed before a payment is signed
func (c *X402Client) OnBeforePaymentCreation(hook BeforePaymentCreationHook) *X402Client {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.beforeHooks = append(c.beforeHooks, hook)
	return c
}

// OnAfterPaymentCreation registers a hook executed after a payment was created
func (c *X402Client) OnAfterPaymentCreation(hook AfterPaymentCreationHook) *X402Client {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.afterHooks = append(c.afterHooks, hook)
	return c
}

// OnPaymentCreationFailure registers a hook executed when payment creation fails
func (c *X402Client) OnPaymentCreationFailure(hook OnPaymentCreationFailureHook) *X402Client {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failureHooks = append(c.failureHooks, hook)
	return c
}
