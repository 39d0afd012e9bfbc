package x402

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// schemeEntry is one registration: a network pattern bound to a mechanism
type schemeEntry struct {
	pattern Network
	client  SchemeNetworkClient
}

// X402Client manages payment mechanisms and creates payment payloads
// This is used by applications that need to make payments (have wallets/signers)
type X402Client struct {
	mu sync.RWMutex

	// Registrations in order; the first matching entry wins
	schemes []schemeEntry

	// Applied in order to the offers of every envelope before selection
	policies []PaymentPolicy

	extensions []ClientExtension

	beforeHooks  []BeforePaymentCreationHook
	afterHooks   []AfterPaymentCreationHook
	failureHooks []OnPaymentCreationFailureHook

	logger *slog.Logger
}

// ClientOption configures the client
type ClientOption func(*X402Client)

// WithScheme registers a payment mechanism at creation time
func WithScheme(network Network, client SchemeNetworkClient) ClientOption {
	return func(c *X402Client) {
		c.schemes = append(c.schemes, schemeEntry{pattern: network, client: client})
	}
}

// WithPolicy appends a payment policy to the chain
func WithPolicy(policy PaymentPolicy) ClientOption {
	return func(c *X402Client) {
		c.policies = append(c.policies, policy)
	}
}

// WithExtension registers a client extension
func WithExtension(extension ClientExtension) ClientOption {
	return func(c *X402Client) {
		c.extensions = append(c.extensions, extension)
	}
}

// WithLogger sets the logger used for diagnostics. The default discards everything.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *X402Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// Newx402Client creates a new x402 client
func Newx402Client(opts ...ClientOption) *X402Client {
	c := &X402Client{
		logger: slog.New(slog.DiscardHandler),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Register binds a mechanism to a network pattern ("eip155:8453", "tron:*" or "*").
// When several registrations could serve the same requirement, the earliest one is used.
func (c *X402Client) Register(network Network, client SchemeNetworkClient) *X402Client {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.schemes = append(c.schemes, schemeEntry{pattern: network, client: client})
	return c
}

// RegisterPolicy appends a payment policy to the chain
func (c *X402Client) RegisterPolicy(policy PaymentPolicy) *X402Client {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.policies = append(c.policies, policy)
	return c
}

// RegisterExtension registers a client extension
func (c *X402Client) RegisterExtension(extension ClientExtension) *X402Client {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.extensions = append(c.extensions, extension)
	return c
}

// clientConfig is a point-in-time copy of the client configuration
type clientConfig struct {
	schemes      []schemeEntry
	policies     []PaymentPolicy
	extensions   []ClientExtension
	beforeHooks  []BeforePaymentCreationHook
	afterHooks   []AfterPaymentCreationHook
	failureHooks []OnPaymentCreationFailureHook
	logger       *slog.Logger
}

// snapshot copies the configuration so no lock is held across chain I/O
func (c *X402Client) snapshot() *clientConfig {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return &clientConfig{
		schemes:      append([]schemeEntry(nil), c.schemes...),
		policies:     append([]PaymentPolicy(nil), c.policies...),
		extensions:   append([]ClientExtension(nil), c.extensions...),
		beforeHooks:  append([]BeforePaymentCreationHook(nil), c.beforeHooks...),
		afterHooks:   append([]AfterPaymentCreationHook(nil), c.afterHooks...),
		failureHooks: append([]OnPaymentCreationFailureHook(nil), c.failureHooks...),
		logger:       c.logger,
	}
}

// SelectPaymentRequirements runs the policy chain over the offers and returns the
// first surviving offer that a registered mechanism can pay, with that mechanism.
func (c *X402Client) SelectPaymentRequirements(ctx context.Context, requirements []PaymentRequirements) (PaymentRequirements, SchemeNetworkClient, error) {
	cfg := c.snapshot()
	return cfg.selectPaymentRequirements(ctx, requirements)
}

func (c *clientConfig) selectPaymentRequirements(ctx context.Context, requirements []PaymentRequirements) (PaymentRequirements, SchemeNetworkClient, error) {
	filtered := append([]PaymentRequirements(nil), requirements...)
	for i, policy := range c.policies {
		out, err := policy.Apply(ctx, filtered)
		if err != nil {
			return PaymentRequirements{}, nil, fmt.Errorf("payment policy %d failed: %w", i, err)
		}
		filtered = out
	}

	if len(filtered) == 0 {
		return PaymentRequirements{}, nil, ErrNoAcceptablePayment.WithDetails("offered", len(requirements))
	}

	networkMatched := false
	for _, req := range filtered {
		for _, entry := range c.schemes {
			if !req.Network.Match(entry.pattern) {
				continue
			}
			networkMatched = true
			if entry.client.Scheme() == req.Scheme {
				c.logger.Debug("selected payment requirements",
					"scheme", req.Scheme, "network", req.Network, "pattern", entry.pattern)
				return req, entry.client, nil
			}
		}
	}

	offered := make([]string, 0, len(filtered))
	for _, req := range filtered {
		offered = append(offered, req.Scheme+"@"+string(req.Network))
	}
	if networkMatched {
		return PaymentRequirements{}, nil, ErrUnsupportedScheme.WithDetails("offered", offered)
	}
	return PaymentRequirements{}, nil, ErrUnsupportedNetwork.WithDetails("offered", offered)
}

// SelectAndPay selects an offer of the envelope and creates a signed payment for it.
// resourceURL, when set, is embedded in the payload resource for replay binding.
func (c *X402Client) SelectAndPay(ctx context.Context, required PaymentRequired, resourceURL string) (PaymentPayload, error) {
	if required.X402Version != ProtocolVersion {
		return PaymentPayload{}, ErrMalformedPaymentRequired.WithDetails("x402Version", required.X402Version)
	}

	cfg := c.snapshot()

	selected, mechanism, err := cfg.selectPaymentRequirements(ctx, required.Accepts)
	if err != nil {
		return PaymentPayload{}, err
	}

	return cfg.createPayment(ctx, mechanism, selected, resolveResource(required.Resource, resourceURL), required.Extensions)
}

// CreatePaymentForRequired creates a payment for a PaymentRequired response,
// using the resource declared by the envelope
func (c *X402Client) CreatePaymentForRequired(ctx context.Context, required PaymentRequired) (PaymentPayload, error) {
	return c.SelectAndPay(ctx, required, "")
}

// CreatePaymentPayload creates a signed payment for already-selected requirements.
// Policies are not applied.
func (c *X402Client) CreatePaymentPayload(ctx context.Context, requirements PaymentRequirements, resource *ResourceInfo, extensions map[string]interface{}) (PaymentPayload, error) {
	if err := ValidatePaymentRequirements(requirements); err != nil {
		return PaymentPayload{}, WrapPaymentError(ErrCodeInvalidPayment, "invalid payment requirements", err)
	}

	cfg := c.snapshot()

	mechanism := findMechanism(cfg.schemes, requirements.Scheme, requirements.Network)
	if mechanism == nil {
		return PaymentPayload{}, NewPaymentError(ErrCodeUnsupportedScheme,
			fmt.Sprintf("no client registered for scheme %s on network %s", requirements.Scheme, requirements.Network), nil)
	}

	return cfg.createPayment(ctx, mechanism, requirements, resource, extensions)
}

func (c *clientConfig) createPayment(
	ctx context.Context,
	mechanism SchemeNetworkClient,
	requirements PaymentRequirements,
	resource *ResourceInfo,
	extensions map[string]interface{},
) (PaymentPayload, error) {
	start := time.Now()
	hookCtx := PaymentCreationContext{
		Ctx:          ctx,
		Requirements: requirements,
		Resource:     resource,
		Extensions:   copyExtensions(extensions),
		Timestamp:    start,
	}

	for _, hook := range c.beforeHooks {
		result, err := hook(hookCtx)
		if err != nil {
			return PaymentPayload{}, fmt.Errorf("before payment creation hook failed: %w", err)
		}
		if result != nil && result.Abort {
			return PaymentPayload{}, ErrPaymentAborted.WithDetails("reason", result.Reason)
		}
	}

	payload, err := c.buildPayload(ctx, mechanism, hookCtx)
	if err != nil {
		failure := PaymentCreationFailureContext{
			PaymentCreationContext: hookCtx,
			Error:                  err,
			Duration:               time.Since(start),
		}
		for _, hook := range c.failureHooks {
			result, hookErr := hook(failure)
			if hookErr != nil {
				c.logger.Warn("payment creation failure hook returned error", "error", hookErr)
				continue
			}
			if result != nil && result.Recovered {
				c.logger.Info("payment creation recovered by hook", "scheme", requirements.Scheme)
				return result.Payload, nil
			}
		}
		return PaymentPayload{}, err
	}

	resultCtx := PaymentCreationResultContext{
		PaymentCreationContext: hookCtx,
		Payload:                payload,
		Duration:               time.Since(start),
	}
	for _, hook := range c.afterHooks {
		if err := hook(resultCtx); err != nil {
			c.logger.Warn("after payment creation hook returned error", "error", err)
		}
	}

	c.logger.Debug("payment payload created",
		"scheme", requirements.Scheme, "network", requirements.Network, "duration", resultCtx.Duration)
	return payload, nil
}

func (c *clientConfig) buildPayload(ctx context.Context, mechanism SchemeNetworkClient, hookCtx PaymentCreationContext) (PaymentPayload, error) {
	partial, err := mechanism.CreatePaymentPayload(ctx, hookCtx.Requirements, hookCtx.Extensions)
	if err != nil {
		return PaymentPayload{}, fmt.Errorf("failed to create payment payload: %w", err)
	}

	version := partial.X402Version
	if version == 0 {
		version = ProtocolVersion
	}

	payload := PaymentPayload{
		X402Version: version,
		Resource:    hookCtx.Resource,
		Accepted:    hookCtx.Requirements,
		Payload:     partial.Payload,
		Extensions:  hookCtx.Extensions,
	}

	for _, ext := range c.extensions {
		declaration, declared := hookCtx.Extensions[ext.Key()]
		if !declared {
			continue
		}
		payload, err = ext.EnrichPaymentPayload(ctx, payload, declaration)
		if err != nil {
			return PaymentPayload{}, fmt.Errorf("extension %s failed: %w", ext.Key(), err)
		}
	}

	if err := ValidatePaymentPayload(payload); err != nil {
		return PaymentPayload{}, WrapPaymentError(ErrCodeInvalidPayment, "invalid payment payload created", err)
	}

	return payload, nil
}

// RegisteredScheme describes one registration
type RegisteredScheme struct {
	Network Network
	Scheme  string
}

// GetRegisteredSchemes returns the registrations in precedence order
func (c *X402Client) GetRegisteredSchemes() []RegisteredScheme {
	c.mu.RLock()
	defer c.mu.RUnlock()

	result := make([]RegisteredScheme, 0, len(c.schemes))
	for _, entry := range c.schemes {
		result = append(result, RegisteredScheme{Network: entry.pattern, Scheme: entry.client.Scheme()})
	}
	return result
}

// CanPay checks if the client can pay any of the given requirements after policies
func (c *X402Client) CanPay(ctx context.Context, requirements []PaymentRequirements) bool {
	_, _, err := c.SelectPaymentRequirements(ctx, requirements)
	return err == nil
}
