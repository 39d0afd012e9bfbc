package evm

import (
	"io"
	"log/slog"
	"time"
)

// Option configures a payment mechanism
type Option func(*options)

type options struct {
	networks      *NetworkRegistry
	tokens        *TokenRegistry
	converter     AddressConverter
	allowanceMode AllowanceMode
	validity      time.Duration
	now           func() time.Time
	nonceSource   io.Reader
	logger        *slog.Logger
}

func newOptions(opts []Option) *options {
	o := &options{
		networks:      DefaultNetworks(),
		tokens:        DefaultTokens(),
		converter:     EvmAddressConverter{},
		allowanceMode: AllowanceAuto,
		validity:      DefaultValidityPeriod,
		now:           time.Now,
		logger:        slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithNetworks sets the network registry used for chain ids and PaymentPermit contracts
func WithNetworks(networks *NetworkRegistry) Option {
	return func(o *options) {
		if networks != nil {
			o.networks = networks
		}
	}
}

// WithTokens sets the token registry used for EIP-712 token domains
func WithTokens(tokens *TokenRegistry) Option {
	return func(o *options) {
		if tokens != nil {
			o.tokens = tokens
		}
	}
}

// WithAddressConverter sets how native addresses become EIP-712 addresses
func WithAddressConverter(converter AddressConverter) Option {
	return func(o *options) {
		if converter != nil {
			o.converter = converter
		}
	}
}

// WithAllowanceMode sets the allowance behavior of the permit scheme
func WithAllowanceMode(mode AllowanceMode) Option {
	return func(o *options) {
		o.allowanceMode = mode
	}
}

// WithValidityPeriod sets the transfer authorization window length
func WithValidityPeriod(period time.Duration) Option {
	return func(o *options) {
		if period > 0 {
			o.validity = period
		}
	}
}

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// WithNonceSource overrides the randomness used for transfer nonces
func WithNonceSource(source io.Reader) Option {
	return func(o *options) {
		o.nonceSource = source
	}
}

// WithLogger sets the mechanism logger
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}
