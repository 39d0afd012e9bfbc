package evm

import (
	"context"
	"log/slog"
	"time"

	"github.com/ethereum/go-ethereum/ethclient"

	x402 "github.com/bankofai/x402/go"
	x402evm "github.com/bankofai/x402/go/mechanisms/evm"
)

// Option configures a ClientSigner
type Option func(*options)

type endpoint struct {
	pattern x402.Network
	url     string
	backend ChainBackend
}

type options struct {
	networks       *x402evm.NetworkRegistry
	endpoints      []endpoint
	dial           func(ctx context.Context, url string) (ChainBackend, error)
	receiptTimeout time.Duration
	pollInterval   time.Duration
	logger         *slog.Logger
}

func newOptions(opts []Option) *options {
	o := &options{
		networks:       x402evm.DefaultNetworks(),
		dial:           dialEthclient,
		receiptTimeout: 2 * time.Minute,
		pollInterval:   time.Second,
		logger:         slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func dialEthclient(ctx context.Context, url string) (ChainBackend, error) {
	client, err := ethclient.DialContext(ctx, url)
	if err != nil {
		return nil, err
	}
	return client, nil
}

// WithRPC dials url, on first use, for networks matching pattern
func WithRPC(pattern x402.Network, url string) Option {
	return func(o *options) {
		o.endpoints = append(o.endpoints, endpoint{pattern: pattern, url: url})
	}
}

// WithBackend uses an existing backend for networks matching pattern
func WithBackend(pattern x402.Network, backend ChainBackend) Option {
	return func(o *options) {
		o.endpoints = append(o.endpoints, endpoint{pattern: pattern, backend: backend})
	}
}

// WithNetworks sets the registry used to resolve chain ids for approvals
func WithNetworks(networks *x402evm.NetworkRegistry) Option {
	return func(o *options) {
		if networks != nil {
			o.networks = networks
		}
	}
}

// WithReceiptPolling sets how long and how often approval receipts are polled
func WithReceiptPolling(timeout, interval time.Duration) Option {
	return func(o *options) {
		if timeout > 0 {
			o.receiptTimeout = timeout
		}
		if interval > 0 {
			o.pollInterval = interval
		}
	}
}

// WithLogger sets the signer logger
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}
