package tron

import (
	"log/slog"
	"net/http"
	"time"

	x402 "github.com/bankofai/x402/go"
	"github.com/bankofai/x402/go/mechanisms/tron"
)

// Public TronGrid endpoints
const (
	MainnetNodeURL = "https://api.trongrid.io"
	ShastaNodeURL  = "https://api.shasta.trongrid.io"
	NileNodeURL    = "https://nile.trongrid.io"
)

// Option configures a ClientSigner
type Option func(*options)

type endpoint struct {
	pattern x402.Network
	url     string
}

type options struct {
	endpoints      []endpoint
	apiKey         string
	httpClient     *http.Client
	receiptTimeout time.Duration
	pollInterval   time.Duration
	logger         *slog.Logger
}

func newOptions(opts []Option) *options {
	o := &options{
		httpClient:     &http.Client{Timeout: 30 * time.Second},
		receiptTimeout: 2 * time.Minute,
		pollInterval:   3 * time.Second,
		logger:         slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(o)
	}
	// Explicit nodes take precedence over the public ones
	o.endpoints = append(o.endpoints,
		endpoint{pattern: tron.Mainnet, url: MainnetNodeURL},
		endpoint{pattern: tron.MainnetAlias, url: MainnetNodeURL},
		endpoint{pattern: tron.Shasta, url: ShastaNodeURL},
		endpoint{pattern: tron.ShastaAlias, url: ShastaNodeURL},
		endpoint{pattern: tron.Nile, url: NileNodeURL},
		endpoint{pattern: tron.NileAlias, url: NileNodeURL},
	)
	return o
}

// WithNode uses the full node at url for networks matching pattern
func WithNode(pattern x402.Network, url string) Option {
	return func(o *options) {
		o.endpoints = append(o.endpoints, endpoint{pattern: pattern, url: url})
	}
}

// WithAPIKey sets the TRON-PRO-API-KEY header sent to full nodes
func WithAPIKey(apiKey string) Option {
	return func(o *options) {
		o.apiKey = apiKey
	}
}

// WithHTTPClient sets the HTTP client used to reach full nodes
func WithHTTPClient(client *http.Client) Option {
	return func(o *options) {
		if client != nil {
			o.httpClient = client
		}
	}
}

// WithReceiptPolling sets how long and how often approval results are polled
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
