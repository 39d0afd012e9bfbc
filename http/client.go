package http

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	x402 "github.com/bankofai/x402/go"
)

// Header names of the x402 v2 HTTP transport
const (
	PaymentRequiredHeader  = "PAYMENT-REQUIRED"
	PaymentSignatureHeader = "PAYMENT-SIGNATURE"
	PaymentResponseHeader  = "PAYMENT-RESPONSE"
)

// ============================================================================
// x402HTTPClient - HTTP-aware payment client
// ============================================================================

// SettleResponseHandler receives the settlement reported by a paid response.
//
// It runs on the request's goroutine, with the request's context, before the
// paid response is handed back to the caller. A handler must return quickly;
// slow work such as persisting receipts belongs in a goroutine it starts itself.
type SettleResponseHandler func(ctx context.Context, settle x402.SettleResponse)

// x402HTTPClient wraps x402Client with HTTP-specific payment handling
type x402HTTPClient struct {
	client    *x402.X402Client
	transport http.RoundTripper
	onSettle  SettleResponseHandler
	logger    *slog.Logger
}

// HTTPClientOption configures an x402HTTPClient
type HTTPClientOption func(*x402HTTPClient)

// WithTransport sets the transport used by DoWithPayment and friends
func WithTransport(transport http.RoundTripper) HTTPClientOption {
	return func(c *x402HTTPClient) {
		if transport != nil {
			c.transport = transport
		}
	}
}

// WithSettleResponseHandler registers the PAYMENT-RESPONSE callback.
// See SettleResponseHandler for when it runs.
func WithSettleResponseHandler(handler SettleResponseHandler) HTTPClientOption {
	return func(c *x402HTTPClient) {
		c.onSettle = handler
	}
}

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) HTTPClientOption {
	return func(c *x402HTTPClient) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// Newx402HTTPClient creates a new HTTP-aware x402 client
func Newx402HTTPClient(client *x402.X402Client, opts ...HTTPClientOption) *x402HTTPClient {
	c := &x402HTTPClient{
		client:    client,
		transport: http.DefaultTransport,
		logger:    slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// OnSettleResponse registers the PAYMENT-RESPONSE callback, replacing any earlier one.
// See SettleResponseHandler for when it runs.
func (c *x402HTTPClient) OnSettleResponse(handler SettleResponseHandler) *x402HTTPClient {
	c.onSettle = handler
	return c
}

// Client returns the underlying payment client
func (c *x402HTTPClient) Client() *x402.X402Client {
	return c.client
}

// ============================================================================
// Header Encoding/Decoding
// ============================================================================

// EncodePaymentSignatureHeader encodes a payment payload into HTTP headers
func (c *x402HTTPClient) EncodePaymentSignatureHeader(payload x402.PaymentPayload) (map[string]string, error) {
	encoded, err := encodePaymentSignatureHeader(payload)
	if err != nil {
		return nil, err
	}
	return map[string]string{PaymentSignatureHeader: encoded}, nil
}

// GetPaymentRequiredResponse extracts and validates the PAYMENT-REQUIRED envelope.
// Every failure is an ErrMalformedPaymentRequired.
func (c *x402HTTPClient) GetPaymentRequiredResponse(headers http.Header) (x402.PaymentRequired, error) {
	header := headers.Get(PaymentRequiredHeader)
	if header == "" {
		return x402.PaymentRequired{}, x402.NewPaymentError(x402.ErrCodeMalformedPaymentRequired,
			"402 response without "+PaymentRequiredHeader+" header", nil)
	}

	required, err := ValidateAndDecodePaymentRequiredHeader(header)
	if err != nil {
		return x402.PaymentRequired{}, x402.WrapPaymentError(x402.ErrCodeMalformedPaymentRequired,
			"invalid "+PaymentRequiredHeader+" header", err)
	}
	return *required, nil
}

// GetPaymentSettleResponse extracts the settlement response from HTTP headers
func (c *x402HTTPClient) GetPaymentSettleResponse(headers http.Header) (x402.SettleResponse, error) {
	header := headers.Get(PaymentResponseHeader)
	if header == "" {
		return x402.SettleResponse{}, fmt.Errorf("payment response header not found")
	}
	return decodePaymentResponseHeader(header)
}

// handleSettleResponse reports the settlement synchronously
func (c *x402HTTPClient) handleSettleResponse(ctx context.Context, headers http.Header) {
	if headers.Get(PaymentResponseHeader) == "" {
		return
	}
	settle, err := c.GetPaymentSettleResponse(headers)
	if err != nil {
		c.logger.Warn("ignoring undecodable payment response header", "error", err)
		return
	}
	c.logger.Debug("payment settled",
		"success", settle.Success, "transaction", settle.Transaction, "network", settle.Network)
	if c.onSettle != nil {
		c.onSettle(ctx, settle)
	}
}

// ============================================================================
// HTTP Client Wrapper
// ============================================================================

// WrapHTTPClientWithPayment wraps a standard HTTP client with x402 payment handling
// This allows transparent payment handling for HTTP requests
func WrapHTTPClientWithPayment(client *http.Client, x402Client *x402HTTPClient) *http.Client {
	if client == nil {
		client = &http.Client{}
	}

	// Wrap the transport with payment handling
	originalTransport := client.Transport
	if originalTransport == nil {
		originalTransport = http.DefaultTransport
	}

	client.Transport = &PaymentRoundTripper{
		Transport:  originalTransport,
		x402Client: x402Client,
	}

	return client
}

// PaymentRoundTripper implements http.RoundTripper with x402 payment handling.
// A 402 is answered with one paid retry; the retry's response is returned whatever its status.
type PaymentRoundTripper struct {
	Transport  http.RoundTripper
	x402Client *x402HTTPClient
}

// RoundTrip implements http.RoundTripper
func (t *PaymentRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	// Requests that already carry a payment are never paid again
	if req.Header.Get(PaymentSignatureHeader) != "" {
		return t.Transport.RoundTrip(req)
	}

	ctx := req.Context()

	first, getBody, err := rewindable(req)
	if err != nil {
		return nil, err
	}

	// Make initial request
	resp, err := t.Transport.RoundTrip(first)
	if err != nil {
		return nil, err
	}

	// If not 402, return as-is
	if resp.StatusCode != http.StatusPaymentRequired {
		return resp, nil
	}

	// The 402 body is not needed: v2 carries the envelope in a header
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	paymentRequired, err := t.x402Client.GetPaymentRequiredResponse(resp.Header)
	if err != nil {
		return nil, err
	}

	payload, err := t.x402Client.client.SelectAndPay(ctx, paymentRequired, req.URL.String())
	if err != nil {
		return nil, fmt.Errorf("failed to create payment: %w", err)
	}

	encoded, err := encodePaymentSignatureHeader(payload)
	if err != nil {
		return nil, err
	}

	// Create new request with payment header
	paymentReq := req.Clone(ctx)
	if getBody != nil {
		body, err := getBody()
		if err != nil {
			return nil, fmt.Errorf("failed to rewind request body: %w", err)
		}
		paymentReq.Body = body
	}
	paymentReq.Header.Set(PaymentSignatureHeader, encoded)

	t.x402Client.logger.Debug("retrying with payment",
		"url", req.URL.String(), "scheme", payload.Accepted.Scheme, "network", payload.Accepted.Network)

	// Retry with payment
	paidResp, err := t.Transport.RoundTrip(paymentReq)
	if err != nil {
		return nil, err
	}
	t.x402Client.handleSettleResponse(ctx, paidResp.Header)
	return paidResp, nil
}

// rewindable returns the request to send first and a way to recreate its body.
// Bodies without GetBody are buffered so the paid retry can resend them.
func rewindable(req *http.Request) (*http.Request, func() (io.ReadCloser, error), error) {
	if req.Body == nil || req.Body == http.NoBody {
		return req, nil, nil
	}
	if req.GetBody != nil {
		return req, req.GetBody, nil
	}

	data, err := io.ReadAll(req.Body)
	req.Body.Close()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to buffer request body: %w", err)
	}
	getBody := func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(data)), nil
	}

	first := req.Clone(req.Context())
	first.Body, _ = getBody()
	first.GetBody = getBody
	return first, getBody, nil
}

// ============================================================================
// Convenience Methods
// ============================================================================

// DoWithPayment performs an HTTP request with automatic payment handling
func (c *x402HTTPClient) DoWithPayment(ctx context.Context, req *http.Request) (*http.Response, error) {
	// Create a client with our transport
	client := &http.Client{
		Transport: &PaymentRoundTripper{
			Transport:  c.transport,
			x402Client: c,
		},
	}

	return client.Do(req.WithContext(ctx))
}

// GetWithPayment performs a GET request with automatic payment handling
func (c *x402HTTPClient) GetWithPayment(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	return c.DoWithPayment(ctx, req)
}

// PostWithPayment performs a POST request with automatic payment handling
func (c *x402HTTPClient) PostWithPayment(ctx context.Context, url string, contentType string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return nil, err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	return c.DoWithPayment(ctx, req)
}

// ============================================================================
// Header Encoding/Decoding Functions
// ============================================================================

// encodePaymentSignatureHeader encodes a payment payload as base64
func encodePaymentSignatureHeader(payload x402.PaymentPayload) (string, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal payment payload: %w", err)
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

// decodePaymentResponseHeader decodes a base64 payment response header
func decodePaymentResponseHeader(header string) (x402.SettleResponse, error) {
	data, err := base64.StdEncoding.DecodeString(header)
	if err != nil {
		return x402.SettleResponse{}, fmt.Errorf("invalid base64 encoding: %w", err)
	}

	var response x402.SettleResponse
	if err := json.Unmarshal(data, &response); err != nil {
		return x402.SettleResponse{}, fmt.Errorf("invalid settle response JSON: %w", err)
	}

	return response, nil
}
