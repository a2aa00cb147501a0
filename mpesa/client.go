// Package mpesa talks to the Daraja STK push API: access tokens, push requests
// and the asynchronous result callbacks.
package mpesa

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

const stkPushPath = "/mpesa/stkpush/v1/processrequest"

// DefaultBaseURL is the Daraja sandbox.
const DefaultBaseURL = "https://sandbox.safaricom.co.ke"

// ErrGatewayUnavailable wraps transport failures and timeouts of a push request.
var ErrGatewayUnavailable = errors.New("mpesa: gateway unavailable")

// UpstreamError carries a gateway answer that was not an acknowledgment.
// StatusCode and Body are proxied to the caller unchanged.
type UpstreamError struct {
	StatusCode int
	Body       []byte
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("mpesa: gateway answered %d: %s", e.StatusCode, truncate(e.Body, 256))
}

type Config struct {
	BaseURL         string
	ConsumerKey     string
	ConsumerSecret  string
	ShortCode       string
	Passkey         string
	CallbackURL     string
	TransactionDesc string
	Timeout         time.Duration
}

// STKPushResponse is the gateway's synchronous acknowledgment of a push.
type STKPushResponse struct {
	MerchantRequestID   string `json:"MerchantRequestID"`
	CheckoutRequestID   string `json:"CheckoutRequestID"`
	ResponseCode        Code   `json:"ResponseCode"`
	ResponseDescription string `json:"ResponseDescription"`
	CustomerMessage     string `json:"CustomerMessage"`

	StatusCode int             `json:"-"`
	Raw        json.RawMessage `json:"-"`
}

type Client struct {
	cfg    Config
	http   *http.Client
	tokens *CachedTokenSource
	now    func() time.Time
}

func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	hc := &http.Client{Timeout: cfg.Timeout}
	return &Client{
		cfg:    cfg,
		http:   hc,
		tokens: NewCachedTokenSource(CredentialFetcher(hc, cfg.BaseURL, cfg.ConsumerKey, cfg.ConsumerSecret)),
		now:    time.Now,
	}
}

// Tokens exposes the shared credential cache.
func (c *Client) Tokens() *CachedTokenSource {
	return c.tokens
}

// STKPush asks the gateway to prompt phone for amount against orderRef.
//
// Errors: ErrAuthFailure when no token could be obtained, ErrGatewayUnavailable
// on transport failure or timeout, *UpstreamError for any non-200 answer or a
// 200 answer without a CheckoutRequestID.
func (c *Client) STKPush(ctx context.Context, orderRef, phone string, amount int64) (*STKPushResponse, error) {
	tok, err := c.tokens.TokenContext(ctx)
	if err != nil {
		return nil, err
	}

	payload := BuildPayload(PayloadParams{
		OrderRef:    orderRef,
		PhoneNumber: phone,
		Amount:      amount,
		ShortCode:   c.cfg.ShortCode,
		Passkey:     c.cfg.Passkey,
		CallbackURL: c.cfg.CallbackURL,
		Description: c.cfg.TransactionDesc,
	}, c.now())
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("mpesa: marshal push request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+stkPushPath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("mpesa: build push request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	tok.SetAuthHeader(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", ErrGatewayUnavailable, err)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		c.tokens.Invalidate()
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &UpstreamError{StatusCode: resp.StatusCode, Body: raw}
	}

	var ack STKPushResponse
	if err := json.Unmarshal(raw, &ack); err != nil || ack.CheckoutRequestID == "" {
		return nil, &UpstreamError{StatusCode: http.StatusBadGateway, Body: raw}
	}
	ack.StatusCode = resp.StatusCode
	ack.Raw = raw
	return &ack, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
