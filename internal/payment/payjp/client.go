// Package payjp charges card tokens through the PAY.JP charges API.
package payjp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/furima/checkout/internal/domain"
)

const (
	DefaultBaseURL = "https://api.pay.jp/v1"
	DefaultTimeout = 10 * time.Second

	currencyJPY  = "jpy"
	maxBodyBytes = 64 << 10
)

const genericDeclineReason = "card was declined"

type Client struct {
	baseURL   string
	secretKey string
	http      *http.Client
	timeout   time.Duration
}

type Option func(*Client)

func WithBaseURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.baseURL = strings.TrimRight(u, "/")
		}
	}
}

// WithTimeout bounds a single charge call.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

func New(secretKey string, opts ...Option) *Client {
	c := &Client{
		baseURL:   DefaultBaseURL,
		secretKey: secretKey,
		http:      &http.Client{},
		timeout:   DefaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type chargeRequest struct {
	Amount   int64  `json:"amount"`
	Token    string `json:"token"`
	Currency string `json:"currency"`
}

type chargeResponse struct {
	ID string `json:"id"`
}

type errorEnvelope struct {
	Error struct {
		Message string `json:"message"`
		Code    string `json:"code"`
		Type    string `json:"type"`
		Status  int    `json:"status"`
	} `json:"error"`
}

// Charge captures amount (JPY) against a one-time token. It never returns
// an error; failures are classified into the result.
func (c *Client) Charge(ctx context.Context, amount int64, token string) domain.ChargeResult {
	if amount <= 0 {
		return domain.Rejected("invalid amount", fmt.Errorf("non-positive amount %d", amount))
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	body, err := json.Marshal(chargeRequest{Amount: amount, Token: token, Currency: currencyJPY})
	if err != nil {
		return domain.Unavailable(fmt.Errorf("encode charge: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/charges", bytes.NewReader(body))
	if err != nil {
		return domain.Unavailable(fmt.Errorf("build charge request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.SetBasicAuth(c.secretKey, "")

	resp, err := c.http.Do(req)
	if err != nil {
		return domain.Unavailable(fmt.Errorf("charge request: %w", err))
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return domain.Unavailable(fmt.Errorf("read charge response: %w", err))
	}

	return classify(resp.StatusCode, payload)
}

func classify(status int, payload []byte) domain.ChargeResult {
	switch {
	case status >= 200 && status < 300:
		var res chargeResponse
		if err := json.Unmarshal(payload, &res); err != nil || res.ID == "" {
			return domain.Unavailable(fmt.Errorf("malformed charge response (status %d)", status))
		}
		return domain.Captured(res.ID)
	case status == http.StatusTooManyRequests:
		return domain.Unavailable(gatewayError(status, payload))
	case status >= 400 && status < 500:
		err := gatewayError(status, payload)
		return domain.Rejected(declineReason(payload), err)
	default:
		return domain.Unavailable(gatewayError(status, payload))
	}
}

// GatewayError keeps the raw PAY.JP error envelope for server-side diagnostics.
type GatewayError struct {
	Status  int
	Code    string
	Type    string
	Message string
}

func (e *GatewayError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("payjp: status %d", e.Status)
	}
	return fmt.Sprintf("payjp: status %d code=%s type=%s: %s", e.Status, e.Code, e.Type, e.Message)
}

func gatewayError(status int, payload []byte) error {
	var env errorEnvelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return &GatewayError{Status: status}
	}
	return &GatewayError{
		Status:  status,
		Code:    env.Error.Code,
		Type:    env.Error.Type,
		Message: env.Error.Message,
	}
}

// declineReason maps gateway codes to buyer-facing text; raw messages stay in logs.
func declineReason(payload []byte) string {
	var env errorEnvelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return genericDeclineReason
	}
	switch env.Error.Code {
	case "invalid_number", "incorrect_number":
		return "card number is invalid"
	case "invalid_expiration_date", "expired_card":
		return "card has expired"
	case "invalid_cvc", "incorrect_cvc":
		return "security code is invalid"
	case "token_already_used", "already_captured":
		return "payment token already used"
	case "invalid_id", "invalid_token":
		return "card details were not accepted; enter them again"
	default:
		return genericDeclineReason
	}
}
