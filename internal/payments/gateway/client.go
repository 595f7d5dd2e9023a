// Package gateway is a thin client for the card payment provider's REST API.
// Amounts are integer minor units end to end; the provider shares this
// convention so no conversion happens here.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Config configures the gateway client.
type Config struct {
	BaseURL   string
	SecretKey string
}

// Client calls the payment provider.
type Client struct {
	baseURL    string
	secretKey  string
	httpClient *http.Client
}

// NewClient creates a gateway client.
func NewClient(cfg Config) *Client {
	return &Client{
		baseURL:   cfg.BaseURL,
		secretKey: cfg.SecretKey,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// InitializeRequest starts a checkout session.
type InitializeRequest struct {
	Email       string `json:"email"`
	AmountMinor int64  `json:"amount"`
	Currency    string `json:"currency"`
	Reference   string `json:"reference"`
	CallbackURL string `json:"callback_url,omitempty"`
}

// InitializeResult is the provider's checkout session.
type InitializeResult struct {
	AuthorizationURL string
	AccessCode       string
	Reference        string
}

// VerifyResult is the provider's view of a transaction.
type VerifyResult struct {
	Status      string
	AmountMinor int64
	Currency    string
	PaidAt      time.Time
}

// Success reports whether the provider settled the transaction.
func (v VerifyResult) Success() bool {
	return v.Status == "success"
}

type initializeEnvelope struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    struct {
		AuthorizationURL string `json:"authorization_url"`
		AccessCode       string `json:"access_code"`
		Reference        string `json:"reference"`
	} `json:"data"`
}

type verifyEnvelope struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    struct {
		Status   string `json:"status"`
		Amount   int64  `json:"amount"`
		Currency string `json:"currency"`
		PaidAt   string `json:"paid_at"`
	} `json:"data"`
}

// Initialize starts a checkout session and returns the hosted payment page URL.
func (c *Client) Initialize(ctx context.Context, req InitializeRequest) (InitializeResult, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return InitializeResult{}, err
	}

	var env initializeEnvelope
	if err := c.do(ctx, http.MethodPost, "/transaction/initialize", bytes.NewReader(body), &env); err != nil {
		return InitializeResult{}, err
	}
	if !env.Status {
		return InitializeResult{}, fmt.Errorf("gateway initialize rejected: %s", env.Message)
	}

	return InitializeResult{
		AuthorizationURL: env.Data.AuthorizationURL,
		AccessCode:       env.Data.AccessCode,
		Reference:        env.Data.Reference,
	}, nil
}

// Verify fetches the settled state of a transaction by reference.
func (c *Client) Verify(ctx context.Context, reference string) (VerifyResult, error) {
	var env verifyEnvelope
	if err := c.do(ctx, http.MethodGet, "/transaction/verify/"+reference, nil, &env); err != nil {
		return VerifyResult{}, err
	}
	if !env.Status {
		return VerifyResult{}, fmt.Errorf("gateway verify rejected: %s", env.Message)
	}

	out := VerifyResult{
		Status:      env.Data.Status,
		AmountMinor: env.Data.Amount,
		Currency:    env.Data.Currency,
	}
	if env.Data.PaidAt != "" {
		if t, err := time.Parse(time.RFC3339, env.Data.PaidAt); err == nil {
			out.PaidAt = t
		}
	}
	return out, nil
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("gateway request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("gateway returned %d: %s", resp.StatusCode, string(raw))
	}
	return json.Unmarshal(raw, out)
}
