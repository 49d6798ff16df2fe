package paystack

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ikechukwuoha/clientportalapp-render/internal/pkg/env"
)

const defaultAPIBaseURL = "https://api.paystack.co"

// ErrUnauthorized is returned when the gateway rejects the configured secret
// key. It is a hard failure, never mapped to a payment outcome.
var ErrUnauthorized = errors.New("paystack: unauthorized")

const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

type Client struct {
	SecretKey  string
	APIBaseURL string

	HTTPClient *http.Client
}

func NewClientFromEnv() *Client {
	return &Client{
		SecretKey:  strings.TrimSpace(env.GetEnv("PAYSTACK_SECRET_KEY", "")),
		APIBaseURL: strings.TrimSpace(env.GetEnv("PAYSTACK_API_URL", defaultAPIBaseURL)),
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type verifyEnvelope struct {
	Status  *bool           `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// VerifyTransaction confirms a payment reference with the gateway. Only a
// gateway-confirmed boolean status is mapped to "success"/"failed"; any other
// response shape, a non-200, or a network failure is returned as an error so
// the caller aborts instead of guessing a payment outcome.
func (c *Client) VerifyTransaction(ctx context.Context, reference string) (string, json.RawMessage, error) {
	ref := strings.TrimSpace(reference)
	if ref == "" {
		return "", nil, errors.New("paystack: payment reference is required")
	}
	if c.SecretKey == "" {
		return "", nil, errors.New("paystack: PAYSTACK_SECRET_KEY is not configured")
	}

	url := strings.TrimRight(c.APIBaseURL, "/") + "/transaction/verify/" + ref
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.SecretKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", nil, fmt.Errorf("paystack: verify request failed: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return "", nil, ErrUnauthorized
	case resp.StatusCode != http.StatusOK:
		return "", nil, fmt.Errorf("paystack: verify returned status=%d body=%s", resp.StatusCode, string(body))
	}

	var out verifyEnvelope
	if err := json.Unmarshal(body, &out); err != nil {
		return "", nil, fmt.Errorf("paystack: invalid verify response: %w", err)
	}
	if out.Status == nil {
		return "", nil, fmt.Errorf("paystack: unexpected verify response: %s", string(body))
	}

	if *out.Status {
		return StatusSuccess, out.Data, nil
	}
	return StatusFailed, out.Data, nil
}
