// Package payment talks to the payment-configuration service and wraps the hosted
// payment widget behind a small capability interface.
package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/expresscouriers/checkout/internal/domain"
	"github.com/expresscouriers/checkout/internal/retry"
)

const sessionPath = "/config/payment-session"

// SessionProvider issues a payment session for an amount
type SessionProvider interface {
	RequestSession(ctx context.Context, amount float64) (domain.PaymentSession, error)
}

// SessionClient calls the payment-configuration service
type SessionClient struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewSessionClient creates a payment-configuration HTTP client
func NewSessionClient(baseURL string, httpClient *http.Client, logger *zap.Logger) *SessionClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &SessionClient{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: httpClient,
		logger:     logger,
	}
}

type sessionRequest struct {
	Amount float64 `json:"amount"`
}

// RequestSession posts {amount} and returns the issued token. Issuing a token never
// charges the customer, so callers may retry freely.
func (c *SessionClient) RequestSession(ctx context.Context, amount float64) (domain.PaymentSession, error) {
	if c.baseURL == "" {
		return domain.PaymentSession{}, retry.Permanent(fmt.Errorf("payment session client not configured: base URL required"))
	}
	body, err := json.Marshal(sessionRequest{Amount: domain.Round2(amount)})
	if err != nil {
		return domain.PaymentSession{}, retry.Permanent(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+sessionPath, bytes.NewReader(body))
	if err != nil {
		return domain.PaymentSession{}, retry.Permanent(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("Payment session request failed", zap.Error(err))
		return domain.PaymentSession{}, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return domain.PaymentSession{}, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return domain.PaymentSession{}, fmt.Errorf("payment session service returned %d: %s", resp.StatusCode, string(raw))
	}

	var session domain.PaymentSession
	if err := json.Unmarshal(raw, &session); err != nil {
		return domain.PaymentSession{}, fmt.Errorf("invalid payment session response: %w", err)
	}
	if session.SessionToken == "" {
		return domain.PaymentSession{}, fmt.Errorf("payment session response missing sessionToken")
	}
	if session.Mode == "" {
		session.Mode = domain.PaymentModeLive
	}
	return session, nil
}
