package checkout

import (
	"bytes"
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/expresscouriers/checkout/internal/domain"
)

const alertTimeout = 10 * time.Second

// Alerter is told about every failed order the fallback path persisted
type Alerter interface {
	FailedOrder(record domain.FailedOrderRecord)
}

// WebhookAlerter posts failed-order summaries to the support team's webhook
type WebhookAlerter struct {
	url    string
	client *http.Client
	logger *zap.Logger
}

// NewWebhookAlerter creates an alerter. An empty url disables it.
func NewWebhookAlerter(url string, logger *zap.Logger) *WebhookAlerter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WebhookAlerter{url: url, client: &http.Client{Timeout: alertTimeout}, logger: logger}
}

// FailedOrder sends the alert in a goroutine so checkout is not blocked
func (a *WebhookAlerter) FailedOrder(record domain.FailedOrderRecord) {
	if a == nil || a.url == "" {
		return
	}
	go a.send(alertPayload(record))
}

func alertPayload(record domain.FailedOrderRecord) map[string]interface{} {
	total, _ := record.Draft.Quote.TotalAmount()
	event := "checkout_failed"
	if record.PaymentCaptured {
		event = "paid_order_not_dispatched"
	}
	return map[string]interface{}{
		"event":            event,
		"recovery_key":     record.Key,
		"reason":           record.Reason,
		"payment_captured": record.PaymentCaptured,
		"city":             record.Draft.CityID,
		"sender":           record.Draft.Sender.Name,
		"sender_phone":     record.Draft.Sender.Phone,
		"total":            domain.Round2(total),
		"created_at":       record.CreatedAt.Format(time.RFC3339),
	}
}

func (a *WebhookAlerter) send(payload map[string]interface{}) {
	body, err := json.Marshal(payload)
	if err != nil {
		a.logger.Warn("Alert: failed to marshal payload", zap.Error(err))
		return
	}
	req, err := http.NewRequest(http.MethodPost, a.url, bytes.NewReader(body))
	if err != nil {
		a.logger.Warn("Alert: failed to create request", zap.String("url", a.url), zap.Error(err))
		return
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := a.client.Do(req)
	if err != nil {
		a.logger.Warn("Alert: request failed", zap.String("url", a.url), zap.Error(err))
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		a.logger.Warn("Alert: webhook returned non-2xx",
			zap.String("url", a.url), zap.Int("status", resp.StatusCode))
		return
	}
	a.logger.Info("Alert: failed order reported", zap.Any("recovery_key", payload["recovery_key"]), zap.Int("status", resp.StatusCode))
}
