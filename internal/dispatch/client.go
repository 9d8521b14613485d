package dispatch

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

const ordersPath = "/api/delivery-orders"

// Dispatcher submits a finalized order to the back office
type Dispatcher interface {
	Dispatch(ctx context.Context, draft domain.OrderDraft) (domain.DispatchResult, error)
}

// Client calls the dispatch endpoint
type Client struct {
	baseURL    string
	serviceKey string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a dispatch HTTP client. serviceKey is optional.
func NewClient(baseURL, serviceKey string, httpClient *http.Client, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		serviceKey: serviceKey,
		httpClient: httpClient,
		logger:     logger,
	}
}

// orderPayload flattens the draft into the field names the dispatch service reads
type orderPayload struct {
	SenderName     string          `json:"senderName"`
	SenderPhone    string          `json:"senderPhone"`
	SenderEmail    string          `json:"senderEmail,omitempty"`
	PickupAddress  string          `json:"pickupAddress"`
	ReceiverName   string          `json:"receiverName"`
	ReceiverPhone  string          `json:"receiverPhone"`
	ReceiverEmail  string          `json:"receiverEmail,omitempty"`
	DropoffAddress string          `json:"dropoffAddress"`
	DeliveryNotes  string          `json:"deliveryNotes,omitempty"`
	WeightKg       float64         `json:"weight,omitempty"`
	City           string          `json:"city"`
	Subtotal       float64         `json:"subtotal"`
	GST            float64         `json:"gst"`
	Tip            float64         `json:"tip"`
	Total          float64         `json:"total"`
	Quote          domain.FeeQuote `json:"quote"`
	Pickup         domain.LatLng   `json:"pickupLocation"`
	Dropoff        domain.LatLng   `json:"dropoffLocation"`
}

// NewOrderPayload builds the wire body for draft with amounts rounded to cents
func NewOrderPayload(draft domain.OrderDraft) any {
	q := draft.Quote.Rounded()
	return orderPayload{
		SenderName:     draft.Sender.Name,
		SenderPhone:    draft.Sender.Phone,
		SenderEmail:    draft.Sender.Email,
		PickupAddress:  draft.PickupAddress.Display(),
		ReceiverName:   draft.Receiver.Name,
		ReceiverPhone:  draft.Receiver.Phone,
		ReceiverEmail:  draft.Receiver.Email,
		DropoffAddress: draft.DropoffAddress.Display(),
		DeliveryNotes:  draft.Notes,
		WeightKg:       draft.WeightKg,
		City:           draft.CityID,
		Subtotal:       domain.Round2(q.Subtotal()),
		GST:            q.Tax,
		Tip:            q.Tip,
		Total:          q.Total,
		Quote:          draft.Quote,
		Pickup:         draft.PickupAddress.Point(),
		Dropoff:        draft.DropoffAddress.Point(),
	}
}

// Dispatch posts the order. Any non-2xx status or a body with success=false is an error.
func (c *Client) Dispatch(ctx context.Context, draft domain.OrderDraft) (domain.DispatchResult, error) {
	if c.baseURL == "" {
		return domain.DispatchResult{}, retry.Permanent(fmt.Errorf("dispatch client not configured: base URL required"))
	}
	body, err := json.Marshal(NewOrderPayload(draft))
	if err != nil {
		return domain.DispatchResult{}, retry.Permanent(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+ordersPath, bytes.NewReader(body))
	if err != nil {
		return domain.DispatchResult{}, retry.Permanent(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.serviceKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.serviceKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("Dispatch request failed", zap.Error(err), zap.String("city", draft.CityID))
		return domain.DispatchResult{}, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return domain.DispatchResult{}, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return domain.DispatchResult{}, fmt.Errorf("dispatch endpoint returned %d: %s", resp.StatusCode, truncate(string(raw), 512))
	}

	var result domain.DispatchResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return domain.DispatchResult{}, fmt.Errorf("invalid dispatch response: %w", err)
	}
	if !result.Success {
		msg := result.Message
		if msg == "" {
			msg = "success=false"
		}
		return result, fmt.Errorf("dispatch rejected order: %s", msg)
	}

	c.logger.Info("Order dispatched", zap.String("city", draft.CityID), zap.String("message", result.Message))
	return result, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
