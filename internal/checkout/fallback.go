package checkout

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/expresscouriers/checkout/internal/domain"
	"github.com/expresscouriers/checkout/internal/repository"
)

const eventFallback = "FALLBACK"

// RecoveryKey builds a failed-order key from a unix-millisecond timestamp and a random suffix
func RecoveryKey(unixMs int64) string {
	return fmt.Sprintf("%s%d_%s", repository.FailedOrderKeyPrefix, unixMs, uuid.NewString()[:8])
}

// fallback shows the manual-recovery notice and moves the draft to a failed-order key.
// A nil draft is harvested from the pending order. It returns the key, or "" when
// persistence failed, in which case the full draft is logged instead.
func (c *Coordinator) fallback(ctx context.Context, sub *submission, draft *domain.OrderDraft, reason string, paymentCaptured bool) string {
	// the record must survive a cancelled request
	ctx = context.WithoutCancel(ctx)

	var d domain.OrderDraft
	if draft != nil {
		d = *draft
	} else {
		harvested, err := c.loadPending(ctx)
		if err != nil {
			c.logger.Warn("Pending order not harvested, using in-memory draft",
				zap.String("submission_id", sub.id.String()),
				zap.Error(err),
			)
			harvested = sub.draft
		}
		d = harvested
	}

	now := c.opts.Clock()
	record := domain.FailedOrderRecord{
		Key:             RecoveryKey(now.UnixMilli()),
		Draft:           d,
		Reason:          reason,
		PaymentCaptured: paymentCaptured,
		CreatedAt:       now,
	}

	key := record.Key
	body, err := json.Marshal(record)
	if err == nil {
		err = c.deps.Store.Put(ctx, key, body)
	}
	if err != nil {
		c.logger.Error("Failed to persist failed order, draft logged for manual recovery",
			zap.String("submission_id", sub.id.String()),
			zap.String("key", key),
			zap.Bool("payment_captured", paymentCaptured),
			zap.String("reason", reason),
			zap.Any("draft", d),
			zap.Error(err),
		)
		key = ""
	} else {
		if err := c.deps.Store.Delete(ctx, repository.PendingOrderKey); err != nil {
			c.logger.Warn("Failed to clear pending order", zap.Error(err))
		}
		c.logger.Warn("Failed order persisted for support",
			zap.String("submission_id", sub.id.String()),
			zap.String("key", key),
			zap.Bool("payment_captured", paymentCaptured),
		)
		if c.deps.Alerter != nil {
			c.deps.Alerter.FailedOrder(record)
		}
	}

	c.record(ctx, sub, eventFallback, map[string]interface{}{
		"recovery_key":     key,
		"payment_captured": paymentCaptured,
		"reason":           reason,
	})
	c.deps.Notifier.ShowManualRecovery(ManualRecoveryNotice{
		Phone:           c.opts.SupportPhone,
		Email:           c.opts.SupportEmail,
		RecoveryKey:     key,
		PaymentCaptured: paymentCaptured,
	})
	return key
}
