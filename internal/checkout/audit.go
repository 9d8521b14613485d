package checkout

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

const auditInterval = 10 * time.Minute

var auditMu sync.Mutex

// AuditSummary counts the failed orders waiting for support
type AuditSummary struct {
	Total  int
	Paid   int
	Oldest time.Time
}

// AuditOnce logs every paid order that is still waiting for dispatch
func AuditOnce(ctx context.Context, recovery *Recovery, logger *zap.Logger) (AuditSummary, error) {
	records, err := recovery.List(ctx)
	if err != nil {
		logger.Error("Failed-order audit: list failed", zap.Error(err))
		return AuditSummary{}, err
	}

	var s AuditSummary
	for _, rec := range records {
		s.Total++
		if !rec.PaymentCaptured {
			continue
		}
		s.Paid++
		if s.Oldest.IsZero() || rec.CreatedAt.Before(s.Oldest) {
			s.Oldest = rec.CreatedAt
		}
		logger.Warn("Paid order still not dispatched",
			zap.String("key", rec.Key),
			zap.String("sender_phone", rec.Draft.Sender.Phone),
			zap.Time("created_at", rec.CreatedAt),
		)
	}

	if s.Total > 0 {
		logger.Info("Failed-order audit complete", zap.Int("total", s.Total), zap.Int("paid", s.Paid))
	}
	return s, nil
}

// RunAuditLoop audits once, then every interval until ctx is done. Call from a goroutine.
func RunAuditLoop(ctx context.Context, recovery *Recovery, interval time.Duration, logger *zap.Logger) {
	if interval <= 0 {
		interval = auditInterval
	}
	run := func() {
		auditMu.Lock()
		defer auditMu.Unlock()
		_, _ = AuditOnce(ctx, recovery, logger)
	}

	run()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			run()
		}
	}
}
