package checkout

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/expresscouriers/checkout/internal/dispatch"
	"github.com/expresscouriers/checkout/internal/domain"
	"github.com/expresscouriers/checkout/internal/repository"
	"github.com/expresscouriers/checkout/internal/retry"
	"github.com/expresscouriers/checkout/pkg/errors"
)

// Recovery lets support staff work through persisted failed orders
type Recovery struct {
	store      repository.SessionStore
	dispatcher dispatch.Dispatcher
	retrier    *retry.Retrier
	policy     retry.Policy
	logger     *zap.Logger
}

// NewRecovery creates a recovery service. A nil retrier uses the default timers.
func NewRecovery(store repository.SessionStore, dispatcher dispatch.Dispatcher, retrier *retry.Retrier, logger *zap.Logger) *Recovery {
	if logger == nil {
		logger = zap.NewNop()
	}
	if retrier == nil {
		retrier = retry.New(logger)
	}
	return &Recovery{
		store:      store,
		dispatcher: dispatcher,
		retrier:    retrier,
		policy:     retry.DispatchPolicy(),
		logger:     logger,
	}
}

// List returns failed orders, newest first. Unreadable entries are skipped.
func (r *Recovery) List(ctx context.Context) ([]domain.FailedOrderRecord, error) {
	entries, err := r.store.List(ctx, repository.FailedOrderKeyPrefix)
	if err != nil {
		return nil, err
	}
	records := make([]domain.FailedOrderRecord, 0, len(entries))
	for _, e := range entries {
		rec, err := decodeRecord(e)
		if err != nil {
			r.logger.Warn("Skipping unreadable failed order", zap.String("key", e.Key), zap.Error(err))
			continue
		}
		records = append(records, rec)
	}
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].CreatedAt.After(records[j].CreatedAt)
	})
	return records, nil
}

// Get returns one failed order
func (r *Recovery) Get(ctx context.Context, key string) (domain.FailedOrderRecord, error) {
	if !repository.IsFailedOrderKey(key) {
		return domain.FailedOrderRecord{}, &errors.ErrValidation{Field: "key", Message: "not a failed order key"}
	}
	entry, err := r.store.Get(ctx, key)
	if err != nil {
		return domain.FailedOrderRecord{}, err
	}
	if entry == nil {
		return domain.FailedOrderRecord{}, &errors.ErrNotFound{Resource: "failed order", ID: key}
	}
	return decodeRecord(entry)
}

// Redispatch sends a failed order to dispatch again and removes it once accepted
func (r *Recovery) Redispatch(ctx context.Context, key string) (domain.Confirmation, domain.DispatchResult, error) {
	rec, err := r.Get(ctx, key)
	if err != nil {
		return domain.Confirmation{}, domain.DispatchResult{}, err
	}

	var result domain.DispatchResult
	attempts, err := r.retrier.Do(ctx, r.policy, func(ctx context.Context) error {
		res, err := r.dispatcher.Dispatch(ctx, rec.Draft)
		if err != nil {
			return err
		}
		result = res
		return nil
	})
	if err != nil {
		return domain.Confirmation{}, domain.DispatchResult{}, &errors.ErrDispatchFailed{
			Reason: fmt.Sprintf("redispatch of %s failed", key),
			Err:    &errors.ErrTransientNetwork{Operation: "dispatch", Attempts: attempts, Err: err},
		}
	}

	if err := r.store.Delete(ctx, key); err != nil {
		r.logger.Error("Order redispatched but failed record not removed", zap.String("key", key), zap.Error(err))
	}
	r.logger.Info("Failed order redispatched", zap.String("key", key), zap.Int("attempts", attempts))
	return domain.NewConfirmation(rec.Draft), result, nil
}

// Discard deletes a failed order once support has handled it by hand
func (r *Recovery) Discard(ctx context.Context, key string) error {
	if _, err := r.Get(ctx, key); err != nil {
		return err
	}
	if err := r.store.Delete(ctx, key); err != nil {
		return err
	}
	r.logger.Info("Failed order discarded", zap.String("key", key))
	return nil
}

func decodeRecord(e *domain.SessionEntry) (domain.FailedOrderRecord, error) {
	var rec domain.FailedOrderRecord
	if err := json.Unmarshal(e.Value, &rec); err != nil {
		return domain.FailedOrderRecord{}, fmt.Errorf("failed order %s is unreadable: %w", e.Key, err)
	}
	if rec.Key == "" {
		rec.Key = e.Key
	}
	return rec, nil
}
