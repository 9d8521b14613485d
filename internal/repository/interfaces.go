package repository

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/expresscouriers/checkout/internal/domain"
)

// Session store keys
const (
	PendingOrderKey      = "pendingOrder"
	FailedOrderKeyPrefix = "failedOrder_"
)

// IsFailedOrderKey reports whether key names a persisted failed order
func IsFailedOrderKey(key string) bool {
	return strings.HasPrefix(key, FailedOrderKeyPrefix) && len(key) > len(FailedOrderKeyPrefix)
}

// SessionStore is the session-scoped key/value store the checkout persists drafts into.
// Get returns nil, nil when the key is absent.
type SessionStore interface {
	Put(ctx context.Context, key string, value []byte) error
	Get(ctx context.Context, key string) (*domain.SessionEntry, error)
	Delete(ctx context.Context, key string) error
	List(ctx context.Context, prefix string) ([]*domain.SessionEntry, error)
}

// SubmissionEventRepository defines submission event data access methods
type SubmissionEventRepository interface {
	Create(ctx context.Context, event *domain.SubmissionEvent) error
	GetBySubmissionID(ctx context.Context, submissionID uuid.UUID) ([]*domain.SubmissionEvent, error)
}

// IdempotencyKeyRepository defines idempotency key data access methods
type IdempotencyKeyRepository interface {
	GetByKey(ctx context.Context, key string) (*domain.IdempotencyKey, error)
	// Reserve claims key for requestHash; false means another request already holds it
	Reserve(ctx context.Context, key, requestHash string) (bool, error)
	Complete(ctx context.Context, key string, status int, body []byte) error
	// Release drops a reservation that never completed
	Release(ctx context.Context, key string) error
}

// Repositories aggregates all repositories
type Repositories struct {
	Session         SessionStore
	SubmissionEvent SubmissionEventRepository
	IdempotencyKey  IdempotencyKeyRepository
}
