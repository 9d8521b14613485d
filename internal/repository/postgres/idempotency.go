package postgres

import (
	"context"
	"database/sql"
	"time"

	"go.uber.org/zap"

	"github.com/expresscouriers/checkout/internal/domain"
)

type idempotencyKeyRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewIdempotencyKeyRepository creates a new idempotency key repository
func NewIdempotencyKeyRepository(db *sql.DB, logger *zap.Logger) *idempotencyKeyRepository {
	return &idempotencyKeyRepository{
		db:     db,
		logger: logger,
	}
}

func (r *idempotencyKeyRepository) GetByKey(ctx context.Context, key string) (*domain.IdempotencyKey, error) {
	query := `
		SELECT key, request_hash, response_status, response_body, created_at
		FROM idempotency_keys
		WHERE key = $1
	`

	var idempotencyKey domain.IdempotencyKey

	err := r.db.QueryRowContext(ctx, query, key).Scan(
		&idempotencyKey.Key,
		&idempotencyKey.RequestHash,
		&idempotencyKey.ResponseStatus,
		&idempotencyKey.ResponseBody,
		&idempotencyKey.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get idempotency key", zap.Error(err))
		return nil, err
	}

	return &idempotencyKey, nil
}

// Reserve inserts an in-progress row. Only one caller can win a key.
func (r *idempotencyKeyRepository) Reserve(ctx context.Context, key, requestHash string) (bool, error) {
	query := `
		INSERT INTO idempotency_keys (key, request_hash, response_status, created_at)
		VALUES ($1, $2, 0, $3)
		ON CONFLICT (key) DO NOTHING
	`

	result, err := r.db.ExecContext(ctx, query, key, requestHash, time.Now())
	if err != nil {
		r.logger.Error("Failed to reserve idempotency key", zap.Error(err))
		return false, err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows == 1, nil
}

// Complete stores the response for a reserved key
func (r *idempotencyKeyRepository) Complete(ctx context.Context, key string, status int, body []byte) error {
	query := `
		UPDATE idempotency_keys
		SET response_status = $2, response_body = $3
		WHERE key = $1
	`

	if _, err := r.db.ExecContext(ctx, query, key, status, body); err != nil {
		r.logger.Error("Failed to store idempotent response", zap.String("key", key), zap.Error(err))
		return err
	}
	return nil
}

func (r *idempotencyKeyRepository) Release(ctx context.Context, key string) error {
	query := `DELETE FROM idempotency_keys WHERE key = $1 AND response_status = 0`

	if _, err := r.db.ExecContext(ctx, query, key); err != nil {
		r.logger.Error("Failed to release idempotency key", zap.String("key", key), zap.Error(err))
		return err
	}
	return nil
}
