package postgres

import (
	"context"
	"database/sql"
	"time"

	"go.uber.org/zap"

	"github.com/expresscouriers/checkout/internal/domain"
)

type sessionStore struct {
	db     *sql.DB
	scope  string
	logger *zap.Logger
}

// NewSessionStore creates a session store whose keys live under scope
func NewSessionStore(db *sql.DB, scope string, logger *zap.Logger) *sessionStore {
	return &sessionStore{
		db:     db,
		scope:  scope,
		logger: logger,
	}
}

func (s *sessionStore) Put(ctx context.Context, key string, value []byte) error {
	query := `
		INSERT INTO session_entries (scope, key, value, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (scope, key) DO UPDATE
		SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at
	`

	_, err := s.db.ExecContext(ctx, query, s.scope, key, value, time.Now())
	if err != nil {
		s.logger.Error("Failed to put session entry", zap.String("key", key), zap.Error(err))
		return err
	}

	return nil
}

func (s *sessionStore) Get(ctx context.Context, key string) (*domain.SessionEntry, error) {
	query := `
		SELECT scope, key, value, updated_at
		FROM session_entries
		WHERE scope = $1 AND key = $2
	`

	var entry domain.SessionEntry
	err := s.db.QueryRowContext(ctx, query, s.scope, key).Scan(
		&entry.Scope,
		&entry.Key,
		&entry.Value,
		&entry.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		s.logger.Error("Failed to get session entry", zap.String("key", key), zap.Error(err))
		return nil, err
	}

	return &entry, nil
}

func (s *sessionStore) Delete(ctx context.Context, key string) error {
	query := `DELETE FROM session_entries WHERE scope = $1 AND key = $2`

	if _, err := s.db.ExecContext(ctx, query, s.scope, key); err != nil {
		s.logger.Error("Failed to delete session entry", zap.String("key", key), zap.Error(err))
		return err
	}

	return nil
}

// List matches the prefix literally; LIKE would treat the underscore in failedOrder_ as a wildcard
func (s *sessionStore) List(ctx context.Context, prefix string) ([]*domain.SessionEntry, error) {
	query := `
		SELECT scope, key, value, updated_at
		FROM session_entries
		WHERE scope = $1 AND left(key, length($2)) = $2
		ORDER BY key ASC
	`

	rows, err := s.db.QueryContext(ctx, query, s.scope, prefix)
	if err != nil {
		s.logger.Error("Failed to list session entries", zap.String("prefix", prefix), zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var entries []*domain.SessionEntry
	for rows.Next() {
		var entry domain.SessionEntry
		if err := rows.Scan(&entry.Scope, &entry.Key, &entry.Value, &entry.UpdatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, &entry)
	}

	return entries, rows.Err()
}
