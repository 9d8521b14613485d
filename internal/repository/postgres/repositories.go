package postgres

import (
	"database/sql"

	"go.uber.org/zap"

	"github.com/expresscouriers/checkout/internal/repository"
)

// NewRepositories creates a new set of repositories. Session keys live under scope.
func NewRepositories(db *sql.DB, scope string, logger *zap.Logger) *repository.Repositories {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &repository.Repositories{
		Session:         NewSessionStore(db, scope, logger),
		SubmissionEvent: NewSubmissionEventRepository(db, logger),
		IdempotencyKey:  NewIdempotencyKeyRepository(db, logger),
	}
}
