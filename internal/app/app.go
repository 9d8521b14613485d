// Package app holds the wiring shared by the server and the command-line tools.
package app

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/expresscouriers/checkout/internal/checkout"
	"github.com/expresscouriers/checkout/internal/config"
	"github.com/expresscouriers/checkout/internal/dispatch"
	"github.com/expresscouriers/checkout/internal/repository"
	"github.com/expresscouriers/checkout/internal/repository/memory"
	"github.com/expresscouriers/checkout/internal/repository/postgres"
	"github.com/expresscouriers/checkout/internal/retry"
)

// NewLogger builds a production logger in production and a development logger elsewhere,
// both at LOG_LEVEL.
func NewLogger(cfg *config.Config) (*zap.Logger, error) {
	zc := zap.NewDevelopmentConfig()
	if cfg.Environment == "production" {
		zc = zap.NewProductionConfig()
	}
	if cfg.LogLevel != "" {
		level, err := zap.ParseAtomicLevel(cfg.LogLevel)
		if err != nil {
			return nil, fmt.Errorf("invalid LOG_LEVEL %q: %w", cfg.LogLevel, err)
		}
		zc.Level = level
	}
	return zc.Build()
}

// OpenRepositories connects to postgres when DB_HOST is set and applies the schema.
// Without a database the stores live in memory and last only as long as the process.
// The returned close func is always non-nil.
func OpenRepositories(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*repository.Repositories, func(), error) {
	if !cfg.Database.Enabled() {
		logger.Warn("DB_HOST not set, using in-memory stores", zap.String("scope", cfg.SessionScope))
		return memory.NewRepositories(cfg.SessionScope), func() {}, nil
	}

	db, err := postgres.NewConnection(cfg.Database)
	if err != nil {
		return nil, func() {}, err
	}
	if err := postgres.RunMigrations(ctx, db); err != nil {
		db.Close()
		return nil, func() {}, err
	}
	return postgres.NewRepositories(db, cfg.SessionScope, logger), closer(db, logger), nil
}

func closer(db *sql.DB, logger *zap.Logger) func() {
	return func() {
		if err := db.Close(); err != nil {
			logger.Warn("Failed to close database", zap.Error(err))
		}
	}
}

// NewDispatcher returns the HTTP dispatch client for cfg
func NewDispatcher(cfg *config.Config, logger *zap.Logger) *dispatch.Client {
	return dispatch.NewClient(cfg.Dispatch.URL, cfg.Dispatch.ServiceKey, nil, logger)
}

// NewRecovery wires failed-order recovery against the configured store and dispatcher
func NewRecovery(cfg *config.Config, repos *repository.Repositories, logger *zap.Logger) *checkout.Recovery {
	return checkout.NewRecovery(repos.Session, NewDispatcher(cfg, logger), retry.New(logger), logger)
}
