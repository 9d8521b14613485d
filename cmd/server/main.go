package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/expresscouriers/checkout/internal/api"
	"github.com/expresscouriers/checkout/internal/app"
	"github.com/expresscouriers/checkout/internal/checkout"
	"github.com/expresscouriers/checkout/internal/config"
	"github.com/expresscouriers/checkout/internal/fee"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := app.NewLogger(cfg)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("Starting checkout API server",
		zap.String("port", cfg.Port),
		zap.String("environment", cfg.Environment),
		zap.Strings("cities", cfg.Cities.IDs()),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repos, closeRepos, err := app.OpenRepositories(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to open repositories", zap.Error(err))
	}
	defer closeRepos()

	engine := fee.NewEngine(cfg.Location)
	recovery := app.NewRecovery(cfg, repos, logger)
	router := api.NewRouter(cfg, engine, recovery, repos, logger)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Server started successfully", zap.String("address", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	// Paid orders that never reached dispatch are reported on startup and every 10 minutes
	g.Go(func() error {
		checkout.RunAuditLoop(gctx, recovery, 0, logger)
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server stopped with error", zap.Error(err))
		return
	}
	logger.Info("Server exited")
}
