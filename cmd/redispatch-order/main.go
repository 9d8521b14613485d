package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/expresscouriers/checkout/internal/app"
	"github.com/expresscouriers/checkout/internal/config"
	"github.com/expresscouriers/checkout/internal/fee"
)

func main() {
	keyFlag := flag.String("key", "", "Failed order key (failedOrder_...)")
	discard := flag.Bool("discard", false, "Delete the record instead of dispatching it")
	flag.Parse()

	key := *keyFlag
	if key == "" && flag.NArg() > 0 {
		key = flag.Arg(0)
	}
	if key == "" {
		fmt.Println("Usage:")
		fmt.Println("  go run ./cmd/redispatch-order --key failedOrder_1700000000000_ab12cd34")
		fmt.Println("  go run ./cmd/redispatch-order --key failedOrder_1700000000000_ab12cd34 --discard")
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := app.NewLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	repos, closeRepos, err := app.OpenRepositories(ctx, cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open repositories: %v\n", err)
		os.Exit(1)
	}
	defer closeRepos()

	recovery := app.NewRecovery(cfg, repos, logger)
	if *discard {
		if err := recovery.Discard(ctx, key); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to discard %s: %v\n", key, err)
			os.Exit(1)
		}
		fmt.Printf("Discarded %s\n", key)
		return
	}

	confirmation, result, err := recovery.Redispatch(ctx, key)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Redispatch failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Dispatched %s\n", key)
	fmt.Printf("  Reference: %s\n", confirmation.Reference)
	fmt.Printf("  Pickup:    %s\n", confirmation.PickupAddress)
	fmt.Printf("  Drop-off:  %s\n", confirmation.DropoffAddress)
	fmt.Printf("  Total:     $%s\n", fee.FormatMoney(confirmation.Total))
	if result.Message != "" {
		fmt.Printf("  Message:   %s\n", result.Message)
	}
}
