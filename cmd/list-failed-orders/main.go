package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/expresscouriers/checkout/internal/app"
	"github.com/expresscouriers/checkout/internal/config"
	"github.com/expresscouriers/checkout/internal/fee"
)

func main() {
	paidOnly := flag.Bool("paid", false, "Only show orders whose payment was captured")
	flag.Parse()

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

	ctx := context.Background()
	repos, closeRepos, err := app.OpenRepositories(ctx, cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open repositories: %v\n", err)
		os.Exit(1)
	}
	defer closeRepos()

	records, err := app.NewRecovery(cfg, repos, logger).List(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to list failed orders: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Failed orders (scope %q):\n", cfg.SessionScope)
	fmt.Println()
	shown := 0
	for _, r := range records {
		if *paidOnly && !r.PaymentCaptured {
			continue
		}
		shown++
		status := "not charged"
		if r.PaymentCaptured {
			status = "PAID"
		}
		total := "pending"
		if t, ok := r.Draft.Quote.TotalAmount(); ok {
			total = "$" + fee.FormatMoney(t)
		}
		fmt.Printf("  %s  %-11s  %s  %s (%s)  %s\n",
			r.CreatedAt.In(cfg.Location).Format("2006-01-02 15:04"),
			status, total, r.Draft.Sender.Name, r.Draft.Sender.Phone, r.Key)
		fmt.Printf("      reason: %s\n", r.Reason)
	}
	if shown == 0 {
		fmt.Println("  No failed orders found.")
		return
	}
	fmt.Println()
	fmt.Println("Redispatch one with:")
	fmt.Println("  go run ./cmd/redispatch-order --key failedOrder_...")
}
