package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/expresscouriers/checkout/internal/api/middleware"
)

func main() {
	apiKeyFlag := flag.String("api-key", "", "Support API key (save it; it cannot be retrieved from the hash)")
	flag.Parse()

	apiKey := *apiKeyFlag
	if apiKey == "" && flag.NArg() > 0 {
		apiKey = flag.Arg(0)
	}
	// Trim so the hash matches what the server receives (the auth middleware trims the Bearer token)
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		fmt.Println("Usage:")
		fmt.Println("  go run ./cmd/hash-support-key --api-key \"your-support-key\"")
		os.Exit(1)
	}

	hash, err := middleware.HashAPIKey(apiKey)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to hash API key: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Add this to your environment or .env:")
	fmt.Printf("  SUPPORT_API_KEY_HASH=%s\n", hash)
	fmt.Println()
	fmt.Println("Then call the support API with:")
	fmt.Println("  curl -H \"Authorization: Bearer YOUR_API_KEY\" http://localhost:8080/v1/support/failed-orders")
}
