package main

import (
	"context"
	"fmt"
	"os"

	"golang.org/x/crypto/bcrypt"

	"go.uber.org/zap"

	"github.com/oppshop/fulfillment/internal/config"
	"github.com/oppshop/fulfillment/internal/domain"
	"github.com/oppshop/fulfillment/internal/repository/postgres"
)

func main() {
	if len(os.Args) < 4 {
		fmt.Println("Usage: go run cmd/create-pickup-point/main.go <name> <address> <api-key>")
		fmt.Println("Example: go run cmd/create-pickup-point/main.go \"OPP Central\" \"12 Main St\" \"opp-api-key-12345\"")
		os.Exit(1)
	}

	name := os.Args[1]
	address := os.Args[2]
	apiKey := os.Args[3]

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger, _ := zap.NewDevelopment()
	defer logger.Sync()

	// Connect to database
	db, err := postgres.NewConnection(cfg.Database)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to connect to database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	// Hash the API key
	apiKeyHash, err := bcrypt.GenerateFromPassword([]byte(apiKey), 10)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to hash API key: %v\n", err)
		os.Exit(1)
	}

	// Create repositories
	repos := postgres.NewRepositories(db, logger)

	// Create pickup point
	point := &domain.PickupPoint{
		Name:       name,
		Address:    address,
		APIKeyHash: string(apiKeyHash),
		IsActive:   true,
	}

	err = repos.PickupPoint.Create(context.Background(), point)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create pickup point: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Pickup point created successfully!\n\n")
	fmt.Printf("Pickup Point ID: %s\n", point.ID.String())
	fmt.Printf("Name: %s\n", point.Name)
	fmt.Printf("API Key: %s\n", apiKey)
	fmt.Printf("\nIMPORTANT: Save this API key securely! You won't be able to see it again.\n")
	fmt.Printf("\nUse this API key in the Authorization header:\n")
	fmt.Printf("Authorization: Bearer %s\n", apiKey)
}
