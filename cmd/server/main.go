package main

import (
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/oppshop/fulfillment/internal/api"
	"github.com/oppshop/fulfillment/internal/config"
	"github.com/oppshop/fulfillment/internal/logistics"
	"github.com/oppshop/fulfillment/internal/repository/postgres"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	var logger *zap.Logger
	if cfg.Environment == "production" {
		logger, err = zap.NewProduction()
	} else {
		logger, err = zap.NewDevelopment()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	// Connect to database
	db, err := postgres.NewConnection(cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	// Create repositories and the logistics collaborator client
	repos := postgres.NewRepositories(db, logger)
	logisticsClient := logistics.NewClient(cfg.Logistics, logger)

	// Build router and serve
	router := api.NewRouter(cfg, repos, logisticsClient, logger)

	logger.Info("Starting fulfillment server",
		zap.String("port", cfg.Port),
		zap.String("environment", cfg.Environment),
	)
	if err := router.Run(":" + cfg.Port); err != nil {
		logger.Fatal("Server stopped", zap.Error(err))
	}
}
