package main

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/oppshop/fulfillment/internal/config"
	"github.com/oppshop/fulfillment/internal/domain"
	"github.com/oppshop/fulfillment/internal/repository/postgres"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: go run cmd/show-order/main.go <order-id>")
		os.Exit(1)
	}

	orderID, err := uuid.Parse(os.Args[1])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid order ID: %v\n", err)
		os.Exit(1)
	}

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

	repos := postgres.NewRepositories(db, logger)
	ctx := context.Background()

	order, err := repos.Order.GetByID(ctx, orderID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to get order: %v\n", err)
		os.Exit(1)
	}

	lines, err := repos.OrderedLine.ListByOrder(ctx, orderID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to get order lines: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Order %s\n", order.ID)
	fmt.Printf("  Kind:     %s\n", order.Kind)
	fmt.Printf("  Receiver: %s\n", order.ReceiverID)
	fmt.Printf("  Target:   %s\n", order.TargetLocationID)
	fmt.Printf("  Created:  %s\n", order.CreatedAt.Format("2006-01-02 15:04:05"))
	if order.ReceivedAt != nil {
		fmt.Printf("  Received: %s\n", order.ReceivedAt.Format("2006-01-02 15:04:05"))
	}

	for _, line := range lines {
		events, err := repos.ProductEvent.List(ctx, orderID, line.ProductID)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to read event log: %v\n", err)
			os.Exit(1)
		}

		dist, err := domain.Reduce(events)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to reduce event log: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("\nProduct %s (ordered %d @ %.2f, %d events)\n",
			line.ProductID, line.Quantity, line.UnitPrice, len(events))
		fmt.Printf("  waiting:            %d\n", dist.Waiting)
		fmt.Printf("  at start location:  %d\n", dist.AtStartLocation)
		fmt.Printf("  at target location: %d\n", dist.AtTargetLocation)
		for loc, qty := range dist.ByLocation {
			if qty > 0 {
				fmt.Printf("  at %s: %d\n", loc, qty)
			}
		}
		for leg, qty := range dist.InTransit {
			if qty > 0 {
				fmt.Printf("  in transit on %s: %d\n", leg, qty)
			}
		}
		if dist.InTransitInvalid > 0 {
			fmt.Printf("  in transit (unmatched origin): %d\n", dist.InTransitInvalid)
		}
		fmt.Printf("  delivered:          %d\n", dist.Delivered)
		fmt.Printf("  refunded:           %d\n", dist.Refunded)

		if total := dist.Total(); total != line.Quantity {
			fmt.Printf("  WARNING: buckets sum to %d, ordered %d\n", total, line.Quantity)
		}
		for _, anomaly := range dist.Anomalies {
			fmt.Printf("  ANOMALY: %s\n", anomaly)
		}
	}
}
