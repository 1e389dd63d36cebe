package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/oppshop/fulfillment/internal/repository"
)

// NewRepositories builds the Postgres-backed repository set
func NewRepositories(db *sql.DB, logger *zap.Logger) *repository.Repositories {
	repos := bind(db, logger)
	repos.Transactor = &transactor{db: db, logger: logger}
	return repos
}

func bind(q querier, logger *zap.Logger) *repository.Repositories {
	return &repository.Repositories{
		Product:      &productRepository{q: q, logger: logger},
		PickupPoint:  &pickupPointRepository{q: q, logger: logger},
		Order:        &orderRepository{q: q, logger: logger},
		OrderedLine:  &orderedLineRepository{q: q, logger: logger},
		ProductEvent: &productEventRepository{q: q, logger: logger},
		OrderEvent:   &orderEventRepository{q: q, logger: logger},
	}
}

type transactor struct {
	db     *sql.DB
	logger *zap.Logger
}

// Transact runs fn against transaction-bound repositories. A panic or error
// rolls back; plain errors pass through untouched so callers can match the
// typed taxonomy.
func (t *transactor) Transact(ctx context.Context, fn func(*repository.Repositories) error) (err error) {
	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	repos := bind(tx, t.logger)
	// Nested Transact calls reuse the already-open transaction.
	repos.Transactor = sameTx{repos}

	if err = fn(repos); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			t.logger.Error("Failed to roll back transaction", zap.Error(rbErr))
		}
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

type sameTx struct {
	repos *repository.Repositories
}

func (s sameTx) Transact(ctx context.Context, fn func(*repository.Repositories) error) error {
	return fn(s.repos)
}
