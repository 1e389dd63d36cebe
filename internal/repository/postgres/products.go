package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/oppshop/fulfillment/internal/domain"
	"github.com/oppshop/fulfillment/pkg/errors"
)

type productRepository struct {
	q      querier
	logger *zap.Logger
}

func (r *productRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	return r.get(ctx, id, false)
}

func (r *productRepository) GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	return r.get(ctx, id, true)
}

func (r *productRepository) get(ctx context.Context, id uuid.UUID, forUpdate bool) (*domain.Product, error) {
	query := `
		SELECT id, seller_id, name, unit_price, available_stock, created_at, updated_at
		FROM products
		WHERE id = $1
	`
	if forUpdate {
		query += " FOR UPDATE"
	}

	var product domain.Product
	err := r.q.QueryRowContext(ctx, query, id).Scan(
		&product.ID,
		&product.SellerID,
		&product.Name,
		&product.UnitPrice,
		&product.AvailableStock,
		&product.CreatedAt,
		&product.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, &errors.ErrNotFound{Resource: "product", ID: id.String()}
	}
	if err != nil {
		r.logger.Error("Failed to get product", zap.Error(err))
		return nil, err
	}

	return &product, nil
}

func (r *productRepository) Create(ctx context.Context, product *domain.Product) error {
	query := `
		INSERT INTO products (id, seller_id, name, unit_price, available_stock, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	now := time.Now()
	if product.ID == uuid.Nil {
		product.ID = uuid.New()
	}
	if product.CreatedAt.IsZero() {
		product.CreatedAt = now
	}
	if product.UpdatedAt.IsZero() {
		product.UpdatedAt = now
	}

	_, err := r.q.ExecContext(ctx, query,
		product.ID,
		product.SellerID,
		product.Name,
		product.UnitPrice,
		product.AvailableStock,
		product.CreatedAt,
		product.UpdatedAt,
	)

	if err != nil {
		r.logger.Error("Failed to create product", zap.Error(err))
		return err
	}

	return nil
}

func (r *productRepository) AdjustStock(ctx context.Context, id uuid.UUID, delta int) error {
	query := `
		UPDATE products
		SET available_stock = available_stock + $2, updated_at = $3
		WHERE id = $1 AND available_stock + $2 >= 0
	`

	result, err := r.q.ExecContext(ctx, query, id, delta, time.Now())
	if err != nil {
		r.logger.Error("Failed to adjust stock", zap.Error(err))
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return &errors.ErrInsufficientStock{ProductID: id.String(), Requested: -delta}
	}

	return nil
}
