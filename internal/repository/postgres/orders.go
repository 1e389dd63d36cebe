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

type orderRepository struct {
	q      querier
	logger *zap.Logger
}

func (r *orderRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	query := `
		SELECT id, kind, receiver_id, target_location_id, created_at, received_at
		FROM orders
		WHERE id = $1
	`

	var order domain.Order
	var receivedAt sql.NullTime

	err := r.q.QueryRowContext(ctx, query, id).Scan(
		&order.ID,
		&order.Kind,
		&order.ReceiverID,
		&order.TargetLocationID,
		&order.CreatedAt,
		&receivedAt,
	)

	if err == sql.ErrNoRows {
		return nil, &errors.ErrNotFound{Resource: "order", ID: id.String()}
	}
	if err != nil {
		r.logger.Error("Failed to get order by ID", zap.Error(err))
		return nil, err
	}

	if receivedAt.Valid {
		order.ReceivedAt = &receivedAt.Time
	}

	return &order, nil
}

func (r *orderRepository) Create(ctx context.Context, order *domain.Order) error {
	query := `
		INSERT INTO orders (id, kind, receiver_id, target_location_id, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	if order.CreatedAt.IsZero() {
		order.CreatedAt = time.Now()
	}

	_, err := r.q.ExecContext(ctx, query,
		order.ID,
		order.Kind,
		order.ReceiverID,
		order.TargetLocationID,
		order.CreatedAt,
	)

	if err != nil {
		r.logger.Error("Failed to create order", zap.Error(err))
		return err
	}

	return nil
}

func (r *orderRepository) MarkReceived(ctx context.Context, id uuid.UUID, at time.Time) error {
	query := `
		UPDATE orders
		SET received_at = $2
		WHERE id = $1 AND received_at IS NULL
	`

	_, err := r.q.ExecContext(ctx, query, id, at)
	if err != nil {
		r.logger.Error("Failed to mark order received", zap.Error(err))
		return err
	}

	return nil
}

type orderedLineRepository struct {
	q      querier
	logger *zap.Logger
}

func (r *orderedLineRepository) Get(ctx context.Context, orderID, productID uuid.UUID) (*domain.OrderedLine, error) {
	query := `
		SELECT order_id, product_id, quantity, unit_price, received_count
		FROM ordered_lines
		WHERE order_id = $1 AND product_id = $2
	`

	var line domain.OrderedLine
	err := r.q.QueryRowContext(ctx, query, orderID, productID).Scan(
		&line.OrderID,
		&line.ProductID,
		&line.Quantity,
		&line.UnitPrice,
		&line.ReceivedCount,
	)

	if err == sql.ErrNoRows {
		return nil, &errors.ErrNotFound{Resource: "ordered line", ID: orderID.String() + "/" + productID.String()}
	}
	if err != nil {
		r.logger.Error("Failed to get ordered line", zap.Error(err))
		return nil, err
	}

	return &line, nil
}

func (r *orderedLineRepository) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]*domain.OrderedLine, error) {
	query := `
		SELECT order_id, product_id, quantity, unit_price, received_count
		FROM ordered_lines
		WHERE order_id = $1
		ORDER BY product_id
	`

	rows, err := r.q.QueryContext(ctx, query, orderID)
	if err != nil {
		r.logger.Error("Failed to list ordered lines", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var lines []*domain.OrderedLine
	for rows.Next() {
		var line domain.OrderedLine
		if err := rows.Scan(
			&line.OrderID,
			&line.ProductID,
			&line.Quantity,
			&line.UnitPrice,
			&line.ReceivedCount,
		); err != nil {
			return nil, err
		}
		lines = append(lines, &line)
	}

	return lines, rows.Err()
}

func (r *orderedLineRepository) CreateBatch(ctx context.Context, lines []*domain.OrderedLine) error {
	query := `
		INSERT INTO ordered_lines (order_id, product_id, quantity, unit_price, received_count)
		VALUES ($1, $2, $3, $4, $5)
	`

	for _, line := range lines {
		_, err := r.q.ExecContext(ctx, query,
			line.OrderID,
			line.ProductID,
			line.Quantity,
			line.UnitPrice,
			line.ReceivedCount,
		)
		if err != nil {
			r.logger.Error("Failed to create ordered line", zap.Error(err))
			return err
		}
	}

	return nil
}

func (r *orderedLineRepository) IncrementReceived(ctx context.Context, orderID, productID uuid.UUID, quantity int) error {
	query := `
		UPDATE ordered_lines
		SET received_count = received_count + $3
		WHERE order_id = $1 AND product_id = $2
	`

	_, err := r.q.ExecContext(ctx, query, orderID, productID, quantity)
	if err != nil {
		r.logger.Error("Failed to increment received count", zap.Error(err))
		return err
	}

	return nil
}
