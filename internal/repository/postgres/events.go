package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/oppshop/fulfillment/internal/domain"
)

type productEventRepository struct {
	q      querier
	logger *zap.Logger
}

func (r *productEventRepository) Append(ctx context.Context, event *domain.ProductStatusEvent) error {
	metadata, err := domain.MarshalMeta(event.Meta)
	if err != nil {
		return err
	}

	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now()
	}

	query := `
		INSERT INTO product_status_events (order_id, product_id, status, quantity, metadata, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`

	err = r.q.QueryRowContext(ctx, query,
		event.OrderID,
		event.ProductID,
		event.Status,
		event.Quantity,
		metadata,
		event.OccurredAt,
	).Scan(&event.ID)

	if err != nil {
		r.logger.Error("Failed to append product status event", zap.Error(err))
		return err
	}

	return nil
}

func (r *productEventRepository) List(ctx context.Context, orderID, productID uuid.UUID) ([]domain.ProductStatusEvent, error) {
	return r.list(ctx, orderID, productID, false)
}

func (r *productEventRepository) ListForUpdate(ctx context.Context, orderID, productID uuid.UUID) ([]domain.ProductStatusEvent, error) {
	return r.list(ctx, orderID, productID, true)
}

func (r *productEventRepository) list(ctx context.Context, orderID, productID uuid.UUID, forUpdate bool) ([]domain.ProductStatusEvent, error) {
	if forUpdate {
		// Lock the owning line row so a concurrent operation cannot validate
		// against the same snapshot and append after we do.
		lock := `SELECT 1 FROM ordered_lines WHERE order_id = $1 AND product_id = $2 FOR UPDATE`
		if _, err := r.q.ExecContext(ctx, lock, orderID, productID); err != nil {
			r.logger.Error("Failed to lock ordered line", zap.Error(err))
			return nil, err
		}
	}

	query := `
		SELECT id, order_id, product_id, status, quantity, metadata, occurred_at
		FROM product_status_events
		WHERE order_id = $1 AND product_id = $2
		ORDER BY occurred_at, id
	`

	rows, err := r.q.QueryContext(ctx, query, orderID, productID)
	if err != nil {
		r.logger.Error("Failed to list product status events", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	return scanEvents(rows)
}

func (r *productEventRepository) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]domain.ProductStatusEvent, error) {
	query := `
		SELECT id, order_id, product_id, status, quantity, metadata, occurred_at
		FROM product_status_events
		WHERE order_id = $1
		ORDER BY occurred_at, id
	`

	rows, err := r.q.QueryContext(ctx, query, orderID)
	if err != nil {
		r.logger.Error("Failed to list product status events by order", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	return scanEvents(rows)
}

func scanEvents(rows *sql.Rows) ([]domain.ProductStatusEvent, error) {
	var events []domain.ProductStatusEvent
	for rows.Next() {
		var (
			event    domain.ProductStatusEvent
			metadata []byte
		)
		if err := rows.Scan(
			&event.ID,
			&event.OrderID,
			&event.ProductID,
			&event.Status,
			&event.Quantity,
			&metadata,
			&event.OccurredAt,
		); err != nil {
			return nil, err
		}

		meta, err := domain.UnmarshalMeta(event.Status, metadata)
		if err != nil {
			return nil, err
		}
		event.Meta = meta

		events = append(events, event)
	}

	return events, rows.Err()
}

type orderEventRepository struct {
	q      querier
	logger *zap.Logger
}

func (r *orderEventRepository) Create(ctx context.Context, event *domain.OrderStatusEvent) error {
	var payload []byte
	if event.Payload != nil {
		var err error
		payload, err = json.Marshal(event.Payload)
		if err != nil {
			return err
		}
	}

	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now()
	}

	query := `
		INSERT INTO order_status_events (order_id, status, payload, occurred_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`

	err := r.q.QueryRowContext(ctx, query,
		event.OrderID,
		event.Status,
		payload,
		event.OccurredAt,
	).Scan(&event.ID)

	if err != nil {
		r.logger.Error("Failed to create order status event", zap.Error(err))
		return err
	}

	return nil
}

func (r *orderEventRepository) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]domain.OrderStatusEvent, error) {
	query := `
		SELECT id, order_id, status, payload, occurred_at
		FROM order_status_events
		WHERE order_id = $1
		ORDER BY occurred_at, id
	`

	rows, err := r.q.QueryContext(ctx, query, orderID)
	if err != nil {
		r.logger.Error("Failed to list order status events", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var events []domain.OrderStatusEvent
	for rows.Next() {
		var (
			event   domain.OrderStatusEvent
			payload []byte
		)
		if err := rows.Scan(&event.ID, &event.OrderID, &event.Status, &payload, &event.OccurredAt); err != nil {
			return nil, err
		}
		if len(payload) > 0 {
			if err := json.Unmarshal(payload, &event.Payload); err != nil {
				return nil, err
			}
		}
		events = append(events, event)
	}

	return events, rows.Err()
}
