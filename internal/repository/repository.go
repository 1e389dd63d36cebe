package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/oppshop/fulfillment/internal/domain"
)

// Repositories bundles the data-access interfaces plus the transaction
// entry point. Ledger operations run through Transact so that snapshot
// validation and event appends share one atomic unit.
type Repositories struct {
	Product      ProductRepository
	PickupPoint  PickupPointRepository
	Order        OrderRepository
	OrderedLine  OrderedLineRepository
	ProductEvent ProductEventRepository
	OrderEvent   OrderEventRepository
	Transactor   Transactor
}

// Transact runs fn against transaction-bound repositories; any error rolls
// the whole unit back.
func (r *Repositories) Transact(ctx context.Context, fn func(*Repositories) error) error {
	return r.Transactor.Transact(ctx, fn)
}

type Transactor interface {
	Transact(ctx context.Context, fn func(*Repositories) error) error
}

type ProductRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Product, error)
	// GetForUpdate locks the product row for the reservation check
	GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.Product, error)
	Create(ctx context.Context, product *domain.Product) error
	// AdjustStock moves the reservation counter by delta (negative reserves,
	// positive returns to stock); the counter never goes below zero
	AdjustStock(ctx context.Context, id uuid.UUID, delta int) error
}

type PickupPointRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.PickupPoint, error)
	GetByAPIKey(ctx context.Context, apiKey string) (*domain.PickupPoint, error)
	Create(ctx context.Context, point *domain.PickupPoint) error
}

type OrderRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	Create(ctx context.Context, order *domain.Order) error
	MarkReceived(ctx context.Context, id uuid.UUID, at time.Time) error
}

type OrderedLineRepository interface {
	Get(ctx context.Context, orderID, productID uuid.UUID) (*domain.OrderedLine, error)
	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]*domain.OrderedLine, error)
	CreateBatch(ctx context.Context, lines []*domain.OrderedLine) error
	// IncrementReceived bumps the informational received counter; it is a
	// cross-check only, never the source of truth for distribution
	IncrementReceived(ctx context.Context, orderID, productID uuid.UUID, quantity int) error
}

type ProductEventRepository interface {
	Append(ctx context.Context, event *domain.ProductStatusEvent) error
	List(ctx context.Context, orderID, productID uuid.UUID) ([]domain.ProductStatusEvent, error)
	// ListForUpdate locks the owning ordered_lines row before reading the
	// log, scoping the (order, product) critical section to the transaction
	ListForUpdate(ctx context.Context, orderID, productID uuid.UUID) ([]domain.ProductStatusEvent, error)
	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]domain.ProductStatusEvent, error)
}

type OrderEventRepository interface {
	Create(ctx context.Context, event *domain.OrderStatusEvent) error
	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]domain.OrderStatusEvent, error)
}
