package domain

import (
	"time"

	"github.com/google/uuid"
)

// Product represents a sellable product with its reservation counter
type Product struct {
	ID             uuid.UUID
	SellerID       uuid.UUID
	Name           string
	UnitPrice      float64
	AvailableStock int
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// PickupPoint represents a physical node where goods are held, handed to a
// buyer, or exchanged with a logistics leg
type PickupPoint struct {
	ID         uuid.UUID
	Name       string
	Address    string
	APIKeyHash string
	IsActive   bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Order represents a buyer order or a seller-bound return order.
// Created once; immutable except for appended status rows and ReceivedAt.
type Order struct {
	ID               uuid.UUID
	Kind             OrderKind
	ReceiverID       uuid.UUID // buyer for client orders, seller for return orders
	TargetLocationID uuid.UUID
	CreatedAt        time.Time
	ReceivedAt       *time.Time
}

// OrderedLine represents one (order, product) pair. ReceivedCount is an
// informational cross-check only; the event log is the source of truth.
type OrderedLine struct {
	OrderID       uuid.UUID
	ProductID     uuid.UUID
	Quantity      int
	UnitPrice     float64
	ReceivedCount int
}

// ProductStatusEvent is one immutable row of the per-(order, product) ledger.
// Quantity is quantity-level, not object-level: a single event can represent
// many physical units moving together.
type ProductStatusEvent struct {
	ID         int64
	OrderID    uuid.UUID
	ProductID  uuid.UUID
	Status     ProductStatus
	Quantity   int
	Meta       EventMeta
	OccurredAt time.Time
}

// OrderStatusEvent is an order-level status row used by the history projector
type OrderStatusEvent struct {
	ID         int64
	OrderID    uuid.UUID
	Status     OrderStatus
	Payload    map[string]interface{} // JSONB
	OccurredAt time.Time
}
