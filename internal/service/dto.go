package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/oppshop/fulfillment/internal/domain"
)

// CreateOrderRequest describes a new client order
type CreateOrderRequest struct {
	ReceiverID       uuid.UUID
	TargetLocationID uuid.UUID
	Lines            []OrderLineInput
}

type OrderLineInput struct {
	ProductID uuid.UUID `json:"product_id"`
	Quantity  int       `json:"quantity"`
}

// LineResult pairs an ordered line with its freshly computed distribution
type LineResult struct {
	ProductID    uuid.UUID
	Quantity     int
	UnitPrice    float64
	Distribution *domain.Distribution
}

// OrderResult is an order with the computed distribution per line
type OrderResult struct {
	Order *domain.Order
	Lines []LineResult
}

// ReceiveResult reports a seller receipt plus any onward legs the logistics
// collaborator planned in response
type ReceiveResult struct {
	ProductID   uuid.UUID
	Quantity    int
	LocationID  uuid.UUID
	CreatedLegs []PlannedLeg
}

// DeliverRequest hands an order to the buyer at a location, with optional
// per-product rejections
type DeliverRequest struct {
	OrderID    uuid.UUID
	LocationID uuid.UUID
	Rejections map[uuid.UUID]int
}

// DeliveredLine reports one line's outcome of a deliver operation
type DeliveredLine struct {
	ProductID   uuid.UUID
	Delivered   int
	Rejected    int
	Outstanding int
}

// DeliverResult reports a deliver operation. Done is false for a partial
// delivery: quantity is still waiting, in transit, or at another location.
type DeliverResult struct {
	Done           bool
	Lines          []DeliveredLine
	ReturnOrderIDs []uuid.UUID
}

// CancelResult reports a cancel operation
type CancelResult struct {
	ReturnOrderIDs []uuid.UUID
	// Restocked maps product id to the waiting quantity released back to
	// available stock
	Restocked map[uuid.UUID]int
}

// StatusMilestone is one entry of the buyer-facing status timeline
type StatusMilestone struct {
	Status     string
	OccurredAt time.Time
}

// Milestone names derived by the history projector
const (
	MilestonePacking           = "packing"
	MilestoneShipped           = "shipped"
	MilestoneWaitingForReceive = "waiting_for_receive"
	MilestoneDone              = "done"
	MilestoneCanceled          = "canceled"
)

// ArrivalNotice tells the logistics collaborator quantity arrived at a location
type ArrivalNotice struct {
	OrderID          uuid.UUID `json:"order_id"`
	ProductID        uuid.UUID `json:"product_id"`
	Quantity         int       `json:"quantity"`
	LocationID       uuid.UUID `json:"location_id"`
	TargetLocationID uuid.UUID `json:"target_location_id"`
}

// PlannedLeg is an onward transport leg created by the collaborator
type PlannedLeg struct {
	LegID          uuid.UUID `json:"leg_id"`
	FromLocationID uuid.UUID `json:"from_location_id"`
	ToLocationID   uuid.UUID `json:"to_location_id"`
}

// ArrivalPlan is the collaborator's response to an arrival notice
type ArrivalPlan struct {
	CreatedLegs []PlannedLeg `json:"created_legs"`
}

// LegAssignment hands quantity to a named logistics leg
type LegAssignment struct {
	OrderID          uuid.UUID `json:"order_id"`
	LegID            uuid.UUID `json:"leg_id"`
	ProductID        uuid.UUID `json:"product_id"`
	Quantity         int       `json:"quantity"`
	SourceLocationID uuid.UUID `json:"source_location_id"`
}

// LegDelivery is one (order, product, quantity, destination) tuple completed
// by a logistics leg
type LegDelivery struct {
	OrderID               uuid.UUID `json:"order_id"`
	ProductID             uuid.UUID `json:"product_id"`
	Quantity              int       `json:"quantity"`
	DestinationLocationID uuid.UUID `json:"destination_location_id"`
}

// ReturnDelivery asks the collaborator to plan delivery for one return order
type ReturnDelivery struct {
	ReturnOrderID    uuid.UUID        `json:"return_order_id"`
	SellerID         uuid.UUID        `json:"seller_id"`
	TargetLocationID uuid.UUID        `json:"target_location_id"`
	Lines            []OrderLineInput `json:"lines"`
}

// Logistics is the collaborator the ledger calls into. Every call happens
// inside the calling operation's transaction: a failure rolls back the
// ledger events appended in the same operation.
type Logistics interface {
	NotifyArrival(ctx context.Context, notice ArrivalNotice) (*ArrivalPlan, error)
	AssignToLeg(ctx context.Context, assignment LegAssignment) error
	CompleteLeg(ctx context.Context, legID uuid.UUID) ([]LegDelivery, error)
	PlanReturnDelivery(ctx context.Context, returns []ReturnDelivery) error
}
