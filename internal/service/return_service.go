package service

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/oppshop/fulfillment/internal/domain"
	"github.com/oppshop/fulfillment/internal/repository"
	"github.com/oppshop/fulfillment/pkg/errors"
)

// returnOrchestrator converts returnable quantity into one counter-order per
// seller plus the ledger events for that quantity's new trajectory. It always
// runs inside the calling operation's transaction: a failed logistics
// planning call rolls back the counter-orders and every appended event.
type returnOrchestrator struct {
	logistics Logistics
	logger    *zap.Logger
}

func newReturnOrchestrator(logistics Logistics, logger *zap.Logger) *returnOrchestrator {
	return &returnOrchestrator{logistics: logistics, logger: logger}
}

// returnItem is one line's returnable quantity with the buckets it currently
// occupies and the start locations recorded in its log
type returnItem struct {
	Order          *domain.Order
	Line           *domain.OrderedLine
	SellerID       uuid.UUID
	StartLocations []uuid.UUID
	ByLocation     map[uuid.UUID]int
	InTransit      map[uuid.UUID]int
}

func (o *returnOrchestrator) process(ctx context.Context, r *repository.Repositories, items []returnItem, returnFrom uuid.UUID, reason string) ([]*domain.Order, error) {
	bySeller := make(map[uuid.UUID][]returnItem)
	var sellerOrder []uuid.UUID
	for _, item := range items {
		if _, ok := bySeller[item.SellerID]; !ok {
			sellerOrder = append(sellerOrder, item.SellerID)
		}
		bySeller[item.SellerID] = append(bySeller[item.SellerID], item)
	}

	var (
		returnOrders []*domain.Order
		requests     []ReturnDelivery
	)
	for _, sellerID := range sellerOrder {
		group := bySeller[sellerID]

		destination, err := resolveDestination(sellerID, group, returnFrom)
		if err != nil {
			return nil, err
		}

		returnOrder := &domain.Order{
			Kind:             domain.OrderKindReturn,
			ReceiverID:       sellerID,
			TargetLocationID: destination,
		}
		if err := r.Order.Create(ctx, returnOrder); err != nil {
			return nil, err
		}
		if err := r.OrderEvent.Create(ctx, &domain.OrderStatusEvent{
			OrderID: returnOrder.ID,
			Status:  domain.OrderStatusCreated,
			Payload: map[string]interface{}{
				"origin_order_id": group[0].Order.ID.String(),
				"reason":          reason,
			},
		}); err != nil {
			return nil, err
		}

		var (
			returnLines []*domain.OrderedLine
			reqLines    []OrderLineInput
		)
		for _, item := range group {
			total := 0
			for _, qty := range item.ByLocation {
				total += qty
			}
			for _, qty := range item.InTransit {
				total += qty
			}
			returnLines = append(returnLines, &domain.OrderedLine{
				OrderID:   returnOrder.ID,
				ProductID: item.Line.ProductID,
				Quantity:  total,
				UnitPrice: item.Line.UnitPrice,
			})
			reqLines = append(reqLines, OrderLineInput{ProductID: item.Line.ProductID, Quantity: total})
		}
		if err := r.OrderedLine.CreateBatch(ctx, returnLines); err != nil {
			return nil, err
		}

		for _, item := range group {
			if err := o.appendTrajectory(ctx, r, returnOrder, item, returnFrom, destination, reason); err != nil {
				return nil, err
			}
		}

		returnOrders = append(returnOrders, returnOrder)
		requests = append(requests, ReturnDelivery{
			ReturnOrderID:    returnOrder.ID,
			SellerID:         sellerID,
			TargetLocationID: destination,
			Lines:            reqLines,
		})

		o.logger.Info("Return order created",
			zap.String("return_order_id", returnOrder.ID.String()),
			zap.String("seller_id", sellerID.String()),
			zap.String("destination", destination.String()),
		)
	}

	if err := o.logistics.PlanReturnDelivery(ctx, requests); err != nil {
		return nil, &errors.ErrLogisticsRejected{Operation: "plan return delivery", Err: err}
	}

	return returnOrders, nil
}

// appendTrajectory writes the return order's opening events and the original
// order's refunded events for one line
func (o *returnOrchestrator) appendTrajectory(ctx context.Context, r *repository.Repositories, returnOrder *domain.Order, item returnItem, returnFrom, destination uuid.UUID, reason string) error {
	for loc, qty := range item.ByLocation {
		if err := r.ProductEvent.Append(ctx, &domain.ProductStatusEvent{
			OrderID:   returnOrder.ID,
			ProductID: item.Line.ProductID,
			Status:    domain.StatusArrivedInOPP,
			Quantity:  qty,
			Meta: domain.ArrivedMeta{
				LocationID:       loc,
				IsStartLocation:  loc == returnFrom,
				IsTargetLocation: loc == destination,
			},
		}); err != nil {
			return err
		}

		from := loc
		if err := r.ProductEvent.Append(ctx, &domain.ProductStatusEvent{
			OrderID:   item.Order.ID,
			ProductID: item.Line.ProductID,
			Status:    domain.StatusRefunded,
			Quantity:  qty,
			Meta: domain.RefundedMeta{
				Reason:     reason,
				FromStatus: domain.StatusArrivedInOPP,
				LocationID: &from,
			},
		}); err != nil {
			return err
		}
	}

	for leg, qty := range item.InTransit {
		prev := leg
		if err := r.ProductEvent.Append(ctx, &domain.ProductStatusEvent{
			OrderID:   returnOrder.ID,
			ProductID: item.Line.ProductID,
			Status:    domain.StatusSentToLogistics,
			Quantity:  qty,
			Meta: domain.SentMeta{
				LogisticsOrderID:         leg,
				PreviousLogisticsOrderID: &prev,
			},
		}); err != nil {
			return err
		}

		from := leg
		if err := r.ProductEvent.Append(ctx, &domain.ProductStatusEvent{
			OrderID:   item.Order.ID,
			ProductID: item.Line.ProductID,
			Status:    domain.StatusRefunded,
			Quantity:  qty,
			Meta: domain.RefundedMeta{
				Reason:           reason,
				FromStatus:       domain.StatusSentToLogistics,
				LogisticsOrderID: &from,
			},
		}); err != nil {
			return err
		}
	}

	return nil
}

// resolveDestination picks the single return destination for a seller's
// group: the start locations recorded in the lines' logs, excluding the
// location the quantity returns from. Zero or multiple candidates is a
// data-integrity bug and fails loudly.
func resolveDestination(sellerID uuid.UUID, group []returnItem, returnFrom uuid.UUID) (uuid.UUID, error) {
	candidates := make(map[uuid.UUID]bool)
	for _, item := range group {
		for _, loc := range item.StartLocations {
			if loc != returnFrom {
				candidates[loc] = true
			}
		}
	}

	if len(candidates) != 1 {
		return uuid.Nil, &errors.ErrUnresolvableReturnDestination{
			SellerID:   sellerID.String(),
			Candidates: len(candidates),
		}
	}
	var destination uuid.UUID
	for loc := range candidates {
		destination = loc
	}
	return destination, nil
}
