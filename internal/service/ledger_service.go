package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/oppshop/fulfillment/internal/domain"
	"github.com/oppshop/fulfillment/internal/repository"
	"github.com/oppshop/fulfillment/pkg/errors"
)

type ledgerService struct {
	repos     *repository.Repositories
	logistics Logistics
	returns   *returnOrchestrator
	logger    *zap.Logger
}

// NewLedgerService creates the order ledger service
func NewLedgerService(repos *repository.Repositories, logistics Logistics, logger *zap.Logger) *ledgerService {
	return &ledgerService{
		repos:     repos,
		logistics: logistics,
		returns:   newReturnOrchestrator(logistics, logger),
		logger:    logger,
	}
}

// CreateOrder reserves stock, creates the order and its lines, and appends
// one waiting event per line for its full quantity
func (s *ledgerService) CreateOrder(ctx context.Context, req CreateOrderRequest) (*OrderResult, error) {
	if len(req.Lines) == 0 {
		return nil, &errors.ErrValidation{Message: "order must have at least one line"}
	}
	seen := make(map[uuid.UUID]bool, len(req.Lines))
	for _, line := range req.Lines {
		if line.Quantity <= 0 {
			return nil, &errors.ErrValidation{Message: "line quantity must be positive"}
		}
		if seen[line.ProductID] {
			return nil, &errors.ErrValidation{Message: "duplicate product in order lines"}
		}
		seen[line.ProductID] = true
	}

	var result *OrderResult
	err := s.repos.Transact(ctx, func(r *repository.Repositories) error {
		order := &domain.Order{
			Kind:             domain.OrderKindClient,
			ReceiverID:       req.ReceiverID,
			TargetLocationID: req.TargetLocationID,
		}
		if err := r.Order.Create(ctx, order); err != nil {
			return err
		}

		lines := make([]*domain.OrderedLine, 0, len(req.Lines))
		for _, input := range req.Lines {
			product, err := r.Product.GetForUpdate(ctx, input.ProductID)
			if err != nil {
				return err
			}
			if product.AvailableStock < input.Quantity {
				return &errors.ErrInsufficientStock{
					ProductID: product.ID.String(),
					Requested: input.Quantity,
					Available: product.AvailableStock,
				}
			}
			if err := r.Product.AdjustStock(ctx, product.ID, -input.Quantity); err != nil {
				return err
			}
			lines = append(lines, &domain.OrderedLine{
				OrderID:   order.ID,
				ProductID: product.ID,
				Quantity:  input.Quantity,
				UnitPrice: product.UnitPrice,
			})
		}

		if err := r.OrderedLine.CreateBatch(ctx, lines); err != nil {
			return err
		}

		for _, line := range lines {
			event := &domain.ProductStatusEvent{
				OrderID:   order.ID,
				ProductID: line.ProductID,
				Status:    domain.StatusWaitingForArrival,
				Quantity:  line.Quantity,
				Meta:      domain.WaitingMeta{OrderID: order.ID},
			}
			if err := r.ProductEvent.Append(ctx, event); err != nil {
				return err
			}
		}

		if err := r.OrderEvent.Create(ctx, &domain.OrderStatusEvent{
			OrderID: order.ID,
			Status:  domain.OrderStatusCreated,
		}); err != nil {
			return err
		}

		res, err := s.buildResult(ctx, r, order, lines)
		if err != nil {
			return err
		}
		result = res
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Order created",
		zap.String("order_id", result.Order.ID.String()),
		zap.Int("lines", len(result.Lines)),
	)
	return result, nil
}

// GetOrder returns an order with the computed distribution per line
func (s *ledgerService) GetOrder(ctx context.Context, orderID uuid.UUID) (*OrderResult, error) {
	order, err := s.repos.Order.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	lines, err := s.repos.OrderedLine.ListByOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return s.buildResult(ctx, s.repos, order, lines)
}

// ReceiveFromSeller records a seller handing quantity to a pickup point and
// notifies the logistics collaborator so it may plan an onward leg
func (s *ledgerService) ReceiveFromSeller(ctx context.Context, orderID, productID uuid.UUID, quantity int, locationID uuid.UUID) (*ReceiveResult, error) {
	if quantity <= 0 {
		return nil, &errors.ErrValidation{Message: "quantity must be positive"}
	}

	var result *ReceiveResult
	err := s.repos.Transact(ctx, func(r *repository.Repositories) error {
		order, err := r.Order.GetByID(ctx, orderID)
		if err != nil {
			return err
		}
		if _, err := r.OrderedLine.Get(ctx, orderID, productID); err != nil {
			return err
		}

		events, err := r.ProductEvent.ListForUpdate(ctx, orderID, productID)
		if err != nil {
			return err
		}
		dist, err := domain.Reduce(events)
		if err != nil {
			return err
		}
		s.logAnomalies(orderID, productID, dist)

		if quantity > dist.Waiting {
			return &errors.ErrExceedsWaiting{
				ProductID: productID.String(),
				Requested: quantity,
				Waiting:   dist.Waiting,
			}
		}

		isTarget := locationID == order.TargetLocationID
		event := &domain.ProductStatusEvent{
			OrderID:   orderID,
			ProductID: productID,
			Status:    domain.StatusArrivedInOPP,
			Quantity:  quantity,
			Meta: domain.ArrivedMeta{
				LocationID:       locationID,
				IsStartLocation:  !isTarget,
				IsTargetLocation: isTarget,
				FromSeller:       true,
			},
		}
		if err := r.ProductEvent.Append(ctx, event); err != nil {
			return err
		}
		if err := r.OrderedLine.IncrementReceived(ctx, orderID, productID, quantity); err != nil {
			return err
		}

		plan, err := s.logistics.NotifyArrival(ctx, ArrivalNotice{
			OrderID:          orderID,
			ProductID:        productID,
			Quantity:         quantity,
			LocationID:       locationID,
			TargetLocationID: order.TargetLocationID,
		})
		if err != nil {
			return &errors.ErrLogisticsRejected{Operation: "notify arrival", Err: err}
		}

		result = &ReceiveResult{
			ProductID:  productID,
			Quantity:   quantity,
			LocationID: locationID,
		}
		if plan != nil {
			result.CreatedLegs = plan.CreatedLegs
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// HandToLogistics moves quantity from a pickup point onto a named logistics leg
func (s *ledgerService) HandToLogistics(ctx context.Context, orderID, legID, productID uuid.UUID, quantity int, locationID uuid.UUID) error {
	if quantity <= 0 {
		return &errors.ErrValidation{Message: "quantity must be positive"}
	}

	return s.repos.Transact(ctx, func(r *repository.Repositories) error {
		if _, err := r.Order.GetByID(ctx, orderID); err != nil {
			return err
		}
		if _, err := r.OrderedLine.Get(ctx, orderID, productID); err != nil {
			return err
		}

		events, err := r.ProductEvent.ListForUpdate(ctx, orderID, productID)
		if err != nil {
			return err
		}
		dist, err := domain.Reduce(events)
		if err != nil {
			return err
		}
		s.logAnomalies(orderID, productID, dist)

		if available := dist.ByLocation[locationID]; quantity > available {
			return &errors.ErrInsufficientLocalStock{
				ProductID:  productID.String(),
				LocationID: locationID.String(),
				Requested:  quantity,
				Available:  available,
			}
		}

		from := locationID
		event := &domain.ProductStatusEvent{
			OrderID:   orderID,
			ProductID: productID,
			Status:    domain.StatusSentToLogistics,
			Quantity:  quantity,
			Meta: domain.SentMeta{
				LogisticsOrderID: legID,
				FromLocationID:   &from,
			},
		}
		if err := r.ProductEvent.Append(ctx, event); err != nil {
			return err
		}

		if err := s.logistics.AssignToLeg(ctx, LegAssignment{
			OrderID:          orderID,
			LegID:            legID,
			ProductID:        productID,
			Quantity:         quantity,
			SourceLocationID: locationID,
		}); err != nil {
			return &errors.ErrLogisticsRejected{Operation: "assign to leg", Err: err}
		}
		return nil
	})
}

// ReceiveFromLogistics finalizes a logistics leg: the collaborator determines
// which (order, product, quantity, destination) tuples complete and the
// ledger appends the corresponding arrival events
func (s *ledgerService) ReceiveFromLogistics(ctx context.Context, legID uuid.UUID) ([]LegDelivery, error) {
	var deliveries []LegDelivery
	err := s.repos.Transact(ctx, func(r *repository.Repositories) error {
		completed, err := s.logistics.CompleteLeg(ctx, legID)
		if err != nil {
			return &errors.ErrLogisticsRejected{Operation: "complete leg", Err: err}
		}

		fromLeg := legID
		for _, c := range completed {
			order, err := r.Order.GetByID(ctx, c.OrderID)
			if err != nil {
				return err
			}
			// Lock the line before appending.
			if _, err := r.ProductEvent.ListForUpdate(ctx, c.OrderID, c.ProductID); err != nil {
				return err
			}

			event := &domain.ProductStatusEvent{
				OrderID:   c.OrderID,
				ProductID: c.ProductID,
				Status:    domain.StatusArrivedInOPP,
				Quantity:  c.Quantity,
				Meta: domain.ArrivedMeta{
					LocationID:           c.DestinationLocationID,
					IsTargetLocation:     c.DestinationLocationID == order.TargetLocationID,
					FromLogisticsOrderID: &fromLeg,
				},
			}
			if err := r.ProductEvent.Append(ctx, event); err != nil {
				return err
			}
			if err := r.OrderedLine.IncrementReceived(ctx, c.OrderID, c.ProductID, c.Quantity); err != nil {
				return err
			}
		}

		deliveries = completed
		return nil
	})
	if err != nil {
		return nil, err
	}
	return deliveries, nil
}

// Deliver hands the quantity present at the order's target to the buyer.
// Rejected quantity is routed into the return orchestrator; the order is
// marked done only when every line's full quantity reached a terminal bucket.
func (s *ledgerService) Deliver(ctx context.Context, req DeliverRequest) (*DeliverResult, error) {
	for _, rejected := range req.Rejections {
		if rejected < 0 {
			return nil, &errors.ErrValidation{Message: "rejected quantity must not be negative"}
		}
	}

	var result *DeliverResult
	err := s.repos.Transact(ctx, func(r *repository.Repositories) error {
		order, err := r.Order.GetByID(ctx, req.OrderID)
		if err != nil {
			return err
		}
		if req.LocationID != order.TargetLocationID {
			return &errors.ErrWrongLocation{
				OrderID:    order.ID.String(),
				LocationID: req.LocationID.String(),
				TargetID:   order.TargetLocationID.String(),
			}
		}

		lines, err := r.OrderedLine.ListByOrder(ctx, req.OrderID)
		if err != nil {
			return err
		}
		known := make(map[uuid.UUID]bool, len(lines))
		for _, line := range lines {
			known[line.ProductID] = true
		}
		for productID := range req.Rejections {
			if !known[productID] {
				return &errors.ErrNotFound{Resource: "ordered line", ID: req.OrderID.String() + "/" + productID.String()}
			}
		}

		dists := make([]*domain.Distribution, len(lines))
		closed := true
		for i, line := range lines {
			events, err := r.ProductEvent.ListForUpdate(ctx, req.OrderID, line.ProductID)
			if err != nil {
				return err
			}
			dist, err := domain.Reduce(events)
			if err != nil {
				return err
			}
			s.logAnomalies(req.OrderID, line.ProductID, dist)
			dists[i] = dist
			if !dist.Settled(line.Quantity) {
				closed = false
			}
		}
		// A delivered or canceled order has every line settled; a repeat
		// delivery must not re-mark it done.
		if closed {
			return &errors.ErrValidation{Message: "order is already closed"}
		}

		var (
			delivered []DeliveredLine
			rejects   []returnItem
		)
		for i, line := range lines {
			dist := dists[i]
			available := dist.AtTargetLocation
			rejected := req.Rejections[line.ProductID]
			if rejected > available {
				return &errors.ErrRejectionExceedsAvailable{
					ProductID: line.ProductID.String(),
					Rejected:  rejected,
					Available: available,
				}
			}

			if deliverQty := available - rejected; deliverQty > 0 {
				event := &domain.ProductStatusEvent{
					OrderID:   req.OrderID,
					ProductID: line.ProductID,
					Status:    domain.StatusDelivered,
					Quantity:  deliverQty,
					Meta:      domain.DeliveredMeta{LocationID: order.TargetLocationID},
				}
				if err := r.ProductEvent.Append(ctx, event); err != nil {
					return err
				}
			}

			if rejected > 0 {
				product, err := r.Product.GetByID(ctx, line.ProductID)
				if err != nil {
					return err
				}
				rejects = append(rejects, returnItem{
					Order:          order,
					Line:           line,
					SellerID:       product.SellerID,
					StartLocations: dist.StartLocations(),
					ByLocation:     map[uuid.UUID]int{order.TargetLocationID: rejected},
					InTransit:      map[uuid.UUID]int{},
				})
			}

			delivered = append(delivered, DeliveredLine{
				ProductID: line.ProductID,
				Delivered: available - rejected,
				Rejected:  rejected,
			})
		}

		var returnOrderIDs []uuid.UUID
		if len(rejects) > 0 {
			returnOrders, err := s.returns.process(ctx, r, rejects, order.TargetLocationID, domain.RefundReasonBuyerRejected)
			if err != nil {
				return err
			}
			for _, ro := range returnOrders {
				returnOrderIDs = append(returnOrderIDs, ro.ID)
			}
		}

		done := true
		for i, line := range lines {
			events, err := r.ProductEvent.ListForUpdate(ctx, req.OrderID, line.ProductID)
			if err != nil {
				return err
			}
			dist, err := domain.Reduce(events)
			if err != nil {
				return err
			}
			delivered[i].Outstanding = line.Quantity - dist.Delivered - dist.Refunded
			if !dist.Settled(line.Quantity) {
				done = false
			}
		}

		if done {
			now := time.Now()
			if err := r.Order.MarkReceived(ctx, order.ID, now); err != nil {
				return err
			}
			if err := r.OrderEvent.Create(ctx, &domain.OrderStatusEvent{
				OrderID:    order.ID,
				Status:     domain.OrderStatusDone,
				OccurredAt: now,
			}); err != nil {
				return err
			}
		}

		result = &DeliverResult{
			Done:           done,
			Lines:          delivered,
			ReturnOrderIDs: returnOrderIDs,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Order delivered",
		zap.String("order_id", req.OrderID.String()),
		zap.Bool("done", result.Done),
		zap.Int("return_orders", len(result.ReturnOrderIDs)),
	)
	return result, nil
}

// Cancel splits every line's snapshot into waiting quantity (returned
// directly to available stock) and quantity already in the network
// (forwarded to the return orchestrator)
func (s *ledgerService) Cancel(ctx context.Context, orderID uuid.UUID, reason string) (*CancelResult, error) {
	if reason == "" {
		reason = domain.RefundReasonCanceled
	}

	var result *CancelResult
	err := s.repos.Transact(ctx, func(r *repository.Repositories) error {
		order, err := r.Order.GetByID(ctx, orderID)
		if err != nil {
			return err
		}
		if order.Kind != domain.OrderKindClient {
			return &errors.ErrValidation{Message: "only client orders can be cancelled"}
		}

		lines, err := r.OrderedLine.ListByOrder(ctx, orderID)
		if err != nil {
			return err
		}

		restocked := make(map[uuid.UUID]int)
		var moved []returnItem
		allSettled := true

		for _, line := range lines {
			events, err := r.ProductEvent.ListForUpdate(ctx, orderID, line.ProductID)
			if err != nil {
				return err
			}
			dist, err := domain.Reduce(events)
			if err != nil {
				return err
			}
			s.logAnomalies(orderID, line.ProductID, dist)

			if !dist.Settled(line.Quantity) {
				allSettled = false
			}

			if dist.Waiting > 0 {
				event := &domain.ProductStatusEvent{
					OrderID:   orderID,
					ProductID: line.ProductID,
					Status:    domain.StatusRefunded,
					Quantity:  dist.Waiting,
					Meta: domain.RefundedMeta{
						Reason:          reason,
						FromStatus:      domain.StatusWaitingForArrival,
						ReturnedToStock: true,
					},
				}
				if err := r.ProductEvent.Append(ctx, event); err != nil {
					return err
				}
				if err := r.Product.AdjustStock(ctx, line.ProductID, dist.Waiting); err != nil {
					return err
				}
				restocked[line.ProductID] = dist.Waiting
			}

			byLocation := make(map[uuid.UUID]int)
			for loc, qty := range dist.ByLocation {
				if qty > 0 {
					byLocation[loc] = qty
				}
			}
			inTransit := make(map[uuid.UUID]int)
			for leg, qty := range dist.InTransit {
				if qty > 0 {
					inTransit[leg] = qty
				}
			}
			if len(byLocation) > 0 || len(inTransit) > 0 {
				product, err := r.Product.GetByID(ctx, line.ProductID)
				if err != nil {
					return err
				}
				moved = append(moved, returnItem{
					Order:          order,
					Line:           line,
					SellerID:       product.SellerID,
					StartLocations: dist.StartLocations(),
					ByLocation:     byLocation,
					InTransit:      inTransit,
				})
			}
		}

		if allSettled {
			return &errors.ErrValidation{Message: "order is already closed"}
		}

		var returnOrderIDs []uuid.UUID
		if len(moved) > 0 {
			returnOrders, err := s.returns.process(ctx, r, moved, order.TargetLocationID, reason)
			if err != nil {
				return err
			}
			for _, ro := range returnOrders {
				returnOrderIDs = append(returnOrderIDs, ro.ID)
			}
		}

		payload := map[string]interface{}{"reason": reason}
		if len(returnOrderIDs) > 0 {
			ids := make([]string, len(returnOrderIDs))
			for i, id := range returnOrderIDs {
				ids[i] = id.String()
			}
			payload["return_order_ids"] = ids
		}
		if err := r.OrderEvent.Create(ctx, &domain.OrderStatusEvent{
			OrderID: orderID,
			Status:  domain.OrderStatusCanceled,
			Payload: payload,
		}); err != nil {
			return err
		}

		result = &CancelResult{
			ReturnOrderIDs: returnOrderIDs,
			Restocked:      restocked,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Order cancelled",
		zap.String("order_id", orderID.String()),
		zap.String("reason", reason),
		zap.Int("return_orders", len(result.ReturnOrderIDs)),
	)
	return result, nil
}

func (s *ledgerService) buildResult(ctx context.Context, r *repository.Repositories, order *domain.Order, lines []*domain.OrderedLine) (*OrderResult, error) {
	result := &OrderResult{Order: order}
	for _, line := range lines {
		events, err := r.ProductEvent.List(ctx, order.ID, line.ProductID)
		if err != nil {
			return nil, err
		}
		dist, err := domain.Reduce(events)
		if err != nil {
			return nil, err
		}
		result.Lines = append(result.Lines, LineResult{
			ProductID:    line.ProductID,
			Quantity:     line.Quantity,
			UnitPrice:    line.UnitPrice,
			Distribution: dist,
		})
	}
	return result, nil
}

func (s *ledgerService) logAnomalies(orderID, productID uuid.UUID, dist *domain.Distribution) {
	for _, a := range dist.Anomalies {
		s.logger.Warn("Ledger integrity anomaly",
			zap.String("order_id", orderID.String()),
			zap.String("product_id", productID.String()),
			zap.String("detail", a),
		)
	}
	if dist.InTransitInvalid > 0 {
		s.logger.Warn("Unmatched in-transit quantity",
			zap.String("order_id", orderID.String()),
			zap.String("product_id", productID.String()),
			zap.Int("quantity", dist.InTransitInvalid),
		)
	}
}
