package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/oppshop/fulfillment/internal/api/middleware"
	"github.com/oppshop/fulfillment/internal/repository"
	"github.com/oppshop/fulfillment/internal/service"
)

// ReceiveRequest represents a seller handing quantity to the authenticated
// pickup point
type ReceiveRequest struct {
	ProductID uuid.UUID `json:"product_id" binding:"required"`
	Quantity  int       `json:"quantity" binding:"required,min=1"`
}

// ReceiveResponse reports the receipt and any onward legs planned for it
type ReceiveResponse struct {
	ProductID   string               `json:"product_id"`
	Quantity    int                  `json:"quantity"`
	LocationID  string               `json:"location_id"`
	CreatedLegs []PlannedLegResponse `json:"created_legs"`
}

type PlannedLegResponse struct {
	LegID          string `json:"leg_id"`
	FromLocationID string `json:"from_location_id"`
	ToLocationID   string `json:"to_location_id"`
}

// DispatchRequest hands quantity from the authenticated pickup point to a leg
type DispatchRequest struct {
	LegID     uuid.UUID `json:"leg_id" binding:"required"`
	ProductID uuid.UUID `json:"product_id" binding:"required"`
	Quantity  int       `json:"quantity" binding:"required,min=1"`
}

// DeliverOrderRequest represents a buyer pickup with optional rejections
type DeliverOrderRequest struct {
	Rejections []OrderLineRequest `json:"rejections"`
}

// DeliverOrderResponse reports the delivery outcome per line
type DeliverOrderResponse struct {
	Done           bool                    `json:"done"`
	Lines          []DeliveredLineResponse `json:"lines"`
	ReturnOrderIDs []string                `json:"return_order_ids"`
}

type DeliveredLineResponse struct {
	ProductID   string `json:"product_id"`
	Delivered   int    `json:"delivered"`
	Rejected    int    `json:"rejected"`
	Outstanding int    `json:"outstanding"`
}

// HandleReceiveFromSeller handles POST /v1/pickup/orders/:id/receive
func HandleReceiveFromSeller(repos *repository.Repositories, logistics service.Logistics, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		point, ok := middleware.GetPickupPointFromContext(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		orderID, ok := parseID(c, "id")
		if !ok {
			return
		}

		var req ReceiveRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "validation failed", "details": err.Error()})
			return
		}

		ledger := service.NewLedgerService(repos, logistics, logger)
		result, err := ledger.ReceiveFromSeller(c.Request.Context(), orderID, req.ProductID, req.Quantity, point.ID)
		if err != nil {
			respondError(c, logger, err)
			return
		}

		resp := ReceiveResponse{
			ProductID:   result.ProductID.String(),
			Quantity:    result.Quantity,
			LocationID:  result.LocationID.String(),
			CreatedLegs: make([]PlannedLegResponse, 0, len(result.CreatedLegs)),
		}
		for _, leg := range result.CreatedLegs {
			resp.CreatedLegs = append(resp.CreatedLegs, PlannedLegResponse{
				LegID:          leg.LegID.String(),
				FromLocationID: leg.FromLocationID.String(),
				ToLocationID:   leg.ToLocationID.String(),
			})
		}

		c.JSON(http.StatusOK, resp)
	}
}

// HandleDispatchToLogistics handles POST /v1/pickup/orders/:id/dispatch
func HandleDispatchToLogistics(repos *repository.Repositories, logistics service.Logistics, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		point, ok := middleware.GetPickupPointFromContext(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		orderID, ok := parseID(c, "id")
		if !ok {
			return
		}

		var req DispatchRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "validation failed", "details": err.Error()})
			return
		}

		ledger := service.NewLedgerService(repos, logistics, logger)
		err := ledger.HandToLogistics(c.Request.Context(), orderID, req.LegID, req.ProductID, req.Quantity, point.ID)
		if err != nil {
			respondError(c, logger, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"status": "dispatched"})
	}
}

// HandleCompleteLeg handles POST /v1/pickup/legs/:id/complete
func HandleCompleteLeg(repos *repository.Repositories, logistics service.Logistics, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		legID, ok := parseID(c, "id")
		if !ok {
			return
		}

		ledger := service.NewLedgerService(repos, logistics, logger)
		deliveries, err := ledger.ReceiveFromLogistics(c.Request.Context(), legID)
		if err != nil {
			respondError(c, logger, err)
			return
		}

		type completion struct {
			OrderID    string `json:"order_id"`
			ProductID  string `json:"product_id"`
			Quantity   int    `json:"quantity"`
			LocationID string `json:"location_id"`
		}
		completions := make([]completion, 0, len(deliveries))
		for _, d := range deliveries {
			completions = append(completions, completion{
				OrderID:    d.OrderID.String(),
				ProductID:  d.ProductID.String(),
				Quantity:   d.Quantity,
				LocationID: d.DestinationLocationID.String(),
			})
		}

		c.JSON(http.StatusOK, gin.H{"completions": completions})
	}
}

// HandleDeliver handles POST /v1/pickup/orders/:id/deliver
func HandleDeliver(repos *repository.Repositories, logistics service.Logistics, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		point, ok := middleware.GetPickupPointFromContext(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		orderID, ok := parseID(c, "id")
		if !ok {
			return
		}

		var req DeliverOrderRequest
		if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "validation failed", "details": err.Error()})
			return
		}

		rejections := make(map[uuid.UUID]int, len(req.Rejections))
		for _, rejection := range req.Rejections {
			rejections[rejection.ProductID] += rejection.Quantity
		}

		ledger := service.NewLedgerService(repos, logistics, logger)
		result, err := ledger.Deliver(c.Request.Context(), service.DeliverRequest{
			OrderID:    orderID,
			LocationID: point.ID,
			Rejections: rejections,
		})
		if err != nil {
			respondError(c, logger, err)
			return
		}

		resp := DeliverOrderResponse{
			Done:           result.Done,
			Lines:          make([]DeliveredLineResponse, 0, len(result.Lines)),
			ReturnOrderIDs: make([]string, 0, len(result.ReturnOrderIDs)),
		}
		for _, line := range result.Lines {
			resp.Lines = append(resp.Lines, DeliveredLineResponse{
				ProductID:   line.ProductID.String(),
				Delivered:   line.Delivered,
				Rejected:    line.Rejected,
				Outstanding: line.Outstanding,
			})
		}
		for _, id := range result.ReturnOrderIDs {
			resp.ReturnOrderIDs = append(resp.ReturnOrderIDs, id.String())
		}

		c.JSON(http.StatusOK, resp)
	}
}
