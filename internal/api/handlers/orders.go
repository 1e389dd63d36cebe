package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/oppshop/fulfillment/internal/repository"
	"github.com/oppshop/fulfillment/internal/service"
)

// CreateOrderRequest represents the order creation payload
type CreateOrderRequest struct {
	ReceiverID       uuid.UUID          `json:"receiver_id" binding:"required"`
	TargetLocationID uuid.UUID          `json:"target_location_id" binding:"required"`
	Lines            []OrderLineRequest `json:"lines" binding:"required,min=1"`
}

type OrderLineRequest struct {
	ProductID uuid.UUID `json:"product_id" binding:"required"`
	Quantity  int       `json:"quantity" binding:"required,min=1"`
}

// CancelOrderRequest represents the cancel payload
type CancelOrderRequest struct {
	Reason string `json:"reason"`
}

// CancelOrderResponse reports released stock and created return orders
type CancelOrderResponse struct {
	ReturnOrderIDs []string       `json:"return_order_ids"`
	Restocked      map[string]int `json:"restocked"`
}

// HandleCreateOrder handles POST /v1/orders
func HandleCreateOrder(repos *repository.Repositories, logistics service.Logistics, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateOrderRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{
				"error":   "validation failed",
				"details": err.Error(),
			})
			return
		}

		lines := make([]service.OrderLineInput, len(req.Lines))
		for i, line := range req.Lines {
			lines[i] = service.OrderLineInput{ProductID: line.ProductID, Quantity: line.Quantity}
		}

		ledger := service.NewLedgerService(repos, logistics, logger)
		result, err := ledger.CreateOrder(c.Request.Context(), service.CreateOrderRequest{
			ReceiverID:       req.ReceiverID,
			TargetLocationID: req.TargetLocationID,
			Lines:            lines,
		})
		if err != nil {
			respondError(c, logger, err)
			return
		}

		c.JSON(http.StatusCreated, toOrderResponse(result))
	}
}

// HandleGetOrder handles GET /v1/orders/:id
func HandleGetOrder(repos *repository.Repositories, logistics service.Logistics, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		orderID, ok := parseID(c, "id")
		if !ok {
			return
		}

		ledger := service.NewLedgerService(repos, logistics, logger)
		result, err := ledger.GetOrder(c.Request.Context(), orderID)
		if err != nil {
			respondError(c, logger, err)
			return
		}

		c.JSON(http.StatusOK, toOrderResponse(result))
	}
}

// HandleCancelOrder handles POST /v1/orders/:id/cancel
func HandleCancelOrder(repos *repository.Repositories, logistics service.Logistics, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		orderID, ok := parseID(c, "id")
		if !ok {
			return
		}

		var req CancelOrderRequest
		if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "validation failed", "details": err.Error()})
			return
		}

		ledger := service.NewLedgerService(repos, logistics, logger)
		result, err := ledger.Cancel(c.Request.Context(), orderID, req.Reason)
		if err != nil {
			respondError(c, logger, err)
			return
		}

		resp := CancelOrderResponse{
			ReturnOrderIDs: make([]string, 0, len(result.ReturnOrderIDs)),
			Restocked:      make(map[string]int),
		}
		for _, id := range result.ReturnOrderIDs {
			resp.ReturnOrderIDs = append(resp.ReturnOrderIDs, id.String())
		}
		for productID, qty := range result.Restocked {
			resp.Restocked[productID.String()] = qty
		}

		c.JSON(http.StatusOK, resp)
	}
}
