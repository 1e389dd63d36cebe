package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/oppshop/fulfillment/internal/domain"
	"github.com/oppshop/fulfillment/internal/service"
	"github.com/oppshop/fulfillment/pkg/errors"
)

// respondError maps the error taxonomy onto HTTP statuses. State-conflict
// errors come back as 409 so callers know to retry against a fresh snapshot.
func respondError(c *gin.Context, logger *zap.Logger, err error) {
	switch err.(type) {
	case *errors.ErrNotFound:
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case *errors.ErrUnauthorized:
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	case *errors.ErrValidation:
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case *errors.ErrInsufficientStock,
		*errors.ErrExceedsWaiting,
		*errors.ErrInsufficientLocalStock,
		*errors.ErrWrongLocation,
		*errors.ErrRejectionExceedsAvailable,
		*errors.ErrUnresolvableReturnDestination:
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case *errors.ErrLogisticsRejected:
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	default:
		logger.Error("Unhandled error", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

// DistributionResponse is the JSON view of a line's distribution snapshot
type DistributionResponse struct {
	Waiting          int            `json:"waiting"`
	AtStartLocation  int            `json:"at_start_location"`
	AtTargetLocation int            `json:"at_target_location"`
	ByLocation       map[string]int `json:"by_location"`
	InTransit        map[string]int `json:"in_transit"`
	InTransitInvalid int            `json:"in_transit_invalid,omitempty"`
	Delivered        int            `json:"delivered"`
	Refunded         int            `json:"refunded"`
}

func toDistributionResponse(d *domain.Distribution) DistributionResponse {
	resp := DistributionResponse{
		Waiting:          d.Waiting,
		AtStartLocation:  d.AtStartLocation,
		AtTargetLocation: d.AtTargetLocation,
		ByLocation:       make(map[string]int),
		InTransit:        make(map[string]int),
		InTransitInvalid: d.InTransitInvalid,
		Delivered:        d.Delivered,
		Refunded:         d.Refunded,
	}
	for loc, qty := range d.ByLocation {
		if qty > 0 {
			resp.ByLocation[loc.String()] = qty
		}
	}
	for leg, qty := range d.InTransit {
		if qty > 0 {
			resp.InTransit[leg.String()] = qty
		}
	}
	return resp
}

// OrderResponse represents the order with per-line distributions
type OrderResponse struct {
	ID               string           `json:"id"`
	Kind             domain.OrderKind `json:"kind"`
	ReceiverID       string           `json:"receiver_id"`
	TargetLocationID string           `json:"target_location_id"`
	Lines            []LineResponse   `json:"lines"`
	CreatedAt        string           `json:"created_at"`
	ReceivedAt       *string          `json:"received_at,omitempty"`
}

type LineResponse struct {
	ProductID    string               `json:"product_id"`
	Quantity     int                  `json:"quantity"`
	UnitPrice    float64              `json:"unit_price"`
	Distribution DistributionResponse `json:"distribution"`
}

func toOrderResponse(result *service.OrderResult) OrderResponse {
	order := result.Order
	resp := OrderResponse{
		ID:               order.ID.String(),
		Kind:             order.Kind,
		ReceiverID:       order.ReceiverID.String(),
		TargetLocationID: order.TargetLocationID.String(),
		CreatedAt:        order.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
	if order.ReceivedAt != nil {
		received := order.ReceivedAt.Format("2006-01-02T15:04:05Z07:00")
		resp.ReceivedAt = &received
	}
	for _, line := range result.Lines {
		resp.Lines = append(resp.Lines, LineResponse{
			ProductID:    line.ProductID.String(),
			Quantity:     line.Quantity,
			UnitPrice:    line.UnitPrice,
			Distribution: toDistributionResponse(line.Distribution),
		})
	}
	return resp
}

func parseID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return uuid.Nil, false
	}
	return id, true
}
