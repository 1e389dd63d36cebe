package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/oppshop/fulfillment/internal/repository"
	"github.com/oppshop/fulfillment/internal/service"
)

// MilestoneResponse is one entry of the buyer-facing timeline
type MilestoneResponse struct {
	Status     string `json:"status"`
	OccurredAt string `json:"occurred_at"`
}

// HandleGetHistory handles GET /v1/orders/:id/history
func HandleGetHistory(repos *repository.Repositories, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		orderID, ok := parseID(c, "id")
		if !ok {
			return
		}

		history := service.NewHistoryService(repos, logger)
		milestones, err := history.GetHistory(c.Request.Context(), orderID)
		if err != nil {
			respondError(c, logger, err)
			return
		}

		resp := make([]MilestoneResponse, 0, len(milestones))
		for _, m := range milestones {
			resp = append(resp, MilestoneResponse{
				Status:     m.Status,
				OccurredAt: m.OccurredAt.Format("2006-01-02T15:04:05Z07:00"),
			})
		}

		c.JSON(http.StatusOK, gin.H{"milestones": resp})
	}
}
