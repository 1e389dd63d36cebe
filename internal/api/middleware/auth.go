package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/oppshop/fulfillment/internal/domain"
	"github.com/oppshop/fulfillment/internal/repository"
	"github.com/oppshop/fulfillment/pkg/errors"
)

const pickupPointContextKey = "pickup_point"

// AuthMiddleware authenticates a pickup point by its API key
func AuthMiddleware(repos *repository.Repositories, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		apiKey := extractAPIKey(c)
		if apiKey == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing API key"})
			return
		}

		point, err := repos.PickupPoint.GetByAPIKey(c.Request.Context(), apiKey)
		if err != nil {
			if _, ok := err.(*errors.ErrUnauthorized); ok {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid API key"})
				return
			}
			logger.Error("Failed to authenticate pickup point", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}

		c.Set(pickupPointContextKey, point)
		c.Next()
	}
}

// GetPickupPointFromContext returns the authenticated pickup point
func GetPickupPointFromContext(c *gin.Context) (*domain.PickupPoint, bool) {
	value, ok := c.Get(pickupPointContextKey)
	if !ok {
		return nil, false
	}
	point, ok := value.(*domain.PickupPoint)
	return point, ok
}

func extractAPIKey(c *gin.Context) string {
	if auth := c.GetHeader("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return c.GetHeader("X-API-Key")
}
