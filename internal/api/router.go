package api

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/oppshop/fulfillment/internal/api/handlers"
	"github.com/oppshop/fulfillment/internal/api/middleware"
	"github.com/oppshop/fulfillment/internal/config"
	"github.com/oppshop/fulfillment/internal/repository"
	"github.com/oppshop/fulfillment/internal/service"
)

// NewRouter creates and configures the Gin router
func NewRouter(cfg *config.Config, repos *repository.Repositories, logistics service.Logistics, logger *zap.Logger) *gin.Engine {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Middleware
	router.Use(gin.Recovery())
	router.Use(loggingMiddleware(logger))

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// API v1 routes
	v1 := router.Group("/v1")
	{
		// Buyer-facing order routes
		orders := v1.Group("/orders")
		{
			orders.POST("", handlers.HandleCreateOrder(repos, logistics, logger))
			orders.GET("/:id", handlers.HandleGetOrder(repos, logistics, logger))
			orders.GET("/:id/history", handlers.HandleGetHistory(repos, logger))
			orders.POST("/:id/cancel", handlers.HandleCancelOrder(repos, logistics, logger))
		}

		// Pickup-point routes (require API key authentication)
		pickup := v1.Group("/pickup")
		pickup.Use(middleware.AuthMiddleware(repos, logger))
		{
			pickup.POST("/orders/:id/receive", handlers.HandleReceiveFromSeller(repos, logistics, logger))
			pickup.POST("/orders/:id/dispatch", handlers.HandleDispatchToLogistics(repos, logistics, logger))
			pickup.POST("/orders/:id/deliver", handlers.HandleDeliver(repos, logistics, logger))
			pickup.POST("/legs/:id/complete", handlers.HandleCompleteLeg(repos, logistics, logger))
		}
	}

	return router
}

// loggingMiddleware logs HTTP requests
func loggingMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		status := c.Writer.Status()
		logger.Info("HTTP request",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", status),
		)
	}
}
