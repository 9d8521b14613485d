package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/expresscouriers/checkout/internal/api/handlers"
	"github.com/expresscouriers/checkout/internal/api/middleware"
	"github.com/expresscouriers/checkout/internal/checkout"
	"github.com/expresscouriers/checkout/internal/config"
	"github.com/expresscouriers/checkout/internal/fee"
	"github.com/expresscouriers/checkout/internal/repository"
)

// NewRouter creates and configures the Gin router
func NewRouter(cfg *config.Config, engine *fee.Engine, recovery *checkout.Recovery, repos *repository.Repositories, logger *zap.Logger) *gin.Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Middleware
	router.Use(customRecovery(logger))
	router.Use(loggingMiddleware(logger))
	router.Use(corsMiddleware(cfg.CORSAllowedOrigins))

	router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"service": "Express Couriers Checkout API",
			"endpoints": []string{
				"GET /health",
				"GET /v1/cities",
				"POST /v1/quotes",
				"GET /v1/support/failed-orders",
				"GET /v1/support/failed-orders/:key",
				"GET /v1/support/failed-orders/:key/receipt",
				"POST /v1/support/failed-orders/:key/redispatch",
				"DELETE /v1/support/failed-orders/:key",
			},
		})
	})

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	v1 := router.Group("/v1")
	{
		v1.GET("/cities", handlers.HandleListCities(cfg))
		v1.POST("/quotes", handlers.HandleCreateQuote(cfg, engine, logger))

		// Failed-order recovery for the support desk
		support := v1.Group("/support/failed-orders")
		support.Use(middleware.SupportAuthMiddleware(cfg.Support.APIKeyHash, logger))
		support.Use(middleware.IdempotencyMiddleware(repos.IdempotencyKey, logger))
		{
			support.GET("", handlers.HandleListFailedOrders(cfg, recovery, logger))
			support.GET("/:key", handlers.HandleGetFailedOrder(cfg, recovery, logger))
			support.GET("/:key/receipt", handlers.HandleFailedOrderReceipt(cfg, recovery, logger))
			support.POST("/:key/redispatch", handlers.HandleRedispatchFailedOrder(recovery, logger))
			support.DELETE("/:key", handlers.HandleDeleteFailedOrder(recovery, logger))
		}
	}

	return router
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	cc := cors.Config{
		AllowMethods:  []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", "Idempotency-Key"},
		ExposeHeaders: []string{"Content-Disposition", "Idempotent-Replayed"},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cc.AllowAllOrigins = true
	} else {
		cc.AllowOrigins = origins
	}
	return cors.New(cc)
}

// customRecovery is a custom recovery middleware that logs panics
func customRecovery(logger *zap.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		logger.Error("Panic recovered",
			zap.Any("error", recovered),
			zap.String("path", c.Request.URL.Path),
			zap.String("method", c.Request.Method),
		)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal server error",
			"details": fmt.Sprintf("%v", recovered),
		})
	})
}

// loggingMiddleware logs HTTP requests
func loggingMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		logger.Info("HTTP request",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}
