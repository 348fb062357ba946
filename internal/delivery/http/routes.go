package http

import (
	"github.com/gin-gonic/gin"

	"github.com/Mekaelwr/receipt-analysis-sub000/config"
)

// SetupRouter creates and configures the Gin router
func SetupRouter(cfg *config.Config, handler *Handler) *gin.Engine {
	// Set Gin mode based on environment
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Global middleware
	router.Use(RecoveryMiddleware())
	router.Use(LoggerMiddleware())
	router.Use(CORSMiddleware(cfg.Server.AllowedOrigins))
	router.Use(RateLimitMiddleware(cfg.RateLimit.PerIP))

	// Health check endpoint
	router.GET("/health", handler.HealthCheck)

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		receipts := v1.Group("/receipts")
		{
			receipts.POST("", handler.UploadReceipt)
			receipts.GET("/:id", handler.GetReceipt)
			receipts.POST("/:id/reprocess", handler.ReprocessReceipt)
			receipts.GET("/:id/best-prices", handler.BestPrices)
		}

		comparisons := v1.Group("/comparisons")
		{
			comparisons.GET("/stores", handler.CompareStores)
			comparisons.GET("/temporal", handler.CompareOverTime)
		}
	}

	return router
}
