package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/meridianbank/corebank/internal/api/handler"
	"github.com/meridianbank/corebank/internal/api/middleware"
)

// setupRouter configures API routes and middleware for the application
func setupRouter(
	logger *slog.Logger,
	r *gin.Engine,
	transferHandler *handler.TransferHandler,
	accountHandler *handler.AccountHandler,
	alertHandler *handler.AlertHandler,
	auditHandler *handler.AuditHandler,
) {
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CorrelationID())

	// API v1 endpoints; everything under /api/v1 requires a caller identity
	v1 := r.Group("/api/v1")
	v1.Use(middleware.Identity())
	{
		// Account operations
		accounts := v1.Group("/accounts")
		{
			accounts.POST("", accountHandler.Create)
			accounts.GET("/:id", accountHandler.GetByID)
			accounts.POST("/:id/risk-evaluation", accountHandler.EvaluateRisk)
		}

		// Transfer operations
		v1.POST("/transfers", transferHandler.Create)

		// Operator alert workflows
		alerts := v1.Group("/alerts")
		{
			alerts.GET("", alertHandler.List)
			alerts.POST("", alertHandler.Raise)
			alerts.PATCH("/:id/ack", alertHandler.Acknowledge)
		}

		// Audit chain operations
		auditGroup := v1.Group("/audit")
		{
			auditGroup.GET("/verify", auditHandler.Verify)
			auditGroup.POST("/entries", auditHandler.Append)
		}
	}

	// Health check endpoint for monitoring
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "timestamp": time.Now().UTC()})
	})
}
