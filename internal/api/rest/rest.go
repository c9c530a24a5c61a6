package rest

import (
	"github.com/gin-gonic/gin"

	"github.com/agritrace/agritrace/internal/api/middleware"
	"github.com/agritrace/agritrace/internal/domain"
)

// SetupRoutes configures all REST API routes
func SetupRoutes(router *gin.Engine, handler Handler, authCfg middleware.AuthConfig) {
	// Health check endpoint (no auth, no version prefix)
	router.GET("/health", handler.HealthCheck)

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		// Batch registration (farmers only)
		v1.POST("/batches", middleware.Auth(authCfg), middleware.RequireRole(domain.RoleFarmer), handler.CreateBatch)

		// Activity append (authenticated; the ledger's role table decides
		// which activity types the actor may write)
		v1.POST("/traces/:trace_id/activities", middleware.Auth(authCfg), handler.AppendActivities)

		// Trace lookup (public read access for any holder of a trace ID)
		v1.GET("/traces/:trace_id", handler.GetTrace)
	}
}
