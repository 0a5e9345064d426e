package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/classtrack/schoolsync-backend/internal/handlers"
	"github.com/classtrack/schoolsync-backend/internal/middleware"
)

type RouterConfig struct {
	AuthHandler    *handlers.AuthHandler
	AuthMiddleware *middleware.AuthMiddleware
	MissingHandler *handlers.MissingHandler
	DeltaHandler   *handlers.DeltaHandler
	ActionHandler  *handlers.ActionHandler
	SyncHandler    *handlers.SyncHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()

	// Cors
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{
			"http://localhost:80",
			"http://localhost:3000",
			"http://localhost:5174",
		},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))

	// ===============
	// || Public    ||
	// ===============
	router.GET("/healthcheck", handlers.HealthCheck)
	router.POST("/login", cfg.AuthHandler.Login)

	// ===============
	// || Protected ||
	// ===============
	protected := router.Group("/")
	protected.Use(cfg.AuthMiddleware.RequireAuth())
	// Missing assignments
	protected.GET("/gradebooks/:id/missing", cfg.MissingHandler.ForGradebook)
	protected.GET("/me/missing", cfg.MissingHandler.ForMe)
	// Deltas
	protected.GET("/deltas", cfg.DeltaHandler.ListUnsettled)
	protected.POST("/deltas/compute", cfg.DeltaHandler.Compute)
	protected.POST("/deltas/:id/settle", cfg.DeltaHandler.Settle)
	// Actions
	protected.GET("/actions", cfg.ActionHandler.List)
	protected.POST("/actions", cfg.ActionHandler.Create)
	// Sync
	protected.POST("/sync/staff/:source_id", cfg.SyncHandler.RunStaff)
	protected.GET("/sync/runs", cfg.SyncHandler.ListRuns)

	return router
}
