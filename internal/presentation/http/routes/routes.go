// Package routes wires URL paths to their handlers.
package routes

import (
	"net/http"

	"github.com/AtRiskMedia/pulsetrack-go/internal/application/container"
	"github.com/AtRiskMedia/pulsetrack-go/internal/presentation/http/handlers"
	"github.com/AtRiskMedia/pulsetrack-go/internal/presentation/http/middleware"
	"github.com/gin-gonic/gin"
)

// SetupRoutes configures the gin router with all endpoints.
func SetupRoutes(c *container.Container) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORSMiddleware())

	telemetryHandlers := handlers.NewTelemetryHandlers(
		c.IngestionService, c.IdentityService, c.SubmissionService, c.Logger, c.PerfTracker)
	activityHandlers := handlers.NewActivityHandlers(
		c.ActivityService, c.SubmissionService, c.Broadcaster, c.Logger, c.PerfTracker)
	authHandlers := handlers.NewAuthHandlers(c.AuthService, c.Logger)

	router.GET("/health", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api/v1")
	{
		// Public collection endpoints
		api.POST("/track", telemetryHandlers.PostTrack)
		api.POST("/identify", telemetryHandlers.PostIdentify)
		api.POST("/submissions", telemetryHandlers.PostSubmission)

		// Admin authentication
		auth := api.Group("/auth")
		{
			auth.POST("/login", authHandlers.PostLogin)
			auth.GET("/verify", middleware.AuthMiddleware(c.AuthService), authHandlers.GetVerify)
		}

		// Admin dashboard (bearer token required)
		activity := api.Group("/activity", middleware.AuthMiddleware(c.AuthService))
		{
			activity.GET("/overview", activityHandlers.GetOverview)
			activity.GET("/visitors", activityHandlers.GetVisitors)
			activity.GET("/sessions", activityHandlers.GetSessions)
			activity.GET("/events", activityHandlers.GetEvents)
			activity.GET("/subscribers", activityHandlers.GetSubscribers)
			activity.GET("/submissions", activityHandlers.GetSubmissions)
			activity.GET("/stream", activityHandlers.GetStream)
		}
	}

	return router
}
