// Package routes provides HTTP route configuration for the presentation layer.
package routes

import (
	"github.com/AtRiskMedia/tractstack-telemetry/internal/application/container"
	"github.com/AtRiskMedia/tractstack-telemetry/internal/presentation/http/handlers"
	"github.com/AtRiskMedia/tractstack-telemetry/internal/presentation/http/middleware"
	"github.com/AtRiskMedia/tractstack-telemetry/pkg/config"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SetupRoutes configures all HTTP routes and middleware with dependency injection.
func SetupRoutes(container *container.Container) *gin.Engine {
	r := gin.Default()

	r.Use(middleware.CORSMiddleware())

	// Initialize handlers
	identityHandlers := handlers.NewIdentityHandlers(config.PresenceWait, container.Logger)
	eventHandlers := handlers.NewEventHandlers(container.EventRepository, container.Logger)
	extensionHandlers := handlers.NewExtensionHandlers(container.Announcements, container.Logger)
	streamHandlers := handlers.NewStreamHandlers(container.Broadcaster, config.CORSOrigins, container.Done(), container.Logger)
	systemHandlers := handlers.NewSystemHandlers(container.DB, container.Broadcaster, container.Logger)

	r.GET("/health", systemHandlers.GetHealth)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api/v1")
	{
		// Each request below is one page load with its own runtime.
		page := api.Group("")
		page.Use(middleware.PageMiddleware(container, container.Logger))
		{
			page.GET("/identity", identityHandlers.GetIdentity)
			page.POST("/events/log", eventHandlers.PostLog)
			page.POST("/events/pageview", eventHandlers.PostPageView)
			page.POST("/events/view", eventHandlers.PostViewEvent)
		}

		api.POST("/extension/announce", extensionHandlers.PostAnnounce)
		api.GET("/events/stream", streamHandlers.GetStream)

		admin := api.Group("/admin")
		admin.Use(middleware.AdminAuthMiddleware())
		{
			admin.GET("/events/recent", eventHandlers.GetRecent)
			admin.GET("/logs/levels", systemHandlers.GetLogLevels)
			admin.POST("/logs/levels", systemHandlers.SetLogLevel)
		}
	}

	return r
}
