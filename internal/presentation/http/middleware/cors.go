package middleware

import (
	"github.com/AtRiskMedia/tractstack-telemetry/internal/infrastructure/detection"
	"github.com/AtRiskMedia/tractstack-telemetry/pkg/config"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// CORSMiddleware allows the configured page origins to call the API with cookies
func CORSMiddleware() gin.HandlerFunc {
	corsConfig := cors.Config{
		AllowOrigins: config.CORSOrigins,
		AllowMethods: []string{
			"GET", "POST", "OPTIONS",
		},
		AllowHeaders: []string{
			"Origin", "Content-Type", "Accept", "Authorization", "X-Requested-With",
			PageURLHeader, PageReferrerHeader, PageInstanceHeader, config.LegacyHeader,
			detection.PlatformHeader, detection.VersionHeader, detection.AutomatedHeader,
			"Cache-Control",
		},
		AllowCredentials: true,
		ExposeHeaders: []string{
			"Content-Type", "Cache-Control", PageInstanceHeader,
		},
	}

	return cors.New(corsConfig)
}
