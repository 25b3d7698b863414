// Package handlers provides HTTP request handlers for the presentation layer.
package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/AtRiskMedia/tractstack-telemetry/internal/domain/identity"
	"github.com/AtRiskMedia/tractstack-telemetry/internal/domain/presence"
	"github.com/AtRiskMedia/tractstack-telemetry/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/tractstack-telemetry/internal/presentation/http/middleware"
	"github.com/gin-gonic/gin"
)

// IdentityHandlers exposes the identity resolved for a page load
type IdentityHandlers struct {
	maxWait time.Duration
	logger  *logging.ChanneledLogger
}

// IdentityResponse represents the response structure for identity requests
type IdentityResponse struct {
	Identity  identity.Snapshot       `json:"identity"`
	Created   bool                    `json:"created"`
	Migrated  bool                    `json:"migrated"`
	Extension *presence.ExtensionInfo `json:"extension,omitempty"`
}

// NewIdentityHandlers creates identity handlers. maxWait caps how long a
// request may wait for extension detection.
func NewIdentityHandlers(maxWait time.Duration, logger *logging.ChanneledLogger) *IdentityHandlers {
	return &IdentityHandlers{
		maxWait: maxWait,
		logger:  logger,
	}
}

// GetIdentity handles GET /api/v1/identity. With ?wait=<duration> it holds
// the response until the extension is detected or the wait elapses.
func (h *IdentityHandlers) GetIdentity(c *gin.Context) {
	rt, exists := middleware.GetPageRuntime(c)
	if !exists {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "page runtime not found"})
		return
	}

	if wait, err := time.ParseDuration(c.Query("wait")); err == nil && wait > 0 {
		if wait > h.maxWait {
			wait = h.maxWait
		}
		ctx, cancel := context.WithTimeout(c.Request.Context(), wait)
		rt.Presence.Wait(ctx)
		cancel()
	}

	response := IdentityResponse{
		Identity: rt.Snapshot(),
		Created:  rt.Identity.Created,
		Migrated: rt.Identity.Migrated,
	}
	if info, ok := rt.Presence.Detected(); ok {
		response.Extension = &info
	}

	h.logger.Identity().Debug("Identity served",
		"anonymousId", logging.MaskID(rt.Identity.ID),
		"created", rt.Identity.Created,
		"extension", response.Extension != nil)

	c.JSON(http.StatusOK, response)
}
