package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/AtRiskMedia/tractstack-telemetry/internal/application/services"
	"github.com/AtRiskMedia/tractstack-telemetry/internal/domain/events"
	"github.com/AtRiskMedia/tractstack-telemetry/internal/domain/identity"
	"github.com/AtRiskMedia/tractstack-telemetry/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/tractstack-telemetry/internal/infrastructure/persistence/analytics"
	"github.com/AtRiskMedia/tractstack-telemetry/internal/presentation/http/middleware"
	"github.com/gin-gonic/gin"
)

// EventReader lists stored events
type EventReader interface {
	Recent(ctx context.Context, limit int) ([]*analytics.StoredEvent, error)
}

// EventHandlers contains the event emission HTTP handlers
type EventHandlers struct {
	reader EventReader
	logger *logging.ChanneledLogger
}

// LogEventRequest represents the body of a generic event
type LogEventRequest struct {
	Label          string             `json:"label"`
	Properties     *events.Properties `json:"properties,omitempty"`
	PublicArgument *events.Properties `json:"publicArgument,omitempty"`
}

// PageViewRequest represents the body of a page view. AsActiveUser defaults to true.
type PageViewRequest struct {
	Name         string             `json:"name"`
	Properties   *events.Properties `json:"properties,omitempty"`
	AsActiveUser *bool              `json:"asActiveUser,omitempty"`
}

// EventResponse tells the page where its URL stands after emission. When
// URLReplaced is set the page should rewrite its address bar to URL.
type EventResponse struct {
	Success     bool              `json:"success"`
	URL         string            `json:"url"`
	URLReplaced bool              `json:"urlReplaced"`
	Identity    identity.Snapshot `json:"identity"`
}

// NewEventHandlers creates event handlers with injected dependencies
func NewEventHandlers(reader EventReader, logger *logging.ChanneledLogger) *EventHandlers {
	return &EventHandlers{
		reader: reader,
		logger: logger,
	}
}

// PostLog handles POST /api/v1/events/log
func (h *EventHandlers) PostLog(c *gin.Context) {
	rt, ok := h.page(c)
	if !ok {
		return
	}

	var req LogEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Events().Error("Log request JSON binding failed", "error", err.Error())
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request format"})
		return
	}

	rt.Hub.Log(req.Label, req.Properties, req.PublicArgument)
	h.respond(c, rt)
}

// PostPageView handles POST /api/v1/events/pageview
func (h *EventHandlers) PostPageView(c *gin.Context) {
	h.pageView(c, (*services.EventHub).LogPageView)
}

// PostViewEvent handles POST /api/v1/events/view, the deprecated "View"-prefixed page view
func (h *EventHandlers) PostViewEvent(c *gin.Context) {
	h.pageView(c, (*services.EventHub).LogViewEvent)
}

func (h *EventHandlers) pageView(c *gin.Context, emit func(*services.EventHub, string, *events.Properties, bool)) {
	rt, ok := h.page(c)
	if !ok {
		return
	}

	var req PageViewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Events().Error("Page view request JSON binding failed", "error", err.Error())
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request format"})
		return
	}
	asActiveUser := true
	if req.AsActiveUser != nil {
		asActiveUser = *req.AsActiveUser
	}

	emit(rt.Hub, req.Name, req.Properties, asActiveUser)
	h.respond(c, rt)
}

// GetRecent handles GET /api/v1/admin/events/recent?limit=N
func (h *EventHandlers) GetRecent(c *gin.Context) {
	start := time.Now()
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit <= 0 || limit > 500 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be between 1 and 500"})
		return
	}

	stored, err := h.reader.Recent(c.Request.Context(), limit)
	if err != nil {
		h.logger.Events().Error("Failed to list recent events", "error", err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list events"})
		return
	}
	if stored == nil {
		stored = []*analytics.StoredEvent{}
	}

	h.logger.Events().Debug("Recent events listed", "count", len(stored), "duration", time.Since(start))
	c.JSON(http.StatusOK, gin.H{"events": stored, "count": len(stored)})
}

func (h *EventHandlers) page(c *gin.Context) (*services.PageRuntime, bool) {
	rt, exists := middleware.GetPageRuntime(c)
	if !exists {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "page runtime not found"})
	}
	return rt, exists
}

func (h *EventHandlers) respond(c *gin.Context, rt *services.PageRuntime) {
	c.JSON(http.StatusOK, EventResponse{
		Success:     true,
		URL:         rt.Location.Href(),
		URLReplaced: rt.Location.Replaced(),
		Identity:    rt.Snapshot(),
	})
}
