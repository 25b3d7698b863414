package handlers

import (
	"net/http"

	"github.com/AtRiskMedia/tractstack-telemetry/internal/domain/identity"
	"github.com/AtRiskMedia/tractstack-telemetry/internal/infrastructure/detection"
	"github.com/AtRiskMedia/tractstack-telemetry/internal/infrastructure/observability/logging"
	"github.com/gin-gonic/gin"
)

// ExtensionHandlers receives browser extension registration events
type ExtensionHandlers struct {
	bus    *detection.AnnouncementBus
	logger *logging.ChanneledLogger
}

// NewExtensionHandlers creates extension handlers
func NewExtensionHandlers(bus *detection.AnnouncementBus, logger *logging.ChanneledLogger) *ExtensionHandlers {
	return &ExtensionHandlers{
		bus:    bus,
		logger: logger,
	}
}

// PostAnnounce handles POST /api/v1/extension/announce. The announcement is
// delivered to the pages of the device named by the device cookie, or by
// ?deviceId when the extension cannot send cookies.
func (h *ExtensionHandlers) PostAnnounce(c *gin.Context) {
	deviceID := c.Query("deviceId")
	if deviceID == "" {
		if cookie, err := c.Cookie(identity.DeviceIDKey); err == nil {
			deviceID = cookie
		}
	}
	if deviceID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "device id required"})
		return
	}

	var announcement detection.Announcement
	if err := c.ShouldBindJSON(&announcement); err != nil {
		h.logger.Presence().Error("Announcement JSON binding failed", "error", err.Error())
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request format"})
		return
	}

	delivered := h.bus.Dispatch(deviceID, announcement)
	h.logger.Presence().Debug("Extension announcement dispatched",
		"deviceId", logging.MaskID(deviceID),
		"sandboxed", announcement.Sandboxed,
		"delivered", delivered)

	c.JSON(http.StatusOK, gin.H{"success": true, "delivered": delivered})
}
