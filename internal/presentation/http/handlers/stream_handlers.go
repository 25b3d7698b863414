package handlers

import (
	"net/http"
	"net/url"
	"slices"

	"github.com/AtRiskMedia/tractstack-telemetry/internal/domain/identity"
	"github.com/AtRiskMedia/tractstack-telemetry/internal/infrastructure/messaging"
	"github.com/AtRiskMedia/tractstack-telemetry/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/tractstack-telemetry/internal/presentation/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// StreamHandlers serves the live label stream over websockets
type StreamHandlers struct {
	broadcaster *messaging.LabelBroadcaster
	upgrader    websocket.Upgrader
	done        <-chan struct{}
	logger      *logging.ChanneledLogger
}

// NewStreamHandlers creates stream handlers. Connections close when done closes.
func NewStreamHandlers(broadcaster *messaging.LabelBroadcaster, allowedOrigins []string, done <-chan struct{}, logger *logging.ChanneledLogger) *StreamHandlers {
	return &StreamHandlers{
		broadcaster: broadcaster,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
		done:   done,
		logger: logger,
	}
}

// GetStream handles GET /api/v1/events/stream. Visitors receive their own
// labels; operators may pass ?scope=all with the admin token.
func (h *StreamHandlers) GetStream(c *gin.Context) {
	scope := messaging.AllVisitors
	if c.Query("scope") == "all" {
		if !middleware.IsAdmin(c) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
	} else {
		anonymousID, err := c.Cookie(identity.AnonymousIDKey)
		if err != nil || anonymousID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "identity cookie required"})
			return
		}
		scope = anonymousID
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.HTTP().Warn("Websocket upgrade failed", "error", err.Error())
		return
	}

	client := &messaging.StreamClient{
		Conn:        conn,
		AnonymousID: scope,
		Send:        h.broadcaster.AddClient(scope),
	}
	h.logger.Events().Info("Stream client connected", "clients", h.broadcaster.ClientCount())
	client.Serve(h.broadcaster, h.done)
	h.logger.Events().Info("Stream client disconnected", "clients", h.broadcaster.ClientCount())
}

// originChecker accepts same-host requests, requests without an Origin, and
// the configured CORS origins.
func originChecker(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		if slices.Contains(allowed, origin) {
			return true
		}
		u, err := url.Parse(origin)
		return err == nil && u.Host == r.Host
	}
}
