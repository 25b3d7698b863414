// Package messaging provides the concrete implementation of the label broadcaster.
package messaging

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/AtRiskMedia/tractstack-telemetry/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/tractstack-telemetry/internal/infrastructure/observability/metrics"
)

// AllVisitors subscribes a client to every visitor's labels.
const AllVisitors = ""

// LabelMessage is one listener notification as sent over the stream.
type LabelMessage struct {
	Label       string    `json:"label"`
	AnonymousID string    `json:"anonymousId"`
	At          time.Time `json:"at"`
}

// LabelBroadcaster fans listener notifications out to stream clients, scoped
// by anonymous id.
type LabelBroadcaster struct {
	clients map[string][]chan []byte // anonymousId -> []channels
	mu      sync.Mutex
	logger  *logging.ChanneledLogger
	now     func() time.Time
}

// NewLabelBroadcaster creates a broadcaster. One instance serves the process.
func NewLabelBroadcaster(logger *logging.ChanneledLogger) *LabelBroadcaster {
	return &LabelBroadcaster{
		clients: make(map[string][]chan []byte),
		logger:  logger,
		now:     time.Now,
	}
}

// AddClient registers a new client. AllVisitors receives everything.
func (b *LabelBroadcaster) AddClient(anonymousID string) chan []byte {
	ch := make(chan []byte, 16)

	b.mu.Lock()
	defer b.mu.Unlock()

	b.clients[anonymousID] = append(b.clients[anonymousID], ch)
	metrics.StreamClients.Inc()

	b.logger.Events().Debug("Stream client registered", "anonymousId", maskScope(anonymousID))
	return ch
}

// RemoveClient unregisters a client. Removing an unknown channel is a no-op.
func (b *LabelBroadcaster) RemoveClient(ch chan []byte, anonymousID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	scoped, exists := b.clients[anonymousID]
	if !exists {
		return
	}
	kept := make([]chan []byte, 0, len(scoped))
	for _, client := range scoped {
		if client != ch {
			kept = append(kept, client)
		}
	}
	if len(kept) == len(scoped) {
		return
	}
	metrics.StreamClients.Dec()

	if len(kept) == 0 {
		delete(b.clients, anonymousID)
	} else {
		b.clients[anonymousID] = kept
	}
	b.logger.Events().Debug("Stream client unregistered", "anonymousId", maskScope(anonymousID))
}

// ClientCount returns the number of connected clients.
func (b *LabelBroadcaster) ClientCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := 0
	for _, scoped := range b.clients {
		n += len(scoped)
	}
	return n
}

// Publish sends msg to the visitor's clients and to AllVisitors clients.
// Slow clients drop messages rather than blocking the emitter.
func (b *LabelBroadcaster) Publish(msg LabelMessage) {
	if msg.At.IsZero() {
		msg.At = b.now()
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		b.logger.Events().Error("Failed to encode stream message", "error", err, "label", msg.Label)
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.send(b.clients[AllVisitors], payload, msg)
	if msg.AnonymousID != AllVisitors {
		b.send(b.clients[msg.AnonymousID], payload, msg)
	}
}

func (b *LabelBroadcaster) send(clients []chan []byte, payload []byte, msg LabelMessage) {
	for _, ch := range clients {
		select {
		case ch <- payload:
		default:
			b.logger.Events().Warn("Stream channel full, message dropped", "label", msg.Label)
		}
	}
}

// Listener adapts the broadcaster to a page hub listener for one visitor.
func (b *LabelBroadcaster) Listener(anonymousID string) func(label string) {
	return func(label string) {
		b.Publish(LabelMessage{Label: label, AnonymousID: anonymousID})
	}
}

func maskScope(anonymousID string) string {
	if anonymousID == AllVisitors {
		return "*"
	}
	return logging.MaskID(anonymousID)
}
