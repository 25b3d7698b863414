package services

import (
	"container/list"
	"context"
	"sync"

	"github.com/AtRiskMedia/tractstack-telemetry/internal/domain/events"
	"github.com/AtRiskMedia/tractstack-telemetry/internal/domain/identity"
	"github.com/AtRiskMedia/tractstack-telemetry/internal/domain/page"
	"github.com/AtRiskMedia/tractstack-telemetry/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/tractstack-telemetry/internal/infrastructure/observability/metrics"
	"github.com/AtRiskMedia/tractstack-telemetry/internal/infrastructure/security"
)

// Listener receives the label of every emitted event
type Listener func(label string)

// EventHub emits events for one page: it renews the session, notifies
// listeners and hands envelopes to the forwarder.
type EventHub struct {
	ctx           context.Context
	identity      identity.Resolved
	session       *SessionService
	trigger       *QueryTrigger
	forwarder     events.Forwarder
	location      *page.Location
	automated     bool
	userAgentHash string
	now           identity.Clock
	logger        *logging.ChanneledLogger

	mu        sync.Mutex
	listeners *list.List
	queryOnce sync.Once
}

// EventHubConfig carries the per-page collaborators of a hub
type EventHubConfig struct {
	Identity  identity.Resolved
	Session   *SessionService
	Trigger   *QueryTrigger
	Forwarder events.Forwarder
	Location  *page.Location
	Automated bool
	UserAgent string
	Now       identity.Clock
}

// NewEventHub creates a hub. ctx is handed to the forwarder and should outlive
// the request that opened the page.
func NewEventHub(ctx context.Context, cfg EventHubConfig, logger *logging.ChanneledLogger) *EventHub {
	return &EventHub{
		ctx:           ctx,
		identity:      cfg.Identity,
		session:       cfg.Session,
		trigger:       cfg.Trigger,
		forwarder:     cfg.Forwarder,
		location:      cfg.Location,
		automated:     cfg.Automated,
		userAgentHash: security.HashUserAgent(cfg.UserAgent),
		now:           cfg.Now,
		logger:        logger,
		listeners:     list.New(),
	}
}

// AddListener registers fn and returns its unsubscribe func. Unsubscribe may
// be called any number of times.
func (h *EventHub) AddListener(fn Listener) (unsubscribe func()) {
	h.mu.Lock()
	elem := h.listeners.PushBack(fn)
	h.mu.Unlock()

	return func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if elem != nil {
			h.listeners.Remove(elem)
			elem = nil
		}
	}
}

// ListenerCount returns the number of registered listeners
func (h *EventHub) ListenerCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.listeners.Len()
}

// Log emits a generic event. Listeners are notified even for automated
// traffic and empty labels; only forwarding is suppressed. A panicking
// listener propagates to the caller.
func (h *EventHub) Log(label string, properties, publicArgument *events.Properties) {
	h.session.Renew()
	h.notify(label)

	if h.automated || label == "" {
		metrics.EventsEmitted.WithLabelValues(string(events.KindAction), "suppressed").Inc()
		h.logger.Events().Debug("Event suppressed", "label", label, "automated", h.automated)
		return
	}

	env := h.envelope(events.KindAction, events.EventRecord{
		Label:          label,
		Properties:     properties,
		PublicArgument: publicArgument,
	}, false, nil)
	h.forwarder.LogEvent(h.ctx, env)
	metrics.EventsEmitted.WithLabelValues(string(events.KindAction), "forwarded").Inc()
	h.logger.Events().Debug("Event forwarded", "label", label, "envelopeId", env.ID)
}

// LogPageView emits name+"Viewed". Automated traffic and empty names return
// before the session is touched or any listener runs.
func (h *EventHub) LogPageView(name string, properties *events.Properties, asActiveUser bool) {
	if h.automated || name == "" {
		metrics.EventsEmitted.WithLabelValues(string(events.KindPageView), "suppressed").Inc()
		return
	}
	h.pageView(name+events.PageViewSuffix, properties, asActiveUser)
}

// LogViewEvent emits "View"+name.
//
// Deprecated: use LogPageView.
func (h *EventHub) LogViewEvent(name string, properties *events.Properties, asActiveUser bool) {
	if h.automated || name == "" {
		metrics.EventsEmitted.WithLabelValues(string(events.KindPageView), "suppressed").Inc()
		return
	}
	h.pageView(events.ViewPrefix+name, properties, asActiveUser)
}

func (h *EventHub) pageView(label string, properties *events.Properties, asActiveUser bool) {
	h.session.Renew()

	params := h.trigger.PageViewParameters(h.location, h.Log)
	h.notify(label)

	env := h.envelope(events.KindPageView, events.EventRecord{
		Label:      label,
		Properties: properties,
	}, asActiveUser, params)
	h.forwarder.LogPageView(h.ctx, env)
	metrics.EventsEmitted.WithLabelValues(string(events.KindPageView), "forwarded").Inc()
	h.logger.Events().Debug("Page view forwarded", "label", label, "envelopeId", env.ID)

	h.queryOnce.Do(func() {
		h.trigger.HandleQueryEvents(h.location, h.Log)
	})
}

// notify runs listeners in registration order on the caller's goroutine.
// The set is copied first so a listener may unsubscribe itself.
func (h *EventHub) notify(label string) {
	h.mu.Lock()
	snapshot := make([]Listener, 0, h.listeners.Len())
	for e := h.listeners.Front(); e != nil; e = e.Next() {
		snapshot = append(snapshot, e.Value.(Listener))
	}
	h.mu.Unlock()

	for _, fn := range snapshot {
		fn(label)
	}
}

// Snapshot returns every identity field as of now
func (h *EventHub) Snapshot() identity.Snapshot {
	return identity.Snapshot{
		AnonymousID: h.identity.ID,
		CohortID:    h.identity.CohortID,
		DeviceID:    h.identity.DeviceID,
		Session:     h.session.Session(),
		Attribution: h.session.Attribution(),
	}
}

func (h *EventHub) envelope(kind events.Kind, record events.EventRecord, asActiveUser bool, params *events.Properties) *events.Envelope {
	if params != nil && params.Len() == 0 {
		params = nil
	}
	return &events.Envelope{
		ID:            security.GenerateULID(),
		Kind:          kind,
		Record:        record,
		AsActiveUser:  asActiveUser,
		URL:           h.location.Href(),
		URLParameters: params,
		Identity:      h.Snapshot(),
		UserAgentHash: h.userAgentHash,
		Timestamp:     h.now(),
	}
}
