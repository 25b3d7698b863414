// Package container provides dependency injection for all singleton services
package container

import (
	"net/http"
	"sync"
	"time"

	"github.com/AtRiskMedia/tractstack-telemetry/internal/application/services"
	"github.com/AtRiskMedia/tractstack-telemetry/internal/domain/events"
	"github.com/AtRiskMedia/tractstack-telemetry/internal/domain/identity"
	"github.com/AtRiskMedia/tractstack-telemetry/internal/domain/page"
	"github.com/AtRiskMedia/tractstack-telemetry/internal/domain/presence"
	"github.com/AtRiskMedia/tractstack-telemetry/internal/infrastructure/broadcast"
	"github.com/AtRiskMedia/tractstack-telemetry/internal/infrastructure/caching"
	"github.com/AtRiskMedia/tractstack-telemetry/internal/infrastructure/detection"
	"github.com/AtRiskMedia/tractstack-telemetry/internal/infrastructure/messaging"
	"github.com/AtRiskMedia/tractstack-telemetry/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/tractstack-telemetry/internal/infrastructure/observability/metrics"
	"github.com/AtRiskMedia/tractstack-telemetry/internal/infrastructure/persistence/analytics"
	"github.com/AtRiskMedia/tractstack-telemetry/internal/infrastructure/persistence/cookies"
	"github.com/AtRiskMedia/tractstack-telemetry/internal/infrastructure/persistence/database"
	"github.com/AtRiskMedia/tractstack-telemetry/internal/infrastructure/persistence/legacy"
	"github.com/AtRiskMedia/tractstack-telemetry/internal/infrastructure/security"
	"github.com/AtRiskMedia/tractstack-telemetry/internal/infrastructure/transport"
	"github.com/AtRiskMedia/tractstack-telemetry/pkg/config"
)

// Container holds all singleton services and infrastructure dependencies
type Container struct {
	// Page runtimes are opened from the factory and cached per page instance
	PageFactory  *services.PageFactory
	QueryTrigger *services.QueryTrigger

	// Event sinks
	EventRepository *analytics.SQLEventRepository
	HTTPForwarder   *transport.HTTPForwarder
	Forwarder       events.Forwarder

	// Request classification and presence
	BotDetector   *detection.BotDetector
	Announcements *detection.AnnouncementBus

	// Infrastructure Dependencies
	DB               *database.DB
	LegacyStore      legacy.Backend
	Broadcaster      *messaging.LabelBroadcaster
	CookieAttributes cookies.Attributes
	Logger           *logging.ChanneledLogger
	Now              func() time.Time

	pages     *caching.TTLCache[*pageEntry]
	done      chan struct{}
	closeOnce sync.Once
}

// NewContainer creates and wires all singleton services from config
func NewContainer(db *database.DB, logger *logging.ChanneledLogger) (*Container, error) {
	bots, err := detection.NewBotDetector(config.AutomatedRegex)
	if err != nil {
		return nil, err
	}

	repo := analytics.NewSQLEventRepository(db, logger)
	forwarders := transport.Multi{repo}

	var httpForwarder *transport.HTTPForwarder
	if config.ForwardURL != "" {
		httpForwarder = transport.NewHTTPForwarder(config.ForwardURL, config.ForwardSigningSecret, config.ForwardTimeout, logger)
		forwarders = append(forwarders, httpForwarder)
	}

	broadcaster := messaging.NewLabelBroadcaster(logger)
	trigger := services.NewQueryTrigger(logger)

	attrs := cookies.DefaultAttributes(config.CookieDomain)
	attrs.Secure = config.CookieSecure

	factory := services.NewPageFactory(services.PageOptions{
		PublicMode: config.PublicMode,
		TTLs: services.RecordTTLs{
			LongLived: config.LongLivedTTL,
			Session:   config.SessionTTL,
		},
		PresenceWait: config.PresenceWait,
		Now:          time.Now,
		NewID:        security.GenerateOpaqueID,
	}, forwarders, trigger, broadcaster, logger)

	return &Container{
		PageFactory:  factory,
		QueryTrigger: trigger,

		EventRepository: repo,
		HTTPForwarder:   httpForwarder,
		Forwarder:       forwarders,

		BotDetector:   bots,
		Announcements: detection.NewAnnouncementBus(),

		DB:               db,
		LegacyStore:      legacy.NewSQLStore(db, logger),
		Broadcaster:      broadcaster,
		CookieAttributes: attrs,
		Logger:           logger,
		Now:              time.Now,

		pages: caching.NewTTLCache[*pageEntry](config.PageInstanceTTL, time.Now),
		done:  make(chan struct{}),
	}, nil
}

// pageEntry is one page instance: its runtime and the record binding that
// moves to each request the page makes.
type pageEntry struct {
	runtime *services.PageRuntime
	records *cookies.Binding
}

// attach binds the entry to jar when the request belongs to the visitor the
// runtime was opened for.
func (e *pageEntry) attach(jar *cookies.Jar) bool {
	id, ok := jar.Get(identity.AnonymousIDKey)
	if !ok || id != e.runtime.Identity.ID {
		return false
	}
	e.records.Bind(jar)
	return true
}

// OpenPage returns the page runtime for one inbound request and the page
// instance id it is cached under. A known instanceID whose visitor matches
// the request's cookies reuses the runtime opened by the page's first
// request; anything else opens a runtime under a fresh id. The caller
// flushes the returned jar into the response headers.
func (c *Container) OpenPage(r *http.Request, instanceID, href, referrer string) (*services.PageRuntime, string, *cookies.Jar) {
	jar := cookies.NewJar(r, c.CookieAttributes, c.Now)

	if instanceID != "" {
		if entry, ok := c.pages.Get(instanceID); ok && entry.attach(jar) {
			return entry.runtime, instanceID, jar
		}
	}

	entry := &pageEntry{records: cookies.NewBinding(jar)}
	entry.runtime = c.openRuntime(r, entry.records, href, referrer)

	instanceID = security.GenerateOpaqueID()
	c.pages.Set(instanceID, entry)
	metrics.PageInstances.Set(float64(c.pages.Len()))
	return entry.runtime, instanceID, jar
}

func (c *Container) openRuntime(r *http.Request, records identity.RecordStore, href, referrer string) *services.PageRuntime {
	userAgent := r.UserAgent()
	marker := detection.NewHeaderMarker(r)

	return c.PageFactory.Open(services.PageDeps{
		Context:   r.Context(),
		Records:   records,
		Legacy:    legacy.Scope(c.LegacyStore, r.Header.Get(config.LegacyHeader)),
		Location:  page.NewLocation(href, referrer),
		UserAgent: userAgent,
		Automated: c.BotDetector.IsAutomated(r),
		PresenceChannels: func(resolved identity.Resolved) []broadcast.Channel[presence.ExtensionInfo] {
			return []broadcast.Channel[presence.ExtensionInfo]{
				detection.MarkerChannel(marker, config.PresencePollInterval, config.PresenceMarkerTimeout),
				detection.AnnouncementChannel(c.Announcements, resolved.DeviceID, presence.ShimFor(userAgent)),
			}
		},
	})
}

// Done is closed when the container shuts down. Long-lived streams watch it.
func (c *Container) Done() <-chan struct{} {
	return c.done
}

// Close ends open streams and flushes in-flight forwards. Safe to call twice.
func (c *Container) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		if c.HTTPForwarder != nil {
			c.HTTPForwarder.Close()
		}
	})
}
