package services

import (
	"context"
	"time"

	"github.com/AtRiskMedia/tractstack-telemetry/internal/domain/events"
	"github.com/AtRiskMedia/tractstack-telemetry/internal/domain/identity"
	"github.com/AtRiskMedia/tractstack-telemetry/internal/domain/page"
	"github.com/AtRiskMedia/tractstack-telemetry/internal/domain/presence"
	"github.com/AtRiskMedia/tractstack-telemetry/internal/infrastructure/broadcast"
	"github.com/AtRiskMedia/tractstack-telemetry/internal/infrastructure/observability/logging"
)

// ListenerSource hands out a process-wide listener for a visitor's pages
type ListenerSource interface {
	Listener(anonymousID string) func(label string)
}

// PageOptions are the process-wide settings every page runtime shares
type PageOptions struct {
	PublicMode   bool
	TTLs         RecordTTLs
	PresenceWait time.Duration
	Now          identity.Clock
	NewID        func() string
}

// PageDeps are the collaborators of a single page load
type PageDeps struct {
	Context   context.Context
	Records   identity.RecordStore
	Legacy    identity.LegacyStore
	Location  *page.Location
	UserAgent string
	Automated bool

	// PresenceChannels builds the channels that race to detect the browser
	// extension, once identity is known. Nil means the page never observes one.
	PresenceChannels func(identity.Resolved) []broadcast.Channel[presence.ExtensionInfo]
}

// PageRuntime is the explicit context object for one page load. It has no
// teardown: its presence subscription lives as long as the runtime does.
type PageRuntime struct {
	Identity identity.Resolved
	Location *page.Location
	Session  *SessionService
	Hub      *EventHub
	Presence *PresenceService
}

// PageFactory opens page runtimes
type PageFactory struct {
	options   PageOptions
	forwarder events.Forwarder
	trigger   *QueryTrigger
	listeners ListenerSource
	logger    *logging.ChanneledLogger
}

// NewPageFactory creates a factory. listeners may be nil.
func NewPageFactory(options PageOptions, forwarder events.Forwarder, trigger *QueryTrigger,
	listeners ListenerSource, logger *logging.ChanneledLogger) *PageFactory {
	if options.Now == nil {
		options.Now = time.Now
	}
	return &PageFactory{
		options:   options,
		forwarder: forwarder,
		trigger:   trigger,
		listeners: listeners,
		logger:    logger,
	}
}

// Open builds a runtime. Initialization order:
//  1. identity resolution, including legacy migration
//  2. session service bound to the resolved anonymous id
//  3. event hub, with the process listener attached
//  4. presence race, subscribed to emit the extension-connected event
func (f *PageFactory) Open(deps PageDeps) *PageRuntime {
	ctx := deps.Context
	if ctx == nil {
		ctx = context.Background()
	}
	// Forwarding and presence outlive the request that opened the page.
	ctx = context.WithoutCancel(ctx)

	resolved := NewIdentityService(deps.Records, deps.Legacy, f.options.TTLs,
		f.options.Now, f.options.NewID, f.logger).Resolve()

	session := NewSessionService(deps.Records, deps.Location, resolved.ID,
		f.options.PublicMode, f.options.TTLs, f.logger)

	hub := NewEventHub(ctx, EventHubConfig{
		Identity:  resolved,
		Session:   session,
		Trigger:   f.trigger,
		Forwarder: f.forwarder,
		Location:  deps.Location,
		Automated: deps.Automated,
		UserAgent: deps.UserAgent,
		Now:       f.options.Now,
	}, f.logger)
	if f.listeners != nil {
		hub.AddListener(f.listeners.Listener(resolved.ID))
	}

	rt := &PageRuntime{
		Identity: resolved,
		Location: deps.Location,
		Session:  session,
		Hub:      hub,
	}

	var channels []broadcast.Channel[presence.ExtensionInfo]
	if deps.PresenceChannels != nil {
		channels = deps.PresenceChannels(resolved)
	}
	rt.Presence = NewPresenceService(f.options.PresenceWait, f.logger, channels...)
	rt.Presence.Subscribe(func(info presence.ExtensionInfo, err error) {
		if err != nil {
			return
		}
		props := events.NewProperties("platform", info.Platform, "version", info.Version)
		hub.Log(events.ExtensionConnected, props, props.Clone())
	})

	return rt
}

// Snapshot returns the runtime's identity as of now
func (rt *PageRuntime) Snapshot() identity.Snapshot {
	return rt.Hub.Snapshot()
}
