// Package events provides the event records emitted by page runtimes and the
// contract for forwarding them to a backend.
package events

import (
	"context"
	"time"

	"github.com/AtRiskMedia/tractstack-telemetry/internal/domain/identity"
)

// Event labels emitted by the telemetry runtime itself.
const (
	ExtensionConnected          = "BrowserExtensionConnectedToServer"
	SignUpCompleted             = "SignUpCompleted"
	SignInCompleted             = "SignInCompleted"
	SavedSearchEmailClicked     = "SavedSearchEmailClicked"
	SavedSearchSlackClicked     = "SavedSearchSlackClicked"
	CodeMonitorEmailLinkClicked = "CodeMonitorEmailLinkClicked"
	UTMCampaignLinkClicked      = "UTMCampaignLinkClicked"
	UTMCodeHostIntegration      = "UTMCodeHostIntegration"
	VSCodeSignUpLinkClicked     = "VSCODESignUpLinkClicked"
)

// Naming transforms for page views.
const (
	PageViewSuffix = "Viewed"
	ViewPrefix     = "View"
)

// Kind distinguishes generic actions from page views on the wire
type Kind string

const (
	KindAction   Kind = "action"
	KindPageView Kind = "pageview"
)

// EventRecord is an emitted event before identity is attached
type EventRecord struct {
	Label          string      `json:"label"`
	Properties     *Properties `json:"properties,omitempty"`
	PublicArgument *Properties `json:"publicArgument,omitempty"`
}

// Envelope is what transports ship: the record plus the identity snapshot
// resolved for the page that emitted it.
type Envelope struct {
	ID            string            `json:"id"`
	Kind          Kind              `json:"kind"`
	Record        EventRecord       `json:"event"`
	AsActiveUser  bool              `json:"asActiveUser,omitempty"`
	URL           string            `json:"url"`
	URLParameters *Properties       `json:"urlParameters,omitempty"`
	Identity      identity.Snapshot `json:"identity"`
	UserAgentHash string            `json:"userAgentHash,omitempty"`
	Timestamp     time.Time         `json:"timestamp"`
}

// Forwarder ships envelopes to a backend. Implementations must not block the
// caller on network I/O; delivery is best-effort and never retried.
type Forwarder interface {
	LogEvent(ctx context.Context, env *Envelope)
	LogPageView(ctx context.Context, env *Envelope)
}
