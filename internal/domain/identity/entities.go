// Package identity provides domain entities for visitor identity, session
// and attribution state, along with the record keys that persist them.
package identity

import "time"

// Clock supplies the current instant. Injected so cohort and expiry math is testable.
type Clock func() time.Time

// AnonymousIdentity is the durable per-visitor token. CohortID is empty when the
// identity predates cohort tracking.
type AnonymousIdentity struct {
	ID       string `json:"anonymousId"`
	CohortID string `json:"cohortId,omitempty"`
}

// DeviceIdentity distinguishes browser instances and defaults to the anonymous id.
type DeviceIdentity struct {
	DeviceID string `json:"deviceId"`
}

// Resolved is the outcome of startup identity resolution
type Resolved struct {
	AnonymousIdentity
	DeviceIdentity

	// Created is true when no persistence source held an anonymous id.
	Created bool `json:"-"`
	// Migrated is true when the id was read from the legacy store.
	Migrated bool `json:"-"`
}

// Session is the sliding-window session triple
type Session struct {
	DeviceSessionID string `json:"deviceSessionId"`
	SessionReferrer string `json:"sessionReferrer"`
	SessionFirstURL string `json:"sessionFirstUrl"`
}

// Attribution is the page-scoped acquisition triple
type Attribution struct {
	FirstSourceURL   string `json:"firstSourceUrl"`
	LastSourceURL    string `json:"lastSourceUrl"`
	OriginalReferrer string `json:"originalReferrer"`
}

// Snapshot bundles every resolved identity field for transports that attach
// identity to outgoing events.
type Snapshot struct {
	AnonymousID string `json:"anonymousId"`
	CohortID    string `json:"cohortId,omitempty"`
	DeviceID    string `json:"deviceId"`
	Session
	Attribution
}
