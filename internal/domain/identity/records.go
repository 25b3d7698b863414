package identity

// Long-lived record keys (365 day sliding expiry).
const (
	AnonymousIDKey      = "tractstackAnonymousUid"
	CohortIDKey         = "tractstackCohortId"
	DeviceIDKey         = "tractstackDeviceId"
	FirstSourceURLKey   = "tractstackSourceUrl"
	LastSourceURLKey    = "tractstackRecentSourceUrl"
	OriginalReferrerKey = "originalReferrer"

	// LegacyReferrerKey is written by the marketing site before originalReferrer existed.
	LegacyReferrerKey = "mkto_referrer"
)

// Short-lived record keys (30 minute sliding expiry).
const (
	DeviceSessionIDKey = "tractstackDeviceSessionId"
	SessionReferrerKey = "tractstackSessionReferrer"
	SessionFirstURLKey = "tractstackSessionFirstUrl"
)

// LegacyAnonymousIDKey is the local-store key older clients used for the anonymous id.
const LegacyAnonymousIDKey = AnonymousIDKey
