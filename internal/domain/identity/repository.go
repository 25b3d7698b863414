package identity

import "time"

// RecordStore is the persistent key/value surface identity state lives in.
// Implementations are fail-open: read failures report absence and write
// failures are swallowed.
type RecordStore interface {
	// Get returns the value of a record and whether it is present.
	Get(key string) (string, bool)

	// Set writes a record, refreshing its expiry to now+ttl.
	Set(key, value string, ttl time.Duration)

	// Remove deletes a record.
	Remove(key string)
}

// LegacyStore is the flat key/value store older clients used.
type LegacyStore interface {
	Get(key string) (string, bool)
	Remove(key string)
}
