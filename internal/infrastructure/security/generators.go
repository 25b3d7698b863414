// Package security provides identifier generation, hashing and identity
// assertions for forwarded events.
package security

import (
	"encoding/hex"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"golang.org/x/crypto/blake2b"
)

// GenerateULID generates a new ULID string.
func GenerateULID() string {
	return ulid.Make().String()
}

// GenerateOpaqueID returns a random v4 UUID, used for anonymous visitor ids.
func GenerateOpaqueID() string {
	return uuid.NewString()
}

// HashUserAgent returns a short, stable digest of a user agent so forwarded
// events can be grouped without carrying the raw string.
func HashUserAgent(userAgent string) string {
	if userAgent == "" {
		return ""
	}
	sum := blake2b.Sum256([]byte(userAgent))
	return hex.EncodeToString(sum[:16])
}
