package security

import (
	"testing"
	"time"

	"github.com/AtRiskMedia/tractstack-telemetry/internal/domain/identity"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateOpaqueID(t *testing.T) {
	a, b := GenerateOpaqueID(), GenerateOpaqueID()
	assert.NotEqual(t, a, b)
	_, err := uuid.Parse(a)
	assert.NoError(t, err)
}

func TestHashUserAgent(t *testing.T) {
	assert.Empty(t, HashUserAgent(""))
	h := HashUserAgent("Mozilla/5.0")
	assert.Len(t, h, 32)
	assert.Equal(t, h, HashUserAgent("Mozilla/5.0"))
	assert.NotEqual(t, h, HashUserAgent("curl/8.0"))
}

func TestIdentityTokenRoundtrip(t *testing.T) {
	snap := identity.Snapshot{AnonymousID: "anon", CohortID: "2024-01-15", DeviceID: "dev"}
	snap.DeviceSessionID = "sess"

	token, err := GenerateIdentityToken(snap, "secret", time.Minute, time.Now())
	require.NoError(t, err)

	claims, err := ValidateIdentityToken(token, "secret")
	require.NoError(t, err)
	assert.Equal(t, "anon", claims.AnonymousID)
	assert.Equal(t, "2024-01-15", claims.CohortID)
	assert.Equal(t, "dev", claims.DeviceID)
	assert.Equal(t, "sess", claims.DeviceSessionID)

	_, err = ValidateIdentityToken(token, "other")
	assert.Error(t, err)

	_, err = GenerateIdentityToken(snap, "", time.Minute, time.Now())
	assert.Error(t, err)
}

func TestIdentityTokenExpired(t *testing.T) {
	token, err := GenerateIdentityToken(identity.Snapshot{AnonymousID: "a"}, "secret", time.Minute, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	_, err = ValidateIdentityToken(token, "secret")
	assert.Error(t, err)
}
