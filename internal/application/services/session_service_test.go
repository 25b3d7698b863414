package services

import (
	"testing"
	"time"

	"github.com/AtRiskMedia/tractstack-telemetry/internal/domain/identity"
	"github.com/AtRiskMedia/tractstack-telemetry/internal/domain/page"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (f *fixture) sessionService(publicMode bool) *SessionService {
	location := page.NewLocation("https://example.com/landing?utm_source=x", "https://referrer.example/")
	return NewSessionService(f.records, location, "anon-0001", publicMode, testTTLs, f.logger)
}

func TestRenewDefaultsToAnonymousID(t *testing.T) {
	f := newFixture()
	s := f.sessionService(false)

	require.True(t, s.Renew())
	id, ok := f.records.Get(identity.DeviceSessionIDKey)
	require.True(t, ok)
	assert.Equal(t, "anon-0001", id)
}

func TestRenewNeverShortensExpiry(t *testing.T) {
	f := newFixture()
	s := f.sessionService(false)

	s.Renew()
	first, _ := f.records.Record(identity.DeviceSessionIDKey)
	s.Renew()
	second, _ := f.records.Record(identity.DeviceSessionIDKey)
	assert.False(t, second.Expires.Before(first.Expires))

	f.clock.Advance(10 * time.Minute)
	s.Renew()
	third, _ := f.records.Record(identity.DeviceSessionIDKey)
	assert.True(t, third.Expires.After(second.Expires))
	assert.Equal(t, f.clock.Now().Add(testTTLs.Session), third.Expires)
}

func TestRenewKeepsLiveSessionID(t *testing.T) {
	f := newFixture()
	f.records.Set(identity.DeviceSessionIDKey, "other-tab-session", testTTLs.Session)

	s := f.sessionService(false)
	require.True(t, s.Renew())
	assert.Equal(t, "other-tab-session", s.DeviceSessionID())
}

func TestRenewRegeneratesAfterExpiry(t *testing.T) {
	f := newFixture()
	f.records.Set(identity.DeviceSessionIDKey, "stale-session", testTTLs.Session)
	f.clock.Advance(testTTLs.Session)

	s := f.sessionService(false)
	assert.Equal(t, "anon-0001", s.DeviceSessionID())
}

func TestRenewWithoutIdentity(t *testing.T) {
	f := newFixture()
	location := page.NewLocation("https://example.com/", "")
	s := NewSessionService(f.records, location, "", false, testTTLs, f.logger)

	assert.False(t, s.Renew())
	_, ok := f.records.Get(identity.DeviceSessionIDKey)
	assert.False(t, ok)
}

func TestAttributionDisabledOutsidePublicMode(t *testing.T) {
	f := newFixture()
	s := f.sessionService(false)

	assert.Equal(t, identity.Attribution{}, s.Attribution())
	assert.Empty(t, s.SessionReferrer())
	assert.Empty(t, s.SessionFirstURL())

	for _, key := range []string{
		identity.FirstSourceURLKey, identity.LastSourceURLKey, identity.OriginalReferrerKey,
		identity.SessionReferrerKey, identity.SessionFirstURLKey,
	} {
		_, ok := f.records.Get(key)
		assert.False(t, ok, key)
	}
}

func TestAttributionDefaultsInPublicMode(t *testing.T) {
	f := newFixture()
	s := f.sessionService(true)

	attribution := s.Attribution()
	assert.Equal(t, "https://example.com/landing?utm_source=x", attribution.FirstSourceURL)
	assert.Equal(t, "https://example.com/landing?utm_source=x", attribution.LastSourceURL)
	assert.Equal(t, "https://referrer.example/", attribution.OriginalReferrer)
	assert.Equal(t, "https://referrer.example/", s.SessionReferrer())
	assert.Equal(t, "https://example.com/landing?utm_source=x", s.SessionFirstURL())

	stored, _ := f.records.Get(identity.FirstSourceURLKey)
	assert.Equal(t, attribution.FirstSourceURL, stored)
	record, _ := f.records.Record(identity.SessionFirstURLKey)
	assert.Equal(t, f.clock.Now().Add(testTTLs.Session), record.Expires)
}

func TestAttributionPrefersStoredValues(t *testing.T) {
	f := newFixture()
	f.records.Set(identity.FirstSourceURLKey, "https://example.com/first", testTTLs.LongLived)
	f.records.Set(identity.LegacyReferrerKey, "https://legacy-referrer.example/", testTTLs.LongLived)

	s := f.sessionService(true)
	assert.Equal(t, "https://example.com/first", s.FirstSourceURL())
	assert.Equal(t, "https://legacy-referrer.example/", s.OriginalReferrer())
}

func TestAttributionIsCachedPerPage(t *testing.T) {
	f := newFixture()
	s := f.sessionService(true)
	assert.Equal(t, "https://example.com/landing?utm_source=x", s.LastSourceURL())

	// A cooperating writer updates the record after this page resolved it.
	f.records.Set(identity.LastSourceURLKey, "https://example.com/elsewhere", testTTLs.LongLived)
	assert.Equal(t, "https://example.com/landing?utm_source=x", s.LastSourceURL())

	next := f.sessionService(true)
	assert.Equal(t, "https://example.com/elsewhere", next.LastSourceURL())
}

func TestEmptyReferrerIsNotWritten(t *testing.T) {
	f := newFixture()
	location := page.NewLocation("https://example.com/", "")
	s := NewSessionService(f.records, location, "anon-0001", true, testTTLs, f.logger)

	assert.Empty(t, s.OriginalReferrer())
	_, ok := f.records.Get(identity.OriginalReferrerKey)
	assert.False(t, ok)
}
