// Package services provides application-level services that orchestrate
// identity, session and event logic over the domain and infrastructure layers.
package services

import (
	"time"

	"github.com/AtRiskMedia/tractstack-telemetry/internal/domain/identity"
	"github.com/AtRiskMedia/tractstack-telemetry/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/tractstack-telemetry/internal/infrastructure/observability/metrics"
)

// RecordTTLs are the sliding expiries applied on every record write
type RecordTTLs struct {
	LongLived time.Duration
	Session   time.Duration
}

// IdentityService reconciles the record store and the legacy store into one
// anonymous/device identity. Resolve runs once per page runtime.
type IdentityService struct {
	records identity.RecordStore
	legacy  identity.LegacyStore
	ttls    RecordTTLs
	now     identity.Clock
	newID   func() string
	logger  *logging.ChanneledLogger
}

// NewIdentityService creates a new identity service
func NewIdentityService(records identity.RecordStore, legacy identity.LegacyStore, ttls RecordTTLs,
	now identity.Clock, newID func() string, logger *logging.ChanneledLogger) *IdentityService {
	return &IdentityService{
		records: records,
		legacy:  legacy,
		ttls:    ttls,
		now:     now,
		newID:   newID,
		logger:  logger,
	}
}

// Resolve computes the canonical identity, migrating the legacy value when
// present. Storage failures read as absence; nothing is surfaced as an error.
func (s *IdentityService) Resolve() identity.Resolved {
	var out identity.Resolved

	anonymousID, _ := s.records.Get(identity.AnonymousIDKey)
	if anonymousID == "" {
		if legacyID, ok := s.legacy.Get(identity.LegacyAnonymousIDKey); ok && legacyID != "" {
			anonymousID = legacyID
			out.Migrated = true
		}
	}

	var cohortID string
	if anonymousID == "" {
		anonymousID = s.newID()
		cohortID = identity.CohortID(s.now())
		out.Created = true
	} else {
		// Identities that predate cohort tracking keep an empty cohort.
		cohortID, _ = s.records.Get(identity.CohortIDKey)
	}

	s.records.Set(identity.AnonymousIDKey, anonymousID, s.ttls.LongLived)
	s.legacy.Remove(identity.LegacyAnonymousIDKey)
	if cohortID != "" {
		s.records.Set(identity.CohortIDKey, cohortID, s.ttls.LongLived)
	}

	deviceID, _ := s.records.Get(identity.DeviceIDKey)
	if deviceID == "" {
		deviceID = anonymousID
	}
	s.records.Set(identity.DeviceIDKey, deviceID, s.ttls.LongLived)

	out.AnonymousIdentity = identity.AnonymousIdentity{ID: anonymousID, CohortID: cohortID}
	out.DeviceIdentity = identity.DeviceIdentity{DeviceID: deviceID}

	outcome := "existing"
	switch {
	case out.Created:
		outcome = "created"
	case out.Migrated:
		outcome = "migrated"
	}
	metrics.IdentitiesResolved.WithLabelValues(outcome).Inc()

	s.logger.Identity().Debug("Identity resolved",
		"anonymousId", logging.MaskID(anonymousID),
		"cohortId", cohortID,
		"outcome", outcome)

	return out
}
