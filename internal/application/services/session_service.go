package services

import (
	"strconv"
	"sync"
	"time"

	"github.com/AtRiskMedia/tractstack-telemetry/internal/domain/identity"
	"github.com/AtRiskMedia/tractstack-telemetry/internal/domain/page"
	"github.com/AtRiskMedia/tractstack-telemetry/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/tractstack-telemetry/internal/infrastructure/observability/metrics"
)

// SessionService resolves the sliding session triple and the attribution
// triple for one page. Values are cached after first resolution, except the
// device session id, which is re-read on every call so activity keeps
// extending its window.
type SessionService struct {
	records     identity.RecordStore
	location    *page.Location
	anonymousID string
	publicMode  bool
	ttls        RecordTTLs
	logger      *logging.ChanneledLogger

	mu    sync.Mutex
	cache map[string]string
}

// NewSessionService creates a session service for one page runtime.
// publicMode enables attribution tracking; without it the attribution and
// session referrer fields resolve to empty and never touch the store.
func NewSessionService(records identity.RecordStore, location *page.Location, anonymousID string,
	publicMode bool, ttls RecordTTLs, logger *logging.ChanneledLogger) *SessionService {
	return &SessionService{
		records:     records,
		location:    location,
		anonymousID: anonymousID,
		publicMode:  publicMode,
		ttls:        ttls,
		logger:      logger,
		cache:       make(map[string]string),
	}
}

// DeviceSessionID returns the session id, defaulting to the anonymous id when
// the record has expired. The record is always rewritten to extend its TTL.
func (s *SessionService) DeviceSessionID() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, _ := s.records.Get(identity.DeviceSessionIDKey)
	if id == "" {
		id = s.anonymousID
	}
	if id != "" {
		s.records.Set(identity.DeviceSessionIDKey, id, s.ttls.Session)
	}
	s.cache[identity.DeviceSessionIDKey] = id
	return id
}

// Renew re-resolves the device session id and reports whether one was obtained
func (s *SessionService) Renew() bool {
	ok := s.DeviceSessionID() != ""
	metrics.SessionRenewals.WithLabelValues(strconv.FormatBool(ok)).Inc()
	if !ok {
		s.logger.Session().Warn("Session renewal produced no id")
	}
	return ok
}

func (s *SessionService) SessionReferrer() string {
	return s.tracked(identity.SessionReferrerKey, s.ttls.Session, s.location.Referrer)
}

func (s *SessionService) SessionFirstURL() string {
	return s.tracked(identity.SessionFirstURLKey, s.ttls.Session, s.location.Href)
}

func (s *SessionService) FirstSourceURL() string {
	return s.tracked(identity.FirstSourceURLKey, s.ttls.LongLived, s.location.Href)
}

// LastSourceURL is shared with cooperating writers; it is re-read rather than
// assumed to be ours.
func (s *SessionService) LastSourceURL() string {
	return s.tracked(identity.LastSourceURLKey, s.ttls.LongLived, s.location.Href)
}

// OriginalReferrer falls back to the legacy referrer record before the
// document referrer.
func (s *SessionService) OriginalReferrer() string {
	return s.tracked(identity.OriginalReferrerKey, s.ttls.LongLived, func() string {
		if legacy, ok := s.records.Get(identity.LegacyReferrerKey); ok && legacy != "" {
			return legacy
		}
		return s.location.Referrer()
	})
}

// Session returns the current session triple
func (s *SessionService) Session() identity.Session {
	return identity.Session{
		DeviceSessionID: s.DeviceSessionID(),
		SessionReferrer: s.SessionReferrer(),
		SessionFirstURL: s.SessionFirstURL(),
	}
}

// Attribution returns the current attribution triple
func (s *SessionService) Attribution() identity.Attribution {
	return identity.Attribution{
		FirstSourceURL:   s.FirstSourceURL(),
		LastSourceURL:    s.LastSourceURL(),
		OriginalReferrer: s.OriginalReferrer(),
	}
}

// tracked is the read-through cache shared by the attribution-mode fields:
// cache, then record, then fallback; the result is written back and cached.
func (s *SessionService) tracked(key string, ttl time.Duration, fallback func() string) string {
	if !s.publicMode {
		return ""
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if v, ok := s.cache[key]; ok {
		return v
	}
	v, _ := s.records.Get(key)
	if v == "" {
		v = fallback()
	}
	if v != "" {
		s.records.Set(key, v, ttl)
	}
	s.cache[key] = v
	return v
}
