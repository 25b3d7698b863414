package services

import (
	"fmt"
	"sync"
	"time"

	"github.com/AtRiskMedia/tractstack-telemetry/internal/domain/page"
	"github.com/AtRiskMedia/tractstack-telemetry/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/tractstack-telemetry/internal/infrastructure/persistence/cookies"
	"github.com/AtRiskMedia/tractstack-telemetry/internal/infrastructure/persistence/legacy"
	"github.com/AtRiskMedia/tractstack-telemetry/internal/infrastructure/transport"
)

// 2024-05-01 is a Wednesday
var wednesday = time.Date(2024, 5, 1, 15, 30, 0, 0, time.UTC)

var testTTLs = RecordTTLs{LongLived: 365 * 24 * time.Hour, Session: 30 * time.Minute}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type idSequence struct {
	mu sync.Mutex
	n  int
}

func (s *idSequence) Next() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n++
	return fmt.Sprintf("generated-id-%04d", s.n)
}

type fixture struct {
	clock     *testClock
	ids       *idSequence
	records   *cookies.MemoryStore
	legacy    *legacy.MemoryStore
	recorder  *transport.Recorder
	logger    *logging.ChanneledLogger
	clientKey string
}

func newFixture() *fixture {
	clock := &testClock{now: wednesday}
	return &fixture{
		clock:     clock,
		ids:       &idSequence{},
		records:   cookies.NewMemoryStore(clock.Now),
		legacy:    legacy.NewMemoryStore(),
		recorder:  &transport.Recorder{},
		logger:    logging.NewDiscardLogger(),
		clientKey: "legacy-client",
	}
}

func (f *fixture) identityService() *IdentityService {
	return NewIdentityService(f.records, legacy.Scope(f.legacy, f.clientKey), testTTLs, f.clock.Now, f.ids.Next, f.logger)
}

func (f *fixture) factory(publicMode bool) *PageFactory {
	return NewPageFactory(PageOptions{
		PublicMode:   publicMode,
		TTLs:         testTTLs,
		PresenceWait: time.Second,
		Now:          f.clock.Now,
		NewID:        f.ids.Next,
	}, f.recorder, NewQueryTrigger(f.logger), nil, f.logger)
}

func (f *fixture) open(publicMode bool, href string, automated bool) *PageRuntime {
	return f.factory(publicMode).Open(PageDeps{
		Records:   f.records,
		Legacy:    legacy.Scope(f.legacy, f.clientKey),
		Location:  page.NewLocation(href, "https://referrer.example/"),
		UserAgent: "Mozilla/5.0 Test",
		Automated: automated,
	})
}
