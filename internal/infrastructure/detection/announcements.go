package detection

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/AtRiskMedia/tractstack-telemetry/internal/domain/presence"
	"github.com/AtRiskMedia/tractstack-telemetry/internal/infrastructure/broadcast"
)

// Announcement is the registration event payload as posted by the extension.
// Sandboxed is set by Firefox content scripts whose detail cannot be read.
type Announcement struct {
	Detail    map[string]json.RawMessage `json:"detail"`
	Sandboxed bool                       `json:"sandboxed,omitempty"`
}

// Platform implements presence.EventDetail
func (a Announcement) Platform() (string, error) { return a.read("platform") }

// Version implements presence.EventDetail
func (a Announcement) Version() (string, error) { return a.read("version") }

func (a Announcement) read(field string) (string, error) {
	if a.Sandboxed {
		return "", fmt.Errorf("reading detail.%s: %w", field, presence.ErrPermissionDenied)
	}
	raw, ok := a.Detail[field]
	if !ok {
		return "", nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", fmt.Errorf("detail.%s is not a string: %w", field, err)
	}
	return s, nil
}

// AnnouncementBus delivers registration events to the page waiting on a key.
// Each waiter is one-shot: it consumes a single announcement and unregisters.
type AnnouncementBus struct {
	mu      sync.Mutex
	waiters map[string][]chan Announcement
}

// NewAnnouncementBus creates an empty bus
func NewAnnouncementBus() *AnnouncementBus {
	return &AnnouncementBus{waiters: make(map[string][]chan Announcement)}
}

// Dispatch hands a to every page currently waiting on key and returns how many received it
func (b *AnnouncementBus) Dispatch(key string, a Announcement) int {
	b.mu.Lock()
	waiters := b.waiters[key]
	delete(b.waiters, key)
	b.mu.Unlock()

	for _, ch := range waiters {
		ch <- a
	}
	return len(waiters)
}

// Waiting reports how many pages wait on key
func (b *AnnouncementBus) Waiting(key string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.waiters[key])
}

func (b *AnnouncementBus) register(key string) chan Announcement {
	ch := make(chan Announcement, 1)
	b.mu.Lock()
	b.waiters[key] = append(b.waiters[key], ch)
	b.mu.Unlock()
	return ch
}

func (b *AnnouncementBus) unregister(key string, ch chan Announcement) {
	b.mu.Lock()
	defer b.mu.Unlock()
	waiters := b.waiters[key]
	for i, w := range waiters {
		if w == ch {
			b.waiters[key] = append(waiters[:i], waiters[i+1:]...)
			break
		}
	}
	if len(b.waiters[key]) == 0 {
		delete(b.waiters, key)
	}
}

// AnnouncementChannel waits for one announcement on key and reads it through shim.
func AnnouncementChannel(bus *AnnouncementBus, key string, shim presence.SandboxShim) broadcast.Channel[presence.ExtensionInfo] {
	return func(ctx context.Context) (presence.ExtensionInfo, bool, error) {
		ch := bus.register(key)
		defer bus.unregister(key, ch)

		select {
		case <-ctx.Done():
			return presence.ExtensionInfo{}, false, nil
		case a := <-ch:
			info, err := presence.ReadDetail(a, shim)
			if err != nil {
				return presence.ExtensionInfo{}, false, err
			}
			return info, true, nil
		}
	}
}
