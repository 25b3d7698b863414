package detection

import (
	"context"
	"net/http"
	"time"

	"github.com/AtRiskMedia/tractstack-telemetry/internal/domain/presence"
	"github.com/AtRiskMedia/tractstack-telemetry/internal/infrastructure/broadcast"
)

// Headers an extension-enabled page sends in place of the DOM marker's data attributes.
const (
	PlatformHeader = "X-Extension-Platform"
	VersionHeader  = "X-Extension-Version"
)

// MarkerSource looks up the presence marker. ok is false while it is absent.
type MarkerSource interface {
	Lookup() (info presence.ExtensionInfo, ok bool)
}

// StaticSource is implemented by sources whose answer never changes after the
// first lookup. MarkerChannel does not poll them.
type StaticSource interface {
	Static() bool
}

// HeaderMarker reads the marker from the headers of the request that opened
// the page. The captured headers are immutable, so it is static.
type HeaderMarker struct {
	header http.Header
}

// NewHeaderMarker captures the headers of r
func NewHeaderMarker(r *http.Request) *HeaderMarker {
	if r == nil {
		return &HeaderMarker{header: http.Header{}}
	}
	return &HeaderMarker{header: r.Header.Clone()}
}

func (m *HeaderMarker) Lookup() (presence.ExtensionInfo, bool) {
	platform := m.header.Get(PlatformHeader)
	if platform == "" {
		return presence.ExtensionInfo{}, false
	}
	return presence.ExtensionInfo{Platform: platform, Version: m.header.Get(VersionHeader)}, true
}

func (m *HeaderMarker) Static() bool { return true }

// MarkerChannel polls source every interval until the marker appears or
// timeout elapses. Timing out withdraws the channel from the race. A static
// source that misses on the first lookup is withdrawn immediately.
func MarkerChannel(source MarkerSource, interval, timeout time.Duration) broadcast.Channel[presence.ExtensionInfo] {
	return func(ctx context.Context) (presence.ExtensionInfo, bool, error) {
		if info, ok := source.Lookup(); ok {
			return info, true, nil
		}
		if s, ok := source.(StaticSource); ok && s.Static() {
			return presence.ExtensionInfo{}, false, nil
		}

		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return presence.ExtensionInfo{}, false, nil
			case <-ticker.C:
				if info, ok := source.Lookup(); ok {
					return info, true, nil
				}
			}
		}
	}
}
