package services

import (
	"context"
	"time"

	"github.com/AtRiskMedia/tractstack-telemetry/internal/domain/presence"
	"github.com/AtRiskMedia/tractstack-telemetry/internal/infrastructure/broadcast"
	"github.com/AtRiskMedia/tractstack-telemetry/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/tractstack-telemetry/internal/infrastructure/observability/metrics"
)

// PresenceService multicasts the browser extension presence signal. The
// channels race once; the winner is replayed to every subscriber, early or late.
type PresenceService struct {
	signal *broadcast.Once[presence.ExtensionInfo]
	logger *logging.ChanneledLogger
}

// NewPresenceService starts racing channels immediately. wait bounds the
// whole race; a race that ends without a winner leaves the signal unresolved.
func NewPresenceService(wait time.Duration, logger *logging.ChanneledLogger,
	channels ...broadcast.Channel[presence.ExtensionInfo]) *PresenceService {
	ctx, cancel := context.WithTimeout(context.Background(), wait)

	p := &PresenceService{
		signal: broadcast.Race(ctx, channels...),
		logger: logger,
	}

	p.signal.Subscribe(func(info presence.ExtensionInfo, err error) {
		cancel()
		if err != nil {
			p.logger.Presence().Warn("Extension detection failed", "error", err.Error())
			return
		}
		metrics.PresenceDetections.WithLabelValues(info.Platform).Inc()
		p.logger.Presence().Info("Extension detected", "platform", info.Platform, "version", info.Version)
	})
	return p
}

// Subscribe registers fn for the detection outcome. fn runs exactly once,
// immediately if detection already happened.
func (p *PresenceService) Subscribe(fn func(presence.ExtensionInfo, error)) {
	p.signal.Subscribe(fn)
}

// Wait blocks until detection or ctx is done
func (p *PresenceService) Wait(ctx context.Context) (presence.ExtensionInfo, error) {
	return p.signal.Wait(ctx)
}

// Detected reports the resolved extension, if any, without blocking.
func (p *PresenceService) Detected() (presence.ExtensionInfo, bool) {
	info, err, ok := p.signal.Peek()
	return info, ok && err == nil
}
