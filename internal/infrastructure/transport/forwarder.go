// Package transport ships event envelopes to backends. Every forwarder is
// best-effort: failures are logged and counted, never retried or surfaced.
package transport

import (
	"context"
	"sync"

	"github.com/AtRiskMedia/tractstack-telemetry/internal/domain/events"
)

// Multi fans an envelope out to several forwarders in order
type Multi []events.Forwarder

func (m Multi) LogEvent(ctx context.Context, env *events.Envelope) {
	for _, f := range m {
		f.LogEvent(ctx, env)
	}
}

func (m Multi) LogPageView(ctx context.Context, env *events.Envelope) {
	for _, f := range m {
		f.LogPageView(ctx, env)
	}
}

// Discard drops everything
type Discard struct{}

func (Discard) LogEvent(context.Context, *events.Envelope)    {}
func (Discard) LogPageView(context.Context, *events.Envelope) {}

// Recorder keeps envelopes in memory
type Recorder struct {
	mu        sync.Mutex
	envelopes []*events.Envelope
}

func (r *Recorder) LogEvent(_ context.Context, env *events.Envelope) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.envelopes = append(r.envelopes, env)
}

func (r *Recorder) LogPageView(_ context.Context, env *events.Envelope) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.envelopes = append(r.envelopes, env)
}

// Envelopes returns a copy of everything recorded so far
func (r *Recorder) Envelopes() []*events.Envelope {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*events.Envelope, len(r.envelopes))
	copy(out, r.envelopes)
	return out
}

// Labels returns the labels recorded so far, in order
func (r *Recorder) Labels() []string {
	var out []string
	for _, env := range r.Envelopes() {
		out = append(out, env.Record.Label)
	}
	return out
}
