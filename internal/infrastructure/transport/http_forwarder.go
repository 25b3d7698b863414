package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/AtRiskMedia/tractstack-telemetry/internal/domain/events"
	"github.com/AtRiskMedia/tractstack-telemetry/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/tractstack-telemetry/internal/infrastructure/observability/metrics"
	"github.com/AtRiskMedia/tractstack-telemetry/internal/infrastructure/security"
)

// IdentityHeader carries the signed identity assertion
const IdentityHeader = "X-Telemetry-Identity"

// HTTPForwarder POSTs envelopes as JSON to a collector endpoint. Each send
// runs on its own goroutine, detached from the caller's context.
type HTTPForwarder struct {
	endpoint string
	secret   string
	timeout  time.Duration
	client   *http.Client
	logger   *logging.ChanneledLogger

	mu       sync.Mutex
	closed   bool
	inflight sync.WaitGroup
}

// NewHTTPForwarder creates a forwarder for endpoint. secret may be empty, in
// which case no identity header is sent.
func NewHTTPForwarder(endpoint, secret string, timeout time.Duration, logger *logging.ChanneledLogger) *HTTPForwarder {
	return &HTTPForwarder{
		endpoint: endpoint,
		secret:   secret,
		timeout:  timeout,
		client:   &http.Client{Timeout: timeout},
		logger:   logger,
	}
}

func (f *HTTPForwarder) LogEvent(_ context.Context, env *events.Envelope) {
	f.dispatch("/events", env)
}

func (f *HTTPForwarder) LogPageView(_ context.Context, env *events.Envelope) {
	f.dispatch("/pageviews", env)
}

// Close stops accepting envelopes and waits for in-flight sends. Envelopes
// logged after Close are dropped.
func (f *HTTPForwarder) Close() {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	f.inflight.Wait()
}

func (f *HTTPForwarder) dispatch(path string, env *events.Envelope) {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		metrics.ForwardFailures.WithLabelValues("http").Inc()
		f.logger.Transport().Warn("Event dropped after forwarder shutdown",
			"label", env.Record.Label,
			"envelopeId", env.ID)
		return
	}
	f.inflight.Add(1)
	f.mu.Unlock()

	go func() {
		defer f.inflight.Done()
		if err := f.send(path, env); err != nil {
			metrics.ForwardFailures.WithLabelValues("http").Inc()
			f.logger.Transport().Warn("Event forwarding failed",
				"label", env.Record.Label,
				"envelopeId", env.ID,
				"error", err.Error())
		}
	}()
}

func (f *HTTPForwarder) send(path string, env *events.Envelope) error {
	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("failed to encode envelope: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.endpoint+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	if f.secret != "" {
		token, err := security.GenerateIdentityToken(env.Identity, f.secret, time.Hour, time.Now())
		if err != nil {
			return err
		}
		req.Header.Set(IdentityHeader, token)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("collector responded %d", resp.StatusCode)
	}

	f.logger.Transport().Debug("Event forwarded", "label", env.Record.Label, "envelopeId", env.ID, "status", resp.StatusCode)
	return nil
}
