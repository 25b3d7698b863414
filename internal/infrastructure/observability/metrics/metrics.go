// Package metrics exposes Prometheus counters for identity, session and event activity.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	IdentitiesResolved = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "telemetry_identities_resolved_total",
		Help: "Identity resolutions by outcome (created, existing, migrated)",
	}, []string{"outcome"})

	SessionRenewals = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "telemetry_session_renewals_total",
		Help: "Session renewals by whether an id was obtained",
	}, []string{"ok"})

	EventsEmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "telemetry_events_emitted_total",
		Help: "Emitted events by kind and disposition (forwarded, suppressed)",
	}, []string{"kind", "disposition"})

	ForwardFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "telemetry_forward_failures_total",
		Help: "Events a transport failed to deliver",
	}, []string{"transport"})

	PresenceDetections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "telemetry_presence_detections_total",
		Help: "Browser extension detections by platform",
	}, []string{"platform"})

	QueryTriggers = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "telemetry_query_trigger_events_total",
		Help: "Events emitted from URL query markers",
	}, []string{"event"})

	PageInstances = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "telemetry_page_instances",
		Help: "Page runtimes cached for reuse across requests",
	})

	StreamClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "telemetry_stream_clients",
		Help: "Connected event stream websocket clients",
	})
)
