// Package analytics provides the concrete SQL-based implementation
// for analytics event persistence.
//
// PURPOSE: Store forwarded envelopes to the event_logs table as they happen
// so they survive collector outages and can be inspected locally.
package analytics

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/AtRiskMedia/tractstack-telemetry/internal/domain/events"
	"github.com/AtRiskMedia/tractstack-telemetry/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/tractstack-telemetry/internal/infrastructure/observability/metrics"
	"github.com/AtRiskMedia/tractstack-telemetry/internal/infrastructure/persistence/database"
	"github.com/AtRiskMedia/tractstack-telemetry/internal/infrastructure/security"
	"github.com/AtRiskMedia/tractstack-telemetry/pkg/config"
)

// SQLEventRepository handles real-time envelope persistence to database.
// It satisfies events.Forwarder; inserts are synchronous but local.
type SQLEventRepository struct {
	db     *database.DB
	logger *logging.ChanneledLogger
}

// NewSQLEventRepository creates a new instance of the repository.
func NewSQLEventRepository(db *database.DB, logger *logging.ChanneledLogger) *SQLEventRepository {
	return &SQLEventRepository{
		db:     db,
		logger: logger,
	}
}

// StoredEvent is a row of event_logs
type StoredEvent struct {
	ID              string      `json:"id"`
	Kind            events.Kind `json:"kind"`
	Label           string      `json:"label"`
	Properties      string      `json:"properties,omitempty"`
	PublicArgument  string      `json:"publicArgument,omitempty"`
	AsActiveUser    bool        `json:"asActiveUser"`
	URL             string      `json:"url"`
	AnonymousID     string      `json:"anonymousId"`
	CohortID        string      `json:"cohortId,omitempty"`
	DeviceID        string      `json:"deviceId"`
	DeviceSessionID string      `json:"deviceSessionId"`
	CreatedAt       time.Time   `json:"createdAt"`
}

func (r *SQLEventRepository) LogEvent(ctx context.Context, env *events.Envelope) {
	r.store(ctx, env)
}

func (r *SQLEventRepository) LogPageView(ctx context.Context, env *events.Envelope) {
	r.store(ctx, env)
}

func (r *SQLEventRepository) store(ctx context.Context, env *events.Envelope) {
	if err := r.StoreEnvelope(ctx, env); err != nil {
		metrics.ForwardFailures.WithLabelValues("sql").Inc()
	}
}

// StoreEnvelope saves an envelope to the database.
func (r *SQLEventRepository) StoreEnvelope(ctx context.Context, env *events.Envelope) error {
	if env.ID == "" {
		env.ID = security.GenerateULID()
	}

	props, err := encodeProperties(env.Record.Properties)
	if err != nil {
		return err
	}
	public, err := encodeProperties(env.Record.PublicArgument)
	if err != nil {
		return err
	}
	params, err := encodeProperties(env.URLParameters)
	if err != nil {
		return err
	}

	const query = `
		INSERT INTO event_logs (
			id, kind, label, properties, public_argument, as_active_user, url, url_parameters,
			anonymous_id, cohort_id, device_id, device_session_id,
			first_source_url, last_source_url, original_referrer, session_referrer, session_first_url,
			user_agent_hash, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	start := time.Now()
	id := env.Identity
	_, err = r.db.ExecContext(ctx, query,
		env.ID, string(env.Kind), env.Record.Label, props, public, env.AsActiveUser, env.URL, params,
		id.AnonymousID, id.CohortID, id.DeviceID, id.DeviceSessionID,
		id.FirstSourceURL, id.LastSourceURL, id.OriginalReferrer, id.SessionReferrer, id.SessionFirstURL,
		env.UserAgentHash, env.Timestamp.UTC(),
	)
	if err != nil {
		r.logger.Database().Error("Event insert failed",
			"error", err.Error(),
			"envelopeId", env.ID,
			"label", env.Record.Label)
		return fmt.Errorf("failed to store event: %w", err)
	}

	duration := time.Since(start)
	r.logger.Database().Debug("Event insert completed",
		"envelopeId", env.ID,
		"kind", env.Kind,
		"label", env.Record.Label,
		"anonymousId", logging.MaskID(id.AnonymousID),
		"duration", duration)
	if duration > config.SlowQueryThreshold {
		r.logger.Database().Warn("Slow query detected", "query", "INSERT event_logs", "duration", duration)
	}
	return nil
}

// Recent returns the newest events first
func (r *SQLEventRepository) Recent(ctx context.Context, limit int) ([]*StoredEvent, error) {
	const query = `
		SELECT id, kind, label, COALESCE(properties, ''), COALESCE(public_argument, ''), as_active_user,
		       COALESCE(url, ''), anonymous_id, COALESCE(cohort_id, ''), device_id,
		       COALESCE(device_session_id, ''), created_at
		FROM event_logs
		ORDER BY created_at DESC, id DESC
		LIMIT ?`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var out []*StoredEvent
	for rows.Next() {
		var e StoredEvent
		var kind string
		if err := rows.Scan(&e.ID, &kind, &e.Label, &e.Properties, &e.PublicArgument, &e.AsActiveUser,
			&e.URL, &e.AnonymousID, &e.CohortID, &e.DeviceID, &e.DeviceSessionID, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		e.Kind = events.Kind(kind)
		out = append(out, &e)
	}
	return out, rows.Err()
}

// CountByLabel counts stored events with label
func (r *SQLEventRepository) CountByLabel(ctx context.Context, label string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM event_logs WHERE label = ?`, label).Scan(&n)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	return n, err
}

func encodeProperties(p *events.Properties) (any, error) {
	if p == nil {
		return nil, nil
	}
	b, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("failed to encode properties: %w", err)
	}
	return string(b), nil
}
