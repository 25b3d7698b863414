package database

import "fmt"

var tables = []string{
	`CREATE TABLE IF NOT EXISTS legacy_storage (
		client_key TEXT NOT NULL,
		key TEXT NOT NULL,
		value TEXT NOT NULL,
		updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (client_key, key)
	)`,
	`CREATE TABLE IF NOT EXISTS event_logs (
		id TEXT PRIMARY KEY,
		kind TEXT NOT NULL,
		label TEXT NOT NULL,
		properties TEXT,
		public_argument TEXT,
		as_active_user INTEGER NOT NULL DEFAULT 0,
		url TEXT,
		url_parameters TEXT,
		anonymous_id TEXT NOT NULL,
		cohort_id TEXT,
		device_id TEXT NOT NULL,
		device_session_id TEXT,
		first_source_url TEXT,
		last_source_url TEXT,
		original_referrer TEXT,
		session_referrer TEXT,
		session_first_url TEXT,
		user_agent_hash TEXT,
		created_at TIMESTAMP NOT NULL
	)`,
}

var indexes = []string{
	`CREATE INDEX IF NOT EXISTS idx_event_logs_anonymous_id ON event_logs(anonymous_id)`,
	`CREATE INDEX IF NOT EXISTS idx_event_logs_created_at ON event_logs(created_at)`,
}

// CreateSchema builds every table and index. Safe to run on each startup.
func (db *DB) CreateSchema() error {
	for _, tableSQL := range tables {
		if _, err := db.Exec(tableSQL); err != nil {
			return fmt.Errorf("failed to create table for query [%s]: %w", tableSQL, err)
		}
	}

	for _, indexSQL := range indexes {
		if _, err := db.Exec(indexSQL); err != nil {
			return fmt.Errorf("failed to create index for query [%s]: %w", indexSQL, err)
		}
	}
	return nil
}
