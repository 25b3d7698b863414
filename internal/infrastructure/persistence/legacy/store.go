// Package legacy provides the flat key/value store older clients kept identity
// in. Entries are scoped by the client key those clients send with requests.
package legacy

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"time"

	"github.com/AtRiskMedia/tractstack-telemetry/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/tractstack-telemetry/internal/infrastructure/persistence/database"
)

const queryTimeout = 5 * time.Second

// SQLStore persists legacy entries in the legacy_storage table
type SQLStore struct {
	db     *database.DB
	logger *logging.ChanneledLogger
}

// NewSQLStore creates a store over an initialized database
func NewSQLStore(db *database.DB, logger *logging.ChanneledLogger) *SQLStore {
	return &SQLStore{db: db, logger: logger}
}

// Get reads a value. Errors are logged and reported as absence.
func (s *SQLStore) Get(clientKey, key string) (string, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	var value string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM legacy_storage WHERE client_key = ? AND key = ?`, clientKey, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false
	}
	if err != nil {
		s.logger.Database().Debug("Legacy storage read failed", "key", key, "error", err.Error())
		return "", false
	}
	return value, true
}

// Put writes a value, replacing any existing one
func (s *SQLStore) Put(clientKey, key, value string) error {
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO legacy_storage (client_key, key, value, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(client_key, key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		clientKey, key, value, time.Now().UTC())
	return err
}

// Remove deletes a value. Errors are logged and swallowed.
func (s *SQLStore) Remove(clientKey, key string) {
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM legacy_storage WHERE client_key = ? AND key = ?`, clientKey, key); err != nil {
		s.logger.Database().Debug("Legacy storage delete failed", "key", key, "error", err.Error())
	}
}

// MemoryStore is an in-process legacy store
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]map[string]string
}

// NewMemoryStore creates an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]map[string]string)}
}

func (m *MemoryStore) Get(clientKey, key string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.entries[clientKey][key]
	return v, ok
}

func (m *MemoryStore) Put(clientKey, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.entries[clientKey] == nil {
		m.entries[clientKey] = make(map[string]string)
	}
	m.entries[clientKey][key] = value
	return nil
}

func (m *MemoryStore) Remove(clientKey, key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries[clientKey], key)
}

// Backend is implemented by SQLStore and MemoryStore
type Backend interface {
	Get(clientKey, key string) (string, bool)
	Put(clientKey, key, value string) error
	Remove(clientKey, key string)
}

// Scoped binds a backend to one client. An empty client key yields a store
// that never holds anything.
type Scoped struct {
	backend   Backend
	clientKey string
}

// Scope returns the view of backend for clientKey
func Scope(backend Backend, clientKey string) *Scoped {
	return &Scoped{backend: backend, clientKey: clientKey}
}

func (s *Scoped) Get(key string) (string, bool) {
	if s.clientKey == "" || s.backend == nil {
		return "", false
	}
	return s.backend.Get(s.clientKey, key)
}

func (s *Scoped) Remove(key string) {
	if s.clientKey == "" || s.backend == nil {
		return
	}
	s.backend.Remove(s.clientKey, key)
}
