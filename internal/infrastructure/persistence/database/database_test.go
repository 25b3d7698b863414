package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateSchemaIsIdempotent(t *testing.T) {
	db, err := NewConnection("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, db.CreateSchema())
	require.NoError(t, db.CreateSchema())

	var count int
	err = db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name IN ('legacy_storage', 'event_logs')`).Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestNewConnectionUnknownDriver(t *testing.T) {
	_, err := NewConnection("nope", "whatever")
	assert.Error(t, err)
}
