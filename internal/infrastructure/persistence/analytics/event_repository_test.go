package analytics

import (
	"context"
	"testing"
	"time"

	"github.com/AtRiskMedia/tractstack-telemetry/internal/domain/events"
	"github.com/AtRiskMedia/tractstack-telemetry/internal/domain/identity"
	"github.com/AtRiskMedia/tractstack-telemetry/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/tractstack-telemetry/internal/infrastructure/persistence/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestRepository(t *testing.T) *SQLEventRepository {
	t.Helper()
	db, err := database.NewConnection("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.CreateSchema())
	return NewSQLEventRepository(db, logging.NewDiscardLogger())
}

func TestStoreAndReadBack(t *testing.T) {
	repo := openTestRepository(t)
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	snap := identity.Snapshot{AnonymousID: "anon-1", CohortID: "2024-04-29", DeviceID: "anon-1"}
	snap.DeviceSessionID = "anon-1"

	repo.LogEvent(ctx, &events.Envelope{
		Kind:      events.KindAction,
		Record:    events.EventRecord{Label: "SignUpCompleted", Properties: events.NewProperties("serviceType", "github"), PublicArgument: events.NewProperties("serviceType", "github")},
		URL:       "https://example.com/x",
		Identity:  snap,
		Timestamp: base,
	})
	repo.LogPageView(ctx, &events.Envelope{
		Kind:         events.KindPageView,
		Record:       events.EventRecord{Label: "HomeViewed"},
		AsActiveUser: true,
		Identity:     snap,
		Timestamp:    base.Add(time.Second),
	})

	stored, err := repo.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, stored, 2)

	assert.Equal(t, "HomeViewed", stored[0].Label)
	assert.Equal(t, events.KindPageView, stored[0].Kind)
	assert.True(t, stored[0].AsActiveUser)
	assert.Empty(t, stored[0].Properties)

	assert.Equal(t, "SignUpCompleted", stored[1].Label)
	assert.Equal(t, `{"serviceType":"github"}`, stored[1].Properties)
	assert.Equal(t, "2024-04-29", stored[1].CohortID)
	assert.Equal(t, "anon-1", stored[1].DeviceSessionID)
	assert.NotEmpty(t, stored[1].ID)

	n, err := repo.CountByLabel(ctx, "SignUpCompleted")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
