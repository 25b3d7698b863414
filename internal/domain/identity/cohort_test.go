package identity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCohortID(t *testing.T) {
	tests := []struct {
		name string
		now  time.Time
		want string
	}{
		{"monday is its own cohort", time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC), "2024-01-15"},
		{"sunday rolls back six days", time.Date(2024, 1, 21, 23, 59, 0, 0, time.UTC), "2024-01-15"},
		{"wednesday", time.Date(2024, 1, 17, 0, 0, 0, 0, time.UTC), "2024-01-15"},
		{"crosses a month boundary", time.Date(2024, 3, 2, 12, 0, 0, 0, time.UTC), "2024-02-26"},
		{"crosses a year boundary", time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC), "2024-12-30"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CohortID(tt.now))
		})
	}
}

func TestCohortIDUsesClockLocation(t *testing.T) {
	tz := time.FixedZone("UTC-8", -8*3600)
	// Monday 02:00 UTC is still Sunday evening eight hours west.
	now := time.Date(2024, 1, 15, 2, 0, 0, 0, time.UTC).In(tz)
	assert.Equal(t, "2024-01-08", CohortID(now))
}
