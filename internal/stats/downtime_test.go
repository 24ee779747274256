package stats

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/technosupport/society-watch/internal/data"
)

func TestDowntimePairsOfflineWithRecovery(t *testing.T) {
	store := data.NewMemoryEventStore()
	engine := NewEngine(store, nil)
	engine.Now = func() time.Time { return fixedNow }

	// Offline 06:00 UTC, back at 06:45 UTC: 45 observed minutes.
	seedEvent(t, store, "d1", "CAM-1", data.EventCameraOffline, 0, time.Date(2026, 2, 26, 6, 0, 0, 0, time.UTC))
	seedEvent(t, store, "d2", "CAM-1", data.EventCameraOnline, 0, time.Date(2026, 2, 26, 6, 45, 0, 0, time.UTC))

	snap, err := engine.Snapshot(context.Background(), "green-meadows")
	require.NoError(t, err)

	require.Len(t, snap.Downtime, 1)
	assert.Equal(t, 1, snap.Downtime[0].Incidents)
	assert.Equal(t, 45, snap.Downtime[0].DowntimeMinutes)
}

func TestDowntimeMixedPairedAndUnpaired(t *testing.T) {
	store := data.NewMemoryEventStore()
	engine := NewEngine(store, nil)
	engine.Now = func() time.Time { return fixedNow }

	// First outage recovers after 20 minutes; second never does.
	seedEvent(t, store, "d1", "CAM-1", data.EventCameraOffline, 0, time.Date(2026, 2, 26, 6, 0, 0, 0, time.UTC))
	seedEvent(t, store, "d2", "CAM-1", data.EventCameraOnline, 0, time.Date(2026, 2, 26, 6, 20, 0, 0, time.UTC))
	seedEvent(t, store, "d3", "CAM-1", data.EventCameraOffline, 0, time.Date(2026, 2, 26, 8, 0, 0, 0, time.UTC))

	snap, err := engine.Snapshot(context.Background(), "green-meadows")
	require.NoError(t, err)

	require.Len(t, snap.Downtime, 1)
	assert.Equal(t, 2, snap.Downtime[0].Incidents)
	assert.Equal(t, 50, snap.Downtime[0].DowntimeMinutes) // 20 observed + 30 nominal
}

func TestDowntimeOrphanOnlineIgnored(t *testing.T) {
	store := data.NewMemoryEventStore()
	engine := NewEngine(store, nil)
	engine.Now = func() time.Time { return fixedNow }

	seedEvent(t, store, "d1", "CAM-1", data.EventCameraOnline, 0, time.Date(2026, 2, 26, 6, 0, 0, 0, time.UTC))

	snap, err := engine.Snapshot(context.Background(), "green-meadows")
	require.NoError(t, err)
	assert.Empty(t, snap.Downtime)
}

func TestDowntimeSortedWorstFirst(t *testing.T) {
	store := data.NewMemoryEventStore()
	engine := NewEngine(store, nil)
	engine.Now = func() time.Time { return fixedNow }

	// CAM-1: one unrecovered incident, 30 nominal minutes.
	seedEvent(t, store, "d1", "CAM-1", data.EventCameraOffline, 0, time.Date(2026, 2, 26, 6, 0, 0, 0, time.UTC))
	// CAM-2: 90 observed minutes.
	seedEvent(t, store, "d2", "CAM-2", data.EventCameraOffline, 0, time.Date(2026, 2, 26, 6, 0, 0, 0, time.UTC))
	seedEvent(t, store, "d3", "CAM-2", data.EventCameraOnline, 0, time.Date(2026, 2, 26, 7, 30, 0, 0, time.UTC))

	snap, err := engine.Snapshot(context.Background(), "green-meadows")
	require.NoError(t, err)

	require.Len(t, snap.Downtime, 2)
	assert.Equal(t, "CAM-2", snap.Downtime[0].CameraID)
	assert.Equal(t, 90, snap.Downtime[0].DowntimeMinutes)
	assert.Equal(t, "CAM-1", snap.Downtime[1].CameraID)
	assert.Equal(t, 30, snap.Downtime[1].DowntimeMinutes)
}
