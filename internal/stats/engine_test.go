package stats

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/technosupport/society-watch/internal/data"
)

// fixedNow pins "now" to 2026-02-26 10:00 UTC, i.e. 15:30 IST the same day.
var fixedNow = time.Date(2026, 2, 26, 10, 0, 0, 0, time.UTC)

func seedEvent(t *testing.T, store data.EventStore, uid, cameraID, eventType string, visitors int, tsUTC time.Time) {
	t.Helper()
	_, err := store.Insert(context.Background(), &data.Event{
		EventUID:       uid,
		CameraID:       cameraID,
		CameraLocation: "Camera " + cameraID,
		EventType:      eventType,
		VisitorCount:   visitors,
		ClientID:       "green-meadows",
		TimestampUTC:   tsUTC,
		TimestampIST:   data.ToIST(tsUTC),
		ReceivedAt:     tsUTC,
	})
	require.NoError(t, err)
}

func TestSnapshotAggregation(t *testing.T) {
	store := data.NewMemoryEventStore()
	engine := NewEngine(store, nil)
	engine.Now = func() time.Time { return fixedNow }

	// Three visitor events during the current IST day (2026-02-26 IST runs
	// from 2026-02-25 18:30 UTC to 2026-02-26 18:30 UTC).
	seedEvent(t, store, "e1", "CAM-1", data.EventPersonDetected, 1, time.Date(2026, 2, 26, 3, 0, 0, 0, time.UTC))
	seedEvent(t, store, "e2", "CAM-1", data.EventPersonDetected, 1, time.Date(2026, 2, 26, 5, 0, 0, 0, time.UTC))
	seedEvent(t, store, "e3", "CAM-2", data.EventVehicleDetected, 1, time.Date(2026, 2, 26, 9, 0, 0, 0, time.UTC))

	// One the previous IST day.
	seedEvent(t, store, "e4", "CAM-1", data.EventPersonDetected, 1, time.Date(2026, 2, 25, 6, 0, 0, 0, time.UTC))

	// Offline with no recovery: one incident, nominal 30 minutes.
	seedEvent(t, store, "e5", "CAM-2", data.EventCameraOffline, 0, time.Date(2026, 2, 26, 4, 0, 0, 0, time.UTC))

	snap, err := engine.Snapshot(context.Background(), "green-meadows")
	require.NoError(t, err)

	assert.Equal(t, 3, snap.Visitors.Today)
	assert.Equal(t, 1, snap.Visitors.Yesterday)
	assert.Equal(t, 4, snap.Visitors.Week)
	assert.EqualValues(t, 5, snap.TotalEventsStored)

	require.Len(t, snap.Downtime, 1)
	assert.Equal(t, "CAM-2", snap.Downtime[0].CameraID)
	assert.Equal(t, 1, snap.Downtime[0].Incidents)
	assert.Equal(t, 30, snap.Downtime[0].DowntimeMinutes)

	// CAM-1 has 3 events this week, CAM-2 has 2; ranking is by volume.
	require.Len(t, snap.CameraActivity, 2)
	assert.Equal(t, "CAM-1", snap.CameraActivity[0].CameraID)
	assert.Equal(t, 3, snap.CameraActivity[0].Events)
	assert.Equal(t, "CAM-2", snap.CameraActivity[1].CameraID)
	assert.Equal(t, 2, snap.CameraActivity[1].Events)
}

func TestSnapshotEmptyStore(t *testing.T) {
	engine := NewEngine(data.NewMemoryEventStore(), nil)
	engine.Now = func() time.Time { return fixedNow }

	snap, err := engine.Snapshot(context.Background(), "green-meadows")
	require.NoError(t, err)

	assert.Equal(t, 0, snap.Visitors.Today)
	assert.Equal(t, 0, snap.Visitors.Yesterday)
	assert.Equal(t, 0, snap.Visitors.Week)
	assert.Empty(t, snap.CameraActivity)
	assert.Empty(t, snap.Downtime)
	assert.EqualValues(t, 0, snap.TotalEventsStored)

	// Trend shapes are fixed regardless of data.
	assert.Len(t, snap.Trends.Hourly, 18)
	assert.Len(t, snap.Trends.Weekly, 7)
}

func TestSnapshotTenantScoping(t *testing.T) {
	store := data.NewMemoryEventStore()
	engine := NewEngine(store, nil)
	engine.Now = func() time.Time { return fixedNow }

	seedEvent(t, store, "a1", "CAM-1", data.EventPersonDetected, 1, time.Date(2026, 2, 26, 5, 0, 0, 0, time.UTC))

	_, err := store.Insert(context.Background(), &data.Event{
		EventUID:     "b1",
		CameraID:     "CAM-9",
		EventType:    data.EventPersonDetected,
		VisitorCount: 5,
		ClientID:     "other-society",
		TimestampUTC: time.Date(2026, 2, 26, 5, 0, 0, 0, time.UTC),
		TimestampIST: data.ToIST(time.Date(2026, 2, 26, 5, 0, 0, 0, time.UTC)),
	})
	require.NoError(t, err)

	snap, err := engine.Snapshot(context.Background(), "green-meadows")
	require.NoError(t, err)
	assert.Equal(t, 1, snap.Visitors.Today)

	// Empty clientID aggregates everything.
	all, err := engine.Snapshot(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, 6, all.Visitors.Today)
}

func TestHourlyTrendBuckets(t *testing.T) {
	store := data.NewMemoryEventStore()
	engine := NewEngine(store, nil)
	engine.Now = func() time.Time { return fixedNow }

	// 10:00 UTC = 15:30 IST, so this lands in today's hour-15 bucket.
	seedEvent(t, store, "h1", "CAM-1", data.EventPersonDetected, 2, time.Date(2026, 2, 26, 10, 0, 0, 0, time.UTC))
	// Same IST hour yesterday.
	seedEvent(t, store, "h2", "CAM-1", data.EventPersonDetected, 1, time.Date(2026, 2, 25, 10, 0, 0, 0, time.UTC))

	snap, err := engine.Snapshot(context.Background(), "green-meadows")
	require.NoError(t, err)

	require.Len(t, snap.Trends.Hourly, 18)
	assert.Equal(t, 5, snap.Trends.Hourly[0].Hour)
	assert.Equal(t, 22, snap.Trends.Hourly[len(snap.Trends.Hourly)-1].Hour)

	var bucket15 *HourlyBucket
	for i := range snap.Trends.Hourly {
		if snap.Trends.Hourly[i].Hour == 15 {
			bucket15 = &snap.Trends.Hourly[i]
		}
	}
	require.NotNil(t, bucket15)
	assert.Equal(t, 2, bucket15.Today)
	assert.Equal(t, 1, bucket15.Yesterday)
}

func TestWeeklyTrendOrder(t *testing.T) {
	store := data.NewMemoryEventStore()
	engine := NewEngine(store, nil)
	engine.Now = func() time.Time { return fixedNow }

	snap, err := engine.Snapshot(context.Background(), "")
	require.NoError(t, err)

	require.Len(t, snap.Trends.Weekly, 7)
	assert.Equal(t, "2026-02-20", snap.Trends.Weekly[0].Date)
	assert.Equal(t, "2026-02-26", snap.Trends.Weekly[6].Date)
	assert.Equal(t, "Thursday", snap.Trends.Weekly[6].Weekday)
}
