package ingest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/technosupport/society-watch/internal/data"
	"github.com/technosupport/society-watch/internal/metrics"
)

type failingStore struct {
	*data.MemoryEventStore
	failUID string
}

func (s *failingStore) Insert(ctx context.Context, e *data.Event) (bool, error) {
	if s.failUID != "" && e.SourceID == s.failUID {
		return false, errors.New("connection reset")
	}
	return s.MemoryEventStore.Insert(ctx, e)
}

func newTestService(store data.EventStore) *Service {
	norm := &Normalizer{
		DefaultClientID: "default",
		Now:             func() time.Time { return time.Date(2026, 2, 25, 10, 0, 0, 0, time.UTC) },
	}
	return NewService(store, norm, NewDeduper(64, 300), nil, metrics.NewCollector())
}

func TestProcessBatchMixedRecords(t *testing.T) {
	store := data.NewMemoryEventStore()
	svc := newTestService(store)

	raws := []map[string]any{
		{"deviceId": "CAM-1", "eventType": "motion", "timestamp": "2026-02-25T09:00:00Z"},
		{"deviceId": "CAM-2", "eventType": "vehicle", "timestamp": "2026-02-25T09:05:00Z"},
		{"deviceId": "CAM-3", "eventType": "motion", "timestamp": "garbage"},
	}

	res := svc.ProcessBatch(context.Background(), raws)

	assert.Equal(t, 3, res.Received)
	assert.Equal(t, 2, res.Stored)
	assert.Equal(t, 1, res.Skipped)
	assert.Equal(t, 0, res.Failed)

	n, err := store.Count(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
}

func TestProcessBatchDeduplicatesRedelivery(t *testing.T) {
	store := data.NewMemoryEventStore()
	svc := newTestService(store)

	raw := map[string]any{
		"deviceId":  "CAM-1",
		"eventType": "motion",
		"eventId":   "ev-100",
		"timestamp": "2026-02-25T09:00:00Z",
	}

	first := svc.ProcessBatch(context.Background(), []map[string]any{raw})
	assert.Equal(t, 1, first.Stored)

	// Same delivery again: the cache catches it before the store does.
	second := svc.ProcessBatch(context.Background(), []map[string]any{raw})
	assert.Equal(t, 0, second.Stored)
	assert.Equal(t, 1, second.Duplicates)

	n, _ := store.Count(context.Background())
	assert.EqualValues(t, 1, n)
}

// alwaysDuplicateStore reports every insert as a uid collision, the way
// EventModel does for ON CONFLICT DO NOTHING.
type alwaysDuplicateStore struct {
	*data.MemoryEventStore
}

func (s *alwaysDuplicateStore) Insert(_ context.Context, _ *data.Event) (bool, error) {
	return false, nil
}

func TestProcessBatchStoreIdempotency(t *testing.T) {
	store := data.NewMemoryEventStore()

	e := &data.Event{
		EventUID:     "CAM-1-ev-1-abcd1234",
		CameraID:     "CAM-1",
		EventType:    data.EventPersonDetected,
		VisitorCount: 1,
		ClientID:     "default",
		TimestampUTC: time.Now().UTC(),
		TimestampIST: data.ToIST(time.Now()),
		ReceivedAt:   time.Now().UTC(),
	}
	inserted, err := store.Insert(context.Background(), e)
	require.NoError(t, err)
	assert.True(t, inserted)

	inserted, err = store.Insert(context.Background(), e)
	require.NoError(t, err)
	assert.False(t, inserted)

	// No dedup cache: a suppressed insert is still accounted as a
	// duplicate by the pipeline.
	norm := &Normalizer{DefaultClientID: "default"}
	svc := NewService(&alwaysDuplicateStore{MemoryEventStore: store}, norm, nil, nil, metrics.NewCollector())

	res := svc.ProcessBatch(context.Background(), []map[string]any{
		{"deviceId": "CAM-1", "eventId": "ev-1", "eventType": "motion"},
	})
	assert.Equal(t, 0, res.Stored)
	assert.Equal(t, 1, res.Duplicates)
}

func TestProcessBatchInsertFailureDoesNotAbortBatch(t *testing.T) {
	store := &failingStore{MemoryEventStore: data.NewMemoryEventStore(), failUID: "ev-2"}
	svc := newTestService(store)

	raws := []map[string]any{
		{"deviceId": "CAM-1", "eventId": "ev-1", "eventType": "motion"},
		{"deviceId": "CAM-1", "eventId": "ev-2", "eventType": "motion"},
		{"deviceId": "CAM-1", "eventId": "ev-3", "eventType": "motion"},
	}

	res := svc.ProcessBatch(context.Background(), raws)
	assert.Equal(t, 2, res.Stored)
	assert.Equal(t, 1, res.Failed)
}

func TestDeduperSeenOnlyAfterMark(t *testing.T) {
	d := NewDeduper(16, 300)

	key := DedupKey("CAM-1", "ev-1")
	assert.False(t, d.Seen(key))
	// Checking never records; only Mark does.
	assert.False(t, d.Seen(key))

	d.Mark(key)
	assert.True(t, d.Seen(key))
	assert.False(t, d.Seen(DedupKey("CAM-1", "ev-2")))
}

// flakyStore fails the first N inserts, then behaves normally.
type flakyStore struct {
	*data.MemoryEventStore
	failures int
}

func (s *flakyStore) Insert(ctx context.Context, e *data.Event) (bool, error) {
	if s.failures > 0 {
		s.failures--
		return false, errors.New("connection reset")
	}
	return s.MemoryEventStore.Insert(ctx, e)
}

func TestProcessBatchRedeliveryAfterInsertFailure(t *testing.T) {
	store := &flakyStore{MemoryEventStore: data.NewMemoryEventStore(), failures: 1}
	svc := newTestService(store)

	raw := map[string]any{
		"deviceId":  "CAM-1",
		"eventType": "motion",
		"eventId":   "ev-7",
		"timestamp": "2026-02-25T09:00:00Z",
	}

	// First delivery dies at the store; the cache must not remember it.
	first := svc.ProcessBatch(context.Background(), []map[string]any{raw})
	assert.Equal(t, 1, first.Failed)
	assert.Equal(t, 0, first.Stored)

	// The vendor retries inside the TTL window and the event lands.
	second := svc.ProcessBatch(context.Background(), []map[string]any{raw})
	assert.Equal(t, 1, second.Stored)
	assert.Equal(t, 0, second.Duplicates)

	n, err := store.Count(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}
