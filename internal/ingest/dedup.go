package ingest

import (
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Deduper is a best-effort pre-store duplicate filter for webhook
// redeliveries. The store's unique constraint on event_uid remains the
// authoritative boundary; this just saves the round trip for hot retries.
type Deduper struct {
	cache *lru.Cache[string, time.Time]
	ttl   time.Duration
}

func NewDeduper(maxKeys, ttlSeconds int) *Deduper {
	if maxKeys <= 0 {
		maxKeys = 4096
	}
	if ttlSeconds <= 0 {
		ttlSeconds = 300
	}
	c, _ := lru.New[string, time.Time](maxKeys)
	return &Deduper{
		cache: c,
		ttl:   time.Duration(ttlSeconds) * time.Second,
	}
}

// Seen reports whether the key was recorded inside the TTL window. It
// never records the key itself: callers Mark only after the event is
// durably stored, so a failed insert leaves the retry path open.
func (d *Deduper) Seen(key string) bool {
	if addedAt, ok := d.cache.Get(key); ok {
		if time.Since(addedAt) < d.ttl {
			return true
		}
	}
	return false
}

// Mark records the key once the store has accepted (or already held) the
// event.
func (d *Deduper) Mark(key string) {
	d.cache.Add(key, time.Now())
}

// DedupKey identifies a redelivery: same camera, same vendor event id.
// Only meaningful when the vendor sent an id; callers skip the filter
// otherwise.
func DedupKey(cameraID, sourceID string) string {
	return fmt.Sprintf("%s|%s", cameraID, sourceID)
}
