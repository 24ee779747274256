package data

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryEventStore is the in-memory EventStore used by tests and local
// development. Same semantics as EventModel, including uid idempotency.
type MemoryEventStore struct {
	mu     sync.RWMutex
	events []Event
	uids   map[string]struct{}
	nextID int64
}

func NewMemoryEventStore() *MemoryEventStore {
	return &MemoryEventStore{uids: make(map[string]struct{})}
}

func (s *MemoryEventStore) Insert(_ context.Context, e *Event) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.uids[e.EventUID]; exists {
		return false, nil
	}
	s.nextID++
	stored := *e
	stored.ID = s.nextID
	s.events = append(s.events, stored)
	s.uids[e.EventUID] = struct{}{}
	return true, nil
}

func (s *MemoryEventStore) Query(_ context.Context, f EventFilter) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Event
	for _, e := range s.events {
		if f.ClientID != "" && e.ClientID != f.ClientID {
			continue
		}
		if f.EventType != "" && e.EventType != f.EventType {
			continue
		}
		if f.From != nil && e.TimestampIST.Before(*f.From) {
			continue
		}
		if f.To != nil && !e.TimestampIST.Before(*f.To) {
			continue
		}
		out = append(out, e)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].TimestampIST.Equal(out[j].TimestampIST) {
			return out[i].ID > out[j].ID
		}
		return out[i].TimestampIST.After(out[j].TimestampIST)
	})

	limit := f.Limit
	if limit <= 0 {
		limit = DefaultQueryLimit
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryEventStore) Count(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.events)), nil
}

func (s *MemoryEventStore) Clear(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := int64(len(s.events))
	s.events = nil
	s.uids = make(map[string]struct{})
	return n, nil
}

func (s *MemoryEventStore) SumVisitors(_ context.Context, clientID string, fromIST, toIST time.Time) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sum := 0
	for _, e := range s.events {
		if !s.match(e, clientID, VisitorEventTypes, fromIST, toIST) {
			continue
		}
		sum += e.VisitorCount
	}
	return sum, nil
}

func (s *MemoryEventStore) CountByCamera(_ context.Context, clientID string, fromIST, toIST time.Time) ([]CameraCount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byCamera := make(map[string]*CameraCount)
	for _, e := range s.events {
		if !s.match(e, clientID, nil, fromIST, toIST) {
			continue
		}
		c, ok := byCamera[e.CameraID]
		if !ok {
			c = &CameraCount{CameraID: e.CameraID}
			byCamera[e.CameraID] = c
		}
		c.Count++
		if e.CameraLocation > c.CameraLocation {
			c.CameraLocation = e.CameraLocation
		}
	}

	counts := make([]CameraCount, 0, len(byCamera))
	for _, c := range byCamera {
		counts = append(counts, *c)
	}
	sort.Slice(counts, func(i, j int) bool {
		if counts[i].Count == counts[j].Count {
			return counts[i].CameraID < counts[j].CameraID
		}
		return counts[i].Count > counts[j].Count
	})
	return counts, nil
}

func (s *MemoryEventStore) ListByTypes(_ context.Context, clientID string, types []string, fromIST, toIST time.Time) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Event
	for _, e := range s.events {
		if !s.match(e, clientID, types, fromIST, toIST) {
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TimestampIST.Equal(out[j].TimestampIST) {
			return out[i].ID < out[j].ID
		}
		return out[i].TimestampIST.Before(out[j].TimestampIST)
	})
	return out, nil
}

func (s *MemoryEventStore) match(e Event, clientID string, types []string, fromIST, toIST time.Time) bool {
	if clientID != "" && e.ClientID != clientID {
		return false
	}
	if e.TimestampIST.Before(fromIST) || !e.TimestampIST.Before(toIST) {
		return false
	}
	if types == nil {
		return true
	}
	for _, t := range types {
		if e.EventType == t {
			return true
		}
	}
	return false
}
