package ingest

import (
	"context"
	"errors"
	"log"

	"github.com/technosupport/society-watch/internal/data"
	"github.com/technosupport/society-watch/internal/metrics"
)

// Service drives a webhook batch through normalize -> dedup -> store.
// Records are independent: one skip or failed insert never aborts the
// rest of the batch.
type Service struct {
	store   data.EventStore
	norm    *Normalizer
	dedup   *Deduper
	pub     Publisher
	metrics *metrics.Collector
}

func NewService(store data.EventStore, norm *Normalizer, dedup *Deduper, pub Publisher, m *metrics.Collector) *Service {
	return &Service{
		store:   store,
		norm:    norm,
		dedup:   dedup,
		pub:     pub,
		metrics: m,
	}
}

// BatchResult accounts for every record in one delivery.
type BatchResult struct {
	Received   int `json:"received"`
	Stored     int `json:"stored"`
	Skipped    int `json:"skipped"`
	Duplicates int `json:"duplicates"`
	Failed     int `json:"failed"`
}

// ProcessBatch handles one webhook delivery (single object deliveries
// arrive as a one-element slice).
func (s *Service) ProcessBatch(ctx context.Context, raws []map[string]any) BatchResult {
	res := BatchResult{Received: len(raws)}
	s.metrics.EventsReceived.Add(float64(len(raws)))

	for _, raw := range raws {
		e, err := s.norm.Normalize(ctx, raw)
		if err != nil {
			if errors.Is(err, ErrBadTimestamp) {
				res.Skipped++
				s.metrics.EventsSkipped.WithLabelValues("bad_timestamp").Inc()
				continue
			}
			// Normalize has no other failure mode today; counted anyway
			// so a future one cannot disappear silently.
			res.Skipped++
			s.metrics.EventsSkipped.WithLabelValues("normalize").Inc()
			continue
		}

		dedupKey := ""
		if s.dedup != nil && e.SourceID != "" {
			dedupKey = DedupKey(e.CameraID, e.SourceID)
			if s.dedup.Seen(dedupKey) {
				res.Duplicates++
				s.metrics.EventsDuplicate.Inc()
				continue
			}
		}

		inserted, err := s.store.Insert(ctx, e)
		if err != nil {
			// Key stays unmarked so a vendor redelivery can retry.
			log.Printf("[ingest] insert failed uid=%s camera=%s: %v", e.EventUID, e.CameraID, err)
			res.Failed++
			continue
		}
		if dedupKey != "" {
			s.dedup.Mark(dedupKey)
		}
		if !inserted {
			res.Duplicates++
			s.metrics.EventsDuplicate.Inc()
			continue
		}

		res.Stored++
		s.metrics.EventsStored.Inc()

		if s.pub != nil {
			if err := s.pub.Publish(e); err != nil {
				// Fan-out is best effort; the event is already durable.
				log.Printf("[ingest] publish failed uid=%s: %v", e.EventUID, err)
				s.metrics.PublishFailures.Inc()
			}
		}
	}

	return res
}
