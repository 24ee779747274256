package stats

import (
	"context"
	"fmt"
	"time"

	"github.com/technosupport/society-watch/internal/data"
	"github.com/technosupport/society-watch/internal/ingest"
)

// Hourly trend range: 05:00 through 22:00 IST inclusive, 18 buckets.
const (
	trendHourFirst = 5
	trendHourLast  = 22
)

// Engine computes the dashboard snapshot from the event store. Reads
// only; the several queries composing one snapshot are not atomic with
// respect to concurrent ingestion, which is acceptable for counters.
type Engine struct {
	Store   data.EventStore
	Cameras ingest.CameraNameResolver // optional, for display names

	// Now is swappable for tests; defaults to time.Now.
	Now func() time.Time
}

func NewEngine(store data.EventStore, cameras ingest.CameraNameResolver) *Engine {
	return &Engine{Store: store, Cameras: cameras}
}

type Visitors struct {
	Today     int `json:"today"`
	Yesterday int `json:"yesterday"`
	Week      int `json:"week"`
}

type CameraActivity struct {
	CameraID   string `json:"camera_id"`
	CameraName string `json:"camera_name"`
	Events     int    `json:"events"`
}

type HourlyBucket struct {
	Hour      int `json:"hour"`
	Today     int `json:"today"`
	Yesterday int `json:"yesterday"`
}

type DailyBucket struct {
	Date     string `json:"date"`
	Weekday  string `json:"weekday"`
	Visitors int    `json:"visitors"`
}

type Trends struct {
	Hourly []HourlyBucket `json:"hourly"`
	Weekly []DailyBucket  `json:"weekly"`
}

type Snapshot struct {
	Visitors          Visitors         `json:"visitors"`
	CameraActivity    []CameraActivity `json:"camera_activity"`
	Downtime          []CameraDowntime `json:"downtime"`
	Trends            Trends           `json:"trends"`
	TotalEventsStored int64            `json:"total_events_stored"`
	GeneratedAtIST    time.Time        `json:"generated_at_ist"`
}

// Snapshot computes all windows for one tenant, or across all tenants
// when clientID is empty. Windows are IST calendar boundaries: an event at
// 19:00 UTC belongs to the *next* IST day.
func (e *Engine) Snapshot(ctx context.Context, clientID string) (*Snapshot, error) {
	now := time.Now
	if e.Now != nil {
		now = e.Now
	}
	nowIST := data.ToIST(now())
	todayStart := dayStart(nowIST)
	tomorrowStart := todayStart.Add(24 * time.Hour)
	yesterdayStart := todayStart.Add(-24 * time.Hour)
	weekStart := todayStart.Add(-6 * 24 * time.Hour)

	snap := &Snapshot{GeneratedAtIST: nowIST}

	var err error
	if snap.Visitors.Today, err = e.Store.SumVisitors(ctx, clientID, todayStart, tomorrowStart); err != nil {
		return nil, fmt.Errorf("visitors today: %w", err)
	}
	if snap.Visitors.Yesterday, err = e.Store.SumVisitors(ctx, clientID, yesterdayStart, todayStart); err != nil {
		return nil, fmt.Errorf("visitors yesterday: %w", err)
	}
	if snap.Visitors.Week, err = e.Store.SumVisitors(ctx, clientID, weekStart, tomorrowStart); err != nil {
		return nil, fmt.Errorf("visitors week: %w", err)
	}

	if snap.CameraActivity, err = e.cameraActivity(ctx, clientID, weekStart, tomorrowStart); err != nil {
		return nil, fmt.Errorf("camera activity: %w", err)
	}

	if snap.Downtime, err = e.downtime(ctx, clientID, weekStart, tomorrowStart); err != nil {
		return nil, fmt.Errorf("downtime: %w", err)
	}

	if snap.Trends.Hourly, err = e.hourlyTrend(ctx, clientID, todayStart); err != nil {
		return nil, fmt.Errorf("hourly trend: %w", err)
	}
	if snap.Trends.Weekly, err = e.weeklyTrend(ctx, clientID, todayStart); err != nil {
		return nil, fmt.Errorf("weekly trend: %w", err)
	}

	// Diagnostic, deliberately unfiltered.
	if snap.TotalEventsStored, err = e.Store.Count(ctx); err != nil {
		return nil, fmt.Errorf("total events: %w", err)
	}

	return snap, nil
}

func (e *Engine) cameraActivity(ctx context.Context, clientID string, from, to time.Time) ([]CameraActivity, error) {
	counts, err := e.Store.CountByCamera(ctx, clientID, from, to)
	if err != nil {
		return nil, err
	}
	activity := make([]CameraActivity, 0, len(counts))
	for _, c := range counts {
		activity = append(activity, CameraActivity{
			CameraID:   c.CameraID,
			CameraName: e.displayName(ctx, c.CameraID, c.CameraLocation),
			Events:     c.Count,
		})
	}
	return activity, nil
}

func (e *Engine) hourlyTrend(ctx context.Context, clientID string, todayStart time.Time) ([]HourlyBucket, error) {
	// One query per bucket. Fine at this event volume; the store indexes
	// (client_id, timestamp_ist).
	buckets := make([]HourlyBucket, 0, trendHourLast-trendHourFirst+1)
	for h := trendHourFirst; h <= trendHourLast; h++ {
		from := todayStart.Add(time.Duration(h) * time.Hour)
		to := from.Add(time.Hour)

		today, err := e.Store.SumVisitors(ctx, clientID, from, to)
		if err != nil {
			return nil, err
		}
		yesterday, err := e.Store.SumVisitors(ctx, clientID, from.Add(-24*time.Hour), to.Add(-24*time.Hour))
		if err != nil {
			return nil, err
		}
		buckets = append(buckets, HourlyBucket{Hour: h, Today: today, Yesterday: yesterday})
	}
	return buckets, nil
}

func (e *Engine) weeklyTrend(ctx context.Context, clientID string, todayStart time.Time) ([]DailyBucket, error) {
	buckets := make([]DailyBucket, 0, 7)
	for i := 6; i >= 0; i-- {
		from := todayStart.Add(-time.Duration(i) * 24 * time.Hour)
		to := from.Add(24 * time.Hour)

		sum, err := e.Store.SumVisitors(ctx, clientID, from, to)
		if err != nil {
			return nil, err
		}
		buckets = append(buckets, DailyBucket{
			Date:     from.Format("2006-01-02"),
			Weekday:  from.Weekday().String(),
			Visitors: sum,
		})
	}
	return buckets, nil
}

func (e *Engine) displayName(ctx context.Context, cameraID, fallback string) string {
	if e.Cameras != nil {
		if name, err := e.Cameras.ResolveCameraName(ctx, cameraID); err == nil && name != "" {
			return name
		}
	}
	if fallback != "" {
		return fallback
	}
	return "Camera " + cameraID
}

// dayStart truncates an IST-frame instant to its calendar date.
func dayStart(istTime time.Time) time.Time {
	y, m, d := istTime.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
