package data

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"
)

// Canonical event types. Anything the classifier does not recognize is
// stored as the lowercased vendor string, or EventUnknown when absent.
const (
	EventPersonDetected  = "person_detected"
	EventVehicleDetected = "vehicle_detected"
	EventCrowdDetected   = "crowd_detected"
	EventLoitering       = "loitering"
	EventCameraOffline   = "camera_offline"
	EventCameraOnline    = "camera_online"
	EventUnknown         = "unknown"
)

// VisitorEventTypes are the types counted toward visitor totals.
var VisitorEventTypes = []string{EventPersonDetected, EventVehicleDetected, EventCrowdDetected}

// Event is the normalized, immutable event row. TimestampIST is the UTC
// instant shifted by the fixed +5:30 offset and stored alongside the raw
// UTC value so IST calendar bucketing is a plain range comparison.
type Event struct {
	ID             int64           `json:"id"`
	EventUID       string          `json:"event_uid"`
	CameraID       string          `json:"camera_id"`
	CameraLocation string          `json:"camera_location"`
	EventType      string          `json:"event_type"`
	EventTypeRaw   string          `json:"event_type_raw,omitempty"`
	VisitorCount   int             `json:"visitor_count"`
	Confidence     *float64        `json:"confidence,omitempty"`
	ClientID       string          `json:"client_id"`
	ThumbnailURL   string          `json:"thumbnail_url,omitempty"`
	VideoURL       string          `json:"video_url,omitempty"`
	Metadata       json.RawMessage `json:"metadata,omitempty"`
	SourceID       string          `json:"source_id,omitempty"`
	TimestampUTC   time.Time       `json:"timestamp_utc"`
	TimestampIST   time.Time       `json:"timestamp_ist"`
	ReceivedAt     time.Time       `json:"received_at"`
}

// EventFilter narrows a Query. Zero values mean "no filter".
type EventFilter struct {
	ClientID  string
	EventType string
	From      *time.Time // against timestamp_ist
	To        *time.Time
	Limit     int
}

// DefaultQueryLimit caps unbounded event listings.
const DefaultQueryLimit = 200

// CameraCount is one row of the per-camera activity ranking.
type CameraCount struct {
	CameraID       string `json:"camera_id"`
	CameraLocation string `json:"camera_location"`
	Count          int    `json:"count"`
}

// EventStore is the storage abstraction for the event log. EventModel is
// the Postgres implementation; MemoryEventStore backs tests.
type EventStore interface {
	// Insert stores the event unless its event_uid already exists.
	// Returns false (and no error) for the duplicate no-op case.
	Insert(ctx context.Context, e *Event) (bool, error)
	Query(ctx context.Context, f EventFilter) ([]Event, error)
	Count(ctx context.Context) (int64, error)
	// Clear deletes all events and returns how many were removed.
	Clear(ctx context.Context) (int64, error)

	// Aggregate reads for the stats engine. An empty clientID means all
	// tenants. Ranges are half-open [fromIST, toIST) over timestamp_ist.
	SumVisitors(ctx context.Context, clientID string, fromIST, toIST time.Time) (int, error)
	CountByCamera(ctx context.Context, clientID string, fromIST, toIST time.Time) ([]CameraCount, error)
	ListByTypes(ctx context.Context, clientID string, types []string, fromIST, toIST time.Time) ([]Event, error)
}

type EventModel struct {
	DB DBTX
}

const eventColumns = `id, event_uid, camera_id, camera_location, event_type, event_type_raw,
	visitor_count, confidence, client_id, thumbnail_url, video_url, metadata, source_id,
	timestamp_utc, timestamp_ist, received_at`

func (m EventModel) Insert(ctx context.Context, e *Event) (bool, error) {
	query := `
		INSERT INTO events (
			event_uid, camera_id, camera_location, event_type, event_type_raw,
			visitor_count, confidence, client_id, thumbnail_url, video_url,
			metadata, source_id, timestamp_utc, timestamp_ist, received_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (event_uid) DO NOTHING`

	res, err := m.DB.ExecContext(ctx, query,
		e.EventUID, e.CameraID, e.CameraLocation, e.EventType, e.EventTypeRaw,
		e.VisitorCount, e.Confidence, e.ClientID, e.ThumbnailURL, e.VideoURL,
		[]byte(e.Metadata), e.SourceID, e.TimestampUTC, e.TimestampIST, e.ReceivedAt,
	)
	if err != nil {
		return false, err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}

// Query returns events newest-first. Filters are appended as parameterized
// fragments; caller-supplied strings never reach the query text.
func (m EventModel) Query(ctx context.Context, f EventFilter) ([]Event, error) {
	q := `SELECT ` + eventColumns + ` FROM events WHERE 1=1`
	var args []any
	idx := 1

	if f.ClientID != "" {
		q += fmt.Sprintf(" AND client_id = $%d", idx)
		args = append(args, f.ClientID)
		idx++
	}
	if f.EventType != "" {
		q += fmt.Sprintf(" AND event_type = $%d", idx)
		args = append(args, f.EventType)
		idx++
	}
	if f.From != nil {
		q += fmt.Sprintf(" AND timestamp_ist >= $%d", idx)
		args = append(args, *f.From)
		idx++
	}
	if f.To != nil {
		q += fmt.Sprintf(" AND timestamp_ist < $%d", idx)
		args = append(args, *f.To)
		idx++
	}

	limit := f.Limit
	if limit <= 0 {
		limit = DefaultQueryLimit
	}
	q += fmt.Sprintf(" ORDER BY timestamp_ist DESC, id DESC LIMIT $%d", idx)
	args = append(args, limit)

	rows, err := m.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

func (m EventModel) Count(ctx context.Context) (int64, error) {
	var n int64
	err := m.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM events`).Scan(&n)
	return n, err
}

func (m EventModel) Clear(ctx context.Context) (int64, error) {
	res, err := m.DB.ExecContext(ctx, `DELETE FROM events`)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (m EventModel) SumVisitors(ctx context.Context, clientID string, fromIST, toIST time.Time) (int, error) {
	query := `
		SELECT COALESCE(SUM(visitor_count), 0)
		FROM events
		WHERE ($1 = '' OR client_id = $1)
		  AND event_type = ANY($2)
		  AND timestamp_ist >= $3 AND timestamp_ist < $4`

	var sum int
	err := m.DB.QueryRowContext(ctx, query, clientID, pq.Array(VisitorEventTypes), fromIST, toIST).Scan(&sum)
	return sum, err
}

func (m EventModel) CountByCamera(ctx context.Context, clientID string, fromIST, toIST time.Time) ([]CameraCount, error) {
	query := `
		SELECT camera_id, MAX(camera_location), COUNT(*)
		FROM events
		WHERE ($1 = '' OR client_id = $1)
		  AND timestamp_ist >= $2 AND timestamp_ist < $3
		GROUP BY camera_id
		ORDER BY COUNT(*) DESC, camera_id ASC`

	rows, err := m.DB.QueryContext(ctx, query, clientID, fromIST, toIST)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var counts []CameraCount
	for rows.Next() {
		var c CameraCount
		if err := rows.Scan(&c.CameraID, &c.CameraLocation, &c.Count); err != nil {
			return nil, err
		}
		counts = append(counts, c)
	}
	return counts, rows.Err()
}

// ListByTypes returns matching events oldest-first so downtime pairing can
// walk them in order.
func (m EventModel) ListByTypes(ctx context.Context, clientID string, types []string, fromIST, toIST time.Time) ([]Event, error) {
	query := `SELECT ` + eventColumns + `
		FROM events
		WHERE ($1 = '' OR client_id = $1)
		  AND event_type = ANY($2)
		  AND timestamp_ist >= $3 AND timestamp_ist < $4
		ORDER BY timestamp_ist ASC, id ASC`

	rows, err := m.DB.QueryContext(ctx, query, clientID, pq.Array(types), fromIST, toIST)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(rs rowScanner) (Event, error) {
	var e Event
	var meta []byte
	err := rs.Scan(
		&e.ID, &e.EventUID, &e.CameraID, &e.CameraLocation, &e.EventType, &e.EventTypeRaw,
		&e.VisitorCount, &e.Confidence, &e.ClientID, &e.ThumbnailURL, &e.VideoURL,
		&meta, &e.SourceID, &e.TimestampUTC, &e.TimestampIST, &e.ReceivedAt,
	)
	if err != nil {
		return Event{}, err
	}
	if len(meta) > 0 {
		e.Metadata = json.RawMessage(meta)
	}
	return e, nil
}
