package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/technosupport/society-watch/internal/data"
)

// ErrBadTimestamp marks a record whose timestamp was present but
// unparseable. Such records are skipped, never surfaced as request
// failures.
var ErrBadTimestamp = errors.New("unparseable event timestamp")

// UnknownCameraID is the sentinel when no device identifier was found.
const UnknownCameraID = "UNKNOWN"

// TenantResolver maps a vendor integration hint to a society code.
type TenantResolver interface {
	ResolveTenantCode(ctx context.Context, hint string) (string, error)
}

// CameraNameResolver maps a device id to a registered display name.
type CameraNameResolver interface {
	ResolveCameraName(ctx context.Context, deviceID string) (string, error)
}

// Normalizer turns one loosely-typed vendor payload into a canonical
// Event. Registry lookups are best-effort reads; the only way a record
// dies is a timestamp that fails to parse.
type Normalizer struct {
	Tenants         TenantResolver
	Cameras         CameraNameResolver
	DefaultClientID string

	// Now is swappable for tests; defaults to time.Now.
	Now func() time.Time
}

// Field vocabularies across the vendor integrations we have seen. Order
// matters: the more specific spelling of each integration comes first.
var (
	cameraKeys = []string{"deviceId", "device_id", "cameraId", "camera_id", "channelId", "channel_id"}
	typeKeys   = []string{"eventType", "event_type", "type", "alertType", "alert_type"}
	timeKeys   = []string{"data.startTimeUtc", "data.timestamp", "startTimeUtc", "timestampUtc", "timestamp_utc", "timestamp", "eventTime", "time"}
	idKeys     = []string{"eventId", "event_id", "alertId", "alert_id", "id", "uuid"}
	clientKeys = []string{"clientId", "client_id", "societyCode", "society_code", "siteId", "site_id", "integrationId", "integration_id"}
	confKeys   = []string{"confidence", "score"}
	thumbKeys  = []string{"thumbnailUrl", "thumbnail_url", "imageUrl", "image_url", "snapshotUrl", "snapshot_url"}
	videoKeys  = []string{"videoUrl", "video_url", "clipUrl", "clip_url"}
	objectKeys = []string{"objects", "detectedObjects", "detected_objects", "data.objects"}
)

var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Normalize maps one raw payload to an Event. Returns ErrBadTimestamp when
// the record must be skipped; every other malformed field degrades to a
// fallback value instead of failing.
func (n *Normalizer) Normalize(ctx context.Context, raw map[string]any) (*data.Event, error) {
	now := time.Now
	if n.Now != nil {
		now = n.Now
	}
	receivedAt := now().UTC()

	cameraID := firstString(raw, cameraKeys)
	if cameraID == "" {
		cameraID = UnknownCameraID
	}

	rawType := firstString(raw, typeKeys)
	objects := extractObjects(raw)
	eventType := ClassifyEventType(rawType, objects)

	tsUTC := receivedAt
	if v, ok := firstValue(raw, timeKeys); ok {
		parsed, ok := parseTimestamp(v)
		if !ok {
			return nil, ErrBadTimestamp
		}
		tsUTC = parsed.UTC()
	}

	clientID := n.resolveClient(ctx, firstString(raw, clientKeys))
	location := n.resolveLocation(ctx, cameraID)

	sourceID := firstString(raw, idKeys)

	e := &data.Event{
		EventUID:       deriveEventUID(cameraID, sourceID, receivedAt),
		CameraID:       cameraID,
		CameraLocation: location,
		EventType:      eventType,
		EventTypeRaw:   rawType,
		VisitorCount:   visitorCount(eventType, objects),
		Confidence:     extractConfidence(raw),
		ClientID:       clientID,
		ThumbnailURL:   firstString(raw, thumbKeys),
		VideoURL:       firstString(raw, videoKeys),
		SourceID:       sourceID,
		TimestampUTC:   tsUTC,
		TimestampIST:   data.ToIST(tsUTC),
		ReceivedAt:     receivedAt,
	}

	// Full payload kept for forensic lookup.
	if meta, err := json.Marshal(raw); err == nil {
		e.Metadata = meta
	}

	return e, nil
}

func (n *Normalizer) resolveClient(ctx context.Context, hint string) string {
	if hint == "" {
		return n.DefaultClientID
	}
	if n.Tenants != nil {
		if code, err := n.Tenants.ResolveTenantCode(ctx, hint); err == nil {
			return code
		}
	}
	// Unmapped hints ride along literally; the dashboard surfaces them.
	return hint
}

func (n *Normalizer) resolveLocation(ctx context.Context, cameraID string) string {
	if n.Cameras != nil {
		if name, err := n.Cameras.ResolveCameraName(ctx, cameraID); err == nil && name != "" {
			return name
		}
	}
	return "Camera " + cameraID
}

// deriveEventUID builds a practically-unique id: camera + vendor event id
// (or receipt nanos when the vendor sent none) + a short random suffix.
// The store's unique constraint is the authoritative dedupe, not this id.
func deriveEventUID(cameraID, sourceID string, receivedAt time.Time) string {
	mid := sourceID
	if mid == "" {
		mid = strconv.FormatInt(receivedAt.UnixNano(), 10)
	}
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("%s-%s-%s", cameraID, mid, suffix)
}

func visitorCount(eventType string, objects []string) int {
	if !IsVisitorType(eventType) {
		return 0
	}
	count := 0
	for _, obj := range objects {
		o := strings.ToLower(obj)
		if strings.Contains(o, "person") || strings.Contains(o, "people") || strings.Contains(o, "face") {
			count++
		}
	}
	if count == 0 {
		count = 1
	}
	return count
}

// --- loose payload plumbing ---

// lookup walks dotted paths ("data.startTimeUtc") through nested maps.
func lookup(raw map[string]any, key string) (any, bool) {
	parts := strings.Split(key, ".")
	var cur any = raw
	for _, p := range parts {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[p]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

func firstValue(raw map[string]any, keys []string) (any, bool) {
	for _, k := range keys {
		if v, ok := lookup(raw, k); ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

func firstString(raw map[string]any, keys []string) string {
	v, ok := firstValue(raw, keys)
	if !ok {
		return ""
	}
	switch s := v.(type) {
	case string:
		return strings.TrimSpace(s)
	case float64:
		// JSON numbers used as identifiers ("clientId": 12).
		if s == math.Trunc(s) {
			return strconv.FormatInt(int64(s), 10)
		}
		return strconv.FormatFloat(s, 'f', -1, 64)
	}
	return ""
}

func extractConfidence(raw map[string]any) *float64 {
	v, ok := firstValue(raw, confKeys)
	if !ok {
		return nil
	}
	var f float64
	switch c := v.(type) {
	case float64:
		f = c
	case string:
		parsed, err := strconv.ParseFloat(c, 64)
		if err != nil {
			return nil
		}
		f = parsed
	default:
		return nil
	}
	if f < 0 || f > 1 {
		return nil
	}
	return &f
}

// extractObjects flattens a vendor detected-object list into descriptor
// strings, accepting both bare strings and {"type": "..."} maps.
func extractObjects(raw map[string]any) []string {
	v, ok := firstValue(raw, objectKeys)
	if !ok {
		return nil
	}
	list, ok := v.([]any)
	if !ok {
		return nil
	}
	var out []string
	for _, item := range list {
		switch o := item.(type) {
		case string:
			out = append(out, o)
		case map[string]any:
			for _, k := range []string{"type", "class", "label", "name"} {
				if s, ok := o[k].(string); ok && s != "" {
					out = append(out, s)
					break
				}
			}
		}
	}
	return out
}

// parseTimestamp accepts RFC3339 and common layouts, plus epoch seconds or
// milliseconds as JSON numbers or numeric strings.
func parseTimestamp(v any) (time.Time, bool) {
	switch t := v.(type) {
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return time.Time{}, false
		}
		for _, layout := range timestampLayouts {
			if parsed, err := time.Parse(layout, s); err == nil {
				return parsed, true
			}
		}
		if epoch, err := strconv.ParseInt(s, 10, 64); err == nil {
			return fromEpoch(epoch), true
		}
		return time.Time{}, false
	case float64:
		if t <= 0 {
			return time.Time{}, false
		}
		return fromEpoch(int64(t)), true
	case json.Number:
		epoch, err := t.Int64()
		if err != nil || epoch <= 0 {
			return time.Time{}, false
		}
		return fromEpoch(epoch), true
	}
	return time.Time{}, false
}

// fromEpoch treats values above 1e12 as milliseconds; everything else as
// seconds.
func fromEpoch(epoch int64) time.Time {
	if epoch > 1_000_000_000_000 {
		return time.Unix(0, epoch*int64(time.Millisecond))
	}
	return time.Unix(epoch, 0)
}
