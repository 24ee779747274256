package ingest

import (
	"strings"

	"github.com/technosupport/society-watch/internal/data"
)

// classifierRule maps vendor type substrings to a canonical event type.
type classifierRule struct {
	keywords  []string
	eventType string
}

// Ordered rule table, first match wins. The order is load-bearing:
// "disconnect" must hit the offline rule before the online rule sees
// "connect", and motion/person beats vehicle for types containing both.
var classifierRules = []classifierRule{
	{[]string{"motion", "person", "people"}, data.EventPersonDetected},
	{[]string{"vehicle", "car", "alpr"}, data.EventVehicleDetected},
	{[]string{"crowd"}, data.EventCrowdDetected},
	{[]string{"loiter"}, data.EventLoitering},
	{[]string{"offline", "disconnect"}, data.EventCameraOffline},
	{[]string{"online", "connect"}, data.EventCameraOnline},
}

// objectRules classify generic "analytic" events by their detected-object
// descriptors.
var objectRules = []classifierRule{
	{[]string{"person", "people", "face"}, data.EventPersonDetected},
	{[]string{"vehicle", "car"}, data.EventVehicleDetected},
	{[]string{"crowd"}, data.EventCrowdDetected},
}

// ClassifyEventType maps a raw vendor type string (plus any detected-object
// descriptors) to a canonical type. Unrecognized types pass through
// lowercased; a missing type is "unknown".
func ClassifyEventType(rawType string, objects []string) string {
	raw := strings.ToLower(strings.TrimSpace(rawType))
	if raw == "" {
		return data.EventUnknown
	}

	for _, rule := range classifierRules {
		for _, kw := range rule.keywords {
			if strings.Contains(raw, kw) {
				return rule.eventType
			}
		}
	}

	if strings.Contains(raw, "analytic") {
		for _, obj := range objects {
			o := strings.ToLower(obj)
			for _, rule := range objectRules {
				for _, kw := range rule.keywords {
					if strings.Contains(o, kw) {
						return rule.eventType
					}
				}
			}
		}
		return "analytic"
	}

	return raw
}

// IsVisitorType reports whether the canonical type counts toward visitor
// totals.
func IsVisitorType(eventType string) bool {
	for _, t := range data.VisitorEventTypes {
		if eventType == t {
			return true
		}
	}
	return false
}
