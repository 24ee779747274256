package stats

import (
	"context"
	"sort"
	"time"

	"github.com/technosupport/society-watch/internal/data"
)

// NominalIncidentDowntime is charged for an offline incident with no
// observed recovery inside the window.
const NominalIncidentDowntime = 30 * time.Minute

type CameraDowntime struct {
	CameraID        string `json:"camera_id"`
	CameraName      string `json:"camera_name"`
	Incidents       int    `json:"incidents"`
	DowntimeMinutes int    `json:"downtime_minutes"`
}

// downtime applies one policy: pair each camera_offline with the next
// camera_online on the same camera and charge the observed gap; unpaired
// incidents get the 30-minute nominal. Incidents is always the raw
// offline count.
func (e *Engine) downtime(ctx context.Context, clientID string, from, to time.Time) ([]CameraDowntime, error) {
	events, err := e.Store.ListByTypes(ctx, clientID,
		[]string{data.EventCameraOffline, data.EventCameraOnline}, from, to)
	if err != nil {
		return nil, err
	}

	type state struct {
		incidents int
		total     time.Duration
		open      []time.Time // offline events awaiting a recovery, FIFO
		name      string
	}
	cameras := make(map[string]*state)

	for _, ev := range events {
		st, ok := cameras[ev.CameraID]
		if !ok {
			st = &state{name: ev.CameraLocation}
			cameras[ev.CameraID] = st
		}
		switch ev.EventType {
		case data.EventCameraOffline:
			st.incidents++
			st.open = append(st.open, ev.TimestampIST)
		case data.EventCameraOnline:
			if len(st.open) > 0 {
				st.total += ev.TimestampIST.Sub(st.open[0])
				st.open = st.open[1:]
			}
		}
	}

	result := make([]CameraDowntime, 0, len(cameras))
	for id, st := range cameras {
		if st.incidents == 0 {
			continue
		}
		total := st.total + time.Duration(len(st.open))*NominalIncidentDowntime
		result = append(result, CameraDowntime{
			CameraID:        id,
			CameraName:      e.displayName(ctx, id, st.name),
			Incidents:       st.incidents,
			DowntimeMinutes: int(total / time.Minute),
		})
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].DowntimeMinutes == result[j].DowntimeMinutes {
			return result[i].CameraID < result[j].CameraID
		}
		return result[i].DowntimeMinutes > result[j].DowntimeMinutes
	})
	return result, nil
}
