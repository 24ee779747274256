package report

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/technosupport/society-watch/internal/stats"
)

func TestBuildDailySummary(t *testing.T) {
	snap := &stats.Snapshot{
		Visitors: stats.Visitors{Today: 12, Yesterday: 9, Week: 70},
		CameraActivity: []stats.CameraActivity{
			{CameraID: "CAM-1", CameraName: "Main Gate", Events: 40},
		},
		Downtime: []stats.CameraDowntime{
			{CameraID: "CAM-2", CameraName: "Back Gate", Incidents: 1, DowntimeMinutes: 30},
		},
		GeneratedAtIST: time.Date(2026, 2, 26, 9, 0, 0, 0, time.UTC),
	}

	subject, body, err := BuildDailySummary("green-meadows", snap)
	require.NoError(t, err)

	assert.Contains(t, subject, "green-meadows")
	assert.Contains(t, subject, "26 Feb 2026")
	assert.Contains(t, body, "Main Gate")
	assert.Contains(t, body, "Back Gate")
	// html/template entity-escapes the plus sign in the delta label.
	assert.Contains(t, body, "&#43;3")
	assert.Contains(t, body, "<b>12</b>")
}

func TestBuildDailySummaryEmptySections(t *testing.T) {
	snap := &stats.Snapshot{
		GeneratedAtIST: time.Date(2026, 2, 26, 9, 0, 0, 0, time.UTC),
	}

	_, body, err := BuildDailySummary("green-meadows", snap)
	require.NoError(t, err)

	assert.Contains(t, body, "No camera activity recorded.")
	assert.Contains(t, body, "No downtime recorded.")
}
