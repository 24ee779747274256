package report

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/technosupport/society-watch/internal/stats"
)

var summaryTmpl = template.Must(template.New("daily").Parse(`
<h2>Daily Security Summary — {{.SocietyCode}}</h2>
<p>{{.Date}}</p>
<p>
  Visitors today: <b>{{.Snap.Visitors.Today}}</b>
  ({{.DeltaLabel}} vs yesterday's {{.Snap.Visitors.Yesterday}}).
  Last 7 days: {{.Snap.Visitors.Week}}.
</p>

<h3>Camera Activity (7 days)</h3>
{{if .Snap.CameraActivity}}
<table border="1" cellpadding="4" cellspacing="0">
  <tr><th>Camera</th><th>Events</th></tr>
  {{range .Snap.CameraActivity}}
  <tr><td>{{.CameraName}}</td><td>{{.Events}}</td></tr>
  {{end}}
</table>
{{else}}
<p>No camera activity recorded.</p>
{{end}}

<h3>Downtime (7 days)</h3>
{{if .Snap.Downtime}}
<table border="1" cellpadding="4" cellspacing="0">
  <tr><th>Camera</th><th>Incidents</th><th>Downtime (min)</th></tr>
  {{range .Snap.Downtime}}
  <tr><td>{{.CameraName}}</td><td>{{.Incidents}}</td><td>{{.DowntimeMinutes}}</td></tr>
  {{end}}
</table>
{{else}}
<p>No downtime recorded.</p>
{{end}}
`))

// BuildDailySummary renders the email for one society's snapshot.
func BuildDailySummary(societyCode string, snap *stats.Snapshot) (subject, htmlBody string, err error) {
	date := snap.GeneratedAtIST.Format("Monday, 02 Jan 2006")
	subject = fmt.Sprintf("Daily Summary %s — %s", societyCode, snap.GeneratedAtIST.Format("02 Jan 2006"))

	delta := snap.Visitors.Today - snap.Visitors.Yesterday
	deltaLabel := fmt.Sprintf("+%d", delta)
	if delta < 0 {
		deltaLabel = fmt.Sprintf("%d", delta)
	}

	var buf bytes.Buffer
	err = summaryTmpl.Execute(&buf, struct {
		SocietyCode string
		Date        string
		DeltaLabel  string
		Snap        *stats.Snapshot
	}{societyCode, date, deltaLabel, snap})
	if err != nil {
		return "", "", err
	}
	return subject, buf.String(), nil
}
