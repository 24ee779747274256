package data

import "time"

// ISTOffset is the fixed +5:30 shift applied to UTC. A plain offset, not a
// timezone lookup: IST has no daylight-saving rules.
const ISTOffset = 5*time.Hour + 30*time.Minute

// ToIST shifts a UTC instant into the IST frame. The result is still
// marked UTC; only the wall-clock value moves, which is exactly what the
// calendar bucketing needs.
func ToIST(t time.Time) time.Time {
	return t.UTC().Add(ISTOffset)
}
