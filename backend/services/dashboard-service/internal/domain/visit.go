package domain

import "time"

// VisitSession is one stay inside a geofence, rebuilt from the activity log.
// Volume and Distance stay nil until an automatic exit measurement is attached.
type VisitSession struct {
	Start           string   `json:"start"`
	Title           string   `json:"title"`
	EntryTime       string   `json:"entryTime"`
	ExitTime        string   `json:"exitTime,omitempty"`
	DurationSeconds *float64 `json:"durationSeconds"`
	AreaID          string   `json:"areaId"`
	Volume          *float64 `json:"volume"`
	Distance        *float64 `json:"distance"`
}

// HasVolume reports whether a measurement was attached.
func (v VisitSession) HasVolume() bool {
	return v.Volume != nil
}

// CalendarSnapshot is one complete reconciliation result for a device.
type CalendarSnapshot struct {
	DeviceID    string         `json:"deviceId"`
	GeneratedAt time.Time      `json:"generatedAt"`
	Sessions    []VisitSession `json:"sessions"`
}
