package domain

import "time"

// Location is a position report for the tracked vehicle.
type Location struct {
	DeviceID  string    `json:"deviceId,omitempty"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Timestamp string    `json:"timestamp,omitempty"`
	Received  time.Time `json:"receivedAt"`
}

// Usable reports whether the report carries both coordinates. The device sends
// 0/0 before it has a fix.
func (l Location) Usable() bool {
	return l.Latitude != 0 && l.Longitude != 0
}

// CurrentVolume is the result of a manually triggered measurement.
type CurrentVolume struct {
	DeviceID    string  `json:"deviceId,omitempty"`
	VolumeLiter float64 `json:"calculatedVolume_liter"`
	DistanceCM  float64 `json:"distance_cm"`
	Timestamp   string  `json:"timestamp"`
}
