package domain

import (
	"errors"
	"strings"
	"time"
)

// Event kinds recorded in the device activity log.
const (
	EventExited            = "EXITED"
	EventVolumeMeasurement = "VOLUME_MEASUREMENT"
)

// Measurement sources.
const (
	SourceAutoExit = "auto_exit"
	SourceManual   = "manual"
)

// ErrInvalidTimestamp is returned when a timestamp string cannot be parsed.
var ErrInvalidTimestamp = errors.New("invalid timestamp")

// ActivityLogRecord is one entry of the device history feed. Every field is
// optional on the wire; consumers decide which ones they require.
type ActivityLogRecord struct {
	Event           string   `json:"event"`
	AreaID          string   `json:"areaId,omitempty"`
	AreaName        string   `json:"areaName,omitempty"`
	EntryTime       string   `json:"entryTime,omitempty"`
	ExitTime        string   `json:"exitTime,omitempty"`
	DurationSeconds *float64 `json:"durationSeconds,omitempty"`
	Timestamp       string   `json:"timestamp,omitempty"`
	Source          string   `json:"source,omitempty"`
	VolumeLiter     *float64 `json:"calculatedVolume_liter,omitempty"`
	DistanceCM      *float64 `json:"distance_cm,omitempty"`
}

// timestampLayouts are tried in order; the feed is ISO-8601 but the zone
// suffix and fractional seconds are not always present.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999Z0700",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999Z0700",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04Z0700",
	"2006-01-02T15:04",
	"2006-01-02",
}

// ParseTimestamp parses an ISO-8601 instant. Values without a zone are taken as UTC.
func ParseTimestamp(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, ErrInvalidTimestamp
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, ErrInvalidTimestamp
}
