package history

import (
	"fmt"
	"math"
	"time"

	"wastelog/backend/services/dashboard-service/internal/domain"
)

const placeholder = "-"

// CalendarEvent is the shape the calendar widget consumes.
type CalendarEvent struct {
	Title         string              `json:"title"`
	Start         string              `json:"start"`
	ExtendedProps domain.VisitSession `json:"extendedProps"`
	ListTitle     string              `json:"listTitle"`
	HasVolume     bool                `json:"hasVolume"`
}

// Formatter renders visit fields for display in a fixed time zone.
type Formatter struct {
	loc *time.Location
}

// NewFormatter returns a formatter for loc; nil means UTC.
func NewFormatter(loc *time.Location) Formatter {
	if loc == nil {
		loc = time.UTC
	}
	return Formatter{loc: loc}
}

// Time renders an ISO timestamp as HH:MM, or "-" when it is empty or unparseable.
func (f Formatter) Time(value string) string {
	if value == "" {
		return placeholder
	}
	t, err := domain.ParseTimestamp(value)
	if err != nil {
		return placeholder
	}
	return t.In(f.loc).Format("15:04")
}

// Duration renders seconds as whole minutes.
func (f Formatter) Duration(seconds *float64) string {
	if seconds == nil {
		return placeholder
	}
	return fmt.Sprintf("%d min", int64(math.Round(*seconds/60)))
}

// Volume renders liters with two decimals.
func (f Formatter) Volume(liters *float64) string {
	if liters == nil {
		return placeholder
	}
	return fmt.Sprintf("%.2f L", *liters)
}

// ListTitle is the single-line summary used by the list view.
func (f Formatter) ListTitle(v domain.VisitSession) string {
	return fmt.Sprintf("%s | %s - %s | Dur: %s | Vol: %s",
		v.Title, f.Time(v.EntryTime), f.Time(v.ExitTime), f.Duration(v.DurationSeconds), f.Volume(v.Volume))
}

// CalendarEvents wraps sessions for the calendar, preserving order.
func (f Formatter) CalendarEvents(sessions []domain.VisitSession) []CalendarEvent {
	events := make([]CalendarEvent, 0, len(sessions))
	for _, s := range sessions {
		events = append(events, CalendarEvent{
			Title:         s.Title,
			Start:         s.Start,
			ExtendedProps: s,
			ListTitle:     f.ListTitle(s),
			HasVolume:     s.HasVolume(),
		})
	}
	return events
}
