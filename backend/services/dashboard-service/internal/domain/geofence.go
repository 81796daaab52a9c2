package domain

import (
	"errors"
	"math"
	"strings"
)

// ErrInvalidGeofence wraps every geofence validation failure.
var ErrInvalidGeofence = errors.New("invalid geofence")

// Geofence is a circular zone with two radii in meters. The radii are stored
// unordered; the smaller one is the inner warning ring, the larger the outer
// alert ring.
type Geofence struct {
	ID        string  `json:"id,omitempty"`
	Name      string  `json:"nama"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Radius1   float64 `json:"radius1"`
	Radius2   float64 `json:"radius2"`
}

// InnerRadius returns the smaller radius.
func (g Geofence) InnerRadius() float64 {
	return math.Min(g.Radius1, g.Radius2)
}

// OuterRadius returns the larger radius.
func (g Geofence) OuterRadius() float64 {
	return math.Max(g.Radius1, g.Radius2)
}

// Validate checks the fields an operator can get wrong in the edit form.
func (g Geofence) Validate() error {
	var problems []string
	if strings.TrimSpace(g.Name) == "" {
		problems = append(problems, "name is required")
	}
	if math.IsNaN(g.Latitude) || g.Latitude < -90 || g.Latitude > 90 {
		problems = append(problems, "latitude must be within [-90, 90]")
	}
	if math.IsNaN(g.Longitude) || g.Longitude < -180 || g.Longitude > 180 {
		problems = append(problems, "longitude must be within [-180, 180]")
	}
	if !(g.Radius1 > 0) || !(g.Radius2 > 0) {
		problems = append(problems, "both radii must be positive")
	}
	if len(problems) == 0 {
		return nil
	}
	return &ValidationError{Problems: problems}
}

// ValidationError lists the rejected fields.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "invalid geofence: " + strings.Join(e.Problems, "; ")
}

// Unwrap lets callers match ErrInvalidGeofence.
func (e *ValidationError) Unwrap() error {
	return ErrInvalidGeofence
}

// GeofenceView is the geofence as handed to the map widget, with the ordered
// rings already resolved.
type GeofenceView struct {
	Geofence
	InnerRadius float64 `json:"innerRadius"`
	OuterRadius float64 `json:"outerRadius"`
}

// NewGeofenceView resolves the inner and outer ring.
func NewGeofenceView(g Geofence) GeofenceView {
	return GeofenceView{Geofence: g, InnerRadius: g.InnerRadius(), OuterRadius: g.OuterRadius()}
}

// AreaNames maps geofence ids to display names. Entries with an empty id or
// name are skipped.
func AreaNames(fences []Geofence) map[string]string {
	names := make(map[string]string, len(fences))
	for _, f := range fences {
		if f.ID == "" || f.Name == "" {
			continue
		}
		names[f.ID] = f.Name
	}
	return names
}
