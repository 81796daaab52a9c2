package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestGeofenceRingsAreOrdered(t *testing.T) {
	g := Geofence{Radius1: 150, Radius2: 50}
	require.Equal(t, 50.0, g.InnerRadius())
	require.Equal(t, 150.0, g.OuterRadius())

	view := NewGeofenceView(g)
	require.Equal(t, 50.0, view.InnerRadius)
	require.Equal(t, 150.0, view.OuterRadius)
}

func TestGeofenceValidate(t *testing.T) {
	valid := Geofence{Name: "TPS Pasar", Latitude: -7.41, Longitude: 109.37, Radius1: 30, Radius2: 80}
	require.NoError(t, valid.Validate())

	bad := Geofence{Name: " ", Latitude: 91, Longitude: -181, Radius1: 0, Radius2: 10}
	err := bad.Validate()
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrInvalidGeofence))

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	require.Len(t, verr.Problems, 4)
}

func TestAreaNamesSkipsIncompleteEntries(t *testing.T) {
	names := AreaNames([]Geofence{
		{ID: "A1", Name: "Depo"},
		{ID: "", Name: "Orphan"},
		{ID: "A2"},
	})
	require.Equal(t, map[string]string{"A1": "Depo"}, names)
}

func TestParseTimestamp(t *testing.T) {
	cases := map[string]time.Time{
		"2024-01-01T08:00:00Z":         time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC),
		"2024-01-01T15:00:00+07:00":    time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC),
		"2024-01-01T15:00:00+0700":     time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC),
		"2024-01-01T15:00:00.250+0700": time.Date(2024, 1, 1, 8, 0, 0, 250_000_000, time.UTC),
		"2024-01-01 15:00:00+0700":     time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC),
		"2024-01-01T15:00+0700":        time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC),
		"2024-01-01T08:00:00.250Z":     time.Date(2024, 1, 1, 8, 0, 0, 250_000_000, time.UTC),
		"2024-01-01T08:00:00":          time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC),
		"2024-01-01 08:00:00":          time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC),
		"2024-01-01T08:00":             time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC),
		"2024-01-01":                   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	for in, want := range cases {
		got, err := ParseTimestamp(in)
		require.NoError(t, err, in)
		require.True(t, want.Equal(got), "%s: got %s", in, got)
	}

	for _, in := range []string{"", "yesterday", "2024-13-01T00:00:00Z", "2024-01-01T08:00:00+7"} {
		_, err := ParseTimestamp(in)
		require.ErrorIs(t, err, ErrInvalidTimestamp, in)
	}
}

func TestLocationUsable(t *testing.T) {
	require.True(t, Location{Latitude: -7.4, Longitude: 109.3}.Usable())
	require.False(t, Location{Latitude: -7.4}.Usable())
	require.False(t, Location{}.Usable())
}
