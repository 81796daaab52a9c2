package history

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"wastelog/backend/services/dashboard-service/internal/domain"
)

func f64(v float64) *float64 { return &v }

func exited(area, entry, exit string) domain.ActivityLogRecord {
	return domain.ActivityLogRecord{
		Event:     domain.EventExited,
		AreaID:    area,
		AreaName:  "log name " + area,
		EntryTime: entry,
		ExitTime:  exit,
	}
}

func measured(area, source, ts string, liters float64) domain.ActivityLogRecord {
	return domain.ActivityLogRecord{
		Event:       domain.EventVolumeMeasurement,
		AreaID:      area,
		Source:      source,
		Timestamp:   ts,
		VolumeLiter: f64(liters),
		DistanceCM:  f64(42),
	}
}

func TestReconcileEmptyInput(t *testing.T) {
	out := Reconcile(nil, nil)
	require.NotNil(t, out)
	require.Empty(t, out)
}

func TestReconcileWithoutExitsIgnoresMeasurements(t *testing.T) {
	out := Reconcile([]domain.ActivityLogRecord{
		measured("A1", domain.SourceAutoExit, "2024-01-01T08:31:00Z", 10),
		measured("A2", domain.SourceManual, "2024-01-01T08:31:00Z", 20),
	}, map[string]string{"A1": "Depo"})
	require.Empty(t, out)
}

func TestReconcileAcceptsCompactOffsetsAndDateOnly(t *testing.T) {
	out := Reconcile([]domain.ActivityLogRecord{
		exited("A1", "2024-01-01", "2024-01-01T15:30:00+0700"),
		measured("A1", domain.SourceAutoExit, "2024-01-01T15:31:00+0700", 75),
	}, nil)

	require.Len(t, out, 1)
	require.Equal(t, "2024-01-01", out[0].Start)
	require.NotNil(t, out[0].Volume)
	require.Equal(t, 75.0, *out[0].Volume)
}

func TestReconcileAttachesMeasurementAfterExit(t *testing.T) {
	out := Reconcile([]domain.ActivityLogRecord{
		exited("A1", "2024-01-01T08:00:00Z", "2024-01-01T08:30:00Z"),
		measured("A1", domain.SourceAutoExit, "2024-01-01T08:31:00Z", 120.5),
	}, nil)

	require.Len(t, out, 1)
	require.NotNil(t, out[0].Volume)
	require.Equal(t, 120.5, *out[0].Volume)
	require.NotNil(t, out[0].Distance)
	require.Equal(t, 42.0, *out[0].Distance)
	require.Equal(t, "2024-01-01T08:00:00Z", out[0].Start)
}

func TestReconcilePicksLatestQualifyingExit(t *testing.T) {
	out := Reconcile([]domain.ActivityLogRecord{
		exited("A1", "2024-01-01T08:00:00Z", "2024-01-01T08:30:00Z"),
		exited("A1", "2024-01-01T09:00:00Z", "2024-01-01T09:30:00Z"),
		measured("A1", domain.SourceAutoExit, "2024-01-01T09:35:00Z", 75),
	}, nil)

	require.Len(t, out, 2)
	require.Nil(t, out[0].Volume)
	require.NotNil(t, out[1].Volume)
	require.Equal(t, 75.0, *out[1].Volume)
}

func TestReconcileMeasurementBeforeEveryExitAttachesNothing(t *testing.T) {
	out := Reconcile([]domain.ActivityLogRecord{
		exited("A1", "2024-01-01T08:00:00Z", "2024-01-01T08:30:00Z"),
		measured("A1", domain.SourceAutoExit, "2024-01-01T08:29:59Z", 75),
	}, nil)

	require.Len(t, out, 1)
	require.Nil(t, out[0].Volume)
}

func TestReconcileManualMeasurementNeverAttaches(t *testing.T) {
	out := Reconcile([]domain.ActivityLogRecord{
		exited("A1", "2024-01-01T08:00:00Z", "2024-01-01T08:30:00Z"),
		measured("A1", domain.SourceManual, "2024-01-01T08:31:00Z", 99),
		measured("A1", "", "2024-01-01T08:32:00Z", 98),
	}, nil)

	require.Len(t, out, 1)
	require.Nil(t, out[0].Volume)
}

func TestReconcileFirstMeasurementWins(t *testing.T) {
	out := Reconcile([]domain.ActivityLogRecord{
		exited("A1", "2024-01-01T08:00:00Z", "2024-01-01T08:30:00Z"),
		measured("A1", domain.SourceAutoExit, "2024-01-01T08:31:00Z", 10),
		measured("A1", domain.SourceAutoExit, "2024-01-01T08:40:00Z", 20),
	}, nil)

	require.Len(t, out, 1)
	require.Equal(t, 10.0, *out[0].Volume)
}

func TestReconcileMeasurementOnlyMatchesSameArea(t *testing.T) {
	out := Reconcile([]domain.ActivityLogRecord{
		exited("A1", "2024-01-01T08:00:00Z", "2024-01-01T08:30:00Z"),
		measured("B7", domain.SourceAutoExit, "2024-01-01T08:31:00Z", 10),
	}, nil)

	require.Nil(t, out[0].Volume)
}

func TestReconcileOneSessionPerKey(t *testing.T) {
	first := exited("A1", "2024-01-01T08:00:00Z", "2024-01-01T08:30:00Z")
	dup := exited("A1", "2024-01-01T08:00:00Z", "2024-01-01T08:45:00Z")
	other := exited("A2", "2024-01-01T08:00:00Z", "2024-01-01T08:10:00Z")

	out := Reconcile([]domain.ActivityLogRecord{first, other, dup}, nil)

	require.Len(t, out, 2)
	require.Equal(t, "A1", out[0].AreaID)
	require.Equal(t, "2024-01-01T08:45:00Z", out[0].ExitTime, "later record replaces the earlier one in place")
	require.Equal(t, "A2", out[1].AreaID)
}

func TestReconcileTieOnExitGoesToFirstSession(t *testing.T) {
	out := Reconcile([]domain.ActivityLogRecord{
		exited("A1", "2024-01-01T08:00:00Z", "2024-01-01T08:30:00Z"),
		exited("A1", "2024-01-01T08:05:00Z", "2024-01-01T08:30:00Z"),
		measured("A1", domain.SourceAutoExit, "2024-01-01T08:31:00Z", 33),
		measured("A1", domain.SourceAutoExit, "2024-01-01T08:32:00Z", 44),
	}, nil)

	require.Len(t, out, 2)
	require.Equal(t, 33.0, *out[0].Volume)
	require.Nil(t, out[1].Volume, "second candidate stays empty because the first already holds a volume")
}

func TestReconcileTitleResolution(t *testing.T) {
	named := exited("A1", "2024-01-01T08:00:00Z", "")
	logNamed := exited("A2", "2024-01-01T08:00:00Z", "")
	anonymous := exited("A3", "2024-01-01T08:00:00Z", "")
	anonymous.AreaName = ""

	out := Reconcile([]domain.ActivityLogRecord{named, logNamed, anonymous}, map[string]string{"A1": "Depo Utara"})

	require.Equal(t, "Depo Utara", out[0].Title)
	require.Equal(t, "log name A2", out[1].Title)
	require.Equal(t, UnknownAreaTitle, out[2].Title)
}

func TestReconcileSkipsMalformedRecords(t *testing.T) {
	noArea := exited("", "2024-01-01T08:00:00Z", "2024-01-01T08:30:00Z")
	noEntry := exited("A1", "", "2024-01-01T08:30:00Z")
	badEntry := exited("A1", "not a time", "2024-01-01T08:30:00Z")
	badExit := exited("A1", "2024-01-01T07:00:00Z", "soon")
	good := exited("A1", "2024-01-01T08:00:00Z", "2024-01-01T08:30:00Z")
	badMeasure := measured("A1", domain.SourceAutoExit, "later", 5)
	noVolume := measured("A1", domain.SourceAutoExit, "2024-01-01T08:31:00Z", 0)
	noVolume.VolumeLiter = nil
	negative := measured("A1", domain.SourceAutoExit, "2024-01-01T08:31:00Z", -3)

	out := Reconcile([]domain.ActivityLogRecord{
		noArea, noEntry, badEntry, badExit, good, badMeasure, noVolume, negative,
	}, nil)

	require.Len(t, out, 1)
	require.Equal(t, "2024-01-01T08:00:00Z", out[0].EntryTime)
	require.Nil(t, out[0].Volume)
}

func TestReconcileSessionWithoutExitNeverMatches(t *testing.T) {
	out := Reconcile([]domain.ActivityLogRecord{
		exited("A1", "2024-01-01T08:00:00Z", ""),
		measured("A1", domain.SourceAutoExit, "2024-01-01T08:31:00Z", 5),
	}, nil)

	require.Len(t, out, 1)
	require.Nil(t, out[0].Volume)
}

func TestReconcileIsDeterministic(t *testing.T) {
	records := []domain.ActivityLogRecord{
		exited("A1", "2024-01-01T08:00:00Z", "2024-01-01T08:30:00Z"),
		exited("A2", "2024-01-01T09:00:00Z", "2024-01-01T09:20:00Z"),
		exited("A1", "2024-01-01T10:00:00Z", "2024-01-01T10:30:00Z"),
		measured("A1", domain.SourceAutoExit, "2024-01-01T10:31:00Z", 1.25),
		measured("A2", domain.SourceAutoExit, "2024-01-01T09:21:00Z", 2.5),
	}
	names := map[string]string{"A1": "Depo", "A2": "Pasar"}

	first, err := json.Marshal(Reconcile(records, names))
	require.NoError(t, err)
	second, err := json.Marshal(Reconcile(records, names))
	require.NoError(t, err)
	require.Equal(t, string(first), string(second))
}

func TestReconcileDoesNotAliasInput(t *testing.T) {
	rec := exited("A1", "2024-01-01T08:00:00Z", "2024-01-01T08:30:00Z")
	rec.DurationSeconds = f64(1800)
	m := measured("A1", domain.SourceAutoExit, "2024-01-01T08:31:00Z", 10)

	out := Reconcile([]domain.ActivityLogRecord{rec, m}, nil)
	*out[0].DurationSeconds = 1
	*out[0].Volume = 1

	require.Equal(t, 1800.0, *rec.DurationSeconds)
	require.Equal(t, 10.0, *m.VolumeLiter)
}
