package calendar

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"wastelog/backend/services/dashboard-service/internal/domain"
)

const historyPayload = `[
	{"event":"EXITED","areaId":"A1","areaName":"old name","entryTime":"2024-01-01T08:00:00Z","exitTime":"2024-01-01T08:30:00Z","durationSeconds":1800},
	{"event":"VOLUME_MEASUREMENT","areaId":"A1","source":"auto_exit","timestamp":"2024-01-01T08:31:00Z","calculatedVolume_liter":120.5,"distance_cm":30},
	{"event":"EXITED","areaId":"A2","durationSeconds":"bad"}
]`

type fakeSource struct {
	mu         sync.Mutex
	history    string
	historyErr error
	fences     []domain.Geofence
	fenceErr   error
	calls      atomic.Int32
}

func (f *fakeSource) History(context.Context, string) ([]byte, error) {
	f.calls.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	return []byte(f.history), f.historyErr
}

func (f *fakeSource) Geofences(context.Context) ([]domain.Geofence, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fences, f.fenceErr
}

func (f *fakeSource) fail(err error) {
	f.mu.Lock()
	f.historyErr = err
	f.mu.Unlock()
}

type memoryCache struct {
	mu    sync.Mutex
	snaps map[string]domain.CalendarSnapshot
}

func (m *memoryCache) Save(_ context.Context, snap domain.CalendarSnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.snaps == nil {
		m.snaps = map[string]domain.CalendarSnapshot{}
	}
	m.snaps[snap.DeviceID] = snap
	return nil
}

func (m *memoryCache) Load(_ context.Context, deviceID string) (domain.CalendarSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	snap, ok := m.snaps[deviceID]
	if !ok {
		return domain.CalendarSnapshot{}, errors.New("miss")
	}
	return snap, nil
}

type recordingArchive struct {
	mu       sync.Mutex
	upserted int
	err      error
}

func (a *recordingArchive) UpsertSessions(_ context.Context, _ string, sessions []domain.VisitSession) (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.upserted += len(sessions)
	return len(sessions), a.err
}

func newSource() *fakeSource {
	return &fakeSource{
		history: historyPayload,
		fences:  []domain.Geofence{{ID: "A1", Name: "Depo Utara", Radius1: 10, Radius2: 20}},
	}
}

func TestRefreshBuildsSnapshot(t *testing.T) {
	src := newSource()
	cache := &memoryCache{}
	archive := &recordingArchive{}
	r := NewRefresher(src, Options{DeviceID: "gps_01", Cache: cache, Archive: archive}, zap.NewNop())

	_, ok := r.Snapshot()
	require.False(t, ok)

	snap, err := r.Refresh(context.Background())
	require.NoError(t, err)
	require.Equal(t, "gps_01", snap.DeviceID)
	require.Len(t, snap.Sessions, 1)
	require.Equal(t, "Depo Utara", snap.Sessions[0].Title)
	require.Equal(t, 120.5, *snap.Sessions[0].Volume)

	current, ok := r.Snapshot()
	require.True(t, ok)
	require.Equal(t, snap, current)

	cached, err := cache.Load(context.Background(), "gps_01")
	require.NoError(t, err)
	require.Equal(t, snap, cached)
	require.Equal(t, 1, archive.upserted)
}

func TestRefreshFailureKeepsPreviousSnapshot(t *testing.T) {
	src := newSource()
	r := NewRefresher(src, Options{DeviceID: "gps_01"}, zap.NewNop())

	first, err := r.Refresh(context.Background())
	require.NoError(t, err)

	src.fail(errors.New("node-red down"))
	_, err = r.Refresh(context.Background())
	require.ErrorContains(t, err, "fetch history")

	current, ok := r.Snapshot()
	require.True(t, ok)
	require.Equal(t, first, current)
}

func TestRefreshFailsWhenGeofencesFail(t *testing.T) {
	src := newSource()
	src.fenceErr = errors.New("boom")
	r := NewRefresher(src, Options{DeviceID: "gps_01"}, zap.NewNop())

	_, err := r.Refresh(context.Background())
	require.ErrorContains(t, err, "fetch geofences")
	_, ok := r.Snapshot()
	require.False(t, ok)
}

func TestRefreshRejectsNonArrayHistory(t *testing.T) {
	src := newSource()
	src.history = `{"error":"quota"}`
	r := NewRefresher(src, Options{DeviceID: "gps_01"}, zap.NewNop())

	_, err := r.Refresh(context.Background())
	require.Error(t, err)
}

func TestArchiveFailureIsNotFatal(t *testing.T) {
	r := NewRefresher(newSource(), Options{DeviceID: "gps_01", Archive: &recordingArchive{err: errors.New("db down")}}, zap.NewNop())

	_, err := r.Refresh(context.Background())
	require.NoError(t, err)
	_, ok := r.Snapshot()
	require.True(t, ok)
}

func TestWarmUsesCachedSnapshot(t *testing.T) {
	cache := &memoryCache{}
	require.NoError(t, cache.Save(context.Background(), domain.CalendarSnapshot{DeviceID: "gps_01"}))

	r := NewRefresher(newSource(), Options{DeviceID: "gps_01", Cache: cache}, zap.NewNop())
	r.Warm(context.Background())

	snap, ok := r.Snapshot()
	require.True(t, ok)
	require.NotNil(t, snap.Sessions)
	require.Empty(t, snap.Sessions)
}

func TestRunRefreshesOnRequest(t *testing.T) {
	src := newSource()
	r := NewRefresher(src, Options{DeviceID: "gps_01", Interval: time.Hour}, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	require.Eventually(t, func() bool { return src.calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	r.RequestRefresh()
	require.Eventually(t, func() bool { return src.calls.Load() == 2 }, time.Second, 5*time.Millisecond)

	cancel()
	require.ErrorIs(t, <-done, context.Canceled)
}
