package measure

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"wastelog/backend/services/dashboard-service/internal/clients"
	"wastelog/backend/services/dashboard-service/internal/domain"
)

type fakeDevice struct {
	triggerErr error
	volume     domain.CurrentVolume
	volumeErr  error
	calls      []string
	gate       chan struct{}
}

func (f *fakeDevice) TriggerMeasurement(ctx context.Context) error {
	f.calls = append(f.calls, "trigger")
	if f.gate != nil {
		<-f.gate
	}
	return f.triggerErr
}

func (f *fakeDevice) CurrentVolume(_ context.Context, deviceID string) (domain.CurrentVolume, error) {
	f.calls = append(f.calls, "read:"+deviceID)
	return f.volume, f.volumeErr
}

func newTestService(dev *fakeDevice) (*Service, *[]time.Duration) {
	svc := NewService(dev, "gps_01", 5*time.Second, zap.NewNop())
	var waited []time.Duration
	svc.wait = func(_ context.Context, d time.Duration) error {
		waited = append(waited, d)
		return nil
	}
	return svc, &waited
}

func TestMeasureHappyPath(t *testing.T) {
	dev := &fakeDevice{volume: domain.CurrentVolume{VolumeLiter: 64.5, DistanceCM: 20, Timestamp: "2024-01-01T08:00:00Z"}}
	svc, waited := newTestService(dev)

	res, err := svc.Measure(context.Background())
	require.NoError(t, err)
	require.Equal(t, 64.5, res.VolumeLiter)
	require.Equal(t, []string{"trigger", "read:gps_01"}, dev.calls)
	require.Equal(t, []time.Duration{5 * time.Second}, *waited)
	require.False(t, svc.Running())
}

func TestMeasureTriggerFailureSkipsRead(t *testing.T) {
	dev := &fakeDevice{triggerErr: &clients.StatusError{Status: 500}}
	svc, waited := newTestService(dev)

	_, err := svc.Measure(context.Background())
	var statusErr *clients.StatusError
	require.True(t, errors.As(err, &statusErr))
	require.Equal(t, []string{"trigger"}, dev.calls)
	require.Empty(t, *waited)
	require.False(t, svc.Running())
}

func TestMeasureMissingResult(t *testing.T) {
	dev := &fakeDevice{volumeErr: fmt.Errorf("wrapped: %w", clients.ErrNotFound)}
	svc, _ := newTestService(dev)

	_, err := svc.Measure(context.Background())
	require.ErrorIs(t, err, ErrNoResult)
}

func TestMeasureRejectsConcurrentRun(t *testing.T) {
	dev := &fakeDevice{gate: make(chan struct{})}
	svc, _ := newTestService(dev)

	done := make(chan error, 1)
	go func() {
		_, err := svc.Measure(context.Background())
		done <- err
	}()

	require.Eventually(t, svc.Running, time.Second, 5*time.Millisecond)
	_, err := svc.Measure(context.Background())
	require.ErrorIs(t, err, ErrInProgress)

	close(dev.gate)
	require.NoError(t, <-done)
	require.False(t, svc.Running())
}

func TestWaitContextHonoursCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, waitContext(ctx, time.Hour), context.Canceled)
	require.NoError(t, waitContext(context.Background(), 0))
}
