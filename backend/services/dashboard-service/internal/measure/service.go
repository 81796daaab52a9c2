package measure

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"wastelog/backend/services/dashboard-service/internal/clients"
	"wastelog/backend/services/dashboard-service/internal/domain"
	"wastelog/backend/services/dashboard-service/internal/observability"
)

var (
	// ErrInProgress is returned while another manual measurement is running.
	ErrInProgress = errors.New("measure: a manual measurement is already running")
	// ErrNoResult means the device never reported a manual reading.
	ErrNoResult = errors.New("measure: no manual measurement stored for device")
)

// Device is the subset of the Node-RED client the flow needs.
type Device interface {
	TriggerMeasurement(ctx context.Context) error
	CurrentVolume(ctx context.Context, deviceID string) (domain.CurrentVolume, error)
}

// Service runs the manual measurement flow: trigger the sensor, give it time
// to report, then read back the stored result.
type Service struct {
	device   Device
	deviceID string
	settle   time.Duration
	logger   *zap.Logger

	mu      sync.Mutex
	running bool

	wait func(ctx context.Context, d time.Duration) error
}

// NewService builds the flow. settle is how long the sensor gets between the
// trigger and the read.
func NewService(device Device, deviceID string, settle time.Duration, logger *zap.Logger) *Service {
	if settle < 0 {
		settle = 0
	}
	return &Service{
		device:   device,
		deviceID: deviceID,
		settle:   settle,
		logger:   logger,
		wait:     waitContext,
	}
}

// Running reports whether a measurement is in flight.
func (s *Service) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Measure runs one measurement. Only one may run at a time.
func (s *Service) Measure(ctx context.Context) (domain.CurrentVolume, error) {
	if !s.acquire() {
		observability.RecordMeasurement("busy")
		return domain.CurrentVolume{}, ErrInProgress
	}
	defer s.release()

	result, err := s.run(ctx)
	switch {
	case err == nil:
		observability.RecordMeasurement("ok")
		s.logger.Info("manual measurement completed",
			zap.String("device_id", s.deviceID),
			zap.Float64("volume_liter", result.VolumeLiter),
			zap.Float64("distance_cm", result.DistanceCM),
		)
	case errors.Is(err, ErrNoResult):
		observability.RecordMeasurement("missing")
	default:
		observability.RecordMeasurement("error")
	}
	return result, err
}

func (s *Service) run(ctx context.Context) (domain.CurrentVolume, error) {
	if err := s.device.TriggerMeasurement(ctx); err != nil {
		return domain.CurrentVolume{}, fmt.Errorf("measure: trigger: %w", err)
	}
	if err := s.wait(ctx, s.settle); err != nil {
		return domain.CurrentVolume{}, err
	}
	result, err := s.device.CurrentVolume(ctx, s.deviceID)
	if err != nil {
		if errors.Is(err, clients.ErrNotFound) {
			return domain.CurrentVolume{}, ErrNoResult
		}
		return domain.CurrentVolume{}, fmt.Errorf("measure: fetch result: %w", err)
	}
	return result, nil
}

func (s *Service) acquire() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return false
	}
	s.running = true
	return true
}

func (s *Service) release() {
	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
}

func waitContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
