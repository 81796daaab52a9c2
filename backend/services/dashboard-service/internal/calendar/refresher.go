package calendar

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"wastelog/backend/services/dashboard-service/internal/domain"
	"wastelog/backend/services/dashboard-service/internal/history"
	"wastelog/backend/services/dashboard-service/internal/observability"
)

// Source supplies the raw inputs of a reconciliation pass.
type Source interface {
	History(ctx context.Context, deviceID string) ([]byte, error)
	Geofences(ctx context.Context) ([]domain.Geofence, error)
}

// SnapshotCache persists the latest snapshot across restarts.
type SnapshotCache interface {
	Save(ctx context.Context, snap domain.CalendarSnapshot) error
	Load(ctx context.Context, deviceID string) (domain.CalendarSnapshot, error)
}

// Archive keeps reconciled sessions after the upstream log forgets them.
type Archive interface {
	UpsertSessions(ctx context.Context, deviceID string, sessions []domain.VisitSession) (int, error)
}

// Options configures a Refresher. Cache and Archive are optional.
type Options struct {
	DeviceID string
	Interval time.Duration
	Cache    SnapshotCache
	Archive  Archive
}

// Refresher rebuilds the calendar snapshot on a timer and on demand. Readers
// always see a complete snapshot; a failed pass keeps the previous one.
type Refresher struct {
	source   Source
	deviceID string
	interval time.Duration
	cache    SnapshotCache
	archive  Archive
	logger   *zap.Logger

	current atomic.Pointer[domain.CalendarSnapshot]
	passMu  sync.Mutex
	trigger chan struct{}
	now     func() time.Time
}

// NewRefresher builds a refresher for one device.
func NewRefresher(source Source, opts Options, logger *zap.Logger) *Refresher {
	if opts.Interval <= 0 {
		opts.Interval = time.Minute
	}
	return &Refresher{
		source:   source,
		deviceID: opts.DeviceID,
		interval: opts.Interval,
		cache:    opts.Cache,
		archive:  opts.Archive,
		logger:   logger,
		trigger:  make(chan struct{}, 1),
		now:      time.Now,
	}
}

// Snapshot returns the current snapshot. ok is false before the first pass.
func (r *Refresher) Snapshot() (domain.CalendarSnapshot, bool) {
	snap := r.current.Load()
	if snap == nil {
		return domain.CalendarSnapshot{}, false
	}
	return *snap, true
}

// RequestRefresh schedules a pass without waiting for it.
func (r *Refresher) RequestRefresh() {
	select {
	case r.trigger <- struct{}{}:
	default:
	}
}

// Warm loads the cached snapshot, if any, so requests can be answered before
// the first pass completes.
func (r *Refresher) Warm(ctx context.Context) {
	if r.cache == nil {
		return
	}
	snap, err := r.cache.Load(ctx, r.deviceID)
	if err != nil {
		r.logger.Debug("no cached calendar snapshot", zap.Error(err))
		return
	}
	if snap.Sessions == nil {
		snap.Sessions = []domain.VisitSession{}
	}
	r.current.CompareAndSwap(nil, &snap)
	r.logger.Info("calendar snapshot restored from cache",
		zap.Time("generated_at", snap.GeneratedAt),
		zap.Int("sessions", len(snap.Sessions)),
	)
}

// Refresh runs one pass: fetch history and geofences together, reconcile once
// both are in, then publish the snapshot.
func (r *Refresher) Refresh(ctx context.Context) (domain.CalendarSnapshot, error) {
	r.passMu.Lock()
	defer r.passMu.Unlock()

	started := r.now()
	snap, err := r.build(ctx)
	observability.RecordCalendarRefresh(started, len(snap.Sessions), err)
	if err != nil {
		return domain.CalendarSnapshot{}, err
	}

	r.current.Store(&snap)
	r.persist(ctx, snap)
	return snap, nil
}

func (r *Refresher) build(ctx context.Context) (domain.CalendarSnapshot, error) {
	var (
		raw    []byte
		fences []domain.Geofence
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		raw, err = r.source.History(gctx, r.deviceID)
		if err != nil {
			return fmt.Errorf("fetch history: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		fences, err = r.source.Geofences(gctx)
		if err != nil {
			return fmt.Errorf("fetch geofences: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return domain.CalendarSnapshot{}, err
	}

	records, skipped, err := history.DecodeRecords(raw)
	if err != nil {
		return domain.CalendarSnapshot{}, err
	}
	if skipped > 0 {
		observability.RecordSkippedRecords(skipped)
		r.logger.Warn("skipped undecodable history records", zap.Int("count", skipped))
	}

	return domain.CalendarSnapshot{
		DeviceID:    r.deviceID,
		GeneratedAt: r.now().UTC(),
		Sessions:    history.Reconcile(records, domain.AreaNames(fences)),
	}, nil
}

func (r *Refresher) persist(ctx context.Context, snap domain.CalendarSnapshot) {
	if r.cache != nil {
		if err := r.cache.Save(ctx, snap); err != nil {
			r.logger.Warn("failed to cache calendar snapshot", zap.Error(err))
		}
	}
	if r.archive != nil {
		if _, err := r.archive.UpsertSessions(ctx, snap.DeviceID, snap.Sessions); err != nil {
			r.logger.Warn("failed to archive visit sessions", zap.Error(err))
		}
	}
}

// Run refreshes immediately, then on every tick or request, until ctx ends.
func (r *Refresher) Run(ctx context.Context) error {
	r.Warm(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		if _, err := r.Refresh(ctx); err != nil {
			if errors.Is(err, context.Canceled) && ctx.Err() != nil {
				return ctx.Err()
			}
			r.logger.Error("calendar refresh failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		case <-r.trigger:
		}
	}
}
