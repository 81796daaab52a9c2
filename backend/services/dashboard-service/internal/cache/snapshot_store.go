package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"wastelog/backend/services/dashboard-service/internal/domain"
)

// ErrMiss is returned when no snapshot is cached for the device.
var ErrMiss = errors.New("cache: snapshot not found")

// SnapshotStore keeps the last calendar snapshot per device in redis so a
// restarted service can answer before its first refresh completes.
type SnapshotStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSnapshotStore returns redis-backed store.
func NewSnapshotStore(client *redis.Client, ttl time.Duration) *SnapshotStore {
	return &SnapshotStore{client: client, ttl: ttl}
}

func (s *SnapshotStore) key(deviceID string) string {
	return fmt.Sprintf("wastelog:calendar:%s", deviceID)
}

// Save caches snapshot.
func (s *SnapshotStore) Save(ctx context.Context, snap domain.CalendarSnapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.key(snap.DeviceID), data, s.ttl).Err()
}

// Load returns the cached snapshot for deviceID.
func (s *SnapshotStore) Load(ctx context.Context, deviceID string) (domain.CalendarSnapshot, error) {
	result, err := s.client.Get(ctx, s.key(deviceID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.CalendarSnapshot{}, ErrMiss
		}
		return domain.CalendarSnapshot{}, err
	}
	var snap domain.CalendarSnapshot
	if err := json.Unmarshal(result, &snap); err != nil {
		return domain.CalendarSnapshot{}, fmt.Errorf("cache: decode snapshot: %w", err)
	}
	return snap, nil
}
