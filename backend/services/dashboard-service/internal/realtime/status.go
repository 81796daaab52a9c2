package realtime

import (
	"sync"
	"time"

	"wastelog/backend/services/dashboard-service/internal/observability"
)

// State of the upstream connection.
type State string

const (
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	StateReconnecting State = "reconnecting"
	StateCircuitOpen  State = "circuit_open"
	StateStopped      State = "stopped"
)

// Status is a point-in-time view of the upstream connection health.
type Status struct {
	State               State      `json:"state"`
	ConsecutiveFailures int        `json:"consecutiveFailures"`
	Reconnects          int64      `json:"reconnects"`
	LastError           string     `json:"lastError,omitempty"`
	ConnectedSince      *time.Time `json:"connectedSince,omitempty"`
	LastMessageAt       *time.Time `json:"lastMessageAt,omitempty"`
	RetryAt             *time.Time `json:"retryAt,omitempty"`
}

type statusTracker struct {
	mu     sync.RWMutex
	status Status
}

func newStatusTracker() *statusTracker {
	t := &statusTracker{status: Status{State: StateConnecting}}
	observability.SetRealtimeState(string(StateConnecting))
	return t
}

func (t *statusTracker) snapshot() Status {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.status
}

func (t *statusTracker) update(fn func(*Status)) {
	t.mu.Lock()
	prev := t.status.State
	fn(&t.status)
	next := t.status.State
	t.mu.Unlock()
	if prev != next {
		observability.SetRealtimeState(string(next))
	}
}

func timePtr(t time.Time) *time.Time {
	return &t
}
