package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"wastelog/backend/services/dashboard-service/internal/domain"
	"wastelog/backend/services/dashboard-service/internal/observability"
)

// Dialer opens the upstream WebSocket. *websocket.Dialer satisfies it.
type Dialer interface {
	DialContext(ctx context.Context, urlStr string, requestHeader http.Header) (*websocket.Conn, *http.Response, error)
}

// Publisher receives every usable location frame.
type Publisher interface {
	Publish(loc domain.Location)
}

// UpstreamConfig tunes the reconnect policy.
type UpstreamConfig struct {
	URL             string
	DeviceID        string
	InitialInterval time.Duration
	MaxInterval     time.Duration
	// MaxAttempts consecutive failures open the circuit for Cooldown. Zero disables the breaker.
	MaxAttempts int
	Cooldown    time.Duration
	// ReadTimeout closes a silent connection. Zero waits forever.
	ReadTimeout time.Duration
	// StableAfter is how long a connection without frames must stay up before
	// it clears the failure count. A connection that delivered a frame always does.
	StableAfter time.Duration
}

// Upstream keeps a connection to the Node-RED location feed and forwards
// frames to a Publisher. Reconnects back off exponentially and stop for a
// cooldown after too many consecutive failures.
type Upstream struct {
	cfg       UpstreamConfig
	dialer    Dialer
	publisher Publisher
	logger    *zap.Logger
	status    *statusTracker

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// NewUpstream builds the client. A nil dialer uses websocket.DefaultDialer.
func NewUpstream(cfg UpstreamConfig, dialer Dialer, publisher Publisher, logger *zap.Logger) *Upstream {
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	if cfg.InitialInterval <= 0 {
		cfg.InitialInterval = time.Second
	}
	if cfg.MaxInterval <= 0 {
		cfg.MaxInterval = time.Minute
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 5 * time.Minute
	}
	if cfg.StableAfter <= 0 {
		cfg.StableAfter = cfg.MaxInterval
	}
	cfg.URL = WebSocketURL(cfg.URL)
	return &Upstream{
		cfg:       cfg,
		dialer:    dialer,
		publisher: publisher,
		logger:    logger,
		status:    newStatusTracker(),
		now:       time.Now,
		sleep:     sleepContext,
	}
}

// WebSocketURL rewrites http(s) URLs to ws(s); other schemes pass through.
func WebSocketURL(raw string) string {
	switch {
	case strings.HasPrefix(raw, "https://"):
		return "wss://" + strings.TrimPrefix(raw, "https://")
	case strings.HasPrefix(raw, "http://"):
		return "ws://" + strings.TrimPrefix(raw, "http://")
	default:
		return raw
	}
}

// Status returns the current connection health.
func (u *Upstream) Status() Status {
	return u.status.snapshot()
}

func (u *Upstream) newBackOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = u.cfg.InitialInterval
	b.MaxInterval = u.cfg.MaxInterval
	b.MaxElapsedTime = 0
	b.Reset()
	return b
}

// Run blocks until ctx is cancelled.
func (u *Upstream) Run(ctx context.Context) error {
	b := u.newBackOff()
	failures := 0
	dialed := false

	for {
		if ctx.Err() != nil {
			u.stop()
			return ctx.Err()
		}

		if dialed {
			observability.RecordReconnectAttempt()
			u.status.update(func(s *Status) { s.Reconnects++ })
		}
		dialed = true

		conn, _, err := u.dialer.DialContext(ctx, u.cfg.URL, nil)
		if err == nil {
			connectedAt := u.now()
			u.logger.Info("realtime upstream connected", zap.String("url", u.cfg.URL))
			u.status.update(func(s *Status) {
				s.State = StateConnected
				s.RetryAt = nil
				s.ConnectedSince = timePtr(connectedAt)
			})
			var frames int
			frames, err = u.consume(ctx, conn)
			_ = conn.Close()
			if ctx.Err() != nil {
				u.stop()
				return ctx.Err()
			}
			// an accept-then-drop upstream keeps counting toward the circuit
			if frames > 0 || u.now().Sub(connectedAt) >= u.cfg.StableAfter {
				failures = 0
				b.Reset()
			}
		}

		failures++
		wait := b.NextBackOff()
		if wait == backoff.Stop {
			wait = u.cfg.MaxInterval
		}
		state := StateReconnecting
		if u.cfg.MaxAttempts > 0 && failures >= u.cfg.MaxAttempts {
			state = StateCircuitOpen
			wait = u.cfg.Cooldown
		}

		retryAt := u.now().Add(wait)
		u.status.update(func(s *Status) {
			s.State = state
			s.ConsecutiveFailures = failures
			s.ConnectedSince = nil
			s.RetryAt = timePtr(retryAt)
			if err != nil {
				s.LastError = err.Error()
			}
		})
		u.logger.Warn("realtime upstream disconnected",
			zap.Error(err),
			zap.Int("consecutive_failures", failures),
			zap.String("state", string(state)),
			zap.Duration("retry_in", wait),
		)

		if err := u.sleep(ctx, wait); err != nil {
			u.stop()
			return err
		}
		if state == StateCircuitOpen {
			failures = 0
			b.Reset()
		}
	}
}

func (u *Upstream) stop() {
	u.status.update(func(s *Status) {
		s.State = StateStopped
		s.ConnectedSince = nil
		s.RetryAt = nil
	})
}

// consume reads frames until the connection fails and reports how many arrived.
func (u *Upstream) consume(ctx context.Context, conn *websocket.Conn) (int, error) {
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-done:
		}
	}()

	conn.SetReadLimit(64 * 1024)
	frames := 0
	for {
		if u.cfg.ReadTimeout > 0 {
			_ = conn.SetReadDeadline(u.now().Add(u.cfg.ReadTimeout))
		}
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return frames, errors.New("upstream closed the connection")
			}
			return frames, err
		}
		frames++
		u.handleFrame(message)
	}
}

func (u *Upstream) handleFrame(message []byte) {
	var loc domain.Location
	if err := json.Unmarshal(message, &loc); err != nil {
		observability.RecordRealtimeMessage("invalid")
		u.logger.Warn("failed to parse realtime frame", zap.Error(err))
		return
	}
	if !loc.Usable() {
		observability.RecordRealtimeMessage("ignored")
		return
	}
	if loc.DeviceID != "" && u.cfg.DeviceID != "" && loc.DeviceID != u.cfg.DeviceID {
		observability.RecordRealtimeMessage("ignored")
		return
	}
	if loc.DeviceID == "" {
		loc.DeviceID = u.cfg.DeviceID
	}
	now := u.now()
	loc.Received = now.UTC()
	u.status.update(func(s *Status) {
		s.LastMessageAt = timePtr(now)
		s.ConsecutiveFailures = 0
		s.LastError = ""
	})
	observability.RecordRealtimeMessage("ok")
	u.publisher.Publish(loc)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
