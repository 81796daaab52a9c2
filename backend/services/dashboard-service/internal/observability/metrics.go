package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	calendarRefreshDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "wastelog_dashboard",
		Subsystem: "calendar",
		Name:      "refresh_duration_seconds",
		Help:      "Time spent fetching and reconciling the visit history.",
		Buckets:   prometheus.DefBuckets,
	})
	calendarRefreshTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "wastelog_dashboard",
		Subsystem: "calendar",
		Name:      "refresh_total",
		Help:      "Calendar refresh passes by outcome.",
	}, []string{"outcome"})
	calendarSessions = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "wastelog_dashboard",
		Subsystem: "calendar",
		Name:      "visit_sessions",
		Help:      "Visit sessions in the current calendar snapshot.",
	})
	calendarSkippedRecords = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "wastelog_dashboard",
		Subsystem: "calendar",
		Name:      "skipped_records_total",
		Help:      "History elements that could not be decoded.",
	})
	calendarLastRefresh = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "wastelog_dashboard",
		Subsystem: "calendar",
		Name:      "last_refresh_timestamp_seconds",
		Help:      "Unix timestamp of the last successful refresh.",
	})

	realtimeState = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "wastelog_dashboard",
		Subsystem: "realtime",
		Name:      "upstream_state",
		Help:      "1 for the current upstream connection state, 0 otherwise.",
	}, []string{"state"})
	realtimeReconnects = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "wastelog_dashboard",
		Subsystem: "realtime",
		Name:      "reconnect_attempts_total",
		Help:      "Dial attempts made after the first connection.",
	})
	realtimeMessages = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "wastelog_dashboard",
		Subsystem: "realtime",
		Name:      "messages_total",
		Help:      "Upstream location frames by outcome.",
	}, []string{"outcome"})
	realtimeClients = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "wastelog_dashboard",
		Subsystem: "realtime",
		Name:      "browser_clients",
		Help:      "Browser WebSocket clients currently attached.",
	})

	measurementsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "wastelog_dashboard",
		Subsystem: "measure",
		Name:      "manual_total",
		Help:      "Manual measurement runs by outcome.",
	}, []string{"outcome"})
)

// RealtimeStates lists every value the upstream_state gauge can take.
var RealtimeStates = []string{"connecting", "connected", "reconnecting", "circuit_open", "stopped"}

func init() {
	prometheus.MustRegister(
		calendarRefreshDuration,
		calendarRefreshTotal,
		calendarSessions,
		calendarSkippedRecords,
		calendarLastRefresh,
		realtimeState,
		realtimeReconnects,
		realtimeMessages,
		realtimeClients,
		measurementsTotal,
	)
}

// RecordCalendarRefresh records one refresh pass. sessions is ignored on failure.
func RecordCalendarRefresh(started time.Time, sessions int, err error) {
	calendarRefreshDuration.Observe(time.Since(started).Seconds())
	if err != nil {
		calendarRefreshTotal.WithLabelValues("error").Inc()
		return
	}
	calendarRefreshTotal.WithLabelValues("ok").Inc()
	calendarSessions.Set(float64(sessions))
	calendarLastRefresh.Set(float64(time.Now().Unix()))
}

// RecordSkippedRecords counts undecodable history elements.
func RecordSkippedRecords(n int) {
	if n > 0 {
		calendarSkippedRecords.Add(float64(n))
	}
}

// SetRealtimeState flips the state gauge to the given state.
func SetRealtimeState(state string) {
	for _, s := range RealtimeStates {
		v := 0.0
		if s == state {
			v = 1
		}
		realtimeState.WithLabelValues(s).Set(v)
	}
}

// RecordReconnectAttempt counts one redial.
func RecordReconnectAttempt() {
	realtimeReconnects.Inc()
}

// RecordRealtimeMessage counts a frame as "ok", "invalid" or "ignored".
func RecordRealtimeMessage(outcome string) {
	realtimeMessages.WithLabelValues(outcome).Inc()
}

// SetBrowserClients publishes the hub size.
func SetBrowserClients(n int) {
	realtimeClients.Set(float64(n))
}

// RecordMeasurement counts a manual measurement outcome.
func RecordMeasurement(outcome string) {
	measurementsTotal.WithLabelValues(outcome).Inc()
}
