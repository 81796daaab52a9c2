package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"wastelog/backend/services/dashboard-service/internal/domain"
	"wastelog/backend/services/dashboard-service/internal/history"
)

// CalendarSource exposes the reconciled visit snapshot.
type CalendarSource interface {
	Snapshot() (domain.CalendarSnapshot, bool)
	Refresh(ctx context.Context) (domain.CalendarSnapshot, error)
}

// VisitArchive reads archived sessions.
type VisitArchive interface {
	ListSessions(ctx context.Context, deviceID string, from, to time.Time, limit int) ([]domain.VisitSession, error)
}

// CalendarHandlers serves the visit calendar.
type CalendarHandlers struct {
	source    CalendarSource
	archive   VisitArchive
	formatter history.Formatter
	deviceID  string
	logger    *zap.Logger
}

// NewCalendarHandlers returns handler struct. archive may be nil.
func NewCalendarHandlers(source CalendarSource, archive VisitArchive, formatter history.Formatter, deviceID string, logger *zap.Logger) *CalendarHandlers {
	return &CalendarHandlers{
		source:    source,
		archive:   archive,
		formatter: formatter,
		deviceID:  deviceID,
		logger:    logger,
	}
}

type calendarResponse struct {
	DeviceID    string                  `json:"deviceId"`
	GeneratedAt time.Time               `json:"generatedAt"`
	Events      []history.CalendarEvent `json:"events"`
}

// Calendar handles GET /api/calendar. Before the first background pass has
// finished it builds the snapshot inline.
func (h *CalendarHandlers) Calendar(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.source.Snapshot()
	if !ok {
		var err error
		snap, err = h.source.Refresh(r.Context())
		if err != nil {
			h.logger.Error("calendar refresh failed", zap.Error(err))
			writeUpstreamError(w, err, "history not found")
			return
		}
	}
	h.writeSnapshot(w, snap)
}

// Refresh handles POST /api/calendar/refresh.
func (h *CalendarHandlers) Refresh(w http.ResponseWriter, r *http.Request) {
	snap, err := h.source.Refresh(r.Context())
	if err != nil {
		h.logger.Error("calendar refresh failed", zap.Error(err))
		writeUpstreamError(w, err, "history not found")
		return
	}
	h.writeSnapshot(w, snap)
}

func (h *CalendarHandlers) writeSnapshot(w http.ResponseWriter, snap domain.CalendarSnapshot) {
	writeJSON(w, http.StatusOK, calendarResponse{
		DeviceID:    snap.DeviceID,
		GeneratedAt: snap.GeneratedAt,
		Events:      h.formatter.CalendarEvents(snap.Sessions),
	})
}

// Visits handles GET /api/visits?from=&to=&limit= against the archive.
// from and to are RFC 3339 or YYYY-MM-DD; the default window is the last 30 days.
func (h *CalendarHandlers) Visits(w http.ResponseWriter, r *http.Request) {
	if h.archive == nil {
		writeError(w, http.StatusNotImplemented, "visit archive is not configured")
		return
	}

	q := r.URL.Query()
	to := time.Now().UTC()
	from := to.AddDate(0, 0, -30)
	var err error
	if raw := q.Get("from"); raw != "" {
		if from, err = parseDay(raw); err != nil {
			writeError(w, http.StatusBadRequest, "invalid from")
			return
		}
	}
	if raw := q.Get("to"); raw != "" {
		if to, err = parseDay(raw); err != nil {
			writeError(w, http.StatusBadRequest, "invalid to")
			return
		}
	}
	if !from.Before(to) {
		writeError(w, http.StatusBadRequest, "from must be before to")
		return
	}
	limit := 0
	if raw := q.Get("limit"); raw != "" {
		if limit, err = strconv.Atoi(raw); err != nil || limit < 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
	}

	sessions, err := h.archive.ListSessions(r.Context(), h.deviceID, from, to, limit)
	if err != nil {
		h.logger.Error("list archived visits failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to read archive")
		return
	}
	writeJSON(w, http.StatusOK, h.formatter.CalendarEvents(sessions))
}

func parseDay(raw string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, raw)
}
