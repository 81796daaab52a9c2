package handlers

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"wastelog/backend/services/dashboard-service/internal/domain"
	"wastelog/backend/services/dashboard-service/internal/realtime"
)

// Relay is the browser-facing side of the location feed.
type Relay interface {
	Last() (domain.Location, bool)
	Len() int
}

// LocationFetcher reads the position directly from Node-RED.
type LocationFetcher interface {
	RealtimeLocation(ctx context.Context, deviceID string) (domain.Location, error)
}

// StatusReporter exposes the upstream connection health.
type StatusReporter interface {
	Status() realtime.Status
}

// LocationHandlers serves the vehicle position.
type LocationHandlers struct {
	relay    Relay
	fetcher  LocationFetcher
	status   StatusReporter
	deviceID string
	logger   *zap.Logger
}

// NewLocationHandlers returns handler struct.
func NewLocationHandlers(relay Relay, fetcher LocationFetcher, status StatusReporter, deviceID string, logger *zap.Logger) *LocationHandlers {
	return &LocationHandlers{relay: relay, fetcher: fetcher, status: status, deviceID: deviceID, logger: logger}
}

// Location handles GET /api/location.
func (h *LocationHandlers) Location(w http.ResponseWriter, r *http.Request) {
	if loc, ok := h.relay.Last(); ok {
		writeJSON(w, http.StatusOK, loc)
		return
	}
	loc, err := h.fetcher.RealtimeLocation(r.Context(), h.deviceID)
	if err != nil {
		h.logger.Warn("fetch realtime location failed", zap.Error(err))
		writeUpstreamError(w, err, "no location reported yet")
		return
	}
	if !loc.Usable() {
		writeError(w, http.StatusNotFound, "no location reported yet")
		return
	}
	writeJSON(w, http.StatusOK, loc)
}

type realtimeStatusResponse struct {
	realtime.Status
	BrowserClients int `json:"browserClients"`
}

// RealtimeStatus handles GET /api/realtime/status.
func (h *LocationHandlers) RealtimeStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, realtimeStatusResponse{
		Status:         h.status.Status(),
		BrowserClients: h.relay.Len(),
	})
}
