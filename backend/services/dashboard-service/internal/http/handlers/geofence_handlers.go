package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"wastelog/backend/services/dashboard-service/internal/domain"
)

// GeofenceStore is the Node-RED geofence API.
type GeofenceStore interface {
	Geofences(ctx context.Context) ([]domain.Geofence, error)
	CreateGeofence(ctx context.Context, fence domain.Geofence) error
	UpdateGeofence(ctx context.Context, id string, fence domain.Geofence) error
	DeleteGeofence(ctx context.Context, id string) error
}

// RefreshRequester schedules a calendar rebuild.
type RefreshRequester interface {
	RequestRefresh()
}

// GeofenceHandlers manages operating areas.
type GeofenceHandlers struct {
	store     GeofenceStore
	refresher RefreshRequester
	logger    *zap.Logger
}

// NewGeofenceHandlers returns handler struct.
func NewGeofenceHandlers(store GeofenceStore, refresher RefreshRequester, logger *zap.Logger) *GeofenceHandlers {
	return &GeofenceHandlers{store: store, refresher: refresher, logger: logger}
}

// List handles GET /api/geofences.
func (h *GeofenceHandlers) List(w http.ResponseWriter, r *http.Request) {
	fences, err := h.store.Geofences(r.Context())
	if err != nil {
		h.logger.Error("list geofences failed", zap.Error(err))
		writeUpstreamError(w, err, "geofences not found")
		return
	}
	views := make([]domain.GeofenceView, 0, len(fences))
	for _, f := range fences {
		views = append(views, domain.NewGeofenceView(f))
	}
	writeJSON(w, http.StatusOK, views)
}

// Create handles POST /api/geofences.
func (h *GeofenceHandlers) Create(w http.ResponseWriter, r *http.Request) {
	fence, ok := h.readFence(w, r)
	if !ok {
		return
	}
	fence.ID = ""
	if err := h.store.CreateGeofence(r.Context(), fence); err != nil {
		h.logger.Error("create geofence failed", zap.Error(err))
		writeUpstreamError(w, err, "geofence not found")
		return
	}
	h.changed("created", fence.Name)
	writeJSON(w, http.StatusCreated, domain.NewGeofenceView(fence))
}

// Update handles PUT /api/geofences/{id}.
func (h *GeofenceHandlers) Update(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.PathValue("id"))
	if id == "" {
		writeError(w, http.StatusBadRequest, "geofence id is required")
		return
	}
	fence, ok := h.readFence(w, r)
	if !ok {
		return
	}
	if err := h.store.UpdateGeofence(r.Context(), id, fence); err != nil {
		h.logger.Error("update geofence failed", zap.String("id", id), zap.Error(err))
		writeUpstreamError(w, err, "geofence not found")
		return
	}
	fence.ID = id
	h.changed("updated", fence.Name)
	writeJSON(w, http.StatusOK, domain.NewGeofenceView(fence))
}

// Delete handles DELETE /api/geofences/{id}.
func (h *GeofenceHandlers) Delete(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.PathValue("id"))
	if id == "" {
		writeError(w, http.StatusBadRequest, "geofence id is required")
		return
	}
	if err := h.store.DeleteGeofence(r.Context(), id); err != nil {
		h.logger.Error("delete geofence failed", zap.String("id", id), zap.Error(err))
		writeUpstreamError(w, err, "geofence not found")
		return
	}
	h.changed("deleted", id)
	w.WriteHeader(http.StatusNoContent)
}

// Item dispatches /api/geofences/{id} by method.
func (h *GeofenceHandlers) Item(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPut:
		h.Update(w, r)
	case http.MethodDelete:
		h.Delete(w, r)
	default:
		w.Header().Set("Allow", "PUT, DELETE")
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// Collection dispatches /api/geofences by method.
func (h *GeofenceHandlers) Collection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.List(w, r)
	case http.MethodPost:
		h.Create(w, r)
	default:
		w.Header().Set("Allow", "GET, POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *GeofenceHandlers) readFence(w http.ResponseWriter, r *http.Request) (domain.Geofence, bool) {
	var fence domain.Geofence
	if err := decodeJSON(w, r, &fence); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return domain.Geofence{}, false
	}
	fence.Name = strings.TrimSpace(fence.Name)
	if err := fence.Validate(); err != nil {
		var verr *domain.ValidationError
		if errors.As(err, &verr) {
			writeJSON(w, http.StatusBadRequest, map[string]interface{}{
				"error":    "invalid geofence",
				"problems": verr.Problems,
			})
			return domain.Geofence{}, false
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return domain.Geofence{}, false
	}
	return fence, true
}

func (h *GeofenceHandlers) changed(action, name string) {
	h.logger.Info("geofence "+action, zap.String("geofence", name))
	if h.refresher != nil {
		h.refresher.RequestRefresh()
	}
}
