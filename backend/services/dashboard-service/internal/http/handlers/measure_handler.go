package handlers

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"wastelog/backend/services/dashboard-service/internal/domain"
	"wastelog/backend/services/dashboard-service/internal/measure"
)

// Measurer runs a manual volume measurement.
type Measurer interface {
	Measure(ctx context.Context) (domain.CurrentVolume, error)
	Running() bool
}

// NewMeasureHandler handles /api/measure: GET reports whether a measurement
// is running, POST starts one and waits for the result.
func NewMeasureHandler(m Measurer, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			writeJSON(w, http.StatusOK, map[string]bool{"running": m.Running()})
			return
		case http.MethodPost:
		default:
			w.Header().Set("Allow", "GET, POST")
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

		result, err := m.Measure(r.Context())
		switch {
		case err == nil:
			writeJSON(w, http.StatusOK, result)
		case errors.Is(err, measure.ErrInProgress):
			writeError(w, http.StatusConflict, "a measurement is already running")
		case errors.Is(err, measure.ErrNoResult):
			writeError(w, http.StatusNotFound, "no measurement data yet")
		case errors.Is(err, context.Canceled):
			logger.Info("measurement abandoned by client")
		default:
			logger.Error("manual measurement failed", zap.Error(err))
			writeError(w, http.StatusBadGateway, "measurement failed")
		}
	}
}
