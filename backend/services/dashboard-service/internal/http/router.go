package httpserver

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"wastelog/backend/services/dashboard-service/internal/http/handlers"
	"wastelog/backend/services/dashboard-service/internal/http/middleware"
)

// RouterDeps collects handler dependencies.
type RouterDeps struct {
	AuthHandlers     *handlers.AuthHandlers
	GeofenceHandlers *handlers.GeofenceHandlers
	CalendarHandlers *handlers.CalendarHandlers
	LocationHandlers *handlers.LocationHandlers
	MeasureHandler   http.HandlerFunc
	HealthHandler    http.HandlerFunc
	LocationSocket   http.HandlerFunc
	// StaticDir, when set, is served at / for the dashboard front end.
	StaticDir string
}

// NewRouter wires HTTP routes with middleware.
func NewRouter(deps RouterDeps, authMiddleware func(http.Handler) http.Handler) http.Handler {
	mux := http.NewServeMux()

	mux.Handle("/health", method(http.MethodGet, deps.HealthHandler))
	mux.Handle("/metrics", method(http.MethodGet, promhttp.Handler()))

	mux.Handle("/api/auth/login", method(http.MethodPost, http.HandlerFunc(deps.AuthHandlers.Login)))

	authenticated := func(handler http.HandlerFunc) http.Handler {
		return middleware.Chain(handler, authMiddleware)
	}

	mux.Handle("/api/auth/logout", method(http.MethodPost, authenticated(deps.AuthHandlers.Logout)))

	mux.Handle("/api/geofences", authenticated(deps.GeofenceHandlers.Collection))
	mux.Handle("/api/geofences/{id}", authenticated(deps.GeofenceHandlers.Item))

	mux.Handle("/api/calendar", method(http.MethodGet, authenticated(deps.CalendarHandlers.Calendar)))
	mux.Handle("/api/calendar/refresh", method(http.MethodPost, authenticated(deps.CalendarHandlers.Refresh)))
	mux.Handle("/api/visits", method(http.MethodGet, authenticated(deps.CalendarHandlers.Visits)))

	mux.Handle("/api/location", method(http.MethodGet, authenticated(deps.LocationHandlers.Location)))
	mux.Handle("/api/realtime/status", method(http.MethodGet, authenticated(deps.LocationHandlers.RealtimeStatus)))
	mux.Handle("/api/measure", authenticated(deps.MeasureHandler))

	mux.Handle("/ws/location", method(http.MethodGet, authenticated(deps.LocationSocket)))

	if deps.StaticDir != "" {
		mux.Handle("/", http.FileServer(http.Dir(deps.StaticDir)))
	}

	return mux
}

func method(expected string, handler http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != expected {
			w.Header().Set("Allow", expected)
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		handler.ServeHTTP(w, r)
	})
}
