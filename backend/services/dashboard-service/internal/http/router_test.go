package httpserver

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"wastelog/backend/services/dashboard-service/internal/auth"
	"wastelog/backend/services/dashboard-service/internal/domain"
	"wastelog/backend/services/dashboard-service/internal/history"
	"wastelog/backend/services/dashboard-service/internal/http/handlers"
	"wastelog/backend/services/dashboard-service/internal/http/middleware"
)

type emptyCalendar struct{}

func (emptyCalendar) Snapshot() (domain.CalendarSnapshot, bool) {
	return domain.CalendarSnapshot{DeviceID: "dev", Sessions: []domain.VisitSession{}}, true
}

func (emptyCalendar) Refresh(context.Context) (domain.CalendarSnapshot, error) {
	return domain.CalendarSnapshot{DeviceID: "dev", Sessions: []domain.VisitSession{}}, nil
}

func newTestRouter(t *testing.T) (http.Handler, string) {
	t.Helper()
	tokens := auth.NewTokenService("secret", time.Hour)
	token, _, err := tokens.GenerateToken("operator")
	require.NoError(t, err)

	logger := zap.NewNop()
	router := NewRouter(RouterDeps{
		AuthHandlers:     handlers.NewAuthHandlers(nil, tokens, logger),
		CalendarHandlers: handlers.NewCalendarHandlers(emptyCalendar{}, nil, history.NewFormatter(time.UTC), "dev", logger),
		HealthHandler:    handlers.NewHealthHandler(),
	}, middleware.AuthMiddleware(tokens))
	return router, token
}

func TestRouterAccessRules(t *testing.T) {
	router, token := newTestRouter(t)

	cases := []struct {
		name   string
		method string
		target string
		token  string
		status int
	}{
		{name: "health is public", method: http.MethodGet, target: "/health", status: http.StatusOK},
		{name: "metrics is public", method: http.MethodGet, target: "/metrics", status: http.StatusOK},
		{name: "calendar needs token", method: http.MethodGet, target: "/api/calendar", status: http.StatusUnauthorized},
		{name: "calendar with token", method: http.MethodGet, target: "/api/calendar", token: token, status: http.StatusOK},
		{name: "calendar wrong method", method: http.MethodDelete, target: "/api/calendar", token: token, status: http.StatusMethodNotAllowed},
		{name: "logout", method: http.MethodPost, target: "/api/auth/logout", token: token, status: http.StatusNoContent},
		{name: "unknown path", method: http.MethodGet, target: "/api/nope", token: token, status: http.StatusNotFound},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, tc.target, nil)
			if tc.token != "" {
				req.Header.Set("Authorization", "Bearer "+tc.token)
			}
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)
			require.Equal(t, tc.status, rec.Code)
		})
	}
}
