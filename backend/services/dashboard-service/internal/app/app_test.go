package app

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"wastelog/backend/services/dashboard-service/internal/auth"
	"wastelog/backend/services/dashboard-service/internal/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	hash, err := auth.HashPassword("rahasia", bcrypt.MinCost)
	require.NoError(t, err)

	cfg := config.Defaults()
	cfg.NodeRed.BaseURL = "http://127.0.0.1:1"
	cfg.Auth.Username = "operator"
	cfg.Auth.PasswordHash = hash
	cfg.Auth.JWTSecret = "secret"
	require.NoError(t, cfg.Validate())
	return cfg
}

func TestNewWithoutOptionalStores(t *testing.T) {
	a, err := New(testConfig(t), zap.NewNop())
	require.NoError(t, err)
	defer a.Close()

	rec := httptest.NewRecorder()
	a.server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	rec = httptest.NewRecorder()
	a.server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/calendar", nil))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestNewRejectsBadPasswordHash(t *testing.T) {
	cfg := testConfig(t)
	cfg.Auth.PasswordHash = "plaintext"
	_, err := New(cfg, zap.NewNop())
	require.Error(t, err)
}

func TestNewFailsOnUnreachableRedis(t *testing.T) {
	cfg := testConfig(t)
	cfg.Redis.Addr = "127.0.0.1:1"
	_, err := New(cfg, zap.NewNop())
	require.ErrorContains(t, err, "connect redis")
}
