package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"wastelog/backend/services/dashboard-service/internal/auth"
)

// CredentialVerifier checks operator credentials.
type CredentialVerifier interface {
	Verify(username, password string) error
}

// TokenIssuer issues session tokens.
type TokenIssuer interface {
	GenerateToken(username string) (string, time.Time, error)
}

// AuthHandlers serves the login endpoints.
type AuthHandlers struct {
	verifier CredentialVerifier
	tokens   TokenIssuer
	logger   *zap.Logger
}

// NewAuthHandlers returns handler struct.
func NewAuthHandlers(verifier CredentialVerifier, tokens TokenIssuer, logger *zap.Logger) *AuthHandlers {
	return &AuthHandlers{verifier: verifier, tokens: tokens, logger: logger}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string    `json:"token"`
	TokenType string    `json:"token_type"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Login handles POST /api/auth/login.
func (h *AuthHandlers) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "username and password are required")
		return
	}

	if err := h.verifier.Verify(req.Username, req.Password); err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			h.logger.Warn("login rejected", zap.String("username", req.Username))
			writeError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to login")
		return
	}

	token, expires, err := h.tokens.GenerateToken(req.Username)
	if err != nil {
		h.logger.Error("issue token failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to login")
		return
	}

	writeJSON(w, http.StatusOK, loginResponse{
		Token:     token,
		TokenType: "Bearer",
		ExpiresAt: expires,
	})
}

// Logout handles POST /api/auth/logout. Tokens are stateless, so the client
// just discards its copy.
func (h *AuthHandlers) Logout(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}
