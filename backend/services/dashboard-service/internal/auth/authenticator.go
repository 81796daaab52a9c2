package auth

import (
	"crypto/subtle"
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidCredentials is returned for any failed login.
var ErrInvalidCredentials = errors.New("auth: invalid credentials")

// Authenticator checks the single operator account configured for the dashboard.
type Authenticator struct {
	username     string
	passwordHash []byte
}

// NewAuthenticator returns an authenticator for username and a bcrypt hash.
func NewAuthenticator(username, passwordHash string) (*Authenticator, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, errors.New("auth: username is required")
	}
	if _, err := bcrypt.Cost([]byte(passwordHash)); err != nil {
		return nil, errors.New("auth: password hash is not a bcrypt hash")
	}
	return &Authenticator{username: username, passwordHash: []byte(passwordHash)}, nil
}

// HashPassword returns a bcrypt hash suitable for the configuration file.
func HashPassword(password string, cost int) (string, error) {
	if password == "" {
		return "", errors.New("auth: empty password")
	}
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// Verify checks the credentials.
func (a *Authenticator) Verify(username, password string) error {
	userOK := subtle.ConstantTimeCompare([]byte(strings.TrimSpace(username)), []byte(a.username)) == 1
	// always run bcrypt so a wrong username costs the same as a wrong password
	passErr := bcrypt.CompareHashAndPassword(a.passwordHash, []byte(password))
	if !userOK || passErr != nil {
		return ErrInvalidCredentials
	}
	return nil
}
