package services

import (
	"errors"

	"github.com/AtRiskMedia/pulsetrack-go/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/pulsetrack-go/internal/infrastructure/security"
	"github.com/AtRiskMedia/pulsetrack-go/pkg/config"
)

// ErrInvalidCredentials is returned for any failed login, without detail.
var ErrInvalidCredentials = errors.New("invalid credentials")

// AuthService authenticates the admin user and issues bearer tokens.
type AuthService struct {
	logger *logging.ChanneledLogger
}

// NewAuthService creates a new auth service.
func NewAuthService(logger *logging.ChanneledLogger) *AuthService {
	return &AuthService{logger: logger}
}

// Login verifies admin credentials and returns a signed token.
func (s *AuthService) Login(username, password string) (string, error) {
	if config.AdminPasswordHash == "" || config.JWTSecret == "" {
		s.logger.LogAuthOperation("login", username, false)
		return "", errors.New("admin authentication is not configured")
	}

	if username != config.AdminUsername || !security.VerifyPassword(config.AdminPasswordHash, password) {
		s.logger.LogAuthOperation("login", username, false)
		return "", ErrInvalidCredentials
	}

	token, err := security.GenerateAdminToken(username, config.JWTSecret, config.TokenTTL)
	if err != nil {
		s.logger.LogAuthOperation("login", username, false)
		return "", err
	}

	s.logger.LogAuthOperation("login", username, true)
	return token, nil
}

// ValidateToken checks a bearer token and returns the authenticated username.
func (s *AuthService) ValidateToken(tokenString string) (string, error) {
	claims, err := security.ValidateJWT(tokenString, config.JWTSecret)
	if err != nil {
		return "", err
	}
	return security.SubjectFromClaims(claims)
}
