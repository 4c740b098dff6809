package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/pioneer-isp/helpdesk/internal/auth"
	"github.com/pioneer-isp/helpdesk/internal/domain"
	apperrors "github.com/pioneer-isp/helpdesk/pkg/util/errorutil"
)

// CredentialStore looks up the stored account for a username. The returned
// member carries the bcrypt hash; the plaintext password never leaves AuthService.
type CredentialStore interface {
	Credentials(ctx context.Context, username string) (*domain.StaffMember, error)
}

// AuthService exchanges username and password for a bearer token.
type AuthService struct {
	credentials CredentialStore
	tokenMgr    *auth.TokenManager
	logger      *zap.Logger
}

// NewAuthService builds the service.
func NewAuthService(credentials CredentialStore, tokenMgr *auth.TokenManager, logger *zap.Logger) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{credentials: credentials, tokenMgr: tokenMgr, logger: logger}
}

// Login authenticates staff. Unknown users, wrong passwords and disabled
// accounts all fail with the same error.
func (s *AuthService) Login(ctx context.Context, username, password string) (*domain.StaffMember, domain.Token, error) {
	invalid := apperrors.NewUnauthorized("invalid credentials")

	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, domain.Token{}, invalid
	}

	staff, err := s.credentials.Credentials(ctx, username)
	if err != nil {
		if apperrors.IsNoRows(err) {
			s.logger.Info("login rejected", zap.String("username", username), zap.String("reason", "unknown user"))
			return nil, domain.Token{}, invalid
		}
		return nil, domain.Token{}, apperrors.MapError(err)
	}
	if !auth.PasswordMatches(staff.PasswordHash, password) {
		s.logger.Info("login rejected", zap.String("username", username), zap.String("reason", "bad password"))
		return nil, domain.Token{}, invalid
	}
	if !staff.Active {
		s.logger.Info("login rejected", zap.String("username", username), zap.String("reason", "inactive"))
		return nil, domain.Token{}, invalid
	}

	token, err := s.tokenMgr.GenerateToken(staff)
	if err != nil {
		return nil, domain.Token{}, apperrors.NewInternalError(err)
	}
	s.logger.Info("login", zap.String("username", staff.Username), zap.String("group", staff.Group))
	return staff, token, nil
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}
