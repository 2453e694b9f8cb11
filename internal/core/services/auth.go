package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/custodia-labs/countersign/internal/core/domain"
	"github.com/custodia-labs/countersign/internal/core/ports/driven"
	"github.com/custodia-labs/countersign/internal/core/ports/driving"
)

// Ensure authService implements AuthService
var _ driving.AuthService = (*authService)(nil)

// DefaultSessionTTL is how long an owner stays logged in
const DefaultSessionTTL = 24 * time.Hour

// authService issues and checks owner sessions. Recipients never log in;
// their signing link is their credential.
type authService struct {
	userStore    driven.UserStore
	sessionStore driven.SessionStore
	authAdapter  driven.AuthAdapter
	sessionTTL   time.Duration
	logger       *slog.Logger
}

// AuthServiceConfig holds configuration for the auth service.
type AuthServiceConfig struct {
	UserStore    driven.UserStore
	SessionStore driven.SessionStore
	AuthAdapter  driven.AuthAdapter
	SessionTTL   time.Duration // Lifetime of a login (default: 24h)
	Logger       *slog.Logger
}

// NewAuthService creates a new AuthService
func NewAuthService(cfg AuthServiceConfig) driving.AuthService {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	ttl := cfg.SessionTTL
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &authService{
		userStore:    cfg.UserStore,
		sessionStore: cfg.SessionStore,
		authAdapter:  cfg.AuthAdapter,
		sessionTTL:   ttl,
		logger:       logger,
	}
}

// Authenticate checks an owner's credentials and opens a session
func (s *authService) Authenticate(ctx context.Context, req domain.LoginRequest) (*domain.LoginResponse, error) {
	if req.Email == "" || req.Password == "" {
		return nil, domain.ErrInvalidInput
	}

	owner, err := s.userStore.GetByEmail(ctx, normalizeEmail(req.Email))
	if err != nil {
		return nil, domain.ErrInvalidCredentials
	}
	if !owner.Active {
		return nil, domain.ErrUnauthorized
	}
	if !s.authAdapter.VerifyPassword(req.Password, owner.PasswordHash) {
		return nil, domain.ErrInvalidCredentials
	}

	session, err := s.openSession(ctx, owner)
	if err != nil {
		return nil, err
	}

	if err := s.userStore.UpdateLastLogin(ctx, owner.ID); err != nil {
		s.logger.Warn("failed to record last login", "user_id", owner.ID, "error", err)
	}
	s.logger.Info("owner logged in", "user_id", owner.ID, "session_id", session.ID)

	return &domain.LoginResponse{
		Token:     session.Token,
		ExpiresAt: session.ExpiresAt,
		User:      owner.ToSummary(),
	}, nil
}

func (s *authService) openSession(ctx context.Context, owner *domain.User) (*domain.Session, error) {
	now := time.Now()
	session := &domain.Session{
		ID:        domain.GenerateID(),
		UserID:    owner.ID,
		ExpiresAt: now.Add(s.sessionTTL),
		CreatedAt: now,
	}

	token, err := s.authAdapter.GenerateToken(&domain.TokenClaims{
		UserID:    owner.ID,
		Email:     owner.Email,
		Name:      owner.Name,
		SessionID: session.ID,
		IssuedAt:  now.Unix(),
		ExpiresAt: session.ExpiresAt.Unix(),
	})
	if err != nil {
		return nil, err
	}
	session.Token = token

	if err := s.sessionStore.Save(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// ValidateToken resolves a bearer token to the owner behind it. The token
// must carry a valid signature and its session must still exist.
func (s *authService) ValidateToken(ctx context.Context, token string) (*domain.AuthContext, error) {
	if token == "" {
		return nil, domain.ErrTokenInvalid
	}

	claims, err := s.authAdapter.ParseToken(token)
	switch {
	case errors.Is(err, domain.ErrTokenExpired):
		return nil, domain.ErrTokenExpired
	case err != nil:
		return nil, domain.ErrTokenInvalid
	case time.Now().Unix() > claims.ExpiresAt:
		return nil, domain.ErrTokenExpired
	}

	session, err := s.sessionStore.Get(ctx, claims.SessionID)
	if err != nil {
		return nil, domain.ErrSessionNotFound
	}
	if session.IsExpired() {
		return nil, domain.ErrTokenExpired
	}

	return &domain.AuthContext{
		UserID:    claims.UserID,
		Email:     claims.Email,
		Name:      claims.Name,
		SessionID: claims.SessionID,
	}, nil
}

// Logout ends the session behind token. Unparseable tokens are ignored.
func (s *authService) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}

	claims, err := s.authAdapter.ParseToken(token)
	if err != nil {
		return nil
	}

	if err := s.sessionStore.Delete(ctx, claims.SessionID); err != nil {
		return err
	}
	s.logger.Info("owner logged out", "user_id", claims.UserID, "session_id", claims.SessionID)
	return nil
}
