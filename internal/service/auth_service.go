package service

import (
	"context"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/incident-service/internal/auth"
	"github.com/spec-kit/incident-service/internal/config"
	"github.com/spec-kit/incident-service/internal/domain"
	"github.com/spec-kit/incident-service/internal/repository"
	apperrors "github.com/spec-kit/incident-service/pkg/util"
)

const (
	userNameMinLen = 3
	passwordMinLen = 6
)

// The login failure message is identical for unknown email, wrong password
// and inactive accounts so responses cannot be used to enumerate users.
const invalidCredentialsMsg = "invalid credentials"

// AuthResult carries both tokens plus the caller-facing identity.
type AuthResult struct {
	Token        string
	ExpiresAt    time.Time
	RefreshToken string
	UserName     string
	Roles        []string
}

// AuthService coordinates registration, login and the refresh token
// lifecycle. Each user holds at most one live refresh token; login and
// refresh both rotate it, permanently invalidating the prior value.
type AuthService struct {
	users      repository.UserRepository
	tokenMgr   *auth.TokenManager
	bcryptCost int
	refreshTTL time.Duration
	logger     *zap.Logger
}

// NewAuthService builds the service.
func NewAuthService(cfg config.AuthConfig, users repository.UserRepository, logger *zap.Logger) *AuthService {
	return &AuthService{
		users:      users,
		tokenMgr:   auth.NewTokenManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTAudience, cfg.AccessTokenTTL()),
		bcryptCost: cfg.BcryptCost,
		refreshTTL: cfg.RefreshTokenTTL(),
		logger:     logger,
	}
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}

// Register creates a new account with the default Employee role.
func (s *AuthService) Register(ctx context.Context, userName, email, password string) (*domain.User, error) {
	if err := validateRegistration(userName, email, password); err != nil {
		return nil, err
	}

	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, apperrors.NewValidationError("email already registered", nil)
	} else if err != pgx.ErrNoRows {
		return nil, apperrors.MapError(err)
	}
	if _, err := s.users.GetByUserName(ctx, userName); err == nil {
		return nil, apperrors.NewValidationError("username already taken", nil)
	} else if err != pgx.ErrNoRows {
		return nil, apperrors.MapError(err)
	}

	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	user := &domain.User{
		ID:           uuid.New(),
		UserName:     userName,
		Email:        email,
		PasswordHash: hash,
		IsActive:     true,
		Roles:        []string{domain.RoleEmployee},
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, apperrors.MapError(err)
	}

	s.logger.Info("user registered", zap.String("user_id", user.ID.String()))
	return user, nil
}

// Login verifies credentials and issues a fresh access/refresh token pair.
// The new refresh token overwrites any previously stored one.
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if err == pgx.ErrNoRows {
			s.logger.Warn("login failed: unknown email")
			return nil, apperrors.NewUnauthorized(invalidCredentialsMsg)
		}
		return nil, apperrors.MapError(err)
	}
	if !user.IsActive {
		s.logger.Warn("login failed: inactive account", zap.String("user_id", user.ID.String()))
		return nil, apperrors.NewUnauthorized(invalidCredentialsMsg)
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		s.logger.Warn("login failed: password mismatch", zap.String("user_id", user.ID.String()))
		return nil, apperrors.NewUnauthorized(invalidCredentialsMsg)
	}

	return s.issueTokenPair(ctx, user)
}

// Refresh validates an expired access token's signature, issuer and audience
// (ignoring its expiry), checks the presented refresh token against the
// stored one, and rotates both tokens.
func (s *AuthService) Refresh(ctx context.Context, accessToken, refreshToken string) (*AuthResult, error) {
	claims, err := s.tokenMgr.ParseExpiredToken(accessToken)
	if err != nil {
		s.logger.Warn("refresh failed: access token rejected", zap.Error(err))
		return nil, apperrors.NewUnauthorized("invalid access token")
	}

	user, err := s.users.GetByUserName(ctx, claims.UserName)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.NewUnauthorized("invalid refresh token")
		}
		return nil, apperrors.MapError(err)
	}

	if user.RefreshToken == nil || *user.RefreshToken != refreshToken ||
		user.RefreshTokenExpiryDate == nil || !user.RefreshTokenExpiryDate.After(time.Now()) {
		s.logger.Warn("refresh failed: refresh token rejected", zap.String("user_id", user.ID.String()))
		return nil, apperrors.NewUnauthorized("invalid refresh token")
	}

	result, err := s.issueTokenPair(ctx, user)
	if err != nil {
		return nil, err
	}
	s.logger.Info("access token refreshed", zap.String("user_id", user.ID.String()))
	return result, nil
}

// IssueAccessToken mints a signed access token for the given user id.
func (s *AuthService) IssueAccessToken(ctx context.Context, userID uuid.UUID) (string, time.Time, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if err == pgx.ErrNoRows {
			return "", time.Time{}, apperrors.NewNotFound("user", map[string]any{"id": userID.String()})
		}
		return "", time.Time{}, apperrors.MapError(err)
	}
	token, expiresAt, err := s.tokenMgr.GenerateAccessToken(user)
	if err != nil {
		return "", time.Time{}, apperrors.NewInternalError(err)
	}
	return token, expiresAt, nil
}

func (s *AuthService) issueTokenPair(ctx context.Context, user *domain.User) (*AuthResult, error) {
	refreshToken, err := auth.GenerateRefreshToken()
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	expiry := time.Now().Add(s.refreshTTL)
	if err := s.users.SaveRefreshToken(ctx, user.ID, refreshToken, expiry); err != nil {
		return nil, apperrors.MapError(err)
	}

	token, expiresAt, err := s.tokenMgr.GenerateAccessToken(user)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	return &AuthResult{
		Token:        token,
		ExpiresAt:    expiresAt,
		RefreshToken: refreshToken,
		UserName:     user.UserName,
		Roles:        user.Roles,
	}, nil
}

func validateRegistration(userName, email, password string) error {
	details := map[string]any{}
	if len(strings.TrimSpace(userName)) < userNameMinLen {
		details["user_name"] = "username must be at least 3 characters long"
	}
	if !strings.Contains(email, "@") {
		details["email"] = "email must be a valid email address"
	}
	if msg := passwordPolicyViolation(password); msg != "" {
		details["password"] = msg
	}
	if len(details) > 0 {
		return apperrors.NewValidationError("registration failed validation", details)
	}
	return nil
}

func passwordPolicyViolation(password string) string {
	if len(password) < passwordMinLen {
		return "password must be at least 6 characters long"
	}
	var hasUpper, hasLower, hasDigit, hasSymbol bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		default:
			hasSymbol = true
		}
	}
	switch {
	case !hasUpper:
		return "password must contain at least one uppercase letter"
	case !hasLower:
		return "password must contain at least one lowercase letter"
	case !hasDigit:
		return "password must contain at least one digit"
	case !hasSymbol:
		return "password must contain at least one non-alphanumeric character"
	}
	return ""
}
