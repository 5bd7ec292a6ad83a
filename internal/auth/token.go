package auth

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/spec-kit/incident-service/internal/domain"
)

// TokenManager handles issuing and validating JWT access tokens and minting
// opaque refresh token values.
type TokenManager struct {
	secret   []byte
	issuer   string
	audience string
	ttl      time.Duration
}

// NewTokenManager builds a new manager.
func NewTokenManager(secret, issuer, audience string, ttl time.Duration) *TokenManager {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &TokenManager{
		secret:   []byte(secret),
		issuer:   issuer,
		audience: audience,
		ttl:      ttl,
	}
}

// AccessClaims describes the JWT payload. ID carries the user id, name the
// username; roles holds one entry per role and extra carries claims granted
// directly to the user.
type AccessClaims struct {
	UserID   string            `json:"ID"`
	UserName string            `json:"name"`
	Roles    []string          `json:"roles"`
	Extra    map[string]string `json:"extra,omitempty"`
	jwt.RegisteredClaims
}

// GenerateAccessToken builds and signs a JWT asserting the user's identity,
// roles and granted claims.
func (tm *TokenManager) GenerateAccessToken(user *domain.User) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(tm.ttl)
	claims := &AccessClaims{
		UserID:   user.ID.String(),
		UserName: user.UserName,
		Roles:    user.Roles,
		Extra:    user.Claims,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			Issuer:    tm.issuer,
			Audience:  jwt.ClaimStrings{tm.audience},
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(tm.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return tokenString, expiresAt, nil
}

// ParseToken validates signature, issuer, audience and expiry, returning the claims.
func (tm *TokenManager) ParseToken(tokenStr string) (*AccessClaims, error) {
	return tm.parse(tokenStr, false)
}

// ParseExpiredToken validates signature, issuer and audience while explicitly
// ignoring expiry. Used only by the refresh flow, which re-authenticates the
// caller against the stored refresh token.
func (tm *TokenManager) ParseExpiredToken(tokenStr string) (*AccessClaims, error) {
	return tm.parse(tokenStr, true)
}

func (tm *TokenManager) parse(tokenStr string, allowExpired bool) (*AccessClaims, error) {
	opts := []jwt.ParserOption{
		jwt.WithIssuer(tm.issuer),
		jwt.WithAudience(tm.audience),
	}
	if allowExpired {
		opts = append(opts, jwt.WithoutClaimsValidation())
	}

	parsed, err := jwt.ParseWithClaims(tokenStr, &AccessClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return tm.secret, nil
	}, opts...)
	if err != nil {
		return nil, err
	}

	claims, ok := parsed.Claims.(*AccessClaims)
	if !ok || !parsed.Valid {
		return nil, errors.New("invalid token claims")
	}
	if allowExpired {
		// WithoutClaimsValidation skips issuer/audience too; check them here.
		if claims.Issuer != tm.issuer {
			return nil, errors.New("invalid token issuer")
		}
		if !containsAudience(claims.Audience, tm.audience) {
			return nil, errors.New("invalid token audience")
		}
	}
	return claims, nil
}

func containsAudience(aud jwt.ClaimStrings, expected string) bool {
	for _, a := range aud {
		if a == expected {
			return true
		}
	}
	return false
}

// GenerateRefreshToken returns an opaque random value with 256 bits of
// entropy, base64-encoded. It carries no claims; it only re-mints an access
// token.
func GenerateRefreshToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(buf), nil
}
