package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/madcrow/auth-service/internal/domain"
	"github.com/madcrow/auth-service/internal/ports"
)

// JWTTokenService implements HS256 token signing/parsing for auth sessions.
// The secret key is held at adapter level so the application layer stays
// crypto-library agnostic. The service itself is stateless.
type JWTTokenService struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	nowFn      func() time.Time
}

// NewJWTTokenService builds a signer from the configured secret and TTLs.
func NewJWTTokenService(secret string, accessTTL, refreshTTL time.Duration) (*JWTTokenService, error) {
	if secret == "" {
		return nil, errors.New("jwt secret key is required")
	}
	if accessTTL <= 0 {
		accessTTL = time.Hour
	}
	if refreshTTL <= 0 {
		refreshTTL = 30 * 24 * time.Hour
	}
	return &JWTTokenService{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		nowFn:      func() time.Time { return time.Now().UTC() },
	}, nil
}

// WithNow overrides the clock. Tests use this to exercise expiry.
func (s *JWTTokenService) WithNow(nowFn func() time.Time) *JWTTokenService {
	s.nowFn = nowFn
	return s
}

type authJWTClaims struct {
	Email     string `json:"email,omitempty"`
	Name      string `json:"name,omitempty"`
	IsAdmin   bool   `json:"is_admin,omitempty"`
	TokenType string `json:"token_type"`
	jwt.RegisteredClaims
}

// IssuePair signs a fresh access+refresh token pair for the account.
// The refresh token carries only the subject id and a type marker; the
// returned id is its jti for the single-use registry.
func (s *JWTTokenService) IssuePair(account domain.Account) (domain.TokenPair, string, error) {
	now := s.nowFn()

	accessToken, err := s.sign(authJWTClaims{
		Email:     account.Email,
		Name:      account.Name,
		IsAdmin:   account.IsAdmin,
		TokenType: string(ports.TokenTypeAccess),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   account.ID.String(),
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.accessTTL)),
		},
	})
	if err != nil {
		return domain.TokenPair{}, "", fmt.Errorf("sign access token: %w", err)
	}

	refreshID := uuid.NewString()
	refreshToken, err := s.sign(authJWTClaims{
		TokenType: string(ports.TokenTypeRefresh),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   account.ID.String(),
			ID:        refreshID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.refreshTTL)),
		},
	})
	if err != nil {
		return domain.TokenPair{}, "", fmt.Errorf("sign refresh token: %w", err)
	}

	return domain.TokenPair{
		AccessToken:      accessToken,
		RefreshToken:     refreshToken,
		TokenType:        "Bearer",
		ExpiresIn:        int64(s.accessTTL.Seconds()),
		RefreshExpiresIn: int64(s.refreshTTL.Seconds()),
	}, refreshID, nil
}

// Validate verifies signature, expiry and token type.
func (s *JWTTokenService) Validate(raw string, expected ports.TokenType) (ports.TokenClaims, error) {
	parsed, err := jwt.ParseWithClaims(raw, &authJWTClaims{}, func(token *jwt.Token) (any, error) {
		if token.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, fmt.Errorf("unexpected signing method: %s", token.Method.Alg())
		}
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.nowFn))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return ports.TokenClaims{}, domain.ErrTokenExpired
		}
		return ports.TokenClaims{}, domain.ErrTokenInvalid
	}

	claims, ok := parsed.Claims.(*authJWTClaims)
	if !ok || !parsed.Valid {
		return ports.TokenClaims{}, domain.ErrTokenInvalid
	}
	if claims.TokenType != string(expected) {
		return ports.TokenClaims{}, domain.ErrTokenInvalid
	}
	if claims.Subject == "" || claims.ExpiresAt == nil || claims.IssuedAt == nil {
		return ports.TokenClaims{}, domain.ErrTokenInvalid
	}

	return ports.TokenClaims{
		Subject:   claims.Subject,
		Email:     claims.Email,
		Name:      claims.Name,
		IsAdmin:   claims.IsAdmin,
		TokenID:   claims.ID,
		TokenType: ports.TokenType(claims.TokenType),
		IssuedAt:  claims.IssuedAt.Unix(),
		ExpiresAt: claims.ExpiresAt.Unix(),
	}, nil
}

// RefreshTTL exposes the configured refresh lifetime for the jti registry.
func (s *JWTTokenService) RefreshTTL() time.Duration {
	return s.refreshTTL
}

func (s *JWTTokenService) sign(claims authJWTClaims) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}
