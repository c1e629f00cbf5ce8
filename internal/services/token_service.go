package services

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/feedloop/securenotes/internal/models"
	"github.com/golang-jwt/jwt/v5"
)

// MinKeyLength is the smallest HS256 key accepted, in bytes.
const MinKeyLength = 32

// tokenClaims is the wire payload: sub, username, roles, iat, exp.
type tokenClaims struct {
	Username string   `json:"username"`
	Roles    []string `json:"roles"`
	jwt.RegisteredClaims
}

// TokenService issues and validates HS256 tokens. The key is fixed for the
// life of the process, so a TokenService is safe for concurrent use.
type TokenService struct {
	key []byte
	ttl time.Duration
	now func() time.Time
}

type TokenServiceOption func(*TokenService)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) TokenServiceOption {
	return func(s *TokenService) {
		s.now = now
	}
}

func NewTokenService(key []byte, ttl time.Duration, opts ...TokenServiceOption) (*TokenService, error) {
	if len(key) < MinKeyLength {
		return nil, fmt.Errorf("%w: got %d bytes", models.ErrWeakSigningKey, len(key))
	}
	if ttl < 0 {
		return nil, fmt.Errorf("token ttl must not be negative: %s", ttl)
	}
	s := &TokenService{
		key: append([]byte(nil), key...),
		ttl: ttl,
		now: time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// TTL returns the default token lifetime.
func (s *TokenService) TTL() time.Duration {
	return s.ttl
}

// Issue signs a token for the given principal with the default TTL.
func (s *TokenService) Issue(id int64, username string, roles []models.Role) (string, *models.Claims, error) {
	return s.IssueWithTTL(id, username, roles, s.ttl)
}

// IssueWithTTL signs a token that expires ttl after issuance.
func (s *TokenService) IssueWithTTL(id int64, username string, roles []models.Role, ttl time.Duration) (string, *models.Claims, error) {
	roles = models.NormalizeRoles(roles)
	issuedAt := s.now().Truncate(time.Second)
	expiresAt := issuedAt.Add(ttl).Truncate(time.Second)

	claims := tokenClaims{
		Username: username,
		Roles:    models.RoleStrings(roles),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(id, 10),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.key)
	if err != nil {
		return "", nil, fmt.Errorf("signing token: %w", err)
	}

	return tokenString, &models.Claims{
		Subject:   claims.Subject,
		Username:  username,
		Roles:     roles,
		IssuedAt:  issuedAt,
		ExpiresAt: expiresAt,
	}, nil
}

// Parse validates the signature first and the expiry second. Errors are
// one of models.ErrMalformedToken, models.ErrInvalidSignature or
// models.ErrExpiredToken.
func (s *TokenService) Parse(tokenString string) (*models.Claims, error) {
	var claims tokenClaims
	_, err := jwt.ParseWithClaims(tokenString, &claims,
		func(token *jwt.Token) (interface{}, error) {
			return s.key, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, classifyParseError(err)
	}

	roles, err := models.ParseRoles(claims.Roles)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrMalformedToken, err)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", models.ErrMalformedToken)
	}

	out := &models.Claims{
		Subject:   claims.Subject,
		Username:  claims.Username,
		Roles:     roles,
		ExpiresAt: claims.ExpiresAt.Time,
	}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.Time
	}
	return out, nil
}

func classifyParseError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return fmt.Errorf("%w: %v", models.ErrInvalidSignature, err)
	case errors.Is(err, jwt.ErrTokenExpired):
		return fmt.Errorf("%w: %v", models.ErrExpiredToken, err)
	default:
		return fmt.Errorf("%w: %v", models.ErrMalformedToken, err)
	}
}
