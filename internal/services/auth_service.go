package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/feedloop/securenotes/internal/audit"
	"github.com/feedloop/securenotes/internal/models"
	"go.uber.org/zap"
)

const (
	// TestTokenSubject is the fixed subject id carried by minted test tokens.
	TestTokenSubject int64 = 999
	TestTokenTTL           = 30 * time.Minute

	reasonBadCredentials   = "bad credentials"
	reasonMissingUsername  = "missing username"
	reasonStoreUnavailable = "credential store unavailable"

	minUsernameLength = 3
	maxUsernameLength = 64
)

// fallbackDummyHash is a bcrypt hash at the default cost, used when the
// hasher cannot produce its own dummy hash.
const fallbackDummyHash = "$2a$10$XajjQvNhvvRt5GSeFk1xFeyqRrsxkhBkUiQeg0dt.wU1qD4aFDcga"

// AuthService verifies credentials, registers accounts and mints tokens.
// It is the only place LOGIN_SUCCESS and LOGIN_FAILURE are recorded.
type AuthService struct {
	users     UserStore
	hasher    PasswordHasher
	tokens    *TokenService
	trail     audit.Trail
	logger    *zap.Logger
	dummyHash string
}

func NewAuthService(users UserStore, hasher PasswordHasher, tokens *TokenService, trail audit.Trail, logger *zap.Logger) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if trail == nil {
		trail = audit.Nop{}
	}

	// Compared against when the username is unknown so both failure paths
	// cost one hash comparison.
	dummyHash, err := hasher.Hash("securenotes-unknown-user")
	if err != nil {
		logger.Warn("Failed to prepare dummy password hash, using fallback", zap.Error(err))
		dummyHash = fallbackDummyHash
	}

	return &AuthService{
		users:     users,
		hasher:    hasher,
		tokens:    tokens,
		trail:     trail,
		logger:    logger,
		dummyHash: dummyHash,
	}
}

// Authenticate checks identifier and secret against the credential store.
// Unknown users and wrong secrets both yield models.ErrBadCredentials.
func (s *AuthService) Authenticate(ctx context.Context, identifier, secret, origin string) (*models.Principal, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		s.recordFailure(ctx, models.UnknownActor, origin, reasonMissingUsername)
		return nil, models.ErrBadCredentials
	}

	user, err := s.users.FindByUsername(ctx, identifier)
	if err != nil {
		if !errors.Is(err, models.ErrUserNotFound) {
			s.logger.Error("Credential lookup failed", zap.String("username", identifier), zap.Error(err))
			s.recordFailure(ctx, identifier, origin, reasonStoreUnavailable)
			return nil, fmt.Errorf("looking up credentials: %w", err)
		}
		_ = s.hasher.Compare(s.dummyHash, secret)
		s.recordFailure(ctx, identifier, origin, reasonBadCredentials)
		return nil, models.ErrBadCredentials
	}

	if err := s.hasher.Compare(user.PasswordHash, secret); err != nil {
		s.recordFailure(ctx, identifier, origin, reasonBadCredentials)
		return nil, models.ErrBadCredentials
	}

	s.trail.Append(ctx, models.AuditEvent{
		Kind:   models.AuditLoginSuccess,
		Actor:  user.Username,
		Origin: origin,
	})
	return models.NewPrincipal(user), nil
}

func (s *AuthService) recordFailure(ctx context.Context, actor, origin, reason string) {
	s.trail.Append(ctx, models.AuditEvent{
		Kind:   models.AuditLoginFailure,
		Actor:  actor,
		Origin: origin,
		Reason: reason,
	})
}

// Login authenticates and issues a bearer token for the principal.
func (s *AuthService) Login(ctx context.Context, req models.LoginRequest, origin string) (*models.TokenResponse, error) {
	principal, err := s.Authenticate(ctx, req.Username, req.Password, origin)
	if err != nil {
		return nil, err
	}
	return s.issue(principal.ID, principal.Username, principal.Roles, s.tokens.TTL())
}

// Register creates a USER account and records REGISTRATION.
func (s *AuthService) Register(ctx context.Context, req models.RegisterRequest, origin string) (*models.User, error) {
	username := strings.TrimSpace(req.Username)
	if n := len(username); n < minUsernameLength || n > maxUsernameLength {
		return nil, fmt.Errorf("%w: must be %d to %d characters", models.ErrInvalidUsername, minUsernameLength, maxUsernameLength)
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Username:     username,
		FullName:     req.FullName,
		PasswordHash: hash,
		Roles:        []models.Role{models.RoleUser},
		ConsentGiven: true,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	s.trail.Append(ctx, models.AuditEvent{
		Kind:   models.AuditRegistration,
		Actor:  user.Username,
		Target: user.Username,
		Origin: origin,
	})
	s.logger.Info("User registered", zap.Int64("user_id", user.ID), zap.String("username", user.Username))
	return user, nil
}

// IssueTestToken mints a short-lived token without a password check.
// Unknown role names are rejected before anything is signed.
func (s *AuthService) IssueTestToken(req models.TestTokenRequest) (*models.TokenResponse, error) {
	roles, err := models.ParseRoles(req.Roles)
	if err != nil {
		return nil, err
	}
	return s.issue(TestTokenSubject, req.Username, roles, TestTokenTTL)
}

func (s *AuthService) issue(id int64, username string, roles []models.Role, ttl time.Duration) (*models.TokenResponse, error) {
	token, claims, err := s.tokens.IssueWithTTL(id, username, roles, ttl)
	if err != nil {
		return nil, err
	}
	return &models.TokenResponse{
		Token:     token,
		TokenType: models.TokenTypeBearer,
		Username:  claims.Username,
		Roles:     claims.Roles,
		ExpiresAt: claims.ExpiresAt,
	}, nil
}

// ResolvePrincipal maps validated claims to a stored user, first by the
// numeric subject and then by the username claim.
func (s *AuthService) ResolvePrincipal(ctx context.Context, claims *models.Claims) (*models.Principal, error) {
	if id, ok := claims.UserID(); ok {
		user, err := s.users.FindByID(ctx, id)
		if err == nil && (claims.Username == "" || user.Username == claims.Username) {
			return models.NewPrincipal(user), nil
		}
	}

	if claims.Username != "" {
		user, err := s.users.FindByUsername(ctx, claims.Username)
		if err == nil {
			return models.NewPrincipal(user), nil
		}
	}

	return nil, fmt.Errorf("%w: subject %s", models.ErrUserNotFound, strconv.Quote(claims.Subject))
}
