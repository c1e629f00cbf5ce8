package services

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/feedloop/securenotes/internal/audit"
	"github.com/feedloop/securenotes/internal/models"
	"github.com/feedloop/securenotes/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// countingHasher counts comparisons so tests can check both failure paths do
// the same work.
type countingHasher struct {
	*BcryptHasher
	compares atomic.Int32
}

func (h *countingHasher) Compare(hash, password string) error {
	h.compares.Add(1)
	return h.BcryptHasher.Compare(hash, password)
}

type mockUserStore struct {
	mock.Mock
}

func (m *mockUserStore) FindByID(ctx context.Context, id int64) (*models.User, error) {
	args := m.Called(ctx, id)
	user, _ := args.Get(0).(*models.User)
	return user, args.Error(1)
}

func (m *mockUserStore) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	args := m.Called(ctx, username)
	user, _ := args.Get(0).(*models.User)
	return user, args.Error(1)
}

func (m *mockUserStore) Create(ctx context.Context, user *models.User) error {
	return m.Called(ctx, user).Error(0)
}

func (m *mockUserStore) List(ctx context.Context) ([]*models.User, error) {
	args := m.Called(ctx)
	users, _ := args.Get(0).([]*models.User)
	return users, args.Error(1)
}

func (m *mockUserStore) UpdateRoles(ctx context.Context, id int64, roles []models.Role) error {
	return m.Called(ctx, id, roles).Error(0)
}

func (m *mockUserStore) Delete(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

type authFixture struct {
	service *AuthService
	users   *repository.MemoryUserStore
	hasher  *countingHasher
	tokens  *TokenService
	sink    *audit.MemorySink
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()

	users := repository.NewMemoryUserStore()
	hasher := &countingHasher{BcryptHasher: NewBcryptHasher(bcrypt.MinCost)}
	tokens, err := NewTokenService(testKey, time.Hour)
	require.NoError(t, err)
	sink := audit.NewMemorySink()
	trail := audit.NewRecorder(zap.NewNop(), []audit.Sink{sink})

	hash, err := hasher.Hash("s3cret-password")
	require.NoError(t, err)
	require.NoError(t, users.Create(context.Background(), &models.User{
		Username:     "alice",
		PasswordHash: hash,
		Roles:        []models.Role{models.RoleUser},
	}))

	return &authFixture{
		service: NewAuthService(users, hasher, tokens, trail, zap.NewNop()),
		users:   users,
		hasher:  hasher,
		tokens:  tokens,
		sink:    sink,
	}
}

func TestAuthenticate(t *testing.T) {
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		f := newAuthFixture(t)

		p, err := f.service.Authenticate(ctx, "alice", "s3cret-password", "10.0.0.1")
		require.NoError(t, err)
		assert.Equal(t, "alice", p.Username)
		assert.Equal(t, []models.Role{models.RoleUser}, p.Roles)

		events := f.sink.Events()
		require.Len(t, events, 1)
		assert.Equal(t, models.AuditLoginSuccess, events[0].Kind)
		assert.Equal(t, "alice", events[0].Actor)
		assert.Equal(t, "10.0.0.1", events[0].Origin)
	})

	t.Run("unknown user and wrong secret are indistinguishable", func(t *testing.T) {
		f := newAuthFixture(t)
		f.hasher.compares.Store(0)

		_, errUnknown := f.service.Authenticate(ctx, "doesnotexist", "x", "10.0.0.2")
		unknownCompares := f.hasher.compares.Load()
		_, errWrong := f.service.Authenticate(ctx, "alice", "wrongsecret", "10.0.0.2")
		wrongCompares := f.hasher.compares.Load() - unknownCompares

		assert.ErrorIs(t, errUnknown, models.ErrBadCredentials)
		assert.ErrorIs(t, errWrong, models.ErrBadCredentials)
		assert.Equal(t, errUnknown.Error(), errWrong.Error())
		assert.Equal(t, unknownCompares, wrongCompares)

		assert.Equal(t, []models.AuditKind{models.AuditLoginFailure, models.AuditLoginFailure}, f.sink.Kinds())
		for _, ev := range f.sink.Events() {
			assert.Equal(t, "bad credentials", ev.Reason)
			assert.NotContains(t, ev.Reason, "wrongsecret")
		}
	})

	t.Run("blank identifier", func(t *testing.T) {
		f := newAuthFixture(t)

		_, err := f.service.Authenticate(ctx, "   ", "whatever", "")
		assert.ErrorIs(t, err, models.ErrBadCredentials)

		events := f.sink.Events()
		require.Len(t, events, 1)
		assert.Equal(t, models.UnknownActor, events[0].Actor)
	})

	t.Run("store failure is not bad credentials", func(t *testing.T) {
		store := &mockUserStore{}
		boom := errors.New("connection refused")
		store.On("FindByUsername", mock.Anything, "alice").Return(nil, boom)

		sink := audit.NewMemorySink()
		tokens, err := NewTokenService(testKey, time.Hour)
		require.NoError(t, err)
		svc := NewAuthService(store, NewBcryptHasher(bcrypt.MinCost), tokens,
			audit.NewRecorder(nil, []audit.Sink{sink}), nil)

		_, err = svc.Authenticate(ctx, "alice", "pw", "")
		assert.ErrorIs(t, err, boom)
		assert.NotErrorIs(t, err, models.ErrBadCredentials)
		assert.Equal(t, []models.AuditKind{models.AuditLoginFailure}, sink.Kinds())
		store.AssertExpectations(t)
	})
}

func TestLogin(t *testing.T) {
	f := newAuthFixture(t)

	resp, err := f.service.Login(context.Background(), models.LoginRequest{Username: "alice", Password: "s3cret-password"}, "")
	require.NoError(t, err)
	assert.Equal(t, models.TokenTypeBearer, resp.TokenType)

	claims, err := f.tokens.Parse(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, "1", claims.Subject)
	assert.Equal(t, "alice", claims.Username)
	assert.Equal(t, []models.Role{models.RoleUser}, claims.Roles)
	assert.True(t, resp.ExpiresAt.Equal(claims.ExpiresAt))

	_, err = f.service.Login(context.Background(), models.LoginRequest{Username: "alice", Password: "nope"}, "")
	assert.ErrorIs(t, err, models.ErrBadCredentials)
}

func TestRegister(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t)

	user, err := f.service.Register(ctx, models.RegisterRequest{Username: "bob", Password: "password123", FullName: "Bob"}, "10.0.0.3")
	require.NoError(t, err)
	assert.NotZero(t, user.ID)
	assert.Equal(t, []models.Role{models.RoleUser}, user.Roles)
	assert.NotEqual(t, "password123", user.PasswordHash)

	_, err = f.service.Authenticate(ctx, "bob", "password123", "")
	require.NoError(t, err)

	_, err = f.service.Register(ctx, models.RegisterRequest{Username: "bob", Password: "password456"}, "")
	assert.ErrorIs(t, err, models.ErrUsernameTaken)

	assert.Equal(t, []models.AuditKind{models.AuditRegistration, models.AuditLoginSuccess}, f.sink.Kinds())
}

func TestRegisterTrimsUsernameBeforeLengthCheck(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t)

	for _, name := range []string{"  ab", "ab   ", "   "} {
		_, err := f.service.Register(ctx, models.RegisterRequest{Username: name, Password: "password123"}, "")
		assert.ErrorIs(t, err, models.ErrInvalidUsername, "%q", name)
	}

	user, err := f.service.Register(ctx, models.RegisterRequest{Username: "  carol ", Password: "password123"}, "")
	require.NoError(t, err)
	assert.Equal(t, "carol", user.Username)
	assert.Equal(t, []models.AuditKind{models.AuditRegistration}, f.sink.Kinds())
}

// brokenHasher cannot hash but still counts comparisons.
type brokenHasher struct {
	countingHasher
	compared []string
}

func (h *brokenHasher) Hash(string) (string, error) {
	return "", errors.New("entropy source unavailable")
}

func (h *brokenHasher) Compare(hash, password string) error {
	h.compared = append(h.compared, hash)
	return h.countingHasher.Compare(hash, password)
}

func TestAuthenticateUnknownUserWithoutDummyHash(t *testing.T) {
	hasher := &brokenHasher{countingHasher: countingHasher{BcryptHasher: NewBcryptHasher(bcrypt.MinCost)}}
	service := NewAuthService(repository.NewMemoryUserStore(), hasher, nil, nil, zap.NewNop())

	_, err := service.Authenticate(context.Background(), "nobody", "whatever", "")
	assert.ErrorIs(t, err, models.ErrBadCredentials)
	require.Len(t, hasher.compared, 1)
	assert.Equal(t, fallbackDummyHash, hasher.compared[0])

	cost, err := bcrypt.Cost([]byte(fallbackDummyHash))
	require.NoError(t, err)
	assert.Equal(t, bcrypt.DefaultCost, cost)
}

func TestIssueTestToken(t *testing.T) {
	f := newAuthFixture(t)

	t.Run("valid roles", func(t *testing.T) {
		resp, err := f.service.IssueTestToken(models.TestTokenRequest{Username: "tester", Roles: []string{"ADMIN", "USER", "ADMIN"}})
		require.NoError(t, err)

		claims, err := f.tokens.Parse(resp.Token)
		require.NoError(t, err)
		assert.Equal(t, "999", claims.Subject)
		assert.Equal(t, []models.Role{models.RoleAdmin, models.RoleUser}, claims.Roles)
		assert.Equal(t, TestTokenTTL, claims.ExpiresAt.Sub(claims.IssuedAt))
	})

	t.Run("unknown role is rejected", func(t *testing.T) {
		resp, err := f.service.IssueTestToken(models.TestTokenRequest{Username: "tester", Roles: []string{"USER", "SUPERUSER"}})
		assert.ErrorIs(t, err, models.ErrInvalidRole)
		assert.Nil(t, resp)
	})
}

func TestResolvePrincipal(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t)

	tests := []struct {
		name    string
		claims  models.Claims
		wantErr bool
	}{
		{name: "by numeric subject", claims: models.Claims{Subject: "1", Username: "alice"}},
		{name: "subject without username claim", claims: models.Claims{Subject: "1"}},
		{name: "fallback to username", claims: models.Claims{Subject: "999", Username: "alice"}},
		{name: "non numeric subject", claims: models.Claims{Subject: "alice", Username: "alice"}},
		{name: "unknown everywhere", claims: models.Claims{Subject: "999", Username: "ghost"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := f.service.ResolvePrincipal(ctx, &tt.claims)
			if tt.wantErr {
				assert.ErrorIs(t, err, models.ErrUserNotFound)
				assert.Nil(t, p)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, int64(1), p.ID)
			assert.Equal(t, "alice", p.Username)
		})
	}

	t.Run("roles come from the store", func(t *testing.T) {
		require.NoError(t, f.users.UpdateRoles(ctx, 1, []models.Role{models.RoleAdmin}))
		p, err := f.service.ResolvePrincipal(ctx, &models.Claims{Subject: "1", Username: "alice", Roles: []models.Role{models.RoleUser}})
		require.NoError(t, err)
		assert.Equal(t, []models.Role{models.RoleAdmin}, p.Roles)
	})
}
