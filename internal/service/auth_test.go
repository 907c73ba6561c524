package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/checkbill/receipts-api/internal/config"
	"github.com/checkbill/receipts-api/internal/errs"
	"github.com/checkbill/receipts-api/internal/repository"
	"github.com/checkbill/receipts-api/internal/server"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubUsers is an in-memory UsersStore. Stored token updates are recorded so
// tests can assert on rotation and revocation.
type stubUsers struct {
	user      *repository.User
	getErr    error
	createErr error

	tokenUpdates []*string
}

func (s *stubUsers) Create(ctx context.Context, user *repository.User) (*repository.User, error) {
	if s.createErr != nil {
		return nil, s.createErr
	}
	user.ID = uuid.New()
	return user, nil
}

func (s *stubUsers) GetByLogin(ctx context.Context, login string) (*repository.User, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	return s.user, nil
}

func (s *stubUsers) UpdateRefreshToken(ctx context.Context, userID uuid.UUID, token *string) error {
	s.tokenUpdates = append(s.tokenUpdates, token)
	return nil
}

// newTestAuthService builds an AuthService against the given store. The
// Redis client points nowhere; cache operations fail and are logged, which
// is the same degraded path a Redis outage takes.
func newTestAuthService(secret string, users UsersStore) *AuthService {
	logger := zerolog.Nop()
	return NewAuthService(&server.Server{
		Config: &config.Config{
			Auth: config.AuthConfig{
				SecretKey:       secret,
				AccessTokenTTL:  time.Hour,
				RefreshTokenTTL: 7 * 24 * time.Hour,
			},
		},
		Logger: &logger,
		Redis:  redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"}),
	}, users)
}

func TestTokenRoundTrip(t *testing.T) {
	t.Parallel()

	auth := newTestAuthService("test-secret", nil)

	raw, err := auth.createToken("hero@example.com", ScopeAccess, time.Hour)
	require.NoError(t, err)
	require.NotEmpty(t, raw)

	claims, err := auth.DecodeToken(raw, ScopeAccess)
	require.NoError(t, err)

	assert.Equal(t, "hero@example.com", claims.Subject)
	assert.Equal(t, ScopeAccess, claims.Scope)
}

func TestDecodeTokenRejectsWrongScope(t *testing.T) {
	t.Parallel()

	auth := newTestAuthService("test-secret", nil)

	refresh, err := auth.createToken("hero@example.com", ScopeRefresh, time.Hour)
	require.NoError(t, err)

	// A refresh token must not authorize requests.
	_, err = auth.DecodeToken(refresh, ScopeAccess)
	require.Error(t, err)

	var httpErr *errs.HTTPError
	require.True(t, errors.As(err, &httpErr))
	assert.Equal(t, 401, httpErr.Status)
}

func TestDecodeTokenRejectsExpired(t *testing.T) {
	t.Parallel()

	auth := newTestAuthService("test-secret", nil)

	raw, err := auth.createToken("hero@example.com", ScopeAccess, -time.Minute)
	require.NoError(t, err)

	_, err = auth.DecodeToken(raw, ScopeAccess)
	require.Error(t, err)

	var httpErr *errs.HTTPError
	require.True(t, errors.As(err, &httpErr))
	assert.Equal(t, 401, httpErr.Status)
}

func TestDecodeTokenRejectsForeignSignature(t *testing.T) {
	t.Parallel()

	issuer := newTestAuthService("secret-one", nil)
	verifier := newTestAuthService("secret-two", nil)

	raw, err := issuer.createToken("hero@example.com", ScopeAccess, time.Hour)
	require.NoError(t, err)

	_, err = verifier.DecodeToken(raw, ScopeAccess)
	require.Error(t, err)
}

func TestDecodeTokenRejectsGarbage(t *testing.T) {
	t.Parallel()

	auth := newTestAuthService("test-secret", nil)

	_, err := auth.DecodeToken("not-a-token", ScopeAccess)
	require.Error(t, err)

	var httpErr *errs.HTTPError
	require.True(t, errors.As(err, &httpErr))
	assert.Equal(t, 401, httpErr.Status)
}

func TestUserCacheKeyIsCaseInsensitive(t *testing.T) {
	t.Parallel()

	assert.Equal(t, userCacheKey("hero@example.com"), userCacheKey("HERO@EXAMPLE.COM"))
}

func TestSignupDuplicateLoginIsConflict(t *testing.T) {
	t.Parallel()

	users := &stubUsers{
		createErr: fmt.Errorf("inserting user: %w", &pgconn.PgError{
			Code:           "23505",
			ConstraintName: "users_login_key",
		}),
	}
	auth := newTestAuthService("test-secret", users)

	_, err := auth.Signup(context.Background(), "Hero Name", "hero@example.com", "password123")
	require.Error(t, err)

	var httpErr *errs.HTTPError
	require.True(t, errors.As(err, &httpErr))
	assert.Equal(t, 409, httpErr.Status)
	assert.Equal(t, "USER_ALREADY_EXISTS", httpErr.Code)
}

func TestSignupSkipsWelcomeEmailForPlainLogin(t *testing.T) {
	t.Parallel()

	// server.Job is nil here: any enqueue attempt for a non-email login
	// would panic instead of passing.
	auth := newTestAuthService("test-secret", &stubUsers{})

	user, err := auth.Signup(context.Background(), "Hero Name", "hero", "password123")
	require.NoError(t, err)

	assert.Equal(t, "hero", user.Login)
	assert.NotEqual(t, uuid.Nil, user.ID)
	assert.NotEqual(t, "password123", user.Password)
}

func TestRefreshRotatesStoredToken(t *testing.T) {
	t.Parallel()

	users := &stubUsers{}
	auth := newTestAuthService("test-secret", users)

	stored, err := auth.createToken("hero", ScopeRefresh, time.Hour)
	require.NoError(t, err)
	users.user = &repository.User{ID: uuid.New(), Login: "hero", RefreshToken: &stored}

	pair, err := auth.Refresh(context.Background(), stored)
	require.NoError(t, err)
	require.NotNil(t, pair)
	assert.Equal(t, "bearer", pair.TokenType)

	claims, err := auth.DecodeToken(pair.AccessToken, ScopeAccess)
	require.NoError(t, err)
	assert.Equal(t, "hero", claims.Subject)

	// The new refresh token replaces the presented one on the user row.
	require.Len(t, users.tokenUpdates, 1)
	require.NotNil(t, users.tokenUpdates[0])
	assert.Equal(t, pair.RefreshToken, *users.tokenUpdates[0])
}

func TestRefreshReuseRevokesStoredToken(t *testing.T) {
	t.Parallel()

	users := &stubUsers{}
	auth := newTestAuthService("test-secret", users)

	replayed, err := auth.createToken("hero", ScopeRefresh, time.Hour)
	require.NoError(t, err)

	// The stored token has already rotated past the presented one.
	current := "rotated-away"
	users.user = &repository.User{ID: uuid.New(), Login: "hero", RefreshToken: &current}

	_, err = auth.Refresh(context.Background(), replayed)
	require.Error(t, err)

	var httpErr *errs.HTTPError
	require.True(t, errors.As(err, &httpErr))
	assert.Equal(t, 401, httpErr.Status)
	assert.Equal(t, "Invalid refresh token", httpErr.Message)

	// Replay kills the whole chain: the stored token is cleared.
	require.Len(t, users.tokenUpdates, 1)
	assert.Nil(t, users.tokenUpdates[0])
}
