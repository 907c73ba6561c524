package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/checkbill/receipts-api/internal/errs"
	"github.com/checkbill/receipts-api/internal/lib/job"
	"github.com/checkbill/receipts-api/internal/repository"
	"github.com/checkbill/receipts-api/internal/server"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
)

// UsersStore is the persistence surface the auth service needs. It is
// satisfied by *repository.UsersRepository.
type UsersStore interface {
	Create(ctx context.Context, user *repository.User) (*repository.User, error)
	GetByLogin(ctx context.Context, login string) (*repository.User, error)
	UpdateRefreshToken(ctx context.Context, userID uuid.UUID, token *string) error
}

// Token scopes. A token is only valid for the purpose its scope names:
// access tokens cannot refresh, refresh tokens cannot authorize requests.
const (
	ScopeAccess  = "access_token"
	ScopeRefresh = "refresh_token"
)

// TokenClaims is the JWT payload for both token kinds. Subject carries the
// user's login.
type TokenClaims struct {
	Scope string `json:"scope"`
	jwt.RegisteredClaims
}

// TokenPair is what login and refresh hand back to the client.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}

// AuthService implements signup, login, and refresh-token rotation.
type AuthService struct {
	server *server.Server
	users  UsersStore
}

func NewAuthService(s *server.Server, users UsersStore) *AuthService {
	return &AuthService{
		server: s,
		users:  users,
	}
}

// Signup registers a new user. The password is stored as a bcrypt hash; the
// unique index on lower(login) rejects duplicate logins regardless of case.
func (a *AuthService) Signup(ctx context.Context, name, login, password string) (*repository.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	user, err := a.users.Create(ctx, &repository.User{
		Name:     name,
		Login:    login,
		Password: string(hash),
	})
	if err != nil {
		// A duplicate login is a conflict, not a generic constraint failure.
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			code := "USER_ALREADY_EXISTS"
			return nil, errs.NewConflictError("This login is already taken", true, &code)
		}
		return nil, err
	}

	// The login doubles as the delivery address when it is an email.
	if strings.Contains(login, "@") {
		a.enqueueWelcomeEmail(user)
	}

	return user, nil
}

func (a *AuthService) enqueueWelcomeEmail(user *repository.User) {
	task, err := job.NewWelcomeEmailTask(user.Login, user.Name)
	if err != nil {
		a.server.Logger.Error().Err(err).Msg("Failed to build welcome email task")
		return
	}
	if _, err := a.server.Job.Client.Enqueue(task); err != nil {
		a.server.Logger.Error().Err(err).Str("login", user.Login).Msg("Failed to enqueue welcome email")
	}
}

// Login verifies credentials and issues a fresh token pair. Unknown logins
// and wrong passwords are indistinguishable to the caller.
func (a *AuthService) Login(ctx context.Context, login, password string) (*TokenPair, error) {
	user, err := a.users.GetByLogin(ctx, login)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.NewUnauthorizedError("Invalid login or password", true)
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, errs.NewUnauthorizedError("Invalid login or password", true)
	}

	return a.issueTokens(ctx, user)
}

// Refresh rotates a refresh token into a new token pair.
//
// The presented token must match the one stored on the user row. A valid
// but non-current token means it was already rotated away and is being
// replayed; the stored token is cleared so the whole chain dies.
func (a *AuthService) Refresh(ctx context.Context, rawToken string) (*TokenPair, error) {
	claims, err := a.DecodeToken(rawToken, ScopeRefresh)
	if err != nil {
		return nil, err
	}

	user, err := a.users.GetByLogin(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.NewUnauthorizedError("Invalid refresh token", true)
		}
		return nil, err
	}

	if user.RefreshToken == nil || *user.RefreshToken != rawToken {
		if err := a.users.UpdateRefreshToken(ctx, user.ID, nil); err != nil {
			a.server.Logger.Error().Err(err).Str("login", user.Login).Msg("Failed to revoke refresh token")
		}
		a.dropCachedUser(ctx, user.Login)
		return nil, errs.NewUnauthorizedError("Invalid refresh token", true)
	}

	return a.issueTokens(ctx, user)
}

// issueTokens creates a token pair, persists the refresh token on the user
// row, and drops the cached user so the next request re-reads fresh state.
func (a *AuthService) issueTokens(ctx context.Context, user *repository.User) (*TokenPair, error) {
	accessToken, err := a.createToken(user.Login, ScopeAccess, a.server.Config.Auth.AccessTokenTTL)
	if err != nil {
		return nil, err
	}

	refreshToken, err := a.createToken(user.Login, ScopeRefresh, a.server.Config.Auth.RefreshTokenTTL)
	if err != nil {
		return nil, err
	}

	if err := a.users.UpdateRefreshToken(ctx, user.ID, &refreshToken); err != nil {
		return nil, err
	}
	a.dropCachedUser(ctx, user.Login)

	return &TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "bearer",
	}, nil
}

func (a *AuthService) createToken(login, scope string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := TokenClaims{
		Scope: scope,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   login,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(a.server.Config.Auth.SecretKey))
	if err != nil {
		return "", fmt.Errorf("signing %s: %w", scope, err)
	}

	return signed, nil
}

// DecodeToken parses and verifies a token, requiring the given scope. Any
// failure comes back as a 401.
func (a *AuthService) DecodeToken(rawToken, wantScope string) (*TokenClaims, error) {
	claims := &TokenClaims{}

	token, err := jwt.ParseWithClaims(rawToken, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(a.server.Config.Auth.SecretKey), nil
	})
	if err != nil || !token.Valid {
		return nil, errs.NewUnauthorizedError("Invalid or expired token", true)
	}

	if claims.Scope != wantScope {
		return nil, errs.NewUnauthorizedError("Invalid token scope", true)
	}

	return claims, nil
}

// ResolveUser returns the user for a login, served from the Redis cache when
// possible. The cache entry is dropped on every token rotation, so a cached
// user is at most UserCacheTTL stale and never holds a revoked session.
func (a *AuthService) ResolveUser(ctx context.Context, login string) (*repository.User, error) {
	key := userCacheKey(login)

	cached, err := a.server.Redis.Get(ctx, key).Bytes()
	if err == nil {
		user := &repository.User{}
		if err := json.Unmarshal(cached, user); err == nil {
			return user, nil
		}
		// Unreadable entries are replaced on the fallthrough below.
	} else if !errors.Is(err, redis.Nil) {
		a.server.Logger.Warn().Err(err).Msg("User cache read failed, falling back to database")
	}

	user, err := a.users.GetByLogin(ctx, login)
	if err != nil {
		return nil, err
	}

	if encoded, err := json.Marshal(user); err == nil {
		if err := a.server.Redis.Set(ctx, key, encoded, a.server.Config.Auth.UserCacheTTL).Err(); err != nil {
			a.server.Logger.Warn().Err(err).Msg("User cache write failed")
		}
	}

	return user, nil
}

func (a *AuthService) dropCachedUser(ctx context.Context, login string) {
	if err := a.server.Redis.Del(ctx, userCacheKey(login)).Err(); err != nil {
		a.server.Logger.Warn().Err(err).Str("login", login).Msg("Failed to drop cached user")
	}
}

func userCacheKey(login string) string {
	return "user:" + strings.ToLower(login)
}
