package middleware

import (
	"errors"
	"strings"
	"time"

	"github.com/checkbill/receipts-api/internal/errs"
	"github.com/checkbill/receipts-api/internal/repository"
	"github.com/checkbill/receipts-api/internal/server"
	"github.com/checkbill/receipts-api/internal/service"
	"github.com/jackc/pgx/v5"
	"github.com/labstack/echo/v4"
)

// userKey stores the resolved *repository.User in Echo context.
const userKey = "user"

// AuthMiddleware enforces bearer-token authentication on protected routes.
type AuthMiddleware struct {
	server *server.Server
	auth   *service.AuthService
}

func NewAuthMiddleware(s *server.Server, auth *service.AuthService) *AuthMiddleware {
	return &AuthMiddleware{
		server: s,
		auth:   auth,
	}
}

// RequireAuth validates the access token on the Authorization header and
// resolves the current user (cache first, database on miss). On success the
// user's ID, login, and record are stored in Echo context for handlers.
//
// Refresh tokens are rejected here: their scope does not authorize requests.
func (auth *AuthMiddleware) RequireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()

		rawToken, err := BearerToken(c)
		if err != nil {
			return err
		}

		claims, err := auth.auth.DecodeToken(rawToken, service.ScopeAccess)
		if err != nil {
			return err
		}

		user, err := auth.auth.ResolveUser(c.Request().Context(), claims.Subject)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				// Valid signature but the account is gone.
				return errs.NewUnauthorizedError("Unauthorized", false)
			}
			return err
		}

		c.Set(UserIDKey, user.ID.String())
		c.Set(UserLoginKey, user.Login)
		c.Set(userKey, user)

		auth.server.Logger.Debug().
			Str("function", "RequireAuth").
			Str("user_id", user.ID.String()).
			Str("request_id", GetRequestID(c)).
			Dur("duration", time.Since(start)).
			Msg("user authenticated successfully")

		return next(c)
	}
}

// BearerToken extracts the token from the Authorization header. The refresh
// endpoint uses it directly since refresh tokens never pass RequireAuth.
func BearerToken(c echo.Context) (string, error) {
	header := c.Request().Header.Get(echo.HeaderAuthorization)
	if header == "" {
		return "", errs.NewUnauthorizedError("Missing authorization header", false)
	}

	const prefix = "bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", errs.NewUnauthorizedError("Malformed authorization header", false)
	}

	return strings.TrimSpace(header[len(prefix):]), nil
}

// GetUser returns the authenticated user stored by RequireAuth, or nil on
// routes where it did not run.
func GetUser(c echo.Context) *repository.User {
	if user, ok := c.Get(userKey).(*repository.User); ok {
		return user
	}
	return nil
}
