package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/checkbill/receipts-api/internal/config"
	"github.com/checkbill/receipts-api/internal/errs"
	"github.com/checkbill/receipts-api/internal/server"
	"github.com/checkbill/receipts-api/internal/service"
	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testAuthSecret = "test-secret"

func newTestAuthMiddleware() *AuthMiddleware {
	logger := zerolog.Nop()
	srv := &server.Server{
		Config: &config.Config{
			Auth: config.AuthConfig{
				SecretKey:       testAuthSecret,
				AccessTokenTTL:  time.Hour,
				RefreshTokenTTL: time.Hour,
			},
		},
		Logger: &logger,
	}
	return NewAuthMiddleware(srv, service.NewAuthService(srv, nil))
}

// runRequireAuth sends one request through RequireAuth and reports whether
// the protected handler was reached.
func runRequireAuth(t *testing.T, authHeader string) (reached bool, err error) {
	t.Helper()

	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/receipts", nil)
	if authHeader != "" {
		req.Header.Set(echo.HeaderAuthorization, authHeader)
	}
	c := e.NewContext(req, httptest.NewRecorder())

	m := newTestAuthMiddleware()
	err = m.RequireAuth(func(c echo.Context) error {
		reached = true
		return nil
	})(c)
	return reached, err
}

func TestRequireAuthRejectsUnauthenticated(t *testing.T) {
	t.Parallel()

	refreshToken, signErr := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"scope": "refresh_token",
		"sub":   "hero",
		"exp":   time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(testAuthSecret))
	require.NoError(t, signErr)

	tests := []struct {
		name   string
		header string
	}{
		{name: "missing header"},
		{name: "wrong scheme", header: "Basic dXNlcjpwYXNz"},
		{name: "garbage token", header: "Bearer not-a-token"},
		// A refresh token must not authorize requests.
		{name: "refresh scope", header: "Bearer " + refreshToken},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			reached, err := runRequireAuth(t, tt.header)
			require.Error(t, err)
			assert.False(t, reached)

			var httpErr *errs.HTTPError
			require.True(t, errors.As(err, &httpErr))
			assert.Equal(t, http.StatusUnauthorized, httpErr.Status)
		})
	}
}
