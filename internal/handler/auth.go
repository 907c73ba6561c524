package handler

import (
	"github.com/checkbill/receipts-api/internal/middleware"
	"github.com/checkbill/receipts-api/internal/server"
	"github.com/checkbill/receipts-api/internal/service"
	"github.com/labstack/echo/v4"
)

// AuthHandler exposes signup, login, and token refresh.
type AuthHandler struct {
	Handler
	auth *service.AuthService
}

func NewAuthHandler(s *server.Server, auth *service.AuthService) *AuthHandler {
	return &AuthHandler{
		Handler: NewHandler(s),
		auth:    auth,
	}
}

// SignupRequest registers a new account. The password bound is capped at 72
// characters, the bcrypt input limit.
type SignupRequest struct {
	Name     string `json:"name" validate:"required,min=5,max=50"`
	Login    string `json:"login" validate:"required,min=3,max=250"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

func (r *SignupRequest) Validate() error {
	return validate.Struct(r)
}

// SignupResponse is the public shape of a freshly created account.
type SignupResponse struct {
	ID    string `json:"id"`
	Login string `json:"login"`
}

// Signup handles POST /auth/signup. A taken login surfaces as a 409 through
// the unique index on lower(login).
func (h *AuthHandler) Signup(c echo.Context, req *SignupRequest) (*SignupResponse, error) {
	user, err := h.auth.Signup(c.Request().Context(), req.Name, req.Login, req.Password)
	if err != nil {
		return nil, err
	}

	return &SignupResponse{
		ID:    user.ID.String(),
		Login: user.Login,
	}, nil
}

// LoginRequest exchanges credentials for a token pair.
type LoginRequest struct {
	Login    string `json:"login" validate:"required"`
	Password string `json:"password" validate:"required"`
}

func (r *LoginRequest) Validate() error {
	return validate.Struct(r)
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(c echo.Context, req *LoginRequest) (*service.TokenPair, error) {
	return h.auth.Login(c.Request().Context(), req.Login, req.Password)
}

// RefreshRequest carries no body; the refresh token travels on the
// Authorization header.
type RefreshRequest struct{}

func (r *RefreshRequest) Validate() error {
	return nil
}

// Refresh handles GET /auth/refresh, rotating the presented refresh token
// into a new pair.
func (h *AuthHandler) Refresh(c echo.Context, req *RefreshRequest) (*service.TokenPair, error) {
	rawToken, err := middleware.BearerToken(c)
	if err != nil {
		return nil, err
	}

	return h.auth.Refresh(c.Request().Context(), rawToken)
}
