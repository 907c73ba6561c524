// Package router initializes the HTTP router (using Echo).
//
// It registers the middlewares and defines the API route groups, mapping
// specific paths to their corresponding handlers.
package router

import (
	"net/http"

	"github.com/checkbill/receipts-api/internal/handler"
	"github.com/checkbill/receipts-api/internal/middleware"
	"github.com/labstack/echo/v4"
)

// New builds the Echo instance with the full middleware chain and all
// routes registered.
//
// Middleware order matters: Recover first so panics anywhere below are
// caught; RequestID and the New Relic transaction must exist before the
// context enhancer builds the request logger.
func New(h *handler.Handlers, m *middleware.Middlewares) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.HTTPErrorHandler = m.Global.GlobalErrorHandler

	e.Use(m.Global.Recover())
	e.Use(middleware.RequestID())
	e.Use(m.Tracing.NewRelicMiddleware())
	e.Use(m.ContextEnhancer.EnhanceContext())
	e.Use(m.Tracing.EnhanceTracing())
	e.Use(m.Global.CORS())
	e.Use(m.Global.Secure())
	e.Use(m.Global.RequestLogger())

	registerSystemRoutes(e, h)
	registerAuthRoutes(e, h, m)
	registerReceiptRoutes(e, h, m)

	return e
}

// registerAuthRoutes wires the authentication group. All auth routes sit
// behind the Redis rate limiter.
func registerAuthRoutes(r *echo.Echo, h *handler.Handlers, m *middleware.Middlewares) {
	auth := r.Group("/auth", m.RateLimit.Limit())

	auth.POST("/signup", handler.Handle(h.Auth.Handler, h.Auth.Signup, http.StatusCreated,
		func() *handler.SignupRequest { return &handler.SignupRequest{} }))

	auth.POST("/login", handler.Handle(h.Auth.Handler, h.Auth.Login, http.StatusOK,
		func() *handler.LoginRequest { return &handler.LoginRequest{} }))

	auth.GET("/refresh", handler.Handle(h.Auth.Handler, h.Auth.Refresh, http.StatusOK,
		func() *handler.RefreshRequest { return &handler.RefreshRequest{} }))
}

// registerReceiptRoutes wires the receipts group. The view route is public
// on purpose: it is what receipt QR codes link to.
func registerReceiptRoutes(r *echo.Echo, h *handler.Handlers, m *middleware.Middlewares) {
	r.GET("/receipts/:id/view", h.Receipts.View())

	receipts := r.Group("/receipts", m.Auth.RequireAuth)

	receipts.POST("", handler.Handle(h.Receipts.Handler, h.Receipts.Create, http.StatusCreated,
		func() *handler.CreateReceiptRequest { return &handler.CreateReceiptRequest{} }))

	receipts.GET("", handler.Handle(h.Receipts.Handler, h.Receipts.List, http.StatusOK,
		func() *handler.ListReceiptsRequest { return &handler.ListReceiptsRequest{} }))

	receipts.GET("/:id", handler.Handle(h.Receipts.Handler, h.Receipts.Get, http.StatusOK,
		func() *handler.GetReceiptRequest { return &handler.GetReceiptRequest{} }))
}
