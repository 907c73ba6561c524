package handler

import (
	"github.com/checkbill/receipts-api/internal/server"
	"github.com/checkbill/receipts-api/internal/service"
)

// Handlers is a container that groups all HTTP handlers so router setup
// receives one object instead of many.
type Handlers struct {
	Auth     *AuthHandler
	Receipts *ReceiptsHandler
	Health   *HealthHandler
	OpenAPI  *OpenAPIHandler
}

// NewHandlers constructs the handler container from the application
// container and the business layer.
func NewHandlers(s *server.Server, services *service.Services) *Handlers {
	return &Handlers{
		Auth:     NewAuthHandler(s, services.Auth),
		Receipts: NewReceiptsHandler(s, services.Receipts),
		Health:   NewHealthHandler(s),
		OpenAPI:  NewOpenAPIHandler(s),
	}
}
