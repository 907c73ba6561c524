// Package handler is the first entry point for business logic after the
// router.
//
// It parses requests, handles input validation using the validation
// package, and calls the appropriate service layer. It acts as the
// interface between the HTTP request and the core business logic.
package handler

import (
	"github.com/checkbill/receipts-api/internal/server"
	"github.com/go-playground/validator/v10"
)

// validate is shared by all request Validate methods. The validator is
// safe for concurrent use.
var validate = validator.New()

// Handler is the base handler type that holds shared application
// dependencies. Concrete handlers embed it to reach the server container.
type Handler struct {
	server *server.Server
}

func NewHandler(s *server.Server) Handler {
	return Handler{server: s}
}
