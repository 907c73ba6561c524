package repository

import (
	"github.com/checkbill/receipts-api/internal/server"
)

// Repositories is a container for all repository instances.
type Repositories struct {
	Users    *UsersRepository
	Receipts *ReceiptsRepository
}

// NewRepositories constructs the repository container on the server's
// database pool.
func NewRepositories(s *server.Server) *Repositories {
	return &Repositories{
		Users:    NewUsersRepository(s.DB.Pool),
		Receipts: NewReceiptsRepository(s.DB.Pool),
	}
}
