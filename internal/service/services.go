package service

import (
	"github.com/checkbill/receipts-api/internal/lib/job"
	"github.com/checkbill/receipts-api/internal/repository"
	"github.com/checkbill/receipts-api/internal/server"
)

type Services struct {
	Auth     *AuthService
	Receipts *ReceiptsService
	Job      *job.JobService
}

func NewService(s *server.Server, repos *repository.Repositories) (*Services, error) {
	authService := NewAuthService(s, repos.Users)
	receiptsService := NewReceiptsService(s, repos.Receipts)

	return &Services{
		Auth:     authService,
		Receipts: receiptsService,
		Job:      s.Job,
	}, nil
}
