package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/yungbote/matside-backend/internal/data/repos"
	types "github.com/yungbote/matside-backend/internal/domain"
	"github.com/yungbote/matside-backend/internal/platform/dbctx"
	"github.com/yungbote/matside-backend/internal/platform/logger"
)

type RegistrationService interface {
	Get(ctx context.Context, id uuid.UUID) (*types.Registration, error)
}

type registrationService struct {
	log  *logger.Logger
	regs repos.RegistrationRepo
}

func NewRegistrationService(log *logger.Logger, regs repos.RegistrationRepo) RegistrationService {
	return &registrationService{log: log.With("service", "RegistrationService"), regs: regs}
}

func (s *registrationService) Get(ctx context.Context, id uuid.UUID) (*types.Registration, error) {
	reg, err := s.regs.GetByID(dbctx.Context{Ctx: ctx}, id)
	if err != nil {
		return nil, err
	}
	if reg == nil {
		return nil, ErrRegistrationNotFound
	}
	return reg, nil
}
