package usecase

import (
	"context"

	"github.com/jhoicas/agrocloud-api/internal/application/dto"
	"github.com/jhoicas/agrocloud-api/internal/domain"
	"github.com/jhoicas/agrocloud-api/internal/domain/repository"
)

// LimitsUseCase informa el uso de cupos de la organización.
type LimitsUseCase struct {
	tenants repository.TenantRepository
}

// NewLimitsUseCase construye el caso de uso.
func NewLimitsUseCase(tenants repository.TenantRepository) *LimitsUseCase {
	return &LimitsUseCase{tenants: tenants}
}

// Get devuelve current_users, max_users, plan y si cabe otro miembro.
func (uc *LimitsUseCase) Get(ctx context.Context, tenantID string) (*dto.LimitsResponse, error) {
	t, err := uc.tenants.GetByID(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, domain.ErrTenantNotFound
	}
	return &dto.LimitsResponse{
		CurrentUsers: t.CurrentUsers,
		MaxUsers:     t.MaxUsers,
		Plan:         string(t.Plan),
		CanAddMore:   t.HasSeat(),
	}, nil
}
