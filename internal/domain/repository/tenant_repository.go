package repository

import (
	"context"

	"github.com/jhoicas/agrocloud-api/internal/domain/entity"
)

// TenantRepository define el puerto de persistencia para Tenant (DIP).
// La implementación vive en infrastructure. Los Get devuelven (nil, nil) si no existe.
type TenantRepository interface {
	Create(ctx context.Context, t *entity.Tenant) error
	GetByID(ctx context.Context, id string) (*entity.Tenant, error)
	GetBySlug(ctx context.Context, slug string) (*entity.Tenant, error)
	GetBySubscriptionID(ctx context.Context, subscriptionID string) (*entity.Tenant, error)
	SlugExists(ctx context.Context, slug string) (bool, error)
	Update(ctx context.Context, t *entity.Tenant) error
	// ReserveSeat incrementa current_users de forma atómica solo si hay cupo.
	// Devuelve el nuevo valor o domain.ErrSeatLimitReached.
	ReserveSeat(ctx context.Context, tenantID string) (int, error)
	// ReleaseSeat decrementa current_users sin bajar de cero.
	ReleaseSeat(ctx context.Context, tenantID string) error
	Delete(ctx context.Context, id string) error
}

// ModuleRepository puerto para tenant_modules.
type ModuleRepository interface {
	Enable(ctx context.Context, tenantID string, codes []entity.ModuleCode) error
	HasActiveModule(ctx context.Context, tenantID string, code entity.ModuleCode) (bool, error)
	ListByTenant(ctx context.Context, tenantID string) ([]*entity.TenantModule, error)
}
