package repository

import (
	"context"

	"github.com/jhoicas/agrocloud-api/internal/domain/entity"
)

// MembershipRepository puerto de persistencia para memberships.
// Create devuelve domain.ErrMembershipExists si ya hay una membresía para (tenant, usuario).
type MembershipRepository interface {
	Create(ctx context.Context, m *entity.Membership) error
	GetByID(ctx context.Context, id string) (*entity.Membership, error)
	GetByTenantAndUser(ctx context.Context, tenantID, userID string) (*entity.Membership, error)
	ListByTenant(ctx context.Context, tenantID string) ([]*entity.Membership, error)
	UpdateStatus(ctx context.Context, id string, status entity.MembershipStatus) error
	Delete(ctx context.Context, id string) error
}

// WorkerRepository puerto de persistencia para workers.
type WorkerRepository interface {
	Create(ctx context.Context, w *entity.Worker) error
	GetByMembershipID(ctx context.Context, membershipID string) (*entity.Worker, error)
	ListByTenant(ctx context.Context, tenantID string) ([]*entity.Worker, error)
	UpdateStatus(ctx context.Context, id string, status entity.WorkerStatus) error
	Delete(ctx context.Context, id string) error
}

// ProfileRepository puerto para profiles (datos de contacto del usuario).
type ProfileRepository interface {
	Upsert(ctx context.Context, p *entity.Profile) error
	GetByID(ctx context.Context, id string) (*entity.Profile, error)
}

// AuthUserRepository puerto del proveedor de identidad local (auth_users).
// Create devuelve domain.ErrEmailAlreadyExists ante email duplicado.
type AuthUserRepository interface {
	Create(ctx context.Context, u *entity.AuthUser) error
	GetByID(ctx context.Context, id string) (*entity.AuthUser, error)
	GetByEmail(ctx context.Context, email string) (*entity.AuthUser, error)
	Update(ctx context.Context, u *entity.AuthUser) error
	Delete(ctx context.Context, id string) error
}
