package tenant

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jhoicas/agrocloud-api/internal/domain/entity"
	"github.com/jhoicas/agrocloud-api/internal/domain/repository"
)

// Acciones de auditoría del ciclo de vida de la organización.
const (
	AuditTenantCreated = "tenant.created"
	AuditMemberAdded   = "membership.created"
	AuditMemberRemoved = "membership.removed"
)

// Bundle filas que forman una organización funcional. Owner y Worker son opcionales
// (una organización materializada desde un checkout aún no tiene propietario con membresía).
type Bundle struct {
	Tenant  *entity.Tenant
	Owner   *entity.Membership
	Worker  *entity.Worker
	Modules []entity.ModuleCode
	Audit   *entity.AuditLog
}

// NewTenantInput datos para construir una organización nueva.
type NewTenantInput struct {
	Name         string
	Slug         string
	Plan         entity.Plan
	ContactName  string
	ContactEmail string
	CreatedBy    string
	CurrentUsers int
	Status       entity.PaymentStatus
}

// NewTenant construye la entidad con los límites derivados del plan.
func NewTenant(in NewTenantInput, now time.Time) *entity.Tenant {
	t := &entity.Tenant{
		ID:            uuid.New().String(),
		Name:          in.Name,
		Slug:          in.Slug,
		ContactName:   in.ContactName,
		ContactEmail:  entity.NormalizeEmail(in.ContactEmail),
		CreatedBy:     in.CreatedBy,
		CurrentUsers:  in.CurrentUsers,
		PaymentStatus: in.Status,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	t.ApplyPlan(in.Plan)
	return t
}

// OwnerBundle arma el conjunto completo del alta: organización, membresía owner activa,
// trabajador "general", módulos por defecto y entrada de auditoría.
func OwnerBundle(t *entity.Tenant, userID, fullName, email, phone string, now time.Time) Bundle {
	accepted := now
	owner := &entity.Membership{
		ID:         uuid.New().String(),
		TenantID:   t.ID,
		UserID:     userID,
		Role:       entity.RoleOwner,
		Status:     entity.MembershipActive,
		AcceptedAt: &accepted,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	return Bundle{
		Tenant:  t,
		Owner:   owner,
		Worker:  NewWorker(t.ID, owner, fullName, email, phone, now),
		Modules: entity.DefaultModules(),
		Audit: &entity.AuditLog{
			ID:          uuid.New().String(),
			TenantID:    t.ID,
			ActorUserID: userID,
			Action:      AuditTenantCreated,
			Entity:      "tenant",
			EntityID:    t.ID,
			Details:     map[string]any{"slug": t.Slug, "plan": string(t.Plan), "source": "register"},
			CreatedAt:   now,
		},
	}
}

// NewWorker perfil operativo que acompaña a una membresía.
func NewWorker(tenantID string, m *entity.Membership, fullName, email, phone string, now time.Time) *entity.Worker {
	if fullName == "" {
		fullName = email
	}
	return &entity.Worker{
		ID:           uuid.New().String(),
		TenantID:     tenantID,
		FullName:     fullName,
		Email:        entity.NormalizeEmail(email),
		Phone:        phone,
		AreaModule:   m.Role.AreaModule(),
		MembershipID: m.ID,
		Status:       entity.WorkerActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// CreateBundle escribe el conjunto con los repos recibidos; debe llamarse dentro de TxRunner.Run
// para que sea todo o nada.
func CreateBundle(ctx context.Context, repos repository.Registry, b Bundle) error {
	if err := repos.Tenants.Create(ctx, b.Tenant); err != nil {
		return fmt.Errorf("crear organización: %w", err)
	}
	if b.Owner != nil {
		if err := repos.Memberships.Create(ctx, b.Owner); err != nil {
			return fmt.Errorf("crear membresía owner: %w", err)
		}
	}
	if b.Worker != nil {
		if err := repos.Workers.Create(ctx, b.Worker); err != nil {
			return fmt.Errorf("crear trabajador: %w", err)
		}
	}
	if len(b.Modules) > 0 {
		if err := repos.Modules.Enable(ctx, b.Tenant.ID, b.Modules); err != nil {
			return fmt.Errorf("habilitar módulos: %w", err)
		}
	}
	if b.Audit != nil {
		if err := repos.Audit.Create(ctx, b.Audit); err != nil {
			return fmt.Errorf("auditoría: %w", err)
		}
	}
	return nil
}
