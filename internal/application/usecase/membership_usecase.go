package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jhoicas/agrocloud-api/internal/application/dto"
	"github.com/jhoicas/agrocloud-api/internal/application/ports"
	"github.com/jhoicas/agrocloud-api/internal/application/tenant"
	"github.com/jhoicas/agrocloud-api/internal/domain"
	"github.com/jhoicas/agrocloud-api/internal/domain/entity"
	"github.com/jhoicas/agrocloud-api/internal/domain/repository"
)

// MembershipUseCase listado y baja de miembros de una organización.
type MembershipUseCase struct {
	memberships repository.MembershipRepository
	workers     repository.WorkerRepository
	tx          ports.TxRunner
	log         zerolog.Logger
	now         func() time.Time
}

// NewMembershipUseCase construye el caso de uso.
func NewMembershipUseCase(repos repository.Registry, tx ports.TxRunner, log zerolog.Logger) *MembershipUseCase {
	return &MembershipUseCase{
		memberships: repos.Memberships,
		workers:     repos.Workers,
		tx:          tx,
		log:         log,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// List membresías de la organización.
func (uc *MembershipUseCase) List(ctx context.Context, tenantID string) (*dto.MembersResponse, error) {
	rows, err := uc.memberships.ListByTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	out := make([]dto.MembershipSummary, 0, len(rows))
	for _, m := range rows {
		out = append(out, dto.MembershipFromEntity(m))
	}
	return &dto.MembersResponse{Success: true, Members: out}, nil
}

// ListWorkers perfiles de trabajador de la organización.
func (uc *MembershipUseCase) ListWorkers(ctx context.Context, tenantID string) (*dto.WorkersResponse, error) {
	rows, err := uc.workers.ListByTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	out := make([]dto.WorkerSummary, 0, len(rows))
	for _, w := range rows {
		out = append(out, dto.WorkerFromEntity(w))
	}
	return &dto.WorkersResponse{Success: true, Workers: out}, nil
}

// Remove inactiva la membresía y su trabajador. Si estaba activa libera el cupo en la misma
// transacción. La membresía del propietario no se puede dar de baja.
func (uc *MembershipUseCase) Remove(ctx context.Context, tenantID, membershipID, actorID string) error {
	m, err := uc.memberships.GetByID(ctx, membershipID)
	if err != nil {
		return err
	}
	if m == nil || m.TenantID != tenantID {
		return domain.ErrMembershipNotFound
	}
	if m.Role == entity.RoleOwner {
		return domain.ErrOwnerRemoval
	}
	if m.Status == entity.MembershipInactive {
		return nil
	}
	wasActive := m.IsActive()

	err = uc.tx.Run(ctx, func(repos repository.Registry) error {
		if err := repos.Memberships.UpdateStatus(ctx, m.ID, entity.MembershipInactive); err != nil {
			return err
		}
		w, err := repos.Workers.GetByMembershipID(ctx, m.ID)
		if err != nil {
			return err
		}
		if w != nil {
			if err := repos.Workers.UpdateStatus(ctx, w.ID, entity.WorkerInactive); err != nil {
				return fmt.Errorf("inactivar trabajador: %w", err)
			}
		}
		if wasActive {
			if err := repos.Tenants.ReleaseSeat(ctx, tenantID); err != nil {
				return fmt.Errorf("liberar cupo: %w", err)
			}
		}
		return repos.Audit.Create(ctx, &entity.AuditLog{
			ID:          uuid.New().String(),
			TenantID:    tenantID,
			ActorUserID: actorID,
			Action:      tenant.AuditMemberRemoved,
			Entity:      "membership",
			EntityID:    m.ID,
			Details:     map[string]any{"user_id": m.UserID, "role_code": string(m.Role)},
			CreatedAt:   uc.now(),
		})
	})
	if err != nil {
		return err
	}
	uc.log.Info().Str("tenant_id", tenantID).Str("membership_id", m.ID).Msg("membresía dada de baja")
	return nil
}
