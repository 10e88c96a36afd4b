package repository

import (
	"context"
	"time"

	"github.com/jhoicas/agrocloud-api/internal/domain/entity"
)

// InvitationRepository puerto de persistencia para invitations.
// Create devuelve domain.ErrInvitationExists si ya hay una pendiente para (tenant, email, rol).
type InvitationRepository interface {
	Create(ctx context.Context, inv *entity.Invitation) error
	GetByID(ctx context.Context, id string) (*entity.Invitation, error)
	GetByToken(ctx context.Context, token string) (*entity.Invitation, error)
	// FindPending busca una invitación sin aceptar, sin revocar y vigente en now.
	FindPending(ctx context.Context, tenantID, email string, role entity.Role, now time.Time) (*entity.Invitation, error)
	ListPendingByTenant(ctx context.Context, tenantID string, now time.Time) ([]*entity.Invitation, error)
	// MarkAccepted consume la invitación solo si sigue pendiente; false si otro la consumió antes.
	MarkAccepted(ctx context.Context, id string, now time.Time) (bool, error)
	Revoke(ctx context.Context, id string, now time.Time) (bool, error)
	// RevokeExpired revoca las vencidas de (tenant, email, rol) para liberar el índice único.
	RevokeExpired(ctx context.Context, tenantID, email string, role entity.Role, now time.Time) error
	Delete(ctx context.Context, id string) error
}
