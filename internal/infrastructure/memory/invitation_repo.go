package memory

import (
	"context"
	"time"

	"github.com/jhoicas/agrocloud-api/internal/domain"
	"github.com/jhoicas/agrocloud-api/internal/domain/entity"
	"github.com/jhoicas/agrocloud-api/internal/domain/repository"
)

var _ repository.InvitationRepository = (*InvitationRepo)(nil)

// InvitationRepo invitations en memoria. Replica el índice único parcial
// (tenant_id, lower(email), role_code) WHERE accepted_at IS NULL AND revoked_at IS NULL.
type InvitationRepo struct{ s *Store }

func open(inv *entity.Invitation) bool {
	return inv.AcceptedAt == nil && inv.RevokedAt == nil
}

func (r *InvitationRepo) Create(_ context.Context, inv *entity.Invitation) error {
	defer r.s.lockWrite()()
	email := entity.NormalizeEmail(inv.Email)
	for _, existing := range r.s.data.invitations {
		if existing.Token == inv.Token {
			return domain.ErrDuplicate
		}
		if open(existing) && existing.TenantID == inv.TenantID &&
			entity.NormalizeEmail(existing.Email) == email && existing.Role == inv.Role {
			return domain.ErrInvitationExists
		}
	}
	r.s.data.invitations[inv.ID] = clone(inv)
	return nil
}

func (r *InvitationRepo) GetByID(_ context.Context, id string) (*entity.Invitation, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return clone(r.s.data.invitations[id]), nil
}

func (r *InvitationRepo) GetByToken(_ context.Context, token string) (*entity.Invitation, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, inv := range r.s.data.invitations {
		if inv.Token == token {
			return clone(inv), nil
		}
	}
	return nil, nil
}

func (r *InvitationRepo) FindPending(_ context.Context, tenantID, email string, role entity.Role, now time.Time) (*entity.Invitation, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	email = entity.NormalizeEmail(email)
	for _, inv := range r.s.data.invitations {
		if inv.TenantID == tenantID && entity.NormalizeEmail(inv.Email) == email &&
			inv.Role == role && inv.IsPending(now) {
			return clone(inv), nil
		}
	}
	return nil, nil
}

func (r *InvitationRepo) ListPendingByTenant(_ context.Context, tenantID string, now time.Time) ([]*entity.Invitation, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return sortedValues(r.s.data.invitations,
		func(inv *entity.Invitation) bool { return inv.TenantID == tenantID && inv.IsPending(now) },
		func(a, b *entity.Invitation) bool { return a.CreatedAt.After(b.CreatedAt) },
	), nil
}

func (r *InvitationRepo) MarkAccepted(_ context.Context, id string, now time.Time) (bool, error) {
	defer r.s.lockWrite()()
	inv, ok := r.s.data.invitations[id]
	if !ok || !inv.IsPending(now) {
		return false, nil
	}
	at := now
	inv.AcceptedAt = &at
	return true, nil
}

func (r *InvitationRepo) Revoke(_ context.Context, id string, now time.Time) (bool, error) {
	defer r.s.lockWrite()()
	inv, ok := r.s.data.invitations[id]
	if !ok || !open(inv) {
		return false, nil
	}
	at := now
	inv.RevokedAt = &at
	return true, nil
}

func (r *InvitationRepo) RevokeExpired(_ context.Context, tenantID, email string, role entity.Role, now time.Time) error {
	defer r.s.lockWrite()()
	email = entity.NormalizeEmail(email)
	for _, inv := range r.s.data.invitations {
		if inv.TenantID == tenantID && entity.NormalizeEmail(inv.Email) == email && inv.Role == role &&
			open(inv) && !inv.ExpiresAt.After(now) {
			at := now
			inv.RevokedAt = &at
		}
	}
	return nil
}

func (r *InvitationRepo) Delete(_ context.Context, id string) error {
	defer r.s.lockWrite()()
	delete(r.s.data.invitations, id)
	return nil
}
