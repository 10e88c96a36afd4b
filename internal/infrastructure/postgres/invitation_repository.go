package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jhoicas/agrocloud-api/internal/domain"
	"github.com/jhoicas/agrocloud-api/internal/domain/entity"
	"github.com/jhoicas/agrocloud-api/internal/domain/repository"
)

var _ repository.InvitationRepository = (*InvitationRepo)(nil)

// InvitationRepo implementación sobre PostgreSQL. La unicidad de invitaciones abiertas
// la impone el índice parcial invitations_open_key.
type InvitationRepo struct {
	q Querier
}

// NewInvitationRepository construye el adaptador.
func NewInvitationRepository(q Querier) *InvitationRepo {
	return &InvitationRepo{q: q}
}

const invitationColumns = `id, tenant_id, email, role_code, token_hash, invited_by, expires_at, accepted_at, revoked_at, created_at`

func (r *InvitationRepo) Create(ctx context.Context, inv *entity.Invitation) error {
	_, err := r.q.Exec(ctx, `INSERT INTO invitations (`+invitationColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		inv.ID, inv.TenantID, entity.NormalizeEmail(inv.Email), string(inv.Role), inv.Token,
		nullable(inv.InvitedBy), inv.ExpiresAt, inv.AcceptedAt, inv.RevokedAt, inv.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			if violatedConstraint(err) == "invitations_token_key" {
				return domain.ErrDuplicate
			}
			return domain.ErrInvitationExists
		}
		return fmt.Errorf("insert invitation: %w", err)
	}
	return nil
}

func (r *InvitationRepo) GetByID(ctx context.Context, id string) (*entity.Invitation, error) {
	return r.getOne(ctx, `SELECT `+invitationColumns+` FROM invitations WHERE id = $1`, id)
}

func (r *InvitationRepo) GetByToken(ctx context.Context, token string) (*entity.Invitation, error) {
	if token == "" {
		return nil, nil
	}
	return r.getOne(ctx, `SELECT `+invitationColumns+` FROM invitations WHERE token_hash = $1`, token)
}

func (r *InvitationRepo) FindPending(ctx context.Context, tenantID, email string, role entity.Role, now time.Time) (*entity.Invitation, error) {
	return r.getOne(ctx, `SELECT `+invitationColumns+` FROM invitations
		WHERE tenant_id = $1 AND lower(email) = $2 AND role_code = $3
		  AND accepted_at IS NULL AND revoked_at IS NULL AND expires_at > $4
		LIMIT 1`, tenantID, entity.NormalizeEmail(email), string(role), now)
}

func (r *InvitationRepo) getOne(ctx context.Context, query string, args ...any) (*entity.Invitation, error) {
	inv, err := scanInvitation(r.q.QueryRow(ctx, query, args...))
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get invitation: %w", err)
	}
	return inv, nil
}

func (r *InvitationRepo) ListPendingByTenant(ctx context.Context, tenantID string, now time.Time) ([]*entity.Invitation, error) {
	rows, err := r.q.Query(ctx, `SELECT `+invitationColumns+` FROM invitations
		WHERE tenant_id = $1 AND accepted_at IS NULL AND revoked_at IS NULL AND expires_at > $2
		ORDER BY created_at DESC`, tenantID, now)
	if err != nil {
		return nil, fmt.Errorf("list invitations: %w", err)
	}
	defer rows.Close()

	var list []*entity.Invitation
	for rows.Next() {
		inv, err := scanInvitation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan invitation: %w", err)
		}
		list = append(list, inv)
	}
	return list, rows.Err()
}

// MarkAccepted consume la invitación con un UPDATE condicionado: solo una aceptación concurrente gana.
func (r *InvitationRepo) MarkAccepted(ctx context.Context, id string, now time.Time) (bool, error) {
	cmd, err := r.q.Exec(ctx, `
		UPDATE invitations SET accepted_at = $2
		WHERE id = $1 AND accepted_at IS NULL AND revoked_at IS NULL AND expires_at > $2`, id, now)
	if err != nil {
		return false, fmt.Errorf("accept invitation: %w", err)
	}
	return cmd.RowsAffected() == 1, nil
}

func (r *InvitationRepo) Revoke(ctx context.Context, id string, now time.Time) (bool, error) {
	cmd, err := r.q.Exec(ctx, `
		UPDATE invitations SET revoked_at = $2
		WHERE id = $1 AND accepted_at IS NULL AND revoked_at IS NULL`, id, now)
	if err != nil {
		return false, fmt.Errorf("revoke invitation: %w", err)
	}
	return cmd.RowsAffected() == 1, nil
}

func (r *InvitationRepo) RevokeExpired(ctx context.Context, tenantID, email string, role entity.Role, now time.Time) error {
	_, err := r.q.Exec(ctx, `
		UPDATE invitations SET revoked_at = $4
		WHERE tenant_id = $1 AND lower(email) = $2 AND role_code = $3
		  AND accepted_at IS NULL AND revoked_at IS NULL AND expires_at <= $4`,
		tenantID, entity.NormalizeEmail(email), string(role), now)
	if err != nil {
		return fmt.Errorf("revoke expired invitations: %w", err)
	}
	return nil
}

func (r *InvitationRepo) Delete(ctx context.Context, id string) error {
	if _, err := r.q.Exec(ctx, `DELETE FROM invitations WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete invitation: %w", err)
	}
	return nil
}

func scanInvitation(row pgxScanner) (*entity.Invitation, error) {
	var (
		inv       entity.Invitation
		role      string
		invitedBy *string
	)
	err := row.Scan(&inv.ID, &inv.TenantID, &inv.Email, &role, &inv.Token, &invitedBy,
		&inv.ExpiresAt, &inv.AcceptedAt, &inv.RevokedAt, &inv.CreatedAt)
	if err != nil {
		return nil, err
	}
	inv.Role = entity.Role(role)
	inv.InvitedBy = deref(invitedBy)
	return &inv, nil
}
