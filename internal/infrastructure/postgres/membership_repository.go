package postgres

import (
	"context"
	"fmt"

	"github.com/jhoicas/agrocloud-api/internal/domain"
	"github.com/jhoicas/agrocloud-api/internal/domain/entity"
	"github.com/jhoicas/agrocloud-api/internal/domain/repository"
)

var _ repository.MembershipRepository = (*MembershipRepo)(nil)

// MembershipRepo implementación sobre PostgreSQL (usable con pool o tx).
type MembershipRepo struct {
	q Querier
}

// NewMembershipRepository construye el adaptador. Pasar pool o tx (Querier).
func NewMembershipRepository(q Querier) *MembershipRepo {
	return &MembershipRepo{q: q}
}

const membershipColumns = `id, tenant_id, user_id, role_code, status, invited_by, accepted_at, created_at, updated_at`

// Create persiste la membresía. (tenant_id, user_id) duplicado → domain.ErrMembershipExists.
func (r *MembershipRepo) Create(ctx context.Context, m *entity.Membership) error {
	_, err := r.q.Exec(ctx, `INSERT INTO memberships (`+membershipColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		m.ID, m.TenantID, m.UserID, string(m.Role), string(m.Status),
		nullable(m.InvitedBy), m.AcceptedAt, m.CreatedAt, m.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrMembershipExists
		}
		return fmt.Errorf("insert membership: %w", err)
	}
	return nil
}

func (r *MembershipRepo) GetByID(ctx context.Context, id string) (*entity.Membership, error) {
	m, err := scanMembership(r.q.QueryRow(ctx, `SELECT `+membershipColumns+` FROM memberships WHERE id = $1`, id))
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get membership: %w", err)
	}
	return m, nil
}

func (r *MembershipRepo) GetByTenantAndUser(ctx context.Context, tenantID, userID string) (*entity.Membership, error) {
	m, err := scanMembership(r.q.QueryRow(ctx,
		`SELECT `+membershipColumns+` FROM memberships WHERE tenant_id = $1 AND user_id = $2`, tenantID, userID))
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get membership: %w", err)
	}
	return m, nil
}

func (r *MembershipRepo) ListByTenant(ctx context.Context, tenantID string) ([]*entity.Membership, error) {
	rows, err := r.q.Query(ctx,
		`SELECT `+membershipColumns+` FROM memberships WHERE tenant_id = $1 ORDER BY created_at`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list memberships: %w", err)
	}
	defer rows.Close()

	var list []*entity.Membership
	for rows.Next() {
		m, err := scanMembership(rows)
		if err != nil {
			return nil, fmt.Errorf("scan membership: %w", err)
		}
		list = append(list, m)
	}
	return list, rows.Err()
}

func (r *MembershipRepo) UpdateStatus(ctx context.Context, id string, status entity.MembershipStatus) error {
	cmd, err := r.q.Exec(ctx, `UPDATE memberships SET status = $2, updated_at = now() WHERE id = $1`, id, string(status))
	if err != nil {
		return fmt.Errorf("update membership: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrMembershipNotFound
	}
	return nil
}

func (r *MembershipRepo) Delete(ctx context.Context, id string) error {
	if _, err := r.q.Exec(ctx, `DELETE FROM memberships WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete membership: %w", err)
	}
	return nil
}

func scanMembership(row pgxScanner) (*entity.Membership, error) {
	var (
		m            entity.Membership
		role, status string
		invitedBy    *string
	)
	if err := row.Scan(&m.ID, &m.TenantID, &m.UserID, &role, &status, &invitedBy, &m.AcceptedAt, &m.CreatedAt, &m.UpdatedAt); err != nil {
		return nil, err
	}
	m.Role = entity.Role(role)
	m.Status = entity.MembershipStatus(status)
	m.InvitedBy = deref(invitedBy)
	return &m, nil
}

// ── workers ───────────────────────────────────────────────────────────────────

var _ repository.WorkerRepository = (*WorkerRepo)(nil)

// WorkerRepo perfiles de trabajador.
type WorkerRepo struct {
	q Querier
}

// NewWorkerRepository construye el adaptador.
func NewWorkerRepository(q Querier) *WorkerRepo {
	return &WorkerRepo{q: q}
}

const workerColumns = `id, tenant_id, full_name, document_id, email, phone, area_module, membership_id, status, created_at, updated_at`

func (r *WorkerRepo) Create(ctx context.Context, w *entity.Worker) error {
	_, err := r.q.Exec(ctx, `INSERT INTO workers (`+workerColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		w.ID, w.TenantID, w.FullName, w.DocumentID, w.Email, w.Phone, w.AreaModule,
		nullable(w.MembershipID), string(w.Status), w.CreatedAt, w.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert worker: %w", err)
	}
	return nil
}

func (r *WorkerRepo) GetByMembershipID(ctx context.Context, membershipID string) (*entity.Worker, error) {
	w, err := scanWorker(r.q.QueryRow(ctx,
		`SELECT `+workerColumns+` FROM workers WHERE membership_id = $1 LIMIT 1`, membershipID))
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get worker: %w", err)
	}
	return w, nil
}

func (r *WorkerRepo) ListByTenant(ctx context.Context, tenantID string) ([]*entity.Worker, error) {
	rows, err := r.q.Query(ctx,
		`SELECT `+workerColumns+` FROM workers WHERE tenant_id = $1 ORDER BY created_at`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list workers: %w", err)
	}
	defer rows.Close()

	var list []*entity.Worker
	for rows.Next() {
		w, err := scanWorker(rows)
		if err != nil {
			return nil, fmt.Errorf("scan worker: %w", err)
		}
		list = append(list, w)
	}
	return list, rows.Err()
}

func (r *WorkerRepo) UpdateStatus(ctx context.Context, id string, status entity.WorkerStatus) error {
	if _, err := r.q.Exec(ctx, `UPDATE workers SET status = $2, updated_at = now() WHERE id = $1`, id, string(status)); err != nil {
		return fmt.Errorf("update worker: %w", err)
	}
	return nil
}

func (r *WorkerRepo) Delete(ctx context.Context, id string) error {
	if _, err := r.q.Exec(ctx, `DELETE FROM workers WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete worker: %w", err)
	}
	return nil
}

func scanWorker(row pgxScanner) (*entity.Worker, error) {
	var (
		w            entity.Worker
		membershipID *string
		status       string
	)
	err := row.Scan(&w.ID, &w.TenantID, &w.FullName, &w.DocumentID, &w.Email, &w.Phone, &w.AreaModule,
		&membershipID, &status, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		return nil, err
	}
	w.MembershipID = deref(membershipID)
	w.Status = entity.WorkerStatus(status)
	return &w, nil
}

// ── profiles ──────────────────────────────────────────────────────────────────

var _ repository.ProfileRepository = (*ProfileRepo)(nil)

// ProfileRepo datos de contacto por usuario de identidad.
type ProfileRepo struct {
	q Querier
}

// NewProfileRepository construye el adaptador.
func NewProfileRepository(q Querier) *ProfileRepo {
	return &ProfileRepo{q: q}
}

// Upsert crea o actualiza el perfil; nombre y teléfono vacíos no pisan los existentes.
func (r *ProfileRepo) Upsert(ctx context.Context, p *entity.Profile) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO profiles (id, email, full_name, phone, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			email = EXCLUDED.email,
			full_name = COALESCE(NULLIF(EXCLUDED.full_name, ''), profiles.full_name),
			phone = COALESCE(NULLIF(EXCLUDED.phone, ''), profiles.phone)`,
		p.ID, p.Email, p.FullName, p.Phone, p.CreatedAt)
	if err != nil {
		return fmt.Errorf("upsert profile: %w", err)
	}
	return nil
}

func (r *ProfileRepo) GetByID(ctx context.Context, id string) (*entity.Profile, error) {
	var p entity.Profile
	err := r.q.QueryRow(ctx, `SELECT id, email, full_name, phone, created_at FROM profiles WHERE id = $1`, id).
		Scan(&p.ID, &p.Email, &p.FullName, &p.Phone, &p.CreatedAt)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return &p, nil
}

// ── auth_users ────────────────────────────────────────────────────────────────

var _ repository.AuthUserRepository = (*AuthUserRepo)(nil)

// AuthUserRepo credenciales del proveedor de identidad local.
type AuthUserRepo struct {
	q Querier
}

// NewAuthUserRepository construye el adaptador.
func NewAuthUserRepository(q Querier) *AuthUserRepo {
	return &AuthUserRepo{q: q}
}

const authUserColumns = `id, email, password_hash, full_name, phone, email_confirmed_at, invited_at, created_at, updated_at`

func (r *AuthUserRepo) Create(ctx context.Context, u *entity.AuthUser) error {
	_, err := r.q.Exec(ctx, `INSERT INTO auth_users (`+authUserColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		u.ID, entity.NormalizeEmail(u.Email), u.PasswordHash, u.FullName, u.Phone,
		u.EmailConfirmedAt, u.InvitedAt, u.CreatedAt, u.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrEmailAlreadyExists
		}
		return fmt.Errorf("insert auth user: %w", err)
	}
	return nil
}

func (r *AuthUserRepo) GetByID(ctx context.Context, id string) (*entity.AuthUser, error) {
	return r.getOne(ctx, `SELECT `+authUserColumns+` FROM auth_users WHERE id = $1`, id)
}

func (r *AuthUserRepo) GetByEmail(ctx context.Context, email string) (*entity.AuthUser, error) {
	return r.getOne(ctx, `SELECT `+authUserColumns+` FROM auth_users WHERE lower(email) = $1`, entity.NormalizeEmail(email))
}

func (r *AuthUserRepo) getOne(ctx context.Context, query string, arg any) (*entity.AuthUser, error) {
	var u entity.AuthUser
	err := r.q.QueryRow(ctx, query, arg).Scan(
		&u.ID, &u.Email, &u.PasswordHash, &u.FullName, &u.Phone,
		&u.EmailConfirmedAt, &u.InvitedAt, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get auth user: %w", err)
	}
	return &u, nil
}

func (r *AuthUserRepo) Update(ctx context.Context, u *entity.AuthUser) error {
	cmd, err := r.q.Exec(ctx, `
		UPDATE auth_users SET password_hash = $2, full_name = $3, phone = $4,
			email_confirmed_at = $5, invited_at = $6, updated_at = now()
		WHERE id = $1`,
		u.ID, u.PasswordHash, u.FullName, u.Phone, u.EmailConfirmedAt, u.InvitedAt)
	if err != nil {
		return fmt.Errorf("update auth user: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (r *AuthUserRepo) Delete(ctx context.Context, id string) error {
	if _, err := r.q.Exec(ctx, `DELETE FROM auth_users WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete auth user: %w", err)
	}
	return nil
}
