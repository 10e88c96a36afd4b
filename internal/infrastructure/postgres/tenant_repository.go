package postgres

import (
	"context"
	"fmt"

	"github.com/jhoicas/agrocloud-api/internal/domain"
	"github.com/jhoicas/agrocloud-api/internal/domain/entity"
	"github.com/jhoicas/agrocloud-api/internal/domain/repository"
)

// Asegura que TenantRepo implementa repository.TenantRepository.
var _ repository.TenantRepository = (*TenantRepo)(nil)

// TenantRepo implementación del puerto TenantRepository sobre PostgreSQL (usable con pool o tx).
type TenantRepo struct {
	q Querier
}

// NewTenantRepository construye el adaptador de persistencia para organizaciones.
func NewTenantRepository(q Querier) *TenantRepo {
	return &TenantRepo{q: q}
}

const tenantColumns = `
	id, name, slug, plan, contact_name, contact_email, created_by,
	max_users, max_fields, current_users, current_fields, payment_status,
	lemon_subscription_id, lemon_customer_id, lemon_variant_id,
	renews_at, ends_at, payment_failed_at, last_payment_amount, created_at, updated_at`

// Create persiste una nueva organización. Slug duplicado → domain.ErrSlugTaken.
func (r *TenantRepo) Create(ctx context.Context, t *entity.Tenant) error {
	query := `INSERT INTO tenants (` + tenantColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)`
	_, err := r.q.Exec(ctx, query,
		t.ID, t.Name, t.Slug, string(t.Plan), t.ContactName, t.ContactEmail, t.CreatedBy,
		t.MaxUsers, t.MaxFields, t.CurrentUsers, t.CurrentFields, string(t.PaymentStatus),
		nullable(t.LemonSubscriptionID), nullable(t.LemonCustomerID), nullable(t.LemonVariantID),
		t.RenewsAt, t.EndsAt, t.PaymentFailedAt, t.LastPaymentAmount, t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrSlugTaken
		}
		return fmt.Errorf("insert tenant: %w", err)
	}
	return nil
}

// GetByID obtiene una organización por ID.
func (r *TenantRepo) GetByID(ctx context.Context, id string) (*entity.Tenant, error) {
	return r.getOne(ctx, `SELECT `+tenantColumns+` FROM tenants WHERE id = $1`, id)
}

// GetBySlug obtiene una organización por slug.
func (r *TenantRepo) GetBySlug(ctx context.Context, slug string) (*entity.Tenant, error) {
	return r.getOne(ctx, `SELECT `+tenantColumns+` FROM tenants WHERE slug = $1`, slug)
}

// GetBySubscriptionID obtiene la organización vinculada a la suscripción del proveedor.
func (r *TenantRepo) GetBySubscriptionID(ctx context.Context, subscriptionID string) (*entity.Tenant, error) {
	if subscriptionID == "" {
		return nil, nil
	}
	return r.getOne(ctx, `SELECT `+tenantColumns+` FROM tenants WHERE lemon_subscription_id = $1 LIMIT 1`, subscriptionID)
}

func (r *TenantRepo) getOne(ctx context.Context, query string, arg any) (*entity.Tenant, error) {
	t, err := scanTenant(r.q.QueryRow(ctx, query, arg))
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get tenant: %w", err)
	}
	return t, nil
}

// SlugExists informa si el slug ya está en uso.
func (r *TenantRepo) SlugExists(ctx context.Context, slug string) (bool, error) {
	var exists bool
	if err := r.q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM tenants WHERE slug = $1)`, slug).Scan(&exists); err != nil {
		return false, fmt.Errorf("slug exists: %w", err)
	}
	return exists, nil
}

// Update actualiza plan, límites y estado de cobro. current_users no se toca aquí:
// solo cambia con ReserveSeat/ReleaseSeat.
func (r *TenantRepo) Update(ctx context.Context, t *entity.Tenant) error {
	query := `
		UPDATE tenants SET
			name = $2, plan = $3, contact_name = $4, contact_email = $5,
			max_users = $6, max_fields = $7, current_fields = $8, payment_status = $9,
			lemon_subscription_id = $10, lemon_customer_id = $11, lemon_variant_id = $12,
			renews_at = $13, ends_at = $14, payment_failed_at = $15, last_payment_amount = $16,
			updated_at = now()
		WHERE id = $1`
	cmd, err := r.q.Exec(ctx, query,
		t.ID, t.Name, string(t.Plan), t.ContactName, t.ContactEmail,
		t.MaxUsers, t.MaxFields, t.CurrentFields, string(t.PaymentStatus),
		nullable(t.LemonSubscriptionID), nullable(t.LemonCustomerID), nullable(t.LemonVariantID),
		t.RenewsAt, t.EndsAt, t.PaymentFailedAt, t.LastPaymentAmount,
	)
	if err != nil {
		return fmt.Errorf("update tenant: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrTenantNotFound
	}
	return nil
}

// ReserveSeat incrementa current_users en una sola sentencia condicionada al cupo.
func (r *TenantRepo) ReserveSeat(ctx context.Context, tenantID string) (int, error) {
	var current int
	err := r.q.QueryRow(ctx, `
		UPDATE tenants SET current_users = current_users + 1, updated_at = now()
		WHERE id = $1 AND (max_users <= 0 OR current_users < max_users)
		RETURNING current_users`, tenantID).Scan(&current)
	if err == nil {
		return current, nil
	}
	if !isNoRows(err) {
		return 0, fmt.Errorf("reserve seat: %w", err)
	}
	var exists bool
	if err := r.q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM tenants WHERE id = $1)`, tenantID).Scan(&exists); err != nil {
		return 0, fmt.Errorf("reserve seat: %w", err)
	}
	if !exists {
		return 0, domain.ErrTenantNotFound
	}
	return 0, domain.ErrSeatLimitReached
}

// ReleaseSeat decrementa current_users sin bajar de cero.
func (r *TenantRepo) ReleaseSeat(ctx context.Context, tenantID string) error {
	cmd, err := r.q.Exec(ctx, `
		UPDATE tenants SET current_users = GREATEST(current_users - 1, 0), updated_at = now()
		WHERE id = $1`, tenantID)
	if err != nil {
		return fmt.Errorf("release seat: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrTenantNotFound
	}
	return nil
}

// Delete elimina la organización (las filas dependientes caen por ON DELETE CASCADE).
func (r *TenantRepo) Delete(ctx context.Context, id string) error {
	if _, err := r.q.Exec(ctx, `DELETE FROM tenants WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete tenant: %w", err)
	}
	return nil
}

func scanTenant(row pgxScanner) (*entity.Tenant, error) {
	var (
		t                    entity.Tenant
		plan, status         string
		subID, custID, varID *string
	)
	err := row.Scan(
		&t.ID, &t.Name, &t.Slug, &plan, &t.ContactName, &t.ContactEmail, &t.CreatedBy,
		&t.MaxUsers, &t.MaxFields, &t.CurrentUsers, &t.CurrentFields, &status,
		&subID, &custID, &varID,
		&t.RenewsAt, &t.EndsAt, &t.PaymentFailedAt, &t.LastPaymentAmount, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	t.Plan = entity.Plan(plan)
	t.PaymentStatus = entity.PaymentStatus(status)
	t.LemonSubscriptionID, t.LemonCustomerID, t.LemonVariantID = deref(subID), deref(custID), deref(varID)
	return &t, nil
}

// ── tenant_modules ────────────────────────────────────────────────────────────

var _ repository.ModuleRepository = (*ModuleRepo)(nil)

// ModuleRepo módulos habilitados por organización.
type ModuleRepo struct {
	q Querier
}

// NewModuleRepository construye el adaptador.
func NewModuleRepository(q Querier) *ModuleRepo {
	return &ModuleRepo{q: q}
}

// Enable habilita los módulos (upsert por (tenant_id, module_code)).
func (r *ModuleRepo) Enable(ctx context.Context, tenantID string, codes []entity.ModuleCode) error {
	for _, c := range codes {
		_, err := r.q.Exec(ctx, `
			INSERT INTO tenant_modules (tenant_id, module_code, enabled, created_at)
			VALUES ($1, $2, true, now())
			ON CONFLICT (tenant_id, module_code) DO UPDATE SET enabled = true`, tenantID, string(c))
		if err != nil {
			return fmt.Errorf("enable module %s: %w", c, err)
		}
	}
	return nil
}

// HasActiveModule informa si el módulo está habilitado.
func (r *ModuleRepo) HasActiveModule(ctx context.Context, tenantID string, code entity.ModuleCode) (bool, error) {
	var ok bool
	err := r.q.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM tenant_modules WHERE tenant_id = $1 AND module_code = $2 AND enabled)`,
		tenantID, string(code)).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("has active module: %w", err)
	}
	return ok, nil
}

// ListByTenant lista los módulos de la organización.
func (r *ModuleRepo) ListByTenant(ctx context.Context, tenantID string) ([]*entity.TenantModule, error) {
	rows, err := r.q.Query(ctx, `
		SELECT tenant_id, module_code, enabled, created_at
		FROM tenant_modules WHERE tenant_id = $1 ORDER BY module_code`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list modules: %w", err)
	}
	defer rows.Close()

	var list []*entity.TenantModule
	for rows.Next() {
		var (
			m    entity.TenantModule
			code string
		)
		if err := rows.Scan(&m.TenantID, &code, &m.Enabled, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan module: %w", err)
		}
		m.ModuleCode = entity.ModuleCode(code)
		list = append(list, &m)
	}
	return list, rows.Err()
}
