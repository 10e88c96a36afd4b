package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jhoicas/agrocloud-api/internal/domain"
	"github.com/jhoicas/agrocloud-api/internal/domain/entity"
	"github.com/jhoicas/agrocloud-api/internal/domain/repository"
)

var _ repository.CheckoutRepository = (*CheckoutRepo)(nil)

// CheckoutRepo checkouts pendientes de materializar.
type CheckoutRepo struct {
	q Querier
}

// NewCheckoutRepository construye el adaptador.
func NewCheckoutRepository(q Querier) *CheckoutRepo {
	return &CheckoutRepo{q: q}
}

const checkoutColumns = `id, checkout_id, contact_email, contact_name, tenant_name, tenant_slug, plan_name, completed, tenant_id, expires_at, created_at`

func (r *CheckoutRepo) Create(ctx context.Context, c *entity.Checkout) error {
	_, err := r.q.Exec(ctx, `INSERT INTO checkouts (`+checkoutColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		c.ID, c.CheckoutID, entity.NormalizeEmail(c.ContactEmail), c.ContactName, c.TenantName, c.TenantSlug,
		string(c.Plan), c.Completed, nullable(c.TenantID), c.ExpiresAt, c.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert checkout: %w", err)
	}
	return nil
}

func (r *CheckoutRepo) GetByID(ctx context.Context, id string) (*entity.Checkout, error) {
	return r.getOne(ctx, `SELECT `+checkoutColumns+` FROM checkouts WHERE id = $1`, id)
}

func (r *CheckoutRepo) FindLatestByEmail(ctx context.Context, email string) (*entity.Checkout, error) {
	return r.getOne(ctx, `SELECT `+checkoutColumns+` FROM checkouts
		WHERE lower(contact_email) = $1 ORDER BY created_at DESC LIMIT 1`, entity.NormalizeEmail(email))
}

func (r *CheckoutRepo) getOne(ctx context.Context, query string, arg any) (*entity.Checkout, error) {
	var (
		c        entity.Checkout
		plan     string
		tenantID *string
	)
	err := r.q.QueryRow(ctx, query, arg).Scan(&c.ID, &c.CheckoutID, &c.ContactEmail, &c.ContactName,
		&c.TenantName, &c.TenantSlug, &plan, &c.Completed, &tenantID, &c.ExpiresAt, &c.CreatedAt)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get checkout: %w", err)
	}
	c.Plan = entity.Plan(plan)
	c.TenantID = deref(tenantID)
	return &c, nil
}

func (r *CheckoutRepo) MarkCompleted(ctx context.Context, id, tenantID string) error {
	cmd, err := r.q.Exec(ctx, `UPDATE checkouts SET completed = true, tenant_id = $2 WHERE id = $1`, id, tenantID)
	if err != nil {
		return fmt.Errorf("complete checkout: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrCheckoutNotFound
	}
	return nil
}

// ── webhook_events ────────────────────────────────────────────────────────────

var _ repository.WebhookEventRepository = (*WebhookEventRepo)(nil)

// WebhookEventRepo registro de idempotencia; event_id es la clave primaria.
type WebhookEventRepo struct {
	q Querier
}

// NewWebhookEventRepository construye el adaptador.
func NewWebhookEventRepository(q Querier) *WebhookEventRepo {
	return &WebhookEventRepo{q: q}
}

const webhookEventColumns = `event_id, event_type, payload, processed, processed_at, error, retry_count, tenant_id, created_at`

// Insert registra el evento con ON CONFLICT DO NOTHING; inserted=false si ya existía.
func (r *WebhookEventRepo) Insert(ctx context.Context, ev *entity.WebhookEvent) (bool, error) {
	cmd, err := r.q.Exec(ctx, `
		INSERT INTO webhook_events (event_id, event_type, payload, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (event_id) DO NOTHING`, ev.EventID, ev.EventType, ev.Payload, ev.CreatedAt)
	if err != nil {
		return false, fmt.Errorf("insert webhook event: %w", err)
	}
	return cmd.RowsAffected() == 1, nil
}

func (r *WebhookEventRepo) Get(ctx context.Context, eventID string) (*entity.WebhookEvent, error) {
	return r.getOne(ctx, `SELECT `+webhookEventColumns+` FROM webhook_events WHERE event_id = $1`, eventID)
}

// GetForUpdate bloquea la fila: entregas concurrentes del mismo evento se serializan aquí.
func (r *WebhookEventRepo) GetForUpdate(ctx context.Context, eventID string) (*entity.WebhookEvent, error) {
	return r.getOne(ctx, `SELECT `+webhookEventColumns+` FROM webhook_events WHERE event_id = $1 FOR UPDATE`, eventID)
}

func (r *WebhookEventRepo) getOne(ctx context.Context, query, eventID string) (*entity.WebhookEvent, error) {
	var (
		ev       entity.WebhookEvent
		msg      *string
		tenantID *string
	)
	err := r.q.QueryRow(ctx, query, eventID).Scan(&ev.EventID, &ev.EventType, &ev.Payload, &ev.Processed,
		&ev.ProcessedAt, &msg, &ev.RetryCount, &tenantID, &ev.CreatedAt)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get webhook event: %w", err)
	}
	ev.Error = deref(msg)
	ev.TenantID = deref(tenantID)
	return &ev, nil
}

func (r *WebhookEventRepo) MarkProcessed(ctx context.Context, eventID, tenantID string, at time.Time) error {
	cmd, err := r.q.Exec(ctx, `
		UPDATE webhook_events SET processed = true, processed_at = $2, error = NULL, tenant_id = $3
		WHERE event_id = $1`, eventID, at, nullable(tenantID))
	if err != nil {
		return fmt.Errorf("mark webhook processed: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *WebhookEventRepo) MarkFailed(ctx context.Context, eventID, message string) error {
	cmd, err := r.q.Exec(ctx, `
		UPDATE webhook_events SET processed = false, processed_at = NULL, error = $2, retry_count = retry_count + 1
		WHERE event_id = $1`, eventID, message)
	if err != nil {
		return fmt.Errorf("mark webhook failed: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ── audit_logs ────────────────────────────────────────────────────────────────

var _ repository.AuditRepository = (*AuditRepo)(nil)

// AuditRepo bitácora de solo inserción.
type AuditRepo struct {
	q Querier
}

// NewAuditRepository construye el adaptador.
func NewAuditRepository(q Querier) *AuditRepo {
	return &AuditRepo{q: q}
}

func (r *AuditRepo) Create(ctx context.Context, a *entity.AuditLog) error {
	details := a.Details
	if details == nil {
		details = map[string]any{}
	}
	_, err := r.q.Exec(ctx, `
		INSERT INTO audit_logs (id, tenant_id, actor_user_id, action, entity, entity_id, details, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		a.ID, a.TenantID, nullable(a.ActorUserID), a.Action, a.Entity, a.EntityID, details, a.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert audit log: %w", err)
	}
	return nil
}

func (r *AuditRepo) ListByTenant(ctx context.Context, tenantID string, limit int) ([]*entity.AuditLog, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.q.Query(ctx, `
		SELECT id, tenant_id, actor_user_id, action, entity, entity_id, details, created_at
		FROM audit_logs WHERE tenant_id = $1 ORDER BY created_at DESC LIMIT $2`, tenantID, limit)
	if err != nil {
		return nil, fmt.Errorf("list audit logs: %w", err)
	}
	defer rows.Close()

	var list []*entity.AuditLog
	for rows.Next() {
		var (
			a     entity.AuditLog
			actor *string
		)
		if err := rows.Scan(&a.ID, &a.TenantID, &actor, &a.Action, &a.Entity, &a.EntityID, &a.Details, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan audit log: %w", err)
		}
		a.ActorUserID = deref(actor)
		list = append(list, &a)
	}
	return list, rows.Err()
}
