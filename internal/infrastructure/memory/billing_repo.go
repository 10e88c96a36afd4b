package memory

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/jhoicas/agrocloud-api/internal/domain"
	"github.com/jhoicas/agrocloud-api/internal/domain/entity"
	"github.com/jhoicas/agrocloud-api/internal/domain/repository"
)

var (
	_ repository.CheckoutRepository     = (*CheckoutRepo)(nil)
	_ repository.WebhookEventRepository = (*WebhookEventRepo)(nil)
	_ repository.AuditRepository        = (*AuditRepo)(nil)
)

// CheckoutRepo checkouts en memoria.
type CheckoutRepo struct{ s *Store }

func (r *CheckoutRepo) Create(_ context.Context, c *entity.Checkout) error {
	defer r.s.lockWrite()()
	if _, ok := r.s.data.checkouts[c.ID]; ok {
		return domain.ErrDuplicate
	}
	r.s.data.checkouts[c.ID] = clone(c)
	return nil
}

func (r *CheckoutRepo) GetByID(_ context.Context, id string) (*entity.Checkout, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return clone(r.s.data.checkouts[id]), nil
}

func (r *CheckoutRepo) FindLatestByEmail(_ context.Context, email string) (*entity.Checkout, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	email = entity.NormalizeEmail(email)
	var latest *entity.Checkout
	for _, c := range r.s.data.checkouts {
		if entity.NormalizeEmail(c.ContactEmail) != email {
			continue
		}
		if latest == nil || c.CreatedAt.After(latest.CreatedAt) {
			latest = c
		}
	}
	return clone(latest), nil
}

func (r *CheckoutRepo) MarkCompleted(_ context.Context, id, tenantID string) error {
	defer r.s.lockWrite()()
	c, ok := r.s.data.checkouts[id]
	if !ok {
		return domain.ErrCheckoutNotFound
	}
	c.Completed = true
	c.TenantID = tenantID
	return nil
}

// WebhookEventRepo webhook_events en memoria; event_id es la clave primaria.
type WebhookEventRepo struct{ s *Store }

func (r *WebhookEventRepo) Insert(_ context.Context, ev *entity.WebhookEvent) (bool, error) {
	defer r.s.lockWrite()()
	if _, ok := r.s.data.events[ev.EventID]; ok {
		return false, nil
	}
	r.s.data.events[ev.EventID] = clone(ev)
	return true, nil
}

func (r *WebhookEventRepo) Get(_ context.Context, eventID string) (*entity.WebhookEvent, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return clone(r.s.data.events[eventID]), nil
}

// GetForUpdate en memoria el bloqueo lo da TxRunner, que serializa las transacciones.
func (r *WebhookEventRepo) GetForUpdate(ctx context.Context, eventID string) (*entity.WebhookEvent, error) {
	return r.Get(ctx, eventID)
}

func (r *WebhookEventRepo) MarkProcessed(_ context.Context, eventID, tenantID string, at time.Time) error {
	defer r.s.lockWrite()()
	ev, ok := r.s.data.events[eventID]
	if !ok {
		return domain.ErrNotFound
	}
	ev.Processed = true
	ev.ProcessedAt = &at
	ev.Error = ""
	ev.TenantID = tenantID
	return nil
}

func (r *WebhookEventRepo) MarkFailed(_ context.Context, eventID, message string) error {
	defer r.s.lockWrite()()
	ev, ok := r.s.data.events[eventID]
	if !ok {
		return domain.ErrNotFound
	}
	ev.Processed = false
	ev.ProcessedAt = nil
	ev.Error = message
	ev.RetryCount++
	return nil
}

// AuditRepo audit_logs en memoria (solo inserción).
type AuditRepo struct{ s *Store }

func (r *AuditRepo) Create(_ context.Context, a *entity.AuditLog) error {
	defer r.s.lockWrite()()
	c := clone(a)
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	r.s.data.audit = append(r.s.data.audit, c)
	return nil
}

func (r *AuditRepo) ListByTenant(_ context.Context, tenantID string, limit int) ([]*entity.AuditLog, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]*entity.AuditLog, 0)
	for i := len(r.s.data.audit) - 1; i >= 0; i-- {
		a := r.s.data.audit[i]
		if a.TenantID != tenantID {
			continue
		}
		out = append(out, clone(a))
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}
