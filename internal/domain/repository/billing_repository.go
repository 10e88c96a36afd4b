package repository

import (
	"context"
	"time"

	"github.com/jhoicas/agrocloud-api/internal/domain/entity"
)

// CheckoutRepository puerto para checkouts pendientes de materializar.
type CheckoutRepository interface {
	Create(ctx context.Context, c *entity.Checkout) error
	GetByID(ctx context.Context, id string) (*entity.Checkout, error)
	// FindLatestByEmail devuelve el checkout más reciente del email (completado o no).
	FindLatestByEmail(ctx context.Context, email string) (*entity.Checkout, error)
	MarkCompleted(ctx context.Context, id, tenantID string) error
}

// WebhookEventRepository puerto del registro de idempotencia de webhooks.
type WebhookEventRepository interface {
	// Insert registra el evento; inserted=false si el event_id ya existía.
	Insert(ctx context.Context, ev *entity.WebhookEvent) (inserted bool, err error)
	Get(ctx context.Context, eventID string) (*entity.WebhookEvent, error)
	// GetForUpdate bloquea la fila del evento hasta el fin de la transacción.
	GetForUpdate(ctx context.Context, eventID string) (*entity.WebhookEvent, error)
	MarkProcessed(ctx context.Context, eventID, tenantID string, at time.Time) error
	// MarkFailed deja el evento sin procesar, guarda el error y suma un reintento.
	MarkFailed(ctx context.Context, eventID, message string) error
}

// AuditRepository puerto de la bitácora (solo inserción y lectura).
type AuditRepository interface {
	Create(ctx context.Context, a *entity.AuditLog) error
	ListByTenant(ctx context.Context, tenantID string, limit int) ([]*entity.AuditLog, error)
}
