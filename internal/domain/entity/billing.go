package entity

import "time"

// CheckoutTTL vigencia de un checkout pendiente de pago.
const CheckoutTTL = 24 * time.Hour

// Checkout intención de compra previa al pago; se materializa en un Tenant cuando llega el webhook.
type Checkout struct {
	ID           string
	CheckoutID   string // id del checkout en el proveedor
	ContactEmail string
	ContactName  string
	TenantName   string
	TenantSlug   string
	Plan         Plan
	Completed    bool
	TenantID     string // vacío hasta materializar
	ExpiresAt    time.Time
	CreatedAt    time.Time
}

// WebhookEvent registro de idempotencia y auditoría de un evento del proveedor.
type WebhookEvent struct {
	EventID     string
	EventType   string
	Payload     []byte
	Processed   bool
	ProcessedAt *time.Time
	Error       string
	RetryCount  int
	TenantID    string
	CreatedAt   time.Time
}

// AuditLog entrada de auditoría; solo se inserta.
type AuditLog struct {
	ID          string
	TenantID    string
	ActorUserID string // vacío = acción del sistema
	Action      string
	Entity      string
	EntityID    string
	Details     map[string]any
	CreatedAt   time.Time
}

// Profile datos de contacto del usuario de identidad.
type Profile struct {
	ID        string
	Email     string
	FullName  string
	Phone     string
	CreatedAt time.Time
}

// AuthUser credencial del proveedor de identidad local.
type AuthUser struct {
	ID               string
	Email            string
	PasswordHash     string // vacío hasta que el invitado define contraseña
	FullName         string
	Phone            string
	EmailConfirmedAt *time.Time
	InvitedAt        *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}
