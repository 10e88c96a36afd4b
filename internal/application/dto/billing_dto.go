package dto

import "time"

// CheckoutRequest intención de compra previa al pago (pública).
type CheckoutRequest struct {
	TenantName   string `json:"tenantName" validate:"required,min=2,max=100"`
	Slug         string `json:"slug" validate:"omitempty,slug"`
	Plan         string `json:"plan" validate:"required,oneof=basico profesional basic pro enterprise"`
	ContactName  string `json:"contactName" validate:"required,min=2,max=100"`
	ContactEmail string `json:"contactEmail" validate:"required,email,max=254"`
}

// CheckoutResponse URL del checkout hosted.
type CheckoutResponse struct {
	Success     bool   `json:"success"`
	CheckoutURL string `json:"checkoutUrl"`
}

// WebhookResponse respuesta al proveedor.
type WebhookResponse struct {
	Received  bool   `json:"received"`
	Processed bool   `json:"processed"`
	TenantID  string `json:"tenantId,omitempty"`
	Reason    string `json:"reason,omitempty"`
}

// ChangePlanRequest cambio de plan de la suscripción.
type ChangePlanRequest struct {
	Plan string `json:"plan" validate:"required,oneof=basico profesional basic pro enterprise"`
}

// SubscriptionResponse estado de la suscripción tras una operación.
type SubscriptionResponse struct {
	Success       bool       `json:"success"`
	Plan          string     `json:"plan"`
	PaymentStatus string     `json:"payment_status"`
	Status        string     `json:"subscription_status"`
	RenewsAt      *time.Time `json:"renews_at,omitempty"`
	EndsAt        *time.Time `json:"ends_at,omitempty"`
}
