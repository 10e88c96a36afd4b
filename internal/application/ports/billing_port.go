package ports

import (
	"context"
	"time"
)

// CheckoutRequest datos para abrir un checkout hosted en el proveedor.
type CheckoutRequest struct {
	VariantID   string
	Email       string
	Name        string
	CustomData  map[string]string
	RedirectURL string
}

// CheckoutSession checkout creado por el proveedor.
type CheckoutSession struct {
	ID        string
	URL       string
	ExpiresAt *time.Time
}

// Subscription vista mínima de la suscripción remota.
type Subscription struct {
	ID         string
	CustomerID string
	VariantID  string
	Status     string
	Cancelled  bool
	RenewsAt   *time.Time
	EndsAt     *time.Time
}

// UpdateSubscriptionInput cambios sobre la suscripción; nil/vacío = sin cambio.
type UpdateSubscriptionInput struct {
	VariantID string
	Cancelled *bool
}

// BillingProvider puerto de salida hacia el proveedor de suscripciones.
type BillingProvider interface {
	CreateCheckout(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error)
	GetSubscription(ctx context.Context, subscriptionID string) (*Subscription, error)
	UpdateSubscription(ctx context.Context, subscriptionID string, in UpdateSubscriptionInput) (*Subscription, error)
	CancelSubscription(ctx context.Context, subscriptionID string) (*Subscription, error)
}
