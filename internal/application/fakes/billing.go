package fakes

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jhoicas/agrocloud-api/internal/application/ports"
	"github.com/jhoicas/agrocloud-api/internal/domain"
)

var _ ports.BillingProvider = (*Billing)(nil)

// Billing proveedor de suscripciones en memoria.
type Billing struct {
	mu            sync.Mutex
	Checkouts     []ports.CheckoutRequest
	Subscriptions map[string]*ports.Subscription
	Fail          error
}

// NewBilling crea el fake vacío.
func NewBilling() *Billing {
	return &Billing{Subscriptions: map[string]*ports.Subscription{}}
}

func (f *Billing) CreateCheckout(_ context.Context, req ports.CheckoutRequest) (*ports.CheckoutSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Fail != nil {
		return nil, f.Fail
	}
	f.Checkouts = append(f.Checkouts, req)
	id := uuid.New().String()
	return &ports.CheckoutSession{ID: id, URL: "https://checkout.test/" + id}, nil
}

func (f *Billing) GetSubscription(_ context.Context, id string) (*ports.Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.Subscriptions[id]
	if !ok {
		return nil, domain.ErrNoSubscription
	}
	c := *s
	return &c, nil
}

func (f *Billing) UpdateSubscription(_ context.Context, id string, in ports.UpdateSubscriptionInput) (*ports.Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Fail != nil {
		return nil, f.Fail
	}
	s, ok := f.Subscriptions[id]
	if !ok {
		return nil, domain.ErrNoSubscription
	}
	if in.VariantID != "" {
		s.VariantID = in.VariantID
	}
	if in.Cancelled != nil {
		s.Cancelled = *in.Cancelled
		if s.Cancelled {
			s.Status = "cancelled"
		} else {
			s.Status = "active"
			s.EndsAt = nil
		}
	}
	c := *s
	return &c, nil
}

func (f *Billing) CancelSubscription(_ context.Context, id string) (*ports.Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Fail != nil {
		return nil, f.Fail
	}
	s, ok := f.Subscriptions[id]
	if !ok {
		return nil, domain.ErrNoSubscription
	}
	ends := time.Now().UTC().Add(30 * 24 * time.Hour)
	s.Cancelled, s.Status, s.EndsAt = true, "cancelled", &ends
	c := *s
	return &c, nil
}
