package billing

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	dombilling "github.com/jhoicas/agrocloud-api/internal/domain/billing"
)

// webhookPayload forma JSON:API de los eventos del proveedor.
type webhookPayload struct {
	Meta struct {
		EventName  string         `json:"event_name"`
		TestMode   bool           `json:"test_mode"`
		CustomData map[string]any `json:"custom_data"`
	} `json:"meta"`
	Data struct {
		Type       string                `json:"type"`
		ID         dombilling.ProviderID `json:"id"`
		Attributes attributes            `json:"attributes"`
	} `json:"data"`
}

type attributes struct {
	CustomerID     dombilling.ProviderID `json:"customer_id"`
	OrderID        dombilling.ProviderID `json:"order_id"`
	SubscriptionID dombilling.ProviderID `json:"subscription_id"`
	VariantID      dombilling.ProviderID `json:"variant_id"`
	UserEmail      string                `json:"user_email"`
	UserName       string                `json:"user_name"`
	Status         string                `json:"status"`
	RenewsAt       *time.Time            `json:"renews_at"`
	EndsAt         *time.Time            `json:"ends_at"`
	UpdatedAt      string                `json:"updated_at"`
	Total          int64                 `json:"total"`
	FirstOrderItem *struct {
		VariantID dombilling.ProviderID `json:"variant_id"`
	} `json:"first_order_item"`
}

func parsePayload(body []byte) (*webhookPayload, error) {
	var p webhookPayload
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, fmt.Errorf("payload inválido: %w", err)
	}
	if p.Meta.EventName == "" || p.Data.ID == "" {
		return nil, fmt.Errorf("payload sin meta.event_name o data.id")
	}
	return &p, nil
}

func (p *webhookPayload) event() dombilling.Event {
	return dombilling.Event(p.Meta.EventName)
}

// eventID clave de idempotencia. subscription_updated se reenvía con el mismo data.id,
// por eso incluye updated_at.
func (p *webhookPayload) eventID() string {
	id := p.Meta.EventName + ":" + p.Data.ID.String()
	if p.event() == dombilling.EventSubscriptionUpdated && p.Data.Attributes.UpdatedAt != "" {
		id += ":" + p.Data.Attributes.UpdatedAt
	}
	return id
}

// subscriptionID id de la suscripción afectada: en facturas viene en attributes.subscription_id.
func (p *webhookPayload) subscriptionID() string {
	if sid := p.Data.Attributes.SubscriptionID.String(); sid != "" {
		return sid
	}
	if p.Data.Type == "subscriptions" || (p.Data.Type == "" && strings.HasPrefix(p.Meta.EventName, "subscription_")) {
		return p.Data.ID.String()
	}
	return ""
}

func (p *webhookPayload) variantID() string {
	if v := p.Data.Attributes.VariantID.String(); v != "" {
		return v
	}
	if p.Data.Attributes.FirstOrderItem != nil {
		return p.Data.Attributes.FirstOrderItem.VariantID.String()
	}
	return ""
}

func (p *webhookPayload) custom(key string) string {
	v, ok := p.Meta.CustomData[key]
	if !ok || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		return decimal.NewFromFloat(t).String()
	default:
		return fmt.Sprint(t)
	}
}

// amount total en centavos a unidades.
func (p *webhookPayload) amount() decimal.Decimal {
	return decimal.New(p.Data.Attributes.Total, -2)
}
