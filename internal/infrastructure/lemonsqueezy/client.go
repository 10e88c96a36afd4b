// Package lemonsqueezy cliente JSON:API del proveedor de suscripciones.
package lemonsqueezy

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"github.com/jhoicas/agrocloud-api/internal/application/ports"
	dombilling "github.com/jhoicas/agrocloud-api/internal/domain/billing"
)

var _ ports.BillingProvider = (*Client)(nil)

// DefaultBaseURL URL pública de la API.
const DefaultBaseURL = "https://api.lemonsqueezy.com/v1"

const mediaType = "application/vnd.api+json"

// Config credenciales y tienda.
type Config struct {
	BaseURL  string
	APIKey   string
	StoreID  string
	TestMode bool
}

// Client implementa ports.BillingProvider.
type Client struct {
	client   *resty.Client
	storeID  string
	testMode bool
	log      zerolog.Logger
}

// NewClient construye el cliente.
func NewClient(cfg Config, log zerolog.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(15*time.Second).
		SetAuthToken(cfg.APIKey).
		SetHeader("Accept", mediaType).
		SetHeader("Content-Type", mediaType)
	return &Client{client: client, storeID: cfg.StoreID, testMode: cfg.TestMode, log: log}
}

type resource[A any] struct {
	Data struct {
		Type       string                `json:"type"`
		ID         dombilling.ProviderID `json:"id"`
		Attributes A                     `json:"attributes"`
	} `json:"data"`
}

type checkoutAttributes struct {
	URL       string     `json:"url"`
	ExpiresAt *time.Time `json:"expires_at"`
}

type subscriptionAttributes struct {
	CustomerID dombilling.ProviderID `json:"customer_id"`
	VariantID  dombilling.ProviderID `json:"variant_id"`
	Status     string                `json:"status"`
	Cancelled  bool                  `json:"cancelled"`
	RenewsAt   *time.Time            `json:"renews_at"`
	EndsAt     *time.Time            `json:"ends_at"`
}

type apiErrors struct {
	Errors []struct {
		Status string `json:"status"`
		Title  string `json:"title"`
		Detail string `json:"detail"`
	} `json:"errors"`
}

func check(op string, resp *resty.Response, err error) error {
	if err != nil {
		return fmt.Errorf("lemonsqueezy %s: %w", op, err)
	}
	if resp.IsSuccess() {
		return nil
	}
	msg := resp.String()
	if e, ok := resp.Error().(*apiErrors); ok && len(e.Errors) > 0 {
		msg = e.Errors[0].Detail
		if msg == "" {
			msg = e.Errors[0].Title
		}
	}
	return fmt.Errorf("lemonsqueezy %s: status %d: %s", op, resp.StatusCode(), msg)
}

func relation(typ, id string) map[string]any {
	return map[string]any{"data": map[string]any{"type": typ, "id": id}}
}

// CreateCheckout POST /checkouts.
func (c *Client) CreateCheckout(ctx context.Context, req ports.CheckoutRequest) (*ports.CheckoutSession, error) {
	custom := map[string]string{}
	for k, v := range req.CustomData {
		custom[k] = v
	}
	body := map[string]any{
		"data": map[string]any{
			"type": "checkouts",
			"attributes": map[string]any{
				"checkout_data": map[string]any{
					"email":  req.Email,
					"name":   req.Name,
					"custom": custom,
				},
				"product_options": map[string]any{"redirect_url": req.RedirectURL},
				"test_mode":       c.testMode,
			},
			"relationships": map[string]any{
				"store":   relation("stores", c.storeID),
				"variant": relation("variants", req.VariantID),
			},
		},
	}
	var out resource[checkoutAttributes]
	resp, err := c.client.R().SetContext(ctx).
		SetBody(body).
		SetResult(&out).SetError(&apiErrors{}).
		Post("/checkouts")
	if err := check("create checkout", resp, err); err != nil {
		return nil, err
	}
	c.log.Debug().Str("checkout_id", out.Data.ID.String()).Str("variant_id", req.VariantID).Msg("checkout creado en el proveedor")
	return &ports.CheckoutSession{ID: out.Data.ID.String(), URL: out.Data.Attributes.URL, ExpiresAt: out.Data.Attributes.ExpiresAt}, nil
}

// GetSubscription GET /subscriptions/{id}.
func (c *Client) GetSubscription(ctx context.Context, id string) (*ports.Subscription, error) {
	var out resource[subscriptionAttributes]
	resp, err := c.client.R().SetContext(ctx).
		SetPathParam("id", id).
		SetResult(&out).SetError(&apiErrors{}).
		Get("/subscriptions/{id}")
	if err := check("get subscription", resp, err); err != nil {
		return nil, err
	}
	return toSubscription(&out), nil
}

// UpdateSubscription PATCH /subscriptions/{id}: cambio de variante y/o reanudación.
func (c *Client) UpdateSubscription(ctx context.Context, id string, in ports.UpdateSubscriptionInput) (*ports.Subscription, error) {
	attrs := map[string]any{}
	if in.VariantID != "" {
		v, err := strconv.Atoi(in.VariantID)
		if err != nil {
			return nil, fmt.Errorf("lemonsqueezy: variant id inválido %q", in.VariantID)
		}
		attrs["variant_id"] = v
	}
	if in.Cancelled != nil {
		attrs["cancelled"] = *in.Cancelled
	}
	body := map[string]any{"data": map[string]any{"type": "subscriptions", "id": id, "attributes": attrs}}
	var out resource[subscriptionAttributes]
	resp, err := c.client.R().SetContext(ctx).
		SetPathParam("id", id).
		SetBody(body).
		SetResult(&out).SetError(&apiErrors{}).
		Patch("/subscriptions/{id}")
	if err := check("update subscription", resp, err); err != nil {
		return nil, err
	}
	return toSubscription(&out), nil
}

// CancelSubscription DELETE /subscriptions/{id}: cancela al final del período vigente.
func (c *Client) CancelSubscription(ctx context.Context, id string) (*ports.Subscription, error) {
	var out resource[subscriptionAttributes]
	resp, err := c.client.R().SetContext(ctx).
		SetPathParam("id", id).
		SetResult(&out).SetError(&apiErrors{}).
		Delete("/subscriptions/{id}")
	if err := check("cancel subscription", resp, err); err != nil {
		return nil, err
	}
	return toSubscription(&out), nil
}

func toSubscription(r *resource[subscriptionAttributes]) *ports.Subscription {
	a := r.Data.Attributes
	return &ports.Subscription{
		ID:         r.Data.ID.String(),
		CustomerID: a.CustomerID.String(),
		VariantID:  a.VariantID.String(),
		Status:     a.Status,
		Cancelled:  a.Cancelled,
		RenewsAt:   a.RenewsAt,
		EndsAt:     a.EndsAt,
	}
}
