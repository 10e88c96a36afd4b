package billing_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/agrocloud-api/internal/application/billing"
	"github.com/jhoicas/agrocloud-api/internal/application/dto"
	"github.com/jhoicas/agrocloud-api/internal/application/fakes"
	"github.com/jhoicas/agrocloud-api/internal/application/invitation"
	"github.com/jhoicas/agrocloud-api/internal/application/ports"
	"github.com/jhoicas/agrocloud-api/internal/domain"
	dombilling "github.com/jhoicas/agrocloud-api/internal/domain/billing"
	"github.com/jhoicas/agrocloud-api/internal/domain/entity"
	"github.com/jhoicas/agrocloud-api/internal/infrastructure/memory"
)

const secret = "whsec_test"

var variants = map[string]string{"basico": "101", "profesional": "202", "enterprise": "303"}

type staticSystemUser string

func (s staticSystemUser) Resolve(context.Context) (string, error) { return string(s), nil }

type webhookFixture struct {
	store    *memory.Store
	identity *fakes.Identity
	billing  *fakes.Billing
	rec      *billing.WebhookReconciler
}

func newWebhookFixture(t *testing.T) *webhookFixture {
	t.Helper()
	store := memory.NewStore()
	identity := fakes.NewIdentity()
	provider := fakes.NewBilling()
	tx := memory.NewTxRunner(store)
	owners := invitation.NewUseCase(identity, store.Registry(), tx, zerolog.Nop(), nil, "https://app.agrocloud.test")
	rec := billing.NewWebhookReconciler(billing.WebhookDeps{
		Secret:     secret,
		Catalog:    billing.NewPlanCatalog(variants),
		Repos:      store.Registry(),
		Tx:         tx,
		Provider:   provider,
		SystemUser: staticSystemUser(uuid.New().String()),
		Owners:     owners,
		Log:        zerolog.Nop(),
	})
	return &webhookFixture{store: store, identity: identity, billing: provider, rec: rec}
}

// event arma el cuerpo JSON:API de un evento.
func event(name, typ, id string, custom map[string]any, attrs map[string]any) []byte {
	body := map[string]any{
		"meta": map[string]any{"event_name": name, "custom_data": custom},
		"data": map[string]any{"type": typ, "id": id, "attributes": attrs},
	}
	b, _ := json.Marshal(body)
	return b
}

func (f *webhookFixture) send(t *testing.T, body []byte) *billing.WebhookResult {
	t.Helper()
	res, err := f.rec.Handle(context.Background(), body, dombilling.Sign(secret, body))
	require.NoError(t, err)
	return res
}

func (f *webhookFixture) checkout(t *testing.T, email, name string) *entity.Checkout {
	t.Helper()
	co := &entity.Checkout{
		ID: uuid.New().String(), ContactEmail: email, ContactName: "Ana Ruiz", TenantName: name,
		Plan: entity.PlanProfesional, ExpiresAt: time.Now().Add(time.Hour), CreatedAt: time.Now(),
	}
	require.NoError(t, f.store.Registry().Checkouts.Create(context.Background(), co))
	return co
}

// subscribedTenant organización vinculada a la suscripción sid con el estado dado.
func (f *webhookFixture) subscribedTenant(t *testing.T, sid string, status entity.PaymentStatus) *entity.Tenant {
	t.Helper()
	ten := &entity.Tenant{
		ID: uuid.New().String(), Name: "Finca Norte", Slug: "finca-norte-" + sid, Plan: entity.PlanBasico,
		CreatedBy: uuid.New().String(), MaxUsers: 10, MaxFields: 5, CurrentUsers: 1,
		PaymentStatus: status, LemonSubscriptionID: sid, CreatedAt: time.Now(),
	}
	require.NoError(t, f.store.Registry().Tenants.Create(context.Background(), ten))
	return ten
}

func (f *webhookFixture) tenant(t *testing.T, id string) *entity.Tenant {
	t.Helper()
	got, err := f.store.Registry().Tenants.GetByID(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, got)
	return got
}

func (f *webhookFixture) stored(t *testing.T, eventID string) *entity.WebhookEvent {
	t.Helper()
	ev, err := f.store.Registry().WebhookEvents.Get(context.Background(), eventID)
	require.NoError(t, err)
	require.NotNil(t, ev)
	return ev
}

// ──────────────────────────────────────────────────────────────────────────────
// Firma y payload
// ──────────────────────────────────────────────────────────────────────────────

func TestWebhook_FirmaInvalida(t *testing.T) {
	f := newWebhookFixture(t)
	body := event("order_created", "orders", "1", nil, nil)

	cases := map[string]string{
		"vacia":      "",
		"no hex":     "zz",
		"otra clave": dombilling.Sign("otra", body),
	}
	for name, sig := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := f.rec.Handle(context.Background(), body, sig)
			assert.ErrorIs(t, err, domain.ErrInvalidSignature)
		})
	}

	t.Run("cuerpo alterado", func(t *testing.T) {
		sig := dombilling.Sign(secret, body)
		_, err := f.rec.Handle(context.Background(), append(body, ' '), sig)
		assert.ErrorIs(t, err, domain.ErrInvalidSignature)
	})
}

func TestWebhook_PayloadIncompleto(t *testing.T) {
	f := newWebhookFixture(t)
	body := []byte(`{"meta":{},"data":{}}`)
	_, err := f.rec.Handle(context.Background(), body, dombilling.Sign(secret, body))

	var verr *domain.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Contains(t, verr.Fields, "body")
}

func TestWebhook_EventoDesconocido(t *testing.T) {
	f := newWebhookFixture(t)
	res := f.send(t, event("license_key_created", "license-keys", "9", nil, nil))

	assert.False(t, res.Processed)
	assert.Equal(t, billing.ReasonUnhandledEventType, res.Reason)
	assert.True(t, f.stored(t, res.EventID).Processed)
}

// ──────────────────────────────────────────────────────────────────────────────
// Alta desde el checkout
// ──────────────────────────────────────────────────────────────────────────────

func TestWebhook_OrderCreatedMaterializaOrganizacion(t *testing.T) {
	f := newWebhookFixture(t)
	co := f.checkout(t, "ana@finca.co", "Finca La Esperanza")
	body := event("order_created", "orders", "5001",
		map[string]any{"checkout_id": co.ID},
		map[string]any{"customer_id": 42, "user_email": "ana@finca.co", "total": 9900,
			"first_order_item": map[string]any{"variant_id": 202}})

	res := f.send(t, body)
	require.True(t, res.Processed)
	assert.Equal(t, billing.ReasonTenantCreated, res.Reason)
	assert.Equal(t, "order_created:5001", res.EventID)

	ten := f.tenant(t, res.TenantID)
	assert.Equal(t, "finca-la-esperanza", ten.Slug)
	assert.Equal(t, entity.PlanProfesional, ten.Plan)
	assert.Equal(t, 30, ten.MaxUsers)
	assert.Equal(t, 0, ten.CurrentUsers, "el propietario ocupa cupo al aceptar")
	assert.Equal(t, entity.PaymentActive, ten.PaymentStatus)
	assert.Equal(t, "42", ten.LemonCustomerID)
	assert.Equal(t, "202", ten.LemonVariantID)
	assert.Equal(t, "99", ten.LastPaymentAmount.String())
	assert.NotEmpty(t, ten.CreatedBy)

	modules, err := f.store.Registry().Modules.ListByTenant(context.Background(), ten.ID)
	require.NoError(t, err)
	assert.Len(t, modules, len(entity.DefaultModules()))

	got, err := f.store.Registry().Checkouts.GetByID(context.Background(), co.ID)
	require.NoError(t, err)
	assert.True(t, got.Completed)
	assert.Equal(t, ten.ID, got.TenantID)

	require.Len(t, f.identity.Invites, 1)
	assert.Equal(t, "ana@finca.co", f.identity.Invites[0].Email)
	assert.Contains(t, f.identity.Invites[0].RedirectURL, "role=owner")

	audit, err := f.store.Registry().Audit.ListByTenant(context.Background(), ten.ID, 10)
	require.NoError(t, err)
	require.NotEmpty(t, audit)
	assert.Equal(t, "billing_webhook", audit[0].Details["source"])
}

func TestWebhook_CheckoutPorEmailSinCustomData(t *testing.T) {
	f := newWebhookFixture(t)
	f.checkout(t, "ana@finca.co", "Finca Sol")

	res := f.send(t, event("order_created", "orders", "7", nil, map[string]any{"user_email": "ANA@finca.co"}))
	require.True(t, res.Processed)
	assert.Equal(t, "finca-sol", f.tenant(t, res.TenantID).Slug)
}

func TestWebhook_EntregaDuplicada(t *testing.T) {
	f := newWebhookFixture(t)
	co := f.checkout(t, "ana@finca.co", "Finca Doble")
	body := event("order_created", "orders", "77", map[string]any{"checkout_id": co.ID}, nil)

	first := f.send(t, body)
	require.True(t, first.Processed)

	second := f.send(t, body)
	assert.False(t, second.Processed)
	assert.Equal(t, billing.ReasonAlreadyProcessed, second.Reason)
	assert.Equal(t, first.TenantID, second.TenantID)
	assert.Len(t, f.identity.Invites, 1, "no se invita dos veces")
}

func TestWebhook_SegundaOrdenDelMismoCheckout(t *testing.T) {
	f := newWebhookFixture(t)
	co := f.checkout(t, "ana@finca.co", "Finca Uno")
	first := f.send(t, event("order_created", "orders", "1", map[string]any{"checkout_id": co.ID}, nil))
	require.True(t, first.Processed)

	res := f.send(t, event("order_created", "orders", "2", map[string]any{"checkout_id": co.ID}, nil))
	assert.False(t, res.Processed)
	assert.Equal(t, billing.ReasonTenantExists, res.Reason)
	assert.Equal(t, first.TenantID, res.TenantID)
	assert.Len(t, f.identity.Invites, 1, "la invitación pendiente basta")
}

func TestWebhook_FalloAlInvitarPropietarioSeReintenta(t *testing.T) {
	f := newWebhookFixture(t)
	ctx := context.Background()
	co := f.checkout(t, "ana@finca.co", "Finca Sin Correo")
	body := event("order_created", "orders", "8001", map[string]any{"checkout_id": co.ID}, nil)

	f.identity.FailInvite = errors.New("smtp down")
	first := f.send(t, body)
	assert.False(t, first.Processed)
	assert.Equal(t, billing.ReasonProcessingFailed, first.Reason)
	assert.Contains(t, first.Error, "smtp down")
	require.NotEmpty(t, first.TenantID)

	ev := f.stored(t, first.EventID)
	assert.False(t, ev.Processed, "la reentrega debe poder reprocesarlo")
	assert.Equal(t, 1, ev.RetryCount)
	assert.Equal(t, entity.PaymentActive, f.tenant(t, first.TenantID).PaymentStatus)
	pending, err := f.store.Registry().Invitations.ListPendingByTenant(ctx, first.TenantID, time.Now())
	require.NoError(t, err)
	assert.Empty(t, pending)

	f.identity.FailInvite = nil
	second := f.send(t, body)
	assert.Equal(t, billing.ReasonTenantExists, second.Reason)
	assert.Equal(t, first.TenantID, second.TenantID)
	assert.True(t, f.stored(t, first.EventID).Processed)

	pending, err = f.store.Registry().Invitations.ListPendingByTenant(ctx, first.TenantID, time.Now())
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, entity.RoleOwner, pending[0].Role)
	assert.Equal(t, "ana@finca.co", pending[0].Email)
	require.Len(t, f.identity.Invites, 1)
	assert.Equal(t, "ana@finca.co", f.identity.Invites[0].Email)

	third := f.send(t, body)
	assert.Equal(t, billing.ReasonAlreadyProcessed, third.Reason)
	assert.Len(t, f.identity.Invites, 1)
}

func TestWebhook_PropietarioRegistradoRecibeMembresia(t *testing.T) {
	f := newWebhookFixture(t)
	user := f.identity.Seed("ana@finca.co")
	co := f.checkout(t, "ana@finca.co", "Finca Conocida")

	res := f.send(t, event("order_created", "orders", "8101", map[string]any{"checkout_id": co.ID}, nil))
	require.True(t, res.Processed)
	assert.Empty(t, f.identity.Invites)

	m, err := f.store.Registry().Memberships.GetByTenantAndUser(context.Background(), res.TenantID, user.ID)
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, entity.RoleOwner, m.Role)
	assert.Equal(t, entity.MembershipActive, m.Status)
	assert.Equal(t, 1, f.tenant(t, res.TenantID).CurrentUsers)
}

func TestWebhook_SubscriptionCreatedVinculaSuscripcion(t *testing.T) {
	f := newWebhookFixture(t)
	co := f.checkout(t, "ana@finca.co", "Finca Vinculo")
	first := f.send(t, event("order_created", "orders", "1", map[string]any{"checkout_id": co.ID}, nil))
	require.True(t, first.Processed)

	res := f.send(t, event("subscription_created", "subscriptions", "sub_9",
		map[string]any{"checkout_id": co.ID}, map[string]any{"variant_id": "202"}))
	assert.True(t, res.Processed)
	assert.Equal(t, first.TenantID, res.TenantID)
	assert.Equal(t, "sub_9", f.tenant(t, res.TenantID).LemonSubscriptionID)
}

func TestWebhook_SlugOcupadoRecibeSufijo(t *testing.T) {
	f := newWebhookFixture(t)
	taken := f.tenant(t, f.subscribedTenant(t, "y", entity.PaymentActive).ID)
	co := f.checkout(t, "ana@finca.co", "otro nombre")
	co2 := *co
	co2.ID = uuid.New().String()
	co2.TenantSlug = taken.Slug
	require.NoError(t, f.store.Registry().Checkouts.Create(context.Background(), &co2))

	res := f.send(t, event("order_created", "orders", "3", map[string]any{"checkout_id": co2.ID}, nil))
	require.True(t, res.Processed)
	assert.Equal(t, taken.Slug+"-1", f.tenant(t, res.TenantID).Slug)
}

// ──────────────────────────────────────────────────────────────────────────────
// Ciclo de vida del cobro
// ──────────────────────────────────────────────────────────────────────────────

func TestWebhook_PagoFallidoYRecuperado(t *testing.T) {
	f := newWebhookFixture(t)
	ten := f.subscribedTenant(t, "sub_1", entity.PaymentActive)
	renews := time.Date(2026, 12, 1, 0, 0, 0, 0, time.UTC)
	f.billing.Subscriptions["sub_1"] = &ports.Subscription{ID: "sub_1", Status: "active", RenewsAt: &renews}

	res := f.send(t, event("subscription_payment_failed", "subscription-invoices", "inv_1", nil,
		map[string]any{"subscription_id": "sub_1"}))
	require.True(t, res.Processed)
	got := f.tenant(t, ten.ID)
	assert.Equal(t, entity.PaymentPastDue, got.PaymentStatus)
	assert.NotNil(t, got.PaymentFailedAt)

	res = f.send(t, event("subscription_payment_success", "subscription-invoices", "inv_2", nil,
		map[string]any{"subscription_id": "sub_1", "total": 4500}))
	require.True(t, res.Processed)
	got = f.tenant(t, ten.ID)
	assert.Equal(t, entity.PaymentActive, got.PaymentStatus)
	assert.Nil(t, got.PaymentFailedAt)
	assert.Equal(t, "45", got.LastPaymentAmount.String())
	require.NotNil(t, got.RenewsAt)
	assert.True(t, renews.Equal(*got.RenewsAt), "renews_at viene de la suscripción remota")
}

func TestWebhook_CanceladaReanudadaYExpirada(t *testing.T) {
	f := newWebhookFixture(t)
	ten := f.subscribedTenant(t, "sub_2", entity.PaymentActive)
	ends := time.Date(2026, 11, 30, 0, 0, 0, 0, time.UTC)

	res := f.send(t, event("subscription_cancelled", "subscriptions", "sub_2", nil,
		map[string]any{"status": "cancelled", "ends_at": ends}))
	require.True(t, res.Processed)
	got := f.tenant(t, ten.ID)
	assert.Equal(t, entity.PaymentCancelled, got.PaymentStatus)
	require.NotNil(t, got.EndsAt)
	assert.True(t, ends.Equal(*got.EndsAt))

	res = f.send(t, event("subscription_resumed", "subscriptions", "sub_2", nil, map[string]any{"status": "active"}))
	require.True(t, res.Processed)
	got = f.tenant(t, ten.ID)
	assert.Equal(t, entity.PaymentActive, got.PaymentStatus)
	assert.Nil(t, got.EndsAt)

	res = f.send(t, event("subscription_expired", "subscriptions", "sub_2", nil, map[string]any{"status": "expired"}))
	require.True(t, res.Processed)
	assert.Equal(t, entity.PaymentExpired, f.tenant(t, ten.ID).PaymentStatus)
}

func TestWebhook_TransicionNoAplicable(t *testing.T) {
	f := newWebhookFixture(t)
	ten := f.subscribedTenant(t, "sub_3", entity.PaymentExpired)

	res := f.send(t, event("subscription_resumed", "subscriptions", "sub_3", nil, nil))
	assert.False(t, res.Processed)
	assert.Equal(t, billing.ReasonNotApplicable, res.Reason)
	assert.Equal(t, ten.ID, res.TenantID)
	assert.Equal(t, entity.PaymentExpired, f.tenant(t, ten.ID).PaymentStatus)
	assert.True(t, f.stored(t, res.EventID).Processed)
}

func TestWebhook_SubscriptionUpdatedCambiaPlan(t *testing.T) {
	f := newWebhookFixture(t)
	ten := f.subscribedTenant(t, "sub_4", entity.PaymentActive)

	attrs := map[string]any{"status": "active", "variant_id": 303, "updated_at": "2026-10-01T10:00:00Z"}
	res := f.send(t, event("subscription_updated", "subscriptions", "sub_4", nil, attrs))
	require.True(t, res.Processed)
	assert.Equal(t, "subscription_updated:sub_4:2026-10-01T10:00:00Z", res.EventID)
	got := f.tenant(t, ten.ID)
	assert.Equal(t, entity.PlanEnterprise, got.Plan)
	assert.Equal(t, 30, got.MaxUsers)
	assert.Equal(t, 1, got.CurrentUsers)

	// Otra actualización del mismo recurso es un evento distinto.
	attrs["updated_at"] = "2026-10-02T10:00:00Z"
	attrs["status"] = "past_due"
	res = f.send(t, event("subscription_updated", "subscriptions", "sub_4", nil, attrs))
	require.True(t, res.Processed)
	assert.Equal(t, entity.PaymentPastDue, f.tenant(t, ten.ID).PaymentStatus)
}

func TestWebhook_SuscripcionDesconocidaQuedaFallida(t *testing.T) {
	f := newWebhookFixture(t)
	body := event("subscription_payment_failed", "subscription-invoices", "inv_x", nil,
		map[string]any{"subscription_id": "nope"})

	res := f.send(t, body)
	assert.False(t, res.Processed)
	assert.Equal(t, billing.ReasonProcessingFailed, res.Reason)
	assert.NotEmpty(t, res.Error)

	f.send(t, body)
	ev := f.stored(t, res.EventID)
	assert.False(t, ev.Processed)
	assert.Equal(t, 2, ev.RetryCount)
	assert.NotEmpty(t, ev.Error)
}

// ──────────────────────────────────────────────────────────────────────────────
// Checkout de una organización existente
// ──────────────────────────────────────────────────────────────────────────────

func TestWebhook_CheckoutDeOrganizacionExistenteAplicaPlan(t *testing.T) {
	past := time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC)
	for _, status := range []entity.PaymentStatus{entity.PaymentLegacy, entity.PaymentCancelled, entity.PaymentExpired} {
		t.Run(string(status), func(t *testing.T) {
			f := newWebhookFixture(t)
			ctx := context.Background()
			ten := &entity.Tenant{
				ID: uuid.New().String(), Name: "Finca Vieja", Slug: "finca-vieja", Plan: entity.PlanBasico,
				ContactEmail: "dueno@vieja.co", CreatedBy: uuid.New().String(), MaxUsers: 10, MaxFields: 5,
				CurrentUsers: 3, PaymentStatus: status, CreatedAt: time.Now(),
			}
			if status != entity.PaymentLegacy {
				ten.LemonSubscriptionID = "sub_old"
				ten.EndsAt = &past
			}
			require.NoError(t, f.store.Registry().Tenants.Create(ctx, ten))

			uc := billing.NewCheckoutUseCase(f.billing, billing.NewPlanCatalog(variants), f.store.Registry(), zerolog.Nop(), "https://app.agrocloud.test")
			_, err := uc.CreateForTenant(ctx, ten.ID, dto.ChangePlanRequest{Plan: "enterprise"})
			require.NoError(t, err)
			require.Len(t, f.billing.Checkouts, 1)
			req := f.billing.Checkouts[0]
			custom := map[string]any{}
			for k, v := range req.CustomData {
				custom[k] = v
			}

			res := f.send(t, event("order_created", "orders", "9001", custom,
				map[string]any{"customer_id": 7, "total": 19900, "first_order_item": map[string]any{"variant_id": req.VariantID}}))
			require.True(t, res.Processed)
			assert.Equal(t, ten.ID, res.TenantID)

			got := f.tenant(t, ten.ID)
			assert.Equal(t, entity.PaymentActive, got.PaymentStatus)
			assert.Equal(t, entity.PlanEnterprise, got.Plan)
			assert.Equal(t, 30, got.MaxUsers)
			assert.Equal(t, 20, got.MaxFields)
			assert.Equal(t, 3, got.CurrentUsers)
			assert.Equal(t, "303", got.LemonVariantID)
			assert.Equal(t, "7", got.LemonCustomerID)
			assert.Nil(t, got.EndsAt)

			res = f.send(t, event("subscription_created", "subscriptions", "sub_new", custom,
				map[string]any{"status": "active", "variant_id": req.VariantID}))
			require.True(t, res.Processed)
			got = f.tenant(t, ten.ID)
			assert.Equal(t, "sub_new", got.LemonSubscriptionID)
			assert.Equal(t, entity.PaymentActive, got.PaymentStatus)
			assert.Empty(t, f.identity.Invites, "la organización ya tiene propietario")
		})
	}
}

func TestWebhook_ReactivacionSoloDesdeSuPropioCheckout(t *testing.T) {
	f := newWebhookFixture(t)
	ten := f.subscribedTenant(t, "sub_5", entity.PaymentCancelled)

	res := f.send(t, event("subscription_created", "subscriptions", "sub_5", nil, map[string]any{"variant_id": 303}))
	assert.False(t, res.Processed)
	assert.Equal(t, billing.ReasonNotApplicable, res.Reason)
	got := f.tenant(t, ten.ID)
	assert.Equal(t, entity.PaymentCancelled, got.PaymentStatus)
	assert.Equal(t, entity.PlanBasico, got.Plan)
}
