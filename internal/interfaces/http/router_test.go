package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/agrocloud-api/internal/application/billing"
	"github.com/jhoicas/agrocloud-api/internal/application/dto"
	"github.com/jhoicas/agrocloud-api/internal/application/fakes"
	"github.com/jhoicas/agrocloud-api/internal/application/invitation"
	"github.com/jhoicas/agrocloud-api/internal/application/tenant"
	"github.com/jhoicas/agrocloud-api/internal/application/usecase"
	dombilling "github.com/jhoicas/agrocloud-api/internal/domain/billing"
	"github.com/jhoicas/agrocloud-api/internal/infrastructure/memory"
	apphttp "github.com/jhoicas/agrocloud-api/internal/interfaces/http"
	"github.com/jhoicas/agrocloud-api/pkg/config"
	"github.com/jhoicas/agrocloud-api/pkg/metrics"
	pkgjwt "github.com/jhoicas/agrocloud-api/pkg/jwt"
)

// ──────────────────────────────────────────────────────────────────────────────
// Servidor completo sobre el adaptador en memoria
// ──────────────────────────────────────────────────────────────────────────────

const webhookSecret = "whsec_test"

type staticSystemUser string

func (s staticSystemUser) Resolve(context.Context) (string, error) { return string(s), nil }

type server struct {
	app      *fiber.App
	store    *memory.Store
	identity *fakes.Identity
	billing  *fakes.Billing
}

func newServer(t *testing.T, rl config.RateLimitConfig) *server {
	t.Helper()
	store := memory.NewStore()
	repos := store.Registry()
	tx := memory.NewTxRunner(store)
	identity := fakes.NewIdentity()
	provider := fakes.NewBilling()
	log := zerolog.Nop()
	baseURL := "https://app.agrocloud.test"
	catalog := billing.NewPlanCatalog(map[string]string{"basico": "101", "profesional": "202", "enterprise": "303"})

	invitations := invitation.NewUseCase(identity, repos, tx, log, nil, baseURL)
	app := fiber.New()
	apphttp.Router(app, apphttp.RouterDeps{
		RegisterUC:    tenant.NewRegisterUseCase(identity, repos, tx, log, nil, baseURL),
		InvitationUC:  invitations,
		LimitsUC:      usecase.NewLimitsUseCase(repos.Tenants),
		MembershipUC:  usecase.NewMembershipUseCase(repos, tx, log),
		ModuleService: usecase.NewModuleService(repos.Modules),
		AccessService: usecase.NewAccessService(repos.Memberships),
		Webhook: billing.NewWebhookReconciler(billing.WebhookDeps{
			Secret:     webhookSecret,
			Catalog:    catalog,
			Repos:      repos,
			Tx:         tx,
			Provider:   provider,
			SystemUser: staticSystemUser(uuid.New().String()),
			Owners:     invitations,
			Log:        log,
		}),
		CheckoutUC:     billing.NewCheckoutUseCase(provider, catalog, repos, log, baseURL),
		SubscriptionUC: billing.NewSubscriptionUseCase(provider, catalog, repos, log),
		Metrics:        metrics.New("agrocloud_test"),
		Log:            log,
		JWTSecret:      testJWTSecret,
		ServiceName:    "agrocloud-test",
		RateLimit:      rl,
	})
	return &server{app: app, store: store, identity: identity, billing: provider}
}

func (s *server) do(t *testing.T, method, path string, body any, auth string) *http.Response {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func registerBody() map[string]any {
	return map[string]any{
		"tenantName":   "Finca La Esperanza",
		"plan":         "basico",
		"contactName":  "Ana Ruiz",
		"contactEmail": "ana@finca.co",
		"password":     "12345678",
	}
}

// register da de alta una organización y devuelve la respuesta y el token del propietario.
func (s *server) register(t *testing.T) (dto.RegisterTenantResponse, string) {
	t.Helper()
	resp := s.do(t, http.MethodPost, "/api/tenant/register", registerBody(), "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	out := decode[dto.RegisterTenantResponse](t, resp)
	return out, tokenFor(t, out.User.ID, out.User.Email, pkgjwt.PurposeAccess)
}

// ──────────────────────────────────────────────────────────────────────────────
// Alta de organización y cupos
// ──────────────────────────────────────────────────────────────────────────────

func TestHealth(t *testing.T) {
	s := newServer(t, config.RateLimitConfig{})
	resp := s.do(t, http.MethodGet, "/health", nil, "")
	body := decode[map[string]string](t, resp)
	assert.Equal(t, "ok", body["status"])
}

func TestMetrics_ExponeRegistry(t *testing.T) {
	s := newServer(t, config.RateLimitConfig{})
	resp := s.do(t, http.MethodGet, "/metrics", nil, "")
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	b, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(b), "go_goroutines")
}

func TestRegister_Exitoso(t *testing.T) {
	s := newServer(t, config.RateLimitConfig{})
	out, _ := s.register(t)

	assert.True(t, out.Success)
	assert.Equal(t, "finca-la-esperanza", out.Tenant.Slug)
	assert.Equal(t, 1, out.Tenant.CurrentUsers)
	assert.Equal(t, "owner", out.Membership.RoleCode)
}

func TestRegister_ErroresDeValidacion(t *testing.T) {
	s := newServer(t, config.RateLimitConfig{})
	resp := s.do(t, http.MethodPost, "/api/tenant/register", map[string]any{"plan": "gratis", "contactEmail": "no-es-email"}, "")

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	body := decode[dto.ValidationErrorResponse](t, resp)
	assert.False(t, body.Success)
	for _, field := range []string{"tenantName", "plan", "contactName", "contactEmail", "password"} {
		assert.Contains(t, body.Errors, field)
	}
}

func TestRegister_CuerpoInvalido(t *testing.T) {
	s := newServer(t, config.RateLimitConfig{})
	req := httptest.NewRequest(http.MethodPost, "/api/tenant/register", bytes.NewBufferString("{"))
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRegister_EmailExistente_Retorna409(t *testing.T) {
	s := newServer(t, config.RateLimitConfig{})
	s.identity.Seed("ana@finca.co")

	resp := s.do(t, http.MethodPost, "/api/tenant/register", registerBody(), "")
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	body := decode[dto.ErrorResponse](t, resp)
	assert.Equal(t, "EMAIL_EXISTS", body.Code)
}

func TestLimits_Autorizacion(t *testing.T) {
	s := newServer(t, config.RateLimitConfig{})
	out, owner := s.register(t)
	path := "/api/tenant/" + out.Tenant.ID + "/limits"

	resp := s.do(t, http.MethodGet, path, nil, owner)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	limits := decode[dto.LimitsResponse](t, resp)
	assert.Equal(t, 1, limits.CurrentUsers)
	assert.Equal(t, 10, limits.MaxUsers)
	assert.True(t, limits.CanAddMore)

	resp = s.do(t, http.MethodGet, path, nil, tokenFor(t, uuid.New().String(), "otro@finca.co", pkgjwt.PurposeAccess))
	resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = s.do(t, http.MethodGet, path, nil, "")
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestModulesYWorkers(t *testing.T) {
	s := newServer(t, config.RateLimitConfig{})
	out, owner := s.register(t)

	resp := s.do(t, http.MethodGet, "/api/tenant/"+out.Tenant.ID+"/modules", nil, owner)
	mods := decode[dto.ModulesResponse](t, resp)
	assert.Contains(t, mods.Modules, "trabajadores")

	resp = s.do(t, http.MethodGet, "/api/tenant/"+out.Tenant.ID+"/workers", nil, owner)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	workers := decode[dto.WorkersResponse](t, resp)
	require.Len(t, workers.Workers, 1)
	assert.Equal(t, "Ana Ruiz", workers.Workers[0].FullName)
}

func TestRemoveMember_PropietarioRetorna409(t *testing.T) {
	s := newServer(t, config.RateLimitConfig{})
	out, owner := s.register(t)

	resp := s.do(t, http.MethodDelete, "/api/tenant/"+out.Tenant.ID+"/members/"+out.Membership.ID, nil, owner)
	resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

// ──────────────────────────────────────────────────────────────────────────────
// Invitaciones
// ──────────────────────────────────────────────────────────────────────────────

func TestInvitacion_FlujoCompleto(t *testing.T) {
	s := newServer(t, config.RateLimitConfig{})
	out, owner := s.register(t)

	resp := s.do(t, http.MethodPost, "/api/tenant/invite", map[string]any{
		"tenantId": out.Tenant.ID, "email": "luis@finca.co", "roleCode": "campo",
	}, owner)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	invited := decode[dto.InviteResponse](t, resp)
	require.NotNil(t, invited.Data.Invitation)
	u, err := url.Parse(invited.Data.InviteURL)
	require.NoError(t, err)
	token := u.Query().Get("token")
	require.NotEmpty(t, token)

	resp = s.do(t, http.MethodGet, "/api/invitations/"+token, nil, "")
	preview := decode[dto.InvitationPreviewResponse](t, resp)
	assert.Equal(t, "Finca La Esperanza", preview.TenantName)
	assert.Equal(t, "pending", preview.Status)

	resp = s.do(t, http.MethodGet, "/api/tenant/"+out.Tenant.ID+"/invitations", nil, owner)
	list := decode[dto.InvitationListResponse](t, resp)
	assert.Len(t, list.Invitations, 1)

	invitee, err := s.identity.FindUserByEmail(context.Background(), "luis@finca.co")
	require.NoError(t, err)
	require.NotNil(t, invitee)
	inviteeToken := tokenFor(t, invitee.ID, invitee.Email, pkgjwt.PurposeInvite)

	accept := map[string]any{"token": token, "password": "12345678", "fullName": "Luis Gómez"}
	resp = s.do(t, http.MethodPost, "/api/invitations/accept", accept, inviteeToken)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	accepted := decode[dto.AcceptInvitationResponse](t, resp)
	assert.Equal(t, out.Tenant.ID, accepted.TenantID)
	assert.Equal(t, "campo", accepted.Membership.RoleCode)
	assert.Equal(t, "active", accepted.Membership.Status)

	resp = s.do(t, http.MethodPost, "/api/invitations/accept", accept, inviteeToken)
	resp.Body.Close()
	assert.Equal(t, http.StatusGone, resp.StatusCode, "la invitación es de un solo uso")

	resp = s.do(t, http.MethodGet, "/api/tenant/"+out.Tenant.ID+"/limits", nil, owner)
	limits := decode[dto.LimitsResponse](t, resp)
	assert.Equal(t, 2, limits.CurrentUsers)

	// el nuevo miembro no administra la organización
	resp = s.do(t, http.MethodGet, "/api/tenant/"+out.Tenant.ID+"/members", nil, inviteeToken)
	resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestInvite_SinMembresia_Retorna403(t *testing.T) {
	s := newServer(t, config.RateLimitConfig{})
	out, _ := s.register(t)

	resp := s.do(t, http.MethodPost, "/api/tenant/invite", map[string]any{
		"tenantId": out.Tenant.ID, "email": "luis@finca.co", "roleCode": "campo",
	}, tokenFor(t, uuid.New().String(), "intruso@x.co", pkgjwt.PurposeAccess))
	resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestInvite_SinTenantId_Retorna400(t *testing.T) {
	s := newServer(t, config.RateLimitConfig{})
	_, owner := s.register(t)

	resp := s.do(t, http.MethodPost, "/api/tenant/invite", map[string]any{"email": "luis@finca.co", "roleCode": "campo"}, owner)
	body := decode[dto.ValidationErrorResponse](t, resp)
	assert.Contains(t, body.Errors, "tenantId")
}

func TestRevoke_YAceptarRevocada(t *testing.T) {
	s := newServer(t, config.RateLimitConfig{})
	out, owner := s.register(t)

	resp := s.do(t, http.MethodPost, "/api/tenant/invite", map[string]any{
		"tenantId": out.Tenant.ID, "email": "luis@finca.co", "roleCode": "empaque",
	}, owner)
	invited := decode[dto.InviteResponse](t, resp)
	require.NotNil(t, invited.Data.Invitation)

	path := "/api/tenant/" + out.Tenant.ID + "/invitations/" + invited.Data.Invitation.ID + "/revoke"
	resp = s.do(t, http.MethodPost, path, nil, owner)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = s.do(t, http.MethodPost, path, nil, owner)
	resp.Body.Close()
	assert.Equal(t, http.StatusGone, resp.StatusCode)
}

func TestPreview_TokenInexistente_Retorna404(t *testing.T) {
	s := newServer(t, config.RateLimitConfig{})
	resp := s.do(t, http.MethodGet, "/api/invitations/no-existe", nil, "")
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

// ──────────────────────────────────────────────────────────────────────────────
// Facturación
// ──────────────────────────────────────────────────────────────────────────────

func webhookRequest(body []byte, signature string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/billing/webhook", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(apphttp.SignatureHeader, signature)
	return req
}

func TestWebhook_FirmaInvalida_Retorna401(t *testing.T) {
	s := newServer(t, config.RateLimitConfig{})
	body := []byte(`{"meta":{"event_name":"order_created"},"data":{"type":"orders","id":"1"}}`)

	resp, err := s.app.Test(webhookRequest(body, dombilling.Sign("otra-clave", body)), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	out := decode[map[string]string](t, resp)
	assert.Equal(t, "Invalid signature", out["error"])
}

func TestWebhook_PayloadIncompleto_Retorna400(t *testing.T) {
	s := newServer(t, config.RateLimitConfig{})
	body := []byte(`{"meta":{}}`)

	resp, err := s.app.Test(webhookRequest(body, dombilling.Sign(webhookSecret, body)), -1)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCheckoutYWebhook_MaterializaOrganizacion(t *testing.T) {
	s := newServer(t, config.RateLimitConfig{})
	resp := s.do(t, http.MethodPost, "/api/billing/checkout", map[string]any{
		"tenantName": "Finca Sol", "plan": "profesional", "contactName": "Ana Ruiz", "contactEmail": "ana@finca.co",
	}, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	co := decode[dto.CheckoutResponse](t, resp)
	assert.NotEmpty(t, co.CheckoutURL)
	require.Len(t, s.billing.Checkouts, 1)
	checkoutID := s.billing.Checkouts[0].CustomData["checkout_id"]

	body, err := json.Marshal(map[string]any{
		"meta": map[string]any{"event_name": "order_created", "custom_data": map[string]any{"checkout_id": checkoutID}},
		"data": map[string]any{"type": "orders", "id": "9001", "attributes": map[string]any{"user_email": "ana@finca.co"}},
	})
	require.NoError(t, err)

	resp, err = s.app.Test(webhookRequest(body, dombilling.Sign(webhookSecret, body)), -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	first := decode[dto.WebhookResponse](t, resp)
	assert.True(t, first.Received)
	assert.True(t, first.Processed)
	assert.NotEmpty(t, first.TenantID)

	resp, err = s.app.Test(webhookRequest(body, dombilling.Sign(webhookSecret, body)), -1)
	require.NoError(t, err)
	second := decode[dto.WebhookResponse](t, resp)
	assert.True(t, second.Received)
	assert.False(t, second.Processed)
	assert.Equal(t, billing.ReasonAlreadyProcessed, second.Reason)
}

func TestWebhook_EventoDesconocido(t *testing.T) {
	s := newServer(t, config.RateLimitConfig{})
	body := []byte(`{"meta":{"event_name":"license_key_created"},"data":{"type":"license-keys","id":"3"}}`)

	resp, err := s.app.Test(webhookRequest(body, dombilling.Sign(webhookSecret, body)), -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	out := decode[dto.WebhookResponse](t, resp)
	assert.Equal(t, billing.ReasonUnhandledEventType, out.Reason)
}

func TestSubscription_SinSuscripcion_Retorna409(t *testing.T) {
	s := newServer(t, config.RateLimitConfig{})
	out, owner := s.register(t)

	resp := s.do(t, http.MethodPost, "/api/tenant/"+out.Tenant.ID+"/subscription/cancel", nil, owner)
	resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

// ──────────────────────────────────────────────────────────────────────────────
// Rate limiting
// ──────────────────────────────────────────────────────────────────────────────

func TestRateLimit_RutasPublicas(t *testing.T) {
	s := newServer(t, config.RateLimitConfig{RPS: 0.001, Burst: 1})

	resp := s.do(t, http.MethodPost, "/api/billing/checkout", map[string]any{}, "")
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = s.do(t, http.MethodPost, "/api/billing/checkout", map[string]any{}, "")
	resp.Body.Close()
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)

	// el webhook no comparte el limitador
	body := []byte(`{"meta":{"event_name":"x"},"data":{"type":"x","id":"1"}}`)
	resp, err := s.app.Test(webhookRequest(body, dombilling.Sign(webhookSecret, body)), -1)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
