// Package billing concilia el estado de cobro de las organizaciones con el proveedor de suscripciones.
package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jhoicas/agrocloud-api/internal/application/ports"
	"github.com/jhoicas/agrocloud-api/internal/application/tenant"
	"github.com/jhoicas/agrocloud-api/internal/domain"
	dombilling "github.com/jhoicas/agrocloud-api/internal/domain/billing"
	"github.com/jhoicas/agrocloud-api/internal/domain/entity"
	"github.com/jhoicas/agrocloud-api/internal/domain/repository"
	domtenant "github.com/jhoicas/agrocloud-api/internal/domain/tenant"
	"github.com/jhoicas/agrocloud-api/pkg/metrics"
)

// Motivos informados al proveedor cuando el evento no cambió el estado.
const (
	ReasonAlreadyProcessed   = "already_processed"
	ReasonTenantCreated      = "tenant_created"
	ReasonTenantExists       = "tenant_already_exists"
	ReasonNotApplicable      = "transition_not_applicable"
	ReasonUnhandledEventType = "unhandled_event_type"
	ReasonProcessingFailed   = "processing_failed"
)

// WebhookResult resultado de un evento. Processed=true solo si esta entrega aplicó cambios.
type WebhookResult struct {
	EventID   string
	Processed bool
	TenantID  string
	Reason    string
	Error     string
}

// WebhookReconciler verifica, deduplica y aplica los eventos del proveedor.
type WebhookReconciler struct {
	secret     string
	catalog    PlanCatalog
	events     repository.WebhookEventRepository
	tx         ports.TxRunner
	provider   ports.BillingProvider
	systemUser SystemUserResolver
	owners     OwnerInviter
	log        zerolog.Logger
	metrics    *metrics.Metrics
	now        func() time.Time
}

// WebhookDeps colaboradores del conciliador. Provider y Metrics son opcionales.
type WebhookDeps struct {
	Secret     string
	Catalog    PlanCatalog
	Repos      repository.Registry
	Tx         ports.TxRunner
	Provider   ports.BillingProvider
	SystemUser SystemUserResolver
	Owners     OwnerInviter
	Log        zerolog.Logger
	Metrics    *metrics.Metrics
}

// NewWebhookReconciler construye el conciliador.
func NewWebhookReconciler(d WebhookDeps) *WebhookReconciler {
	return &WebhookReconciler{
		secret:     d.Secret,
		catalog:    d.Catalog,
		events:     d.Repos.WebhookEvents,
		tx:         d.Tx,
		provider:   d.Provider,
		systemUser: d.SystemUser,
		owners:     d.Owners,
		log:        d.Log,
		metrics:    d.Metrics,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// outcome resultado interno de un manejador.
type outcome struct {
	tenant  *entity.Tenant
	reason  string
	applied bool
	// ownerEmail se invita después del commit: organización recién materializada o sin propietario alcanzable.
	ownerEmail string
}

// Handle procesa el cuerpo crudo firmado. Devuelve domain.ErrInvalidSignature ante firma inválida,
// un *domain.ValidationError si el JSON no trae meta.event_name/data.id, y error solo ante fallos
// de infraestructura previos al registro del evento. Los fallos del manejador quedan registrados
// en webhook_events y se informan en el resultado.
func (r *WebhookReconciler) Handle(ctx context.Context, body []byte, signature string) (*WebhookResult, error) {
	if !dombilling.VerifySignature(r.secret, body, signature) {
		r.observe("unknown", "invalid_signature")
		return nil, domain.ErrInvalidSignature
	}
	p, err := parsePayload(body)
	if err != nil {
		return nil, domain.NewValidationError(map[string]string{"body": err.Error()})
	}
	ev := p.event()
	eventID := p.eventID()
	log := r.log.With().Str("event_id", eventID).Str("event_name", string(ev)).Logger()

	if _, err := r.events.Insert(ctx, &entity.WebhookEvent{
		EventID:   eventID,
		EventType: string(ev),
		Payload:   body,
		CreatedAt: r.now(),
	}); err != nil {
		return nil, fmt.Errorf("registrar evento: %w", err)
	}

	res, out, err := r.process(ctx, p, eventID)
	if err != nil {
		log.Error().Err(err).Msg("evento de facturación falló")
		if merr := r.events.MarkFailed(context.WithoutCancel(ctx), eventID, err.Error()); merr != nil {
			log.Error().Err(merr).Msg("no se pudo marcar el evento como fallido")
		}
		r.observe(string(ev), ReasonProcessingFailed)
		return &WebhookResult{EventID: eventID, Reason: ReasonProcessingFailed, Error: err.Error()}, nil
	}

	// La invitación del propietario es obligatoria: si falla, el evento queda pendiente para la reentrega.
	if out != nil && out.ownerEmail != "" && r.owners != nil {
		if err := r.owners.IssueOwnerInvitation(ctx, out.tenant, out.ownerEmail); err != nil {
			log.Error().Err(err).Str("tenant_id", out.tenant.ID).Msg("no se pudo invitar al propietario")
			if merr := r.events.MarkFailed(context.WithoutCancel(ctx), eventID, "invitar propietario: "+err.Error()); merr != nil {
				log.Error().Err(merr).Msg("no se pudo marcar el evento como fallido")
			}
			r.observe(string(ev), ReasonProcessingFailed)
			return &WebhookResult{
				EventID:  eventID,
				TenantID: out.tenant.ID,
				Reason:   ReasonProcessingFailed,
				Error:    err.Error(),
			}, nil
		}
	}

	result := res.Reason
	if result == "" {
		result = "applied"
	}
	r.observe(string(ev), result)
	log.Info().Str("tenant_id", res.TenantID).Str("reason", res.Reason).Bool("processed", res.Processed).Msg("evento de facturación")
	return res, nil
}

func (r *WebhookReconciler) process(ctx context.Context, p *webhookPayload, eventID string) (*WebhookResult, *outcome, error) {
	ev := p.event()

	// Resolución fuera de la transacción: puede crear el usuario en el proveedor de identidad.
	var systemUserID string
	if ev.Materializes() && r.systemUser != nil {
		id, err := r.systemUser.Resolve(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("usuario de sistema: %w", err)
		}
		systemUserID = id
	}
	var remote *ports.Subscription
	if ev == dombilling.EventPaymentSuccess && r.provider != nil {
		if sid := p.subscriptionID(); sid != "" {
			sub, err := r.provider.GetSubscription(ctx, sid)
			if err != nil {
				r.log.Warn().Err(err).Str("subscription_id", sid).Msg("no se pudo consultar la suscripción")
			}
			remote = sub
		}
	}

	res := &WebhookResult{EventID: eventID}
	var out *outcome
	err := r.tx.Run(ctx, func(repos repository.Registry) error {
		stored, err := repos.WebhookEvents.GetForUpdate(ctx, eventID)
		if err != nil {
			return err
		}
		if stored == nil {
			return domain.ErrNotFound
		}
		if stored.Processed {
			res.Reason = ReasonAlreadyProcessed
			if stored.TenantID != "" {
				res.TenantID = stored.TenantID
			}
			return nil
		}

		h := handler{r: r, repos: repos, p: p, now: r.now(), systemUserID: systemUserID, remote: remote}
		o, err := h.dispatch(ctx)
		if err != nil {
			return err
		}
		out = o
		tenantID := ""
		if o.tenant != nil {
			tenantID = o.tenant.ID
		}
		res.TenantID, res.Reason, res.Processed = tenantID, o.reason, o.applied
		return repos.WebhookEvents.MarkProcessed(ctx, eventID, tenantID, h.now)
	})
	if err != nil {
		return nil, nil, err
	}
	return res, out, nil
}

func (r *WebhookReconciler) observe(event, result string) {
	if r.metrics == nil {
		return
	}
	r.metrics.WebhookEvents.WithLabelValues(event, result).Inc()
}

// handler aplica un evento con los repos de la transacción.
type handler struct {
	r            *WebhookReconciler
	repos        repository.Registry
	p            *webhookPayload
	now          time.Time
	systemUserID string
	remote       *ports.Subscription
}

func (h handler) dispatch(ctx context.Context) (*outcome, error) {
	ev := h.p.event()
	switch {
	case !ev.Known():
		return &outcome{reason: ReasonUnhandledEventType}, nil
	case ev.Materializes():
		return h.created(ctx)
	}

	t, err := h.repos.Tenants.GetBySubscriptionID(ctx, h.p.subscriptionID())
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, fmt.Errorf("%w: suscripción %q", domain.ErrTenantNotFound, h.p.subscriptionID())
	}

	if ev == dombilling.EventSubscriptionUpdated {
		return h.updated(ctx, t)
	}
	next, ok := dombilling.NextStatus(t.PaymentStatus, ev)
	if !ok {
		return &outcome{tenant: t, reason: ReasonNotApplicable}, nil
	}

	a := h.p.Data.Attributes
	switch ev {
	case dombilling.EventPaymentSuccess:
		t.PaymentFailedAt = nil
		if a.Total > 0 {
			t.LastPaymentAmount = h.p.amount()
		}
		if h.remote != nil && h.remote.RenewsAt != nil {
			t.RenewsAt = h.remote.RenewsAt
		} else if a.RenewsAt != nil {
			t.RenewsAt = a.RenewsAt
		}
	case dombilling.EventPaymentFailed:
		at := h.now
		t.PaymentFailedAt = &at
	case dombilling.EventCancelled:
		if a.EndsAt != nil {
			t.EndsAt = a.EndsAt
		} else {
			t.EndsAt = t.RenewsAt
		}
	case dombilling.EventResumed:
		t.EndsAt = nil
		if a.RenewsAt != nil {
			t.RenewsAt = a.RenewsAt
		}
	case dombilling.EventExpired:
		at := h.now
		if a.EndsAt != nil {
			at = *a.EndsAt
		}
		t.EndsAt = &at
	}
	t.PaymentStatus = next
	if err := h.repos.Tenants.Update(ctx, t); err != nil {
		return nil, err
	}
	return &outcome{tenant: t, applied: true}, nil
}

// updated aplica subscription_updated: estado del proveedor, variante/plan y fechas.
func (h handler) updated(ctx context.Context, t *entity.Tenant) (*outcome, error) {
	a := h.p.Data.Attributes
	next, ok := dombilling.StatusFromProvider(a.Status)
	if !ok || !dombilling.CanTransition(t.PaymentStatus, next) {
		return &outcome{tenant: t, reason: ReasonNotApplicable}, nil
	}
	t.PaymentStatus = next
	if v := h.p.variantID(); v != "" && v != t.LemonVariantID {
		t.LemonVariantID = v
		if plan, ok := h.r.catalog.Plan(v); ok {
			t.ApplyPlan(plan)
		}
	}
	if a.RenewsAt != nil {
		t.RenewsAt = a.RenewsAt
	}
	t.EndsAt = a.EndsAt
	if err := h.repos.Tenants.Update(ctx, t); err != nil {
		return nil, err
	}
	return &outcome{tenant: t, applied: true}, nil
}

// created maneja order_created / subscription_created: vincula una organización existente
// o materializa una nueva desde el checkout pendiente.
func (h handler) created(ctx context.Context) (*outcome, error) {
	if sid := h.p.subscriptionID(); sid != "" {
		t, err := h.repos.Tenants.GetBySubscriptionID(ctx, sid)
		if err != nil {
			return nil, err
		}
		if t != nil {
			return h.activate(ctx, t)
		}
	}
	if tid := h.p.custom("tenant_id"); tid != "" {
		t, err := h.repos.Tenants.GetByID(ctx, tid)
		if err != nil {
			return nil, err
		}
		if t != nil {
			return h.activate(ctx, t)
		}
	}

	co, err := h.findCheckout(ctx)
	if err != nil {
		return nil, err
	}
	if co.Completed && co.TenantID != "" {
		t, err := h.repos.Tenants.GetByID(ctx, co.TenantID)
		if err != nil {
			return nil, err
		}
		if t == nil {
			return nil, fmt.Errorf("%w: checkout %s apunta a una organización inexistente", domain.ErrTenantNotFound, co.ID)
		}
		// subscription_created después de order_created: falta vincular la suscripción.
		if h.p.event() == dombilling.EventSubscriptionCreated && t.LemonSubscriptionID == "" {
			o, err := h.activate(ctx, t)
			if err != nil {
				return nil, err
			}
			return o, h.reachOwner(ctx, o, co)
		}
		o := &outcome{tenant: t, reason: ReasonTenantExists}
		return o, h.reachOwner(ctx, o, co)
	}
	return h.materialize(ctx, co)
}

// reachOwner vuelve a pedir la invitación del propietario si la organización materializada
// no tiene owner ni invitación owner pendiente.
func (h handler) reachOwner(ctx context.Context, o *outcome, co *entity.Checkout) error {
	if co.ContactEmail == "" {
		return nil
	}
	members, err := h.repos.Memberships.ListByTenant(ctx, o.tenant.ID)
	if err != nil {
		return err
	}
	for _, m := range members {
		if m.Role == entity.RoleOwner && m.Status != entity.MembershipInactive {
			return nil
		}
	}
	inv, err := h.repos.Invitations.FindPending(ctx, o.tenant.ID, entity.NormalizeEmail(co.ContactEmail), entity.RoleOwner, h.now)
	if err != nil {
		return err
	}
	if inv == nil {
		o.ownerEmail = co.ContactEmail
	}
	return nil
}

func (h handler) findCheckout(ctx context.Context) (*entity.Checkout, error) {
	if id := h.p.custom("checkout_id"); id != "" {
		co, err := h.repos.Checkouts.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if co != nil {
			return co, nil
		}
	}
	email := h.p.Data.Attributes.UserEmail
	if email == "" {
		return nil, domain.ErrCheckoutNotFound
	}
	co, err := h.repos.Checkouts.FindLatestByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if co == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrCheckoutNotFound, entity.NormalizeEmail(email))
	}
	return co, nil
}

// activate aplica la transición de alta sobre una organización ya creada, vincula el proveedor
// y ajusta plan y límites a la variante comprada.
func (h handler) activate(ctx context.Context, t *entity.Tenant) (*outcome, error) {
	ev := h.p.event()
	next, ok := dombilling.NextStatus(t.PaymentStatus, ev)
	if h.p.custom("tenant_id") == t.ID {
		next, ok = dombilling.NextStatusFromCheckout(t.PaymentStatus, ev)
	}
	if !ok {
		return &outcome{tenant: t, reason: ReasonNotApplicable}, nil
	}
	h.link(t)
	if plan, found := h.r.catalog.Plan(h.p.variantID()); found {
		t.ApplyPlan(plan)
	}
	if t.PaymentStatus == entity.PaymentCancelled || t.PaymentStatus == entity.PaymentExpired {
		t.EndsAt = nil
	}
	t.PaymentStatus = next
	if err := h.repos.Tenants.Update(ctx, t); err != nil {
		return nil, err
	}
	return &outcome{tenant: t, applied: true}, nil
}

func (h handler) link(t *entity.Tenant) {
	a := h.p.Data.Attributes
	if sid := h.p.subscriptionID(); sid != "" {
		t.LemonSubscriptionID = sid
	}
	if cid := a.CustomerID.String(); cid != "" {
		t.LemonCustomerID = cid
	}
	if v := h.p.variantID(); v != "" {
		t.LemonVariantID = v
	}
	if a.RenewsAt != nil {
		t.RenewsAt = a.RenewsAt
	}
	if h.p.event() == dombilling.EventOrderCreated && a.Total > 0 {
		t.LastPaymentAmount = h.p.amount()
	}
}

// materialize crea la organización pagada: sin membresía todavía (el propietario llega por invitación),
// current_users = 0, created_by = usuario de sistema.
func (h handler) materialize(ctx context.Context, co *entity.Checkout) (*outcome, error) {
	if h.systemUserID == "" {
		return nil, errors.New("no hay usuario de sistema para created_by")
	}
	plan := co.Plan
	if p, ok := h.r.catalog.Plan(h.p.variantID()); ok && plan == "" {
		plan = p
	}
	if _, ok := entity.ParsePlan(string(plan)); !ok {
		plan = entity.PlanBasico
	}
	slug, err := h.freeSlug(ctx, co)
	if err != nil {
		return nil, err
	}

	t := tenant.NewTenant(tenant.NewTenantInput{
		Name:         co.TenantName,
		Slug:         slug,
		Plan:         plan,
		ContactName:  co.ContactName,
		ContactEmail: co.ContactEmail,
		CreatedBy:    h.systemUserID,
		CurrentUsers: 0,
		Status:       entity.PaymentActive,
	}, h.now)
	h.link(t)

	err = tenant.CreateBundle(ctx, h.repos, tenant.Bundle{
		Tenant:  t,
		Modules: entity.DefaultModules(),
		Audit: &entity.AuditLog{
			ID:       uuid.New().String(),
			TenantID: t.ID,
			Action:   tenant.AuditTenantCreated,
			Entity:   "tenant",
			EntityID: t.ID,
			Details: map[string]any{
				"slug":        t.Slug,
				"plan":        string(t.Plan),
				"source":      "billing_webhook",
				"checkout_id": co.ID,
				"event_name":  h.p.Meta.EventName,
			},
			CreatedAt: h.now,
		},
	})
	if err != nil {
		return nil, err
	}
	if err := h.repos.Checkouts.MarkCompleted(ctx, co.ID, t.ID); err != nil {
		return nil, fmt.Errorf("completar checkout: %w", err)
	}
	return &outcome{tenant: t, reason: ReasonTenantCreated, applied: true, ownerEmail: co.ContactEmail}, nil
}

func (h handler) freeSlug(ctx context.Context, co *entity.Checkout) (string, error) {
	base := co.TenantSlug
	if !domtenant.ValidSlug(base) {
		base = domtenant.DeriveSlug(co.TenantName)
	}
	for n := 0; n < 20; n++ {
		candidate := domtenant.WithSuffix(base, n)
		taken, err := h.repos.Tenants.SlugExists(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
	}
	return "", domain.ErrSlugTaken
}
