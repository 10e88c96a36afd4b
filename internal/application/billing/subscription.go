package billing

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"github.com/jhoicas/agrocloud-api/internal/application/dto"
	"github.com/jhoicas/agrocloud-api/internal/application/ports"
	"github.com/jhoicas/agrocloud-api/internal/domain"
	"github.com/jhoicas/agrocloud-api/internal/domain/entity"
	"github.com/jhoicas/agrocloud-api/internal/domain/repository"
	"github.com/jhoicas/agrocloud-api/pkg/validation"
)

// SubscriptionUseCase operaciones del propietario sobre la suscripción remota.
// El payment_status local solo lo cambia el webhook.
type SubscriptionUseCase struct {
	provider ports.BillingProvider
	catalog  PlanCatalog
	tenants  repository.TenantRepository
	log      zerolog.Logger
}

// NewSubscriptionUseCase construye el caso de uso.
func NewSubscriptionUseCase(provider ports.BillingProvider, catalog PlanCatalog, repos repository.Registry, log zerolog.Logger) *SubscriptionUseCase {
	return &SubscriptionUseCase{provider: provider, catalog: catalog, tenants: repos.Tenants, log: log}
}

// Cancel cancela la suscripción al final del período.
func (uc *SubscriptionUseCase) Cancel(ctx context.Context, tenantID string) (*dto.SubscriptionResponse, error) {
	t, err := uc.subscribed(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	sub, err := uc.provider.CancelSubscription(ctx, t.LemonSubscriptionID)
	if err != nil {
		return nil, domain.Upstream("billing", err)
	}
	uc.log.Info().Str("tenant_id", t.ID).Msg("suscripción cancelada")
	return response(t, sub), nil
}

// Resume reanuda una suscripción cancelada que aún no vence.
func (uc *SubscriptionUseCase) Resume(ctx context.Context, tenantID string) (*dto.SubscriptionResponse, error) {
	t, err := uc.subscribed(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	cancelled := false
	sub, err := uc.provider.UpdateSubscription(ctx, t.LemonSubscriptionID, ports.UpdateSubscriptionInput{Cancelled: &cancelled})
	if err != nil {
		return nil, domain.Upstream("billing", err)
	}
	uc.log.Info().Str("tenant_id", t.ID).Msg("suscripción reanudada")
	return response(t, sub), nil
}

// ChangePlan cambia la variante remota y aplica el plan y sus límites localmente.
// No permite bajar a un plan con menos cupos que los usuarios activos.
func (uc *SubscriptionUseCase) ChangePlan(ctx context.Context, tenantID string, in dto.ChangePlanRequest) (*dto.SubscriptionResponse, error) {
	in.Plan = strings.ToLower(strings.TrimSpace(in.Plan))
	if fields := validation.Struct(in); fields != nil {
		return nil, domain.NewValidationError(fields)
	}
	t, err := uc.subscribed(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	plan, _ := entity.ParsePlan(in.Plan)
	variant, ok := uc.catalog.Variant(plan)
	if !ok {
		return nil, domain.ErrVariantNotConfigured
	}
	if maxUsers, _ := plan.Limits(); maxUsers > 0 && t.CurrentUsers > maxUsers {
		return nil, domain.ErrSeatLimitReached
	}
	sub, err := uc.provider.UpdateSubscription(ctx, t.LemonSubscriptionID, ports.UpdateSubscriptionInput{VariantID: variant})
	if err != nil {
		return nil, domain.Upstream("billing", err)
	}
	t.ApplyPlan(plan)
	t.LemonVariantID = variant
	if err := uc.tenants.Update(ctx, t); err != nil {
		return nil, err
	}
	uc.log.Info().Str("tenant_id", t.ID).Str("plan", string(plan)).Msg("plan cambiado")
	return response(t, sub), nil
}

func (uc *SubscriptionUseCase) subscribed(ctx context.Context, tenantID string) (*entity.Tenant, error) {
	t, err := uc.tenants.GetByID(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, domain.ErrTenantNotFound
	}
	if t.LemonSubscriptionID == "" {
		return nil, domain.ErrNoSubscription
	}
	return t, nil
}

func response(t *entity.Tenant, sub *ports.Subscription) *dto.SubscriptionResponse {
	out := &dto.SubscriptionResponse{
		Success:       true,
		Plan:          string(t.Plan),
		PaymentStatus: string(t.PaymentStatus),
		RenewsAt:      t.RenewsAt,
		EndsAt:        t.EndsAt,
	}
	if sub != nil {
		out.Status = sub.Status
		if sub.RenewsAt != nil {
			out.RenewsAt = sub.RenewsAt
		}
		out.EndsAt = sub.EndsAt
	}
	return out
}
