package billing

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jhoicas/agrocloud-api/internal/application/dto"
	"github.com/jhoicas/agrocloud-api/internal/application/ports"
	"github.com/jhoicas/agrocloud-api/internal/domain"
	"github.com/jhoicas/agrocloud-api/internal/domain/entity"
	"github.com/jhoicas/agrocloud-api/internal/domain/repository"
	"github.com/jhoicas/agrocloud-api/pkg/validation"
)

// CheckoutUseCase abre checkouts hosted y guarda la intención de compra.
type CheckoutUseCase struct {
	provider  ports.BillingProvider
	catalog   PlanCatalog
	checkouts repository.CheckoutRepository
	tenants   repository.TenantRepository
	log       zerolog.Logger
	baseURL   string
	now       func() time.Time
}

// NewCheckoutUseCase construye el caso de uso.
func NewCheckoutUseCase(provider ports.BillingProvider, catalog PlanCatalog, repos repository.Registry, log zerolog.Logger, baseURL string) *CheckoutUseCase {
	return &CheckoutUseCase{
		provider:  provider,
		catalog:   catalog,
		checkouts: repos.Checkouts,
		tenants:   repos.Tenants,
		log:       log,
		baseURL:   strings.TrimRight(baseURL, "/"),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Create registra el checkout de una organización que aún no existe. El id del registro
// viaja en custom_data.checkout_id y el webhook lo usa para materializar la organización.
func (uc *CheckoutUseCase) Create(ctx context.Context, in dto.CheckoutRequest) (*dto.CheckoutResponse, error) {
	in.TenantName = strings.TrimSpace(in.TenantName)
	in.Slug = strings.TrimSpace(in.Slug)
	in.Plan = strings.ToLower(strings.TrimSpace(in.Plan))
	in.ContactName = strings.TrimSpace(in.ContactName)
	in.ContactEmail = entity.NormalizeEmail(in.ContactEmail)
	if fields := validation.Struct(in); fields != nil {
		return nil, domain.NewValidationError(fields)
	}
	plan, _ := entity.ParsePlan(in.Plan)
	variant, ok := uc.catalog.Variant(plan)
	if !ok {
		return nil, domain.ErrVariantNotConfigured
	}
	if in.Slug != "" {
		taken, err := uc.tenants.SlugExists(ctx, in.Slug)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, domain.ErrSlugTaken
		}
	}

	now := uc.now()
	co := &entity.Checkout{
		ID:           uuid.New().String(),
		ContactEmail: in.ContactEmail,
		ContactName:  in.ContactName,
		TenantName:   in.TenantName,
		TenantSlug:   in.Slug,
		Plan:         plan,
		ExpiresAt:    now.Add(entity.CheckoutTTL),
		CreatedAt:    now,
	}
	// Sin URL devuelta no hay pago posible, así que el registro se guarda después del proveedor.
	session, err := uc.provider.CreateCheckout(ctx, ports.CheckoutRequest{
		VariantID:   variant,
		Email:       in.ContactEmail,
		Name:        in.ContactName,
		CustomData:  map[string]string{"checkout_id": co.ID},
		RedirectURL: uc.baseURL + "/onboarding/success",
	})
	if err != nil {
		return nil, domain.Upstream("billing", err)
	}
	co.CheckoutID = session.ID
	if err := uc.checkouts.Create(ctx, co); err != nil {
		return nil, err
	}
	uc.log.Info().Str("checkout_id", co.ID).Str("plan", string(plan)).Msg("checkout creado")
	return &dto.CheckoutResponse{Success: true, CheckoutURL: session.URL}, nil
}

// CreateForTenant abre un checkout para una organización existente (p. ej. legacy que pasa a pago).
func (uc *CheckoutUseCase) CreateForTenant(ctx context.Context, tenantID string, in dto.ChangePlanRequest) (*dto.CheckoutResponse, error) {
	in.Plan = strings.ToLower(strings.TrimSpace(in.Plan))
	if fields := validation.Struct(in); fields != nil {
		return nil, domain.NewValidationError(fields)
	}
	t, err := uc.tenants.GetByID(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, domain.ErrTenantNotFound
	}
	plan, _ := entity.ParsePlan(in.Plan)
	variant, ok := uc.catalog.Variant(plan)
	if !ok {
		return nil, domain.ErrVariantNotConfigured
	}
	session, err := uc.provider.CreateCheckout(ctx, ports.CheckoutRequest{
		VariantID:   variant,
		Email:       t.ContactEmail,
		Name:        t.ContactName,
		CustomData:  map[string]string{"tenant_id": t.ID},
		RedirectURL: uc.baseURL + "/settings/billing",
	})
	if err != nil {
		return nil, domain.Upstream("billing", err)
	}
	return &dto.CheckoutResponse{Success: true, CheckoutURL: session.URL}, nil
}
