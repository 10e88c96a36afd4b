// Package tenant implementa el alta de organizaciones con su propietario.
package tenant

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/jhoicas/agrocloud-api/internal/application/dto"
	"github.com/jhoicas/agrocloud-api/internal/application/ports"
	"github.com/jhoicas/agrocloud-api/internal/application/workflow"
	"github.com/jhoicas/agrocloud-api/internal/domain"
	"github.com/jhoicas/agrocloud-api/internal/domain/entity"
	"github.com/jhoicas/agrocloud-api/internal/domain/repository"
	domtenant "github.com/jhoicas/agrocloud-api/internal/domain/tenant"
	"github.com/jhoicas/agrocloud-api/pkg/metrics"
	"github.com/jhoicas/agrocloud-api/pkg/validation"
)

// maxSlugAttempts tope de sufijos probados para un slug derivado.
const maxSlugAttempts = 20

// RegisterUseCase crea una organización completa (identidad + filas relacionales) o nada.
type RegisterUseCase struct {
	identity ports.IdentityStore
	tenants  repository.TenantRepository
	profiles repository.ProfileRepository
	tx       ports.TxRunner
	runner   *workflow.Runner
	log      zerolog.Logger
	metrics  *metrics.Metrics
	baseURL  string
	now      func() time.Time
}

// NewRegisterUseCase construye el caso de uso. m puede ser nil.
func NewRegisterUseCase(
	identity ports.IdentityStore,
	repos repository.Registry,
	tx ports.TxRunner,
	log zerolog.Logger,
	m *metrics.Metrics,
	baseURL string,
) *RegisterUseCase {
	return &RegisterUseCase{
		identity: identity,
		tenants:  repos.Tenants,
		profiles: repos.Profiles,
		tx:       tx,
		runner:   workflow.NewRunner(log, m),
		log:      log,
		metrics:  m,
		baseURL:  strings.TrimRight(baseURL, "/"),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Register valida la entrada, verifica precondiciones y ejecuta el alta.
// Errores: *domain.ValidationError, ErrEmailAlreadyExists, ErrSlugTaken, *domain.UpstreamError.
func (uc *RegisterUseCase) Register(ctx context.Context, in dto.RegisterTenantRequest) (*dto.RegisterTenantResponse, error) {
	resp, err := uc.register(ctx, in)
	uc.observe(err)
	return resp, err
}

func (uc *RegisterUseCase) register(ctx context.Context, in dto.RegisterTenantRequest) (*dto.RegisterTenantResponse, error) {
	in = normalize(in)
	if fields := validation.Struct(in); fields != nil {
		return nil, domain.NewValidationError(fields)
	}
	plan, _ := entity.ParsePlan(in.Plan)

	existing, err := uc.identity.FindUserByEmail(ctx, in.ContactEmail)
	if err != nil {
		return nil, domain.Upstream("identity", err)
	}
	if existing != nil {
		return nil, domain.ErrEmailAlreadyExists
	}

	derived := in.Slug == ""
	base := in.Slug
	if derived {
		base = domtenant.DeriveSlug(in.TenantName)
	}
	slug, suffix, err := uc.resolveSlug(ctx, base, 0, derived)
	if err != nil {
		return nil, err
	}

	now := uc.now()
	var (
		user   *ports.IdentityUser
		bundle Bundle
	)
	steps := []workflow.Step{
		{
			Name:        "identity_user",
			Criticality: workflow.Required,
			Run: func(ctx context.Context) error {
				u, err := uc.identity.CreateUser(ctx, ports.CreateUserInput{
					Email:        in.ContactEmail,
					Password:     in.Password,
					FullName:     in.ContactName,
					Phone:        in.PhoneNumber,
					EmailConfirm: true,
					Metadata:     map[string]any{"full_name": in.ContactName, "tenant_slug": slug},
				})
				if err != nil {
					if errors.Is(err, domain.ErrEmailAlreadyExists) {
						return err
					}
					return domain.Upstream("identity", err)
				}
				user = u
				return nil
			},
			Compensate: func(ctx context.Context) error {
				return uc.identity.DeleteUser(ctx, user.ID)
			},
		},
		{
			Name:        "tenant_bundle",
			Criticality: workflow.Required,
			Run: func(ctx context.Context) error {
				for {
					t := NewTenant(NewTenantInput{
						Name:         in.TenantName,
						Slug:         slug,
						Plan:         plan,
						ContactName:  in.ContactName,
						ContactEmail: in.ContactEmail,
						CreatedBy:    user.ID,
						CurrentUsers: 1,
						Status:       entity.PaymentActive,
					}, now)
					bundle = OwnerBundle(t, user.ID, in.ContactName, in.ContactEmail, in.PhoneNumber, now)
					err := uc.tx.Run(ctx, func(repos repository.Registry) error {
						return CreateBundle(ctx, repos, bundle)
					})
					if err == nil {
						return nil
					}
					// Otro alta tomó el slug derivado entre el sondeo y la inserción.
					if !derived || !errors.Is(err, domain.ErrSlugTaken) {
						return err
					}
					if slug, suffix, err = uc.resolveSlug(ctx, base, suffix+1, true); err != nil {
						return err
					}
				}
			},
		},
		{
			Name:        "profile",
			Criticality: workflow.BestEffort,
			Run: func(ctx context.Context) error {
				return uc.profiles.Upsert(ctx, &entity.Profile{
					ID:        user.ID,
					Email:     in.ContactEmail,
					FullName:  in.ContactName,
					Phone:     in.PhoneNumber,
					CreatedAt: now,
				})
			},
		},
		{
			Name:        "sign_in_link",
			Criticality: workflow.BestEffort,
			Run: func(ctx context.Context) error {
				_, err := uc.identity.GenerateSignInLink(ctx, in.ContactEmail, uc.baseURL+"/dashboard")
				return err
			},
		},
	}
	if err := uc.runner.Execute(ctx, steps); err != nil {
		return nil, err
	}

	uc.log.Info().
		Str("tenant_id", bundle.Tenant.ID).
		Str("slug", bundle.Tenant.Slug).
		Str("plan", string(plan)).
		Msg("organización creada")

	return &dto.RegisterTenantResponse{
		Success:    true,
		Tenant:     dto.TenantFromEntity(bundle.Tenant),
		User:       dto.UserSummary{ID: user.ID, Email: user.Email, FullName: in.ContactName},
		Membership: dto.MembershipFromEntity(bundle.Owner),
	}, nil
}

// resolveSlug devuelve el primer slug libre a partir del sufijo start. Un slug explícito
// no se modifica: si está tomado es conflicto.
func (uc *RegisterUseCase) resolveSlug(ctx context.Context, base string, start int, derived bool) (string, int, error) {
	if !derived {
		taken, err := uc.tenants.SlugExists(ctx, base)
		if err != nil {
			return "", 0, err
		}
		if taken {
			return "", 0, domain.ErrSlugTaken
		}
		return base, 0, nil
	}
	for n := start; n < start+maxSlugAttempts; n++ {
		candidate := domtenant.WithSuffix(base, n)
		taken, err := uc.tenants.SlugExists(ctx, candidate)
		if err != nil {
			return "", 0, err
		}
		if !taken {
			return candidate, n, nil
		}
	}
	return "", 0, domain.ErrSlugTaken
}

func (uc *RegisterUseCase) observe(err error) {
	if uc.metrics == nil {
		return
	}
	result := "ok"
	var verr *domain.ValidationError
	switch {
	case err == nil:
	case errors.As(err, &verr):
		result = "invalid"
	case errors.Is(err, domain.ErrEmailAlreadyExists), errors.Is(err, domain.ErrSlugTaken):
		result = "conflict"
	default:
		result = "error"
	}
	uc.metrics.TenantRegistrations.WithLabelValues(result).Inc()
}

func normalize(in dto.RegisterTenantRequest) dto.RegisterTenantRequest {
	in.TenantName = strings.TrimSpace(in.TenantName)
	in.Slug = strings.TrimSpace(in.Slug)
	in.Plan = strings.ToLower(strings.TrimSpace(in.Plan))
	in.ContactName = strings.TrimSpace(in.ContactName)
	in.ContactEmail = entity.NormalizeEmail(in.ContactEmail)
	in.PhoneNumber = strings.TrimSpace(in.PhoneNumber)
	return in
}
