package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/jhoicas/agrocloud-api/internal/application/auth"
	"github.com/jhoicas/agrocloud-api/internal/application/billing"
	"github.com/jhoicas/agrocloud-api/internal/application/invitation"
	"github.com/jhoicas/agrocloud-api/internal/application/tenant"
	"github.com/jhoicas/agrocloud-api/internal/application/usecase"
	"github.com/jhoicas/agrocloud-api/internal/domain/entity"
	"github.com/jhoicas/agrocloud-api/pkg/config"
	"github.com/jhoicas/agrocloud-api/pkg/metrics"
)

// RouterDeps dependencias para el router. LoginUC y Metrics son opcionales.
type RouterDeps struct {
	RegisterUC     *tenant.RegisterUseCase
	InvitationUC   *invitation.UseCase
	LimitsUC       *usecase.LimitsUseCase
	MembershipUC   *usecase.MembershipUseCase
	ModuleService  *usecase.ModuleService
	AccessService  *usecase.AccessService
	Webhook        *billing.WebhookReconciler
	CheckoutUC     *billing.CheckoutUseCase
	SubscriptionUC *billing.SubscriptionUseCase
	LoginUC        *auth.LoginUseCase
	Metrics        *metrics.Metrics
	Log            zerolog.Logger
	JWTSecret      string
	ServiceName    string
	RateLimit      config.RateLimitConfig
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": deps.ServiceName})
	})
	if deps.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(deps.Metrics.Handler()))
	}

	api := app.Group("/api")
	limiter := NewRateLimiter(RateLimiterConfig{Rate: rate.Limit(deps.RateLimit.RPS), Burst: deps.RateLimit.Burst}).RateLimit()
	authMW := AuthMiddleware(deps.JWTSecret)

	member := RequireTenantRole(deps.AccessService)
	manager := RequireTenantRole(deps.AccessService, entity.RoleOwner, entity.RoleAdmin)
	owner := RequireTenantRole(deps.AccessService, entity.RoleOwner)

	tenantHandler := NewTenantHandler(deps.RegisterUC, deps.LimitsUC, deps.MembershipUC, deps.ModuleService)
	invitationHandler := NewInvitationHandler(deps.InvitationUC, deps.AccessService)
	billingHandler := NewBillingHandler(deps.Webhook, deps.CheckoutUC, deps.SubscriptionUC, deps.Log)

	// Auth (público, solo con proveedor de identidad local)
	if deps.LoginUC != nil {
		authHandler := NewAuthHandler(deps.LoginUC)
		api.Post("/auth/login", limiter, authHandler.Login)
	}

	// Los middlewares van por ruta: un grupo "/tenant/:id" también capturaría /tenant/register.
	tenants := api.Group("/tenant")
	tenants.Post("/register", limiter, tenantHandler.Register)
	tenants.Post("/invite", authMW, invitationHandler.Invite)
	tenants.Get("/:id/limits", authMW, member, tenantHandler.Limits)
	tenants.Get("/:id/modules", authMW, member, tenantHandler.Modules)
	tenants.Get("/:id/members", authMW, manager, tenantHandler.Members)
	tenants.Delete("/:id/members/:membershipId", authMW, manager, tenantHandler.RemoveMember)
	tenants.Get("/:id/workers", authMW, member, RequireModule(string(entity.ModuleTrabajadores), deps.ModuleService), tenantHandler.Workers)
	tenants.Get("/:id/invitations", authMW, manager, invitationHandler.List)
	tenants.Post("/:id/invitations/:invitationId/revoke", authMW, manager, invitationHandler.Revoke)
	tenants.Post("/:id/subscription/checkout", authMW, owner, billingHandler.TenantCheckout)
	tenants.Post("/:id/subscription/cancel", authMW, owner, billingHandler.Cancel)
	tenants.Post("/:id/subscription/resume", authMW, owner, billingHandler.Resume)
	tenants.Put("/:id/subscription/plan", authMW, owner, billingHandler.ChangePlan)

	invitations := api.Group("/invitations")
	invitations.Post("/accept", authMW, invitationHandler.Accept)
	invitations.Get("/:token", invitationHandler.Preview)

	billingGroup := api.Group("/billing")
	billingGroup.Post("/webhook", billingHandler.Webhook)
	billingGroup.Post("/checkout", limiter, billingHandler.Checkout)
}
