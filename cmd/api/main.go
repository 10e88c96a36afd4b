package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/jhoicas/agrocloud-api/internal/application/auth"
	"github.com/jhoicas/agrocloud-api/internal/application/billing"
	"github.com/jhoicas/agrocloud-api/internal/application/invitation"
	"github.com/jhoicas/agrocloud-api/internal/application/ports"
	"github.com/jhoicas/agrocloud-api/internal/application/tenant"
	"github.com/jhoicas/agrocloud-api/internal/application/usecase"
	"github.com/jhoicas/agrocloud-api/internal/domain/repository"
	"github.com/jhoicas/agrocloud-api/internal/infrastructure/identity"
	"github.com/jhoicas/agrocloud-api/internal/infrastructure/lemonsqueezy"
	"github.com/jhoicas/agrocloud-api/internal/infrastructure/mail"
	"github.com/jhoicas/agrocloud-api/internal/infrastructure/memory"
	"github.com/jhoicas/agrocloud-api/internal/infrastructure/postgres"
	httpRouter "github.com/jhoicas/agrocloud-api/internal/interfaces/http"
	"github.com/jhoicas/agrocloud-api/pkg/config"
	"github.com/jhoicas/agrocloud-api/pkg/logger"
	"github.com/jhoicas/agrocloud-api/pkg/metrics"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: os.Getenv("LOG_LEVEL"),
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Str("db_driver", cfg.DB.Driver).
		Str("identity", cfg.Identity.Provider).
		Msg("iniciando aplicación")

	ctx := context.Background()

	var (
		repos     repository.Registry
		txRunner  ports.TxRunner
		authUsers repository.AuthUserRepository
	)
	if cfg.DB.Driver == "memory" {
		store := memory.NewStore()
		repos = store.Registry()
		txRunner = memory.NewTxRunner(store)
		authUsers = store.AuthUsers()
		log.Warn().Msg("almacenamiento en memoria: los datos se pierden al reiniciar")
	} else {
		pool, err := postgres.NewPool(ctx, cfg.DB, log.Component("postgres"))
		if err != nil {
			log.Fatal().Err(err).Msg("conexión a PostgreSQL")
		}
		defer pool.Close()
		applied, err := postgres.Migrate(ctx, pool)
		if err != nil {
			log.Fatal().Err(err).Msg("migraciones")
		}
		if len(applied) > 0 {
			log.Info().Strs("migrations", applied).Msg("migraciones aplicadas")
		}
		repos = postgres.NewRegistry(pool)
		txRunner = postgres.NewTxRunner(pool)
		authUsers = postgres.NewAuthUserRepository(pool)
	}

	var mailer ports.Mailer
	if cfg.SMTP.Enabled() {
		mailer = mail.NewSMTPMailer(cfg.SMTP, log.Component("mail"))
	} else {
		mailer = mail.NewLogMailer(log.Component("mail"))
	}

	var (
		identityStore ports.IdentityStore
		loginUC       *auth.LoginUseCase
	)
	if cfg.Identity.Provider == "local" {
		local := identity.NewLocalStore(authUsers, mailer, identity.LocalConfig{
			Secret:        cfg.JWT.Secret,
			Issuer:        cfg.JWT.Issuer,
			InviteMinutes: int((7 * 24 * time.Hour).Minutes()),
			SignInMinutes: 60,
		}, log.Component("identity"))
		identityStore = local
		loginUC = auth.NewLoginUseCase(local, auth.JWTConfig{
			Secret:     cfg.JWT.Secret,
			ExpMinutes: cfg.JWT.Expiration,
			Issuer:     cfg.JWT.Issuer,
		})
	} else {
		identityStore = identity.NewHostedClient(cfg.Identity.URL, cfg.Identity.ServiceRoleKey, log.Component("identity"))
	}

	m := metrics.New("agrocloud")
	provider := lemonsqueezy.NewClient(lemonsqueezy.Config{
		APIKey:   cfg.Billing.APIKey,
		StoreID:  cfg.Billing.StoreID,
		TestMode: cfg.Billing.TestMode,
	}, log.Component("lemonsqueezy"))
	catalog := billing.NewPlanCatalog(cfg.Billing.Variants())

	registerUC := tenant.NewRegisterUseCase(identityStore, repos, txRunner, log.Component("tenant"), m, cfg.App.BaseURL)
	invitationUC := invitation.NewUseCase(identityStore, repos, txRunner, log.Component("invitation"), m, cfg.App.BaseURL)
	systemUser := usecase.NewSystemUserResolver(identityStore, cfg.Identity.SystemUserID, cfg.Identity.SystemUserEmail, log.Component("system_user"))
	webhook := billing.NewWebhookReconciler(billing.WebhookDeps{
		Secret:     cfg.Billing.WebhookSecret,
		Catalog:    catalog,
		Repos:      repos,
		Tx:         txRunner,
		Provider:   provider,
		SystemUser: systemUser,
		Owners:     invitationUC,
		Log:        log.Component("billing_webhook"),
		Metrics:    m,
	})
	checkoutUC := billing.NewCheckoutUseCase(provider, catalog, repos, log.Component("checkout"), cfg.App.BaseURL)
	subscriptionUC := billing.NewSubscriptionUseCase(provider, catalog, repos, log.Component("subscription"))

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	// Swagger UI en local: http://localhost:<port>/docs
	app.Use(swagger.New(swagger.Config{
		BasePath: "/",
		FilePath: "./docs/swagger.json",
		Path:     "docs",
		Title:    "AgroCloud API",
	}))

	httpRouter.Router(app, httpRouter.RouterDeps{
		RegisterUC:     registerUC,
		InvitationUC:   invitationUC,
		LimitsUC:       usecase.NewLimitsUseCase(repos.Tenants),
		MembershipUC:   usecase.NewMembershipUseCase(repos, txRunner, log.Component("membership")),
		ModuleService:  usecase.NewModuleService(repos.Modules),
		AccessService:  usecase.NewAccessService(repos.Memberships),
		Webhook:        webhook,
		CheckoutUC:     checkoutUC,
		SubscriptionUC: subscriptionUC,
		LoginUC:        loginUC,
		Metrics:        m,
		Log:            log.Component("http"),
		JWTSecret:      cfg.JWT.Secret,
		ServiceName:    cfg.App.Name,
		RateLimit:      cfg.RateLimit,
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}

	log.Info().Msg("aplicación detenida")
}
