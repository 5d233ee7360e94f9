package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/fitclub/billing/internal/api"
	"github.com/fitclub/billing/internal/api/cron"
	v1 "github.com/fitclub/billing/internal/api/v1"
	"github.com/fitclub/billing/internal/auth"
	"github.com/fitclub/billing/internal/cache"
	"github.com/fitclub/billing/internal/config"
	"github.com/fitclub/billing/internal/domain/proration"
	"github.com/fitclub/billing/internal/email"
	"github.com/fitclub/billing/internal/integration/stripe"
	"github.com/fitclub/billing/internal/integration/telegram"
	"github.com/fitclub/billing/internal/logger"
	"github.com/fitclub/billing/internal/metrics"
	"github.com/fitclub/billing/internal/notification"
	"github.com/fitclub/billing/internal/postgres"
	pgRepo "github.com/fitclub/billing/internal/repository/postgres"
	"github.com/fitclub/billing/internal/sentry"
	"github.com/fitclub/billing/internal/service"
	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
)

func main() {
	app := fx.New(
		fx.WithLogger(func(log *logger.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log.Desugar()}
		}),

		// Core
		fx.Provide(
			config.NewConfig,
			logger.NewLogger,
			sentry.NewSentryService,
			metrics.NewRegistry,
			metrics.NewBillingMetrics,
			cache.Initialize,
		),

		// Postgres
		fx.Provide(
			postgres.NewDB,
			postgres.NewClient,
			func(c *postgres.Client) postgres.IClient { return c },
			func(c *postgres.Client) v1.Pinger { return c },
		),

		// Repositories
		fx.Provide(
			pgRepo.NewPlanRepository,
			pgRepo.NewMembershipRepository,
			pgRepo.NewPaymentRepository,
			pgRepo.NewUserRepository,
		),

		// Integrations
		fx.Provide(
			stripe.NewClient,
			telegram.NewClient,
			email.NewEmailClient,
			email.NewEmail,
			func(c telegram.Client) notification.Channel { return c },
			func(e *email.Email) notification.MemberMailer { return e },
			notification.NewDispatcher,
			auth.NewProvider,
		),

		// Services
		fx.Provide(
			proration.NewCalculator,
			service.NewSystemClock,
			service.NewServiceParams,
			service.NewPlanService,
			service.NewMembershipService,
			service.NewPaymentService,
			service.NewSweepService,
		),

		// Handlers
		fx.Provide(
			v1.NewHealthHandler,
			v1.NewPlanHandler,
			v1.NewMembershipHandler,
			v1.NewPaymentHandler,
			v1.NewWebhookHandler,
			cron.NewMembershipCronHandler,
			cron.NewPaymentCronHandler,
			provideHandlers,
			api.NewRouter,
		),

		fx.Invoke(migrateDatabase),
		fx.Invoke(startServer),
	)

	app.Run()
}

func provideHandlers(
	health *v1.HealthHandler,
	plan *v1.PlanHandler,
	membership *v1.MembershipHandler,
	payment *v1.PaymentHandler,
	webhook *v1.WebhookHandler,
	membershipCron *cron.MembershipCronHandler,
	paymentCron *cron.PaymentCronHandler,
) api.Handlers {
	return api.Handlers{
		Health:         health,
		Plan:           plan,
		Membership:     membership,
		Payment:        payment,
		Webhook:        webhook,
		MembershipCron: membershipCron,
		PaymentCron:    paymentCron,
	}
}

func migrateDatabase(lc fx.Lifecycle, cfg *config.Configuration, client *postgres.Client, log *logger.Logger) {
	if !cfg.Postgres.AutoMigrate {
		return
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return pgRepo.Migrate(ctx, client, log)
		},
	})
}

func startServer(
	lc fx.Lifecycle,
	cfg *config.Configuration,
	router *gin.Engine,
	client *postgres.Client,
	sentryService *sentry.Service,
	log *logger.Logger,
) {
	srv := &http.Server{
		Addr:              cfg.Server.Address,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Infow("starting server",
				"address", cfg.Server.Address,
				"env", cfg.Server.Env,
				"mode", cfg.Deployment.Mode,
			)
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatalw("server stopped unexpectedly", "error", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info("shutting down server")
			if err := srv.Shutdown(ctx); err != nil {
				log.Errorw("failed to shut down server", "error", err)
			}
			sentryService.Flush()
			if err := client.Close(); err != nil {
				log.Errorw("failed to close postgres client", "error", err)
			}
			_ = log.Sync()
			return nil
		},
	})
}
