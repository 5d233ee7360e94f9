package api

import (
	"github.com/fitclub/billing/internal/api/cron"
	v1 "github.com/fitclub/billing/internal/api/v1"
	"github.com/fitclub/billing/internal/auth"
	"github.com/fitclub/billing/internal/config"
	"github.com/fitclub/billing/internal/logger"
	"github.com/fitclub/billing/internal/rest/middleware"
	"github.com/fitclub/billing/internal/types"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Handlers struct {
	Health     *v1.HealthHandler
	Membership *v1.MembershipHandler
	Payment    *v1.PaymentHandler
	Plan       *v1.PlanHandler
	Webhook    *v1.WebhookHandler

	// Cron jobs
	MembershipCron *cron.MembershipCronHandler
	PaymentCron    *cron.PaymentCronHandler
}

func NewRouter(
	handlers Handlers,
	cfg *config.Configuration,
	log *logger.Logger,
	authProvider auth.Provider,
	registry *prometheus.Registry,
) *gin.Engine {
	if cfg.Server.Env != types.EnvLocal {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(
		middleware.RequestIDMiddleware,
		middleware.SentryMiddleware(cfg),
		middleware.LoggingMiddleware(log),
		middleware.ErrorHandler(log),
		gin.Recovery(),
	)

	router.GET("/health", handlers.Health.Health)
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	public := router.Group("/v1")
	{
		public.GET("/plans/:id", handlers.Plan.GetPlan)

		// checkout redirects land here without a token
		public.GET("/payments/success", handlers.Payment.Success)
		public.GET("/payments/cancel", handlers.Payment.Cancel)

		// signature verified in the service
		public.POST("/webhooks/stripe", handlers.Webhook.HandleStripeWebhook)
	}

	private := router.Group("/v1")
	private.Use(
		middleware.AuthenticateMiddleware(authProvider, log),
		middleware.SentryUserContextMiddleware,
	)

	checkoutLimit := middleware.RateLimitMiddleware(cfg)

	memberships := private.Group("/memberships")
	{
		memberships.POST("", checkoutLimit, handlers.Membership.Purchase)
		memberships.GET("/:id", handlers.Membership.GetMembership)
		memberships.POST("/:id/freeze", handlers.Membership.Freeze)
		memberships.POST("/:id/resume", handlers.Membership.Resume)
		memberships.POST("/:id/upgrade", checkoutLimit, handlers.Membership.Upgrade)
	}

	payments := private.Group("/payments")
	{
		payments.POST("/checkout", checkoutLimit, handlers.Payment.InitiateCheckout)
	}

	cronGroup := router.Group("/v1/cron")
	cronGroup.Use(middleware.CronSecretMiddleware(cfg, log))
	{
		cronMemberships := cronGroup.Group("/memberships")
		cronMemberships.POST("/expire", handlers.MembershipCron.ExpireMemberships)
		cronMemberships.POST("/remind", handlers.MembershipCron.RemindMemberships)
		cronMemberships.POST("/auto-renew", handlers.MembershipCron.AutoRenewMemberships)

		cronPayments := cronGroup.Group("/payments")
		cronPayments.POST("/expire-sessions", handlers.PaymentCron.ExpireStaleSessions)
	}

	return router
}
