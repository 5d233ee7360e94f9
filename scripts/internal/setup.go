package internal

import (
	"fmt"

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
)

// scriptEnv is the wiring shared by every script
type scriptEnv struct {
	cfg      *config.Configuration
	log      *logger.Logger
	pgClient *postgres.Client
	sentry   *sentry.Service
	params   service.ServiceParams
}

func newScriptEnv() (*scriptEnv, error) {
	// Load configuration
	cfg, err := config.NewConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// Initialize logger
	log, err := logger.NewLogger(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	sqlDB, err := postgres.NewDB(cfg, log)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	pgClient, err := postgres.NewClient(sqlDB, cfg, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres client: %w", err)
	}

	cacheClient := cache.Initialize(cfg, log)
	billingMetrics := metrics.NewBillingMetrics(metrics.NewRegistry())

	notifier := notification.NewDispatcher(
		telegram.NewClient(cfg, log),
		email.NewEmail(email.NewEmailClient(cfg), log),
		billingMetrics,
		log,
	)

	params, err := service.NewServiceParams(
		log,
		cfg,
		pgClient,
		pgRepo.NewPlanRepository(pgClient, log, cacheClient),
		pgRepo.NewMembershipRepository(pgClient, log),
		pgRepo.NewPaymentRepository(pgClient, log),
		pgRepo.NewUserRepository(pgClient, log),
		proration.NewCalculator(),
		stripe.NewClient(cfg, log),
		notifier,
		billingMetrics,
		service.NewSystemClock(),
	)
	if err != nil {
		_ = pgClient.Close()
		return nil, fmt.Errorf("failed to build service params: %w", err)
	}

	return &scriptEnv{
		cfg:      cfg,
		log:      log,
		pgClient: pgClient,
		sentry:   sentry.NewSentryService(cfg, log),
		params:   params,
	}, nil
}

func (e *scriptEnv) close() {
	e.sentry.Flush()
	if err := e.pgClient.Close(); err != nil {
		e.log.Errorw("failed to close postgres client", "error", err)
	}
	_ = e.log.Sync()
}
