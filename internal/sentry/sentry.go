package sentry

import (
	"time"

	"github.com/fitclub/billing/internal/config"
	"github.com/fitclub/billing/internal/logger"
	"github.com/getsentry/sentry-go"
)

// Service owns the process wide Sentry client
type Service struct {
	cfg    *config.Configuration
	logger *logger.Logger
}

// NewSentryService initializes Sentry when it is enabled. Initialization failures are
// logged and leave error reporting off.
func NewSentryService(cfg *config.Configuration, log *logger.Logger) *Service {
	s := &Service{cfg: cfg, logger: log}
	if !cfg.Sentry.Enabled {
		return s
	}

	environment := cfg.Sentry.Environment
	if environment == "" {
		environment = string(cfg.Server.Env)
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.Sentry.DSN,
		Environment:      environment,
		EnableTracing:    cfg.Sentry.SampleRate > 0,
		TracesSampleRate: cfg.Sentry.SampleRate,
		AttachStacktrace: true,
	})
	if err != nil {
		log.Errorw("failed to initialize sentry", "error", err)
		return s
	}

	log.Infow("sentry initialized", "environment", environment, "sample_rate", cfg.Sentry.SampleRate)
	return s
}

func (s *Service) IsEnabled() bool {
	return s.cfg.Sentry.Enabled && sentry.CurrentHub().Client() != nil
}

// Flush waits for buffered events before shutdown
func (s *Service) Flush() {
	if !s.IsEnabled() {
		return
	}
	if !sentry.Flush(2 * time.Second) {
		s.logger.Warnw("sentry flush timed out")
	}
}
