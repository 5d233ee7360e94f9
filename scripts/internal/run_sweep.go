package internal

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/fitclub/billing/internal/api/dto"
	"github.com/fitclub/billing/internal/service"
	"github.com/fitclub/billing/internal/types"
)

// RunSweep runs one maintenance pass outside the cron endpoints.
// SWEEP selects the pass, DATE (YYYY-MM-DD) overrides today and DAYS_BEFORE the reminder offset.
func RunSweep() error {
	sweep := os.Getenv("SWEEP")
	if sweep == "" {
		return fmt.Errorf("SWEEP is required")
	}

	env, err := newScriptEnv()
	if err != nil {
		return err
	}
	defer env.close()

	sweepService := service.NewSweepService(env.params)

	today := sweepService.Today()
	if dateStr := os.Getenv("DATE"); dateStr != "" {
		today, err = types.ParseDate(dateStr)
		if err != nil {
			return fmt.Errorf("invalid DATE: %w", err)
		}
	}

	daysBefore := env.cfg.Billing.ReminderDaysBefore
	if daysStr := os.Getenv("DAYS_BEFORE"); daysStr != "" {
		daysBefore, err = strconv.Atoi(daysStr)
		if err != nil {
			return fmt.Errorf("invalid DAYS_BEFORE: %w", err)
		}
	}

	ctx := context.Background()
	var result *dto.SweepResponse

	switch sweep {
	case service.SweepExpire:
		result, err = sweepService.SweepExpire(ctx, today)
	case service.SweepRemind:
		result, err = sweepService.SweepRemind(ctx, today, daysBefore)
	case service.SweepAutoRenew:
		result, err = sweepService.SweepAutoRenew(ctx, today)
	case service.SweepExpireStaleSessions:
		result, err = sweepService.SweepExpireStaleSessions(ctx, sweepService.Now())
	default:
		return fmt.Errorf("unknown sweep %q", sweep)
	}
	if err != nil {
		return fmt.Errorf("sweep %s failed: %w", sweep, err)
	}

	fmt.Printf("sweep=%s date=%s scanned=%d processed=%d skipped=%d failed=%d\n",
		result.Sweep, result.Date, result.Scanned, result.Processed, result.Skipped, result.Failed)
	return nil
}
