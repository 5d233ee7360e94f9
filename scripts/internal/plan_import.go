package internal

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fitclub/billing/internal/api/dto"
	ierr "github.com/fitclub/billing/internal/errors"
	"github.com/fitclub/billing/internal/logger"
	"github.com/fitclub/billing/internal/service"
	"github.com/gocarina/gocsv"
)

// PlanImportSummary contains statistics about the import process
type PlanImportSummary struct {
	TotalRows    int
	PlansCreated int
	PlansSkipped int
	Errors       []string
}

// parsePlanCSV reads plan rows keyed by header: code,name,description,tier,price,duration_days
func parsePlanCSV(r io.Reader) ([]dto.CreatePlanRequest, error) {
	var rows []dto.CreatePlanRequest
	if err := gocsv.Unmarshal(r, &rows); err != nil {
		return nil, fmt.Errorf("failed to parse plan csv: %w", err)
	}
	for i := range rows {
		rows[i].Code = strings.TrimSpace(rows[i].Code)
		rows[i].Name = strings.TrimSpace(rows[i].Name)
	}
	return rows, nil
}

// importPlans creates every row through the plan service. Existing codes are skipped
// so the same file can be imported again.
func importPlans(ctx context.Context, planService service.PlanService, rows []dto.CreatePlanRequest, log *logger.Logger) PlanImportSummary {
	summary := PlanImportSummary{TotalRows: len(rows)}

	for i, row := range rows {
		resp, err := planService.CreatePlan(ctx, row)
		if err != nil {
			if ierr.IsAlreadyExists(err) {
				log.Infow("plan already exists, skipping", "row", i+1, "code", row.Code)
				summary.PlansSkipped++
				continue
			}
			log.Errorw("failed to create plan", "row", i+1, "code", row.Code, "error", err)
			summary.Errors = append(summary.Errors, fmt.Sprintf("row %d (%s): %v", i+1, row.Code, err))
			continue
		}

		log.Infow("created plan", "row", i+1, "code", row.Code, "plan_id", resp.ID)
		summary.PlansCreated++
	}

	return summary
}

// ImportPlans loads the plan catalog from the CSV file at FILE_PATH
func ImportPlans() error {
	filePath := os.Getenv("FILE_PATH")
	if filePath == "" {
		return fmt.Errorf("FILE_PATH is required")
	}

	env, err := newScriptEnv()
	if err != nil {
		return err
	}
	defer env.close()

	file, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	rows, err := parsePlanCSV(file)
	if err != nil {
		return err
	}

	env.log.Infow("starting plan import", "file_path", filePath, "rows", len(rows))
	summary := importPlans(context.Background(), service.NewPlanService(env.params), rows, env.log)

	env.log.Infow("plan import completed",
		"total_rows", summary.TotalRows,
		"plans_created", summary.PlansCreated,
		"plans_skipped", summary.PlansSkipped,
		"errors", len(summary.Errors),
	)

	if len(summary.Errors) > 0 {
		return fmt.Errorf("plan import finished with %d errors", len(summary.Errors))
	}
	return nil
}
