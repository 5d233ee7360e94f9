package postgres

import (
	"context"

	"github.com/fitclub/billing/internal/logger"
	"github.com/fitclub/billing/internal/postgres"
)

const liveMembershipIndex = "uniq_memberships_user_live"

// constraints gorm tags cannot express
var bootstrapDDL = []string{
	`CREATE UNIQUE INDEX IF NOT EXISTS ` + liveMembershipIndex + `
		ON memberships (user_id) WHERE status IN ('ACTIVE', 'FROZEN')`,
	`DO $$ BEGIN
		IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'fk_memberships_plan') THEN
			ALTER TABLE memberships ADD CONSTRAINT fk_memberships_plan
				FOREIGN KEY (plan_id) REFERENCES plans (id) ON DELETE RESTRICT;
		END IF;
		IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'chk_memberships_dates') THEN
			ALTER TABLE memberships ADD CONSTRAINT chk_memberships_dates
				CHECK (end_date > start_date AND (frozen_from IS NULL OR frozen_to > frozen_from));
		END IF;
		IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'chk_plans_positive') THEN
			ALTER TABLE plans ADD CONSTRAINT chk_plans_positive
				CHECK (price > 0 AND duration_days > 0);
		END IF;
	END $$`,
}

// Migrate bootstraps the schema. It is idempotent and meant for local and test databases;
// production schema changes go through the migration pipeline.
func Migrate(ctx context.Context, client *postgres.Client, log *logger.Logger) error {
	db := client.DB(ctx)

	if err := db.AutoMigrate(&userRow{}, &planRow{}, &membershipRow{}, &paymentRow{}); err != nil {
		return err
	}

	for _, stmt := range bootstrapDDL {
		if err := db.Exec(stmt).Error; err != nil {
			return err
		}
	}

	log.Infow("database schema is up to date")
	return nil
}
