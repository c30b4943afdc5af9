package migrations

import (
	"context"
	"fmt"

	"github.com/ksred/job-tracker/internal/database"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

const currentJobsTable = `
CREATE TABLE jobs_new (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	jobTitle TEXT NOT NULL,
	company TEXT NOT NULL,
	location TEXT,
	remoteType TEXT DEFAULT 'on-site',
	salaryMin INTEGER,
	salaryMax INTEGER,
	status TEXT DEFAULT 'applied',
	jobUrl TEXT,
	notes TEXT,
	lastUpdated INTEGER
)`

// DropAuditColumns rebuilds the jobs table without createdAt and updatedAt
func DropAuditColumns(ctx context.Context, db *gorm.DB, logger zerolog.Logger) error {
	columns, err := database.TableColumns(ctx, db, "jobs")
	if err != nil {
		return err
	}

	_, hasCreated := database.FindColumn(columns, "createdAt")
	_, hasUpdated := database.FindColumn(columns, "updatedAt")
	if !hasCreated && !hasUpdated {
		logger.Info().Msg("Audit columns already absent")
		return nil
	}

	tx := db.WithContext(ctx)
	if err := tx.Exec("DROP TABLE IF EXISTS jobs_new").Error; err != nil {
		return fmt.Errorf("failed to clear jobs_new: %w", err)
	}
	if err := tx.Exec(currentJobsTable).Error; err != nil {
		return fmt.Errorf("failed to create jobs_new: %w", err)
	}

	copyRows := fmt.Sprintf(
		"INSERT INTO jobs_new (%s, lastUpdated) SELECT %s, lastUpdated FROM jobs",
		jobColumns, jobColumns,
	)
	result := tx.Exec(copyRows)
	if result.Error != nil {
		return fmt.Errorf("failed to copy jobs: %w", result.Error)
	}

	if err := database.SwapTable(ctx, db, "jobs", "jobs_new"); err != nil {
		return err
	}

	logger.Info().Int64("rows", result.RowsAffected).Msg("Dropped audit columns from jobs")
	return nil
}
