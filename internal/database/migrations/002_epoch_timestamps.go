package migrations

import (
	"context"
	"fmt"
	"time"

	"github.com/ksred/job-tracker/internal/database"
	"github.com/ksred/job-tracker/internal/models"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// Columns carried unchanged through every table rebuild
const jobColumns = "id, jobTitle, company, location, remoteType, salaryMin, salaryMax, status, jobUrl, notes"

const epochJobsTable = `
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
	lastUpdated INTEGER,
	createdAt TEXT DEFAULT CURRENT_TIMESTAMP,
	updatedAt TEXT DEFAULT CURRENT_TIMESTAMP
)`

type legacyTimestamps struct {
	ID          int64   `gorm:"column:id"`
	LastUpdated *string `gorm:"column:lastUpdated"`
	CreatedAt   *string `gorm:"column:createdAt"`
}

// ConvertTimestampsToEpoch rebuilds the jobs table with lastUpdated stored as
// epoch milliseconds. Stores whose column is already numeric are left alone.
func ConvertTimestampsToEpoch(ctx context.Context, db *gorm.DB, logger zerolog.Logger) error {
	columns, err := database.TableColumns(ctx, db, "jobs")
	if err != nil {
		return err
	}

	lastUpdated, ok := database.FindColumn(columns, "lastUpdated")
	if !ok {
		return fmt.Errorf("jobs table has no lastUpdated column")
	}
	if !lastUpdated.IsTextual() {
		logger.Info().Str("type", lastUpdated.Type).Msg("lastUpdated already numeric, nothing to convert")
		return nil
	}

	createdExpr := columnOrNull(columns, "createdAt")
	updatedExpr := columnOrNull(columns, "updatedAt")

	tx := db.WithContext(ctx)
	if err := tx.Exec("DROP TABLE IF EXISTS jobs_new").Error; err != nil {
		return fmt.Errorf("failed to clear jobs_new: %w", err)
	}
	if err := tx.Exec(epochJobsTable).Error; err != nil {
		return fmt.Errorf("failed to create jobs_new: %w", err)
	}

	copyRows := fmt.Sprintf(
		"INSERT INTO jobs_new (%s, createdAt, updatedAt) SELECT %s, %s, %s FROM jobs",
		jobColumns, jobColumns, createdExpr, updatedExpr,
	)
	if err := tx.Exec(copyRows).Error; err != nil {
		return fmt.Errorf("failed to copy jobs: %w", err)
	}

	var rows []legacyTimestamps
	selectTimestamps := fmt.Sprintf("SELECT id, lastUpdated, %s AS createdAt FROM jobs", createdExpr)
	if err := tx.Raw(selectTimestamps).Scan(&rows).Error; err != nil {
		return fmt.Errorf("failed to read legacy timestamps: %w", err)
	}

	now := time.Now()
	fallbacks := 0
	for _, row := range rows {
		ms, exact := legacyEpoch(row, now)
		if !exact {
			fallbacks++
		}
		if err := tx.Exec("UPDATE jobs_new SET lastUpdated = ? WHERE id = ?", ms, row.ID).Error; err != nil {
			return fmt.Errorf("failed to convert timestamp for job %d: %w", row.ID, err)
		}
	}

	if err := database.SwapTable(ctx, db, "jobs", "jobs_new"); err != nil {
		return err
	}

	logger.Info().
		Int("rows", len(rows)).
		Int("defaulted_to_now", fallbacks).
		Msg("Converted lastUpdated to epoch milliseconds")

	return nil
}

// legacyEpoch resolves a row's timestamp, falling back to createdAt and then
// to now. The boolean is false when now had to be used.
func legacyEpoch(row legacyTimestamps, now time.Time) (int64, bool) {
	if row.LastUpdated != nil {
		if ms, ok := models.ParseTimestamp(*row.LastUpdated); ok {
			return ms, true
		}
		if *row.LastUpdated != "" {
			return now.UnixMilli(), false
		}
	}
	if row.CreatedAt != nil {
		if ms, ok := models.ParseTimestamp(*row.CreatedAt); ok {
			return ms, true
		}
	}
	return now.UnixMilli(), false
}

func columnOrNull(columns []database.ColumnInfo, name string) string {
	if _, ok := database.FindColumn(columns, name); ok {
		return name
	}
	return "NULL"
}
