package migrations

import (
	"context"

	"github.com/ksred/job-tracker/internal/database"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// LatestVersion is the schema generation the registered migrations produce
const LatestVersion = 3

// GetMigrations returns all registered migrations
func GetMigrations() []database.Migration {
	return []database.Migration{
		{
			Version: 2,
			Name:    "epoch_last_updated",
			Run:     ConvertTimestampsToEpoch,
		},
		{
			Version: 3,
			Name:    "drop_audit_columns",
			Run:     DropAuditColumns,
		},
	}
}

// Apply ensures the base schema and runs every pending migration, returning
// the resulting version.
func Apply(ctx context.Context, db *gorm.DB, logger zerolog.Logger) (int, error) {
	runner := database.NewMigrationRunner(db, logger)
	for _, m := range GetMigrations() {
		runner.Register(m)
	}
	return runner.Run(ctx)
}
