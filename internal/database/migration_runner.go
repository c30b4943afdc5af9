package database

import (
	"context"
	"fmt"
	"sort"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// MigrationFunc is a function that performs a migration
type MigrationFunc func(ctx context.Context, db *gorm.DB, logger zerolog.Logger) error

// Migration moves the store from Version-1 to Version
type Migration struct {
	Version int
	Name    string
	Run     MigrationFunc
}

// MigrationRunner handles running database migrations
type MigrationRunner struct {
	db         *gorm.DB
	logger     zerolog.Logger
	migrations []Migration
}

// NewMigrationRunner creates a new migration runner
func NewMigrationRunner(db *gorm.DB, logger zerolog.Logger) *MigrationRunner {
	return &MigrationRunner{
		db:         db,
		logger:     logger,
		migrations: []Migration{},
	}
}

// Register adds a migration to the runner
func (r *MigrationRunner) Register(migration Migration) {
	r.migrations = append(r.migrations, migration)
}

// Run brings the store up to the latest registered version. Each migration and
// its version bump commit together, so a failure leaves the previous version intact.
func (r *MigrationRunner) Run(ctx context.Context) (int, error) {
	if err := EnsureBaseSchema(ctx, r.db); err != nil {
		return 0, err
	}

	current, err := CurrentVersion(ctx, r.db)
	if err != nil {
		return 0, err
	}

	sort.Slice(r.migrations, func(i, j int) bool {
		return r.migrations[i].Version < r.migrations[j].Version
	})

	for _, migration := range r.migrations {
		if migration.Version <= current {
			r.logger.Debug().
				Int("version", migration.Version).
				Str("name", migration.Name).
				Msg("Migration already applied, skipping")
			continue
		}

		r.logger.Info().
			Int("from_version", current).
			Int("version", migration.Version).
			Str("name", migration.Name).
			Msg("Running migration")

		tx := r.db.WithContext(ctx).Begin()
		if tx.Error != nil {
			return current, fmt.Errorf("failed to start transaction: %w", tx.Error)
		}

		if err := migration.Run(ctx, tx, r.logger); err != nil {
			tx.Rollback()
			return current, fmt.Errorf("migration %d (%s) failed: %w", migration.Version, migration.Name, err)
		}

		if err := SetVersion(ctx, tx, migration.Version); err != nil {
			tx.Rollback()
			return current, fmt.Errorf("failed to record migration %d: %w", migration.Version, err)
		}

		if err := tx.Commit().Error; err != nil {
			return current, fmt.Errorf("failed to commit migration %d: %w", migration.Version, err)
		}

		current = migration.Version
		r.logger.Info().
			Int("version", migration.Version).
			Str("name", migration.Name).
			Msg("Migration completed successfully")
	}

	return current, nil
}

// GetPendingMigrations returns the registered migrations above the current version
func (r *MigrationRunner) GetPendingMigrations(ctx context.Context) ([]Migration, error) {
	if err := EnsureBaseSchema(ctx, r.db); err != nil {
		return nil, err
	}

	current, err := CurrentVersion(ctx, r.db)
	if err != nil {
		return nil, err
	}

	var pending []Migration
	for _, migration := range r.migrations {
		if migration.Version > current {
			pending = append(pending, migration)
		}
	}

	sort.Slice(pending, func(i, j int) bool {
		return pending[i].Version < pending[j].Version
	})

	return pending, nil
}
