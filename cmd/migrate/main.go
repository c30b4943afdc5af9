package main

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	"github.com/ksred/job-tracker/internal/config"
	"github.com/ksred/job-tracker/internal/database"
	"github.com/ksred/job-tracker/internal/database/migrations"
	"github.com/ksred/job-tracker/internal/models"
	"github.com/ksred/job-tracker/internal/services"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

func main() {
	var (
		configPath = flag.String("config", "", "Path to configuration file")
		dbPath     = flag.String("db", "", "Path to the SQLite store (overrides configuration)")
		status     = flag.Bool("status", false, "Print the schema version and pending migrations without applying them")
		seed       = flag.Bool("seed", false, "Insert the sample job applications after migrating, if the store is empty")
		vacuum     = flag.Bool("vacuum", false, "Reclaim space left by table rebuilds after migrating")
	)
	flag.Parse()

	// Load configuration
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if *dbPath != "" {
		cfg.Database.Path = *dbPath
	}

	// Set up logging
	output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	logger := zerolog.New(output).With().Timestamp().Logger()

	// Connect to database
	db := database.New(cfg)
	if err := db.Connect(); err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	ctx := context.Background()
	logger.Info().Str("path", db.Path()).Msg("Opened store")

	if *status {
		if err := printStatus(ctx, db.DB(), logger); err != nil {
			logger.Fatal().Err(err).Msg("Failed to read schema status")
		}
		return
	}

	version, err := migrations.Apply(ctx, db.DB(), logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Migration failed")
	}
	logger.Info().Int("schema_version", version).Msg("Migration completed successfully")

	if *vacuum {
		if err := db.Exec(ctx, "VACUUM"); err != nil {
			logger.Fatal().Err(err).Msg("Vacuum failed")
		}
		logger.Info().Msg("Store vacuumed")
	}

	if *seed {
		created, err := seedIfEmpty(ctx, db, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("Seeding failed")
		}
		for _, job := range created {
			logger.Info().
				Int64("id", job.ID).
				Str("title", job.Title).
				Str("company", job.Company).
				Msg("Inserted sample job")
		}
	}
}

// seedIfEmpty inserts the sample jobs unless the store already holds records.
// The check and the inserts share one transaction.
func seedIfEmpty(ctx context.Context, db *database.Database, logger zerolog.Logger) ([]models.Job, error) {
	var created []models.Job
	err := db.WithTransaction(ctx, func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Job{}).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			logger.Info().Int64("existing", count).Msg("Store already has jobs, skipping seed")
			return nil
		}

		var err error
		created, err = services.NewJobService(tx, logger).Seed(ctx)
		return err
	})
	return created, err
}

func printStatus(ctx context.Context, db *gorm.DB, logger zerolog.Logger) error {
	runner := database.NewMigrationRunner(db, logger)
	for _, m := range migrations.GetMigrations() {
		runner.Register(m)
	}

	pending, err := runner.GetPendingMigrations(ctx)
	if err != nil {
		return err
	}
	current, err := database.CurrentVersion(ctx, db)
	if err != nil {
		return err
	}

	logger.Info().
		Int("schema_version", current).
		Int("latest_version", migrations.LatestVersion).
		Int("pending", len(pending)).
		Msg("Schema status")
	for _, m := range pending {
		logger.Info().Int("version", m.Version).Str("name", m.Name).Msg("Pending migration")
	}
	return nil
}
