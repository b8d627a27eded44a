package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/uptrace/bun"

	"ms-calendar/internal/config"
	"ms-calendar/internal/database"
	"ms-calendar/internal/database/migrations"
	"ms-calendar/internal/logger"
)

func main() {
	seed := flag.Bool("seed", false, "insert demo data after creating the schema")
	reset := flag.Bool("reset", false, "drop every table before migrating")
	flag.Parse()

	cfg, _, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := logger.NewWithWriter(os.Stdout)
	logger.SetLevel(cfg.Log.Level)

	ctx := context.Background()
	db, err := database.Open(ctx, cfg.Database, database.DefaultRetry, logger)
	if err != nil {
		logger.Fatal("DATABASE", err.Error())
	}
	defer db.Close()

	if migrations.Supports(cfg.Database.Driver) {
		err = runMigrations(db, cfg.Database.Driver, *seed, *reset, logger)
	} else {
		err = createSchema(ctx, db, *seed, *reset, logger)
	}
	if err != nil {
		logger.Fatal("MIGRATE", err.Error())
	}
	logger.Info("MIGRATE", "✅ Done.")
}

func runMigrations(db *bun.DB, driver string, seed, reset bool, logger *logger.Logger) error {
	runner := migrations.NewRunner(db, migrations.MigrateOptions{Driver: driver, SeedData: seed}, logger)
	defer runner.Close()

	if reset {
		logger.Info("MIGRATE", "Rolling back every migration")
		if err := runner.MigrateDown(); err != nil {
			return err
		}
	}
	return runner.RunMigrations()
}

func createSchema(ctx context.Context, db *bun.DB, seed, reset bool, logger *logger.Logger) error {
	if reset {
		logger.Info("MIGRATE", "Dropping tables")
		if err := database.DropSchema(ctx, db); err != nil {
			return err
		}
	}

	logger.Info("MIGRATE", "Creating tables")
	if err := database.CreateSchema(ctx, db); err != nil {
		return err
	}

	if seed {
		logger.Info("MIGRATE", "Seeding sample data")
		if err := database.Seed(ctx, db); err != nil {
			return fmt.Errorf("seed: %w", err)
		}
	}
	return nil
}
