// Command seed applies the SQL migrations and bulk-loads profiles.
//
//	seed -dsn postgres://... -migrate
//	seed -file profiles.json -truncate
//
// The profiles file is a JSON array of {"email", "teach_skill", "learn_skill"}
// objects. Without -file a small built-in sample pool is loaded.
package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
)

type options struct {
	DSN           string
	Migrate       bool
	MigrationsDir string
	File          string
	Truncate      bool
	SkipLoad      bool
	Timeout       time.Duration
}

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("failed to load .env", "error", err)
	}

	var opts options
	flag.StringVar(&opts.DSN, "dsn", os.Getenv("DATABASE_URL"), "PostgreSQL DSN [env: DATABASE_URL]")
	flag.BoolVar(&opts.Migrate, "migrate", false, "apply migrations/*.up.sql before loading")
	flag.StringVar(&opts.MigrationsDir, "migrations", "migrations", "directory holding the SQL migrations")
	flag.StringVar(&opts.File, "file", "", "JSON file of profiles to load (default: built-in sample)")
	flag.BoolVar(&opts.Truncate, "truncate", false, "delete every profile before loading")
	flag.BoolVar(&opts.SkipLoad, "migrate-only", false, "apply migrations and exit without loading profiles")
	flag.DurationVar(&opts.Timeout, "timeout", 2*time.Minute, "overall time limit")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	if opts.DSN == "" {
		logger.Error("missing DSN: pass -dsn or set DATABASE_URL")
		os.Exit(2)
	}

	if err := run(opts, logger); err != nil {
		logger.Error("seed failed", "error", err)
		os.Exit(1)
	}
}

func run(opts options, logger *slog.Logger) error {
	ctx, cancel := context.WithTimeout(context.Background(), opts.Timeout)
	defer cancel()

	db, err := sql.Open("postgres", opts.DSN)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to reach database: %w", err)
	}

	if opts.Migrate || opts.SkipLoad {
		files, err := migrationFiles(opts.MigrationsDir)
		if err != nil {
			return err
		}
		if err := applyMigrations(ctx, db, files); err != nil {
			return err
		}
		logger.Info("migrations applied", "count", len(files))
	}
	if opts.SkipLoad {
		return nil
	}

	var seeds []seedProfile
	if opts.File != "" {
		f, err := os.Open(opts.File)
		if err != nil {
			return fmt.Errorf("failed to open profiles file: %w", err)
		}
		seeds, err = decodeProfiles(f)
		f.Close()
		if err != nil {
			return fmt.Errorf("%s: %w", opts.File, err)
		}
	} else {
		seeds = sampleProfiles()
	}

	profiles, err := buildProfiles(seeds, time.Now().UTC())
	if err != nil {
		return err
	}

	if err := loadProfiles(ctx, db, profiles, opts.Truncate); err != nil {
		return err
	}

	var total int64
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM profiles`).Scan(&total); err != nil {
		return fmt.Errorf("failed to count profiles: %w", err)
	}
	logger.Info("seed complete", "loaded", len(profiles), "total", total, "truncated", opts.Truncate)
	return nil
}
