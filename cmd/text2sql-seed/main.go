package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"slices"
	"syscall"

	"github.com/nishithraj14/text-to-sql-generator/internal/config"
	"github.com/nishithraj14/text-to-sql-generator/internal/database"
	"github.com/nishithraj14/text-to-sql-generator/internal/demo"
	"github.com/nishithraj14/text-to-sql-generator/internal/observability"
)

func main() {
	cfg, err := config.LoadFromEnv("text2sql-seed")
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}
	seedCfg, err := demo.LoadConfigFromEnv(os.LookupEnv)
	if err != nil {
		slog.Error("failed to load seed config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg, os.Stdout)
	seeder, err := demo.NewSeeder(seedCfg, logger)
	if err != nil {
		logger.Error("failed to initialize seeder", slog.Any("error", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("seeding demo schemas",
		slog.String("driver", cfg.Database.Driver),
		slog.Any("schemas", cfg.Database.Schemas),
		slog.Int("rows", seedCfg.Rows),
		slog.Int64("seed", seedCfg.Seed),
		slog.Bool("reset", seedCfg.Reset),
	)

	failed := false
	for _, schemaName := range cfg.Database.Schemas {
		if !slices.Contains(demo.Schemas(), schemaName) {
			logger.Warn("no demo dataset for schema", slog.String("schema", schemaName))
			continue
		}
		if err := seedSchema(ctx, cfg, seeder, schemaName, logger); err != nil {
			logger.Error("failed to seed schema", slog.String("schema", schemaName), slog.Any("error", err))
			failed = true
		}
	}
	if failed {
		stop()
		os.Exit(1)
	}
	logger.Info("demo schemas seeded")
}

func seedSchema(ctx context.Context, cfg config.Config, seeder *demo.Seeder, schemaName string, logger *slog.Logger) error {
	db, err := database.Open(ctx, database.Config{
		Driver:   cfg.Database.Driver,
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		SSLMode:  cfg.Database.SSLMode,
		DataDir:  cfg.Database.DataDir,
	}, schemaName)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	stats, err := seeder.Seed(ctx, db)
	if err != nil {
		return err
	}
	logger.Info("schema seeded",
		slog.String("schema", stats.Schema),
		slog.Bool("skipped", stats.Skipped),
		slog.Any("tables", stats.Tables),
	)
	return nil
}
