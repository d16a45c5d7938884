package main

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"docflow/backend/internal/config"
	"docflow/backend/internal/logging"
	"docflow/backend/internal/repository"
)

func loadRuntime(configPath string) (*config.Config, *logging.Logger, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("configuration loading failed: %w", err)
	}
	logger, err := logging.NewLogger(logging.Options{
		Level:       cfg.Log.Level,
		Development: cfg.Log.Development,
		Service:     "docflow",
	})
	if err != nil {
		return nil, nil, fmt.Errorf("logger initialization failed: %w", err)
	}
	return cfg, logger, nil
}

// openRepository returns the configured store with its schema migrated and a
// function releasing it.
func openRepository(ctx context.Context, cfg *config.Config, logger *logging.Logger) (repository.Repository, func(), error) {
	if cfg.DB.InMemory {
		logger.Warn("Using the in-memory store; data is lost on restart")
		return repository.NewMemoryStore(), func() {}, nil
	}

	pool, err := initDatabase(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	store := repository.NewPostgresStore(pool)
	if err := store.Migrate(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	logger.Info("Database connected", "host", cfg.DB.Host, "name", cfg.DB.Name)
	return store, pool.Close, nil
}

func initDatabase(ctx context.Context, cfg *config.Config, logger *logging.Logger) (*pgxpool.Pool, error) {
	logger.Debug("Initializing database connection")

	poolConfig, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return pool, nil
}

func runMigrate(ctx context.Context, configPath string) error {
	cfg, logger, err := loadRuntime(configPath)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	if cfg.DB.InMemory {
		logger.Info("db.in_memory is set, nothing to migrate")
		return nil
	}
	_, release, err := openRepository(ctx, cfg, logger)
	if err != nil {
		logger.Error("Migration failed", "error", err)
		return err
	}
	release()
	logger.Info("Migrations applied")
	return nil
}
