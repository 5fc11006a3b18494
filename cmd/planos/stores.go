package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"

	"planos/internal/auth"
	"planos/internal/config"
	"planos/internal/goals"
	"planos/internal/platform/database"
	"planos/internal/platform/migrate"
)

type stores struct {
	users   auth.Repository
	goals   goals.Repository
	db      *sqlx.DB
	cleanup func()
}

func (s stores) Close() {
	if s.cleanup != nil {
		s.cleanup()
	}
}

// buildStores opens the configured data store and applies migrations. The
// memory store is seeded with demo goals for the guest account.
func buildStores(ctx context.Context, cfg config.Config, logger *slog.Logger) (stores, error) {
	if cfg.UseInMemoryStore() {
		logger.Info("using in-memory repository")
		s := stores{users: auth.NewMemoryRepository(), goals: goals.NewInMemoryRepository()}
		if err := seedGuestGoals(ctx, auth.NewService(s.users), goals.NewService(s.goals)); err != nil {
			return stores{}, fmt.Errorf("seed demo goals: %w", err)
		}
		return s, nil
	}

	db, err := openDatabase(ctx, cfg)
	if err != nil {
		return stores{}, err
	}
	cleanup := func() {
		_ = db.Close()
	}

	if err := migrate.Apply(ctx, db, logger); err != nil {
		cleanup()
		return stores{}, err
	}

	logger.Info("connected to database", "driver", db.DriverName())
	return stores{
		users:   auth.NewSQLRepository(db),
		goals:   goals.NewSQLRepository(db),
		db:      db,
		cleanup: cleanup,
	}, nil
}

func openDatabase(ctx context.Context, cfg config.Config) (*sqlx.DB, error) {
	switch cfg.DataStore {
	case "postgres":
		return database.NewPostgres(ctx, cfg.DatabaseURL)
	case "sqlite":
		return database.NewSQLite(ctx, cfg.SQLitePath)
	default:
		return nil, fmt.Errorf("data store %q has no database", cfg.DataStore)
	}
}
