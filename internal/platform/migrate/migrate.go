package migrate

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"
	"github.com/pressly/goose/v3"

	"planos/internal/platform/database"
	"planos/migrations"
)

// Apply runs any pending SQL migrations bundled with the binary for the
// dialect behind db.
func Apply(ctx context.Context, db *sqlx.DB, logger *slog.Logger) error {
	dialect, dir, err := dialectFor(db.DriverName())
	if err != nil {
		return err
	}

	goose.SetBaseFS(migrations.Files)
	goose.SetLogger(gooseSlogLogger{logger: logger})
	if err := goose.SetDialect(dialect); err != nil {
		return fmt.Errorf("migrate: set goose dialect: %w", err)
	}

	if err := goose.UpContext(ctx, db.DB, dir); err != nil {
		return fmt.Errorf("migrate: goose up: %w", err)
	}

	return nil
}

// Status reports the applied migration version.
func Status(ctx context.Context, db *sqlx.DB) (int64, error) {
	dialect, _, err := dialectFor(db.DriverName())
	if err != nil {
		return 0, err
	}
	if err := goose.SetDialect(dialect); err != nil {
		return 0, fmt.Errorf("migrate: set goose dialect: %w", err)
	}
	version, err := goose.GetDBVersionContext(ctx, db.DB)
	if err != nil {
		return 0, fmt.Errorf("migrate: check goose version: %w", err)
	}
	return version, nil
}

func dialectFor(driver string) (string, string, error) {
	switch driver {
	case database.DriverPostgres:
		return "postgres", "postgres", nil
	case database.DriverSQLite:
		return "sqlite3", "sqlite", nil
	default:
		return "", "", fmt.Errorf("migrate: unsupported driver %q", driver)
	}
}
