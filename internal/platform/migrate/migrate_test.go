package migrate

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"planos/internal/platform/database"
)

func TestApplyCreatesSchemaOnSQLite(t *testing.T) {
	ctx := context.Background()
	db, err := database.NewSQLite(ctx, ":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	defer db.Close()

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	if version, err := Status(ctx, db); err != nil || version != 0 {
		t.Fatalf("expected empty database at version 0, got %d (err %v)", version, err)
	}

	if err := Apply(ctx, db, logger); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}

	for _, table := range []string{"users", "goals", "milestones", "progress_logs", "reviews"} {
		var exists bool
		err := db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM sqlite_master WHERE type = 'table' AND name = ?)`, table).Scan(&exists)
		if err != nil {
			t.Fatalf("lookup table %s: %v", table, err)
		}
		if !exists {
			t.Fatalf("expected table %s to exist", table)
		}
	}

	version, err := Status(ctx, db)
	if err != nil {
		t.Fatalf("Status() error = %v", err)
	}
	if version != 2 {
		t.Fatalf("expected version 2, got %d", version)
	}

	// A second run is a no-op.
	if err := Apply(ctx, db, logger); err != nil {
		t.Fatalf("second Apply() error = %v", err)
	}
}

func TestDialectForRejectsUnknownDriver(t *testing.T) {
	if _, _, err := dialectFor("mysql"); err == nil {
		t.Fatal("expected error for unsupported driver")
	}
}
