package postgres

import (
	"context"
	"io/fs"
	"regexp"
	"strings"
	"testing"
	"time"
)

var migrationNamePattern = regexp.MustCompile(`^\d{5}_[a-z0-9_]+\.sql$`)

func TestEmbeddedMigrations_Annotated(t *testing.T) {
	t.Parallel()

	fsys, err := migrationFiles()
	if err != nil {
		t.Fatalf("migrationFiles failed: %v", err)
	}

	files, err := fs.Glob(fsys, "*.sql")
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(files) < 2 {
		t.Fatalf("expected at least 2 migrations, got %d", len(files))
	}

	for _, name := range files {
		if !migrationNamePattern.MatchString(name) {
			t.Fatalf("invalid migration file name: %s", name)
		}

		body, err := fs.ReadFile(fsys, name)
		if err != nil {
			t.Fatalf("read %s: %v", name, err)
		}
		text := string(body)
		if !strings.Contains(text, "-- +goose Up") || !strings.Contains(text, "-- +goose Down") {
			t.Fatalf("migration %s must have both up and down sections", name)
		}
	}
}

func TestEmbeddedMigrations_HistorySchema(t *testing.T) {
	t.Parallel()

	fsys, err := migrationFiles()
	if err != nil {
		t.Fatalf("migrationFiles failed: %v", err)
	}

	body, err := fs.ReadFile(fsys, "00001_order_status_history.sql")
	if err != nil {
		t.Fatalf("read init migration: %v", err)
	}
	text := string(body)

	for _, fragment := range []string{
		"CREATE TABLE IF NOT EXISTS order_status_history",
		"CHECK (customer_notified IN (-1, 0, 1))",
		"PRIMARY KEY (status_id, language_id)",
	} {
		if !strings.Contains(text, fragment) {
			t.Fatalf("init migration is missing %q", fragment)
		}
	}
}

func TestStore_MigrationsRequireStore(t *testing.T) {
	t.Parallel()

	var store *Store
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := store.MigrateUp(ctx, 0); err == nil {
		t.Fatal("expected error for nil store")
	}
	if _, _, err := store.MigrationStatus(ctx); err == nil {
		t.Fatal("expected error for nil store")
	}
}
