package store

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"testing"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

func openTestPostgres(t *testing.T) (*sql.DB, context.Context) {
	t.Helper()
	dsn := strings.TrimSpace(os.Getenv("PROPOSALDESK_TEST_DATABASE_URL"))
	if dsn == "" {
		t.Skip("PROPOSALDESK_TEST_DATABASE_URL is not set")
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		t.Fatalf("open postgres: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	t.Cleanup(cancel)

	if err := db.PingContext(ctx); err != nil {
		t.Fatalf("ping postgres: %v", err)
	}
	if _, err := db.ExecContext(ctx, `DROP SCHEMA IF EXISTS public CASCADE; CREATE SCHEMA public;`); err != nil {
		t.Fatalf("reset schema: %v", err)
	}
	return db, ctx
}

func TestMigrationsRoundTripPostgres(t *testing.T) {
	db, ctx := openTestPostgres(t)
	migrationsDir := filepath.Join("..", "..", "db", "migrations")

	applied, err := ApplyMigrations(ctx, db, migrationsDir, nil)
	if err != nil {
		t.Fatalf("apply up migrations (pass 1): %v", err)
	}
	if applied == 0 {
		t.Fatal("expected migrations to be applied on an empty schema")
	}
	if again, err := ApplyMigrations(ctx, db, migrationsDir, nil); err != nil || again != 0 {
		t.Fatalf("expected second pass to be a no-op, got %d, %v", again, err)
	}

	if err := applyDownMigrations(ctx, db, migrationsDir); err != nil {
		t.Fatalf("apply down migrations: %v", err)
	}
	if _, err := db.ExecContext(ctx, `DELETE FROM schema_migrations`); err != nil {
		t.Fatalf("clear schema_migrations: %v", err)
	}
	if _, err := ApplyMigrations(ctx, db, migrationsDir, nil); err != nil {
		t.Fatalf("apply up migrations (pass 2): %v", err)
	}
}

func TestPostgresStoreDocumentsIntegration(t *testing.T) {
	db, ctx := openTestPostgres(t)
	if _, err := ApplyMigrations(ctx, db, filepath.Join("..", "..", "db", "migrations"), nil); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	s := NewPostgresStore(db)

	if err := s.SetDocument(ctx, "Proposals", "p1", map[string]any{"title": "Expo", "version": 1, "createdAt": ServerTimestamp}); err != nil {
		t.Fatalf("set: %v", err)
	}
	rollback := errors.New("rollback")
	err := s.RunInTx(ctx, func(ctx context.Context, tx Tx) error {
		if _, err := tx.GetDocument(ctx, "Proposals", "p1"); err != nil {
			return err
		}
		if err := tx.UpdateDocument(ctx, "Proposals", "p1", map[string]any{"version": 2}); err != nil {
			return err
		}
		return rollback
	})
	if !errors.Is(err, rollback) {
		t.Fatalf("expected rollback error, got %v", err)
	}

	doc, err := s.GetDocument(ctx, "Proposals", "p1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if doc.Fields["version"] != float64(1) {
		t.Fatalf("expected rolled back version 1, got %v", doc.Fields["version"])
	}
	if _, ok := doc.Fields["createdAt"].(string); !ok {
		t.Fatalf("expected resolved createdAt, got %#v", doc.Fields["createdAt"])
	}

	if err := s.UpdateDocument(ctx, "Proposals", "missing", map[string]any{"x": 1}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func applyDownMigrations(ctx context.Context, db *sql.DB, migrationsDir string) error {
	entries, err := os.ReadDir(migrationsDir)
	if err != nil {
		return err
	}

	pattern := regexp.MustCompile(`^(\d+)_.*\.down\.sql$`)
	type migration struct {
		version string
		path    string
	}
	downs := make([]migration, 0)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		match := pattern.FindStringSubmatch(entry.Name())
		if match == nil {
			continue
		}
		downs = append(downs, migration{version: match[1], path: filepath.Join(migrationsDir, entry.Name())})
	}
	sort.Slice(downs, func(i, j int) bool {
		return downs[i].version > downs[j].version
	})

	for _, down := range downs {
		sqlBytes, err := os.ReadFile(down.path)
		if err != nil {
			return err
		}
		sqlText := strings.TrimSpace(string(sqlBytes))
		if sqlText == "" {
			continue
		}
		if _, err := db.ExecContext(ctx, sqlText); err != nil {
			return err
		}
	}
	return nil
}
