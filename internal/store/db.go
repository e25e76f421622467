package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"
)

// Open connects to Postgres through the pgx driver and verifies the
// connection.
func Open(ctx context.Context, databaseURL string) (*sql.DB, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	db.SetConnMaxIdleTime(5 * time.Minute)
	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetMaxIdleConns(10)
	db.SetMaxOpenConns(20)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	return db, nil
}

// Connect picks the backend for databaseURL: Postgres with migrations
// applied when set, the in-memory store otherwise. The returned close
// function releases the connection pool.
func Connect(ctx context.Context, databaseURL, migrationsDir string, logger *zap.Logger) (DocumentStore, func() error, error) {
	if databaseURL == "" {
		logger.Warn("DATABASE_URL not set; using in-memory document store")
		return NewMemoryStore(), func() error { return nil }, nil
	}

	db, err := Open(ctx, databaseURL)
	if err != nil {
		return nil, nil, err
	}
	applied, err := ApplyMigrations(ctx, db, migrationsDir, logger)
	if err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	logger.Info("postgres document store ready", zap.Int("migrations_applied", applied))
	return NewPostgresStore(db), db.Close, nil
}
