package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"proposaldesk/internal/util"
)

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// PostgresStore keeps every collection in a single JSONB table keyed by
// (collection, id).
type PostgresStore struct {
	db *sql.DB
	pgDocs
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db, pgDocs: pgDocs{q: db}}
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *PostgresStore) RunInTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(ctx, pgDocs{q: sqlTx, lock: true}); err != nil {
		_ = sqlTx.Rollback()
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

type pgDocs struct {
	q querier
	// lock makes reads take row locks held until the transaction ends.
	lock bool
}

func (p pgDocs) GetDocument(ctx context.Context, collection, id string) (Document, error) {
	query := `SELECT data, created_at, updated_at FROM documents WHERE collection=$1 AND id=$2`
	if p.lock {
		query += ` FOR UPDATE`
	}
	var (
		raw       []byte
		createdAt time.Time
		updatedAt time.Time
	)
	err := p.q.QueryRowContext(ctx, query, collection, id).Scan(&raw, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Document{}, fmt.Errorf("get %s/%s: %w", collection, id, ErrNotFound)
	}
	if err != nil {
		return Document{}, fmt.Errorf("get %s/%s: %w", collection, id, err)
	}
	return scanDocument(collection, id, raw, createdAt, updatedAt)
}

func (p pgDocs) QueryDocuments(ctx context.Context, collection string, q Query) ([]Document, error) {
	filter := make(map[string]any, len(q.Filters))
	for _, f := range q.Filters {
		filter[f.Field] = f.Value
	}
	_, filterJSON, err := normalize(filter)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", collection, err)
	}

	var sb strings.Builder
	args := []any{collection, string(filterJSON)}
	sb.WriteString(`SELECT id, data, created_at, updated_at FROM documents WHERE collection=$1 AND data @> $2::jsonb`)
	if q.OrderBy != "" {
		args = append(args, q.OrderBy)
		direction := "ASC"
		if q.Descending {
			direction = "DESC"
		}
		fmt.Fprintf(&sb, ` ORDER BY data -> $%d %s, id ASC`, len(args), direction)
	} else {
		sb.WriteString(` ORDER BY id ASC`)
	}
	if q.Limit > 0 {
		args = append(args, q.Limit)
		fmt.Fprintf(&sb, ` LIMIT $%d`, len(args))
	}

	rows, err := p.q.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", collection, err)
	}
	defer rows.Close()

	items := make([]Document, 0)
	for rows.Next() {
		var (
			id        string
			raw       []byte
			createdAt time.Time
			updatedAt time.Time
		)
		if err := rows.Scan(&id, &raw, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan %s: %w", collection, err)
		}
		doc, err := scanDocument(collection, id, raw, createdAt, updatedAt)
		if err != nil {
			return nil, err
		}
		items = append(items, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", collection, err)
	}
	return items, nil
}

func (p pgDocs) SetDocument(ctx context.Context, collection, id string, fields map[string]any) error {
	resolved, err := p.resolve(ctx, fields)
	if err != nil {
		return fmt.Errorf("set %s/%s: %w", collection, id, err)
	}
	_, raw, err := normalize(resolved)
	if err != nil {
		return fmt.Errorf("set %s/%s: %w", collection, id, err)
	}
	_, err = p.q.ExecContext(ctx, `
		INSERT INTO documents (collection, id, data, created_at, updated_at)
		VALUES ($1, $2, $3::jsonb, NOW(), NOW())
		ON CONFLICT (collection, id) DO UPDATE
		SET data = EXCLUDED.data, updated_at = NOW()
	`, collection, id, string(raw))
	if err != nil {
		return fmt.Errorf("set %s/%s: %w", collection, id, err)
	}
	return nil
}

func (p pgDocs) UpdateDocument(ctx context.Context, collection, id string, patch map[string]any) error {
	resolved, err := p.resolve(ctx, patch)
	if err != nil {
		return fmt.Errorf("update %s/%s: %w", collection, id, err)
	}
	_, raw, err := normalize(resolved)
	if err != nil {
		return fmt.Errorf("update %s/%s: %w", collection, id, err)
	}
	result, err := p.q.ExecContext(ctx, `
		UPDATE documents
		SET data = data || $3::jsonb, updated_at = NOW()
		WHERE collection=$1 AND id=$2
	`, collection, id, string(raw))
	if err != nil {
		return fmt.Errorf("update %s/%s: %w", collection, id, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update %s/%s: %w", collection, id, err)
	}
	if affected == 0 {
		return fmt.Errorf("update %s/%s: %w", collection, id, ErrNotFound)
	}
	return nil
}

func (p pgDocs) AddDocument(ctx context.Context, collection string, fields map[string]any) (string, error) {
	id := util.NewID("")
	if err := p.SetDocument(ctx, collection, id, fields); err != nil {
		return "", err
	}
	return id, nil
}

// resolve swaps ServerTimestamp sentinels for the database clock. Inside a
// transaction NOW() is fixed, so every sentinel in the unit of work agrees.
func (p pgDocs) resolve(ctx context.Context, fields map[string]any) (map[string]any, error) {
	if !hasServerTimestamp(fields) {
		return fields, nil
	}
	var now time.Time
	if err := p.q.QueryRowContext(ctx, `SELECT NOW()`).Scan(&now); err != nil {
		return nil, fmt.Errorf("server time: %w", err)
	}
	return resolveTimestamps(fields, now), nil
}

func scanDocument(collection, id string, raw []byte, createdAt, updatedAt time.Time) (Document, error) {
	fields := map[string]any{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &fields); err != nil {
			return Document{}, fmt.Errorf("decode %s/%s: %w", collection, id, err)
		}
	}
	return Document{
		ID:         id,
		Collection: collection,
		Fields:     fields,
		CreatedAt:  createdAt,
		UpdatedAt:  updatedAt,
	}, nil
}
