package storage

import (
	"context"
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/lib/pq"

	"DealRadar/internal/ports"
)

// Postgres is the shared-database RecordStore, backed by a single
// key/record table.
type Postgres struct {
	db      *sql.DB
	builder sq.StatementBuilderType
}

var _ ports.RecordStore = (*Postgres)(nil)

// NewPostgres opens a connection pool and ensures the records table exists.
func NewPostgres(dsn string) (*Postgres, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	store := &Postgres{
		db:      db,
		builder: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
	if err := store.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func (p *Postgres) migrate() error {
	const schema = `CREATE TABLE IF NOT EXISTS records (
        key        TEXT PRIMARY KEY,
        record     BYTEA NOT NULL,
        updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
    )`
	if _, err := p.db.Exec(schema); err != nil {
		return fmt.Errorf("create records table: %w", err)
	}
	return nil
}

// Put upserts the record under key.
func (p *Postgres) Put(ctx context.Context, key string, record []byte) error {
	query, args, err := p.builder.
		Insert("records").
		Columns("key", "record").
		Values(key, record).
		Suffix("ON CONFLICT (key) DO UPDATE SET record = EXCLUDED.record, updated_at = NOW()").
		ToSql()
	if err != nil {
		return fmt.Errorf("build upsert: %w", err)
	}
	if _, err := p.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert %s: %w", key, err)
	}
	return nil
}

// Get returns the record and whether it exists.
func (p *Postgres) Get(ctx context.Context, key string) ([]byte, bool, error) {
	query, args, err := p.builder.
		Select("record").
		From("records").
		Where(sq.Eq{"key": key}).
		ToSql()
	if err != nil {
		return nil, false, fmt.Errorf("build select: %w", err)
	}

	var record []byte
	err = p.db.QueryRowContext(ctx, query, args...).Scan(&record)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("select %s: %w", key, err)
	}
	return record, true, nil
}

// Scan visits records whose key starts with prefix in key order.
func (p *Postgres) Scan(ctx context.Context, prefix string, fn func(key string, record []byte) error) error {
	query, args, err := p.builder.
		Select("key", "record").
		From("records").
		Where(sq.Like{"key": likeEscape(prefix) + "%"}).
		OrderBy("key").
		ToSql()
	if err != nil {
		return fmt.Errorf("build scan: %w", err)
	}

	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("scan %s: %w", prefix, err)
	}
	defer rows.Close()

	for rows.Next() {
		var key string
		var record []byte
		if err := rows.Scan(&key, &record); err != nil {
			return fmt.Errorf("scan row: %w", err)
		}
		if err := fn(key, record); err != nil {
			return err
		}
	}
	return rows.Err()
}

// Delete removes a key; absent keys are fine.
func (p *Postgres) Delete(ctx context.Context, key string) error {
	query, args, err := p.builder.
		Delete("records").
		Where(sq.Eq{"key": key}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}
	if _, err := p.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

// Close releases the connection pool.
func (p *Postgres) Close() error { return p.db.Close() }

// likeEscape protects LIKE metacharacters in key prefixes.
func likeEscape(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '%' || s[i] == '_' || s[i] == '\\' {
			out = append(out, '\\')
		}
		out = append(out, s[i])
	}
	return string(out)
}
