package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
)

type cacheRow struct {
	bun.BaseModel `bun:"table:research_cache"`

	ID        string  `bun:"id,pk"`
	WrittenAt float64 `bun:"written_at,notnull"`
	Data      string  `bun:"data,type:jsonb,notnull"`
}

// PostgresStore shares the durable tier between processes through a single
// Postgres table.
type PostgresStore struct {
	db *bun.DB
}

func OpenPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, errors.New("postgres dsn is required")
	}
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	return NewPostgresStore(ctx, bun.NewDB(sqldb, pgdialect.New()))
}

// NewPostgresStore wraps an existing bun handle and creates the table when
// it is missing.
func NewPostgresStore(ctx context.Context, db *bun.DB) (*PostgresStore, error) {
	if db == nil {
		return nil, errors.New("bun db is required")
	}
	if _, err := db.NewCreateTable().Model((*cacheRow)(nil)).IfNotExists().Exec(ctx); err != nil {
		return nil, fmt.Errorf("create research_cache table: %w", err)
	}
	return &PostgresStore{db: db}, nil
}

func (p *PostgresStore) Load(ctx context.Context, id string) (Record, error) {
	row := new(cacheRow)
	err := p.db.NewSelect().Model(row).Where("id = ?", id).Limit(1).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Record{}, ErrNotFound
		}
		return Record{}, fmt.Errorf("select cache row: %w", err)
	}
	return Record{WrittenAt: row.WrittenAt, Data: []byte(row.Data)}, nil
}

func (p *PostgresStore) Store(ctx context.Context, id string, rec Record) error {
	if _, err := upsertQuery(p.db, id, rec).Exec(ctx); err != nil {
		return fmt.Errorf("upsert cache row: %w", err)
	}
	return nil
}

func upsertQuery(db *bun.DB, id string, rec Record) *bun.InsertQuery {
	return db.NewInsert().
		Model(&cacheRow{ID: id, WrittenAt: rec.WrittenAt, Data: string(rec.Data)}).
		On("CONFLICT (id) DO UPDATE").
		Set("written_at = EXCLUDED.written_at").
		Set("data = EXCLUDED.data")
}

func (p *PostgresStore) Delete(ctx context.Context, id string) error {
	if _, err := p.db.NewDelete().Model((*cacheRow)(nil)).Where("id = ?", id).Exec(ctx); err != nil {
		return fmt.Errorf("delete cache row: %w", err)
	}
	return nil
}

func (p *PostgresStore) Purge(ctx context.Context) error {
	if _, err := p.db.NewTruncateTable().Model((*cacheRow)(nil)).Exec(ctx); err != nil {
		return fmt.Errorf("truncate research_cache: %w", err)
	}
	return nil
}

func (p *PostgresStore) Close() error {
	return p.db.Close()
}
