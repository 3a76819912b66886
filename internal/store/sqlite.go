package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
	"github.com/uptrace/bun/extra/bundebug"
)

// CollectionRow stores one collection of the document as a JSON array.
type CollectionRow struct {
	bun.BaseModel `bun:"table:collections,alias:c"`

	Name      string    `bun:"name,pk"`
	Body      string    `bun:"body,notnull"`
	UpdatedAt time.Time `bun:"updated_at,notnull"`
}

// SQLiteBackend stores each collection in its own row.
type SQLiteBackend struct {
	db *bun.DB
}

// SQLiteOption is a functional option for configuring the SQLite backend
type SQLiteOption func(*SQLiteBackend)

// WithDebug enables query logging for debugging
func WithDebug(enabled bool) SQLiteOption {
	return func(b *SQLiteBackend) {
		if enabled {
			b.db.AddQueryHook(bundebug.NewQueryHook(
				bundebug.WithVerbose(true),
			))
			log.Info().Msg("Bun query logging enabled")
		}
	}
}

// NewSQLiteBackend opens the database at dbPath and creates its schema.
func NewSQLiteBackend(dbPath string, opts ...SQLiteOption) (*SQLiteBackend, error) {
	sqldb, err := sql.Open(sqliteshim.ShimName, dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A single connection keeps ":memory:" databases shared across calls.
	sqldb.SetMaxOpenConns(1)

	b := &SQLiteBackend{
		db: bun.NewDB(sqldb, sqlitedialect.New()),
	}
	for _, opt := range opts {
		opt(b)
	}

	if err := b.Migrate(context.Background()); err != nil {
		b.db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	log.Info().Str("path", dbPath).Msg("SQLite store initialized")
	return b, nil
}

func (b *SQLiteBackend) Name() string { return "sqlite" }

// Migrate creates the schema if it does not exist.
func (b *SQLiteBackend) Migrate(ctx context.Context) error {
	if _, err := b.db.NewCreateTable().
		Model((*CollectionRow)(nil)).
		IfNotExists().
		Exec(ctx); err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}
	return nil
}

func (b *SQLiteBackend) Load(ctx context.Context) (*Data, error) {
	var rows []CollectionRow
	if err := b.db.NewSelect().Model(&rows).Scan(ctx); err != nil {
		return nil, fmt.Errorf("failed to load collections: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	d := &Data{}
	for _, row := range rows {
		target, err := d.collection(row.Name)
		if err != nil {
			log.Warn().Str("collection", row.Name).Msg("Ignoring unknown collection")
			continue
		}
		if err := json.Unmarshal([]byte(row.Body), target); err != nil {
			return nil, fmt.Errorf("failed to parse collection %s: %w", row.Name, err)
		}
	}
	return d, nil
}

// Save upserts every collection in one transaction.
func (b *SQLiteBackend) Save(ctx context.Context, d *Data) error {
	now := time.Now().UTC()
	rows := make([]CollectionRow, 0, len(Collections))
	for _, name := range Collections {
		c, err := d.collection(name)
		if err != nil {
			return err
		}
		body, err := json.Marshal(c)
		if err != nil {
			return fmt.Errorf("failed to marshal collection %s: %w", name, err)
		}
		rows = append(rows, CollectionRow{Name: name, Body: string(body), UpdatedAt: now})
	}

	return b.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.NewInsert().
			Model(&rows).
			On("CONFLICT (name) DO UPDATE").
			Set("body = EXCLUDED.body").
			Set("updated_at = EXCLUDED.updated_at").
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to save collections: %w", err)
		}
		return nil
	})
}

// Close closes the database connection
func (b *SQLiteBackend) Close() error {
	return b.db.Close()
}

// bunDB exposes the connection to tests.
func (b *SQLiteBackend) bunDB() *bun.DB {
	return b.db
}
