// Package postgres implements the store.Store interface backed by PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/lib/pq"

	"github.com/groblegark/propkeep/internal/model"
	"github.com/groblegark/propkeep/internal/store"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// PostgresStore implements store.Store backed by a PostgreSQL database.
type PostgresStore struct {
	db *sql.DB
}

// Compile-time check that PostgresStore implements store.Store.
var _ store.Store = (*PostgresStore)(nil)

// New opens a connection to the PostgreSQL database at the given URL,
// configures the connection pool, and runs any pending migrations.
func New(databaseURL string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

func runMigrations(db *sql.DB) error {
	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	dbDriver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("create migration db driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "postgres", dbDriver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("apply migrations: %w", err)
	}

	return nil
}

// Close closes the underlying database connection.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func (s *PostgresStore) CreateProperty(ctx context.Context, p *model.Property) error {
	return queryCreateProperty(ctx, s.db, p)
}

func (s *PostgresStore) GetProperty(ctx context.Context, id string) (*model.Property, error) {
	return queryGetProperty(ctx, s.db, id)
}

func (s *PostgresStore) ListProperties(ctx context.Context, filter model.PropertyFilter) ([]*model.Property, int, error) {
	return queryListProperties(ctx, s.db, filter)
}

func (s *PostgresStore) UpdateProperty(ctx context.Context, p *model.Property) error {
	return queryUpdateProperty(ctx, s.db, p)
}

func (s *PostgresStore) DeleteProperty(ctx context.Context, id string) error {
	return queryDeleteProperty(ctx, s.db, id)
}

func (s *PostgresStore) ReplaceProperties(ctx context.Context, props []model.Property) error {
	return queryReplaceProperties(ctx, s.db, props)
}

func (s *PostgresStore) AppendAuditEntry(ctx context.Context, e *model.AuditEntry) error {
	return queryAppendAuditEntry(ctx, s.db, e)
}

func (s *PostgresStore) GetAuditEntry(ctx context.Context, id string) (*model.AuditEntry, error) {
	return queryGetAuditEntry(ctx, s.db, id)
}

func (s *PostgresStore) ListAuditEntries(ctx context.Context, filter model.AuditFilter) ([]*model.AuditEntry, error) {
	return queryListAuditEntries(ctx, s.db, filter)
}

func (s *PostgresStore) ReplaceAuditEntries(ctx context.Context, entries []model.AuditEntry) error {
	return queryReplaceAuditEntries(ctx, s.db, entries)
}

// RunInTransaction begins a database transaction, creates a txStore that
// delegates to it, calls fn, and commits on success or rolls back on error.
func (s *PostgresStore) RunInTransaction(ctx context.Context, fn func(tx store.Store) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	txS := &txStore{tx: tx}
	if err := fn(txS); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// txStore implements store.Store using a *sql.Tx.
type txStore struct {
	tx *sql.Tx
}

// Compile-time check that txStore implements store.Store.
var _ store.Store = (*txStore)(nil)

func (s *txStore) CreateProperty(ctx context.Context, p *model.Property) error {
	return queryCreateProperty(ctx, s.tx, p)
}

func (s *txStore) GetProperty(ctx context.Context, id string) (*model.Property, error) {
	return queryGetProperty(ctx, s.tx, id)
}

func (s *txStore) ListProperties(ctx context.Context, filter model.PropertyFilter) ([]*model.Property, int, error) {
	return queryListProperties(ctx, s.tx, filter)
}

func (s *txStore) UpdateProperty(ctx context.Context, p *model.Property) error {
	return queryUpdateProperty(ctx, s.tx, p)
}

func (s *txStore) DeleteProperty(ctx context.Context, id string) error {
	return queryDeleteProperty(ctx, s.tx, id)
}

func (s *txStore) ReplaceProperties(ctx context.Context, props []model.Property) error {
	return queryReplaceProperties(ctx, s.tx, props)
}

func (s *txStore) AppendAuditEntry(ctx context.Context, e *model.AuditEntry) error {
	return queryAppendAuditEntry(ctx, s.tx, e)
}

func (s *txStore) GetAuditEntry(ctx context.Context, id string) (*model.AuditEntry, error) {
	return queryGetAuditEntry(ctx, s.tx, id)
}

func (s *txStore) ListAuditEntries(ctx context.Context, filter model.AuditFilter) ([]*model.AuditEntry, error) {
	return queryListAuditEntries(ctx, s.tx, filter)
}

func (s *txStore) ReplaceAuditEntries(ctx context.Context, entries []model.AuditEntry) error {
	return queryReplaceAuditEntries(ctx, s.tx, entries)
}

// RunInTransaction on a txStore reuses the existing transaction (no nesting).
func (s *txStore) RunInTransaction(ctx context.Context, fn func(tx store.Store) error) error {
	return fn(s)
}

// Close is a no-op for a transaction store; the parent store owns the connection.
func (s *txStore) Close() error {
	return nil
}
