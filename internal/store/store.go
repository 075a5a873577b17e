package store

import (
	"context"

	"github.com/groblegark/propkeep/internal/model"
)

// Store defines the persistence interface for properties and their audit trail.
type Store interface {
	// Property CRUD
	CreateProperty(ctx context.Context, p *model.Property) error
	GetProperty(ctx context.Context, id string) (*model.Property, error)
	ListProperties(ctx context.Context, filter model.PropertyFilter) ([]*model.Property, int, error) // returns properties, total count, error
	UpdateProperty(ctx context.Context, p *model.Property) error
	DeleteProperty(ctx context.Context, id string) error

	// ReplaceProperties rewrites the property table to exactly the given set.
	// Snapshot import and batch saves use it as the full-state write.
	ReplaceProperties(ctx context.Context, props []model.Property) error

	// Audit trail (append-only; entries are never updated or deleted)
	AppendAuditEntry(ctx context.Context, e *model.AuditEntry) error
	GetAuditEntry(ctx context.Context, id string) (*model.AuditEntry, error)
	ListAuditEntries(ctx context.Context, filter model.AuditFilter) ([]*model.AuditEntry, error)

	// ReplaceAuditEntries rewrites the audit table to exactly the given set.
	// Only combined snapshot import may call it.
	ReplaceAuditEntries(ctx context.Context, entries []model.AuditEntry) error

	// Transaction support
	RunInTransaction(ctx context.Context, fn func(tx Store) error) error

	// Lifecycle
	Close() error
}
