package events

import (
	"context"

	"github.com/groblegark/propkeep/internal/model"
)

// Event topic constants
const (
	TopicPropertyCreated = "propkeep.property.created"
	TopicPropertyUpdated = "propkeep.property.updated"
	TopicPropertyDeleted = "propkeep.property.deleted"

	// Batch and restore lifecycle
	TopicBatchSaved    = "propkeep.batch.saved"
	TopicAuditRestored = "propkeep.audit.restored"

	// Snapshot lifecycle
	TopicSnapshotExported = "propkeep.snapshot.exported"
	TopicSnapshotImported = "propkeep.snapshot.imported"
)

// Event types

type PropertyCreated struct {
	Property *model.Property `json:"property"`
	AuditID  string          `json:"audit_id"`
}

type PropertyUpdated struct {
	Property *model.Property `json:"property"`
	OldValue string          `json:"old_value,omitempty"`
	AuditID  string          `json:"audit_id"`
}

type PropertyDeleted struct {
	PropertyID string `json:"property_id"`
	AuditID    string `json:"audit_id"`
}

type BatchSaved struct {
	Changed int    `json:"changed"`
	Deleted int    `json:"deleted"`
	AuditID string `json:"audit_id"`
}

type AuditRestored struct {
	RestoredID string `json:"restored_id"` // entry that was inverted
	AuditID    string `json:"audit_id"`    // entry recording the restore
	Upserts    int    `json:"upserts"`
	Deletes    int    `json:"deletes"`
}

type SnapshotExported struct {
	Properties int `json:"properties"`
	AuditRows  int `json:"audit_rows"`
}

type SnapshotImported struct {
	Properties int  `json:"properties"`
	AuditRows  int  `json:"audit_rows"`
	Legacy     bool `json:"legacy"`
}

// Publisher is the interface for emitting events.
type Publisher interface {
	Publish(ctx context.Context, topic string, event any) error
	Close() error
}
