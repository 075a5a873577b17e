// Package restore inverts audit entries into concrete property operations.
package restore

import (
	"errors"
	"fmt"

	"github.com/groblegark/propkeep/internal/model"
)

// ErrPayloadDecode reports a BATCH entry whose reversible payload is missing
// or unreadable. Resolution fails without touching any state.
var ErrPayloadDecode = errors.New("batch audit payload cannot be decoded")

// ErrNotRestorable reports an audit entry that carries no property state to
// invert. Batch-restore summaries record only the undone batch's id and an
// operation count, so restoring one has nothing to write back.
var ErrNotRestorable = errors.New("audit entry carries no restorable property state")

// Resolution is the inverse of one audit entry: the properties to write back
// and the properties to remove, in that order of application.
type Resolution struct {
	Upserts []model.Property
	Deletes []model.Property
}

// Operations returns the total number of inverse operations.
func (r *Resolution) Operations() int {
	return len(r.Upserts) + len(r.Deletes)
}

// Resolve computes the inverse of an audit entry.
//
// CREATE deletes the created property; UPDATE, DELETE, and RESTORE write
// back the prior state; BATCH walks the typed payload, reverting updates and
// deletions to their originals and removing creations.
func Resolve(entry *model.AuditEntry) (*Resolution, error) {
	if entry == nil {
		return nil, fmt.Errorf("restore: entry is required")
	}

	switch entry.Action {
	case model.ActionCreate:
		if entry.PropertyKey == "" || entry.Environment == "" {
			return nil, fmt.Errorf("restore entry %s: %w", entry.ID, ErrNotRestorable)
		}
		return &Resolution{Deletes: []model.Property{reconstructNew(entry)}}, nil

	case model.ActionUpdate, model.ActionDelete, model.ActionRestore:
		if entry.PropertyKey == "" || entry.Environment == "" {
			return nil, fmt.Errorf("restore entry %s: %w", entry.ID, ErrNotRestorable)
		}
		return &Resolution{Upserts: []model.Property{reconstructOld(entry)}}, nil

	case model.ActionBatch:
		if entry.Batch == nil {
			return nil, fmt.Errorf("restore entry %s: %w", entry.ID, ErrPayloadDecode)
		}
		res := &Resolution{}
		for _, change := range entry.Batch.Changes {
			if change.Original != nil {
				res.Upserts = append(res.Upserts, *change.Original)
			} else {
				res.Deletes = append(res.Deletes, change.Property)
			}
		}
		res.Upserts = append(res.Upserts, entry.Batch.Deletions...)
		return res, nil
	}

	return nil, fmt.Errorf("restore: unsupported action %q", entry.Action)
}

// reconstructNew rebuilds the property as it stood after the entry was
// written, from the entry's new fields.
func reconstructNew(entry *model.AuditEntry) model.Property {
	p := identity(entry)
	model.RestorePoint{Value: entry.NewValue, Description: entry.NewDescription}.Apply(&p)
	return p
}

// reconstructOld rebuilds the property as it stood before the entry was
// written, from the entry's old fields.
func reconstructOld(entry *model.AuditEntry) model.Property {
	p := identity(entry)
	model.RestorePoint{Value: entry.OldValue, Description: entry.OldDescription}.Apply(&p)
	return p
}

// identity carries the immutable fields of the property an entry recorded.
func identity(entry *model.AuditEntry) model.Property {
	return model.Property{
		ID:          entry.RecordID,
		Environment: entry.Environment,
		Key:         entry.PropertyKey,
		Component:   entry.Component,
	}
}
