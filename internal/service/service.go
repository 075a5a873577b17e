// Package service is the transaction boundary for every user-visible
// mutation: each one runs the property writes and the audit append in a
// single store transaction, then publishes an event.
package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/groblegark/propkeep/internal/audit"
	"github.com/groblegark/propkeep/internal/events"
	"github.com/groblegark/propkeep/internal/matrix"
	"github.com/groblegark/propkeep/internal/model"
	"github.com/groblegark/propkeep/internal/propfile"
	"github.com/groblegark/propkeep/internal/restore"
	"github.com/groblegark/propkeep/internal/snapshot"
	"github.com/groblegark/propkeep/internal/store"
)

// ErrStoreUninitialized reports a service whose store was never wired up.
var ErrStoreUninitialized = errors.New("property store is not initialized")

// ErrNotFound reports a property or audit entry that does not exist.
var ErrNotFound = errors.New("not found")

// PropertyService orchestrates property mutations, audit logging, and event
// publication over one store.
type PropertyService struct {
	store  store.Store
	events events.Publisher
	engine *audit.Engine
	logger *slog.Logger
}

// New creates a service bound to one audit session. A nil publisher disables
// events.
func New(s store.Store, pub events.Publisher, session audit.Session, logger *slog.Logger) *PropertyService {
	if pub == nil {
		pub = &events.NoopPublisher{}
	}
	return &PropertyService{
		store:  s,
		events: pub,
		engine: audit.NewEngine(session),
		logger: logger,
	}
}

func (s *PropertyService) ready() error {
	if s.store == nil {
		return ErrStoreUninitialized
	}
	return nil
}

// publish sends an event, logging failures instead of surfacing them; event
// delivery is best-effort and never fails a committed mutation.
func (s *PropertyService) publish(ctx context.Context, topic string, event any) {
	if err := s.events.Publish(ctx, topic, event); err != nil {
		s.logger.Warn("event publish failed", "topic", topic, "err", err)
	}
}

// Properties lists properties matching the filter.
func (s *PropertyService) Properties(ctx context.Context, filter model.PropertyFilter) ([]*model.Property, int, error) {
	if err := s.ready(); err != nil {
		return nil, 0, err
	}
	return s.store.ListProperties(ctx, filter)
}

// Property fetches one property by environment and key.
func (s *PropertyService) Property(ctx context.Context, environment, key string) (*model.Property, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	p, err := s.store.GetProperty(ctx, model.PropertyID(environment, key))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("property %s in %s: %w", key, environment, ErrNotFound)
	}
	return p, err
}

// History lists audit entries matching the filter, oldest first.
func (s *PropertyService) History(ctx context.Context, filter model.AuditFilter) ([]*model.AuditEntry, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	return s.store.ListAuditEntries(ctx, filter)
}

// LoadFolder scans a folder of .properties files into the store. With a
// non-empty environment the folder is one environment's files; with an empty
// environment each subdirectory is an environment. Loading rewrites the
// property table (other environments are preserved on single-environment
// loads) and records one batch entry for the net change.
func (s *PropertyService) LoadFolder(ctx context.Context, dir, environment string) (*model.AuditEntry, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}

	var (
		scanned []model.Property
		err     error
	)
	if environment == "" {
		scanned, err = propfile.ScanEnvironments(dir, s.logger)
	} else {
		scanned, err = propfile.ScanFolder(dir, environment, s.logger)
	}
	if err != nil {
		return nil, err
	}

	var entry *model.AuditEntry
	err = s.store.RunInTransaction(ctx, func(tx store.Store) error {
		existing, _, err := tx.ListProperties(ctx, model.PropertyFilter{})
		if err != nil {
			return fmt.Errorf("list properties: %w", err)
		}

		// inScope marks rows the load replaces: everything on a tree load,
		// one environment's rows otherwise.
		inScope := func(p *model.Property) bool {
			return environment == "" || p.Environment == environment
		}

		next := make([]model.Property, 0, len(existing)+len(scanned))
		originals := make(map[string]model.Property)
		replaced := make(map[string]struct{}, len(scanned))
		for _, p := range scanned {
			replaced[p.ID] = struct{}{}
		}

		var deleted []model.Property
		for _, p := range existing {
			if !inScope(p) {
				next = append(next, *p)
				continue
			}
			originals[p.ID] = *p
			if _, ok := replaced[p.ID]; !ok {
				deleted = append(deleted, *p)
			}
		}

		var changed []model.Property
		for _, p := range scanned {
			orig, existed := originals[p.ID]
			if !existed || orig.Value != p.Value || orig.Description != p.Description || orig.Component != p.Component {
				changed = append(changed, p)
			}
			next = append(next, p)
		}

		if len(changed) == 0 && len(deleted) == 0 {
			return nil
		}

		if err := tx.ReplaceProperties(ctx, next); err != nil {
			return fmt.Errorf("replace properties: %w", err)
		}

		entry, err = s.engine.NewBatchEntry(changed, deleted, "", originals)
		if err != nil {
			return err
		}
		if err := tx.AppendAuditEntry(ctx, entry); err != nil {
			return fmt.Errorf("append audit entry: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if entry != nil {
		s.publishMutation(ctx, entry)
	}
	return entry, nil
}

// SetPropertyInput holds parameters for creating or updating one property.
type SetPropertyInput struct {
	Environment string
	Key         string
	Value       string
	Description string
	Component   string
	// Comment, when non-empty, replaces the generated change details.
	Comment string
}

// SetProperty creates or updates a single property and appends the matching
// CREATE or UPDATE audit entry in the same transaction.
func (s *PropertyService) SetProperty(ctx context.Context, in SetPropertyInput) (*model.Property, *model.AuditEntry, error) {
	if err := s.ready(); err != nil {
		return nil, nil, err
	}

	prop := &model.Property{
		ID:           model.PropertyID(in.Environment, in.Key),
		Environment:  in.Environment,
		Key:          in.Key,
		Value:        in.Value,
		Description:  in.Description,
		Component:    in.Component,
		LastModified: time.Now().UTC(),
	}
	if err := model.ValidateProperty(prop); err != nil {
		return nil, nil, err
	}

	var entry *model.AuditEntry
	err := s.store.RunInTransaction(ctx, func(tx store.Store) error {
		old, err := tx.GetProperty(ctx, prop.ID)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("get property: %w", err)
		}

		if old == nil {
			entry, err = s.engine.NewEntry(model.ActionCreate, prop, nil, in.Comment)
			if err != nil {
				return err
			}
			if err := tx.CreateProperty(ctx, prop); err != nil {
				return fmt.Errorf("create property: %w", err)
			}
		} else {
			// Provenance fields survive value edits.
			prop.EnvironmentOrder = old.EnvironmentOrder
			prop.FileOrder = old.FileOrder
			prop.LineOrder = old.LineOrder
			if prop.Component == "" {
				prop.Component = old.Component
			}
			if prop.Description == "" {
				prop.Description = old.Description
			}
			entry, err = s.engine.NewEntry(model.ActionUpdate, prop, old, in.Comment)
			if err != nil {
				return err
			}
			if err := tx.UpdateProperty(ctx, prop); err != nil {
				return fmt.Errorf("update property: %w", err)
			}
		}

		if err := tx.AppendAuditEntry(ctx, entry); err != nil {
			return fmt.Errorf("append audit entry: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	s.publishMutation(ctx, entry)
	return prop, entry, nil
}

// DeleteProperty removes a property and appends the DELETE audit entry in the
// same transaction.
func (s *PropertyService) DeleteProperty(ctx context.Context, environment, key, comment string) (*model.AuditEntry, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}

	id := model.PropertyID(environment, key)
	var entry *model.AuditEntry
	err := s.store.RunInTransaction(ctx, func(tx store.Store) error {
		old, err := tx.GetProperty(ctx, id)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("property %s in %s: %w", key, environment, ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("get property: %w", err)
		}

		entry, err = s.engine.NewEntry(model.ActionDelete, old, nil, comment)
		if err != nil {
			return err
		}
		if err := tx.DeleteProperty(ctx, id); err != nil {
			return fmt.Errorf("delete property: %w", err)
		}
		if err := tx.AppendAuditEntry(ctx, entry); err != nil {
			return fmt.Errorf("append audit entry: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publishMutation(ctx, entry)
	return entry, nil
}

// SaveMatrix applies an edited matrix against the original it was built
// from: changed cells are written, rows removed from the edited view are
// deleted, and the whole batch lands with one audit entry.
func (s *PropertyService) SaveMatrix(ctx context.Context, original, edited *matrix.Matrix, comment string) (*model.AuditEntry, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}

	changes := matrix.Diff(original, edited)

	// Rows absent from the edited view delete their backing properties.
	editedRows := make(map[string]struct{}, len(edited.Rows))
	for _, r := range edited.Rows {
		editedRows[r.ID] = struct{}{}
	}
	var deleted []model.Property
	for _, r := range original.Rows {
		if _, ok := editedRows[r.ID]; ok {
			continue
		}
		for _, env := range original.Environments {
			if p, ok := original.Property(r.ID, env); ok {
				deleted = append(deleted, p)
			}
		}
	}

	if len(changes) == 0 && len(deleted) == 0 {
		return nil, nil
	}

	var entry *model.AuditEntry
	err := s.store.RunInTransaction(ctx, func(tx store.Store) error {
		originals := make(map[string]model.Property, len(changes))
		for i := range changes {
			p := changes[i]
			p.LastModified = time.Now().UTC()
			cur, err := tx.GetProperty(ctx, p.ID)
			if err != nil && !errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("get property %s: %w", p.ID, err)
			}
			if cur == nil {
				if err := tx.CreateProperty(ctx, &p); err != nil {
					return fmt.Errorf("create property %s: %w", p.ID, err)
				}
			} else {
				originals[p.ID] = *cur
				if err := tx.UpdateProperty(ctx, &p); err != nil {
					return fmt.Errorf("update property %s: %w", p.ID, err)
				}
			}
		}
		for _, p := range deleted {
			if err := tx.DeleteProperty(ctx, p.ID); err != nil {
				return fmt.Errorf("delete property %s: %w", p.ID, err)
			}
		}

		var err error
		entry, err = s.engine.NewBatchEntry(changes, deleted, comment, originals)
		if err != nil {
			return err
		}
		if err := tx.AppendAuditEntry(ctx, entry); err != nil {
			return fmt.Errorf("append audit entry: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publishMutation(ctx, entry)
	return entry, nil
}

// FillMissing creates empty-valued properties for every key × component
// combination absent from the target environments, as one audited batch.
func (s *PropertyService) FillMissing(ctx context.Context, targetEnvs []string, comment string) (*model.AuditEntry, int, error) {
	if err := s.ready(); err != nil {
		return nil, 0, err
	}

	existing, _, err := s.store.ListProperties(ctx, model.PropertyFilter{})
	if err != nil {
		return nil, 0, fmt.Errorf("list properties: %w", err)
	}
	props := make([]model.Property, 0, len(existing))
	for _, p := range existing {
		props = append(props, *p)
	}

	missing := matrix.CreateMissing(props, targetEnvs)
	if len(missing) == 0 {
		return nil, 0, nil
	}

	var entry *model.AuditEntry
	err = s.store.RunInTransaction(ctx, func(tx store.Store) error {
		for i := range missing {
			p := missing[i]
			p.LastModified = time.Now().UTC()
			if err := tx.CreateProperty(ctx, &p); err != nil {
				return fmt.Errorf("create property %s: %w", p.ID, err)
			}
		}
		var err error
		entry, err = s.engine.NewBatchEntry(missing, nil, comment, nil)
		if err != nil {
			return err
		}
		if err := tx.AppendAuditEntry(ctx, entry); err != nil {
			return fmt.Errorf("append audit entry: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}

	s.publishMutation(ctx, entry)
	return entry, len(missing), nil
}

// Restore inverts one audit entry: the affected properties are written back
// to their prior state (or removed, for an undone creation) and the
// inversion itself is re-audited. There is no redo stack; a restore is a new
// mutation like any other.
func (s *PropertyService) Restore(ctx context.Context, entryID string) (*model.AuditEntry, *restore.Resolution, error) {
	if err := s.ready(); err != nil {
		return nil, nil, err
	}

	entry, err := s.store.GetAuditEntry(ctx, entryID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, fmt.Errorf("audit entry %s: %w", entryID, ErrNotFound)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("get audit entry: %w", err)
	}

	res, err := restore.Resolve(entry)
	if err != nil {
		return nil, nil, err
	}

	var summary *model.AuditEntry
	err = s.store.RunInTransaction(ctx, func(tx store.Store) error {
		for i := range res.Upserts {
			p := res.Upserts[i]
			if err := model.ValidateProperty(&p); err != nil {
				return fmt.Errorf("restore entry %s: %w", entry.ID, err)
			}
			cur, err := tx.GetProperty(ctx, p.ID)
			if err != nil && !errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("get property %s: %w", p.ID, err)
			}
			if cur == nil {
				p.LastModified = time.Now().UTC()
				if err := tx.CreateProperty(ctx, &p); err != nil {
					return fmt.Errorf("recreate property %s: %w", p.ID, err)
				}
			} else {
				p.EnvironmentOrder = cur.EnvironmentOrder
				p.FileOrder = cur.FileOrder
				p.LineOrder = cur.LineOrder
				if err := tx.UpdateProperty(ctx, &p); err != nil {
					return fmt.Errorf("revert property %s: %w", p.ID, err)
				}
			}
			if entry.Action != model.ActionBatch {
				re, err := s.engine.NewEntry(model.ActionRestore, &p, cur, "")
				if err != nil {
					return err
				}
				summary = re
				if err := tx.AppendAuditEntry(ctx, re); err != nil {
					return fmt.Errorf("append audit entry: %w", err)
				}
			}
		}

		for _, p := range res.Deletes {
			if err := tx.DeleteProperty(ctx, p.ID); err != nil && !errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("remove property %s: %w", p.ID, err)
			}
			if entry.Action != model.ActionBatch {
				de, err := s.engine.NewEntry(model.ActionDelete, &p, nil, fmt.Sprintf("Undo of %s", entry.ID))
				if err != nil {
					return err
				}
				summary = de
				if err := tx.AppendAuditEntry(ctx, de); err != nil {
					return fmt.Errorf("append audit entry: %w", err)
				}
			}
		}

		if entry.Action == model.ActionBatch {
			re, err := s.engine.NewRestoreSummary(entry.ID, len(res.Upserts), len(res.Deletes), "")
			if err != nil {
				return err
			}
			summary = re
			if err := tx.AppendAuditEntry(ctx, re); err != nil {
				return fmt.Errorf("append audit entry: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	s.publish(ctx, events.TopicAuditRestored, events.AuditRestored{
		RestoredID: entry.ID,
		AuditID:    summary.ID,
		Upserts:    len(res.Upserts),
		Deletes:    len(res.Deletes),
	})
	return summary, res, nil
}

// Export writes the combined snapshot to w.
func (s *PropertyService) Export(ctx context.Context, w io.Writer) (snapshot.Counts, error) {
	if err := s.ready(); err != nil {
		return snapshot.Counts{}, err
	}
	counts, err := snapshot.Export(ctx, s.store, w)
	if err != nil {
		return counts, err
	}
	s.publish(ctx, events.TopicSnapshotExported, events.SnapshotExported{
		Properties: counts.Properties,
		AuditRows:  counts.AuditRows,
	})
	return counts, nil
}

// Import replaces the store's contents from a snapshot read from r.
func (s *PropertyService) Import(ctx context.Context, r io.Reader) (snapshot.Counts, error) {
	if err := s.ready(); err != nil {
		return snapshot.Counts{}, err
	}
	counts, err := snapshot.Import(ctx, s.store, r)
	if err != nil {
		return counts, err
	}
	s.publish(ctx, events.TopicSnapshotImported, events.SnapshotImported{
		Properties: counts.Properties,
		AuditRows:  counts.AuditRows,
		Legacy:     counts.Legacy,
	})
	return counts, nil
}

// publishMutation maps a committed audit entry to its lifecycle event.
func (s *PropertyService) publishMutation(ctx context.Context, entry *model.AuditEntry) {
	switch entry.Action {
	case model.ActionCreate:
		s.publish(ctx, events.TopicPropertyCreated, events.PropertyCreated{
			Property: &model.Property{
				ID:          entry.RecordID,
				Environment: entry.Environment,
				Key:         entry.PropertyKey,
				Value:       entry.NewValue,
				Description: entry.NewDescription,
				Component:   entry.Component,
			},
			AuditID: entry.ID,
		})
	case model.ActionUpdate, model.ActionRestore:
		s.publish(ctx, events.TopicPropertyUpdated, events.PropertyUpdated{
			Property: &model.Property{
				ID:          entry.RecordID,
				Environment: entry.Environment,
				Key:         entry.PropertyKey,
				Value:       entry.NewValue,
				Description: entry.NewDescription,
				Component:   entry.Component,
			},
			OldValue: entry.OldValue,
			AuditID:  entry.ID,
		})
	case model.ActionDelete:
		s.publish(ctx, events.TopicPropertyDeleted, events.PropertyDeleted{
			PropertyID: entry.RecordID,
			AuditID:    entry.ID,
		})
	case model.ActionBatch:
		s.publish(ctx, events.TopicBatchSaved, events.BatchSaved{
			Changed: len(entry.Batch.Changes),
			Deleted: len(entry.Batch.Deletions),
			AuditID: entry.ID,
		})
	}
}
