// Package audit builds reversible audit entries for property mutations.
package audit

import (
	"fmt"
	"strings"
	"time"

	"github.com/groblegark/propkeep/internal/idgen"
	"github.com/groblegark/propkeep/internal/model"
)

// Session identifies the editing session every entry is attributed to. It is
// created by the caller at startup and passed in explicitly; rotating it is
// the caller's responsibility.
type Session struct {
	ID   string
	User string
}

// NewSession mints a session with a fresh id for the given user.
func NewSession(user string) (Session, error) {
	id, err := idgen.GenerateSession()
	if err != nil {
		return Session{}, err
	}
	return Session{ID: id, User: user}, nil
}

// Engine constructs audit entries bound to one session.
type Engine struct {
	session Session
}

// NewEngine returns an engine writing entries for the given session.
func NewEngine(session Session) *Engine {
	return &Engine{session: session}
}

// NewEntry builds the audit entry for a single-property mutation.
//
// CREATE populates only the new fields from property; DELETE populates only
// the old fields from property (the row being removed); UPDATE populates
// both and requires old; RESTORE is an UPDATE that tolerates a missing old.
// ChangeDetails is generated from the field diffs unless comment overrides it.
func (e *Engine) NewEntry(action model.Action, property *model.Property, old *model.Property, comment string) (*model.AuditEntry, error) {
	if property == nil {
		return nil, fmt.Errorf("audit: property is required")
	}
	if action == model.ActionUpdate && old == nil {
		return nil, fmt.Errorf("audit: UPDATE requires the prior property state")
	}

	id, err := idgen.Generate()
	if err != nil {
		return nil, err
	}

	entry := &model.AuditEntry{
		ID:          id,
		Timestamp:   time.Now().UTC(),
		Action:      action,
		RecordID:    property.ID,
		PropertyKey: property.Key,
		Environment: property.Environment,
		Component:   property.Component,
		UserID:      e.session.User,
		SessionID:   e.session.ID,
	}

	switch action {
	case model.ActionCreate:
		rp := model.RestorePointOf(property)
		entry.NewValue, entry.NewDescription = rp.Value, rp.Description
	case model.ActionDelete:
		rp := model.RestorePointOf(property)
		entry.OldValue, entry.OldDescription = rp.Value, rp.Description
	case model.ActionUpdate, model.ActionRestore:
		rp := model.RestorePointOf(property)
		entry.NewValue, entry.NewDescription = rp.Value, rp.Description
		if old != nil {
			prior := model.RestorePointOf(old)
			entry.OldValue, entry.OldDescription = prior.Value, prior.Description
		}
	default:
		return nil, fmt.Errorf("audit: %q is not a single-property action", action)
	}

	entry.ChangeDetails = comment
	if entry.ChangeDetails == "" {
		entry.ChangeDetails = changeDetails(action, property, old)
	}

	return entry, nil
}

// NewBatchEntry builds one audit entry for a batch of writes and deletions.
// originals maps property id to the pre-batch state; a changed property with
// no original is recorded as a creation. When the batch nets out to exactly
// one operation the precise single-item entry is emitted instead, keeping
// the log maximally specific.
func (e *Engine) NewBatchEntry(changed, deleted []model.Property, comment string, originals map[string]model.Property) (*model.AuditEntry, error) {
	switch {
	case len(changed) == 1 && len(deleted) == 0:
		p := changed[0]
		if orig, ok := originals[p.ID]; ok {
			return e.NewEntry(model.ActionUpdate, &p, &orig, comment)
		}
		return e.NewEntry(model.ActionCreate, &p, nil, comment)
	case len(changed) == 0 && len(deleted) == 1:
		p := deleted[0]
		return e.NewEntry(model.ActionDelete, &p, nil, comment)
	}

	id, err := idgen.Generate()
	if err != nil {
		return nil, err
	}

	payload := &model.BatchPayload{
		Changes:   make([]model.BatchChange, 0, len(changed)),
		Deletions: append([]model.Property(nil), deleted...),
	}
	for _, p := range changed {
		change := model.BatchChange{Property: p}
		if orig, ok := originals[p.ID]; ok {
			o := orig
			change.Original = &o
		}
		payload.Changes = append(payload.Changes, change)
	}

	details := comment
	if details == "" {
		details = fmt.Sprintf("Batch operation: %d changed, %d deleted", len(changed), len(deleted))
	}

	return &model.AuditEntry{
		ID:            id,
		Timestamp:     time.Now().UTC(),
		Action:        model.ActionBatch,
		OldValue:      fmt.Sprintf("%d operations", payload.Operations()),
		ChangeDetails: details,
		UserID:        e.session.User,
		SessionID:     e.session.ID,
		Batch:         payload,
	}, nil
}

// NewRestoreSummary records the inversion of a batch entry as one RESTORE
// row referencing the entry that was undone.
func (e *Engine) NewRestoreSummary(restoredID string, upserts, deletes int, comment string) (*model.AuditEntry, error) {
	id, err := idgen.Generate()
	if err != nil {
		return nil, err
	}

	details := comment
	if details == "" {
		details = fmt.Sprintf("Restored batch %s: %d reverted, %d removed", restoredID, upserts, deletes)
	}

	return &model.AuditEntry{
		ID:            id,
		Timestamp:     time.Now().UTC(),
		Action:        model.ActionRestore,
		RecordID:      restoredID,
		OldValue:      fmt.Sprintf("%d operations", upserts+deletes),
		ChangeDetails: details,
		UserID:        e.session.User,
		SessionID:     e.session.ID,
	}, nil
}

func changeDetails(action model.Action, property, old *model.Property) string {
	switch action {
	case model.ActionCreate:
		return fmt.Sprintf("Created %s in %s with value %q", property.Key, property.Environment, property.Value)
	case model.ActionDelete:
		return fmt.Sprintf("Deleted %s from %s (last value %q)", property.Key, property.Environment, property.Value)
	case model.ActionRestore:
		if old == nil {
			return fmt.Sprintf("Restored %s in %s to value %q", property.Key, property.Environment, property.Value)
		}
	}

	var parts []string
	if old != nil {
		if old.Value != property.Value {
			parts = append(parts, fmt.Sprintf("value changed from %q to %q", old.Value, property.Value))
		}
		if old.Description != property.Description {
			parts = append(parts, fmt.Sprintf("description changed from %q to %q", old.Description, property.Description))
		}
		if old.Component != property.Component {
			parts = append(parts, fmt.Sprintf("component changed from %q to %q", old.Component, property.Component))
		}
	}
	if len(parts) == 0 {
		return fmt.Sprintf("No field changes on %s in %s", property.Key, property.Environment)
	}
	return strings.Join(parts, "; ")
}
