// Package snapshot serializes the combined property and audit-log dataset
// for disaster recovery and exchange, and restores it atomically.
package snapshot

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/groblegark/propkeep/internal/model"
	"github.com/groblegark/propkeep/internal/store"
)

// Table type discriminator values.
const (
	TableProperties = "properties"
	TableAuditLogs  = "audit_logs"
)

// ErrFormatDetect reports input whose layout cannot be identified as either
// combined or legacy, or whose rows fail validation. Import aborts before
// any write.
var ErrFormatDetect = errors.New("snapshot format cannot be detected")

// row is one JSONL line: the column superset of both tables plus the
// table_type discriminator. Columns that do not apply to a row's table are
// null-filled, mirroring the columnar layout the file represents.
type row struct {
	TableType string `json:"table_type,omitempty"`

	ID string `json:"id"`

	// properties columns
	Environment      *string    `json:"environment"`
	Key              *string    `json:"key"`
	Value            *string    `json:"value"`
	Description      *string    `json:"description"`
	Component        *string    `json:"component"`
	LastModified     *time.Time `json:"last_modified"`
	EnvironmentOrder *int       `json:"environment_order"`
	FileOrder        *int       `json:"file_order"`
	LineOrder        *int       `json:"line_order"`

	// audit_logs columns
	Timestamp      *time.Time `json:"timestamp"`
	Action         *string    `json:"action"`
	TableName      *string    `json:"table_name"`
	RecordID       *string    `json:"record_id"`
	PropertyKey    *string    `json:"property_key"`
	OldValue       *string    `json:"old_value"`
	NewValue       *string    `json:"new_value"`
	OldDescription *string    `json:"old_description"`
	NewDescription *string    `json:"new_description"`
	ChangeDetails  *string    `json:"change_details"`
	UserID         *string    `json:"user_id"`
	SessionID      *string    `json:"session_id"`
}

// Counts reports how many rows of each table a snapshot carried.
type Counts struct {
	Properties int
	AuditRows  int
	// Legacy is true when an imported snapshot had no table_type column.
	Legacy bool
}

// Export writes every property row and every audit entry from the store as
// combined JSONL to w, sorted by (table_type, environment, key) so output is
// deterministic.
func Export(ctx context.Context, s store.Store, w io.Writer) (Counts, error) {
	props, _, err := s.ListProperties(ctx, model.PropertyFilter{})
	if err != nil {
		return Counts{}, fmt.Errorf("list properties: %w", err)
	}
	entries, err := s.ListAuditEntries(ctx, model.AuditFilter{})
	if err != nil {
		return Counts{}, fmt.Errorf("list audit entries: %w", err)
	}

	rows := make([]row, 0, len(props)+len(entries))
	for _, p := range props {
		rows = append(rows, propertyRow(p))
	}
	for _, e := range entries {
		r, err := auditRow(e)
		if err != nil {
			return Counts{}, err
		}
		rows = append(rows, r)
	}

	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].TableType != rows[j].TableType {
			return rows[i].TableType < rows[j].TableType
		}
		ei, ej := strOrEmpty(rows[i].Environment), strOrEmpty(rows[j].Environment)
		if ei != ej {
			return ei < ej
		}
		return sortKey(rows[i]) < sortKey(rows[j])
	})

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	for _, r := range rows {
		if err := enc.Encode(r); err != nil {
			return Counts{}, fmt.Errorf("encode row %s: %w", r.ID, err)
		}
	}

	return Counts{Properties: len(props), AuditRows: len(entries)}, nil
}

// Import reads a snapshot from r and replaces the store's contents. A
// combined snapshot (rows carrying table_type) replaces both the property
// table and the audit trail; a legacy snapshot (property columns only)
// replaces only the property table. Detection or row validation failure
// aborts before any write, and the replacement itself runs in one store
// transaction.
func Import(ctx context.Context, s store.Store, r io.Reader) (Counts, error) {
	rows, err := decodeRows(r)
	if err != nil {
		return Counts{}, err
	}
	if len(rows) == 0 {
		return Counts{}, fmt.Errorf("empty snapshot: %w", ErrFormatDetect)
	}

	combined := rows[0].TableType != ""

	var (
		props   []model.Property
		entries []model.AuditEntry
	)
	for i, rw := range rows {
		switch {
		case !combined:
			if rw.TableType != "" {
				return Counts{}, fmt.Errorf("row %d: discriminator in legacy snapshot: %w", i+1, ErrFormatDetect)
			}
			p, err := rowProperty(rw, i)
			if err != nil {
				return Counts{}, err
			}
			props = append(props, p)
		case rw.TableType == TableProperties:
			p, err := rowProperty(rw, i)
			if err != nil {
				return Counts{}, err
			}
			props = append(props, p)
		case rw.TableType == TableAuditLogs:
			e, err := rowAuditEntry(rw, i)
			if err != nil {
				return Counts{}, err
			}
			entries = append(entries, e)
		default:
			return Counts{}, fmt.Errorf("row %d: unknown table_type %q: %w", i+1, rw.TableType, ErrFormatDetect)
		}
	}

	err = s.RunInTransaction(ctx, func(tx store.Store) error {
		if err := tx.ReplaceProperties(ctx, props); err != nil {
			return fmt.Errorf("replace properties: %w", err)
		}
		if combined {
			if err := tx.ReplaceAuditEntries(ctx, entries); err != nil {
				return fmt.Errorf("replace audit log: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return Counts{}, err
	}

	return Counts{Properties: len(props), AuditRows: len(entries), Legacy: !combined}, nil
}

func decodeRows(r io.Reader) ([]row, error) {
	var rows []row
	dec := json.NewDecoder(bufio.NewReader(r))
	for {
		var rw row
		if err := dec.Decode(&rw); err == io.EOF {
			break
		} else if err != nil {
			return nil, fmt.Errorf("row %d: %v: %w", len(rows)+1, err, ErrFormatDetect)
		}
		rows = append(rows, rw)
	}
	return rows, nil
}

func propertyRow(p *model.Property) row {
	return row{
		TableType:        TableProperties,
		ID:               p.ID,
		Environment:      ptr(p.Environment),
		Key:              ptr(p.Key),
		Value:            ptr(p.Value),
		Description:      ptr(p.Description),
		Component:        ptr(p.Component),
		LastModified:     &p.LastModified,
		EnvironmentOrder: intPtr(p.EnvironmentOrder),
		FileOrder:        intPtr(p.FileOrder),
		LineOrder:        intPtr(p.LineOrder),
	}
}

func auditRow(e *model.AuditEntry) (row, error) {
	newValue := e.NewValue
	if e.Action == model.ActionBatch {
		if e.Batch == nil {
			return row{}, fmt.Errorf("audit entry %s: BATCH entry has no payload", e.ID)
		}
		data, err := json.Marshal(e.Batch)
		if err != nil {
			return row{}, fmt.Errorf("audit entry %s: encode batch payload: %w", e.ID, err)
		}
		newValue = string(data)
	}

	action := string(e.Action)
	return row{
		TableType:      TableAuditLogs,
		ID:             e.ID,
		Environment:    ptr(e.Environment),
		Timestamp:      &e.Timestamp,
		Action:         &action,
		TableName:      ptr(TableProperties),
		RecordID:       ptr(e.RecordID),
		PropertyKey:    ptr(e.PropertyKey),
		Component:      ptr(e.Component),
		OldValue:       ptr(e.OldValue),
		NewValue:       ptr(newValue),
		OldDescription: ptr(e.OldDescription),
		NewDescription: ptr(e.NewDescription),
		ChangeDetails:  ptr(e.ChangeDetails),
		UserID:         ptr(e.UserID),
		SessionID:      ptr(e.SessionID),
	}, nil
}

func rowProperty(rw row, i int) (model.Property, error) {
	if rw.ID == "" || rw.Environment == nil || rw.Key == nil {
		return model.Property{}, fmt.Errorf("row %d: property row missing id, environment, or key: %w", i+1, ErrFormatDetect)
	}
	p := model.Property{
		ID:          rw.ID,
		Environment: *rw.Environment,
		Key:         *rw.Key,
		Value:       strOrEmpty(rw.Value),
		Description: strOrEmpty(rw.Description),
		Component:   strOrEmpty(rw.Component),
	}
	if rw.LastModified != nil {
		p.LastModified = *rw.LastModified
	}
	if rw.EnvironmentOrder != nil {
		p.EnvironmentOrder = *rw.EnvironmentOrder
	}
	if rw.FileOrder != nil {
		p.FileOrder = *rw.FileOrder
	}
	if rw.LineOrder != nil {
		p.LineOrder = *rw.LineOrder
	}
	return p, nil
}

func rowAuditEntry(rw row, i int) (model.AuditEntry, error) {
	if rw.ID == "" || rw.Action == nil || !model.Action(*rw.Action).IsValid() {
		return model.AuditEntry{}, fmt.Errorf("row %d: audit row missing id or valid action: %w", i+1, ErrFormatDetect)
	}
	e := model.AuditEntry{
		ID:             rw.ID,
		Action:         model.Action(*rw.Action),
		RecordID:       strOrEmpty(rw.RecordID),
		PropertyKey:    strOrEmpty(rw.PropertyKey),
		Environment:    strOrEmpty(rw.Environment),
		Component:      strOrEmpty(rw.Component),
		OldValue:       strOrEmpty(rw.OldValue),
		OldDescription: strOrEmpty(rw.OldDescription),
		NewDescription: strOrEmpty(rw.NewDescription),
		ChangeDetails:  strOrEmpty(rw.ChangeDetails),
		UserID:         strOrEmpty(rw.UserID),
		SessionID:      strOrEmpty(rw.SessionID),
	}
	if rw.Timestamp != nil {
		e.Timestamp = *rw.Timestamp
	}

	if e.Action == model.ActionBatch {
		var payload model.BatchPayload
		if rw.NewValue == nil || json.Unmarshal([]byte(*rw.NewValue), &payload) != nil {
			return model.AuditEntry{}, fmt.Errorf("row %d: batch payload cannot be decoded: %w", i+1, ErrFormatDetect)
		}
		e.Batch = &payload
	} else {
		e.NewValue = strOrEmpty(rw.NewValue)
	}

	return e, nil
}

// sortKey picks the key column for a row: key for properties, property_key
// for audit rows.
func sortKey(rw row) string {
	if rw.TableType == TableAuditLogs {
		return strOrEmpty(rw.PropertyKey)
	}
	return strOrEmpty(rw.Key)
}

func ptr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func intPtr(n int) *int {
	return &n
}

func strOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
