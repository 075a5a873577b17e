package postgres

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/groblegark/propkeep/internal/model"
)

// scannable is the interface satisfied by both *sql.Row and *sql.Rows.
type scannable interface {
	Scan(dest ...any) error
}

// scanProperty scans a single row into a model.Property.
// The row must contain columns in the order defined by propertyColumns.
func scanProperty(row scannable) (*model.Property, error) {
	var p model.Property
	var (
		description sql.NullString
		component   sql.NullString
	)

	err := row.Scan(
		&p.ID,
		&p.Environment,
		&p.Key,
		&p.Value,
		&description,
		&component,
		&p.LastModified,
		&p.EnvironmentOrder,
		&p.FileOrder,
		&p.LineOrder,
	)
	if err != nil {
		return nil, err
	}

	p.Description = description.String
	p.Component = component.String
	return &p, nil
}

// scanPropertyWithTotal scans a row that has a leading total_count column
// followed by the standard property columns. Used by queryListProperties
// with COUNT(*) OVER().
func scanPropertyWithTotal(row scannable) (*model.Property, int, error) {
	var total int
	var p model.Property
	var (
		description sql.NullString
		component   sql.NullString
	)

	err := row.Scan(
		&total,
		&p.ID,
		&p.Environment,
		&p.Key,
		&p.Value,
		&description,
		&component,
		&p.LastModified,
		&p.EnvironmentOrder,
		&p.FileOrder,
		&p.LineOrder,
	)
	if err != nil {
		return nil, 0, err
	}

	p.Description = description.String
	p.Component = component.String
	return &p, total, nil
}

// scanAuditEntry scans a single row into a model.AuditEntry. For BATCH rows
// the new_value column holds the serialized reversible payload and is decoded
// into the typed Batch field; a row that cannot be decoded is a hard error.
func scanAuditEntry(row scannable) (*model.AuditEntry, error) {
	var e model.AuditEntry
	var (
		recordID       sql.NullString
		propertyKey    sql.NullString
		environment    sql.NullString
		component      sql.NullString
		oldValue       sql.NullString
		newValue       sql.NullString
		oldDescription sql.NullString
		newDescription sql.NullString
		changeDetails  sql.NullString
		userID         sql.NullString
	)

	err := row.Scan(
		&e.ID,
		&e.Timestamp,
		&e.Action,
		&recordID,
		&propertyKey,
		&environment,
		&component,
		&oldValue,
		&newValue,
		&oldDescription,
		&newDescription,
		&changeDetails,
		&userID,
		&e.SessionID,
	)
	if err != nil {
		return nil, err
	}

	e.RecordID = recordID.String
	e.PropertyKey = propertyKey.String
	e.Environment = environment.String
	e.Component = component.String
	e.OldValue = oldValue.String
	e.OldDescription = oldDescription.String
	e.NewDescription = newDescription.String
	e.ChangeDetails = changeDetails.String
	e.UserID = userID.String

	if e.Action == model.ActionBatch {
		var payload model.BatchPayload
		if !newValue.Valid || json.Unmarshal([]byte(newValue.String), &payload) != nil {
			return nil, fmt.Errorf("audit entry %s: decode batch payload", e.ID)
		}
		e.Batch = &payload
	} else {
		e.NewValue = newValue.String
	}

	return &e, nil
}

// nullString converts a string to sql.NullString; empty string is null.
func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
