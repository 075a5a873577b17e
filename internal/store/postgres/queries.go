package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/groblegark/propkeep/internal/model"
)

// propertyColumns is the column list used for SELECT statements on the properties table.
const propertyColumns = `id, environment, key, value, description, component,
	last_modified, environment_order, file_order, line_order`

// auditColumns is the column list used for SELECT statements on the audit_logs table.
const auditColumns = `id, timestamp, action, record_id, property_key, environment,
	component, old_value, new_value, old_description, new_description,
	change_details, user_id, session_id`

// auditTableName is the fixed value of the audit_logs.table_name column;
// properties are the only audited table.
const auditTableName = "properties"

// executor is the interface satisfied by both *sql.DB and *sql.Tx.
type executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func queryCreateProperty(ctx context.Context, db executor, p *model.Property) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO properties (
			id, environment, key, value, description, component,
			last_modified, environment_order, file_order, line_order
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		p.ID,
		p.Environment,
		p.Key,
		p.Value,
		nullString(p.Description),
		nullString(p.Component),
		p.LastModified,
		p.EnvironmentOrder,
		p.FileOrder,
		p.LineOrder,
	)
	return err
}

func queryGetProperty(ctx context.Context, db executor, id string) (*model.Property, error) {
	row := db.QueryRowContext(ctx, `SELECT `+propertyColumns+` FROM properties WHERE id = $1`, id)
	return scanProperty(row)
}

func queryListProperties(ctx context.Context, db executor, filter model.PropertyFilter) ([]*model.Property, int, error) {
	var (
		whereClauses []string
		args         []any
		argIdx       int
	)

	nextArg := func() string {
		argIdx++
		return fmt.Sprintf("$%d", argIdx)
	}

	if filter.Environment != "" {
		whereClauses = append(whereClauses, "environment = "+nextArg())
		args = append(args, filter.Environment)
	}
	if filter.Component != "" {
		whereClauses = append(whereClauses, "component = "+nextArg())
		args = append(args, filter.Component)
	}
	if filter.Key != "" {
		whereClauses = append(whereClauses, "key = "+nextArg())
		args = append(args, filter.Key)
	}
	if filter.Search != "" {
		p := nextArg()
		whereClauses = append(whereClauses,
			fmt.Sprintf("(key ILIKE '%%' || %s || '%%' OR value ILIKE '%%' || %s || '%%')", p, p))
		args = append(args, filter.Search)
	}

	whereSQL := ""
	if len(whereClauses) > 0 {
		whereSQL = " WHERE " + strings.Join(whereClauses, " AND ")
	}

	// Single query with COUNT(*) OVER() to get total and rows atomically.
	dataQuery := "SELECT COUNT(*) OVER() AS total_count, " + propertyColumns +
		" FROM properties" + whereSQL + " ORDER BY " + parseSortClause(filter.Sort)

	if filter.Limit > 0 {
		dataQuery += " LIMIT " + nextArg()
		args = append(args, filter.Limit)
	}
	if filter.Offset > 0 {
		dataQuery += " OFFSET " + nextArg()
		args = append(args, filter.Offset)
	}

	rows, err := db.QueryContext(ctx, dataQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list properties: %w", err)
	}
	defer rows.Close()

	var props []*model.Property
	var total int
	for rows.Next() {
		p, t, err := scanPropertyWithTotal(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan properties: %w", err)
		}
		total = t
		props = append(props, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("scan properties: %w", err)
	}

	return props, total, nil
}

func queryUpdateProperty(ctx context.Context, db executor, p *model.Property) error {
	return db.QueryRowContext(ctx, `
		UPDATE properties SET
			environment = $2,
			key = $3,
			value = $4,
			description = $5,
			component = $6,
			last_modified = NOW(),
			environment_order = $7,
			file_order = $8,
			line_order = $9
		WHERE id = $1
		RETURNING last_modified`,
		p.ID,
		p.Environment,
		p.Key,
		p.Value,
		nullString(p.Description),
		nullString(p.Component),
		p.EnvironmentOrder,
		p.FileOrder,
		p.LineOrder,
	).Scan(&p.LastModified)
}

func queryDeleteProperty(ctx context.Context, db executor, id string) error {
	res, err := db.ExecContext(ctx, `DELETE FROM properties WHERE id = $1`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func queryReplaceProperties(ctx context.Context, db executor, props []model.Property) error {
	if _, err := db.ExecContext(ctx, `DELETE FROM properties`); err != nil {
		return fmt.Errorf("clear properties: %w", err)
	}
	for i := range props {
		if err := queryCreateProperty(ctx, db, &props[i]); err != nil {
			return fmt.Errorf("insert property %s: %w", props[i].ID, err)
		}
	}
	return nil
}

func queryAppendAuditEntry(ctx context.Context, db executor, e *model.AuditEntry) error {
	if err := model.ValidateAuditEntry(e); err != nil {
		return fmt.Errorf("audit entry %s: %w", e.ID, err)
	}
	newValue, err := auditNewValue(e)
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO audit_logs (
			id, timestamp, action, table_name, record_id, property_key,
			environment, component, old_value, new_value, old_description,
			new_description, change_details, user_id, session_id
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		e.ID,
		e.Timestamp,
		string(e.Action),
		auditTableName,
		nullString(e.RecordID),
		nullString(e.PropertyKey),
		nullString(e.Environment),
		nullString(e.Component),
		nullString(e.OldValue),
		newValue,
		nullString(e.OldDescription),
		nullString(e.NewDescription),
		nullString(e.ChangeDetails),
		nullString(e.UserID),
		e.SessionID,
	)
	return err
}

// auditNewValue picks what goes into the new_value column: the plain value
// for single-property actions, the serialized reversible payload for BATCH.
func auditNewValue(e *model.AuditEntry) (sql.NullString, error) {
	if e.Action != model.ActionBatch {
		return nullString(e.NewValue), nil
	}
	if e.Batch == nil {
		return sql.NullString{}, fmt.Errorf("audit entry %s: BATCH entry has no payload", e.ID)
	}
	data, err := json.Marshal(e.Batch)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("audit entry %s: encode batch payload: %w", e.ID, err)
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

func queryGetAuditEntry(ctx context.Context, db executor, id string) (*model.AuditEntry, error) {
	row := db.QueryRowContext(ctx, `SELECT `+auditColumns+` FROM audit_logs WHERE id = $1`, id)
	return scanAuditEntry(row)
}

func queryListAuditEntries(ctx context.Context, db executor, filter model.AuditFilter) ([]*model.AuditEntry, error) {
	var (
		whereClauses []string
		args         []any
		argIdx       int
	)

	nextArg := func() string {
		argIdx++
		return fmt.Sprintf("$%d", argIdx)
	}

	if filter.RecordID != "" {
		whereClauses = append(whereClauses, "record_id = "+nextArg())
		args = append(args, filter.RecordID)
	}
	if filter.PropertyKey != "" {
		whereClauses = append(whereClauses, "property_key = "+nextArg())
		args = append(args, filter.PropertyKey)
	}
	if filter.Environment != "" {
		whereClauses = append(whereClauses, "environment = "+nextArg())
		args = append(args, filter.Environment)
	}
	if filter.Action != "" {
		whereClauses = append(whereClauses, "action = "+nextArg())
		args = append(args, string(filter.Action))
	}

	whereSQL := ""
	if len(whereClauses) > 0 {
		whereSQL = " WHERE " + strings.Join(whereClauses, " AND ")
	}

	// Timestamp order with insertion order (seq) breaking ties.
	query := `SELECT ` + auditColumns + ` FROM audit_logs` + whereSQL + ` ORDER BY timestamp ASC, seq ASC`

	if filter.Limit > 0 {
		query += " LIMIT " + nextArg()
		args = append(args, filter.Limit)
	}
	if filter.Offset > 0 {
		query += " OFFSET " + nextArg()
		args = append(args, filter.Offset)
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	defer rows.Close()

	var entries []*model.AuditEntry
	for rows.Next() {
		e, err := scanAuditEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan audit entries: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("scan audit entries: %w", err)
	}

	return entries, nil
}

func queryReplaceAuditEntries(ctx context.Context, db executor, entries []model.AuditEntry) error {
	if _, err := db.ExecContext(ctx, `DELETE FROM audit_logs`); err != nil {
		return fmt.Errorf("clear audit log: %w", err)
	}
	for i := range entries {
		if err := queryAppendAuditEntry(ctx, db, &entries[i]); err != nil {
			return fmt.Errorf("insert audit entry %s: %w", entries[i].ID, err)
		}
	}
	return nil
}

func parseSortClause(sort string) string {
	if sort == "" {
		return "environment ASC, key ASC"
	}
	desc := strings.HasPrefix(sort, "-")
	col := strings.TrimPrefix(sort, "-")
	allowed := map[string]bool{
		"environment": true, "key": true, "value": true,
		"component": true, "last_modified": true,
	}
	if !allowed[col] {
		return "environment ASC, key ASC"
	}
	if desc {
		return col + " DESC"
	}
	return col + " ASC"
}
