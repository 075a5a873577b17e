package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/groblegark/propkeep/internal/model"
	"github.com/groblegark/propkeep/internal/store"
)

// newMockDB creates a sqlmock database with automatic cleanup and expectation checking.
func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	t.Cleanup(func() {
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unfulfilled expectations: %v", err)
		}
		db.Close()
	})
	return db, mock
}

// propertyRowColumns is the column list for scanProperty results.
var propertyRowColumns = []string{
	"id", "environment", "key", "value", "description", "component",
	"last_modified", "environment_order", "file_order", "line_order",
}

// propertyWithTotalColumns is the column list for queryListProperties results.
var propertyWithTotalColumns = append([]string{"total_count"}, propertyRowColumns...)

// auditRowColumns is the column list for scanAuditEntry results.
var auditRowColumns = []string{
	"id", "timestamp", "action", "record_id", "property_key", "environment",
	"component", "old_value", "new_value", "old_description", "new_description",
	"change_details", "user_id", "session_id",
}

func testProperty() *model.Property {
	return &model.Property{
		ID:           "prod_db.url",
		Environment:  "prod",
		Key:          "db.url",
		Value:        "jdbc:prod",
		Description:  "Database URL",
		Component:    "backend",
		LastModified: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestParseSortClause(t *testing.T) {
	for _, tc := range []struct {
		input string
		want  string
	}{
		{"", "environment ASC, key ASC"},
		{"key", "key ASC"},
		{"-key", "key DESC"},
		{"last_modified", "last_modified ASC"},
		{"evil_column", "environment ASC, key ASC"},
		{"-evil_column", "environment ASC, key ASC"},
	} {
		if got := parseSortClause(tc.input); got != tc.want {
			t.Errorf("parseSortClause(%q) = %q, want %q", tc.input, got, tc.want)
		}
	}
}

func TestNullString(t *testing.T) {
	if nullString("").Valid {
		t.Error("nullString(\"\") should be invalid")
	}
	if ns := nullString("hello"); !ns.Valid || ns.String != "hello" {
		t.Errorf("nullString(\"hello\") = %v", ns)
	}
}

func TestCreateProperty(t *testing.T) {
	db, mock := newMockDB(t)
	p := testProperty()

	mock.ExpectExec("INSERT INTO properties").
		WithArgs(p.ID, p.Environment, p.Key, p.Value, nullString(p.Description),
			nullString(p.Component), p.LastModified, 0, 0, 0).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := queryCreateProperty(context.Background(), db, p); err != nil {
		t.Fatalf("queryCreateProperty: %v", err)
	}
}

func TestGetProperty(t *testing.T) {
	db, mock := newMockDB(t)
	now := time.Now().UTC()

	mock.ExpectQuery("SELECT .+ FROM properties WHERE id = \\$1").
		WithArgs("prod_db.url").
		WillReturnRows(sqlmock.NewRows(propertyRowColumns).
			AddRow("prod_db.url", "prod", "db.url", "jdbc:prod", "Database URL", "backend", now, 0, 0, 0))

	p, err := queryGetProperty(context.Background(), db, "prod_db.url")
	if err != nil {
		t.Fatalf("queryGetProperty: %v", err)
	}
	if p.Key != "db.url" || p.Value != "jdbc:prod" || p.Description != "Database URL" {
		t.Errorf("unexpected property: %+v", p)
	}
}

func TestGetProperty_NotFound(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectQuery("SELECT .+ FROM properties WHERE id = \\$1").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(propertyRowColumns))

	_, err := queryGetProperty(context.Background(), db, "missing")
	if !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("expected sql.ErrNoRows, got %v", err)
	}
}

func TestListProperties_EnvironmentFilter(t *testing.T) {
	db, mock := newMockDB(t)
	now := time.Now().UTC()

	mock.ExpectQuery("SELECT COUNT\\(\\*\\) OVER\\(\\) AS total_count, .+ FROM properties WHERE environment = \\$1 ORDER BY environment ASC, key ASC").
		WithArgs("prod").
		WillReturnRows(sqlmock.NewRows(propertyWithTotalColumns).
			AddRow(2, "prod_a", "prod", "a", "1", nil, nil, now, 0, 0, 0).
			AddRow(2, "prod_b", "prod", "b", "2", nil, nil, now, 0, 0, 1))

	props, total, err := queryListProperties(context.Background(), db, model.PropertyFilter{Environment: "prod"})
	if err != nil {
		t.Fatalf("queryListProperties: %v", err)
	}
	if total != 2 || len(props) != 2 {
		t.Errorf("total = %d, len = %d", total, len(props))
	}
	if props[0].ID != "prod_a" || props[1].ID != "prod_b" {
		t.Errorf("unexpected properties: %+v", props)
	}
}

func TestDeleteProperty_NotFound(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectExec("DELETE FROM properties WHERE id = \\$1").
		WithArgs("missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := queryDeleteProperty(context.Background(), db, "missing")
	if !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("expected sql.ErrNoRows, got %v", err)
	}
}

func TestReplaceProperties(t *testing.T) {
	db, mock := newMockDB(t)
	p := testProperty()

	mock.ExpectExec("DELETE FROM properties").
		WillReturnResult(sqlmock.NewResult(0, 5))
	mock.ExpectExec("INSERT INTO properties").
		WithArgs(p.ID, p.Environment, p.Key, p.Value, nullString(p.Description),
			nullString(p.Component), p.LastModified, 0, 0, 0).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := queryReplaceProperties(context.Background(), db, []model.Property{*p}); err != nil {
		t.Fatalf("queryReplaceProperties: %v", err)
	}
}

func TestAppendAuditEntry_Single(t *testing.T) {
	db, mock := newMockDB(t)
	e := &model.AuditEntry{
		ID:          "al-1",
		Timestamp:   time.Now().UTC(),
		Action:      model.ActionUpdate,
		RecordID:    "prod_db.url",
		PropertyKey: "db.url",
		Environment: "prod",
		OldValue:    "jdbc:prod",
		NewValue:    "jdbc:prod2",
		SessionID:   "ses-1",
	}

	mock.ExpectExec("INSERT INTO audit_logs").
		WithArgs(e.ID, e.Timestamp, "UPDATE", "properties", nullString(e.RecordID),
			nullString(e.PropertyKey), nullString(e.Environment), nullString(""),
			nullString("jdbc:prod"), nullString("jdbc:prod2"), nullString(""),
			nullString(""), nullString(""), nullString(""), e.SessionID).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := queryAppendAuditEntry(context.Background(), db, e); err != nil {
		t.Fatalf("queryAppendAuditEntry: %v", err)
	}
}

func TestAppendAuditEntry_BatchSerializesPayload(t *testing.T) {
	db, mock := newMockDB(t)
	orig := model.Property{ID: "prod_a", Environment: "prod", Key: "a", Value: "1"}
	e := &model.AuditEntry{
		ID:        "al-2",
		Timestamp: time.Now().UTC(),
		Action:    model.ActionBatch,
		OldValue:  "2 operations",
		SessionID: "ses-1",
		Batch: &model.BatchPayload{
			Changes:   []model.BatchChange{{Property: model.Property{ID: "prod_a", Key: "a", Value: "2"}, Original: &orig}},
			Deletions: []model.Property{{ID: "prod_b", Key: "b", Value: "x"}},
		},
	}

	wantPayload, err := json.Marshal(e.Batch)
	if err != nil {
		t.Fatal(err)
	}

	mock.ExpectExec("INSERT INTO audit_logs").
		WithArgs(e.ID, e.Timestamp, "BATCH", "properties", nullString(""),
			nullString(""), nullString(""), nullString(""),
			nullString("2 operations"), sql.NullString{String: string(wantPayload), Valid: true},
			nullString(""), nullString(""), nullString(""), nullString(""), e.SessionID).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := queryAppendAuditEntry(context.Background(), db, e); err != nil {
		t.Fatalf("queryAppendAuditEntry: %v", err)
	}
}

func TestAppendAuditEntry_BatchWithoutPayloadFails(t *testing.T) {
	db, _ := newMockDB(t)
	e := &model.AuditEntry{ID: "al-3", Action: model.ActionBatch, SessionID: "ses-1"}
	if err := queryAppendAuditEntry(context.Background(), db, e); err == nil {
		t.Error("expected error for BATCH entry without payload")
	}
}

func TestAppendAuditEntry_RejectsInvalidEntry(t *testing.T) {
	db, _ := newMockDB(t)
	cases := []struct {
		name string
		e    *model.AuditEntry
	}{
		{"missing session", &model.AuditEntry{ID: "al-4", Action: model.ActionUpdate}},
		{"invalid action", &model.AuditEntry{ID: "al-5", Action: "TRUNCATE", SessionID: "ses-1"}},
		{"missing id", &model.AuditEntry{Action: model.ActionCreate, SessionID: "ses-1"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := queryAppendAuditEntry(context.Background(), db, tc.e); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestGetAuditEntry_BatchDecodesPayload(t *testing.T) {
	db, mock := newMockDB(t)
	now := time.Now().UTC()
	payload := `{"changes":[{"property":{"id":"prod_a","environment":"prod","key":"a","value":"2","last_modified":"0001-01-01T00:00:00Z"}}],"deletions":[]}`

	mock.ExpectQuery("SELECT .+ FROM audit_logs WHERE id = \\$1").
		WithArgs("al-4").
		WillReturnRows(sqlmock.NewRows(auditRowColumns).
			AddRow("al-4", now, "BATCH", nil, nil, nil, nil, "1 operations", payload, nil, nil, nil, nil, "ses-1"))

	e, err := queryGetAuditEntry(context.Background(), db, "al-4")
	if err != nil {
		t.Fatalf("queryGetAuditEntry: %v", err)
	}
	if e.Batch == nil || len(e.Batch.Changes) != 1 || e.Batch.Changes[0].Property.ID != "prod_a" {
		t.Errorf("payload not decoded: %+v", e.Batch)
	}
	if e.NewValue != "" {
		t.Errorf("NewValue must stay empty for decoded BATCH rows, got %q", e.NewValue)
	}
}

func TestGetAuditEntry_MalformedBatchPayload(t *testing.T) {
	db, mock := newMockDB(t)
	now := time.Now().UTC()

	mock.ExpectQuery("SELECT .+ FROM audit_logs WHERE id = \\$1").
		WithArgs("al-5").
		WillReturnRows(sqlmock.NewRows(auditRowColumns).
			AddRow("al-5", now, "BATCH", nil, nil, nil, nil, "1 operations", "{not json", nil, nil, nil, nil, "ses-1"))

	if _, err := queryGetAuditEntry(context.Background(), db, "al-5"); err == nil {
		t.Error("expected decode error for malformed payload")
	}
}

func TestListAuditEntries_TimestampOrder(t *testing.T) {
	db, mock := newMockDB(t)
	now := time.Now().UTC()

	mock.ExpectQuery("SELECT .+ FROM audit_logs WHERE record_id = \\$1 ORDER BY timestamp ASC, seq ASC").
		WithArgs("prod_db.url").
		WillReturnRows(sqlmock.NewRows(auditRowColumns).
			AddRow("al-1", now.Add(-time.Hour), "CREATE", "prod_db.url", "db.url", "prod", nil, nil, "jdbc:prod", nil, nil, nil, nil, "ses-1").
			AddRow("al-2", now, "UPDATE", "prod_db.url", "db.url", "prod", nil, "jdbc:prod", "jdbc:prod2", nil, nil, nil, nil, "ses-1"))

	entries, err := queryListAuditEntries(context.Background(), db, model.AuditFilter{RecordID: "prod_db.url"})
	if err != nil {
		t.Fatalf("queryListAuditEntries: %v", err)
	}
	if len(entries) != 2 || entries[0].ID != "al-1" || entries[1].ID != "al-2" {
		t.Errorf("unexpected entries: %+v", entries)
	}
	if entries[1].OldValue != "jdbc:prod" || entries[1].NewValue != "jdbc:prod2" {
		t.Errorf("unexpected update entry: %+v", entries[1])
	}
}

func TestRunInTransaction_Commit(t *testing.T) {
	db, mock := newMockDB(t)
	s := &PostgresStore{db: db}

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM properties WHERE id = \\$1").
		WithArgs("prod_a").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := s.RunInTransaction(context.Background(), func(tx store.Store) error {
		return tx.DeleteProperty(context.Background(), "prod_a")
	})
	if err != nil {
		t.Fatalf("RunInTransaction: %v", err)
	}
}

func TestRunInTransaction_RollbackOnError(t *testing.T) {
	db, mock := newMockDB(t)
	s := &PostgresStore{db: db}

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM properties WHERE id = \\$1").
		WithArgs("prod_a").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectRollback()

	wantErr := errors.New("audit append failed")
	err := s.RunInTransaction(context.Background(), func(tx store.Store) error {
		if err := tx.DeleteProperty(context.Background(), "prod_a"); err != nil {
			return err
		}
		return wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Errorf("expected wrapped caller error, got %v", err)
	}
}
