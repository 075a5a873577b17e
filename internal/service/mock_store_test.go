package service

import (
	"context"
	"database/sql"
	"sort"

	"github.com/groblegark/propkeep/internal/model"
	"github.com/groblegark/propkeep/internal/store"
)

// mockStore is a minimal in-memory store for service tests.
type mockStore struct {
	props   map[string]*model.Property
	entries []*model.AuditEntry

	// failAppend makes AppendAuditEntry fail, for rollback tests.
	failAppend error
	// rolledBack is set when a transaction function returned an error.
	rolledBack bool
}

func newMockStore() *mockStore {
	return &mockStore{
		props: make(map[string]*model.Property),
	}
}

func (m *mockStore) CreateProperty(_ context.Context, p *model.Property) error {
	m.props[p.ID] = p
	return nil
}

func (m *mockStore) GetProperty(_ context.Context, id string) (*model.Property, error) {
	p, ok := m.props[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *p
	return &cp, nil
}

func (m *mockStore) ListProperties(_ context.Context, filter model.PropertyFilter) ([]*model.Property, int, error) {
	var result []*model.Property
	for _, p := range m.props {
		if filter.Environment != "" && p.Environment != filter.Environment {
			continue
		}
		result = append(result, p)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].ID < result[j].ID
	})
	return result, len(result), nil
}

func (m *mockStore) UpdateProperty(_ context.Context, p *model.Property) error {
	if _, ok := m.props[p.ID]; !ok {
		return sql.ErrNoRows
	}
	m.props[p.ID] = p
	return nil
}

func (m *mockStore) DeleteProperty(_ context.Context, id string) error {
	if _, ok := m.props[id]; !ok {
		return sql.ErrNoRows
	}
	delete(m.props, id)
	return nil
}

func (m *mockStore) ReplaceProperties(_ context.Context, props []model.Property) error {
	m.props = make(map[string]*model.Property, len(props))
	for i := range props {
		p := props[i]
		m.props[p.ID] = &p
	}
	return nil
}

// AppendAuditEntry validates like the real store does before accepting.
func (m *mockStore) AppendAuditEntry(_ context.Context, e *model.AuditEntry) error {
	if m.failAppend != nil {
		return m.failAppend
	}
	if err := model.ValidateAuditEntry(e); err != nil {
		return err
	}
	m.entries = append(m.entries, e)
	return nil
}

func (m *mockStore) GetAuditEntry(_ context.Context, id string) (*model.AuditEntry, error) {
	for _, e := range m.entries {
		if e.ID == id {
			return e, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockStore) ListAuditEntries(_ context.Context, filter model.AuditFilter) ([]*model.AuditEntry, error) {
	var result []*model.AuditEntry
	for _, e := range m.entries {
		if filter.RecordID != "" && e.RecordID != filter.RecordID {
			continue
		}
		result = append(result, e)
	}
	return result, nil
}

func (m *mockStore) ReplaceAuditEntries(_ context.Context, entries []model.AuditEntry) error {
	m.entries = nil
	for i := range entries {
		e := entries[i]
		m.entries = append(m.entries, &e)
	}
	return nil
}

// RunInTransaction snapshots state and restores it when fn fails, so
// rollback semantics hold for tests.
func (m *mockStore) RunInTransaction(_ context.Context, fn func(tx store.Store) error) error {
	propsBefore := make(map[string]*model.Property, len(m.props))
	for k, v := range m.props {
		cp := *v
		propsBefore[k] = &cp
	}
	entriesBefore := append([]*model.AuditEntry(nil), m.entries...)

	if err := fn(m); err != nil {
		m.props = propsBefore
		m.entries = entriesBefore
		m.rolledBack = true
		return err
	}
	return nil
}

func (m *mockStore) Close() error {
	return nil
}
