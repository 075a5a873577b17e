package snapshot

import (
	"context"
	"database/sql"
	"sort"

	"github.com/groblegark/propkeep/internal/model"
	"github.com/groblegark/propkeep/internal/store"
)

// mockStore is a minimal in-memory store for snapshot tests.
type mockStore struct {
	props   map[string]*model.Property
	entries []*model.AuditEntry
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
	return p, nil
}

func (m *mockStore) ListProperties(_ context.Context, _ model.PropertyFilter) ([]*model.Property, int, error) {
	var result []*model.Property
	for _, p := range m.props {
		result = append(result, p)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].ID < result[j].ID
	})
	return result, len(result), nil
}

func (m *mockStore) UpdateProperty(_ context.Context, p *model.Property) error {
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

func (m *mockStore) AppendAuditEntry(_ context.Context, e *model.AuditEntry) error {
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

func (m *mockStore) ListAuditEntries(_ context.Context, _ model.AuditFilter) ([]*model.AuditEntry, error) {
	return m.entries, nil
}

func (m *mockStore) ReplaceAuditEntries(_ context.Context, entries []model.AuditEntry) error {
	m.entries = nil
	for i := range entries {
		e := entries[i]
		m.entries = append(m.entries, &e)
	}
	return nil
}

func (m *mockStore) RunInTransaction(_ context.Context, fn func(tx store.Store) error) error {
	return fn(m)
}

func (m *mockStore) Close() error {
	return nil
}
