package model

import "time"

// Property is a single key/value configuration entry scoped to one
// environment and one component (source file).
type Property struct {
	ID           string    `json:"id"`
	Environment  string    `json:"environment"`
	Key          string    `json:"key"`
	Value        string    `json:"value"`
	Description  string    `json:"description,omitempty"`
	Component    string    `json:"component"`
	LastModified time.Time `json:"last_modified"`

	// Provenance metadata recording ingestion order from the original text
	// sources. Used only to keep regenerated file output close to the source
	// layout; carries no identity.
	EnvironmentOrder int `json:"environment_order,omitempty"`
	FileOrder        int `json:"file_order,omitempty"`
	LineOrder        int `json:"line_order,omitempty"`
}

// PropertyID builds the conventional id for a property. Uniqueness is only
// guaranteed per (environment, key); two components defining the same key in
// the same environment share an id and the last writer wins in the store.
func PropertyID(environment, key string) string {
	return environment + "_" + key
}

// RestorePoint captures one property's mutable state at a point in time.
// It is the intermediate used when converting between a property and the
// reversible fields of an audit entry.
type RestorePoint struct {
	Value        string    `json:"value"`
	Description  string    `json:"description,omitempty"`
	LastModified time.Time `json:"last_modified"`
}

// RestorePointOf extracts the restore point of a property.
func RestorePointOf(p *Property) RestorePoint {
	return RestorePoint{
		Value:        p.Value,
		Description:  p.Description,
		LastModified: p.LastModified,
	}
}

// Apply writes the restore point back onto a property.
func (r RestorePoint) Apply(p *Property) {
	p.Value = r.Value
	p.Description = r.Description
	p.LastModified = r.LastModified
}
