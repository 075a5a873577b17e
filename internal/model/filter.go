package model

// PropertyFilter narrows property listing. Zero values mean "no constraint".
type PropertyFilter struct {
	Environment string `json:"environment,omitempty"`
	Component   string `json:"component,omitempty"`
	Key         string `json:"key,omitempty"`
	// Search matches key or value, case-insensitively, as a substring.
	Search string `json:"search,omitempty"`
	Limit  int    `json:"limit,omitempty"`
	Offset int    `json:"offset,omitempty"`
	// Sort is a column name, optionally prefixed with "-" for descending.
	Sort string `json:"sort,omitempty"`
}

// AuditFilter narrows audit-log listing. Entries are always returned in
// timestamp order with ties broken by insertion order; restore correctness
// depends on inverting the most recent record affecting a property.
type AuditFilter struct {
	RecordID    string `json:"record_id,omitempty"`
	PropertyKey string `json:"property_key,omitempty"`
	Environment string `json:"environment,omitempty"`
	Action      Action `json:"action,omitempty"`
	Limit       int    `json:"limit,omitempty"`
	Offset      int    `json:"offset,omitempty"`
}
