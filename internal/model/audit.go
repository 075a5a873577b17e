package model

import "time"

// Action classifies an audit entry.
type Action string

const (
	ActionCreate  Action = "CREATE"
	ActionUpdate  Action = "UPDATE"
	ActionDelete  Action = "DELETE"
	ActionRestore Action = "RESTORE"
	ActionBatch   Action = "BATCH"
)

// String returns the string representation of the action.
func (a Action) String() string {
	return string(a)
}

// IsValid checks whether the action is a known value.
func (a Action) IsValid() bool {
	switch a {
	case ActionCreate, ActionUpdate, ActionDelete, ActionRestore, ActionBatch:
		return true
	}
	return false
}

// AuditEntry is an immutable, append-only record of one mutation (or one
// batch of mutations) sufficient to compute its inverse. Entries are never
// updated or deleted.
//
// For single-property actions OldValue/NewValue hold plain property values.
// For ActionBatch the reversible data lives in the typed Batch payload;
// OldValue then carries a human-readable operation count and NewValue is
// left empty in memory (the store serializes Batch into the new_value
// column, which is the only place the payload exists as text).
type AuditEntry struct {
	ID             string    `json:"id"`
	Timestamp      time.Time `json:"timestamp"`
	Action         Action    `json:"action"`
	RecordID       string    `json:"record_id"`
	PropertyKey    string    `json:"property_key"`
	Environment    string    `json:"environment"`
	Component      string    `json:"component,omitempty"`
	OldValue       string    `json:"old_value,omitempty"`
	NewValue       string    `json:"new_value,omitempty"`
	OldDescription string    `json:"old_description,omitempty"`
	NewDescription string    `json:"new_description,omitempty"`
	ChangeDetails  string    `json:"change_details,omitempty"`
	UserID         string    `json:"user_id,omitempty"`
	SessionID      string    `json:"session_id"`

	// Batch is set if and only if Action == ActionBatch.
	Batch *BatchPayload `json:"batch,omitempty"`
}

// BatchPayload is the reversible record of one batch operation. A batch of
// any size produces exactly one audit entry, so audit-log growth is bounded
// by user actions rather than by cell count.
type BatchPayload struct {
	Changes   []BatchChange `json:"changes"`
	Deletions []Property    `json:"deletions"`
}

// BatchChange pairs a written property with the state it replaced.
// Original == nil means the write created the property.
type BatchChange struct {
	Property Property  `json:"property"`
	Original *Property `json:"original_property,omitempty"`
}

// Operations returns the total number of operations recorded in the payload.
func (p *BatchPayload) Operations() int {
	return len(p.Changes) + len(p.Deletions)
}
