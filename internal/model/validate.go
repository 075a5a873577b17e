package model

import (
	"fmt"
	"strings"
)

// ValidationError holds a list of field-level validation errors.
type ValidationError struct {
	Errors []FieldError
}

// FieldError represents a single validation failure on a named field.
type FieldError struct {
	Field   string
	Message string
}

// Error formats the validation error as a semicolon-separated list of field messages.
func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Errors))
	for i, fe := range e.Errors {
		parts[i] = fe.Field + ": " + fe.Message
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// HasErrors reports whether the validation error contains any field errors.
func (e *ValidationError) HasErrors() bool {
	return len(e.Errors) > 0
}

// ValidateProperty checks a Property for constraint violations.
// It returns a *ValidationError if any rules fail, or nil if the property is valid.
func ValidateProperty(p *Property) error {
	var ve ValidationError

	if strings.TrimSpace(p.Key) == "" {
		ve.Errors = append(ve.Errors, FieldError{Field: "key", Message: "is required"})
	}
	if strings.TrimSpace(p.Environment) == "" {
		ve.Errors = append(ve.Errors, FieldError{Field: "environment", Message: "is required"})
	}
	if p.ID == "" {
		ve.Errors = append(ve.Errors, FieldError{Field: "id", Message: "is required"})
	}
	// Keys with an embedded separator would not survive the text codec.
	if strings.ContainsAny(p.Key, "=:") {
		ve.Errors = append(ve.Errors, FieldError{
			Field:   "key",
			Message: fmt.Sprintf("must not contain '=' or ':', got %q", p.Key),
		})
	}

	if ve.HasErrors() {
		return &ve
	}
	return nil
}

// ValidateAuditEntry checks an AuditEntry for constraint violations.
func ValidateAuditEntry(e *AuditEntry) error {
	var ve ValidationError

	if e.ID == "" {
		ve.Errors = append(ve.Errors, FieldError{Field: "id", Message: "is required"})
	}
	if !e.Action.IsValid() {
		ve.Errors = append(ve.Errors, FieldError{
			Field:   "action",
			Message: fmt.Sprintf("invalid value %q", e.Action),
		})
	}
	if e.SessionID == "" {
		ve.Errors = append(ve.Errors, FieldError{Field: "session_id", Message: "is required"})
	}
	if e.Action == ActionBatch && e.Batch == nil {
		ve.Errors = append(ve.Errors, FieldError{Field: "batch", Message: "is required for BATCH entries"})
	}
	if e.Action != ActionBatch && e.Batch != nil {
		ve.Errors = append(ve.Errors, FieldError{
			Field:   "batch",
			Message: fmt.Sprintf("must be empty for %s entries", e.Action),
		})
	}

	if ve.HasErrors() {
		return &ve
	}
	return nil
}
