// Package propfile parses and serializes the flat key=value property file
// format, preserving source ordering and comment-derived descriptions.
package propfile

import (
	"sort"
	"strings"

	"github.com/groblegark/propkeep/internal/model"
)

// Entry is one parsed property line.
type Entry struct {
	Key         string
	Value       string
	Description string
	// LineOrder is the position of the entry within its file, counting
	// parsed properties from zero. It is carried into Property.LineOrder so
	// serialized output stays close to the source layout.
	LineOrder int
	// SourceLine is the 1-based line number the property was parsed from.
	SourceLine int
}

// Parse reads property-file text into entries, in input order.
//
// A line is skipped if, after trimming, it is empty or begins with '#' or
// '!'. The first '=' or ':' splits a property line into key and value, both
// trimmed. Lines without a separator are dropped silently. A property picks
// up a description from the nearest preceding non-blank line when that line
// is a comment; a property or dropped line in between breaks the attachment.
func Parse(text string) []Entry {
	var (
		entries []Entry
		pending string // description from the most recent comment line
	)

	for i, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}

		if strings.HasPrefix(trimmed, "#") || strings.HasPrefix(trimmed, "!") {
			pending = strings.TrimSpace(trimmed[1:])
			continue
		}

		sep := strings.IndexAny(trimmed, "=:")
		if sep < 0 {
			// Malformed line: dropped, and it also becomes the nearest
			// preceding non-blank line, so any pending comment no longer
			// attaches to the next property.
			pending = ""
			continue
		}

		entries = append(entries, Entry{
			Key:         strings.TrimSpace(trimmed[:sep]),
			Value:       strings.TrimSpace(trimmed[sep+1:]),
			Description: pending,
			LineOrder:   len(entries),
			SourceLine:  i + 1,
		})
		pending = ""
	}

	return entries
}

// Serialize renders properties back into the text format, grouped by
// component in FileOrder, then by LineOrder within each file. A non-empty
// description is emitted as a '# ' comment immediately before its property,
// and every property is followed by a blank line.
//
// The set of (key, value, description) triples round-trips through Parse;
// exact byte layout of the original sources does not.
func Serialize(props []model.Property) string {
	sorted := make([]model.Property, len(props))
	copy(sorted, props)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].FileOrder != sorted[j].FileOrder {
			return sorted[i].FileOrder < sorted[j].FileOrder
		}
		return sorted[i].LineOrder < sorted[j].LineOrder
	})

	var b strings.Builder
	lastFile := -1
	for idx, p := range sorted {
		if idx > 0 && p.FileOrder != lastFile {
			b.WriteString("\n")
		}
		lastFile = p.FileOrder

		if p.Description != "" {
			b.WriteString("# ")
			b.WriteString(p.Description)
			b.WriteString("\n")
		}
		b.WriteString(p.Key)
		b.WriteString("=")
		b.WriteString(p.Value)
		b.WriteString("\n\n")
	}
	return b.String()
}
