// Package matrix projects the flat property set into a key-by-environment
// table and diffs an edited projection against the original.
package matrix

import (
	"sort"

	"github.com/groblegark/propkeep/internal/model"
)

// Row is one logical property key across every environment in view.
// ID is the row identity used to align edited rows with originals; it is the
// key the row was built from and survives key renames in the editor.
type Row struct {
	ID          string            `json:"id"`
	Key         string            `json:"key"`
	Description string            `json:"description,omitempty"`
	Component   string            `json:"component,omitempty"`
	Values      map[string]string `json:"values"`

	// properties holds the backing property per environment for rows built
	// from the store. Edited rows decoded from JSON have none.
	properties map[string]model.Property
}

// Matrix is the key × environment projection of a property set.
type Matrix struct {
	Environments []string `json:"environments"`
	Rows         []Row    `json:"rows"`
}

// Build projects properties into a matrix. Rows are sorted by key and
// environments by name so the projection is deterministic.
func Build(props []model.Property) *Matrix {
	envSet := make(map[string]struct{})
	rowIdx := make(map[string]int)
	var rows []Row

	for _, p := range props {
		envSet[p.Environment] = struct{}{}

		i, ok := rowIdx[p.Key]
		if !ok {
			i = len(rows)
			rowIdx[p.Key] = i
			rows = append(rows, Row{
				ID:          p.Key,
				Key:         p.Key,
				Description: p.Description,
				Component:   p.Component,
				Values:      make(map[string]string),
				properties:  make(map[string]model.Property),
			})
		}
		rows[i].Values[p.Environment] = p.Value
		rows[i].properties[p.Environment] = p
		if rows[i].Description == "" {
			rows[i].Description = p.Description
		}
	}

	envs := make([]string, 0, len(envSet))
	for env := range envSet {
		envs = append(envs, env)
	}
	sort.Strings(envs)
	sort.Slice(rows, func(i, j int) bool { return rows[i].Key < rows[j].Key })

	return &Matrix{Environments: envs, Rows: rows}
}

// Property returns the backing property for (row id, environment) if the
// matrix was built from the store.
func (m *Matrix) Property(rowID, env string) (model.Property, bool) {
	for _, r := range m.Rows {
		if r.ID == rowID {
			p, ok := r.properties[env]
			return p, ok
		}
	}
	return model.Property{}, false
}

// Diff compares an edited matrix against the original it was derived from
// and returns one property mutation per (row, environment) cell whose key,
// description, or value differs. A value turning non-empty in a cell with no
// backing property synthesizes a new property with the conventional
// environment_key id. Unchanged cells emit nothing. The result is ordered by
// edited row order, then by the edited matrix's environment order.
func Diff(original, edited *Matrix) []model.Property {
	origRows := make(map[string]*Row, len(original.Rows))
	for i := range original.Rows {
		origRows[original.Rows[i].ID] = &original.Rows[i]
	}

	envs := edited.Environments
	if len(envs) == 0 {
		envs = original.Environments
	}

	var changes []model.Property
	for _, row := range edited.Rows {
		orig := origRows[row.ID]

		keyChanged := orig != nil && row.Key != orig.Key
		descChanged := orig != nil && row.Description != orig.Description

		for _, env := range envs {
			newVal := row.Values[env]

			var (
				backing model.Property
				hasProp bool
			)
			if orig != nil {
				backing, hasProp = orig.properties[env]
			}

			if !hasProp {
				if newVal == "" {
					continue
				}
				changes = append(changes, model.Property{
					ID:          model.PropertyID(env, row.Key),
					Environment: env,
					Key:         row.Key,
					Value:       newVal,
					Description: row.Description,
					Component:   row.Component,
				})
				continue
			}

			if newVal == backing.Value && !keyChanged && !descChanged {
				continue
			}

			mutated := backing
			mutated.Key = row.Key
			mutated.Value = newVal
			mutated.Description = row.Description
			changes = append(changes, mutated)
		}
	}

	return changes
}

// CreateMissing emits an empty-valued property for every combination of
// distinct key × distinct component × target environment that has no
// existing property, inheriting the description from any existing property
// with the same (key, component). It keeps component files structurally
// complete across environments.
func CreateMissing(existing []model.Property, targetEnvs []string) []model.Property {
	type keyComp struct{ key, component string }

	present := make(map[string]struct{})            // key|component|env
	descriptions := make(map[keyComp]string)        // (key, component) -> description
	orders := make(map[keyComp]model.Property)      // (key, component) -> provenance donor
	keySet := make(map[string]struct{})
	compSet := make(map[string]struct{})

	for _, p := range existing {
		kc := keyComp{p.Key, p.Component}
		present[p.Key+"|"+p.Component+"|"+p.Environment] = struct{}{}
		keySet[p.Key] = struct{}{}
		compSet[p.Component] = struct{}{}
		if _, ok := descriptions[kc]; !ok && p.Description != "" {
			descriptions[kc] = p.Description
		}
		if _, ok := orders[kc]; !ok {
			orders[kc] = p
		}
	}

	keys := sortedSet(keySet)
	comps := sortedSet(compSet)

	var created []model.Property
	for _, key := range keys {
		for _, comp := range comps {
			for _, env := range targetEnvs {
				if _, ok := present[key+"|"+comp+"|"+env]; ok {
					continue
				}
				p := model.Property{
					ID:          model.PropertyID(env, key),
					Environment: env,
					Key:         key,
					Component:   comp,
					Description: descriptions[keyComp{key, comp}],
				}
				if donor, ok := orders[keyComp{key, comp}]; ok {
					p.FileOrder = donor.FileOrder
					p.LineOrder = donor.LineOrder
				}
				created = append(created, p)
			}
		}
	}

	return created
}

func sortedSet(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for s := range set {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
