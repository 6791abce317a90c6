// Package diff provides functionality to compare two processed schemas
// and produce an additive-only diff.
//
// dnorm never emits a destructive statement: a table or column removed
// from the new schema is recorded as a warning, not acted on, since
// deciding what happens to now-unreferenced data is an operator decision
// this compiler doesn't make on its own (spec.md's non-goals).
package diff

import (
	"sort"

	"dnorm/internal/process"
)

// SchemaDiff represents the additive differences between two processed
// schemas.
type SchemaDiff struct {
	Warnings       []string
	AddedTables    []string
	ModifiedTables []*TableDiff
}

// TableDiff represents one table's additive changes.
type TableDiff struct {
	Name             string
	AddedColumns     []string
	AddedForeignKeys []string
}

// GetName implements the Named interface for type-safe sorting.
func (td *TableDiff) GetName() string { return td.Name }

func (td *TableDiff) isEmpty() bool {
	return len(td.AddedColumns) == 0 && len(td.AddedForeignKeys) == 0
}

// Diff compares oldSchema against newSchema and returns a SchemaDiff.
func Diff(oldSchema, newSchema *process.ProcessedSchema) *SchemaDiff {
	d := &SchemaDiff{}

	for _, name := range sortedNames(newSchema.Tables) {
		newT := newSchema.Tables[name]
		oldT, ok := oldSchema.Tables[name]
		if !ok {
			d.AddedTables = append(d.AddedTables, name)
			continue
		}
		td := compareTable(oldT, newT)
		if td != nil {
			d.ModifiedTables = append(d.ModifiedTables, td)
		}
	}

	for _, name := range sortedNames(oldSchema.Tables) {
		if _, ok := newSchema.Tables[name]; !ok {
			d.Warnings = append(d.Warnings, "table "+name+" no longer appears in the new schema; dnorm leaves it and its data untouched")
		}
	}

	return d
}

// IsEmpty returns true if there are no additive differences in the diff.
func (d *SchemaDiff) IsEmpty() bool {
	return len(d.AddedTables) == 0 && len(d.ModifiedTables) == 0
}

func sortedNames(m map[string]*process.ProcessedTable) []string {
	names := make([]string, 0, len(m))
	for n := range m {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
