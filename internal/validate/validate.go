// Package validate implements the cross-reference validator (spec.md §4.1):
// it rejects schemas whose inheritance, automation, foreign-key, or sync
// references don't resolve, before any graph analysis or trigger
// generation runs.
//
// The accumulate-everything-then-report shape mirrors
// internal/executor.PreflightResult{Warnings, Errors} — every check runs, and
// every failure is collected, rather than returning on the first error.
package validate

import (
	"fmt"
	"sort"

	"dnorm/internal/schema"
)

// Kind identifies the category of a validation error (spec.md §7).
type Kind string

const (
	KindMissingInherit   Kind = "MissingInherit"
	KindMissingRef       Kind = "MissingRef"
	KindUnknownTable     Kind = "UnknownTable"
	KindUnknownFK        Kind = "UnknownFK"
	KindMutualExclusion  Kind = "MutualExclusion"
	KindUnreachablePath  Kind = "UnreachablePath"
)

// Error is one validation failure, carrying enough context (table, column,
// referenced name) to locate the offending directive.
type Error struct {
	Kind    Kind
	Table   string
	Column  string
	Ref     string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// Result is the outcome of a validation pass: ok is false whenever Errors
// is non-empty.
type Result struct {
	Errors []*Error
}

// OK reports whether the schema passed every check.
func (r Result) OK() bool {
	return len(r.Errors) == 0
}

// Messages renders each error's message, for CLI/test output.
func (r Result) Messages() []string {
	out := make([]string, len(r.Errors))
	for i, e := range r.Errors {
		out[i] = e.Error()
	}
	return out
}

func (r *Result) add(e *Error) {
	r.Errors = append(r.Errors, e)
}

// Validate runs syntactic validation (reserved for an external collaborator
// per spec.md §7 — dnorm's document is already structurally decoded by
// internal/tomlschema by the time it reaches here) followed by
// ValidateCrossReferences.
func Validate(doc *schema.Document) Result {
	return ValidateCrossReferences(doc)
}

// ValidateCrossReferences runs checks 1-9 from spec.md §4.1's table. It
// never short-circuits: every table and column is checked so a single
// invocation reports as much as possible.
func ValidateCrossReferences(doc *schema.Document) Result {
	var r Result

	for _, tableName := range sortedTableNames(doc) {
		table := doc.Tables[tableName]
		validateColumnEntries(doc, tableName, table, &r)
		validateForeignKeys(doc, tableName, table, &r)
		validateAutomations(doc, tableName, table, &r)
		validateSync(doc, tableName, table, &r)
	}

	return r
}

func sortedTableNames(doc *schema.Document) []string {
	names := make([]string, 0, len(doc.Tables))
	for name := range doc.Tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// validateColumnEntries covers checks 1-4: inheritance targets resolve and
// automation/calculated are mutually exclusive.
func validateColumnEntries(doc *schema.Document, tableName string, table *schema.TableDef, r *Result) {
	for _, colName := range table.ColumnOrder {
		entry := table.Columns[colName]
		def := resolvedDefForValidation(doc, tableName, colName, entry, r)
		if def == nil {
			continue
		}
		if def.Automation != nil && def.Calculated != "" {
			r.add(&Error{
				Kind:    KindMutualExclusion,
				Table:   tableName,
				Column:  colName,
				Message: fmt.Sprintf("table %q column %q: automation and calculated are mutually exclusive", tableName, colName),
			})
		}
	}
}

// resolvedDefForValidation resolves just enough of an entry to check
// checks 1-4, recording an error and returning nil if it can't.
func resolvedDefForValidation(doc *schema.Document, tableName, colName string, entry *schema.ColumnEntry, r *Result) *schema.ColumnDef {
	switch entry.Kind {
	case schema.EntryNull:
		base, ok := doc.Columns[colName]
		if !ok {
			r.add(&Error{
				Kind:    KindMissingInherit,
				Table:   tableName,
				Column:  colName,
				Ref:     colName,
				Message: fmt.Sprintf("table %q column %q: no reusable column named %q", tableName, colName, colName),
			})
			return nil
		}
		return base
	case schema.EntryString:
		base, ok := doc.Columns[entry.InheritName]
		if !ok {
			r.add(&Error{
				Kind:    KindMissingInherit,
				Table:   tableName,
				Column:  colName,
				Ref:     entry.InheritName,
				Message: fmt.Sprintf("table %q column %q: no reusable column named %q", tableName, colName, entry.InheritName),
			})
			return nil
		}
		return base
	case schema.EntryRef:
		base, ok := doc.Columns[entry.InheritName]
		if !ok {
			r.add(&Error{
				Kind:    KindMissingRef,
				Table:   tableName,
				Column:  colName,
				Ref:     entry.InheritName,
				Message: fmt.Sprintf("table %q column %q: $ref %q does not resolve", tableName, colName, entry.InheritName),
			})
			return nil
		}
		return overlay(base, entry.Overlay)
	case schema.EntryFull:
		return entry.Def
	default:
		return nil
	}
}

// overlay applies field-level replacement of non-zero-ish overlay fields
// onto base, matching internal/process's inheritance resolution (field
// replacement, not deep merge). Used here only to decide whether the
// *effective* column has both automation and calculated set.
func overlay(base, o *schema.ColumnDef) *schema.ColumnDef {
	if o == nil {
		return base
	}
	result := *base
	if o.Type != "" {
		result.Type = o.Type
	}
	if o.Size != 0 {
		result.Size = o.Size
	}
	if o.Decimal != 0 {
		result.Decimal = o.Decimal
	}
	result.PrimaryKey = o.PrimaryKey
	result.Unique = o.Unique
	result.Sequence = o.Sequence
	if o.Automation != nil {
		result.Automation = o.Automation
	}
	if o.Calculated != "" {
		result.Calculated = o.Calculated
	}
	return &result
}

// validateForeignKeys covers check 8: every foreign_keys[*].table resolves.
func validateForeignKeys(doc *schema.Document, tableName string, table *schema.TableDef, r *Result) {
	for _, fkName := range table.FKOrder {
		fk := table.ForeignKeys[fkName]
		if _, ok := doc.Tables[fk.Table]; !ok {
			r.add(&Error{
				Kind:    KindUnknownTable,
				Table:   tableName,
				Column:  fkName,
				Ref:     fk.Table,
				Message: fmt.Sprintf("table %q foreign key %q: unknown target table %q", tableName, fkName, fk.Table),
			})
		}
	}
}

// validateAutomations covers checks 5-7: automation.table resolves, and
// the stated foreign_key resolves in the correct table (the source/child
// table for an aggregation, the owning table for a cascade).
func validateAutomations(doc *schema.Document, tableName string, table *schema.TableDef, r *Result) {
	for _, colName := range table.ColumnOrder {
		entry := table.Columns[colName]
		def := resolvedDefForValidation(doc, tableName, colName, entry, r)
		if def == nil || def.Automation == nil {
			continue
		}
		a := def.Automation

		otherTable, ok := doc.Tables[a.Table]
		if !ok {
			r.add(&Error{
				Kind:    KindUnknownTable,
				Table:   tableName,
				Column:  colName,
				Ref:     a.Table,
				Message: fmt.Sprintf("table %q column %q: automation references unknown table %q", tableName, colName, a.Table),
			})
			continue
		}

		if a.Type.IsAggregation() {
			if !hasFK(otherTable, a.ForeignKey) {
				r.add(&Error{
					Kind:    KindUnknownFK,
					Table:   tableName,
					Column:  colName,
					Ref:     a.ForeignKey,
					Message: fmt.Sprintf("table %q column %q: foreign_key %q not found on source table %q", tableName, colName, a.ForeignKey, a.Table),
				})
			}
		} else if a.Type.IsCascade() {
			if !hasFK(table, a.ForeignKey) {
				r.add(&Error{
					Kind:    KindUnknownFK,
					Table:   tableName,
					Column:  colName,
					Ref:     a.ForeignKey,
					Message: fmt.Sprintf("table %q column %q: foreign_key %q not found on table %q", tableName, colName, a.ForeignKey, tableName),
				})
			}
		}
	}
}

func hasFK(table *schema.TableDef, fkName string) bool {
	_, ok := table.ForeignKeys[fkName]
	return ok
}

// validateSync covers check 9: every sync target table resolves.
func validateSync(doc *schema.Document, tableName string, table *schema.TableDef, r *Result) {
	for target := range table.Sync {
		if _, ok := doc.Tables[target]; !ok {
			r.add(&Error{
				Kind:    KindUnknownTable,
				Table:   tableName,
				Ref:     target,
				Message: fmt.Sprintf("table %q sync: unknown target table %q", tableName, target),
			})
		}
	}
}
