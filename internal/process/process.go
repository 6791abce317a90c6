// Package process implements the schema processor (spec.md §4.2): it
// resolves the four column-inheritance shapes into concrete column
// definitions and synthesizes foreign-key columns on the owning table.
//
// It assumes the document has already passed internal/validate — entries
// are expected to resolve; any failure here is reported as an internal
// error rather than a user-facing validation message.
package process

import (
	"fmt"

	"dnorm/internal/schema"
)

// ResolvedColumn is one column on a processed table: either a table's own
// declared column (possibly inherited/overlaid) or one synthesized from a
// foreign key.
type ResolvedColumn struct {
	Name string
	Def  *schema.ColumnDef

	// FromFK is the foreign_keys key this column was synthesized for, or
	// "" if the column was declared directly on the table.
	FromFK string
	// SourcePK is the target table's primary key column this column
	// mirrors, set only when FromFK != "".
	SourcePK string
}

// ProcessedTable is a table after inheritance resolution and FK synthesis.
type ProcessedTable struct {
	Name string

	Columns     []*ResolvedColumn
	ColumnIndex map[string]*ResolvedColumn

	ForeignKeys map[string]*schema.ForeignKeyDef
	FKOrder     []string

	UINotes []schema.UINote
	Sync    map[string]*schema.SyncDef
	Spread  map[string]*schema.SpreadDef
	Content []map[string]string
}

// PrimaryKeyColumns returns the table's primary key columns in declaration
// order. A table may have zero (no declared PK, unusual but not rejected
// here), one, or several (composite PK).
func (t *ProcessedTable) PrimaryKeyColumns() []*ResolvedColumn {
	var pks []*ResolvedColumn
	for _, c := range t.Columns {
		if c.Def.PrimaryKey {
			pks = append(pks, c)
		}
	}
	return pks
}

// Column looks up a resolved column by name.
func (t *ProcessedTable) Column(name string) (*ResolvedColumn, bool) {
	c, ok := t.ColumnIndex[name]
	return c, ok
}

// ProcessedSchema is the fully resolved schema, ready for the dependency
// graph engine.
type ProcessedSchema struct {
	Tables     map[string]*ProcessedTable
	TableOrder []string
}

// Table looks up a processed table by name.
func (s *ProcessedSchema) Table(name string) (*ProcessedTable, bool) {
	t, ok := s.Tables[name]
	return t, ok
}

type state int

const (
	stateUnvisited state = iota
	stateInProgress
	stateDone
)

type processor struct {
	doc    *schema.Document
	result *ProcessedSchema
	states map[string]state
}

// ProcessSchema resolves every table's column inheritance and synthesizes
// foreign-key columns, following FK references as needed to determine a
// referenced table's primary key shape before the owning table is
// finalized.
func ProcessSchema(doc *schema.Document) (*ProcessedSchema, error) {
	p := &processor{
		doc: doc,
		result: &ProcessedSchema{
			Tables: make(map[string]*ProcessedTable, len(doc.Tables)),
		},
		states: make(map[string]state, len(doc.Tables)),
	}

	for _, name := range doc.TableOrder {
		if _, err := p.process(name); err != nil {
			return nil, err
		}
	}

	return p.result, nil
}

func (p *processor) process(name string) (*ProcessedTable, error) {
	switch p.states[name] {
	case stateDone:
		return p.result.Tables[name], nil
	case stateInProgress:
		return nil, fmt.Errorf("process: table %q participates in a foreign key cycle", name)
	}
	p.states[name] = stateInProgress

	table, ok := p.doc.Tables[name]
	if !ok {
		return nil, fmt.Errorf("process: unknown table %q", name)
	}

	pt := &ProcessedTable{
		Name:        name,
		ColumnIndex: make(map[string]*ResolvedColumn),
		ForeignKeys: table.ForeignKeys,
		FKOrder:     table.FKOrder,
		UINotes:     table.UINotes,
		Sync:        table.Sync,
		Spread:      table.Spread,
		Content:     table.Content,
	}

	for _, colName := range table.ColumnOrder {
		entry := table.Columns[colName]
		def, err := p.resolveEntry(name, colName, entry)
		if err != nil {
			return nil, err
		}
		rc := &ResolvedColumn{Name: colName, Def: def}
		pt.Columns = append(pt.Columns, rc)
		pt.ColumnIndex[colName] = rc
	}

	for _, fkName := range table.FKOrder {
		fk := table.ForeignKeys[fkName]
		target, err := p.process(fk.Table)
		if err != nil {
			return nil, fmt.Errorf("process: table %q foreign key %q: %w", name, fkName, err)
		}
		synthesized, err := synthesizeFKColumns(fkName, fk, target)
		if err != nil {
			return nil, fmt.Errorf("process: table %q foreign key %q: %w", name, fkName, err)
		}
		for _, rc := range synthesized {
			if _, dup := pt.ColumnIndex[rc.Name]; dup {
				return nil, fmt.Errorf("process: table %q: synthesized column %q collides with an existing column", name, rc.Name)
			}
			pt.Columns = append(pt.Columns, rc)
			pt.ColumnIndex[rc.Name] = rc
		}
	}

	p.result.Tables[name] = pt
	p.result.TableOrder = append(p.result.TableOrder, name)
	p.states[name] = stateDone
	return pt, nil
}

// resolveEntry turns one table-column entry into a concrete ColumnDef,
// applying field-level overlay for $ref entries (spec.md §3: a $ref entry
// replaces whichever fields it sets, it does not deep-merge nested
// structures).
func (p *processor) resolveEntry(table, col string, entry *schema.ColumnEntry) (*schema.ColumnDef, error) {
	switch entry.Kind {
	case schema.EntryNull:
		base, ok := p.doc.Columns[col]
		if !ok {
			return nil, fmt.Errorf("process: table %q column %q: no reusable column %q", table, col, col)
		}
		cp := *base
		return &cp, nil
	case schema.EntryString:
		base, ok := p.doc.Columns[entry.InheritName]
		if !ok {
			return nil, fmt.Errorf("process: table %q column %q: no reusable column %q", table, col, entry.InheritName)
		}
		cp := *base
		return &cp, nil
	case schema.EntryRef:
		base, ok := p.doc.Columns[entry.InheritName]
		if !ok {
			return nil, fmt.Errorf("process: table %q column %q: $ref %q does not resolve", table, col, entry.InheritName)
		}
		return applyOverlay(base, entry.Overlay), nil
	case schema.EntryFull:
		cp := *entry.Def
		return &cp, nil
	default:
		return nil, fmt.Errorf("process: table %q column %q: unrecognized entry kind", table, col)
	}
}

func applyOverlay(base, overlay *schema.ColumnDef) *schema.ColumnDef {
	result := *base
	if overlay == nil {
		return &result
	}
	if overlay.Type != "" {
		result.Type = overlay.Type
	}
	if overlay.Size != 0 {
		result.Size = overlay.Size
	}
	if overlay.Decimal != 0 {
		result.Decimal = overlay.Decimal
	}
	result.PrimaryKey = overlay.PrimaryKey
	result.Unique = overlay.Unique
	result.Sequence = overlay.Sequence
	if overlay.Automation != nil {
		result.Automation = overlay.Automation
	}
	if overlay.Calculated != "" {
		result.Calculated = overlay.Calculated
	}
	return &result
}

// synthesizeFKColumns builds the child-side columns for one foreign key,
// one per column of the target's primary key (composite keys synthesize
// one column each, in PK declaration order). The synthesized column
// inherits the target column's Type/Size/Decimal but never its
// PrimaryKey/Unique/Sequence flags — those describe the parent's own
// identity, not the child's mirror of it.
//
// The naming rule is prefix + pkColumnName + suffix. When neither is
// given, the foreign key's own declared name is used as the prefix
// (joined with an underscore) so that two foreign keys to the same table
// don't collide — e.g. foreign_keys.author -> authors.id synthesizes
// author_id.
func synthesizeFKColumns(fkName string, fk *schema.ForeignKeyDef, target *ProcessedTable) ([]*ResolvedColumn, error) {
	pks := target.PrimaryKeyColumns()
	if len(pks) == 0 {
		return nil, fmt.Errorf("target table %q has no primary key to synthesize from", fk.Table)
	}

	prefix, suffix := fk.Prefix, fk.Suffix
	if prefix == "" && suffix == "" {
		prefix = fkName + "_"
	}

	cols := make([]*ResolvedColumn, 0, len(pks))
	for _, pk := range pks {
		name := prefix + pk.Name + suffix
		def := &schema.ColumnDef{
			Type:    pk.Def.Type,
			Size:    pk.Def.Size,
			Decimal: pk.Def.Decimal,
		}
		cols = append(cols, &ResolvedColumn{
			Name:     name,
			Def:      def,
			FromFK:   fkName,
			SourcePK: pk.Name,
		})
	}
	return cols, nil
}
