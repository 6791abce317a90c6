// Package trigger implements the trigger generator (spec.md §4.4-§4.6): it
// turns a processed schema's derivation directives into one consolidated
// BEFORE INSERT/UPDATE/DELETE procedure per table, in the fixed step order
// PULL, PUSH-to-children, calculated columns, PUSH-to-parents, SYNC,
// SPREAD.
package trigger

import (
	"fmt"

	"dnorm/internal/graph"
	"dnorm/internal/process"
	"dnorm/internal/schema"
)

// CascadeLink describes one SNAPSHOT/FOLLOW relationship: a child column
// that mirrors a parent column, joined through a foreign key.
type CascadeLink struct {
	ChildTable  string
	ChildColumn string
	FKName      string
	FKColumns   []FKColumnPair
	ParentTable string
	ParentColumn string
	Live        bool // true for FOLLOW: the parent pushes updates; false for SNAPSHOT: fixed at insert.
}

// FKColumnPair is one synthesized FK column and the parent primary-key
// column it mirrors, used to build the join predicate for cascades and
// aggregations.
type FKColumnPair struct {
	LocalColumn  string
	ParentColumn string
}

// AggregationLink describes one SUM/COUNT/MAX/MIN/LATEST relationship: a
// parent summary column fed by a child table's rows.
type AggregationLink struct {
	ParentTable  string
	ParentColumn string
	ChildTable   string
	ChildFKName  string
	FKColumns    []FKColumnPair
	SourceColumn string // empty for a COUNT of every row; set for a COUNT of non-null values
	// ChildOrderColumn is the child table's first primary key column,
	// used by LATEST to identify the most recently inserted row.
	ChildOrderColumn string
	Type             schema.AutomationType
}

// TableAutomations is the per-table view the generator consumes: the six
// ordered steps of spec.md §4.4, already resolved into concrete links.
type TableAutomations struct {
	Table *process.ProcessedTable

	Pulls          []CascadeLink     // cascades owned by this table
	PushToChildren []CascadeLink     // FOLLOW cascades where this table is the parent
	CalcOrder      []string          // this table's calculated columns, dependency order
	PushToParents  []AggregationLink // aggregations fed by this table's rows

	Sync   map[string]*schema.SyncDef
	Spread map[string]*schema.SpreadDef
}

// Analyze builds the TableAutomations view for every table in ps.
func Analyze(ps *process.ProcessedSchema) (map[string]*TableAutomations, error) {
	result := make(map[string]*TableAutomations, len(ps.TableOrder))
	for _, name := range ps.TableOrder {
		table, _ := ps.Table(name)
		calcOrder, err := graph.OrderCalcColumns(table)
		if err != nil {
			return nil, err
		}
		result[name] = &TableAutomations{
			Table:     table,
			CalcOrder: calcOrder,
			Sync:      table.Sync,
			Spread:    table.Spread,
		}
	}

	for _, name := range ps.TableOrder {
		table, _ := ps.Table(name)
		for _, c := range table.Columns {
			a := c.Def.Automation
			if a == nil {
				continue
			}
			switch {
			case a.Type.IsCascade():
				link, err := buildCascadeLink(ps, name, c.Name, a)
				if err != nil {
					return nil, err
				}
				result[name].Pulls = append(result[name].Pulls, link)
				if link.Live {
					result[a.Table].PushToChildren = append(result[a.Table].PushToChildren, link)
				}
			case a.Type.IsAggregation():
				link, err := buildAggregationLink(ps, name, c.Name, a)
				if err != nil {
					return nil, err
				}
				result[a.Table].PushToParents = append(result[a.Table].PushToParents, link)
			}
		}
	}

	return result, nil
}

func buildCascadeLink(ps *process.ProcessedSchema, childTable, childColumn string, a *schema.AutomationDef) (CascadeLink, error) {
	child, _ := ps.Table(childTable)
	fkCols, err := fkColumnPairs(child, a.ForeignKey)
	if err != nil {
		return CascadeLink{}, fmt.Errorf("trigger: table %q column %q: %w", childTable, childColumn, err)
	}
	return CascadeLink{
		ChildTable:   childTable,
		ChildColumn:  childColumn,
		FKName:       a.ForeignKey,
		FKColumns:    fkCols,
		ParentTable:  a.Table,
		ParentColumn: a.Column,
		Live:         a.Type == schema.AutomationFollow,
	}, nil
}

func buildAggregationLink(ps *process.ProcessedSchema, parentTable, parentColumn string, a *schema.AutomationDef) (AggregationLink, error) {
	child, _ := ps.Table(a.Table)
	fkCols, err := fkColumnPairs(child, a.ForeignKey)
	if err != nil {
		return AggregationLink{}, fmt.Errorf("trigger: table %q column %q: %w", parentTable, parentColumn, err)
	}
	var orderCol string
	if pks := child.PrimaryKeyColumns(); len(pks) > 0 {
		orderCol = pks[0].Name
	}
	return AggregationLink{
		ParentTable:      parentTable,
		ParentColumn:     parentColumn,
		ChildTable:       a.Table,
		ChildFKName:      a.ForeignKey,
		FKColumns:        fkCols,
		SourceColumn:     a.Column,
		ChildOrderColumn: orderCol,
		Type:             a.Type,
	}, nil
}

// fkColumnPairs finds the synthesized local columns for fkName on table
// and pairs each with the parent primary-key column it mirrors.
func fkColumnPairs(table *process.ProcessedTable, fkName string) ([]FKColumnPair, error) {
	var pairs []FKColumnPair
	for _, c := range table.Columns {
		if c.FromFK == fkName {
			pairs = append(pairs, FKColumnPair{LocalColumn: c.Name, ParentColumn: c.SourcePK})
		}
	}
	if len(pairs) == 0 {
		return nil, fmt.Errorf("no synthesized columns found for foreign key %q on table %q", fkName, table.Name)
	}
	return pairs, nil
}
