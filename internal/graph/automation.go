package graph

import (
	"dnorm/internal/process"
)

// AutomationNode names one column for the automation graph.
func AutomationNode(table, column string) string {
	return table + "." + column
}

// BuildAutomationGraph builds the whole-schema automation graph: an edge
// from a derived column to the column it derives from. Aggregations
// (SUM/COUNT/MAX/MIN/LATEST) point from the parent's summary column to
// the child's source column; cascades (SNAPSHOT/FOLLOW) point from the
// child's mirrored column to the parent's source column.
//
// Unlike the FK graph and the per-table calculated-column graph, cycles
// here are not rejected (spec.md §4.3): a SNAPSHOT column and a FOLLOW
// column can legitimately reference each other across two tables without
// creating a trigger-execution problem, since each direction only reacts
// to writes on its own side. Only columns that exist in the schema are
// nodes: an automation whose source column is not one of them gets no
// edge, which is how internal/validate's ValidateAutomationPaths detects
// an unresolved source column.
func BuildAutomationGraph(ps *process.ProcessedSchema) *Graph {
	g := New()
	for _, tableName := range ps.TableOrder {
		table, _ := ps.Table(tableName)
		for _, c := range table.Columns {
			g.AddNode(AutomationNode(tableName, c.Name))
		}
	}
	for _, tableName := range ps.TableOrder {
		table, _ := ps.Table(tableName)
		for _, c := range table.Columns {
			a := c.Def.Automation
			if a == nil {
				continue
			}
			from := AutomationNode(tableName, c.Name)
			to := AutomationNode(a.Table, a.Column)
			if !g.Nodes[to] {
				continue
			}
			g.AddEdge(from, to)
		}
	}
	return g
}
