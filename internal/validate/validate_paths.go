package validate

import (
	"fmt"

	"dnorm/internal/graph"
	"dnorm/internal/process"
)

// ValidateAutomationPaths runs the reachability check from spec.md §7/§8
// (the UnreachablePath error kind): for every aggregation or cascade, a BFS
// over the FK graph in the appropriate direction must find a path between
// the two tables the automation names, and the automation's referenced
// column must resolve to a real node in the automation graph.
//
// This runs after internal/process, since it needs synthesized FK columns
// (process.ProcessedSchema) rather than the raw document ValidateCrossReferences
// checks.
func ValidateAutomationPaths(ps *process.ProcessedSchema) Result {
	var r Result

	fkGraph := graph.BuildFKGraph(ps)
	autoGraph := graph.BuildAutomationGraph(ps)

	for _, tableName := range ps.TableOrder {
		table, _ := ps.Table(tableName)
		for _, c := range table.Columns {
			a := c.Def.Automation
			if a == nil {
				continue
			}

			switch {
			case a.Type.IsAggregation():
				// a.Table is the child/source table; it owns the FK back to
				// tableName, the table declaring the summary column.
				if !fkGraph.Reachable(a.Table)[tableName] {
					r.add(&Error{
						Kind:    KindUnreachablePath,
						Table:   tableName,
						Column:  c.Name,
						Ref:     a.Table,
						Message: fmt.Sprintf("table %q column %q: no foreign-key path from %q back to %q", tableName, c.Name, a.Table, tableName),
					})
				}
				if a.Column != "" && !autoGraph.Nodes[graph.AutomationNode(a.Table, a.Column)] {
					r.add(&Error{
						Kind:    KindUnreachablePath,
						Table:   tableName,
						Column:  c.Name,
						Ref:     a.Column,
						Message: fmt.Sprintf("table %q column %q: automation source column %q.%q does not exist", tableName, c.Name, a.Table, a.Column),
					})
				}
			case a.Type.IsCascade():
				// tableName owns the FK to a.Table, the parent being pulled from.
				if !fkGraph.Reachable(tableName)[a.Table] {
					r.add(&Error{
						Kind:    KindUnreachablePath,
						Table:   tableName,
						Column:  c.Name,
						Ref:     a.Table,
						Message: fmt.Sprintf("table %q column %q: no foreign-key path from %q to %q", tableName, c.Name, tableName, a.Table),
					})
				}
				if a.Column != "" && !autoGraph.Nodes[graph.AutomationNode(a.Table, a.Column)] {
					r.add(&Error{
						Kind:    KindUnreachablePath,
						Table:   tableName,
						Column:  c.Name,
						Ref:     a.Column,
						Message: fmt.Sprintf("table %q column %q: automation source column %q.%q does not exist", tableName, c.Name, a.Table, a.Column),
					})
				}
			}
		}
	}

	return r
}
